package service

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"fcetrainer/internal/exercise"
	"fcetrainer/internal/metrics"
	"fcetrainer/internal/models"
	"fcetrainer/internal/session"
)

// ErrSessionLost is returned when an action arrives for a session that no
// longer exists in memory and cannot be rebuilt from a snapshot
var ErrSessionLost = errors.New("session lost")

// SnapshotStore keeps one exercise snapshot per trainee
type SnapshotStore interface {
	Save(traineeID string, snapshot models.Snapshot) error
	Load(traineeID string, part models.Part) (*models.Snapshot, error)
	Delete(traineeID string, part models.Part) error
}

// AttemptRecorder stores finished attempts
type AttemptRecorder interface {
	Create(attempt *models.Attempt) error
	ListRecent(traineeID string, limit int) ([]models.Attempt, error)
}

// traineeState holds the in-memory sessions of one trainee
type traineeState struct {
	cloze         map[models.Part]*session.ClozeSession
	wordFormation *session.WordFormationSession
	lastSeen      time.Time
}

// TrainerService runs the exercise sessions of every trainee
type TrainerService struct {
	store          *exercise.Store
	snapshots      SnapshotStore
	attempts       AttemptRecorder
	recoveredLimit time.Duration

	now func() time.Time
	rng session.Picker

	mu       sync.Mutex
	trainees map[string]*traineeState
}

// NewTrainerService creates a trainer service. snapshots and attempts may be
// nil, in which case recovery and history are disabled.
func NewTrainerService(store *exercise.Store, snapshots SnapshotStore, attempts AttemptRecorder, recoveredLimit time.Duration) *TrainerService {
	if recoveredLimit <= 0 {
		recoveredLimit = session.DefaultClozeTimeLimit
	}
	return &TrainerService{
		store:          store,
		snapshots:      snapshots,
		attempts:       attempts,
		recoveredLimit: recoveredLimit,
		now:            time.Now,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		trainees:       make(map[string]*traineeState),
	}
}

// state returns the trainee's sessions, creating an empty set on first use.
// Callers must hold s.mu.
func (s *TrainerService) state(traineeID string) *traineeState {
	st, ok := s.trainees[traineeID]
	if !ok {
		st = &traineeState{cloze: make(map[models.Part]*session.ClozeSession)}
		s.trainees[traineeID] = st
		metrics.ActiveTrainees.Set(float64(len(s.trainees)))
	}
	st.lastSeen = s.now()
	return st
}

// PruneInactive drops the in-memory sessions of trainees not seen for maxIdle.
// Part 1 and Part 2 exercises of a pruned trainee can still be recovered from
// their snapshots.
func (s *TrainerService) PruneInactive(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxIdle)
	pruned := 0
	for id, st := range s.trainees {
		if st.lastSeen.Before(cutoff) {
			delete(s.trainees, id)
			pruned++
		}
	}
	metrics.ActiveTrainees.Set(float64(len(s.trainees)))
	return pruned
}

// Now is the service clock that session timers are measured against
func (s *TrainerService) Now() time.Time {
	return s.now()
}

// SourceStats reports how the part's data source loaded
func (s *TrainerService) SourceStats(part models.Part) exercise.LoadStats {
	return s.store.Stats(part)
}

// ClozeAvailable reports how many exercises the part has
func (s *TrainerService) ClozeAvailable(part models.Part) (int, error) {
	pool, err := s.store.ClozePool(part)
	if err != nil {
		return 0, err
	}
	return len(pool), nil
}

// WordFormationAvailable reports how many word formation items exist
func (s *TrainerService) WordFormationAvailable() (int, error) {
	pool, err := s.store.WordFormationPool()
	if err != nil {
		return 0, err
	}
	return len(pool), nil
}

// ClozeSession returns a copy of the trainee's Part 1 or Part 2 session.
// A trainee with no session in memory gets one rebuilt from a snapshot when
// possible, otherwise an idle session.
func (s *TrainerService) ClozeSession(traineeID string, part models.Part) (*session.ClozeSession, error) {
	if !part.IsCloze() {
		return nil, fmt.Errorf("part %s is not a cloze part", part)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.clozeSession(traineeID, part)
	if current == nil {
		return &session.ClozeSession{Part: part, Phase: session.PhaseIdle}, nil
	}
	view := *current
	return &view, nil
}

// clozeSession finds the in-memory session or recovers it. Callers must hold s.mu.
func (s *TrainerService) clozeSession(traineeID string, part models.Part) *session.ClozeSession {
	st := s.state(traineeID)
	if current, ok := st.cloze[part]; ok {
		return current
	}

	recovered := s.recoverCloze(traineeID, part)
	if recovered != nil {
		st.cloze[part] = recovered
	}
	return recovered
}

func (s *TrainerService) recoverCloze(traineeID string, part models.Part) *session.ClozeSession {
	if s.snapshots == nil {
		return nil
	}

	snapshot, err := s.snapshots.Load(traineeID, part)
	if err != nil {
		log.Printf("Trainer: failed to load snapshot for %s: %v", traineeID, err)
		return nil
	}
	if snapshot == nil {
		return nil
	}

	record, err := exercise.ParseCloze(part, exercise.Row(snapshot.Data))
	if err != nil {
		log.Printf("Trainer: discarding unusable %s snapshot for %s: %v", part, traineeID, err)
		return nil
	}

	log.Printf("Trainer: recovered %s exercise %q for %s", part, record.Title, traineeID)
	metrics.SnapshotRecoveries.WithLabelValues(string(part)).Inc()
	return session.RecoverCloze(record, s.recoveredLimit, s.now())
}

// StartCloze picks an exercise for the part and starts the clock
func (s *TrainerService) StartCloze(traineeID string, part models.Part, limit time.Duration) (*session.ClozeSession, error) {
	pool, err := s.store.ClozePool(part)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	started, err := session.StartCloze(part, pool, limit, s.now(), s.rng)
	if err != nil {
		return nil, err
	}

	s.state(traineeID).cloze[part] = started
	s.saveSnapshot(traineeID, started)
	metrics.ExercisesStarted.WithLabelValues(string(part)).Inc()

	view := *started
	return &view, nil
}

// SubmitCloze scores the trainee's answers and records the attempt
func (s *TrainerService) SubmitCloze(traineeID string, part models.Part, answers []string) (*session.ClozeSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.clozeSession(traineeID, part)
	if current == nil {
		metrics.SessionsLost.WithLabelValues(string(part)).Inc()
		return nil, ErrSessionLost
	}

	submission, err := current.Submit(answers, s.now())
	if err != nil {
		return nil, err
	}
	metrics.AttemptsFinished.WithLabelValues(string(part), metrics.Outcome(submission.TimedOut)).Inc()
	metrics.AttemptScores.WithLabelValues(string(part)).Observe(submission.Result.Percentage())

	s.recordAttempt(&models.Attempt{
		TraineeID: traineeID,
		Part:      part,
		Title:     current.Exercise.Title,
		Score:     submission.Result.Correct,
		Total:     submission.Result.Total,
		TimedOut:  submission.TimedOut,
		ElapsedMs: submission.Elapsed.Milliseconds(),
	})

	view := *current
	return &view, nil
}

// RetryCloze swaps in a different exercise and restarts the clock
func (s *TrainerService) RetryCloze(traineeID string, part models.Part) (*session.ClozeSession, error) {
	pool, err := s.store.ClozePool(part)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.clozeSession(traineeID, part)
	if current == nil {
		metrics.SessionsLost.WithLabelValues(string(part)).Inc()
		return nil, ErrSessionLost
	}

	if err := current.Retry(pool, s.now(), s.rng); err != nil {
		return nil, err
	}
	s.saveSnapshot(traineeID, current)

	view := *current
	return &view, nil
}

// ResetCloze returns the part to its setup screen and clears its snapshot
func (s *TrainerService) ResetCloze(traineeID string, part models.Part) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(traineeID)
	if current, ok := st.cloze[part]; ok {
		current.Reset()
	} else {
		st.cloze[part] = &session.ClozeSession{Part: part, Phase: session.PhaseIdle}
	}

	if s.snapshots != nil {
		if err := s.snapshots.Delete(traineeID, part); err != nil {
			log.Printf("Trainer: failed to delete snapshot for %s: %v", traineeID, err)
		}
	}
}

// WordFormationSession returns a copy of the trainee's Part 3 session, or an
// idle session when there is none
func (s *TrainerService) WordFormationSession(traineeID string) *session.WordFormationSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.state(traineeID).wordFormation
	if current == nil {
		return &session.WordFormationSession{Phase: session.PhaseIdle}
	}
	view := *current
	return &view
}

// StartWordFormation draws a batch of count questions
func (s *TrainerService) StartWordFormation(traineeID string, count int, limit time.Duration) (*session.WordFormationSession, error) {
	pool, err := s.store.WordFormationPool()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	started, err := session.StartWordFormation(pool, count, limit, s.now(), s.rng)
	if err != nil {
		return nil, err
	}
	s.state(traineeID).wordFormation = started
	metrics.ExercisesStarted.WithLabelValues(string(models.PartWordFormation)).Inc()

	view := *started
	return &view, nil
}

// SubmitWordFormation checks the answer to the current question. Part 3
// sessions are not snapshotted, so a missing session is reported as lost.
func (s *TrainerService) SubmitWordFormation(traineeID, answer string) (*session.WordFormationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.activeWordFormation(traineeID)
	if current == nil {
		metrics.SessionsLost.WithLabelValues(string(models.PartWordFormation)).Inc()
		return nil, ErrSessionLost
	}
	if _, err := current.Submit(answer, s.now()); err != nil {
		return nil, err
	}

	view := *current
	return &view, nil
}

// AdvanceWordFormation moves to the next question and records the batch
// once the last one is done
func (s *TrainerService) AdvanceWordFormation(traineeID string) (*session.WordFormationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.activeWordFormation(traineeID)
	if current == nil {
		metrics.SessionsLost.WithLabelValues(string(models.PartWordFormation)).Inc()
		return nil, ErrSessionLost
	}
	if err := current.Advance(s.now()); err != nil {
		return nil, err
	}

	if current.Phase == session.PhaseFinished {
		part := string(models.PartWordFormation)
		metrics.AttemptsFinished.WithLabelValues(part, metrics.Outcome(current.TimeOuts > 0)).Inc()
		metrics.AttemptScores.WithLabelValues(part).Observe(current.Percentage())
		s.recordAttempt(&models.Attempt{
			TraineeID: traineeID,
			Part:      models.PartWordFormation,
			Title:     models.PartWordFormation.Title(),
			Score:     current.Score,
			Total:     current.Total(),
			TimedOut:  current.TimeOuts > 0,
			ElapsedMs: current.Elapsed.Milliseconds(),
		})
	}

	view := *current
	return &view, nil
}

func (s *TrainerService) activeWordFormation(traineeID string) *session.WordFormationSession {
	current := s.state(traineeID).wordFormation
	if current == nil || current.Phase == session.PhaseIdle {
		return nil
	}
	return current
}

// ResetWordFormation discards the Part 3 session
func (s *TrainerService) ResetWordFormation(traineeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state(traineeID).wordFormation = nil
}

// RecentAttempts lists the trainee's latest attempts, newest first
func (s *TrainerService) RecentAttempts(traineeID string, limit int) ([]models.Attempt, error) {
	if s.attempts == nil {
		return nil, nil
	}
	return s.attempts.ListRecent(traineeID, limit)
}

// saveSnapshot mirrors the current exercise. Failures are logged only.
func (s *TrainerService) saveSnapshot(traineeID string, current *session.ClozeSession) {
	if s.snapshots == nil {
		return
	}
	snapshot := models.Snapshot{
		ActivePart: current.Part,
		Data:       current.Exercise.Fields(),
	}
	if err := s.snapshots.Save(traineeID, snapshot); err != nil {
		log.Printf("Trainer: failed to save snapshot for %s: %v", traineeID, err)
	}
}

// recordAttempt stores a finished attempt. Failures are logged only.
func (s *TrainerService) recordAttempt(attempt *models.Attempt) {
	if s.attempts == nil {
		return
	}
	attempt.CompletedAt = s.now().UTC()
	if err := s.attempts.Create(attempt); err != nil {
		log.Printf("Trainer: failed to record %s attempt for %s: %v", attempt.Part, attempt.TraineeID, err)
	}
}
