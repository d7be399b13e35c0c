package session

import (
	"fmt"
	"time"

	"fcetrainer/internal/models"
	"fcetrainer/internal/scoring"
	"fcetrainer/internal/validation"
)

// ClozeSession is a Part 1 or Part 2 session: one exercise text at a time
type ClozeSession struct {
	Part       models.Part
	Phase      Phase
	Exercise   models.ClozeExercise
	StartedAt  time.Time
	TimeLimit  time.Duration
	Recovered  bool // rehydrated from a snapshot; the original time limit was lost
	Submission *ClozeSubmission
}

// ClozeSubmission is the scored outcome of submitting a cloze exercise
type ClozeSubmission struct {
	Answers       []string
	Elapsed       time.Duration
	TimedOut      bool
	Result        scoring.ClozeResult
	Reconstructed []scoring.Segment
}

// StartCloze picks a random exercise from pool and starts the clock
func StartCloze(part models.Part, pool []models.ClozeExercise, limit time.Duration, now time.Time, rng Picker) (*ClozeSession, error) {
	if !part.IsCloze() {
		return nil, fmt.Errorf("part %s is not a cloze part", part)
	}
	if err := validation.ValidateTimeLimit("time_limit", limit, MinClozeTimeLimit, MaxClozeTimeLimit); err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, ErrInsufficientPool
	}

	return &ClozeSession{
		Part:      part,
		Phase:     PhaseActive,
		Exercise:  pool[rng.Intn(len(pool))],
		StartedAt: now,
		TimeLimit: limit,
	}, nil
}

// RecoverCloze rebuilds an active session around a snapshotted exercise.
// The clock restarts at now and the limit is the recovery default.
func RecoverCloze(exercise models.ClozeExercise, limit time.Duration, now time.Time) *ClozeSession {
	return &ClozeSession{
		Part:      exercise.Part,
		Phase:     PhaseActive,
		Exercise:  exercise,
		StartedAt: now,
		TimeLimit: limit,
		Recovered: true,
	}
}

// Elapsed is the time since the exercise started
func (s *ClozeSession) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.StartedAt)
}

// Remaining is the time left before the limit, never negative
func (s *ClozeSession) Remaining(now time.Time) time.Duration {
	return remaining(s.StartedAt, s.TimeLimit, now)
}

// Progress is the elapsed share of the time limit, between 0 and 1
func (s *ClozeSession) Progress(now time.Time) float64 {
	return progress(s.StartedAt, s.TimeLimit, now)
}

// Submit scores answers against the exercise. Going over the limit only
// flags the submission; the answers are scored as usual.
func (s *ClozeSession) Submit(answers []string, now time.Time) (*ClozeSubmission, error) {
	if s.Phase != PhaseActive {
		return nil, fmt.Errorf("submit while %s: %w", s.Phase, ErrInvalidTransition)
	}

	elapsed := s.Elapsed(now)
	submitted := make([]string, len(answers))
	copy(submitted, answers)

	submission := &ClozeSubmission{
		Answers:       submitted,
		Elapsed:       elapsed,
		TimedOut:      elapsed > s.TimeLimit,
		Result:        scoring.ScoreCloze(submitted, s.Exercise.Answers, scoring.RuleFor(s.Part)),
		Reconstructed: scoring.Segments(s.Exercise.Text, s.Exercise.Answers),
	}

	s.Submission = submission
	s.Phase = PhaseSubmitted
	return submission, nil
}

// Retry switches to a different exercise from pool, one whose title differs
// from the current one, and restarts the clock. The session is unchanged
// when no such exercise exists.
func (s *ClozeSession) Retry(pool []models.ClozeExercise, now time.Time, rng Picker) error {
	if s.Phase != PhaseActive && s.Phase != PhaseSubmitted {
		return fmt.Errorf("retry while %s: %w", s.Phase, ErrInvalidTransition)
	}
	if len(pool) < 2 {
		return ErrInsufficientPool
	}

	candidates := make([]int, 0, len(pool))
	for i, exercise := range pool {
		if exercise.Title != s.Exercise.Title {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return ErrInsufficientPool
	}

	s.Exercise = pool[candidates[rng.Intn(len(candidates))]]
	s.Phase = PhaseActive
	s.StartedAt = now
	s.Submission = nil
	s.Recovered = false
	return nil
}

// Reset returns the session to the setup screen
func (s *ClozeSession) Reset() {
	*s = ClozeSession{Part: s.Part, Phase: PhaseIdle}
}
