package session

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"fcetrainer/internal/models"
	"fcetrainer/internal/validation"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// fixedPicker always picks the same position
type fixedPicker int

func (p fixedPicker) Intn(n int) int {
	if int(p) >= n {
		return n - 1
	}
	return int(p)
}

func (p fixedPicker) Perm(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	return perm
}

func clozePool(part models.Part, titles ...string) []models.ClozeExercise {
	pool := make([]models.ClozeExercise, len(titles))
	for i, title := range titles {
		pool[i] = models.ClozeExercise{
			Part:    part,
			Title:   title,
			Text:    "I live _1_ London _2_ my family.",
			Answers: []string{"in", "with"},
			Options: [][]string{{"in", "at", "on", "by"}, {"with", "by", "for", "of"}},
		}
	}
	return pool
}

func wordPool(n int) []models.WordFormationItem {
	pool := make([]models.WordFormationItem, n)
	for i := range pool {
		pool[i] = models.WordFormationItem{
			Root:     fmt.Sprintf("ROOT%d", i),
			Sentence: "It was a ______ day.",
			Answer:   fmt.Sprintf("answer%d", i),
		}
	}
	return pool
}

func TestStartClozeValidatesTimeLimit(t *testing.T) {
	pool := clozePool(models.PartMultipleChoice, "A")

	tests := []struct {
		name    string
		limit   time.Duration
		wantErr bool
	}{
		{name: "minimum", limit: MinClozeTimeLimit},
		{name: "maximum", limit: MaxClozeTimeLimit},
		{name: "too short", limit: 30 * time.Second, wantErr: true},
		{name: "too long", limit: 11 * time.Minute, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := StartCloze(models.PartMultipleChoice, pool, tt.limit, t0, fixedPicker(0))
			if (err != nil) != tt.wantErr {
				t.Fatalf("StartCloze() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var validationErr validation.ValidationError
				if !errors.As(err, &validationErr) {
					t.Errorf("expected ValidationError, got %T", err)
				}
				return
			}
			if s.Phase != PhaseActive || !s.StartedAt.Equal(t0) || s.TimeLimit != tt.limit {
				t.Errorf("unexpected session: %+v", s)
			}
		})
	}
}

func TestStartClozeRejectsWordFormation(t *testing.T) {
	if _, err := StartCloze(models.PartWordFormation, nil, DefaultClozeTimeLimit, t0, fixedPicker(0)); err == nil {
		t.Error("expected an error for Part 3")
	}
}

func TestClozeRemainingIsProjection(t *testing.T) {
	s, err := StartCloze(models.PartOpenCloze, clozePool(models.PartOpenCloze, "A"), 60*time.Second, t0, fixedPicker(0))
	if err != nil {
		t.Fatalf("StartCloze() error = %v", err)
	}

	tests := []struct {
		after        time.Duration
		wantLeft     time.Duration
		wantProgress float64
	}{
		{after: 0, wantLeft: 60 * time.Second, wantProgress: 0},
		{after: 15 * time.Second, wantLeft: 45 * time.Second, wantProgress: 0.25},
		{after: 60 * time.Second, wantLeft: 0, wantProgress: 1},
		{after: 90 * time.Second, wantLeft: 0, wantProgress: 1},
	}

	for _, tt := range tests {
		now := t0.Add(tt.after)
		if got := s.Remaining(now); got != tt.wantLeft {
			t.Errorf("Remaining(+%s) = %s, want %s", tt.after, got, tt.wantLeft)
		}
		if got := s.Progress(now); got != tt.wantProgress {
			t.Errorf("Progress(+%s) = %v, want %v", tt.after, got, tt.wantProgress)
		}
	}
	if s.Phase != PhaseActive {
		t.Errorf("observing the timer changed the phase to %s", s.Phase)
	}
}

func TestClozeSubmitAfterTimeoutStillScores(t *testing.T) {
	s, err := StartCloze(models.PartMultipleChoice, clozePool(models.PartMultipleChoice, "A"), 60*time.Second, t0, fixedPicker(0))
	if err != nil {
		t.Fatalf("StartCloze() error = %v", err)
	}

	submission, err := s.Submit([]string{"in", "by"}, t0.Add(75*time.Second))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if !submission.TimedOut {
		t.Error("expected the submission to be flagged as timed out")
	}
	if submission.Elapsed != 75*time.Second {
		t.Errorf("Elapsed = %s, want 1m15s", submission.Elapsed)
	}
	if submission.Result.Correct != 1 || !submission.Result.Gaps[0].Match {
		t.Errorf("timeout should not affect scoring, got %+v", submission.Result)
	}
	if s.Phase != PhaseSubmitted {
		t.Errorf("Phase = %s, want submitted", s.Phase)
	}
	if len(submission.Reconstructed) == 0 {
		t.Error("expected the reconstructed text")
	}
}

func TestClozeSubmitWithinLimit(t *testing.T) {
	s, _ := StartCloze(models.PartMultipleChoice, clozePool(models.PartMultipleChoice, "A"), 60*time.Second, t0, fixedPicker(0))

	submission, err := s.Submit([]string{"in", "with"}, t0.Add(60*time.Second))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if submission.TimedOut {
		t.Error("submitting exactly at the limit is not a timeout")
	}
	if submission.Result.Correct != 2 {
		t.Errorf("Correct = %d, want 2", submission.Result.Correct)
	}

	if _, err := s.Submit([]string{"in", "with"}, t0.Add(61*time.Second)); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second submit: expected ErrInvalidTransition, got %v", err)
	}
}

func TestClozeRetryNeverRepeatsPreviousTitle(t *testing.T) {
	pool := clozePool(models.PartOpenCloze, "Travel", "Food", "Sport", "Music")
	rng := rand.New(rand.NewSource(7))

	s, err := StartCloze(models.PartOpenCloze, pool, DefaultClozeTimeLimit, t0, rng)
	if err != nil {
		t.Fatalf("StartCloze() error = %v", err)
	}

	for i := 0; i < 200; i++ {
		previous := s.Exercise.Title
		if _, err := s.Submit(nil, t0); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		now := t0.Add(time.Duration(i+1) * time.Minute)
		if err := s.Retry(pool, now, rng); err != nil {
			t.Fatalf("Retry() error = %v", err)
		}
		if s.Exercise.Title == previous {
			t.Fatalf("retry %d repeated title %q", i, previous)
		}
		if s.Phase != PhaseActive || !s.StartedAt.Equal(now) || s.Submission != nil {
			t.Fatalf("retry %d left unexpected state: %+v", i, s)
		}
	}
}

func TestClozeRetryWithSingleExercise(t *testing.T) {
	pool := clozePool(models.PartOpenCloze, "Only")
	s, _ := StartCloze(models.PartOpenCloze, pool, DefaultClozeTimeLimit, t0, fixedPicker(0))
	submission, _ := s.Submit([]string{"in"}, t0.Add(time.Minute))

	err := s.Retry(pool, t0.Add(2*time.Minute), fixedPicker(0))

	if !errors.Is(err, ErrInsufficientPool) {
		t.Fatalf("expected ErrInsufficientPool, got %v", err)
	}
	if s.Phase != PhaseSubmitted || s.Submission != submission || !s.StartedAt.Equal(t0) {
		t.Error("a refused retry must leave the session unchanged")
	}
}

func TestClozeRetryWhenEveryTitleMatches(t *testing.T) {
	pool := clozePool(models.PartMultipleChoice, "Same", "Same")
	s, _ := StartCloze(models.PartMultipleChoice, pool, DefaultClozeTimeLimit, t0, fixedPicker(0))

	if err := s.Retry(pool, t0, fixedPicker(0)); !errors.Is(err, ErrInsufficientPool) {
		t.Errorf("expected ErrInsufficientPool, got %v", err)
	}
}

func TestRecoverClozeResetsTiming(t *testing.T) {
	exercise := clozePool(models.PartMultipleChoice, "Recovered")[0]
	later := t0.Add(3 * time.Hour)

	s := RecoverCloze(exercise, DefaultClozeTimeLimit, later)

	if s.Phase != PhaseActive || !s.Recovered {
		t.Errorf("expected an active recovered session, got %+v", s)
	}
	if !s.StartedAt.Equal(later) {
		t.Errorf("StartedAt = %s, want the recovery time", s.StartedAt)
	}
	if s.TimeLimit != DefaultClozeTimeLimit {
		t.Errorf("TimeLimit = %s, want the recovery default", s.TimeLimit)
	}
	if s.Part != models.PartMultipleChoice {
		t.Errorf("Part = %s", s.Part)
	}
}

func TestClozeReset(t *testing.T) {
	s, _ := StartCloze(models.PartOpenCloze, clozePool(models.PartOpenCloze, "A"), DefaultClozeTimeLimit, t0, fixedPicker(0))
	s.Reset()

	if s.Phase != PhaseIdle || s.Part != models.PartOpenCloze || s.Exercise.Title != "" {
		t.Errorf("unexpected state after reset: %+v", s)
	}
	if err := s.Retry(clozePool(models.PartOpenCloze, "A", "B"), t0, fixedPicker(0)); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("retry from idle: expected ErrInvalidTransition, got %v", err)
	}
}

func TestStartWordFormationDrawsDistinctItems(t *testing.T) {
	pool := wordPool(10)
	rng := rand.New(rand.NewSource(3))

	s, err := StartWordFormation(pool, 6, DefaultQuestionTimeLimit, t0, rng)
	if err != nil {
		t.Fatalf("StartWordFormation() error = %v", err)
	}

	seen := make(map[string]bool)
	for _, item := range s.Batch {
		if seen[item.Root] {
			t.Fatalf("item %s drawn twice", item.Root)
		}
		seen[item.Root] = true
	}
	if s.Total() != 6 || s.Cursor != 0 || s.Score != 0 || s.Phase != PhaseActive {
		t.Errorf("unexpected initial state: %+v", s)
	}
}

func TestStartWordFormationValidation(t *testing.T) {
	pool := wordPool(3)

	tests := []struct {
		name  string
		count int
		limit time.Duration
	}{
		{name: "zero questions", count: 0, limit: DefaultQuestionTimeLimit},
		{name: "more questions than items", count: 4, limit: DefaultQuestionTimeLimit},
		{name: "limit too short", count: 1, limit: 4 * time.Second},
		{name: "limit too long", count: 1, limit: 61 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := StartWordFormation(pool, tt.count, tt.limit, t0, fixedPicker(0)); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestWordFormationTimedOutAnswerIsWrong(t *testing.T) {
	s, _ := StartWordFormation(wordPool(2), 2, 20*time.Second, t0, fixedPicker(0))

	feedback, err := s.Submit("answer0", t0.Add(21*time.Second))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if !feedback.Result.TimedOut || feedback.Result.Correct {
		t.Errorf("expected a timed-out wrong answer, got %+v", feedback.Result)
	}
	if !feedback.Result.Match {
		t.Error("the typed text itself matched")
	}
	if s.Score != 0 {
		t.Errorf("Score = %d, want 0", s.Score)
	}
	if feedback.Reconstructed != "It was a ANSWER0 day." {
		t.Errorf("Reconstructed = %q", feedback.Reconstructed)
	}
}

func TestWordFormationTotals(t *testing.T) {
	s, _ := StartWordFormation(wordPool(2), 2, 20*time.Second, t0, fixedPicker(0))

	s.Submit("answer0", t0.Add(8*time.Second))
	s.Advance(t0.Add(10 * time.Second))
	s.Submit("answer1", t0.Add(35*time.Second))

	if s.Elapsed != 33*time.Second {
		t.Errorf("Elapsed = %s, want 33s", s.Elapsed)
	}
	if s.TimeOuts != 1 {
		t.Errorf("TimeOuts = %d, want 1", s.TimeOuts)
	}
	if s.Score != 1 {
		t.Errorf("Score = %d, want 1", s.Score)
	}
}

func TestWordFormationAdvanceAndFinish(t *testing.T) {
	s, _ := StartWordFormation(wordPool(5), 5, 20*time.Second, t0, fixedPicker(0))
	now := t0

	for i := 0; i < 5; i++ {
		if s.Phase != PhaseActive || s.Cursor != i {
			t.Fatalf("question %d: phase %s cursor %d", i, s.Phase, s.Cursor)
		}
		answer := s.Current().Answer
		if i%2 == 1 {
			answer = "wrong"
		}
		now = now.Add(5 * time.Second)
		if _, err := s.Submit(answer, now); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if err := s.Advance(now); err != nil {
			t.Fatalf("Advance() error = %v", err)
		}
		if i < 4 && !s.StartedAt.Equal(now) {
			t.Errorf("question %d: per-question clock not restarted", i+1)
		}
	}

	if s.Phase != PhaseFinished {
		t.Fatalf("Phase = %s, want finished", s.Phase)
	}
	if s.Score != 3 || s.Total() != 5 {
		t.Errorf("Score = %d/%d, want 3/5", s.Score, s.Total())
	}
	if s.Percentage() != 60 {
		t.Errorf("Percentage() = %v, want 60", s.Percentage())
	}
	if err := s.Advance(now); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("advance after finish: expected ErrInvalidTransition, got %v", err)
	}
}

func TestWordFormationLastAdvanceFinishes(t *testing.T) {
	s := &WordFormationSession{
		Phase:     PhaseSubmitted,
		Batch:     wordPool(5),
		Cursor:    4,
		Score:     2,
		StartedAt: t0,
		TimeLimit: 20 * time.Second,
	}

	if err := s.Advance(t0.Add(time.Minute)); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}

	if s.Phase != PhaseFinished {
		t.Errorf("Phase = %s, want finished", s.Phase)
	}
	if s.Cursor != 4 || s.Score != 2 {
		t.Errorf("final counters changed: cursor %d score %d", s.Cursor, s.Score)
	}
}

func TestWordFormationAdvanceRequiresSubmission(t *testing.T) {
	s, _ := StartWordFormation(wordPool(2), 2, 20*time.Second, t0, fixedPicker(0))

	if err := s.Advance(t0); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestWordFormationReset(t *testing.T) {
	s, _ := StartWordFormation(wordPool(2), 2, 20*time.Second, t0, fixedPicker(0))
	s.Submit("answer0", t0)
	s.Reset()

	if s.Phase != PhaseIdle || s.Score != 0 || s.Cursor != 0 || s.Batch != nil || s.Feedback != nil {
		t.Errorf("unexpected state after reset: %+v", s)
	}
}

func TestPhaseString(t *testing.T) {
	phases := map[Phase]string{
		PhaseIdle:      "idle",
		PhaseActive:    "active",
		PhaseSubmitted: "submitted",
		PhaseFinished:  "finished",
		Phase(42):      "unknown",
	}
	for phase, want := range phases {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", int(phase), got, want)
		}
	}
}
