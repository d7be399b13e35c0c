package session

import (
	"fmt"
	"time"

	"fcetrainer/internal/models"
	"fcetrainer/internal/scoring"
	"fcetrainer/internal/validation"
)

// WordFormationSession is a Part 3 session: a fixed batch of questions, each
// with its own time limit
type WordFormationSession struct {
	Phase     Phase
	Batch     []models.WordFormationItem
	Cursor    int
	Score     int
	StartedAt time.Time // start of the current question
	TimeLimit time.Duration
	Feedback  *WordFormationFeedback

	// Totals over the answered questions
	Elapsed  time.Duration
	TimeOuts int
}

// WordFormationFeedback is the outcome of the current question
type WordFormationFeedback struct {
	Item          models.WordFormationItem
	Result        scoring.WordFormationResult
	Elapsed       time.Duration
	Reconstructed string
}

// StartWordFormation draws count distinct items from pool and starts the first question
func StartWordFormation(pool []models.WordFormationItem, count int, limit time.Duration, now time.Time, rng Picker) (*WordFormationSession, error) {
	if err := validation.ValidateTimeLimit("time_limit", limit, MinQuestionTimeLimit, MaxQuestionTimeLimit); err != nil {
		return nil, err
	}
	if err := validation.ValidateQuestionCount(count, len(pool)); err != nil {
		return nil, err
	}

	batch := make([]models.WordFormationItem, count)
	for i, idx := range rng.Perm(len(pool))[:count] {
		batch[i] = pool[idx]
	}

	return &WordFormationSession{
		Phase:     PhaseActive,
		Batch:     batch,
		StartedAt: now,
		TimeLimit: limit,
	}, nil
}

// Total is the number of questions in the batch
func (s *WordFormationSession) Total() int {
	return len(s.Batch)
}

// Current returns the question under the cursor
func (s *WordFormationSession) Current() models.WordFormationItem {
	if s.Cursor < 0 || s.Cursor >= len(s.Batch) {
		return models.WordFormationItem{}
	}
	return s.Batch[s.Cursor]
}

// Remaining is the time left for the current question, never negative
func (s *WordFormationSession) Remaining(now time.Time) time.Duration {
	return remaining(s.StartedAt, s.TimeLimit, now)
}

// Progress is the share of questions already behind the cursor
func (s *WordFormationSession) Progress() float64 {
	if len(s.Batch) == 0 {
		return 0
	}
	return float64(s.Cursor) / float64(len(s.Batch))
}

// Percentage is the final score as a percentage of the batch size
func (s *WordFormationSession) Percentage() float64 {
	return scoring.Percentage(s.Score, len(s.Batch))
}

// Submit checks the answer to the current question. A question answered
// after its limit is wrong whatever was typed.
func (s *WordFormationSession) Submit(answer string, now time.Time) (*WordFormationFeedback, error) {
	if s.Phase != PhaseActive {
		return nil, fmt.Errorf("submit while %s: %w", s.Phase, ErrInvalidTransition)
	}

	item := s.Current()
	elapsed := now.Sub(s.StartedAt)
	result := scoring.ScoreWordFormation(answer, item.Answer, elapsed > s.TimeLimit)
	if result.Correct {
		s.Score++
	}
	if result.TimedOut {
		s.TimeOuts++
	}
	s.Elapsed += elapsed

	s.Feedback = &WordFormationFeedback{
		Item:          item,
		Result:        result,
		Elapsed:       elapsed,
		Reconstructed: scoring.ReconstructSentence(item.Sentence, item.Answer),
	}
	s.Phase = PhaseSubmitted
	return s.Feedback, nil
}

// Advance moves to the next question, or finishes the session after the last one
func (s *WordFormationSession) Advance(now time.Time) error {
	if s.Phase != PhaseSubmitted {
		return fmt.Errorf("advance while %s: %w", s.Phase, ErrInvalidTransition)
	}

	if s.Cursor >= len(s.Batch)-1 {
		s.Phase = PhaseFinished
		return nil
	}

	s.Cursor++
	s.StartedAt = now
	s.Feedback = nil
	s.Phase = PhaseActive
	return nil
}

// Reset clears all progress and returns to the setup screen
func (s *WordFormationSession) Reset() {
	*s = WordFormationSession{Phase: PhaseIdle}
}
