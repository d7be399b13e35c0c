// Package session holds the exercise state machines of the trainer.
//
// A session moves through a closed set of phases:
//
//	Idle -> Active -> Submitted -> Active ... -> Finished -> Idle
//
// Idle is the setup screen. Timers are projections computed from the start
// time whenever the state is observed; nothing is scheduled.
package session

import (
	"errors"
	"time"
)

// Phase is the state of a session
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseActive
	PhaseSubmitted
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseActive:
		return "active"
	case PhaseSubmitted:
		return "submitted"
	case PhaseFinished:
		return "finished"
	}
	return "unknown"
}

var (
	// ErrInsufficientPool is returned when another exercise is requested but none differs from the current one
	ErrInsufficientPool = errors.New("no other exercise is available")
	// ErrInvalidTransition is returned when an action does not apply to the current phase
	ErrInvalidTransition = errors.New("action not allowed in the current phase")
)

// Time budget bounds
const (
	MinClozeTimeLimit     = 60 * time.Second
	MaxClozeTimeLimit     = 600 * time.Second
	DefaultClozeTimeLimit = 300 * time.Second
	ClozeTimeLimitStep    = 30 * time.Second

	MinQuestionTimeLimit     = 5 * time.Second
	MaxQuestionTimeLimit     = 60 * time.Second
	DefaultQuestionTimeLimit = 20 * time.Second

	DefaultQuestionCount = 5
)

// Picker chooses random positions. *rand.Rand satisfies it.
type Picker interface {
	Intn(n int) int
	Perm(n int) []int
}

// remaining is max(0, limit - (now - start))
func remaining(start time.Time, limit time.Duration, now time.Time) time.Duration {
	left := limit - now.Sub(start)
	if left < 0 {
		return 0
	}
	return left
}

// progress is the elapsed share of the limit, capped at 1
func progress(start time.Time, limit time.Duration, now time.Time) float64 {
	if limit <= 0 {
		return 1
	}
	p := float64(now.Sub(start)) / float64(limit)
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}
