package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ParseSeconds reads a whole number of seconds from a form value
func ParseSeconds(field, raw string) (time.Duration, error) {
	n, err := ParseCount(field, raw)
	if err != nil {
		return 0, err
	}
	if int64(n) > maxSeconds || int64(n) < -maxSeconds {
		return 0, ValidationError{Field: field, Message: "is out of range"}
	}
	return time.Duration(n) * time.Second, nil
}

// maxSeconds is the largest count of seconds a time.Duration can hold
const maxSeconds = math.MaxInt64 / int64(time.Second)

// ParseCount reads a whole number from a form value
func ParseCount(field, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ValidationError{Field: field, Message: "a value is required"}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ValidationError{Field: field, Message: "must be a whole number"}
	}
	return n, nil
}

// ValidateTimeLimit checks that a time budget lies within [min, max]
func ValidateTimeLimit(field string, limit, min, max time.Duration) error {
	if limit < min || limit > max {
		return ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be between %d and %d seconds", int(min.Seconds()), int(max.Seconds())),
		}
	}
	return nil
}

// ValidateQuestionCount checks that count lies within [1, available]
func ValidateQuestionCount(count, available int) error {
	if available < 1 {
		return ValidationError{Field: "questions", Message: "no questions are available"}
	}
	if count < 1 || count > available {
		return ValidationError{
			Field:   "questions",
			Message: fmt.Sprintf("must be between 1 and %d", available),
		}
	}
	return nil
}
