package repository

import (
	"time"

	"fcetrainer/internal/database"
	"fcetrainer/internal/models"
)

// AttemptRepository handles attempt history database operations
type AttemptRepository struct {
	db database.DBTX
}

// NewAttemptRepository creates a new attempt repository. db may be a
// transaction so imports can be committed or rolled back as a whole.
func NewAttemptRepository(db database.DBTX) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Create records a finished attempt and fills in its ID
func (r *AttemptRepository) Create(attempt *models.Attempt) error {
	if attempt.CompletedAt.IsZero() {
		attempt.CompletedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO attempts (trainee_id, part, title, score, total, timed_out, elapsed_ms, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		attempt.TraineeID,
		string(attempt.Part),
		attempt.Title,
		attempt.Score,
		attempt.Total,
		attempt.TimedOut,
		attempt.ElapsedMs,
		attempt.CompletedAt,
	)
	if err != nil {
		return err
	}

	attempt.ID = id
	return nil
}

// ListRecent returns a trainee's latest attempts, newest first
func (r *AttemptRepository) ListRecent(traineeID string, limit int) ([]models.Attempt, error) {
	query := `
		SELECT id, trainee_id, part, title, score, total, timed_out, elapsed_ms, completed_at
		FROM attempts
		WHERE trainee_id = ?
		ORDER BY completed_at DESC, id DESC
		LIMIT ?
	`
	return r.list(query, traineeID, limit)
}

// ListAll returns every recorded attempt in insertion order
func (r *AttemptRepository) ListAll() ([]models.Attempt, error) {
	query := `
		SELECT id, trainee_id, part, title, score, total, timed_out, elapsed_ms, completed_at
		FROM attempts
		ORDER BY id ASC
	`
	return r.list(query)
}

// DeleteAll removes every attempt and returns how many rows were deleted
func (r *AttemptRepository) DeleteAll() (int64, error) {
	result, err := r.db.Exec("DELETE FROM attempts")
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *AttemptRepository) list(query string, args ...interface{}) ([]models.Attempt, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []models.Attempt
	for rows.Next() {
		var attempt models.Attempt
		var part string
		err := rows.Scan(
			&attempt.ID,
			&attempt.TraineeID,
			&part,
			&attempt.Title,
			&attempt.Score,
			&attempt.Total,
			&attempt.TimedOut,
			&attempt.ElapsedMs,
			&attempt.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		attempt.Part = models.Part(part)
		attempts = append(attempts, attempt)
	}

	return attempts, rows.Err()
}
