package service

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"fcetrainer/internal/database"
	"fcetrainer/internal/models"
	"fcetrainer/internal/repository"
)

const historyFormatVersion = "1.0"

// HistoryData is the export file layout of the attempt history
type HistoryData struct {
	Version      string          `json:"version"`
	ExportedAt   time.Time       `json:"exported_at"`
	DatabaseType string          `json:"database_type"`
	Attempts     []AttemptBackup `json:"attempts"`
}

// AttemptBackup represents an attempt record for export
type AttemptBackup struct {
	TraineeID   string    `json:"trainee_id"`
	Part        string    `json:"part"`
	Title       string    `json:"title"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	TimedOut    bool      `json:"timed_out"`
	ElapsedMs   int64     `json:"elapsed_ms"`
	CompletedAt time.Time `json:"completed_at"`
}

// HistoryService exports and imports the attempt history
type HistoryService struct {
	db *database.DB
}

// NewHistoryService creates a new history service
func NewHistoryService(db *database.DB) *HistoryService {
	return &HistoryService{db: db}
}

// Export writes every attempt as indented JSON
func (s *HistoryService) Export(w io.Writer) (int, error) {
	attempts, err := repository.NewAttemptRepository(s.db).ListAll()
	if err != nil {
		return 0, fmt.Errorf("failed to export attempts: %w", err)
	}

	history := &HistoryData{
		Version:      historyFormatVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.DriverName(),
		Attempts:     make([]AttemptBackup, 0, len(attempts)),
	}
	for _, a := range attempts {
		history.Attempts = append(history.Attempts, AttemptBackup{
			TraineeID:   a.TraineeID,
			Part:        string(a.Part),
			Title:       a.Title,
			Score:       a.Score,
			Total:       a.Total,
			TimedOut:    a.TimedOut,
			ElapsedMs:   a.ElapsedMs,
			CompletedAt: a.CompletedAt,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(history); err != nil {
		return 0, fmt.Errorf("failed to encode history: %w", err)
	}

	log.Printf("History exported: %d attempts", len(history.Attempts))
	return len(history.Attempts), nil
}

// Import reads an export and inserts its attempts in one transaction.
// With replace set, existing attempts are deleted first.
func (s *HistoryService) Import(r io.Reader, replace bool) (int, error) {
	var history HistoryData
	if err := json.NewDecoder(r).Decode(&history); err != nil {
		return 0, fmt.Errorf("failed to decode history: %w", err)
	}
	if history.Version != historyFormatVersion {
		return 0, fmt.Errorf("unsupported history version %q", history.Version)
	}

	log.Printf("History version: %s, exported at: %s", history.Version, history.ExportedAt)

	for i, a := range history.Attempts {
		if _, ok := models.ParsePart(a.Part); !ok {
			return 0, fmt.Errorf("attempt %d has unknown part %q", i, a.Part)
		}
		if a.TraineeID == "" {
			return 0, fmt.Errorf("attempt %d has no trainee", i)
		}
	}

	err := s.db.WithTx(func(tx *database.Tx) error {
		repo := repository.NewAttemptRepository(tx)
		if replace {
			deleted, err := repo.DeleteAll()
			if err != nil {
				return fmt.Errorf("failed to clear attempts: %w", err)
			}
			log.Printf("Cleared %d existing attempts", deleted)
		}

		for i, a := range history.Attempts {
			attempt := &models.Attempt{
				TraineeID:   a.TraineeID,
				Part:        models.Part(a.Part),
				Title:       a.Title,
				Score:       a.Score,
				Total:       a.Total,
				TimedOut:    a.TimedOut,
				ElapsedMs:   a.ElapsedMs,
				CompletedAt: a.CompletedAt,
			}
			if err := repo.Create(attempt); err != nil {
				return fmt.Errorf("failed to import attempt %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Printf("History import completed: %d attempts", len(history.Attempts))
	return len(history.Attempts), nil
}
