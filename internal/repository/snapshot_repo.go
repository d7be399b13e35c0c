package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"fcetrainer/internal/database"
	"fcetrainer/internal/models"
)

var snapshotColumns = []string{"trainee_id", "active_part", "data_json", "updated_at"}

// SnapshotRepository keeps each trainee's exercise snapshot in the
// exercise_snapshots table, one row per trainee
type SnapshotRepository struct {
	db database.DBTX
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db database.DBTX) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save overwrites the trainee's snapshot slot
func (r *SnapshotRepository) Save(traineeID string, snapshot models.Snapshot) error {
	dataJSON, err := json.Marshal(snapshot.Data)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	query := r.db.GetDialect().UpsertQuery("exercise_snapshots", "trainee_id", snapshotColumns)
	_, err = r.db.Exec(query, traineeID, string(snapshot.ActivePart), string(dataJSON), time.Now().UTC())
	return err
}

// Load returns the trainee's snapshot when it is tagged with part, or nil
func (r *SnapshotRepository) Load(traineeID string, part models.Part) (*models.Snapshot, error) {
	query := `SELECT active_part, data_json FROM exercise_snapshots WHERE trainee_id = ?`

	var activePart, dataJSON string
	err := r.db.QueryRow(query, traineeID).Scan(&activePart, &dataJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if models.Part(activePart) != part {
		return nil, nil
	}

	snapshot := &models.Snapshot{ActivePart: part}
	if err := json.Unmarshal([]byte(dataJSON), &snapshot.Data); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snapshot, nil
}

// Delete clears the trainee's snapshot if it is tagged with part
func (r *SnapshotRepository) Delete(traineeID string, part models.Part) error {
	query := `DELETE FROM exercise_snapshots WHERE trainee_id = ? AND active_part = ?`
	_, err := r.db.Exec(query, traineeID, string(part))
	return err
}
