package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/vehicle-access-control/internal/model"
)

// AuthorizationRepo persists the state machine of vehicle authorizations
// and the plate allow-list.  A record is identified by its (plate number,
// detection timestamp) pair; plates recur across days, the pair does not.
type AuthorizationRepo struct {
	db *sql.DB
}

// NewAuthorizationRepo returns an AuthorizationRepo bound to the given
// database.
func NewAuthorizationRepo(db *sql.DB) *AuthorizationRepo {
	return &AuthorizationRepo{db: db}
}

// Create inserts a fresh state record for a detection and populates its
// generated ID.  Re-detecting the same (plate, timestamp) pair is treated
// as a duplicate delivery and returns ErrConflict via the unique index.
func (r *AuthorizationRepo) Create(ctx context.Context, rec *model.VehicleAuthorization) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO vehicle_authorizations (plate_number, detected_at, gate, state)
		 VALUES (?, ?, ?, ?)`,
		rec.PlateNumber, rec.DetectedAt, rec.Gate, rec.State)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	return nil
}

// Get fetches the state record for one detection.  It returns
// ErrAuthorizationNotFound when the pair is unknown.
func (r *AuthorizationRepo) Get(ctx context.Context, plate, detectedAt string) (*model.VehicleAuthorization, error) {
	var rec model.VehicleAuthorization
	err := r.db.QueryRowContext(ctx,
		`SELECT id, plate_number, detected_at, gate, state, created_at, updated_at
		 FROM vehicle_authorizations WHERE plate_number = ? AND detected_at = ?`,
		plate, detectedAt).
		Scan(&rec.ID, &rec.PlateNumber, &rec.DetectedAt, &rec.Gate, &rec.State,
			&rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrAuthorizationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Transition moves a record from one state to another.  The update is
// guarded by the expected source state, so a lost race against a competing
// consumer shows up as zero affected rows and is classified by re-reading
// the record: a terminal current state yields ErrAlreadyDecided, anything
// else ErrInvalidTransition.
func (r *AuthorizationRepo) Transition(ctx context.Context, plate, detectedAt, from, to string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE vehicle_authorizations SET state = ?
		 WHERE plate_number = ? AND detected_at = ? AND state = ?`,
		to, plate, detectedAt, from)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	rec, err := r.Get(ctx, plate, detectedAt)
	if err != nil {
		return err
	}
	if model.TerminalState(rec.State) {
		return ErrAlreadyDecided
	}
	return ErrInvalidTransition
}

// ListPending returns all records waiting for a human decision, oldest
// first, for the review dashboard.
func (r *AuthorizationRepo) ListPending(ctx context.Context) ([]model.VehicleAuthorization, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, plate_number, detected_at, gate, state, created_at, updated_at
		 FROM vehicle_authorizations WHERE state = ? ORDER BY created_at`,
		model.StateManualReviewPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.VehicleAuthorization{}
	for rows.Next() {
		var rec model.VehicleAuthorization
		if err := rows.Scan(&rec.ID, &rec.PlateNumber, &rec.DetectedAt, &rec.Gate,
			&rec.State, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// IsRegistered reports whether a plate is on the allow-list.
func (r *AuthorizationRepo) IsRegistered(ctx context.Context, plate string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM registered_vehicles WHERE plate_number = ? LIMIT 1`,
		plate).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Register adds a plate to the allow-list and populates the generated ID.
// Duplicate plates return ErrConflict.
func (r *AuthorizationRepo) Register(ctx context.Context, v *model.RegisteredVehicle) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO registered_vehicles (plate_number, owner_email) VALUES (?, ?)`,
		v.PlateNumber, v.OwnerEmail)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	return nil
}
