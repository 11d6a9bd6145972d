package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/vehicle-access-control/internal/model"
)

// ResourceRepo provides CRUD operations for bookable resources.  Resources
// are addressed by their unique name throughout the booking API; the
// numeric ID is only used for updates and deletes from the admin surface.
type ResourceRepo struct {
	db *sql.DB
}

// NewResourceRepo returns a new ResourceRepo bound to the given database.
func NewResourceRepo(db *sql.DB) *ResourceRepo { return &ResourceRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions that
// span repositories.
func (r *ResourceRepo) DB() *sql.DB { return r.db }

// Create inserts a resource and populates its generated ID.  Duplicate
// names surface as ErrConflict via the unique index on resources.name.
func (r *ResourceRepo) Create(ctx context.Context, res *model.Resource) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO resources (name, type, capacity) VALUES (?, ?, ?)`,
		res.Name, res.Type, res.Capacity)
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
	res.ID = uint64(id)
	return nil
}

// List returns all resources ordered by name.
func (r *ResourceRepo) List(ctx context.Context) ([]model.Resource, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type, capacity, created_at, updated_at FROM resources ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Resource{}
	for rows.Next() {
		var res model.Resource
		if err := rows.Scan(&res.ID, &res.Name, &res.Type, &res.Capacity, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// GetByName fetches a resource by its unique name.  It returns
// ErrResourceNotFound when no such resource exists.
func (r *ResourceRepo) GetByName(ctx context.Context, name string) (*model.Resource, error) {
	var res model.Resource
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, type, capacity, created_at, updated_at FROM resources WHERE name = ?`,
		name).Scan(&res.ID, &res.Name, &res.Type, &res.Capacity, &res.CreatedAt, &res.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrResourceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Update overwrites name, type and capacity of the resource with the given
// ID.  It returns ErrResourceNotFound when the ID matches nothing.
func (r *ResourceRepo) Update(ctx context.Context, id uint64, name, typ string, capacity uint32) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE resources SET name = ?, type = ?, capacity = ? WHERE id = ?`,
		name, typ, capacity, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrResourceNotFound
	}
	return nil
}

// Delete removes a resource.  Resources with existing bookings cannot be
// deleted and return ErrConflict so the admin surface can explain why.
func (r *ResourceRepo) Delete(ctx context.Context, id uint64) error {
	var name string
	err := r.db.QueryRowContext(ctx, `SELECT name FROM resources WHERE id = ?`, id).Scan(&name)
	if err == sql.ErrNoRows {
		return ErrResourceNotFound
	}
	if err != nil {
		return err
	}
	var bookings int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE resource_name = ?`, name).Scan(&bookings); err != nil {
		return err
	}
	if bookings > 0 {
		return ErrConflict
	}
	_, err = r.db.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
	return err
}
