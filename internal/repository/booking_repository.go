package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/vehicle-access-control/internal/availability"
	"github.com/iliyamo/vehicle-access-control/internal/lock"
	"github.com/iliyamo/vehicle-access-control/internal/model"
)

// BookingRepo provides operations on the bookings table.  Creation and
// reschedule run the availability check and the insert inside one
// transaction, under a per-(resource, date) lock, so two concurrent
// requests for the same slot can never both pass the check.  All
// timestamp fields are assumed to be stored in UTC.
type BookingRepo struct {
	db    *sql.DB
	locks lock.Locker
}

// NewBookingRepo returns a BookingRepo bound to the given database and
// lock manager.
func NewBookingRepo(db *sql.DB, locks lock.Locker) *BookingRepo {
	return &BookingRepo{db: db, locks: locks}
}

// slotKey is the lock key for all bookings of one resource on one date.
func slotKey(resourceName, date string) string {
	return resourceName + "|" + date
}

// Create books the slot described by b and populates its generated ID and
// CreatedAt.  It returns ErrResourceNotFound for unknown resources and
// ErrSlotTaken when the interval overlaps an existing booking.  The check
// and the insert are atomic: the (resource, date) lock serializes
// concurrent requests and the resource row is additionally locked FOR
// UPDATE inside the transaction, so competing instances that bypass the
// shared lock still serialize on the database.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	release, err := r.locks.Acquire(ctx, slotKey(b.ResourceName, b.BookedDate))
	if err != nil {
		return err
	}
	defer release()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := r.insertIfAvailableTx(ctx, tx, b); err != nil {
		return err
	}
	return tx.Commit()
}

// insertIfAvailableTx performs the locked check-then-insert within an open
// transaction.  Callers own commit and rollback.
func (r *BookingRepo) insertIfAvailableTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	// Lock the resource row for the duration of the transaction.
	var resourceID uint64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM resources WHERE name = ? FOR UPDATE`,
		b.ResourceName).Scan(&resourceID)
	if err == sql.ErrNoRows {
		return ErrResourceNotFound
	}
	if err != nil {
		return err
	}

	starts, ends, err := bookedIntervalsTx(ctx, tx, b.ResourceName, b.BookedDate)
	if err != nil {
		return err
	}
	free, err := availability.IsAvailable(starts, ends, b.StartTime, b.EndTime)
	if err != nil {
		return err
	}
	if !free {
		return ErrSlotTaken
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (booked_by, resource_name, booked_date, start_time, end_time)
		 VALUES (?, ?, ?, ?, ?)`,
		b.BookedBy, b.ResourceName, b.BookedDate, b.StartTime, b.EndTime)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	// Query back the row to populate the database-assigned timestamp.
	return tx.QueryRowContext(ctx,
		`SELECT created_at FROM bookings WHERE id = ?`, b.ID).Scan(&b.CreatedAt)
}

// bookedIntervalsTx returns the parallel start/end slices of all bookings
// for one resource on one date, read within the transaction.
func bookedIntervalsTx(ctx context.Context, tx *sql.Tx, resourceName, date string) ([]string, []string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT start_time, end_time FROM bookings WHERE resource_name = ? AND booked_date = ?`,
		resourceName, date)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var starts, ends []string
	for rows.Next() {
		var s, e string
		if err := rows.Scan(&s, &e); err != nil {
			return nil, nil, err
		}
		starts = append(starts, s)
		ends = append(ends, e)
	}
	return starts, ends, rows.Err()
}

// ListForResourceDate returns all bookings for one resource on one date,
// ordered by start time.  An unknown resource yields an empty list, not an
// error; the caller decides whether that distinction matters.
func (r *BookingRepo) ListForResourceDate(ctx context.Context, resourceName, date string) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, booked_by, resource_name, booked_date, start_time, end_time, created_at
		 FROM bookings WHERE resource_name = ? AND booked_date = ? ORDER BY start_time`,
		resourceName, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ListByUser returns all bookings created by one user, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, bookedBy string) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, booked_by, resource_name, booked_date, start_time, end_time, created_at
		 FROM bookings WHERE booked_by = ? ORDER BY booked_date DESC, start_time DESC`,
		bookedBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

func scanBookings(rows *sql.Rows) ([]model.Booking, error) {
	out := []model.Booking{}
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.BookedBy, &b.ResourceName, &b.BookedDate,
			&b.StartTime, &b.EndTime, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetByID fetches one booking.  It returns ErrBookingNotFound when the ID
// matches nothing.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	var b model.Booking
	err := r.db.QueryRowContext(ctx,
		`SELECT id, booked_by, resource_name, booked_date, start_time, end_time, created_at
		 FROM bookings WHERE id = ?`, id).
		Scan(&b.ID, &b.BookedBy, &b.ResourceName, &b.BookedDate, &b.StartTime, &b.EndTime, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Delete cancels a booking.  It returns ErrBookingNotFound when the ID
// matches nothing.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// Reschedule moves a booking to a new date and interval with
// delete-and-recreate semantics: inside one transaction the old row is
// removed, the target slot is checked and a fresh row is inserted.  The
// lock covers the target (resource, date); removing the old row cannot
// introduce an overlap, so the old slot needs no lock.  On success the
// recreated booking is returned.
func (r *BookingRepo) Reschedule(ctx context.Context, id uint64, date, start, end string) (*model.Booking, error) {
	old, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	release, err := r.locks.Acquire(ctx, slotKey(old.ResourceName, date))
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		// Cancelled between the fetch and the delete.
		return nil, ErrBookingNotFound
	}

	fresh := &model.Booking{
		BookedBy:     old.BookedBy,
		ResourceName: old.ResourceName,
		BookedDate:   date,
		StartTime:    start,
		EndTime:      end,
	}
	if err := r.insertIfAvailableTx(ctx, tx, fresh); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return fresh, nil
}
