package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/RobertBecaria/ZION.2.0-sub002/internal/models"
	appErrors "github.com/RobertBecaria/ZION.2.0-sub002/pkg/errors"
)

const bookingColumns = "id, service_id, provider_id, client_id, client_name, client_phone, client_email, booking_start, duration_minutes, status, notes, created_at, status_changed_at"

// BookingRepository is the reservation ledger. It is the sole writer of
// booking rows and enforces the provider no-overlap invariant at the
// point of insertion.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Reserve inserts a PENDING booking after re-checking the no-overlap
// invariant inside one transaction. Concurrent reserves for the same
// provider serialise on a transaction-scoped advisory lock, so the
// overlap check and the insert form a single atomic unit. Returns
// ErrSlotConflict when the requested interval is already held by an
// active booking.
func (r *BookingRepository) Reserve(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.Status = models.BookingPending
	booking.StatusChangedAt = booking.CreatedAt

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reserve: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, booking.ProviderID); err != nil {
		return fmt.Errorf("acquire provider lock: %w", err)
	}

	var overlapping int
	err = tx.GetContext(ctx, &overlapping,
		`SELECT COUNT(*) FROM bookings WHERE provider_id = $1 AND status IN ('PENDING', 'CONFIRMED') AND booking_start < $3 AND booking_start + make_interval(mins => duration_minutes) > $2`,
		booking.ProviderID, booking.BookingStart, booking.End())
	if err != nil {
		return fmt.Errorf("check booking overlap: %w", err)
	}
	if overlapping > 0 {
		err = appErrors.ErrSlotConflict
		return err
	}

	const query = `INSERT INTO bookings (` + bookingColumns + `) VALUES (:id, :service_id, :provider_id, :client_id, :client_name, :client_phone, :client_email, :booking_start, :duration_minutes, :status, :notes, :created_at, :status_changed_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, query, booking); err != nil {
		if isUniqueViolation(err) {
			err = appErrors.ErrSlotConflict
			return err
		}
		return fmt.Errorf("insert booking: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit reserve: %w", err)
	}
	return nil
}

// FindByID loads a booking by id.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// UpdateStatusCAS performs a compare-and-swap on the status column.
// Returns false when the persisted status no longer matches from,
// meaning a concurrent transition won the race.
func (r *BookingRepository) UpdateStatusCAS(ctx context.Context, id string, from, to models.BookingStatus, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = $3, status_changed_at = $4 WHERE id = $1 AND status = $2`,
		id, from, to, at)
	if err != nil {
		return false, fmt.Errorf("update booking status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update booking status rows: %w", err)
	}
	return rows == 1, nil
}

// ListOverlapping returns the provider's active bookings intersecting
// [from, to), ordered by start time.
func (r *BookingRepository) ListOverlapping(ctx context.Context, providerID string, from, to time.Time) ([]models.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE provider_id = $1 AND status IN ('PENDING', 'CONFIRMED') AND booking_start < $3 AND booking_start + make_interval(mins => duration_minutes) > $2 ORDER BY booking_start ASC`
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, providerID, from, to); err != nil {
		return nil, fmt.Errorf("list overlapping bookings: %w", err)
	}
	return bookings, nil
}

// List returns bookings matching the filter with pagination, ordered
// by start time ascending.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	base := "FROM bookings WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ProviderID != "" {
		conditions = append(conditions, fmt.Sprintf("provider_id = $%d", len(args)+1))
		args = append(args, filter.ProviderID)
	}
	if filter.ClientID != "" {
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", len(args)+1))
		args = append(args, filter.ClientID)
	}
	if filter.ServiceID != "" {
		conditions = append(conditions, fmt.Sprintf("service_id = $%d", len(args)+1))
		args = append(args, filter.ServiceID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("booking_start >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("booking_start < $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY booking_start ASC LIMIT %d OFFSET %d", bookingColumns, base, size, offset)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	return bookings, total, nil
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505" || pqErr.Code == "23P01"
	}
	return false
}
