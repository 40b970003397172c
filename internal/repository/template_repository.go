package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/RobertBecaria/ZION.2.0-sub002/internal/models"
	appErrors "github.com/RobertBecaria/ZION.2.0-sub002/pkg/errors"
)

// TemplateRepository persists per-listing weekly availability windows.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Get loads the availability template for a listing. Returns
// ErrNotConfigured when the provider never set one.
func (r *TemplateRepository) Get(ctx context.Context, serviceID string) (*models.AvailabilityTemplate, error) {
	const query = `SELECT service_id, weekday, open_minutes, close_minutes, closed, created_at, updated_at FROM availability_windows WHERE service_id = $1 ORDER BY weekday ASC`
	var windows []models.DayWindow
	if err := r.db.SelectContext(ctx, &windows, query, serviceID); err != nil {
		return nil, fmt.Errorf("load availability template: %w", err)
	}
	if len(windows) == 0 {
		return nil, appErrors.ErrNotConfigured
	}

	template := &models.AvailabilityTemplate{ServiceID: serviceID, Days: make(map[int]models.DayWindow, len(windows))}
	for _, w := range windows {
		template.Days[w.Weekday] = w
	}
	return template, nil
}

// Set replaces the listing's weekly windows in one transaction.
// Validation happens in the service layer; the repository only writes.
func (r *TemplateRepository) Set(ctx context.Context, serviceID string, windows []models.DayWindow) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set template: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM availability_windows WHERE service_id = $1`, serviceID); err != nil {
		return fmt.Errorf("clear availability template: %w", err)
	}

	now := time.Now().UTC()
	const insert = `INSERT INTO availability_windows (id, service_id, weekday, open_minutes, close_minutes, closed, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, w := range windows {
		if _, err = tx.ExecContext(ctx, insert, uuid.NewString(), serviceID, w.Weekday, w.OpenMinutes, w.CloseMinutes, w.Closed, now, now); err != nil {
			return fmt.Errorf("insert availability window: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set template: %w", err)
	}
	return nil
}
