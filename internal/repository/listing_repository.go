package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/RobertBecaria/ZION.2.0-sub002/internal/models"
)

const listingColumns = "id, provider_id, title, duration_minutes, booking_advance_days, accepts_online_booking, created_at, updated_at"

// ListingRepository reads service listing metadata. Listings are owned
// by the listing-management service; the scheduling core never writes
// this table.
type ListingRepository struct {
	db *sqlx.DB
}

// NewListingRepository creates a new listing repository.
func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// FindByID loads a listing by id.
func (r *ListingRepository) FindByID(ctx context.Context, id string) (*models.ServiceListing, error) {
	const query = `SELECT ` + listingColumns + ` FROM service_listings WHERE id = $1`
	var listing models.ServiceListing
	if err := r.db.GetContext(ctx, &listing, query, id); err != nil {
		return nil, err
	}
	return &listing, nil
}

// ListByProvider returns the provider's listings ordered by title.
func (r *ListingRepository) ListByProvider(ctx context.Context, providerID string) ([]models.ServiceListing, error) {
	const query = `SELECT ` + listingColumns + ` FROM service_listings WHERE provider_id = $1 ORDER BY title ASC`
	var listings []models.ServiceListing
	if err := r.db.SelectContext(ctx, &listings, query, providerID); err != nil {
		return nil, fmt.Errorf("list provider listings: %w", err)
	}
	return listings, nil
}
