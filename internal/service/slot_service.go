package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/RobertBecaria/ZION.2.0-sub002/internal/models"
	appErrors "github.com/RobertBecaria/ZION.2.0-sub002/pkg/errors"
)

type slotListingReader interface {
	FindByID(ctx context.Context, id string) (*models.ServiceListing, error)
}

type slotTemplateReader interface {
	Get(ctx context.Context, serviceID string) (*models.AvailabilityTemplate, error)
}

type slotOverlapLister interface {
	ListOverlapping(ctx context.Context, providerID string, from, to time.Time) ([]models.Booking, error)
}

// SlotService generates candidate appointment windows for a listing and
// date, marking which are free against the reservation ledger.
type SlotService struct {
	listings       slotListingReader
	templates      slotTemplateReader
	bookings       slotOverlapLister
	cache          *CacheService
	metrics        *MetricsService
	logger         *zap.Logger
	loc            *time.Location
	defaultAdvance int

	now func() time.Time
}

// NewSlotService constructs a SlotService. loc is the deployment
// timezone used to interpret template times; defaults to UTC.
func NewSlotService(listings slotListingReader, templates slotTemplateReader, bookings slotOverlapLister, cache *CacheService, metrics *MetricsService, logger *zap.Logger, loc *time.Location, defaultAdvance int) *SlotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	if defaultAdvance <= 0 {
		defaultAdvance = 30
	}
	return &SlotService{
		listings:       listings,
		templates:      templates,
		bookings:       bookings,
		cache:          cache,
		metrics:        metrics,
		logger:         logger,
		loc:            loc,
		defaultAdvance: defaultAdvance,
		now:            time.Now,
	}
}

// AvailableSlots returns every candidate window for the date in
// ascending start order. Past or too-distant dates and closed weekdays
// yield an empty list with a reason, not an error.
func (s *SlotService) AvailableSlots(ctx context.Context, serviceID string, date time.Time) (*models.SlotsResult, error) {
	listing, err := s.listings.FindByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "service listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load listing")
	}

	day := s.dayStart(date)
	result := &models.SlotsResult{ServiceID: serviceID, Date: day.Format("2006-01-02")}

	if !listing.AcceptsOnlineBooking {
		result.Reason = models.SlotsReasonBookingDisabled
		return result, nil
	}

	if reason := s.checkRange(day, listing); reason != "" {
		result.Reason = reason
		return result, nil
	}

	cacheKey := slotCacheKey(listing.ProviderID, serviceID, result.Date)
	if s.cache != nil {
		var cached models.SlotsResult
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}

	template, err := s.templates.Get(ctx, serviceID)
	if err != nil {
		if appErrors.FromError(err).Code == appErrors.ErrNotConfigured.Code {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability template")
	}

	window := template.Window(day.Weekday())
	if window.Closed {
		result.Reason = models.SlotsReasonClosed
		return result, nil
	}

	start := s.now()
	offsets := buildWindowOffsets(window.OpenMinutes, window.CloseMinutes, listing.DurationMinutes)
	if len(offsets) == 0 {
		return result, nil
	}

	dayOpen := day.Add(time.Duration(window.OpenMinutes) * time.Minute)
	dayClose := day.Add(time.Duration(window.CloseMinutes) * time.Minute)
	active, err := s.bookings.ListOverlapping(ctx, listing.ProviderID, dayOpen, dayClose)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active bookings")
	}

	duration := time.Duration(listing.DurationMinutes) * time.Minute
	result.Slots = make([]models.Slot, 0, len(offsets))
	for _, offset := range offsets {
		slotStart := day.Add(time.Duration(offset) * time.Minute)
		slot := models.Slot{Start: slotStart, End: slotStart.Add(duration), Available: true}
		for _, booking := range active {
			if booking.Overlaps(slot.Start, slot.End) {
				slot.Available = false
				break
			}
		}
		result.Slots = append(result.Slots, slot)
	}

	if s.metrics != nil {
		s.metrics.ObserveSlotGeneration(time.Since(start))
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, result, 0)
	}
	return result, nil
}

// InvalidateProvider drops cached slot listings for every listing of
// the provider. Called after any write that changes calendar occupancy.
func (s *SlotService) InvalidateProvider(ctx context.Context, providerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, slotCachePattern(providerID)); err != nil {
		s.logger.Warn("slot cache invalidation failed", zap.String("provider_id", providerID), zap.Error(err))
	}
}

// ParseDate interprets a YYYY-MM-DD value in the deployment timezone.
func (s *SlotService) ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", value, s.loc)
}

func (s *SlotService) dayStart(date time.Time) time.Time {
	d := date.In(s.loc)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.loc)
}

// checkRange rejects dates in the past or beyond the listing's advance
// booking horizon.
func (s *SlotService) checkRange(day time.Time, listing *models.ServiceListing) string {
	today := s.dayStart(s.now())
	advance := listing.BookingAdvanceDays
	if advance <= 0 {
		advance = s.defaultAdvance
	}
	horizon := today.AddDate(0, 0, advance)
	if day.Before(today) || day.After(horizon) {
		return models.SlotsReasonOutOfRange
	}
	return ""
}

// buildWindowOffsets partitions [open, close) into consecutive windows
// of durationMinutes, returning each window's start offset in minutes
// since midnight. A trailing remainder shorter than the duration is
// dropped; a non-positive span yields no windows.
func buildWindowOffsets(openMinutes, closeMinutes, durationMinutes int) []int {
	if durationMinutes <= 0 || closeMinutes <= openMinutes {
		return nil
	}
	var offsets []int
	for start := openMinutes; start+durationMinutes <= closeMinutes; start += durationMinutes {
		offsets = append(offsets, start)
	}
	return offsets
}

func slotCacheKey(providerID, serviceID, date string) string {
	return fmt.Sprintf("slots:%s:%s:%s", providerID, serviceID, date)
}

func slotCachePattern(providerID string) string {
	return fmt.Sprintf("slots:%s:*", providerID)
}
