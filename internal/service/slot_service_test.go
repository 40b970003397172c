package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/RobertBecaria/ZION.2.0-sub002/internal/models"
	appErrors "github.com/RobertBecaria/ZION.2.0-sub002/pkg/errors"
)

type listingReaderStub struct {
	listings map[string]*models.ServiceListing
}

func (s *listingReaderStub) FindByID(ctx context.Context, id string) (*models.ServiceListing, error) {
	if listing, ok := s.listings[id]; ok {
		copy := *listing
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

type templateReaderStub struct {
	templates map[string]*models.AvailabilityTemplate
}

func (s *templateReaderStub) Get(ctx context.Context, serviceID string) (*models.AvailabilityTemplate, error) {
	if template, ok := s.templates[serviceID]; ok {
		return template, nil
	}
	return nil, appErrors.ErrNotConfigured
}

type overlapListerStub struct {
	bookings []models.Booking
}

func (s *overlapListerStub) ListOverlapping(ctx context.Context, providerID string, from, to time.Time) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range s.bookings {
		if b.ProviderID == providerID && b.Overlaps(from, to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func mondayTemplate(serviceID string, open, close int) *models.AvailabilityTemplate {
	return &models.AvailabilityTemplate{
		ServiceID: serviceID,
		Days: map[int]models.DayWindow{
			1: {Weekday: 1, OpenMinutes: open, CloseMinutes: close},
		},
	}
}

func newSlotFixture(listing *models.ServiceListing, template *models.AvailabilityTemplate, booked []models.Booking) *SlotService {
	svc := NewSlotService(
		&listingReaderStub{listings: map[string]*models.ServiceListing{listing.ID: listing}},
		&templateReaderStub{templates: map[string]*models.AvailabilityTemplate{listing.ID: template}},
		&overlapListerStub{bookings: booked},
		nil, nil, nil, time.UTC, 30,
	)
	// A Sunday, so the following Monday is always in range.
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) }
	return svc
}

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func TestAvailableSlotsFullDay(t *testing.T) {
	listing := &models.ServiceListing{ID: "svc-1", ProviderID: "prov-1", DurationMinutes: 60, AcceptsOnlineBooking: true}
	svc := newSlotFixture(listing, mondayTemplate("svc-1", 540, 720), nil)

	result, err := svc.AvailableSlots(context.Background(), "svc-1", monday)
	require.NoError(t, err)
	require.Empty(t, result.Reason)
	require.Len(t, result.Slots, 3)

	for i, slot := range result.Slots {
		require.True(t, slot.Available)
		require.Equal(t, monday.Add(time.Duration(540+60*i)*time.Minute), slot.Start)
		require.Equal(t, slot.Start.Add(time.Hour), slot.End)
	}
}

func TestAvailableSlotsDropsPartialTrailingWindow(t *testing.T) {
	// 09:00-10:30 with 60-minute sessions fits exactly one slot.
	listing := &models.ServiceListing{ID: "svc-1", ProviderID: "prov-1", DurationMinutes: 60, AcceptsOnlineBooking: true}
	svc := newSlotFixture(listing, mondayTemplate("svc-1", 540, 630), nil)

	result, err := svc.AvailableSlots(context.Background(), "svc-1", monday)
	require.NoError(t, err)
	require.Len(t, result.Slots, 1)
	require.Equal(t, monday.Add(540*time.Minute), result.Slots[0].Start)
}

func TestAvailableSlotsMarksBookedWindows(t *testing.T) {
	listing := &models.ServiceListing{ID: "svc-1", ProviderID: "prov-1", DurationMinutes: 60, AcceptsOnlineBooking: true}
	booked := []models.Booking{{
		ID:              "bk-1",
		ProviderID:      "prov-1",
		BookingStart:    monday.Add(600 * time.Minute), // 10:00
		DurationMinutes: 60,
		Status:          models.BookingConfirmed,
	}}
	svc := newSlotFixture(listing, mondayTemplate("svc-1", 540, 720), booked)

	result, err := svc.AvailableSlots(context.Background(), "svc-1", monday)
	require.NoError(t, err)
	require.Len(t, result.Slots, 3)
	require.True(t, result.Slots[0].Available)
	require.False(t, result.Slots[1].Available)
	require.True(t, result.Slots[2].Available)
}

func TestAvailableSlotsCrossListingOccupancy(t *testing.T) {
	// A booking on a sibling listing of the same provider blocks the window.
	listing := &models.ServiceListing{ID: "svc-1", ProviderID: "prov-1", DurationMinutes: 60, AcceptsOnlineBooking: true}
	booked := []models.Booking{{
		ID:              "bk-other",
		ServiceID:       "svc-2",
		ProviderID:      "prov-1",
		BookingStart:    monday.Add(555 * time.Minute), // 09:15, partial overlap on both sides
		DurationMinutes: 90,
		Status:          models.BookingPending,
	}}
	svc := newSlotFixture(listing, mondayTemplate("svc-1", 540, 720), booked)

	result, err := svc.AvailableSlots(context.Background(), "svc-1", monday)
	require.NoError(t, err)
	require.False(t, result.Slots[0].Available)
	require.False(t, result.Slots[1].Available)
	require.True(t, result.Slots[2].Available)
}

func TestAvailableSlotsClosedDay(t *testing.T) {
	listing := &models.ServiceListing{ID: "svc-1", ProviderID: "prov-1", DurationMinutes: 60, AcceptsOnlineBooking: true}
	svc := newSlotFixture(listing, mondayTemplate("svc-1", 540, 720), nil)

	// 2026-03-03 is a Tuesday, absent from the template.
	result, err := svc.AvailableSlots(context.Background(), "svc-1", monday.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Empty(t, result.Slots)
	require.Equal(t, models.SlotsReasonClosed, result.Reason)
}

func TestAvailableSlotsOutOfRange(t *testing.T) {
	listing := &models.ServiceListing{ID: "svc-1", ProviderID: "prov-1", DurationMinutes: 60, BookingAdvanceDays: 7, AcceptsOnlineBooking: true}
	svc := newSlotFixture(listing, mondayTemplate("svc-1", 540, 720), nil)

	past, err := svc.AvailableSlots(context.Background(), "svc-1", monday.AddDate(0, 0, -14))
	require.NoError(t, err)
	require.Empty(t, past.Slots)
	require.Equal(t, models.SlotsReasonOutOfRange, past.Reason)

	far, err := svc.AvailableSlots(context.Background(), "svc-1", monday.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.Equal(t, models.SlotsReasonOutOfRange, far.Reason)
}

func TestAvailableSlotsBookingDisabled(t *testing.T) {
	listing := &models.ServiceListing{ID: "svc-1", ProviderID: "prov-1", DurationMinutes: 60}
	svc := newSlotFixture(listing, mondayTemplate("svc-1", 540, 720), nil)

	result, err := svc.AvailableSlots(context.Background(), "svc-1", monday)
	require.NoError(t, err)
	require.Empty(t, result.Slots)
	require.Equal(t, models.SlotsReasonBookingDisabled, result.Reason)
}

func TestAvailableSlotsNotConfigured(t *testing.T) {
	listing := &models.ServiceListing{ID: "svc-1", ProviderID: "prov-1", DurationMinutes: 60, AcceptsOnlineBooking: true}
	svc := NewSlotService(
		&listingReaderStub{listings: map[string]*models.ServiceListing{"svc-1": listing}},
		&templateReaderStub{templates: map[string]*models.AvailabilityTemplate{}},
		&overlapListerStub{},
		nil, nil, nil, time.UTC, 30,
	)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) }

	_, err := svc.AvailableSlots(context.Background(), "svc-1", monday)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotConfigured.Code, appErrors.FromError(err).Code)
}

func TestAvailableSlotsUnknownListing(t *testing.T) {
	svc := newSlotFixture(&models.ServiceListing{ID: "svc-1", ProviderID: "prov-1", DurationMinutes: 60, AcceptsOnlineBooking: true}, mondayTemplate("svc-1", 540, 720), nil)

	_, err := svc.AvailableSlots(context.Background(), "svc-other", monday)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestBuildWindowOffsets(t *testing.T) {
	require.Equal(t, []int{540, 600, 660}, buildWindowOffsets(540, 720, 60))
	require.Equal(t, []int{540}, buildWindowOffsets(540, 630, 60))
	require.Nil(t, buildWindowOffsets(540, 540, 60))
	require.Nil(t, buildWindowOffsets(720, 540, 60))
	require.Nil(t, buildWindowOffsets(540, 720, 0))
}

func TestParseDate(t *testing.T) {
	svc := newSlotFixture(&models.ServiceListing{ID: "svc-1"}, mondayTemplate("svc-1", 540, 720), nil)

	parsed, err := svc.ParseDate("2026-03-02")
	require.NoError(t, err)
	require.Equal(t, monday, parsed)

	_, err = svc.ParseDate("02/03/2026")
	require.Error(t, err)
}
