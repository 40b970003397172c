package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/RobertBecaria/ZION.2.0-sub002/internal/dto"
	"github.com/RobertBecaria/ZION.2.0-sub002/internal/models"
	appErrors "github.com/RobertBecaria/ZION.2.0-sub002/pkg/errors"
)

// memoryLedger reproduces the repository's transactional semantics in
// memory: the overlap re-check and the insert happen under one lock.
type memoryLedger struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{bookings: make(map[string]*models.Booking)}
}

func (l *memoryLedger) Reserve(ctx context.Context, booking *models.Booking) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	end := booking.BookingStart.Add(time.Duration(booking.DurationMinutes) * time.Minute)
	for _, existing := range l.bookings {
		if existing.ProviderID != booking.ProviderID {
			continue
		}
		if existing.Status != models.BookingPending && existing.Status != models.BookingConfirmed {
			continue
		}
		if existing.Overlaps(booking.BookingStart, end) {
			return appErrors.ErrSlotConflict
		}
	}

	booking.ID = fmt.Sprintf("bk-%d", len(l.bookings)+1)
	booking.Status = models.BookingPending
	booking.StatusChangedAt = booking.CreatedAt
	stored := *booking
	l.bookings[booking.ID] = &stored
	return nil
}

func (l *memoryLedger) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if booking, ok := l.bookings[id]; ok {
		copy := *booking
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (l *memoryLedger) UpdateStatusCAS(ctx context.Context, id string, from, to models.BookingStatus, at time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	booking, ok := l.bookings[id]
	if !ok || booking.Status != from {
		return false, nil
	}
	booking.Status = to
	booking.StatusChangedAt = at
	return true, nil
}

func (l *memoryLedger) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Booking
	for _, b := range l.bookings {
		if filter.ProviderID != "" && b.ProviderID != filter.ProviderID {
			continue
		}
		if filter.ClientID != "" && b.ClientID != filter.ClientID {
			continue
		}
		out = append(out, *b)
	}
	return out, len(out), nil
}

func (l *memoryLedger) ListOverlapping(ctx context.Context, providerID string, from, to time.Time) ([]models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Booking
	for _, b := range l.bookings {
		if b.ProviderID != providerID {
			continue
		}
		if b.Status != models.BookingPending && b.Status != models.BookingConfirmed {
			continue
		}
		if b.Overlaps(from, to) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func TestSchedulingFlow(t *testing.T) {
	listing := &models.ServiceListing{ID: "svc-1", ProviderID: "prov-1", DurationMinutes: 60, AcceptsOnlineBooking: true}
	listings := &listingReaderStub{listings: map[string]*models.ServiceListing{"svc-1": listing}}
	ledger := newMemoryLedger()
	store := newTemplateStoreStub()
	dispatcher := &dispatcherStub{}

	slotSvc := NewSlotService(listings, store, ledger, nil, nil, nil, time.UTC, 30)
	slotSvc.now = func() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) }
	templateSvc := NewTemplateService(store, listings, slotSvc, nil, nil)
	bookingSvc := NewBookingService(ledger, listings, slotSvc, slotSvc, dispatcher, nil, nil, nil)

	ctx := context.Background()
	provider := providerClaims("prov-1")

	// Provider opens Mondays 09:00-12:00.
	_, err := templateSvc.Set(ctx, "svc-1", dto.SetTemplateRequest{Days: []dto.DayWindowPayload{
		{Weekday: 1, OpenMinutes: 540, CloseMinutes: 720},
	}}, provider)
	require.NoError(t, err)

	before, err := slotSvc.AvailableSlots(ctx, "svc-1", monday)
	require.NoError(t, err)
	require.Len(t, before.Slots, 3)
	for _, slot := range before.Slots {
		require.True(t, slot.Available)
	}

	// Client books 10:00.
	tenAM := monday.Add(600 * time.Minute)
	booking, err := bookingSvc.Reserve(ctx, dto.ReserveBookingRequest{
		ServiceID:  "svc-1",
		Start:      tenAM,
		ClientName: "Ana",
	}, clientClaims("client-1"))
	require.NoError(t, err)
	require.Equal(t, models.BookingPending, booking.Status)

	after, err := slotSvc.AvailableSlots(ctx, "svc-1", monday)
	require.NoError(t, err)
	require.True(t, after.Slots[0].Available)
	require.False(t, after.Slots[1].Available)
	require.True(t, after.Slots[2].Available)

	// A second client racing for 10:00 loses.
	_, err = bookingSvc.Reserve(ctx, dto.ReserveBookingRequest{
		ServiceID:  "svc-1",
		Start:      tenAM,
		ClientName: "Luis",
	}, clientClaims("client-2"))
	require.ErrorIs(t, err, appErrors.ErrSlotConflict)

	// Provider confirms and later completes.
	confirmed, err := bookingSvc.Transition(ctx, booking.ID, models.BookingConfirmed, provider)
	require.NoError(t, err)
	require.Equal(t, models.BookingConfirmed, confirmed.Status)

	completed, err := bookingSvc.Transition(ctx, booking.ID, models.BookingCompleted, provider)
	require.NoError(t, err)
	require.Equal(t, models.BookingCompleted, completed.Status)

	// Completed bookings free nothing retroactively but stop blocking the
	// calendar for new reservations.
	released, err := slotSvc.AvailableSlots(ctx, "svc-1", monday)
	require.NoError(t, err)
	require.True(t, released.Slots[1].Available)

	agenda, _, err := bookingSvc.Agenda(ctx, "prov-1", dto.AgendaQuery{})
	require.NoError(t, err)
	require.Len(t, agenda, 1)

	mine, _, err := bookingSvc.ClientBookings(ctx, "client-1", dto.AgendaQuery{})
	require.NoError(t, err)
	require.Len(t, mine, 1)

	require.Equal(t, []models.NotificationType{
		models.NotifyBookingCreated,
		models.NotifyBookingConfirmed,
		models.NotifyBookingCompleted,
	}, eventTypes(dispatcher.events))
}

func eventTypes(events []models.NotificationEvent) []models.NotificationType {
	out := make([]models.NotificationType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestConcurrentReserveSingleWinner(t *testing.T) {
	listing := &models.ServiceListing{ID: "svc-1", ProviderID: "prov-1", DurationMinutes: 60, AcceptsOnlineBooking: true}
	listings := &listingReaderStub{listings: map[string]*models.ServiceListing{"svc-1": listing}}
	ledger := newMemoryLedger()
	store := newTemplateStoreStub()
	require.NoError(t, store.Set(context.Background(), "svc-1", []models.DayWindow{
		{ServiceID: "svc-1", Weekday: 1, OpenMinutes: 540, CloseMinutes: 720},
	}))

	slotSvc := NewSlotService(listings, store, ledger, nil, nil, nil, time.UTC, 30)
	slotSvc.now = func() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) }
	bookingSvc := NewBookingService(ledger, listings, slotSvc, slotSvc, nil, nil, nil, nil)

	const attempts = 16
	start := monday.Add(540 * time.Minute)

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = bookingSvc.Reserve(context.Background(), dto.ReserveBookingRequest{
				ServiceID:  "svc-1",
				Start:      start,
				ClientName: fmt.Sprintf("Client %d", i),
			}, clientClaims(fmt.Sprintf("client-%d", i)))
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case appErrors.FromError(err).Code == appErrors.ErrSlotConflict.Code:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, attempts-1, conflicts)
}
