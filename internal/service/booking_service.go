package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/RobertBecaria/ZION.2.0-sub002/internal/dto"
	"github.com/RobertBecaria/ZION.2.0-sub002/internal/models"
	appErrors "github.com/RobertBecaria/ZION.2.0-sub002/pkg/errors"
)

type bookingLedger interface {
	Reserve(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	UpdateStatusCAS(ctx context.Context, id string, from, to models.BookingStatus, at time.Time) (bool, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
}

type listingReader interface {
	FindByID(ctx context.Context, id string) (*models.ServiceListing, error)
}

type slotGenerator interface {
	AvailableSlots(ctx context.Context, serviceID string, date time.Time) (*models.SlotsResult, error)
}

type slotCacheInvalidator interface {
	InvalidateProvider(ctx context.Context, providerID string)
}

type notificationDispatcher interface {
	Emit(event models.NotificationEvent)
}

// transitionRule names which actor may trigger a transition and the
// notification emitted on success.
type transitionRule struct {
	client   bool
	provider bool
	notify   models.NotificationType
}

// transitions is the full lifecycle table. Absent pairs are illegal;
// terminal states have no outgoing entries at all.
var transitions = map[models.BookingStatus]map[models.BookingStatus]transitionRule{
	models.BookingPending: {
		models.BookingConfirmed: {provider: true, notify: models.NotifyBookingConfirmed},
		models.BookingCancelled: {client: true, provider: true, notify: models.NotifyBookingCancelled},
	},
	models.BookingConfirmed: {
		models.BookingCancelled: {client: true, provider: true, notify: models.NotifyBookingCancelled},
		models.BookingCompleted: {provider: true, notify: models.NotifyBookingCompleted},
		models.BookingNoShow:    {provider: true, notify: models.NotifyBookingNoShow},
	},
}

// BookingService owns the reserve flow and the lifecycle state machine.
type BookingService struct {
	ledger    bookingLedger
	listings  listingReader
	slots     slotGenerator
	slotCache slotCacheInvalidator
	notifier  notificationDispatcher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger

	now func() time.Time
}

// NewBookingService instantiates BookingService.
func NewBookingService(ledger bookingLedger, listings listingReader, slots slotGenerator, slotCache slotCacheInvalidator, notifier notificationDispatcher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		ledger:    ledger,
		listings:  listings,
		slots:     slots,
		slotCache: slotCache,
		notifier:  notifier,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Reserve books a slot for the authenticated client. The requested
// start must match a window the slot generator currently offers; the
// ledger then re-checks overlap atomically, so a concurrent reserve for
// the same interval yields exactly one success and one conflict.
func (s *BookingService) Reserve(ctx context.Context, req dto.ReserveBookingRequest, claims *models.JWTClaims) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	listing, err := s.listings.FindByID(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "service listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load listing")
	}
	if !listing.AcceptsOnlineBooking {
		return nil, appErrors.ErrBookingDisabled
	}

	offered, err := s.slots.AvailableSlots(ctx, req.ServiceID, req.Start)
	if err != nil {
		return nil, err
	}
	switch offered.Reason {
	case models.SlotsReasonOutOfRange:
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is outside the booking window")
	case models.SlotsReasonClosed:
		return nil, appErrors.Clone(appErrors.ErrValidation, "provider is closed on this date")
	case models.SlotsReasonBookingDisabled:
		return nil, appErrors.ErrBookingDisabled
	}

	var matched *models.Slot
	for i := range offered.Slots {
		if offered.Slots[i].Start.Equal(req.Start) {
			matched = &offered.Slots[i]
			break
		}
	}
	if matched == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start does not match an offered slot")
	}
	if !matched.Available {
		if s.metrics != nil {
			s.metrics.RecordBookingConflict()
		}
		return nil, appErrors.ErrSlotConflict
	}

	booking := &models.Booking{
		ServiceID:       listing.ID,
		ProviderID:      listing.ProviderID,
		ClientID:        claims.UserID,
		ClientName:      req.ClientName,
		ClientPhone:     req.ClientPhone,
		ClientEmail:     req.ClientEmail,
		BookingStart:    req.Start.UTC(),
		DurationMinutes: listing.DurationMinutes,
		Notes:           req.Notes,
		CreatedAt:       s.now().UTC(),
	}

	if err := s.ledger.Reserve(ctx, booking); err != nil {
		if appErrors.FromError(err).Code == appErrors.ErrSlotConflict.Code {
			if s.metrics != nil {
				s.metrics.RecordBookingConflict()
			}
			return nil, appErrors.ErrSlotConflict
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve booking")
	}

	s.afterWrite(ctx, booking, models.NotifyBookingCreated)
	if s.metrics != nil {
		s.metrics.RecordBookingCreated()
	}
	return booking, nil
}

// Transition applies one lifecycle change validated against the table
// above. The write is a compare-and-swap on the persisted status; a
// lost race surfaces as ErrInvalidTransition and the caller may retry
// after re-reading.
func (s *BookingService) Transition(ctx context.Context, bookingID string, target models.BookingStatus, claims *models.JWTClaims) (*models.Booking, error) {
	if !target.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown booking status")
	}

	booking, err := s.ledger.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}

	rule, ok := transitions[booking.Status][target]
	if !ok {
		if booking.Status.IsTerminal() {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "booking is in a terminal state")
		}
		return nil, appErrors.ErrInvalidTransition
	}

	if err := s.authorizeTransition(booking, rule, claims); err != nil {
		return nil, err
	}

	changedAt := s.now().UTC()
	applied, err := s.ledger.UpdateStatusCAS(ctx, booking.ID, booking.Status, target, changedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update booking status")
	}
	if !applied {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "booking status changed concurrently")
	}

	booking.Status = target
	booking.StatusChangedAt = changedAt

	s.afterWrite(ctx, booking, rule.notify)
	if s.metrics != nil {
		s.metrics.RecordTransition(target)
	}
	return booking, nil
}

// Get loads one booking, visible only to its client, its provider, or
// an admin.
func (s *BookingService) Get(ctx context.Context, bookingID string, claims *models.JWTClaims) (*models.Booking, error) {
	booking, err := s.ledger.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if claims.Role != models.RoleAdmin && claims.UserID != booking.ClientID && claims.UserID != booking.ProviderID {
		return nil, appErrors.ErrForbidden
	}
	return booking, nil
}

// Agenda returns the provider's bookings for a date range, ordered by
// start time. Grouping by day is left to the caller.
func (s *BookingService) Agenda(ctx context.Context, providerID string, query dto.AgendaQuery) ([]models.Booking, *models.Pagination, error) {
	filter, err := buildBookingFilter(query)
	if err != nil {
		return nil, nil, err
	}
	filter.ProviderID = providerID
	return s.list(ctx, filter)
}

// ClientBookings returns the authenticated client's bookings.
func (s *BookingService) ClientBookings(ctx context.Context, clientID string, query dto.AgendaQuery) ([]models.Booking, *models.Pagination, error) {
	filter, err := buildBookingFilter(query)
	if err != nil {
		return nil, nil, err
	}
	filter.ClientID = clientID
	return s.list(ctx, filter)
}

func (s *BookingService) list(ctx context.Context, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error) {
	bookings, total, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return bookings, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *BookingService) authorizeTransition(booking *models.Booking, rule transitionRule, claims *models.JWTClaims) error {
	switch claims.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleProvider:
		if !rule.provider {
			return appErrors.ErrForbidden
		}
		if claims.UserID != booking.ProviderID {
			return appErrors.ErrForbidden
		}
	case models.RoleClient:
		if !rule.client {
			return appErrors.ErrForbidden
		}
		if claims.UserID != booking.ClientID {
			return appErrors.ErrForbidden
		}
	default:
		return appErrors.ErrForbidden
	}
	return nil
}

// afterWrite invalidates cached slots and emits the notification event.
// Both are best-effort; neither affects the persisted booking.
func (s *BookingService) afterWrite(ctx context.Context, booking *models.Booking, notify models.NotificationType) {
	if s.slotCache != nil {
		s.slotCache.InvalidateProvider(ctx, booking.ProviderID)
	}
	if s.notifier == nil {
		return
	}
	s.notifier.Emit(models.NotificationEvent{
		Type:       notify,
		BookingID:  booking.ID,
		ServiceID:  booking.ServiceID,
		ProviderID: booking.ProviderID,
		ClientID:   booking.ClientID,
		Contact: models.ClientContact{
			Name:  booking.ClientName,
			Phone: booking.ClientPhone,
			Email: booking.ClientEmail,
		},
		BookingStart: booking.BookingStart,
		OccurredAt:   s.now().UTC(),
	})
}

func buildBookingFilter(query dto.AgendaQuery) (models.BookingFilter, error) {
	filter := models.BookingFilter{Page: query.Page, PageSize: query.Limit}

	if query.From != "" {
		from, err := time.Parse("2006-01-02", query.From)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid from date")
		}
		filter.From = &from
	}
	if query.To != "" {
		to, err := time.Parse("2006-01-02", query.To)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid to date")
		}
		end := to.AddDate(0, 0, 1)
		filter.To = &end
	}
	if query.Status != "" {
		status := models.BookingStatus(query.Status)
		if !status.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
		}
		filter.Status = &status
	}
	return filter, nil
}
