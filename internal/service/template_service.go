package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/RobertBecaria/ZION.2.0-sub002/internal/dto"
	"github.com/RobertBecaria/ZION.2.0-sub002/internal/models"
	appErrors "github.com/RobertBecaria/ZION.2.0-sub002/pkg/errors"
)

type templateStore interface {
	Get(ctx context.Context, serviceID string) (*models.AvailabilityTemplate, error)
	Set(ctx context.Context, serviceID string, windows []models.DayWindow) error
}

// TemplateService manages per-listing weekly availability templates.
type TemplateService struct {
	store     templateStore
	listings  listingReader
	slotCache slotCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTemplateService instantiates TemplateService.
func NewTemplateService(store templateStore, listings listingReader, slotCache slotCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *TemplateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateService{store: store, listings: listings, slotCache: slotCache, validator: validate, logger: logger}
}

// Get returns the stored template for a listing, ordered by weekday.
func (s *TemplateService) Get(ctx context.Context, serviceID string, claims *models.JWTClaims) (*dto.TemplateResponse, error) {
	listing, err := s.loadListing(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(listing, claims); err != nil {
		return nil, err
	}

	template, err := s.store.Get(ctx, serviceID)
	if err != nil {
		if appErrors.FromError(err).Code == appErrors.ErrNotConfigured.Code {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability template")
	}

	resp := &dto.TemplateResponse{ServiceID: serviceID}
	for _, w := range template.Days {
		resp.Days = append(resp.Days, dto.DayWindowPayload{
			Weekday:      w.Weekday,
			OpenMinutes:  w.OpenMinutes,
			CloseMinutes: w.CloseMinutes,
			Closed:       w.Closed,
		})
	}
	sort.Slice(resp.Days, func(i, j int) bool { return resp.Days[i].Weekday < resp.Days[j].Weekday })
	return resp, nil
}

// Set validates and replaces the listing's weekly availability. Open
// and close must be slot-aligned against the listing duration, and
// every enabled day must satisfy open < close. Invalid templates are
// rejected and never persisted.
func (s *TemplateService) Set(ctx context.Context, serviceID string, req dto.SetTemplateRequest, claims *models.JWTClaims) (*dto.TemplateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload")
	}

	listing, err := s.loadListing(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(listing, claims); err != nil {
		return nil, err
	}

	windows := make([]models.DayWindow, 0, len(req.Days))
	seen := make(map[int]bool, len(req.Days))
	for _, day := range req.Days {
		if seen[day.Weekday] {
			return nil, appErrors.Clone(appErrors.ErrInvalidTemplate, fmt.Sprintf("weekday %d appears more than once", day.Weekday))
		}
		seen[day.Weekday] = true

		if !day.Closed {
			if day.OpenMinutes >= day.CloseMinutes {
				return nil, appErrors.Clone(appErrors.ErrInvalidTemplate, fmt.Sprintf("weekday %d: open must be before close", day.Weekday))
			}
			if day.OpenMinutes%listing.DurationMinutes != 0 || day.CloseMinutes%listing.DurationMinutes != 0 {
				return nil, appErrors.Clone(appErrors.ErrInvalidTemplate, fmt.Sprintf("weekday %d: open and close must align to %d-minute slots", day.Weekday, listing.DurationMinutes))
			}
		}

		windows = append(windows, models.DayWindow{
			ServiceID:    serviceID,
			Weekday:      day.Weekday,
			OpenMinutes:  day.OpenMinutes,
			CloseMinutes: day.CloseMinutes,
			Closed:       day.Closed,
		})
	}

	if err := s.store.Set(ctx, serviceID, windows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store availability template")
	}

	if s.slotCache != nil {
		s.slotCache.InvalidateProvider(ctx, listing.ProviderID)
	}

	sort.Slice(req.Days, func(i, j int) bool { return req.Days[i].Weekday < req.Days[j].Weekday })
	return &dto.TemplateResponse{ServiceID: serviceID, Days: req.Days}, nil
}

func (s *TemplateService) loadListing(ctx context.Context, serviceID string) (*models.ServiceListing, error) {
	listing, err := s.listings.FindByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "service listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load listing")
	}
	return listing, nil
}

func (s *TemplateService) authorize(listing *models.ServiceListing, claims *models.JWTClaims) error {
	if claims.Role == models.RoleAdmin {
		return nil
	}
	if claims.Role == models.RoleProvider && claims.UserID == listing.ProviderID {
		return nil
	}
	return appErrors.ErrForbidden
}
