package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/RobertBecaria/ZION.2.0-sub002/internal/dto"
	"github.com/RobertBecaria/ZION.2.0-sub002/internal/models"
	"github.com/RobertBecaria/ZION.2.0-sub002/internal/repository"
	appErrors "github.com/RobertBecaria/ZION.2.0-sub002/pkg/errors"
	"github.com/RobertBecaria/ZION.2.0-sub002/pkg/jobs"
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error)
}

type bookingLister interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ExportFormat
	ExpiresAt time.Time
}

// AgendaExportService manages asynchronous provider agenda exports.
type AgendaExportService struct {
	repo      exportJobStore
	ledger    bookingLister
	queue     jobEnqueuer
	exporter  *ExportService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAgendaExportService constructs the service.
func NewAgendaExportService(repo exportJobStore, ledger bookingLister, queue jobEnqueuer, exporter *ExportService, validate *validator.Validate, logger *zap.Logger) *AgendaExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgendaExportService{repo: repo, ledger: ledger, queue: queue, exporter: exporter, validator: validate, logger: logger}
}

// CreateJob validates the request, persists the job, and enqueues it.
func (s *AgendaExportService) CreateJob(ctx context.Context, req dto.ExportRequest, claims *models.JWTClaims) (*dto.ExportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}

	params := models.ExportJobParams{From: req.From, To: req.To, Format: req.Format}
	if req.Status != nil {
		status := models.BookingStatus(*req.Status)
		params.Status = &status
	}

	job := &models.ExportJob{ProviderID: claims.UserID, Params: params, Status: models.ExportStatusQueued}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "agenda_export"}); err != nil {
		status := models.ExportStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		_ = s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{Status: &status, ErrorMessage: &msg, FinishedAt: &now})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}

	return &dto.ExportJobResponse{ID: job.ID, Status: job.Status}, nil
}

// GetStatus exposes job state, enforcing ownership for providers.
func (s *AgendaExportService) GetStatus(ctx context.Context, id string, claims *models.JWTClaims) (*dto.ExportJobResponse, error) {
	job, err := s.loadJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if claims.Role != models.RoleAdmin && job.ProviderID != claims.UserID {
		return nil, appErrors.ErrForbidden
	}
	return &dto.ExportJobResponse{ID: job.ID, Status: job.Status, ResultURL: job.ResultURL, Error: job.ErrorMessage}, nil
}

// Process is the queue handler generating one export.
func (s *AgendaExportService) Process(ctx context.Context, queued jobs.Job) error {
	job, err := s.loadJob(ctx, queued.ID)
	if err != nil {
		s.logger.Sugar().Warnw("export job vanished", "job_id", queued.ID, "error", err)
		return nil
	}
	if job.Status == models.ExportStatusFinished {
		return nil
	}

	processing := models.ExportStatusProcessing
	if err := s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{Status: &processing}); err != nil {
		return err
	}

	bookings, err := s.collectBookings(ctx, job)
	if err == nil {
		var result *ExportResult
		result, err = s.exporter.Generate(job, bookings)
		if err == nil {
			finished := models.ExportStatusFinished
			now := time.Now().UTC()
			return s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
				Status:     &finished,
				FilePath:   &result.RelativePath,
				ResultURL:  &result.URL,
				FinishedAt: &now,
			})
		}
	}

	failed := models.ExportStatusFailed
	msg := err.Error()
	now := time.Now().UTC()
	_ = s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{Status: &failed, ErrorMessage: &msg, FinishedAt: &now})
	return err
}

// ResolveDownload validates the token and opens the stored file.
func (s *AgendaExportService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	jobID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ExportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ExportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverPendingJobs replays queued jobs after a process restart.
func (s *AgendaExportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover queued export jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "agenda_export"}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue export job", "job_id", job.ID, "error", err)
		}
	}
}

func (s *AgendaExportService) loadJob(ctx context.Context, id string) (*models.ExportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	return job, nil
}

func (s *AgendaExportService) collectBookings(ctx context.Context, job *models.ExportJob) ([]models.Booking, error) {
	filter := models.BookingFilter{ProviderID: job.ProviderID, Status: job.Params.Status, PageSize: 100}
	if from, err := time.Parse("2006-01-02", job.Params.From); err == nil {
		filter.From = &from
	}
	if to, err := time.Parse("2006-01-02", job.Params.To); err == nil {
		end := to.AddDate(0, 0, 1)
		filter.To = &end
	}

	var all []models.Booking
	for page := 1; ; page++ {
		filter.Page = page
		bookings, total, err := s.ledger.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, bookings...)
		if len(all) >= total || len(bookings) == 0 {
			return all, nil
		}
	}
}
