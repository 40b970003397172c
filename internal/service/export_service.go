package service

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/RobertBecaria/ZION.2.0-sub002/internal/models"
	"github.com/RobertBecaria/ZION.2.0-sub002/pkg/export"
	"github.com/RobertBecaria/ZION.2.0-sub002/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService renders agenda datasets and persists the files.
type ExportService struct {
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{storage: store, csv: csv, pdf: pdf, signer: signer, logger: logger, cfg: cfg}
}

var agendaHeaders = []string{"Date", "Start", "End", "Client", "Phone", "Status", "Notes"}

// Generate renders the provider agenda and stores the file, returning a
// signed download URL.
func (s *ExportService) Generate(job *models.ExportJob, bookings []models.Booking) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset := buildAgendaDataset(bookings)
	title := fmt.Sprintf("Agenda %s to %s", job.Params.From, job.Params.To)

	var payload []byte
	var err error
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("%s/agenda_%s_%s.%s", job.ProviderID, job.Params.From, job.Params.To, job.Params.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/agenda/exports/download?token=%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle for a stored export file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

func buildAgendaDataset(bookings []models.Booking) export.Dataset {
	rows := make([]map[string]string, 0, len(bookings))
	for _, b := range bookings {
		row := map[string]string{
			"Date":   b.BookingStart.Format("2006-01-02"),
			"Start":  b.BookingStart.Format("15:04"),
			"End":    b.End().Format("15:04"),
			"Client": b.ClientName,
			"Status": string(b.Status),
		}
		if b.ClientPhone != nil {
			row["Phone"] = *b.ClientPhone
		}
		if b.Notes != nil {
			row["Notes"] = *b.Notes
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: agendaHeaders, Rows: rows}
}
