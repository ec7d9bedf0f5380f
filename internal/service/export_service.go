package service

import (
	"fmt"
	"strconv"
	"time"

	"github.com/noah-isme/scholarship-api/internal/dto"
	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
	"github.com/noah-isme/scholarship-api/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

var registerHeaders = []string{"ID", "Student", "Name", "Email", "Income", "Documents", "Status", "SAG Votes", "Admin Votes", "Amount", "Disbursed", "Applied At"}

// ExportService renders the application register as CSV or PDF.
type ExportService struct {
	csv csvRenderer
	pdf pdfRenderer
	now func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(csv csvRenderer, pdf pdfRenderer) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{csv: csv, pdf: pdf, now: time.Now}
}

// ApplicationRegister renders apps in the requested format.
func (s *ExportService) ApplicationRegister(apps []models.Application, format dto.ExportFormat) (*dto.ExportFile, error) {
	dataset := buildRegisterDataset(apps)
	generatedAt := s.now().UTC()
	title := fmt.Sprintf("Scholarship Applications %s", generatedAt.Format("2006-01-02"))
	stamp := generatedAt.Format("20060102_150405")

	var (
		payload     []byte
		contentType string
		err         error
	)
	switch format {
	case dto.ExportFormatCSV, "":
		format = dto.ExportFormatCSV
		contentType = "text/csv"
		payload, err = s.csv.Render(dataset)
	case dto.ExportFormatPDF:
		contentType = "application/pdf"
		payload, err = s.pdf.Render(dataset, title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &dto.ExportFile{
		Filename:    fmt.Sprintf("applications_%s.%s", stamp, format),
		ContentType: contentType,
		Payload:     payload,
		GeneratedAt: generatedAt,
	}, nil
}

func buildRegisterDataset(apps []models.Application) export.Dataset {
	rows := make([]map[string]string, 0, len(apps))
	for _, app := range apps {
		rows = append(rows, map[string]string{
			"ID":          strconv.FormatInt(app.ID, 10),
			"Student":     app.StudentAddress,
			"Name":        app.Name,
			"Email":       app.Email,
			"Income":      app.Income,
			"Documents":   strconv.Itoa(len(app.DocumentReferences())),
			"Status":      app.Status.String(),
			"SAG Votes":   strconv.Itoa(app.SagVerifiedCount),
			"Admin Votes": strconv.Itoa(app.AdminApprovedCount),
			"Amount":      strconv.FormatInt(app.DisbursementAmount, 10),
			"Disbursed":   strconv.FormatBool(app.IsDisbursed),
			"Applied At":  app.AppliedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: registerHeaders, Rows: rows}
}
