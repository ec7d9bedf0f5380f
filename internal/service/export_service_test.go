package service

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scholarship-api/internal/dto"
	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
)

func registerFixture() []models.Application {
	return []models.Application{
		{ID: 1, StudentAddress: "0xabc", Name: "Asha", Email: "asha@example.com", Income: "120000", DocumentsReference: "QmA,QmB", Status: models.StatusApplied, DisbursementAmount: 50000, AppliedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{ID: 2, StudentAddress: "0xdef", Name: "Ravi", Email: "ravi@example.com", Income: "90000", DocumentsReference: "QmC", Status: models.StatusDisbursed, IsDisbursed: true, SagVerifiedCount: 1, AdminApprovedCount: 2, DisbursementAmount: 50000},
	}
}

func TestExportServiceCSV(t *testing.T) {
	svc := NewExportService(nil, nil)
	file, err := svc.ApplicationRegister(registerFixture(), dto.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))

	lines := strings.Split(strings.TrimSpace(string(file.Payload)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(strings.TrimPrefix(lines[0], "\ufeff"), "ID,Student,Name"))
	assert.Contains(t, lines[1], "APPLIED")
	assert.Contains(t, lines[1], ",2,")
	assert.Contains(t, lines[2], "DISBURSED")
}

func TestExportServicePDF(t *testing.T) {
	svc := NewExportService(nil, nil)
	file, err := svc.ApplicationRegister(registerFixture(), dto.ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Payload, []byte("%PDF")))
}

func TestExportServiceUnsupportedFormat(t *testing.T) {
	svc := NewExportService(nil, nil)
	_, err := svc.ApplicationRegister(nil, dto.ExportFormat("xlsx"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
