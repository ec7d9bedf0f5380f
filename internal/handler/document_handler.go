package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scholarship-api/internal/middleware"
	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
	"github.com/noah-isme/scholarship-api/pkg/response"
)

type documentService interface {
	MaxFileSize() int64
	Upload(ctx context.Context, filename, contentType string, size int64, r io.Reader) (*models.StoredDocument, error)
	OpenLocal(contentID, token string) (*os.File, error)
}

type verifierService interface {
	Check(ctx context.Context, filename string, r io.Reader) (*models.Verdict, error)
	QueueApplicationCheck(ctx context.Context, caller string, id int64) error
	Verdicts(ctx context.Context, caller string, id int64) ([]models.DocumentVerification, error)
}

// DocumentHandler handles supporting document uploads and authenticity checks.
type DocumentHandler struct {
	documents documentService
	verifier  verifierService
}

// NewDocumentHandler constructs the handler. A nil verifier disables authenticity checks.
func NewDocumentHandler(documents documentService, verifier verifierService) *DocumentHandler {
	return &DocumentHandler{documents: documents, verifier: verifier}
}

// Upload godoc
// @Summary Upload a supporting document
// @Description Returns the content identifier to include in an application's document list
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	header, file, ok := h.formFile(c)
	if !ok {
		return
	}
	defer file.Close()

	doc, err := h.documents.Upload(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// Download godoc
// @Summary Download a locally stored document
// @Description Requires the signed token issued with the document URL
// @Tags Documents
// @Param id path string true "Content ID"
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	file, err := h.documents.OpenLocal(c.Param("id"), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat document"))
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	http.ServeContent(c.Writer, c.Request, c.Param("id"), info.ModTime(), file)
}

// Verify godoc
// @Summary Check the authenticity of a document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /documents/verify [post]
func (h *DocumentHandler) Verify(c *gin.Context) {
	if h.verifier == nil {
		featureDisabled(c, "document verification")
		return
	}
	header, file, ok := h.formFile(c)
	if !ok {
		return
	}
	defer file.Close()

	verdict, err := h.verifier.Check(c.Request.Context(), header.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, verdict)
}

// QueueApplicationCheck godoc
// @Summary Verify every document of an application in the background
// @Tags Documents
// @Produce json
// @Param id path int true "Application ID"
// @Success 202 {object} response.Envelope
// @Router /applications/{id}/verifications [post]
func (h *DocumentHandler) QueueApplicationCheck(c *gin.Context) {
	if h.verifier == nil {
		featureDisabled(c, "document verification")
		return
	}
	id, ok := applicationID(c)
	if !ok {
		return
	}
	if err := h.verifier.QueueApplicationCheck(c.Request.Context(), middleware.Caller(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"applicationId": id, "queued": true})
}

// Verdicts godoc
// @Summary Stored authenticity verdicts of an application
// @Tags Documents
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/verifications [get]
func (h *DocumentHandler) Verdicts(c *gin.Context) {
	if h.verifier == nil {
		featureDisabled(c, "document verification")
		return
	}
	id, ok := applicationID(c)
	if !ok {
		return
	}
	verdicts, err := h.verifier.Verdicts(c.Request.Context(), middleware.Caller(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, verdicts, map[string]interface{}{"count": len(verdicts)})
}

func (h *DocumentHandler) formFile(c *gin.Context) (*multipart.FileHeader, multipart.File, bool) {
	// multipart framing needs headroom above the file limit
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.documents.MaxFileSize()+1<<20)
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return nil, nil, false
	}
	if header.Size > h.documents.MaxFileSize() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file exceeds the maximum allowed size"))
		return nil, nil, false
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read upload"))
		return nil, nil, false
	}
	return header, file, true
}
