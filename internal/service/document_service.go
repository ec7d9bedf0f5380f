package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
	"github.com/noah-isme/scholarship-api/pkg/pinning"
	"github.com/noah-isme/scholarship-api/pkg/storage"
)

var (
	cidV0Pattern = regexp.MustCompile(`^Qm[1-9A-HJ-NP-Za-km-z]{44}$`)
	cidV1Pattern = regexp.MustCompile(`^b[a-z2-7]{58,}$`)
)

const (
	backendPinning = "pinning"
	backendLocal   = "local"
)

type documentPinner interface {
	Pin(ctx context.Context, filename string, r io.Reader) (string, int64, error)
}

type contentStore interface {
	Put(r io.Reader) (string, int64, error)
	Open(id string) (*os.File, error)
}

type contentURLSigner interface {
	Generate(contentID string) (string, time.Time, error)
	Verify(contentID, token string) (time.Time, error)
}

// DocumentServiceConfig controls uploads and URL building.
type DocumentServiceConfig struct {
	GatewayURL   string
	APIPrefix    string
	MaxFileSize  int64
	AllowedMIMEs []string
	FetchTimeout time.Duration
}

// DocumentService stores supporting documents and resolves reference lists into fetch URLs.
type DocumentService struct {
	pinner  documentPinner
	local   contentStore
	signer  contentURLSigner
	client  *http.Client
	metrics *MetricsService
	logger  *zap.Logger
	cfg     DocumentServiceConfig
	allowed map[string]struct{}
}

// NewDocumentService constructs a DocumentService. A nil pinner selects the local content store.
func NewDocumentService(pinner documentPinner, local contentStore, signer contentURLSigner, metrics *MetricsService, logger *zap.Logger, cfg DocumentServiceConfig) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.GatewayURL == "" {
		cfg.GatewayURL = "https://gateway.pinata.cloud/ipfs"
	}
	cfg.GatewayURL = strings.TrimRight(cfg.GatewayURL, "/")
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 << 20
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, m := range cfg.AllowedMIMEs {
		allowed[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	return &DocumentService{
		pinner:  pinner,
		local:   local,
		signer:  signer,
		client:  &http.Client{Timeout: cfg.FetchTimeout},
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		allowed: allowed,
	}
}

// MaxFileSize returns the upload limit in bytes.
func (s *DocumentService) MaxFileSize() int64 {
	return s.cfg.MaxFileSize
}

// Upload stores one document and returns its content identifier.
func (s *DocumentService) Upload(ctx context.Context, filename, contentType string, size int64, r io.Reader) (*models.StoredDocument, error) {
	if size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "document is empty")
	}
	if size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("document exceeds %d bytes", s.cfg.MaxFileSize))
	}
	mediaType, err := s.checkMIME(contentType)
	if err != nil {
		return nil, err
	}
	limited := io.LimitReader(r, s.cfg.MaxFileSize)

	doc := &models.StoredDocument{ContentType: mediaType}
	if s.pinner != nil {
		cid, pinned, err := s.pinner.Pin(ctx, filename, limited)
		s.metrics.ObserveUpstream(backendPinning, err)
		if err != nil {
			return nil, upstreamError(err, "document store")
		}
		doc.ContentID, doc.Size, doc.Backend = cid, pinned, backendPinning
		if doc.Size == 0 {
			doc.Size = size
		}
	} else {
		id, written, err := s.local.Put(limited)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document")
		}
		doc.ContentID, doc.Size, doc.Backend = id, written, backendLocal
	}

	if doc.URL, err = s.URL(doc.ContentID); err != nil {
		return nil, err
	}
	return doc, nil
}

// URL builds the fetch URL of a content identifier.
func (s *DocumentService) URL(contentID string) (string, error) {
	switch {
	case storage.IsLocalID(contentID):
		if s.signer == nil {
			return "", appErrors.Clone(appErrors.ErrFeatureDisabled, "local documents are not served")
		}
		token, _, err := s.signer.Generate(contentID)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign document url")
		}
		return fmt.Sprintf("%s/documents/%s?token=%s", strings.TrimRight(s.cfg.APIPrefix, "/"), contentID, url.QueryEscape(token)), nil
	case IsContentIdentifier(contentID):
		return s.cfg.GatewayURL + "/" + contentID, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid content identifier %q", contentID))
	}
}

// Resolve splits a comma-joined reference list and resolves each entry independently.
func (s *DocumentService) Resolve(references string) []models.ResolvedDocument {
	refs := models.SplitReferences(references)
	resolved := make([]models.ResolvedDocument, 0, len(refs))
	for i, ref := range refs {
		doc := models.ResolvedDocument{Position: i + 1, ContentID: ref}
		link, err := s.URL(ref)
		if err != nil {
			doc.Error = appErrors.FromError(err).Message
		} else {
			doc.URL = link
		}
		resolved = append(resolved, doc)
	}
	return resolved
}

// OpenLocal opens a locally stored document after checking its signed token.
func (s *DocumentService) OpenLocal(contentID, token string) (*os.File, error) {
	if s.signer == nil || !storage.IsLocalID(contentID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	if _, err := s.signer.Verify(contentID, token); err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "document link is invalid or expired")
	}
	file, err := s.local.Open(contentID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	return file, nil
}

// Fetch opens the bytes of a stored document, reading pinned content through the gateway.
func (s *DocumentService) Fetch(ctx context.Context, contentID string) (io.ReadCloser, error) {
	if storage.IsLocalID(contentID) {
		file, err := s.local.Open(contentID)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return file, nil
	}
	if !IsContentIdentifier(contentID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid content identifier %q", contentID))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.GatewayURL+"/"+contentID, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build gateway request")
	}
	resp, err := s.client.Do(req)
	if err == nil && resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		err = &pinning.StatusError{Code: resp.StatusCode, Body: resp.Status}
	}
	s.metrics.ObserveUpstream("gateway", err)
	if err != nil {
		return nil, upstreamError(err, "document gateway")
	}
	return resp.Body, nil
}

func (s *DocumentService) checkMIME(contentType string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "missing or invalid content type")
	}
	mediaType = strings.ToLower(mediaType)
	if len(s.allowed) == 0 {
		return mediaType, nil
	}
	if _, ok := s.allowed[mediaType]; !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("content type %s is not allowed", mediaType))
	}
	return mediaType, nil
}

// IsContentIdentifier reports whether id looks like an IPFS CIDv0 or base32 CIDv1.
func IsContentIdentifier(id string) bool {
	return cidV0Pattern.MatchString(id) || cidV1Pattern.MatchString(id)
}

// upstreamError maps a collaborator failure: 4xx answers are the upstream rejecting us, anything else means it is unreachable.
func upstreamError(err error, name string) error {
	var statusErr *pinning.StatusError
	if errors.As(err, &statusErr) && !statusErr.Temporary() {
		return appErrors.Wrap(err, appErrors.ErrUpstreamFailed.Code, appErrors.ErrUpstreamFailed.Status, name+" rejected the request")
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &appErrors.Error{
		Code:    appErrors.ErrUpstreamDown.Code,
		Status:  appErrors.ErrUpstreamDown.Status,
		Message: name + " is unavailable",
		Hint:    appErrors.ErrUpstreamDown.Hint,
		Err:     err,
	}
}
