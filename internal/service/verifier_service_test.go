package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
	"github.com/noah-isme/scholarship-api/pkg/jobs"
)

type verificationRecorder struct {
	mu      sync.Mutex
	records []models.DocumentVerification
}

func (v *verificationRecorder) Create(ctx context.Context, record *models.DocumentVerification) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.records = append(v.records, *record)
	return nil
}

func (v *verificationRecorder) ListByApplication(ctx context.Context, applicationID int64) ([]models.DocumentVerification, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.DocumentVerification, 0)
	for _, r := range v.records {
		if r.ApplicationID == applicationID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fetcherStub map[string]string

func (f fetcherStub) Fetch(ctx context.Context, contentID string) (io.ReadCloser, error) {
	body, ok := f[contentID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

const verdictJSON = `{"authenticity_score":0.92,"confidence_score":0.8,"tampering_detected":false,"extracted_fields":{"name":"Asha"},"recommendations":["looks fine"]}`

func newVerifierFixture(t *testing.T, endpoint string, retries int) (*VerifierService, *[]time.Duration) {
	t.Helper()
	gate := NewGate(staticCapabilities{sagA: capabilityOf(sagA, models.RoleSagBureau)}, nil)
	svc := NewVerifierService(&verificationRecorder{}, fetcherStub{}, newMemoryApplications(0), gate, nil, nil, VerifierServiceConfig{
		Endpoint:   endpoint,
		Retries:    retries,
		RetryDelay: 10 * time.Millisecond,
	})
	delays := &[]time.Duration{}
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return svc, delays
}

func TestVerifierCheckParsesVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "marksheet.pdf", header.Filename)
		_, _ = w.Write([]byte(verdictJSON))
	}))
	defer server.Close()

	svc, delays := newVerifierFixture(t, server.URL, 3)
	verdict, err := svc.Check(context.Background(), "marksheet.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.InDelta(t, 0.92, verdict.AuthenticityScore, 0.0001)
	assert.False(t, verdict.TamperingDetected)
	assert.Equal(t, "Asha", verdict.ExtractedFields["name"])
	assert.Equal(t, []string{"looks fine"}, verdict.Recommendations)
	assert.Empty(t, *delays)
}

func TestVerifierCheckRetriesThenGivesUp(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc, delays := newVerifierFixture(t, server.URL, 3)
	_, err := svc.Check(context.Background(), "a.pdf", strings.NewReader("data"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUpstreamDown.Code, errorCode(err))
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, *delays)
}

func TestVerifierCheckRecoversAfterTransientFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(verdictJSON))
	}))
	defer server.Close()

	svc, delays := newVerifierFixture(t, server.URL, 3)
	_, err := svc.Check(context.Background(), "a.pdf", strings.NewReader("data"))
	require.NoError(t, err)
	assert.Len(t, *delays, 1)
}

func TestVerifierCheckClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "unsupported file", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	svc, _ := newVerifierFixture(t, server.URL, 3)
	_, err := svc.Check(context.Background(), "a.pdf", strings.NewReader("data"))
	assert.Equal(t, appErrors.ErrUpstreamFailed.Code, errorCode(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestVerifierCheckRejectsEmptyDocument(t *testing.T) {
	svc, _ := newVerifierFixture(t, "http://unused", 1)
	_, err := svc.Check(context.Background(), "a.pdf", strings.NewReader(""))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestVerifierApplicationJobStoresVerdicts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(verdictJSON))
	}))
	defer server.Close()

	apps := newMemoryApplications(0)
	require.NoError(t, apps.Create(context.Background(), &models.Application{StudentAddress: studentX, DocumentsReference: "doc-a,doc-missing"}))

	store := &verificationRecorder{}
	gate := NewGate(staticCapabilities{
		sagA:     capabilityOf(sagA, models.RoleSagBureau),
		studentX: capabilityOf(studentX, models.RoleStudent),
	}, nil)
	svc := NewVerifierService(store, fetcherStub{"doc-a": "%PDF"}, apps, gate, nil, nil, VerifierServiceConfig{Endpoint: server.URL, Retries: 1})

	assert.ErrorIs(t, svc.QueueApplicationCheck(context.Background(), studentX, 1), appErrors.ErrRoleRequired)
	assert.ErrorIs(t, svc.QueueApplicationCheck(context.Background(), sagA, 99), appErrors.ErrNotFound)

	require.NoError(t, svc.handleJob(context.Background(), jobs.Job{ID: "1", Type: verifyJobType, Payload: int64(1)}))

	verdicts, err := svc.Verdicts(context.Background(), sagA, 1)
	require.NoError(t, err)
	require.Len(t, verdicts, 2)
	assert.Equal(t, models.VerificationCompleted, verdicts[0].Status)
	assert.JSONEq(t, `{"name":"Asha"}`, string(verdicts[0].ExtractedFields))
	assert.Equal(t, models.VerificationFailed, verdicts[1].Status)
	require.NotNil(t, verdicts[1].ErrorMessage)
	assert.Equal(t, "document not found", *verdicts[1].ErrorMessage)
}

func TestVerifierQueueApplicationCheckGivesUpWhenQueueFull(t *testing.T) {
	apps := newMemoryApplications(0)
	require.NoError(t, apps.Create(context.Background(), &models.Application{StudentAddress: studentX, DocumentsReference: "doc-a"}))
	gate := NewGate(staticCapabilities{sagA: capabilityOf(sagA, models.RoleSagBureau)}, nil)
	svc := NewVerifierService(&verificationRecorder{}, fetcherStub{}, apps, gate, nil, nil, VerifierServiceConfig{
		Endpoint:     "http://unused",
		EnqueueLimit: 30 * time.Millisecond,
	})

	release := make(chan struct{})
	picked := make(chan struct{}, 1)
	svc.queue = jobs.NewQueue("verify-test", func(ctx context.Context, job jobs.Job) error {
		picked <- struct{}{}
		<-release
		return nil
	}, jobs.QueueConfig{Workers: 1, BufferSize: 1, DisableRetries: true})
	svc.Start(context.Background())
	defer svc.Stop()
	defer close(release)

	require.NoError(t, svc.QueueApplicationCheck(context.Background(), sagA, 1))
	<-picked
	require.NoError(t, svc.QueueApplicationCheck(context.Background(), sagA, 1))

	start := time.Now()
	err := svc.QueueApplicationCheck(context.Background(), sagA, 1)
	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, appErrors.ErrUpstreamDown)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.QueueApplicationCheck(ctx, sagA, 1), appErrors.ErrCancelled)
}
