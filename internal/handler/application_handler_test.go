package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scholarship-api/internal/dto"
	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
	"github.com/noah-isme/scholarship-api/pkg/logger"
)

const callerWallet = "0x1111111111111111111111111111111111111111"

type fakeApplicationSrv struct {
	app        *models.Application
	op         *models.Operation
	err        error
	lastCaller string
	lastID     int64
	export     *dto.ExportFile
	voter      string
}

func (f *fakeApplicationSrv) mutation(caller string, id int64) (*models.Application, *models.Operation, error) {
	f.lastCaller, f.lastID = caller, id
	return f.app, f.op, f.err
}

func (f *fakeApplicationSrv) Submit(_ context.Context, caller string, _ dto.SubmitApplicationRequest) (*models.Application, *models.Operation, error) {
	return f.mutation(caller, 0)
}

func (f *fakeApplicationSrv) Verify(_ context.Context, caller string, id int64) (*models.Application, *models.Operation, error) {
	return f.mutation(caller, id)
}

func (f *fakeApplicationSrv) Approve(_ context.Context, caller string, id int64) (*models.Application, *models.Operation, error) {
	return f.mutation(caller, id)
}

func (f *fakeApplicationSrv) Disburse(_ context.Context, caller string, id int64) (*models.Application, *models.Operation, error) {
	return f.mutation(caller, id)
}

func (f *fakeApplicationSrv) Votes(context.Context, string, int64, models.VoteStage) (*dto.ApplicationVotesResponse, error) {
	return &dto.ApplicationVotesResponse{}, nil
}

func (f *fakeApplicationSrv) HasVoted(_ context.Context, caller string, id int64, stage models.VoteStage, address string) (*dto.VoteStatusResponse, error) {
	f.lastCaller, f.lastID, f.voter = caller, id, address
	if f.err != nil {
		return nil, f.err
	}
	return &dto.VoteStatusResponse{ApplicationID: id, Stage: string(stage), Address: address, Voted: true}, nil
}

func (f *fakeApplicationSrv) Get(_ context.Context, caller string, id int64) (*models.Application, error) {
	f.lastCaller, f.lastID = caller, id
	return f.app, f.err
}

func (f *fakeApplicationSrv) Mine(context.Context, string) ([]models.Application, error) {
	return []models.Application{*f.app}, nil
}

func (f *fakeApplicationSrv) ByStatus(context.Context, string, models.ApplicationStatus) ([]models.Application, error) {
	return nil, nil
}

func (f *fakeApplicationSrv) All(context.Context, string) ([]models.Application, error) {
	return nil, nil
}

func (f *fakeApplicationSrv) Export(context.Context, string, dto.ExportFormat) (*dto.ExportFile, error) {
	return f.export, f.err
}

func (f *fakeApplicationSrv) Dashboard(context.Context, string) (*models.DashboardSummary, error) {
	return &models.DashboardSummary{Total: 3}, nil
}

type resolverStub struct{}

func (resolverStub) Resolve(references string) []models.ResolvedDocument {
	out := make([]models.ResolvedDocument, 0)
	for i, ref := range models.SplitReferences(references) {
		out = append(out, models.ResolvedDocument{Position: i, ContentID: ref, URL: "https://gw/" + ref})
	}
	return out
}

type mutationEnvelope struct {
	Data struct {
		Record    map[string]interface{} `json:"record"`
		Operation map[string]interface{} `json:"operation"`
	} `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func newTestContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(logger.CallerKey, callerWallet)
	return c, rec
}

func TestApplicationHandlerVerifyConfirmed(t *testing.T) {
	srv := &fakeApplicationSrv{
		app: &models.Application{ID: 7, Status: models.StatusSagVerified, SagVerifiedCount: 1},
		op:  &models.Operation{ID: "op-1", Status: models.OperationConfirmed, Result: "dropped"},
	}
	handler := NewApplicationHandler(srv, resolverStub{}, true)

	c, rec := newTestContext(http.MethodPost, "/applications/7/verify", "")
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	handler.Verify(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, callerWallet, srv.lastCaller)
	assert.Equal(t, int64(7), srv.lastID)

	var envelope mutationEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "SAG_VERIFIED", envelope.Data.Record["status"])
	assert.Equal(t, "op-1", envelope.Data.Operation["id"])
	assert.NotContains(t, envelope.Data.Operation, "result")
}

func TestApplicationHandlerPendingAnswers202(t *testing.T) {
	srv := &fakeApplicationSrv{
		op:  &models.Operation{ID: "op-2", Status: models.OperationPending},
		err: appErrors.Clone(appErrors.ErrPending, "operation op-2 is still pending"),
	}
	handler := NewApplicationHandler(srv, resolverStub{}, true)

	c, rec := newTestContext(http.MethodPost, "/applications/7/approve", "")
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	handler.Approve(c)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "op-2", rec.Header().Get("X-Operation-ID"))
	var envelope mutationEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "op-2", envelope.Data.Operation["id"])
	assert.Equal(t, true, envelope.Meta["pending"])
}

func TestApplicationHandlerRejections(t *testing.T) {
	srv := &fakeApplicationSrv{err: appErrors.Clone(appErrors.ErrDuplicateVote, "")}
	handler := NewApplicationHandler(srv, resolverStub{}, true)

	c, rec := newTestContext(http.MethodPost, "/applications/abc/verify", "")
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	handler.Verify(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/applications/7/verify", "")
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	handler.Verify(c)
	assert.Equal(t, appErrors.ErrDuplicateVote.Status, rec.Code)
	var envelope mutationEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, appErrors.ErrDuplicateVote.Code, envelope.Error.Code)
}

func TestApplicationHandlerHasVoted(t *testing.T) {
	srv := &fakeApplicationSrv{}
	handler := NewApplicationHandler(srv, resolverStub{}, true)

	c, rec := newTestContext(http.MethodGet, "/applications/7/votes/SAG/0x3333333333333333333333333333333333333333", "")
	c.Params = gin.Params{{Key: "id", Value: "7"}, {Key: "stage", Value: "SAG"}, {Key: "address", Value: "0x3333333333333333333333333333333333333333"}}
	handler.HasVoted(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0x3333333333333333333333333333333333333333", srv.voter)
	var envelope struct {
		Data dto.VoteStatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Voted)
	assert.Equal(t, int64(7), envelope.Data.ApplicationID)

	c, rec = newTestContext(http.MethodGet, "/applications/7/votes/NOPE/0x33", "")
	c.Params = gin.Params{{Key: "id", Value: "7"}, {Key: "stage", Value: "NOPE"}, {Key: "address", Value: "0x33"}}
	handler.HasVoted(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApplicationHandlerSubmitValidatesJSON(t *testing.T) {
	handler := NewApplicationHandler(&fakeApplicationSrv{}, resolverStub{}, true)
	c, rec := newTestContext(http.MethodPost, "/applications", "{not json")
	handler.Submit(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApplicationHandlerDocuments(t *testing.T) {
	srv := &fakeApplicationSrv{app: &models.Application{ID: 3, DocumentsReference: "cidA,cidB"}}
	handler := NewApplicationHandler(srv, resolverStub{}, true)

	c, rec := newTestContext(http.MethodGet, "/applications/3/documents", "")
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	handler.Documents(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data []models.ResolvedDocument `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
	assert.Equal(t, "https://gw/cidB", envelope.Data[1].URL)
}

func TestApplicationHandlerExport(t *testing.T) {
	srv := &fakeApplicationSrv{export: &dto.ExportFile{Filename: "applications.csv", ContentType: "text/csv", Payload: []byte("id\n1\n")}}

	disabled := NewApplicationHandler(srv, resolverStub{}, false)
	c, rec := newTestContext(http.MethodGet, "/applications/export", "")
	disabled.Export(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	enabled := NewApplicationHandler(srv, resolverStub{}, true)
	c, rec = newTestContext(http.MethodGet, "/applications/export?format=csv", "")
	enabled.Export(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "applications.csv")
	assert.Equal(t, "id\n1\n", rec.Body.String())
}
