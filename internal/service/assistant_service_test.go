package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scholarship-api/internal/dto"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
)

func TestAssistantAsk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "how do I apply?", body["message"])
		_, _ = w.Write([]byte(`{"response":"Submit the form with your documents.","audio_url":"https://cdn.example/a.mp3"}`))
	}))
	defer srv.Close()

	svc := NewAssistantService(srv.URL, time.Second, nil, nil, nil)
	reply, err := svc.Ask(context.Background(), dto.AssistantMessageRequest{Message: " how do I apply? "})
	require.NoError(t, err)
	assert.False(t, reply.Degraded)
	assert.Equal(t, "Submit the form with your documents.", reply.Reply)
	assert.Equal(t, "https://cdn.example/a.mp3", reply.AudioURL)
}

func TestAssistantAcceptsReplyField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"reply":"hello"}`))
	}))
	defer srv.Close()

	reply, err := NewAssistantService(srv.URL, time.Second, nil, nil, nil).Ask(context.Background(), dto.AssistantMessageRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello", reply.Reply)
}

func TestAssistantDegradesOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	metrics := NewMetricsService()
	svc := NewAssistantService(srv.URL, time.Second, nil, metrics, nil)
	reply, err := svc.Ask(context.Background(), dto.AssistantMessageRequest{Message: "hi"})
	require.NoError(t, err)
	assert.True(t, reply.Degraded)
	assert.Equal(t, assistantApology, reply.Reply)

	unconfigured := NewAssistantService("", time.Second, nil, nil, nil)
	reply, err = unconfigured.Ask(context.Background(), dto.AssistantMessageRequest{Message: "hi"})
	require.NoError(t, err)
	assert.True(t, reply.Degraded)
}

func TestAssistantRejectsEmptyMessage(t *testing.T) {
	_, err := NewAssistantService("http://unused", time.Second, nil, nil, nil).Ask(context.Background(), dto.AssistantMessageRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
