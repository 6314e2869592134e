package vapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/cloudrep/voicedesk/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"}, slog.Default())
}

func TestClientCreateAssistant(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/assistant", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"asst_123","name":"Support Bot","firstMessage":"Hello!"}`))
	})

	got, err := client.CreateAssistant(context.Background(), AssistantPayload{Name: "Support Bot"})
	require.NoError(t, err)
	assert.Equal(t, "asst_123", got.ID)
	assert.Equal(t, "Support Bot", got.Name)
}

func TestClientRejectionPreservesStatusAndMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":["name must be a string","voice is invalid"],"error":"Bad Request","statusCode":400}`))
	})

	_, err := client.CreateAssistant(context.Background(), AssistantPayload{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrRemoteRejected))

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Contains(t, appErr.Message, "name must be a string")
	assert.Contains(t, appErr.Message, "voice is invalid")
}

func TestClientServerErrorIsRejection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := client.GetCall(context.Background(), "call_1")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
}

func TestClientTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"}, slog.Default())

	_, err := client.ListCalls(context.Background(), ListCallsParams{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrRemoteUnavailable))
}

func TestClientListCallsQueryParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/call", r.URL.Path)
		assert.Equal(t, "asst_1", r.URL.Query().Get("assistantId"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"call_1","status":"ended"},{"id":"call_2","status":"in-progress"}]`))
	})

	calls, err := client.ListCalls(context.Background(), ListCallsParams{AssistantID: "asst_1", Limit: 50})
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "in-progress", calls[1].Status)
}

func TestClientDeleteAssistantNoBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/assistant/asst_9", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.DeleteAssistant(context.Background(), "asst_9"))
}
