package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	apperrors "github.com/cloudrep/voicedesk/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeResponse creates an *http.Response with the given status code and body string.
func makeResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestParseResponseError_StringMessage(t *testing.T) {
	resp := makeResponse(http.StatusBadRequest, `{"message":"assistantId must be a UUID","error":"Bad Request","statusCode":400}`)
	err := ParseResponseError(resp, "vapi")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "REMOTE_REJECTED", appErr.Code)
	assert.True(t, errors.Is(err, apperrors.ErrRemoteRejected))
	assert.Contains(t, appErr.Message, "vapi")
	assert.Contains(t, appErr.Message, "assistantId must be a UUID")
}

func TestParseResponseError_ArrayMessage(t *testing.T) {
	resp := makeResponse(http.StatusBadRequest, `{"message":["number must be a valid phone number","credentialId should not be empty"],"error":"Bad Request","statusCode":400}`)
	err := ParseResponseError(resp, "vapi")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Message, "number must be a valid phone number")
	assert.Contains(t, appErr.Message, "credentialId should not be empty")
}

func TestParseResponseError_Unauthorized(t *testing.T) {
	resp := makeResponse(http.StatusUnauthorized, `{"message":"Unauthorized","statusCode":401}`)
	err := ParseResponseError(resp, "vapi")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
	assert.True(t, errors.Is(err, apperrors.ErrRemoteRejected))
}

func TestParseResponseError_ServerError(t *testing.T) {
	resp := makeResponse(http.StatusInternalServerError, `{"message":"Internal server error","statusCode":500}`)
	err := ParseResponseError(resp, "vapi")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Contains(t, appErr.Message, "500")
	assert.Contains(t, appErr.Message, "Internal server error")
}

func TestParseResponseError_UnstructuredBody(t *testing.T) {
	resp := makeResponse(http.StatusBadGateway, "Bad Gateway: upstream connection refused")
	err := ParseResponseError(resp, "vapi")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
	assert.Contains(t, appErr.Message, "Bad Gateway: upstream connection refused")
}

func TestParseResponseError_EmptyBody(t *testing.T) {
	resp := makeResponse(http.StatusInternalServerError, "")
	err := ParseResponseError(resp, "vapi")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "500")
	assert.True(t, errors.Is(err, apperrors.ErrRemoteRejected))
}

func TestParseResponseError_HTMLBody(t *testing.T) {
	resp := makeResponse(http.StatusBadGateway, "<html><body><h1>502 Bad Gateway</h1></body></html>")
	err := ParseResponseError(resp, "vapi")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "502")
}

func TestParseResponseError_NullMessage(t *testing.T) {
	resp := makeResponse(http.StatusBadRequest, `{"message":null,"statusCode":400}`)
	err := ParseResponseError(resp, "vapi")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

// --- IsClientError tests ---

func TestIsClientError_4xx(t *testing.T) {
	clientStatuses := []int{400, 401, 403, 404, 409, 410, 422, 429, 499}
	for _, status := range clientStatuses {
		assert.True(t, IsClientError(status), "status %d should be a client error", status)
	}
}

func TestIsClientError_5xx(t *testing.T) {
	serverStatuses := []int{500, 501, 502, 503, 504}
	for _, status := range serverStatuses {
		assert.False(t, IsClientError(status), "status %d should NOT be a client error", status)
	}
}

func TestIsClientError_2xx(t *testing.T) {
	successStatuses := []int{200, 201, 204, 301, 302}
	for _, status := range successStatuses {
		assert.False(t, IsClientError(status), "status %d should NOT be a client error", status)
	}
}

func TestIsClientError_Boundary(t *testing.T) {
	assert.False(t, IsClientError(399), "399 should not be a client error")
	assert.True(t, IsClientError(400), "400 should be a client error")
	assert.True(t, IsClientError(499), "499 should be a client error")
	assert.False(t, IsClientError(500), "500 should not be a client error")
}
