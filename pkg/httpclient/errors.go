package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/cloudrep/voicedesk/pkg/errors"
)

// ProviderErrorResponse mirrors the error body shape returned by the voice
// provider's API. The message field may be a single string or an array of
// validation messages, so it is decoded leniently.
type ProviderErrorResponse struct {
	Message    json.RawMessage `json:"message"`
	Error      string          `json:"error"`
	StatusCode int             `json:"statusCode"`
}

// ParseResponseError reads the body of a non-2xx HTTP response from the voice
// provider and translates it into a RemoteRejected AppError that preserves the
// provider's status code and message.
//
// The caller should only invoke this when resp.StatusCode indicates an error
// (i.e., not 2xx). The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, providerName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return apperrors.RemoteRejected(resp.StatusCode,
			fmt.Sprintf("%s (failed to read body: %v)", providerName, err))
	}

	detail := extractProviderMessage(bodyBytes)
	if detail == "" {
		detail = strings.TrimSpace(string(bodyBytes))
	}
	return apperrors.RemoteRejected(resp.StatusCode, fmt.Sprintf("%s: %s", providerName, detail))
}

// extractProviderMessage pulls a human-readable message out of a structured
// provider error body. Returns "" when the body is not structured.
func extractProviderMessage(body []byte) string {
	var parsed ProviderErrorResponse
	if json.Unmarshal(body, &parsed) != nil || parsed.Message == nil {
		return ""
	}

	var single string
	if json.Unmarshal(parsed.Message, &single) == nil {
		return single
	}

	var many []string
	if json.Unmarshal(parsed.Message, &many) == nil {
		return strings.Join(many, "; ")
	}

	return ""
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
// Client errors indicate the request itself was invalid and retrying or
// compensating is pointless.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
