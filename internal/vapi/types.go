package vapi

import "time"

// VoicePayload is the voice section of an assistant payload.
type VoicePayload struct {
	Provider        string   `json:"provider"`
	VoiceID         string   `json:"voiceId"`
	Model           string   `json:"model,omitempty"`
	Stability       *float64 `json:"stability,omitempty"`
	SimilarityBoost *float64 `json:"similarityBoost,omitempty"`
}

// ModelMessage is a single system/user message in the model configuration.
type ModelMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ModelPayload configures the LLM backing an assistant.
type ModelPayload struct {
	Provider    string         `json:"provider"`
	Model       string         `json:"model"`
	Messages    []ModelMessage `json:"messages,omitempty"`
	Temperature float64        `json:"temperature"`
	MaxTokens   int            `json:"maxTokens"`
}

// TranscriberPayload configures speech-to-text for an assistant.
type TranscriberPayload struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Language string `json:"language,omitempty"`
}

// AssistantPayload is the request body for creating or updating an assistant.
type AssistantPayload struct {
	Name         string              `json:"name,omitempty"`
	FirstMessage string              `json:"firstMessage,omitempty"`
	Model        *ModelPayload       `json:"model,omitempty"`
	Voice        *VoicePayload       `json:"voice,omitempty"`
	Transcriber  *TranscriberPayload `json:"transcriber,omitempty"`
}

// Assistant is the provider's view of an assistant.
type Assistant struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	FirstMessage string              `json:"firstMessage"`
	Model        *ModelPayload       `json:"model,omitempty"`
	Voice        *VoicePayload       `json:"voice,omitempty"`
	Transcriber  *TranscriberPayload `json:"transcriber,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// CredentialPayload creates a telephony credential (currently Twilio only).
type CredentialPayload struct {
	Provider   string `json:"provider"`
	AccountSID string `json:"accountSid,omitempty"`
	AuthToken  string `json:"authToken,omitempty"`
}

// Credential is the provider's view of a stored telephony credential.
type Credential struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
}

// PhoneNumberPayload is the request body for importing or provisioning a
// phone number. Which fields are allowed depends on the provider; the
// managers build the payload per provider before calling the client.
type PhoneNumberPayload struct {
	Provider              string `json:"provider"`
	Name                  string `json:"name,omitempty"`
	Number                string `json:"number,omitempty"`
	CredentialID          string `json:"credentialId,omitempty"`
	AreaCode              string `json:"areaCode,omitempty"`
	NumberDesiredAreaCode string `json:"numberDesiredAreaCode,omitempty"`
	AssistantID           string `json:"assistantId,omitempty"`
}

// PhoneNumber is the provider's view of a phone number.
type PhoneNumber struct {
	ID          string `json:"id"`
	Provider    string `json:"provider"`
	Name        string `json:"name"`
	Number      string `json:"number"`
	Status      string `json:"status"`
	AssistantID string `json:"assistantId,omitempty"`
}

// Customer identifies the far end of a call.
type Customer struct {
	Number string `json:"number,omitempty"`
	Name   string `json:"name,omitempty"`
}

// CallPayload is the request body for initiating an outbound call.
type CallPayload struct {
	AssistantID   string    `json:"assistantId,omitempty"`
	PhoneNumberID string    `json:"phoneNumberId,omitempty"`
	Customer      *Customer `json:"customer,omitempty"`
}

// Call is the provider's snapshot of a call. Timestamps arrive as RFC 3339
// strings and are parsed by the reconciler, which tolerates missing fields.
type Call struct {
	ID            string    `json:"id"`
	AssistantID   string    `json:"assistantId,omitempty"`
	PhoneNumberID string    `json:"phoneNumberId,omitempty"`
	Type          string    `json:"type,omitempty"`
	Status        string    `json:"status,omitempty"`
	EndedReason   string    `json:"endedReason,omitempty"`
	StartedAt     string    `json:"startedAt,omitempty"`
	EndedAt       string    `json:"endedAt,omitempty"`
	Duration      *int      `json:"duration,omitempty"`
	Cost          *float64  `json:"cost,omitempty"`
	RecordingURL  string    `json:"recordingUrl,omitempty"`
	Transcript    string    `json:"transcript,omitempty"`
	Customer      *Customer `json:"customer,omitempty"`
	CreatedAt     string    `json:"createdAt,omitempty"`
}

// ListCallsParams narrows a call listing request.
type ListCallsParams struct {
	AssistantID   string
	PhoneNumberID string
	Limit         int
}
