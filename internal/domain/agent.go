package domain

import "time"

// Agent status constants. An agent is "creating" until the provider confirms
// it, "active" once provisioned, and "error" when provisioning failed and the
// local record is kept for retry or inspection.
const (
	AgentStatusCreating = "creating"
	AgentStatusActive   = "active"
	AgentStatusError    = "error"
)

// Agent represents a configured voice assistant. RemoteID is the provider's
// identifier; it is empty while provisioning has not succeeded.
type Agent struct {
	ID            string    `json:"id"`
	RemoteID      string    `json:"remote_id,omitempty"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	Industry      string    `json:"industry,omitempty"`
	Role          string    `json:"role,omitempty"`
	Description   string    `json:"description,omitempty"`
	SystemPrompt  string    `json:"system_prompt,omitempty"`
	FirstMessage  string    `json:"first_message,omitempty"`
	Voice         string    `json:"voice,omitempty"`
	VoiceProvider string    `json:"voice_provider,omitempty"`
	VoiceGender   string    `json:"voice_gender,omitempty"`
	Model         string    `json:"model,omitempty"`
	ModelProvider string    `json:"model_provider,omitempty"`
	Language      string    `json:"language,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsProvisioned reports whether the agent exists on the provider side.
func (a *Agent) IsProvisioned() bool {
	return a.RemoteID != ""
}
