package domain

import "time"

// Telephony provider constants. These match the provider names accepted by
// the upstream voice platform.
const (
	PhoneProviderBYO    = "byo-phone-number"
	PhoneProviderTwilio = "twilio"
	PhoneProviderVonage = "vonage"
	PhoneProviderTelnyx = "telnyx"
	PhoneProviderVapi   = "vapi"
)

// Phone number status constants.
const (
	PhoneNumberStatusActive  = "active"
	PhoneNumberStatusPending = "pending"
	PhoneNumberStatusError   = "error"
)

// PhoneNumber represents a telephony number attached to a user, optionally
// linked to an agent that answers inbound calls on it. Number is never empty:
// numbers still being provisioned carry a placeholder display string.
type PhoneNumber struct {
	ID        string    `json:"id"`
	RemoteID  string    `json:"remote_id,omitempty"`
	UserID    string    `json:"user_id"`
	Number    string    `json:"number"`
	Name      string    `json:"name"`
	Country   string    `json:"country,omitempty"`
	AreaCode  string    `json:"area_code,omitempty"`
	Provider  string    `json:"provider"`
	AgentID   string    `json:"agent_id,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidPhoneProviders returns the set of accepted telephony providers.
func ValidPhoneProviders() []string {
	return []string{
		PhoneProviderBYO,
		PhoneProviderTwilio,
		PhoneProviderVonage,
		PhoneProviderTelnyx,
		PhoneProviderVapi,
	}
}

// IsValidPhoneProvider checks whether the given provider string is accepted.
func IsValidPhoneProvider(p string) bool {
	for _, v := range ValidPhoneProviders() {
		if v == p {
			return true
		}
	}
	return false
}
