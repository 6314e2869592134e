package domain

import (
	"strings"
	"time"
)

// Call status constants reported by the voice provider.
const (
	CallStatusQueued     = "queued"
	CallStatusRinging    = "ringing"
	CallStatusInProgress = "in-progress"
	CallStatusForwarding = "forwarding"
	CallStatusSpeaking   = "speaking"
	CallStatusEnded      = "ended"
	CallStatusError      = "error"
)

// Call direction constants.
const (
	CallDirectionInbound  = "inbound"
	CallDirectionOutbound = "outbound"
)

// Call type constants. Test calls are placed from the dashboard to try an
// agent out; they carry the same lifecycle as regular calls.
const (
	CallTypeCall = "call"
	CallTypeTest = "test"
)

// EndedReasonManual marks calls terminated from the dashboard rather than by
// the provider or either party hanging up.
const EndedReasonManual = "manually-ended"

// activeStatuses is the set of statuses that count a call as in flight.
var activeStatuses = map[string]struct{}{
	CallStatusQueued:     {},
	CallStatusRinging:    {},
	CallStatusInProgress: {},
	CallStatusForwarding: {},
	CallStatusSpeaking:   {},
}

// missedReasons is the set of ended reasons that count a call as missed.
var missedReasons = map[string]struct{}{
	"no-answer": {},
	"missed":    {},
	"busy":      {},
}

// Call mirrors one provider call. RemoteID is the provider's call id and is
// the join key between local records and provider state; it is empty only for
// records the provider rejected at creation time.
type Call struct {
	ID             string     `json:"id"`
	RemoteID       string     `json:"remote_id,omitempty"`
	UserID         string     `json:"user_id"`
	AgentID        string     `json:"agent_id,omitempty"`
	PhoneNumberID  string     `json:"phone_number_id,omitempty"`
	PhoneNumber    string     `json:"phone_number,omitempty"`
	CustomerNumber string     `json:"customer_number,omitempty"`
	Direction      string     `json:"direction"`
	Type           string     `json:"type"`
	Status         string     `json:"status"`
	Duration       *int       `json:"duration,omitempty"`
	Cost           *float64   `json:"cost,omitempty"`
	RecordingURL   string     `json:"recording_url,omitempty"`
	Transcript     string     `json:"transcript,omitempty"`
	EndedReason    string     `json:"ended_reason,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsActive reports whether the call is currently in flight.
func (c *Call) IsActive() bool {
	_, ok := activeStatuses[c.Status]
	return ok
}

// IsMissed reports whether the call counts as missed: either the provider
// gave a missed-class ended reason, or the call ended with a known duration
// of zero. A nil duration means unknown, not missed.
func (c *Call) IsMissed() bool {
	if _, ok := missedReasons[c.EndedReason]; ok {
		return true
	}
	return c.Status == CallStatusEnded && c.Duration != nil && *c.Duration == 0
}

// HasRecording reports whether the call carries a non-blank recording URL.
func (c *Call) HasRecording() bool {
	return strings.TrimSpace(c.RecordingURL) != ""
}

// IsTerminal reports whether the call has reached a final state.
func (c *Call) IsTerminal() bool {
	return c.Status == CallStatusEnded || c.Status == CallStatusError
}

// DurationSeconds returns the call duration, or 0 when unknown.
func (c *Call) DurationSeconds() int {
	if c.Duration == nil {
		return 0
	}
	return *c.Duration
}
