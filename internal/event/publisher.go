// Package event publishes call lifecycle events to Kafka. Publishing is
// best-effort: a broker outage must never fail the webhook or API request
// that produced the event, so errors are logged and swallowed.
package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/cloudrep/voicedesk/internal/domain"
	"github.com/cloudrep/voicedesk/pkg/kafka"
)

// Event types carried in the envelope's event_type field.
const (
	TypeCallStarted    = "call.started"
	TypeCallEnded      = "call.ended"
	TypeCallSideEffect = "call.side_effect"
)

const source = "voicedesk-api"

// Topics, one per lifecycle stage.
var (
	TopicCallStarted    = kafka.Topic("call", "started")
	TopicCallEnded      = kafka.Topic("call", "ended")
	TopicCallSideEffect = kafka.Topic("call", "side_effect")
)

// Publisher is the narrow interface the services depend on.
type Publisher interface {
	CallStarted(ctx context.Context, call *domain.Call)
	CallEnded(ctx context.Context, call *domain.Call)
	CallSideEffect(ctx context.Context, remoteID, kind string, payload map[string]any)
}

// CallEventData is the data payload for call.started and call.ended events.
type CallEventData struct {
	CallID       string     `json:"call_id"`
	RemoteID     string     `json:"remote_id"`
	UserID       string     `json:"user_id"`
	AgentID      string     `json:"agent_id,omitempty"`
	Status       string     `json:"status"`
	EndedReason  string     `json:"ended_reason,omitempty"`
	Duration     *int       `json:"duration,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	HasRecording bool       `json:"has_recording"`
}

// SideEffectData is the data payload for call.side_effect events, covering
// provider notifications that do not change call state (speech updates,
// function calls).
type SideEffectData struct {
	RemoteID string         `json:"remote_id"`
	Kind     string         `json:"kind"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// KafkaPublisher publishes events through the shared Kafka producer.
type KafkaPublisher struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

// NewKafkaPublisher wraps a Kafka producer.
func NewKafkaPublisher(producer *kafka.Producer, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, logger: logger}
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, eventType, aggregateID, aggregateType string, data any) {
	ev, err := kafka.NewEvent(eventType, aggregateID, aggregateType, source, data)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to build event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := p.producer.Publish(ctx, topic, ev); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("topic", topic),
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
	}
}

func callEventData(call *domain.Call) CallEventData {
	return CallEventData{
		CallID:       call.ID,
		RemoteID:     call.RemoteID,
		UserID:       call.UserID,
		AgentID:      call.AgentID,
		Status:       call.Status,
		EndedReason:  call.EndedReason,
		Duration:     call.Duration,
		StartedAt:    call.StartedAt,
		EndedAt:      call.EndedAt,
		HasRecording: call.HasRecording(),
	}
}

// CallStarted publishes a call.started event keyed by the call's remote ID.
func (p *KafkaPublisher) CallStarted(ctx context.Context, call *domain.Call) {
	p.publish(ctx, TopicCallStarted, TypeCallStarted, call.RemoteID, "call", callEventData(call))
}

// CallEnded publishes a call.ended event keyed by the call's remote ID.
func (p *KafkaPublisher) CallEnded(ctx context.Context, call *domain.Call) {
	p.publish(ctx, TopicCallEnded, TypeCallEnded, call.RemoteID, "call", callEventData(call))
}

// CallSideEffect publishes provider notifications that carry no state change.
func (p *KafkaPublisher) CallSideEffect(ctx context.Context, remoteID, kind string, payload map[string]any) {
	p.publish(ctx, TopicCallSideEffect, TypeCallSideEffect, remoteID, "call", SideEffectData{
		RemoteID: remoteID,
		Kind:     kind,
		Payload:  payload,
	})
}

// NopPublisher discards all events. Used in tests and when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) CallStarted(context.Context, *domain.Call) {}

func (NopPublisher) CallEnded(context.Context, *domain.Call) {}

func (NopPublisher) CallSideEffect(context.Context, string, string, map[string]any) {}
