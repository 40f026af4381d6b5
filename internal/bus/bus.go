package bus

import (
	"context"
	"encoding/json"
	"fmt"
)

// Handler processes one decoded message. A nil return acks the message;
// pipeline workers catch their own failures and always return nil, so
// a non-nil return is reserved for infrastructure faults.
type Handler func(ctx context.Context, payload []byte) error

// Bus is the named-topic durable queue contract: at-least-once
// delivery, one concurrent handler per topic per consumer instance,
// best-effort FIFO within a topic.
type Bus interface {
	// Publish JSON-encodes message onto topic.
	Publish(ctx context.Context, topic string, message any) error
	// StartConsume begins a single-handler consume loop for topic and
	// returns a cancellation function.
	StartConsume(topic string, handler Handler) (func(), error)
	// StopAll cancels every consume loop and waits for them to drain.
	StopAll()
}

// Decode unmarshals a message payload into v. Property-name matching is
// case-insensitive per encoding/json semantics.
func Decode(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return nil
}
