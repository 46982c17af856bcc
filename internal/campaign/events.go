package campaign

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// OutcomeEvent is published after every status transition so downstream
// consumers (analytics, audit) can follow campaign activity.
type OutcomeEvent struct {
	ItemID    string    `json:"item_id"`
	Channel   Channel   `json:"channel"`
	Status    Status    `json:"status"`
	Note      string    `json:"note,omitempty"`
	EmittedAt time.Time `json:"emitted_at"`
}

type Emitter interface {
	Emit(ctx context.Context, event OutcomeEvent) error
}

// KafkaEmitter writes outcome events to a broker topic.
type KafkaEmitter struct {
	Writer *kafka.Writer
}

func (e *KafkaEmitter) Emit(ctx context.Context, event OutcomeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal outcome event: %w", err)
	}
	return e.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ItemID),
		Value: payload,
	})
}

// LogEmitter is the default when no broker is configured.
type LogEmitter struct {
	Logger zerolog.Logger
}

func (e *LogEmitter) Emit(ctx context.Context, event OutcomeEvent) error {
	e.Logger.Info().
		Str("item_id", event.ItemID).
		Str("channel", string(event.Channel)).
		Str("status", string(event.Status)).
		Str("note", event.Note).
		Msg("campaign outcome")
	return nil
}
