package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// EmailSender simulates delivering an email campaign to its list.
type EmailSender struct {
	Logger zerolog.Logger
}

func (s *EmailSender) Name() string { return "email" }

func (s *EmailSender) Send(ctx context.Context, item Item) error {
	var payload EmailPayload
	if err := json.Unmarshal([]byte(item.Payload), &payload); err != nil {
		return fmt.Errorf("decode email payload: %w", err)
	}
	if payload.ToList == "" {
		return errors.New("email campaign has no recipients")
	}
	s.Logger.Info().
		Str("item_id", item.ID).
		Str("subject", payload.Subject).
		Str("to_list", payload.ToList).
		Msg("simulated email campaign delivered")
	return nil
}
