package campaign

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// SocialSender simulates publishing a post to a social network. A real
// provider SDK slots in behind the same Sender interface.
type SocialSender struct {
	Network Channel
	Logger  zerolog.Logger
}

func (s *SocialSender) Name() string { return "social:" + string(s.Network) }

func (s *SocialSender) Send(ctx context.Context, item Item) error {
	if item.Payload == "" {
		return errors.New("social post has no content")
	}
	s.Logger.Info().
		Str("item_id", item.ID).
		Str("network", string(s.Network)).
		Str("content", excerpt(item.Payload, 100)).
		Msg("simulated social post published")
	return nil
}

func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
