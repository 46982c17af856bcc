package campaign

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

type Channel string

const (
	ChannelX         Channel = "x"
	ChannelLinkedIn  Channel = "linkedin"
	ChannelFacebook  Channel = "facebook"
	ChannelInstagram Channel = "instagram"
	ChannelEmail     Channel = "email"
)

func ValidChannel(c Channel) bool {
	switch c {
	case ChannelX, ChannelLinkedIn, ChannelFacebook, ChannelInstagram, ChannelEmail:
		return true
	}
	return false
}

// Item is a scheduled campaign send. The scheduler never interprets
// Payload; for email items it carries a serialized EmailPayload, for
// social items the post text.
type Item struct {
	ID          string     `json:"id"`
	Channel     Channel    `json:"channel"`
	Payload     string     `json:"payload"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	Status      Status     `json:"status"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	Note        string     `json:"note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type EmailPayload struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	ToList  string `json:"to_list"`
}

// ErrStoreUnavailable wraps persistence failures so the driver can tell
// "retry next tick" apart from item-level outcomes.
var ErrStoreUnavailable = errors.New("campaign store unavailable")
