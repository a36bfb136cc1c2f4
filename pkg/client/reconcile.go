package client

import (
	"sort"
	"strings"
	"time"
)

// Channel tags partitioning one ticket into two logical conversations.
const (
	ChannelBrandAgent   = "brand_agent"
	ChannelCreatorAgent = "creator_agent"
)

// TempIDPrefix marks client-generated optimistic message ids.
const TempIDPrefix = "temp-"

// Message is the client-side view of one ticket message. CreatedAt is the
// server timestamp; Timestamp is a legacy alternative some payloads carry
// instead.
type Message struct {
	ID          string     `json:"id"`
	TicketID    string     `json:"ticket_id"`
	SenderRole  string     `json:"sender_role"`
	SenderID    *string    `json:"sender_id,omitempty"`
	ChannelType string     `json:"channel_type"`
	MessageType string     `json:"message_type"`
	Body        string     `json:"message_text"`
	ClientRef   string     `json:"client_ref,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

// IsTemporary reports whether the message is an unconfirmed optimistic entry.
func (m Message) IsTemporary() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// EffectiveTime is the ordering timestamp: created_at, else the legacy
// timestamp field, else now. The wall-clock fallback gives concurrent
// untimestamped messages no stable order relative to each other.
func (m Message) EffectiveTime(now time.Time) time.Time {
	if m.CreatedAt != nil && !m.CreatedAt.IsZero() {
		return *m.CreatedAt
	}
	if m.Timestamp != nil && !m.Timestamp.IsZero() {
		return *m.Timestamp
	}
	return now
}

// EffectiveChannel returns the channel tag, defaulting to brand_agent when
// the message carries none.
func (m Message) EffectiveChannel() string {
	if m.ChannelType == "" {
		return ChannelBrandAgent
	}
	return m.ChannelType
}

// VisibleOn reports whether the message belongs on the given channel view.
// System messages appear everywhere. Brand and creator messages belong to
// their own thread regardless of how they were tagged, so a brand_agent
// view can never contain a creator message. Agent messages follow their
// channel tag.
func (m Message) VisibleOn(channel string) bool {
	switch m.SenderRole {
	case "system":
		return true
	case "brand":
		return channel == ChannelBrandAgent
	case "creator":
		return channel == ChannelCreatorAgent
	default:
		return m.EffectiveChannel() == channel
	}
}

// Reconcile merges the last server-fetched history with locally-held
// optimistic messages into one ordered, de-duplicated view for the active
// channel. Server entries win over optimistic entries sharing an id, and
// the sort is stable so same-timestamp messages keep their input order.
func Reconcile(serverMessages, optimisticMessages []Message, activeChannel string) []Message {
	now := time.Now()
	return reconcileAt(serverMessages, optimisticMessages, activeChannel, now)
}

func reconcileAt(serverMessages, optimisticMessages []Message, activeChannel string, now time.Time) []Message {
	combined := make([]Message, 0, len(serverMessages)+len(optimisticMessages))
	seen := make(map[string]struct{}, len(serverMessages)+len(optimisticMessages))
	for _, msg := range serverMessages {
		if _, dup := seen[msg.ID]; dup {
			continue
		}
		seen[msg.ID] = struct{}{}
		combined = append(combined, msg)
	}
	for _, msg := range optimisticMessages {
		if _, dup := seen[msg.ID]; dup {
			continue
		}
		seen[msg.ID] = struct{}{}
		combined = append(combined, msg)
	}

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].EffectiveTime(now).Before(combined[j].EffectiveTime(now))
	})

	view := combined[:0]
	for _, msg := range combined {
		if msg.VisibleOn(activeChannel) {
			view = append(view, msg)
		}
	}
	return view
}
