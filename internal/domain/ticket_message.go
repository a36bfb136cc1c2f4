package domain

import (
	"strings"
	"time"
)

// SenderRole indicates who authored a message.
type SenderRole string

const (
	SenderRoleBrand   SenderRole = "brand"
	SenderRoleCreator SenderRole = "creator"
	SenderRoleAgent   SenderRole = "agent"
	SenderRoleSystem  SenderRole = "system"
)

// ChannelTag partitions one ticket's messages into two logical conversations
// sharing the same ticket: brand with agent, and creator with agent.
type ChannelTag string

const (
	ChannelBrandAgent   ChannelTag = "brand_agent"
	ChannelCreatorAgent ChannelTag = "creator_agent"
)

// TempIDPrefix marks client-generated ids for messages not yet confirmed by
// the server.
const TempIDPrefix = "temp-"

// MessageType differentiates message payloads. Only text is produced today.
type MessageType string

const MessageTypeText MessageType = "text"

// TicketMessage captures one entry in a ticket conversation. ClientRef is the
// client-generated correlation id, echoed back on confirmation so optimistic
// entries can be superseded deterministically.
type TicketMessage struct {
	ID          string
	TicketID    string
	SenderRole  SenderRole
	SenderID    *string
	Channel     ChannelTag
	MessageType MessageType
	Body        string
	ClientRef   *string
	CreatedAt   time.Time
}

// IsTemporary reports whether the message carries a client-generated id.
func (m TicketMessage) IsTemporary() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// EffectiveChannel returns the message's channel tag, defaulting to the
// brand-agent thread when absent.
func (m TicketMessage) EffectiveChannel() ChannelTag {
	if m.Channel == "" {
		return ChannelBrandAgent
	}
	return m.Channel
}

// VisibleOn reports whether the message belongs on the given channel view.
// System messages appear on both threads. Party messages never cross to the
// other party's thread even when mistagged.
func (m TicketMessage) VisibleOn(channel ChannelTag) bool {
	if m.SenderRole == SenderRoleSystem {
		return true
	}
	switch channel {
	case ChannelBrandAgent:
		if m.SenderRole == SenderRoleCreator {
			return false
		}
	case ChannelCreatorAgent:
		if m.SenderRole == SenderRoleBrand {
			return false
		}
	}
	return m.EffectiveChannel() == channel
}
