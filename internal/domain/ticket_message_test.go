package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageVisibility(t *testing.T) {
	cases := []struct {
		name     string
		msg      TicketMessage
		channel  ChannelTag
		expected bool
	}{
		{"system visible on brand thread", TicketMessage{SenderRole: SenderRoleSystem}, ChannelBrandAgent, true},
		{"system visible on creator thread", TicketMessage{SenderRole: SenderRoleSystem}, ChannelCreatorAgent, true},
		{"brand on own thread", TicketMessage{SenderRole: SenderRoleBrand, Channel: ChannelBrandAgent}, ChannelBrandAgent, true},
		{"creator never leaks onto brand thread", TicketMessage{SenderRole: SenderRoleCreator, Channel: ChannelBrandAgent}, ChannelBrandAgent, false},
		{"brand never leaks onto creator thread", TicketMessage{SenderRole: SenderRoleBrand, Channel: ChannelCreatorAgent}, ChannelCreatorAgent, false},
		{"agent follows channel tag", TicketMessage{SenderRole: SenderRoleAgent, Channel: ChannelCreatorAgent}, ChannelBrandAgent, false},
		{"untagged agent defaults to brand thread", TicketMessage{SenderRole: SenderRoleAgent}, ChannelBrandAgent, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.msg.VisibleOn(tc.channel))
		})
	}
}

func TestTemporaryIDConvention(t *testing.T) {
	assert.True(t, TicketMessage{ID: "temp-abc"}.IsTemporary())
	assert.False(t, TicketMessage{ID: "b903f1"}.IsTemporary())
}

func TestTerminalOrderStatuses(t *testing.T) {
	assert.True(t, OrderStatusCompleted.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.True(t, OrderStatusRejected.IsTerminal())
	assert.False(t, OrderStatusReview.IsTerminal())
}
