package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(t *testing.T, offset time.Duration) *time.Time {
	t.Helper()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC).Add(offset)
	return &base
}

func TestReconcileOrdersServerAndOptimistic(t *testing.T) {
	server := []Message{
		{ID: "a", SenderRole: "agent", ChannelType: ChannelBrandAgent, CreatedAt: ts(t, 0)},
	}
	optimistic := []Message{
		{ID: "temp-1", SenderRole: "brand", ChannelType: ChannelBrandAgent, CreatedAt: ts(t, time.Second)},
	}

	view := Reconcile(server, optimistic, ChannelBrandAgent)
	require.Len(t, view, 2)
	assert.Equal(t, "a", view[0].ID)
	assert.Equal(t, "temp-1", view[1].ID)
	assert.True(t, view[1].IsTemporary())
}

func TestReconcileContainsEachIDExactlyOnce(t *testing.T) {
	server := []Message{
		{ID: "a", SenderRole: "agent", ChannelType: ChannelBrandAgent, CreatedAt: ts(t, 0)},
		{ID: "b", SenderRole: "brand", ChannelType: ChannelBrandAgent, CreatedAt: ts(t, time.Second)},
		{ID: "b", SenderRole: "brand", ChannelType: ChannelBrandAgent, CreatedAt: ts(t, time.Second)},
	}
	optimistic := []Message{
		// Same id delivered both ways; the server copy wins.
		{ID: "b", SenderRole: "brand", ChannelType: ChannelBrandAgent, CreatedAt: ts(t, 2*time.Second)},
		{ID: "temp-2", SenderRole: "brand", ChannelType: ChannelBrandAgent, CreatedAt: ts(t, 3*time.Second)},
	}

	view := Reconcile(server, optimistic, ChannelBrandAgent)
	seen := map[string]int{}
	for _, msg := range view {
		seen[msg.ID]++
	}
	for id, count := range seen {
		assert.Equal(t, 1, count, "id %s appeared %d times", id, count)
	}
	assert.Len(t, view, 3)
}

func TestReconcileSortedNonDecreasing(t *testing.T) {
	server := []Message{
		{ID: "c", SenderRole: "agent", ChannelType: ChannelBrandAgent, CreatedAt: ts(t, 5*time.Second)},
		{ID: "a", SenderRole: "agent", ChannelType: ChannelBrandAgent, CreatedAt: ts(t, 0)},
	}
	optimistic := []Message{
		{ID: "temp-b", SenderRole: "brand", ChannelType: ChannelBrandAgent, CreatedAt: ts(t, 2*time.Second)},
	}

	view := Reconcile(server, optimistic, ChannelBrandAgent)
	now := time.Now()
	for i := 1; i < len(view); i++ {
		prev := view[i-1].EffectiveTime(now)
		curr := view[i].EffectiveTime(now)
		assert.False(t, curr.Before(prev), "view not sorted at index %d", i)
	}
}

func TestReconcileBrandViewNeverContainsCreatorMessages(t *testing.T) {
	server := []Message{
		{ID: "a", SenderRole: "brand", ChannelType: ChannelBrandAgent, CreatedAt: ts(t, 0)},
		{ID: "b", SenderRole: "creator", ChannelType: ChannelCreatorAgent, CreatedAt: ts(t, time.Second)},
		// Mistagged creator message still stays off the brand view.
		{ID: "c", SenderRole: "creator", ChannelType: ChannelBrandAgent, CreatedAt: ts(t, 2*time.Second)},
		{ID: "d", SenderRole: "agent", ChannelType: ChannelCreatorAgent, CreatedAt: ts(t, 3*time.Second)},
		{ID: "e", SenderRole: "system", CreatedAt: ts(t, 4*time.Second)},
	}

	view := Reconcile(server, nil, ChannelBrandAgent)
	ids := make([]string, 0, len(view))
	for _, msg := range view {
		assert.NotEqual(t, "creator", msg.SenderRole)
		ids = append(ids, msg.ID)
	}
	assert.Equal(t, []string{"a", "e"}, ids)
}

func TestReconcileDefaultsMissingChannelToBrandAgent(t *testing.T) {
	server := []Message{
		{ID: "a", SenderRole: "agent", CreatedAt: ts(t, 0)},
	}

	brandView := Reconcile(server, nil, ChannelBrandAgent)
	creatorView := Reconcile(server, nil, ChannelCreatorAgent)
	assert.Len(t, brandView, 1)
	assert.Empty(t, creatorView)
}

func TestReconcileIsIdempotent(t *testing.T) {
	server := []Message{
		{ID: "a", SenderRole: "agent", ChannelType: ChannelBrandAgent, CreatedAt: ts(t, 0)},
		{ID: "b", SenderRole: "brand", ChannelType: ChannelBrandAgent, CreatedAt: ts(t, time.Second)},
	}
	optimistic := []Message{
		{ID: "temp-1", SenderRole: "brand", ChannelType: ChannelBrandAgent, CreatedAt: ts(t, 2*time.Second)},
	}

	first := Reconcile(server, optimistic, ChannelBrandAgent)
	second := Reconcile(server, optimistic, ChannelBrandAgent)
	assert.Equal(t, first, second)
}

func TestReconcileStableForEqualTimestamps(t *testing.T) {
	same := ts(t, 0)
	server := []Message{
		{ID: "a", SenderRole: "agent", ChannelType: ChannelBrandAgent, CreatedAt: same},
		{ID: "b", SenderRole: "agent", ChannelType: ChannelBrandAgent, CreatedAt: same},
	}
	optimistic := []Message{
		{ID: "temp-1", SenderRole: "brand", ChannelType: ChannelBrandAgent, CreatedAt: same},
	}

	view := Reconcile(server, optimistic, ChannelBrandAgent)
	require.Len(t, view, 3)
	assert.Equal(t, "a", view[0].ID)
	assert.Equal(t, "b", view[1].ID)
	assert.Equal(t, "temp-1", view[2].ID)
}

func TestEffectiveTimeFallsBackToLegacyTimestamp(t *testing.T) {
	legacy := ts(t, time.Minute)
	msg := Message{ID: "a", Timestamp: legacy}
	assert.Equal(t, *legacy, msg.EffectiveTime(time.Now()))

	now := time.Now()
	bare := Message{ID: "b"}
	assert.Equal(t, now, bare.EffectiveTime(now))
}
