package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessageServer struct {
	mu       sync.Mutex
	failing  bool
	failSend bool
	messages []Message
}

func (s *fakeMessageServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			if s.failing {
				writeAPIError(w, http.StatusBadGateway, "UPSTREAM", "poll failed")
				return
			}
			writeData(t, w, s.messages)
		case http.MethodPost:
			if s.failSend {
				writeAPIError(w, http.StatusBadGateway, "UPSTREAM", "send failed")
				return
			}
			var input SendMessageInput
			require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
			created := time.Now()
			msg := Message{
				ID:          "srv-" + input.ClientRef,
				TicketID:    "ticket-1",
				SenderRole:  input.SenderRole,
				ChannelType: input.ChannelType,
				MessageType: input.MessageType,
				Body:        input.MessageText,
				ClientRef:   input.ClientRef,
				CreatedAt:   &created,
			}
			s.messages = append(s.messages, msg)
			writeData(t, w, msg)
		}
	}
}

func (s *fakeMessageServer) setFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

func newTestStream(t *testing.T, backend *fakeMessageServer) *PollingStream {
	t.Helper()
	server := httptest.NewServer(backend.handler(t))
	t.Cleanup(server.Close)
	session := NewSession(server.URL, WithToken("tok-1"))
	stream := NewPollingStream(New(session), "ticket-1", ChannelBrandAgent, "brand")
	t.Cleanup(stream.Close)
	return stream
}

func TestPollingStreamKeepsPollingWhileDisconnected(t *testing.T) {
	backend := &fakeMessageServer{failing: true}
	stream := newTestStream(t, backend)
	ctx := context.Background()

	stream.pollOnce(ctx)
	assert.False(t, stream.snapshot().Connected)

	// Recovery on the next successful poll, without rebuilding the stream.
	backend.setFailing(false)
	stream.pollOnce(ctx)
	assert.True(t, stream.snapshot().Connected)
}

func (s *fakeMessageServer) addMessages(messages ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, messages...)
}

func TestSnapshotCountsMessagesAppendedSinceLastPoll(t *testing.T) {
	backend := &fakeMessageServer{}
	stream := newTestStream(t, backend)
	ctx := context.Background()

	stream.pollOnce(ctx)
	assert.Zero(t, (<-stream.Snapshots()).NewMessages)

	now := time.Now()
	backend.addMessages(
		Message{ID: "m1", TicketID: "ticket-1", SenderRole: "agent", ChannelType: ChannelBrandAgent, CreatedAt: &now},
		Message{ID: "m2", TicketID: "ticket-1", SenderRole: "agent", ChannelType: ChannelBrandAgent, CreatedAt: &now},
	)
	stream.pollOnce(ctx)
	assert.Equal(t, 2, (<-stream.Snapshots()).NewMessages)

	// Nothing appended since the last poll.
	stream.pollOnce(ctx)
	assert.Zero(t, (<-stream.Snapshots()).NewMessages)
}

func TestDisplacedSnapshotCarriesItsDeltaForward(t *testing.T) {
	backend := &fakeMessageServer{}
	stream := newTestStream(t, backend)
	ctx := context.Background()

	now := time.Now()
	backend.addMessages(Message{ID: "m1", TicketID: "ticket-1", SenderRole: "agent", ChannelType: ChannelBrandAgent, CreatedAt: &now})
	stream.pollOnce(ctx)

	// The buffered snapshot is never consumed; the next poll displaces it
	// and its one-message delta rolls into the replacement.
	backend.addMessages(Message{ID: "m2", TicketID: "ticket-1", SenderRole: "agent", ChannelType: ChannelBrandAgent, CreatedAt: &now})
	stream.pollOnce(ctx)

	assert.Equal(t, 2, (<-stream.Snapshots()).NewMessages)
}

func TestSendShowsOptimisticEntryUntilServerEchoConfirms(t *testing.T) {
	backend := &fakeMessageServer{}
	stream := newTestStream(t, backend)
	ctx := context.Background()

	confirmed, err := stream.Send(ctx, "hello there")
	require.NoError(t, err)
	require.NotEmpty(t, confirmed.ClientRef)

	// Before the next poll the view holds the optimistic copy only.
	view := stream.snapshot().Messages
	require.Len(t, view, 1)
	assert.True(t, view[0].IsTemporary())
	assert.Equal(t, "hello there", view[0].Body)

	// The poll observes the server echo carrying the same client ref; the
	// optimistic entry is confirmed away and exactly one copy remains.
	stream.pollOnce(ctx)
	view = stream.snapshot().Messages
	require.Len(t, view, 1)
	assert.False(t, view[0].IsTemporary())
	assert.Equal(t, confirmed.ID, view[0].ID)
	assert.Equal(t, "hello there", view[0].Body)
}

func TestSendFailureDropsOptimisticEntryImmediately(t *testing.T) {
	backend := &fakeMessageServer{failSend: true}
	stream := newTestStream(t, backend)

	_, err := stream.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Empty(t, stream.snapshot().Messages)
}

func TestHistoryReconcilesServerAndOutbox(t *testing.T) {
	earlier := time.Now().Add(-time.Minute)
	backend := &fakeMessageServer{messages: []Message{
		{ID: "a", TicketID: "ticket-1", SenderRole: "agent", ChannelType: ChannelBrandAgent, CreatedAt: &earlier},
	}}
	stream := newTestStream(t, backend)
	ctx := context.Background()

	_, err := stream.Send(ctx, "follow-up")
	require.NoError(t, err)

	view, err := stream.History(ctx)
	require.NoError(t, err)
	require.Len(t, view, 2)
	assert.Equal(t, "a", view[0].ID)
	assert.Equal(t, "follow-up", view[1].Body)
}
