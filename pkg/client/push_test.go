package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameData(t *testing.T, role, channel, ref string) string {
	t.Helper()
	raw, err := json.Marshal(pushFrameData{SenderRole: role, ChannelType: channel, ClientRef: ref})
	require.NoError(t, err)
	return string(raw)
}

func TestFrameMetadataRoutesAgentMessageToTaggedChannel(t *testing.T) {
	frame := pushFrame{
		ID:          "m1",
		ChannelID:   "ticket_9",
		UserID:      "agent_a1",
		Message:     "done, take a look",
		CustomType:  "text",
		Data:        frameData(t, "agent", ChannelCreatorAgent, "ref-1"),
		CreatedAtMS: 1700000000000,
	}

	msg := frameToMessage(frame, "9")
	assert.Equal(t, "agent", msg.SenderRole)
	assert.Equal(t, "ref-1", msg.ClientRef)
	assert.True(t, msg.VisibleOn(ChannelCreatorAgent))
	assert.False(t, msg.VisibleOn(ChannelBrandAgent))
}

func TestFrameWithoutDataFallsBackToCompositeID(t *testing.T) {
	frame := pushFrame{
		ID:          "m2",
		ChannelID:   "ticket_9",
		UserID:      "creator_u7",
		Message:     "uploading now",
		CustomType:  "text",
		CreatedAtMS: 1700000000000,
	}

	msg := frameToMessage(frame, "9")
	assert.Equal(t, "creator", msg.SenderRole)
	assert.Empty(t, msg.ClientRef)
	assert.True(t, msg.VisibleOn(ChannelCreatorAgent))
}

func TestFrameEchoConfirmsOptimisticEntryByRef(t *testing.T) {
	outbox := NewOutbox()
	now := time.Now()
	outbox.Add(Message{
		ID:          TempIDPrefix + "ref-2",
		TicketID:    "9",
		SenderRole:  "brand",
		ChannelType: ChannelBrandAgent,
		Body:        "any update?",
		ClientRef:   "ref-2",
		CreatedAt:   &now,
	})
	require.Len(t, outbox.Pending(), 1)

	echo := frameToMessage(pushFrame{
		ID:          "srv-1",
		ChannelID:   "ticket_9",
		UserID:      "brand_b1",
		Message:     "any update?",
		CustomType:  "text",
		Data:        frameData(t, "brand", ChannelBrandAgent, "ref-2"),
		CreatedAtMS: 1700000000000,
	}, "9")
	outbox.Observe([]Message{echo})
	assert.Empty(t, outbox.Pending())
}

func TestDialPushStreamBackfillsAndDeliversLiveFrames(t *testing.T) {
	backfillFrame := pushFrame{
		ID:          "m1",
		ChannelID:   "ticket_9",
		UserID:      "agent_a1",
		Message:     "hello",
		CustomType:  "text",
		Data:        frameData(t, "agent", ChannelBrandAgent, ""),
		CreatedAtMS: 1700000000000,
	}
	liveFrame := pushFrame{
		ID:          "m2",
		ChannelID:   "ticket_9",
		UserID:      "agent_a1",
		Message:     "one more thing",
		CustomType:  "text",
		Data:        frameData(t, "agent", ChannelBrandAgent, ""),
		CreatedAtMS: 1700000001000,
	}

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat/tickets/9/messages", func(w http.ResponseWriter, r *http.Request) {
		writeData(t, w, []pushFrame{backfillFrame})
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(liveFrame)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	session := NewSession(server.URL, WithToken("tok-1"))
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	stream, err := DialPushStream(context.Background(), New(session), wsURL, "sess-1", "9", ChannelBrandAgent, "brand", nil)
	require.NoError(t, err)
	t.Cleanup(stream.Close)

	select {
	case snap := <-stream.Snapshots():
		require.Len(t, snap.Messages, 2)
		assert.Equal(t, "m1", snap.Messages[0].ID)
		assert.Equal(t, "m2", snap.Messages[1].ID)
		// The backfill was already counted as seen; only the live frame is new.
		assert.Equal(t, 1, snap.NewMessages)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after live frame")
	}
}
