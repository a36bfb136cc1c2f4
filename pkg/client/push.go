package client

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// pushFrame is one realtime event as the hosted provider's websocket feed
// reports it. The data field carries the server-side message metadata.
type pushFrame struct {
	ID          string `json:"message_id"`
	ChannelID   string `json:"channel_url"`
	UserID      string `json:"user_id"`
	Message     string `json:"message"`
	CustomType  string `json:"custom_type"`
	Data        string `json:"data"`
	CreatedAtMS int64  `json:"created_at"`
}

type pushFrameData struct {
	SenderRole  string `json:"sender_role"`
	ChannelType string `json:"channel_type"`
	ClientRef   string `json:"client_ref"`
}

// PushStream is the realtime-push backend of Stream. It accumulates
// messages from the provider's websocket feed and still sends through the
// REST API so the server remains the source of truth. No reconnect or
// backoff is attempted; a broken socket leaves the stream disconnected
// until the caller rebuilds it.
type PushStream struct {
	client     *Client
	ticketID   string
	channel    string
	senderRole string
	logger     *zap.Logger

	outbox *Outbox

	mu        sync.Mutex
	server    []Message
	connected bool
	seen      int

	conn      *websocket.Conn
	snapshots chan Snapshot
	done      chan struct{}
	closeOnce sync.Once
}

// DialPushStream connects to the realtime feed for one ticket channel. The
// websocket URL and session token come from the chat token endpoint.
func DialPushStream(ctx context.Context, apiClient *Client, wsURL, sessionToken, ticketID, channel, senderRole string, logger *zap.Logger) (*PushStream, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	header := map[string][]string{"Session-Token": {sessionToken}}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, err
	}

	p := &PushStream{
		client:     apiClient,
		ticketID:   ticketID,
		channel:    channel,
		senderRole: senderRole,
		logger:     logger,
		outbox:     NewOutbox(),
		connected:  true,
		conn:       conn,
		snapshots:  make(chan Snapshot, 1),
		done:       make(chan struct{}),
	}
	p.backfill(ctx)
	go p.readLoop()
	return p, nil
}

// backfill seeds the push state from the provider history so the first
// snapshot is not empty while the socket waits for its first frame. A
// failed backfill is tolerated; History remains the authoritative path.
func (p *PushStream) backfill(ctx context.Context) {
	messages, err := p.client.GetChatHistory(ctx, p.ticketID, 50)
	if err != nil {
		p.logger.Warn("push backfill failed", zap.String("ticket_id", p.ticketID), zap.Error(err))
		return
	}
	p.mu.Lock()
	p.server = messages
	p.outbox.Observe(messages)
	p.seen = len(Reconcile(p.server, p.outbox.Pending(), p.channel))
	p.mu.Unlock()
}

func (p *PushStream) readLoop() {
	channelID := "ticket_" + p.ticketID
	for {
		var frame pushFrame
		if err := p.conn.ReadJSON(&frame); err != nil {
			select {
			case <-p.done:
			default:
				p.logger.Warn("push feed closed", zap.String("ticket_id", p.ticketID), zap.Error(err))
			}
			p.mu.Lock()
			p.connected = false
			snapshot := p.snapshotLocked()
			p.mu.Unlock()
			p.emit(snapshot)
			return
		}
		if frame.ChannelID != channelID {
			continue
		}

		msg := frameToMessage(frame, p.ticketID)
		p.mu.Lock()
		p.server = appendMessage(p.server, msg)
		p.outbox.Observe([]Message{msg})
		snapshot := p.snapshotLocked()
		p.mu.Unlock()
		p.emit(snapshot)
	}
}

func frameToMessage(frame pushFrame, ticketID string) Message {
	var data pushFrameData
	if frame.Data != "" {
		_ = json.Unmarshal([]byte(frame.Data), &data)
	}
	role := data.SenderRole
	if role == "" {
		// Composite provider ids are <role>_<userId>.
		if idx := strings.Index(frame.UserID, "_"); idx > 0 {
			role = frame.UserID[:idx]
		}
	}
	created := time.UnixMilli(frame.CreatedAtMS)
	return Message{
		ID:          frame.ID,
		TicketID:    ticketID,
		SenderRole:  role,
		ChannelType: data.ChannelType,
		MessageType: frame.CustomType,
		Body:        frame.Message,
		ClientRef:   data.ClientRef,
		CreatedAt:   &created,
	}
}

func appendMessage(history []Message, msg Message) []Message {
	for _, existing := range history {
		if existing.ID == msg.ID {
			return history
		}
	}
	return append(history, msg)
}

// History fetches the authoritative REST history and reconciles it with the
// outbox, replacing the accumulated push state.
func (p *PushStream) History(ctx context.Context) ([]Message, error) {
	messages, err := p.client.GetMessages(ctx, p.ticketID, p.channel)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.server = messages
	p.outbox.Observe(messages)
	view := Reconcile(p.server, p.outbox.Pending(), p.channel)
	p.seen = len(view)
	p.mu.Unlock()
	return view, nil
}

// Send posts through the REST API; the provider fanout delivers the echo
// that confirms the optimistic entry.
func (p *PushStream) Send(ctx context.Context, body string) (Message, error) {
	ref := uuid.NewString()
	now := time.Now()
	optimistic := Message{
		ID:          TempIDPrefix + ref,
		TicketID:    p.ticketID,
		SenderRole:  p.senderRole,
		ChannelType: p.channel,
		MessageType: "text",
		Body:        body,
		ClientRef:   ref,
		CreatedAt:   &now,
	}
	p.outbox.Add(optimistic)
	p.emit(p.snapshot())

	confirmed, err := p.client.SendMessage(ctx, p.ticketID, SendMessageInput{
		MessageText: body,
		SenderRole:  p.senderRole,
		ChannelType: p.channel,
		ClientRef:   ref,
	})
	if err != nil {
		p.outbox.Fail(ref)
		p.emit(p.snapshot())
		return Message{}, err
	}

	p.outbox.MarkAcked(ref)
	p.emit(p.snapshot())
	return *confirmed, nil
}

// Snapshots emits a reconciled view after every push event and send
// transition.
func (p *PushStream) Snapshots() <-chan Snapshot {
	return p.snapshots
}

// Close shuts the websocket down.
func (p *PushStream) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		_ = p.conn.Close()
	})
}

func (p *PushStream) snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *PushStream) snapshotLocked() Snapshot {
	view := Reconcile(p.server, p.outbox.Pending(), p.channel)
	delta := len(view) - p.seen
	if delta < 0 {
		delta = 0
	}
	p.seen = len(view)
	return Snapshot{
		Messages:    view,
		Connected:   p.connected,
		NewMessages: delta,
	}
}

func (p *PushStream) emit(snapshot Snapshot) {
	for {
		select {
		case p.snapshots <- snapshot:
			return
		default:
			select {
			case stale := <-p.snapshots:
				// The displaced view was never consumed; its delta carries over.
				snapshot.NewMessages += stale.NewMessages
			default:
			}
		}
	}
}
