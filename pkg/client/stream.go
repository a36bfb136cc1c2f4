package client

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Snapshot is one reconciled view of a ticket conversation. Connected is
// false while the backing transport is failing; the stream keeps trying and
// flips it back on the next success. NewMessages counts entries appended
// since the previous consumed snapshot or history fetch; when a stale
// buffered snapshot is displaced before the consumer reads it, its count
// rolls into the replacement.
type Snapshot struct {
	Messages    []Message
	Connected   bool
	NewMessages int
}

// Stream is a single abstraction over the two message transports: REST
// polling and realtime push. Backends are interchangeable; a ticket view
// uses one or the other, never both.
type Stream interface {
	// History fetches and reconciles the conversation once.
	History(ctx context.Context) ([]Message, error)
	// Send posts a message, tracking it optimistically until the server
	// echo is observed.
	Send(ctx context.Context, body string) (Message, error)
	// Snapshots emits a reconciled view after every poll or push event.
	Snapshots() <-chan Snapshot
	// Close stops the stream. In-flight requests are not aborted; their
	// late responses are discarded.
	Close()
}

var (
	_ Stream = (*PollingStream)(nil)
	_ Stream = (*PushStream)(nil)
)

// DefaultPollInterval matches the dashboard refresh cadence.
const DefaultPollInterval = 3 * time.Second

// PollingStream reconciles a 3-second REST poll with an optimistic outbox.
type PollingStream struct {
	client     *Client
	ticketID   string
	channel    string
	senderRole string
	interval   time.Duration
	logger     *zap.Logger

	outbox *Outbox

	mu        sync.Mutex
	server    []Message
	connected bool
	seen      int

	snapshots chan Snapshot
	done      chan struct{}
	closeOnce sync.Once
}

// PollingOption customizes a PollingStream.
type PollingOption func(*PollingStream)

// WithPollInterval overrides the poll cadence.
func WithPollInterval(interval time.Duration) PollingOption {
	return func(p *PollingStream) { p.interval = interval }
}

// WithStreamLogger attaches a logger.
func WithStreamLogger(logger *zap.Logger) PollingOption {
	return func(p *PollingStream) { p.logger = logger }
}

// NewPollingStream builds a polling-backed stream for one ticket channel.
// Call Run to start the poll loop.
func NewPollingStream(apiClient *Client, ticketID, channel, senderRole string, opts ...PollingOption) *PollingStream {
	p := &PollingStream{
		client:     apiClient,
		ticketID:   ticketID,
		channel:    channel,
		senderRole: senderRole,
		interval:   DefaultPollInterval,
		logger:     zap.NewNop(),
		outbox:     NewOutbox(),
		connected:  true,
		snapshots:  make(chan Snapshot, 1),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls until the context is cancelled or the stream is closed.
func (p *PollingStream) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *PollingStream) pollOnce(ctx context.Context) {
	messages, err := p.client.GetMessages(ctx, p.ticketID, p.channel)
	select {
	case <-p.done:
		return
	default:
	}

	p.mu.Lock()
	if err != nil {
		// Keep the last good history; just mark the view disconnected.
		p.connected = false
		p.logger.Warn("message poll failed", zap.String("ticket_id", p.ticketID), zap.Error(err))
	} else {
		p.server = messages
		p.connected = true
		p.outbox.Observe(messages)
	}
	snapshot := p.snapshotLocked()
	p.mu.Unlock()

	p.emit(snapshot)
}

// History fetches and reconciles the conversation once.
func (p *PollingStream) History(ctx context.Context) ([]Message, error) {
	messages, err := p.client.GetMessages(ctx, p.ticketID, p.channel)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.server = messages
	p.connected = true
	p.outbox.Observe(messages)
	view := Reconcile(p.server, p.outbox.Pending(), p.channel)
	p.seen = len(view)
	p.mu.Unlock()
	return view, nil
}

// Send posts a message with a client-generated correlation ref, showing it
// optimistically until the server echo confirms it. A failed send drops
// the optimistic entry immediately; no retry is attempted.
func (p *PollingStream) Send(ctx context.Context, body string) (Message, error) {
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

// Snapshots emits a reconciled view after every poll and every send
// transition. The channel holds one pending snapshot; stale intermediate
// views are dropped.
func (p *PollingStream) Snapshots() <-chan Snapshot {
	return p.snapshots
}

// Close stops the poll loop.
func (p *PollingStream) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}

func (p *PollingStream) snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *PollingStream) snapshotLocked() Snapshot {
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

func (p *PollingStream) emit(snapshot Snapshot) {
	select {
	case <-p.done:
		return
	default:
	}
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
