package client

import (
	"sync"
	"time"
)

// DefaultConfirmGrace is how long an acknowledged optimistic message stays
// visible after the send resolved, as a safety net when the server echo has
// not been observed yet.
const DefaultConfirmGrace = 5 * time.Second

type outboxEntry struct {
	msg     Message
	acked   bool
	ackedAt time.Time
}

// Outbox tracks optimistic messages awaiting server confirmation. An entry
// is confirmed, and dropped, when a polled server message carries its
// client ref. The post-ack grace timer is only a fallback for echoes the
// server never produces; a failed send drops the entry immediately.
type Outbox struct {
	mu      sync.Mutex
	grace   time.Duration
	now     func() time.Time
	entries map[string]*outboxEntry
	order   []string
}

// NewOutbox creates an outbox with the default confirmation grace period.
func NewOutbox() *Outbox {
	return &Outbox{
		grace:   DefaultConfirmGrace,
		now:     time.Now,
		entries: make(map[string]*outboxEntry),
	}
}

// Add registers a new optimistic message keyed by its client ref.
func (o *Outbox) Add(msg Message) {
	if msg.ClientRef == "" {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.entries[msg.ClientRef]; exists {
		return
	}
	o.entries[msg.ClientRef] = &outboxEntry{msg: msg}
	o.order = append(o.order, msg.ClientRef)
}

// MarkAcked records that the send mutation resolved successfully, starting
// the fallback purge clock.
func (o *Outbox) MarkAcked(clientRef string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if entry, ok := o.entries[clientRef]; ok && !entry.acked {
		entry.acked = true
		entry.ackedAt = o.now()
	}
}

// Fail drops an entry whose send mutation failed.
func (o *Outbox) Fail(clientRef string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.remove(clientRef)
}

// Observe confirms and drops entries whose client ref appears in the
// server-fetched history.
func (o *Outbox) Observe(serverMessages []Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, msg := range serverMessages {
		if msg.ClientRef != "" {
			o.remove(msg.ClientRef)
		}
	}
}

// Pending returns the optimistic messages still awaiting confirmation,
// expiring acked entries past the grace period.
func (o *Outbox) Pending() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	pending := make([]Message, 0, len(o.order))
	live := o.order[:0]
	for _, ref := range o.order {
		entry, ok := o.entries[ref]
		if !ok {
			continue
		}
		if entry.acked && now.Sub(entry.ackedAt) >= o.grace {
			delete(o.entries, ref)
			continue
		}
		live = append(live, ref)
		pending = append(pending, entry.msg)
	}
	o.order = live
	return pending
}

func (o *Outbox) remove(clientRef string) {
	if _, ok := o.entries[clientRef]; !ok {
		return
	}
	delete(o.entries, clientRef)
	for i, ref := range o.order {
		if ref == clientRef {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
}
