// Package hub fans appended messages out to live discussion subscribers.
package hub

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/xiaot623/roundtable/internal/domain"
	"github.com/xiaot623/roundtable/internal/metrics"
	"go.uber.org/zap"
)

// SnapshotSource supplies the transcript a new subscriber starts from.
type SnapshotSource interface {
	GetMessages(ctx context.Context, discussionID string) ([]domain.Message, error)
}

// Subscription is one subscriber's handle on a discussion.
type Subscription struct {
	ID           string
	DiscussionID string

	ch      chan domain.Message
	after   int64
	closed  bool
	dropped atomic.Bool
	topic   *topic
}

// Events delivers messages appended after the snapshot, in sequence order.
// The channel is closed on Unsubscribe or when the subscriber falls behind.
func (s *Subscription) Events() <-chan domain.Message {
	return s.ch
}

// Dropped reports whether the subscription was removed for falling behind.
func (s *Subscription) Dropped() bool {
	return s.dropped.Load()
}

type topic struct {
	discussionID string
	refs         int // guarded by Registry.mu

	mu   sync.Mutex
	subs map[string]*Subscription
}

// Registry tracks subscriptions per discussion.
type Registry struct {
	source     SnapshotSource
	bufferSize int
	logger     *zap.Logger
	metrics    *metrics.Metrics

	mu     sync.Mutex
	topics map[string]*topic
}

// NewRegistry creates a registry whose subscriptions buffer bufferSize messages.
func NewRegistry(source SnapshotSource, bufferSize int, logger *zap.Logger, m *metrics.Metrics) *Registry {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		source:     source,
		bufferSize: bufferSize,
		logger:     logger,
		metrics:    m,
		topics:     make(map[string]*topic),
	}
}

// Subscribe registers a subscriber and returns the transcript so far.
// Messages in the snapshot are never delivered again on the subscription.
func (r *Registry) Subscribe(ctx context.Context, discussionID string) (*Subscription, []domain.Message, error) {
	t := r.acquire(discussionID)

	t.mu.Lock()
	snapshot, err := r.source.GetMessages(ctx, discussionID)
	if err != nil {
		t.mu.Unlock()
		r.release(t)
		return nil, nil, err
	}

	sub := &Subscription{
		ID:           "sub_" + uuid.New().String()[:8],
		DiscussionID: discussionID,
		ch:           make(chan domain.Message, r.bufferSize),
		topic:        t,
	}
	if n := len(snapshot); n > 0 {
		sub.after = snapshot[n-1].Seq
	}
	t.subs[sub.ID] = sub
	t.mu.Unlock()

	r.metrics.SubscriptionOpened()
	r.logger.Debug("subscription_opened",
		zap.String("discussion_id", discussionID),
		zap.String("subscription_id", sub.ID),
		zap.Int64("after_seq", sub.after))
	return sub, snapshot, nil
}

// Unsubscribe removes the subscription and closes its channel. Safe to call repeatedly.
func (r *Registry) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	t := sub.topic
	t.mu.Lock()
	removed := t.remove(sub)
	t.mu.Unlock()
	if !removed {
		return
	}
	r.release(t)
	r.metrics.SubscriptionClosed()
	r.logger.Debug("subscription_closed",
		zap.String("discussion_id", sub.DiscussionID),
		zap.String("subscription_id", sub.ID))
}

// Publish hands msg to every subscriber of its discussion without blocking.
// A subscriber whose buffer is full is removed and its channel closed.
func (r *Registry) Publish(msg domain.Message) {
	r.mu.Lock()
	t := r.topics[msg.DiscussionID]
	r.mu.Unlock()
	if t == nil {
		return
	}

	var dropped []*Subscription
	t.mu.Lock()
	for _, sub := range t.subs {
		if msg.Seq <= sub.after {
			continue
		}
		select {
		case sub.ch <- msg:
			sub.after = msg.Seq
			r.metrics.EventPublished()
		default:
			sub.dropped.Store(true)
			t.remove(sub)
			dropped = append(dropped, sub)
		}
	}
	t.mu.Unlock()

	for _, sub := range dropped {
		r.release(t)
		r.metrics.SubscriptionClosed()
		r.metrics.SubscriberDropped()
		r.logger.Warn("subscriber_dropped",
			zap.String("discussion_id", sub.DiscussionID),
			zap.String("subscription_id", sub.ID),
			zap.Int64("seq", msg.Seq))
	}
}

// Count returns the number of live subscriptions on a discussion.
func (r *Registry) Count(discussionID string) int {
	r.mu.Lock()
	t := r.topics[discussionID]
	r.mu.Unlock()
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

func (r *Registry) acquire(discussionID string) *topic {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.topics[discussionID]
	if !ok {
		t = &topic{discussionID: discussionID, subs: make(map[string]*Subscription)}
		r.topics[discussionID] = t
	}
	t.refs++
	return t
}

func (r *Registry) release(t *topic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.refs--
	if t.refs <= 0 && r.topics[t.discussionID] == t {
		delete(r.topics, t.discussionID)
	}
}

// remove must be called with t.mu held.
func (t *topic) remove(sub *Subscription) bool {
	if sub.closed {
		return false
	}
	sub.closed = true
	delete(t.subs, sub.ID)
	close(sub.ch)
	return true
}
