// Package notify tells readers that a point of interest changed and should be
// fetched again.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/metrics"
)

// Action is the moderation decision behind a change
type Action string

const (
	ActionApproved Action = "approved"
	ActionRejected Action = "rejected"
)

// Change is published after a moderation decision changed state.
type Change struct {
	PointID    string    `json:"point_id"`
	ItemKind   string    `json:"item_kind"`
	ItemID     string    `json:"item_id"`
	Action     Action    `json:"action"`
	Deleted    bool      `json:"deleted"`
	Moderator  string    `json:"moderator,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers a change to its readers
type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

type subscriber struct {
	pointID string
	ch      chan Change
}

// Hub is an in-process publish/subscribe channel. Delivery never blocks the
// publisher; a subscriber whose buffer is full misses the change.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]*subscriber
	next   int
	closed bool
	logger ectologger.Logger
}

// NewHub creates a new hub
func NewHub(logger ectologger.Logger) *Hub {
	return &Hub{
		subs:   make(map[int]*subscriber),
		logger: logger,
	}
}

// Subscribe returns changes for pointID, or for every point when pointID is
// empty. cancel unsubscribes and closes the channel.
func (h *Hub) Subscribe(pointID string, buffer int) (changes <-chan Change, cancel func()) {
	if buffer < 1 {
		buffer = 1
	}

	sub := &subscriber{pointID: pointID, ch: make(chan Change, buffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = sub
	h.mu.Unlock()

	return sub.ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub.ch)
		}
	}
}

// Close ends every subscription. Later subscribers get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}

func (h *Hub) Publish(ctx context.Context, change Change) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if sub.pointID != "" && sub.pointID != change.PointID {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			h.logger.WithContext(ctx).WithField("point_id", change.PointID).Warn("dropping change for slow subscriber")
		}
	}

	metrics.RecordNotification("hub", "ok")
	return nil
}

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, change Change) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, change); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
