package stream

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Hub tracks live subscriptions per team and delivers events to them
// without blocking the publisher.
type Hub struct {
	mu         sync.RWMutex
	subs       map[string]map[*Subscription]struct{}
	bufferSize int
	logger     *slog.Logger
}

func NewHub(bufferSize int, logger *slog.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = 32
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:       make(map[string]map[*Subscription]struct{}),
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Subscription receives events for one team until closed.
type Subscription struct {
	teamID  string
	ch      chan MessageEvent
	hub     *Hub
	once    sync.Once
	dropped atomic.Int64
}

// Subscribe registers a new subscription for teamID.
func (h *Hub) Subscribe(teamID string) *Subscription {
	sub := &Subscription{
		teamID: teamID,
		ch:     make(chan MessageEvent, h.bufferSize),
		hub:    h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[teamID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[teamID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Deliver hands evt to every subscriber of its team and returns how many
// accepted it. Subscribers with a full buffer miss the event.
func (h *Hub) Deliver(evt MessageEvent) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.subs[evt.TeamID] {
		select {
		case sub.ch <- evt:
			delivered++
		default:
			sub.dropped.Add(1)
			h.logger.Warn("stream subscriber too slow, dropping event",
				"team_id", evt.TeamID,
				"message_id", evt.ID,
			)
		}
	}
	return delivered
}

// SubscriberCount reports the live subscriptions for teamID.
func (h *Hub) SubscriberCount(teamID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[teamID])
}

// Events returns the receive channel. It is closed by Close.
func (s *Subscription) Events() <-chan MessageEvent {
	return s.ch
}

// Dropped reports how many events this subscriber missed.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Close unregisters the subscription and closes its channel. Idempotent.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[s.teamID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, s.teamID)
			}
		}
		close(s.ch)
	})
}
