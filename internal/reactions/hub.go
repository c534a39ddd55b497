// hub.go
//
// A real-time retrospective board service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of retroboard.
// retroboard is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// retroboard is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with retroboard.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

// Package reactions fans out ephemeral emoji and GIF events per board.
//
// Delivery is best effort: events live in a bounded, time evicted buffer that
// pollers read with Since, and push subscribers that fall behind miss events.
package reactions

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/retroboard/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "retroboard_reactions_published_total",
		Help: "Reaction events accepted by the hub.",
	})
	droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "retroboard_reactions_dropped_total",
		Help: "Reaction events not delivered to a slow subscriber.",
	})
	subscriberGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "retroboard_reaction_subscribers",
		Help: "Open reaction push subscriptions.",
	})
)

// subscriberBuffer is the per subscriber channel capacity
const subscriberBuffer = 16

// Hub buffers and broadcasts reaction events
type Hub struct {
	mu     sync.RWMutex
	window time.Duration
	limit  int
	boards map[string][]models.ReactionEvent
	subs   map[string]map[chan models.ReactionEvent]struct{}

	// now is replaced in tests
	now func() time.Time
}

// NewHub keeps at most limit events per board, none older than window
func NewHub(window time.Duration, limit int) *Hub {
	if limit <= 0 {
		limit = 1
	}
	return &Hub{
		window: window,
		limit:  limit,
		boards: make(map[string][]models.ReactionEvent),
		subs:   make(map[string]map[chan models.ReactionEvent]struct{}),
		now:    time.Now,
	}
}

// Publish buffers ev and sends it to the board's subscribers.
// The returned event carries the id and timestamp the hub assigned. Publishing
// an id that is still buffered returns the buffered event without a second broadcast.
func (h *Hub) Publish(ev models.ReactionEvent) models.ReactionEvent {
	h.mu.Lock()
	buf := h.evict(ev.BoardID)

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	} else {
		for _, existing := range buf {
			if existing.ID == ev.ID {
				h.mu.Unlock()
				return existing
			}
		}
	}

	ev.Timestamp = h.now().UnixMilli()
	if n := len(buf); n > 0 && ev.Timestamp <= buf[n-1].Timestamp {
		ev.Timestamp = buf[n-1].Timestamp + 1
	}

	buf = append(buf, ev)
	if len(buf) > h.limit {
		buf = append(buf[:0:0], buf[len(buf)-h.limit:]...)
	}
	h.boards[ev.BoardID] = buf

	for ch := range h.subs[ev.BoardID] {
		select {
		case ch <- ev:
		default:
			droppedTotal.Inc()
		}
	}
	h.mu.Unlock()

	publishedTotal.Inc()
	return ev
}

// evict drops events older than the window; callers hold the write lock
func (h *Hub) evict(boardID string) []models.ReactionEvent {
	buf := h.boards[boardID]
	if h.window <= 0 || len(buf) == 0 {
		return buf
	}
	cutoff := h.now().Add(-h.window).UnixMilli()
	i := 0
	for i < len(buf) && buf[i].Timestamp < cutoff {
		i++
	}
	if i == 0 {
		return buf
	}
	if i == len(buf) {
		delete(h.boards, boardID)
		return nil
	}
	buf = append(buf[:0:0], buf[i:]...)
	h.boards[boardID] = buf
	return buf
}

// Since returns the board's retained events newer than since, oldest first
func (h *Hub) Since(boardID string, since int64) []models.ReactionEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := []models.ReactionEvent{}
	for _, ev := range h.evict(boardID) {
		if ev.Timestamp > since {
			out = append(out, ev)
		}
	}
	return out
}

// All returns every retained event across boards
func (h *Hub) All() []models.ReactionEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := []models.ReactionEvent{}
	for boardID := range h.boards {
		out = append(out, h.evict(boardID)...)
	}
	return out
}

// Forget drops the buffer of a deleted board
func (h *Hub) Forget(boardID string) {
	h.mu.Lock()
	delete(h.boards, boardID)
	h.mu.Unlock()
}

// Subscribe registers a push subscriber for boardID.
// cancel unregisters and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(boardID string) (<-chan models.ReactionEvent, func()) {
	ch := make(chan models.ReactionEvent, subscriberBuffer)

	h.mu.Lock()
	if h.subs[boardID] == nil {
		h.subs[boardID] = make(map[chan models.ReactionEvent]struct{})
	}
	h.subs[boardID][ch] = struct{}{}
	h.mu.Unlock()
	subscriberGauge.Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			if subs, ok := h.subs[boardID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(h.subs, boardID)
				}
			}
			h.mu.Unlock()
			close(ch)
			subscriberGauge.Dec()
		})
	}
}

// Subscribers returns the number of push subscribers of boardID
func (h *Hub) Subscribers(boardID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[boardID])
}
