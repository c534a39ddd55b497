package boardview

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/retroboard/internal/facade"
	"github.com/localnerve/retroboard/internal/models"
	"github.com/localnerve/retroboard/internal/types"
)

// PollInterval is how often the feed asks for new reactions when it cannot subscribe
const PollInterval = 3 * time.Second

// seenLimit bounds the dedup set; older ids are pruned past it
const seenLimit = 1024

// Player shows a reaction
type Player func(ev models.ReactionEvent)

// ReactionFeed plays the reactions of one board exactly once each
type ReactionFeed struct {
	ds      facade.DataService
	state   *AppState
	boardID string
	play    Player

	// Interval is the poll period
	Interval time.Duration
	// Push subscribes to the stream before falling back to polling
	Push bool

	mu       sync.Mutex
	seen     map[string]int64
	lastSeen int64
	hidden   atomic.Bool
}

// NewReactionFeed returns a feed that plays reactions published from now on
func NewReactionFeed(ds facade.DataService, state *AppState, boardID string, play Player) *ReactionFeed {
	return &ReactionFeed{
		ds:       ds,
		state:    state,
		boardID:  boardID,
		play:     play,
		Interval: PollInterval,
		Push:     true,
		seen:     map[string]int64{},
		lastSeen: time.Now().UnixMilli(),
	}
}

// SetHidden pauses playback and polling while the view is not visible
func (f *ReactionFeed) SetHidden(hidden bool) {
	f.hidden.Store(hidden)
}

// Hidden reports whether the feed is paused
func (f *ReactionFeed) Hidden() bool {
	return f.hidden.Load()
}

// Send plays a reaction locally, then publishes it under the same id so the
// echo from the server is not played again
func (f *ReactionFeed) Send(ctx context.Context, emoji, gifURL string) (*models.ReactionEvent, error) {
	ev := models.ReactionEvent{
		ID:        uuid.NewString(),
		BoardID:   f.boardID,
		Emoji:     emoji,
		GifURL:    gifURL,
		UserID:    f.state.UserID(),
		Timestamp: time.Now().UnixMilli(),
	}
	f.mu.Lock()
	f.markSeen(ev.ID, ev.Timestamp)
	f.mu.Unlock()
	f.play(ev)

	return f.ds.PublishReaction(ctx, types.ReactionRequest{
		BoardID:    f.boardID,
		Emoji:      emoji,
		GifURL:     gifURL,
		ReactionID: ev.ID,
	})
}

// Deliver plays ev unless its id was seen before or the feed is hidden.
// It reports whether ev was played.
func (f *ReactionFeed) Deliver(ev models.ReactionEvent) bool {
	f.mu.Lock()
	if _, dup := f.seen[ev.ID]; dup {
		f.mu.Unlock()
		return false
	}
	f.markSeen(ev.ID, ev.Timestamp)
	if ev.Timestamp > f.lastSeen {
		f.lastSeen = ev.Timestamp
	}
	f.mu.Unlock()

	if f.Hidden() {
		return false
	}
	f.play(ev)
	return true
}

func (f *ReactionFeed) markSeen(id string, ts int64) {
	f.seen[id] = ts
	if len(f.seen) <= seenLimit {
		return
	}
	// drop the older half
	var stamps []int64
	for _, t := range f.seen {
		stamps = append(stamps, t)
	}
	cut := midpoint(stamps)
	for k, t := range f.seen {
		if t < cut {
			delete(f.seen, k)
		}
	}
}

func midpoint(v []int64) int64 {
	if len(v) == 0 {
		return 0
	}
	lo, hi := v[0], v[0]
	for _, x := range v {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo + (hi-lo)/2
}

// PollOnce fetches and plays the reactions newer than the last one seen
func (f *ReactionFeed) PollOnce(ctx context.Context) (int, error) {
	f.mu.Lock()
	since := f.lastSeen
	f.mu.Unlock()

	events, err := f.ds.ReactionsSince(ctx, f.boardID, since)
	if err != nil {
		return 0, err
	}
	played := 0
	for _, ev := range events {
		if f.Deliver(ev) {
			played++
		}
	}
	return played, nil
}

// Run plays reactions until ctx is done. It uses the push subscription when
// the data service offers one and polls every Interval otherwise.
func (f *ReactionFeed) Run(ctx context.Context) error {
	if f.Push {
		events, err := f.ds.SubscribeReactions(ctx, f.boardID)
		if err == nil {
			for ev := range events {
				f.Deliver(ev)
			}
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("Reaction stream for board %s ended, polling instead", f.boardID)
		} else {
			log.Printf("Reaction stream for board %s unavailable, polling instead: %v", f.boardID, err)
		}
	}
	return f.poll(ctx)
}

func (f *ReactionFeed) poll(ctx context.Context) error {
	interval := f.Interval
	if interval <= 0 {
		interval = PollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if f.Hidden() {
				continue
			}
			if _, err := f.PollOnce(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Reaction poll for board %s failed: %v", f.boardID, err)
			}
		}
	}
}
