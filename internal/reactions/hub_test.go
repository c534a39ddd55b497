package reactions

import (
	"sync"
	"testing"
	"time"

	"github.com/localnerve/retroboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestHub(window time.Duration, limit int) (*Hub, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	h := NewHub(window, limit)
	h.now = clock.Now
	return h, clock
}

func TestPublishAssignsIDAndIncreasingTimestamps(t *testing.T) {
	h, _ := newTestHub(time.Minute, 10)

	a := h.Publish(models.ReactionEvent{BoardID: "b", Emoji: "🎉", UserID: "u"})
	b := h.Publish(models.ReactionEvent{BoardID: "b", Emoji: "👍", UserID: "u"})

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Greater(t, b.Timestamp, a.Timestamp, "same millisecond must still advance")

	got := h.Since("b", a.Timestamp)
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)

	assert.Len(t, h.Since("b", 0), 2)
	assert.Empty(t, h.Since("other", 0))
}

func TestPublishIgnoresRepeatedID(t *testing.T) {
	h, _ := newTestHub(time.Minute, 10)
	ch, cancel := h.Subscribe("b")
	defer cancel()

	first := h.Publish(models.ReactionEvent{ID: "r1", BoardID: "b", Emoji: "🔥"})
	again := h.Publish(models.ReactionEvent{ID: "r1", BoardID: "b", Emoji: "🔥"})

	assert.Equal(t, first, again)
	assert.Len(t, h.Since("b", 0), 1)
	assert.Len(t, ch, 1)
}

func TestBufferIsBounded(t *testing.T) {
	h, _ := newTestHub(time.Minute, 3)
	for i := 0; i < 5; i++ {
		h.Publish(models.ReactionEvent{BoardID: "b", Emoji: "x"})
	}
	got := h.Since("b", 0)
	assert.Len(t, got, 3)
	assert.Less(t, got[0].Timestamp, got[2].Timestamp)
}

func TestWindowEvictsOldEvents(t *testing.T) {
	h, clock := newTestHub(time.Minute, 100)
	old := h.Publish(models.ReactionEvent{BoardID: "b", Emoji: "old"})
	clock.Advance(45 * time.Second)
	fresh := h.Publish(models.ReactionEvent{BoardID: "b", Emoji: "fresh"})
	clock.Advance(30 * time.Second)

	got := h.Since("b", 0)
	require.Len(t, got, 1)
	assert.Equal(t, fresh.ID, got[0].ID)
	assert.NotEqual(t, old.ID, got[0].ID)

	clock.Advance(time.Hour)
	assert.Empty(t, h.Since("b", 0))
	assert.Empty(t, h.All())
}

func TestSubscribeReceivesAndCancelCloses(t *testing.T) {
	h, _ := newTestHub(time.Minute, 10)
	ch, cancel := h.Subscribe("b")
	assert.Equal(t, 1, h.Subscribers("b"))

	sent := h.Publish(models.ReactionEvent{BoardID: "b", Emoji: "👏"})
	h.Publish(models.ReactionEvent{BoardID: "other", Emoji: "👏"})

	select {
	case ev := <-ch:
		assert.Equal(t, sent.ID, ev.ID)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
	assert.Len(t, ch, 0)

	cancel()
	cancel()
	assert.Equal(t, 0, h.Subscribers("b"))
	_, open := <-ch
	assert.False(t, open)
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	h, _ := newTestHub(time.Minute, 1000)
	_, cancel := h.Subscribe("b")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*4; i++ {
			h.Publish(models.ReactionEvent{BoardID: "b", Emoji: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	assert.Len(t, h.Since("b", 0), subscriberBuffer*4)
}

func TestForget(t *testing.T) {
	h, _ := newTestHub(time.Minute, 10)
	h.Publish(models.ReactionEvent{BoardID: "b", Emoji: "x"})
	h.Forget("b")
	assert.Empty(t, h.Since("b", 0))
}
