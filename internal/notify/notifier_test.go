package notify

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/models"
)

type recorder struct {
	mu  sync.Mutex
	got []Notification
}

func (r *recorder) Publish(n Notification) {
	r.mu.Lock()
	r.got = append(r.got, n)
	r.mu.Unlock()
}

func (r *recorder) count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := 0
	for _, n := range r.got {
		if n.Kind == kind {
			c++
		}
	}
	return c
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) add(d time.Duration) { c.t = c.t.Add(d) }

func newTestNotifier(sink Sink) (*Notifier, *clock) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(sink, Config{RatePerSecond: 30, Burst: 1, Cooldown: 200 * time.Millisecond}, WithClock(c.now)), c
}

func TestBurstProducesExactlyOneOverflow(t *testing.T) {
	rec := &recorder{}
	n, _ := newTestNotifier(rec)

	admitted := 0
	for range 100 {
		if n.Emit(FileRemoved("a.md")) {
			admitted++
		}
	}
	assert.Equal(t, 1, admitted)
	assert.Equal(t, 1, rec.count(FileRemove))
	assert.Equal(t, 1, rec.count(RateLimitOverflow))
	assert.EqualValues(t, 99, n.Suppressed())
}

func TestRateLimitBound(t *testing.T) {
	rec := &recorder{}
	n, c := newTestNotifier(rec)

	// 1000 attempts spread over one second: at most rate*T + burst admitted.
	for range 1000 {
		n.Emit(FileUpdated(models.Record{Path: "a.md"}))
		c.add(time.Millisecond)
	}
	admitted := rec.count(FileUpdate)
	assert.LessOrEqual(t, admitted, 30+1)
	assert.GreaterOrEqual(t, admitted, 29)

	// Overflows are spaced by at least the cooldown.
	overflows := rec.count(RateLimitOverflow)
	assert.LessOrEqual(t, overflows, 5+1)
	assert.GreaterOrEqual(t, overflows, 1)
}

func TestOverflowAgainAfterCooldown(t *testing.T) {
	rec := &recorder{}
	n, c := newTestNotifier(rec)

	n.Emit(FileRemoved("a"))
	n.Emit(FileRemoved("b"))
	c.add(10 * time.Millisecond)
	n.Emit(FileRemoved("c"))
	assert.Equal(t, 1, rec.count(RateLimitOverflow))

	// Tokens refill after ~33ms; the next rejection after the cooldown
	// signals again.
	c.add(250 * time.Millisecond)
	n.Emit(FileRemoved("d"))
	n.Emit(FileRemoved("e"))
	assert.Equal(t, 2, rec.count(FileRemove))
	assert.Equal(t, 2, rec.count(RateLimitOverflow))
}

func TestErrorsBypassLimiter(t *testing.T) {
	rec := &recorder{}
	n, _ := newTestNotifier(rec)
	for range 10 {
		assert.True(t, n.Emit(Failure(apperr.New(apperr.KindIO, "Error reading file"))))
	}
	assert.Equal(t, 10, rec.count(ErrorHappened))
	assert.Zero(t, rec.count(RateLimitOverflow))
	assert.True(t, n.Emit(FileRemoved("x")))
}

func TestNotificationJSON(t *testing.T) {
	n := FolderAdded("books", "books/.shelf/schema.yaml")
	data, err := json.Marshal(n)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "FolderAdd", back["kind"])
	assert.NotEmpty(t, back["id"])
	assert.Equal(t, map[string]any{"path": "books", "schemaPath": "books/.shelf/schema.yaml"}, back["folder"])
	assert.NotEqual(t, n.ID, FolderAdded("books", "").ID)
}

func TestSinksFanOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	var calls int
	Sinks{a, b, SinkFunc(func(Notification) { calls++ })}.Publish(Overflow())
	assert.Equal(t, 1, a.count(RateLimitOverflow))
	assert.Equal(t, 1, b.count(RateLimitOverflow))
	assert.Equal(t, 1, calls)
}
