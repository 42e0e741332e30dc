package messaging

import (
	"sync"
	"testing"
	"time"

	"github.com/saeid-a/VolunteerHub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type clearRecorder struct {
	mu    sync.Mutex
	ids   []int64
	times []time.Time
}

func (r *clearRecorder) record(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	r.times = append(r.times, time.Now())
}

func (r *clearRecorder) snapshot() ([]int64, []time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.ids...), append([]time.Time(nil), r.times...)
}

func TestReplyStateTransitions(t *testing.T) {
	target := models.Message{ID: 4, Body: "original"}

	state := BeginReply(target)
	assert.True(t, state.Active)
	require.NotNil(t, state.Target)
	assert.Equal(t, int64(4), state.Target.ID)

	assert.Equal(t, ReplyState{}, CancelReply())
}

func TestHighlightClearsAfterDuration(t *testing.T) {
	recorder := &clearRecorder{}
	h := NewHighlighter(30*time.Millisecond, recorder.record)
	defer h.Stop()

	state := h.Highlight(9)
	assert.Equal(t, HighlightState{ID: 9, ExpiresAfter: 30 * time.Millisecond}, state)

	current, ok := h.Current()
	require.True(t, ok)
	assert.Equal(t, int64(9), current.ID)

	require.Eventually(t, func() bool {
		_, ok := h.Current()
		return !ok
	}, time.Second, 5*time.Millisecond)

	ids, _ := recorder.snapshot()
	assert.Equal(t, []int64{9}, ids)
}

func TestHighlightSameIDRestartsDuration(t *testing.T) {
	const duration = 60 * time.Millisecond
	recorder := &clearRecorder{}
	h := NewHighlighter(duration, recorder.record)
	defer h.Stop()

	h.Highlight(5)
	time.Sleep(duration / 2)
	second := time.Now()
	h.Highlight(5)

	require.Eventually(t, func() bool {
		ids, _ := recorder.snapshot()
		return len(ids) > 0
	}, time.Second, 5*time.Millisecond)
	time.Sleep(duration)

	ids, times := recorder.snapshot()
	require.Equal(t, []int64{5}, ids)
	assert.GreaterOrEqual(t, times[0].Sub(second), duration)
}

func TestHighlightNewIDReplacesOld(t *testing.T) {
	recorder := &clearRecorder{}
	h := NewHighlighter(20*time.Millisecond, recorder.record)
	defer h.Stop()

	h.Highlight(1)
	h.Highlight(2)

	require.Eventually(t, func() bool {
		ids, _ := recorder.snapshot()
		return len(ids) == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	ids, _ := recorder.snapshot()
	assert.Equal(t, []int64{2}, ids)
}

func TestHighlightClearSkipsCallback(t *testing.T) {
	recorder := &clearRecorder{}
	h := NewHighlighter(20*time.Millisecond, recorder.record)

	h.Highlight(3)
	h.Clear()
	time.Sleep(50 * time.Millisecond)

	_, ok := h.Current()
	assert.False(t, ok)
	ids, _ := recorder.snapshot()
	assert.Empty(t, ids)
}
