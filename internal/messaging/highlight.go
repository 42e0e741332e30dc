package messaging

import (
	"sync"
	"time"

	"github.com/saeid-a/VolunteerHub/internal/models"
)

const DefaultHighlightDuration = 2 * time.Second

type ReplyState struct {
	Active bool
	Target *models.Message
}

func BeginReply(message models.Message) ReplyState {
	return ReplyState{Active: true, Target: &message}
}

func CancelReply() ReplyState {
	return ReplyState{}
}

type HighlightState struct {
	ID           int64
	ExpiresAfter time.Duration
}

// Highlighter keeps at most one highlighted message and clears it after a
// fixed duration. Highlighting again before expiry restarts the duration.
type Highlighter struct {
	duration time.Duration
	onClear  func(id int64)

	mu         sync.Mutex
	current    *HighlightState
	timer      *time.Timer
	generation uint64
}

// NewHighlighter returns a Highlighter. onClear, if set, runs once per
// expiry on the timer goroutine.
func NewHighlighter(duration time.Duration, onClear func(id int64)) *Highlighter {
	if duration <= 0 {
		duration = DefaultHighlightDuration
	}
	return &Highlighter{duration: duration, onClear: onClear}
}

func (h *Highlighter) Highlight(id int64) HighlightState {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopLocked()
	state := HighlightState{ID: id, ExpiresAfter: h.duration}
	h.current = &state

	generation := h.generation
	h.timer = time.AfterFunc(h.duration, func() {
		h.expire(generation)
	})
	return state
}

func (h *Highlighter) expire(generation uint64) {
	h.mu.Lock()
	if generation != h.generation || h.current == nil {
		h.mu.Unlock()
		return
	}
	id := h.current.ID
	h.current = nil
	h.timer = nil
	h.generation++
	onClear := h.onClear
	h.mu.Unlock()

	if onClear != nil {
		onClear(id)
	}
}

// Current returns the highlighted message, if any.
func (h *Highlighter) Current() (HighlightState, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return HighlightState{}, false
	}
	return *h.current, true
}

// Clear drops the highlight without running the clear callback.
func (h *Highlighter) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
	h.current = nil
}

// Stop releases the pending timer.
func (h *Highlighter) Stop() {
	h.Clear()
}

func (h *Highlighter) stopLocked() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.generation++
}
