package pipeline

import "time"

// streamBuffer accumulates texts until a batch is full or its window ends.
// It is owned by a single Stream call.
type streamBuffer struct {
	window  time.Duration
	maxSize int

	pending []string
	timer   *time.Timer
}

func newStreamBuffer(window time.Duration, maxSize int) *streamBuffer {
	return &streamBuffer{window: window, maxSize: maxSize}
}

// add appends a text, starting the window on the first one. It reports
// whether the batch is full.
func (b *streamBuffer) add(text string) bool {
	b.pending = append(b.pending, text)
	if len(b.pending) == 1 {
		b.timer = time.NewTimer(b.window)
	}
	return len(b.pending) >= b.maxSize
}

// flushCh returns the window's channel, or nil when nothing is pending.
func (b *streamBuffer) flushCh() <-chan time.Time {
	if b.timer == nil {
		return nil
	}
	return b.timer.C
}

// drain returns the pending texts and resets the buffer.
func (b *streamBuffer) drain() []string {
	texts := b.pending
	b.pending = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	return texts
}
