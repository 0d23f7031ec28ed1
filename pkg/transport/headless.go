package transport

import (
	"context"
	"time"
)

// Headless is a device-less backend. Callers drive it with Pump, or let Run
// pull buffers at the real-time rate and discard them.
type Headless struct {
	pump
	sampleRate int
	frames     int
	out        []int16
}

// NewHeadless creates a headless backend delivering frames per pull.
func NewHeadless(sampleRate, frames int) *Headless {
	if frames <= 0 {
		frames = DefaultFrames
	}
	return &Headless{sampleRate: sampleRate, frames: frames}
}

// IsInitialized always reports true.
func (h *Headless) IsInitialized() bool { return true }

// SampleRate returns the configured output rate.
func (h *Headless) SampleRate() int { return h.sampleRate }

// Pump performs one callback of n frames and returns the interleaved
// samples. The slice is reused by the next call.
func (h *Headless) Pump(n int) []int16 {
	if cap(h.out) < n*2 {
		h.out = make([]int16, n*2)
	}
	out := h.out[:n*2]
	h.fill(out, n)
	return out
}

// Run pulls one buffer per period until ctx is cancelled.
func (h *Headless) Run(ctx context.Context) error {
	period := time.Duration(h.frames) * time.Second / time.Duration(h.sampleRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.Pump(h.frames)
		}
	}
}

// Close is a no-op.
func (h *Headless) Close() error { return nil }
