package music

import (
	"math"

	"github.com/zurustar/oplmusic/pkg/transport"
)

const (
	// maxStepsPerBuffer bounds event processing in one fill so a burst of
	// simultaneous events cannot stall the callback.
	maxStepsPerBuffer = 200

	// renderChunk is the most frames requested from the chip at once.
	renderChunk = 512

	outputGain = 10

	microsPerSecond = 1000000
)

// Fill is the transport generator. It always writes exactly
// buf.MaxSampleCount frames: silence when idle, otherwise chip output
// interleaved with the events that fall inside the buffer.
func (e *Engine) Fill(buf *transport.Buffer) {
	n := min(buf.MaxSampleCount, len(buf.Samples)/2)
	out := buf.Samples[:n*2]
	buf.SampleCount = n

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.playing || e.paused || e.chip == nil || e.cursors == nil {
		clear(out)
		return
	}

	filled, steps := 0, 0
	for filled < n {
		if e.running == 0 {
			if steps >= maxStepsPerBuffer || !e.endOfSong() {
				break
			}
			steps++
			continue
		}

		next := e.nextEventTime()
		if next <= e.now {
			if steps >= maxStepsPerBuffer {
				break
			}
			e.step()
			steps++
			continue
		}

		frames := n - filled
		if next != never {
			due := (next - e.now) * e.sampleRate / microsPerSecond
			// An event less than one frame away still costs a frame, so the
			// clock never runs ahead of the rendered audio.
			frames = int(min(max(due, 1), uint64(frames)))
		}
		e.render(out[filled*2:], frames)
		filled += frames
	}

	if filled < n {
		e.render(out[filled*2:], n-filled)
	}
}

// render pulls frames from the chip in chunks, applies gain and advances
// the clock by exactly the rendered duration.
func (e *Engine) render(out []int16, frames int) {
	for frames > 0 {
		chunk := min(frames, renderChunk)
		e.chip.RenderStereo(e.scratch[:chunk], chunk)
		for i, s := range e.scratch[:chunk] {
			out[i*2] = amplify(int16(s >> 16))
			out[i*2+1] = amplify(int16(s))
		}
		out = out[chunk*2:]
		frames -= chunk
		e.advance(chunk)
	}
}

// advance moves the clock forward by frames, carrying the sub-microsecond
// remainder so long renders do not drift.
func (e *Engine) advance(frames int) {
	total := uint64(frames)*microsPerSecond + e.nowFrac
	e.now += total / e.sampleRate
	e.nowFrac = total % e.sampleRate
}

func amplify(s int16) int16 {
	v := int32(s) * outputGain
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
