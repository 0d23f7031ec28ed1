// Package render writes engine output to WAV files without an audio device.
package render

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"time"

	wav "github.com/youpy/go-wav"
)

// BlockFrames is the number of frames pulled per callback, matching a
// typical device buffer.
const BlockFrames = 512

// ErrFrames is returned for a negative frame count.
var ErrFrames = errors.New("invalid frame count")

// Source produces interleaved stereo 16-bit frames on demand.
// *transport.Headless satisfies it.
type Source interface {
	Pump(n int) []int16
	SampleRate() int
}

// Frames converts a duration to a frame count at rate.
func Frames(d time.Duration, rate int) int {
	if d <= 0 {
		return 0
	}
	return int(d * time.Duration(rate) / time.Second)
}

// WAV pulls frames from src in BlockFrames blocks and writes them to w as
// a 16-bit stereo PCM file.
func WAV(w io.Writer, src Source, frames int) error {
	if frames < 0 {
		return fmt.Errorf("%w: %d", ErrFrames, frames)
	}

	bw := bufio.NewWriter(w)
	ww := wav.NewWriter(bw, uint32(frames), 2, uint32(src.SampleRate()), 16)

	samples := make([]wav.Sample, BlockFrames)
	for left := frames; left > 0; {
		n := min(left, BlockFrames)
		pcm := src.Pump(n)
		for i := 0; i < n; i++ {
			samples[i].Values[0] = int(pcm[i*2])
			samples[i].Values[1] = int(pcm[i*2+1])
		}
		if err := ww.WriteSamples(samples[:n]); err != nil {
			return fmt.Errorf("error writing samples: %w", err)
		}
		left -= n
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("error writing WAV file: %w", err)
	}
	return nil
}
