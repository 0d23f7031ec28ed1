// Package transport delivers generated audio to an output device. Every
// backend pulls interleaved stereo 16-bit frames from a single Generator
// callback on its own goroutine.
package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zurustar/oplmusic/pkg/logger"
)

// Backend names accepted by Open.
const (
	BackendEbiten    = "ebiten"
	BackendOto       = "oto"
	BackendPortAudio = "portaudio"
	BackendHeadless  = "headless"
)

// DefaultFrames is the buffer size, in stereo frames, requested per callback
// by backends that let us choose.
const DefaultFrames = 512

var (
	// ErrUnknownBackend is returned by Open for an unrecognized name.
	ErrUnknownBackend = errors.New("unknown audio backend")
	// ErrBackendUnavailable is returned when a backend was not compiled in.
	ErrBackendUnavailable = errors.New("audio backend not available in this build")
)

// Buffer is one fill request. Samples holds room for MaxSampleCount
// interleaved stereo frames; the generator reports how many it wrote in
// SampleCount.
type Buffer struct {
	Samples        []int16
	MaxSampleCount int
	SampleCount    int
}

// Generator fills a buffer. It runs on the backend's callback goroutine.
type Generator func(buf *Buffer)

// Backend is an output device the engine can register a generator with.
type Backend interface {
	IsInitialized() bool
	SetGenerator(g Generator)
	Close() error
}

// Open creates the named backend at sampleRate.
func Open(name string, sampleRate int, log *slog.Logger) (Backend, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	var (
		b   Backend
		err error
	)
	switch name {
	case BackendEbiten, "":
		var e *Ebiten
		if e, err = NewEbiten(sampleRate, log); err == nil {
			b = e
		}
	case BackendOto:
		var o *Oto
		if o, err = NewOto(sampleRate, log); err == nil {
			b = o
		}
	case BackendPortAudio:
		var p *PortAudio
		if p, err = NewPortAudio(sampleRate, DefaultFrames, log); err == nil {
			b = p
		}
	case BackendHeadless:
		b = NewHeadless(sampleRate, DefaultFrames)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// pump owns the registered generator and the scratch buffer shared by every
// backend. The mutex is held for the whole callback, so SetGenerator returns
// only after any in-flight fill has finished.
type pump struct {
	mu  sync.Mutex
	gen Generator
	buf Buffer
}

// SetGenerator installs g, or silences output when g is nil.
func (p *pump) SetGenerator(g Generator) {
	p.mu.Lock()
	p.gen = g
	p.mu.Unlock()
}

// fill requests frames from the generator into out, which must hold
// 2*frames samples. Anything the generator leaves unwritten is zeroed.
func (p *pump) fill(out []int16, frames int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	written := 0
	if p.gen != nil {
		p.buf.Samples = out[:frames*2]
		p.buf.MaxSampleCount = frames
		p.buf.SampleCount = 0
		p.gen(&p.buf)
		written = min(max(p.buf.SampleCount, 0), frames)
		p.buf.Samples = nil
	}
	clear(out[written*2 : frames*2])
}

// reader adapts a pump to the io.Reader interface that ebiten and oto pull
// little-endian PCM from.
type reader struct {
	p       *pump
	scratch []int16
}

func (r *reader) Read(b []byte) (int, error) {
	frames := len(b) / 4
	if frames == 0 {
		return 0, nil
	}
	if cap(r.scratch) < frames*2 {
		r.scratch = make([]int16, frames*2)
	}
	s := r.scratch[:frames*2]
	r.p.fill(s, frames)
	for i, v := range s {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(v))
	}
	return frames * 4, nil
}
