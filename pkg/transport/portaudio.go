//go:build portaudio

package transport

import (
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"
)

// PortAudio drives the generator from PortAudio's callback thread.
type PortAudio struct {
	pump
	stream *portaudio.Stream
	log    *slog.Logger
}

// NewPortAudio opens the default output as 16-bit stereo.
func NewPortAudio(sampleRate, frames int, log *slog.Logger) (*PortAudio, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	p := &PortAudio{log: log}
	stream, err := portaudio.OpenDefaultStream(0, 2, float64(sampleRate), frames, func(out []int16) {
		p.fill(out, len(out)/2)
	})
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start portaudio stream: %w", err)
	}
	p.stream = stream

	log.Debug("PortAudio backend started", "sampleRate", sampleRate, "frames", frames)
	return p, nil
}

// IsInitialized reports whether the stream is running.
func (p *PortAudio) IsInitialized() bool { return p.stream != nil }

// Close stops the stream and releases PortAudio.
func (p *PortAudio) Close() error {
	if p.stream == nil {
		return nil
	}
	p.SetGenerator(nil)
	if err := p.stream.Stop(); err != nil {
		p.log.Warn("Failed to stop portaudio stream", "error", err)
	}
	err := p.stream.Close()
	p.stream = nil
	portaudio.Terminate()
	return err
}
