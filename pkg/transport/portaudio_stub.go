//go:build !portaudio

package transport

import (
	"fmt"
	"log/slog"
)

// PortAudio is only available when built with the portaudio tag.
type PortAudio struct {
	pump
}

// NewPortAudio reports that PortAudio support was not compiled in.
func NewPortAudio(sampleRate, frames int, log *slog.Logger) (*PortAudio, error) {
	return nil, fmt.Errorf("%w: %s (rebuild with -tags portaudio)", ErrBackendUnavailable, BackendPortAudio)
}

// IsInitialized always reports false.
func (p *PortAudio) IsInitialized() bool { return false }

// Close is a no-op.
func (p *PortAudio) Close() error { return nil }
