package transport

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
)

var (
	audioCtxOnce sync.Once
	audioCtx     *audio.Context
)

// sharedContext returns the process-wide ebiten audio context. Ebiten allows
// only one, so a later request at a different rate reuses the first.
func sharedContext(sampleRate int) *audio.Context {
	audioCtxOnce.Do(func() {
		audioCtx = audio.CurrentContext()
		if audioCtx == nil {
			audioCtx = audio.NewContext(sampleRate)
		}
	})
	return audioCtx
}

// Ebiten plays through ebiten's audio package.
type Ebiten struct {
	pump
	player *audio.Player
	log    *slog.Logger
}

// NewEbiten opens an ebiten player streaming from the generator.
func NewEbiten(sampleRate int, log *slog.Logger) (*Ebiten, error) {
	ctx := sharedContext(sampleRate)
	if ctx.SampleRate() != sampleRate {
		log.Warn("Audio context rate differs from engine rate", "context", ctx.SampleRate(), "engine", sampleRate)
	}

	e := &Ebiten{log: log}
	player, err := ctx.NewPlayer(&reader{p: &e.pump})
	if err != nil {
		return nil, fmt.Errorf("failed to create audio player: %w", err)
	}
	player.SetBufferSize(time.Duration(DefaultFrames*4) * time.Second / time.Duration(sampleRate))
	player.Play()
	e.player = player

	log.Debug("Ebiten audio backend started", "sampleRate", sampleRate)
	return e, nil
}

// IsInitialized reports whether the player is open.
func (e *Ebiten) IsInitialized() bool { return e.player != nil }

// Close stops the player.
func (e *Ebiten) Close() error {
	if e.player == nil {
		return nil
	}
	e.SetGenerator(nil)
	err := e.player.Close()
	e.player = nil
	return err
}
