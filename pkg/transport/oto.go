package transport

import (
	"fmt"
	"log/slog"

	"github.com/ebitengine/oto/v3"
)

// Oto plays directly through an oto context.
type Oto struct {
	pump
	ctx    *oto.Context
	player *oto.Player
	log    *slog.Logger
}

// NewOto opens the default device as 16-bit stereo at sampleRate.
func NewOto(sampleRate int, log *slog.Logger) (*Oto, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}
	<-ready

	o := &Oto{ctx: ctx, log: log}
	o.player = ctx.NewPlayer(&reader{p: &o.pump})
	o.player.SetBufferSize(DefaultFrames * 4 * 4)
	o.player.Play()

	log.Debug("Oto audio backend started", "sampleRate", sampleRate)
	return o, nil
}

// IsInitialized reports whether the player is open.
func (o *Oto) IsInitialized() bool { return o.player != nil }

// Close stops the player. The oto context lives until process exit.
func (o *Oto) Close() error {
	if o.player == nil {
		return nil
	}
	o.SetGenerator(nil)
	err := o.player.Close()
	o.player = nil
	return err
}
