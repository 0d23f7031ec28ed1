// Package music sequences multi-track MIDI songs onto a nine-voice OPL2
// chip. An Engine owns all playback state; the control methods run on the
// caller's goroutine while Fill runs on the audio transport's.
//
// Lock order is control, then transport, then engine: control methods never
// hold the engine lock while calling into the transport, and the transport
// holds its own lock while calling Fill.
package music

import (
	"log/slog"
	"sync"

	"github.com/zurustar/oplmusic/pkg/logger"
	"github.com/zurustar/oplmusic/pkg/opl"
	"github.com/zurustar/oplmusic/pkg/timbre"
)

// Default chip configuration.
const (
	DefaultClock      = opl.DefaultClock
	DefaultSampleRate = 22050
)

// Config wires an Engine to its collaborators. Zero values select the
// built-in OPL2 model, the SMF loader, a fresh timbre bank and the global
// logger. Files and Transport may be nil.
type Config struct {
	ClockHz    int
	SampleRate int

	NewChip   ChipFactory
	LoadSong  SongLoader
	Files     FileLoader
	Transport Transport
	Bank      *timbre.Bank
	Log       *slog.Logger
}

// Engine is the music playback context.
type Engine struct {
	ctl sync.Mutex // serializes control operations
	mu  sync.Mutex // guards everything below

	clockHz    int
	sampleRate uint64
	newChip    ChipFactory
	loadSong   SongLoader
	files      FileLoader
	transport  Transport
	bank       *timbre.Bank
	log        *slog.Logger

	initialized bool
	chip        Chip
	voices      [NumVoices]Voice
	channels    [NumChannels]ChannelState

	song         Song
	cursors      []cursor
	running      int
	usPerBeat    uint32
	ticksPerBeat uint32
	now          uint64 // microseconds since song start
	nowFrac      uint64 // remainder of now, in microseconds*sampleRate
	loops        int
	drained      bool // looping song with nothing left to repeat

	playing      bool
	paused       bool
	looping      bool
	masterVolume int

	scratch [renderChunk]int32
}

// New creates an engine. The chip is not created until Init or the first
// PlayMIDI.
func New(cfg Config) *Engine {
	if cfg.ClockHz <= 0 {
		cfg.ClockHz = DefaultClock
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.NewChip == nil {
		cfg.NewChip = NewOPLChip
	}
	if cfg.LoadSong == nil {
		cfg.LoadSong = LoadMIDISong
	}
	if cfg.Log == nil {
		cfg.Log = logger.GetLogger()
	}
	if cfg.Bank == nil {
		cfg.Bank = timbre.NewBank(cfg.Log)
	}

	e := &Engine{
		clockHz:      cfg.ClockHz,
		sampleRate:   uint64(cfg.SampleRate),
		newChip:      cfg.NewChip,
		loadSong:     cfg.LoadSong,
		files:        cfg.Files,
		transport:    cfg.Transport,
		bank:         cfg.Bank,
		log:          cfg.Log,
		usPerBeat:    DefaultTempo,
		ticksPerBeat: 480,
		masterVolume: 127,
	}
	e.resetChannels()
	return e
}

// SampleRate returns the output rate in frames per second.
func (e *Engine) SampleRate() int {
	return int(e.sampleRate)
}

// Status is a point-in-time view of playback.
type Status struct {
	Playing       bool
	Paused        bool
	Looping       bool
	Now           uint64 // microseconds
	Tempo         uint32 // microseconds per beat
	TicksPerBeat  uint32
	Tracks        int
	RunningTracks int
	ActiveVoices  int
	Loops         int
	Volume        int
}

// Status returns a snapshot of playback state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	active := 0
	for _, v := range e.voices {
		if v.Active {
			active++
		}
	}
	return Status{
		Playing:       e.playing,
		Paused:        e.paused,
		Looping:       e.looping,
		Now:           e.now,
		Tempo:         e.usPerBeat,
		TicksPerBeat:  e.ticksPerBeat,
		Tracks:        len(e.cursors),
		RunningTracks: e.running,
		ActiveVoices:  active,
		Loops:         e.loops,
		Volume:        e.masterVolume * 2,
	}
}

// Voices returns a copy of the voice table.
func (e *Engine) Voices() [NumVoices]Voice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.voices
}

// Channels returns a copy of the channel table.
func (e *Engine) Channels() [NumChannels]ChannelState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channels
}

// Now returns the song clock in microseconds.
func (e *Engine) Now() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}
