package music

import (
	"fmt"
	"io"
)

// Init creates the chip, enables waveform selection, keys off every voice
// and resets the channel table. Calling it again is a no-op.
func (e *Engine) Init() error {
	e.ctl.Lock()
	defer e.ctl.Unlock()
	return e.init()
}

func (e *Engine) init() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return nil
	}

	chip, err := e.newChip(e.clockHz, int(e.sampleRate))
	if err != nil {
		e.log.Error("Failed to create FM chip", "error", err)
		return fmt.Errorf("%w: %v", ErrChipCreate, err)
	}
	e.chip = chip
	e.resetChip()
	e.resetChannels()
	e.initialized = true

	e.log.Info("Music engine initialized", "clock", e.clockHz, "sampleRate", e.sampleRate)
	return nil
}

// resetChip clears chip registers and the voice table.
func (e *Engine) resetChip() {
	e.chip.Reset()
	e.write(0x01, 0x20) // enable waveform select
	for i := range e.voices {
		e.voices[i] = Voice{}
		e.write(0xB0+uint8(i), 0x00)
	}
}

// Shutdown stops playback and releases the chip.
func (e *Engine) Shutdown() {
	e.ctl.Lock()
	defer e.ctl.Unlock()

	e.mu.Lock()
	initialized := e.initialized
	e.mu.Unlock()
	if !initialized {
		return
	}

	e.stop()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.chip.Close(); err != nil {
		e.log.Warn("Failed to close FM chip", "error", err)
	}
	e.chip = nil
	e.initialized = false
}

// PlayMIDI stops the current song, loads name through the file loader and
// starts playing it. On any failure nothing is registered with the
// transport and the engine stays stopped.
func (e *Engine) PlayMIDI(name string, loop bool) error {
	e.ctl.Lock()
	defer e.ctl.Unlock()

	if err := e.init(); err != nil {
		return err
	}
	e.stop()

	data, err := e.readFile(name)
	if err != nil {
		e.log.Error("Failed to read music file", "name", name, "error", err)
		return err
	}

	song, err := e.loadSong(data)
	if err != nil {
		e.log.Error("Failed to load song", "name", name, "error", err)
		return fmt.Errorf("%w: %s: %v", ErrSongLoad, name, err)
	}

	cursors, err := openCursors(song)
	if err != nil {
		song.Close()
		e.log.Error("Failed to open song tracks", "name", name, "error", err)
		return fmt.Errorf("%w: %s: %v", ErrSongLoad, name, err)
	}

	e.mu.Lock()
	e.song = song
	e.cursors = cursors
	e.running = len(cursors)
	e.usPerBeat = DefaultTempo
	e.ticksPerBeat = uint32(song.TicksPerBeat())
	e.now, e.nowFrac, e.loops = 0, 0, 0
	e.drained = false
	for i := range e.cursors {
		e.scheduleNext(&e.cursors[i])
	}
	e.resetChannels()
	e.resetChip()
	e.looping = loop
	e.paused = false
	e.playing = true
	e.mu.Unlock()

	// Register only once the state above is complete.
	if e.transport != nil && e.transport.IsInitialized() {
		e.transport.SetGenerator(e.Fill)
	}

	e.log.Info("Playing song", "name", name, "tracks", len(cursors), "ticksPerBeat", song.TicksPerBeat(), "loop", loop)
	return nil
}

func openCursors(song Song) ([]cursor, error) {
	if song.TicksPerBeat() <= 0 {
		return nil, fmt.Errorf("invalid time division %d", song.TicksPerBeat())
	}
	cursors := make([]cursor, song.TrackCount())
	for i := range cursors {
		it, err := song.Track(i)
		if err != nil {
			for _, c := range cursors[:i] {
				c.it.Close()
			}
			return nil, err
		}
		cursors[i] = cursor{it: it, active: true}
	}
	return cursors, nil
}

// readFile reads a whole file through the loader.
func (e *Engine) readFile(name string) ([]byte, error) {
	if e.files == nil {
		return nil, ErrNoFileLoader
	}

	f, err := e.files.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFileOpen, name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFileOpen, name, err)
	}
	size := info.Size()
	if size <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrFileEmpty, name)
	}

	data := make([]byte, size)
	n, err := io.ReadFull(f, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%d/%d bytes)", ErrShortRead, name, n, size)
	}
	return data, nil
}

// Stop unregisters the generator, releases every sounding voice and frees
// the song.
func (e *Engine) Stop() {
	e.ctl.Lock()
	defer e.ctl.Unlock()
	e.stop()
}

func (e *Engine) stop() {
	e.mu.Lock()
	e.playing = false
	e.paused = false
	e.mu.Unlock()

	// Waits for any in-flight Fill.
	if e.transport != nil && e.transport.IsInitialized() {
		e.transport.SetGenerator(nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.voices {
		e.noteOff(i)
	}
	for _, c := range e.cursors {
		c.it.Close()
	}
	e.cursors = nil
	if e.song != nil {
		e.song.Close()
		e.song = nil
	}
	e.running = 0
	e.now, e.nowFrac = 0, 0
}

// Pause keys off every sounding voice and freezes the song clock. Voice
// state is kept, but the notes do not resume.
func (e *Engine) Pause() {
	e.ctl.Lock()
	defer e.ctl.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.playing {
		return
	}
	e.paused = true
	for i, v := range e.voices {
		if v.Active {
			e.write(0xB0+uint8(i), 0x00)
		}
	}
}

// Resume continues a paused song.
func (e *Engine) Resume() {
	e.ctl.Lock()
	defer e.ctl.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
}

// IsPlaying reports whether a song is playing and not paused.
func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing && !e.paused
}

// SetVolume sets the master volume in 0..255. It is stored at half
// resolution, so Volume returns an even value.
func (e *Engine) SetVolume(volume int) {
	e.ctl.Lock()
	defer e.ctl.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()

	e.masterVolume = min(max(volume, 0), 255) / 2
	for i := range e.voices {
		if e.voices[i].Active {
			e.refreshVolume(i)
		}
	}
}

// Volume returns the master volume in 0..254.
func (e *Engine) Volume() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.masterVolume * 2
}

// RegisterTimbreBank loads a 256-entry instrument bank. A nil slice is
// ignored.
func (e *Engine) RegisterTimbreBank(data []byte) error {
	return e.bank.Load(data)
}
