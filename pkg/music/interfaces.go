package music

import (
	"io/fs"

	"github.com/zurustar/oplmusic/pkg/midifile"
	"github.com/zurustar/oplmusic/pkg/opl"
	"github.com/zurustar/oplmusic/pkg/transport"
)

// Chip is the FM synthesizer the engine drives.
type Chip interface {
	Reset()
	WriteRegister(reg, val uint8)
	// RenderStereo renders n frames, each packing left in the high 16 bits
	// and right in the low 16 bits.
	RenderStereo(buf []int32, n int)
	Close() error
}

// ChipFactory creates a chip for the given clock and output rate.
type ChipFactory func(clockHz, sampleRate int) (Chip, error)

// TrackIterator walks the events of one track.
type TrackIterator interface {
	Next() (midifile.Event, bool)
	// DeltaTime is the tick delta of the event Next will return.
	DeltaTime() uint32
	Restart()
	Close()
}

// Song is a loaded multi-track file.
type Song interface {
	TrackCount() int
	TicksPerBeat() int
	Track(i int) (TrackIterator, error)
	Close()
}

// SongLoader parses file bytes into a song.
type SongLoader func(data []byte) (Song, error)

// FileLoader opens music files by name.
type FileLoader interface {
	Open(name string) (fs.File, error)
}

// Transport is the audio output the generator is registered with.
type Transport interface {
	IsInitialized() bool
	SetGenerator(g transport.Generator)
}

// NewOPLChip creates the built-in OPL2 model.
func NewOPLChip(clockHz, sampleRate int) (Chip, error) {
	c, err := opl.New(clockHz, sampleRate)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// midiSong adapts a midifile.File to Song.
type midiSong struct {
	*midifile.File
}

func (s midiSong) Track(i int) (TrackIterator, error) {
	it, err := s.File.Track(i)
	if err != nil {
		return nil, err
	}
	return it, nil
}

// LoadMIDISong parses data as a Standard MIDI File.
func LoadMIDISong(data []byte) (Song, error) {
	f, err := midifile.Load(data)
	if err != nil {
		return nil, err
	}
	return midiSong{f}, nil
}
