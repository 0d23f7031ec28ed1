// Package midifile adapts Standard MIDI Files to the sequencer. Files are
// decoded with gomidi's smf reader; each track is exposed as a restartable
// iterator over channel and meta events.
package midifile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gitlab.com/gomidi/midi/v2/smf"
)

// Meta event types the sequencer acts on.
const (
	MetaTrackName  = 0x03
	MetaEndOfTrack = 0x2F
	MetaSetTempo   = 0x51
)

// Controllers the sequencer acts on.
const (
	ControllerVolume   = 7
	ControllerPan      = 10
	ControllerAllNotes = 123
)

var (
	// ErrInvalidFormat is returned when the data is not a readable SMF.
	ErrInvalidFormat = errors.New("invalid MIDI file format")
	// ErrUnsupportedTimeFormat is returned for SMPTE time division.
	ErrUnsupportedTimeFormat = errors.New("unsupported MIDI time format")
	// ErrTrackIndex is returned for a track index outside the file.
	ErrTrackIndex = errors.New("track index out of range")
)

// Kind classifies an event.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNoteOff
	KindNoteOn
	KindPolyAftertouch
	KindController
	KindProgramChange
	KindChannelAftertouch
	KindPitchBend
	KindSysEx
	KindMeta
)

func (k Kind) String() string {
	switch k {
	case KindNoteOff:
		return "NoteOff"
	case KindNoteOn:
		return "NoteOn"
	case KindPolyAftertouch:
		return "PolyAftertouch"
	case KindController:
		return "Controller"
	case KindProgramChange:
		return "ProgramChange"
	case KindChannelAftertouch:
		return "ChannelAftertouch"
	case KindPitchBend:
		return "PitchBend"
	case KindSysEx:
		return "SysEx"
	case KindMeta:
		return "Meta"
	default:
		return "Unknown"
	}
}

// Event is one decoded track event. Delta is in ticks since the previous
// event on the same track.
type Event struct {
	Delta    uint32
	Kind     Kind
	Channel  uint8
	Param1   uint8
	Param2   uint8
	MetaType uint8
	Data     []byte
}

// PitchBend returns the signed 14-bit bend value of a pitch bend event.
func (e Event) PitchBend() int {
	return (int(e.Param2)<<7 | int(e.Param1)) - 8192
}

// File is a decoded song.
type File struct {
	format       uint16
	ticksPerBeat uint16
	tracks       [][]Event
}

// Load decodes an SMF from memory.
func Load(data []byte) (*File, error) {
	return Read(bytes.NewReader(data))
}

// LoadFile decodes an SMF from disk.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return Load(data)
}

// Read decodes an SMF from r.
func Read(r io.Reader) (*File, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedTimeFormat, s.TimeFormat)
	}
	if ticks == 0 {
		return nil, fmt.Errorf("%w: zero ticks per beat", ErrInvalidFormat)
	}

	f := &File{
		format:       s.Format(),
		ticksPerBeat: uint16(ticks),
		tracks:       make([][]Event, len(s.Tracks)),
	}
	for i, tr := range s.Tracks {
		events := make([]Event, 0, len(tr))
		for _, ev := range tr {
			events = append(events, decode(ev.Delta, ev.Message))
		}
		f.tracks[i] = events
	}
	return f, nil
}

// New builds a file from already-decoded tracks.
func New(ticksPerBeat uint16, tracks ...[]Event) *File {
	return &File{format: 1, ticksPerBeat: ticksPerBeat, tracks: tracks}
}

// Format returns the SMF format (0, 1 or 2).
func (f *File) Format() int { return int(f.format) }

// TrackCount returns the number of tracks.
func (f *File) TrackCount() int { return len(f.tracks) }

// TicksPerBeat returns the time division in ticks per quarter note.
func (f *File) TicksPerBeat() int { return int(f.ticksPerBeat) }

// Track returns an iterator over track i.
func (f *File) Track(i int) (*Iterator, error) {
	if i < 0 || i >= len(f.tracks) {
		return nil, fmt.Errorf("%w: %d of %d", ErrTrackIndex, i, len(f.tracks))
	}
	return &Iterator{events: f.tracks[i], pos: -1}, nil
}

// Events returns the decoded events of track i.
func (f *File) Events(i int) []Event {
	if i < 0 || i >= len(f.tracks) {
		return nil
	}
	return f.tracks[i]
}

// Close drops the decoded tracks. Iterators already handed out stay valid.
func (f *File) Close() {
	f.tracks = nil
}

// Iterator walks one track. It starts positioned before the first event.
type Iterator struct {
	events []Event
	pos    int
	closed bool
}

// Next advances to the next event. It returns false once the track is
// exhausted or the iterator has been closed.
func (it *Iterator) Next() (Event, bool) {
	if it.closed || it.pos+1 >= len(it.events) {
		it.pos = len(it.events)
		return Event{}, false
	}
	it.pos++
	return it.events[it.pos], true
}

// DeltaTime returns the delta of the event the next call to Next will
// return, or 0 once the track is exhausted.
func (it *Iterator) DeltaTime() uint32 {
	if it.closed || it.pos+1 >= len(it.events) {
		return 0
	}
	return it.events[it.pos+1].Delta
}

// Restart rewinds to before the first event.
func (it *Iterator) Restart() {
	if it.closed {
		return
	}
	it.pos = -1
}

// Close ends iteration permanently.
func (it *Iterator) Close() {
	it.closed = true
	it.events = nil
}

// decode converts an SMF message read by gomidi. Running status has
// already been expanded by the reader.
func decode(delta uint32, msg smf.Message) Event {
	ev := Event{Delta: delta}

	if msg.IsMeta() {
		ev.Kind = KindMeta
		if len(msg) < 2 {
			return ev
		}
		ev.MetaType = msg[1]
		var text string
		switch {
		case msg.Is(smf.MetaTempoMsg) && len(msg) == 6 && msg[2] == 3:
			// Raw microseconds per beat; GetMetaTempo rounds through BPM.
			ev.Data = msg[3:6]
		case msg.GetMetaTrackName(&text):
			ev.Data = []byte(text)
		}
		return ev
	}

	var ch, p1, p2 uint8
	var bend uint16
	switch {
	case msg.GetNoteOn(&ch, &p1, &p2):
		ev.Kind = KindNoteOn
	case msg.GetNoteOff(&ch, &p1, &p2):
		ev.Kind = KindNoteOff
	case msg.GetControlChange(&ch, &p1, &p2):
		ev.Kind = KindController
	case msg.GetProgramChange(&ch, &p1):
		ev.Kind = KindProgramChange
	case msg.GetPitchBend(&ch, nil, &bend):
		ev.Kind = KindPitchBend
		p1, p2 = uint8(bend&0x7F), uint8(bend>>7)
	case msg.GetPolyAfterTouch(&ch, &p1, &p2):
		ev.Kind = KindPolyAftertouch
	case msg.GetAfterTouch(&ch, &p1):
		ev.Kind = KindChannelAftertouch
	case msg.GetSysEx(&ev.Data):
		ev.Kind = KindSysEx
		return ev
	default:
		return ev
	}
	ev.Channel, ev.Param1, ev.Param2 = ch, p1, p2
	return ev
}
