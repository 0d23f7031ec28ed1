package midifile

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sinshu/go-meltysynth/meltysynth"
	"gitlab.com/gomidi/midi/v2/smf"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// Info summarizes a song for display.
type Info struct {
	Format       int
	Tracks       int
	TicksPerBeat int
	Duration     time.Duration
	TrackNames   []string
	Notes        int
	Tempos       []TempoChange
}

// Describe parses data and reports its layout and playing time.
func Describe(data []byte) (*Info, error) {
	f, err := Load(data)
	if err != nil {
		return nil, err
	}

	mf, err := meltysynth.NewMidiFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	info := &Info{
		Format:       f.Format(),
		Tracks:       f.TrackCount(),
		TicksPerBeat: f.TicksPerBeat(),
		Duration:     mf.GetLength(),
		TrackNames:   make([]string, f.TrackCount()),
		Tempos:       f.TempoMap(),
	}
	for i := range f.tracks {
		for _, ev := range f.tracks[i] {
			switch {
			case ev.Kind == KindMeta && ev.MetaType == MetaTrackName && info.TrackNames[i] == "":
				info.TrackNames[i] = decodeText(ev.Data)
			case ev.Kind == KindNoteOn && ev.Param2 > 0:
				info.Notes++
			}
		}
	}
	return info, nil
}

// decodeText converts meta text to UTF-8. Older files commonly carry
// Shift-JIS; anything that does not decode cleanly is read as Latin-1.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return strings.TrimRight(string(data), "\x00")
	}
	r := transform.NewReader(bytes.NewReader(data), japanese.ShiftJIS.NewDecoder())
	if out, err := io.ReadAll(r); err == nil && !bytes.ContainsRune(out, utf8.RuneError) {
		return strings.TrimRight(string(out), "\x00")
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return strings.TrimRight(string(out), "\x00")
}

// Encode writes tracks as a format 1 SMF. Each track is closed with an
// end-of-track event.
func Encode(w io.Writer, ticksPerBeat uint16, tracks ...smf.Track) error {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ticksPerBeat)
	for i, tr := range tracks {
		tr.Close(0)
		if err := s.Add(tr); err != nil {
			return fmt.Errorf("error adding track %d: %w", i, err)
		}
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("error writing MIDI file: %w", err)
	}
	return nil
}
