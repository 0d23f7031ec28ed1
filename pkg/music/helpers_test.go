package music

import (
	"bytes"
	"testing"
	"testing/fstest"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/zurustar/oplmusic/pkg/logger"
	"github.com/zurustar/oplmusic/pkg/midifile"
	"github.com/zurustar/oplmusic/pkg/timbre"
	"github.com/zurustar/oplmusic/pkg/transport"
)

type regWrite struct {
	reg, val uint8
}

// fakeChip records register writes and renders a constant sample.
type fakeChip struct {
	writes []regWrite
	regs   [256]uint8
	resets int
	closed bool
	sample int32
	frames int
}

func (c *fakeChip) Reset() {
	c.resets++
	c.regs = [256]uint8{}
}

func (c *fakeChip) WriteRegister(reg, val uint8) {
	c.writes = append(c.writes, regWrite{reg, val})
	c.regs[reg] = val
}

func (c *fakeChip) RenderStereo(buf []int32, n int) {
	for i := 0; i < n; i++ {
		buf[i] = c.sample
	}
	c.frames += n
}

func (c *fakeChip) Close() error {
	c.closed = true
	return nil
}

// wrote reports whether reg was written since the last clearWrites.
func (c *fakeChip) wrote(reg uint8) bool {
	for _, w := range c.writes {
		if w.reg == reg {
			return true
		}
	}
	return false
}

func (c *fakeChip) clearWrites() { c.writes = nil }

// recordingTransport remembers the registered generator.
type recordingTransport struct {
	gen     transport.Generator
	sets    int
	cleared int
}

func (r *recordingTransport) IsInitialized() bool { return true }

func (r *recordingTransport) SetGenerator(g transport.Generator) {
	r.gen = g
	if g == nil {
		r.cleared++
	} else {
		r.sets++
	}
}

type testRig struct {
	engine    *Engine
	chip      *fakeChip
	transport *recordingTransport
	files     fstest.MapFS
}

// newRig builds an engine over a fake chip with the given bank loaded.
// A nil bank leaves the timbre bank unloaded.
func newRig(t *testing.T, bank []byte) *testRig {
	t.Helper()
	r := &testRig{
		chip:      &fakeChip{},
		transport: &recordingTransport{},
		files:     fstest.MapFS{},
	}
	log := logger.Discard()
	b := timbre.NewBank(log)
	if bank != nil {
		if err := b.Load(bank); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
	}
	r.engine = New(Config{
		NewChip:   func(int, int) (Chip, error) { return r.chip, nil },
		Files:     r.files,
		Transport: r.transport,
		Bank:      b,
		Log:       log,
	})
	if err := r.engine.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return r
}

// addSong encodes tracks as an SMF under name.
func (r *testRig) addSong(t *testing.T, name string, tpb uint16, tracks ...smf.Track) {
	t.Helper()
	var buf bytes.Buffer
	if err := midifile.Encode(&buf, tpb, tracks...); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	r.files[name] = &fstest.MapFile{Data: buf.Bytes()}
}

// play starts an in-memory song built from decoded events, bypassing SMF
// encoding so tests control every byte.
func (r *testRig) play(t *testing.T, loop bool, tpb uint16, tracks ...[]midifile.Event) {
	t.Helper()
	r.engine.loadSong = func([]byte) (Song, error) {
		return midiSong{midifile.New(tpb, tracks...)}, nil
	}
	r.files["events.mid"] = &fstest.MapFile{Data: []byte{0}}
	if err := r.engine.PlayMIDI("events.mid", loop); err != nil {
		t.Fatalf("PlayMIDI() error = %v", err)
	}
}

// fill runs one generator pass of n frames.
func (r *testRig) fill(n int) []int16 {
	buf := &transport.Buffer{Samples: make([]int16, n*2), MaxSampleCount: n}
	r.engine.Fill(buf)
	return buf.Samples[:buf.SampleCount*2]
}

// testBank returns an encoded bank where every melodic entry has the given
// transpose and every percussion entry i has transpose i-128+20.
func testBank(transpose int8) []byte {
	out := make([]byte, 0, timbre.BlobSize)
	for i := 0; i < timbre.BankSize; i++ {
		t := timbre.Timbre{
			Characteristic: [2]uint8{0x01, 0x01},
			Level:          [2]uint8{0x50, 0x4A}, // KSL 1, levels 0x10 and 0x0A
			AttackDecay:    [2]uint8{0xF0, 0xF0},
			SustainRelease: [2]uint8{0x0F, 0x0F},
			Transpose:      transpose,
		}
		if i >= timbre.PercussionBase {
			t.Transpose = int8(i - timbre.PercussionBase + 20)
			t.Feedback = 0x01
		}
		out = t.Encode(out)
	}
	return out
}

func noteOn(delta uint32, ch, note, vel uint8) midifile.Event {
	return midifile.Event{Delta: delta, Kind: midifile.KindNoteOn, Channel: ch, Param1: note, Param2: vel}
}

func noteOff(delta uint32, ch, note uint8) midifile.Event {
	return midifile.Event{Delta: delta, Kind: midifile.KindNoteOff, Channel: ch, Param1: note}
}

func controller(delta uint32, ch, cc, val uint8) midifile.Event {
	return midifile.Event{Delta: delta, Kind: midifile.KindController, Channel: ch, Param1: cc, Param2: val}
}

func tempo(delta uint32, b0, b1, b2 byte) midifile.Event {
	return midifile.Event{Delta: delta, Kind: midifile.KindMeta, MetaType: midifile.MetaSetTempo, Data: []byte{b0, b1, b2}}
}

func endOfTrack(delta uint32) midifile.Event {
	return midifile.Event{Delta: delta, Kind: midifile.KindMeta, MetaType: midifile.MetaEndOfTrack}
}
