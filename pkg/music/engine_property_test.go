package music

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zurustar/oplmusic/pkg/midifile"
	"github.com/zurustar/oplmusic/pkg/timbre"
)

// songFrom builds a single track from raw bytes, three per event.
func songFrom(raw []uint8) []midifile.Event {
	events := make([]midifile.Event, 0, len(raw)/3)
	for i := 0; i+2 < len(raw); i += 3 {
		delta := uint32(raw[i] % 32)
		ch := raw[i+1] % NumChannels
		note := raw[i+2] & 0x7F
		if raw[i]&0x80 != 0 {
			events = append(events, noteOff(delta, ch, note))
		} else {
			events = append(events, noteOn(delta, ch, note, (raw[i+1]|0x01)&0x7F))
		}
	}
	return events
}

// Property: every fill produces exactly the requested frame count, whatever
// the song and loop mode.
func TestProperty_FillExactCount(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("SampleCount equals MaxSampleCount", prop.ForAll(
		func(raw []uint8, sizes []int, loop bool) bool {
			r := newRig(t, testBank(0))
			r.play(t, loop, 24, songFrom(raw))
			total := 0
			for _, n := range sizes {
				if len(r.fill(n)) != n*2 {
					return false
				}
				total += n
			}
			st := r.engine.Status()
			if st.Playing && r.chip.frames != total {
				return false
			}
			// Without a restart the song clock is exactly the audio rendered.
			if st.Playing && st.Loops == 0 && st.Now != uint64(total)*microsPerSecond/DefaultSampleRate {
				return false
			}
			return r.engine.Status().ActiveVoices <= NumVoices
		},
		gen.SliceOf(gen.UInt8()),
		gen.SliceOf(gen.IntRange(1, 2048)),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// Property: releasing every note that was started leaves no voice active,
// even when stealing occurred along the way.
func TestProperty_MatchedNoteOffsReleaseAll(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("all voices free", prop.ForAll(
		func(channels []uint8, notes []uint8) bool {
			r := newRig(t, testBank(0))
			n := min(len(channels), len(notes))
			for i := 0; i < n; i++ {
				r.engine.process(noteOn(0, channels[i]%NumChannels, notes[i]&0x7F, 100))
			}
			for i := 0; i < n; i++ {
				r.engine.process(noteOff(0, channels[i]%NumChannels, notes[i]&0x7F))
			}
			return r.engine.Status().ActiveVoices == 0
		},
		gen.SliceOf(gen.UInt8()),
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}

// Property: any note and transpose maps to a valid block and table F-number.
func TestProperty_PitchInRange(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("block <= 7 and fnum from table", prop.ForAll(
		func(channel, note uint8, transpose int8) bool {
			n := tableNote(channel%NumChannels, note&0x7F, timbre.Timbre{Transpose: transpose})
			if n < 0 || n > 127 {
				return false
			}
			block, fnum := blockAndFnum(n)
			return block <= 7 && fnum >= fnumTable[0] && fnum <= fnumTable[11]
		},
		gen.UInt8(),
		gen.UInt8(),
		gen.Int8(),
	))

	properties.TestingRun(t)
}

// Property: attenuation stays in 0..63 and louder input never attenuates more.
func TestProperty_AttenuationMonotonic(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("bounded and monotonic", prop.ForAll(
		func(velocity, channelVolume uint8, master int) bool {
			v, c := velocity&0x7F, channelVolume&0x7F
			a := attenuation(v, c, master)
			if a < 0 || a > 63 {
				return false
			}
			if v < 127 && attenuation(v+1, c, master) > a {
				return false
			}
			return scaledLevel(0xFF, a)&0xC0 == 0xC0
		},
		gen.UInt8(),
		gen.UInt8(),
		gen.IntRange(0, 127),
	))

	properties.TestingRun(t)
}
