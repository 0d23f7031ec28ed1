package music

import (
	"github.com/zurustar/oplmusic/pkg/timbre"
)

// NumVoices is the number of OPL2 melodic voices.
const NumVoices = 9

// Voice is one chip voice as seen by the allocator.
type Voice struct {
	Active     bool
	Channel    uint8
	Note       uint8 // incoming MIDI note, used to match note-offs
	Velocity   uint8
	Instrument uint8
}

// opOffsets holds the modulator and carrier register offsets per voice.
var opOffsets = [NumVoices][2]uint8{
	{0x00, 0x03}, {0x01, 0x04}, {0x02, 0x05},
	{0x08, 0x0B}, {0x09, 0x0C}, {0x0A, 0x0D},
	{0x10, 0x13}, {0x11, 0x14}, {0x12, 0x15},
}

// fnumTable is the F-number of each semitone within an octave.
var fnumTable = [12]uint16{
	0x157, 0x16B, 0x181, 0x198, 0x1B0, 0x1CA,
	0x1E5, 0x202, 0x220, 0x241, 0x263, 0x287,
}

// keyCorrection shifts melodic notes down an octave to the chip's range.
const keyCorrection = 12

// allocate returns a free voice, or steals one: the first voice on the
// percussion channel, else voice 0. A stolen voice is released first.
func (e *Engine) allocate() int {
	for i := range e.voices {
		if !e.voices[i].Active {
			return i
		}
	}

	steal := 0
	for i := range e.voices {
		if e.voices[i].Channel == PercussionChannel {
			steal = i
			break
		}
	}
	e.noteOff(steal)
	return steal
}

// findVoice returns the active voice playing note on channel, or -1.
func (e *Engine) findVoice(channel, note uint8) int {
	for i, v := range e.voices {
		if v.Active && v.Channel == channel && v.Note == note {
			return i
		}
	}
	return -1
}

// instrumentFor resolves the bank index for a note on a channel.
func (e *Engine) instrumentFor(channel, note uint8) int {
	if channel == PercussionChannel {
		return min(max(timbre.PercussionBase+int(note)-35, timbre.PercussionBase), timbre.BankSize-1)
	}
	return int(e.channels[channel].Instrument)
}

// tableNote maps an incoming note to the pitch actually played. Percussion
// timbres carry an absolute pitch in their transpose field; melodic ones
// carry an offset.
func tableNote(channel, note uint8, t timbre.Timbre) int {
	n := int(note) + int(t.Transpose) - keyCorrection
	if channel == PercussionChannel {
		n = int(t.Transpose)
	}
	return min(max(n, 0), 127)
}

// blockAndFnum splits a table note into octave and F-number.
func blockAndFnum(note int) (uint8, uint16) {
	return uint8(min(note/12, 7)), fnumTable[note%12]
}

func (e *Engine) noteOn(v int, note, velocity, channel uint8) {
	inst := e.instrumentFor(channel, note)

	e.voices[v] = Voice{
		Active:     true,
		Channel:    channel,
		Note:       note,
		Velocity:   velocity,
		Instrument: uint8(inst),
	}

	t, ok := e.bank.Lookup(inst)
	if !ok {
		// Silent: the voice is tracked so note-offs still match.
		return
	}

	block, fnum := blockAndFnum(tableNote(channel, note, t))
	e.writeInstrument(v, t)
	e.writeVolume(v, t, velocity, e.channels[channel].Volume)
	e.write(0xA0+uint8(v), uint8(fnum))
	e.write(0xB0+uint8(v), 0x20|block<<2|uint8(fnum>>8)&0x03)
}

// noteOff releases the key and frees the voice. The chip's release phase
// keeps sounding; a second call is a no-op.
func (e *Engine) noteOff(v int) {
	if !e.voices[v].Active {
		return
	}
	e.write(0xB0+uint8(v), 0x00)
	e.voices[v].Active = false
}

func (e *Engine) allNotesOff(channel uint8) {
	for i := range e.voices {
		if e.voices[i].Active && e.voices[i].Channel == channel {
			e.noteOff(i)
		}
	}
}

func (e *Engine) writeInstrument(v int, t timbre.Timbre) {
	for op, off := range opOffsets[v] {
		e.write(0x20+off, t.Characteristic[op])
		e.write(0x40+off, t.Level[op])
		e.write(0x60+off, t.AttackDecay[op])
		e.write(0x80+off, t.SustainRelease[op])
		e.write(0xE0+off, t.Waveform[op])
	}
	e.write(0xC0+uint8(v), t.Feedback)
}

// attenuation converts velocity, channel and master volume into a 0..63
// attenuation, 63 being silent.
func attenuation(velocity, channelVolume uint8, master int) int {
	scaled := min(int(velocity)*int(channelVolume)*master/(127*127), 127)
	return 63 - scaled*63/127
}

// scaledLevel adds half the attenuation to a level register value, keeping
// its key scale bits.
func scaledLevel(level uint8, atten int) uint8 {
	return level&0xC0 | uint8(min(int(level&0x3F)+atten/2, 63))
}

func (e *Engine) writeVolume(v int, t timbre.Timbre, velocity, channelVolume uint8) {
	atten := attenuation(velocity, channelVolume, e.masterVolume)
	e.write(0x40+opOffsets[v][1], scaledLevel(t.Level[1], atten))
	if t.Additive() {
		e.write(0x40+opOffsets[v][0], scaledLevel(t.Level[0], atten))
	}
}

// refreshVolume re-applies volume to an active voice from its stored state.
func (e *Engine) refreshVolume(v int) {
	voice := e.voices[v]
	t, ok := e.bank.Lookup(int(voice.Instrument))
	if !ok {
		return
	}
	e.writeVolume(v, t, voice.Velocity, e.channels[voice.Channel].Volume)
}

func (e *Engine) write(reg, val uint8) {
	if e.chip != nil {
		e.chip.WriteRegister(reg, val)
	}
}
