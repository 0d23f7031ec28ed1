package timbre

// Melodic patches, one per General MIDI family of eight programs.
var familyPatches = [16]Timbre{
	// piano
	{Characteristic: [2]uint8{0x01, 0x01}, Level: [2]uint8{0x4F, 0x00}, AttackDecay: [2]uint8{0xF1, 0xF2}, SustainRelease: [2]uint8{0x53, 0x74}, Feedback: 0x06},
	// chromatic percussion
	{Characteristic: [2]uint8{0x07, 0x12}, Level: [2]uint8{0x4F, 0x00}, AttackDecay: [2]uint8{0xF2, 0xF2}, SustainRelease: [2]uint8{0x60, 0x72}, Feedback: 0x08},
	// organ
	{Characteristic: [2]uint8{0x22, 0x21}, Level: [2]uint8{0x1A, 0x00}, AttackDecay: [2]uint8{0xF0, 0xF0}, SustainRelease: [2]uint8{0x07, 0x07}, Feedback: 0x01},
	// guitar
	{Characteristic: [2]uint8{0x03, 0x01}, Level: [2]uint8{0x8A, 0x03}, AttackDecay: [2]uint8{0xF2, 0xF3}, SustainRelease: [2]uint8{0x35, 0x44}, Waveform: [2]uint8{0x01, 0x00}, Feedback: 0x0C},
	// bass
	{Characteristic: [2]uint8{0x21, 0x21}, Level: [2]uint8{0x15, 0x00}, AttackDecay: [2]uint8{0xB1, 0xF1}, SustainRelease: [2]uint8{0x25, 0x13}, Feedback: 0x0A},
	// strings
	{Characteristic: [2]uint8{0x61, 0x21}, Level: [2]uint8{0x1E, 0x00}, AttackDecay: [2]uint8{0x70, 0x54}, SustainRelease: [2]uint8{0x16, 0x06}, Feedback: 0x0E},
	// ensemble
	{Characteristic: [2]uint8{0x62, 0x21}, Level: [2]uint8{0x19, 0x00}, AttackDecay: [2]uint8{0x75, 0x65}, SustainRelease: [2]uint8{0x14, 0x05}, Feedback: 0x0C},
	// brass
	{Characteristic: [2]uint8{0x21, 0x21}, Level: [2]uint8{0x16, 0x00}, AttackDecay: [2]uint8{0x71, 0x81}, SustainRelease: [2]uint8{0xAE, 0x9E}, Feedback: 0x0E},
	// reed
	{Characteristic: [2]uint8{0x31, 0x22}, Level: [2]uint8{0x48, 0x00}, AttackDecay: [2]uint8{0x73, 0x62}, SustainRelease: [2]uint8{0x26, 0x25}, Feedback: 0x0C},
	// pipe
	{Characteristic: [2]uint8{0xE1, 0xE1}, Level: [2]uint8{0x27, 0x00}, AttackDecay: [2]uint8{0x6F, 0x60}, SustainRelease: [2]uint8{0x05, 0x05}, Waveform: [2]uint8{0x00, 0x00}, Feedback: 0x0E},
	// synth lead
	{Characteristic: [2]uint8{0x22, 0x21}, Level: [2]uint8{0x0E, 0x00}, AttackDecay: [2]uint8{0xF2, 0xF1}, SustainRelease: [2]uint8{0x03, 0x03}, Waveform: [2]uint8{0x02, 0x00}, Feedback: 0x0A},
	// synth pad
	{Characteristic: [2]uint8{0x21, 0x22}, Level: [2]uint8{0x1F, 0x00}, AttackDecay: [2]uint8{0x31, 0x41}, SustainRelease: [2]uint8{0x12, 0x13}, Feedback: 0x0C},
	// synth effects
	{Characteristic: [2]uint8{0xE2, 0xE1}, Level: [2]uint8{0x1C, 0x00}, AttackDecay: [2]uint8{0x52, 0x51}, SustainRelease: [2]uint8{0x33, 0x34}, Waveform: [2]uint8{0x01, 0x00}, Feedback: 0x0E},
	// ethnic
	{Characteristic: [2]uint8{0x05, 0x01}, Level: [2]uint8{0x4E, 0x00}, AttackDecay: [2]uint8{0xDA, 0xF4}, SustainRelease: [2]uint8{0x25, 0x15}, Feedback: 0x0A},
	// percussive
	{Characteristic: [2]uint8{0x04, 0x01}, Level: [2]uint8{0x4D, 0x00}, AttackDecay: [2]uint8{0xF8, 0xF6}, SustainRelease: [2]uint8{0x77, 0x57}, Feedback: 0x08},
	// sound effects
	{Characteristic: [2]uint8{0x0F, 0x01}, Level: [2]uint8{0x00, 0x00}, AttackDecay: [2]uint8{0xF1, 0xF6}, SustainRelease: [2]uint8{0x00, 0x34}, Feedback: 0x0E},
}

// drumPatch describes one General MIDI drum key. The transpose of a
// percussion timbre is the absolute note the drum plays at.
type drumPatch struct {
	note  int
	patch Timbre
}

var (
	kick   = Timbre{Characteristic: [2]uint8{0x00, 0x00}, Level: [2]uint8{0x0B, 0x00}, AttackDecay: [2]uint8{0xA8, 0xD6}, SustainRelease: [2]uint8{0x4C, 0x4F}, Feedback: 0x00}
	snare  = Timbre{Characteristic: [2]uint8{0x0C, 0x00}, Level: [2]uint8{0x00, 0x00}, AttackDecay: [2]uint8{0xF8, 0xF6}, SustainRelease: [2]uint8{0xB5, 0xB5}, Feedback: 0x0E}
	tom    = Timbre{Characteristic: [2]uint8{0x02, 0x01}, Level: [2]uint8{0x00, 0x00}, AttackDecay: [2]uint8{0xF8, 0xF5}, SustainRelease: [2]uint8{0x55, 0x55}, Feedback: 0x04}
	hat    = Timbre{Characteristic: [2]uint8{0x0E, 0x0C}, Level: [2]uint8{0x00, 0x04}, AttackDecay: [2]uint8{0xFA, 0xF8}, SustainRelease: [2]uint8{0xF9, 0xF9}, Waveform: [2]uint8{0x03, 0x00}, Feedback: 0x0E}
	cymbal = Timbre{Characteristic: [2]uint8{0x0E, 0x0F}, Level: [2]uint8{0x00, 0x02}, AttackDecay: [2]uint8{0xF6, 0xA4}, SustainRelease: [2]uint8{0x04, 0x13}, Waveform: [2]uint8{0x02, 0x00}, Feedback: 0x0E}
)

// Mapped GM drum keys grouped by voice type.
var drumPatches = []drumPatch{
	{35, kick}, {36, kick},
	{37, snare}, {38, snare}, {39, snare}, {40, snare},
	{41, tom}, {43, tom}, {45, tom}, {47, tom}, {48, tom}, {50, tom},
	{42, hat}, {44, hat}, {46, hat},
	{49, cymbal}, {51, cymbal}, {52, cymbal}, {53, cymbal}, {55, cymbal}, {57, cymbal}, {59, cymbal},
}

var drumPitch = map[int]int8{
	35: 24, 36: 26,
	37: 60, 38: 58, 39: 62, 40: 60,
	41: 36, 43: 40, 45: 43, 47: 46, 48: 50, 50: 53,
	42: 84, 44: 84, 46: 86,
	49: 79, 51: 76, 52: 79, 53: 74, 55: 81, 57: 79, 59: 76,
}

// DefaultBank returns an encoded bank with one patch per General MIDI
// family and a small drum kit, for use when no external bank is supplied.
func DefaultBank() []byte {
	var bank [BankSize]Timbre
	for program := 0; program < PercussionBase; program++ {
		bank[program] = familyPatches[program/8]
	}

	// Unmapped drum keys fall back to a mid tom at the key's own pitch.
	for i := PercussionBase; i < BankSize; i++ {
		t := tom
		t.Transpose = int8(min(127, i-PercussionBase+35))
		bank[i] = t
	}
	for _, d := range drumPatches {
		t := d.patch
		t.Transpose = drumPitch[d.note]
		bank[PercussionBase+d.note-35] = t
	}

	out := make([]byte, 0, BlobSize)
	for _, t := range bank {
		out = t.Encode(out)
	}
	return out
}
