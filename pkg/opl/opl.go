// Package opl implements a Yamaha YM3812 (OPL2) FM synthesizer model.
//
// The model covers the nine melodic two-operator channels: phase generation
// with multipliers and vibrato, ADSR envelopes with key and level scaling,
// the four OPL2 waveforms, self-feedback and the FM/additive connection.
// Rhythm mode and the timers are not modelled. Output is mono and is
// duplicated into both halves of each packed stereo sample.
package opl

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultClock is the NTSC colorburst clock most OPL2 boards run at.
	DefaultClock = 3579545

	// NumChannels is the number of melodic channels.
	NumChannels = 9

	// mixShift scales the summed channel output down to leave headroom for
	// post-gain in the caller.
	mixShift = 2

	tremoloHz = 3.7
	vibratoHz = 6.1
)

// ErrInvalidRate is returned when the clock or sample rate is not positive.
var ErrInvalidRate = errors.New("invalid OPL clock or sample rate")

type operator struct {
	// Register fields
	am   bool  // tremolo enable
	vib  bool  // vibrato enable
	egt  bool  // sustaining envelope
	ksr  bool  // key scale rate
	mult uint8 // frequency multiplier
	ksl  uint8 // key scale level
	tl   uint8 // total level (0.75 dB steps)
	ar   uint8
	dr   uint8
	sl   uint8
	rr   uint8
	wave uint8

	// Phase generator: the top 10 bits index the waveform.
	phase    uint32
	phaseInc uint32

	// Envelope generator
	egState int
	egLevel float64

	// Output history for feedback
	out     int32
	prevOut int32
}

type channel struct {
	op       [2]operator // modulator, carrier
	fnum     uint16
	block    uint8
	keyOn    bool
	feedback uint8
	additive bool
}

// Chip is one OPL2 instance. It is not safe for concurrent use; the caller
// serializes register writes and rendering.
type Chip struct {
	clockHz    int
	sampleRate int
	nativeRate float64

	regs [256]uint8
	ch   [NumChannels]channel

	waveSelect   bool
	noteSelect   bool
	tremoloDeep  bool
	vibratoDeep  bool
	tremoloPhase float64
	vibratoPhase float64

	rates rateTable
}

// New creates a chip clocked at clockHz that renders at sampleRate.
func New(clockHz, sampleRate int) (*Chip, error) {
	if clockHz <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: clock=%d rate=%d", ErrInvalidRate, clockHz, sampleRate)
	}
	c := &Chip{
		clockHz:    clockHz,
		sampleRate: sampleRate,
		nativeRate: float64(clockHz) / 72,
		rates:      newRateTable(sampleRate),
	}
	c.Reset()
	return c, nil
}

// SampleRate returns the output sample rate.
func (c *Chip) SampleRate() int {
	return c.sampleRate
}

// Reset clears every register and silences all operators.
func (c *Chip) Reset() {
	c.regs = [256]uint8{}
	c.ch = [NumChannels]channel{}
	for i := range c.ch {
		for j := range c.ch[i].op {
			c.ch[i].op[j].egState = egOff
			c.ch[i].op[j].egLevel = egMax
		}
	}
	c.waveSelect = false
	c.noteSelect = false
	c.tremoloDeep = false
	c.vibratoDeep = false
	c.tremoloPhase = 0
	c.vibratoPhase = 0
}

// Close releases the chip. The Go model holds no external resources.
func (c *Chip) Close() error {
	return nil
}

// Register returns the last value written to reg.
func (c *Chip) Register(reg uint8) uint8 {
	return c.regs[reg]
}

// WriteRegister writes one value to the chip's register file.
func (c *Chip) WriteRegister(reg, val uint8) {
	c.regs[reg] = val

	switch {
	case reg == 0x01:
		c.waveSelect = val&0x20 != 0
	case reg == 0x08:
		c.noteSelect = val&0x40 != 0
	case reg >= 0x20 && reg <= 0x95:
		c.writeSlot(reg, val)
	case reg >= 0xA0 && reg <= 0xA8:
		ch := &c.ch[reg-0xA0]
		ch.fnum = ch.fnum&0x300 | uint16(val)
		c.updateFrequency(ch)
	case reg >= 0xB0 && reg <= 0xB8:
		ch := &c.ch[reg-0xB0]
		ch.fnum = ch.fnum&0xFF | uint16(val&0x03)<<8
		ch.block = (val >> 2) & 0x07
		c.updateFrequency(ch)
		c.setKey(ch, val&0x20 != 0)
	case reg == 0xBD:
		c.tremoloDeep = val&0x80 != 0
		c.vibratoDeep = val&0x40 != 0
	case reg >= 0xC0 && reg <= 0xC8:
		ch := &c.ch[reg-0xC0]
		ch.feedback = (val >> 1) & 0x07
		ch.additive = val&0x01 != 0
	case reg >= 0xE0 && reg <= 0xF5:
		c.writeSlot(reg, val)
	}
}

func (c *Chip) writeSlot(reg, val uint8) {
	off := reg & 0x1F
	if int(off) >= len(slotChannel) {
		return
	}
	slot := slotChannel[off]
	if slot[0] < 0 {
		return
	}
	ch := &c.ch[slot[0]]
	op := &ch.op[slot[1]]

	switch reg & 0xE0 {
	case 0x20:
		op.am = val&0x80 != 0
		op.vib = val&0x40 != 0
		op.egt = val&0x20 != 0
		op.ksr = val&0x10 != 0
		op.mult = val & 0x0F
		c.updateFrequency(ch)
	case 0x40:
		op.ksl = val >> 6
		op.tl = val & 0x3F
	case 0x60:
		op.ar = val >> 4
		op.dr = val & 0x0F
	case 0x80:
		op.sl = val >> 4
		op.rr = val & 0x0F
	case 0xE0:
		op.wave = val & 0x03
	}
}

func (c *Chip) updateFrequency(ch *channel) {
	// f = fnum * native * 2^block / 2^20
	base := float64(ch.fnum) * c.nativeRate * math.Exp2(float64(ch.block)) / (1 << 20)
	for i := range ch.op {
		op := &ch.op[i]
		f := base * float64(multTable[op.mult]) / 2
		op.phaseInc = uint32(uint64(f * (1 << 32) / float64(c.sampleRate)))
	}
}

func (c *Chip) setKey(ch *channel, on bool) {
	if on == ch.keyOn {
		return
	}
	ch.keyOn = on
	for i := range ch.op {
		if on {
			ch.op[i].keyOn()
		} else {
			ch.op[i].keyOff()
		}
	}
}

func (c *Chip) keyCode(ch *channel) uint8 {
	bit := ch.fnum >> 9
	if c.noteSelect {
		bit = ch.fnum >> 8
	}
	return ch.block<<1 | uint8(bit&1)
}

// kslAttenuation returns the key scale attenuation in envelope units.
func (c *Chip) kslAttenuation(ch *channel, op *operator) uint32 {
	if op.ksl == 0 {
		return 0
	}
	ksl := kslTable[ch.fnum>>6]<<2 - int32(8-ch.block)<<5
	if ksl <= 0 {
		return 0
	}
	return uint32(ksl) >> kslShift[op.ksl]
}

// RenderStereo renders n samples into buf. Each element packs the left
// sample in the high 16 bits and the right sample in the low 16 bits.
func (c *Chip) RenderStereo(buf []int32, n int) {
	n = min(n, len(buf))
	for i := 0; i < n; i++ {
		s := c.sample()
		buf[i] = int32(uint32(uint16(s))<<16 | uint32(uint16(s)))
	}
}

func (c *Chip) sample() int16 {
	trem, vib := c.stepLFO()

	var mix int32
	for i := range c.ch {
		mix += c.channelOutput(&c.ch[i], trem, vib)
	}
	mix >>= mixShift

	if mix > math.MaxInt16 {
		return math.MaxInt16
	}
	if mix < math.MinInt16 {
		return math.MinInt16
	}
	return int16(mix)
}

// stepLFO advances both LFOs and returns the tremolo attenuation in envelope
// units and the vibrato frequency ratio offset.
func (c *Chip) stepLFO() (uint32, float64) {
	c.tremoloPhase += tremoloHz / float64(c.sampleRate)
	if c.tremoloPhase >= 1 {
		c.tremoloPhase -= 1
	}
	c.vibratoPhase += vibratoHz / float64(c.sampleRate)
	if c.vibratoPhase >= 1 {
		c.vibratoPhase -= 1
	}

	// Triangle 0..1..0
	tri := 2 * c.tremoloPhase
	if tri > 1 {
		tri = 2 - tri
	}
	depth := 5.0 // 1 dB
	if c.tremoloDeep {
		depth = 26.0 // 4.8 dB
	}

	cents := 7.0
	if c.vibratoDeep {
		cents = 14.0
	}
	vib := (math.Exp2(cents/1200) - 1) * math.Sin(2*math.Pi*c.vibratoPhase)

	return uint32(tri * depth), vib
}

func (c *Chip) channelOutput(ch *channel, trem uint32, vib float64) int32 {
	mod, car := &ch.op[0], &ch.op[1]
	kc := c.keyCode(ch)

	var fb int32
	if ch.feedback > 0 {
		fb = (mod.prevOut + mod.out) >> (9 - ch.feedback)
	}
	m := c.operatorOutput(ch, mod, kc, fb, trem, vib)

	if ch.additive {
		return m + c.operatorOutput(ch, car, kc, 0, trem, vib)
	}
	return c.operatorOutput(ch, car, kc, m, trem, vib)
}

func (c *Chip) operatorOutput(ch *channel, op *operator, kc uint8, pm int32, trem uint32, vib float64) int32 {
	op.stepEnvelope(&c.rates, kc)

	inc := op.phaseInc
	if op.vib {
		inc = uint32(uint64(float64(inc) * (1 + vib)))
	}
	op.phase += inc

	atten := uint32(op.egLevel) + uint32(op.tl)<<2 + c.kslAttenuation(ch, op)
	if op.am {
		atten += trem
	}

	var out int32
	if op.egState != egOff && atten < egMax {
		wave := uint8(0)
		if c.waveSelect {
			wave = op.wave
		}
		idx := (op.phase>>22 + uint32(pm)) & 0x3FF
		out = waveOutput(wave, idx, atten)
	}

	op.prevOut = op.out
	op.out = out
	return out
}
