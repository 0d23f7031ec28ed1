package opl

import "math"

// sineTable is a quarter-sine log table: 256 entries of -log2(sin((2i+1)/512 * pi/2))
// in 4.8 fixed-point.
var sineTable [256]uint16

// pow2Table holds 2^(1-(i+1)/256) scaled to 11 bits, used to convert
// log-domain attenuation back to linear amplitude.
var pow2Table [256]uint16

// multTable is the frequency multiplier per MULT value, doubled so that
// MULT=0 (x0.5) stays integral.
var multTable = [16]uint32{1, 2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 20, 24, 24, 30, 30}

// kslTable is the key scale level base attenuation per upper F-number nibble.
var kslTable = [16]int32{0, 32, 40, 45, 48, 51, 53, 55, 56, 58, 59, 60, 61, 62, 63, 64}

// kslShift maps the 2-bit KSL register field to a right shift of the base
// attenuation. 8 disables scaling.
var kslShift = [4]uint{8, 1, 2, 0}

// slotChannel maps register offsets 0x00..0x15 to (channel, operator).
// Offsets 6, 7, 0x0E, 0x0F are unused and map to -1.
var slotChannel [0x16][2]int

func init() {
	for i := 0; i < 256; i++ {
		angle := float64(2*i+1) / 512.0 * math.Pi / 2.0
		sineTable[i] = uint16(math.Round(-math.Log2(math.Sin(angle)) * 256.0))
	}
	for i := 0; i < 256; i++ {
		pow2Table[i] = uint16(math.Round(math.Pow(2.0, 1.0-float64(i+1)/256.0) * 1024.0))
	}

	for off := range slotChannel {
		group, k := off/8, off%8
		if k >= 6 {
			slotChannel[off] = [2]int{-1, -1}
			continue
		}
		slotChannel[off] = [2]int{group*3 + k%3, k / 3}
	}
}

// waveOutput computes the signed 13-bit output of an operator for a 10-bit
// phase index and an attenuation in 0.1875 dB envelope units.
func waveOutput(wave uint8, idx uint32, atten uint32) int32 {
	sign := idx&0x200 != 0
	mirror := idx&0x100 != 0

	switch wave {
	case 1: // half sine
		if sign {
			return 0
		}
	case 2: // absolute sine
		sign = false
	case 3: // pulse sine: rising quarters only
		if mirror {
			return 0
		}
		sign = false
	}

	i := idx & 0xFF
	if mirror {
		i = 0xFF - i
	}

	// One envelope unit is 0.1875 dB, which is 8 steps of the 4.8 log table.
	total := uint32(sineTable[i]) + atten<<3
	intPart := total >> 8
	if intPart > 15 {
		return 0
	}
	linear := int32(pow2Table[total&0xFF]) << 1 >> intPart

	if sign {
		return -linear
	}
	return linear
}
