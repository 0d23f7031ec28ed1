package opl

import "math"

// Envelope states
const (
	egOff = iota
	egAttack
	egDecay
	egSustain
	egRelease
)

// egMax is the fully attenuated envelope level (96 dB in 0.1875 dB units).
const egMax = 511

// Full-scale attack and decay times in milliseconds for rate 4 (R=1, no
// key scaling). Every four rate steps halve the time.
const (
	attackTimeMs = 2826.24
	decayTimeMs  = 39280.64
)

// rateTable holds per-sample envelope coefficients for the 64 effective
// rates at a given output sample rate.
type rateTable struct {
	attack [64]float64 // fraction of the remaining level removed per sample
	decay  [64]float64 // envelope units added per sample
}

func newRateTable(sampleRate int) rateTable {
	var rt rateTable
	for r := 4; r < 64; r++ {
		scale := math.Exp2(float64(r/4-1)) * (1 + float64(r%4)/4)

		if r >= 60 {
			rt.attack[r] = 1
		} else {
			samples := attackTimeMs / scale / 1000 * float64(sampleRate)
			rt.attack[r] = 1 - math.Exp(-math.Log(egMax+1)/samples)
		}

		samples := decayTimeMs / scale / 1000 * float64(sampleRate)
		rt.decay[r] = (egMax + 1) / samples
	}
	return rt
}

// effectiveRate combines a 4-bit register rate with key scaling.
func (op *operator) effectiveRate(rate uint8, keyCode uint8) int {
	if rate == 0 {
		return 0
	}
	ksr := keyCode
	if !op.ksr {
		ksr >>= 2
	}
	return min(int(rate)*4+int(ksr), 63)
}

// stepEnvelope advances the envelope generator by one output sample.
func (op *operator) stepEnvelope(rt *rateTable, keyCode uint8) {
	switch op.egState {
	case egAttack:
		k := rt.attack[op.effectiveRate(op.ar, keyCode)]
		op.egLevel -= (op.egLevel + 1) * k
		if op.egLevel <= 0 {
			op.egLevel = 0
			op.egState = egDecay
		}
	case egDecay:
		op.egLevel += rt.decay[op.effectiveRate(op.dr, keyCode)]
		if op.egLevel >= op.sustainLevel() {
			op.egLevel = op.sustainLevel()
			op.egState = egSustain
		}
	case egSustain:
		// Percussive envelopes keep falling at the release rate.
		if !op.egt {
			op.egLevel += rt.decay[op.effectiveRate(op.rr, keyCode)]
		}
	case egRelease:
		op.egLevel += rt.decay[op.effectiveRate(op.rr, keyCode)]
	}

	if op.egLevel >= egMax {
		op.egLevel = egMax
		if op.egState == egRelease || op.egState == egSustain {
			op.egState = egOff
		}
	}
}

// sustainLevel converts the 4-bit SL field to envelope units (3 dB steps,
// SL=15 meaning 93 dB).
func (op *operator) sustainLevel() float64 {
	sl := uint32(op.sl)
	if sl == 0x0F {
		sl = 0x1F
	}
	return float64(sl << 4)
}

func (op *operator) keyOn() {
	op.egState = egAttack
	op.phase = 0
}

func (op *operator) keyOff() {
	if op.egState != egOff {
		op.egState = egRelease
	}
}
