// Package timbre holds the OPL instrument bank used by the music engine.
// A bank is 256 fixed-format 13-byte records; entries 128..255 are reserved
// for the percussion channel.
package timbre

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zurustar/oplmusic/pkg/logger"
)

const (
	// RecordSize is the size of one encoded timbre.
	RecordSize = 13
	// BankSize is the number of timbres in a bank.
	BankSize = 256
	// BlobSize is the size of an encoded bank.
	BlobSize = RecordSize * BankSize
	// PercussionBase is the first bank index used by the percussion channel.
	PercussionBase = 128
)

// ErrBankSize is returned when a bank blob is not exactly BlobSize bytes.
var ErrBankSize = errors.New("invalid timbre bank size")

// Timbre is one FM instrument definition. The paired fields hold the
// modulator value at index 0 and the carrier value at index 1.
type Timbre struct {
	Characteristic [2]uint8 // register 0x20: AM, VIB, EGT, KSR, MULT
	Level          [2]uint8 // register 0x40: KSL, total level
	AttackDecay    [2]uint8 // register 0x60
	SustainRelease [2]uint8 // register 0x80
	Waveform       [2]uint8 // register 0xE0
	Feedback       uint8    // register 0xC0: feedback and connection
	Transpose      int8
	Velocity       int8
}

// Additive reports whether the connection bit is set, in which case the
// modulator is audible on its own.
func (t Timbre) Additive() bool {
	return t.Feedback&0x01 != 0
}

// Decode reads one timbre from a 13-byte record.
func Decode(rec []byte) Timbre {
	_ = rec[RecordSize-1]
	return Timbre{
		Characteristic: [2]uint8{rec[0], rec[1]},
		Level:          [2]uint8{rec[2], rec[3]},
		AttackDecay:    [2]uint8{rec[4], rec[5]},
		SustainRelease: [2]uint8{rec[6], rec[7]},
		Waveform:       [2]uint8{rec[8], rec[9]},
		Feedback:       rec[10],
		Transpose:      int8(rec[11]),
		Velocity:       int8(rec[12]),
	}
}

// Encode appends the 13-byte record form of t to dst.
func (t Timbre) Encode(dst []byte) []byte {
	return append(dst,
		t.Characteristic[0], t.Characteristic[1],
		t.Level[0], t.Level[1],
		t.AttackDecay[0], t.AttackDecay[1],
		t.SustainRelease[0], t.SustainRelease[1],
		t.Waveform[0], t.Waveform[1],
		t.Feedback,
		uint8(t.Transpose),
		uint8(t.Velocity),
	)
}

// Bank is the set of 256 timbres. It is written once per load and read by
// the audio callback, so all access goes through the mutex.
type Bank struct {
	entries [BankSize]Timbre
	loaded  bool

	warnOnce sync.Once
	log      *slog.Logger
	mu       sync.RWMutex
}

// NewBank creates an empty, unloaded bank. A nil logger selects the global one.
func NewBank(log *slog.Logger) *Bank {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Bank{log: log}
}

// Load replaces every entry from an encoded bank. A nil slice is ignored.
func (b *Bank) Load(data []byte) error {
	if data == nil {
		return nil
	}
	if len(data) != BlobSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrBankSize, len(data), BlobSize)
	}

	var entries [BankSize]Timbre
	for i := range entries {
		entries[i] = Decode(data[i*RecordSize : (i+1)*RecordSize])
	}

	b.mu.Lock()
	b.entries = entries
	b.loaded = true
	b.mu.Unlock()

	b.log.Info("Timbre bank loaded", "instruments", BankSize)
	return nil
}

// Loaded reports whether a bank has been loaded.
func (b *Bank) Loaded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loaded
}

// Lookup returns the timbre at index. The second result is false when the
// index is out of range or no bank has been loaded yet; the first such miss
// on an unloaded bank logs a warning.
func (b *Bank) Lookup(index int) (Timbre, bool) {
	if index < 0 || index >= BankSize {
		return Timbre{}, false
	}

	b.mu.RLock()
	t, loaded := b.entries[index], b.loaded
	b.mu.RUnlock()

	if !loaded {
		b.warnOnce.Do(func() {
			b.log.Warn("Timbre bank not loaded, instruments will be silent")
		})
		return Timbre{}, false
	}
	return t, true
}
