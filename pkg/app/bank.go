package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zurustar/oplmusic/pkg/fileutil"
	"github.com/zurustar/oplmusic/pkg/timbre"
)

// DefaultBankName is the timbre bank looked up next to songs.
const DefaultBankName = "timbres.bnk"

// BankSource describes where a timbre bank was found.
type BankSource struct {
	Name    string
	Data    []byte
	BuiltIn bool
}

// findTimbreBank picks a bank in this order:
//  1. the explicitly named file (missing is an error)
//  2. DefaultBankName in the embedded assets
//  3. DefaultBankName in the song directory
//  4. DefaultBankName in the current directory
//  5. the built-in bank
func findTimbreBank(explicit string, embedded fs.FS, songs *fileutil.FS) (*BankSource, error) {
	if explicit != "" {
		data, err := os.ReadFile(explicit)
		if err != nil {
			return nil, fmt.Errorf("failed to read timbre bank: %w", err)
		}
		return &BankSource{Name: explicit, Data: data}, nil
	}

	if embedded != nil {
		if data, err := fs.ReadFile(embedded, "assets/"+DefaultBankName); err == nil && len(data) > 0 {
			return &BankSource{Name: "embedded:" + DefaultBankName, Data: data}, nil
		}
	}

	if songs != nil && !songs.IsEmbedded() {
		data, err := songs.ReadFile(DefaultBankName)
		if err == nil && len(data) > 0 {
			return &BankSource{Name: filepath.Join(songs.Root(), DefaultBankName), Data: data}, nil
		}
		if err != nil && !errors.Is(err, fileutil.ErrNotFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read timbre bank: %w", err)
		}
	}

	if data, err := fileutil.NewRealFS(".").ReadFile(DefaultBankName); err == nil && len(data) > 0 {
		return &BankSource{Name: DefaultBankName, Data: data}, nil
	}

	return &BankSource{Name: "built-in", Data: timbre.DefaultBank(), BuiltIn: true}, nil
}
