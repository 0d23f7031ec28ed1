// Package fileutil opens songs and timbre banks from a directory or an
// embedded file system. Names are matched case-insensitively so songs
// copied from case-insensitive media still resolve.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

// ErrNotFound is returned when no entry matches a name in any case.
var ErrNotFound = errors.New("file not found")

// songExts are the extensions listed by Songs.
var songExts = []string{".mid", ".midi", ".smf"}

// FS is a read-only file tree rooted at a directory or inside an embedded
// file system.
type FS struct {
	fsys     fs.FS
	root     string
	embedded bool
}

// NewRealFS returns an FS over the directory root. An empty root is the
// working directory.
func NewRealFS(root string) *FS {
	if root == "" {
		root = "."
	}
	return &FS{fsys: os.DirFS(root), root: root}
}

// NewEmbedFS returns an FS over dir inside fsys.
func NewEmbedFS(fsys fs.FS, dir string) (*FS, error) {
	dir = cleanName(dir)
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded directory %s: %w", dir, err)
	}
	return &FS{fsys: sub, root: dir, embedded: true}, nil
}

// Root returns the directory the FS was created with.
func (f *FS) Root() string { return f.root }

// IsEmbedded reports whether the FS is backed by an embedded file system.
func (f *FS) IsEmbedded() bool { return f.embedded }

// Open opens name, ignoring case.
func (f *FS) Open(name string) (fs.File, error) {
	actual, err := f.Resolve(name)
	if err != nil {
		return nil, err
	}
	return f.fsys.Open(actual)
}

// ReadFile reads the whole of name, ignoring case.
func (f *FS) ReadFile(name string) ([]byte, error) {
	actual, err := f.Resolve(name)
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(f.fsys, actual)
}

// Resolve returns the stored spelling of name.
func (f *FS) Resolve(name string) (string, error) {
	clean := cleanName(name)
	if _, err := fs.Stat(f.fsys, clean); err == nil {
		return clean, nil
	}
	if clean == "." {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	dir := "."
	for _, part := range strings.Split(clean, "/") {
		match, err := FindFile(f.fsys, dir, part)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		dir = match
	}
	return dir, nil
}

// Songs lists every MIDI file in the tree, sorted by path.
func (f *FS) Songs() ([]string, error) {
	var songs []string
	err := fs.WalkDir(f.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(path.Ext(p))
		for _, e := range songExts {
			if ext == e {
				songs = append(songs, p)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list songs in %s: %w", f.root, err)
	}
	sort.Strings(songs)
	return songs, nil
}

// FindFile returns the path of the entry in dir whose name equals name
// ignoring case.
func FindFile(fsys fs.FS, dir, name string) (string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	want := strings.ToLower(name)
	for _, entry := range entries {
		if strings.ToLower(entry.Name()) == want {
			return path.Join(dir, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("%w: %s (searched in %s)", ErrNotFound, name, dir)
}

// cleanName converts a user-supplied name to an fs.FS path.
func cleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimLeft(name, "/")
	if name == "" {
		return "."
	}
	return path.Clean(name)
}
