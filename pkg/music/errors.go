package music

import "errors"

var (
	// ErrChipCreate is returned when the synthesizer cannot be created.
	ErrChipCreate = errors.New("failed to create FM chip")
	// ErrNoFileLoader is returned by PlayMIDI when no file loader is configured.
	ErrNoFileLoader = errors.New("no file loader configured")
	// ErrFileOpen is returned when the music file cannot be opened.
	ErrFileOpen = errors.New("failed to open music file")
	// ErrFileEmpty is returned when the music file has no content.
	ErrFileEmpty = errors.New("music file is empty")
	// ErrShortRead is returned when fewer bytes than the file length were read.
	ErrShortRead = errors.New("short read on music file")
	// ErrSongLoad is returned when the file bytes do not parse as a song.
	ErrSongLoad = errors.New("failed to load song")
)
