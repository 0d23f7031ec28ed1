// Package cli parses the oplplay command line.
package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zurustar/oplmusic/pkg/transport"
)

// Config holds the settings parsed from the command line and environment.
type Config struct {
	MIDIFile string        // song name, resolved inside BaseDir
	BaseDir  string        // directory songs are loaded from
	Timbres  string        // timbre bank file; empty selects the built-in bank
	Backend  string        // audio transport
	Render   string        // WAV output path; disables live playback
	Duration time.Duration // render length; 0 renders the whole song
	Volume   int           // master volume 0..255
	Loop     bool
	Info     bool // print song information and exit
	List     bool // list songs in BaseDir and exit
	Timeout  time.Duration
	LogLevel string
	ShowHelp bool
}

// boolFlags never take a value, so reorderArgs must not consume the next
// argument after them.
var boolFlags = map[string]bool{
	"-h": true, "-help": true, "--help": true,
	"-loop": true, "--loop": true,
	"-info": true, "--info": true,
	"-list": true, "--list": true,
}

var validBackends = map[string]bool{
	transport.BackendEbiten:    true,
	transport.BackendOto:       true,
	transport.BackendPortAudio: true,
	transport.BackendHeadless:  true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ParseArgs parses args (without the program name). Flags win over the
// OPL_TIMBRES, OPL_BACKEND, TIMEOUT and LOG_LEVEL environment variables.
func ParseArgs(args []string) (*Config, error) {
	fs := flag.NewFlagSet("oplplay", flag.ContinueOnError)

	config := &Config{}

	var timeoutSec, durationSec int
	fs.IntVar(&timeoutSec, "timeout", 0, "exit after this many seconds")
	fs.IntVar(&timeoutSec, "t", 0, "exit after this many seconds (shorthand)")
	fs.StringVar(&config.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.StringVar(&config.LogLevel, "l", "info", "log level (shorthand)")
	fs.StringVar(&config.Timbres, "timbres", "", "timbre bank file")
	fs.StringVar(&config.Backend, "backend", "", "audio backend (ebiten, oto, portaudio, headless)")
	fs.StringVar(&config.Render, "render", "", "write a WAV file instead of playing")
	fs.IntVar(&durationSec, "duration", 0, "render length in seconds")
	fs.IntVar(&config.Volume, "volume", 255, "master volume 0..255")
	fs.StringVar(&config.BaseDir, "base", "", "directory songs are loaded from")
	fs.BoolVar(&config.Loop, "loop", false, "loop the song")
	fs.BoolVar(&config.Info, "info", false, "print song information and exit")
	fs.BoolVar(&config.List, "list", false, "list songs and exit")
	fs.BoolVar(&config.ShowHelp, "help", false, "show help")
	fs.BoolVar(&config.ShowHelp, "h", false, "show help (shorthand)")

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return nil, err
	}

	if config.Timbres == "" {
		config.Timbres = os.Getenv("OPL_TIMBRES")
	}

	if config.Backend == "" {
		config.Backend = strings.ToLower(os.Getenv("OPL_BACKEND"))
	}
	if config.Backend == "" {
		config.Backend = transport.BackendEbiten
	}

	if timeoutSec == 0 {
		if timeoutEnv := os.Getenv("TIMEOUT"); timeoutEnv != "" {
			if t, err := strconv.Atoi(timeoutEnv); err == nil && t > 0 {
				timeoutSec = t
			}
		}
	}

	if config.LogLevel == "info" {
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
		}
	}

	if timeoutSec < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second

	if durationSec < 0 {
		return nil, fmt.Errorf("duration must be non-negative, got %d", durationSec)
	}
	config.Duration = time.Duration(durationSec) * time.Second

	if config.Volume < 0 || config.Volume > 255 {
		return nil, fmt.Errorf("volume must be between 0 and 255, got %d", config.Volume)
	}

	if !validBackends[config.Backend] {
		return nil, fmt.Errorf("invalid backend: %s (must be ebiten, oto, portaudio, or headless)", config.Backend)
	}

	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	// A path argument without -base is split into directory and name.
	if fs.NArg() > 0 {
		path := fs.Arg(0)
		if config.BaseDir == "" {
			config.BaseDir = filepath.Dir(path)
			config.MIDIFile = filepath.Base(path)
		} else {
			config.MIDIFile = path
		}
	}

	return config, nil
}

// reorderArgs moves flags (and their values) ahead of positional arguments
// so flags may follow the song name.
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if len(arg) > 0 && arg[0] == '-' {
			flags = append(flags, arg)

			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' &&
				!boolFlags[arg] && !strings.Contains(arg, "=") {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, arg)
		}
	}

	return append(flags, positional...)
}

// PrintHelp writes usage to stdout.
func PrintHelp() {
	fmt.Fprintf(os.Stdout, `oplplay - OPL2 FM MIDI player

Usage:
  oplplay [options] [song.mid]

Arguments:
  song.mid    MIDI file to play. Without it the built-in demo song plays.

Options:
  -timbres <file>             256-entry timbre bank (default: built-in bank)
  -backend <name>             ebiten, oto, portaudio or headless (default: ebiten)
  -loop                       loop the song
  -volume <0..255>            master volume (default: 255)
  -render <out.wav>           write a WAV file instead of playing
  -duration <seconds>         render length (default: song length)
  -info                       print song information and exit
  -list                       list songs in the base directory and exit
  -base <dir>                 directory songs are loaded from
  -t, --timeout <seconds>     stop after this many seconds (default: none)
  -l, --log-level <level>     debug, info, warn, error (default: info)
  -h, --help                  show this help

Environment Variables:
  OPL_TIMBRES=<file>          timbre bank file
  OPL_BACKEND=<name>          audio backend
  TIMEOUT=<seconds>           timeout in seconds
  LOG_LEVEL=<level>           log level

Examples:
  oplplay                              play the demo song
  oplplay music/title.mid -loop        loop a song
  oplplay -timbres game.tmb bgm.mid    use a game's instrument bank
  oplplay -render out.wav song.mid     render to a WAV file
  oplplay -info song.mid               show tracks and length
`)
}
