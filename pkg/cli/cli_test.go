package cli

import (
	"reflect"
	"testing"
	"time"
)

// clearEnv blanks every variable ParseArgs consults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OPL_TIMBRES", "OPL_BACKEND", "TIMEOUT", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func defaults() Config {
	return Config{Backend: "ebiten", Volume: 255, LogLevel: "info"}
}

func TestParseArgs_ValidArgs(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		modify func(c *Config)
	}{
		{
			name:   "defaults",
			args:   []string{},
			modify: func(c *Config) {},
		},
		{
			name: "song path",
			args: []string{"/music/title.mid"},
			modify: func(c *Config) {
				c.BaseDir = "/music"
				c.MIDIFile = "title.mid"
			},
		},
		{
			name: "bare song name",
			args: []string{"title.mid"},
			modify: func(c *Config) {
				c.BaseDir = "."
				c.MIDIFile = "title.mid"
			},
		},
		{
			name: "base directory keeps the name",
			args: []string{"-base", "/games/bgm", "stage/1.mid"},
			modify: func(c *Config) {
				c.BaseDir = "/games/bgm"
				c.MIDIFile = "stage/1.mid"
			},
		},
		{
			name:   "timeout",
			args:   []string{"--timeout", "10"},
			modify: func(c *Config) { c.Timeout = 10 * time.Second },
		},
		{
			name:   "timeout shorthand",
			args:   []string{"-t", "5"},
			modify: func(c *Config) { c.Timeout = 5 * time.Second },
		},
		{
			name:   "log level shorthand",
			args:   []string{"-l", "error"},
			modify: func(c *Config) { c.LogLevel = "error" },
		},
		{
			name: "render options",
			args: []string{"-render", "out.wav", "-duration", "30", "-backend", "headless"},
			modify: func(c *Config) {
				c.Render = "out.wav"
				c.Duration = 30 * time.Second
				c.Backend = "headless"
			},
		},
		{
			name: "flags after the song",
			args: []string{"bgm/town.mid", "-loop", "-volume", "128", "-timbres", "game.tmb"},
			modify: func(c *Config) {
				c.BaseDir = "bgm"
				c.MIDIFile = "town.mid"
				c.Loop = true
				c.Volume = 128
				c.Timbres = "game.tmb"
			},
		},
		{
			name: "bool flag before the song",
			args: []string{"-info", "song.mid"},
			modify: func(c *Config) {
				c.Info = true
				c.BaseDir = "."
				c.MIDIFile = "song.mid"
			},
		},
		{
			name: "list",
			args: []string{"--list", "-base", "music"},
			modify: func(c *Config) {
				c.List = true
				c.BaseDir = "music"
			},
		},
		{
			name:   "help",
			args:   []string{"-h"},
			modify: func(c *Config) { c.ShowHelp = true },
		},
		{
			name:   "equals form",
			args:   []string{"-volume=0", "--log-level=debug"},
			modify: func(c *Config) { c.Volume = 0; c.LogLevel = "debug" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			config, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := defaults()
			tt.modify(&want)
			if !reflect.DeepEqual(*config, want) {
				t.Errorf("ParseArgs() = %+v, want %+v", *config, want)
			}
		})
	}
}

func TestParseArgs_Environment(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		args   []string
		modify func(c *Config)
	}{
		{
			name:   "timbres",
			env:    map[string]string{"OPL_TIMBRES": "bank.tmb"},
			modify: func(c *Config) { c.Timbres = "bank.tmb" },
		},
		{
			name:   "backend is lowercased",
			env:    map[string]string{"OPL_BACKEND": "OTO"},
			modify: func(c *Config) { c.Backend = "oto" },
		},
		{
			name:   "timeout",
			env:    map[string]string{"TIMEOUT": "7"},
			modify: func(c *Config) { c.Timeout = 7 * time.Second },
		},
		{
			name:   "invalid timeout ignored",
			env:    map[string]string{"TIMEOUT": "soon"},
			modify: func(c *Config) {},
		},
		{
			name:   "log level",
			env:    map[string]string{"LOG_LEVEL": "DEBUG"},
			modify: func(c *Config) { c.LogLevel = "debug" },
		},
		{
			name:   "flags win",
			env:    map[string]string{"OPL_BACKEND": "oto", "TIMEOUT": "7", "OPL_TIMBRES": "env.tmb"},
			args:   []string{"-backend", "headless", "-t", "3", "-timbres", "flag.tmb"},
			modify: func(c *Config) { c.Backend = "headless"; c.Timeout = 3 * time.Second; c.Timbres = "flag.tmb" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			config, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := defaults()
			tt.modify(&want)
			if !reflect.DeepEqual(*config, want) {
				t.Errorf("ParseArgs() = %+v, want %+v", *config, want)
			}
		})
	}
}

func TestParseArgs_InvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"negative timeout", []string{"--timeout", "-10"}},
		{"negative duration", []string{"-duration", "-1"}},
		{"volume too high", []string{"-volume", "256"}},
		{"volume negative", []string{"-volume", "-1"}},
		{"unknown backend", []string{"-backend", "alsa"}},
		{"invalid log level", []string{"--log-level", "invalid"}},
		{"invalid log level shorthand", []string{"-l", "trace"}},
		{"unknown flag", []string{"-shuffle"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if _, err := ParseArgs(tt.args); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestReorderArgs(t *testing.T) {
	tests := []struct {
		args []string
		want []string
	}{
		{
			args: []string{"song.mid", "-loop"},
			want: []string{"-loop", "song.mid"},
		},
		{
			args: []string{"-loop", "song.mid", "-t", "5"},
			want: []string{"-loop", "-t", "5", "song.mid"},
		},
		{
			args: []string{"-volume=10", "song.mid"},
			want: []string{"-volume=10", "song.mid"},
		},
	}
	for _, tt := range tests {
		if got := reorderArgs(tt.args); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("reorderArgs(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}
