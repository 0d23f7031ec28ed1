// Package app wires the command line, logger, file loaders, transports and
// music engine into the oplplay program.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zurustar/oplmusic/pkg/cli"
	"github.com/zurustar/oplmusic/pkg/fileutil"
	"github.com/zurustar/oplmusic/pkg/logger"
	"github.com/zurustar/oplmusic/pkg/midifile"
	"github.com/zurustar/oplmusic/pkg/music"
	"github.com/zurustar/oplmusic/pkg/render"
	"github.com/zurustar/oplmusic/pkg/timbre"
	"github.com/zurustar/oplmusic/pkg/transport"
)

// DemoSong is the embedded song played when no file is named.
const DemoSong = "demo.mid"

// releaseTail is rendered after the last event so final notes can decay.
const releaseTail = 1500 * time.Millisecond

// statusInterval is how often playback state is polled while waiting.
const statusInterval = 100 * time.Millisecond

// ErrLoopRender is returned when a looping song is rendered without a
// fixed duration.
var ErrLoopRender = errors.New("rendering a looping song requires -duration")

// Application runs one oplplay invocation.
type Application struct {
	config  *cli.Config
	log     *slog.Logger
	embedFS fs.FS
	out     io.Writer

	songs    *fileutil.FS
	songName string
}

// New creates an Application. embedFS holds the assets directory with the
// demo song and may be nil.
func New(embedFS fs.FS) *Application {
	return &Application{
		embedFS: embedFS,
		out:     os.Stdout,
	}
}

// Run executes the program for args (without the program name).
func (app *Application) Run(args []string) error {
	if err := app.parseArgs(args); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	if app.config.ShowHelp {
		cli.PrintHelp()
		return nil
	}

	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := app.openSongs(); err != nil {
		return err
	}

	if app.config.List {
		return app.listSongs()
	}

	data, err := app.songs.ReadFile(app.songName)
	if err != nil {
		return fmt.Errorf("failed to read song: %w", err)
	}
	info, err := midifile.Describe(data)
	if err != nil {
		return fmt.Errorf("failed to read song: %w", err)
	}

	if app.config.Info {
		printInfo(app.out, app.songName, info)
		return nil
	}

	bank, err := app.loadBank()
	if err != nil {
		return err
	}

	if app.config.Render != "" {
		return app.renderWAV(bank, info)
	}
	return app.play(bank, info)
}

func (app *Application) parseArgs(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	app.config = config
	return nil
}

func (app *Application) initLogger() error {
	if err := logger.InitLogger(app.config.LogLevel); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}

// openSongs selects the song directory: the embedded assets when no song
// or directory was given, otherwise the base directory on disk.
func (app *Application) openSongs() error {
	if app.config.MIDIFile == "" && app.config.BaseDir == "" {
		if app.embedFS == nil {
			return errors.New("no song given and no demo song embedded")
		}
		songs, err := fileutil.NewEmbedFS(app.embedFS, "assets")
		if err != nil {
			return err
		}
		app.songs = songs
		app.songName = DemoSong
		app.log.Info("Using embedded demo song", "name", DemoSong)
		return nil
	}

	app.songs = fileutil.NewRealFS(app.config.BaseDir)
	app.songName = app.config.MIDIFile
	return nil
}

func (app *Application) listSongs() error {
	songs, err := app.songs.Songs()
	if err != nil {
		return err
	}
	printSongList(app.out, app.songs.Root(), songs)
	return nil
}

func (app *Application) loadBank() (*timbre.Bank, error) {
	src, err := findTimbreBank(app.config.Timbres, app.embedFS, app.songs)
	if err != nil {
		return nil, err
	}

	bank := timbre.NewBank(app.log)
	if err := bank.Load(src.Data); err != nil {
		return nil, fmt.Errorf("failed to load timbre bank %s: %w", src.Name, err)
	}
	app.log.Info("Timbre bank selected", "source", src.Name, "builtIn", src.BuiltIn)
	return bank, nil
}

func (app *Application) newEngine(tr music.Transport, bank *timbre.Bank) *music.Engine {
	engine := music.New(music.Config{
		Files:     app.songs,
		Transport: tr,
		Bank:      bank,
		Log:       app.log,
	})
	engine.SetVolume(app.config.Volume)
	return engine
}

// play streams the song to the configured backend until it ends, the
// timeout expires or the process is interrupted.
func (app *Application) play(bank *timbre.Bank, info *midifile.Info) error {
	backend, err := transport.Open(app.config.Backend, music.DefaultSampleRate, app.log)
	if err != nil {
		return fmt.Errorf("failed to open audio backend: %w", err)
	}
	defer backend.Close()

	engine := app.newEngine(backend, bank)
	defer engine.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if app.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, app.config.Timeout)
		defer cancel()
	}

	if h, ok := backend.(*transport.Headless); ok {
		go h.Run(ctx)
	}

	if err := engine.PlayMIDI(app.songName, app.config.Loop); err != nil {
		return err
	}
	printNowPlaying(app.out, app.songName, info, app.config.Loop)

	reason := app.wait(ctx, engine, info)
	app.log.Info("Playback ended", "reason", reason, "loops", engine.Status().Loops)
	return nil
}

// wait blocks until the song finishes or ctx is done and reports why.
func (app *Application) wait(ctx context.Context, engine *music.Engine, info *midifile.Info) string {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	clock := midifile.NewTickClock(info.TicksPerBeat, info.Tempos)

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "timeout"
			}
			return "interrupted"
		case <-ticker.C:
			st := engine.Status()
			if !st.Playing {
				return "finished"
			}
			now := time.Duration(st.Now) * time.Microsecond
			pos := now
			if st.Looping && info.Duration > 0 {
				pos %= info.Duration
			}
			tick := clock.TickAt(pos)
			app.log.Debug("Playback status", "now", now, "beat", tick/max(info.TicksPerBeat, 1),
				"bpm", clock.TempoAt(tick).BPM(), "voices", st.ActiveVoices, "tracks", st.RunningTracks)
		}
	}
}

// renderWAV plays the song into a headless transport and writes the
// result to the render path.
func (app *Application) renderWAV(bank *timbre.Bank, info *midifile.Info) error {
	length := app.config.Duration
	if length == 0 {
		if app.config.Loop {
			return ErrLoopRender
		}
		length = info.Duration + releaseTail
	}

	h := transport.NewHeadless(music.DefaultSampleRate, render.BlockFrames)
	engine := app.newEngine(h, bank)
	defer engine.Shutdown()

	if err := engine.PlayMIDI(app.songName, app.config.Loop); err != nil {
		return err
	}

	f, err := os.Create(app.config.Render)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", app.config.Render, err)
	}

	frames := render.Frames(length, music.DefaultSampleRate)
	if err := render.WAV(f, h, frames); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", app.config.Render, err)
	}

	app.log.Info("Rendered song", "name", app.songName, "output", app.config.Render,
		"frames", frames, "duration", length)
	printRendered(app.out, app.config.Render, length)
	return nil
}
