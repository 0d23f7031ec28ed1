package app

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/zurustar/oplmusic/pkg/midifile"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7ec8e3"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888")).Width(12)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#fff"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#555"))
)

func field(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

// formatDuration renders d as m:ss.t.
func formatDuration(d time.Duration) string {
	d = d.Round(100 * time.Millisecond)
	m := int(d / time.Minute)
	s := d % time.Minute
	return fmt.Sprintf("%d:%04.1f", m, s.Seconds())
}

// formatTempo shows the opening tempo and how often it changes.
func formatTempo(tempos []midifile.TempoChange) string {
	if len(tempos) == 0 {
		return dimStyle.Render("(none)")
	}
	s := fmt.Sprintf("%.1f BPM", tempos[0].BPM())
	switch n := len(tempos) - 1; n {
	case 0:
	case 1:
		s += dimStyle.Render(" (1 change)")
	default:
		s += dimStyle.Render(fmt.Sprintf(" (%d changes)", n))
	}
	return s
}

func printInfo(w io.Writer, name string, info *midifile.Info) {
	lines := []string{
		titleStyle.Render(name),
		field("Format", fmt.Sprint(info.Format)),
		field("Tracks", fmt.Sprint(info.Tracks)),
		field("Resolution", fmt.Sprintf("%d ticks/beat", info.TicksPerBeat)),
		field("Length", formatDuration(info.Duration)),
		field("Tempo", formatTempo(info.Tempos)),
		field("Notes", fmt.Sprint(info.Notes)),
	}
	for i, n := range info.TrackNames {
		if n == "" {
			n = dimStyle.Render("(unnamed)")
		}
		lines = append(lines, field(fmt.Sprintf("Track %d", i), n))
	}
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func printSongList(w io.Writer, root string, songs []string) {
	fmt.Fprintln(w, titleStyle.Render(root))
	if len(songs) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  no songs"))
		return
	}
	fmt.Fprintln(w, "  "+strings.Join(songs, "\n  "))
}

func printNowPlaying(w io.Writer, name string, info *midifile.Info, loop bool) {
	mode := formatDuration(info.Duration)
	if loop {
		mode += " (loop)"
	}
	fmt.Fprintln(w, titleStyle.Render("Playing ")+valueStyle.Render(name)+" "+dimStyle.Render(mode))
}

func printRendered(w io.Writer, path string, length time.Duration) {
	fmt.Fprintln(w, titleStyle.Render("Wrote ")+valueStyle.Render(path)+" "+dimStyle.Render(formatDuration(length)))
}
