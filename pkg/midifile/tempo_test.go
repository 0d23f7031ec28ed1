package midifile

import (
	"reflect"
	"testing"
	"time"
)

func tempoEvent(delta uint32, us int) Event {
	return Event{Delta: delta, Kind: KindMeta, MetaType: MetaSetTempo,
		Data: []byte{byte(us >> 16), byte(us >> 8), byte(us)}}
}

func TestTempoMap(t *testing.T) {
	tests := []struct {
		name   string
		tracks [][]Event
		want   []TempoChange
	}{
		{
			name:   "no tempo events",
			tracks: [][]Event{{{Delta: 10, Kind: KindNoteOn, Param1: 60, Param2: 1}}},
			want:   []TempoChange{{0, DefaultMicrosPerBeat}},
		},
		{
			name:   "tempo at tick zero replaces the default",
			tracks: [][]Event{{tempoEvent(0, 400000)}},
			want:   []TempoChange{{0, 400000}},
		},
		{
			name: "tracks merged in tick order",
			tracks: [][]Event{
				{tempoEvent(0, 600000), tempoEvent(960, 300000)},
				{tempoEvent(480, 450000)},
			},
			want: []TempoChange{{0, 600000}, {480, 450000}, {960, 300000}},
		},
		{
			name:   "zero tempo ignored",
			tracks: [][]Event{{tempoEvent(100, 0), tempoEvent(100, 250000)}},
			want:   []TempoChange{{0, DefaultMicrosPerBeat}, {200, 250000}},
		},
		{
			name:   "last change on a tick wins",
			tracks: [][]Event{{tempoEvent(50, 700000), tempoEvent(0, 800000)}},
			want:   []TempoChange{{0, DefaultMicrosPerBeat}, {50, 800000}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(480, tt.tracks...).TempoMap()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TempoMap() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTickClock(t *testing.T) {
	// One beat at 120 BPM, then 60 BPM.
	clock := NewTickClock(480, []TempoChange{{0, 500000}, {480, 1000000}})

	tests := []struct {
		tick int
		at   time.Duration
	}{
		{0, 0},
		{240, 250 * time.Millisecond},
		{480, 500 * time.Millisecond},
		{720, 1000 * time.Millisecond},
		{960, 1500 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := clock.TimeAt(tt.tick); got != tt.at {
			t.Errorf("TimeAt(%d) = %v, want %v", tt.tick, got, tt.at)
		}
		if got := clock.TickAt(tt.at); got != tt.tick {
			t.Errorf("TickAt(%v) = %d, want %d", tt.at, got, tt.tick)
		}
	}

	if got := clock.TempoAt(479).BPM(); got != 120 {
		t.Errorf("TempoAt(479).BPM() = %v, want 120", got)
	}
	if got := clock.TempoAt(480).BPM(); got != 60 {
		t.Errorf("TempoAt(480).BPM() = %v, want 60", got)
	}
}

func TestTickClock_EmptyMap(t *testing.T) {
	clock := NewTickClock(96, nil)
	if got := clock.TickAt(time.Second); got != 192 {
		t.Errorf("TickAt(1s) = %d, want 192", got)
	}
}

func TestDescribe_Tempos(t *testing.T) {
	info, err := Describe(twoTrackSong(t))
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if len(info.Tempos) != 1 || info.Tempos[0].BPM() != 120 {
		t.Errorf("Tempos = %v, want one change at 120 BPM", info.Tempos)
	}
}
