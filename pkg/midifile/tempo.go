package midifile

import (
	"sort"
	"time"
)

// DefaultMicrosPerBeat is the tempo of a song without tempo events, 120 BPM.
const DefaultMicrosPerBeat = 500000

// TempoChange is a tempo in effect from Tick onward.
type TempoChange struct {
	Tick          int
	MicrosPerBeat int
}

// BPM returns the tempo in beats per minute.
func (c TempoChange) BPM() float64 {
	return 60e6 / float64(c.MicrosPerBeat)
}

// TempoMap returns the tempo changes of every track in tick order. The
// first entry is always at tick 0. Zero tempos are ignored, and of several
// changes on one tick the last wins.
func (f *File) TempoMap() []TempoChange {
	var changes []TempoChange
	for _, events := range f.tracks {
		tick := 0
		for _, ev := range events {
			tick += int(ev.Delta)
			if ev.Kind != KindMeta || ev.MetaType != MetaSetTempo || len(ev.Data) != 3 {
				continue
			}
			us := int(ev.Data[0])<<16 | int(ev.Data[1])<<8 | int(ev.Data[2])
			if us > 0 {
				changes = append(changes, TempoChange{Tick: tick, MicrosPerBeat: us})
			}
		}
	}
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].Tick < changes[j].Tick })

	out := []TempoChange{{Tick: 0, MicrosPerBeat: DefaultMicrosPerBeat}}
	for _, c := range changes {
		if last := &out[len(out)-1]; last.Tick == c.Tick {
			last.MicrosPerBeat = c.MicrosPerBeat
			continue
		}
		out = append(out, c)
	}
	return out
}

// TickClock converts between song time and ticks across tempo changes.
type TickClock struct {
	ticksPerBeat int
	tempos       []TempoChange
	startAt      []time.Duration // song time at which each tempo starts
}

// NewTickClock creates a clock from a tempo map as returned by TempoMap.
func NewTickClock(ticksPerBeat int, tempos []TempoChange) *TickClock {
	if len(tempos) == 0 {
		tempos = []TempoChange{{Tick: 0, MicrosPerBeat: DefaultMicrosPerBeat}}
	}
	c := &TickClock{
		ticksPerBeat: max(ticksPerBeat, 1),
		tempos:       tempos,
		startAt:      make([]time.Duration, len(tempos)),
	}
	for i := 1; i < len(tempos); i++ {
		c.startAt[i] = c.startAt[i-1] + c.span(tempos[i-1], tempos[i].Tick-tempos[i-1].Tick)
	}
	return c
}

// span is the duration of ticks at tempo t.
func (c *TickClock) span(t TempoChange, ticks int) time.Duration {
	return time.Duration(int64(ticks) * int64(t.MicrosPerBeat) * int64(time.Microsecond) / int64(c.ticksPerBeat))
}

// TimeAt returns the song time of tick.
func (c *TickClock) TimeAt(tick int) time.Duration {
	i := sort.Search(len(c.tempos), func(i int) bool { return c.tempos[i].Tick > tick }) - 1
	i = max(i, 0)
	return c.startAt[i] + c.span(c.tempos[i], tick-c.tempos[i].Tick)
}

// TickAt returns the tick playing at song time t.
func (c *TickClock) TickAt(t time.Duration) int {
	i := sort.Search(len(c.startAt), func(i int) bool { return c.startAt[i] > t }) - 1
	i = max(i, 0)
	tempo := c.tempos[i]
	elapsed := int64(t - c.startAt[i])
	return tempo.Tick + int(elapsed*int64(c.ticksPerBeat)/(int64(tempo.MicrosPerBeat)*int64(time.Microsecond)))
}

// TempoAt returns the tempo in effect at tick.
func (c *TickClock) TempoAt(tick int) TempoChange {
	i := sort.Search(len(c.tempos), func(i int) bool { return c.tempos[i].Tick > tick }) - 1
	return c.tempos[max(i, 0)]
}
