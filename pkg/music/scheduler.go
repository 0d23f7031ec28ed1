package music

import (
	"math"

	"github.com/zurustar/oplmusic/pkg/midifile"
)

// DefaultTempo is 120 BPM in microseconds per beat.
const DefaultTempo = 500000

// never marks a retired cursor.
const never = math.MaxUint64

// cursor tracks one track's position. Retired cursors keep their iterator
// so a loop restart can rewind them.
type cursor struct {
	it     TrackIterator
	next   uint64 // absolute time of the next event in microseconds
	active bool
}

// scheduleNext sets the cursor's next event time from the pending delta.
func (e *Engine) scheduleNext(c *cursor) {
	delta := uint64(c.it.DeltaTime()) * uint64(e.usPerBeat) / uint64(e.ticksPerBeat)
	c.next = e.now + delta
}

func (e *Engine) retire(c *cursor) {
	c.active = false
	c.next = never
	e.running--
}

// nextEventTime returns the earliest pending event time across all tracks.
func (e *Engine) nextEventTime() uint64 {
	next := uint64(never)
	for i := range e.cursors {
		if e.cursors[i].active && e.cursors[i].next < next {
			next = e.cursors[i].next
		}
	}
	return next
}

// step consumes one due event from the lowest-numbered ready track. It
// reports false if no track was due.
func (e *Engine) step() bool {
	for i := range e.cursors {
		c := &e.cursors[i]
		if !c.active || c.next > e.now {
			continue
		}

		ev, ok := c.it.Next()
		if !ok {
			e.retire(c)
			return true
		}

		e.process(ev)
		if ev.Kind == midifile.KindMeta && ev.MetaType == midifile.MetaEndOfTrack {
			e.retire(c)
		} else {
			e.scheduleNext(c)
		}
		return true
	}
	return false
}

// process applies one event to channel, voice and tempo state.
func (e *Engine) process(ev midifile.Event) {
	ch := ev.Channel & 0x0F

	switch ev.Kind {
	case midifile.KindNoteOff:
		if v := e.findVoice(ch, ev.Param1); v >= 0 {
			e.noteOff(v)
		}

	case midifile.KindNoteOn:
		if ev.Param2 == 0 {
			if v := e.findVoice(ch, ev.Param1); v >= 0 {
				e.noteOff(v)
			}
			return
		}
		e.noteOn(e.allocate(), ev.Param1, ev.Param2, ch)

	case midifile.KindController:
		switch ev.Param1 {
		case midifile.ControllerVolume:
			e.channels[ch].Volume = ev.Param2
			for i := range e.voices {
				if e.voices[i].Active && e.voices[i].Channel == ch {
					e.refreshVolume(i)
				}
			}
		case midifile.ControllerPan:
			e.channels[ch].Pan = ev.Param2
		case midifile.ControllerAllNotes:
			e.allNotesOff(ch)
		}

	case midifile.KindProgramChange:
		e.channels[ch].Instrument = ev.Param1 & 0x7F

	case midifile.KindPitchBend:
		e.channels[ch].PitchBend = ev.PitchBend()

	case midifile.KindMeta:
		if ev.MetaType == midifile.MetaSetTempo && len(ev.Data) == 3 {
			tempo := uint32(ev.Data[0])<<16 | uint32(ev.Data[1])<<8 | uint32(ev.Data[2])
			if tempo > 0 {
				e.usPerBeat = tempo
			}
		}
	}
}

// endOfSong handles the last track retiring: rewind everything when looping,
// otherwise stop. It reports whether events remain to be processed. The
// tempo in effect at the end carries over into the next pass.
func (e *Engine) endOfSong() bool {
	if !e.looping {
		e.playing = false
		e.log.Info("Song finished")
		return false
	}
	if e.drained || len(e.cursors) == 0 || e.now == 0 {
		// A pass that took no time has nothing to repeat; the song plays
		// silence until stopped.
		e.drained = true
		return false
	}

	for i := range e.cursors {
		e.cursors[i].it.Restart()
		e.cursors[i].active = true
	}
	e.running = len(e.cursors)
	e.now = 0
	e.nowFrac = 0
	for i := range e.cursors {
		e.scheduleNext(&e.cursors[i])
	}
	e.loops++
	e.log.Debug("Song looped", "count", e.loops)
	return true
}
