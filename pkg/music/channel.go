package music

// NumChannels is the number of MIDI channels.
const NumChannels = 16

// PercussionChannel is the zero-based General MIDI drum channel.
const PercussionChannel = 9

// ChannelState is the per-channel controller state. Pan and pitch bend are
// recorded but not applied to synthesis.
type ChannelState struct {
	Instrument uint8
	Volume     uint8
	PitchBend  int
	Pan        uint8
}

func defaultChannel() ChannelState {
	return ChannelState{Instrument: 0, Volume: 127, PitchBend: 0, Pan: 64}
}

func (e *Engine) resetChannels() {
	for i := range e.channels {
		e.channels[i] = defaultChannel()
	}
}
