package light

// store is the believed device state plus the trust mode of every channel.
// It is owned by exactly one Light and guarded by Light.mu.
type store struct {
	// optimistic[ch] is true when ch is assumed locally instead of fed by a state topic.
	optimistic [channelCount]bool

	power bool

	brightness    uint8
	hasBrightness bool

	color    Color
	hasColor bool

	effect    string
	hasEffect bool
}

// newStore applies the initialisation rules: a channel is optimistic when the
// global flag is set or its state topic is absent, and optional channels get a
// starting value only when either of their topics exists.
func newStore(topics TopicSet, optimistic bool) store {
	var s store
	for _, ch := range Channels {
		s.optimistic[ch] = optimistic || !topics.HasState(ch)
	}

	if topics.HasState(ChannelBrightness) || topics.HasCommand(ChannelBrightness) {
		s.brightness, s.hasBrightness = MaxBrightness, true
	}
	if topics.HasState(ChannelColor) || topics.HasCommand(ChannelColor) {
		s.color, s.hasColor = White, true
	}
	if topics.HasState(ChannelEffect) || topics.HasCommand(ChannelEffect) {
		s.effect, s.hasEffect = EffectNone, true
	}
	return s
}

func (s *store) snapshot() State {
	st := State{On: s.power}
	if s.hasBrightness {
		b := s.brightness
		st.Brightness = &b
	}
	if s.hasColor {
		c := s.color
		st.Color = &c
	}
	if s.hasEffect {
		e := s.effect
		st.Effect = &e
	}
	return st
}

// lastBrightness returns the brightness to synthesise when brightness stands
// in for the "on" command. Zero counts as unknown since it would keep the light off.
func (s *store) lastBrightness() uint8 {
	if s.hasBrightness && s.brightness > 0 {
		return s.brightness
	}
	return MaxBrightness
}
