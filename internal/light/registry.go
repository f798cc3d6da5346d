package light

// TopicPair is the command/state topic pair of one channel.
// An empty string means the topic is not configured.
type TopicPair struct {
	Command string
	State   string
}

// TopicSet is the immutable topic configuration of one light.
type TopicSet struct {
	Power      TopicPair
	Brightness TopicPair
	Color      TopicPair
	Effect     TopicPair
}

func (t TopicSet) pair(ch Channel) TopicPair {
	switch ch {
	case ChannelPower:
		return t.Power
	case ChannelBrightness:
		return t.Brightness
	case ChannelColor:
		return t.Color
	case ChannelEffect:
		return t.Effect
	}
	return TopicPair{}
}

// CommandTopic returns the command topic of ch, or "" if none.
func (t TopicSet) CommandTopic(ch Channel) string { return t.pair(ch).Command }

// StateTopic returns the state topic of ch, or "" if none.
func (t TopicSet) StateTopic(ch Channel) string { return t.pair(ch).State }

// HasCommand reports whether ch has a command topic.
func (t TopicSet) HasCommand(ch Channel) bool { return t.pair(ch).Command != "" }

// HasState reports whether ch has a state topic.
func (t TopicSet) HasState(ch Channel) bool { return t.pair(ch).State != "" }

// Renderer transforms a raw inbound payload before it is interpreted.
type Renderer interface {
	Render(payload []byte) (string, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(payload []byte) (string, error)

// Render calls f.
func (f RendererFunc) Render(payload []byte) (string, error) { return f(payload) }

// Identity passes the payload through unchanged.
var Identity Renderer = RendererFunc(func(payload []byte) (string, error) {
	return string(payload), nil
})

// ColorFormatter builds the outbound color command payload.
type ColorFormatter interface {
	FormatColor(c Color) (string, error)
}

// ColorFormatterFunc adapts a function to ColorFormatter.
type ColorFormatterFunc func(c Color) (string, error)

// FormatColor calls f.
func (f ColorFormatterFunc) FormatColor(c Color) (string, error) { return f(c) }

// HexColor formats colors as uppercase RRGGBB.
var HexColor ColorFormatter = ColorFormatterFunc(func(c Color) (string, error) {
	return c.Hex(), nil
})

// TemplateSet holds one value transform per observable channel and the
// color command formatter. Nil members fall back to Identity and HexColor.
type TemplateSet struct {
	Power        Renderer
	Brightness   Renderer
	Color        Renderer
	Effect       Renderer
	ColorCommand ColorFormatter
}

func (t TemplateSet) transform(ch Channel) Renderer {
	var r Renderer
	switch ch {
	case ChannelPower:
		r = t.Power
	case ChannelBrightness:
		r = t.Brightness
	case ChannelColor:
		r = t.Color
	case ChannelEffect:
		r = t.Effect
	}
	if r == nil {
		return Identity
	}
	return r
}

func (t TemplateSet) colorCommand() ColorFormatter {
	if t.ColorCommand == nil {
		return HexColor
	}
	return t.ColorCommand
}
