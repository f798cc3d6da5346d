package light

import "fmt"

// Channel identifies one controllable/observable attribute of a light.
// The set is closed: inbound handlers and topic lookups are tables keyed by it.
type Channel int

const (
	ChannelPower Channel = iota
	ChannelBrightness
	ChannelColor
	ChannelEffect

	channelCount
)

// Channels lists every channel in dispatch order.
var Channels = [channelCount]Channel{ChannelPower, ChannelBrightness, ChannelColor, ChannelEffect}

// String returns the lowercase channel name used in logs and history rows.
func (c Channel) String() string {
	switch c {
	case ChannelPower:
		return "power"
	case ChannelBrightness:
		return "brightness"
	case ChannelColor:
		return "color"
	case ChannelEffect:
		return "effect"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// OnCommandType controls where the plain "on" payload goes in a turn-on sequence.
type OnCommandType string

const (
	// OnCommandFirst publishes "on" before any attribute command.
	OnCommandFirst OnCommandType = "first"

	// OnCommandLast publishes "on" after all attribute commands.
	OnCommandLast OnCommandType = "last"

	// OnCommandBrightness never publishes "on"; a brightness command stands in for it.
	OnCommandBrightness OnCommandType = "brightness"
)

// Valid reports whether t is one of the known on-command types.
func (t OnCommandType) Valid() bool {
	switch t {
	case OnCommandFirst, OnCommandLast, OnCommandBrightness:
		return true
	}
	return false
}

// EffectNone is the effect value meaning "no effect active".
const EffectNone = "none"

// MaxBrightness is the top of the internal brightness range.
const MaxBrightness = 255

// Color is an RGB triple, each component in 0-255.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex formats the color as uppercase RRGGBB with no leading symbol.
func (c Color) Hex() string {
	return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)
}

// White is full-intensity white, the initial color of color-capable lights.
var White = Color{R: 255, G: 255, B: 255}

// Attributes is the bundle of optional values requested with a turn-on.
// A nil field means "not requested".
type Attributes struct {
	Brightness *uint8  `json:"brightness,omitempty"`
	Color      *Color  `json:"rgb_color,omitempty"`
	Effect     *string `json:"effect,omitempty"`
}

// Features is a bitmask of capabilities advertised to the host.
type Features uint8

const (
	SupportBrightness Features = 1 << iota
	SupportColor
	SupportEffect
)

// Has reports whether all bits of f2 are set in f.
func (f Features) Has(f2 Features) bool {
	return f&f2 == f2
}

// State is a read-only snapshot of what the synchronizer believes about the device.
// Optional channels the light does not support are nil.
type State struct {
	On         bool    `json:"on"`
	Brightness *uint8  `json:"brightness,omitempty"`
	Color      *Color  `json:"rgb_color,omitempty"`
	Effect     *string `json:"effect,omitempty"`
}

// Observer receives a state snapshot after every change.
type Observer func(id string, state State)
