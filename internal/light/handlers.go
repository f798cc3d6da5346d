package light

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// inboundHandler interprets one rendered state payload for a channel.
type inboundHandler func(l *Light, value string) error

// inboundHandlers is the dispatch table for state topics, keyed by channel.
var inboundHandlers = [channelCount]inboundHandler{
	ChannelPower:      (*Light).receivePower,
	ChannelBrightness: (*Light).receiveBrightness,
	ChannelColor:      (*Light).receiveColor,
	ChannelEffect:     (*Light).receiveEffect,
}

// HandleMessage renders payload with the channel's value template and applies
// it to the state store. On error the previous value is kept.
func (l *Light) HandleMessage(ch Channel, payload []byte) error {
	if ch < 0 || ch >= channelCount {
		return fmt.Errorf("light %s: unknown channel %d", l.id, int(ch))
	}
	value, err := l.templates.transform(ch).Render(payload)
	if err != nil {
		return fmt.Errorf("light %s: %s: %w: %w", l.id, ch, ErrRenderFailed, err)
	}
	if err := inboundHandlers[ch](l, value); err != nil {
		return fmt.Errorf("light %s: %w", l.id, err)
	}
	return nil
}

// receivePower matches the configured literals exactly. Anything else is
// ignored without error: device telemetry is not always a power report.
func (l *Light) receivePower(value string) error {
	var on bool
	switch value {
	case l.payloadOn:
		on = true
	case l.payloadOff:
		on = false
	default:
		l.logger.Debug("ignoring unrecognised power payload", "payload", value)
		return nil
	}
	l.mutate(func(s *store) bool {
		s.power = on
		return true
	})
	return nil
}

func (l *Light) receiveBrightness(value string) error {
	device, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(device) || math.IsInf(device, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidBrightness, value)
	}
	b := scaleFromDevice(device, l.scale)
	l.mutate(func(s *store) bool {
		s.brightness, s.hasBrightness = b, true
		return true
	})
	return nil
}

func (l *Light) receiveColor(value string) error {
	c, err := ParseHexColor(value)
	if err != nil {
		return err
	}
	l.mutate(func(s *store) bool {
		s.color, s.hasColor = c, true
		return true
	})
	return nil
}

// receiveEffect treats the payload as a zero-based catalog index. An index
// outside the catalog means the configured list does not match the firmware.
func (l *Light) receiveEffect(value string) error {
	i, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidEffect, value)
	}
	name, err := l.effects.Name(i)
	if err != nil {
		return err
	}
	l.mutate(func(s *store) bool {
		s.effect, s.hasEffect = name, true
		return true
	})
	return nil
}

// scaleFromDevice maps a device value in 0..scale onto 0..255 with
// round-half-away-from-zero, clamped to the internal range.
func scaleFromDevice(device float64, scale int) uint8 {
	v := math.Round(device * MaxBrightness / float64(scale))
	switch {
	case v < 0:
		return 0
	case v > MaxBrightness:
		return MaxBrightness
	}
	return uint8(v)
}

// scaleToDevice maps 0..255 onto 0..scale, truncating toward zero.
func scaleToDevice(b uint8, scale int) int {
	return int(b) * scale / MaxBrightness
}

// ParseHexColor parses an RRGGBB payload, with an optional leading '#'.
// Longer even-length payloads such as RRGGBBWW are accepted and the trailing
// white channels are ignored.
func ParseHexColor(value string) (Color, error) {
	s := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(s) < 6 || len(s)%2 != 0 {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, value)
	}
	var rgb [3]uint8
	for i := range rgb {
		n, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, value)
		}
		rgb[i] = uint8(n)
	}
	for i := 6; i < len(s); i += 2 {
		if _, err := strconv.ParseUint(s[i:i+2], 16, 8); err != nil {
			return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, value)
		}
	}
	return Color{R: rgb[0], G: rgb[1], B: rgb[2]}, nil
}
