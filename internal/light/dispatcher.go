package light

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// TurnOn sends the on sequence for attrs and applies optimistic updates.
//
// The publish order is fixed because devices apply commands cumulatively:
// "on" (first mode), color, brightness, effect, "on" (last mode). In brightness
// mode a missing brightness is synthesised from the last known value.
// Publishes are fire-and-forget: a failed publish is reported in the returned
// error but does not stop the sequence or undo optimistic state. All state
// changes are delivered to observers as a single notification.
func (l *Light) TurnOn(ctx context.Context, attrs Attributes) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.cmdMu.Lock()
	defer l.cmdMu.Unlock()

	var (
		errs   []error
		writes []func(s *store) bool
	)
	publish := func(ch Channel, payload string) {
		if err := l.publish(ch, payload); err != nil {
			errs = append(errs, err)
		}
	}

	if l.onCommandType == OnCommandFirst {
		publish(ChannelPower, l.payloadOn)
	}

	if l.onCommandType == OnCommandBrightness && attrs.Brightness == nil {
		l.mu.Lock()
		b := l.st.lastBrightness()
		l.mu.Unlock()
		attrs.Brightness = &b
	}

	if attrs.Color != nil && l.topics.HasCommand(ChannelColor) {
		c := *attrs.Color
		payload, err := l.templates.colorCommand().FormatColor(c)
		if err != nil {
			errs = append(errs, fmt.Errorf("formatting color command: %w", err))
		} else {
			publish(ChannelColor, payload)
			writes = append(writes, func(s *store) bool {
				if !s.optimistic[ChannelColor] {
					return false
				}
				s.color, s.hasColor = c, true
				return true
			})
		}
	}

	if attrs.Brightness != nil && l.topics.HasCommand(ChannelBrightness) {
		b := *attrs.Brightness
		publish(ChannelBrightness, strconv.Itoa(scaleToDevice(b, l.scale)))
		writes = append(writes, func(s *store) bool {
			if !s.optimistic[ChannelBrightness] {
				return false
			}
			s.brightness, s.hasBrightness = b, true
			return true
		})
	}

	if attrs.Effect != nil && l.topics.HasCommand(ChannelEffect) {
		name := *attrs.Effect
		if i, ok := l.effects.Index(name); ok {
			publish(ChannelEffect, strconv.Itoa(i))
			writes = append(writes, func(s *store) bool {
				if !s.optimistic[ChannelEffect] {
					return false
				}
				s.effect, s.hasEffect = name, true
				return true
			})
		} else {
			l.logger.Debug("dropping unknown effect", "effect", name)
		}
	}

	if l.onCommandType == OnCommandLast {
		publish(ChannelPower, l.payloadOn)
	}

	l.mutate(func(s *store) bool {
		dirty := false
		for _, w := range writes {
			if w(s) {
				dirty = true
			}
		}
		if s.optimistic[ChannelPower] {
			s.power = true
			dirty = true
		}
		return dirty
	})

	if len(errs) > 0 {
		return fmt.Errorf("light %s: %w: %w", l.id, ErrPublishFailed, errors.Join(errs...))
	}
	return nil
}

// TurnOff publishes the off literal. Power only changes locally when the
// power channel is optimistic; otherwise the state topic must confirm it.
func (l *Light) TurnOff(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.cmdMu.Lock()
	defer l.cmdMu.Unlock()

	err := l.publish(ChannelPower, l.payloadOff)

	l.mutate(func(s *store) bool {
		if !s.optimistic[ChannelPower] {
			return false
		}
		s.power = false
		return true
	})

	if err != nil {
		return fmt.Errorf("light %s: %w: %w", l.id, ErrPublishFailed, err)
	}
	return nil
}

func (l *Light) publish(ch Channel, payload string) error {
	topic := l.topics.CommandTopic(ch)
	l.logger.Debug("publishing command", "channel", ch.String(), "topic", topic, "payload", payload)
	if err := l.transport.Publish(topic, []byte(payload), l.qos, l.retain); err != nil {
		l.logger.Warn("command publish failed", "channel", ch.String(), "topic", topic, "error", err)
		return fmt.Errorf("%s command to %q: %w", ch, topic, err)
	}
	return nil
}
