package main

import (
	"fmt"

	"github.com/nerrad567/gray-logic-ledstrip/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-ledstrip/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-ledstrip/internal/light"
	"github.com/nerrad567/gray-logic-ledstrip/internal/template"
)

// pubSub is the part of *mqtt.Client the lights need.
type pubSub interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// mqttTransport adapts the MQTT client to light.Transport.
type mqttTransport struct {
	client pubSub
}

func (t mqttTransport) Subscribe(topic string, qos byte, handler light.MessageHandler) error {
	return t.client.Subscribe(topic, qos, mqtt.MessageHandler(handler))
}

func (t mqttTransport) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return t.client.Publish(topic, payload, qos, retained)
}

// buildLight turns one validated light configuration into a Light.
func buildLight(lc config.LightConfig, transport light.Transport, logger light.Logger) (*light.Light, error) {
	templates, err := compileTemplates(lc)
	if err != nil {
		return nil, err
	}

	return light.New(light.Options{
		ID:              lc.ID,
		Name:            lc.Name,
		Topics:          lc.Topics(),
		Templates:       templates,
		QoS:             byte(lc.QoS), // #nosec G115 -- validated to 0..2
		Retain:          lc.Retain,
		Optimistic:      lc.Optimistic,
		PayloadOn:       lc.PayloadOn,
		PayloadOff:      lc.PayloadOff,
		BrightnessScale: lc.BrightnessScale,
		Effects:         lc.EffectList,
		OnCommandType:   light.OnCommandType(lc.OnCommandType),
		Transport:       transport,
		Logger:          logger,
	})
}

func compileTemplates(lc config.LightConfig) (light.TemplateSet, error) {
	var set light.TemplateSet
	var err error

	if set.Power, err = compileRenderer("state_value_template", lc.StateValueTemplate); err != nil {
		return set, err
	}
	if set.Brightness, err = compileRenderer("brightness_value_template", lc.BrightnessValueTemplate); err != nil {
		return set, err
	}
	if set.Color, err = compileRenderer("rgb_value_template", lc.RGBValueTemplate); err != nil {
		return set, err
	}
	if set.Effect, err = compileRenderer("effect_value_template", lc.EffectValueTemplate); err != nil {
		return set, err
	}
	if lc.RGBCommandTemplate != "" {
		expr, compileErr := template.Compile(lc.RGBCommandTemplate)
		if compileErr != nil {
			return set, fmt.Errorf("rgb_command_template: %w", compileErr)
		}
		set.ColorCommand = expr
	}
	return set, nil
}

// compileRenderer returns a nil Renderer for an empty source so the light
// falls back to passing payloads through unchanged.
func compileRenderer(field, source string) (light.Renderer, error) {
	if source == "" {
		return nil, nil
	}
	expr, err := template.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return expr, nil
}
