package config

import (
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-ledstrip/internal/light"
)

// DefaultLightName is used for lights configured without a name.
const DefaultLightName = "Tasmota"

// LightConfig describes one MQTT-controlled RGB light.
// Keys mirror the Home Assistant MQTT light schema used by Tasmota setups.
type LightConfig struct {
	// ID is the stable identifier used in API paths, history rows and topics.
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	CommandTopic       string `yaml:"command_topic"`
	StateTopic         string `yaml:"state_topic"`
	StateValueTemplate string `yaml:"state_value_template"`

	// ValueTemplate is the legacy name for StateValueTemplate.
	ValueTemplate string `yaml:"value_template"`

	BrightnessCommandTopic  string `yaml:"brightness_command_topic"`
	BrightnessStateTopic    string `yaml:"brightness_state_topic"`
	BrightnessScale         int    `yaml:"brightness_scale"`
	BrightnessValueTemplate string `yaml:"brightness_value_template"`

	RGBCommandTopic    string `yaml:"rgb_command_topic"`
	RGBStateTopic      string `yaml:"rgb_state_topic"`
	RGBValueTemplate   string `yaml:"rgb_value_template"`
	RGBCommandTemplate string `yaml:"rgb_command_template"`

	EffectCommandTopic  string   `yaml:"effect_command_topic"`
	EffectStateTopic    string   `yaml:"effect_state_topic"`
	EffectValueTemplate string   `yaml:"effect_value_template"`
	EffectList          []string `yaml:"effect_list"`

	QoS        int    `yaml:"qos"`
	Retain     bool   `yaml:"retain"`
	Optimistic bool   `yaml:"optimistic"`
	PayloadOn  string `yaml:"payload_on"`
	PayloadOff string `yaml:"payload_off"`

	OnCommandType string `yaml:"on_command_type"`
}

func (l *LightConfig) applyDefaults() {
	if l.Name == "" {
		l.Name = DefaultLightName
	}
	if l.StateValueTemplate == "" {
		l.StateValueTemplate = l.ValueTemplate
	}
	if l.BrightnessScale == 0 {
		l.BrightnessScale = light.DefaultBrightnessScale
	}
	if l.PayloadOn == "" {
		l.PayloadOn = light.DefaultPayloadOn
	}
	if l.PayloadOff == "" {
		l.PayloadOff = light.DefaultPayloadOff
	}
	if l.OnCommandType == "" {
		l.OnCommandType = string(light.DefaultOnCommandType)
	}
	if l.EffectList == nil {
		l.EffectList = append([]string(nil), light.DefaultEffects...)
	}
}

func (l *LightConfig) validate(i int) []string {
	var errs []string
	field := func(name string) string { return fmt.Sprintf("lights[%d].%s", i, name) }

	if l.ID == "" {
		errs = append(errs, field("id")+" is required")
	} else if strings.ContainsAny(l.ID, "/#+ ") {
		errs = append(errs, field("id")+" must not contain '/', '#', '+' or spaces")
	}
	if l.CommandTopic == "" {
		errs = append(errs, field("command_topic")+" is required")
	}
	if l.QoS < 0 || l.QoS > 2 {
		errs = append(errs, field("qos")+" must be 0, 1, or 2")
	}
	if l.BrightnessScale < 1 {
		errs = append(errs, field("brightness_scale")+" must be at least 1")
	}
	if !light.OnCommandType(l.OnCommandType).Valid() {
		errs = append(errs, field("on_command_type")+" must be first, last, or brightness")
	}
	if l.PayloadOn == l.PayloadOff {
		errs = append(errs, field("payload_on")+" and payload_off must differ")
	}
	for j, name := range l.EffectList {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Sprintf("%s[%d] must not be empty", field("effect_list"), j))
		}
	}
	return errs
}

// Topics returns the light's topic configuration.
func (l *LightConfig) Topics() light.TopicSet {
	return light.TopicSet{
		Power:      light.TopicPair{Command: l.CommandTopic, State: l.StateTopic},
		Brightness: light.TopicPair{Command: l.BrightnessCommandTopic, State: l.BrightnessStateTopic},
		Color:      light.TopicPair{Command: l.RGBCommandTopic, State: l.RGBStateTopic},
		Effect:     light.TopicPair{Command: l.EffectCommandTopic, State: l.EffectStateTopic},
	}
}
