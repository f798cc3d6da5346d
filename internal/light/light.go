package light

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Defaults applied by New for unset options.
const (
	DefaultBrightnessScale = 100
	DefaultPayloadOn       = "ON"
	DefaultPayloadOff      = "OFF"
	DefaultOnCommandType   = OnCommandLast
)

// MessageHandler receives one inbound message. A returned error means the
// message was dropped; the transport is expected to log it.
type MessageHandler func(topic string, payload []byte) error

// Transport is the publish/subscribe collaborator.
// Connection management, QoS delivery and retries are its responsibility.
type Transport interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the structured logger used by the synchronizer.
// It is satisfied by *logging.Logger and *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}

// Options configures a Light. Only ID, Topics.Power.Command and Transport are required.
type Options struct {
	ID   string
	Name string

	Topics    TopicSet
	Templates TemplateSet

	QoS        byte
	Retain     bool
	Optimistic bool

	PayloadOn  string
	PayloadOff string

	// BrightnessScale is the device's maximum brightness value.
	BrightnessScale int

	// Effects is the ordered effect list; nil means DefaultEffects.
	Effects []string

	OnCommandType OnCommandType

	Transport Transport
	Logger    Logger
}

// Light synchronizes one RGB/brightness/effect device with its MQTT topics.
//
// Thread Safety: all methods are safe for concurrent use. Inbound handlers and
// the command dispatcher share one state mutex; commands are additionally
// serialized so their publish sequences never interleave.
type Light struct {
	id   string
	name string

	topics        TopicSet
	templates     TemplateSet
	qos           byte
	retain        bool
	payloadOn     string
	payloadOff    string
	scale         int
	effects       *EffectCatalog
	onCommandType OnCommandType
	features      Features

	transport Transport
	logger    Logger

	// mu guards st and attached.
	mu       sync.Mutex
	st       store
	attached bool

	// cmdMu serializes TurnOn/TurnOff.
	cmdMu sync.Mutex

	// notifyMu orders snapshot-and-deliver so observers see changes in order.
	notifyMu  sync.Mutex
	observers []Observer
}

// New builds a Light from opts and initialises its state store.
// No subscriptions are made until Attach.
func New(opts Options) (*Light, error) {
	if opts.ID == "" {
		return nil, fmt.Errorf("light: id is required")
	}
	if opts.Transport == nil {
		return nil, fmt.Errorf("light %s: transport is required", opts.ID)
	}
	if !opts.Topics.HasCommand(ChannelPower) {
		return nil, fmt.Errorf("light %s: %w", opts.ID, ErrNoCommandTopic)
	}
	if opts.OnCommandType == "" {
		opts.OnCommandType = DefaultOnCommandType
	}
	if !opts.OnCommandType.Valid() {
		return nil, fmt.Errorf("light %s: unknown on_command_type %q", opts.ID, opts.OnCommandType)
	}
	if opts.BrightnessScale < 1 {
		opts.BrightnessScale = DefaultBrightnessScale
	}
	if opts.PayloadOn == "" {
		opts.PayloadOn = DefaultPayloadOn
	}
	if opts.PayloadOff == "" {
		opts.PayloadOff = DefaultPayloadOff
	}
	if opts.Effects == nil {
		opts.Effects = DefaultEffects
	}
	if opts.Name == "" {
		opts.Name = opts.ID
	}
	var logger Logger = nopLogger{}
	if opts.Logger != nil {
		logger = opts.Logger
	}

	l := &Light{
		id:            opts.ID,
		name:          opts.Name,
		topics:        opts.Topics,
		templates:     opts.Templates,
		qos:           opts.QoS,
		retain:        opts.Retain,
		payloadOn:     opts.PayloadOn,
		payloadOff:    opts.PayloadOff,
		scale:         opts.BrightnessScale,
		effects:       NewEffectCatalog(opts.Effects),
		onCommandType: opts.OnCommandType,
		transport:     opts.Transport,
		logger:        logger,
		st:            newStore(opts.Topics, opts.Optimistic),
	}

	// Effect support follows the state topic, not the command topic.
	if opts.Topics.HasCommand(ChannelColor) {
		l.features |= SupportColor
	}
	if opts.Topics.HasCommand(ChannelBrightness) {
		l.features |= SupportBrightness
	}
	if opts.Topics.HasState(ChannelEffect) {
		l.features |= SupportEffect
	}

	return l, nil
}

// Attach subscribes one inbound handler per configured state topic.
// Channels sharing a topic (a Tasmota RESULT message carrying power and
// dimmer together) get a single subscription that feeds each channel in
// channel order. Subscriptions live as long as the Light; Attach may only
// run once.
func (l *Light) Attach(ctx context.Context) error {
	l.mu.Lock()
	if l.attached {
		l.mu.Unlock()
		return fmt.Errorf("light %s: %w", l.id, ErrAlreadyAttached)
	}
	l.attached = true
	l.mu.Unlock()

	var topics []string
	byTopic := make(map[string][]Channel)
	for _, ch := range Channels {
		topic := l.topics.StateTopic(ch)
		if topic == "" {
			continue
		}
		if _, seen := byTopic[topic]; !seen {
			topics = append(topics, topic)
		}
		byTopic[topic] = append(byTopic[topic], ch)
	}

	for _, topic := range topics {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("light %s: attach cancelled: %w", l.id, err)
		}

		channels := byTopic[topic]
		if err := l.transport.Subscribe(topic, l.qos, l.topicHandler(channels)); err != nil {
			return fmt.Errorf("light %s: subscribing state topic %q: %w", l.id, topic, err)
		}
		l.logger.Debug("subscribed to state topic", "channels", len(channels), "topic", topic)
	}
	return nil
}

func (l *Light) topicHandler(channels []Channel) MessageHandler {
	if len(channels) == 1 {
		ch := channels[0]
		return func(_ string, payload []byte) error {
			return l.HandleMessage(ch, payload)
		}
	}
	return func(_ string, payload []byte) error {
		var errs []error
		for _, ch := range channels {
			if err := l.HandleMessage(ch, payload); err != nil {
				errs = append(errs, err)
			}
		}
		// A shared payload only fails when no channel could use it.
		if len(errs) == len(channels) {
			return errors.Join(errs...)
		}
		for _, err := range errs {
			l.logger.Debug("state payload not applicable to channel", "error", err)
		}
		return nil
	}
}

// Subscribe registers an observer for state changes. Observers run
// synchronously after each change and must not call TurnOn, TurnOff or
// HandleMessage.
func (l *Light) Subscribe(obs Observer) {
	l.notifyMu.Lock()
	l.observers = append(l.observers, obs)
	l.notifyMu.Unlock()
}

// mutate applies fn to the store and, if it reports a change, delivers
// exactly one snapshot to every observer.
func (l *Light) mutate(fn func(s *store) bool) {
	l.notifyMu.Lock()
	defer l.notifyMu.Unlock()

	l.mu.Lock()
	changed := fn(&l.st)
	snap := l.st.snapshot()
	l.mu.Unlock()

	if !changed {
		return
	}
	for _, obs := range l.observers {
		obs(l.id, snap)
	}
}

// ID returns the light's identifier.
func (l *Light) ID() string { return l.id }

// Name returns the display name.
func (l *Light) Name() string { return l.name }

// State returns a snapshot of the believed device state.
func (l *Light) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.snapshot()
}

// IsOn reports the believed power state.
func (l *Light) IsOn() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.power
}

// Brightness returns the brightness in 0-255, or false if unsupported.
func (l *Light) Brightness() (uint8, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.brightness, l.st.hasBrightness
}

// Color returns the current color, or false if unsupported.
func (l *Light) Color() (Color, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.color, l.st.hasColor
}

// Effect returns the active effect name, or false if unsupported.
func (l *Light) Effect() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.effect, l.st.hasEffect
}

// EffectList returns the ordered effect names.
func (l *Light) EffectList() []string { return l.effects.Names() }

// Features returns the advertised capability flags.
func (l *Light) Features() Features { return l.features }

// AssumedState reports whether the power channel is optimistic.
func (l *Light) AssumedState() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.optimistic[ChannelPower]
}

// Optimistic reports whether ch is assumed locally rather than fed by its state topic.
func (l *Light) Optimistic(ch Channel) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.optimistic[ch]
}
