package mqtt

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-ledstrip/internal/infrastructure/config"
)

// Client is the bridge's broker connection. On top of paho it keeps a
// retained online/offline status (with a matching LWT), remembers every
// subscription so it survives a reconnect, and shields paho from handler
// panics. All methods are safe for concurrent use.
type Client struct {
	paho pahomqtt.Client
	cfg  config.MQTTConfig

	online atomic.Bool

	subsMu sync.RWMutex
	subs   map[string]*subscription

	hooksMu      sync.RWMutex
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger
}

// Logger receives connection events and handler failures. *logging.Logger
// and *slog.Logger both satisfy it.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type discardLogger struct{}

func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}

// subscription is one broker subscription shared by every handler
// registered for the same topic filter. qos is the highest requested.
type subscription struct {
	qos      byte
	handlers []*handlerEntry
}

// handlerEntry gives a handler an identity so a failed Subscribe can
// remove exactly the entry it added.
type handlerEntry struct {
	fn MessageHandler
}

// MessageHandler handles one inbound message. It runs on paho's delivery
// goroutine, so it must not block. A returned error is only logged.
type MessageHandler func(topic string, payload []byte) error

// Connect dials the broker and waits for the first CONNACK. Paho owns
// reconnection from then on; each (re)connect republishes the online status
// and restores subscriptions.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := newClient(cfg, nil)

	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		c.log().Info("reconnecting to broker")
	})

	c.paho = pahomqtt.NewClient(opts)
	if err := await(c.paho.Connect(), defaultConnectTimeout, ErrConnectionFailed); err != nil {
		return nil, err
	}

	// OnConnect fires on its own goroutine and may not have run yet.
	c.setConnected(true)
	return c, nil
}

func newClient(cfg config.MQTTConfig, paho pahomqtt.Client) *Client {
	return &Client{
		paho: paho,
		cfg:  cfg,
		subs: make(map[string]*subscription),
	}
}

// await waits for a paho token and wraps a timeout or broker error in
// sentinel.
func await(token pahomqtt.Token, timeout time.Duration, sentinel error) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: no response within %v", sentinel, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}

func (c *Client) setConnected(v bool) { c.online.Store(v) }

func (c *Client) handleConnect() {
	c.setConnected(true)

	c.subsMu.RLock()
	for topic, sub := range c.subs {
		// A failed restore is retried by paho on the next reconnect.
		c.paho.Subscribe(topic, sub.qos, c.dispatch(topic))
	}
	c.subsMu.RUnlock()

	c.publishStatus(StatusOnline, "")

	c.hooksMu.RLock()
	hook := c.onConnect
	c.hooksMu.RUnlock()
	if hook != nil {
		hook()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.setConnected(false)
	c.log().Warn("broker connection lost", "error", err)

	c.hooksMu.RLock()
	hook := c.onDisconnect
	c.hooksMu.RUnlock()
	if hook != nil {
		hook(err)
	}
}

func (c *Client) publishStatus(status, reason string) pahomqtt.Token {
	payload := buildStatusPayload(status, c.cfg.Broker.ClientID, reason)
	return c.paho.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true, payload) // #nosec G115 -- qos validated by config
}

// Close marks the bridge offline on the status topic and disconnects.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}
	if c.IsConnected() {
		c.publishStatus(StatusOffline, ReasonGracefulShutdown).WaitTimeout(defaultPublishTimeout)
	}
	c.paho.Disconnect(defaultDisconnectQuiesce)
	c.setConnected(false)
	return nil
}

// HealthCheck fails with ErrNotConnected while the broker link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected combines our own view with paho's, since paho may notice a
// dead link before the connection-lost callback runs.
func (c *Client) IsConnected() bool {
	return c.online.Load() && c.paho != nil && c.paho.IsConnected()
}

// SetOnConnect registers fn to run after every successful (re)connect.
func (c *Client) SetOnConnect(fn func()) {
	c.hooksMu.Lock()
	c.onConnect = fn
	c.hooksMu.Unlock()
}

// SetOnDisconnect registers fn to run when the connection drops.
func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.hooksMu.Lock()
	c.onDisconnect = fn
	c.hooksMu.Unlock()
}

// SetLogger sets where connection events and handler failures go. Without
// one they are discarded.
func (c *Client) SetLogger(logger Logger) {
	c.hooksMu.Lock()
	c.logger = logger
	c.hooksMu.Unlock()
}

func (c *Client) log() Logger {
	c.hooksMu.RLock()
	defer c.hooksMu.RUnlock()
	if c.logger == nil {
		return discardLogger{}
	}
	return c.logger
}

// dispatch fans a message out to every handler registered for filter,
// read at delivery time so handlers added later are included.
func (c *Client) dispatch(filter string) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.subsMu.RLock()
		var handlers []*handlerEntry
		if sub := c.subs[filter]; sub != nil {
			handlers = slices.Clone(sub.handlers)
		}
		c.subsMu.RUnlock()

		topic, payload := msg.Topic(), msg.Payload()
		for _, h := range handlers {
			c.invoke(h.fn, topic, payload)
		}
	}
}

// invoke runs one handler. A panic is logged and contained so the other
// handlers on the topic still run.
func (c *Client) invoke(handler MessageHandler, topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.log().Error("message handler panicked", "topic", topic, "panic", r)
		}
	}()
	if err := handler(topic, payload); err != nil {
		c.log().Warn("message handler failed", "topic", topic, "error", err)
	}
}
