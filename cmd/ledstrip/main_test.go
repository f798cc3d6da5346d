package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"

	"github.com/nerrad567/gray-logic-ledstrip/internal/api"
	"github.com/nerrad567/gray-logic-ledstrip/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-ledstrip/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-ledstrip/internal/light"
)

type publishedMsg struct {
	topic   string
	payload string
}

// fakePubSub stands in for *mqtt.Client.
type fakePubSub struct {
	mu        sync.Mutex
	handlers  map[string]mqtt.MessageHandler
	published []publishedMsg
}

func newFakePubSub() *fakePubSub {
	return &fakePubSub{handlers: make(map[string]mqtt.MessageHandler)}
}

func (f *fakePubSub) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakePubSub) Publish(topic string, payload []byte, _ byte, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishedMsg{topic: topic, payload: string(payload)})
	return nil
}

func (f *fakePubSub) deliver(t *testing.T, topic, payload string) {
	t.Helper()
	f.mu.Lock()
	h := f.handlers[topic]
	f.mu.Unlock()
	if h == nil {
		t.Fatalf("no handler subscribed to %s", topic)
	}
	if err := h(topic, []byte(payload)); err != nil {
		t.Fatalf("handler(%s) error: %v", topic, err)
	}
}

func (f *fakePubSub) sent(topic string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.published {
		if m.topic == topic {
			out = append(out, m.payload)
		}
	}
	return out
}

func parseLights(t *testing.T, yaml string) []config.LightConfig {
	t.Helper()
	cfg, err := config.Parse([]byte(`
site:
  id: test
database:
  path: /tmp/test.db
mqtt:
  broker:
    host: localhost
` + yaml))
	if err != nil {
		t.Fatalf("config.Parse() error: %v", err)
	}
	return cfg.Lights
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv(configPathEnv, "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv(configPathEnv, "/etc/ledstrip/config.yaml")
	if got := getConfigPath(); got != "/etc/ledstrip/config.yaml" {
		t.Errorf("getConfigPath() = %q, want env override", got)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv(configPathEnv, "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestRun_ValidationError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
site:
  id: test
database:
  path: ""
mqtt:
  broker:
    host: localhost
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail when validation fails")
	}
}

func TestMQTTTransport_RoutesMessages(t *testing.T) {
	ps := newFakePubSub()
	transport := mqttTransport{client: ps}

	var got string
	err := transport.Subscribe("stat/desk/POWER", 0, func(_ string, payload []byte) error {
		got = string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}
	ps.deliver(t, "stat/desk/POWER", "ON")
	if got != "ON" {
		t.Errorf("handler received %q, want ON", got)
	}

	if err := transport.Publish("cmnd/desk/POWER", []byte("OFF"), 1, false); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if sent := ps.sent("cmnd/desk/POWER"); len(sent) != 1 || sent[0] != "OFF" {
		t.Errorf("published = %v, want [OFF]", sent)
	}
}

func TestBuildLight_FromConfig(t *testing.T) {
	lights := parseLights(t, `
lights:
  - id: desk
    name: Desk Strip
    command_topic: cmnd/desk/POWER
    state_topic: tele/desk/STATE
    state_value_template: "jq(value, '.POWER')"
    rgb_command_topic: cmnd/desk/Color2
    rgb_command_template: "fmt('%d,%d,%d', red, green, blue)"
`)
	ps := newFakePubSub()
	l, err := buildLight(lights[0], mqttTransport{client: ps}, nil)
	if err != nil {
		t.Fatalf("buildLight() error: %v", err)
	}
	if l.ID() != "desk" || l.Name() != "Desk Strip" {
		t.Errorf("light = %s/%s, want desk/Desk Strip", l.ID(), l.Name())
	}
	if err := l.Attach(context.Background()); err != nil {
		t.Fatalf("Attach() error: %v", err)
	}

	ps.deliver(t, "tele/desk/STATE", `{"POWER":"ON","Dimmer":40}`)
	if !l.IsOn() {
		t.Error("light should be on after templated state message")
	}

	if err := l.TurnOn(context.Background(), light.Attributes{Color: &light.Color{R: 0x12, G: 0x34, B: 0x56}}); err != nil {
		t.Fatalf("TurnOn() error: %v", err)
	}
	sent := ps.sent("cmnd/desk/Color2")
	if len(sent) != 1 || sent[0] != "18,52,86" {
		t.Errorf("color command = %v, want [18,52,86]", sent)
	}
}

func TestBuildLight_InvalidTemplate(t *testing.T) {
	tests := []struct {
		name  string
		field string
	}{
		{name: "state", field: "state_value_template"},
		{name: "brightness", field: "brightness_value_template"},
		{name: "rgb", field: "rgb_value_template"},
		{name: "effect", field: "effect_value_template"},
		{name: "rgb command", field: "rgb_command_template"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lights := parseLights(t, `
lights:
  - id: desk
    command_topic: cmnd/desk/POWER
    `+tt.field+`: "jq(("
`)
			_, err := buildLight(lights[0], mqttTransport{client: newFakePubSub()}, nil)
			if err == nil {
				t.Fatalf("buildLight() should reject invalid %s", tt.field)
			}
		})
	}
}

type fakeJSONPublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
	sent   chan struct{}
}

func (f *fakeJSONPublisher) PublishJSON(topic string, _ any, retained bool) error {
	f.mu.Lock()
	if retained {
		f.topics = append(f.topics, topic)
	}
	f.mu.Unlock()
	f.sent <- struct{}{}
	return f.err
}

type countingLogger struct {
	mu    sync.Mutex
	warns int
}

func (l *countingLogger) Warn(string, ...any) {
	l.mu.Lock()
	l.warns++
	l.mu.Unlock()
}

func (l *countingLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.warns
}

func TestStatePublisher_RepublishesRetained(t *testing.T) {
	defer leaktest.Check(t)()

	pub := &fakeJSONPublisher{sent: make(chan struct{}, 1)}
	logger := &countingLogger{}
	p := newStatePublisher(pub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.Observe("desk", light.State{On: true})

	select {
	case <-pub.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("state was not republished")
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.topics) != 1 || pub.topics[0] != "ledstrip/light/desk/state" {
		t.Errorf("retained topics = %v, want [ledstrip/light/desk/state]", pub.topics)
	}
}

func TestStatePublisher_LogsFailures(t *testing.T) {
	defer leaktest.Check(t)()

	pub := &fakeJSONPublisher{sent: make(chan struct{}, 1), err: errors.New("not connected")}
	logger := &countingLogger{}
	p := newStatePublisher(pub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.Observe("desk", light.State{})
	<-pub.sent

	deadline := time.Now().Add(2 * time.Second)
	for logger.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if logger.count() != 1 {
		t.Errorf("warnings = %d, want 1", logger.count())
	}
}

func TestStatePublisher_DropsWhenFull(t *testing.T) {
	logger := &countingLogger{}
	p := newStatePublisher(&fakeJSONPublisher{sent: make(chan struct{}, 1)}, logger)

	for i := 0; i < republishQueueSize+3; i++ {
		p.Observe("desk", light.State{})
	}
	if logger.count() != 3 {
		t.Errorf("warnings = %d, want 3", logger.count())
	}
}

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func TestHealthCheck(t *testing.T) {
	ok := checkerFunc(func(context.Context) error { return nil })
	bad := checkerFunc(func(context.Context) error { return errors.New("down") })

	if err := healthCheck(context.Background(), map[string]api.HealthChecker{"a": ok, "b": ok}); err != nil {
		t.Errorf("healthCheck() error = %v, want nil", err)
	}

	err := healthCheck(context.Background(), map[string]api.HealthChecker{"a": ok, "mqtt": bad})
	if err == nil || err.Error() != "mqtt: down" {
		t.Errorf("healthCheck() error = %v, want mqtt: down", err)
	}
}

func TestMigrate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
site:
  id: test
database:
  path: ` + filepath.Join(dir, "history.db") + `
mqtt:
  broker:
    host: localhost
lights:
  - id: desk
    command_topic: cmnd/desk/POWER
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv(configPathEnv, path)
	ctx := context.Background()

	steps := []struct {
		command string
		want    string
	}{
		{command: "status", want: "pending  20260301_120000"},
		{command: "up", want: "applied  20260301_120000"},
		{command: "down", want: "pending  20260301_120000"},
	}
	for _, step := range steps {
		var out strings.Builder
		if err := migrate(ctx, step.command, &out); err != nil {
			t.Fatalf("migrate(%s) error: %v", step.command, err)
		}
		if !strings.Contains(out.String(), step.want) {
			t.Errorf("migrate(%s) output = %q, want %q", step.command, out.String(), step.want)
		}
	}

	if err := migrate(ctx, "sideways", io.Discard); err == nil {
		t.Error("migrate() should reject an unknown command")
	}
}

func TestStartWorker_StopWaitsForDrain(t *testing.T) {
	defer leaktest.Check(t)()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var drained bool
	started := make(chan struct{})
	stop := startWorker(ctx, func(workCtx context.Context) {
		close(started)
		<-workCtx.Done()
		time.Sleep(20 * time.Millisecond)
		drained = true
	})

	<-started
	stop()
	if !drained {
		t.Error("stop() returned before the worker finished")
	}
}

func TestStatePublisher_StopAfterQueued(t *testing.T) {
	defer leaktest.Check(t)()

	pub := &fakeJSONPublisher{sent: make(chan struct{}, 1)}
	p := newStatePublisher(pub, &countingLogger{})
	stop := startWorker(context.Background(), p.Run)

	p.Observe("desk", light.State{On: true})
	<-pub.sent
	stop()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.topics) != 1 {
		t.Errorf("republished %d states, want 1", len(pub.topics))
	}
}
