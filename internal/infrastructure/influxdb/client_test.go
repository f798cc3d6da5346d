package influxdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-ledstrip/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-ledstrip/internal/light"
)

// fakeInflux answers the two endpoints the client uses: /ping and /api/v2/write.
type fakeInflux struct {
	mu        sync.Mutex
	lines     []string
	writeCode int
	server    *httptest.Server
}

func newFakeInflux(t *testing.T) *fakeInflux {
	t.Helper()
	f := &fakeInflux{writeCode: http.StatusNoContent}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			w.WriteHeader(http.StatusNoContent)
		case "/api/v2/write":
			body, _ := io.ReadAll(r.Body) //nolint:errcheck // test server
			f.mu.Lock()
			for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
				if line != "" {
					f.lines = append(f.lines, line)
				}
			}
			code := f.writeCode
			f.mu.Unlock()
			w.WriteHeader(code)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeInflux) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "test-token",
		Org:           "ledstrip",
		Bucket:        "lights",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

func waitForLines(t *testing.T, f *fakeInflux, n int) []string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if lines := f.received(); len(lines) >= n {
			return lines
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d line(s), got %d", n, len(f.received()))
	return nil
}

func TestConnect(t *testing.T) {
	f := newFakeInflux(t)

	client, err := Connect(context.Background(), testConfig(f.server.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Enabled = false

	if _, err := Connect(context.Background(), cfg); !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	f := newFakeInflux(t)
	url := f.server.URL
	f.server.Close()

	if _, err := Connect(context.Background(), testConfig(url)); !errors.Is(err, ErrUnreachable) {
		t.Errorf("Connect() error = %v, want ErrUnreachable", err)
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	f := newFakeInflux(t)
	cfg := testConfig(f.server.URL)
	cfg.BatchSize = -1
	cfg.FlushInterval = 0

	client, err := Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() with defaults error = %v", err)
	}
	client.Close()
}

func TestClose(t *testing.T) {
	f := newFakeInflux(t)
	client, err := Connect(context.Background(), testConfig(f.server.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrClosed", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	// Writes and flushes after Close are no-ops.
	client.WriteLightState("strip", light.State{On: true})
	client.Flush()
}

func TestClose_Nil(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v", err)
	}
}

func TestWriteLightState(t *testing.T) {
	f := newFakeInflux(t)
	client, err := Connect(context.Background(), testConfig(f.server.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	b := uint8(128)
	effect := "Fire"
	client.WriteLightState("kitchen", light.State{
		On:         true,
		Brightness: &b,
		Color:      &light.Color{R: 255, G: 64, B: 0},
		Effect:     &effect,
	})
	client.Flush()

	lines := waitForLines(t, f, 1)
	line := lines[0]
	for _, want := range []string{
		"light_state,light_id=kitchen ",
		"on=true",
		"brightness=128i",
		"red=255i",
		"green=64i",
		"blue=0i",
		`effect="Fire"`,
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestWriteLightState_AsObserver(t *testing.T) {
	f := newFakeInflux(t)
	client, err := Connect(context.Background(), testConfig(f.server.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	l, err := light.New(light.Options{
		ID:        "hall",
		Topics:    light.TopicSet{Power: light.TopicPair{Command: "cmnd/hall/POWER"}},
		Transport: nopTransport{},
	})
	if err != nil {
		t.Fatalf("light.New() error = %v", err)
	}
	l.Subscribe(client.WriteLightState)

	if err := l.TurnOn(context.Background(), light.Attributes{}); err != nil {
		t.Fatalf("TurnOn() error = %v", err)
	}
	if err := l.TurnOff(context.Background()); err != nil {
		t.Fatalf("TurnOff() error = %v", err)
	}
	client.Flush()

	lines := waitForLines(t, f, 2)
	if !strings.Contains(lines[0], "on=true") || !strings.Contains(lines[1], "on=false") {
		t.Errorf("lines = %q, want on then off", lines)
	}
}

func TestWriteErrorsReachCallback(t *testing.T) {
	f := newFakeInflux(t)
	f.writeCode = http.StatusBadRequest

	client, err := Connect(context.Background(), testConfig(f.server.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	got := make(chan error, 4)
	client.SetOnError(func(err error) {
		select {
		case got <- err:
		default:
		}
	})

	client.WritePoint("custom", map[string]string{"k": "v"}, map[string]interface{}{"x": 1.5})
	client.Flush()

	select {
	case err := <-got:
		if !errors.Is(err, ErrWrite) {
			t.Errorf("callback error = %v, want ErrWrite", err)
		}
		if client.Failures() == 0 {
			t.Error("Failures() = 0 after a rejected batch")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("write error never reached the callback")
	}
}

func TestLightPoint(t *testing.T) {
	at := time.Unix(1700000000, 0)

	tests := []struct {
		name    string
		state   light.State
		want    []string
		notWant []string
	}{
		{
			name:    "power only",
			state:   light.State{On: false},
			want:    []string{"light_state,light_id=strip on=false 1700000000"},
			notWant: []string{"brightness", "red", "effect"},
		},
		{
			name: "brightness without color",
			state: light.State{
				On:         true,
				Brightness: func() *uint8 { b := uint8(3); return &b }(),
			},
			want:    []string{"brightness=3i", "on=true"},
			notWant: []string{"red", "effect"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := write.PointToLineProtocol(lightPoint("strip", tt.state, at), time.Second)
			for _, w := range tt.want {
				if !strings.Contains(line, w) {
					t.Errorf("line %q missing %q", line, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(line, w) {
					t.Errorf("line %q should not contain %q", line, w)
				}
			}
		})
	}
}

type nopTransport struct{}

func (nopTransport) Subscribe(string, byte, light.MessageHandler) error { return nil }
func (nopTransport) Publish(string, []byte, byte, bool) error           { return nil }
