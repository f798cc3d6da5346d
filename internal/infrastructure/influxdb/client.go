package influxdb

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/gray-logic-ledstrip/internal/infrastructure/config"
)

const (
	pingTimeout = 5 * time.Second

	fallbackBatchSize     = 100
	fallbackFlushInterval = 10 * time.Second
)

// Client batches light telemetry into one InfluxDB bucket. Methods are safe
// for concurrent use; writes never block the caller.
type Client struct {
	influx influxdb2.Client
	writer api.WriteAPI
	now    func() time.Time

	closed   atomic.Bool
	failures atomic.Uint64
	onError  atomic.Pointer[func(error)]
}

// Connect pings the server and prepares the batching writer. ctx bounds
// only the startup ping.
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	influx := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, batchOptions(cfg))

	if err := ping(ctx, influx); err != nil {
		influx.Close()
		return nil, err
	}

	c := &Client{
		influx: influx,
		writer: influx.WriteAPI(cfg.Org, cfg.Bucket),
		now:    time.Now,
	}
	go c.drainErrors(c.writer.Errors())
	return c, nil
}

func batchOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := uint(fallbackBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize) // #nosec G115 -- checked positive
	}
	flush := fallbackFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}
	return influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(uint(flush.Milliseconds())) // #nosec G115 -- positive duration
}

func ping(ctx context.Context, influx influxdb2.Client) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	healthy, err := influx.Ping(ctx)
	switch {
	case err != nil:
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	case !healthy:
		return fmt.Errorf("%w: ping reported unhealthy", ErrUnreachable)
	}
	return nil
}

// drainErrors runs until the write API closes its error channel on Close.
func (c *Client) drainErrors(errs <-chan error) {
	for err := range errs {
		c.failures.Add(1)
		if fn := c.onError.Load(); fn != nil {
			(*fn)(fmt.Errorf("%w: %w", ErrWrite, err))
		}
	}
}

// SetOnError installs the callback for batch failures. Passing nil removes it.
func (c *Client) SetOnError(fn func(error)) {
	if fn == nil {
		c.onError.Store(nil)
		return
	}
	c.onError.Store(&fn)
}

// Failures counts batch writes the server rejected since Connect.
func (c *Client) Failures() uint64 {
	return c.failures.Load()
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return ping(ctx, c.influx)
}

// Flush sends buffered points now. It does nothing after Close.
func (c *Client) Flush() {
	if c.writer == nil || c.closed.Load() {
		return
	}
	c.writer.Flush()
}

// Close flushes what is buffered and releases the connection. Calling it
// more than once is harmless.
func (c *Client) Close() error {
	if c.influx == nil || !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.writer.Flush()
	c.influx.Close()
	return nil
}
