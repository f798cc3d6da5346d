// LED strip bridge.
//
// Keeps the believed state of Tasmota-driven WS2812 lights in sync over MQTT,
// falls back to optimistic state where a light reports nothing, and exposes
// the result through a REST/WebSocket API, SQLite history and InfluxDB.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/gray-logic-ledstrip/internal/api"
	"github.com/nerrad567/gray-logic-ledstrip/internal/history"
	"github.com/nerrad567/gray-logic-ledstrip/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-ledstrip/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-ledstrip/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-ledstrip/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-ledstrip/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-ledstrip/internal/light"
	"github.com/nerrad567/gray-logic-ledstrip/migrations"
)

// Version information, set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configPathEnv     = "LEDSTRIP_CONFIG"

	healthCheckTimeout = 5 * time.Second
)

func main() {
	issueToken := flag.String("issue-token", "", "print an API token for `subject` and exit")
	migrateCmd := flag.String("migrate", "", "run a schema `command` (status, up or down) and exit")
	flag.Parse()

	var oneShot func() error
	switch {
	case *issueToken != "":
		oneShot = func() error { return printToken(*issueToken) }
	case *migrateCmd != "":
		oneShot = func() error { return migrate(context.Background(), *migrateCmd, os.Stdout) }
	}
	if oneShot != nil {
		if err := oneShot(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application body, separated from main so it returns errors
// instead of exiting.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting LED strip bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "lights", len(cfg.Lights))

	log, err = logging.New(cfg.Logging, version)
	if err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}
	defer log.Close() //nolint:errcheck // nothing left to report to
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// The recorder is stopped after MQTT closes, so state received up to
	// the disconnect is still written, and before the database closes.
	historyRepo := history.NewSQLiteRepository(db.DB)
	recorder := history.NewRecorder(historyRepo, history.RecorderOptions{
		Retention: time.Duration(cfg.Database.HistoryRetentionDays) * 24 * time.Hour,
		Logger:    log.Component("history"),
	})
	defer startWorker(ctx, recorder.Run)()

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	influxClient, err := connectInflux(ctx, cfg.InfluxDB, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

	republisher := newStatePublisher(mqttClient, log.Component("republish"))
	defer startWorker(ctx, republisher.Run)()

	transport := mqttTransport{client: mqttClient}
	lights := make([]*light.Light, 0, len(cfg.Lights))
	for i := range cfg.Lights {
		l, buildErr := buildLight(cfg.Lights[i], transport, log.ForLight(cfg.Lights[i].ID))
		if buildErr != nil {
			return fmt.Errorf("configuring light %q: %w", cfg.Lights[i].ID, buildErr)
		}
		lights = append(lights, l)
	}

	health := map[string]api.HealthChecker{
		"database": db,
		"mqtt":     mqttClient,
	}
	if influxClient != nil {
		health["influxdb"] = influxClient
	}

	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log.Component("api"),
		Lights:   lights,
		History:  historyRepo,
		Health:   health,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	hub := apiServer.Hub()
	for _, l := range lights {
		l.Subscribe(recorder.Observe)
		l.Subscribe(hub.BroadcastLightState)
		l.Subscribe(republisher.Observe)
		if influxClient != nil {
			l.Subscribe(influxClient.WriteLightState)
		}
	}

	for _, l := range lights {
		if attachErr := l.Attach(ctx); attachErr != nil {
			return fmt.Errorf("attaching light %q: %w", l.ID(), attachErr)
		}
		log.Info("light attached",
			"light_id", l.ID(),
			"name", l.Name(),
			"assumed_state", l.AssumedState(),
		)
	}

	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()
	log.Info("API server listening", "addr", apiServer.Addr())

	if healthErr := healthCheck(ctx, health); healthErr != nil {
		log.Warn("startup health check failed", "error", healthErr)
	} else {
		log.Info("all components healthy")
	}

	log.Info("LED strip bridge started", "lights", len(lights))

	<-ctx.Done()
	log.Info("shutdown signal received, stopping...")

	return nil
}

// startWorker runs work on its own goroutine with a context that outlives
// ctx's cancellation. The returned stop cancels that context and waits for
// work to return, so a worker that drains on cancel finishes before the
// resources it writes to are closed.
func startWorker(ctx context.Context, work func(context.Context)) (stop func()) {
	workCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		work(workCtx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// connectInflux returns nil without error when InfluxDB is disabled.
func connectInflux(ctx context.Context, cfg config.InfluxDBConfig, log *logging.Logger) (*influxdb.Client, error) {
	client, err := influxdb.Connect(ctx, cfg)
	if errors.Is(err, influxdb.ErrDisabled) {
		log.Info("InfluxDB disabled")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected", "url", cfg.URL, "bucket", cfg.Bucket)
	return client, nil
}

// healthCheck checks every component and joins the failures.
func healthCheck(ctx context.Context, components map[string]api.HealthChecker) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	var errs []error
	for name, c := range components {
		if err := c.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// getConfigPath returns $LEDSTRIP_CONFIG or the default path.
func getConfigPath() string {
	if path := os.Getenv(configPathEnv); path != "" {
		return path
	}
	return defaultConfigPath
}

func printToken(subject string) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Security.JWT.Secret == "" {
		return errors.New("security.jwt.secret is not set; the API is unauthenticated")
	}
	ttl := time.Duration(cfg.Security.JWT.AccessTokenTTL) * time.Minute
	token, err := api.IssueToken(cfg.Security.JWT.Secret, subject, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// migrate reports or changes the history schema without starting the bridge.
func migrate(ctx context.Context, command string, out io.Writer) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // read-mostly one-shot

	switch command {
	case "up":
		if err := db.Migrate(ctx, migrations.FS); err != nil {
			return err
		}
	case "down":
		if err := db.MigrateDown(ctx, migrations.FS); err != nil {
			return err
		}
	case "status":
	default:
		return fmt.Errorf("unknown migrate command %q (want status, up or down)", command)
	}

	applied, pending, err := db.MigrationStatus(ctx, migrations.FS)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "database: %s\n", db.Path())
	for _, r := range applied {
		fmt.Fprintf(out, "applied  %s  %s\n", r.Version, r.AppliedAt.Format(time.RFC3339))
	}
	for _, m := range pending {
		fmt.Fprintf(out, "pending  %s  %s\n", m.Version, m.Name)
	}
	return nil
}
