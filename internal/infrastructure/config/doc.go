// Package config handles loading and validating the LED strip bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Light defaults (payloads, brightness scale, effect list, template fallback)
//   - Overriding with LEDSTRIP_* environment variables
//   - Validation of required fields, reporting every problem at once
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token, JWT secret) should be
//     set via environment variables
//   - An empty security.jwt.secret leaves the HTTP API unauthenticated
//
// Usage:
//
//	cfg, err := config.Load("configs/ledstrip.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, l := range cfg.Lights {
//	    fmt.Println(l.ID, l.Topics().Power.Command)
//	}
package config
