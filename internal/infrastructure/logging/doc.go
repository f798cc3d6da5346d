// Package logging provides structured logging for the LED strip bridge.
//
// It wraps log/slog with JSON or text output, level filtering and default
// service/version fields. Components take child loggers:
//
//	logger, err := logging.New(cfg.Logging, version)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//	mqttLog := logger.Component("mqtt")
//	stripLog := logger.ForLight("kitchen") // component=light light=kitchen
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr or a file path
//
// Never log secrets such as the MQTT password or JWT secret.
package logging
