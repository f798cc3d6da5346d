// Package influxdb writes light state telemetry to InfluxDB v2.
//
// Every snapshot becomes one light_state point tagged with light_id. Points
// are buffered and sent in batches sized by influxdb.batch_size and
// influxdb.flush_interval; the caller never waits on the network.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without telemetry
//	}
//	l.Subscribe(client.WriteLightState)
//
// Batch failures surface asynchronously, wrapped in ErrWrite, through the
// SetOnError callback.
package influxdb
