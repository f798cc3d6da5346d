package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-ledstrip/internal/light"
)

// MeasurementLightState is the measurement every light snapshot is written to.
const MeasurementLightState = "light_state"

// WriteLightState records a light snapshot. Its signature matches
// light.Observer so a client can be subscribed to a light directly.
//
// Fields present on every point: on (bool). Brightness, red/green/blue and
// effect are only written when the light reports them.
//
//	l.Subscribe(influx.WriteLightState)
func (c *Client) WriteLightState(lightID string, state light.State) {
	if c.closed.Load() {
		return
	}
	c.writer.WritePoint(lightPoint(lightID, state, c.now()))
}

// WritePoint writes a custom point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if c.closed.Load() {
		return
	}
	c.writer.WritePoint(write.NewPoint(measurement, tags, fields, c.now()))
}

func lightPoint(lightID string, state light.State, at time.Time) *write.Point {
	fields := map[string]interface{}{
		"on": state.On,
	}
	if state.Brightness != nil {
		fields["brightness"] = int64(*state.Brightness)
	}
	if state.Color != nil {
		fields["red"] = int64(state.Color.R)
		fields["green"] = int64(state.Color.G)
		fields["blue"] = int64(state.Color.B)
	}
	if state.Effect != nil {
		fields["effect"] = *state.Effect
	}

	return write.NewPoint(
		MeasurementLightState,
		map[string]string{"light_id": lightID},
		fields,
		at,
	)
}
