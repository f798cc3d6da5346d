// Package light synchronizes an RGB LED strip controller with its MQTT topics.
//
// Each Light owns the believed state of one device (power, brightness, color,
// effect) and keeps it in step with two streams:
//
//   - Commands: TurnOn/TurnOff publish to the device's command topics in a
//     fixed order. Channels without a state topic are optimistic and are
//     updated locally as soon as the command is sent.
//   - Telemetry: Attach subscribes to every configured state topic, once per
//     distinct topic. Those channels are authoritative and only change when
//     the device reports.
//
// # Wire formats
//
//   - Power: the configured on/off literals (default "ON"/"OFF")
//   - Color command: uppercase RRGGBB, no leading '#'
//   - Brightness command: decimal integer in 0..brightness_scale
//   - Effect command and state: decimal zero-based index into the effect list
//
// # Brightness scaling
//
// Outbound: device = trunc(b * scale / 255). With scale 100: 0→0, 1→0,
// 254→99, 255→100.
// Inbound: b = round(device * 255 / scale), clamped to 0..255. With scale
// 100: 0→0, 1→3, 99→252, 100→255.
//
// # Usage
//
//	l, err := light.New(light.Options{
//	    ID:        "kitchen-strip",
//	    Topics:    light.TopicSet{Power: light.TopicPair{Command: "cmnd/strip/POWER", State: "stat/strip/POWER"}},
//	    Transport: transport,
//	})
//	l.Subscribe(func(id string, st light.State) { ... })
//	if err := l.Attach(ctx); err != nil { ... }
//	err = l.TurnOn(ctx, light.Attributes{Color: &light.Color{R: 255}})
package light
