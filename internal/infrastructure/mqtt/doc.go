// Package mqtt provides the broker connection for the LED strip bridge.
//
// It wraps paho.mqtt.golang and adds:
//   - Auto-reconnect with subscriptions restored after every reconnect
//   - A retained status on ledstrip/system/status, with an offline LWT
//   - Panic recovery and error logging around message handlers
//
// Device command and state topics are owned by the Tasmota firmware and come
// from the light configuration; Topics only builds the topics the bridge
// itself publishes.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe("stat/kitchen/POWER", 0,
//	    func(topic string, payload []byte) error {
//	        return strip.HandleMessage(light.ChannelPower, payload)
//	    })
//
//	err = client.Publish("cmnd/kitchen/POWER", []byte("ON"), 0, false)
package mqtt
