package mqtt

import "fmt"

// TopicPrefix is the root of every topic the bridge itself owns.
// Device command and state topics come from the light configuration instead.
const TopicPrefix = "ledstrip"

// Topics provides builders for bridge-owned topics.
//
//	mqtt.Topics{}.LightState("kitchen") // "ledstrip/light/kitchen/state"
type Topics struct{}

// SystemStatus is the retained online/offline status (also the LWT topic).
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// LightState is where the believed state of a light is republished as JSON.
func (Topics) LightState(lightID string) string {
	return fmt.Sprintf("%s/light/%s/state", TopicPrefix, lightID)
}

// AllLightStates matches every LightState topic.
func (Topics) AllLightStates() string {
	return TopicPrefix + "/light/+/state"
}

// AllTopics matches every bridge-owned topic.
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
