package mqtt

import "fmt"

// Topic prefixes for the CircuitHub broker namespace.
const (
	// TopicPrefix is the base for all hub topics.
	TopicPrefix = "circuithub"

	// TopicPrefixSystem is the base for hub presence topics.
	TopicPrefixSystem = "circuithub/system"
)

// Topics provides builders for broker topics. Using these helpers keeps
// topic naming consistent across the codebase.
type Topics struct{}

// Telemetry returns the sensor telemetry topic for a device.
//
// Example: circuithub/telemetry/greenhouse-01
func (Topics) Telemetry(deviceID string) string {
	return fmt.Sprintf("%s/telemetry/%s", TopicPrefix, deviceID)
}

// Status returns the liveness topic for a device. Messages on it are
// retained.
//
// Example: circuithub/status/greenhouse-01
func (Topics) Status(deviceID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefix, deviceID)
}

// SystemStatus returns the hub presence topic, used for the LWT and
// graceful shutdown notices.
//
// Example: circuithub/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
