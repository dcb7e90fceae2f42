package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// Topic prefixes.
const (
	// TopicPrefix is the root of every Armadillo topic.
	TopicPrefix = "armadillo"

	// TopicPrefixTelemetry is the base for device telemetry.
	// Scheme: armadillo/telemetry/{kind}/{id}
	TopicPrefixTelemetry = TopicPrefix + "/telemetry"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = TopicPrefix + "/system"
)

// Topics provides builders for Armadillo MQTT topics.
//
//	topic := mqtt.Topics{}.Telemetry("bike", 5)
//	// Returns: "armadillo/telemetry/bike/5"
type Topics struct{}

// Telemetry returns the topic a device publishes its readings on.
func (Topics) Telemetry(kind string, id int64) string {
	return fmt.Sprintf("%s/%s/%d", TopicPrefixTelemetry, kind, id)
}

// AllTelemetry returns a wildcard matching the telemetry of every device.
func (Topics) AllTelemetry() string {
	return TopicPrefixTelemetry + "/+/+"
}

// KindTelemetry returns a wildcard matching every device of one kind.
func (Topics) KindTelemetry(kind string) string {
	return fmt.Sprintf("%s/%s/+", TopicPrefixTelemetry, kind)
}

// SystemStatus returns the retained Core status topic (online/offline, LWT).
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// ParseTelemetryTopic splits a concrete telemetry topic into its kind and
// device id. The kind is returned as published; callers validate it.
func ParseTelemetryTopic(topic string) (kind string, id int64, err error) {
	rest, ok := strings.CutPrefix(topic, TopicPrefixTelemetry+"/")
	if !ok {
		return "", 0, fmt.Errorf("%w: %q is not a telemetry topic", ErrInvalidTopic, topic)
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		return "", 0, fmt.Errorf("%w: %q want %s/{kind}/{id}", ErrInvalidTopic, topic, TopicPrefixTelemetry)
	}

	id, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: device id %q: %w", ErrInvalidTopic, parts[1], err)
	}

	return parts[0], id, nil
}
