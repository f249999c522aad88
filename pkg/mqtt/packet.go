package mqtt

import (
	"sort"

	"github.com/mochi-mqtt/server/v2/packets"

	"github.com/getmockd/contractd/pkg/messaging"
)

// Headers set on messages received over MQTT.
const (
	HeaderReceivedTopic    = "mqtt_receivedTopic"
	HeaderReceivedQoS      = "mqtt_receivedQos"
	HeaderReceivedRetained = "mqtt_receivedRetained"
)

// FromPacket converts a PUBLISH packet into a message. User properties
// become headers; when a name repeats, the last value wins.
func FromPacket(pk packets.Packet) *messaging.Message {
	headers := make(map[string]any, len(pk.Properties.User)+4)
	for _, up := range pk.Properties.User {
		headers[up.Key] = up.Val
	}
	if pk.Properties.ContentType != "" {
		headers[messaging.HeaderContentType] = pk.Properties.ContentType
	}
	headers[HeaderReceivedTopic] = pk.TopicName
	headers[HeaderReceivedQoS] = int(pk.FixedHeader.Qos)
	headers[HeaderReceivedRetained] = pk.FixedHeader.Retain

	payload := make([]byte, len(pk.Payload))
	copy(payload, pk.Payload)
	return messaging.NewMessage(pk.TopicName, payload, headers)
}

// userProperties renders message headers as MQTT v5 user properties,
// sorted by name.
func userProperties(m *messaging.Message) []packets.UserProperty {
	keys := make([]string, 0, len(m.Headers))
	for k := range m.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]packets.UserProperty, 0, len(keys))
	for _, k := range keys {
		out = append(out, packets.UserProperty{Key: k, Val: m.HeaderString(k)})
	}
	return out
}
