package mqtt

import (
	"bytes"
	"context"
	"crypto/subtle"
	"strings"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"
)

// AuthHook handles authentication and ACL for the MQTT broker
type AuthHook struct {
	mqtt.HookBase
	config *AuthConfig
}

// NewAuthHook creates a new authentication hook
func NewAuthHook(config *AuthConfig) *AuthHook {
	return &AuthHook{config: config}
}

// ID returns the hook identifier
func (h *AuthHook) ID() string {
	return "auth-hook"
}

// Provides indicates which hook methods this hook provides
func (h *AuthHook) Provides(b byte) bool {
	//nolint:gocritic // argument order is intentional
	return bytes.Contains([]byte{
		mqtt.OnConnectAuthenticate,
		mqtt.OnACLCheck,
	}, []byte{b})
}

// OnConnectAuthenticate handles client authentication
func (h *AuthHook) OnConnectAuthenticate(cl *mqtt.Client, pk packets.Packet) bool {
	if h.config == nil || !h.config.Enabled {
		return true
	}

	username := string(cl.Properties.Username)
	password := string(pk.Connect.Password)

	for _, user := range h.config.Users {
		usernameMatch := subtle.ConstantTimeCompare([]byte(user.Username), []byte(username)) == 1
		passwordMatch := subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) == 1
		if usernameMatch && passwordMatch {
			return true
		}
	}
	return false
}

// OnACLCheck verifies if a client has permission for a topic operation.
// Any matching deny rule is final; a user without rules may do anything.
func (h *AuthHook) OnACLCheck(cl *mqtt.Client, topic string, write bool) bool {
	if h.config == nil || !h.config.Enabled {
		return true
	}

	username := string(cl.Properties.Username)

	for _, user := range h.config.Users {
		if user.Username != username {
			continue
		}
		if len(user.ACL) == 0 {
			return true
		}

		matched := false
		for _, rule := range user.ACL {
			if matchTopic(rule.Topic, topic) {
				matched = true
				if !checkAccess(rule.Access, write) {
					return false
				}
			}
		}
		return matched
	}
	return false
}

// matchTopic checks if a topic filter matches a topic.
// Supports MQTT wildcards: + (single level) and # (multi-level)
func matchTopic(pattern, topic string) bool {
	patternParts := strings.Split(pattern, "/")
	topicParts := strings.Split(topic, "/")

	for i, part := range patternParts {
		if part == "#" {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if part == "+" {
			continue
		}
		if part != topicParts[i] {
			return false
		}
	}
	return len(patternParts) == len(topicParts)
}

// checkAccess verifies if the access level allows the operation
func checkAccess(access string, write bool) bool {
	switch strings.ToLower(access) {
	case "readwrite", "all":
		return true
	case "read", "subscribe":
		return !write
	case "write", "publish":
		return write
	default:
		return false
	}
}

// MessageHook routes client publications through the broker's contracts.
type MessageHook struct {
	mqtt.HookBase
	broker *Broker
}

// NewMessageHook creates a new message hook
func NewMessageHook(broker *Broker) *MessageHook {
	return &MessageHook{broker: broker}
}

// ID returns the hook identifier
func (h *MessageHook) ID() string {
	return "message-hook"
}

// Provides indicates which hook methods this hook provides
func (h *MessageHook) Provides(b byte) bool {
	//nolint:gocritic // argument order is intentional
	return bytes.Contains([]byte{
		mqtt.OnPublish,
		mqtt.OnSubscribed,
	}, []byte{b})
}

// OnPublish handles incoming publish messages. The broker's own output
// is only shown to internal subscribers, so outputs never re-enter routing.
func (h *MessageHook) OnPublish(cl *mqtt.Client, pk packets.Packet) (packets.Packet, error) {
	msg := FromPacket(pk)
	h.broker.notifySubscribers(msg)

	if cl.Net.Inline {
		return pk, nil
	}

	h.broker.received.Add(1)
	h.broker.log.Debug("received message", "client", cl.ID, "topic", pk.TopicName, "size", len(pk.Payload))

	// Publishing from inside the hook would block the client's read loop.
	go h.broker.route(context.Background(), msg)
	return pk, nil
}

// OnSubscribed logs client subscriptions.
func (h *MessageHook) OnSubscribed(cl *mqtt.Client, pk packets.Packet, reasonCodes []byte) {
	for _, sub := range pk.Filters {
		h.broker.log.Debug("client subscribed", "client", cl.ID, "filter", sub.Filter, "qos", sub.Qos)
	}
}
