package mqtt

import (
	"testing"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/contractd/pkg/messaging"
)

func TestMatchTopic(t *testing.T) {
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"orders", "orders", true},
		{"orders", "orders/new", false},
		{"orders/+", "orders/new", true},
		{"orders/+", "orders/new/1", false},
		{"orders/#", "orders/new/1", true},
		{"#", "anything/at/all", true},
		{"orders/+/status", "orders/1/status", true},
		{"orders/+/status", "orders/1/state", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"->"+tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, matchTopic(tt.pattern, tt.topic))
		})
	}
}

func TestAuthHook_ACL(t *testing.T) {
	hook := NewAuthHook(&AuthConfig{
		Enabled: true,
		Users: []User{
			{
				Username: "reader",
				Password: "p",
				ACL: []ACLRule{
					{Topic: "orders/#", Access: "read"},
				},
			},
			{Username: "admin", Password: "p"},
		},
	})
	client := func(name string) *mqtt.Client {
		cl := &mqtt.Client{}
		cl.Properties.Username = []byte(name)
		return cl
	}

	tests := []struct {
		name  string
		user  string
		topic string
		write bool
		want  bool
	}{
		{"reader subscribes", "reader", "orders/new", false, true},
		{"reader cannot publish", "reader", "orders/new", true, false},
		{"reader outside rules", "reader", "payments", false, false},
		{"admin without rules", "admin", "payments", true, true},
		{"unknown user", "ghost", "orders/new", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hook.OnACLCheck(client(tt.user), tt.topic, tt.write))
		})
	}

	assert.True(t, NewAuthHook(nil).OnACLCheck(client("x"), "t", true))
}

func TestCheckAccess(t *testing.T) {
	assert.True(t, checkAccess("readwrite", true))
	assert.True(t, checkAccess("READ", false))
	assert.False(t, checkAccess("read", true))
	assert.True(t, checkAccess("publish", true))
	assert.False(t, checkAccess("nope", false))
}

func TestFromPacket(t *testing.T) {
	pk := packets.Packet{
		FixedHeader: packets.FixedHeader{Type: packets.Publish, Qos: 1, Retain: true},
		TopicName:   "orders",
		Payload:     []byte(`{"id":1}`),
	}
	pk.Properties.ContentType = "application/json"
	pk.Properties.User = []packets.UserProperty{
		{Key: "eventType", Val: "created"},
		{Key: "eventType", Val: "updated"},
	}

	msg := FromPacket(pk)
	assert.Equal(t, "orders", msg.Destination)
	assert.Equal(t, []byte(`{"id":1}`), msg.Payload)
	assert.Equal(t, "updated", msg.HeaderString("eventType"))
	assert.Equal(t, "application/json", msg.HeaderString(messaging.HeaderContentType))
	assert.Equal(t, "orders", msg.HeaderString(HeaderReceivedTopic))
	assert.Equal(t, 1, msg.Headers[HeaderReceivedQoS])
	assert.Equal(t, true, msg.Headers[HeaderReceivedRetained])

	pk.Payload[0] = 'X'
	assert.Equal(t, byte('{'), msg.Bytes()[0], "payload is copied")
}

func TestUserProperties(t *testing.T) {
	msg := messaging.NewMessage("out", "x", map[string]any{"b": []byte(`"two"`), "a": 1})
	props := userProperties(msg)
	require.Len(t, props, 2)
	assert.Equal(t, packets.UserProperty{Key: "a", Val: "1"}, props[0])
	assert.Equal(t, packets.UserProperty{Key: "b", Val: "two"}, props[1])
}
