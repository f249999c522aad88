package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	mqttclient "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/contractd/pkg/contract"
	"github.com/getmockd/contractd/pkg/messaging"
)

func getFreePort(t *testing.T) int {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func ordersRouter() *messaging.Router {
	return messaging.NewRouter([]*contract.Contract{
		{
			Name: "order accepted",
			Input: &contract.Input{
				MessageFrom: "orders",
				MessageBody: map[string]any{"id": 1, "status": contract.MustRegex("NEW|OPEN")},
			},
			OutputMessage: &contract.OutputMessage{
				SentTo:  "orders/accepted",
				Headers: contract.Params{{Name: "contentType", Value: contract.Single("application/json")}},
				Body:    map[string]any{"ack": true},
			},
		},
		{
			Name:  "order shipped",
			Label: "order_shipped",
			Input: &contract.Input{TriggeredBy: "shipOrder()"},
			OutputMessage: &contract.OutputMessage{
				SentTo: "orders/shipped",
				Body:   map[string]any{"shipped": true},
			},
		},
	})
}

func setupBroker(t *testing.T, cfg *Config) *Broker {
	broker, err := NewBroker(cfg, ordersRouter())
	require.NoError(t, err)
	require.NoError(t, broker.Start(context.Background()))
	t.Cleanup(func() {
		_ = broker.Stop(context.Background(), 5*time.Second)
	})
	// Wait for the listener
	time.Sleep(100 * time.Millisecond)
	return broker
}

func connectClient(t *testing.T, port int, clientID string) mqttclient.Client {
	opts := mqttclient.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://127.0.0.1:%d", port))
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(false)
	opts.SetConnectTimeout(5 * time.Second)

	client := mqttclient.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		t.Fatalf("MQTT connect timeout")
	}
	require.NoError(t, token.Error())
	t.Cleanup(func() {
		client.Disconnect(250)
	})
	return client
}

func TestNewBroker(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		router  *messaging.Router
		wantErr bool
	}{
		{name: "nil config", router: ordersRouter(), wantErr: true},
		{name: "nil router", config: &Config{}, wantErr: true},
		{name: "invalid qos", config: &Config{QoS: 3}, router: ordersRouter(), wantErr: true},
		{name: "default port", config: &Config{}, router: ordersRouter()},
		{
			name: "with auth",
			config: &Config{
				Port: 1885,
				Auth: &AuthConfig{Enabled: true, Users: []User{{Username: "u", Password: "p"}}},
			},
			router: ordersRouter(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broker, err := NewBroker(tt.config, tt.router)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, broker)
			assert.NotZero(t, tt.config.Port)
		})
	}
}

func TestBroker_StartStop(t *testing.T) {
	port := getFreePort(t)
	broker, err := NewBroker(&Config{Host: "127.0.0.1", Port: port}, ordersRouter())
	require.NoError(t, err)

	require.NoError(t, broker.Start(context.Background()))
	assert.True(t, broker.IsRunning())
	assert.Equal(t, fmt.Sprintf("127.0.0.1:%d", port), broker.Address())
	assert.Error(t, broker.Start(context.Background()), "double start")

	require.NoError(t, broker.Stop(context.Background(), 5*time.Second))
	assert.False(t, broker.IsRunning())
	assert.Empty(t, broker.Address())
	assert.NoError(t, broker.Stop(context.Background(), 5*time.Second), "double stop")

	assert.Error(t, broker.Publish(messaging.NewMessage("x", "y", nil)))
}

func TestBroker_RoutesPublication(t *testing.T) {
	port := getFreePort(t)
	broker := setupBroker(t, &Config{Host: "127.0.0.1", Port: port})
	client := connectClient(t, port, "producer")

	var (
		mu       sync.Mutex
		received []map[string]any
	)
	token := client.Subscribe("orders/accepted", 0, func(_ mqttclient.Client, m mqttclient.Message) {
		var body map[string]any
		if err := json.Unmarshal(m.Payload(), &body); err != nil {
			return
		}
		mu.Lock()
		received = append(received, body)
		mu.Unlock()
	})
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())

	token = client.Publish("orders", 0, false, `{"id":1,"status":"OPEN"}`)
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 5*time.Second, 20*time.Millisecond)
	mu.Lock()
	assert.Equal(t, map[string]any{"ack": true}, received[0])
	mu.Unlock()

	token = client.Publish("orders", 0, false, `{"id":1,"status":"CLOSED"}`)
	require.True(t, token.WaitTimeout(5*time.Second))

	assert.Eventually(t, func() bool {
		return broker.Stats().Unmatched == 1
	}, 5*time.Second, 20*time.Millisecond)

	stats := broker.Stats()
	assert.True(t, stats.Running)
	assert.Equal(t, int64(2), stats.Received)
	assert.Equal(t, int64(1), stats.Routed)
	assert.Equal(t, int64(1), stats.Published)
}

func TestBroker_Trigger(t *testing.T) {
	port := getFreePort(t)
	broker := setupBroker(t, &Config{Host: "127.0.0.1", Port: port})

	got := make(chan *messaging.Message, 1)
	broker.Subscribe("orders/#", func(msg *messaging.Message) {
		got <- msg
	})

	out, err := broker.Trigger(context.Background(), "order_shipped")
	require.NoError(t, err)
	assert.Equal(t, "orders/shipped", out.Destination)

	select {
	case msg := <-got:
		assert.Equal(t, "orders/shipped", msg.Destination)
		assert.JSONEq(t, `{"shipped":true}`, string(msg.Bytes()))
		assert.NotEmpty(t, msg.HeaderString(messaging.HeaderID))
	case <-time.After(5 * time.Second):
		t.Fatal("triggered message was not published")
	}

	_, err = broker.Trigger(context.Background(), "unknown")
	assert.ErrorIs(t, err, messaging.ErrNoTrigger)
	assert.Equal(t, int64(0), broker.Stats().Received, "own output is not routed")
}

func TestBroker_Auth(t *testing.T) {
	port := getFreePort(t)
	setupBroker(t, &Config{
		Host: "127.0.0.1",
		Port: port,
		Auth: &AuthConfig{Enabled: true, Users: []User{{Username: "producer", Password: "secret"}}},
	})

	opts := mqttclient.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://127.0.0.1:%d", port))
	opts.SetClientID("intruder")
	opts.SetUsername("producer")
	opts.SetPassword("wrong")
	opts.SetAutoReconnect(false)
	client := mqttclient.NewClient(opts)
	token := client.Connect()
	require.True(t, token.WaitTimeout(5*time.Second))
	assert.Error(t, token.Error())

	opts.SetClientID("producer")
	opts.SetPassword("secret")
	client = mqttclient.NewClient(opts)
	token = client.Connect()
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())
	client.Disconnect(250)
}
