package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"

	"github.com/getmockd/contractd/pkg/logging"
	"github.com/getmockd/contractd/pkg/messaging"
)

// DefaultPort is the standard MQTT port.
const DefaultPort = 1883

// publisherID is the client id of the broker's own publications.
const publisherID = "contractd"

// SubscriptionHandler is a callback for messages seen by the broker.
type SubscriptionHandler func(msg *messaging.Message)

// Broker is an MQTT broker that answers publications according to
// messaging contracts.
type Broker struct {
	config      *Config
	server      *mqtt.Server
	router      *messaging.Router
	publisher   *mqtt.Client
	mu          sync.RWMutex
	running     bool
	startedAt   time.Time
	log         *slog.Logger
	subscribers map[string][]SubscriptionHandler

	received  atomic.Int64
	routed    atomic.Int64
	unmatched atomic.Int64
	published atomic.Int64

	// stopping is set during shutdown so hook callbacks do not take the
	// broker mutex while server.Close() runs.
	stopping atomic.Int32
}

// NewBroker creates a broker routing publications through router.
func NewBroker(config *Config, router *messaging.Router) (*Broker, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if router == nil {
		return nil, errors.New("router cannot be nil")
	}
	if config.Port <= 0 {
		config.Port = DefaultPort
	}
	if config.QoS > 2 {
		return nil, fmt.Errorf("invalid qos %d", config.QoS)
	}

	server := mqtt.New(&mqtt.Options{
		InlineClient: true,
	})

	broker := &Broker{
		config:      config,
		server:      server,
		router:      router,
		log:         logging.Nop(),
		subscribers: make(map[string][]SubscriptionHandler),
	}
	broker.publisher = server.NewClient(nil, mqtt.LocalListener, publisherID, true)

	if config.Auth != nil && config.Auth.Enabled {
		if err := server.AddHook(NewAuthHook(config.Auth), nil); err != nil {
			return nil, fmt.Errorf("failed to add auth hook: %w", err)
		}
	} else {
		// mochi-mqtt requires an auth hook
		if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
			return nil, fmt.Errorf("failed to add allow hook: %w", err)
		}
	}

	if err := server.AddHook(NewMessageHook(broker), nil); err != nil {
		return nil, fmt.Errorf("failed to add message hook: %w", err)
	}

	return broker, nil
}

// Start starts listening.
func (b *Broker) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return errors.New("broker is already running")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	lc := listeners.Config{
		ID:      fmt.Sprintf("mqtt-%d", b.config.Port),
		Address: fmt.Sprintf("%s:%d", b.config.Host, b.config.Port),
	}
	if b.config.TLS != nil && b.config.TLS.Enabled {
		cert, err := tls.LoadX509KeyPair(b.config.TLS.CertFile, b.config.TLS.KeyFile)
		if err != nil {
			return fmt.Errorf("failed to load TLS certificates: %w", err)
		}
		lc.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	if err := b.server.AddListener(listeners.NewTCP(lc)); err != nil {
		return fmt.Errorf("failed to add listener: %w", err)
	}

	go func() {
		if err := b.server.Serve(); err != nil {
			b.log.Error("MQTT server error", "error", err)
		}
	}()

	b.running = true
	b.startedAt = time.Now()
	b.stopping.Store(0)
	b.log.Info("MQTT broker started", "address", lc.Address, "destinations", b.router.Destinations())
	return nil
}

// Stop gracefully shuts down the broker, forcing shutdown after timeout.
func (b *Broker) Stop(ctx context.Context, timeout time.Duration) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.stopping.Store(1)
	b.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// The mutex is not held here: closing disconnects clients, which calls hooks.
	done := make(chan error, 1)
	go func() {
		done <- b.server.Close()
	}()

	var closeErr error
	select {
	case err := <-done:
		closeErr = err
	case <-shutdownCtx.Done():
		closeErr = fmt.Errorf("shutdown timed out: %w", shutdownCtx.Err())
	}

	b.mu.Lock()
	b.running = false
	b.startedAt = time.Time{}
	b.mu.Unlock()

	if closeErr != nil {
		return fmt.Errorf("failed to close server: %w", closeErr)
	}
	b.log.Info("MQTT broker stopped")
	return nil
}

// IsRunning returns true if broker is running
func (b *Broker) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

// Address returns the address the broker listens on, or "" when stopped.
func (b *Broker) Address() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.running {
		return ""
	}
	return fmt.Sprintf("%s:%d", b.config.Host, b.config.Port)
}

// Publish sends msg to its destination topic. Headers are carried as MQTT
// v5 user properties.
func (b *Broker) Publish(msg *messaging.Message) error {
	if !b.IsRunning() {
		return errors.New("broker is not running")
	}
	if msg.Destination == "" {
		return errors.New("message has no destination")
	}

	pk := packets.Packet{
		FixedHeader: packets.FixedHeader{Type: packets.Publish, Qos: b.config.QoS},
		TopicName:   msg.Destination,
		Payload:     msg.Bytes(),
		PacketID:    uint16(b.config.QoS),
	}
	pk.Properties.User = userProperties(msg)
	if ct := msg.HeaderString(messaging.HeaderContentType); ct != "" {
		pk.Properties.ContentType = ct
	}

	if err := b.server.InjectPacket(b.publisher, pk); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", msg.Destination, err)
	}
	b.published.Add(1)
	return nil
}

// Trigger publishes the output of the contract triggered by label.
func (b *Broker) Trigger(ctx context.Context, label string) (*messaging.Message, error) {
	out, _, err := b.router.Trigger(ctx, label)
	if err != nil {
		return nil, err
	}
	if err := b.Publish(out); err != nil {
		return nil, err
	}
	return out, nil
}

// route answers a client publication.
func (b *Broker) route(ctx context.Context, msg *messaging.Message) {
	out, c, err := b.router.Route(ctx, msg.Destination, msg)
	switch {
	case errors.Is(err, messaging.ErrNoRoute):
		b.unmatched.Add(1)
		b.log.Debug("unmatched message", "topic", msg.Destination, "error", err)
		return
	case err != nil:
		b.log.Error("failed to route message", "topic", msg.Destination, "error", err)
		return
	}
	b.routed.Add(1)
	if out == nil {
		b.log.Debug("message consumed", "topic", msg.Destination, "contract", c.String())
		return
	}
	if err := b.Publish(out); err != nil {
		b.log.Error("failed to publish output", "contract", c.String(), "topic", out.Destination, "error", err)
	}
}

// Subscribe registers an internal handler for a topic filter. Handlers see
// client publications and the broker's own output.
func (b *Broker) Subscribe(filter string, handler SubscriptionHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[filter] = append(b.subscribers[filter], handler)
}

// Unsubscribe removes the internal handlers of a topic filter.
func (b *Broker) Unsubscribe(filter string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, filter)
}

func (b *Broker) notifySubscribers(msg *messaging.Message) {
	if b.stopping.Load() != 0 {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	for filter, handlers := range b.subscribers {
		if matchTopic(filter, msg.Destination) {
			for _, handler := range handlers {
				go handler(msg)
			}
		}
	}
}

// SetLogger sets the operational logger for the broker.
func (b *Broker) SetLogger(log *slog.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if log != nil {
		b.log = log
	} else {
		b.log = logging.Nop()
	}
}

// Stats returns broker counters.
func (b *Broker) Stats() Stats {
	b.mu.RLock()
	running := b.running
	b.mu.RUnlock()

	return Stats{
		Running:   running,
		Clients:   len(b.server.Clients.GetAll()),
		Received:  b.received.Load(),
		Routed:    b.routed.Load(),
		Unmatched: b.unmatched.Load(),
		Published: b.published.Load(),
	}
}
