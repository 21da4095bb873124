// Package connection maintains one logical capture channel per remote
// machine: a NATS subscription feeding a private append-only event
// buffer, with transparent fixed-interval reconnection.
package connection

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/gravity-api/g4-recorder/internal/config"
	"github.com/gravity-api/g4-recorder/internal/event"
	"github.com/gravity-api/g4-recorder/internal/metrics"
)

// reconnectInterval is the fixed retry delay for a dropped connection.
const reconnectInterval = 5 * time.Second

// State is the connection lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnected
	StateReconnecting
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Connection buffers raw events from one capture source. The buffer is
// append-only and private: no other connection reads it, and cross-
// connection access happens only through Snapshot.
type Connection struct {
	mu        sync.Mutex
	cfg       config.ConnectionConfig
	buffer    []event.RawEvent
	state     State
	nc        *nats.Conn
	sub       *nats.Subscription
	validator *event.Validator
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// New creates a connection for one configured capture source.
func New(cfg config.ConnectionConfig, validator *event.Validator, m *metrics.Metrics, log *slog.Logger) *Connection {
	if log == nil {
		log = slog.Default()
	}
	return &Connection{
		cfg:       cfg,
		validator: validator,
		metrics:   m,
		log:       log.With("connection", cfg.Name),
	}
}

// Name returns the connection's configured name.
func (c *Connection) Name() string { return c.cfg.Name }

// Config returns a copy of the connection's configuration.
func (c *Connection) Config() config.ConnectionConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// SetThinkTime updates the connection's think-time policy; picked up by
// the next snapshot.
func (c *Connection) SetThinkTime(tt event.ThinkTimeSettings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.ThinkTime = tt
}

// Start subscribes to the connection's subject. A dropped link retries
// forever at a fixed interval; reconnection never escalates to the
// compile pass, a disconnected connection simply contributes whatever
// it buffered.
func (c *Connection) Start(serverURL string) error {
	nc, err := nats.Connect(serverURL,
		nats.Name("g4-recorder/"+c.cfg.Name),
		nats.ReconnectWait(reconnectInterval),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.setState(StateReconnecting)
			if err != nil {
				c.log.Warn("capture link lost", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			c.setState(StateConnected)
			c.log.Info("capture link restored")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			c.setState(StateDisconnected)
		}),
	)
	if err != nil {
		return fmt.Errorf("connect %q: %w", c.cfg.Name, err)
	}

	sub, err := nc.Subscribe(c.cfg.Subject, c.onMessage)
	if err != nil {
		nc.Close()
		return fmt.Errorf("subscribe %q on %q: %w", c.cfg.Name, c.cfg.Subject, err)
	}

	c.mu.Lock()
	c.nc = nc
	c.sub = sub
	c.state = StateConnected
	c.mu.Unlock()

	c.log.Info("capture connection started", "subject", c.cfg.Subject)
	return nil
}

// onMessage validates, decodes, and buffers one wire payload. Malformed
// payloads are dropped and counted, never propagated.
func (c *Connection) onMessage(msg *nats.Msg) {
	raw, err := c.validator.Decode(msg.Data)
	if err != nil {
		c.metrics.Dropped(metrics.DropInvalidPayload)
		c.log.Debug("dropped malformed event", "error", err)
		return
	}
	c.append(raw)
	c.metrics.Received(c.cfg.Name)
}

// append adds one decoded event to the private buffer.
func (c *Connection) append(raw event.RawEvent) {
	c.mu.Lock()
	c.buffer = append(c.buffer, raw)
	c.mu.Unlock()
}

// Snapshot returns a consistent copy of the buffer. Events arriving
// after the snapshot keep accumulating and are excluded from the pass
// that took it.
func (c *Connection) Snapshot() []event.RawEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]event.RawEvent, len(c.buffer))
	copy(out, c.buffer)
	return out
}

// BufferLen reports the number of buffered events.
func (c *Connection) BufferLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}

// ClearBuffer discards all buffered events. Called only after a
// snapshot has been successfully assembled.
func (c *Connection) ClearBuffer() {
	c.mu.Lock()
	c.buffer = nil
	c.mu.Unlock()
}

// State reports the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Disconnect tears the connection down. Idempotent.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	sub, nc := c.sub, c.nc
	c.sub, c.nc = nil, nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if sub != nil {
		_ = sub.Unsubscribe()
	}
	if nc != nil {
		nc.Close()
	}
}
