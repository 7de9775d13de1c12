// Package gateway exposes live matches and bracket updates over WebSocket.
// Each topic (one match or one tournament) has a connection pool backed by a
// single bus subscription; the subscription is opened when the first client
// joins and canceled when the last one leaves.
package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/events"
)

// ConnectionConfig holds WebSocket tuning knobs.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns the standard WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// allow all origins in development; restrict in production
			return true
		},
	}
}

// Connection is one WebSocket client joined to a topic. Send is never closed;
// closing signals the write pump instead, so a broadcast racing a disconnect
// can never hit a closed channel.
type Connection struct {
	ID      string
	Topic   string
	MatchID string
	Conn    *websocket.Conn
	Send    chan []byte

	manager     *ConnectionManager
	connectedAt time.Time
	closing     chan struct{}
	closeOnce   sync.Once
}

// shutdown signals the pumps; safe to call from any goroutine, repeatedly.
func (c *Connection) shutdown() {
	c.closeOnce.Do(func() { close(c.closing) })
}

type pool struct {
	conns  map[*Connection]bool
	cancel context.CancelFunc
}

// ConnectionManager owns the per-topic connection pools and their bus
// bridges.
type ConnectionManager struct {
	bus      *events.Bus
	commands *CommandRouter
	config   ConnectionConfig
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	baseCtx context.Context
	mu      sync.RWMutex
	pools   map[string]*pool
}

// NewConnectionManager builds the manager. baseCtx bounds every topic
// subscription; canceling it tears the bridges down.
func NewConnectionManager(baseCtx context.Context, bus *events.Bus, commands *CommandRouter, config ConnectionConfig, logger zerolog.Logger) *ConnectionManager {
	return &ConnectionManager{
		bus:      bus,
		commands: commands,
		config:   config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		logger:  logger.With().Str("component", "gateway").Logger(),
		baseCtx: baseCtx,
		pools:   make(map[string]*pool),
	}
}

// UpgradeConnection upgrades the request and joins the client to a topic.
// matchID is set for match sockets and empty for tournament sockets.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, topic, matchID string) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		cm.logger.Error().Err(err).Str("topic", topic).Msg("websocket upgrade failed")
		return nil, err
	}

	c := &Connection{
		ID:          uuid.NewString(),
		Topic:       topic,
		MatchID:     matchID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		manager:     cm,
		connectedAt: time.Now(),
		closing:     make(chan struct{}),
	}
	if err := cm.register(c); err != nil {
		conn.Close()
		return nil, err
	}

	go c.writePump()
	go c.readPump()

	cm.logger.Info().
		Str("connection_id", c.ID).
		Str("topic", topic).
		Msg("websocket connection established")
	return c, nil
}

// register adds the connection, opening the topic's bus bridge if it is the
// first member.
func (cm *ConnectionManager) register(c *Connection) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	p, ok := cm.pools[c.Topic]
	if !ok {
		ctx, cancel := context.WithCancel(cm.baseCtx)
		ch, err := cm.bus.Subscribe(ctx, c.Topic)
		if err != nil {
			cancel()
			return err
		}
		p = &pool{conns: make(map[*Connection]bool), cancel: cancel}
		cm.pools[c.Topic] = p
		go cm.bridge(c.Topic, ch)
	}
	p.conns[c] = true
	return nil
}

// unregister drops the connection and closes the bridge when the pool empties.
func (cm *ConnectionManager) unregister(c *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	p, ok := cm.pools[c.Topic]
	if !ok {
		return
	}
	if _, joined := p.conns[c]; !joined {
		return
	}
	delete(p.conns, c)
	c.shutdown()
	if len(p.conns) == 0 {
		p.cancel()
		delete(cm.pools, c.Topic)
	}
	cm.logger.Info().
		Str("connection_id", c.ID).
		Str("topic", c.Topic).
		Msg("websocket connection closed")
}

// bridge forwards bus envelopes to the topic's pool until the subscription
// ends.
func (cm *ConnectionManager) bridge(topic string, ch <-chan *message.Message) {
	for msg := range ch {
		cm.broadcast(topic, msg.Payload)
		msg.Ack()
	}
	cm.logger.Debug().Str("topic", topic).Msg("topic bridge closed")
}

// broadcast fans payload out to the pool. A client whose send buffer is full
// is dropped rather than stalling the topic.
func (cm *ConnectionManager) broadcast(topic string, payload []byte) {
	cm.mu.RLock()
	p, ok := cm.pools[topic]
	if !ok {
		cm.mu.RUnlock()
		return
	}
	targets := make([]*Connection, 0, len(p.conns))
	for c := range p.conns {
		targets = append(targets, c)
	}
	cm.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.Send <- payload:
		case <-c.closing:
			// disconnected between the pool snapshot and the send
		default:
			cm.logger.Warn().
				Str("connection_id", c.ID).
				Str("topic", topic).
				Msg("send buffer full, closing connection")
			cm.unregister(c)
			c.Conn.Close()
		}
	}
}

// SendTo delivers a payload to a single connection.
func (cm *ConnectionManager) SendTo(c *Connection, payload []byte) {
	select {
	case c.Send <- payload:
	case <-c.closing:
	default:
		cm.logger.Warn().Str("connection_id", c.ID).Msg("send buffer full, dropping direct message")
	}
}

// Stats reports active pools and connections for the health endpoint.
func (cm *ConnectionManager) Stats() map[string]any {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	total := 0
	perTopic := make(map[string]int, len(cm.pools))
	for topic, p := range cm.pools {
		perTopic[topic] = len(p.conns)
		total += len(p.conns)
	}
	return map[string]any{
		"total_connections": total,
		"active_topics":     len(cm.pools),
		"topic_connections": perTopic,
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.manager.unregister(c)
	}()

	for {
		select {
		case <-c.closing:
			c.Conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case payload := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.manager.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
		return nil
	})

	for {
		_, payload, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.manager.logger.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected websocket close")
			}
			break
		}
		c.manager.commands.Handle(c, payload)
		c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	}
}
