package realtime

import (
	"context"
	"encoding/json"
	"expvar"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/adspredia/adspredia-api/internal/domain/state"
)

// EventType for WebSocket messages
type EventType string

const (
	EventSnapshot        EventType = "snapshot"
	EventStateChanged    EventType = EventType(state.EventStateChanged)
	EventDepositApproved EventType = EventType(state.EventDepositApproved)
)

// deviceEventsChannel fans events out to every API instance
const deviceEventsChannel = "adspredia:device_events"

var (
	wsConnectionsGauge   = expvar.NewInt("websocket_connections")
	wsEventsSentTotal    = expvar.NewInt("websocket_events_sent_total")
	wsEventsDroppedTotal = expvar.NewInt("websocket_events_dropped_total")
)

type deviceEventMessage struct {
	DeviceID         string          `json:"device_id"`
	Payload          json.RawMessage `json:"payload"`
	SenderInstanceID string          `json:"sender_instance_id"`
}

// WSEvent represents a WebSocket event
type WSEvent struct {
	Type  EventType       `json:"type"`
	Event *state.Event    `json:"event,omitempty"`
	State *state.AppState `json:"state,omitempty"`
}

// Connection represents a WebSocket connection of one device
type Connection struct {
	DeviceID uuid.UUID
	Conn     *websocket.Conn
	Send     chan []byte
}

type registration struct {
	conn *Connection
	done chan struct{}
}

// Hub fans store events out to the device's open sockets. With Redis, events
// published on one instance reach sockets held by the others.
type Hub struct {
	connections map[uuid.UUID]map[*Connection]bool

	redis  *redis.Client
	pubsub *redis.PubSub

	mu sync.RWMutex

	register   chan registration
	unregister chan *Connection

	ctx    context.Context
	cancel context.CancelFunc

	instanceID string
}

// NewHub creates a hub; redisClient may be nil for a single instance
func NewHub(redisClient *redis.Client) *Hub {
	return NewHubWithInstanceID(redisClient, uuid.NewString())
}

// NewHubWithInstanceID creates a hub with an explicit instance identifier.
func NewHubWithInstanceID(redisClient *redis.Client, instanceID string) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		connections: make(map[uuid.UUID]map[*Connection]bool),
		redis:       redisClient,
		register:    make(chan registration),
		unregister:  make(chan *Connection),
		ctx:         ctx,
		cancel:      cancel,
		instanceID:  instanceID,
	}
	if redisClient != nil {
		h.pubsub = redisClient.Subscribe(ctx, deviceEventsChannel)
	}
	return h
}

// Run starts the hub (call in goroutine)
func (h *Hub) Run() {
	if h.pubsub != nil {
		go h.runRedisSubscriber()
	}

	for {
		select {
		case <-h.ctx.Done():
			return

		case reg := <-h.register:
			conn := reg.conn
			h.mu.Lock()
			if h.connections[conn.DeviceID] == nil {
				h.connections[conn.DeviceID] = make(map[*Connection]bool)
			}
			h.connections[conn.DeviceID][conn] = true
			h.mu.Unlock()
			close(reg.done)
			wsConnectionsGauge.Add(1)
			log.Debug().Str("device_id", conn.DeviceID.String()).Msg("Device connected to WebSocket")

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.connections[conn.DeviceID]; ok {
				if _, exists := conns[conn]; exists {
					delete(conns, conn)
					close(conn.Send)
					wsConnectionsGauge.Add(-1)
				}
				if len(conns) == 0 {
					delete(h.connections, conn.DeviceID)
				}
			}
			h.mu.Unlock()
			log.Debug().Str("device_id", conn.DeviceID.String()).Msg("Device disconnected from WebSocket")
		}
	}
}

func (h *Hub) runRedisSubscriber() {
	ch := h.pubsub.Channel()

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.handleRemotePayload(msg.Payload)
		}
	}
}

func (h *Hub) handleRemotePayload(payload string) {
	var event deviceEventMessage
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return
	}
	if event.SenderInstanceID == h.instanceID {
		return
	}
	deviceID, err := uuid.Parse(event.DeviceID)
	if err != nil {
		return
	}
	h.sendLocal(deviceID, event.Payload)
}

// Register adds a connection and returns once events for its device reach it
func (h *Hub) Register(conn *Connection) {
	reg := registration{conn: conn, done: make(chan struct{})}
	select {
	case h.register <- reg:
	case <-h.ctx.Done():
		return
	}
	select {
	case <-reg.done:
	case <-h.ctx.Done():
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.ctx.Done():
	}
}

// Notify forwards a store event to the device's sockets. Its signature matches
// the registry's change hook.
func (h *Hub) Notify(deviceID string, ev state.Event) {
	id, err := uuid.Parse(deviceID)
	if err != nil {
		log.Warn().Str("device_id", deviceID).Msg("event for malformed device id dropped")
		return
	}
	h.SendToDevice(id, &WSEvent{Type: EventType(ev.Type), Event: &ev})
}

// SendToDevice sends event to every socket of a device on any instance
func (h *Hub) SendToDevice(deviceID uuid.UUID, event *WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal WebSocket event")
		return
	}

	h.sendLocal(deviceID, data)
	if err := h.publish(deviceID, data); err != nil {
		log.Error().Err(err).Str("channel", deviceEventsChannel).Msg("Redis publish failed")
	}
}

func (h *Hub) sendLocal(deviceID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.connections[deviceID] {
		select {
		case conn.Send <- data:
			wsEventsSentTotal.Add(1)
		default:
			wsEventsDroppedTotal.Add(1)
			log.Warn().Str("device_id", deviceID.String()).Msg("WebSocket send buffer full")
		}
	}
}

func (h *Hub) publish(deviceID uuid.UUID, data []byte) error {
	if h.redis == nil {
		return nil
	}
	payload, err := json.Marshal(deviceEventMessage{
		DeviceID:         deviceID.String(),
		Payload:          data,
		SenderInstanceID: h.instanceID,
	})
	if err != nil {
		return err
	}
	return h.redis.Publish(h.ctx, deviceEventsChannel, payload).Err()
}

// ConnectionCount returns number of local connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.connections {
		total += len(conns)
	}
	return total
}

// Shutdown gracefully shuts down the hub
func (h *Hub) Shutdown() {
	h.cancel()
	if h.pubsub != nil {
		h.pubsub.Close()
	}
}
