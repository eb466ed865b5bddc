// internal/fanout/hub.go

package fanout

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/courtlyhq/courtly/internal/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096

	defaultSendBuffer = 64
)

// Request kinds accepted from clients. Responses reuse the event kinds
// defined in the events package.
const (
	msgJoinFacilityGroup       = "JoinFacilityGroup"
	msgLeaveFacilityGroup      = "LeaveFacilityGroup"
	msgJoinUserGroup           = "JoinUserGroup"
	msgLeaveUserGroup          = "LeaveUserGroup"
	msgSendBookingUpdate       = "SendBookingUpdate"
	msgSendCommentNotification = "SendCommentNotification"
)

type clientMessage struct {
	Type       string          `json:"type"`
	FacilityID int64           `json:"facility_id,omitempty"`
	UserID     string          `json:"user_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Hub upgrades HTTP requests to websocket connections and dispatches their
// messages against a Registry. One Hub serves all connections.
type Hub struct {
	registry   *Registry
	upgrader   websocket.Upgrader
	bufferSize int
}

func NewHub(registry *Registry, sendBufferSize int) *Hub {
	if sendBufferSize <= 0 {
		sendBufferSize = defaultSendBuffer
	}
	return &Hub{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from the facility dashboard and the
			// player app; origin enforcement happens at the edge.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		bufferSize: sendBufferSize,
	}
}

// ServeWS upgrades the request and runs the connection until the peer
// disconnects. Malformed or unknown messages are logged and skipped; a
// message error never tears down the socket.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Websocket upgrade failed")
		return
	}

	conn := &wsConn{
		id:     uuid.New().String(),
		socket: socket,
		send:   make(chan []byte, h.bufferSize),
		done:   make(chan struct{}),
	}
	h.registry.Register(conn.id, conn)
	log.Ctx(r.Context()).Info().Str("conn_id", conn.id).Msg("Websocket connected")

	go conn.writePump()
	h.readPump(conn)
}

func (h *Hub) readPump(conn *wsConn) {
	defer func() {
		h.registry.Unregister(conn.id)
		conn.close()
		log.Info().Str("conn_id", conn.id).Msg("Websocket disconnected")
	}()

	conn.socket.SetReadLimit(maxMessageSize)
	_ = conn.socket.SetReadDeadline(time.Now().Add(pongWait))
	conn.socket.SetPongHandler(func(string) error {
		return conn.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("conn_id", conn.id).Msg("Websocket read error")
			}
			return
		}
		h.dispatch(conn.id, raw)
	}
}

func (h *Hub) dispatch(connID string, raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Warn().Err(err).Str("conn_id", connID).Msg("Discarding unparseable websocket message")
		return
	}

	switch msg.Type {
	case msgJoinFacilityGroup:
		h.registry.JoinFacilityGroup(connID, msg.FacilityID)
	case msgLeaveFacilityGroup:
		h.registry.LeaveFacilityGroup(connID, msg.FacilityID)
	case msgJoinUserGroup:
		h.registry.JoinUserGroup(connID, msg.UserID)
	case msgLeaveUserGroup:
		h.registry.LeaveUserGroup(connID, msg.UserID)
	case msgSendBookingUpdate:
		h.registry.BroadcastRelay(events.Relay{
			Kind:    events.KindReceiveBookingUpdate,
			Payload: msg.Payload,
		})
	case msgSendCommentNotification:
		h.registry.BroadcastRelay(events.Relay{
			Kind:    events.KindCommentNotification,
			Payload: msg.Payload,
		})
	default:
		log.Warn().Str("conn_id", connID).Str("type", msg.Type).Msg("Discarding unknown websocket message type")
	}
}

// wsConn pairs a websocket with its outbound queue. TrySend never blocks;
// the writePump owns all writes to the socket.
type wsConn struct {
	id        string
	socket    *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (c *wsConn) TrySend(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *wsConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	_ = c.socket.Close()
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
