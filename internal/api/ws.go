package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/banshee-data/flight.dashboard/internal/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Commands are small; anything larger is a misbehaving client.
	maxMessageSize = 4096

	sendBufferSize = 16
)

// Outgoing websocket message types. State and waypoint messages reuse the
// engine's update kinds.
const (
	wsMessageAck   = "ack"
	wsMessageError = "error"
)

// Incoming command types.
const (
	wsCommandClick  = "click"
	wsCommandTarget = "target"
	wsCommandClear  = "clear"
)

type wsMessage struct {
	Type     string `json:"type"`
	Command  string `json:"command,omitempty"`
	Accepted *bool  `json:"accepted,omitempty"`
	Error    string `json:"error,omitempty"`
	Data     any    `json:"data,omitempty"`
}

type wsCommand struct {
	Type  string   `json:"type"`
	Lat   *float64 `json:"lat,omitempty"`
	Lng   *float64 `json:"lng,omitempty"`
	Count *int     `json:"count,omitempty"`
}

type wsClient struct {
	s    *Server
	conn *websocket.Conn
	id   string
	send chan wsMessage
	done chan struct{}
}

// serveWebSocket upgrades the connection and streams engine updates to it.
// Clients may send click, target, and clear commands; each gets an ack or
// an error reply.
func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logf("websocket upgrade from %s: %v", r.RemoteAddr, err)
		return
	}

	c := &wsClient{
		s:    s,
		conn: conn,
		id:   uuid.New().String(),
		send: make(chan wsMessage, sendBufferSize),
		done: make(chan struct{}),
	}
	s.logf("websocket %s connected from %s", c.id, r.RemoteAddr)

	go c.writePump()
	c.readPump()
}

func (c *wsClient) readPump() {
	defer func() {
		close(c.done)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.s.logf("websocket %s read: %v", c.id, err)
			}
			return
		}
		if !c.reply(c.handleCommand(message)) {
			return
		}
	}
}

// reply queues msg for the writer. It reports false when the writer has
// fallen too far behind, in which case the connection is dropped.
func (c *wsClient) reply(msg wsMessage) bool {
	select {
	case c.send <- msg:
		return true
	default:
		c.s.logf("websocket %s: send buffer full, closing", c.id)
		return false
	}
}

func (c *wsClient) handleCommand(message []byte) wsMessage {
	var cmd wsCommand
	dec := json.NewDecoder(bytes.NewReader(message))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cmd); err != nil {
		return wsError(cmd.Type, "invalid command: "+err.Error())
	}

	eng := c.s.eng
	switch cmd.Type {
	case wsCommandClick:
		p, err := clickRequest{Lat: cmd.Lat, Lng: cmd.Lng}.point()
		if err != nil {
			return wsError(cmd.Type, err.Error())
		}
		accepted := eng.OnMapClick(p)
		return wsMessage{Type: wsMessageAck, Command: cmd.Type, Accepted: &accepted, Data: eng.WaypointState()}

	case wsCommandTarget:
		if cmd.Count == nil {
			return wsError(cmd.Type, "count is required")
		}
		if err := eng.SetTargetCount(*cmd.Count); err != nil {
			return wsError(cmd.Type, err.Error())
		}
		return wsAck(cmd.Type, eng.WaypointState())

	case wsCommandClear:
		eng.ClearWaypoints()
		return wsAck(cmd.Type, eng.WaypointState())

	default:
		return wsError(cmd.Type, "unknown command type "+strconv.Quote(cmd.Type))
	}
}

func wsAck(command string, data any) wsMessage {
	accepted := true
	return wsMessage{Type: wsMessageAck, Command: command, Accepted: &accepted, Data: data}
}

func wsError(command, msg string) wsMessage {
	return wsMessage{Type: wsMessageError, Command: command, Error: msg}
}

// writePump owns every write to the connection: the initial snapshot,
// engine updates, command replies, and pings.
func (c *wsClient) writePump() {
	id, updates := c.s.eng.Subscribe()
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.s.eng.Unsubscribe(id)
		c.conn.Close()
		c.s.logf("websocket %s disconnected", c.id)
	}()

	if c.write(wsMessage{Type: engine.UpdateState, Data: c.s.eng.State()}) != nil {
		return
	}
	if c.write(wsMessage{Type: engine.UpdateWaypoints, Data: c.s.eng.WaypointState()}) != nil {
		return
	}

	for {
		select {
		case u, ok := <-updates:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if u.Includes(engine.UpdateState) {
				if c.write(wsMessage{Type: engine.UpdateState, Data: u.State}) != nil {
					return
				}
			}
			if u.Includes(engine.UpdateWaypoints) {
				if c.write(wsMessage{Type: engine.UpdateWaypoints, Data: u.Waypoints}) != nil {
					return
				}
			}
		case msg := <-c.send:
			if c.write(msg) != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *wsClient) write(msg wsMessage) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		if !errors.Is(err, websocket.ErrCloseSent) {
			c.s.logf("websocket %s write: %v", c.id, err)
		}
		return err
	}
	return nil
}
