package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Conn is one websocket connection inside a room.
type Conn struct {
	hub      *Hub
	ws       *websocket.Conn
	send     chan []byte
	key      RoomKey
	username string
	logger   *logrus.Logger
}

// ServeWS upgrades the request and joins the connection to its room. The room
// is taken from the sessionId, username and request_id query parameters. A
// missing request_id joins the empty-request room for the session and user.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	key := RoomKey{
		SessionID: query.Get("sessionId"),
		Username:  query.Get("username"),
		RequestID: query.Get("request_id"),
	}
	if key.SessionID == "" || key.Username == "" {
		http.Error(w, "sessionId and username are required", http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	conn := &Conn{
		hub:      hub,
		ws:       ws,
		send:     make(chan []byte, 16),
		key:      key,
		username: key.Username,
		logger:   hub.logger,
	}
	hub.register <- conn

	go conn.writePump()
	go conn.readPump()

	greeting, _ := json.Marshal(Message{
		Type:      EventConnected,
		Username:  conn.username,
		SessionID: key.SessionID,
		RequestID: key.RequestID,
	})
	select {
	case conn.send <- greeting:
	default:
	}
}

// readPump feeds inbound messages to the hub. Malformed frames are logged and
// dropped; they never stop the pump or reach a peer.
func (c *Conn) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.ws.Close()
	}()
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.WithError(err).Debug("Websocket read failed")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.WithError(err).WithField("room", c.key.String()).Warn("Dropping malformed frame")
			continue
		}
		msg.Username = c.username
		msg.SessionID = c.key.SessionID
		msg.RequestID = c.key.RequestID

		c.hub.relay <- inbound{sender: c, msg: msg}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case raw, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
