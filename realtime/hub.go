package realtime

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// Event types relayed between a wallet page and its connected dapp.
const (
	EventConnected = "[CONNECTED]"
	EventTxRequest = "[TX_REQUEST]"
	EventTxConfirm = "[TX_CONFIRM]"
)

// RoomKey identifies one signaling room. Two connections share a room only
// when all three fields match; an empty RequestID is a valid room of its own.
type RoomKey struct {
	SessionID string
	Username  string
	RequestID string
}

func (k RoomKey) String() string {
	return k.SessionID + ":" + k.Username + ":" + k.RequestID
}

// Message is the relay envelope. Data passes through opaque; the hub routes
// on the envelope alone.
type Message struct {
	Type      string          `json:"type"`
	Username  string          `json:"username"`
	SessionID string          `json:"sessionId"`
	RequestID string          `json:"request_id"`
	To        string          `json:"to"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type inbound struct {
	sender *Conn
	msg    Message
}

// Hub owns the room registry. All membership changes and relays run on its
// single goroutine, so a disconnect observed by the loop removes the
// connection before any later relay can target it.
type Hub struct {
	rooms      map[RoomKey]map[*Conn]bool
	register   chan *Conn
	unregister chan *Conn
	relay      chan inbound
	logger     *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		rooms:      make(map[RoomKey]map[*Conn]bool),
		register:   make(chan *Conn),
		unregister: make(chan *Conn),
		relay:      make(chan inbound),
		logger:     logger,
	}
}

// Run processes registrations, disconnects and relays until the channels
// close. Call it once, in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			room := h.rooms[conn.key]
			if room == nil {
				room = make(map[*Conn]bool)
				h.rooms[conn.key] = room
			}
			room[conn] = true
			h.logger.WithFields(logrus.Fields{
				"room":     conn.key.String(),
				"username": conn.username,
			}).Debug("Connection joined room")

		case conn := <-h.unregister:
			h.drop(conn)

		case in := <-h.relay:
			h.deliver(in)
		}
	}
}

func (h *Hub) drop(conn *Conn) {
	room, ok := h.rooms[conn.key]
	if !ok {
		return
	}
	if _, member := room[conn]; !member {
		return
	}
	delete(room, conn)
	close(conn.send)
	if len(room) == 0 {
		delete(h.rooms, conn.key)
	}
	h.logger.WithField("room", conn.key.String()).Debug("Connection left room")
}

// deliver relays the message to the addressee's room: same session and
// request as the sender, with To as the username. An empty To broadcasts
// within the sender's own room. Delivery is at most once: a peer whose
// outbound queue is full is dropped rather than blocking the loop.
func (h *Hub) deliver(in inbound) {
	target := in.sender.key
	if in.msg.To != "" {
		target.Username = in.msg.To
	}
	room, ok := h.rooms[target]
	if !ok {
		return
	}

	raw, err := json.Marshal(in.msg)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to encode relay message")
		return
	}

	for conn := range room {
		if conn == in.sender {
			continue
		}
		select {
		case conn.send <- raw:
		default:
			h.drop(conn)
		}
	}
}
