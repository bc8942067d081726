package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testConn(h *Hub, key RoomKey) *Conn {
	return &Conn{
		hub:      h,
		send:     make(chan []byte, 4),
		key:      key,
		username: key.Username,
		logger:   h.logger,
	}
}

func recv(t *testing.T, c *Conn) Message {
	t.Helper()
	select {
	case raw, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func assertSilent(t *testing.T, c *Conn) {
	t.Helper()
	select {
	case raw, ok := <-c.send:
		if ok {
			t.Fatalf("unexpected message: %s", raw)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRoomKeyString(t *testing.T) {
	key := RoomKey{SessionID: "s1", Username: "alice", RequestID: "r1"}
	assert.Equal(t, "s1:alice:r1", key.String())
}

// An addressed message crosses rooms: it lands in the room keyed by the
// addressee's username under the sender's session and request.
func TestRelayReachesAddresseeRoom(t *testing.T) {
	h := NewHub(quietLogger())
	go h.Run()

	alice := testConn(h, RoomKey{SessionID: "s1", Username: "alice", RequestID: "r1"})
	bob := testConn(h, RoomKey{SessionID: "s1", Username: "bob", RequestID: "r1"})
	carol := testConn(h, RoomKey{SessionID: "s1", Username: "carol", RequestID: "r1"})
	h.register <- alice
	h.register <- bob
	h.register <- carol

	h.relay <- inbound{sender: alice, msg: Message{Type: EventTxRequest, To: "bob", Data: json.RawMessage(`{"tx":"raw"}`)}}

	got := recv(t, bob)
	assert.Equal(t, EventTxRequest, got.Type)
	assert.JSONEq(t, `{"tx":"raw"}`, string(got.Data))

	assertSilent(t, carol)
	assertSilent(t, alice)
}

func TestRelayWithoutAddresseeBroadcastsToOwnRoom(t *testing.T) {
	h := NewHub(quietLogger())
	go h.Run()

	key := RoomKey{SessionID: "s1", Username: "alice", RequestID: "r1"}
	wallet := testConn(h, key)
	tab := testConn(h, key)
	h.register <- wallet
	h.register <- tab

	h.relay <- inbound{sender: wallet, msg: Message{Type: EventTxConfirm}}

	got := recv(t, tab)
	assert.Equal(t, EventTxConfirm, got.Type)
	assertSilent(t, wallet)
}

func TestRelayStaysWithinSessionAndRequest(t *testing.T) {
	h := NewHub(quietLogger())
	go h.Run()

	alice := testConn(h, RoomKey{SessionID: "s1", Username: "alice", RequestID: "r1"})
	bob := testConn(h, RoomKey{SessionID: "s1", Username: "bob", RequestID: "r1"})
	bobOtherRequest := testConn(h, RoomKey{SessionID: "s1", Username: "bob", RequestID: "r2"})
	bobOtherSession := testConn(h, RoomKey{SessionID: "s2", Username: "bob", RequestID: "r1"})
	h.register <- alice
	h.register <- bob
	h.register <- bobOtherRequest
	h.register <- bobOtherSession

	h.relay <- inbound{sender: alice, msg: Message{Type: EventTxConfirm, To: "bob"}}

	recv(t, bob)
	assertSilent(t, bobOtherRequest)
	assertSilent(t, bobOtherSession)
}

func TestNoDeliveryAfterUnregister(t *testing.T) {
	h := NewHub(quietLogger())
	go h.Run()

	alice := testConn(h, RoomKey{SessionID: "s1", Username: "alice", RequestID: "r1"})
	bob := testConn(h, RoomKey{SessionID: "s1", Username: "bob", RequestID: "r1"})
	h.register <- alice
	h.register <- bob

	h.unregister <- bob
	h.relay <- inbound{sender: alice, msg: Message{Type: EventTxRequest, To: "bob"}}

	// The slot was removed before the relay was processed; the channel is
	// closed and nothing was queued on it.
	select {
	case raw, ok := <-bob.send:
		assert.False(t, ok, "expected closed channel, got %s", raw)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed after unregister")
	}
}

func TestSlowPeerIsDroppedNotBlocked(t *testing.T) {
	h := NewHub(quietLogger())
	go h.Run()

	alice := testConn(h, RoomKey{SessionID: "s1", Username: "alice", RequestID: "r1"})
	slowBob := &Conn{
		hub:      h,
		send:     make(chan []byte),
		key:      RoomKey{SessionID: "s1", Username: "bob", RequestID: "r1"},
		username: "bob",
		logger:   h.logger,
	}
	h.register <- alice
	h.register <- slowBob

	// Nobody reads slowBob.send; both relays must complete without blocking
	// the hub loop, and the peer is dropped after the first.
	h.relay <- inbound{sender: alice, msg: Message{Type: EventTxRequest, To: "bob"}}
	h.relay <- inbound{sender: alice, msg: Message{Type: EventTxRequest, To: "bob"}}

	select {
	case _, ok := <-slowBob.send:
		assert.False(t, ok, "slow peer channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("slow peer was not dropped")
	}
}
