package handlers_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"SMProject/service/chat"
	"SMProject/service/chat/handlers"
	"SMProject/service/storage"
	"SMProject/tools/errs"
	"SMProject/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jwtOpts = security.DefaultOptions([]byte("test-secret"))

type gateway struct {
	hub *chat.Hub
	url string
}

func newGateway(t *testing.T, mutate func(*chat.Options)) *gateway {
	t.Helper()
	gin.SetMode(gin.TestMode)

	opts := chat.DefaultOptions()
	opts.RequireToken = false
	opts.RateLimit = 0
	if mutate != nil {
		mutate(&opts)
	}
	hub := chat.NewHub(storage.NewMemoryStore(), opts, chat.WithVerifier(func(token string) (string, error) {
		claims, err := security.Verify(jwtOpts, token)
		if err != nil {
			return "", err
		}
		return claims.UserID, nil
	}))
	handlers.RegisterAll(hub.Dispatcher())

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Run(ctx) }()

	r := gin.New()
	r.GET("/ws", chat.NewWSServer(hub, nil).HandleWS)
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		cancel()
		hub.Wait()
		srv.Close()
	})
	return &gateway{hub: hub, url: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"}
}

type peer struct {
	t    *testing.T
	conn *websocket.Conn
	seq  int
}

func (g *gateway) dial(t *testing.T) *peer {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(g.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &peer{t: t, conn: conn}
}

func (p *peer) send(event string, data any) string {
	p.t.Helper()
	p.seq++
	ackID := event + "-" + strconv.Itoa(p.seq)
	raw, err := json.Marshal(data)
	require.NoError(p.t, err)
	frame := chat.InFrame{Event: event, Data: raw, AckID: ackID}
	require.NoError(p.t, p.conn.WriteJSON(frame))
	return ackID
}

func (p *peer) read() (string, json.RawMessage) {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, raw, err := p.conn.ReadMessage()
	require.NoError(p.t, err)
	ev, data, err := chat.DecodeOutFrame(raw)
	require.NoError(p.t, err)
	return ev, data
}

// next returns the next frame whose event is want, skipping others.
func (p *peer) next(want string) json.RawMessage {
	p.t.Helper()
	for {
		ev, data := p.read()
		if ev == want {
			return data
		}
	}
}

// until reads up to and including the ack of ackID and returns the events
// seen before it.
func (p *peer) until(ackID string) []string {
	p.t.Helper()
	var seen []string
	for {
		ev, data := p.read()
		if ev == chat.EventAck {
			var a chat.Ack
			require.NoError(p.t, json.Unmarshal(data, &a))
			if a.AckID == ackID {
				return seen
			}
		}
		seen = append(seen, ev)
	}
}

// ack waits for the ack of ackID.
func (p *peer) ack(ackID string) chat.Ack {
	p.t.Helper()
	for {
		var a chat.Ack
		require.NoError(p.t, json.Unmarshal(p.next(chat.EventAck), &a))
		if a.AckID == ackID {
			return a
		}
	}
}

// call sends and waits for the ack.
func (p *peer) call(event string, data any) chat.Ack {
	p.t.Helper()
	return p.ack(p.send(event, data))
}

func (p *peer) login(userID string) {
	p.t.Helper()
	a := p.call(chat.EventAuthenticate, userID)
	require.Equal(p.t, chat.AckOK, a.Status, a.Reason)
}

func TestAuthenticateAnnouncesOnline(t *testing.T) {
	g := newGateway(t, nil)
	watcher := g.dial(t)
	alice := g.dial(t)

	alice.login("alice")

	var st chat.UserStatus
	require.NoError(t, json.Unmarshal(watcher.next(chat.EventUserStatus), &st))
	assert.Equal(t, chat.UserStatus{UserID: "alice", Status: chat.StatusOnline}, st)
}

func TestRoomMessagesReachEveryMemberInOrder(t *testing.T) {
	g := newGateway(t, nil)
	a, b, c := g.dial(t), g.dial(t), g.dial(t)

	require.Equal(t, chat.AckOK, a.call(chat.EventJoinRoom, "42").Status)
	require.Equal(t, chat.AckOK, b.call(chat.EventJoinRoom, 42).Status)
	require.Equal(t, chat.AckOK, c.call(chat.EventJoinRoom, "42").Status)

	for _, m := range []string{"one", "two", "three"} {
		a.send(chat.EventSendMessage, map[string]any{"roomId": "42", "message": map[string]string{"text": m}})
	}

	for _, p := range []*peer{a, b, c} {
		for _, m := range []string{"one", "two", "three"} {
			assert.JSONEq(t, `{"text":"`+m+`"}`, string(p.next(chat.EventNewMessage)))
		}
		// nothing delivered twice
		assert.NotContains(t, p.until(p.send(chat.EventJoinRoom, "99")), chat.EventNewMessage)
	}

	require.Equal(t, chat.AckOK, b.call(chat.EventLeaveRoom, "42").Status)
	a.send(chat.EventSendMessage, map[string]any{"roomId": "42", "message": "after-leave"})
	assert.JSONEq(t, `"after-leave"`, string(a.next(chat.EventNewMessage)))
	assert.JSONEq(t, `"after-leave"`, string(c.next(chat.EventNewMessage)))
	assert.NotContains(t, b.until(b.send(chat.EventJoinRoom, "7")), chat.EventNewMessage)
}

func count(events []string, want string) int {
	n := 0
	for _, ev := range events {
		if ev == want {
			n++
		}
	}
	return n
}

func TestDirectMessage(t *testing.T) {
	g := newGateway(t, nil)
	alice, bob := g.dial(t), g.dial(t)
	alice.login("alice")
	bob.login("bob")

	ackID := alice.send(chat.EventSendDirectMessage, map[string]any{"recipientId": "bob", "message": "hi bob"})
	seen := alice.until(ackID)
	assert.Equal(t, 1, count(seen, chat.EventNewDirectMessage), "sender echo: %v", seen)
	assert.JSONEq(t, `"hi bob"`, string(bob.next(chat.EventNewDirectMessage)))
	assert.NotContains(t, bob.until(bob.send(chat.EventJoinRoom, "1")), chat.EventNewDirectMessage)

	a := alice.call(chat.EventSendDirectMessage, map[string]any{"recipientId": "carol", "message": "hi carol"})
	assert.Equal(t, chat.AckRecipientOffline, a.Status)
}

func TestDirectMessageEchoesToSender(t *testing.T) {
	g := newGateway(t, nil)
	alice, bystander := g.dial(t), g.dial(t)
	alice.login("alice")
	bystander.login("dave")
	bystander.until(bystander.send(chat.EventJoinRoom, "1"))

	ackID := alice.send(chat.EventSendDirectMessage, map[string]any{"recipientId": "nobody", "message": "echo me"})
	assert.JSONEq(t, `"echo me"`, string(alice.next(chat.EventNewDirectMessage)))
	var a chat.Ack
	require.NoError(t, json.Unmarshal(alice.next(chat.EventAck), &a))
	assert.Equal(t, ackID, a.AckID)
	assert.Equal(t, chat.AckRecipientOffline, a.Status)

	assert.Empty(t, bystander.until(bystander.send(chat.EventJoinRoom, "2")))
}

func TestEndToEndBookingAfterDisconnect(t *testing.T) {
	g := newGateway(t, nil)
	alice, bob := g.dial(t), g.dial(t)
	alice.login("alice")
	bob.login("bob-id")

	require.Equal(t, chat.AckOK, alice.call(chat.EventJoinRoom, "proj-42").Status)
	require.Equal(t, chat.AckOK, bob.call(chat.EventJoinRoom, "proj-42").Status)

	alice.send(chat.EventSendMessage, map[string]any{"roomId": "proj-42", "message": "hello"})
	assert.JSONEq(t, `"hello"`, string(alice.next(chat.EventNewMessage)))
	assert.JSONEq(t, `"hello"`, string(bob.next(chat.EventNewMessage)))

	require.NoError(t, bob.conn.Close())
	require.Eventually(t, func() bool { return g.hub.Registry().LocalCount() == 1 }, 3*time.Second, 10*time.Millisecond)
	_, ok, err := g.hub.Registry().Lookup(context.Background(), "bob-id")
	require.NoError(t, err)
	assert.False(t, ok)

	ackID := alice.send(chat.EventBookingCreated, map[string]any{"musicianId": "bob-id", "date": "2024-05-01"})
	seen := alice.until(ackID)
	assert.NotContains(t, seen, chat.EventNewBookingNotification)
	assert.Empty(t, g.hub.Rooms().Members(chat.UserChannel("bob-id")))
}

func TestGuardedEventsNeedAuthentication(t *testing.T) {
	g := newGateway(t, nil)
	anon, musician := g.dial(t), g.dial(t)
	musician.login("m1")

	a := anon.call(chat.EventSendDirectMessage, map[string]any{"recipientId": "m1", "message": "x"})
	assert.Equal(t, chat.AckRejected, a.Status)
	assert.Equal(t, errs.UnauthenticatedError, a.Code)

	a = anon.call(chat.EventBookingCreated, map[string]any{"musicianId": "m1"})
	assert.Equal(t, errs.UnauthenticatedError, a.Code)

	// still usable after rejection
	assert.Equal(t, chat.AckOK, anon.call(chat.EventJoinRoom, "1").Status)
}

func TestBookingNotifiesMusician(t *testing.T) {
	g := newGateway(t, nil)
	client, musician := g.dial(t), g.dial(t)
	client.login("c1")
	musician.login("m1")

	booking := map[string]any{"musicianId": "m1", "date": "2024-05-01", "hours": 3}
	assert.Equal(t, chat.AckOK, client.call(chat.EventBookingCreated, booking).Status)
	assert.JSONEq(t, `{"musicianId":"m1","date":"2024-05-01","hours":3}`, string(musician.next(chat.EventNewBookingNotification)))
}

func TestTypingSkipsSenderAndUsesIdentity(t *testing.T) {
	g := newGateway(t, nil)
	alice, bob := g.dial(t), g.dial(t)
	alice.login("alice")
	alice.call(chat.EventJoinRoom, "9")
	bob.call(chat.EventJoinRoom, "9")

	alice.send(chat.EventTyping, map[string]any{"roomId": "9", "userId": "mallory", "isTyping": true})
	assert.JSONEq(t, `{"userId":"alice","isTyping":true}`, string(bob.next(chat.EventUserTyping)))

	assert.NotContains(t, alice.until(alice.send(chat.EventJoinRoom, "10")), chat.EventUserTyping)
}

func TestTypingNeedsAuthenticationWhenTokensRequired(t *testing.T) {
	g := newGateway(t, func(o *chat.Options) { o.RequireToken = true })
	anon, bob := g.dial(t), g.dial(t)
	anon.call(chat.EventJoinRoom, "9")
	bob.call(chat.EventJoinRoom, "9")

	a := anon.call(chat.EventTyping, map[string]any{"roomId": "9", "userId": "alice", "isTyping": true})
	assert.Equal(t, chat.AckRejected, a.Status)
	assert.Equal(t, errs.UnauthenticatedError, a.Code)
	assert.NotContains(t, bob.until(bob.send(chat.EventJoinRoom, "10")), chat.EventUserTyping)

	token, _, err := security.Generate(jwtOpts, "alice", "client")
	require.NoError(t, err)
	require.Equal(t, chat.AckOK, anon.call(chat.EventAuthenticate, map[string]any{"token": token}).Status)

	assert.Equal(t, chat.AckOK, anon.call(chat.EventTyping, map[string]any{"roomId": "9", "isTyping": true}).Status)
	assert.JSONEq(t, `{"userId":"alice","isTyping":true}`, string(bob.next(chat.EventUserTyping)))
}

func TestMalformedPayloadIsRejected(t *testing.T) {
	g := newGateway(t, nil)
	p := g.dial(t)

	a := p.call(chat.EventSendMessage, "not-an-object")
	assert.Equal(t, chat.AckRejected, a.Status)
	assert.Equal(t, errs.ArgsError, a.Code)

	a = p.call(chat.EventSendMessage, map[string]any{"message": "no room"})
	assert.Equal(t, errs.ArgsError, a.Code)

	a = p.call("dance", nil)
	assert.Equal(t, errs.UnknownEventError, a.Code)

	assert.Equal(t, chat.AckOK, p.call(chat.EventJoinRoom, "1").Status)
}

func TestNewerConnectionKeepsUserOnline(t *testing.T) {
	g := newGateway(t, nil)
	watcher := g.dial(t)
	first, second := g.dial(t), g.dial(t)
	first.login("alice")
	second.login("alice")
	watcher.call(chat.EventJoinRoom, "1")

	require.NoError(t, first.conn.Close())
	require.Eventually(t, func() bool { return g.hub.Registry().LocalCount() == 2 }, 3*time.Second, 10*time.Millisecond)

	second.send(chat.EventSendMessage, map[string]any{"roomId": "1", "message": "still here"})
	for {
		ev, data := watcher.read()
		if ev == chat.EventUserStatus {
			assert.NotContains(t, string(data), chat.StatusOffline)
			continue
		}
		if ev == chat.EventNewMessage {
			break
		}
	}

	require.NoError(t, second.conn.Close())
	var st chat.UserStatus
	require.NoError(t, json.Unmarshal(watcher.next(chat.EventUserStatus), &st))
	assert.Equal(t, chat.UserStatus{UserID: "alice", Status: chat.StatusOffline}, st)
}

func TestTokenAuthentication(t *testing.T) {
	g := newGateway(t, func(o *chat.Options) { o.RequireToken = true })
	p := g.dial(t)

	a := p.call(chat.EventAuthenticate, "alice")
	assert.Equal(t, errs.TokenMissingError, a.Code)

	a = p.call(chat.EventAuthenticate, map[string]any{"token": "garbage"})
	assert.Equal(t, errs.TokenInvalidError, a.Code)

	token, _, err := security.Generate(jwtOpts, "alice", "client")
	require.NoError(t, err)

	a = p.call(chat.EventAuthenticate, map[string]any{"userId": "bob", "token": token})
	assert.Equal(t, errs.NoPermissionError, a.Code)

	a = p.call(chat.EventAuthenticate, map[string]any{"userId": "alice", "token": token})
	assert.Equal(t, chat.AckOK, a.Status)

	e, ok, err := g.hub.Registry().Lookup(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, e.ConnID)
}

func TestUnauthenticatedConnectionTimesOut(t *testing.T) {
	g := newGateway(t, func(o *chat.Options) {
		o.AuthTimeout = 100 * time.Millisecond
		o.SweepInterval = 20 * time.Millisecond
	})
	p := g.dial(t)

	var e chat.ErrorEvent
	require.NoError(t, json.Unmarshal(p.next(chat.EventError), &e))
	assert.Equal(t, errs.AuthTimeoutError, e.Code)

	_, _, err := p.conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
}

func TestRateLimitRejects(t *testing.T) {
	g := newGateway(t, func(o *chat.Options) {
		o.RateLimit = 1
		o.RateBurst = 1
	})
	p := g.dial(t)

	first := p.send(chat.EventJoinRoom, "1")
	second := p.send(chat.EventJoinRoom, "2")

	var acks []chat.Ack
	for len(acks) < 2 {
		var a chat.Ack
		require.NoError(t, json.Unmarshal(p.next(chat.EventAck), &a))
		acks = append(acks, a)
	}
	byID := map[string]chat.Ack{acks[0].AckID: acks[0], acks[1].AckID: acks[1]}
	assert.Equal(t, chat.AckOK, byID[first].Status)
	assert.Equal(t, errs.RateLimitedError, byID[second].Code)
}
