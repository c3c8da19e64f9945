package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"agora/core"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dialNotifications(t *testing.T, server *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func TestNotificationStream_PushesToRecipient(t *testing.T) {
	s := newTestServer(t)
	asker, askerToken := s.user(t, "asker", core.RoleUser)
	_, responderToken := s.user(t, "responder", core.RoleUser)

	server := httptest.NewServer(s.api.Handler())
	defer server.Close()

	conn, _, err := dialNotifications(t, server, askerToken)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return s.hub.UserClientCount(asker.ID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	q := s.postQuestion(t, askerToken)
	a := s.postAnswer(t, responderToken, q.ID)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string            `json:"type"`
		Data core.Notification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, MessageTypeNotification, msg.Type)
	assert.Equal(t, core.NotificationAnswer, msg.Data.Type)
	assert.Equal(t, asker.ID, msg.Data.User)
	assert.Equal(t, a.ID, msg.Data.LinkTo.Answer)
}

func TestNotificationStream_RequiresIdentity(t *testing.T) {
	s := newTestServer(t)
	server := httptest.NewServer(s.api.Handler())
	defer server.Close()

	_, resp, err := dialNotifications(t, server, "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestNotificationStream_ClosedOnDisconnect(t *testing.T) {
	s := newTestServer(t)
	user, token := s.user(t, "reader", core.RoleUser)
	server := httptest.NewServer(s.api.Handler())
	defer server.Close()

	conn, _, err := dialNotifications(t, server, token)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.hub.UserClientCount(user.ID) == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return s.hub.UserClientCount(user.ID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_StopRefusesClients(t *testing.T) {
	hub := NewHub(zap.NewNop().Sugar())
	hub.Stop()
	hub.Stop()

	assert.False(t, hub.add(&client{hub: hub, userID: "u1", send: make(chan []byte, 1)}))
	assert.Equal(t, 0, hub.ClientCount())
	// publishing with no listeners is a no-op
	hub.Publish("u1", &core.Notification{ID: "n1", User: "u1"})
}

func TestHub_PublishOnlyReachesRecipient(t *testing.T) {
	hub := NewHub(zap.NewNop().Sugar())
	alice := &client{hub: hub, userID: "alice", send: make(chan []byte, 1)}
	bob := &client{hub: hub, userID: "bob", send: make(chan []byte, 1)}
	require.True(t, hub.add(alice))
	require.True(t, hub.add(bob))
	assert.Equal(t, 2, hub.ClientCount())

	hub.Publish("alice", &core.Notification{ID: "n1", User: "alice"})

	select {
	case payload := <-alice.send:
		assert.Contains(t, string(payload), `"n1"`)
	default:
		t.Fatal("alice did not receive the notification")
	}
	assert.Empty(t, bob.send)

	hub.remove(alice)
	hub.remove(alice)
	assert.Equal(t, 0, hub.UserClientCount("alice"))
	assert.Equal(t, 1, hub.ClientCount())
}
