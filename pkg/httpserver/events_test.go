package httpserver

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEventBroadcaster_DeliversBroadcastToConnectedClient(t *testing.T) {
	broadcaster := NewEventBroadcaster(zap.NewNop())
	server := httptest.NewServer(broadcaster)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond) // let the server finish registering the client

	broadcaster.Broadcast(map[string]string{"outcome": "executed"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(payload), "executed")
}

func TestEventBroadcaster_CloseDisconnectsClients(t *testing.T) {
	broadcaster := NewEventBroadcaster(zap.NewNop())
	server := httptest.NewServer(broadcaster)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond)
	broadcaster.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	require.Error(t, err, "connection should be closed after broadcaster.Close()")
}

func TestEventBroadcaster_BroadcastWithNoClientsDoesNotBlock(t *testing.T) {
	broadcaster := NewEventBroadcaster(zap.NewNop())
	broadcaster.Broadcast(map[string]string{"outcome": "no_op"})
}
