package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/essay-arena/internal/config"
	"github.com/wfunc/essay-arena/internal/models"
)

func readMessage(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]any
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func TestServer_EndToEnd(t *testing.T) {
	f := newWSFixture()
	defer f.close()

	srv := NewServer(config.WebSocketConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  16,
		MaxMessageSize:  4096,
		WriteTimeout:    time.Second,
	}, f.registry, f.handler)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	// 非法消息不会断开连接
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`garbage`)))
	require.NoError(t, ws.WriteJSON(map[string]string{"type": "register", "projectCode": "p1", "userName": "Jane"}))

	registered := readMessage(t, ws)
	assert.Equal(t, TypeRegistered, registered["type"])
	assert.Equal(t, true, registered["success"])
	assert.Equal(t, TypeTokenUpdate, readMessage(t, ws)["type"])

	ctx := context.Background()
	_, err = f.services.Ledger.AdjustTokens(ctx, "p1", "bob", models.TokenDelta{Attack: 1})
	require.NoError(t, err)
	attack, err := f.services.Attacks.Initiate(ctx, "p1", "bob", "jane", time.Now())
	require.NoError(t, err)

	incoming := readMessage(t, ws)
	assert.Equal(t, TypeIncomingAttack, incoming["type"])
	assert.Equal(t, float64(attack.ID), incoming["attackId"])

	require.NoError(t, ws.WriteJSON(map[string]string{"type": "heartbeat"}))
	assert.Equal(t, TypeHeartbeatAck, readMessage(t, ws)["type"])

	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool { return f.registry.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, f.registry.IsReachable("p1", "jane"))
}
