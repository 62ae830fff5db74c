package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestConnState_String(t *testing.T) {
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "closing", StateClosing.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", ConnState(9).String())
}

func TestConnection_CloseTransitions(t *testing.T) {
	sock := newFakeSocket()
	c := NewConnection(sock, DefaultConnectionOptions())

	assert.Equal(t, StateOpen, c.State())
	assert.True(t, c.Alive())
	assert.True(t, c.Send([]byte(`{"type":"heartbeat_ack"}`)))

	c.Close()
	assert.Equal(t, StateClosed, c.State())
	assert.Equal(t, 1, sock.closeFrameCount())
	assert.True(t, sock.isClosed())
	assert.False(t, c.Send([]byte(`{}`)))

	// 重复关闭无副作用
	c.Close()
	c.Terminate()
	assert.Equal(t, 1, sock.closeFrameCount())
}

func TestConnection_SendBufferFull(t *testing.T) {
	c := NewConnection(newFakeSocket(), ConnectionOptions{SendBuffer: 1})

	assert.True(t, c.SendMessage(NewHeartbeatAck()))
	assert.False(t, c.SendMessage(NewHeartbeatAck()))
	assert.Len(t, drain(c), 1)
}

func TestConnection_PingMarksPendingPong(t *testing.T) {
	sock := newFakeSocket()
	c := NewConnection(sock, DefaultConnectionOptions())

	require.NoError(t, c.Ping(time.Now()))
	assert.False(t, c.Alive())
	assert.Equal(t, 1, sock.pingCount())

	c.Terminate()
	assert.Error(t, c.Ping(time.Now()))
}

func TestConnection_Run(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	sock := newFakeSocket()
	c := NewConnection(sock, DefaultConnectionOptions())
	handler := &recordingHandler{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(handler)
	}()

	sock.inbound <- []byte(`{"type":"heartbeat"}`)
	require.Eventually(t, func() bool { return handler.receivedCount() == 1 }, time.Second, 5*time.Millisecond)

	require.True(t, c.SendMessage(NewHeartbeatAck()))
	require.Eventually(t, func() bool {
		types := sock.writtenTypes()
		return len(types) == 1 && types[0] == TypeHeartbeatAck
	}, time.Second, 5*time.Millisecond)

	// pong 恢复存活标记
	require.Eventually(t, sock.hasPongHandler, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Ping(time.Now()))
	assert.False(t, c.Alive())
	sock.pong()
	assert.True(t, c.Alive())

	c.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("连接未退出")
	}
	assert.Equal(t, 1, handler.closedCount())
	assert.Equal(t, StateClosed, c.State())
}
