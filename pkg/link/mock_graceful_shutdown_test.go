package link

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMock_GracefulShutdown tests that the simulated rig stops emitting
// lines when Close() is called.
func TestMock_GracefulShutdown(t *testing.T) {
	dev := NewMock(fastMockConfig(), nil)
	require.NoError(t, dev.Connect())

	// Read a few lines
	collect(t, dev, func(l []string) bool { return len(l) >= 3 })

	done := make(chan struct{})
	go func() {
		defer close(done)
		dev.Close()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Mock did not stop within timeout")
	}
	assert.False(t, dev.connected)

	// Unread lines are discarded and nothing more arrives
	_, ok := dev.Poll()
	assert.False(t, ok, "unread lines after Close")
	time.Sleep(30 * time.Millisecond)
	_, ok = dev.Poll()
	assert.False(t, ok, "no lines after Close")

	// Close is idempotent
	assert.NoError(t, dev.Close())
}

// TestMock_Reconnect tests that the rig can be started again after Close.
func TestMock_Reconnect(t *testing.T) {
	dev := NewMock(fastMockConfig(), nil)
	require.NoError(t, dev.Connect())
	require.NoError(t, dev.Close())

	require.NoError(t, dev.Connect())
	defer dev.Close()

	collect(t, dev, func(l []string) bool { return len(l) >= 1 })
}

// TestMock_ReconnectDropsStaleReplies tests that a reply queued before Close
// is not delivered on the next connection.
func TestMock_ReconnectDropsStaleReplies(t *testing.T) {
	cfg := fastMockConfig()
	cfg.SampleRate = time.Hour // No ticks, so the reply stays queued
	dev := NewMock(cfg, nil)
	require.NoError(t, dev.Connect())
	require.NoError(t, dev.Send("SET_REF:100"))
	require.NoError(t, dev.Close())

	require.NoError(t, dev.Connect())
	defer dev.Close()

	dev.mu.Lock()
	assert.Empty(t, dev.pending)
	dev.mu.Unlock()
	_, ok := dev.Poll()
	assert.False(t, ok)
}
