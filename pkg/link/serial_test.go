package link

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/ballbeam/pkg/config"
)

// newPiped returns a connected Serial whose device end is the returned conn.
func newPiped(t *testing.T, bufSize int) (*Serial, net.Conn) {
	t.Helper()

	host, device := net.Pipe()
	dev := New(config.SerialConfig{Port: "pipe"}, bufSize, nil)

	dev.mu.Lock()
	dev.start(host)
	dev.mu.Unlock()

	t.Cleanup(func() {
		dev.Close()
		device.Close()
	})
	return dev, device
}

func pollN(t *testing.T, dev *Serial, n int) []string {
	t.Helper()

	var got []string
	require.Eventually(t, func() bool {
		for {
			line, ok := dev.Poll()
			if !ok {
				break
			}
			got = append(got, line)
		}
		return len(got) >= n
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestNew(t *testing.T) {
	dev := New(config.SerialConfig{Port: "COM3", BaudRate: 9600, ReadTimeout: time.Second}, 10, nil)
	assert.NotNil(t, dev)
	assert.Equal(t, "COM3", dev.cfg.Port)
	assert.Equal(t, 9600, dev.cfg.BaudRate)
	assert.Equal(t, time.Second, dev.cfg.ReadTimeout)
	assert.Equal(t, 10, dev.bufSize)
	assert.False(t, dev.connected)
}

func TestNew_Defaults(t *testing.T) {
	dev := New(config.SerialConfig{Port: "COM3"}, 0, nil)
	assert.Equal(t, DefaultBaudRate, dev.cfg.BaudRate)
	assert.Equal(t, DefaultBufferSize, dev.bufSize)
}

func TestNew_CopiesConfig(t *testing.T) {
	cfg := config.SerialConfig{Port: "COM3", BaudRate: 115200}
	dev := New(cfg, 0, nil)

	cfg.Port = "COM9"
	assert.Equal(t, "COM3", dev.cfg.Port)
}

func TestSerial_PollEmpty(t *testing.T) {
	dev := New(config.SerialConfig{Port: "COM3"}, 0, nil)

	line, ok := dev.Poll()
	assert.False(t, ok)
	assert.Empty(t, line)
}

func TestSerial_SendNotConnected(t *testing.T) {
	dev := New(config.SerialConfig{Port: "COM3"}, 0, nil)
	assert.ErrorIs(t, dev.Send("REINICIAR_AUTOTUNE"), ErrNotConnected)
}

func TestSerial_ConnectMissingPort(t *testing.T) {
	dev := New(config.SerialConfig{Port: "/dev/does-not-exist-ballbeam"}, 0, nil)
	assert.Error(t, dev.Connect())
	assert.False(t, dev.connected)
}

func TestSerial_ReceivesLines(t *testing.T) {
	dev, device := newPiped(t, 0)

	go func() {
		device.Write([]byte("Posicao:1"))
		device.Write([]byte("0\r\nKp:2.5\n\n"))
		device.Write([]byte("Nova referencia:200\n"))
	}()

	got := pollN(t, dev, 3)
	assert.Equal(t, []string{"Posicao:10", "Kp:2.5", "Nova referencia:200"}, got)
}

func TestSerial_PollReturnsOneLineAtATime(t *testing.T) {
	dev, device := newPiped(t, 0)

	go device.Write([]byte("a\nb\n"))

	require.Eventually(t, func() bool { return len(dev.lines) == 2 }, 2*time.Second, 5*time.Millisecond)

	line, ok := dev.Poll()
	require.True(t, ok)
	assert.Equal(t, "a", line)
	line, ok = dev.Poll()
	require.True(t, ok)
	assert.Equal(t, "b", line)
	_, ok = dev.Poll()
	assert.False(t, ok)
}

func TestSerial_SendAppendsTerminator(t *testing.T) {
	dev, device := newPiped(t, 0)

	received := make(chan string, 2)
	go func() {
		r := bufio.NewReader(device)
		for range 2 {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			received <- line
		}
	}()

	require.NoError(t, dev.Send("SET_REF:123.5"))
	require.NoError(t, dev.Send("REINICIAR_AUTOTUNE\n"))

	assert.Equal(t, "SET_REF:123.5\n", <-received)
	assert.Equal(t, "REINICIAR_AUTOTUNE\n", <-received)
}

func TestSerial_DisconnectYieldsNoData(t *testing.T) {
	dev, device := newPiped(t, 0)

	go device.Write([]byte("Posicao:1\n"))
	pollN(t, dev, 1)

	// Device vanishes mid-session
	require.NoError(t, device.Close())

	select {
	case <-dev.done:
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not stop after disconnect")
	}

	_, ok := dev.Poll()
	assert.False(t, ok)
	assert.True(t, dev.connected)
}

func TestSerial_FullBufferDropsLines(t *testing.T) {
	dev, device := newPiped(t, 2)

	go device.Write([]byte("1\n2\n3\n4\n"))

	require.Eventually(t, func() bool { return len(dev.lines) == 2 }, 2*time.Second, 5*time.Millisecond)
	// Give the reader time to handle the rest of the write
	time.Sleep(20 * time.Millisecond)

	got := pollN(t, dev, 2)
	assert.Equal(t, []string{"1", "2"}, got)
}

func TestSerial_ReconnectDropsUnreadLines(t *testing.T) {
	dev, device := newPiped(t, 0)

	go device.Write([]byte("Posicao:1\nPosicao:2\n"))
	require.Eventually(t, func() bool { return len(dev.lines) == 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, dev.Close())

	host2, device2 := net.Pipe()
	t.Cleanup(func() { device2.Close() })
	dev.mu.Lock()
	dev.start(host2)
	dev.mu.Unlock()

	_, ok := dev.Poll()
	assert.False(t, ok, "lines from the previous connection")

	go device2.Write([]byte("Posicao:3\n"))
	assert.Equal(t, []string{"Posicao:3"}, pollN(t, dev, 1))
}

func TestSerial_Close(t *testing.T) {
	dev, _ := newPiped(t, 0)

	require.NoError(t, dev.Close())
	assert.False(t, dev.connected)
	assert.ErrorIs(t, dev.Send("x"), ErrNotConnected)

	// Second close is a no-op
	assert.NoError(t, dev.Close())
}

func TestSplitLines_DropsOversizedInput(t *testing.T) {
	dev := New(config.SerialConfig{Port: "COM3"}, 0, nil)

	rest := dev.splitLines(make([]byte, maxLineLength+1))
	assert.Empty(t, rest)

	rest = dev.splitLines([]byte("Posicao:1\nPosi"))
	assert.Equal(t, []byte("Posi"), rest)

	line, ok := dev.Poll()
	require.True(t, ok)
	assert.Equal(t, "Posicao:1", line)
}

func TestWithTerminator(t *testing.T) {
	assert.Equal(t, "a\n", withTerminator("a"))
	assert.Equal(t, "a\n", withTerminator("a\n"))
	assert.Equal(t, "\n", withTerminator(""))
}
