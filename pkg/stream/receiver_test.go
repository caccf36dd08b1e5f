package stream

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u64view/u64view/pkg/logger"
)

func newLoopbackReceiver(t *testing.T, stats *Stats) (*Receiver, *net.UDPConn) {
	t.Helper()
	r, err := NewReceiver("127.0.0.1", 0, stats, logger.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	sender, err := net.DialUDP("udp", nil, r.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sender.Close() })
	return r, sender
}

func TestReceiverPoll(t *testing.T) {
	stats := &Stats{}
	r, sender := newLoopbackReceiver(t, stats)

	_, err := sender.Write(videoDatagram(1, 1, 0, false, 0xEE))
	require.NoError(t, err)

	var batch []Datagram
	// loopback delivery is fast but not instant
	for i := 0; i < 50 && len(batch) == 0; i++ {
		batch, err = r.Poll(20 * time.Millisecond)
		require.NoError(t, err)
	}
	require.Len(t, batch, 1)
	assert.Len(t, batch[0].Payload, VideoPacketSize)
	assert.EqualValues(t, 0xEE, batch[0].Payload[VideoPacketSize-1])
	assert.False(t, batch[0].Arrived.IsZero())
	assert.EqualValues(t, 1, stats.PacketsReceived.Load())
}

func TestReceiverPollTimeout(t *testing.T) {
	stats := &Stats{}
	r, _ := newLoopbackReceiver(t, stats)

	start := time.Now()
	batch, err := r.Poll(10 * time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, batch)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestReceiverClosed(t *testing.T) {
	stats := &Stats{}
	r, _ := newLoopbackReceiver(t, stats)
	require.NoError(t, r.Close())

	_, err := r.Poll(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrClosed)
}
