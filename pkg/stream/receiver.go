package stream

import (
	"errors"
	"net"
	"syscall"
	"time"

	"github.com/u64view/u64view/pkg/logger"
	"github.com/u64view/u64view/pkg/network/socket"
)

// ErrClosed is returned by Poll after the receiver socket was closed.
var ErrClosed = errors.New("receiver closed")

// Receiver owns one UDP stream socket and drains it on demand.
// Bind failures are fatal and happen in NewReceiver, before any
// stream processing starts; receive-path errors never escape Poll
// except for the socket being closed.
type Receiver struct {
	conn  *net.UDPConn
	stats *Stats
	log   *logger.Logger

	buf   [VideoPacketSize + 100]byte // largest datagram plus slack
	batch []Datagram
}

func NewReceiver(address string, port int, stats *Stats, log *logger.Logger) (*Receiver, error) {
	conn, err := socket.NewUDP(address, port)
	if err != nil {
		return nil, err
	}
	log.Info().Msgf("listening on %v", conn.LocalAddr())
	return &Receiver{conn: conn, stats: stats, log: log}, nil
}

// Poll reads every datagram available within the timeout and returns
// them with arrival timestamps. It returns an empty batch when the
// timeout passes quietly and never blocks beyond it. The returned
// slice and payloads are valid until the next Poll call.
func (r *Receiver) Poll(timeout time.Duration) ([]Datagram, error) {
	r.batch = r.batch[:0]
	if err := r.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, ErrClosed
	}
	for {
		n, _, err := r.conn.ReadFromUDP(r.buf[:])
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				return r.batch, nil
			}
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return r.batch, ErrClosed
			}
			// transient receive errors are retried, not surfaced
			r.log.Debug().Err(err).Msg("udp read retry")
			continue
		}
		r.stats.PacketsReceived.Add(1)
		if n == 0 {
			r.stats.PacketsDiscarded.Add(1)
			continue
		}
		payload := make([]byte, n)
		copy(payload, r.buf[:n])
		r.batch = append(r.batch, Datagram{Payload: payload, Arrived: time.Now()})
		// drain what's queued, the deadline still caps the loop
		if len(r.batch) >= 512 {
			return r.batch, nil
		}
	}
}

func (r *Receiver) Close() error { return r.conn.Close() }

func (r *Receiver) LocalAddr() net.Addr { return r.conn.LocalAddr() }
