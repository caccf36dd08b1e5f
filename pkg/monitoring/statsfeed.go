package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/u64view/u64view/pkg/logger"
	"github.com/u64view/u64view/pkg/stream"
)

const (
	pushInterval = time.Second
	writeWait    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// diagnostics on the LAN, no origin policy
	CheckOrigin: func(*http.Request) bool { return true },
}

// statsFeed pushes a stream stats snapshot to every connected
// websocket once a second.
type statsFeed struct {
	snapshot func() stream.Snapshot
	log      *logger.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	done  chan struct{}
}

func newStatsFeed(snapshot func() stream.Snapshot, log *logger.Logger) *statsFeed {
	return &statsFeed{
		snapshot: snapshot,
		log:      log,
		conns:    map[*websocket.Conn]struct{}{},
		done:     make(chan struct{}),
	}
}

func (f *statsFeed) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.Debug().Err(err).Msg("stats ws upgrade failed")
		return
	}
	f.mu.Lock()
	f.conns[conn] = struct{}{}
	f.mu.Unlock()
	f.log.Debug().Msgf("stats ws client %v", conn.RemoteAddr())

	// drain (and ignore) client messages to notice disconnects
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				f.drop(conn)
				return
			}
		}
	}()
}

func (f *statsFeed) drop(conn *websocket.Conn) {
	f.mu.Lock()
	delete(f.conns, conn)
	f.mu.Unlock()
	_ = conn.Close()
}

func (f *statsFeed) run() {
	go func() {
		ticker := time.NewTicker(pushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				f.push()
			case <-f.done:
				return
			}
		}
	}()
}

func (f *statsFeed) push() {
	snap := f.snapshot()
	f.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(f.conns))
	for c := range f.conns {
		conns = append(conns, c)
	}
	f.mu.Unlock()
	for _, c := range conns {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteJSON(snap); err != nil {
			f.drop(c)
		}
	}
}

func (f *statsFeed) stop() {
	close(f.done)
	f.mu.Lock()
	for c := range f.conns {
		_ = c.Close()
	}
	f.conns = map[*websocket.Conn]struct{}{}
	f.mu.Unlock()
}
