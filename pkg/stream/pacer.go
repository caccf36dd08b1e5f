package stream

import (
	"sync"
	"time"

	"github.com/u64view/u64view/pkg/logger"
)

// Pacer smooths bursty frame delivery into a steady presentation
// cadence. Completed frames queue up to the lookahead depth; above it
// the oldest are dropped so latency cannot grow. Frames are released
// at the stream's nominal rate against a monotonic clock. When the
// source dries up the last emitted frame is held and, after the stall
// timeout, a stalled state is reported; the arrival of the next frame
// reports recovery.
//
// This is the only component that makes clock-based decisions.
type Pacer struct {
	mu       sync.Mutex
	queue    []*CompletedFrame
	depth    int
	interval time.Duration // zero until the standard is known
	fps      float64       // config override, zero = auto
	next     time.Time
	held     *CompletedFrame
	lastEmit time.Time
	stalled  bool

	stallTimeout time.Duration

	stats   *Stats
	log     *logger.Logger
	onState func(stalled bool)

	now func() time.Time
}

func NewPacer(lookahead int, fps float64, stallTimeout time.Duration, stats *Stats, log *logger.Logger) *Pacer {
	if lookahead < 1 {
		lookahead = 1
	}
	p := &Pacer{
		depth:        lookahead,
		fps:          fps,
		stallTimeout: stallTimeout,
		stats:        stats,
		log:          log,
		now:          time.Now,
	}
	if fps > 0 {
		p.interval = intervalOf(fps)
	}
	return p
}

func intervalOf(fps float64) time.Duration {
	return time.Duration(float64(time.Second) / fps)
}

// OnState registers the stalled/recovered transition callback. The
// callback runs outside the pacer lock and must not block for long.
func (p *Pacer) OnState(fn func(stalled bool)) { p.onState = fn }

// Push queues a completed frame, dropping the oldest above the
// lookahead depth. Called from the receive path; never blocks.
func (p *Pacer) Push(f *CompletedFrame) {
	var recovered bool
	p.mu.Lock()
	if p.interval == 0 {
		std := f.Standard()
		p.interval = intervalOf(std.Fps())
		p.log.Info().Msgf("video standard %v (%dx%d @ %.3f fps)", std, f.Width, f.Height, std.Fps())
	}
	p.queue = append(p.queue, f)
	if len(p.queue) > p.depth {
		p.queue = p.queue[1:]
		p.stats.FramesExcess.Add(1)
	}
	p.stats.QueueDepth.Store(int64(len(p.queue)))
	if p.stalled {
		p.stalled = false
		recovered = true
	}
	p.mu.Unlock()
	if recovered && p.onState != nil {
		p.onState(false)
	}
}

// TryNext returns the next frame once its presentation time is due,
// or nothing. It never blocks; GUI event loops and headless tickers
// poll it at their own cadence.
func (p *Pacer) TryNext() (*CompletedFrame, bool) {
	var stalledNow bool
	p.mu.Lock()
	now := p.now()
	if len(p.queue) == 0 {
		if !p.stalled && p.held != nil && p.stallTimeout > 0 && now.Sub(p.lastEmit) > p.stallTimeout {
			p.stalled = true
			p.stats.Stalls.Add(1)
			stalledNow = true
		}
		p.mu.Unlock()
		if stalledNow {
			p.log.Warn().Msg("stream stalled, holding last frame")
			if p.onState != nil {
				p.onState(true)
			}
		}
		return nil, false
	}
	if !p.next.IsZero() && now.Before(p.next) {
		p.mu.Unlock()
		return nil, false
	}
	f := p.queue[0]
	p.queue = p.queue[1:]
	p.stats.QueueDepth.Store(int64(len(p.queue)))
	p.held = f
	p.lastEmit = now
	if p.next.IsZero() || now.Sub(p.next) > p.interval {
		// fell behind more than a tick, resync to the clock
		p.next = now.Add(p.interval)
	} else {
		p.next = p.next.Add(p.interval)
	}
	p.mu.Unlock()
	return f, true
}

// Held returns the last emitted frame; the sink keeps showing it
// during a stall instead of blanking the screen.
func (p *Pacer) Held() *CompletedFrame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.held
}

func (p *Pacer) Stalled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stalled
}

// Depth returns the current lookahead occupancy.
func (p *Pacer) Depth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}
