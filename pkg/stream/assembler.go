package stream

import (
	"time"

	"github.com/u64view/u64view/pkg/logger"
)

// Assembler reconstructs frames from fragments arriving in any order.
//
// It keeps a fixed arena of pending-frame slots indexed by the frame
// sequence number modulo the retention window, so memory stays bounded
// regardless of loss rate. A slot goes Empty -> Accumulating and ends
// Complete (all fragments seen) or Abandoned (the window moved past it
// first). Abandoned frames are never completed later: their fragments
// fall behind the window and are discarded as late.
//
// Not safe for concurrent use; the receive loop is its only caller.
type Assembler struct {
	window  int
	slots   []pendingFrame
	highest uint16 // highest frame sequence seen
	started bool
	// height of the last completed frame; lets a frame whose flagged
	// last fragment was lost still complete from known geometry
	knownHeight int

	stats   *Stats
	log     *logger.Logger
	onFrame func(*CompletedFrame)
}

type pendingFrame struct {
	active bool
	seq    uint16
	// last frame settled in this slot while it may still be in the
	// window: completed and abandoned frames must stay terminal
	settled    bool
	settledSeq uint16
	settledOK  bool
	received   [maxFragments]bool
	count      int
	expected   int // 0 until the flagged last fragment arrives
	height     int
	buf        []byte
	firstAt    time.Time
	lastAt     time.Time
}

func NewAssembler(window int, stats *Stats, log *logger.Logger, onFrame func(*CompletedFrame)) *Assembler {
	if window < 1 {
		window = 1
	}
	slots := make([]pendingFrame, window)
	for i := range slots {
		slots[i].buf = make([]byte, BytesPerLine*PALHeight)
	}
	return &Assembler{window: window, slots: slots, stats: stats, log: log, onFrame: onFrame}
}

// Push feeds one parsed fragment into the arena.
func (a *Assembler) Push(f FrameFragment, arrived time.Time) {
	if !a.started {
		a.started = true
		a.highest = f.Frame
	}

	// serial arithmetic so the 16-bit sequence may wrap
	d := int(int16(f.Frame - a.highest))
	if d > 0 {
		a.highest = f.Frame
		a.evictStale()
	} else if d <= -a.window {
		// behind the retention window: late or duplicate of an
		// already settled frame
		a.stats.FragmentsLate.Add(1)
		return
	}

	slot := &a.slots[int(f.Frame)%a.window]
	if !slot.active && slot.settled && slot.settledSeq == f.Frame {
		if slot.settledOK {
			a.stats.FragmentsDuplicate.Add(1)
		} else {
			a.stats.FragmentsLate.Add(1)
		}
		return
	}
	if slot.active && slot.seq != f.Frame {
		// the arena guarantees in-window residues are unique; an
		// occupied mismatch means the occupant is already stale
		a.abandon(slot)
	}
	if !slot.active {
		slot.start(f.Frame, arrived)
	}
	slot.lastAt = arrived

	idx := f.Index()
	copy(slot.buf[idx*FragmentBytes:], f.Pixels) // last write wins
	if slot.received[idx] {
		a.stats.FragmentsDuplicate.Add(1)
	} else {
		slot.received[idx] = true
		slot.count++
	}
	if f.Last {
		slot.expected = idx + 1
		slot.height = (idx + 1) * LinesPerFragment
	}
	if slot.expected == 0 && a.knownHeight > 0 {
		if n := a.knownHeight / LinesPerFragment; slot.count >= n && slot.has(n) {
			slot.expected = n
			slot.height = a.knownHeight
		}
	}

	if slot.expected > 0 && slot.count >= slot.expected {
		a.complete(slot, arrived)
	}
}

// evictStale abandons every accumulating frame that fell out of the
// retention window after the highest sequence advanced.
func (a *Assembler) evictStale() {
	for i := range a.slots {
		s := &a.slots[i]
		if s.active && int(int16(s.seq-a.highest)) <= -a.window {
			a.abandon(s)
		}
	}
}

func (a *Assembler) abandon(s *pendingFrame) {
	a.stats.FramesIncomplete.Add(1)
	a.log.Debug().Msgf("frame %d abandoned with %d/%d fragments", s.seq, s.count, s.expected)
	s.active = false
	s.settled = true
	s.settledSeq = s.seq
	s.settledOK = false
}

func (a *Assembler) complete(s *pendingFrame, arrived time.Time) {
	pixels := make([]byte, BytesPerLine*s.height)
	copy(pixels, s.buf[:len(pixels)])
	frame := &CompletedFrame{
		Seq:       s.seq,
		Width:     PixelsPerLine,
		Height:    s.height,
		Pixels:    pixels,
		Completed: arrived,
	}
	s.active = false
	s.settled = true
	s.settledSeq = s.seq
	s.settledOK = true
	a.knownHeight = s.height
	a.stats.FramesCompleted.Add(1)
	if a.onFrame != nil {
		a.onFrame(frame)
	}
}

// Flush abandons whatever is still accumulating, counted as
// incomplete. Called on stream shutdown.
func (a *Assembler) Flush() {
	for i := range a.slots {
		if a.slots[i].active {
			a.abandon(&a.slots[i])
		}
	}
}

// has reports whether the first n fragments all arrived.
func (s *pendingFrame) has(n int) bool {
	for i := 0; i < n; i++ {
		if !s.received[i] {
			return false
		}
	}
	return true
}

func (s *pendingFrame) start(seq uint16, at time.Time) {
	s.active = true
	s.seq = seq
	s.settled = false
	s.received = [maxFragments]bool{}
	s.count = 0
	s.expected = 0
	s.height = 0
	s.firstAt = at
}
