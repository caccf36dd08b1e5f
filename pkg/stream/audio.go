package stream

import (
	"sync"
	"time"
)

// AudioRing is a fixed-capacity ring buffer of interleaved stereo
// int16 samples. Writers overwrite the oldest unread samples when the
// ring is full (overrun); readers get synthesized silence when it runs
// dry (underrun). Neither side ever blocks, real-time audio favors
// freshness over completeness.
type AudioRing struct {
	mu  sync.Mutex
	buf []int16
	// absolute cursors, read never passes write
	r, w int64

	stats *Stats

	filter bool
	dc     [AudioChannels]dcState
}

type dcState struct{ x1, y1 float32 }

// dcAlpha is the DC-blocker pole; 0.995 kills hum without touching
// the audible band.
const dcAlpha = 0.995

// NewAudioRing sizes the ring for the given playback latency, rounded
// up to whole device chunks.
func NewAudioRing(latency time.Duration, dcFilter bool, stats *Stats) *AudioRing {
	samples := int(float64(AudioSampleRate)*latency.Seconds()) * AudioChannels
	if samples < ChunkSampleCount {
		samples = ChunkSampleCount
	}
	if rem := samples % ChunkSampleCount; rem != 0 {
		samples += ChunkSampleCount - rem
	}
	return &AudioRing{buf: make([]int16, samples), stats: stats, filter: dcFilter}
}

// Capacity returns the ring size in samples.
func (a *AudioRing) Capacity() int { return len(a.buf) }

// Buffered returns the number of unread samples.
func (a *AudioRing) Buffered() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(a.w - a.r)
}

// Write appends a chunk at the write cursor, overwriting the oldest
// unread samples on overflow.
func (a *AudioRing) Write(s []int16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(s) > len(a.buf) {
		s = s[len(s)-len(a.buf):]
	}
	for _, v := range s {
		a.buf[a.w%int64(len(a.buf))] = v
		a.w++
	}
	if over := a.w - a.r - int64(len(a.buf)); over > 0 {
		a.r += over
		a.stats.AudioOverruns.Add(1)
	}
	a.stats.AudioChunks.Add(1)
}

// Read fills dst entirely, padding with silence when fewer samples are
// buffered, and returns how many real samples were delivered.
func (a *AudioRing) Read(dst []int16) int {
	a.mu.Lock()
	n := int(a.w - a.r)
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = a.buf[a.r%int64(len(a.buf))]
		a.r++
	}
	a.mu.Unlock()

	if n < len(dst) {
		for i := n; i < len(dst); i++ {
			dst[i] = 0
		}
		a.stats.AudioUnderruns.Add(1)
	}
	if a.filter && n > 0 {
		a.removeDC(dst[:n])
	}
	return n
}

// removeDC applies a per-channel first-order high-pass:
// y[n] = x[n] - x[n-1] + alpha*y[n-1]
func (a *AudioRing) removeDC(s []int16) {
	for i := 0; i+AudioChannels <= len(s); i += AudioChannels {
		for ch := 0; ch < AudioChannels; ch++ {
			st := &a.dc[ch]
			x := float32(s[i+ch])
			y := x - st.x1 + dcAlpha*st.y1
			st.x1, st.y1 = x, y
			if y > 32767 {
				y = 32767
			} else if y < -32768 {
				y = -32768
			}
			s[i+ch] = int16(y)
		}
	}
}
