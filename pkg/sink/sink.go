// Package sink contains the presentation collaborators: consumers of
// the core's pull interface. The core never depends on any of them.
package sink

import (
	"github.com/u64view/u64view/pkg/stream"
)

// Source is the narrow core boundary every sink consumes: paced
// frames and buffered audio, pull style, never blocking the receive
// path.
type Source interface {
	TryNextFrame() (*stream.CompletedFrame, bool)
	HeldFrame() *stream.CompletedFrame
	ReadAudio(dst []int16) int
	Stalled() bool
	StatsSnapshot() stream.Snapshot
}

// audioBatch is how many samples a sink pulls per refill: 20 ms of
// stereo at the device rate.
const audioBatch = stream.AudioSampleRate / 50 * stream.AudioChannels
