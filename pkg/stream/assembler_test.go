package stream

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u64view/u64view/pkg/logger"
)

const palFragments = PALHeight / LinesPerFragment

func newTestAssembler(window int, stats *Stats) (*Assembler, *[]*CompletedFrame) {
	frames := &[]*CompletedFrame{}
	a := NewAssembler(window, stats, logger.Default(), func(f *CompletedFrame) {
		*frames = append(*frames, f)
	})
	return a, frames
}

func pushFragment(a *Assembler, frame uint16, index int, last bool, fill byte) {
	f, err := ParseFrameFragment(videoDatagram(0, frame, index, last, fill))
	if err != nil {
		panic(err)
	}
	a.Push(f, time.Now())
}

func TestAssemblerCompletesOutOfOrder(t *testing.T) {
	stats := &Stats{}
	a, frames := newTestAssembler(8, stats)

	order := rand.New(rand.NewSource(1)).Perm(palFragments)
	for _, i := range order {
		pushFragment(a, 100, i, i == palFragments-1, byte(i))
	}

	require.Len(t, *frames, 1)
	f := (*frames)[0]
	assert.EqualValues(t, 100, f.Seq)
	assert.Equal(t, PixelsPerLine, f.Width)
	assert.Equal(t, PALHeight, f.Height)
	assert.Equal(t, StandardPAL, f.Standard())
	require.Len(t, f.Pixels, BytesPerLine*PALHeight)
	for i := 0; i < palFragments; i++ {
		assert.EqualValues(t, byte(i), f.Pixels[i*FragmentBytes], "fragment %d", i)
	}
	assert.EqualValues(t, 1, stats.FramesCompleted.Load())
	assert.EqualValues(t, 0, stats.FramesIncomplete.Load())
}

func TestAssemblerNTSCHeight(t *testing.T) {
	stats := &Stats{}
	a, frames := newTestAssembler(8, stats)

	n := NTSCHeight / LinesPerFragment
	for i := 0; i < n; i++ {
		pushFragment(a, 5, i, i == n-1, 0)
	}

	require.Len(t, *frames, 1)
	assert.Equal(t, NTSCHeight, (*frames)[0].Height)
	assert.Equal(t, StandardNTSC, (*frames)[0].Standard())
}

func TestAssemblerDuplicateLastWriteWins(t *testing.T) {
	stats := &Stats{}
	a, frames := newTestAssembler(8, stats)

	pushFragment(a, 1, 0, false, 0xAA)
	pushFragment(a, 1, 0, false, 0xBB)
	for i := 1; i < palFragments; i++ {
		pushFragment(a, 1, i, i == palFragments-1, 0)
	}

	require.Len(t, *frames, 1)
	assert.EqualValues(t, 0xBB, (*frames)[0].Pixels[0])
	assert.EqualValues(t, 1, stats.FragmentsDuplicate.Load())
	assert.EqualValues(t, 1, stats.FramesCompleted.Load())
}

func TestAssemblerAbandonsStaleFrames(t *testing.T) {
	stats := &Stats{}
	a, frames := newTestAssembler(4, stats)

	// frame 0 starts but never finishes
	pushFragment(a, 0, 0, false, 0)
	// the window advances past it
	pushFragment(a, 4, 0, false, 0)

	assert.Empty(t, *frames)
	assert.EqualValues(t, 1, stats.FramesIncomplete.Load())

	// fragments of the abandoned frame are now late, not a restart
	pushFragment(a, 0, 1, false, 0)
	assert.Empty(t, *frames)
	assert.EqualValues(t, 1, stats.FragmentsLate.Load())
	assert.EqualValues(t, 1, stats.FramesIncomplete.Load())
}

func TestAssemblerSettledFrameStaysTerminal(t *testing.T) {
	stats := &Stats{}
	a, frames := newTestAssembler(8, stats)

	for i := 0; i < palFragments; i++ {
		pushFragment(a, 3, i, i == palFragments-1, 0)
	}
	require.Len(t, *frames, 1)

	// a straggler duplicate of the completed frame, still in window
	pushFragment(a, 3, 10, false, 0xFF)

	assert.Len(t, *frames, 1)
	assert.EqualValues(t, 1, stats.FramesCompleted.Load())
	assert.EqualValues(t, 1, stats.FragmentsDuplicate.Load())
}

func TestAssemblerSequenceWrap(t *testing.T) {
	stats := &Stats{}
	a, frames := newTestAssembler(8, stats)

	for _, frame := range []uint16{65535, 0, 1} {
		for i := 0; i < palFragments; i++ {
			pushFragment(a, frame, i, i == palFragments-1, 0)
		}
	}

	require.Len(t, *frames, 3)
	assert.EqualValues(t, 65535, (*frames)[0].Seq)
	assert.EqualValues(t, 0, (*frames)[1].Seq)
	assert.EqualValues(t, 1, (*frames)[2].Seq)
	assert.EqualValues(t, 0, stats.FramesIncomplete.Load())
}

func TestAssemblerInterleavedFrames(t *testing.T) {
	stats := &Stats{}
	a, frames := newTestAssembler(8, stats)

	// two frames arriving interleaved, both complete
	for i := 0; i < palFragments; i++ {
		pushFragment(a, 10, i, i == palFragments-1, 0x10)
		pushFragment(a, 11, i, i == palFragments-1, 0x11)
	}

	require.Len(t, *frames, 2)
	assert.EqualValues(t, 2, stats.FramesCompleted.Load())
}

func TestAssemblerCompletesFromKnownGeometry(t *testing.T) {
	stats := &Stats{}
	a, frames := newTestAssembler(8, stats)

	// first frame pins the geometry
	for i := 0; i < palFragments; i++ {
		pushFragment(a, 1, i, i == palFragments-1, 0)
	}
	require.Len(t, *frames, 1)

	// the flagged last fragment of the next frame is lost
	for i := 0; i < palFragments-1; i++ {
		pushFragment(a, 2, i, false, 0)
	}
	assert.Len(t, *frames, 1)
	pushFragment(a, 2, palFragments-1, false, 0)

	require.Len(t, *frames, 2)
	assert.Equal(t, PALHeight, (*frames)[1].Height)
}

func TestAssemblerFlush(t *testing.T) {
	stats := &Stats{}
	a, frames := newTestAssembler(8, stats)

	pushFragment(a, 0, 0, false, 0)
	pushFragment(a, 1, 0, false, 0)
	a.Flush()

	assert.Empty(t, *frames)
	assert.EqualValues(t, 2, stats.FramesIncomplete.Load())
}
