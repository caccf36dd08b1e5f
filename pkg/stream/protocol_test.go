package stream

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// videoDatagram builds a wire-format video packet for tests.
func videoDatagram(seq, frame uint16, index int, last bool, fill byte) []byte {
	b := make([]byte, VideoPacketSize)
	binary.LittleEndian.PutUint16(b[0:], seq)
	binary.LittleEndian.PutUint16(b[2:], frame)
	line := uint16(index * LinesPerFragment)
	if last {
		line |= lastLineFlag
	}
	binary.LittleEndian.PutUint16(b[4:], line)
	binary.LittleEndian.PutUint16(b[6:], PixelsPerLine)
	b[8] = LinesPerFragment
	b[9] = 4
	for i := videoHeaderSize; i < len(b); i++ {
		b[i] = fill
	}
	return b
}

func audioDatagram(seq uint16, fill int16) []byte {
	b := make([]byte, AudioPacketSize)
	binary.LittleEndian.PutUint16(b[0:], seq)
	for i := 0; i < ChunkSampleCount; i++ {
		binary.LittleEndian.PutUint16(b[audioHeaderSize+i*2:], uint16(fill))
	}
	return b
}

func TestParseFrameFragment(t *testing.T) {
	f, err := ParseFrameFragment(videoDatagram(7, 42, 3, false, 0xAB))
	require.NoError(t, err)
	assert.EqualValues(t, 7, f.Seq)
	assert.EqualValues(t, 42, f.Frame)
	assert.EqualValues(t, 12, f.Line)
	assert.Equal(t, 3, f.Index())
	assert.False(t, f.Last)
	assert.Len(t, f.Pixels, FragmentBytes)
	assert.EqualValues(t, 0xAB, f.Pixels[0])
}

func TestParseFrameFragmentLastFlag(t *testing.T) {
	f, err := ParseFrameFragment(videoDatagram(0, 0, 67, true, 0))
	require.NoError(t, err)
	assert.True(t, f.Last)
	assert.EqualValues(t, 67*LinesPerFragment, f.Line)
}

func TestParseFrameFragmentRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
	}{
		{"short", make([]byte, VideoPacketSize-1)},
		{"long", make([]byte, VideoPacketSize+1)},
		{"empty", nil},
		{"bad width", func() []byte {
			b := videoDatagram(0, 0, 0, false, 0)
			binary.LittleEndian.PutUint16(b[6:], 383)
			return b
		}()},
		{"bad lines per packet", func() []byte {
			b := videoDatagram(0, 0, 0, false, 0)
			b[8] = 8
			return b
		}()},
		{"bad depth", func() []byte {
			b := videoDatagram(0, 0, 0, false, 0)
			b[9] = 8
			return b
		}()},
		{"line out of range", videoDatagram(0, 0, maxFragments, false, 0)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseFrameFragment(test.b)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestParseAudioChunk(t *testing.T) {
	seq, pcm, err := ParseAudioChunk(audioDatagram(99, -12345), nil)
	require.NoError(t, err)
	assert.EqualValues(t, 99, seq)
	require.Len(t, pcm, ChunkSampleCount)
	for _, s := range pcm {
		assert.EqualValues(t, -12345, s)
	}

	_, _, err = ParseAudioChunk(make([]byte, AudioPacketSize-1), nil)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestStandardDetection(t *testing.T) {
	pal := CompletedFrame{Height: PALHeight}
	ntsc := CompletedFrame{Height: NTSCHeight}
	odd := CompletedFrame{Height: 100}

	assert.Equal(t, StandardPAL, pal.Standard())
	assert.Equal(t, StandardNTSC, ntsc.Standard())
	assert.Equal(t, StandardUnknown, odd.Standard())

	assert.Equal(t, PALFps, StandardPAL.Fps())
	assert.Equal(t, NTSCFps, StandardNTSC.Fps())
	assert.Equal(t, PALFps, StandardUnknown.Fps())
}
