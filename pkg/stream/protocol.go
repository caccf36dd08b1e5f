// Package stream turns the Ultimate 64's lossy UDP datagram streams
// into a paced sequence of complete video frames and audio samples.
package stream

import (
	"encoding/binary"
	"errors"
	"time"
)

// Wire contract with the device (c64-protocol.h), fixed out-of-band.
const (
	VideoPacketSize  = 780
	videoHeaderSize  = 12
	VideoPayloadSize = VideoPacketSize - videoHeaderSize

	PixelsPerLine    = 384
	BytesPerLine     = 192 // 4 bits per pixel
	LinesPerFragment = 4
	FragmentBytes    = BytesPerLine * LinesPerFragment

	PALHeight  = 272
	NTSCHeight = 240

	AudioPacketSize  = 770
	audioHeaderSize  = 2
	AudioPayloadSize = AudioPacketSize - audioHeaderSize

	AudioSampleRate  = 47976
	AudioChannels    = 2
	SamplesPerChunk  = 192 // stereo pairs per datagram
	ChunkSampleCount = SamplesPerChunk * AudioChannels

	// bit 15 of the line field marks the final fragment of a frame
	lastLineFlag = 0x8000
)

// Nominal device refresh rates.
const (
	PALFps  = 50.125
	NTSCFps = 59.826
)

const maxFragments = PALHeight / LinesPerFragment

var ErrMalformed = errors.New("malformed datagram")

// Standard is the detected video standard of the stream.
type Standard uint8

const (
	StandardUnknown Standard = iota
	StandardPAL
	StandardNTSC
)

func (s Standard) String() string {
	switch s {
	case StandardPAL:
		return "PAL"
	case StandardNTSC:
		return "NTSC"
	}
	return "unknown"
}

// Fps returns the nominal frame rate of the standard,
// PAL when not yet known.
func (s Standard) Fps() float64 {
	if s == StandardNTSC {
		return NTSCFps
	}
	return PALFps
}

func standardOf(height int) Standard {
	switch height {
	case PALHeight:
		return StandardPAL
	case NTSCHeight:
		return StandardNTSC
	}
	return StandardUnknown
}

// Datagram is one received UDP payload with its arrival time.
type Datagram struct {
	Payload []byte
	Arrived time.Time
}

// FrameFragment is a parsed view of a video datagram: a slice of
// LinesPerFragment raster lines of one frame.
type FrameFragment struct {
	Seq   uint16 // device packet counter
	Frame uint16 // frame sequence number, wraps
	Line  uint16 // first raster line carried by this fragment
	Last  bool   // final fragment of the frame
	// Pixels aliases the datagram payload, valid until the next poll.
	Pixels []byte
}

// Index is the fragment's position within its frame.
func (f *FrameFragment) Index() int { return int(f.Line) / LinesPerFragment }

// ParseFrameFragment validates and decodes a video datagram.
// Datagrams with unexpected size or geometry are rejected as malformed;
// the stream geometry is a fixed contract, not renegotiated at runtime.
func ParseFrameFragment(b []byte) (FrameFragment, error) {
	if len(b) != VideoPacketSize {
		return FrameFragment{}, ErrMalformed
	}
	line := binary.LittleEndian.Uint16(b[4:6])
	f := FrameFragment{
		Seq:    binary.LittleEndian.Uint16(b[0:2]),
		Frame:  binary.LittleEndian.Uint16(b[2:4]),
		Line:   line &^ lastLineFlag,
		Last:   line&lastLineFlag != 0,
		Pixels: b[videoHeaderSize:],
	}
	pixelsPerLine := binary.LittleEndian.Uint16(b[6:8])
	linesPerPacket := b[8]
	bitsPerPixel := b[9]
	if pixelsPerLine != PixelsPerLine || linesPerPacket != LinesPerFragment || bitsPerPixel != 4 {
		return FrameFragment{}, ErrMalformed
	}
	if f.Index() >= maxFragments {
		return FrameFragment{}, ErrMalformed
	}
	return f, nil
}

// ParseAudioChunk decodes an audio datagram into interleaved stereo
// int16 samples appended to dst. Chunks are self-contained, there is
// no cross-datagram reassembly for audio.
func ParseAudioChunk(b []byte, dst []int16) (seq uint16, _ []int16, err error) {
	if len(b) != AudioPacketSize {
		return 0, dst, ErrMalformed
	}
	seq = binary.LittleEndian.Uint16(b[0:2])
	pcm := b[audioHeaderSize:]
	for i := 0; i < ChunkSampleCount; i++ {
		dst = append(dst, int16(binary.LittleEndian.Uint16(pcm[i*2:i*2+2])))
	}
	return seq, dst, nil
}

// CompletedFrame is an immutable reassembled frame of packed 4-bit
// palette indices. Interpreting the pixel layout is the sink's concern.
type CompletedFrame struct {
	Seq       uint16
	Width     int
	Height    int
	Pixels    []byte // BytesPerLine * Height
	Completed time.Time
}

func (f *CompletedFrame) Standard() Standard { return standardOf(f.Height) }
