package image

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u64view/u64view/pkg/stream"
)

func TestCanvasDrawNibbleOrder(t *testing.T) {
	pal := DefaultPalette()
	c := NewCanvas(stream.PixelsPerLine, stream.PALHeight, pal)

	pixels := make([]byte, stream.BytesPerLine*stream.PALHeight)
	// low nibble 1 (white) left, high nibble 0 (black) right
	pixels[0] = 0x01
	frame := &stream.CompletedFrame{
		Width:  stream.PixelsPerLine,
		Height: stream.PALHeight,
		Pixels: pixels,
	}

	img := c.Draw(frame)
	defer c.Put(img)

	colors := pal.Colors()
	assert.Equal(t, colors[1], img.RGBAAt(0, 0))
	assert.Equal(t, colors[0], img.RGBAAt(1, 0))
	assert.True(t, img.Opaque())
}

func TestCanvasDrawNTSCCropsToFrameHeight(t *testing.T) {
	pal := DefaultPalette()
	c := NewCanvas(stream.PixelsPerLine, stream.PALHeight, pal)

	pixels := make([]byte, stream.BytesPerLine*stream.NTSCHeight)
	for i := range pixels {
		pixels[i] = 0x11 // all white
	}
	frame := &stream.CompletedFrame{
		Width:  stream.PixelsPerLine,
		Height: stream.NTSCHeight,
		Pixels: pixels,
	}

	img := c.Draw(frame)
	defer c.Put(img)

	assert.Equal(t, stream.NTSCHeight, img.Bounds().Dy())
	colors := pal.Colors()
	assert.Equal(t, colors[1], img.RGBAAt(0, stream.NTSCHeight-1))
}

func TestFrameCopyDetaches(t *testing.T) {
	pal := DefaultPalette()
	c := NewCanvas(stream.PixelsPerLine, stream.PALHeight, pal)

	img := c.Get()
	img.Pix[0] = 0xAA
	cp := img.Copy()
	img.Pix[0] = 0xBB

	require.Len(t, cp.Pix, len(img.Pix))
	assert.EqualValues(t, 0xAA, cp.Pix[0])
	assert.Equal(t, img.Rect, cp.Rect)
}

func TestScale(t *testing.T) {
	pal := DefaultPalette()
	c := NewCanvas(2, 2, pal)

	img := c.Get()
	img.SetRGBA(0, 0, color.RGBA{R: 0xFF, A: 0xFF})

	scaled := Scale(img.RGBA, 3)
	assert.Equal(t, 6, scaled.Bounds().Dx())
	assert.Equal(t, 6, scaled.Bounds().Dy())
	assert.Equal(t, color.RGBA{R: 0xFF, A: 0xFF}, scaled.At(1, 1))

	// factor 1 is a no-op passthrough
	assert.Same(t, img.RGBA, Scale(img.RGBA, 1))
}
