package image

import (
	"image"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/u64view/u64view/pkg/stream"
)

// Canvas turns completed frames into RGBA images. Output frames come
// from a pool since the SDL sink and the PNG recorder churn through
// one per display tick.
type Canvas struct {
	w, h int
	pal  *Palette
	pool sync.Pool
}

type Frame struct {
	*image.RGBA
}

func (f *Frame) Opaque() bool { return true }

func (f *Frame) Copy() *Frame {
	return &Frame{&image.RGBA{
		Pix:    append([]uint8{}, f.Pix...),
		Stride: f.Stride,
		Rect:   f.Rect,
	}}
}

func NewCanvas(w, h int, pal *Palette) *Canvas {
	return &Canvas{
		w: w, h: h, pal: pal,
		pool: sync.Pool{New: func() any {
			return &Frame{&image.RGBA{
				Pix:    make([]uint8, w*h*4),
				Stride: w * 4,
				Rect:   image.Rectangle{Max: image.Point{X: w, Y: h}},
			}}
		}},
	}
}

func (c *Canvas) Get() *Frame  { return c.pool.Get().(*Frame) }
func (c *Canvas) Put(f *Frame) { c.pool.Put(f) }

// Draw expands the packed 4-bit palette indices of cf into an RGBA
// frame. Low nibble is the left pixel of each byte pair.
func (c *Canvas) Draw(cf *stream.CompletedFrame) *Frame {
	dst := c.Get()
	pal := c.pal.Colors()
	h := cf.Height
	if h > c.h {
		h = c.h
	}
	// the backing pixels stay max-sized, the visible rect follows the
	// frame's standard
	dst.Rect = image.Rectangle{Max: image.Point{X: c.w, Y: h}}
	for y := 0; y < h; y++ {
		row := cf.Pixels[y*stream.BytesPerLine : (y+1)*stream.BytesPerLine]
		di := y * dst.Stride
		for _, b := range row {
			p1 := pal[b&0x0F]
			p2 := pal[b>>4]
			dst.Pix[di+0] = p1.R
			dst.Pix[di+1] = p1.G
			dst.Pix[di+2] = p1.B
			dst.Pix[di+3] = 0xFF
			dst.Pix[di+4] = p2.R
			dst.Pix[di+5] = p2.G
			dst.Pix[di+6] = p2.B
			dst.Pix[di+7] = 0xFF
			di += 8
		}
	}
	return dst
}

// Scale resizes src by an integer factor with nearest-neighbour
// sampling, keeping the crisp pixel look.
func Scale(src image.Image, factor int) image.Image {
	if factor <= 1 {
		return src
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
