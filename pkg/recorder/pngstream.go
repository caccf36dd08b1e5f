package recorder

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	u64image "github.com/u64view/u64view/pkg/image"
	"github.com/u64view/u64view/pkg/logger"
)

// pngStream writes frames as numbered PNG files, encoding off the
// caller's goroutine so the display loop is never blocked on disk.
type pngStream struct {
	dir   string
	e     *png.Encoder
	id    uint32
	scale int
	wg    sync.WaitGroup
	log   *logger.Logger
}

const videoFile = "frame_%07d.png"

type pool struct{ sync.Pool }

func pngBuf() *pool                      { return &pool{sync.Pool{New: func() any { return &png.EncoderBuffer{} }}} }
func (p *pool) Get() *png.EncoderBuffer  { return p.Pool.Get().(*png.EncoderBuffer) }
func (p *pool) Put(b *png.EncoderBuffer) { p.Pool.Put(b) }

func newPngStream(dir string, scale int, log *logger.Logger) *pngStream {
	return &pngStream{
		dir: dir,
		e: &png.Encoder{
			CompressionLevel: png.BestSpeed,
			BufferPool:       pngBuf(),
		},
		scale: scale,
		log:   log,
	}
}

func (p *pngStream) Close() error {
	p.wg.Wait()
	atomic.StoreUint32(&p.id, 0)
	return nil
}

// Write schedules one frame for encoding. The image must not be
// reused by the caller until it is done (pass a copy from the canvas).
func (p *pngStream) Write(img image.Image) {
	img = u64image.Scale(img, p.scale)
	fileName := fmt.Sprintf(videoFile, atomic.AddUint32(&p.id, 1))
	p.wg.Add(1)
	go p.saveImage(fileName, img)
}

func (p *pngStream) saveImage(fileName string, img image.Image) {
	defer p.wg.Done()
	var buf bytes.Buffer
	x, y := img.Bounds().Dx(), img.Bounds().Dy()
	buf.Grow(x * y * 4)

	if err := p.e.Encode(&buf, img); err != nil {
		p.log.Error().Err(err).Msgf("png encode of %v failed", fileName)
		return
	}
	if err := os.WriteFile(filepath.Join(p.dir, fileName), buf.Bytes(), 0644); err != nil {
		p.log.Error().Err(err).Msgf("png save of %v failed", fileName)
	}
}
