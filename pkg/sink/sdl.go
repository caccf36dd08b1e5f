package sink

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/u64view/u64view/pkg/config"
	u64image "github.com/u64view/u64view/pkg/image"
	"github.com/u64view/u64view/pkg/logger"
	"github.com/u64view/u64view/pkg/recorder"
	"github.com/u64view/u64view/pkg/stream"
)

// SDL presents the stream in a window with queued audio playback.
// Loop must run on the thread that called NewSDL; on macOS that has
// to be the main one.
type SDL struct {
	src    Source
	canvas *u64image.Canvas
	rec    *recorder.Recording
	log    *logger.Logger

	win *sdl.Window
	ren *sdl.Renderer
	tex *sdl.Texture
	dev sdl.AudioDeviceID

	w, h  int
	scale int

	fullscreen bool
	muted      bool
	stop       atomic.Bool

	pcm      []int16
	pcmBytes []byte
}

func NewSDL(src Source, canvas *u64image.Canvas, rec *recorder.Recording, conf config.Display, log *logger.Logger) (*SDL, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("sdl: %w", err)
	}

	scale := conf.Scale
	if scale < 1 {
		scale = 1
	}
	w, h := stream.PixelsPerLine, stream.PALHeight

	var flags uint32 = sdl.WINDOW_SHOWN | sdl.WINDOW_RESIZABLE
	if conf.Fullscreen {
		flags |= sdl.WINDOW_FULLSCREEN_DESKTOP
	}
	win, err := sdl.CreateWindow("u64view",
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(w*scale), int32(h*scale), flags)
	if err != nil {
		return nil, fmt.Errorf("window: %w", err)
	}

	ren, err := sdl.CreateRenderer(win, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		err1 := win.Destroy()
		if err1 != nil {
			err = fmt.Errorf("%w, destroy err: %v", err, err1)
		}
		return nil, fmt.Errorf("renderer: %w", err)
	}
	_ = ren.SetLogicalSize(int32(w), int32(h))

	s := &SDL{
		src:        src,
		canvas:     canvas,
		rec:        rec,
		log:        log,
		win:        win,
		ren:        ren,
		w:          w,
		h:          h,
		scale:      scale,
		fullscreen: conf.Fullscreen,
		pcm:        make([]int16, audioBatch),
		pcmBytes:   make([]byte, audioBatch*2),
	}

	want := sdl.AudioSpec{
		Freq:     stream.AudioSampleRate,
		Format:   sdl.AUDIO_S16LSB,
		Channels: stream.AudioChannels,
		Samples:  1024,
	}
	dev, err := sdl.OpenAudioDevice("", false, &want, nil, 0)
	if err != nil {
		// Video still works on boxes without an audio device.
		log.Warn().Err(err).Msg("audio device unavailable, playback disabled")
	} else {
		s.dev = dev
		sdl.PauseAudioDevice(dev, false)
	}
	return s, nil
}

// Loop runs until the window is closed, a quit key is pressed, or
// Stop is called. It owns the pull cadence: the pacer decides when a
// frame is due, Loop just asks often enough.
func (s *SDL) Loop() {
	for !s.stop.Load() {
		if s.handleEvents() {
			return
		}
		if frame, ok := s.src.TryNextFrame(); ok {
			s.present(frame)
		}
		s.refillAudio()
		sdl.Delay(2)
	}
}

// Stop requests loop exit from another goroutine, typically the
// signal handler.
func (s *SDL) Stop() { s.stop.Store(true) }

func (s *SDL) handleEvents() (quit bool) {
	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		switch e := ev.(type) {
		case *sdl.QuitEvent:
			return true
		case *sdl.KeyboardEvent:
			if e.Type != sdl.KEYDOWN {
				continue
			}
			switch e.Keysym.Sym {
			case sdl.K_ESCAPE, sdl.K_q:
				return true
			case sdl.K_f:
				s.toggleFullscreen()
			case sdl.K_m:
				s.muted = !s.muted
				s.log.Info().Bool("muted", s.muted).Msg("audio")
			}
		}
	}
	return false
}

func (s *SDL) toggleFullscreen() {
	s.fullscreen = !s.fullscreen
	var mode uint32
	if s.fullscreen {
		mode = sdl.WINDOW_FULLSCREEN_DESKTOP
	}
	if err := s.win.SetFullscreen(mode); err != nil {
		s.log.Error().Err(err).Msg("fullscreen toggle failed")
	}
}

func (s *SDL) present(frame *stream.CompletedFrame) {
	if s.tex == nil || frame.Height != s.h {
		s.resize(frame.Width, frame.Height)
	}
	img := s.canvas.Draw(frame)
	_ = s.tex.Update(nil, unsafe.Pointer(&img.Pix[0]), img.Stride)
	_ = s.ren.Clear()
	_ = s.ren.Copy(s.tex, nil, nil)
	s.ren.Present()
	if s.rec.Enabled() {
		s.rec.WriteVideo(img.Copy())
	}
	s.canvas.Put(img)
}

// resize follows the detected standard: the first completed frame
// tells us whether the device sends PAL or NTSC geometry.
func (s *SDL) resize(w, h int) {
	if s.tex != nil {
		_ = s.tex.Destroy()
	}
	tex, err := s.ren.CreateTexture(sdl.PIXELFORMAT_ABGR8888, sdl.TEXTUREACCESS_STREAMING, int32(w), int32(h))
	if err != nil {
		s.log.Fatal().Err(err).Msg("texture allocation failed")
	}
	s.tex = tex
	s.w, s.h = w, h
	_ = s.ren.SetLogicalSize(int32(w), int32(h))
	if !s.fullscreen {
		s.win.SetSize(int32(w*s.scale), int32(h*s.scale))
	}
}

// refillAudio keeps roughly two batches queued on the device. The
// ring is drained even while muted so latency stays put.
func (s *SDL) refillAudio() {
	if s.dev == 0 {
		return
	}
	for sdl.GetQueuedAudioSize(s.dev) < uint32(len(s.pcmBytes))*2 {
		s.src.ReadAudio(s.pcm)
		if s.rec.Enabled() {
			s.rec.WriteAudio(s.pcm)
		}
		if s.muted {
			return
		}
		for i, v := range s.pcm {
			binary.LittleEndian.PutUint16(s.pcmBytes[i*2:], uint16(v))
		}
		if err := sdl.QueueAudio(s.dev, s.pcmBytes); err != nil {
			s.log.Debug().Err(err).Msg("audio queue")
			return
		}
	}
}

// Deinit releases SDL resources. Call after Loop returns, on the
// same thread.
func (s *SDL) Deinit() {
	if s.dev != 0 {
		sdl.CloseAudioDevice(s.dev)
	}
	if s.tex != nil {
		_ = s.tex.Destroy()
	}
	_ = s.ren.Destroy()
	_ = s.win.Destroy()
	sdl.Quit()
	// give the window server a beat to tear down
	time.Sleep(10 * time.Millisecond)
}
