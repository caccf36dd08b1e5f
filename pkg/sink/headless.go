package sink

import (
	"context"
	"sync"
	"time"

	u64image "github.com/u64view/u64view/pkg/image"
	"github.com/u64view/u64view/pkg/logger"
	"github.com/u64view/u64view/pkg/recorder"
)

// Headless drains the stream without a window: frames are decoded
// only when a capture session wants them, audio is pulled at the
// nominal rate to keep the ring from overrunning, and a stats line is
// logged once a second.
type Headless struct {
	src    Source
	canvas *u64image.Canvas
	rec    *recorder.Recording
	log    *logger.Logger

	done chan struct{}
	wg   sync.WaitGroup
}

func NewHeadless(src Source, canvas *u64image.Canvas, rec *recorder.Recording, log *logger.Logger) *Headless {
	return &Headless{
		src:    src,
		canvas: canvas,
		rec:    rec,
		log:    log,
		done:   make(chan struct{}),
	}
}

func (h *Headless) Run() {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.loop()
	}()
}

func (h *Headless) loop() {
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()
	report := time.NewTicker(time.Second)
	defer report.Stop()

	pcm := make([]int16, audioBatch)
	nextAudio := time.Now()

	for {
		select {
		case <-h.done:
			return
		case <-report.C:
			s := h.src.StatsSnapshot()
			h.log.Info().
				Uint64("frames", s.FramesCompleted).
				Uint64("incomplete", s.FramesIncomplete).
				Uint64("packets", s.PacketsReceived).
				Uint64("late", s.FragmentsLate).
				Uint64("underruns", s.AudioUnderruns).
				Bool("stalled", h.src.Stalled()).
				Msg("stream")
		case now := <-tick.C:
			if frame, ok := h.src.TryNextFrame(); ok && h.rec.Enabled() {
				img := h.canvas.Draw(frame)
				h.rec.WriteVideo(img.Copy())
				h.canvas.Put(img)
			}
			// Audio is drained on its own cadence so the ring stays
			// near its target latency even with no playback device.
			for !now.Before(nextAudio) {
				h.src.ReadAudio(pcm)
				if h.rec.Enabled() {
					h.rec.WriteAudio(pcm)
				}
				nextAudio = nextAudio.Add(20 * time.Millisecond)
			}
		}
	}
}

func (h *Headless) Shutdown(ctx context.Context) error {
	close(h.done)
	fin := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(fin)
	}()
	select {
	case <-fin:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (h *Headless) String() string { return "sink::headless" }
