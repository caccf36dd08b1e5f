package stream

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/u64view/u64view/pkg/config"
	"github.com/u64view/u64view/pkg/logger"
	"github.com/u64view/u64view/pkg/network/socket"
)

const pollTimeout = 20 * time.Millisecond

// Stream owns the whole ingestion pipeline of one device stream pair:
// receivers -> reassemblers -> pacer, with shared stats. It is the
// explicit context object every component hangs off; several streams
// can coexist in one process (the tests run a synthetic sender and a
// receiver side by side).
type Stream struct {
	id   uuid.UUID
	conf config.Stream
	log  *logger.Logger

	stats *Stats
	video *Receiver
	audio *Receiver // nil when the audio stream is disabled
	asm   *Assembler
	ring  *AudioRing
	pacer *Pacer

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once

	audioScratch []int16
}

// New binds the stream sockets and wires the pipeline. A bind failure
// is fatal and reported here, before any processing begins.
func New(conf config.Stream, log *logger.Logger) (*Stream, error) {
	id, _ := uuid.NewV4()
	log = log.Extend(log.With().Str("stream", id.String()[:8]))

	stats := &Stats{}
	video, err := NewReceiver(conf.BindAddress, conf.VideoPort, stats, log)
	if err != nil {
		if socket.IsPortBusyError(err) {
			return nil, fmt.Errorf("video port %d is taken, another viewer running? %w", conf.VideoPort, err)
		}
		return nil, fmt.Errorf("video socket bind: %w", err)
	}
	var audio *Receiver
	if conf.Audio {
		if audio, err = NewReceiver(conf.BindAddress, conf.AudioPort, stats, log); err != nil {
			_ = video.Close()
			return nil, fmt.Errorf("audio socket bind: %w", err)
		}
	}

	s := &Stream{
		id:    id,
		conf:  conf,
		log:   log,
		stats: stats,
		video: video,
		audio: audio,
		ring:  NewAudioRing(conf.AudioBuffer, conf.DcFilter, stats),
		done:  make(chan struct{}),
	}
	s.pacer = NewPacer(conf.Lookahead, conf.Fps, conf.StallTimeout, stats, log)
	s.asm = NewAssembler(conf.Window, stats, log, s.pacer.Push)
	return s, nil
}

func (s *Stream) ID() string { return s.id.String() }

// VideoAddr is the bound video socket address.
func (s *Stream) VideoAddr() net.Addr { return s.video.LocalAddr() }

// AudioAddr is the bound audio socket address, nil when audio is off.
func (s *Stream) AudioAddr() net.Addr {
	if s.audio == nil {
		return nil
	}
	return s.audio.LocalAddr()
}

// Run starts the receive loops. The presentation side pulls frames
// through TryNextFrame and audio through ReadAudio at its own cadence.
func (s *Stream) Run() {
	s.wg.Add(1)
	go s.videoLoop()
	if s.audio != nil {
		s.wg.Add(1)
		go s.audioLoop()
	}
	s.log.Info().Msg("stream started")
}

func (s *Stream) videoLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		default:
		}
		batch, err := s.video.Poll(pollTimeout)
		for _, d := range batch {
			frag, perr := ParseFrameFragment(d.Payload)
			if perr != nil {
				s.stats.PacketsDiscarded.Add(1)
				continue
			}
			s.asm.Push(frag, d.Arrived)
		}
		if err != nil {
			return
		}
	}
}

func (s *Stream) audioLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		default:
		}
		batch, err := s.audio.Poll(pollTimeout)
		for _, d := range batch {
			if s.audioScratch == nil {
				s.audioScratch = make([]int16, 0, ChunkSampleCount)
			}
			_, pcm, perr := ParseAudioChunk(d.Payload, s.audioScratch[:0])
			if perr != nil {
				s.stats.PacketsDiscarded.Add(1)
				continue
			}
			s.ring.Write(pcm)
		}
		if err != nil {
			return
		}
	}
}

// TryNextFrame implements the pull interface for sinks: the next
// paced frame, or nothing when none is due yet.
func (s *Stream) TryNextFrame() (*CompletedFrame, bool) { return s.pacer.TryNext() }

// HeldFrame returns the last presented frame (held during stalls).
func (s *Stream) HeldFrame() *CompletedFrame { return s.pacer.Held() }

// ReadAudio fills dst with buffered samples, padding with silence.
func (s *Stream) ReadAudio(dst []int16) int { return s.ring.Read(dst) }

func (s *Stream) Stalled() bool { return s.pacer.Stalled() }

// OnState registers the pacer's stalled/recovered callback.
func (s *Stream) OnState(fn func(stalled bool)) { s.pacer.OnState(fn) }

// Stats returns the live counter set (for Prometheus registration).
func (s *Stream) Stats() *Stats { return s.stats }

// StatsSnapshot returns a consistent point-in-time view of the counters.
func (s *Stream) StatsSnapshot() Snapshot { return s.stats.Snapshot() }

// Shutdown stops polling, closes the sockets, and waits for the
// receive loops to drain. A stopped stream is not restartable; the
// caller builds a new one.
func (s *Stream) Shutdown(ctx context.Context) error {
	s.once.Do(func() {
		close(s.done)
		_ = s.video.Close()
		if s.audio != nil {
			_ = s.audio.Close()
		}
	})
	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		s.asm.Flush()
		close(finished)
	}()
	select {
	case <-finished:
		s.log.Info().Msg("stream stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Stream) String() string { return "stream::" + s.id.String()[:8] }
