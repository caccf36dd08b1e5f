// Package viewer assembles the application: stream pipeline, device
// control, capture, monitoring, and the chosen sink.
package viewer

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/u64view/u64view/pkg/config"
	"github.com/u64view/u64view/pkg/device"
	u64image "github.com/u64view/u64view/pkg/image"
	"github.com/u64view/u64view/pkg/logger"
	"github.com/u64view/u64view/pkg/monitoring"
	oss "github.com/u64view/u64view/pkg/os"
	"github.com/u64view/u64view/pkg/recorder"
	"github.com/u64view/u64view/pkg/service"
	"github.com/u64view/u64view/pkg/sink"
	"github.com/u64view/u64view/pkg/storage"
	"github.com/u64view/u64view/pkg/stream"
	"github.com/u64view/u64view/pkg/thread"
)

type Viewer struct {
	conf config.Config
	log  *logger.Logger

	services service.Group
	stream   *stream.Stream
	canvas   *u64image.Canvas
	control  *device.Control
	rec      *recorder.Recording
	store    storage.CloudStorage
	view     *sink.SDL
}

func New(conf config.Config, log *logger.Logger) (*Viewer, error) {
	v := &Viewer{conf: conf, log: log}

	s, err := stream.New(conf.Stream, log)
	if err != nil {
		return nil, err
	}
	v.stream = s
	v.services.Add(s)
	s.OnState(func(stalled bool) {
		if stalled {
			log.Warn().Msg("stream stalled, holding the last frame")
		} else {
			log.Info().Msg("stream recovered")
		}
	})

	if conf.Monitoring.MetricEnabled {
		prometheus.MustRegister(stream.NewCollector(s.Stats()))
	}
	if conf.Monitoring.IsEnabled() {
		v.services.Add(monitoring.New(conf.Monitoring, s.StatsSnapshot, log))
	}

	pal := u64image.DefaultPalette()
	if conf.Display.Palette != "" {
		watcher, err := u64image.NewPaletteWatcher(conf.Display.Palette, pal, log)
		if err != nil {
			log.Warn().Err(err).Msgf("palette file [%v] not usable, using the built-in colors", conf.Display.Palette)
		} else {
			v.services.Add(watcher)
		}
	}
	v.canvas = u64image.NewCanvas(stream.PixelsPerLine, stream.PALHeight, pal)

	if conf.Capture.Dir != "" {
		v.rec = recorder.NewRecording(recorder.Options{
			Dir:       conf.Capture.Dir,
			Name:      conf.Capture.Name,
			Frequency: stream.AudioSampleRate,
			Scale:     conf.Capture.Scale,
		}, log)
		if v.store, err = storage.GetCloudStorage(conf.Capture.Storage); err != nil {
			return nil, err
		}
	}

	if conf.Device.Host != "" {
		v.control = device.New(conf.Device, log)
	}

	if conf.Display.Headless {
		v.services.Add(sink.NewHeadless(s, v.canvas, v.rec, log))
	}
	return v, nil
}

// Start begins capture, runs the services, and switches the device
// streams on.
func (v *Viewer) Start() error {
	if v.rec != nil {
		if err := v.rec.Start(v.stream.ID()[:8]); err != nil {
			return fmt.Errorf("capture start: %w", err)
		}
	}
	v.services.Start()
	v.startDeviceStreams()
	return nil
}

// startDeviceStreams switches the device on. Failures are logged, not
// fatal: the device may already be streaming, or someone else drives it.
func (v *Viewer) startDeviceStreams() {
	if v.control == nil || !v.conf.Device.AutoStream {
		return
	}
	ip, err := v.control.LocalIP()
	if err != nil {
		v.log.Warn().Err(err).Msg("local address detection failed, not starting device streams")
		return
	}
	dest := fmt.Sprintf("%s:%d", ip, v.conf.Stream.VideoPort)
	if err := v.control.StartStream(device.StreamVideo, dest); err != nil {
		v.log.Warn().Err(err).Msg("device video start failed")
	} else {
		v.log.Info().Msgf("device video stream -> %v", dest)
	}
	if v.conf.Stream.Audio {
		dest = fmt.Sprintf("%s:%d", ip, v.conf.Stream.AudioPort)
		if err := v.control.StartStream(device.StreamAudio, dest); err != nil {
			v.log.Warn().Err(err).Msg("device audio start failed")
		} else {
			v.log.Info().Msgf("device audio stream -> %v", dest)
		}
	}
}

// Run blocks until termination: the window loop in windowed mode, a
// signal in headless mode.
func (v *Viewer) Run() error {
	if v.conf.Display.Headless {
		<-oss.ExpectTermination()
		return nil
	}

	var err error
	thread.Main(func() {
		v.view, err = sink.NewSDL(v.stream, v.canvas, v.rec, v.conf.Display, v.log)
	})
	if err != nil {
		return fmt.Errorf("display init: %w", err)
	}
	go func() {
		<-oss.ExpectTermination()
		v.view.Stop()
	}()
	thread.Main(v.view.Loop)
	thread.Main(v.view.Deinit)
	return nil
}

func (v *Viewer) Shutdown(ctx context.Context) error {
	if v.control != nil && v.conf.Device.AutoStream {
		if err := v.control.StopStream(device.StreamVideo); err != nil {
			v.log.Error().Err(err).Msg("device video stop failed")
		}
		if v.conf.Stream.Audio {
			if err := v.control.StopStream(device.StreamAudio); err != nil {
				v.log.Error().Err(err).Msg("device audio stop failed")
			}
		}
	}

	err := v.services.Shutdown(ctx)

	if v.rec != nil {
		path, rerr := v.rec.Stop()
		if rerr != nil {
			v.log.Error().Err(rerr).Msg("capture finalize failed")
		} else if path != "" {
			v.log.Info().Msgf("capture saved to [%v]", path)
			if uerr := storage.UploadDir(v.store, path); uerr != nil {
				v.log.Error().Err(uerr).Msg("capture upload failed")
			}
		}
	}
	return err
}
