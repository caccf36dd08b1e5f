// Package recorder captures the presented stream as numbered PNG
// frames plus a WAV audio track, one directory per session.
package recorder

import (
	"image"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/u64view/u64view/pkg/logger"
	oss "github.com/u64view/u64view/pkg/os"
)

type Options struct {
	Dir       string
	Name      string // session dir template, e.g. "%date:20060102%-%id%"
	Frequency int    // audio sample rate
	Scale     int    // integer upscale of saved frames, <=1 keeps native size
}

// naming template tags
var (
	reDate = regexp.MustCompile(`%date:(.*?)%`)
	reID   = regexp.MustCompile(`%id%`)
)

type Recording struct {
	sync.Mutex

	enabled bool

	audio *wavStream
	video *pngStream

	dir     string
	saveDir string
	opts    Options
	lock    *oss.Flock
	log     *logger.Logger
}

// NewRecording prepares a recorder rooted at opts.Dir; nothing is
// written until Start.
func NewRecording(opts Options, log *logger.Logger) *Recording {
	savePath, err := filepath.Abs(opts.Dir)
	if err != nil {
		log.Error().Err(err).Send()
	}
	if err := oss.CheckCreateDir(savePath); err != nil {
		log.Error().Err(err).Send()
	}
	return &Recording{dir: savePath, opts: opts, log: log}
}

// Start opens a new capture session named after the template with the
// given stream id. The session directory is flock-guarded so two
// viewers can't interleave captures in one tree.
func (r *Recording) Start(id string) error {
	r.Lock()
	defer r.Unlock()

	r.saveDir = parseName(r.opts.Name, id)
	path := filepath.Join(r.dir, r.saveDir)
	r.log.Info().Msgf("capture path is [%v]", path)

	if err := oss.CheckCreateDir(path); err != nil {
		return err
	}
	lock, err := oss.NewFileLock(filepath.Join(path, ".lock"))
	if err != nil {
		return err
	}
	if err := lock.Lock(); err != nil {
		return err
	}
	r.lock = lock

	audio, err := newWavStream(path, r.opts.Frequency)
	if err != nil {
		return err
	}
	r.audio = audio
	r.video = newPngStream(path, r.opts.Scale, r.log)
	r.enabled = true
	return nil
}

// Stop finalizes the WAV header, waits out pending PNG encodes, and
// returns the finished session directory.
func (r *Recording) Stop() (path string, err error) {
	r.Lock()
	defer r.Unlock()
	if !r.enabled {
		return "", nil
	}
	r.enabled = false
	if r.audio != nil {
		err = r.audio.Close()
	}
	if r.video != nil {
		if verr := r.video.Close(); err == nil {
			err = verr
		}
	}
	if r.lock != nil {
		_ = r.lock.Unlock()
	}
	return filepath.Join(r.dir, r.saveDir), err
}

// Enabled is safe on a nil receiver so sinks can tee captures
// unconditionally.
func (r *Recording) Enabled() bool {
	if r == nil {
		return false
	}
	r.Lock()
	defer r.Unlock()
	return r.enabled
}

func (r *Recording) WriteVideo(img image.Image) {
	if r == nil {
		return
	}
	r.Lock()
	v, on := r.video, r.enabled
	r.Unlock()
	if on {
		v.Write(img)
	}
}

func (r *Recording) WriteAudio(pcm []int16) {
	if r == nil {
		return
	}
	r.Lock()
	a, on := r.audio, r.enabled
	r.Unlock()
	if on {
		a.Write(pcm)
	}
}

func parseName(name, id string) (out string) {
	out = name
	if d := reDate.FindStringSubmatch(out); d != nil {
		out = reDate.ReplaceAllString(out, time.Now().Format(d[1]))
	}
	out = reID.ReplaceAllString(out, id)
	if out == "" {
		out = id
	}
	return
}
