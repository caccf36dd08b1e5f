package config

import (
	"fmt"
	"time"

	flag "github.com/spf13/pflag"
)

// Config is the root application configuration.
// Values come from configs/config.yaml, the U64VIEW_* environment,
// and runtime flags, in that order.
type Config struct {
	Stream     Stream
	Device     Device
	Display    Display
	Capture    Capture
	Monitoring Monitoring
	Debug      bool
}

// Stream holds the UDP ingestion parameters.
type Stream struct {
	BindAddress string `fig:"bindaddress" default:"0.0.0.0"`
	VideoPort   int    `fig:"videoport" default:"11000"`
	AudioPort   int    `fig:"audioport" default:"11001"`
	// Audio enables the second (audio) stream socket.
	Audio bool `fig:"audio" default:"true"`
	// Window is the number of in-flight frame sequence numbers retained
	// for reassembly before abandonment.
	Window int `fig:"window" default:"8"`
	// Lookahead is how many completed frames the pacer may buffer.
	Lookahead int `fig:"lookahead" default:"2"`
	// Fps overrides the nominal frame rate; 0 means derive from the
	// detected video standard (PAL/NTSC).
	Fps          float64       `fig:"fps"`
	StallTimeout time.Duration `fig:"stalltimeout" default:"2s"`
	// AudioBuffer is the audio ring capacity.
	AudioBuffer time.Duration `fig:"audiobuffer" default:"200ms"`
	// DcFilter enables the DC-blocking high-pass on audio reads.
	DcFilter bool `fig:"dcfilter" default:"true"`
}

// Device describes the Ultimate 64 on the network.
type Device struct {
	// Host is the device address; empty disables remote control.
	Host string `fig:"host"`
	// Control selects the control channel: rest or tcp.
	Control string `fig:"control" default:"rest"`
	// AutoStream starts the device streams on run and stops them on exit.
	AutoStream bool `fig:"autostream" default:"true"`
	// LocalIP is the address the device should send the streams to.
	// Detected from the control connection when empty.
	LocalIP string        `fig:"localip"`
	Timeout time.Duration `fig:"timeout" default:"5s"`
}

type Display struct {
	Scale      int  `fig:"scale" default:"2"`
	Fullscreen bool `fig:"fullscreen"`
	Headless   bool `fig:"headless"`
	// Palette points to an optional 16-entry RGB palette file,
	// hot-reloaded on change.
	Palette string `fig:"palette"`
}

type Capture struct {
	// Dir enables frame/audio capture when non-empty.
	Dir string `fig:"dir"`
	// Name is the capture session directory template,
	// e.g. "%date:20060102%-%id%".
	Name string `fig:"name" default:"%date:20060102-150405%-%id%"`
	// Scale upscales saved frames by an integer factor, 1 keeps the
	// native stream resolution.
	Scale   int     `fig:"scale" default:"1"`
	Storage Storage `fig:"storage"`
}

type Storage struct {
	// Provider selects the upload backend; none keeps captures local,
	// google uploads the finished session to a GCS bucket.
	Provider string `fig:"provider" default:"none"`
	Bucket   string `fig:"bucket"`
	// Key is a path to the service credentials file.
	Key string `fig:"key"`
}

type Monitoring struct {
	Port             int    `fig:"port" default:"6601"`
	URLPrefix        string `fig:"urlprefix"`
	MetricEnabled    bool   `fig:"metric"`
	ProfilingEnabled bool   `fig:"pprof"`
	// StatsPushEnabled exposes the /ws/stats live snapshot feed.
	StatsPushEnabled bool `fig:"statspush"`
}

func (m *Monitoring) IsEnabled() bool {
	return m.MetricEnabled || m.ProfilingEnabled || m.StatsPushEnabled
}

// allows custom config path
var configPath string

func NewConfig() (conf Config) {
	if err := LoadConfig(&conf, configPath); err != nil {
		panic(fmt.Sprintf("config load failed: %v", err))
	}
	return
}

// ParseFlags updates config values from passed runtime flags.
// Defaults are the current values, so flags override file and env.
func (c *Config) ParseFlags() {
	flag.StringVar(&c.Device.Host, "host", c.Device.Host, "Ultimate 64 address (empty disables device control)")
	flag.StringVar(&c.Stream.BindAddress, "bind", c.Stream.BindAddress, "Local bind address for the stream sockets")
	flag.IntVar(&c.Stream.VideoPort, "video-port", c.Stream.VideoPort, "Video stream UDP port")
	flag.IntVar(&c.Stream.AudioPort, "audio-port", c.Stream.AudioPort, "Audio stream UDP port")
	noAudio := flag.Bool("no-audio", !c.Stream.Audio, "Disable the audio stream")
	noAutoStream := flag.Bool("no-auto-stream", !c.Device.AutoStream, "Do not start/stop the device streams")
	flag.IntVar(&c.Display.Scale, "scale", c.Display.Scale, "Display scale factor")
	flag.BoolVar(&c.Display.Fullscreen, "fullscreen", c.Display.Fullscreen, "Fullscreen mode")
	flag.BoolVar(&c.Display.Headless, "headless", c.Display.Headless, "No GUI, log stats only")
	flag.StringVar(&c.Capture.Dir, "save-frames", c.Capture.Dir, "Save frames and audio into this directory")
	flag.IntVar(&c.Monitoring.Port, "monitoring.port", c.Monitoring.Port, "Monitoring server port")
	flag.BoolVar(&c.Debug, "v", c.Debug, "Verbose (debug) logging")
	flag.StringVar(&configPath, "conf", configPath, "Set custom configuration file path")
	flag.Parse()
	c.Stream.Audio = !*noAudio
	c.Device.AutoStream = !*noAutoStream
}
