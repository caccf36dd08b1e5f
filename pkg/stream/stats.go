package stream

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats holds the process-wide stream counters. Producers increment
// atomically at any stage; readers take consistent-enough snapshots
// without blocking anyone.
type Stats struct {
	PacketsReceived    atomic.Uint64
	PacketsDiscarded   atomic.Uint64
	FragmentsLate      atomic.Uint64
	FragmentsDuplicate atomic.Uint64
	FramesCompleted    atomic.Uint64
	FramesIncomplete   atomic.Uint64 // abandoned in the reassembly window
	FramesExcess       atomic.Uint64 // dropped by the pacer above lookahead
	AudioChunks        atomic.Uint64
	AudioUnderruns     atomic.Uint64
	AudioOverruns      atomic.Uint64
	Stalls             atomic.Uint64
	QueueDepth         atomic.Int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	PacketsReceived    uint64    `json:"packets_received"`
	PacketsDiscarded   uint64    `json:"packets_discarded"`
	FragmentsLate      uint64    `json:"fragments_late"`
	FragmentsDuplicate uint64    `json:"fragments_duplicate"`
	FramesCompleted    uint64    `json:"frames_completed"`
	FramesIncomplete   uint64    `json:"frames_incomplete"`
	FramesExcess       uint64    `json:"frames_excess"`
	AudioChunks        uint64    `json:"audio_chunks"`
	AudioUnderruns     uint64    `json:"audio_underruns"`
	AudioOverruns      uint64    `json:"audio_overruns"`
	Stalls             uint64    `json:"stalls"`
	QueueDepth         int64     `json:"queue_depth"`
	Taken              time.Time `json:"taken"`
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		PacketsReceived:    s.PacketsReceived.Load(),
		PacketsDiscarded:   s.PacketsDiscarded.Load(),
		FragmentsLate:      s.FragmentsLate.Load(),
		FragmentsDuplicate: s.FragmentsDuplicate.Load(),
		FramesCompleted:    s.FramesCompleted.Load(),
		FramesIncomplete:   s.FramesIncomplete.Load(),
		FramesExcess:       s.FramesExcess.Load(),
		AudioChunks:        s.AudioChunks.Load(),
		AudioUnderruns:     s.AudioUnderruns.Load(),
		AudioOverruns:      s.AudioOverruns.Load(),
		Stalls:             s.Stalls.Load(),
		QueueDepth:         s.QueueDepth.Load(),
		Taken:              time.Now(),
	}
}

type statsCollector struct {
	stats *Stats

	packetsReceived    *prometheus.Desc
	packetsDiscarded   *prometheus.Desc
	fragmentsLate      *prometheus.Desc
	fragmentsDuplicate *prometheus.Desc
	framesCompleted    *prometheus.Desc
	framesIncomplete   *prometheus.Desc
	framesExcess       *prometheus.Desc
	audioChunks        *prometheus.Desc
	audioUnderruns     *prometheus.Desc
	audioOverruns      *prometheus.Desc
	stalls             *prometheus.Desc
	queueDepth         *prometheus.Desc
}

// NewCollector exposes the counters to Prometheus without copying
// them into separate metric objects.
func NewCollector(s *Stats) prometheus.Collector {
	d := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("u64view_"+name, help, nil, nil)
	}
	return &statsCollector{
		stats:              s,
		packetsReceived:    d("packets_received_total", "Datagrams received on all stream sockets"),
		packetsDiscarded:   d("packets_discarded_total", "Malformed or zero-length datagrams dropped"),
		fragmentsLate:      d("fragments_late_total", "Fragments behind the reassembly window"),
		fragmentsDuplicate: d("fragments_duplicate_total", "Fragments received more than once"),
		framesCompleted:    d("frames_completed_total", "Fully reassembled video frames"),
		framesIncomplete:   d("frames_incomplete_total", "Frames abandoned with missing fragments"),
		framesExcess:       d("frames_excess_total", "Completed frames dropped above the lookahead depth"),
		audioChunks:        d("audio_chunks_total", "Audio datagrams written to the ring"),
		audioUnderruns:     d("audio_underruns_total", "Audio reads padded with silence"),
		audioOverruns:      d("audio_overruns_total", "Audio writes that overwrote unread samples"),
		stalls:             d("stalls_total", "Presentation stalls (no frame within the timeout)"),
		queueDepth:         d("queue_depth", "Completed frames currently buffered by the pacer"),
	}
}

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	s := c.stats
	counter(c.packetsReceived, s.PacketsReceived.Load())
	counter(c.packetsDiscarded, s.PacketsDiscarded.Load())
	counter(c.fragmentsLate, s.FragmentsLate.Load())
	counter(c.fragmentsDuplicate, s.FragmentsDuplicate.Load())
	counter(c.framesCompleted, s.FramesCompleted.Load())
	counter(c.framesIncomplete, s.FramesIncomplete.Load())
	counter(c.framesExcess, s.FramesExcess.Load())
	counter(c.audioChunks, s.AudioChunks.Load())
	counter(c.audioUnderruns, s.AudioUnderruns.Load())
	counter(c.audioOverruns, s.AudioOverruns.Load())
	counter(c.stalls, s.Stalls.Load())
	ch <- prometheus.MustNewConstMetric(c.queueDepth, prometheus.GaugeValue, float64(s.QueueDepth.Load()))
}
