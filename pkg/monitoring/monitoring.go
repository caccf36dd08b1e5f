// Package monitoring serves local diagnostics: Prometheus metrics,
// pprof, and a live stats push over a websocket.
package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/u64view/u64view/pkg/config"
	"github.com/u64view/u64view/pkg/logger"
	"github.com/u64view/u64view/pkg/network/httpx"
	"github.com/u64view/u64view/pkg/stream"
)

type Monitoring struct {
	conf   config.Monitoring
	server *httpx.Server
	feed   *statsFeed
	log    *logger.Logger
}

// New creates the monitoring service. The snapshot param feeds the
// /ws/stats push channel.
func New(conf config.Monitoring, snapshot func() stream.Snapshot, log *logger.Logger) *Monitoring {
	m := &Monitoring{conf: conf, log: log}
	m.server = httpx.NewServer(
		fmt.Sprintf(":%d", conf.Port),
		func(*httpx.Server) http.Handler {
			h := http.NewServeMux()

			if conf.ProfilingEnabled {
				prefix := conf.URLPrefix + "/debug/pprof"
				log.Info().Msgf("profiling enabled at :%d%s", conf.Port, prefix)
				h.HandleFunc(prefix+"/", pprof.Index)
				h.HandleFunc(prefix+"/cmdline", pprof.Cmdline)
				h.HandleFunc(prefix+"/profile", pprof.Profile)
				h.HandleFunc(prefix+"/symbol", pprof.Symbol)
				h.HandleFunc(prefix+"/trace", pprof.Trace)
				h.Handle(prefix+"/allocs", pprof.Handler("allocs"))
				h.Handle(prefix+"/block", pprof.Handler("block"))
				h.Handle(prefix+"/goroutine", pprof.Handler("goroutine"))
				h.Handle(prefix+"/heap", pprof.Handler("heap"))
				h.Handle(prefix+"/mutex", pprof.Handler("mutex"))
				h.Handle(prefix+"/threadcreate", pprof.Handler("threadcreate"))
			}

			if conf.MetricEnabled {
				metricPath := conf.URLPrefix + "/metrics"
				log.Info().Msgf("prometheus metrics enabled at :%d%s", conf.Port, metricPath)
				h.Handle(metricPath, promhttp.Handler())
			}

			if conf.StatsPushEnabled {
				m.feed = newStatsFeed(snapshot, log)
				h.HandleFunc(conf.URLPrefix+"/ws/stats", m.feed.handle)
			}

			return h
		},
		log,
	)
	return m
}

func (m *Monitoring) Run() {
	m.log.Info().Msgf("starting monitoring server at %v", m.server.Addr)
	if m.feed != nil {
		m.feed.run()
	}
	m.server.Run()
}

func (m *Monitoring) Shutdown(ctx context.Context) error {
	if m.feed != nil {
		m.feed.stop()
	}
	return m.server.Shutdown(ctx)
}

func (m *Monitoring) String() string {
	return fmt.Sprintf("monitoring::%s:%d", m.conf.URLPrefix, m.conf.Port)
}
