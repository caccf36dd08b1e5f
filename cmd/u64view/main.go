package main

import (
	"context"
	"time"

	"github.com/u64view/u64view/pkg/config"
	"github.com/u64view/u64view/pkg/logger"
	"github.com/u64view/u64view/pkg/thread"
	"github.com/u64view/u64view/pkg/viewer"
)

var Version = "?"

func main() {
	thread.Wrap(run)
}

func run() {
	conf := config.NewConfig()
	conf.ParseFlags()

	log := logger.NewConsole(conf.Debug, "u64", false)
	log.Info().Msgf("version %s", Version)
	if conf.Debug {
		log.Debug().Msgf("config: %+v", conf)
	}

	v, err := viewer.New(conf, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init failed")
	}
	if err := v.Start(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	if err := v.Run(); err != nil {
		log.Error().Err(err).Send()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := v.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("service shutdown errors")
	}
}
