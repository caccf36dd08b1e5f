// Package service manages the lifecycle of the application's
// long-running parts.
package service

import (
	"context"
	"errors"
	"fmt"
)

// Service is anything with a non-blocking start and a graceful stop.
type Service interface {
	fmt.Stringer

	Run()
	Shutdown(ctx context.Context) error
}

// Group starts services in order and stops them in reverse.
type Group struct {
	list []Service
}

func (g *Group) Add(services ...Service) { g.list = append(g.list, services...) }

func (g *Group) Start() {
	for _, s := range g.list {
		s.Run()
	}
}

func (g *Group) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(g.list) - 1; i >= 0; i-- {
		s := g.list[i]
		if err := s.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, fmt.Errorf("stop %s: %w", s, err))
		}
	}
	return errors.Join(errs...)
}
