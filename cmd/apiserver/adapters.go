package main

import (
	"context"
	"time"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/application/analysis"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/infrastructure/cache/memory"
)

// Readiness checker adapters for the health handler.

// cacheChecker verifies the result cache accepts a round trip.
type cacheChecker struct {
	cache *memory.Cache
}

func (c *cacheChecker) Name() string { return "cache" }

func (c *cacheChecker) Check(ctx context.Context) error {
	if err := c.cache.Set(ctx, "readiness-probe", []byte("ok"), time.Minute); err != nil {
		return err
	}
	_, err := c.cache.Get(ctx, "readiness-probe")
	return err
}

// thresholdsChecker verifies the decision-constant table in effect is valid.
type thresholdsChecker struct {
	svc analysis.Service
}

func (c *thresholdsChecker) Name() string { return "thresholds" }

func (c *thresholdsChecker) Check(context.Context) error {
	t := c.svc.Thresholds()
	return t.Validate()
}
