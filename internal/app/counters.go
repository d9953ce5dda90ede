package app

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/example/citysync/internal/ports/primary"
	"github.com/example/citysync/internal/ports/secondary"
)

// Counters holds the live figures of one run.
// Probe goroutines and the status endpoint touch them concurrently, so every
// field is atomic; everything else in a run is owned by the scheduling goroutine.
type Counters struct {
	start time.Time

	Checked         atomic.Int64
	Matched         atomic.Int64
	Exhausted       atomic.Int64
	Queued          atomic.Int64
	Updated         atomic.Int64
	CityChanged     atomic.Int64
	Batches         atomic.Int64
	UsersWithErrors atomic.Int64

	Probes          atomic.Int64
	ProbeErrors     atomic.Int64
	RateLimited     atomic.Int64
	NotFound        atomic.Int64
	Forbidden       atomic.Int64
	Timeouts        atomic.Int64
	TransportErrors atomic.Int64
	Cancelled       atomic.Int64
}

// NewCounters creates counters whose elapsed time starts at start.
func NewCounters(start time.Time) *Counters {
	return &Counters{start: start}
}

// probeErrorKind names the bucket a failed probe is counted in.
type probeErrorKind string

const (
	kindRateLimited probeErrorKind = "rate_limited"
	kindNotFound    probeErrorKind = "not_found"
	kindForbidden   probeErrorKind = "forbidden"
	kindTimeout     probeErrorKind = "timeout"
	kindTransport   probeErrorKind = "transport"
)

func classifyProbeError(err error) probeErrorKind {
	switch {
	case errors.Is(err, secondary.ErrRateLimited):
		return kindRateLimited
	case errors.Is(err, secondary.ErrNotFound):
		return kindNotFound
	case errors.Is(err, secondary.ErrForbidden):
		return kindForbidden
	case errors.Is(err, context.DeadlineExceeded):
		return kindTimeout
	}
	return kindTransport
}

func (c *Counters) recordProbeError(kind probeErrorKind) {
	c.ProbeErrors.Add(1)
	switch kind {
	case kindRateLimited:
		c.RateLimited.Add(1)
	case kindNotFound:
		c.NotFound.Add(1)
	case kindForbidden:
		c.Forbidden.Add(1)
	case kindTimeout:
		c.Timeouts.Add(1)
	default:
		c.TransportErrors.Add(1)
	}
}

// Snapshot copies the counters into the port type.
func (c *Counters) Snapshot(now time.Time) primary.Counters {
	return primary.Counters{
		Checked:         c.Checked.Load(),
		Matched:         c.Matched.Load(),
		Exhausted:       c.Exhausted.Load(),
		Queued:          c.Queued.Load(),
		Updated:         c.Updated.Load(),
		CityChanged:     c.CityChanged.Load(),
		Batches:         c.Batches.Load(),
		UsersWithErrors: c.UsersWithErrors.Load(),
		Probes:          c.Probes.Load(),
		ProbeErrors:     c.ProbeErrors.Load(),
		RateLimited:     c.RateLimited.Load(),
		NotFound:        c.NotFound.Load(),
		Forbidden:       c.Forbidden.Load(),
		Timeouts:        c.Timeouts.Load(),
		TransportErrors: c.TransportErrors.Load(),
		Cancelled:       c.Cancelled.Load(),
		Elapsed:         now.Sub(c.start),
	}
}
