// Package carctl implements the per-car controller of spec.md §4.5: a
// door/motion state machine driven against real time, cooperating with an
// independent safety monitor over the shared car-state region and with the
// central dispatcher over a long-lived TCP connection.
package carctl

import (
	"context"
	"net"
	"sync"
	"time"

	"elevsys/carstate"
	"elevsys/floor"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Controller owns one car's shared region plus its dispatcher link. Lock
// order is fixed globally per spec.md §5: the region's own mutex (internal
// to carstate.Region) is always acquired before connMu, and connMu is never
// held across a region wait.
type Controller struct {
	Name   string
	Lo, Hi floor.Floor

	region *Region
	tick   time.Duration
	dialer Dialer

	connMu sync.Mutex
	conn   net.Conn

	destChanged atomicBool

	// mode-transition edge detection, owned exclusively by operationsTask.
	wasIndividualService bool
	wasEmergency         bool
	lastHeartbeatAdvance time.Time

	log zerolog.Logger
}

// Region aliases carstate.Region for brevity within this package.
type Region = carstate.Region

// Dialer opens the dispatcher connection. Production code dials TCP with an
// IPv4-then-IPv6 fallback (see dial.go); this package's tests pass a nil
// Dialer and never reach the dial path.
type Dialer func(ctx context.Context) (net.Conn, error)

// New constructs a controller for one car.
func New(name string, lo, hi floor.Floor, tick time.Duration, region *Region, dialer Dialer, log zerolog.Logger) *Controller {
	return &Controller{
		Name:   name,
		Lo:     lo,
		Hi:     hi,
		region: region,
		tick:   tick,
		dialer: dialer,
		log:    log,
	}
}

// Run starts the dispatcher task and the operations task and blocks until
// ctx is cancelled or either task returns an error.
func (c *Controller) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.dispatcherTask(ctx) })
	g.Go(func() error { return c.operationsTask(ctx) })
	return g.Wait()
}

type atomicBool struct {
	mu sync.Mutex
	v  bool
}

func (b *atomicBool) Set(v bool) {
	b.mu.Lock()
	b.v = v
	b.mu.Unlock()
}

func (b *atomicBool) Swap(v bool) bool {
	b.mu.Lock()
	old := b.v
	b.v = v
	b.mu.Unlock()
	return old
}

func (b *atomicBool) Get() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.v
}
