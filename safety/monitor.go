// Package safety implements the independent safety monitor of spec.md §4.4:
// it observes a car's shared state region, enforces invariants, and latches
// an irreversible emergency mode on any anomaly.
package safety

import (
	"fmt"
	"os"
	"time"

	"elevsys/carstate"
	"elevsys/wire"

	"github.com/rs/zerolog"
)

// Monitor runs the check sequence against one car's shared region.
type Monitor struct {
	region *carstate.Region
	log    zerolog.Logger
}

// New creates a monitor bound to an already-opened region.
func New(region *carstate.Region, log zerolog.Logger) *Monitor {
	return &Monitor{region: region, log: log}
}

// Run loops forever: wait for a broadcast, run the check sequence under
// lock, repeat. It only returns if stop is closed.
func (m *Monitor) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		v := m.waitForChange(stop)
		if v == nil {
			return
		}
		m.check(*v)
	}
}

// waitForChange blocks on the region's condition variable and returns the
// fresh snapshot, or nil if stop fired first. A failure to wait escalates to
// emergency and backs off briefly before retrying, per spec.md §4.4.
func (m *Monitor) waitForChange(stop <-chan struct{}) *carstate.View {
	done := make(chan carstate.View, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.escalate("Condition wait failed in safety system.")
				time.Sleep(time.Second)
				done <- m.region.Read()
			}
		}()
		done <- m.region.Wait()
	}()

	select {
	case v := <-done:
		return &v
	case <-stop:
		return nil
	}
}

// check runs the ordered sequence from spec.md §4.4 against one snapshot
// and commits any resulting shared-state writes.
func (m *Monitor) check(v carstate.View) {
	// 1. Heartbeat refresh.
	if v.SafetySystem != 1 {
		m.region.SetSafetySystem(1)
	}

	// 2. Obstruction handling: reopen on obstruction during close.
	if v.DoorObstruction && v.Status == wire.Closing {
		m.region.CompareAndSetStatus(wire.Closing, wire.Opening)
	}

	// Steps 3-5 gate on the shared emergency_mode field, not a private
	// flag: a controller can latch emergency on its own (a stale
	// heartbeat) without this monitor ever calling latch itself, and the
	// next check must still see it.
	inEmergency := v.EmergencyMode

	// 3. Emergency stop.
	if v.Raw.EmergencyStop != 0 && !inEmergency {
		m.announce("The emergency stop button has been pressed!")
		m.latch()
		inEmergency = true
		m.region.SetEmergencyStop(false)
	}

	// 4. Overload.
	if v.Raw.Overload != 0 && !inEmergency {
		m.announce("The overload sensor has been tripped!")
		m.latch()
		inEmergency = true
	}

	// 5. Consistency — skipped once latched: the state is intentionally
	// frozen and no longer drives safety decisions.
	if !inEmergency {
		if violation, ok := carstate.Check(v); !ok {
			m.log.Warn().Str("violation", string(violation)).Msg("data consistency error")
			m.announce("Data consistency error!")
			m.latch()
		}
	}
}

// latch sets emergency_mode. It is idempotent and, per spec.md §3, never
// reversed within this process's lifetime.
func (m *Monitor) latch() {
	m.region.SetEmergencyMode()
}

// announce writes the exact diagnostic text spec.md §4.4 mandates to
// stderr, in addition to structured logging, since the text itself is part
// of the external contract (spec.md §8 scenarios 4/5).
func (m *Monitor) announce(text string) {
	fmt.Fprintln(os.Stderr, text)
}

func (m *Monitor) escalate(text string) {
	fmt.Fprintln(os.Stderr, text)
	m.latch()
}
