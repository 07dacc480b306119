package safety

import (
	"testing"

	"elevsys/carstate"
	"elevsys/wire"

	"github.com/rs/zerolog"
)

func newTestRegion(t *testing.T) *carstate.Region {
	t.Helper()
	name := "safetytest" + t.Name()
	r, err := carstate.Open(name)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		r.Close()
		r.Unlink()
	})
	return r
}

func TestObstructionReopens(t *testing.T) {
	r := newTestRegion(t)
	r.SetStatus(wire.Closing)
	r.SetDoorObstruction(true)

	m := New(r, zerolog.Nop())
	m.check(r.Read())

	if got := r.Read().Status; got != wire.Opening {
		t.Errorf("status = %v, want Opening", got)
	}
}

func TestEmergencyStopLatches(t *testing.T) {
	r := newTestRegion(t)
	r.SetEmergencyStop(true)

	m := New(r, zerolog.Nop())
	m.check(r.Read())

	v := r.Read()
	if !v.EmergencyMode {
		t.Errorf("expected emergency_mode latched")
	}
	if v.EmergencyStop {
		t.Errorf("expected emergency_stop cleared")
	}

	// Clearing emergency_stop after the fact must not clear emergency_mode.
	r.SetEmergencyStop(false)
	m.check(r.Read())
	if !r.Read().EmergencyMode {
		t.Errorf("emergency_mode must remain latched")
	}
}

func TestConsistencySweepLatchesOnBadStatus(t *testing.T) {
	r := newTestRegion(t)

	m := New(r, zerolog.Nop())
	// Force an invalid status directly through the region to simulate
	// external corruption.
	r.SetStatus(wire.DoorState("Bogus"))
	m.check(r.Read())

	if !r.Read().EmergencyMode {
		t.Errorf("expected emergency_mode latched on bad status")
	}
}

func TestHeartbeatRefresh(t *testing.T) {
	r := newTestRegion(t)
	r.SetSafetySystem(0)

	m := New(r, zerolog.Nop())
	m.check(r.Read())

	if got := r.Read().SafetySystem; got != 1 {
		t.Errorf("safety_system = %d, want 1", got)
	}
}
