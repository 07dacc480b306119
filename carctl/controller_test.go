package carctl

import (
	"context"
	"testing"
	"time"

	"elevsys/carstate"
	"elevsys/floor"
	"elevsys/wire"

	"github.com/rs/zerolog"
)

func newTestController(t *testing.T) (*Controller, *carstate.Region) {
	t.Helper()
	name := "carctltest" + t.Name()
	r, err := carstate.Open(name)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		r.Close()
		r.Unlink()
	})
	c := New(name, floor.Floor(1), floor.Floor(4), 20*time.Millisecond, r, nil, zerolog.Nop())
	return c, r
}

func TestDoorOpenSequenceTiming(t *testing.T) {
	c, r := newTestController(t)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		c.runDoorOpenSequence(ctx)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	if got := r.Read().Status; got != wire.Opening {
		t.Fatalf("status = %v, want Opening shortly after start", got)
	}

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("door sequence did not complete")
	}
	if got := r.Read().Status; got != wire.Closed {
		t.Fatalf("status = %v, want Closed at sequence end", got)
	}
}

func TestDoorOpenSequenceEarlyClose(t *testing.T) {
	c, r := newTestController(t)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		c.runDoorOpenSequence(ctx)
		close(done)
	}()

	// Wait until the door is fully open, then press close_button right away.
	for r.Read().Status != wire.Open {
		time.Sleep(time.Millisecond)
	}
	r.PressCloseButton()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("door sequence did not complete after early close")
	}
	if got := r.Read().Status; got != wire.Closed {
		t.Fatalf("status = %v, want Closed", got)
	}
}

func TestDoorObstructionReopensDuringSequence(t *testing.T) {
	c, r := newTestController(t)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		c.runDoorOpenSequence(ctx)
		close(done)
	}()

	for r.Read().Status != wire.Open {
		time.Sleep(time.Millisecond)
	}
	r.PressCloseButton()

	for r.Read().Status != wire.Closing {
		time.Sleep(time.Millisecond)
	}
	// Simulate the safety monitor forcing a reopen on obstruction.
	r.CompareAndSetStatus(wire.Closing, wire.Opening)

	select {
	case <-done:
	case <-time.After(300 * time.Millisecond):
		t.Fatal("door sequence did not recover from forced reopen")
	}
	if got := r.Read().Status; got != wire.Closed {
		t.Fatalf("status = %v, want Closed eventually", got)
	}
}

func TestIndividualServiceStepsOneFloorAtATime(t *testing.T) {
	c, r := newTestController(t)
	r.SetIndividualService(true)
	r.SetDestinationFloor("4")

	for i := 0; i < 200 && mustFloor(r.Read().CurrentFloor) != floor.Floor(4); i++ {
		c.stepIndividualService(context.Background(), r.Read())
		time.Sleep(time.Millisecond)
	}
	if got := mustFloor(r.Read().CurrentFloor); got != floor.Floor(4) {
		t.Fatalf("current_floor = %v, want 4", got)
	}
	if got := r.Read().Status; got != wire.Closed {
		t.Fatalf("status = %v, want Closed once arrived", got)
	}
}

func TestIndividualServiceRejectsOutOfRangeDestination(t *testing.T) {
	c, r := newTestController(t)
	r.SetIndividualService(true)
	r.SetCurrentFloor("2")
	r.SetDestinationFloor("99")

	c.stepIndividualService(context.Background(), r.Read())

	if got := r.Read().DestinationFloor; got != "2" {
		t.Fatalf("destination_floor = %q, want snapped back to current (2)", got)
	}
}

func TestHandleButtonsClosePriorityOverOpenWhileOpen(t *testing.T) {
	c, r := newTestController(t)
	r.SetStatus(wire.Open)
	r.PressCloseButton()
	r.PressOpenButton()

	c.handleButtons()

	if got := r.Read().Status; got != wire.Closed {
		t.Fatalf("status = %v, want Closed (close_button honoured first)", got)
	}
}

func TestModeTransitionEdgeDetectedOnce(t *testing.T) {
	c, r := newTestController(t)
	r.SetIndividualService(true)

	c.handleModeTransitions()
	if !c.wasIndividualService {
		t.Fatalf("wasIndividualService should latch true after the first observation")
	}

	// A second call with no underlying change does not re-fire the edge. No
	// connection is open here, so the edge branch would send nothing either
	// way; this call only exercises the repeat path.
	c.handleModeTransitions()
}
