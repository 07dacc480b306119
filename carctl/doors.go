package carctl

import (
	"context"
	"time"

	"elevsys/wire"
)

// runDoorOpenSequence drives the absolute-time door cycle of spec.md §4.5:
// at t0 the door starts opening, at t0+T it is fully open, it then waits
// until close_button is pressed or t0+2T, closes, and is fully closed at
// t0+3T. The safety monitor may flip Closing back to Opening on an
// obstruction (safety/monitor.go's check step 2); when that happens this
// sequence notices the state it expects no longer holds and restarts the
// wait-at-Open phase rather than fighting the monitor for the status field.
func (c *Controller) runDoorOpenSequence(ctx context.Context) {
	if !c.transitionDoor(wire.Closed, wire.Opening) {
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}
		if sleepOrDone(ctx, c.tick) {
			return
		}
		if !c.transitionDoor(wire.Opening, wire.Open) {
			// Something else moved the door out from under us; give up
			// quietly rather than force a state that is no longer ours.
			return
		}

		if c.waitAtOpen(ctx) {
			return
		}

		if !c.transitionDoor(wire.Open, wire.Closing) {
			return
		}

		reopened := c.waitWhileClosing(ctx)
		if reopened {
			// The monitor forced Closing -> Opening for an obstruction;
			// loop back and run the whole Opening/Open/Closing cycle again.
			continue
		}

		c.transitionDoor(wire.Closing, wire.Closed)
		return
	}
}

// waitAtOpen polls in short intervals for an early close_button press while
// the door sits fully open, up to one tick. Returns true if ctx was
// cancelled.
func (c *Controller) waitAtOpen(ctx context.Context) bool {
	deadline := time.Now().Add(c.tick)
	poll := c.pollInterval()
	for {
		if ctx.Err() != nil {
			return true
		}
		if c.region.Read().Status != wire.Open {
			return false
		}
		if c.region.ConsumeCloseButton() {
			return false
		}
		if time.Now().After(deadline) {
			return false
		}
		if sleepOrDone(ctx, poll) {
			return true
		}
	}
}

// waitWhileClosing polls for the monitor's obstruction-triggered reopen
// during the Closing phase, for up to one tick. Returns true if the door was
// forced back open.
func (c *Controller) waitWhileClosing(ctx context.Context) bool {
	deadline := time.Now().Add(c.tick)
	poll := c.pollInterval()
	for {
		if ctx.Err() != nil {
			return false
		}
		status := c.region.Read().Status
		if status == wire.Opening {
			return true
		}
		if status != wire.Closing {
			return false
		}
		if time.Now().After(deadline) {
			return false
		}
		if sleepOrDone(ctx, poll) {
			return false
		}
	}
}
