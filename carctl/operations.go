package carctl

import (
	"context"
	"time"

	"elevsys/carstate"
	"elevsys/floor"
	"elevsys/wire"
)

// pollInterval is the sub-tick polling granularity used only to detect an
// early close_button press during the door-open sequence and to keep the
// operations loop responsive; spec.md §5 calls this out as the one
// permitted busy-ish loop ("a sub-millisecond door-phase polling window").
func (c *Controller) pollInterval() time.Duration {
	p := c.tick / 20
	if p < time.Millisecond {
		p = time.Millisecond
	}
	return p
}

// operationsTask implements spec.md §4.5's "Operations task": heartbeat
// escalation, button servicing, mode transitions and motion, driven against
// real time with tick T.
func (c *Controller) operationsTask(ctx context.Context) error {
	c.lastHeartbeatAdvance = time.Now()
	poll := c.pollInterval()
	for {
		if ctx.Err() != nil {
			return nil
		}

		c.advanceHeartbeatIfDue()
		c.handleButtons()
		c.handleModeTransitions()

		v := c.region.Read()
		switch {
		case v.IndividualService:
			c.stepIndividualService(ctx, v)
		case v.EmergencyMode:
			// Immobilized; nothing to do until process restart.
		default:
			c.stepNormal(ctx, v)
		}

		sleepOrDone(ctx, poll)
	}
}

// advanceHeartbeatIfDue escalates the safety heartbeat once per tick:
// 1 -> 2 -> 3 -> emergency (spec.md §4.5, §9 duplication note).
func (c *Controller) advanceHeartbeatIfDue() {
	now := time.Now()
	if now.Sub(c.lastHeartbeatAdvance) < c.tick {
		return
	}
	c.lastHeartbeatAdvance = now

	v := c.region.Read()
	if v.IndividualService || v.EmergencyMode {
		return
	}
	switch v.SafetySystem {
	case 0, 1:
		c.region.SetSafetySystem(2)
	case 2:
		c.region.SetSafetySystem(3)
	default:
		// First stale tick at >=3: the safety monitor never refreshed us.
		c.log.Warn().Msg("safety system disconnected, entering emergency mode")
		if c.activeConn() != nil {
			c.sendFramed(wire.Emergency)
			c.closeConn()
		}
		c.region.SetEmergencyMode()
	}
}

// handleButtons services close_button/open_button with the priority order
// of spec.md §4.5: close has priority, open is honoured from Closed (always
// in individual service, or from Closed with current==destination in
// normal mode). A normal-mode open_button while Closing is ignored, per the
// Open Question resolution in spec.md §9.
func (c *Controller) handleButtons() {
	v := c.region.Read()

	if v.CloseButton && v.Status == wire.Open {
		c.region.ConsumeCloseButton()
		c.transitionDoor(wire.Open, wire.Closing)
		sleepOrDone(context.Background(), c.tick)
		c.transitionDoor(wire.Closing, wire.Closed)
		return
	}

	if v.OpenButton {
		individual := v.IndividualService
		sameFloor := v.CurrentFloor == v.DestinationFloor
		if v.Status == wire.Closed && (individual || sameFloor) {
			c.region.ConsumeOpenButton()
			c.runDoorOpenSequence(context.Background())
		}
	}
}

// transitionDoor applies a status change only if the car is still in the
// expected prior state ("only change if previous state is still what we
// expect" — external actors may have intervened).
func (c *Controller) transitionDoor(expect, next wire.DoorState) bool {
	changed := c.region.CompareAndSetStatus(expect, next)
	if changed {
		c.publishStatus()
	}
	return changed
}

// handleModeTransitions notices the edges into individual-service or
// emergency mode and tells the dispatcher before dropping the link.
func (c *Controller) handleModeTransitions() {
	v := c.region.Read()

	if v.IndividualService && !c.wasIndividualService {
		if c.activeConn() != nil {
			c.sendFramed(wire.IndividualService)
			c.closeConn()
		}
	}
	c.wasIndividualService = v.IndividualService

	if v.EmergencyMode && !c.wasEmergency {
		if c.activeConn() != nil {
			c.sendFramed(wire.Emergency)
			c.closeConn()
		}
	}
	c.wasEmergency = v.EmergencyMode
}

// stepIndividualService drives manual floor-by-floor motion toward
// destination_floor, rejecting an out-of-range destination by snapping it
// back to the current floor.
func (c *Controller) stepIndividualService(ctx context.Context, v carstate.View) {
	if v.Status != wire.Closed {
		return
	}
	cur := mustFloor(v.CurrentFloor)
	dst := mustFloor(v.DestinationFloor)
	if cur == dst {
		return
	}
	if !dst.InRange(c.Lo, c.Hi) {
		c.region.SetDestinationFloor(cur.String())
		return
	}

	if !c.transitionDoor(wire.Closed, wire.Between) {
		return
	}
	sleepOrDone(ctx, c.tick)

	next := cur.Step(floor.DirectionBetween(cur, dst))
	c.region.SetCurrentFloor(next.String())
	c.region.CompareAndSetStatus(wire.Between, wire.Closed)
	c.publishStatus()
}

// stepNormal drives normal-mode motion: opens the doors when the
// dispatcher has ordered us to our own floor, or steps toward
// destination_floor one floor per tick, then opens on arrival.
func (c *Controller) stepNormal(ctx context.Context, v carstate.View) {
	cur := mustFloor(v.CurrentFloor)
	dst := mustFloor(v.DestinationFloor)

	if v.Status == wire.Closed && cur == dst {
		if c.destChanged.Swap(false) {
			c.runDoorOpenSequence(ctx)
		}
		return
	}

	if v.Status != wire.Closed || cur == dst {
		return
	}

	if !c.transitionDoor(wire.Closed, wire.Between) {
		return
	}
	c.destChanged.Set(false)
	c.publishStatus()

	for {
		if ctx.Err() != nil {
			return
		}
		if sleepOrDone(ctx, c.tick) {
			return
		}

		snapshot := c.region.Read()
		if snapshot.Status != wire.Between {
			return
		}
		cur = mustFloor(snapshot.CurrentFloor)
		dst = mustFloor(snapshot.DestinationFloor)
		if cur == dst {
			break
		}

		next := cur.Step(floor.DirectionBetween(cur, dst))
		c.region.SetCurrentFloor(next.String())
		c.publishStatus()
		if next == dst {
			break
		}
	}

	c.region.CompareAndSetStatus(wire.Between, wire.Closed)
	c.runDoorOpenSequence(ctx)
}
