package carstate

import (
	"elevsys/floor"
	"elevsys/wire"
)

// Violation describes one invariant failure found in a View, for logging by
// the safety monitor.
type Violation string

// Check validates a snapshot against the invariants of spec.md §3: floor
// fields parse, status is one of the five enumerated states, every boolean
// field's raw byte is 0 or 1 (checked on View.Raw, since View's bool fields
// would hide a value above 1), and the door_obstruction implication holds.
func Check(v View) (Violation, bool) {
	if !floor.Valid(v.CurrentFloor) {
		return Violation("current_floor invalid: " + v.CurrentFloor), false
	}
	if !floor.Valid(v.DestinationFloor) {
		return Violation("destination_floor invalid: " + v.DestinationFloor), false
	}
	if !wire.ValidDoorState(v.Status) {
		return Violation("status invalid: " + string(v.Status)), false
	}
	booleans := []struct {
		name string
		raw  uint8
	}{
		{"open_button", v.Raw.OpenButton},
		{"close_button", v.Raw.CloseButton},
		{"door_obstruction", v.Raw.DoorObstruction},
		{"overload", v.Raw.Overload},
		{"emergency_stop", v.Raw.EmergencyStop},
		{"individual_service", v.Raw.IndividualService},
		{"emergency_mode", v.Raw.EmergencyMode},
	}
	for _, b := range booleans {
		if b.raw > 1 {
			return Violation(b.name + " out of range"), false
		}
	}
	if v.DoorObstruction && v.Status != wire.Opening && v.Status != wire.Closing {
		return Violation("door_obstruction set while status=" + string(v.Status)), false
	}
	return "", true
}
