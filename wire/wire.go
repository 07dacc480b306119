// Package wire parses and formats the ASCII protocol messages exchanged over
// the framed codec between call pads, car controllers and the dispatcher.
package wire

import (
	"fmt"
	"strings"

	"elevsys/floor"
)

// DoorState mirrors the five door/motion phases a car can report.
type DoorState string

const (
	Opening DoorState = "Opening"
	Open    DoorState = "Open"
	Closing DoorState = "Closing"
	Closed  DoorState = "Closed"
	Between DoorState = "Between"
	Unknown DoorState = "Unknown"
)

// ValidDoorState reports whether s is one of the five enumerated door states.
func ValidDoorState(s DoorState) bool {
	switch s {
	case Opening, Open, Closing, Closed, Between:
		return true
	default:
		return false
	}
}

// CarRegister is the "CAR <name> <lo> <hi>" registration frame.
type CarRegister struct {
	Name string
	Lo   floor.Floor
	Hi   floor.Floor
}

func (m CarRegister) String() string {
	return fmt.Sprintf("CAR %s %s %s", m.Name, m.Lo, m.Hi)
}

// Status is the "STATUS <state> <cur> <dest>" repeated frame.
type Status struct {
	State       DoorState
	Current     floor.Floor
	Destination floor.Floor
}

func (m Status) String() string {
	return fmt.Sprintf("STATUS %s %s %s", m.State, m.Current, m.Destination)
}

// FloorCmd is the dispatcher's "FLOOR <n>" instruction to a car.
type FloorCmd struct {
	Floor floor.Floor
}

func (m FloorCmd) String() string {
	return fmt.Sprintf("FLOOR %s", m.Floor)
}

// Call is a call pad's "CALL <src> <dst>" request.
type Call struct {
	Src floor.Floor
	Dst floor.Floor
}

func (m Call) String() string {
	return fmt.Sprintf("CALL %s %s", m.Src, m.Dst)
}

// CarReply is the dispatcher's single reply to a call pad.
type CarReply struct {
	Name      string // empty when Unavailable
	Available bool
}

func (m CarReply) String() string {
	if !m.Available {
		return "UNAVAILABLE"
	}
	return fmt.Sprintf("CAR %s", m.Name)
}

const (
	IndividualService = "INDIVIDUAL SERVICE"
	Emergency         = "EMERGENCY"
)

// ParseCarRegister parses a "CAR <name> <lo> <hi>" frame.
func ParseCarRegister(s string) (CarRegister, error) {
	fields := strings.Fields(s)
	if len(fields) != 4 || fields[0] != "CAR" {
		return CarRegister{}, fmt.Errorf("wire: malformed CAR registration: %q", s)
	}
	lo, err := floor.Parse(fields[2])
	if err != nil {
		return CarRegister{}, fmt.Errorf("wire: %w", err)
	}
	hi, err := floor.Parse(fields[3])
	if err != nil {
		return CarRegister{}, fmt.Errorf("wire: %w", err)
	}
	if lo > hi {
		return CarRegister{}, fmt.Errorf("wire: lo %s > hi %s", lo, hi)
	}
	return CarRegister{Name: fields[1], Lo: lo, Hi: hi}, nil
}

// ParseStatus parses a "STATUS <state> <cur> <dest>" frame.
func ParseStatus(s string) (Status, error) {
	fields := strings.Fields(s)
	if len(fields) != 4 || fields[0] != "STATUS" {
		return Status{}, fmt.Errorf("wire: malformed STATUS: %q", s)
	}
	state := DoorState(fields[1])
	if !ValidDoorState(state) {
		return Status{}, fmt.Errorf("wire: invalid door state: %q", fields[1])
	}
	cur, err := floor.Parse(fields[2])
	if err != nil {
		return Status{}, fmt.Errorf("wire: %w", err)
	}
	dst, err := floor.Parse(fields[3])
	if err != nil {
		return Status{}, fmt.Errorf("wire: %w", err)
	}
	return Status{State: state, Current: cur, Destination: dst}, nil
}

// ParseFloorCmd parses a "FLOOR <n>" frame.
func ParseFloorCmd(s string) (FloorCmd, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 || fields[0] != "FLOOR" {
		return FloorCmd{}, fmt.Errorf("wire: malformed FLOOR: %q", s)
	}
	f, err := floor.Parse(fields[1])
	if err != nil {
		return FloorCmd{}, fmt.Errorf("wire: %w", err)
	}
	return FloorCmd{Floor: f}, nil
}

// ParseCall parses a "CALL <src> <dst>" frame.
func ParseCall(s string) (Call, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 || fields[0] != "CALL" {
		return Call{}, fmt.Errorf("wire: malformed CALL: %q", s)
	}
	src, err := floor.Parse(fields[1])
	if err != nil {
		return Call{}, fmt.Errorf("wire: %w", err)
	}
	dst, err := floor.Parse(fields[2])
	if err != nil {
		return Call{}, fmt.Errorf("wire: %w", err)
	}
	return Call{Src: src, Dst: dst}, nil
}

// ParseCarReply parses "CAR <name>" or "UNAVAILABLE".
func ParseCarReply(s string) (CarReply, error) {
	if s == "UNAVAILABLE" {
		return CarReply{Available: false}, nil
	}
	fields := strings.Fields(s)
	if len(fields) == 2 && fields[0] == "CAR" {
		return CarReply{Name: fields[1], Available: true}, nil
	}
	return CarReply{}, fmt.Errorf("wire: malformed reply: %q", s)
}

// Prefix returns the leading token used to dispatch an inbound frame.
func Prefix(s string) string {
	i := strings.IndexByte(s, ' ')
	if i < 0 {
		return s
	}
	return s[:i]
}
