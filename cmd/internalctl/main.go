// Command internalctl issues one manual-control operation against a car's
// shared state region: `<car_name> <op>` where op is one of open, close,
// stop, service_on, service_off, up, down (spec.md §6).
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"elevsys/carstate"
	"elevsys/floor"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: internalctl <car_name> <op>")
		os.Exit(1)
	}
	name, op := os.Args[1], os.Args[2]

	signal.Ignore(syscall.SIGPIPE)

	region, err := carstate.Open(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open shared car-state region: %v\n", err)
		os.Exit(1)
	}
	defer region.Close()

	if err := apply(region, op); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func apply(region *carstate.Region, op string) error {
	switch op {
	case "open":
		region.PressOpenButton()
	case "close":
		region.PressCloseButton()
	case "stop":
		region.SetEmergencyStop(true)
	case "service_on":
		region.SetIndividualService(true)
	case "service_off":
		region.SetIndividualService(false)
	case "up":
		return step(region, floor.Up)
	case "down":
		return step(region, floor.Down)
	default:
		return fmt.Errorf("unknown op %q", op)
	}
	return nil
}

// step honours the up/down operations: only valid in individual-service
// mode with the doors closed. A closed door is itself the "stationary car"
// condition; current_floor need not equal destination_floor, so a press
// mid-journey toward an earlier destination is still honoured.
func step(region *carstate.Region, dir floor.Direction) error {
	v := region.Read()
	if !v.IndividualService {
		return fmt.Errorf("up/down require individual-service mode")
	}
	if v.Status != "Closed" {
		return fmt.Errorf("up/down require a closed door")
	}
	cur, err := floor.Parse(v.CurrentFloor)
	if err != nil {
		return fmt.Errorf("corrupt current_floor: %w", err)
	}
	region.SetDestinationFloor(cur.Step(dir).String())
	return nil
}
