package carctl

import "elevsys/floor"

// mustFloor parses a shared-memory floor string. The region does not
// validate what is written to it; an unparsable string yields floor 1.
func mustFloor(s string) floor.Floor {
	f, err := floor.Parse(s)
	if err != nil {
		return 1
	}
	return f
}
