package dispatcher

import (
	"elevsys/floor"
	"elevsys/wire"
)

// insertion is the result of the insertion-cost routine (spec.md §4.6) run
// against one candidate car.
type insertion struct {
	pickupIdx int
	dropIdx   int // index in the pre-insertion queue; see commit for the shift
	finalLen  int
	dupDst    bool
	ok        bool
}

// effectiveCurrent returns the floor the insertion routine should treat as
// "current": the queue head if the car is mid-leg (Closing or Between),
// otherwise its last reported current_floor (spec.md §4.6).
func effectiveCurrent(e *CarEntry) floor.Floor {
	if (e.Status == wire.Closing || e.Status == wire.Between) && len(e.Queue) > 0 {
		return e.Queue[0]
	}
	return e.CurrentFloor
}

// insertionCost implements spec.md §4.6's insertion-cost routine: it walks
// the queue's direction-preserving segments looking for a place to insert
// src without breaking monotonicity, then searches the remainder for a
// matching drop-off for dst.
func insertionCost(e *CarEntry, src, dst floor.Floor) insertion {
	dir := floor.DirectionBetween(src, dst)
	if dir == floor.Idle {
		return insertion{}
	}

	cur := effectiveCurrent(e)
	points := make([]floor.Floor, 0, len(e.Queue)+2)
	points = append(points, cur)
	points = append(points, e.Queue...)
	points = append(points, cur)

	pickupIdx := -1
	for i := 0; i < len(points)-1; i++ {
		a, b := points[i], points[i+1]
		if floor.DirectionBetween(a, b) != dir {
			continue
		}
		var contains bool
		if dir == floor.Up {
			contains = a <= src && src < b
		} else {
			contains = a >= src && src > b
		}
		if contains {
			pickupIdx = i
			break
		}
	}

	if pickupIdx < 0 && len(e.Queue) > 0 {
		// Second strategy: extend the current direction's last leg (the
		// queue's final "back to current" segment) if the new request
		// continues in the same direction before any reversal.
		last := len(points) - 2
		segDir := floor.DirectionBetween(points[last], points[last+1])
		if segDir == dir {
			pickupIdx = last
		}
	}

	if pickupIdx < 0 {
		n := len(e.Queue)
		dup := dstAlreadyQueued(e.Queue, dst)
		finalLen := n + 2
		if dup {
			finalLen = n + 1
		}
		return insertion{pickupIdx: n, dropIdx: n + 1, finalLen: finalLen, dupDst: dup, ok: true}
	}

	dropIdx := len(points) - 1
	for j := pickupIdx + 1; j < len(points); j++ {
		b := points[j]
		reached := b >= dst
		if dir == floor.Down {
			reached = b <= dst
		}
		if reached {
			dropIdx = j - 1
			break
		}
	}
	if dropIdx < pickupIdx {
		dropIdx = pickupIdx
	}

	dup := dstAlreadyQueued(e.Queue, dst)
	finalLen := len(e.Queue) + 2
	if dup {
		finalLen = len(e.Queue) + 1
	}
	return insertion{pickupIdx: pickupIdx, dropIdx: dropIdx, finalLen: finalLen, dupDst: dup, ok: true}
}

func dstAlreadyQueued(queue []floor.Floor, dst floor.Floor) bool {
	for _, q := range queue {
		if q == dst {
			return true
		}
	}
	return false
}

// commit splices src at pickupIdx and, unless it would duplicate an
// existing entry, dst immediately after the drop-off point found by
// insertionCost. Both indices are expressed against the pre-insertion
// queue; inserting src first shifts every later index right by one.
func commit(queue []floor.Floor, src, dst floor.Floor, ins insertion) []floor.Floor {
	out := make([]floor.Floor, 0, len(queue)+2)
	out = append(out, queue[:ins.pickupIdx]...)
	out = append(out, src)
	out = append(out, queue[ins.pickupIdx:]...)

	if ins.dupDst {
		return out
	}

	at := ins.dropIdx + 1
	if at > len(out) {
		at = len(out)
	}
	tail := append([]floor.Floor(nil), out[at:]...)
	out = append(out[:at], dst)
	out = append(out, tail...)
	return out
}

// Schedule implements spec.md §4.6's schedule(src, dst, socket): it picks
// the in-use car with the lowest insertion cost (ties broken by the lower
// resulting queue length), commits the insertion, and reports whether the
// chosen car's queue head changed.
func (r *Registry) Schedule(src, dst floor.Floor) (carName string, headChanged bool, newHead floor.Floor, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var bestName string
	var best insertion
	found := false

	for _, name := range r.order {
		e := r.cars[name]
		if !src.InRange(e.Lo, e.Hi) || !dst.InRange(e.Lo, e.Hi) {
			continue
		}
		ins := insertionCost(e, src, dst)
		if !ins.ok || ins.pickupIdx < 0 {
			continue
		}
		if ins.finalLen > r.queueCap {
			continue
		}
		if !found || ins.pickupIdx < best.pickupIdx ||
			(ins.pickupIdx == best.pickupIdx && ins.finalLen < best.finalLen) {
			best = ins
			bestName = name
			found = true
		}
	}

	if !found {
		return "", false, 0, false
	}

	e := r.cars[bestName]
	prevHead := floor.Floor(0)
	hadHead := len(e.Queue) > 0
	if hadHead {
		prevHead = e.Queue[0]
	}

	e.Queue = commit(e.Queue, src, dst, best)

	newHead = e.Queue[0]
	headChanged = !hadHead || newHead != prevHead
	return bestName, headChanged, newHead, true
}
