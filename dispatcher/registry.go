// Package dispatcher implements the central dispatcher of spec.md §4.6: a
// single TCP listener accepting long-lived car connections and transient
// call-pad connections, a bounded car registry, and the direction-preserving
// insertion-cost scheduler.
package dispatcher

import (
	"errors"
	"net"
	"sync"

	"elevsys/codec"
	"elevsys/floor"
	"elevsys/wire"
)

// ErrRegistryFull is returned when every car slot is already in use.
var ErrRegistryFull = errors.New("dispatcher: car registry full")

// ErrDuplicateName is returned when a car re-registers under a name that is
// already in use.
var ErrDuplicateName = errors.New("dispatcher: car name already registered")

// ErrUnknownCar is returned when an operation names a car not currently
// registered.
var ErrUnknownCar = errors.New("dispatcher: unknown car")

// CarEntry mirrors spec.md §3's car registry entry: in-use is implicit in
// map membership, socket, name, [lo,hi], last-reported current_floor and
// status, and the stop queue.
type CarEntry struct {
	Name         string
	Lo, Hi       floor.Floor
	CurrentFloor floor.Floor
	Status       wire.DoorState
	Queue        []floor.Floor

	conn net.Conn
	// writeMu serializes FLOOR sends on conn: serveCar (after UpdateStatus
	// pops a head) and serveCall (after Schedule) both write to the same
	// car socket from different goroutines, and codec.Send's two-part
	// header-then-payload write must not interleave with another.
	writeMu sync.Mutex
}

// Snapshot returns a value copy safe to read outside the registry lock.
func (e *CarEntry) Snapshot() CarEntry {
	return CarEntry{
		Name:         e.Name,
		Lo:           e.Lo,
		Hi:           e.Hi,
		CurrentFloor: e.CurrentFloor,
		Status:       e.Status,
		Queue:        append([]floor.Floor(nil), e.Queue...),
	}
}

// Registry is the dispatcher's single-process, multi-thread car table: one
// mutex guards both membership and every entry's fields, matching spec.md
// §5's "car array is single-process multi-thread, guarded by its own
// mutex". order preserves registration order for deterministic scheduling
// tie-breaks, since Go map iteration order is randomized.
type Registry struct {
	mu       sync.Mutex
	cars     map[string]*CarEntry
	order    []string
	queueCap int
	capacity int
}

// NewRegistry creates an empty registry bounded to capacity cars, each with
// a stop queue capped at queueCap entries.
func NewRegistry(capacity, queueCap int) *Registry {
	return &Registry{
		cars:     make(map[string]*CarEntry),
		queueCap: queueCap,
		capacity: capacity,
	}
}

// Register adds a newly-connected car. Per spec.md §4.6, status starts
// "Unknown" and current_floor starts at lo until the first STATUS arrives.
func (r *Registry) Register(name string, lo, hi floor.Floor, conn net.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cars[name]; exists {
		return ErrDuplicateName
	}
	if len(r.cars) >= r.capacity {
		return ErrRegistryFull
	}
	r.cars[name] = &CarEntry{
		Name:         name,
		Lo:           lo,
		Hi:           hi,
		CurrentFloor: lo,
		Status:       wire.Unknown,
		conn:         conn,
	}
	r.order = append(r.order, name)
	return nil
}

// Deregister removes a car, e.g. on EOF, INDIVIDUAL SERVICE, or EMERGENCY.
func (r *Registry) Deregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cars[name]; !ok {
		return
	}
	delete(r.cars, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// UpdateStatus records a car's latest STATUS frame and, if the car has
// arrived at its queue head with doors open or opening, pops the head and
// reports the new head so the caller can send FLOOR <new-head>.
func (r *Registry) UpdateStatus(name string, current floor.Floor, status wire.DoorState) (newHead floor.Floor, headChanged bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.cars[name]
	if !ok {
		return 0, false
	}
	e.CurrentFloor = current
	e.Status = status

	if len(e.Queue) == 0 {
		return 0, false
	}
	if e.Queue[0] != current {
		return 0, false
	}
	if status != wire.Open && status != wire.Opening {
		return 0, false
	}
	e.Queue = e.Queue[1:]
	if len(e.Queue) == 0 {
		return 0, false
	}
	return e.Queue[0], true
}

// Get returns a snapshot of one car's entry.
func (r *Registry) Get(name string) (CarEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.cars[name]
	if !ok {
		return CarEntry{}, false
	}
	return e.Snapshot(), true
}

// SendFloor sends a FLOOR frame to a registered car, serialized against any
// other FLOOR send to the same car so codec.Send's header-then-payload
// writes from two goroutines (the car's own STATUS handler and a call-pad
// handler) can never interleave on the wire.
func (r *Registry) SendFloor(name string, f floor.Floor) error {
	r.mu.Lock()
	e, ok := r.cars[name]
	r.mu.Unlock()
	if !ok {
		return ErrUnknownCar
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return codec.Send(e.conn, []byte(wire.FloorCmd{Floor: f}.String()))
}
