// Package carstate implements the cross-process shared car-state region
// described in spec.md §4.3: one memory-mapped region per car, named
// "/car<name>", holding the car's live state plus the synchronization
// primitives that let the controller, the safety monitor and manual-control
// tools observe and mutate it safely from separate OS processes.
package carstate

import (
	"errors"
	"fmt"

	"elevsys/wire"

	"golang.org/x/sys/unix"
)

// payload is the process-shared portion of the region: every field any
// process may read or write while holding the region's mutex. Its layout
// must stay stable across every binary that maps it (controller, safety
// monitor, internal-controls tool), per spec.md §6.
type payload struct {
	seq uint32 // bumped and futex-woken on every observable write

	currentFloor      [8]byte
	destinationFloor  [8]byte
	status            [8]byte
	openButton        uint8
	closeButton       uint8
	doorObstruction   uint8
	overload          uint8
	emergencyStop     uint8
	individualService uint8
	emergencyMode     uint8
	safetySystem      uint8
}

const regionSize = 4096 // page-aligned; payload is far smaller

// Region is a process's mapping of one car's shared state.
type Region struct {
	name string
	fd   int
	mem  []byte
	p    *payload
	mu   regionMutex
}

// Name returns the shared-memory object name ("/car<name>").
func (r *Region) Name() string { return r.name }

func shmPath(carName string) string {
	return "/dev/shm/car" + carName
}

// Open maps the named car's shared region, creating and initializing it if
// this is the first process to reference it.
func Open(carName string) (*Region, error) {
	path := shmPath(carName)

	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0666)
	created := err == nil
	if !created {
		fd, err = unix.Open(path, unix.O_RDWR, 0666)
		if err != nil {
			return nil, fmt.Errorf("carstate: open %s: %w", path, err)
		}
	} else {
		if err := unix.Ftruncate(fd, regionSize); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("carstate: truncate %s: %w", path, err)
		}
	}

	mem, err := unix.Mmap(fd, 0, regionSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("carstate: mmap %s: %w", path, err)
	}

	r := &Region{
		name: "/car" + carName,
		fd:   fd,
		mem:  mem,
		p:    (*payload)(unsafePointer(mem)),
	}
	r.mu = regionMutex{seq: &r.p.seq}

	if created {
		r.Reset()
	}
	return r, nil
}

// Close unmaps the region and closes the backing descriptor without
// unlinking it; other processes may still hold it open.
func (r *Region) Close() error {
	if err := unix.Munmap(r.mem); err != nil {
		return err
	}
	return unix.Close(r.fd)
}

// Unlink removes the shared-memory object from the host namespace. The
// controller calls this on graceful shutdown (spec.md §5, "Cancellation and
// shutdown").
func (r *Region) Unlink() error {
	return unix.Unlink(shmPath(r.name[len("/car"):]))
}

// Reset zeroes the payload and sets the documented defaults: status=Closed,
// current_floor=destination_floor="1" (spec.md §4.3).
func (r *Region) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock(true)
	r.resetLocked()
}

func (r *Region) resetLocked() {
	*r.p = payload{seq: r.p.seq}
	copy(r.p.status[:], "Closed")
	copy(r.p.currentFloor[:], "1")
	copy(r.p.destinationFloor[:], "1")
}

// View is an immutable snapshot of the region's payload, taken under lock.
type View struct {
	CurrentFloor      string
	DestinationFloor  string
	Status            wire.DoorState
	OpenButton        bool
	CloseButton       bool
	DoorObstruction   bool
	Overload          bool
	EmergencyStop     bool
	IndividualService bool
	EmergencyMode     bool
	SafetySystem      uint8

	// Raw mirrors the unconverted byte values of every boolean field, so the
	// safety monitor can detect an out-of-range value (spec.md §3: "any
	// higher value is a consistency error") that a plain bool would hide.
	Raw RawBooleans
}

// RawBooleans carries the unconverted shared-memory byte for every
// single-byte boolean field.
type RawBooleans struct {
	OpenButton        uint8
	CloseButton       uint8
	DoorObstruction   uint8
	Overload          uint8
	EmergencyStop     uint8
	IndividualService uint8
	EmergencyMode     uint8
}

// Read takes a consistent snapshot of the region under the mutex.
func (r *Region) Read() View {
	r.mu.Lock()
	defer r.mu.Unlock(false)
	return r.readLocked()
}

func (r *Region) readLocked() View {
	return View{
		CurrentFloor:      cstr(r.p.currentFloor[:]),
		DestinationFloor:  cstr(r.p.destinationFloor[:]),
		Status:            wire.DoorState(cstr(r.p.status[:])),
		OpenButton:        r.p.openButton != 0,
		CloseButton:       r.p.closeButton != 0,
		DoorObstruction:   r.p.doorObstruction != 0,
		Overload:          r.p.overload != 0,
		EmergencyStop:     r.p.emergencyStop != 0,
		IndividualService: r.p.individualService != 0,
		EmergencyMode:     r.p.emergencyMode != 0,
		SafetySystem:      r.p.safetySystem,
		Raw: RawBooleans{
			OpenButton:        r.p.openButton,
			CloseButton:       r.p.closeButton,
			DoorObstruction:   r.p.doorObstruction,
			Overload:          r.p.overload,
			EmergencyStop:     r.p.emergencyStop,
			IndividualService: r.p.individualService,
			EmergencyMode:     r.p.emergencyMode,
		},
	}
}

// Mutate runs fn with the mutex held and broadcasts the condition variable
// afterwards, per spec.md §5's "writers must broadcast on every observable
// change". fn reports whether it actually changed anything; no-op mutations
// don't need to wake waiters but it is always safe to broadcast.
func (r *Region) Mutate(fn func(p *payload)) {
	r.mu.Lock()
	defer r.mu.Unlock(true)
	fn(r.p)
}

// Wait blocks until the region's condition variable is broadcast, then
// returns the fresh snapshot. Callers must recheck their predicate: spurious
// wakeups are possible.
func (r *Region) Wait() View {
	r.mu.Lock()
	r.mu.CondWait()
	defer r.mu.Unlock(false)
	return r.readLocked()
}

// --- field accessors used by carctl/safety/internalctl ---

func (r *Region) SetStatus(s wire.DoorState) {
	r.Mutate(func(p *payload) {
		clear(p.status[:])
		copy(p.status[:], s)
	})
}

func (r *Region) CompareAndSetStatus(expect, next wire.DoorState) bool {
	changed := false
	r.Mutate(func(p *payload) {
		if wire.DoorState(cstr(p.status[:])) == expect {
			clear(p.status[:])
			copy(p.status[:], next)
			changed = true
		}
	})
	return changed
}

func (r *Region) SetFloors(current, destination string) {
	r.Mutate(func(p *payload) {
		clear(p.currentFloor[:])
		copy(p.currentFloor[:], current)
		clear(p.destinationFloor[:])
		copy(p.destinationFloor[:], destination)
	})
}

func (r *Region) SetCurrentFloor(current string) {
	r.Mutate(func(p *payload) {
		clear(p.currentFloor[:])
		copy(p.currentFloor[:], current)
	})
}

func (r *Region) SetDestinationFloor(dest string) {
	r.Mutate(func(p *payload) {
		clear(p.destinationFloor[:])
		copy(p.destinationFloor[:], dest)
	})
}

func (r *Region) SetSafetySystem(v uint8) {
	r.Mutate(func(p *payload) { p.safetySystem = v })
}

// ConsumeOpenButton reports and clears a single-shot open_button press.
func (r *Region) ConsumeOpenButton() bool {
	pressed := false
	r.Mutate(func(p *payload) {
		if p.openButton != 0 {
			pressed = true
			p.openButton = 0
		}
	})
	return pressed
}

// ConsumeCloseButton reports and clears a single-shot close_button press.
func (r *Region) ConsumeCloseButton() bool {
	pressed := false
	r.Mutate(func(p *payload) {
		if p.closeButton != 0 {
			pressed = true
			p.closeButton = 0
		}
	})
	return pressed
}

func (r *Region) PressOpenButton()  { r.Mutate(func(p *payload) { p.openButton = 1 }) }
func (r *Region) PressCloseButton() { r.Mutate(func(p *payload) { p.closeButton = 1 }) }
func (r *Region) SetDoorObstruction(v bool) {
	r.Mutate(func(p *payload) { p.doorObstruction = boolToU8(v) })
}
func (r *Region) SetOverload(v bool) { r.Mutate(func(p *payload) { p.overload = boolToU8(v) }) }
func (r *Region) SetEmergencyStop(v bool) {
	r.Mutate(func(p *payload) { p.emergencyStop = boolToU8(v) })
}
func (r *Region) SetIndividualService(v bool) {
	r.Mutate(func(p *payload) { p.individualService = boolToU8(v) })
}

// SetEmergencyMode latches emergency_mode; per spec.md §3 it never clears
// within a process lifetime, so this only ever sets it to true.
func (r *Region) SetEmergencyMode() {
	r.Mutate(func(p *payload) { p.emergencyMode = 1 })
}

func boolToU8(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}

func cstr(b []byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}

// ErrNotOpen reports an operation on a region that is not open. No function
// in this package returns it.
var ErrNotOpen = errors.New("carstate: region not open")
