package carstate

import (
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// regionMutex is the cross-process mutex + condition variable pair embedded
// at the front of the region, as required by spec.md §6 ("Mutex and
// condition variable are the first two members"). Go has no portable way to
// initialize a pthread_mutex_t/pthread_cond_t with PTHREAD_PROCESS_SHARED
// from pure Go, so this substitutes the futex-based primitive the design
// note in spec.md §9 explicitly allows: "a pipe-based wakeup or a futex-like
// primitive; the contract is only broadcast after every observable write".
//
// seq is a shared uint32 in the mapped region. Lock futex-waits on seq while
// the locked bit is set; Unlock(broadcast=true) bumps seq and futex-wakes every
// waiter. This gives one shared sequence counter double duty as both the
// mutual-exclusion token (bit 0) and the broadcast generation (upper bits),
// which keeps the region's synchronization state to a single shared word.
type regionMutex struct {
	seq *uint32
}

const lockedBit = 1

func (m regionMutex) Lock() {
	for {
		old := load(m.seq)
		if old&lockedBit == 0 {
			if cas(m.seq, old, old|lockedBit) {
				return
			}
			continue
		}
		// Someone else holds it; wait for a change then retry.
		futexWait(m.seq, old, nil)
	}
}

// Unlock releases the mutex. If broadcast is true (the caller made an
// observable change) it also bumps the generation and wakes every waiter
// blocked in Wait, per the region's broadcast-on-every-write contract.
func (m regionMutex) Unlock(broadcast bool) {
	for {
		old := load(m.seq)
		next := old &^ lockedBit
		if broadcast {
			next += 2 // advance generation, staying clear of lockedBit
		}
		if cas(m.seq, old, next) {
			break
		}
	}
	if broadcast {
		futexWake(m.seq, 1<<30) // wake all
	}
}

// CondWait must be called with the mutex held (via Lock). It clears the
// locked bit while parked so other processes can proceed, blocks until the
// generation changes, and re-acquires the lock before returning, mirroring
// pthread_cond_wait's wake-on-broadcast semantics.
func (m regionMutex) CondWait() {
	start := load(m.seq)
	// Release the lock while waiting, as pthread_cond_wait does.
	for {
		old := load(m.seq)
		if cas(m.seq, old, old&^lockedBit) {
			break
		}
	}
	for {
		cur := load(m.seq)
		if cur>>1 != start>>1 {
			break
		}
		futexWait(m.seq, cur, nil)
	}
	// Re-acquire.
	for {
		old := load(m.seq)
		if old&lockedBit == 0 && cas(m.seq, old, old|lockedBit) {
			return
		}
		futexWait(m.seq, old, nil)
	}
}

func load(addr *uint32) uint32 {
	return atomic.LoadUint32(addr)
}

func cas(addr *uint32, old, new uint32) bool {
	return atomic.CompareAndSwapUint32(addr, old, new)
}

// FUTEX_WAIT and FUTEX_WAKE are the Linux futex(2) operation codes
// (linux/futex.h). golang.org/x/sys/unix does not export these as named
// constants, so they are defined here directly.
const (
	futexOpWait = 0
	futexOpWake = 1
)

func futexWait(addr *uint32, val uint32, timeout *time.Duration) {
	var ts *unix.Timespec
	if timeout != nil {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}
	_, _, _ = unix.Syscall6(unix.SYS_FUTEX, uintptr(unsafe.Pointer(addr)),
		futexOpWait, uintptr(val), uintptr(unsafe.Pointer(ts)), 0, 0)
}

func futexWake(addr *uint32, n int) {
	_, _, _ = unix.Syscall6(unix.SYS_FUTEX, uintptr(unsafe.Pointer(addr)),
		futexOpWake, uintptr(n), 0, 0, 0)
}

func unsafePointer(mem []byte) unsafe.Pointer {
	return unsafe.Pointer(&mem[0])
}
