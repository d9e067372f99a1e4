package picking

import "sync"

type ReadbackState int

const (
	ReadbackIdle ReadbackState = iota
	ReadbackCopy
	ReadbackMapping
	ReadbackMapped
)

func (s ReadbackState) String() string {
	switch s {
	case ReadbackIdle:
		return "idle"
	case ReadbackCopy:
		return "copy"
	case ReadbackMapping:
		return "mapping"
	case ReadbackMapped:
		return "mapped"
	}
	return "unknown"
}

// Readback sequences an asynchronous single-texel GPU read:
// idle -> copy (request recorded) -> mapping (copy submitted, map pending)
// -> mapped (value available) -> idle. Only one read is in flight.
type Readback struct {
	mu    sync.Mutex
	state ReadbackState
	x, y  int
	value uint32
}

func (r *Readback) State() ReadbackState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Request asks for the id at (x, y). It fails while a read is in flight.
func (r *Readback) Request(x, y int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != ReadbackIdle {
		return false
	}
	r.state = ReadbackCopy
	r.x, r.y = x, y
	return true
}

// Pending returns the texel that still needs a copy command.
func (r *Readback) Pending() (x, y int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.x, r.y, r.state == ReadbackCopy
}

// Submitted marks the copy as recorded; the buffer map is now outstanding.
func (r *Readback) Submitted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == ReadbackCopy {
		r.state = ReadbackMapping
	}
}

// Complete is called from the map callback.
func (r *Readback) Complete(value uint32, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != ReadbackMapping {
		return
	}
	if !ok {
		r.state = ReadbackIdle
		return
	}
	r.value = value
	r.state = ReadbackMapped
}

// Take returns the mapped value and rearms the state machine.
func (r *Readback) Take() (uint32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != ReadbackMapped {
		return 0, false
	}
	r.state = ReadbackIdle
	return r.value, true
}

func (r *Readback) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = ReadbackIdle
}
