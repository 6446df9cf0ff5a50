// Package portpool hands out unique public TCP ports to sessions from a
// bounded range.
package portpool

import (
	"sort"
	"sync"

	"github.com/firdavsDev/online-cli/internal/proto"
)

// Pool is a mutex-guarded set of free/in-use ports over [min, max]. All
// operations are serialized; contention is trivial at human-scale client
// counts.
type Pool struct {
	mu    sync.Mutex
	min   int
	max   int
	free  map[int]struct{}
	inUse map[int]struct{}
}

// New creates a pool covering [min, max] inclusive. Panics if max < min,
// which is a configuration error the CLI layer should catch before this is
// ever called.
func New(min, max int) *Pool {
	if max < min {
		panic("portpool: max < min")
	}
	free := make(map[int]struct{}, max-min+1)
	for p := min; p <= max; p++ {
		free[p] = struct{}{}
	}
	return &Pool{min: min, max: max, free: free, inUse: make(map[int]struct{})}
}

// Allocate returns the smallest free port, or proto.ErrNoPortAvailable if
// the pool is exhausted. The deterministic tie-break aids testing and log
// readability.
func (p *Pool) Allocate() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) == 0 {
		return 0, proto.ErrNoPortAvailable
	}

	ports := make([]int, 0, len(p.free))
	for port := range p.free {
		ports = append(ports, port)
	}
	sort.Ints(ports)

	port := ports[0]
	delete(p.free, port)
	p.inUse[port] = struct{}{}
	return port, nil
}

// Release returns port to the free set. Idempotent: releasing an
// already-free port is a no-op.
func (p *Pool) Release(port int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.inUse[port]; !ok {
		return
	}
	delete(p.inUse, port)
	p.free[port] = struct{}{}
}

// InUseCount reports how many ports are currently allocated.
func (p *Pool) InUseCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inUse)
}

// Capacity returns the total number of ports the pool manages.
func (p *Pool) Capacity() int {
	return p.max - p.min + 1
}
