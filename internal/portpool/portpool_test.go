package portpool

import (
	"errors"
	"sync"
	"testing"

	"github.com/firdavsDev/online-cli/internal/proto"
)

func TestAllocateSmallestFreeFirst(t *testing.T) {
	p := New(9000, 9002)

	got, err := p.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if got != 9000 {
		t.Fatalf("got %d want 9000", got)
	}

	got2, err := p.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if got2 != 9001 {
		t.Fatalf("got %d want 9001", got2)
	}
}

func TestAllocateExhaustionReturnsErrNoPortAvailable(t *testing.T) {
	p := New(9000, 9000)

	if _, err := p.Allocate(); err != nil {
		t.Fatalf("first Allocate: %v", err)
	}
	_, err := p.Allocate()
	if !errors.Is(err, proto.ErrNoPortAvailable) {
		t.Fatalf("got %v want ErrNoPortAvailable", err)
	}
}

func TestReleaseMakesPortAvailableAgain(t *testing.T) {
	p := New(9000, 9000)

	port, err := p.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	p.Release(port)

	got, err := p.Allocate()
	if err != nil {
		t.Fatalf("Allocate after release: %v", err)
	}
	if got != port {
		t.Fatalf("got %d want %d", got, port)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	p := New(9000, 9000)
	port, _ := p.Allocate()
	p.Release(port)
	p.Release(port) // should not panic or double-count

	if got := p.InUseCount(); got != 0 {
		t.Fatalf("got InUseCount %d want 0", got)
	}
}

func TestReleaseOfNeverAllocatedPortIsNoOp(t *testing.T) {
	p := New(9000, 9002)
	p.Release(9001) // never allocated
	if got := p.InUseCount(); got != 0 {
		t.Fatalf("got InUseCount %d want 0", got)
	}
}

func TestCapacityAndInUseCount(t *testing.T) {
	p := New(9000, 9004)
	if got := p.Capacity(); got != 5 {
		t.Fatalf("got Capacity %d want 5", got)
	}
	p.Allocate()
	p.Allocate()
	if got := p.InUseCount(); got != 2 {
		t.Fatalf("got InUseCount %d want 2", got)
	}
}

func TestAllocateConcurrentNeverDoubleAssigns(t *testing.T) {
	p := New(9000, 9099)
	seen := make(map[int]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			port, err := p.Allocate()
			if err != nil {
				t.Errorf("Allocate: %v", err)
				return
			}
			mu.Lock()
			if seen[port] {
				t.Errorf("port %d allocated twice", port)
			}
			seen[port] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
}
