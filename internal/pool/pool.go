package pool

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Runner executes one unit of work synchronously. The pool dispatches runners
// on their own goroutines to make execution asynchronous.
type Runner interface {
	Run() error
}

// InvalidSlotError reports a Start on a slot that is still busy. Slot ids must
// come from IdleID, so hitting this is a caller bug, not a recoverable race.
type InvalidSlotError struct {
	Slot int
}

func (e *InvalidSlotError) Error() string {
	return fmt.Sprintf("slot %d is busy; slot ids must be obtained from IdleID", e.Slot)
}

type slot struct {
	runner Runner
	busy   bool
	last   time.Duration
}

// RequestPool owns a fixed set of reusable asynchronous execution slots. The
// pool is the sole owner of slot state; a single controlling goroutine drives
// it through IdleID, Start and WaitAll while dispatched work completes on the
// pool's own goroutines.
type RequestPool struct {
	mu      sync.Mutex
	slots   []slot
	idle    chan int
	pending sync.WaitGroup
	err     error
}

// New builds a pool with one slot per runner. Every slot starts idle.
func New(runners []Runner) (*RequestPool, error) {
	if len(runners) == 0 {
		return nil, fmt.Errorf("pool requires at least one runner")
	}
	p := &RequestPool{
		slots: make([]slot, len(runners)),
		idle:  make(chan int, len(runners)),
	}
	for i, r := range runners {
		if r == nil {
			return nil, fmt.Errorf("runner %d is nil", i)
		}
		p.slots[i].runner = r
		p.idle <- i
	}
	return p, nil
}

// Size returns the number of slots, fixed at construction.
func (p *RequestPool) Size() int {
	return len(p.slots)
}

// IdleID blocks until some slot is idle and returns its index. The slot stays
// idle until the caller dispatches it with Start.
func (p *RequestPool) IdleID(ctx context.Context) (int, error) {
	select {
	case id := <-p.idle:
		return id, nil
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// Start dispatches new asynchronous work on the given slot. The slot's
// completion makes it observable through IdleID again and updates Latency.
func (p *RequestPool) Start(id int) error {
	if id < 0 || id >= len(p.slots) {
		return fmt.Errorf("slot %d out of range [0,%d)", id, len(p.slots))
	}

	p.mu.Lock()
	if p.slots[id].busy {
		p.mu.Unlock()
		return &InvalidSlotError{Slot: id}
	}
	p.slots[id].busy = true
	p.mu.Unlock()

	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		start := time.Now()
		err := p.slots[id].runner.Run()
		elapsed := time.Since(start)

		p.mu.Lock()
		p.slots[id].last = elapsed
		p.slots[id].busy = false
		if err != nil && p.err == nil {
			p.err = err
		}
		p.mu.Unlock()

		p.idle <- id
	}()
	return nil
}

// WaitAll blocks until every dispatched work item has completed. Slot ids
// drained from IdleID before dispatch are already idle and do not delay it.
func (p *RequestPool) WaitAll() {
	p.pending.Wait()
}

// Latency returns the duration of the most recently completed work on the
// slot. The value is meaningful only after the slot has completed at least
// once.
func (p *RequestPool) Latency(id int) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slots[id].last
}

// Err returns the first execution error observed across all slots, if any.
func (p *RequestPool) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
