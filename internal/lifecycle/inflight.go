package lifecycle

import (
	"context"
	"sync"
)

// InFlight counts running handlers so shutdown can wait for purchase loops,
// which are never cancelled once started.
type InFlight struct {
	wg sync.WaitGroup
}

// Track marks one unit of work as started and returns its completion func.
func (f *InFlight) Track() func() {
	f.wg.Add(1)
	var once sync.Once
	return func() { once.Do(f.wg.Done) }
}

// Wait blocks until all tracked work is done or ctx expires.
func (f *InFlight) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
