package feed

import "golang.org/x/sync/errgroup"

// Dispatcher runs tasks on at most workers goroutines. Go blocks while every
// worker is busy.
type Dispatcher struct {
	g errgroup.Group
}

func NewDispatcher(workers int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{}
	d.g.SetLimit(workers)
	return d
}

func (d *Dispatcher) Go(task func()) {
	d.g.Go(func() error {
		task()
		return nil
	})
}

// Wait blocks until every dispatched task has returned.
func (d *Dispatcher) Wait() {
	_ = d.g.Wait()
}
