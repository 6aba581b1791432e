package workflow

import (
	"context"
	"fmt"
	"sync"
)

// Reservation is a generate or publish workflow that holds the session but has
// not run yet. Exactly one of Run or Abort takes effect; later calls are
// no-ops.
type Reservation struct {
	c     *Controller
	name  string
	count int
	exec  func(ctx context.Context) (int, error)
	// undo reverts the synchronous state changes made when reserving.
	undo func()

	once   sync.Once
	result int
}

// Name returns "generate" or "publish".
func (r *Reservation) Name() string {
	return r.name
}

// Count returns the number of platforms the workflow covers.
func (r *Reservation) Count() int {
	return r.count
}

// Run executes the reserved workflow and releases the session when done.
func (r *Reservation) Run(ctx context.Context) error {
	err := ErrReservationUsed
	r.once.Do(func() {
		defer r.c.finish()
		r.result, err = r.exec(ctx)
	})
	return err
}

// Abort releases the session without running the workflow and reverts the
// statuses set while reserving. A non-nil reason is surfaced as an error
// notice.
func (r *Reservation) Abort(reason error) {
	r.once.Do(func() {
		if r.undo != nil {
			r.undo()
		}
		r.c.finish()
		if reason != nil {
			r.c.notify(NoticeError, fmt.Sprintf("Could not start %s: %v", r.name, reason))
		}
	})
}
