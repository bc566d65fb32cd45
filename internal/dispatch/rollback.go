package dispatch

// rollback records how to revert the state changes of one invocation. It is
// run when the jobs planned from those changes could not be enqueued, so a
// redelivered event is judged as if it had never been seen.
type rollback struct {
	undo []func()
}

func (r *rollback) add(fn func()) {
	if r == nil || fn == nil {
		return
	}
	r.undo = append(r.undo, fn)
}

// run reverts in reverse order of recording.
func (r *rollback) run() {
	if r == nil {
		return
	}
	for i := len(r.undo) - 1; i >= 0; i-- {
		r.undo[i]()
	}
	r.undo = nil
}
