package client

import "sync"

// Phase is the lifecycle position of one orchestrated operation.
type Phase int

const (
	Idle Phase = iota
	Pending
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a snapshot of one operation.
//
// Err is non-empty only in Failed and is cleared when a new attempt begins.
// Data is the result of the last successful attempt; a failed attempt never
// replaces it.
type State[T any] struct {
	Phase Phase
	Data  T
	Err   string
}

// Busy reports whether an attempt is in flight. Callers disable the trigger
// of the operation while it is true.
func (s State[T]) Busy() bool { return s.Phase == Pending }

// operation serialises the attempts of one orchestrator operation.
type operation[T any] struct {
	mu    sync.Mutex
	state State[T]
}

func (o *operation[T]) snapshot() State[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// begin moves the operation to Pending. It returns ErrBusy when an attempt is
// already in flight. When check fails the operation moves to Failed with the
// check's error and no attempt starts.
func (o *operation[T]) begin(check func() error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.Phase == Pending {
		return ErrBusy
	}
	if check != nil {
		if err := check(); err != nil {
			o.state.Phase = Failed
			o.state.Err = err.Error()
			return err
		}
	}
	o.state.Phase = Pending
	o.state.Err = ""
	return nil
}

func (o *operation[T]) settle(data T, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		o.state.Phase = Failed
		o.state.Err = err.Error()
		return
	}
	o.state.Phase = Succeeded
	o.state.Data = data
	o.state.Err = ""
}

// run performs one guarded attempt: begin, call, settle. The operation leaves
// Pending on every exit path; a panic inside call settles the attempt as
// failed before it propagates.
func (o *operation[T]) run(check func() error, call func() (T, error)) error {
	if err := o.begin(check); err != nil {
		return err
	}

	settled := false
	defer func() {
		if !settled {
			var zero T
			o.settle(zero, errInterrupted)
		}
	}()

	data, err := call()
	o.settle(data, err)
	settled = true
	return err
}
