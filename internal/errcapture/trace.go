package errcapture

import "runtime"

// tracedDepth is how many program counters a traced error carries. Deeper
// frames than this are never reported anyway (MaxStackFrames).
const tracedDepth = 64

// TracedError attaches the caller stack to an error at the point it was
// observed. Plain Go errors carry no trace, so the instrumentation boundary
// wraps errors (and recovered panics) with Trace before handing them to
// Capture.
type TracedError struct {
	Err error
	pcs []uintptr
}

func (t *TracedError) Error() string { return t.Err.Error() }

// Unwrap exposes the wrapped error so errors.Is/As keep working.
func (t *TracedError) Unwrap() error { return t.Err }

// Callers returns the program counters recorded at wrap time.
func (t *TracedError) Callers() []uintptr { return t.pcs }

// Trace wraps err with the current goroutine's call stack. A nil error or an
// already-traced error is returned unchanged.
func Trace(err error) error {
	return TraceSkip(err, 2)
}

// TraceSkip is Trace with an explicit number of stack frames to skip;
// skip=2 starts at Trace's caller.
func TraceSkip(err error, skip int) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*TracedError); ok {
		return err
	}
	pcs := make([]uintptr, tracedDepth)
	n := runtime.Callers(skip+1, pcs)
	return &TracedError{Err: err, pcs: pcs[:n]}
}

// callersOf extracts recorded program counters from any error in the wrap
// chain that carries them.
func callersOf(err error) []uintptr {
	type carrier interface{ Callers() []uintptr }
	for err != nil {
		if c, ok := err.(carrier); ok {
			return c.Callers()
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = u.Unwrap()
	}
	return nil
}
