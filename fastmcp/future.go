package fastmcp

import (
	"context"
	"sync"
)

// Call is the future-style handle returned by Dispatch. Synchronous handlers
// resolve it before Dispatch returns; asynchronous handlers resolve it from
// their continuation. A Call resolves exactly once.
type Call struct {
	done chan struct{}

	mu  sync.Mutex
	res DispatchResult
	set bool
}

func newCall() *Call {
	return &Call{done: make(chan struct{})}
}

// resolve records the result and closes the done channel. Later resolutions
// are discarded: a detached handler finishing after a timeout must not
// overwrite the timeout result.
func (c *Call) resolve(res DispatchResult) {
	c.mu.Lock()
	if c.set {
		c.mu.Unlock()
		return
	}
	c.res = res
	c.set = true
	c.mu.Unlock()
	close(c.done)
}

// resolved constructs an already-resolved Call, used to wrap synchronous
// outcomes in the uniform future contract.
func resolved(res DispatchResult) *Call {
	c := newCall()
	c.resolve(res)
	return c
}

// Done returns a channel closed when the call has resolved.
func (c *Call) Done() <-chan struct{} { return c.done }

// Result returns the result if the call has resolved.
func (c *Call) Result() (DispatchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.res, c.set
}

// Await blocks until the call resolves or ctx is done. On ctx expiry it
// returns a timeout-classified failure; the in-flight dispatch keeps its own
// lifecycle and is not cancelled by abandoning the wait.
func (c *Call) Await(ctx context.Context) DispatchResult {
	select {
	case <-c.done:
		res, _ := c.Result()
		return res
	case <-ctx.Done():
		return failedResult(ErrorTimeout, "dispatch wait aborted: "+ctx.Err().Error())
	}
}
