package apiclient

import "context"

// inflight is one registered request.  Entries are compared by pointer so a
// settling request never removes a newer request that reused its id.
type inflight struct {
	cancel context.CancelFunc
}

// register stores cancel under id, replacing any older entry.  The older
// request keeps running; it just can no longer be cancelled by id.
func (c *Client) register(id string, cancel context.CancelFunc) *inflight {
	e := &inflight{cancel: cancel}
	c.mu.Lock()
	c.pending[id] = e
	c.mu.Unlock()
	return e
}

// release removes id only while it still points at e.
func (c *Client) release(id string, e *inflight) {
	c.mu.Lock()
	if c.pending[id] == e {
		delete(c.pending, id)
	}
	c.mu.Unlock()
}

// CancelRequest aborts the in-flight request registered under id.  The call
// fails with the timeout outcome.  It reports whether a request was found;
// cancelling a settled or unknown id is a no-op.
func (c *Client) CancelRequest(id string) bool {
	c.mu.Lock()
	e, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if ok {
		e.cancel()
	}
	return ok
}

// Pending reports the number of registered in-flight requests.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
