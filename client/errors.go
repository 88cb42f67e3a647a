package client

import "fmt"

// InvalidReplyError is raised when a reply arrives that does not
// correspond to any outstanding request mid (spec section 7). It is
// logged and dropped; it never surfaces through Request.
type InvalidReplyError struct {
	Name string
	Mid  int
}

func (e *InvalidReplyError) Error() string {
	return fmt.Sprintf("reply %q[%d] does not match any outstanding request", e.Name, e.Mid)
}

// ConnectionLostError fails every outstanding request when the
// transport closes out from under the client (spec section 7).
type ConnectionLostError struct {
	Cause error
}

func (e *ConnectionLostError) Error() string {
	if e.Cause == nil {
		return "connection lost"
	}
	return fmt.Sprintf("connection lost: %s", e.Cause)
}

func (e *ConnectionLostError) Unwrap() error { return e.Cause }

// TimeoutError fails a request that received no reply within its
// window; the mid is retired regardless of whether a late reply
// eventually arrives.
type TimeoutError struct {
	Name string
	Mid  int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request %q[%d] timed out waiting for reply", e.Name, e.Mid)
}
