package sensor

import "github.com/nasa-jpl/katcp/core"

// Reading is a sensor's value together with the status and timestamp it
// was captured under (spec section 3).
type Reading struct {
	Timestamp core.Timestamp
	Status    Status
	Value     interface{}
}
