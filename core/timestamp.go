package core

import (
	"strconv"
	"time"
)

// Timestamp is a KATCP timestamp: floating point seconds since the Unix
// epoch, as used by #sensor-status and sensor Readings (spec section 3).
type Timestamp float64

// Now returns the current time as a Timestamp.
func Now() Timestamp {
	return Timestamp(float64(time.Now().UnixNano()) / 1e9)
}

// Time converts the Timestamp to a time.Time.
func (t Timestamp) Time() time.Time {
	secs := float64(t)
	return time.Unix(0, int64(secs*1e9))
}

func (t Timestamp) String() string {
	return strconv.FormatFloat(float64(t), 'f', -1, 64)
}
