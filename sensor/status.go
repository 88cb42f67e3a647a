// Package sensor implements the KATCP sensor model: typed observable
// values with status and timestamp, ordered sensor sets, and aggregate
// (derived) sensors that recompute from a target set.
package sensor

import "github.com/nasa-jpl/katcp/core"

// Status is a sensor's health/validity state, one of the seven values
// KATCP defines for #sensor-status (spec section 3).
type Status int

const (
	StatusUnknown Status = iota
	StatusNominal
	StatusWarn
	StatusError
	StatusFailure
	StatusUnreachable
	StatusInactive
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusNominal:
		return "nominal"
	case StatusWarn:
		return "warn"
	case StatusError:
		return "error"
	case StatusFailure:
		return "failure"
	case StatusUnreachable:
		return "unreachable"
	case StatusInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

func init() {
	err := core.RegisterEnum([]core.EnumVariant[Status]{
		{Value: StatusUnknown, Name: "UNKNOWN"},
		{Value: StatusNominal, Name: "NOMINAL"},
		{Value: StatusWarn, Name: "WARN"},
		{Value: StatusError, Name: "ERROR"},
		{Value: StatusFailure, Name: "FAILURE"},
		{Value: StatusUnreachable, Name: "UNREACHABLE"},
		{Value: StatusInactive, Name: "INACTIVE"},
	})
	if err != nil {
		panic(err)
	}
}
