package sensor

import (
	"fmt"

	"github.com/nasa-jpl/katcp/core"
)

// ZeroValueForWireType maps a KATCP wire type token, as used in a
// configuration file's sensor declarations, to the Go zero value
// NewSensor expects for that type.
func ZeroValueForWireType(wireType string) (interface{}, error) {
	switch wireType {
	case "integer":
		return int(0), nil
	case "float":
		return float64(0), nil
	case "boolean":
		return false, nil
	case "string":
		return "", nil
	case "buffer":
		return []byte(nil), nil
	case "timestamp":
		return core.Timestamp(0), nil
	case "address":
		return core.Address{}, nil
	default:
		return nil, fmt.Errorf("katcp: unknown sensor wire type %q", wireType)
	}
}
