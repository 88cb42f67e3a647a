// Package sampler implements the per-(connection, sensor) sampling
// strategies that turn sensor reading transitions into #sensor-status
// informs (spec section 4.4).
package sampler

import "github.com/nasa-jpl/katcp/core"

// Strategy selects when a sampler turns a sensor reading into an inform.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyAuto
	StrategyEvent
	StrategyDifferential
	StrategyPeriod
	StrategyEventRate
	StrategyDifferentialRate
)

func init() {
	err := core.RegisterEnum([]core.EnumVariant[Strategy]{
		{Value: StrategyNone, Name: "NONE"},
		{Value: StrategyAuto, Name: "AUTO"},
		{Value: StrategyEvent, Name: "EVENT"},
		{Value: StrategyDifferential, Name: "DIFFERENTIAL"},
		{Value: StrategyPeriod, Name: "PERIOD"},
		{Value: StrategyEventRate, Name: "EVENT_RATE"},
		{Value: StrategyDifferentialRate, Name: "DIFFERENTIAL_RATE"},
	})
	if err != nil {
		panic(err)
	}
}

// ParseStrategy looks up a Strategy by its wire token (e.g. "event-rate").
func ParseStrategy(token string) (Strategy, error) {
	return core.DecodeAs[Strategy]([]byte(token))
}

func (s Strategy) String() string {
	wire, err := core.Encode(s)
	if err != nil {
		return "unknown"
	}
	return string(wire)
}
