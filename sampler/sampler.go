package sampler

import (
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/nasa-jpl/katcp/sensor"
	"github.com/nasa-jpl/katcp/util"
)

// EmitFunc delivers one #sensor-status inform for a reading on the
// sampler's owning connection.
type EmitFunc func(reading sensor.Reading) error

// Sampler is the per-(connection, sensor) state machine described in
// spec section 4.4. It attaches to its target Sensor as an observer
// (reusing the sensor package's synchronous-callback delivery, including
// the "current reading on attach" guarantee that gives strategy install
// its required replay) and, for the periodic/rate strategies, runs a
// background goroutine modeled on the disturbance-player idiom of
// signal-channel-plus-ticker.
type Sampler struct {
	target *sensor.Sensor
	emit   EmitFunc

	strategy  Strategy
	threshold float64
	period    time.Duration
	shortest  time.Duration
	longest   time.Duration

	mu           sync.Mutex
	lastReported sensor.Reading
	haveReported bool
	lastFireTime time.Time
	attached     bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a Sampler with strategy-specific parameters parsed from
// params, the argument list a ?sensor-sampling request carries after the
// strategy name (spec section 4.4's parameter table).
func New(target *sensor.Sensor, emit EmitFunc, strategy Strategy, params []string) (*Sampler, error) {
	s := &Sampler{target: target, emit: emit, strategy: strategy}
	switch strategy {
	case StrategyNone, StrategyAuto:
		if len(params) != 0 {
			return nil, fmt.Errorf("katcp: strategy %s takes no parameters", strategy)
		}
	case StrategyEvent:
		if len(params) > 2 {
			return nil, fmt.Errorf("katcp: event takes at most (shortest, longest)")
		}
		if err := s.parseRateParams(params); err != nil {
			return nil, err
		}
	case StrategyDifferential:
		if len(params) != 1 {
			return nil, fmt.Errorf("katcp: differential requires a threshold parameter")
		}
		t, err := strconv.ParseFloat(params[0], 64)
		if err != nil {
			return nil, fmt.Errorf("katcp: invalid differential threshold %q: %w", params[0], err)
		}
		s.threshold = t
	case StrategyPeriod:
		if len(params) != 1 {
			return nil, fmt.Errorf("katcp: period requires one parameter")
		}
		p, err := strconv.ParseFloat(params[0], 64)
		if err != nil || p <= 0 {
			return nil, fmt.Errorf("katcp: invalid period %q", params[0])
		}
		s.period = util.SecsToDuration(p)
	case StrategyEventRate:
		if len(params) != 2 {
			return nil, fmt.Errorf("katcp: event-rate requires (shortest, longest)")
		}
		if err := s.parseRateParams(params); err != nil {
			return nil, err
		}
	case StrategyDifferentialRate:
		if len(params) != 3 {
			return nil, fmt.Errorf("katcp: differential-rate requires (threshold, shortest, longest)")
		}
		t, err := strconv.ParseFloat(params[0], 64)
		if err != nil {
			return nil, fmt.Errorf("katcp: invalid differential-rate threshold %q: %w", params[0], err)
		}
		s.threshold = t
		if err := s.parseRateParams(params[1:]); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("katcp: unknown strategy %d", strategy)
	}
	return s, nil
}

func (s *Sampler) parseRateParams(params []string) error {
	if len(params) == 0 {
		return nil
	}
	if len(params) != 2 {
		return fmt.Errorf("katcp: rate strategies take (shortest, longest)")
	}
	shortest, err := strconv.ParseFloat(params[0], 64)
	if err != nil {
		return fmt.Errorf("katcp: invalid shortest %q: %w", params[0], err)
	}
	longest, err := strconv.ParseFloat(params[1], 64)
	if err != nil {
		return fmt.Errorf("katcp: invalid longest %q: %w", params[1], err)
	}
	if shortest > longest {
		return fmt.Errorf("katcp: shortest must be <= longest")
	}
	s.shortest = util.SecsToDuration(shortest)
	s.longest = util.SecsToDuration(longest)
	return nil
}

// Start installs the sampler: it begins observing the target sensor
// (where applicable) and spins up the background timer loops the
// periodic/rate strategies need.
func (s *Sampler) Start() {
	switch s.strategy {
	case StrategyNone:
		return
	case StrategyPeriod:
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go s.periodLoop()
		s.report(s.target.Reading())
		return
	}

	s.mu.Lock()
	s.attached = true
	s.mu.Unlock()
	s.target.Attach(s) // delivers the current reading immediately

	if s.strategy == StrategyEventRate || s.strategy == StrategyDifferentialRate {
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go s.rateForceLoop()
	}
}

// Stop tears the sampler down: pending timers are dropped without
// firing and the sensor observer link is removed (spec section 4.4).
func (s *Sampler) Stop() {
	s.mu.Lock()
	attached := s.attached
	s.attached = false
	s.mu.Unlock()
	if attached {
		s.target.Detach(s)
	}
	if s.stopCh != nil {
		close(s.stopCh)
		s.wg.Wait()
	}
}

// SensorUpdated implements sensor.Observer.
func (s *Sampler) SensorUpdated(sen *sensor.Sensor, reading sensor.Reading) {
	s.mu.Lock()
	eligible := s.eligibleLocked(reading)
	s.mu.Unlock()
	if eligible {
		s.report(reading)
	}
}

func (s *Sampler) eligibleLocked(reading sensor.Reading) bool {
	if !s.haveReported {
		return true
	}
	statusChanged := reading.Status != s.lastReported.Status
	switch s.strategy {
	case StrategyAuto:
		return true
	case StrategyEvent, StrategyEventRate:
		if statusChanged {
			return true
		}
		if s.shortest > 0 && time.Since(s.lastFireTime) < s.shortest {
			return false
		}
		return !reflect.DeepEqual(reading.Value, s.lastReported.Value)
	case StrategyDifferential, StrategyDifferentialRate:
		if statusChanged {
			return true
		}
		if s.shortest > 0 && time.Since(s.lastFireTime) < s.shortest {
			return false
		}
		newV, ok1 := toFloat(reading.Value)
		oldV, ok2 := toFloat(s.lastReported.Value)
		if !ok1 || !ok2 {
			return !reflect.DeepEqual(reading.Value, s.lastReported.Value)
		}
		diff := newV - oldV
		if diff < 0 {
			diff = -diff
		}
		return diff >= s.threshold
	default:
		return false
	}
}

func (s *Sampler) report(reading sensor.Reading) {
	s.mu.Lock()
	s.lastReported = reading
	s.haveReported = true
	s.lastFireTime = time.Now()
	s.mu.Unlock()
	s.emit(reading)
}

func (s *Sampler) periodLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.report(s.target.Reading())
		case <-s.stopCh:
			return
		}
	}
}

// rateForceLoop implements the *_RATE strategies' "forced every longest"
// behavior, modeled on the signal-channel-plus-ticker idiom used
// elsewhere in this codebase for background timing loops.
func (s *Sampler) rateForceLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.longest)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			elapsed := time.Since(s.lastFireTime)
			s.mu.Unlock()
			if elapsed >= s.longest {
				s.report(s.target.Reading())
			}
		case <-s.stopCh:
			return
		}
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case float64:
		return x, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
