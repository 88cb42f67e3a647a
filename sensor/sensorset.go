package sensor

import (
	"fmt"
	"regexp"
	"sync"
)

// SetObserver is notified when a Sensor is added to or removed from a
// SensorSet (spec section 4.3).
type SetObserver interface {
	SensorAdded(s *Sensor)
	SensorRemoved(s *Sensor)
}

// SensorSet is an ordered name -> Sensor mapping. Insertion order is
// preserved for ?sensor-list output (spec section 3).
type SensorSet struct {
	mu        sync.Mutex
	order     []string
	sensors   map[string]*Sensor
	observers []SetObserver
}

// NewSensorSet builds an empty SensorSet.
func NewSensorSet() *SensorSet {
	return &SensorSet{sensors: make(map[string]*Sensor)}
}

// Add inserts s, failing if its name is already present.
func (set *SensorSet) Add(s *Sensor) error {
	set.mu.Lock()
	if _, exists := set.sensors[s.name]; exists {
		set.mu.Unlock()
		return fmt.Errorf("katcp: sensor %q already exists", s.name)
	}
	set.sensors[s.name] = s
	set.order = append(set.order, s.name)
	observers := append([]SetObserver(nil), set.observers...)
	set.mu.Unlock()

	for _, o := range observers {
		o.SensorAdded(s)
	}
	return nil
}

// Remove deletes the sensor named name, if present, and notifies set
// observers.
func (set *SensorSet) Remove(name string) (*Sensor, bool) {
	set.mu.Lock()
	s, exists := set.sensors[name]
	if !exists {
		set.mu.Unlock()
		return nil, false
	}
	delete(set.sensors, name)
	for i, n := range set.order {
		if n == name {
			set.order = append(set.order[:i], set.order[i+1:]...)
			break
		}
	}
	observers := append([]SetObserver(nil), set.observers...)
	set.mu.Unlock()

	for _, o := range observers {
		o.SensorRemoved(s)
	}
	return s, true
}

// Get looks up a sensor by exact name.
func (set *SensorSet) Get(name string) (*Sensor, bool) {
	set.mu.Lock()
	defer set.mu.Unlock()
	s, ok := set.sensors[name]
	return s, ok
}

// List returns every sensor in insertion order.
func (set *SensorSet) List() []*Sensor {
	set.mu.Lock()
	defer set.mu.Unlock()
	out := make([]*Sensor, len(set.order))
	for i, name := range set.order {
		out[i] = set.sensors[name]
	}
	return out
}

// Match resolves a ?sensor-list/?sensor-value pattern (spec section
// 4.6). If a sensor's name equals pattern exactly, only that sensor is
// returned; otherwise every sensor whose name matches pattern as an
// unanchored regular expression is returned, in insertion order. An
// empty pattern matches every sensor.
func (set *SensorSet) Match(pattern string) ([]*Sensor, error) {
	if pattern == "" {
		return set.List(), nil
	}
	if s, ok := set.Get(pattern); ok {
		return []*Sensor{s}, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("katcp: invalid sensor pattern %q: %w", pattern, err)
	}
	var out []*Sensor
	for _, s := range set.List() {
		if re.MatchString(s.name) {
			out = append(out, s)
		}
	}
	return out, nil
}

// AttachObserver registers o for subsequent Add/Remove notifications. It
// does not replay existing members; callers that need the current
// membership should call List first.
func (set *SensorSet) AttachObserver(o SetObserver) {
	set.mu.Lock()
	defer set.mu.Unlock()
	for _, existing := range set.observers {
		if existing == o {
			return
		}
	}
	set.observers = append(set.observers, o)
}

// DetachObserver removes a previously attached observer.
func (set *SensorSet) DetachObserver(o SetObserver) {
	set.mu.Lock()
	defer set.mu.Unlock()
	for i, existing := range set.observers {
		if existing == o {
			set.observers = append(set.observers[:i], set.observers[i+1:]...)
			return
		}
	}
}
