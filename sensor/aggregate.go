package sensor

import "sync"

// UpdateFunc recomputes an aggregate sensor's reading. It is called once
// at construction with updated == nil (compute over the current
// membership), and thereafter once per add/remove/change of a matching
// member sensor, with exactly one of newReading/oldReading present for an
// add or remove and both present for a value change (spec section 4.3).
type UpdateFunc func(agg *AggregateSensor, updated *Sensor, newReading, oldReading *Reading) Reading

// AggregateSensor is a Sensor whose reading is derived from a target
// SensorSet: it observes set membership and per-sensor readings, and
// recomputes through an UpdateFunc on every relevant event (spec section
// 4.3). It excludes itself from its own membership to avoid an observer
// cycle when it lives inside the set it watches (spec section 9).
type AggregateSensor struct {
	*Sensor

	target *SensorSet
	filter func(*Sensor) bool
	update UpdateFunc

	mu           sync.Mutex
	members      map[string]*Sensor
	lastReading  map[string]Reading
	initializing bool
}

// NewAggregateSensor builds an AggregateSensor over target, attaching to
// every current and future member sensor that both passes filter (nil
// means "no filter") and is not the aggregate itself.
func NewAggregateSensor(name, description, units string, zero interface{}, target *SensorSet, filter func(*Sensor) bool, updateFn UpdateFunc) (*AggregateSensor, error) {
	base, err := NewSensor(name, description, units, zero)
	if err != nil {
		return nil, err
	}
	a := &AggregateSensor{
		Sensor:      base,
		target:      target,
		filter:      filter,
		update:      updateFn,
		members:     make(map[string]*Sensor),
		lastReading: make(map[string]Reading),
	}

	a.mu.Lock()
	a.initializing = true
	a.mu.Unlock()

	target.AttachObserver(a)
	for _, s := range target.List() {
		if a.matches(s) {
			a.mu.Lock()
			a.members[s.Name()] = s
			a.mu.Unlock()
			s.Attach(a)
		}
	}

	a.mu.Lock()
	a.initializing = false
	a.mu.Unlock()

	initial := a.update(a, nil, nil, nil)
	a.Sensor.SetValue(initial.Value, initial.Status, initial.Timestamp)
	return a, nil
}

func (a *AggregateSensor) matches(s *Sensor) bool {
	if s.Name() == a.Name() {
		return false
	}
	return a.filter == nil || a.filter(s)
}

// Members returns the sensors currently contributing to the aggregate.
func (a *AggregateSensor) Members() []*Sensor {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Sensor, 0, len(a.members))
	for _, s := range a.members {
		out = append(out, s)
	}
	return out
}

// SensorAdded implements SetObserver: a newly added matching sensor is
// attached, which synchronously delivers its current reading as an add
// event to SensorUpdated.
func (a *AggregateSensor) SensorAdded(s *Sensor) {
	if !a.matches(s) {
		return
	}
	a.mu.Lock()
	a.members[s.Name()] = s
	a.mu.Unlock()
	s.Attach(a)
}

// SensorRemoved implements SetObserver: a removed member is detached and
// the aggregate recomputes with its last known reading as the departing
// value.
func (a *AggregateSensor) SensorRemoved(s *Sensor) {
	a.mu.Lock()
	_, wasMember := a.members[s.Name()]
	delete(a.members, s.Name())
	old, hadOld := a.lastReading[s.Name()]
	delete(a.lastReading, s.Name())
	a.mu.Unlock()
	if !wasMember {
		return
	}
	s.Detach(a)

	var oldPtr *Reading
	if hadOld {
		oldPtr = &old
	}
	newReading := a.update(a, s, nil, oldPtr)
	a.Sensor.SetValue(newReading.Value, newReading.Status, newReading.Timestamp)
}

// SensorUpdated implements Observer for each member sensor: it is called
// once immediately on Attach (an add event, with no prior reading) and
// again on every subsequent accepted SetValue.
func (a *AggregateSensor) SensorUpdated(s *Sensor, reading Reading) {
	a.mu.Lock()
	old, hadOld := a.lastReading[s.Name()]
	a.lastReading[s.Name()] = reading
	initializing := a.initializing
	a.mu.Unlock()
	if initializing {
		return
	}

	var oldPtr *Reading
	if hadOld {
		oldPtr = &old
	}
	newReading := a.update(a, s, &reading, oldPtr)
	a.Sensor.SetValue(newReading.Value, newReading.Status, newReading.Timestamp)
}
