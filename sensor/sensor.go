package sensor

import (
	"reflect"
	"sync"

	"github.com/nasa-jpl/katcp/core"
)

// Observer is notified of a Sensor's readings. Attach delivers one
// immediate callback with the current reading, then one callback per
// subsequent accepted SetValue (spec section 4.2).
type Observer interface {
	SensorUpdated(s *Sensor, reading Reading)
}

// Sensor is a named, typed observable cell: the current Reading plus
// enough type information to describe itself on ?sensor-list (spec
// section 3).
type Sensor struct {
	name        string
	description string
	units       string
	wireName    string
	enumTokens  []string
	valueType   reflect.Type

	mu        sync.Mutex
	reading   Reading
	observers []Observer
}

// NewSensor builds a Sensor of the host type of zero, which must already
// be registered with the core type registry. The initial reading has
// StatusUnknown and zero's value.
func NewSensor(name, description, units string, zero interface{}) (*Sensor, error) {
	info, err := core.GetType(zero)
	if err != nil {
		return nil, err
	}
	return &Sensor{
		name:        name,
		description: description,
		units:       units,
		wireName:    info.WireName,
		enumTokens:  info.EnumTokens,
		valueType:   info.HostType,
		reading: Reading{
			Timestamp: core.Now(),
			Status:    StatusUnknown,
			Value:     zero,
		},
	}, nil
}

func (s *Sensor) Name() string          { return s.name }
func (s *Sensor) Description() string   { return s.description }
func (s *Sensor) Units() string         { return s.units }
func (s *Sensor) WireType() string      { return s.wireName }
func (s *Sensor) EnumTokens() []string  { return s.enumTokens }
func (s *Sensor) ValueType() reflect.Type { return s.valueType }

// Reading returns the sensor's current reading.
func (s *Sensor) Reading() Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reading
}

// SetValue updates the reading. Observers are notified only if the value
// changed, the status changed, or the timestamp advanced past the
// previous reading's (spec section 4.2); notification is synchronous,
// on the caller's goroutine.
func (s *Sensor) SetValue(value interface{}, status Status, timestamp core.Timestamp) {
	s.mu.Lock()
	old := s.reading
	changed := !reflect.DeepEqual(old.Value, value) || old.Status != status || timestamp > old.Timestamp
	reading := Reading{Timestamp: timestamp, Status: status, Value: value}
	s.reading = reading
	observers := s.observers
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, o := range observers {
		o.SensorUpdated(s, reading)
	}
}

// Attach registers an observer and immediately delivers the current
// reading to it (spec section 4.2). Attaching the same observer twice is
// a no-op.
func (s *Sensor) Attach(o Observer) {
	s.mu.Lock()
	for _, existing := range s.observers {
		if existing == o {
			s.mu.Unlock()
			return
		}
	}
	s.observers = append(s.observers, o)
	reading := s.reading
	s.mu.Unlock()

	o.SensorUpdated(s, reading)
}

// Detach removes an observer. Detaching an observer that was never
// attached is a no-op.
func (s *Sensor) Detach(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.observers {
		if existing == o {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}
