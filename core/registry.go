// Package core implements the KATCP wire codec: message parsing and
// serialization, the escape alphabet, and the type-directed argument
// encode/decode registry described in spec section 4.1.
package core

import (
	"reflect"
	"sync"
)

// EncodeFunc converts a host value to the raw (unescaped) argument bytes
// that represent it on the wire.
type EncodeFunc func(value interface{}) ([]byte, error)

// DecodeFunc converts raw (already unescaped) argument bytes back to a
// host value.
type DecodeFunc func(raw []byte) (interface{}, error)

// TypeInfo is everything the registry knows about a host type: its wire
// name (used in ?sensor-list payloads), its codec functions, and its zero
// value.
type TypeInfo struct {
	HostType reflect.Type
	WireName string
	Encode   EncodeFunc
	Decode   DecodeFunc
	Default  interface{}

	// EnumTokens holds the wire tokens of an enum type's variants, in
	// declaration order, for ?sensor-list payloads (spec section 6). Nil
	// for non-enum types.
	EnumTokens []string
}

var (
	registryMu sync.RWMutex
	registry   = make(map[reflect.Type]*TypeInfo)
)

// RegisterType adds a new host type to the process-wide type registry.
// zero is any value of the host type (only its reflect.Type is used).
// Re-registering an already-registered host type is a TypeRegistryError:
// the registry is write-once-per-type, matching spec section 4.1 and the
// process-wide, write-once lifecycle called out in section 9's design
// notes.
func RegisterType(zero interface{}, wireName string, encode EncodeFunc, decode DecodeFunc, def interface{}) error {
	return registerType(zero, wireName, encode, decode, def, nil)
}

func registerType(zero interface{}, wireName string, encode EncodeFunc, decode DecodeFunc, def interface{}, enumTokens []string) error {
	t := reflect.TypeOf(zero)
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[t]; exists {
		return &TypeRegistryError{Reason: "host type " + t.String() + " is already registered"}
	}
	registry[t] = &TypeInfo{
		HostType:   t,
		WireName:   wireName,
		Encode:     encode,
		Decode:     decode,
		Default:    def,
		EnumTokens: enumTokens,
	}
	return nil
}

// GetType looks up the registered TypeInfo for the host type of zero.
func GetType(zero interface{}) (*TypeInfo, error) {
	t := reflect.TypeOf(zero)
	registryMu.RLock()
	defer registryMu.RUnlock()
	info, ok := registry[t]
	if !ok {
		return nil, &TypeRegistryError{Reason: "host type " + t.String() + " is not registered"}
	}
	return info, nil
}

// getTypeByReflect is the reflect.Type-keyed sibling of GetType, used by
// the generic DecodeAs helper where a sample value isn't in hand.
func getTypeByReflect(t reflect.Type) (*TypeInfo, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	info, ok := registry[t]
	if !ok {
		return nil, &TypeRegistryError{Reason: "host type " + t.String() + " is not registered"}
	}
	return info, nil
}

// Encode converts value to its raw wire bytes using the registered codec
// for its dynamic type.
func Encode(value interface{}) ([]byte, error) {
	info, err := GetType(value)
	if err != nil {
		return nil, err
	}
	return info.Encode(value)
}

// Decode converts raw to a value of the host type identified by zero.
func Decode(zero interface{}, raw []byte) (interface{}, error) {
	info, err := GetType(zero)
	if err != nil {
		return nil, err
	}
	return info.Decode(raw)
}

// DecodeAs is a generic convenience wrapper around Decode for call sites
// that know their target type at compile time (request argument
// unmarshaling in the server package, principally).
func DecodeAs[T any](raw []byte) (T, error) {
	var zero T
	info, err := getTypeByReflect(reflect.TypeOf(zero))
	if err != nil {
		return zero, err
	}
	v, err := info.Decode(raw)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, valueErrorf("decoded value has unexpected type %T", v)
	}
	return out, nil
}
