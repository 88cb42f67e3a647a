package core

import "strings"

// EnumVariant declares one member of an enumerated KATCP type: its Go
// value, its symbolic (Go-side) name, and an optional wire-byte override.
// This is the "table (variant, wire-bytes) declared alongside the enum"
// design called for in spec section 9, standing in for the reflective
// enum introspection the protocol's reference implementation relies on --
// Go constants carry no runtime name, so the table must be explicit.
type EnumVariant[T comparable] struct {
	Value T
	Name  string
	Wire  []byte
}

// toWireName derives the default wire token from a symbolic name by
// lowercasing and turning underscores into hyphens, e.g. TWO_FACE ->
// two-face (spec section 4.1).
func toWireName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "-")
}

// RegisterEnum registers an enumerated host type T with the type
// registry. variants must be non-empty and declared in the order they
// should appear in ?sensor-list payloads; the first variant is the type's
// default value. Decoding requires an exact match (case- and separator-
// sensitive) against a variant's wire token.
func RegisterEnum[T comparable](variants []EnumVariant[T]) error {
	if len(variants) == 0 {
		return &TypeRegistryError{Reason: "enum registration requires at least one variant"}
	}

	byValue := make(map[T]string, len(variants))
	byWire := make(map[string]T, len(variants))
	tokens := make([]string, len(variants))
	for i, v := range variants {
		wire := string(v.Wire)
		if wire == "" {
			wire = toWireName(v.Name)
		}
		byValue[v.Value] = wire
		byWire[wire] = v.Value
		tokens[i] = wire
	}

	encode := func(value interface{}) ([]byte, error) {
		tv, ok := value.(T)
		if !ok {
			return nil, valueErrorf("expected enum value, got %T", value)
		}
		wire, ok := byValue[tv]
		if !ok {
			return nil, valueErrorf("value %v is not a registered enum variant", tv)
		}
		return []byte(wire), nil
	}
	decode := func(raw []byte) (interface{}, error) {
		v, ok := byWire[string(raw)]
		if !ok {
			return nil, valueErrorf("%q is not a registered enum variant", raw)
		}
		return v, nil
	}

	return registerType(variants[0].Value, "discrete", encode, decode, variants[0].Value, tokens)
}
