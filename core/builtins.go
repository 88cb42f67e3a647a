package core

import (
	"strconv"
	"unicode/utf8"
)

func init() {
	mustRegister(int(0), "integer",
		func(v interface{}) ([]byte, error) {
			return []byte(strconv.FormatInt(int64(v.(int)), 10)), nil
		},
		func(raw []byte) (interface{}, error) {
			n, err := strconv.ParseInt(string(raw), 10, 64)
			if err != nil {
				return nil, valueErrorf("invalid integer %q: %s", raw, err)
			}
			return int(n), nil
		},
		0,
	)

	mustRegister(float64(0), "float",
		func(v interface{}) ([]byte, error) {
			return []byte(strconv.FormatFloat(v.(float64), 'g', -1, 64)), nil
		},
		func(raw []byte) (interface{}, error) {
			if len(raw) == 0 {
				return nil, valueErrorf("empty float")
			}
			f, err := strconv.ParseFloat(string(raw), 64)
			if err != nil {
				return nil, valueErrorf("invalid float %q: %s", raw, err)
			}
			return f, nil
		},
		float64(0),
	)

	mustRegister(false, "boolean",
		func(v interface{}) ([]byte, error) {
			if v.(bool) {
				return []byte("1"), nil
			}
			return []byte("0"), nil
		},
		func(raw []byte) (interface{}, error) {
			switch string(raw) {
			case "1":
				return true, nil
			case "0":
				return false, nil
			default:
				return nil, valueErrorf("invalid boolean %q, must be 1 or 0", raw)
			}
		},
		false,
	)

	mustRegister("", "string",
		func(v interface{}) ([]byte, error) {
			return []byte(v.(string)), nil
		},
		func(raw []byte) (interface{}, error) {
			if !utf8.Valid(raw) {
				return nil, valueErrorf("invalid UTF-8 text %q", raw)
			}
			return string(raw), nil
		},
		"",
	)

	mustRegister([]byte(nil), "buffer",
		func(v interface{}) ([]byte, error) {
			return v.([]byte), nil
		},
		func(raw []byte) (interface{}, error) {
			out := make([]byte, len(raw))
			copy(out, raw)
			return out, nil
		},
		[]byte{},
	)

	mustRegister(Timestamp(0), "timestamp",
		func(v interface{}) ([]byte, error) {
			return []byte(v.(Timestamp).String()), nil
		},
		func(raw []byte) (interface{}, error) {
			if len(raw) == 0 {
				return nil, valueErrorf("empty timestamp")
			}
			f, err := strconv.ParseFloat(string(raw), 64)
			if err != nil {
				return nil, valueErrorf("invalid timestamp %q: %s", raw, err)
			}
			return Timestamp(f), nil
		},
		Timestamp(0),
	)

	mustRegister(Address{}, "address",
		func(v interface{}) ([]byte, error) {
			return []byte(v.(Address).String()), nil
		},
		func(raw []byte) (interface{}, error) {
			addr, err := ParseAddress(string(raw))
			if err != nil {
				return nil, err
			}
			return addr, nil
		},
		Address{},
	)
}

// mustRegister registers a built-in base type at package init time; a
// failure here is a programming error in this package, not something a
// caller can react to.
func mustRegister(zero interface{}, wireName string, encode EncodeFunc, decode DecodeFunc, def interface{}) {
	if err := RegisterType(zero, wireName, encode, decode, def); err != nil {
		panic(err)
	}
}
