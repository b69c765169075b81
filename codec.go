package rowkv

import (
	"encoding/binary"
	"fmt"
)

// ColumnType identifies the on-disk scalar encoding of a column. It is the
// wire enumeration stored in a table's header block, so its values must
// stay stable across releases.
type ColumnType uint8

const (
	// TypeString is a variable-length UTF-8 string stored as a 2-byte
	// little-endian length prefix followed by up to Width-2 bytes.
	TypeString ColumnType = iota
	TypeUint32
	TypeInt32
	TypeUint16
	TypeInt16
	TypeUint8
	TypeInt8
)

var typeNames = map[ColumnType]string{
	TypeString: "string",
	TypeUint32: "uint32",
	TypeInt32:  "int32",
	TypeUint16: "uint16",
	TypeInt16:  "int16",
	TypeUint8:  "uint8",
	TypeInt8:   "int8",
}

var namesToType = func() map[string]ColumnType {
	m := make(map[string]ColumnType, len(typeNames))
	for t, n := range typeNames {
		m[n] = t
	}
	return m
}()

// typeIdOf resolves a declared type name to its wire enumeration.
func typeIdOf(name string) (ColumnType, error) {
	t, ok := namesToType[name]
	if !ok {
		return 0, fmt.Errorf("%w: unknown column type %q", ErrConfig, name)
	}
	return t, nil
}

// nameOfTypeId resolves a wire enumeration read back from a header block to
// its declared type name.
func nameOfTypeId(id ColumnType) (string, error) {
	n, ok := typeNames[id]
	if !ok {
		return "", fmt.Errorf("%w: unrecognized type id %d in header block", ErrSchemaMismatch, id)
	}
	return n, nil
}

// isFixedWidth reports whether t's on-disk width is determined entirely by
// the type tag, independent of any declared column option.
func isFixedWidth(t ColumnType) bool {
	return t != TypeString
}

// fixedWidth returns the byte width of a fixed-width integer type. It
// panics if t is TypeString; callers must check isFixedWidth first.
func fixedWidth(t ColumnType) uint16 {
	switch t {
	case TypeUint32, TypeInt32:
		return 4
	case TypeUint16, TypeInt16:
		return 2
	case TypeUint8, TypeInt8:
		return 1
	default:
		panic("rowkv: fixedWidth called on a variable-width type")
	}
}

// integerRange returns the inclusive [min, max] representable by t. Every
// bound fits in an int64, including the uint32 upper bound.
func integerRange(t ColumnType) (min, max int64) {
	switch t {
	case TypeUint32:
		return 0, 1<<32 - 1
	case TypeInt32:
		return -1 << 31, 1<<31 - 1
	case TypeUint16:
		return 0, 1<<16 - 1
	case TypeInt16:
		return -1 << 15, 1<<15 - 1
	case TypeUint8:
		return 0, 1<<8 - 1
	case TypeInt8:
		return -1 << 7, 1<<7 - 1
	default:
		panic("rowkv: integerRange called on a non-integer type")
	}
}

// canonicalize converts a caller-supplied value into this package's
// canonical in-memory representation for t: string for TypeString, int64
// for every integer type. It accepts the common Go integer types and
// float64 (as produced by encoding/json) so long as the value carries no
// fractional part.
func canonicalize(t ColumnType, v any) (any, error) {
	if t == TypeString {
		switch s := v.(type) {
		case string:
			return s, nil
		case []byte:
			return string(s), nil
		default:
			return nil, fmt.Errorf("%w: expected a string, got %T", ErrValidation, v)
		}
	}

	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > 1<<63-1 {
			return nil, fmt.Errorf("%w: value %d overflows int64", ErrValidation, n)
		}
		return int64(n), nil
	case float64:
		if n != float64(int64(n)) {
			return nil, fmt.Errorf("%w: value %v is not a whole number", ErrValidation, n)
		}
		return int64(n), nil
	default:
		return nil, fmt.Errorf("%w: expected a whole number, got %T", ErrValidation, v)
	}
}

// validate checks that a canonicalized value fits the column's declared
// type and width.
func validate(t ColumnType, width uint16, v any) error {
	if t == TypeString {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: expected canonical string, got %T", ErrValidation, v)
		}
		if width < 2 {
			return fmt.Errorf("%w: string column width %d too small for length prefix", ErrConfig, width)
		}
		if len(s) > int(width)-2 {
			return fmt.Errorf("%w: string %q (%d bytes) exceeds the %d-byte limit of a width-%d column", ErrValidation, s, len(s), width-2, width)
		}
		return nil
	}

	n, ok := v.(int64)
	if !ok {
		return fmt.Errorf("%w: expected canonical int64, got %T", ErrValidation, v)
	}
	min, max := integerRange(t)
	if n < min || n > max {
		return fmt.Errorf("%w: value %d out of range [%d, %d] for %s", ErrValidation, n, min, max, typeNames[t])
	}
	return nil
}

// write encodes a canonicalized, already-validated value into buf at
// offset. buf must have at least offset+width bytes.
func write(buf []byte, t ColumnType, v any, offset int, width uint16) {
	switch t {
	case TypeString:
		s := v.(string)
		binary.LittleEndian.PutUint16(buf[offset:], uint16(len(s)))
		copy(buf[offset+2:offset+2+len(s)], s)
	case TypeUint32:
		binary.LittleEndian.PutUint32(buf[offset:], uint32(v.(int64)))
	case TypeInt32:
		binary.LittleEndian.PutUint32(buf[offset:], uint32(int32(v.(int64))))
	case TypeUint16:
		binary.LittleEndian.PutUint16(buf[offset:], uint16(v.(int64)))
	case TypeInt16:
		binary.LittleEndian.PutUint16(buf[offset:], uint16(int16(v.(int64))))
	case TypeUint8:
		buf[offset] = uint8(v.(int64))
	case TypeInt8:
		buf[offset] = uint8(int8(v.(int64)))
	default:
		panic("rowkv: write called with unknown column type")
	}
}

// read decodes a value of type t from buf at offset, returning it in this
// package's canonical representation.
func read(buf []byte, t ColumnType, offset int, width uint16) (any, error) {
	switch t {
	case TypeString:
		if int(width) < 2 || offset+2 > len(buf) {
			return nil, fmt.Errorf("%w: string column too narrow to hold a length prefix", ErrSchemaMismatch)
		}
		n := binary.LittleEndian.Uint16(buf[offset:])
		if int(n) > int(width)-2 {
			return nil, fmt.Errorf("%w: stored string length %d exceeds the %d-byte limit of a width-%d column", ErrIO, n, width-2, width)
		}
		return string(buf[offset+2 : offset+2+int(n)]), nil
	case TypeUint32:
		return int64(binary.LittleEndian.Uint32(buf[offset:])), nil
	case TypeInt32:
		return int64(int32(binary.LittleEndian.Uint32(buf[offset:]))), nil
	case TypeUint16:
		return int64(binary.LittleEndian.Uint16(buf[offset:])), nil
	case TypeInt16:
		return int64(int16(binary.LittleEndian.Uint16(buf[offset:]))), nil
	case TypeUint8:
		return int64(buf[offset]), nil
	case TypeInt8:
		return int64(int8(buf[offset])), nil
	default:
		return nil, fmt.Errorf("%w: unknown column type id %d", ErrSchemaMismatch, t)
	}
}

// encodeColumnValue canonicalizes, validates, and encodes value into a
// freshly allocated buffer of exactly col.Width bytes.
func encodeColumnValue(col Column, value any) ([]byte, any, error) {
	canon, err := canonicalize(col.Type, value)
	if err != nil {
		return nil, nil, fmt.Errorf("column %q: %w", col.Name, err)
	}
	if err := validate(col.Type, col.Width, canon); err != nil {
		return nil, nil, fmt.Errorf("column %q: %w", col.Name, err)
	}
	buf := make([]byte, col.Width)
	write(buf, col.Type, canon, 0, col.Width)
	return buf, canon, nil
}
