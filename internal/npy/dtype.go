package npy

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"
)

var (
	// ErrFormat is returned for input that is not a valid .npy stream.
	ErrFormat = errors.New("npy: invalid format")
	// ErrUnsupportedDType is returned for dtypes the decoder does not handle.
	ErrUnsupportedDType = errors.New("npy: unsupported dtype")
)

// DType is a parsed array-protocol type string such as "<f8" or "|S12".
type DType struct {
	Order binary.ByteOrder
	Kind  byte // b, i, u, f, S, U, O
	Size  int  // bytes per element for numbers, characters for S and U
}

// ParseDType parses a numpy descr string.
func ParseDType(descr string) (DType, error) {
	if descr == "" {
		return DType{}, fmt.Errorf("%w: empty descr", ErrUnsupportedDType)
	}
	dt := DType{Order: binary.LittleEndian}
	s := descr
	switch s[0] {
	case '<', '|', '=':
		s = s[1:]
	case '>':
		dt.Order = binary.BigEndian
		s = s[1:]
	}
	if s == "" {
		return DType{}, fmt.Errorf("%w: %q", ErrUnsupportedDType, descr)
	}
	dt.Kind = s[0]
	size := 0
	if len(s) > 1 {
		n, err := strconv.Atoi(s[1:])
		if err != nil {
			return DType{}, fmt.Errorf("%w: %q", ErrUnsupportedDType, descr)
		}
		size = n
	}
	dt.Size = size

	switch dt.Kind {
	case 'b':
		if size != 1 {
			return DType{}, fmt.Errorf("%w: %q", ErrUnsupportedDType, descr)
		}
	case 'i', 'u':
		if size != 1 && size != 2 && size != 4 && size != 8 {
			return DType{}, fmt.Errorf("%w: %q", ErrUnsupportedDType, descr)
		}
	case 'f':
		if size != 4 && size != 8 {
			return DType{}, fmt.Errorf("%w: %q", ErrUnsupportedDType, descr)
		}
	case 'S', 'U':
		if size < 1 {
			return DType{}, fmt.Errorf("%w: %q", ErrUnsupportedDType, descr)
		}
	case 'O':
	default:
		return DType{}, fmt.Errorf("%w: %q", ErrUnsupportedDType, descr)
	}
	return dt, nil
}

// Numeric reports whether elements decode to float64.
func (dt DType) Numeric() bool {
	switch dt.Kind {
	case 'b', 'i', 'u', 'f':
		return true
	}
	return false
}

// Text reports whether elements decode to strings.
func (dt DType) Text() bool { return dt.Kind == 'S' || dt.Kind == 'U' }

// ItemSize returns the width of one element in bytes. Object arrays have none.
func (dt DType) ItemSize() int {
	if dt.Kind == 'U' {
		return 4 * dt.Size
	}
	return dt.Size
}

// decodeFloats decodes count numeric elements.
func (dt DType) decodeFloats(data []byte, count int) ([]float64, error) {
	size := dt.ItemSize()
	if len(data) != size*count {
		return nil, fmt.Errorf("%w: data has %d bytes, want %d", ErrFormat, len(data), size*count)
	}
	out := make([]float64, count)
	for i := range out {
		v, err := dt.decodeFloat(data[i*size : (i+1)*size])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (dt DType) decodeFloat(b []byte) (float64, error) {
	o := dt.Order
	switch dt.Kind {
	case 'b':
		if b[0] != 0 {
			return 1, nil
		}
		return 0, nil
	case 'f':
		if dt.Size == 4 {
			return float64(math.Float32frombits(o.Uint32(b))), nil
		}
		return math.Float64frombits(o.Uint64(b)), nil
	case 'i':
		switch dt.Size {
		case 1:
			return float64(int8(b[0])), nil
		case 2:
			return float64(int16(o.Uint16(b))), nil
		case 4:
			return float64(int32(o.Uint32(b))), nil
		default:
			return float64(int64(o.Uint64(b))), nil
		}
	case 'u':
		switch dt.Size {
		case 1:
			return float64(b[0]), nil
		case 2:
			return float64(o.Uint16(b)), nil
		case 4:
			return float64(o.Uint32(b)), nil
		default:
			return float64(o.Uint64(b)), nil
		}
	}
	return 0, fmt.Errorf("%w: kind %q is not numeric", ErrUnsupportedDType, dt.Kind)
}

// decodeInts decodes count integer elements exactly. ok is false for
// non-integer kinds and for u8 values above math.MaxInt64.
func (dt DType) decodeInts(data []byte, count int) (out []int64, ok bool) {
	if dt.Kind != 'i' && dt.Kind != 'u' {
		return nil, false
	}
	size := dt.ItemSize()
	if len(data) != size*count {
		return nil, false
	}
	o := dt.Order
	out = make([]int64, count)
	for i := range out {
		b := data[i*size : (i+1)*size]
		switch {
		case dt.Kind == 'i' && size == 1:
			out[i] = int64(int8(b[0]))
		case dt.Kind == 'i' && size == 2:
			out[i] = int64(int16(o.Uint16(b)))
		case dt.Kind == 'i' && size == 4:
			out[i] = int64(int32(o.Uint32(b)))
		case dt.Kind == 'i':
			out[i] = int64(o.Uint64(b))
		case size == 1:
			out[i] = int64(b[0])
		case size == 2:
			out[i] = int64(o.Uint16(b))
		case size == 4:
			out[i] = int64(o.Uint32(b))
		default:
			u := o.Uint64(b)
			if u > math.MaxInt64 {
				return nil, false
			}
			out[i] = int64(u)
		}
	}
	return out, true
}

// decodeStrings decodes count fixed-width string elements.
func (dt DType) decodeStrings(data []byte, count int) ([]string, error) {
	size := dt.ItemSize()
	if len(data) != size*count {
		return nil, fmt.Errorf("%w: data has %d bytes, want %d", ErrFormat, len(data), size*count)
	}
	out := make([]string, count)
	for i := range out {
		s, err := dt.decodeString(data[i*size : (i+1)*size])
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (dt DType) decodeString(b []byte) (string, error) {
	switch dt.Kind {
	case 'S':
		end := len(b)
		for end > 0 && b[end-1] == 0 {
			end--
		}
		return string(b[:end]), nil
	case 'U':
		end := len(b) - len(b)%4
		for end >= 4 && dt.Order.Uint32(b[end-4:]) == 0 {
			end -= 4
		}
		buf := make([]byte, 0, end/4)
		for i := 0; i < end; i += 4 {
			r := rune(dt.Order.Uint32(b[i:]))
			if !utf8.ValidRune(r) {
				return "", fmt.Errorf("%w: invalid code point %#x", ErrFormat, r)
			}
			buf = utf8.AppendRune(buf, r)
		}
		return string(buf), nil
	}
	return "", fmt.Errorf("%w: kind %q is not text", ErrUnsupportedDType, dt.Kind)
}
