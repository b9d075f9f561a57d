package npy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Magic prefixes every .npy file.
const Magic = "\x93NUMPY"

const maxHeaderLen = 1 << 20

// maxElements bounds the element count a header may declare.
const maxElements = maxDataLen

// Header is the parsed .npy header dictionary.
type Header struct {
	Major, Minor byte
	Descr        string
	FortranOrder bool
	Shape        []int
}

// Count returns the number of elements the shape describes. Headers returned
// by ReadHeader never declare more than maxElements.
func (h Header) Count() int {
	n := 1
	for _, d := range h.Shape {
		n *= d
	}
	return n
}

// ReadHeader reads the magic, version and header dictionary from r.
func ReadHeader(r io.Reader) (Header, error) {
	var pre [8]byte
	if _, err := io.ReadFull(r, pre[:]); err != nil {
		return Header{}, fmt.Errorf("%w: read preamble: %w", ErrFormat, err)
	}
	if string(pre[:6]) != Magic {
		return Header{}, fmt.Errorf("%w: bad magic %q", ErrFormat, pre[:6])
	}
	h := Header{Major: pre[6], Minor: pre[7]}

	var hlen uint32
	switch h.Major {
	case 1:
		var b [2]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return Header{}, fmt.Errorf("%w: read header length: %w", ErrFormat, err)
		}
		hlen = uint32(binary.LittleEndian.Uint16(b[:]))
	case 2, 3:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return Header{}, fmt.Errorf("%w: read header length: %w", ErrFormat, err)
		}
		hlen = binary.LittleEndian.Uint32(b[:])
	default:
		return Header{}, fmt.Errorf("%w: version %d.%d", ErrFormat, h.Major, h.Minor)
	}
	if hlen > maxHeaderLen {
		return Header{}, fmt.Errorf("%w: header length %d", ErrFormat, hlen)
	}

	raw := make([]byte, hlen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return Header{}, fmt.Errorf("%w: read header: %w", ErrFormat, err)
	}
	if err := h.parseDict(string(bytes.TrimRight(raw, " \n\x00"))); err != nil {
		return Header{}, err
	}
	return h, nil
}

func (h *Header) parseDict(s string) error {
	p := &literalParser{s: s}
	v, err := p.value()
	if err != nil {
		return fmt.Errorf("%w: header %q: %w", ErrFormat, s, err)
	}
	dict, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: header is not a dict: %q", ErrFormat, s)
	}

	descr, ok := dict["descr"].(string)
	if !ok {
		// Structured dtypes describe fields with a list.
		return fmt.Errorf("%w: descr %v", ErrUnsupportedDType, dict["descr"])
	}
	fortran, ok := dict["fortran_order"].(bool)
	if !ok {
		return fmt.Errorf("%w: fortran_order missing", ErrFormat)
	}
	shapeVals, ok := dict["shape"].([]any)
	if !ok {
		return fmt.Errorf("%w: shape missing", ErrFormat)
	}
	shape := make([]int, len(shapeVals))
	for i, sv := range shapeVals {
		d, ok := sv.(int)
		if !ok || d < 0 || d > maxElements {
			return fmt.Errorf("%w: shape entry %v", ErrFormat, sv)
		}
		shape[i] = d
	}
	if err := checkCount(shape); err != nil {
		return err
	}

	h.Descr = descr
	h.FortranOrder = fortran
	h.Shape = shape
	return nil
}

// checkCount rejects shapes whose element count exceeds maxElements. Every
// dimension is already bounded, so the division never sees zero and the
// running product never overflows.
func checkCount(shape []int) error {
	n := 1
	for _, d := range shape {
		if d == 0 {
			return nil
		}
		if n > maxElements/d {
			return fmt.Errorf("%w: shape %v exceeds %d elements", ErrFormat, shape, maxElements)
		}
		n *= d
	}
	return nil
}

// literalParser reads the Python literal subset used by .npy headers:
// dicts with str keys, str, bool, int and tuples/lists.
type literalParser struct {
	s   string
	pos int
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.s) && strings.IndexByte(" \t\n\r", p.s[p.pos]) >= 0 {
		p.pos++
	}
}

func (p *literalParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *literalParser) expect(c byte) error {
	if p.peek() != c {
		return fmt.Errorf("expected %q at offset %d", c, p.pos)
	}
	p.pos++
	return nil
}

func (p *literalParser) value() (any, error) {
	switch c := p.peek(); {
	case c == '{':
		return p.dict()
	case c == '(':
		return p.sequence('(', ')')
	case c == '[':
		return p.sequence('[', ']')
	case c == '\'' || c == '"':
		return p.str()
	case c == '-' || (c >= '0' && c <= '9'):
		return p.integer()
	case strings.HasPrefix(p.s[p.pos:], "True"):
		p.pos += 4
		return true, nil
	case strings.HasPrefix(p.s[p.pos:], "False"):
		p.pos += 5
		return false, nil
	default:
		return nil, fmt.Errorf("unexpected input at offset %d", p.pos)
	}
}

func (p *literalParser) dict() (any, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	out := make(map[string]any)
	for {
		if p.peek() == '}' {
			p.pos++
			return out, nil
		}
		k, err := p.str()
		if err != nil {
			return nil, err
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out[k] = v
		if p.peek() == ',' {
			p.pos++
		}
	}
}

func (p *literalParser) sequence(open, closing byte) (any, error) {
	if err := p.expect(open); err != nil {
		return nil, err
	}
	out := []any{}
	for {
		if p.peek() == closing {
			p.pos++
			return out, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		switch p.peek() {
		case ',':
			p.pos++
		case closing:
		default:
			return nil, fmt.Errorf("expected ',' or %q at offset %d", closing, p.pos)
		}
	}
}

func (p *literalParser) str() (string, error) {
	q := p.peek()
	if q != '\'' && q != '"' {
		return "", fmt.Errorf("expected string at offset %d", p.pos)
	}
	end := strings.IndexByte(p.s[p.pos+1:], q)
	if end < 0 {
		return "", fmt.Errorf("unterminated string at offset %d", p.pos)
	}
	s := p.s[p.pos+1 : p.pos+1+end]
	p.pos += end + 2
	return s, nil
}

func (p *literalParser) integer() (int, error) {
	start := p.pos
	if p.s[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	// Python 2 headers wrote longs as 3L.
	lit := p.s[start:p.pos]
	if p.pos < len(p.s) && p.s[p.pos] == 'L' {
		p.pos++
	}
	v, err := strconv.Atoi(lit)
	if err != nil {
		return 0, fmt.Errorf("bad integer %q: %w", lit, err)
	}
	return v, nil
}
