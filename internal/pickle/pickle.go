// Package pickle decodes the subset of the Python pickle format that numpy
// emits when it saves object arrays into .npy files.
//
// Decoding never executes code. Globals and reduce calls are returned as
// inert values (Global, *Object) for the caller to interpret.
package pickle

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrUnsupported is returned for opcodes outside the supported subset.
	ErrUnsupported = errors.New("pickle: unsupported opcode")
	// ErrCorrupt is returned for streams that violate the pickle machine rules.
	ErrCorrupt = errors.New("pickle: corrupt stream")
)

// Global is a reference to a module-level Python name (GLOBAL / STACK_GLOBAL).
type Global struct {
	Module string
	Name   string
}

func (g Global) String() string { return g.Module + "." + g.Name }

// Tuple is an immutable Python tuple.
type Tuple []any

// List is a Python list. It is a pointer so APPEND after memoization is visible
// through every reference.
type List struct {
	Items []any
}

// Dict is a Python dict with insertion order kept.
type Dict struct {
	Keys   []any
	Values []any
}

// Object is the result of REDUCE, NEWOBJ or NEWOBJ_EX: a call that was not
// executed. BUILD stores its argument in State.
type Object struct {
	Callable any
	Args     Tuple
	State    any
}

type mark struct{}

const maxAlloc = 1 << 30

// Decode reads one pickle from r and returns its top-level value.
func Decode(r io.Reader) (any, error) {
	d := &decoder{r: bufio.NewReader(r), memo: make(map[uint64]any)}
	return d.run()
}

type decoder struct {
	r     *bufio.Reader
	stack []any
	memo  map[uint64]any
}

func (d *decoder) push(v any) { d.stack = append(d.stack, v) }

func (d *decoder) pop() (any, error) {
	if len(d.stack) == 0 {
		return nil, fmt.Errorf("%w: stack underflow", ErrCorrupt)
	}
	v := d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]
	if _, ok := v.(mark); ok {
		return nil, fmt.Errorf("%w: unexpected mark", ErrCorrupt)
	}
	return v, nil
}

func (d *decoder) top() (any, error) {
	if len(d.stack) == 0 {
		return nil, fmt.Errorf("%w: stack underflow", ErrCorrupt)
	}
	return d.stack[len(d.stack)-1], nil
}

// popMark returns the items pushed since the last MARK and removes the mark.
func (d *decoder) popMark() ([]any, error) {
	for i := len(d.stack) - 1; i >= 0; i-- {
		if _, ok := d.stack[i].(mark); ok {
			items := make([]any, len(d.stack)-i-1)
			copy(items, d.stack[i+1:])
			d.stack = d.stack[:i]
			return items, nil
		}
	}
	return nil, fmt.Errorf("%w: mark not found", ErrCorrupt)
}

func (d *decoder) readN(n uint64) ([]byte, error) {
	if n > maxAlloc {
		return nil, fmt.Errorf("%w: length %d too large", ErrCorrupt, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, fmt.Errorf("pickle: read: %w", err)
	}
	return buf, nil
}

func (d *decoder) readUint(size int) (uint64, error) {
	b, err := d.readN(uint64(size))
	if err != nil {
		return 0, err
	}
	switch size {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(b)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(b)), nil
	default:
		return binary.LittleEndian.Uint64(b), nil
	}
}

func (d *decoder) readLine() (string, error) {
	line, err := d.r.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("pickle: read line: %w", err)
	}
	return strings.TrimSuffix(line, "\n"), nil
}

func (d *decoder) run() (any, error) {
	for {
		op, err := d.r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("pickle: read opcode: %w", err)
		}
		if op == opStop {
			v, err := d.pop()
			if err != nil {
				return nil, err
			}
			return v, nil
		}
		if err := d.step(op); err != nil {
			return nil, err
		}
	}
}
