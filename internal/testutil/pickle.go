package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// pickler writes the protocol 3 opcodes numpy uses for object arrays.
type pickler struct {
	buf bytes.Buffer
}

func (p *pickler) op(b ...byte) { p.buf.Write(b) }

func (p *pickler) global(module, name string) {
	p.buf.WriteByte('c')
	p.buf.WriteString(module + "\n" + name + "\n")
}

func (p *pickler) int(v int64) {
	p.buf.WriteByte('J')
	_ = binary.Write(&p.buf, binary.LittleEndian, int32(v))
}

func (p *pickler) str(s string) {
	p.buf.WriteByte('X')
	_ = binary.Write(&p.buf, binary.LittleEndian, uint32(len(s)))
	p.buf.WriteString(s)
}

func (p *pickler) bytes(b []byte) {
	p.buf.WriteByte('B')
	_ = binary.Write(&p.buf, binary.LittleEndian, uint32(len(b)))
	p.buf.Write(b)
}

func (p *pickler) float(v float64) {
	p.buf.WriteByte('G')
	_ = binary.Write(&p.buf, binary.BigEndian, math.Float64bits(v))
}

func (p *pickler) value(v any) {
	switch x := v.(type) {
	case string:
		p.str(x)
	case []byte:
		p.bytes(x)
	case float64:
		p.float(x)
	case int:
		p.int(int64(x))
	case int64:
		p.int(x)
	case bool:
		if x {
			p.op(0x88)
		} else {
			p.op(0x89)
		}
	case nil:
		p.op('N')
	case ScalarValue:
		p.scalar(x)
	default:
		panic(fmt.Sprintf("testutil: cannot pickle %T", v))
	}
}

// dtypeO pushes numpy.dtype("O8") with its state.
func (p *pickler) dtypeO() {
	p.global("numpy", "dtype")
	p.str("O8")
	p.op(0x89, 0x88, 0x87, 'R') // False, True, TUPLE3, REDUCE
	p.op('(')
	p.int(3)
	p.str("|")
	p.op('N', 'N', 'N')
	p.int(-1)
	p.int(-1)
	p.int(63)
	p.op('t', 'b')
}

// ObjectNPY encodes rows as a pickled object array, the format np.save
// produces for dtype=object.
func ObjectNPY(rows [][]any) []byte {
	w := 2
	if len(rows) > 0 {
		w = len(rows[0])
	}
	return objectNPY("numpy.core.multiarray", []int{len(rows), w}, rows)
}

// ObjectNPYNumpy2 is ObjectNPY with the module names numpy 2 writes.
func ObjectNPYNumpy2(rows [][]any) []byte {
	w := 2
	if len(rows) > 0 {
		w = len(rows[0])
	}
	return objectNPY("numpy._core.multiarray", []int{len(rows), w}, rows)
}

func objectNPY(module string, shape []int, rows [][]any) []byte {
	p := &pickler{}
	p.op(0x80, 3)
	p.global(module, "_reconstruct")
	p.global("numpy", "ndarray")
	p.int(0)
	p.op(0x85) // TUPLE1
	p.op('C', 1, 'b')
	p.op(0x87, 'R') // TUPLE3, REDUCE

	p.op('(')
	p.int(1)
	for _, d := range shape {
		p.int(int64(d))
	}
	p.op(0x86) // TUPLE2
	p.dtypeO()
	p.op(0x89) // not fortran
	p.op(']', '(')
	for _, row := range rows {
		for _, v := range row {
			p.value(v)
		}
	}
	p.op('e', 't', 'b', '.')

	var buf bytes.Buffer
	buf.Write(header("|O", false, shape))
	buf.Write(p.buf.Bytes())
	return buf.Bytes()
}

// ScalarUnicode pickles a numpy.str_ scalar the way numpy stores one
// inside an object array.
func ScalarUnicode(s string) ScalarValue {
	return ScalarValue{descr: "U", text: s}
}

// ScalarValue is an element of ObjectNPY rows that pickles as a numpy scalar.
type ScalarValue struct {
	descr string
	text  string
}

func (p *pickler) scalar(v ScalarValue) {
	rs := []rune(v.text)
	p.global("numpy.core.multiarray", "scalar")
	p.global("numpy", "dtype")
	p.str(fmt.Sprintf("%s%d", v.descr, len(rs)))
	p.op(0x89, 0x88, 0x87, 'R')
	p.op('(')
	p.int(3)
	p.str("<")
	p.op('N', 'N', 'N')
	p.int(int64(4 * len(rs)))
	p.int(4)
	p.int(8)
	p.op('t', 'b')
	payload := make([]byte, 0, 4*len(rs))
	for _, r := range rs {
		payload = binary.LittleEndian.AppendUint32(payload, uint32(r))
	}
	p.bytes(payload)
	p.op(0x86, 'R') // TUPLE2, REDUCE
}
