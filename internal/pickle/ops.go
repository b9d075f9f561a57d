package pickle

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

const (
	opMark           = '('
	opStop           = '.'
	opPop            = '0'
	opPopMark        = '1'
	opDup            = '2'
	opFloat          = 'F'
	opInt            = 'I'
	opBinInt         = 'J'
	opBinInt1        = 'K'
	opLong           = 'L'
	opBinInt2        = 'M'
	opNone           = 'N'
	opReduce         = 'R'
	opBinString      = 'T'
	opShortBinString = 'U'
	opBinUnicode     = 'X'
	opAppend         = 'a'
	opBuild          = 'b'
	opGlobal         = 'c'
	opDict           = 'd'
	opEmptyDict      = '}'
	opAppends        = 'e'
	opGet            = 'g'
	opBinGet         = 'h'
	opLongBinGet     = 'j'
	opList           = 'l'
	opEmptyList      = ']'
	opPut            = 'p'
	opBinPut         = 'q'
	opLongBinPut     = 'r'
	opSetItem        = 's'
	opTuple          = 't'
	opEmptyTuple     = ')'
	opSetItems       = 'u'
	opBinFloat       = 'G'
	opBinBytes       = 'B'
	opShortBinBytes  = 'C'

	opProto       = 0x80
	opNewObj      = 0x81
	opTuple1      = 0x85
	opTuple2      = 0x86
	opTuple3      = 0x87
	opNewTrue     = 0x88
	opNewFalse    = 0x89
	opLong1       = 0x8a
	opLong4       = 0x8b
	opShortBinUni = 0x8c
	opBinUnicode8 = 0x8d
	opBinBytes8   = 0x8e
	opNewObjEx    = 0x92
	opStackGlobal = 0x93
	opMemoize     = 0x94
	opFrame       = 0x95
	opByteArray8  = 0x96
)

const highestProtocol = 5

//nolint:gocyclo // one case per opcode
func (d *decoder) step(op byte) error {
	switch op {
	case opProto:
		v, err := d.readUint(1)
		if err != nil {
			return err
		}
		if v > highestProtocol {
			return fmt.Errorf("%w: protocol %d", ErrUnsupported, v)
		}
	case opFrame:
		if _, err := d.readUint(8); err != nil {
			return err
		}

	case opMark:
		d.push(mark{})
	case opPop:
		if _, err := d.pop(); err != nil {
			return err
		}
	case opPopMark:
		if _, err := d.popMark(); err != nil {
			return err
		}
	case opDup:
		v, err := d.top()
		if err != nil {
			return err
		}
		d.push(v)

	case opNone:
		d.push(nil)
	case opNewTrue:
		d.push(true)
	case opNewFalse:
		d.push(false)

	case opInt:
		line, err := d.readLine()
		if err != nil {
			return err
		}
		switch line {
		case "01":
			d.push(true)
		case "00":
			d.push(false)
		default:
			v, err := strconv.ParseInt(line, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: INT %q", ErrCorrupt, line)
			}
			d.push(v)
		}
	case opLong:
		line, err := d.readLine()
		if err != nil {
			return err
		}
		b, ok := new(big.Int).SetString(strings.TrimSuffix(line, "L"), 10)
		if !ok {
			return fmt.Errorf("%w: LONG %q", ErrCorrupt, line)
		}
		d.push(normalizeInt(b))
	case opBinInt:
		v, err := d.readUint(4)
		if err != nil {
			return err
		}
		d.push(int64(int32(uint32(v))))
	case opBinInt1:
		v, err := d.readUint(1)
		if err != nil {
			return err
		}
		d.push(int64(v))
	case opBinInt2:
		v, err := d.readUint(2)
		if err != nil {
			return err
		}
		d.push(int64(v))
	case opLong1, opLong4:
		size := 1
		if op == opLong4 {
			size = 4
		}
		n, err := d.readUint(size)
		if err != nil {
			return err
		}
		b, err := d.readN(n)
		if err != nil {
			return err
		}
		d.push(decodeLong(b))

	case opFloat:
		line, err := d.readLine()
		if err != nil {
			return err
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return fmt.Errorf("%w: FLOAT %q", ErrCorrupt, line)
		}
		d.push(v)
	case opBinFloat:
		b, err := d.readN(8)
		if err != nil {
			return err
		}
		d.push(math.Float64frombits(binary.BigEndian.Uint64(b)))

	case opShortBinUni, opBinUnicode, opBinUnicode8:
		b, err := d.readSized(op, opShortBinUni, opBinUnicode)
		if err != nil {
			return err
		}
		d.push(string(b))
	case opShortBinString, opBinString:
		// Python 2 str: numpy decodes these as text.
		b, err := d.readSized(op, opShortBinString, opBinString)
		if err != nil {
			return err
		}
		d.push(string(b))
	case opShortBinBytes, opBinBytes, opBinBytes8, opByteArray8:
		b, err := d.readSized(op, opShortBinBytes, opBinBytes)
		if err != nil {
			return err
		}
		d.push(b)

	case opEmptyTuple:
		d.push(Tuple{})
	case opTuple:
		items, err := d.popMark()
		if err != nil {
			return err
		}
		d.push(Tuple(items))
	case opTuple1, opTuple2, opTuple3:
		n := int(op-opTuple1) + 1
		if len(d.stack) < n {
			return fmt.Errorf("%w: stack underflow", ErrCorrupt)
		}
		items := make(Tuple, n)
		for i := n - 1; i >= 0; i-- {
			v, err := d.pop()
			if err != nil {
				return err
			}
			items[i] = v
		}
		d.push(items)

	case opEmptyList:
		d.push(&List{})
	case opList:
		items, err := d.popMark()
		if err != nil {
			return err
		}
		d.push(&List{Items: items})
	case opAppend:
		v, err := d.pop()
		if err != nil {
			return err
		}
		l, err := d.topList()
		if err != nil {
			return err
		}
		l.Items = append(l.Items, v)
	case opAppends:
		items, err := d.popMark()
		if err != nil {
			return err
		}
		l, err := d.topList()
		if err != nil {
			return err
		}
		l.Items = append(l.Items, items...)

	case opEmptyDict:
		d.push(&Dict{})
	case opDict:
		items, err := d.popMark()
		if err != nil {
			return err
		}
		dict := &Dict{}
		if err := dict.setPairs(items); err != nil {
			return err
		}
		d.push(dict)
	case opSetItem:
		v, err := d.pop()
		if err != nil {
			return err
		}
		k, err := d.pop()
		if err != nil {
			return err
		}
		dict, err := d.topDict()
		if err != nil {
			return err
		}
		dict.Keys = append(dict.Keys, k)
		dict.Values = append(dict.Values, v)
	case opSetItems:
		items, err := d.popMark()
		if err != nil {
			return err
		}
		dict, err := d.topDict()
		if err != nil {
			return err
		}
		if err := dict.setPairs(items); err != nil {
			return err
		}

	case opGlobal:
		module, err := d.readLine()
		if err != nil {
			return err
		}
		name, err := d.readLine()
		if err != nil {
			return err
		}
		d.push(Global{Module: module, Name: name})
	case opStackGlobal:
		name, err := d.popString()
		if err != nil {
			return err
		}
		module, err := d.popString()
		if err != nil {
			return err
		}
		d.push(Global{Module: module, Name: name})

	case opReduce:
		args, err := d.popTuple()
		if err != nil {
			return err
		}
		fn, err := d.pop()
		if err != nil {
			return err
		}
		d.push(reduce(fn, args))
	case opNewObj:
		args, err := d.popTuple()
		if err != nil {
			return err
		}
		cls, err := d.pop()
		if err != nil {
			return err
		}
		d.push(&Object{Callable: cls, Args: args})
	case opNewObjEx:
		if _, err := d.pop(); err != nil { // kwargs
			return err
		}
		args, err := d.popTuple()
		if err != nil {
			return err
		}
		cls, err := d.pop()
		if err != nil {
			return err
		}
		d.push(&Object{Callable: cls, Args: args})
	case opBuild:
		state, err := d.pop()
		if err != nil {
			return err
		}
		v, err := d.top()
		if err != nil {
			return err
		}
		obj, ok := v.(*Object)
		if !ok {
			return fmt.Errorf("%w: BUILD on %T", ErrUnsupported, v)
		}
		obj.State = state

	case opPut:
		line, err := d.readLine()
		if err != nil {
			return err
		}
		idx, err := strconv.ParseUint(line, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: PUT %q", ErrCorrupt, line)
		}
		return d.memoize(idx)
	case opBinPut, opLongBinPut:
		size := 1
		if op == opLongBinPut {
			size = 4
		}
		idx, err := d.readUint(size)
		if err != nil {
			return err
		}
		return d.memoize(idx)
	case opMemoize:
		return d.memoize(uint64(len(d.memo)))
	case opGet:
		line, err := d.readLine()
		if err != nil {
			return err
		}
		idx, err := strconv.ParseUint(line, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: GET %q", ErrCorrupt, line)
		}
		return d.recall(idx)
	case opBinGet, opLongBinGet:
		size := 1
		if op == opLongBinGet {
			size = 4
		}
		idx, err := d.readUint(size)
		if err != nil {
			return err
		}
		return d.recall(idx)

	default:
		return fmt.Errorf("%w: 0x%02x", ErrUnsupported, op)
	}
	return nil
}

// readSized reads a length-prefixed payload. short and long name the 1-byte
// and 4-byte length variants of the opcode family; anything else uses 8 bytes.
func (d *decoder) readSized(op, short, long byte) ([]byte, error) {
	size := 8
	switch op {
	case short:
		size = 1
	case long:
		size = 4
	}
	n, err := d.readUint(size)
	if err != nil {
		return nil, err
	}
	return d.readN(n)
}

func (d *decoder) memoize(idx uint64) error {
	v, err := d.top()
	if err != nil {
		return err
	}
	d.memo[idx] = v
	return nil
}

func (d *decoder) recall(idx uint64) error {
	v, ok := d.memo[idx]
	if !ok {
		return fmt.Errorf("%w: memo %d missing", ErrCorrupt, idx)
	}
	d.push(v)
	return nil
}

func (d *decoder) topList() (*List, error) {
	v, err := d.top()
	if err != nil {
		return nil, err
	}
	l, ok := v.(*List)
	if !ok {
		return nil, fmt.Errorf("%w: append to %T", ErrUnsupported, v)
	}
	return l, nil
}

func (d *decoder) topDict() (*Dict, error) {
	v, err := d.top()
	if err != nil {
		return nil, err
	}
	dict, ok := v.(*Dict)
	if !ok {
		return nil, fmt.Errorf("%w: setitem on %T", ErrUnsupported, v)
	}
	return dict, nil
}

func (d *decoder) popTuple() (Tuple, error) {
	v, err := d.pop()
	if err != nil {
		return nil, err
	}
	t, ok := v.(Tuple)
	if !ok {
		return nil, fmt.Errorf("%w: expected tuple, got %T", ErrCorrupt, v)
	}
	return t, nil
}

func (d *decoder) popString() (string, error) {
	v, err := d.pop()
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected str, got %T", ErrCorrupt, v)
	}
	return s, nil
}

func (dict *Dict) setPairs(items []any) error {
	if len(items)%2 != 0 {
		return fmt.Errorf("%w: odd number of dict items", ErrCorrupt)
	}
	for i := 0; i < len(items); i += 2 {
		dict.Keys = append(dict.Keys, items[i])
		dict.Values = append(dict.Values, items[i+1])
	}
	return nil
}

// reduce folds the calls whose result is plain data and leaves the rest inert.
// Protocol 2 pickles bytes as _codecs.encode(str, "latin1").
func reduce(fn any, args Tuple) any {
	if g, ok := fn.(Global); ok && g.Module == "_codecs" && g.Name == "encode" && len(args) == 2 {
		s, sok := args[0].(string)
		enc, eok := args[1].(string)
		if sok && eok && (enc == "latin1" || enc == "latin-1") {
			out := make([]byte, 0, len(s))
			for _, r := range s {
				out = append(out, byte(r))
			}
			return out
		}
	}
	return &Object{Callable: fn, Args: args}
}

// decodeLong decodes a little-endian two's complement integer.
func decodeLong(b []byte) any {
	if len(b) == 0 {
		return int64(0)
	}
	be := make([]byte, len(b))
	for i := range b {
		be[len(b)-1-i] = b[i]
	}
	v := new(big.Int).SetBytes(be)
	if b[len(b)-1]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(8*len(b))))
	}
	return normalizeInt(v)
}

func normalizeInt(v *big.Int) any {
	if v.IsInt64() {
		return v.Int64()
	}
	return v
}
