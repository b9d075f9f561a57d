package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

func shapeLiteral(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = fmt.Sprint(d)
	}
	if len(shape) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// header renders a version 1.0 .npy preamble and header.
func header(descr string, fortran bool, shape []int) []byte {
	order := "False"
	if fortran {
		order = "True"
	}
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': %s, 'shape': %s, }", descr, order, shapeLiteral(shape))
	// magic(6) + version(2) + length(2) + dict + '\n' is padded to 64 bytes.
	total := 10 + len(dict) + 1
	pad := (64 - total%64) % 64
	dict += strings.Repeat(" ", pad) + "\n"

	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY\x01\x00")
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(dict)))
	buf.WriteString(dict)
	return buf.Bytes()
}

// Header renders a version 1.0 .npy header for hand-built payloads.
func Header(descr string, fortran bool, shape []int) []byte {
	return header(descr, fortran, shape)
}

func width(rows [][]float64) int {
	if len(rows) == 0 {
		return 9
	}
	return len(rows[0])
}

// Float64NPY encodes rows as a C-order little-endian float64 matrix.
func Float64NPY(rows [][]float64) []byte {
	return NumericNPY("<f8", false, rows)
}

// NumericNPY encodes rows with the given numeric descr (<f8, >f4, <i8, |u1, ...).
// With fortran set, the payload is written column-major.
func NumericNPY(descr string, fortran bool, rows [][]float64) []byte {
	w := width(rows)
	var buf bytes.Buffer
	buf.Write(header(descr, fortran, []int{len(rows), w}))

	var order binary.AppendByteOrder = binary.LittleEndian
	if descr[0] == '>' {
		order = binary.BigEndian
	}
	put := func(v float64) {
		var b []byte
		switch descr[1:] {
		case "f8":
			b = order.AppendUint64(nil, math.Float64bits(v))
		case "f4":
			b = order.AppendUint32(nil, math.Float32bits(float32(v)))
		case "i8":
			b = order.AppendUint64(nil, uint64(int64(v)))
		case "i4":
			b = order.AppendUint32(nil, uint32(int32(v)))
		case "i2":
			b = order.AppendUint16(nil, uint16(int16(v)))
		case "u1":
			b = []byte{uint8(v)}
		case "i1":
			b = []byte{byte(int8(v))}
		default:
			panic("testutil: unsupported descr " + descr)
		}
		buf.Write(b)
	}
	if fortran {
		for c := 0; c < w; c++ {
			for r := range rows {
				put(rows[r][c])
			}
		}
	} else {
		for _, row := range rows {
			for _, v := range row {
				put(v)
			}
		}
	}
	return buf.Bytes()
}

func maxLen(rows [][]string, runes bool) int {
	n := 1
	for _, row := range rows {
		for _, s := range row {
			l := len(s)
			if runes {
				l = utf8.RuneCountInString(s)
			}
			if l > n {
				n = l
			}
		}
	}
	return n
}

func stringShape(rows [][]string) []int {
	w := 2
	if len(rows) > 0 {
		w = len(rows[0])
	}
	return []int{len(rows), w}
}

// UnicodeNPY encodes rows as a fixed-width <U matrix.
func UnicodeNPY(rows [][]string) []byte {
	n := maxLen(rows, true)
	var buf bytes.Buffer
	buf.Write(header(fmt.Sprintf("<U%d", n), false, stringShape(rows)))
	for _, row := range rows {
		for _, s := range row {
			rs := []rune(s)
			for i := 0; i < n; i++ {
				var r rune
				if i < len(rs) {
					r = rs[i]
				}
				_ = binary.Write(&buf, binary.LittleEndian, uint32(r))
			}
		}
	}
	return buf.Bytes()
}

// BytesNPY encodes rows as a fixed-width |S matrix.
func BytesNPY(rows [][]string) []byte {
	n := maxLen(rows, false)
	var buf bytes.Buffer
	buf.Write(header(fmt.Sprintf("|S%d", n), false, stringShape(rows)))
	for _, row := range rows {
		for _, s := range row {
			b := make([]byte, n)
			copy(b, s)
			buf.Write(b)
		}
	}
	return buf.Bytes()
}
