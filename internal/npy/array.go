// Package npy reads numpy .npy arrays: numeric, fixed-width string and
// pickled object dtypes, in C or Fortran order.
package npy

import (
	"fmt"
	"io"
)

// maxDataLen bounds a single array payload.
const maxDataLen = 1 << 34

// Array is a decoded .npy array. Depending on the dtype its elements are
// held as float64, string, or the raw values of a pickled object array.
type Array struct {
	Header Header
	DType  DType

	floats  []float64
	ints    []int64 // exact values of integer dtypes, nil otherwise
	strs    []string
	objects []any
}

// Read decodes one .npy stream.
func Read(r io.Reader) (*Array, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	dt, err := ParseDType(h.Descr)
	if err != nil {
		return nil, err
	}
	a := &Array{Header: h, DType: dt}
	count := h.Count()

	switch {
	case dt.Kind == 'O':
		objs, err := readObjects(r)
		if err != nil {
			return nil, err
		}
		if len(objs) != count {
			return nil, fmt.Errorf("%w: object array has %d items, shape %v wants %d",
				ErrFormat, len(objs), h.Shape, count)
		}
		a.objects = objs
	case dt.Numeric():
		data, err := readData(r, count, dt.ItemSize())
		if err != nil {
			return nil, err
		}
		if a.floats, err = dt.decodeFloats(data, count); err != nil {
			return nil, err
		}
		a.ints, _ = dt.decodeInts(data, count)
	default:
		data, err := readData(r, count, dt.ItemSize())
		if err != nil {
			return nil, err
		}
		if a.strs, err = dt.decodeStrings(data, count); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func readData(r io.Reader, count, itemSize int) ([]byte, error) {
	if itemSize > 0 && count > maxDataLen/itemSize {
		return nil, fmt.Errorf("%w: payload of %d x %d bytes exceeds %d", ErrFormat, count, itemSize, maxDataLen)
	}
	n := count * itemSize
	data, err := io.ReadAll(io.LimitReader(r, int64(n)+1))
	if err != nil {
		return nil, fmt.Errorf("npy: read data: %w", err)
	}
	if len(data) != n {
		return nil, fmt.Errorf("%w: data has %d bytes, want %d", ErrFormat, len(data), n)
	}
	return data, nil
}

// Shape returns the array dimensions.
func (a *Array) Shape() []int { return a.Header.Shape }

// Dims returns the number of dimensions.
func (a *Array) Dims() int { return len(a.Header.Shape) }

// Rows returns the size of the first dimension, 0 for a scalar.
func (a *Array) Rows() int {
	if len(a.Header.Shape) == 0 {
		return 0
	}
	return a.Header.Shape[0]
}

// Cols returns the size of the second dimension, 1 for a vector.
func (a *Array) Cols() int {
	switch len(a.Header.Shape) {
	case 0:
		return 0
	case 1:
		return 1
	default:
		return a.Header.Shape[1]
	}
}

// Numeric reports whether Float can succeed for every element kind.
func (a *Array) Numeric() bool { return a.DType.Numeric() }

// index maps (row, col) of a 1-D or 2-D array to its flat position.
func (a *Array) index(row, col int) (int, error) {
	if a.Dims() < 1 || a.Dims() > 2 {
		return 0, fmt.Errorf("npy: cannot index %d-D array by row and column", a.Dims())
	}
	rows, cols := a.Rows(), a.Cols()
	if row < 0 || row >= rows || col < 0 || col >= cols {
		return 0, fmt.Errorf("npy: index (%d, %d) out of range for shape %v", row, col, a.Header.Shape)
	}
	// Pickled object arrays are restored in logical order whatever the header says.
	if a.Header.FortranOrder && a.objects == nil {
		return col*rows + row, nil
	}
	return row*cols + col, nil
}

// Float returns element (row, col) as float64.
func (a *Array) Float(row, col int) (float64, error) {
	i, err := a.index(row, col)
	if err != nil {
		return 0, err
	}
	switch {
	case a.floats != nil:
		return a.floats[i], nil
	case a.objects != nil:
		return objectFloat(a.objects[i])
	default:
		return 0, fmt.Errorf("%w: %s is not numeric", ErrUnsupportedDType, a.Header.Descr)
	}
}

// Text returns element (row, col) as a string.
func (a *Array) Text(row, col int) (string, error) {
	i, err := a.index(row, col)
	if err != nil {
		return "", err
	}
	switch {
	case a.strs != nil:
		return a.strs[i], nil
	case a.objects != nil:
		return objectText(a.objects[i])
	default:
		return "", fmt.Errorf("%w: %s is not text", ErrUnsupportedDType, a.Header.Descr)
	}
}

func (a *Array) checkColumn(col int) error {
	if col < 0 || col >= a.Cols() {
		return fmt.Errorf("npy: column %d out of range for shape %v", col, a.Header.Shape)
	}
	return nil
}

// FloatColumn returns column col of a 2-D array.
func (a *Array) FloatColumn(col int) ([]float64, error) {
	if err := a.checkColumn(col); err != nil {
		return nil, err
	}
	out := make([]float64, a.Rows())
	for row := range out {
		v, err := a.Float(row, col)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		out[row] = v
	}
	return out, nil
}

// IntColumn returns column col as exact integers. ok is false when the
// array does not hold integers throughout; use FloatColumn then.
func (a *Array) IntColumn(col int) (vals []int64, ok bool, err error) {
	if err := a.checkColumn(col); err != nil {
		return nil, false, err
	}
	if a.ints == nil && a.objects == nil {
		return nil, false, nil
	}
	out := make([]int64, a.Rows())
	for row := range out {
		i, err := a.index(row, col)
		if err != nil {
			return nil, false, fmt.Errorf("row %d: %w", row, err)
		}
		if a.ints != nil {
			out[row] = a.ints[i]
			continue
		}
		v, isInt := a.objects[i].(int64)
		if !isInt {
			return nil, false, nil
		}
		out[row] = v
	}
	return out, true, nil
}

// TextColumn returns column col of a 2-D array.
func (a *Array) TextColumn(col int) ([]string, error) {
	if err := a.checkColumn(col); err != nil {
		return nil, err
	}
	out := make([]string, a.Rows())
	for row := range out {
		v, err := a.Text(row, col)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		out[row] = v
	}
	return out, nil
}
