package npy

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/kailas-cloud/overlaps/internal/testutil"
)

func mustRead(t *testing.T, data []byte) *Array {
	t.Helper()
	a, err := Read(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Read: unexpected error: %v", err)
	}
	return a
}

var sampleRows = [][]float64{
	{3, 7, 0.82, 0.1, 0, -0.1, 1, 0, 0},
	{4, 9, 0.5, 0.2, 0.3, 0.4, 2, 3, 4},
}

func TestRead_Float64(t *testing.T) {
	a := mustRead(t, testutil.Float64NPY(sampleRows))

	if !reflect.DeepEqual(a.Shape(), []int{2, 9}) {
		t.Fatalf("unexpected shape %v", a.Shape())
	}
	if a.Rows() != 2 || a.Cols() != 9 || a.Dims() != 2 {
		t.Fatalf("unexpected dims rows=%d cols=%d dims=%d", a.Rows(), a.Cols(), a.Dims())
	}
	if !a.Numeric() {
		t.Fatal("expected numeric array")
	}
	v, err := a.Float(1, 2)
	if err != nil || v != 0.5 {
		t.Fatalf("Float(1, 2) = %v, %v", v, err)
	}
	col, err := a.FloatColumn(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(col, []float64{-0.1, 0.4}) {
		t.Errorf("unexpected column: %v", col)
	}
}

func TestRead_FortranOrder(t *testing.T) {
	a := mustRead(t, testutil.NumericNPY("<f8", true, sampleRows))
	if !a.Header.FortranOrder {
		t.Fatal("expected fortran order")
	}
	for r, row := range sampleRows {
		for c, want := range row {
			got, err := a.Float(r, c)
			if err != nil {
				t.Fatalf("Float(%d, %d): %v", r, c, err)
			}
			if got != want {
				t.Errorf("Float(%d, %d) = %v, want %v", r, c, got, want)
			}
		}
	}
}

func TestRead_NumericDTypes(t *testing.T) {
	rows := [][]float64{{1, 2, 3}, {4, 5, 100}}
	for _, descr := range []string{"<f8", ">f8", "<f4", ">f4", "<i8", "<i4", ">i4", "<i2", "|u1", "|i1"} {
		t.Run(descr, func(t *testing.T) {
			a := mustRead(t, testutil.NumericNPY(descr, false, rows))
			col, err := a.FloatColumn(2)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(col, []float64{3, 100}) {
				t.Errorf("unexpected column: %v", col)
			}
		})
	}
}

func TestRead_Unicode(t *testing.T) {
	rows := [][]string{{"00", "08"}, {"kitti_05", "ü"}}
	a := mustRead(t, testutil.UnicodeNPY(rows))
	if a.Numeric() {
		t.Fatal("unicode array reported numeric")
	}
	for c := 0; c < 2; c++ {
		col, err := a.TextColumn(c)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{rows[0][c], rows[1][c]}
		if !reflect.DeepEqual(col, want) {
			t.Errorf("column %d = %v, want %v", c, col, want)
		}
	}
}

func TestRead_Bytes(t *testing.T) {
	a := mustRead(t, testutil.BytesNPY([][]string{{"07", "seq10"}}))
	s, err := a.Text(0, 1)
	if err != nil || s != "seq10" {
		t.Fatalf("Text(0, 1) = %q, %v", s, err)
	}
	s, err = a.Text(0, 0)
	if err != nil || s != "07" {
		t.Fatalf("Text(0, 0) = %q, %v", s, err)
	}
}

func TestRead_ObjectStrings(t *testing.T) {
	rows := [][]any{{"00", "01"}, {"02", []byte("03")}}
	for name, data := range map[string][]byte{
		"numpy1": testutil.ObjectNPY(rows),
		"numpy2": testutil.ObjectNPYNumpy2(rows),
	} {
		t.Run(name, func(t *testing.T) {
			a := mustRead(t, data)
			col, err := a.TextColumn(1)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(col, []string{"01", "03"}) {
				t.Errorf("unexpected column: %v", col)
			}
		})
	}
}

func TestRead_ObjectMixedNumbers(t *testing.T) {
	a := mustRead(t, testutil.ObjectNPY([][]any{{int64(12), 0.25, true}}))
	for c, want := range []float64{12, 0.25, 1} {
		got, err := a.Float(0, c)
		if err != nil {
			t.Fatalf("Float(0, %d): %v", c, err)
		}
		if got != want {
			t.Errorf("Float(0, %d) = %v, want %v", c, got, want)
		}
	}
	if _, err := a.Text(0, 0); !errors.Is(err, ErrUnsupportedDType) {
		t.Errorf("expected ErrUnsupportedDType for int as text, got %v", err)
	}
}

func TestRead_ObjectNumpyScalar(t *testing.T) {
	a := mustRead(t, testutil.ObjectNPY([][]any{{testutil.ScalarUnicode("08"), "09"}}))
	s, err := a.Text(0, 0)
	if err != nil || s != "08" {
		t.Fatalf("Text(0, 0) = %q, %v", s, err)
	}
}

func TestRead_Errors(t *testing.T) {
	good := testutil.Float64NPY(sampleRows)

	badMagic := append([]byte{}, good...)
	badMagic[1] = 'X'

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"bad magic", badMagic, ErrFormat},
		{"truncated header", good[:9], ErrFormat},
		{"truncated data", good[:len(good)-3], ErrFormat},
		{"trailing data", append(append([]byte{}, good...), 0), ErrFormat},
		{"complex dtype", testutilHeader("<c16", "(1,)"), ErrUnsupportedDType},
		{"structured dtype", testutilHeaderRaw("{'descr': [('a', '<f8')], 'fortran_order': False, 'shape': (1,), }"), ErrUnsupportedDType},
		{"missing shape", testutilHeaderRaw("{'descr': '<f8', 'fortran_order': False, }"), ErrFormat},
		{"version 9", append([]byte("\x93NUMPY\x09\x00"), 0, 0), ErrFormat},
		{"element count wraps", testutilHeader("<f8", "(2305843009213693952, 16)"), ErrFormat},
		{"dimension too large", testutilHeader("<f8", "(17179869185, 0)"), ErrFormat},
		{"payload too large", testutilHeader("<f8", "(2147483648, 4)"), ErrFormat},
		{"object count too large", testutilHeader("|O", "(2305843009213693952, 16)"), ErrFormat},
		{"zero-width string", testutilHeader("|S0", "(1,)"), ErrUnsupportedDType},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tc.data))
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRead_UnicodeKeepsEmbeddedNUL(t *testing.T) {
	// Two <U4 elements: "a\x00b" padded with one NUL, and "" (all NUL).
	var buf bytes.Buffer
	buf.Write(testutil.Header("<U4", false, []int{2}))
	for _, r := range []uint32{'a', 0, 'b', 0, 0, 0, 0, 0} {
		_ = binary.Write(&buf, binary.LittleEndian, r)
	}
	a := mustRead(t, buf.Bytes())

	col, err := a.TextColumn(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"a\x00b", ""}; !reflect.DeepEqual(col, want) {
		t.Errorf("TextColumn(0) = %q, want %q", col, want)
	}
}

func TestColumn_OutOfRangeOnEmptyColumns(t *testing.T) {
	a := mustRead(t, testutilHeader("<f8", "(17179869184, 0)"))
	if _, err := a.FloatColumn(0); err == nil {
		t.Error("expected error for column of a zero-width array")
	}
	if _, err := a.TextColumn(0); err == nil {
		t.Error("expected error for column of a zero-width array")
	}
}

func int64NPY(rows [][]int64) []byte {
	var buf bytes.Buffer
	buf.Write(testutil.Header("<i8", false, []int{len(rows), len(rows[0])}))
	for _, row := range rows {
		_ = binary.Write(&buf, binary.LittleEndian, row)
	}
	return buf.Bytes()
}

func TestIntColumn(t *testing.T) {
	t.Run("int64 exact past 2^53", func(t *testing.T) {
		a := mustRead(t, int64NPY([][]int64{{9007199254740993, -3}, {1, math.MaxInt64}}))
		col, ok, err := a.IntColumn(0)
		if err != nil || !ok {
			t.Fatalf("IntColumn(0): ok=%v err=%v", ok, err)
		}
		if want := []int64{9007199254740993, 1}; !reflect.DeepEqual(col, want) {
			t.Errorf("IntColumn(0) = %v, want %v", col, want)
		}
		col, _, _ = a.IntColumn(1)
		if want := []int64{-3, math.MaxInt64}; !reflect.DeepEqual(col, want) {
			t.Errorf("IntColumn(1) = %v, want %v", col, want)
		}
	})

	t.Run("float table", func(t *testing.T) {
		a := mustRead(t, testutil.Float64NPY(sampleRows))
		if _, ok, err := a.IntColumn(0); ok || err != nil {
			t.Errorf("expected no integer view, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("u8 above int64", func(t *testing.T) {
		var buf bytes.Buffer
		buf.Write(testutil.Header("<u8", false, []int{1, 1}))
		_ = binary.Write(&buf, binary.LittleEndian, uint64(math.MaxUint64))
		a := mustRead(t, buf.Bytes())
		if _, ok, _ := a.IntColumn(0); ok {
			t.Error("expected no integer view for out-of-range u8")
		}
	})

	t.Run("object ints", func(t *testing.T) {
		a := mustRead(t, testutil.ObjectNPY([][]any{{int64(12), "x"}, {int64(13), "y"}}))
		col, ok, err := a.IntColumn(0)
		if err != nil || !ok || !reflect.DeepEqual(col, []int64{12, 13}) {
			t.Errorf("IntColumn(0) = %v ok=%v err=%v", col, ok, err)
		}
		if _, ok, _ := a.IntColumn(1); ok {
			t.Error("expected no integer view for string column")
		}
	})

	t.Run("column out of range", func(t *testing.T) {
		a := mustRead(t, int64NPY([][]int64{{1, 2}}))
		if _, _, err := a.IntColumn(2); err == nil {
			t.Error("expected error for column out of range")
		}
	})
}

func TestArray_IndexErrors(t *testing.T) {
	a := mustRead(t, testutil.Float64NPY(sampleRows))
	if _, err := a.Float(2, 0); err == nil {
		t.Error("expected error for row out of range")
	}
	if _, err := a.Float(0, 9); err == nil {
		t.Error("expected error for column out of range")
	}
	if _, err := a.Text(0, 0); !errors.Is(err, ErrUnsupportedDType) {
		t.Errorf("expected ErrUnsupportedDType, got %v", err)
	}
}

func TestReadHeader_Version2(t *testing.T) {
	dict := "{'descr': '<f8', 'fortran_order': False, 'shape': (1, 2), }\n"
	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY\x02\x00")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(dict)))
	buf.WriteString(dict)
	_ = binary.Write(&buf, binary.LittleEndian, math.Float64bits(1.5))
	_ = binary.Write(&buf, binary.LittleEndian, math.Float64bits(-2))

	a := mustRead(t, buf.Bytes())
	if a.Header.Major != 2 {
		t.Fatalf("expected major version 2, got %d", a.Header.Major)
	}
	v, err := a.Float(0, 1)
	if err != nil || v != -2 {
		t.Fatalf("Float(0, 1) = %v, %v", v, err)
	}
}

func TestParseDType(t *testing.T) {
	tests := []struct {
		descr string
		kind  byte
		size  int
		item  int
		ok    bool
	}{
		{"<f8", 'f', 8, 8, true},
		{">i4", 'i', 4, 4, true},
		{"|b1", 'b', 1, 1, true},
		{"<U10", 'U', 10, 40, true},
		{"|S3", 'S', 3, 3, true},
		{"|O", 'O', 0, 0, true},
		{"<U0", 0, 0, 0, false},
		{"|S0", 0, 0, 0, false},
		{"<f2", 0, 0, 0, false},
		{"<i3", 0, 0, 0, false},
		{"<M8[ns]", 0, 0, 0, false},
		{"", 0, 0, 0, false},
	}
	for _, tc := range tests {
		dt, err := ParseDType(tc.descr)
		if !tc.ok {
			if !errors.Is(err, ErrUnsupportedDType) {
				t.Errorf("ParseDType(%q): expected ErrUnsupportedDType, got %v", tc.descr, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseDType(%q): unexpected error: %v", tc.descr, err)
		}
		if dt.Kind != tc.kind || dt.Size != tc.size || dt.ItemSize() != tc.item {
			t.Errorf("ParseDType(%q) = %+v", tc.descr, dt)
		}
	}
	if dt, _ := ParseDType(">f8"); dt.Order != binary.BigEndian {
		t.Error("expected big-endian order")
	}
}

func testutilHeader(descr, shape string) []byte {
	return testutilHeaderRaw("{'descr': '" + descr + "', 'fortran_order': False, 'shape': " + shape + ", }")
}

func testutilHeaderRaw(dict string) []byte {
	dict += "\n"
	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY\x01\x00")
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(dict)))
	buf.WriteString(dict)
	return buf.Bytes()
}
