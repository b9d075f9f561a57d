// Package archive recognizes the two overlap archive layouts and turns either
// into domain.Columns.
//
// A legacy archive holds one n×9 numeric table under an arbitrary name. A
// current archive holds an `overlaps` table of the same shape and a `seq`
// table of n×2 directory names.
package archive

import (
	"fmt"
	"slices"

	"github.com/kailas-cloud/overlaps/internal/domain"
	"github.com/kailas-cloud/overlaps/internal/npy"
)

// Container is a decoded .npz table set.
type Container interface {
	Names() []string
	Array(name string) (*npy.Array, error)
}

// Archive is one of the two layouts, holding its decoded tables.
type Archive interface {
	Layout() domain.Layout
	// Columns validates the tables and converts them to records in on-disk order.
	Columns() (*domain.Columns, error)
}

var (
	_ Archive = (*Legacy)(nil)
	_ Archive = (*Current)(nil)
)

// Detect picks the layout from the table names alone: exactly one table is
// legacy, more than one is current.
func Detect(names []string) (domain.Layout, error) {
	switch {
	case len(names) == 0:
		return 0, fmt.Errorf("%w: archive holds no tables", domain.ErrUnknownLayout)
	case len(names) == 1:
		return domain.LayoutLegacy, nil
	}
	for _, want := range []string{domain.TableOverlaps, domain.TableSeq} {
		if !slices.Contains(names, want) {
			return 0, fmt.Errorf("%w: tables %v lack %q", domain.ErrUnknownLayout, names, want)
		}
	}
	return domain.LayoutCurrent, nil
}

// Decode reads the tables layout needs out of c.
func Decode(c Container, layout domain.Layout) (Archive, error) {
	switch layout {
	case domain.LayoutLegacy:
		names := c.Names()
		if len(names) != 1 {
			return nil, fmt.Errorf("%w: legacy archive has %d tables", domain.ErrUnknownLayout, len(names))
		}
		arr, err := c.Array(names[0])
		if err != nil {
			return nil, err
		}
		return &Legacy{Table: names[0], Data: arr}, nil
	case domain.LayoutCurrent:
		ov, err := c.Array(domain.TableOverlaps)
		if err != nil {
			return nil, err
		}
		seq, err := c.Array(domain.TableSeq)
		if err != nil {
			return nil, err
		}
		return &Current{Overlaps: ov, Seq: seq}, nil
	default:
		return nil, fmt.Errorf("%w: %v", domain.ErrUnknownLayout, layout)
	}
}

// Open detects the layout of c and decodes it.
func Open(c Container) (Archive, error) {
	layout, err := Detect(c.Names())
	if err != nil {
		return nil, err
	}
	return Decode(c, layout)
}

// Legacy is the single-table layout. Directory names are empty.
type Legacy struct {
	Table string
	Data  *npy.Array
}

// Layout returns domain.LayoutLegacy.
func (*Legacy) Layout() domain.Layout { return domain.LayoutLegacy }

// Columns converts the table. DirA and DirB hold one empty string per record.
func (l *Legacy) Columns() (*domain.Columns, error) {
	if err := checkNumeric(l.Table, l.Data); err != nil {
		return nil, err
	}
	cols, err := numericColumns(l.Data)
	if err != nil {
		return nil, err
	}
	n := l.Data.Rows()
	cols.DirA = make([]string, n)
	cols.DirB = make([]string, n)
	return cols, nil
}

// Current is the overlaps + seq layout.
type Current struct {
	Overlaps *npy.Array
	Seq      *npy.Array
}

// Layout returns domain.LayoutCurrent.
func (*Current) Layout() domain.Layout { return domain.LayoutCurrent }

// Columns converts both tables, pairing seq rows with overlaps rows by index.
func (c *Current) Columns() (*domain.Columns, error) {
	if err := checkNumeric(domain.TableOverlaps, c.Overlaps); err != nil {
		return nil, err
	}
	if c.Seq.Dims() != 2 {
		return nil, domain.MalformedError("%s is %d-D, want 2-D", domain.TableSeq, c.Seq.Dims())
	}
	if c.Seq.Cols() < domain.DirColumns {
		return nil, domain.MalformedError("%s has %d columns, want at least %d",
			domain.TableSeq, c.Seq.Cols(), domain.DirColumns)
	}
	if c.Seq.Rows() != c.Overlaps.Rows() {
		return nil, domain.MalformedError("%s has %d rows, %s has %d",
			domain.TableSeq, c.Seq.Rows(), domain.TableOverlaps, c.Overlaps.Rows())
	}

	cols, err := numericColumns(c.Overlaps)
	if err != nil {
		return nil, err
	}
	if cols.DirA, err = c.Seq.TextColumn(0); err != nil {
		return nil, fmt.Errorf("%s dir_a: %w", domain.TableSeq, err)
	}
	if cols.DirB, err = c.Seq.TextColumn(1); err != nil {
		return nil, fmt.Errorf("%s dir_b: %w", domain.TableSeq, err)
	}
	return cols, nil
}

func checkNumeric(name string, arr *npy.Array) error {
	if arr.Dims() != 2 {
		return domain.MalformedError("%s is %d-D, want 2-D", name, arr.Dims())
	}
	if arr.Cols() < domain.NumericColumns {
		return domain.MalformedError("%s has %d columns, want at least %d",
			name, arr.Cols(), domain.NumericColumns)
	}
	return nil
}

// numericColumns fills every field but the directories from an n×9 table.
func numericColumns(arr *npy.Array) (*domain.Columns, error) {
	var raw [domain.NumericColumns][]float64
	for col := range raw {
		vals, err := arr.FloatColumn(col)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", col, err)
		}
		raw[col] = vals
	}

	ida, err := idColumn(arr, 0, raw[0])
	if err != nil {
		return nil, fmt.Errorf("id_a: %w", err)
	}
	idb, err := idColumn(arr, 1, raw[1])
	if err != nil {
		return nil, fmt.Errorf("id_b: %w", err)
	}
	return &domain.Columns{
		IDA:     ida,
		IDB:     idb,
		Overlap: raw[2],
		Yaw:     raw[3],
		Pitch:   raw[4],
		Roll:    raw[5],
		TX:      raw[6],
		TY:      raw[7],
		TZ:      raw[8],
	}, nil
}

// idColumn formats an identifier column, reading integer tables exactly so
// ids past 2^53 keep every digit.
func idColumn(arr *npy.Array, col int, vals []float64) ([]string, error) {
	ints, ok, err := arr.IntColumn(col)
	if err != nil {
		return nil, fmt.Errorf("column %d: %w", col, err)
	}
	if !ok {
		return formatIDs(vals)
	}
	out := make([]string, len(ints))
	for i, v := range ints {
		out[i] = domain.FormatIntID(v)
	}
	return out, nil
}

func formatIDs(vals []float64) ([]string, error) {
	out := make([]string, len(vals))
	for i, v := range vals {
		id, err := domain.FormatID(v)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", domain.ErrMalformedArchive, i, err)
		}
		out[i] = id
	}
	return out, nil
}
