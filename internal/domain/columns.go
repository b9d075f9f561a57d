package domain

import "fmt"

// Columns holds records as eleven index-aligned sequences.
// Row i of every field belongs to the same record.
type Columns struct {
	IDA     []string
	IDB     []string
	DirA    []string
	DirB    []string
	Overlap []float64
	Yaw     []float64
	Pitch   []float64
	Roll    []float64
	TX      []float64
	TY      []float64
	TZ      []float64
}

// NewColumns allocates empty columns with room for n records.
func NewColumns(n int) *Columns {
	return &Columns{
		IDA:     make([]string, 0, n),
		IDB:     make([]string, 0, n),
		DirA:    make([]string, 0, n),
		DirB:    make([]string, 0, n),
		Overlap: make([]float64, 0, n),
		Yaw:     make([]float64, 0, n),
		Pitch:   make([]float64, 0, n),
		Roll:    make([]float64, 0, n),
		TX:      make([]float64, 0, n),
		TY:      make([]float64, 0, n),
		TZ:      make([]float64, 0, n),
	}
}

// Len returns the record count.
func (c *Columns) Len() int {
	if c == nil {
		return 0
	}
	return len(c.IDA)
}

// Validate checks that all eleven fields have the same length.
func (c *Columns) Validate() error {
	n := len(c.IDA)
	lens := []struct {
		name string
		n    int
	}{
		{"id_b", len(c.IDB)},
		{"dir_a", len(c.DirA)},
		{"dir_b", len(c.DirB)},
		{"overlap", len(c.Overlap)},
		{"yaw", len(c.Yaw)},
		{"pitch", len(c.Pitch)},
		{"roll", len(c.Roll)},
		{"tx", len(c.TX)},
		{"ty", len(c.TY)},
		{"tz", len(c.TZ)},
	}
	for _, l := range lens {
		if l.n != n {
			return fmt.Errorf("column %s has %d values, id_a has %d", l.name, l.n, n)
		}
	}
	return nil
}

// AppendRecord adds one record at the end.
func (c *Columns) AppendRecord(r Record) {
	c.IDA = append(c.IDA, r.IDA)
	c.IDB = append(c.IDB, r.IDB)
	c.DirA = append(c.DirA, r.DirA)
	c.DirB = append(c.DirB, r.DirB)
	c.Overlap = append(c.Overlap, r.Overlap)
	c.Yaw = append(c.Yaw, r.Yaw)
	c.Pitch = append(c.Pitch, r.Pitch)
	c.Roll = append(c.Roll, r.Roll)
	c.TX = append(c.TX, r.TX)
	c.TY = append(c.TY, r.TY)
	c.TZ = append(c.TZ, r.TZ)
}

// Append concatenates other after c, preserving the order of both.
func (c *Columns) Append(other *Columns) {
	if other == nil {
		return
	}
	c.IDA = append(c.IDA, other.IDA...)
	c.IDB = append(c.IDB, other.IDB...)
	c.DirA = append(c.DirA, other.DirA...)
	c.DirB = append(c.DirB, other.DirB...)
	c.Overlap = append(c.Overlap, other.Overlap...)
	c.Yaw = append(c.Yaw, other.Yaw...)
	c.Pitch = append(c.Pitch, other.Pitch...)
	c.Roll = append(c.Roll, other.Roll...)
	c.TX = append(c.TX, other.TX...)
	c.TY = append(c.TY, other.TY...)
	c.TZ = append(c.TZ, other.TZ...)
}

// Permute returns new columns where row i is row perm[i] of c.
// perm must be a permutation of 0..Len()-1.
func (c *Columns) Permute(perm []int) (*Columns, error) {
	n := c.Len()
	if len(perm) != n {
		return nil, fmt.Errorf("permutation has %d entries, want %d", len(perm), n)
	}
	seen := make([]bool, n)
	out := NewColumns(n)
	for _, idx := range perm {
		if idx < 0 || idx >= n || seen[idx] {
			return nil, fmt.Errorf("invalid permutation index %d", idx)
		}
		seen[idx] = true
		out.AppendRecord(c.Record(idx))
	}
	return out, nil
}

// Record returns row i as a single struct.
func (c *Columns) Record(i int) Record {
	return Record{
		IDA:     c.IDA[i],
		IDB:     c.IDB[i],
		DirA:    c.DirA[i],
		DirB:    c.DirB[i],
		Overlap: c.Overlap[i],
		Yaw:     c.Yaw[i],
		Pitch:   c.Pitch[i],
		Roll:    c.Roll[i],
		TX:      c.TX[i],
		TY:      c.TY[i],
		TZ:      c.TZ[i],
	}
}

// Records materializes every row.
func (c *Columns) Records() []Record {
	out := make([]Record, c.Len())
	for i := range out {
		out[i] = c.Record(i)
	}
	return out
}
