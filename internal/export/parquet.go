// Package export writes loaded overlap records as parquet, one row per record.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/overlaps/internal/domain"
)

const batchSize = 4096

// recordRow is the parquet schema of an exported record.
type recordRow struct {
	IDA     string  `parquet:"id_a,dict"`
	IDB     string  `parquet:"id_b,dict"`
	DirA    string  `parquet:"dir_a,dict"`
	DirB    string  `parquet:"dir_b,dict"`
	Overlap float64 `parquet:"overlap"`
	Yaw     float64 `parquet:"yaw"`
	Pitch   float64 `parquet:"pitch"`
	Roll    float64 `parquet:"roll"`
	TX      float64 `parquet:"tx"`
	TY      float64 `parquet:"ty"`
	TZ      float64 `parquet:"tz"`
}

func toRow(r domain.Record) recordRow {
	return recordRow{
		IDA: r.IDA, IDB: r.IDB, DirA: r.DirA, DirB: r.DirB,
		Overlap: r.Overlap, Yaw: r.Yaw, Pitch: r.Pitch, Roll: r.Roll,
		TX: r.TX, TY: r.TY, TZ: r.TZ,
	}
}

func (r recordRow) record() domain.Record {
	return domain.Record{
		IDA: r.IDA, IDB: r.IDB, DirA: r.DirA, DirB: r.DirB,
		Overlap: r.Overlap, Yaw: r.Yaw, Pitch: r.Pitch, Roll: r.Roll,
		TX: r.TX, TY: r.TY, TZ: r.TZ,
	}
}

// WriteParquet writes cols to w in record order, zstd-compressed.
func WriteParquet(w io.Writer, cols *domain.Columns) error {
	if err := cols.Validate(); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	pw := parquet.NewGenericWriter[recordRow](w, parquet.Compression(&parquet.Zstd))
	buf := make([]recordRow, 0, batchSize)
	for i := range cols.Len() {
		buf = append(buf, toRow(cols.Record(i)))
		if len(buf) == cap(buf) {
			if _, err := pw.Write(buf); err != nil {
				return fmt.Errorf("export: write rows: %w", err)
			}
			buf = buf[:0]
		}
	}
	if len(buf) > 0 {
		if _, err := pw.Write(buf); err != nil {
			return fmt.Errorf("export: write rows: %w", err)
		}
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("export: close writer: %w", err)
	}
	return nil
}

// WriteFile writes cols to a parquet file at path, creating parent directories.
func WriteFile(path string, cols *domain.Columns) (err error) {
	path = filepath.Clean(path)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("export: %w", cerr)
		}
	}()
	return WriteParquet(f, cols)
}

// ReadParquet reads a file written by WriteParquet back into columns.
func ReadParquet(r io.ReaderAt, size int64) (*domain.Columns, error) {
	f, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("export: open parquet: %w", err)
	}

	pr := parquet.NewGenericReader[recordRow](f)
	defer pr.Close()

	cols := domain.NewColumns(int(pr.NumRows()))
	buf := make([]recordRow, batchSize)
	for {
		n, err := pr.Read(buf)
		for _, row := range buf[:n] {
			cols.AppendRecord(row.record())
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("export: read rows: %w", err)
		}
	}
	return cols, nil
}
