package testutil

import (
	"bytes"

	"github.com/klauspost/compress/zip"
)

// Entry is one named array of an .npz archive.
type Entry struct {
	Name string
	Data []byte
}

// NPZ zips entries the way np.savez does: one stored <name>.npy member each.
func NPZ(entries ...Entry) []byte {
	return writeZip(zip.Store, entries)
}

// CompressedNPZ zips entries with deflate, like np.savez_compressed.
func CompressedNPZ(entries ...Entry) []byte {
	return writeZip(zip.Deflate, entries)
}

func writeZip(method uint16, entries []Entry) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name + ".npy", Method: method})
		if err != nil {
			panic(err)
		}
		if _, err := w.Write(e.Data); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// LegacyNPZ builds a single-table archive as np.savez(path, rows) writes it.
func LegacyNPZ(rows [][]float64) []byte {
	return NPZ(Entry{Name: "arr_0", Data: Float64NPY(rows)})
}

// CurrentNPZ builds an overlaps + seq archive with seq stored as a pickled
// object array.
func CurrentNPZ(rows [][]float64, dirs [][]string) []byte {
	objs := make([][]any, len(dirs))
	for i, pair := range dirs {
		objs[i] = make([]any, len(pair))
		for j, d := range pair {
			objs[i][j] = d
		}
	}
	return NPZ(
		Entry{Name: "overlaps", Data: Float64NPY(rows)},
		Entry{Name: "seq", Data: ObjectNPY(objs)},
	)
}
