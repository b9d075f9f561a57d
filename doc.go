// Package overlaps loads precomputed pairwise overlap records between range
// images from .npz archives.
//
// Archives come in two layouts. Legacy archives hold a single n×9 table of
// [id_a, id_b, overlap, yaw, pitch, roll, tx, ty, tz]. Current archives hold
// the same table as `overlaps` plus an n×2 `seq` table naming the directory
// each image lives in. Both load into the same eleven parallel columns.
//
//	loader, _ := overlaps.New(ctx, overlaps.WithSeed(42))
//	defer loader.Close()
//	cols, _ := loader.Load(ctx, []string{"train/00.npz", "s3://bucket/05.npz"})
//	for i := range cols.Len() {
//	    r := cols.Record(i)
//	    fmt.Println(r.DirA, r.IDA, r.DirB, r.IDB, r.Overlap)
//	}
//
// Records of each archive are shuffled independently by default; archives are
// always concatenated in the order given. Use WithShuffle(false) to keep
// on-disk order.
package overlaps
