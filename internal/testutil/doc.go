// Package testutil builds .npy and .npz fixtures in memory for tests.
//
// The encoders follow numpy's own writer: version 1.0 headers padded to 64
// bytes, C order unless asked otherwise, object arrays pickled with
// protocol 3 the way np.save(allow_pickle=True) stores them.
package testutil
