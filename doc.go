// Package rowkv is a small embedded single-file key/value table engine.
//
// Each Table is a persistent collection of fixed-width rows, addressed by
// a user-declared primary key column. Set presents the same engine as a
// persistent set of values. rowkv targets processes that need durable
// record storage with bounded memory and safe concurrent access from
// multiple in-process goroutines, without embedding a full database.
//
// A table serializes work per key: at most one transaction body runs at a
// time for a given key, and bodies for different keys run concurrently.
// All file I/O is additionally serialized across keys through a single
// global lock, so the on-disk row count, index cache, and row cache stay
// consistent at every I/O boundary.
//
//	t, err := rowkv.Open(rowkv.Options{
//	    Path: "accounts.rowkv",
//	    Key:  "userId",
//	    Values: []rowkv.ColumnDecl{
//	        {Name: "userId", MaxLength: ptr(10)},
//	        {Name: "money", Type: "int32", Default: int64(0)},
//	    },
//	})
//	at, err := t.At("bank")
//	res := <-at(func(row rowkv.Row, h *rowkv.Handle) (any, error) {
//	    h.Confirm()
//	    row["money"] = int64(10_000_000)
//	    return nil, nil
//	})
package rowkv
