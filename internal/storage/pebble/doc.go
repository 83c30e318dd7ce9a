// Package pebblestore provides a thin wrapper around Pebble with fsync policy,
// prefix scans, an explicit durability flush and minimal metrics hooks.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data",
//	    Fsync:   pebblestore.FsyncModeNever,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	_ = db.Set([]byte("kv_color"), []byte("blue"))
//	_ = db.Scan([]byte("kv_"), func(k, v []byte) error { return nil })
//
//	// Make everything written so far durable.
//	_ = db.Flush()
package pebblestore
