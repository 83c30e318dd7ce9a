// Package runtime wires storage, config, and the in-memory stores into a
// single-node Pigeon instance. Open loads every persisted topic and key
// before returning, so callers can start listeners right after it.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeNever, Config: config.Default()})
//	defer rt.Close()
//	ctx, cancel := context.WithCancel(context.Background())
//	go rt.Flusher().Run(ctx)
//	_ = rt.Queues().Publish("orders", []byte("hello"))
//	cancel()
package runtime
