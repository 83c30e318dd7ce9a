// Package httpserver provides the REST gateway for Pigeon: topic publish,
// consume, length and overview, the key-value endpoints, and health, stats
// and flush admin endpoints. Every response carries an X-Request-ID header
// and every request is access-logged.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Config: config.Default()})
//	s := httpserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
