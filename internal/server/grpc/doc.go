// Package grpcserver hosts the gRPC endpoint for Pigeon. It serves the
// standard grpc.health.v1.Health service, backed by runtime health checks,
// and server reflection.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Config: config.Default()})
//	s := grpcserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":50051")
package grpcserver
