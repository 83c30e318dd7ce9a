// Package client provides the `pigeon` command-line client.
//
// The CLI talks to the Pigeon HTTP endpoint to publish, consume and inspect
// topics and to read and write keys from a terminal. It is primarily
// intended for developers and operators.
//
// # Address configuration
//
// The HTTP base URL is discovered by the application that embeds the
// commands via a BaseURLFunc. The standalone binary reads PIGEON_HTTP and
// defaults to http://127.0.0.1:8080. The gRPC address used by
// `health --grpc` is read from PIGEON_GRPC (default 127.0.0.1:50051).
//
// Usage
//
//	pigeon queue publish orders --data '{"id":1}'
//	echo hello | pigeon queue publish greetings
//	pigeon queue consume orders
//	pigeon queue consume orders --raw > msg.bin
//	pigeon queue length orders
//	pigeon queue topics --filter 'length > 0 && topic.startsWith("ord")'
//
//	pigeon kv set color --data blue
//	pigeon kv get color
//	pigeon kv list --prefix col
//	pigeon kv delete color
//
//	pigeon health
//	pigeon health --grpc --grpc-addr 127.0.0.1:50051
//
// Notes
//
//   - consume and get print a JSON object with payload_json, payload_text
//     or payload_b64 depending on the bytes; --raw writes them unmodified.
//   - consume on an empty topic and get or delete on a missing key exit
//     with an error.
package client
