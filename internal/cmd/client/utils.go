package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// BaseURLFunc returns the HTTP base URL of the Pigeon server.
type BaseURLFunc func() string

// DefaultBaseURL is used when PIGEON_HTTP is unset.
const DefaultBaseURL = "http://127.0.0.1:8080"

// BaseURLFromEnv returns the HTTP base URL from PIGEON_HTTP or a default.
func BaseURLFromEnv() string {
	if u := os.Getenv("PIGEON_HTTP"); u != "" {
		return strings.TrimRight(u, "/")
	}
	return DefaultBaseURL
}

// grpcAddrFromEnv returns the gRPC server address from PIGEON_GRPC or a default.
func grpcAddrFromEnv() string {
	if addr := os.Getenv("PIGEON_GRPC"); addr != "" {
		return addr
	}
	return "127.0.0.1:50051"
}

// dialGRPC creates a client for the Pigeon gRPC endpoint with insecure
// transport for local/dev.
func dialGRPC(addr string) (*grpc.ClientConn, error) {
	return grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

// errNotFound is returned by do when the server answers 404.
var errNotFound = errors.New("not found")

// do sends a request to baseURL+path and returns the response body. Any
// status >= 300 is turned into an error carrying the server's message.
func do(ctx context.Context, method, rawURL string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return data, errNotFound
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("http error: %s: %s", resp.Status, serverMessage(data))
	}
	return data, nil
}

// serverMessage extracts the "error" field of a JSON error body, falling
// back to the raw text.
func serverMessage(data []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(data))
}

// endpoint joins base with escaped path segments.
func endpoint(base string, segments ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// payloadFromFlags returns --data, or stdin when --data is "-" or unset.
func payloadFromFlags(cmd *cobra.Command) ([]byte, error) {
	data, _ := cmd.Flags().GetString("data")
	if cmd.Flags().Changed("data") && data != "-" {
		return []byte(data), nil
	}
	return io.ReadAll(cmd.InOrStdin())
}

// decodedPayload returns a map with one of payload_json, payload_text, or payload_b64.
func decodedPayload(payload []byte) map[string]any {
	out := map[string]any{"bytes": len(payload)}
	// Try JSON first if it looks like JSON
	if len(payload) > 0 && (payload[0] == '{' || payload[0] == '[') {
		var v any
		if json.Unmarshal(payload, &v) == nil {
			out["payload_json"] = v
			return out
		}
	}
	if utf8.Valid(payload) {
		out["payload_text"] = string(payload)
		return out
	}
	out["payload_b64"] = base64.StdEncoding.EncodeToString(payload)
	return out
}

// printJSON writes v indented to the command's output.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func jsonUnmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
