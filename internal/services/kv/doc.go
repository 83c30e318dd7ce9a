// Package kvsvc implements the key-value operations consumed by the HTTP
// transport.
package kvsvc
