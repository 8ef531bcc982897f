// Package model defines shared types for the stream proxy.
package model

import (
	"errors"
	"io"
	"iter"
	"net/http"
)

// DefaultChunkSize is the re-emission chunk size used when a ProxyResult does not set one.
const DefaultChunkSize = 16 * 1024

// ProxyResult is an upstream response ready to be streamed back to the caller.
// It is owned by the response-writing path of a single request.
type ProxyResult struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
	ChunkSize  int
}

// Chunks returns a single-pass sequence over the upstream body. Iteration stops
// at EOF, at the first read error (yielded once), or when the consumer stops.
func (r *ProxyResult) Chunks() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		size := r.ChunkSize
		if size <= 0 {
			size = DefaultChunkSize
		}
		buf := make([]byte, size)
		for {
			n, err := r.Body.Read(buf)
			if n > 0 {
				if !yield(buf[:n], nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// Close releases the upstream connection.
func (r *ProxyResult) Close() error {
	if r == nil || r.Body == nil {
		return nil
	}
	return r.Body.Close()
}
