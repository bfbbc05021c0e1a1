package pack

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/odvcencio/packforge/pkg/transport"
)

// Sink is the pluggable byte-stream destination a completed pack is handed
// to: file, in-memory buffer, or network. The contract is "write(bytes) ->
// ok|error" (§6): any error aborts the send.
type Sink interface {
	Write(ctx context.Context, data []byte) error
}

// BufferSink appends every write to an in-memory buffer, for tests and for
// embedding packforge in a process that wants the bytes directly rather
// than through Builder.WriteToBuffer.
type BufferSink struct {
	buf bytes.Buffer
}

// Write appends data to the sink's buffer.
func (s *BufferSink) Write(_ context.Context, data []byte) error {
	_, err := s.buf.Write(data)
	return err
}

// Bytes returns the accumulated pack bytes.
func (s *BufferSink) Bytes() []byte {
	return s.buf.Bytes()
}

// FileSink writes a complete pack to Path atomically: a temp file beside
// Path, renamed into place on success, removed on failure. Builder's own
// WriteToFile takes this same approach without the Sink indirection;
// FileSink exists so the file destination can be passed through Send
// alongside BufferSink and NetworkSink.
type FileSink struct {
	Path string
}

// Write implements Sink by delegating to writeFileAtomic.
func (s *FileSink) Write(_ context.Context, data []byte) error {
	return writeFileAtomic(s.Path, data)
}

// writeFileAtomic writes data to a temp file beside path and renames it
// into place, matching the atomic-publish discipline Builder.WriteToFile
// uses for its own streaming write.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp pack file: %v", ErrIO, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write temp pack file: %v", ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp pack file: %v", ErrIO, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename temp pack file into place: %v", ErrIO, err)
	}
	return nil
}

// NetworkSink posts a pack to a remote endpoint over HTTP, retrying on 429
// and 5xx responses with exponential backoff via pkg/transport and
// optionally compressing the body with zstd.
type NetworkSink struct {
	Client      *http.Client
	URL         string
	MaxAttempts int
	UseZstd     bool
}

// NewNetworkSink returns a NetworkSink with sensible defaults: three
// attempts, a bare *http.Client, zstd compression enabled.
func NewNetworkSink(url string) *NetworkSink {
	return &NetworkSink{
		Client:      &http.Client{},
		URL:         url,
		MaxAttempts: 3,
		UseZstd:     true,
	}
}

// Write posts data as the request body, retrying per transport.RetryDo's
// policy.
func (s *NetworkSink) Write(ctx context.Context, data []byte) error {
	body := data
	encoding := ""
	if s.UseZstd {
		compressed, err := transport.CompressZstd(data)
		if err != nil {
			return fmt.Errorf("%w: compress pack body: %v", ErrIO, err)
		}
		body = compressed
		encoding = "zstd"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrIO, err)
	}
	req.Header.Set("Content-Type", "application/x-packforge-pack")
	if encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}

	resp, err := transport.RetryDo(ctx, s.Client, req, s.MaxAttempts)
	if err != nil {
		return fmt.Errorf("%w: send pack: %v", ErrIO, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: remote rejected pack with status %d", ErrIO, resp.StatusCode)
	}
	return nil
}
