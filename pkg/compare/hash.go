package compare

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"sync"

	"github.com/sdejongh/syncbase/pkg/storage"
)

// Hasher computes content fingerprints: the lowercase hex SHA-256 of a
// byte stream. Files are streamed through pooled buffers, never loaded whole.
type Hasher struct {
	bufferSize int
	bufferPool *sync.Pool
}

// NewHasher creates a hasher with the given copy buffer size
func NewHasher(bufferSize int) *Hasher {
	if bufferSize < 4096 {
		bufferSize = 4096
	}
	return &Hasher{
		bufferSize: bufferSize,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, bufferSize)
				return &buf
			},
		},
	}
}

// SumBytes fingerprints an in-memory payload
func SumBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Sum fingerprints everything read from r and returns the byte count
func (h *Hasher) Sum(ctx context.Context, r io.Reader) (string, int64, error) {
	return h.sum(ctx, "", r)
}

// HashFile fingerprints a file from a storage backend
func (h *Hasher) HashFile(ctx context.Context, backend storage.Backend, path string) (string, int64, error) {
	reader, err := backend.Read(ctx, path)
	if err != nil {
		return "", 0, err
	}
	defer reader.Close()
	return h.sum(ctx, path, reader)
}

func (h *Hasher) sum(ctx context.Context, path string, r io.Reader) (string, int64, error) {
	digest := sha256.New()

	bufPtr := h.bufferPool.Get().(*[]byte)
	buffer := *bufPtr
	defer h.bufferPool.Put(bufPtr)

	var read int64
	for {
		select {
		case <-ctx.Done():
			return "", read, ctx.Err()
		default:
		}

		n, err := r.Read(buffer)
		if n > 0 {
			digest.Write(buffer[:n])
			read += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", read, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	return hex.EncodeToString(digest.Sum(nil)), read, nil
}

// HashingReader fingerprints a stream as it is consumed, so a transfer
// can learn the digest of exactly the bytes it moved.
type HashingReader struct {
	r      io.Reader
	digest hash.Hash
	n      int64
}

// NewHashingReader wraps r
func NewHashingReader(r io.Reader) *HashingReader {
	return &HashingReader{r: r, digest: sha256.New()}
}

func (h *HashingReader) Read(p []byte) (int, error) {
	n, err := h.r.Read(p)
	if n > 0 {
		h.digest.Write(p[:n])
		h.n += int64(n)
	}
	return n, err
}

// Fingerprint returns the digest of the bytes read so far
func (h *HashingReader) Fingerprint() string {
	return hex.EncodeToString(h.digest.Sum(nil))
}

// BytesRead returns how many bytes have passed through
func (h *HashingReader) BytesRead() int64 {
	return h.n
}
