// Package ratelimit throttles transfer bandwidth with a shared token bucket.
package ratelimit

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

const minBurst = 64 * 1024

// Limiter is shared by every reader of one operation, so the configured
// bandwidth caps the aggregate of all concurrent transfers.
type Limiter struct {
	bytesPerSecond int64
	bucket         *rate.Limiter
}

// NewLimiter creates a limiter allowing one second of traffic as burst.
// Zero or negative rates mean unlimited and return nil; a nil *Limiter is
// valid and never blocks.
func NewLimiter(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	burst := bytesPerSecond
	if burst < minBurst {
		burst = minBurst
	}
	return &Limiter{
		bytesPerSecond: bytesPerSecond,
		bucket:         rate.NewLimiter(rate.Limit(bytesPerSecond), int(burst)),
	}
}

// Rate returns the configured bytes per second
func (l *Limiter) Rate() int64 {
	if l == nil {
		return 0
	}
	return l.bytesPerSecond
}

func (l *Limiter) burst() int {
	return l.bucket.Burst()
}

// WaitN blocks until n bytes may pass or ctx is done. Requests larger than
// the burst are split.
func (l *Limiter) WaitN(ctx context.Context, n int64) error {
	if l == nil || n <= 0 {
		return ctx.Err()
	}
	for n > 0 {
		chunk := int64(l.burst())
		if n < chunk {
			chunk = n
		}
		if err := l.bucket.WaitN(ctx, int(chunk)); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// Reader throttles an io.Reader through a Limiter
type Reader struct {
	ctx     context.Context
	reader  io.Reader
	limiter *Limiter
}

// NewReader wraps reader. With a nil limiter the reader is returned as is.
func NewReader(ctx context.Context, reader io.Reader, limiter *Limiter) io.Reader {
	if limiter == nil {
		return reader
	}
	return &Reader{ctx: ctx, reader: reader, limiter: limiter}
}

// Read pays for the bytes it returns, so a short read never costs a full
// buffer.
func (r *Reader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	if max := r.limiter.burst(); len(p) > max {
		p = p[:max]
	}

	n, err := r.reader.Read(p)
	if n > 0 {
		if werr := r.limiter.bucket.WaitN(r.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}

type readCloser struct {
	io.Reader
	io.Closer
}

// NewReadCloser wraps rc, keeping its Close
func NewReadCloser(ctx context.Context, rc io.ReadCloser, limiter *Limiter) io.ReadCloser {
	if limiter == nil {
		return rc
	}
	return readCloser{Reader: NewReader(ctx, rc, limiter), Closer: rc}
}
