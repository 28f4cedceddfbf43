package compare

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/sdejongh/syncbase/pkg/storage"
)

const (
	digestEmpty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	digestHi    = "8f434346648f6b96df89dda901c5176b10a6d83961dd3c1ac88b59b2dc327aa4"
)

func newBackend(t *testing.T, files map[string][]byte) *storage.Local {
	t.Helper()
	fs := memfs.New()
	for name, data := range files {
		if err := util.WriteFile(fs, name, data, 0644); err != nil {
			t.Fatalf("failed to seed %s: %v", name, err)
		}
	}
	return storage.NewLocalFS(fs, "mem")
}

func TestSumBytes(t *testing.T) {
	if got := SumBytes(nil); got != digestEmpty {
		t.Errorf("SumBytes(nil) = %s, want %s", got, digestEmpty)
	}
	if got := SumBytes([]byte("hi")); got != digestHi {
		t.Errorf("SumBytes(hi) = %s, want %s", got, digestHi)
	}
}

func TestHasher_HashFile(t *testing.T) {
	backend := newBackend(t, map[string][]byte{
		"a.txt":     []byte("hi"),
		"empty.bin": {},
		"big.bin":   bytes.Repeat([]byte("x"), 300*1024),
	})
	hasher := NewHasher(4096)
	ctx := context.Background()

	t.Run("SmallFile", func(t *testing.T) {
		fp, n, err := hasher.HashFile(ctx, backend, "a.txt")
		if err != nil {
			t.Fatalf("HashFile() error = %v", err)
		}
		if fp != digestHi || n != 2 {
			t.Errorf("HashFile() = %s, %d; want %s, 2", fp, n, digestHi)
		}
	})

	t.Run("EmptyFile", func(t *testing.T) {
		fp, _, err := hasher.HashFile(ctx, backend, "empty.bin")
		if err != nil {
			t.Fatalf("HashFile() error = %v", err)
		}
		if fp != digestEmpty {
			t.Errorf("HashFile() = %s, want empty digest", fp)
		}
	})

	t.Run("MatchesInMemoryDigest", func(t *testing.T) {
		fp, n, err := hasher.HashFile(ctx, backend, "big.bin")
		if err != nil {
			t.Fatalf("HashFile() error = %v", err)
		}
		if want := SumBytes(bytes.Repeat([]byte("x"), 300*1024)); fp != want {
			t.Errorf("streamed digest %s differs from in-memory %s", fp, want)
		}
		if n != 300*1024 {
			t.Errorf("bytes = %d, want %d", n, 300*1024)
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		if _, _, err := hasher.HashFile(ctx, backend, "nope.txt"); err == nil {
			t.Error("HashFile() should fail for a missing file")
		}
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		if _, _, err := hasher.HashFile(cancelled, backend, "big.bin"); err == nil {
			t.Error("HashFile() should return error on cancelled context")
		}
	})
}

func TestHashingReader(t *testing.T) {
	hr := NewHashingReader(strings.NewReader("hi"))
	data, err := io.ReadAll(hr)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != "hi" {
		t.Errorf("passthrough = %q", data)
	}
	if hr.Fingerprint() != digestHi || hr.BytesRead() != 2 {
		t.Errorf("Fingerprint() = %s, BytesRead() = %d", hr.Fingerprint(), hr.BytesRead())
	}
}
