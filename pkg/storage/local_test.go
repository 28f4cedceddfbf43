package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
)

func newMemLocal(t *testing.T, files map[string]string) *Local {
	t.Helper()
	fs := memfs.New()
	for name, content := range files {
		if err := util.WriteFile(fs, name, []byte(content), 0644); err != nil {
			t.Fatalf("failed to seed %s: %v", name, err)
		}
	}
	return NewLocalFS(fs, "mem")
}

func TestNewLocal(t *testing.T) {
	t.Run("ValidDirectory", func(t *testing.T) {
		local, err := NewLocal(t.TempDir())
		if err != nil {
			t.Fatalf("NewLocal() error = %v", err)
		}
		defer local.Close()
		if !filepath.IsAbs(local.Root()) {
			t.Errorf("Root() = %q, want absolute path", local.Root())
		}
	})

	t.Run("NonExistentPath", func(t *testing.T) {
		if _, err := NewLocal(filepath.Join(t.TempDir(), "missing")); err == nil {
			t.Error("NewLocal() should fail for non-existent path")
		}
	})

	t.Run("FileNotDirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "plain.txt")
		if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := NewLocal(file); err == nil {
			t.Error("NewLocal() should fail for file path (not directory)")
		}
	})
}

func TestLocalWalk(t *testing.T) {
	local := newMemLocal(t, map[string]string{
		"b.txt":         "b",
		"a/one.txt":     "1",
		"a/deep/two.md": "2",
	})

	var seen []string
	err := local.Walk(context.Background(), func(info FileInfo, err error) error {
		if err != nil {
			t.Errorf("unexpected walk error for %s: %v", info.RelativePath, err)
			return nil
		}
		kind := "f"
		if info.IsDir {
			kind = "d"
		}
		seen = append(seen, kind+":"+info.RelativePath)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	want := "d:a d:a/deep f:a/deep/two.md f:a/one.txt f:b.txt"
	if got := strings.Join(seen, " "); got != want {
		t.Errorf("Walk() visited %q, want %q", got, want)
	}
}

func TestLocalWalk_Cancelled(t *testing.T) {
	local := newMemLocal(t, map[string]string{"a.txt": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := local.Walk(ctx, func(FileInfo, error) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Walk() error = %v, want context.Canceled", err)
	}
}

func TestLocalReadWrite(t *testing.T) {
	local := newMemLocal(t, nil)
	ctx := context.Background()

	n, err := local.Write(ctx, "nested/dir/file.bin", bytes.NewReader([]byte("payload")))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != 7 {
		t.Errorf("Write() = %d bytes, want 7", n)
	}

	rc, err := local.Read(ctx, "nested/dir/file.bin")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "payload" {
		t.Errorf("Read() = %q, want payload", data)
	}

	entries, err := local.ReadDir(ctx, "nested/dir")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || entries[0].RelativePath != "nested/dir/file.bin" {
		t.Errorf("ReadDir() = %+v, want only file.bin (no temp leftovers)", entries)
	}
}

func TestLocalWrite_ReplacesExisting(t *testing.T) {
	local := newMemLocal(t, map[string]string{"f.txt": "old content"})
	ctx := context.Background()

	if _, err := local.Write(ctx, "f.txt", strings.NewReader("new")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	data, err := util.ReadFile(local.FS(), "f.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new" {
		t.Errorf("content = %q, want new", data)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("stream broke") }

func TestLocalWrite_FailureKeepsOriginal(t *testing.T) {
	local := newMemLocal(t, map[string]string{"keep.txt": "original"})
	ctx := context.Background()

	if _, err := local.Write(ctx, "keep.txt", failingReader{}); err == nil {
		t.Fatal("Write() should fail when the reader fails")
	}

	data, _ := util.ReadFile(local.FS(), "keep.txt")
	if string(data) != "original" {
		t.Errorf("content = %q, want original untouched", data)
	}
	entries, _ := local.ReadDir(ctx, "")
	for _, e := range entries {
		if IsTempName(filepath.Base(e.RelativePath)) {
			t.Errorf("temp file left behind: %s", e.RelativePath)
		}
	}
}

func TestLocalDelete(t *testing.T) {
	local := newMemLocal(t, map[string]string{
		"old/a.txt":     "a",
		"old/sub/b.txt": "b",
		"keep.txt":      "k",
	})
	ctx := context.Background()

	if err := local.Delete(ctx, "old"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if ok, _ := local.Exists(ctx, "old"); ok {
		t.Error("directory still exists after Delete")
	}
	if ok, _ := local.Exists(ctx, "keep.txt"); !ok {
		t.Error("sibling removed by Delete")
	}
	if err := local.Delete(ctx, "never-there"); err != nil {
		t.Errorf("Delete() of missing path error = %v, want nil", err)
	}
	if err := local.Delete(ctx, ""); err == nil {
		t.Error("Delete() of the root should be refused")
	}
}

func TestLocalStatAndMkdirAll(t *testing.T) {
	local := newMemLocal(t, map[string]string{"x/y.txt": "hello"})
	ctx := context.Background()

	info, err := local.Stat(ctx, "x/y.txt")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size != 5 || info.IsDir || info.RelativePath != "x/y.txt" {
		t.Errorf("Stat() = %+v", info)
	}

	if err := local.MkdirAll(ctx, "p/q/r"); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	info, err = local.Stat(ctx, "p/q/r")
	if err != nil || !info.IsDir {
		t.Errorf("Stat(p/q/r) = %+v, %v; want directory", info, err)
	}

	if _, err := local.Stat(ctx, "missing"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Stat(missing) error = %v, want ErrNotExist", err)
	}
}

func TestLocal_RejectsEscapingPaths(t *testing.T) {
	local := newMemLocal(t, nil)
	ctx := context.Background()

	if _, err := local.Read(ctx, "../outside"); err == nil {
		t.Error("Read() should reject paths containing ..")
	}
	if _, err := local.Write(ctx, "a/../../b", strings.NewReader("x")); err == nil {
		t.Error("Write() should reject paths containing ..")
	}
}

func TestLocalOnDisk(t *testing.T) {
	dir := t.TempDir()
	local, err := NewLocal(dir)
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	ctx := context.Background()

	if _, err := local.Write(ctx, "sub/file.txt", strings.NewReader("disk")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "sub", "file.txt"))
	if err != nil || string(data) != "disk" {
		t.Errorf("on-disk content = %q, %v", data, err)
	}
}

func TestBackendInterface(t *testing.T) {
	var _ Backend = (*Local)(nil)
}
