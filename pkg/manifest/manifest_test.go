package manifest

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/sdejongh/syncbase/pkg/models"
	"github.com/sdejongh/syncbase/pkg/storage"
)

func newBackend(t *testing.T) *storage.Local {
	t.Helper()
	return storage.NewLocalFS(memfs.New(), "mem")
}

func TestDecode_LegacyWithoutFolders(t *testing.T) {
	data := []byte(`{"files":[{"name":"a.txt","path":"a.txt","sha256":"abc"}],"msg":"init","author":"ana"}`)

	m, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if m.Folders == nil || len(m.Folders) != 0 {
		t.Errorf("Folders = %#v, want empty non-nil slice", m.Folders)
	}
	if len(m.Files) != 1 || m.Files[0].Fingerprint != "abc" {
		t.Errorf("Files = %+v", m.Files)
	}
	if m.Message != "init" || m.Author != "ana" {
		t.Errorf("Message/Author = %q/%q", m.Message, m.Author)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := map[string]string{
		"Empty":       "   ",
		"NotJSON":     "files: []",
		"MissingPath": `{"files":[{"name":"a","sha256":"x"}]}`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode([]byte(input)); err == nil {
				t.Errorf("Decode(%q) should fail", input)
			}
		})
	}
}

func TestDecode_FillsMissingName(t *testing.T) {
	m, err := Decode([]byte(`{"files":[{"path":"dir/x.bin","sha256":"1"}],"folders":["dir"]}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if m.Files[0].Name != "x.bin" {
		t.Errorf("Name = %q, want x.bin", m.Files[0].Name)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	m := &models.Manifest{
		Files: []models.FileEntry{
			models.NewFileEntry("z.txt", "2"),
			models.NewFileEntry("a.txt", "1"),
		},
		Folders: []string{"b", "a"},
	}
	first, err := Encode(m.Clone())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	second, _ := Encode(m.Clone())
	if !bytes.Equal(first, second) {
		t.Error("Encode() is not deterministic")
	}
	if strings.Index(string(first), "a.txt") > strings.Index(string(first), "z.txt") {
		t.Errorf("files not sorted:\n%s", first)
	}
	if !strings.Contains(string(first), `"sha256": "1"`) || !strings.Contains(string(first), `"msg": ""`) {
		t.Errorf("unexpected field names:\n%s", first)
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(context.Background(), newBackend(t), "ghost.sync")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestStoreLoad_RoundTrip(t *testing.T) {
	backend := newBackend(t)
	ctx := context.Background()

	m := models.NewManifest()
	m.SetFile(models.NewFileEntry("docs/readme.md", "aa"))
	m.AddFolder("docs")
	m.Message = "first commit"
	m.Author = "ana"

	if err := Store(ctx, backend, "thesis.sync", m); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	first, err := util.ReadFile(backend.FS(), "thesis.sync")
	if err != nil {
		t.Fatal(err)
	}

	// store(load(p)) twice leaves the bytes unchanged
	for i := 0; i < 2; i++ {
		loaded, err := Load(ctx, backend, "thesis.sync")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if err := Store(ctx, backend, "thesis.sync", loaded); err != nil {
			t.Fatalf("Store() error = %v", err)
		}
	}
	again, _ := util.ReadFile(backend.FS(), "thesis.sync")
	if !bytes.Equal(first, again) {
		t.Errorf("round trip changed the file:\n%s\nvs\n%s", first, again)
	}

	loaded, _ := Load(ctx, backend, "thesis.sync")
	if loaded.Message != "first commit" || !loaded.HasFolder("docs") {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	backend := newBackend(t)
	if err := util.WriteFile(backend.FS(), "bad.sync", []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(context.Background(), backend, "bad.sync")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want parse error", err)
	}
}

func TestNames(t *testing.T) {
	if FileName("thesis") != "thesis.sync" {
		t.Errorf("FileName() = %q", FileName("thesis"))
	}
	for name, want := range map[string]bool{
		"thesis.sync":    true,
		"thesis.rmsync":  true,
		"thesis.pending": true,
		"other.sync":     false,
		"thesis.txt":     false,
	} {
		if got := IsManifestName(name, "thesis"); got != want {
			t.Errorf("IsManifestName(%q) = %v, want %v", name, got, want)
		}
	}
}
