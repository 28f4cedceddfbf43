package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sdejongh/syncbase/pkg/manifest"
	"github.com/sdejongh/syncbase/pkg/models"
	"github.com/sdejongh/syncbase/pkg/remote"
	"github.com/sdejongh/syncbase/pkg/storage"
)

const (
	digestHi     = "8f434346648f6b96df89dda901c5176b10a6d83961dd3c1ac88b59b2dc327aa4"
	digestHiBang = "c0ddd62c7717180e7ffb8a15bb9674d3ec92592e0b7ac7d1d5289836b4553be2"
)

// TestHelper provides a workspace and a folder remote on disk
type TestHelper struct {
	t         *testing.T
	localDir  string
	remoteDir string
	session   *Session
}

// NewTestHelper creates a workspace, an empty remote and an engine session
func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()
	return newHelperWithRemote(t, t.TempDir())
}

// Clone returns a second workspace sharing h's remote
func (h *TestHelper) Clone() *TestHelper {
	h.t.Helper()
	return newHelperWithRemote(h.t, h.remoteDir)
}

func newHelperWithRemote(t *testing.T, remoteDir string) *TestHelper {
	t.Helper()
	localDir := t.TempDir()

	workspace, err := storage.NewLocal(localDir)
	if err != nil {
		t.Fatalf("failed to create workspace backend: %v", err)
	}
	remoteBackend, err := storage.NewLocal(remoteDir)
	if err != nil {
		t.Fatalf("failed to create remote backend: %v", err)
	}
	store := remote.NewFolderStore(remoteBackend)

	return &TestHelper{
		t:         t,
		localDir:  localDir,
		remoteDir: remoteDir,
		session: &Session{
			Workspace:   workspace,
			Remote:      store,
			RemoteRoot:  store.RootID(),
			ProjectName: "thesis",
			RemoteName:  "remote",
			Author:      "ada",
		},
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatalf("failed to create parent dir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}

func exists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name)))
	return err == nil
}

func (h *TestHelper) WriteLocal(name, content string) {
	h.t.Helper()
	writeFile(h.t, h.localDir, name, content)
}

func (h *TestHelper) WriteRemote(name, content string) {
	h.t.Helper()
	writeFile(h.t, h.remoteDir, name, content)
}

func (h *TestHelper) ReadLocal(name string) string {
	h.t.Helper()
	return readFile(h.t, h.localDir, name)
}

func (h *TestHelper) ReadRemote(name string) string {
	h.t.Helper()
	return readFile(h.t, h.remoteDir, name)
}

func (h *TestHelper) Engine(mutate ...func(*models.TransferOptions)) *Engine {
	h.t.Helper()
	opts := models.DefaultTransferOptions()
	for _, m := range mutate {
		m(&opts)
	}
	engine, err := NewEngine(opts, nil, nil)
	if err != nil {
		h.t.Fatalf("NewEngine() error = %v", err)
	}
	return engine
}

func (h *TestHelper) Init(engine *Engine) {
	h.t.Helper()
	if _, err := engine.Initialize(context.Background(), h.session); err != nil {
		h.t.Fatalf("Initialize() error = %v", err)
	}
}

func (h *TestHelper) Status(engine *Engine) *Status {
	h.t.Helper()
	status, err := engine.ScanStatus(context.Background(), h.session)
	if err != nil {
		h.t.Fatalf("ScanStatus() error = %v", err)
	}
	return status
}

func (h *TestHelper) Commit(engine *Engine, records []models.StatusRecord, message string) *models.TransferReport {
	h.t.Helper()
	report, err := engine.Commit(context.Background(), h.session, records, message)
	if err != nil {
		h.t.Fatalf("Commit() error = %v", err)
	}
	return report
}

func (h *TestHelper) Pull(engine *Engine, records []models.StatusRecord) *models.TransferReport {
	h.t.Helper()
	report, err := engine.Pull(context.Background(), h.session, records)
	if err != nil {
		h.t.Fatalf("Pull() error = %v", err)
	}
	return report
}

func (h *TestHelper) Baseline() *models.Manifest {
	h.t.Helper()
	m, err := manifest.Load(context.Background(), h.session.Workspace, h.session.BaselineFile())
	if err != nil {
		h.t.Fatalf("failed to load baseline: %v", err)
	}
	return m
}

func (h *TestHelper) RemoteManifest() *models.Manifest {
	h.t.Helper()
	m, err := manifest.Decode([]byte(h.ReadRemote("remote.sync")))
	if err != nil {
		h.t.Fatalf("failed to decode remote manifest: %v", err)
	}
	return m
}

// record returns the status record for relPath, failing if absent
func record(t *testing.T, status *Status, relPath string) models.StatusRecord {
	t.Helper()
	for _, r := range status.Records {
		if r.RelativePath == relPath {
			return r
		}
	}
	t.Fatalf("no status record for %s", relPath)
	return models.StatusRecord{}
}

func hasRecord(status *Status, relPath string) bool {
	for _, r := range status.Records {
		if r.RelativePath == relPath {
			return true
		}
	}
	return false
}

func expectCode(t *testing.T, status *Status, relPath string, want models.StatusCode) {
	t.Helper()
	if got := record(t, status, relPath).Status; got != want {
		t.Errorf("%s: status = %d (%s), want %d (%s)", relPath, got, got, want, want)
	}
}
