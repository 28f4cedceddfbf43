package sync

import (
	"errors"
	"strings"

	"github.com/sdejongh/syncbase/pkg/manifest"
	"github.com/sdejongh/syncbase/pkg/models"
	"github.com/sdejongh/syncbase/pkg/remote"
	"github.com/sdejongh/syncbase/pkg/storage"
)

var (
	// ErrNotInitialized is returned when the project has no baseline manifest
	ErrNotInitialized = errors.New("project is not initialized, run 'syncbase init'")
	// ErrAlreadyInitialized is returned by Initialize when a baseline exists
	ErrAlreadyInitialized = errors.New("project is already initialized")
)

// Session carries the project and remote an operation works on.
// It replaces any process-wide notion of "current project".
type Session struct {
	// Workspace is the project directory
	Workspace storage.Backend
	// Remote is the store the project is mirrored to
	Remote remote.Store
	// RemoteRoot is the ID of the remote folder mirroring the project root
	RemoteRoot string

	// ProjectName names the baseline manifest, <ProjectName>.sync
	ProjectName string
	// RemoteName names the remote manifest, <RemoteName>.sync in RemoteRoot
	RemoteName string
	// Author is recorded in manifests written by commits
	Author string
}

// Validate checks the session is usable
func (s *Session) Validate() error {
	switch {
	case s.Workspace == nil:
		return &models.ValidationError{Field: "Workspace", Message: "workspace backend is required"}
	case s.Remote == nil:
		return &models.ValidationError{Field: "Remote", Message: "remote store is required"}
	case !validName(s.ProjectName):
		return &models.ValidationError{Field: "ProjectName", Message: "project name must be a plain file name"}
	case !validName(s.RemoteName):
		return &models.ValidationError{Field: "RemoteName", Message: "remote name must be a plain file name"}
	}
	return nil
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// BaselineFile is the baseline manifest path inside the workspace
func (s *Session) BaselineFile() string {
	return manifest.FileName(s.ProjectName)
}

// ShadowFile is the local copy of the last fetched remote manifest
func (s *Session) ShadowFile() string {
	return s.ProjectName + manifest.ShadowExtension
}

// PendingFile lists remote paths whose manifest entries a commit could not
// make true
func (s *Session) PendingFile() string {
	return s.ProjectName + manifest.PendingExtension
}

// RemoteFile is the remote manifest name inside RemoteRoot
func (s *Session) RemoteFile() string {
	return manifest.FileName(s.RemoteName)
}
