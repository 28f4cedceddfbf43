package models

import "fmt"

// StatusCode classifies a path by comparing its local, baseline and remote states
type StatusCode int

const (
	// CodeSynced: local, baseline and remote agree
	CodeSynced StatusCode = 0
	// CodeLocalEdited: only the local copy changed since the baseline
	CodeLocalEdited StatusCode = 1
	// CodeRemoteChanged: only the remote copy changed since the baseline
	CodeRemoteChanged StatusCode = 2
	// CodeBaselineStale: local and remote agree, the baseline does not
	CodeBaselineStale StatusCode = 3
	// CodeConflict: local, baseline and remote all differ
	CodeConflict StatusCode = 4
	// CodeRemoteOnly: new on the remote
	CodeRemoteOnly StatusCode = 5
	// CodeDeletedLocally: in baseline and remote, gone locally
	CodeDeletedLocally StatusCode = 6
	// CodeDeletedRemotely: in local and baseline, gone from the remote
	CodeDeletedRemotely StatusCode = 7
	// CodeLocalOnly: new locally
	CodeLocalOnly StatusCode = 8
)

var codeLabels = map[StatusCode]string{
	CodeSynced:          "synced",
	CodeLocalEdited:     "local edited",
	CodeRemoteChanged:   "remote changed",
	CodeBaselineStale:   "baseline stale",
	CodeConflict:        "conflict",
	CodeRemoteOnly:      "remote only",
	CodeDeletedLocally:  "deleted locally",
	CodeDeletedRemotely: "deleted on remote",
	CodeLocalOnly:       "local only",
}

// String returns a short human label
func (c StatusCode) String() string {
	if label, ok := codeLabels[c]; ok {
		return label
	}
	return fmt.Sprintf("status(%d)", int(c))
}

// Valid reports whether c is one of the nine defined codes
func (c StatusCode) Valid() bool {
	_, ok := codeLabels[c]
	return ok
}

// Action is a concrete transfer operation
type Action string

const (
	ActionNone               Action = "none"
	ActionUpload             Action = "upload"
	ActionDownload           Action = "download"
	ActionDeleteRemote       Action = "delete-remote"
	ActionDeleteLocal        Action = "delete-local"
	ActionCreateRemoteFolder Action = "create-remote-folder"
	ActionCreateLocalFolder  Action = "create-local-folder"
	// ActionConflict is never executed automatically
	ActionConflict Action = "conflict"
	// ActionPublishManifest writes the remote manifest
	ActionPublishManifest Action = "publish-manifest"
)

// Direction says which side an action modifies
type Direction int

const (
	DirectionNone Direction = iota
	// DirectionPush actions modify the remote (commit)
	DirectionPush
	// DirectionPull actions modify the local tree (pull)
	DirectionPull
)

// Direction returns the side an action writes to
func (a Action) Direction() Direction {
	switch a {
	case ActionUpload, ActionDeleteRemote, ActionCreateRemoteFolder, ActionPublishManifest:
		return DirectionPush
	case ActionDownload, ActionDeleteLocal, ActionCreateLocalFolder:
		return DirectionPull
	default:
		return DirectionNone
	}
}

// Intent returns the file-level action implied by a status code
func (c StatusCode) Intent() Action {
	switch c {
	case CodeLocalEdited, CodeLocalOnly:
		return ActionUpload
	case CodeRemoteChanged, CodeRemoteOnly:
		return ActionDownload
	case CodeDeletedLocally:
		return ActionDeleteRemote
	case CodeDeletedRemotely:
		return ActionDeleteLocal
	case CodeConflict:
		return ActionConflict
	default:
		return ActionNone
	}
}

// Fingerprints carries the three observed content hashes of a record.
// An empty string means the path was absent on that side.
type Fingerprints struct {
	Local    string `json:"local,omitempty"`
	Baseline string `json:"baseline,omitempty"`
	Remote   string `json:"remote,omitempty"`
}

// StatusRecord is one classified path, as shown to the operator
type StatusRecord struct {
	Name         string       `json:"name"`
	RelativePath string       `json:"path"`
	Selected     bool         `json:"select"`
	Status       StatusCode   `json:"status"`
	IsDir        bool         `json:"dir,omitempty"`
	Fingerprints Fingerprints `json:"fingerprints,omitzero"`
}

// Action returns what executing this record would do.
// Directories map to folder creation instead of content transfer.
func (r StatusRecord) Action() Action {
	intent := r.Status.Intent()
	if !r.IsDir {
		return intent
	}
	switch intent {
	case ActionUpload:
		return ActionCreateRemoteFolder
	case ActionDownload:
		return ActionCreateLocalFolder
	default:
		return intent
	}
}

// AnomalyKind categorizes inconsistencies found while classifying or transferring
type AnomalyKind string

const (
	// AnomalyPathKind: a path is a file on one side and a directory on another
	AnomalyPathKind AnomalyKind = "file-directory-clash"
	// AnomalyDuplicate: a manifest lists the same path more than once
	AnomalyDuplicate AnomalyKind = "duplicate-entry"
	// AnomalyInvalidPath: a manifest path is empty, absolute or escapes the root
	AnomalyInvalidPath AnomalyKind = "invalid-path"
	// AnomalyUnreadable: a local file could not be read during the scan
	AnomalyUnreadable AnomalyKind = "unreadable"
	// AnomalyFingerprintMismatch: transferred bytes differ from the manifest
	AnomalyFingerprintMismatch AnomalyKind = "fingerprint-mismatch"
)

// Anomaly is reported to the operator and never silently resolved
type Anomaly struct {
	Path    string      `json:"path"`
	Kind    AnomalyKind `json:"kind"`
	Message string      `json:"message"`
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s: %s (%s)", a.Path, a.Message, a.Kind)
}
