package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const driveFields = "id,name,mimeType,parents,size"

// DriveConfig configures a Google Drive store
type DriveConfig struct {
	// FolderID is the Drive folder acting as the remote root
	FolderID string
	// DriveID selects a shared drive; empty means the user's own drive
	DriveID string
	// Endpoint overrides the API base URL. It ends in "/drive/v3/".
	Endpoint string
}

// DriveStore talks to the Drive v3 API
type DriveStore struct {
	files   *drive.FilesService
	rootID  string
	driveID string
}

// NewDriveStore creates a store whose requests carry tokens from tokens
func NewDriveStore(ctx context.Context, tokens oauth2.TokenSource, cfg DriveConfig) (*DriveStore, error) {
	if cfg.FolderID == "" {
		return nil, errors.New("drive folder ID is required")
	}
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, tokens))}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}
	return &DriveStore{files: svc.Files, rootID: cfg.FolderID, driveID: cfg.DriveID}, nil
}

// RootID returns the configured root folder
func (d *DriveStore) RootID() string {
	return d.rootID
}

func driveObject(f *drive.File) Object {
	return Object{ID: f.Id, Name: f.Name, MimeType: f.MimeType, Parents: f.Parents, Size: f.Size}
}

// driveError maps API failures onto the store errors. A 404 is reported
// as ErrNotFound.
func driveError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusNotFound {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		msg := gerr.Message
		if msg == "" {
			msg = strings.TrimSpace(gerr.Body)
		}
		return &APIError{Op: op, StatusCode: gerr.Code, Message: msg}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// quote escapes a literal for the Drive query language
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, `'`, `\'`) + "'"
}

// List queries the non-trashed children of parentID
func (d *DriveStore) List(ctx context.Context, parentID string, q Query) ([]Object, error) {
	clauses := []string{quote(parentID) + " in parents", "trashed = false"}
	if q.Name != "" {
		clauses = append(clauses, "name = "+quote(q.Name))
	}
	if q.FoldersOnly {
		clauses = append(clauses, "mimeType = "+quote(FolderMimeType))
	}

	call := d.files.List().
		Q(strings.Join(clauses, " and ")).
		Fields("nextPageToken,files(" + driveFields + ")").
		PageSize(1000).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true)
	if d.driveID != "" {
		call = call.Corpora("drive").DriveId(d.driveID)
	}

	var out []Object
	err := call.Pages(ctx, func(page *drive.FileList) error {
		for _, f := range page.Files {
			out = append(out, driveObject(f))
		}
		return nil
	})
	if err != nil {
		return nil, driveError("list "+parentID, err)
	}
	return out, nil
}

// Get downloads a file's content. Folders yield ErrIsFolder.
func (d *DriveStore) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	meta, err := d.files.Get(id).Fields(driveFields).SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return nil, driveError("get "+id, err)
	}
	if meta.MimeType == FolderMimeType {
		return nil, fmt.Errorf("get %s: %w", id, ErrIsFolder)
	}

	resp, err := d.files.Get(id).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, driveError("download "+id, err)
	}
	return resp.Body, nil
}

// Put overwrites the same-named file under parentID, or creates it when
// none exists. Content is streamed in a single multipart request.
func (d *DriveStore) Put(ctx context.Context, parentID, name string, r io.Reader, size int64) (Object, error) {
	existing, err := d.List(ctx, parentID, Query{Name: name})
	if err != nil {
		return Object{}, err
	}

	contentType, body, err := sniff(r)
	if err != nil {
		return Object{}, fmt.Errorf("put %s: %w", name, err)
	}
	media := []googleapi.MediaOption{googleapi.ContentType(contentType), googleapi.ChunkSize(0)}

	for _, o := range existing {
		if o.IsFolder() {
			continue
		}
		f, err := d.files.Update(o.ID, &drive.File{}).
			Media(body, media...).
			Fields(driveFields).
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return Object{}, driveError("update "+name, err)
		}
		return driveObject(f), nil
	}

	f, err := d.files.Create(&drive.File{Name: name, MimeType: contentType, Parents: []string{parentID}}).
		Media(body, media...).
		Fields(driveFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return Object{}, driveError("create "+name, err)
	}
	return driveObject(f), nil
}

// Delete removes an object permanently. Folders take their contents along.
func (d *DriveStore) Delete(ctx context.Context, id string) error {
	if id == d.rootID {
		return errors.New("refusing to delete the remote root")
	}
	err := d.files.Delete(id).SupportsAllDrives(true).Context(ctx).Do()
	if err == nil {
		return nil
	}
	if err = driveError("delete "+id, err); errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// CreateFolder creates a folder under parentID
func (d *DriveStore) CreateFolder(ctx context.Context, parentID, name string) (Object, error) {
	f, err := d.files.Create(&drive.File{Name: name, MimeType: FolderMimeType, Parents: []string{parentID}}).
		Fields(driveFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return Object{}, driveError("create folder "+name, err)
	}
	return driveObject(f), nil
}
