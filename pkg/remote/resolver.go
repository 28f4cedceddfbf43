package remote

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Resolver maps slash-separated relative paths to remote folder IDs.
// Resolved folders are memoized, and concurrent lookups of the same folder
// collapse into one store round trip. A Resolver is meant to live for one
// commit or pull; it does not notice folders removed by other clients.
type Resolver struct {
	store  Store
	rootID string

	mu      sync.RWMutex
	folders map[string]string
	group   singleflight.Group
}

// NewResolver creates a resolver rooted at rootID
func NewResolver(store Store, rootID string) *Resolver {
	return &Resolver{
		store:   store,
		rootID:  rootID,
		folders: map[string]string{"": rootID},
	}
}

// Root returns the root folder ID
func (r *Resolver) Root() string {
	return r.rootID
}

// Folder returns the ID of an existing folder, or ErrNotFound
func (r *Resolver) Folder(ctx context.Context, dir string) (string, error) {
	return r.resolve(ctx, dir, false)
}

// EnsureFolder returns the ID of dir, creating missing folders on the way.
// An existing same-named folder is always reused.
func (r *Resolver) EnsureFolder(ctx context.Context, dir string) (string, error) {
	return r.resolve(ctx, dir, true)
}

// Lookup finds the object at relPath. When several objects share the
// name, files win over folders.
func (r *Resolver) Lookup(ctx context.Context, relPath string) (Object, error) {
	dir, name := split(relPath)
	parentID, err := r.Folder(ctx, dir)
	if err != nil {
		return Object{}, err
	}

	objs, err := r.store.List(ctx, parentID, Query{Name: name})
	if err != nil {
		return Object{}, fmt.Errorf("list %s: %w", relPath, err)
	}
	if len(objs) == 0 {
		return Object{}, fmt.Errorf("%s: %w", relPath, ErrNotFound)
	}
	for _, o := range objs {
		if !o.IsFolder() {
			return o, nil
		}
	}
	return objs[0], nil
}

// Forget drops dir and everything below it from the cache
func (r *Resolver) Forget(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for p := range r.folders {
		if p != "" && (p == dir || strings.HasPrefix(p, dir+"/")) {
			delete(r.folders, p)
		}
	}
}

func (r *Resolver) cached(dir string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.folders[dir]
	return id, ok
}

func (r *Resolver) remember(dir, id string) {
	r.mu.Lock()
	r.folders[dir] = id
	r.mu.Unlock()
}

func (r *Resolver) resolve(ctx context.Context, dir string, create bool) (string, error) {
	dir = strings.Trim(dir, "/")
	if dir == "" || dir == "." {
		return r.rootID, nil
	}
	if id, ok := r.cached(dir); ok {
		return id, nil
	}

	parentID := r.rootID
	segments := strings.Split(dir, "/")
	for i, seg := range segments {
		prefix := strings.Join(segments[:i+1], "/")
		if id, ok := r.cached(prefix); ok {
			parentID = id
			continue
		}

		key := "lookup:" + prefix
		if create {
			key = "ensure:" + prefix
		}
		parent := parentID
		v, err, _ := r.group.Do(key, func() (interface{}, error) {
			if id, ok := r.cached(prefix); ok {
				return id, nil
			}
			return r.step(ctx, parent, seg, prefix, create)
		})
		if err != nil {
			return "", err
		}
		parentID = v.(string)
	}
	return parentID, nil
}

// step resolves one path segment under parentID
func (r *Resolver) step(ctx context.Context, parentID, name, prefix string, create bool) (string, error) {
	objs, err := r.store.List(ctx, parentID, Query{Name: name, FoldersOnly: true})
	if err != nil {
		return "", fmt.Errorf("look up folder %s: %w", prefix, err)
	}
	if len(objs) > 0 {
		r.remember(prefix, objs[0].ID)
		return objs[0].ID, nil
	}
	if !create {
		return "", fmt.Errorf("folder %s: %w", prefix, ErrNotFound)
	}

	obj, err := r.store.CreateFolder(ctx, parentID, name)
	if err != nil {
		return "", fmt.Errorf("create folder %s: %w", prefix, err)
	}
	r.remember(prefix, obj.ID)
	return obj.ID, nil
}

// split returns the parent directory ("" for the root) and base name
func split(relPath string) (string, string) {
	relPath = strings.Trim(relPath, "/")
	dir, name := path.Split(relPath)
	return strings.TrimSuffix(dir, "/"), name
}
