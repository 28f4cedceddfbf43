package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// memStore is an in-memory Store with Drive-like semantics: IDs are
// opaque and names are not unique.
type memStore struct {
	mu      sync.Mutex
	next    int
	objects map[string]Object
	content map[string][]byte

	lists   atomic.Int64
	creates atomic.Int64
}

func newMemStore() *memStore {
	return &memStore{
		objects: map[string]Object{"root": {ID: "root", Name: "root", MimeType: FolderMimeType}},
		content: map[string][]byte{},
	}
}

func (m *memStore) add(parentID, name, mimeType string, data []byte) Object {
	m.next++
	obj := Object{
		ID:       fmt.Sprintf("id-%d", m.next),
		Name:     name,
		MimeType: mimeType,
		Parents:  []string{parentID},
		Size:     int64(len(data)),
	}
	m.objects[obj.ID] = obj
	if mimeType != FolderMimeType {
		m.content[obj.ID] = data
	}
	return obj
}

func (m *memStore) List(ctx context.Context, parentID string, q Query) ([]Object, error) {
	m.lists.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Object
	for i := 1; i <= m.next; i++ {
		obj, ok := m.objects[fmt.Sprintf("id-%d", i)]
		if !ok || obj.Parents[0] != parentID {
			continue
		}
		if q.Name != "" && obj.Name != q.Name {
			continue
		}
		if q.FoldersOnly && !obj.IsFolder() {
			continue
		}
		out = append(out, obj)
	}
	return out, nil
}

func (m *memStore) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[id]
	if !ok {
		return nil, ErrNotFound
	}
	if obj.IsFolder() {
		return nil, ErrIsFolder
	}
	return io.NopCloser(bytes.NewReader(m.content[id])), nil
}

func (m *memStore) Put(ctx context.Context, parentID, name string, r io.Reader, size int64) (Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Object{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, obj := range m.objects {
		if obj.Name == name && !obj.IsFolder() && len(obj.Parents) > 0 && obj.Parents[0] == parentID {
			m.content[id] = data
			obj.Size = int64(len(data))
			m.objects[id] = obj
			return obj, nil
		}
	}
	return m.add(parentID, name, "application/octet-stream", data), nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(id)
	return nil
}

func (m *memStore) deleteLocked(id string) {
	for childID, obj := range m.objects {
		if len(obj.Parents) > 0 && obj.Parents[0] == id {
			m.deleteLocked(childID)
		}
	}
	delete(m.objects, id)
	delete(m.content, id)
}

func (m *memStore) CreateFolder(ctx context.Context, parentID, name string) (Object, error) {
	m.creates.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.add(parentID, name, FolderMimeType, nil), nil
}
