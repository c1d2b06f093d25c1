package repositories

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryRemote is an in-memory implementation of RemoteCollectionClient.
// Objects whose keys are exactly 0..n-1 are kept as arrays, as GORMRemote
// and the hosted tree return them.
type MemoryRemote struct {
	root interface{}
	mu   sync.RWMutex
}

// NewMemoryRemote creates an empty in-memory tree.
func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{}
}

// Read decodes the node at path into dst.
func (r *MemoryRemote) Read(_ context.Context, path string, dst interface{}) (bool, error) {
	segments, err := splitPath(path)
	if err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	node := lookup(r.root, segments)
	if node == nil {
		return false, nil
	}
	if err := decodeInto(node, dst); err != nil {
		return false, remoteErr("read", path, err)
	}
	return true, nil
}

// Write replaces the node at path.
func (r *MemoryRemote) Write(_ context.Context, path string, value interface{}) error {
	segments, err := splitPath(path)
	if err != nil {
		return err
	}
	node, err := normalize(value)
	if err != nil {
		return remoteErr("write", path, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.root = densify(assign(r.root, segments, node))
	return nil
}

// Merge sets each named child of path.
func (r *MemoryRemote) Merge(_ context.Context, path string, fields map[string]interface{}) error {
	if _, err := splitPath(path); err != nil {
		return err
	}
	type update struct {
		segments []string
		node     interface{}
	}
	updates := make([]update, 0, len(fields))
	for key, value := range fields {
		child, err := splitPath(Path(path, key))
		if err != nil {
			return err
		}
		node, err := normalize(value)
		if err != nil {
			return remoteErr("merge", path, err)
		}
		updates = append(updates, update{segments: child, node: node})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range updates {
		r.root = assign(r.root, u.segments, u.node)
	}
	r.root = densify(r.root)
	return nil
}

// Delete removes the node at path.
func (r *MemoryRemote) Delete(_ context.Context, path string) error {
	segments, err := splitPath(path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.root = densify(assign(r.root, segments, nil))
	return nil
}

// AppendGenerateID stores value under a new time-ordered key.
func (r *MemoryRemote) AppendGenerateID(_ context.Context, path string, value interface{}) (string, error) {
	segments, err := splitPath(path)
	if err != nil {
		return "", err
	}
	node, err := normalize(value)
	if err != nil {
		return "", remoteErr("append", path, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		id, err := uuid.NewV7()
		if err != nil {
			return "", remoteErr("append", path, fmt.Errorf("generate key: %w", err))
		}
		key := id.String()
		child := append(append([]string{}, segments...), key)
		if lookup(r.root, child) != nil {
			continue
		}
		r.root = densify(assign(r.root, child, node))
		return key, nil
	}
}
