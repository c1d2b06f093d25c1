package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrRemote wraps every transport or backend failure of a RemoteCollectionClient.
var ErrRemote = errors.New("remote store error")

// ErrInvalidPath is returned for paths containing characters the tree cannot address.
var ErrInvalidPath = errors.New("invalid path")

// RemoteCollectionClient gives uniform access to a path-addressed document tree.
// Values are JSON-shaped. Calls are single-shot and never retried.
type RemoteCollectionClient interface {
	// Read decodes the node at path into dst. found is false when the node is absent.
	Read(ctx context.Context, path string, dst interface{}) (found bool, err error)
	// Write replaces the node at path. A nil value removes it.
	Write(ctx context.Context, path string, value interface{}) error
	// Merge sets each child named in fields, leaving siblings untouched.
	// Keys may be relative sub-paths.
	Merge(ctx context.Context, path string, fields map[string]interface{}) error
	// Delete removes the node at path and everything under it.
	Delete(ctx context.Context, path string) error
	// AppendGenerateID stores value under a fresh child key of path and returns the key.
	AppendGenerateID(ctx context.Context, path string, value interface{}) (string, error)
}

// Path joins segments into a tree path.
func Path(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// splitPath validates p and returns its segments. The root path has no segments.
func splitPath(p string) ([]string, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil, nil
	}
	segments := strings.Split(p, "/")
	for _, s := range segments {
		if s == "" || strings.ContainsAny(s, ".#$[]") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	return segments, nil
}

func remoteErr(op, path string, err error) error {
	if errors.Is(err, ErrRemote) || errors.Is(err, ErrInvalidPath) {
		return err
	}
	return fmt.Errorf("%w: %s %s: %v", ErrRemote, op, path, err)
}
