package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"firebase.google.com/go/v4/db"
)

// FirebaseRemote is a RemoteCollectionClient over the Firebase Realtime Database.
type FirebaseRemote struct {
	client *db.Client
}

// NewFirebaseRemote wraps an initialized realtime database client.
func NewFirebaseRemote(client *db.Client) *FirebaseRemote {
	return &FirebaseRemote{client: client}
}

func (r *FirebaseRemote) ref(path string) (*db.Ref, error) {
	segments, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	return r.client.NewRef(Path(segments...)), nil
}

// Read fetches the node at path.
func (r *FirebaseRemote) Read(ctx context.Context, path string, dst interface{}) (bool, error) {
	ref, err := r.ref(path)
	if err != nil {
		return false, err
	}
	var raw json.RawMessage
	if err := ref.Get(ctx, &raw); err != nil {
		return false, remoteErr("read", path, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	if dst != nil {
		if err := json.Unmarshal(raw, dst); err != nil {
			return false, remoteErr("read", path, fmt.Errorf("decode snapshot: %w", err))
		}
	}
	return true, nil
}

// Write sets the node at path.
func (r *FirebaseRemote) Write(ctx context.Context, path string, value interface{}) error {
	ref, err := r.ref(path)
	if err != nil {
		return err
	}
	if value == nil {
		err = ref.Delete(ctx)
	} else {
		err = ref.Set(ctx, value)
	}
	if err != nil {
		return remoteErr("write", path, err)
	}
	return nil
}

// Merge updates the named children of path.
func (r *FirebaseRemote) Merge(ctx context.Context, path string, fields map[string]interface{}) error {
	ref, err := r.ref(path)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	if err := ref.Update(ctx, fields); err != nil {
		return remoteErr("merge", path, err)
	}
	return nil
}

// Delete removes the node at path.
func (r *FirebaseRemote) Delete(ctx context.Context, path string) error {
	ref, err := r.ref(path)
	if err != nil {
		return err
	}
	if err := ref.Delete(ctx); err != nil {
		return remoteErr("delete", path, err)
	}
	return nil
}

// AppendGenerateID pushes value; push keys are time-ordered.
func (r *FirebaseRemote) AppendGenerateID(ctx context.Context, path string, value interface{}) (string, error) {
	ref, err := r.ref(path)
	if err != nil {
		return "", err
	}
	child, err := ref.Push(ctx, value)
	if err != nil {
		return "", remoteErr("append", path, err)
	}
	return child.Key, nil
}
