package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Entry is one child of a collection node.
type Entry[T any] struct {
	Key   string
	Value T
}

// ReadCollection reads the children of path. An absent node is an empty
// collection.
func ReadCollection[T any](ctx context.Context, r RemoteCollectionClient, path string) ([]Entry[T], error) {
	var raw json.RawMessage
	found, err := r.Read(ctx, path, &raw)
	if err != nil || !found {
		return nil, err
	}
	entries, err := DecodeCollection[T](raw)
	if err != nil {
		return nil, remoteErr("read", path, err)
	}
	return entries, nil
}

// DecodeCollection decodes a collection node. Objects yield their members
// sorted by key. Arrays, which the tree returns for keys 0..n-1, yield their
// slots in index order keyed by the index; null slots are skipped.
func DecodeCollection[T any](raw json.RawMessage) ([]Entry[T], error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	switch raw[0] {
	case '[':
		var slots []json.RawMessage
		if err := json.Unmarshal(raw, &slots); err != nil {
			return nil, fmt.Errorf("decode collection: %w", err)
		}
		entries := make([]Entry[T], 0, len(slots))
		for i, slot := range slots {
			if isNull(slot) {
				continue
			}
			e, err := decodeEntry[T](strconv.Itoa(i), slot)
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}
		return entries, nil
	case '{':
		var members map[string]json.RawMessage
		if err := json.Unmarshal(raw, &members); err != nil {
			return nil, fmt.Errorf("decode collection: %w", err)
		}
		keys := make([]string, 0, len(members))
		for k, v := range members {
			if !isNull(v) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		entries := make([]Entry[T], 0, len(keys))
		for _, k := range keys {
			e, err := decodeEntry[T](k, members[k])
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}
		return entries, nil
	}
	return nil, fmt.Errorf("decode collection: expected object or array, got %.20s", raw)
}

func decodeEntry[T any](key string, raw json.RawMessage) (Entry[T], error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return Entry[T]{}, fmt.Errorf("decode collection member %s: %w", key, err)
	}
	return Entry[T]{Key: key, Value: v}, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
