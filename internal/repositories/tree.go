package repositories

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// normalize converts v into the generic JSON shape (maps, slices, float64,
// string, bool, nil) so every backend stores the same thing. Empty objects
// collapse to nil.
func normalize(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return prune(out), nil
}

// prune drops null members and empty objects, mirroring how the hosted tree
// never stores them.
func prune(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			if p := prune(child); p == nil {
				delete(t, k)
			} else {
				t[k] = p
			}
		}
		if len(t) == 0 {
			return nil
		}
		return t
	case []interface{}:
		if len(t) == 0 {
			return nil
		}
		for i := range t {
			t[i] = prune(t[i])
		}
		return t
	}
	return v
}

// decodeInto re-encodes a generic node into dst.
func decodeInto(node interface{}, dst interface{}) error {
	if dst == nil {
		return nil
	}
	raw, err := json.Marshal(node)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func lookup(root interface{}, segments []string) interface{} {
	node := root
	for _, s := range segments {
		switch t := node.(type) {
		case map[string]interface{}:
			node = t[s]
		case []interface{}:
			i, err := strconv.Atoi(s)
			if err != nil || i < 0 || i >= len(t) {
				return nil
			}
			node = t[i]
		default:
			return nil
		}
		if node == nil {
			return nil
		}
	}
	return node
}

// assign sets value at segments below root and returns the new root.
// Intermediate scalars and arrays are replaced by objects.
func assign(root interface{}, segments []string, value interface{}) interface{} {
	if len(segments) == 0 {
		return value
	}
	m := asObject(root)
	head := segments[0]
	child := assign(m[head], segments[1:], value)
	if child == nil {
		delete(m, head)
	} else {
		m[head] = child
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func asObject(node interface{}) map[string]interface{} {
	switch t := node.(type) {
	case map[string]interface{}:
		return t
	case []interface{}:
		m := make(map[string]interface{}, len(t))
		for i, v := range t {
			if v != nil {
				m[strconv.Itoa(i)] = v
			}
		}
		return m
	}
	return make(map[string]interface{})
}

// flatten lists every leaf below node keyed by its full path.
func flatten(prefix string, node interface{}, out map[string]interface{}) {
	switch t := node.(type) {
	case map[string]interface{}:
		for k, v := range t {
			flatten(Path(prefix, k), v, out)
		}
	case []interface{}:
		for i, v := range t {
			flatten(Path(prefix, strconv.Itoa(i)), v, out)
		}
	case nil:
	default:
		out[prefix] = t
	}
}

// unflatten rebuilds the subtree at base from leaves keyed by full path.
func unflatten(base string, leaves map[string]interface{}) interface{} {
	var root interface{}
	baseSegments, _ := splitPath(base)
	keys := make([]string, 0, len(leaves))
	for k := range leaves {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		segments, _ := splitPath(k)
		if len(segments) < len(baseSegments) {
			continue
		}
		root = assign(root, segments[len(baseSegments):], leaves[k])
	}
	return densify(root)
}

// densify turns objects whose keys are exactly 0..n-1 back into arrays.
func densify(node interface{}) interface{} {
	m, ok := node.(map[string]interface{})
	if !ok {
		return node
	}
	for k, v := range m {
		m[k] = densify(v)
	}
	arr := make([]interface{}, len(m))
	for k, v := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(m) || strconv.Itoa(i) != k {
			return m
		}
		arr[i] = v
	}
	return arr
}

// ancestors lists the proper ancestor paths of p, nearest last.
func ancestors(segments []string) []string {
	out := make([]string, 0, len(segments))
	for i := 1; i < len(segments); i++ {
		out = append(out, strings.Join(segments[:i], "/"))
	}
	return out
}
