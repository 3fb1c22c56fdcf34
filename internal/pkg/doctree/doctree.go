// Package doctree implements the path arithmetic and JSON tree composition
// shared by the document store backends.
package doctree

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Split breaks a path into its non-empty segments.
func Split(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// Clean normalises a path: no leading, trailing or doubled slashes.
func Clean(path string) string {
	return strings.Join(Split(path), "/")
}

// Join concatenates segments into a clean path.
func Join(parts ...string) string {
	return Clean(strings.Join(parts, "/"))
}

// ValidSegment reports whether s may be used as a path segment.
func ValidSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, "/*?[]#$")
}

// Validate rejects paths with segments the backends cannot address.
func Validate(path string) error {
	for _, s := range Split(path) {
		if !ValidSegment(s) {
			return fmt.Errorf("invalid path segment %q", s)
		}
	}
	return nil
}

// Within reports whether path equals root or lies beneath it.
func Within(path, root string) bool {
	path, root = Clean(path), Clean(root)
	if root == "" || path == root {
		return true
	}
	return strings.HasPrefix(path, root+"/")
}

// Related reports whether a write at a affects a read at b: one path
// contains the other.
func Related(a, b string) bool {
	return Within(a, b) || Within(b, a)
}

// Ancestors returns the proper ancestors of path, nearest first, excluding the root.
func Ancestors(path string) []string {
	segs := Split(path)
	var out []string
	for i := len(segs) - 1; i > 0; i-- {
		out = append(out, strings.Join(segs[:i], "/"))
	}
	return out
}

// Rel returns path relative to root. path must be Within root.
func Rel(path, root string) []string {
	return Split(path)[len(Split(root)):]
}

// Entry is one stored document.
type Entry struct {
	Path string
	Raw  []byte
}

// Compose builds the JSON value at root from the stored entries at or below it.
// Entries closer to the root are applied first so deeper documents win.
func Compose(root string, entries []Entry) ([]byte, bool, error) {
	if len(entries) == 0 {
		return nil, false, nil
	}
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(Split(sorted[i].Path)) < len(Split(sorted[j].Path))
	})

	var tree any
	for _, e := range sorted {
		if !Within(e.Path, root) {
			continue
		}
		var v any
		if err := json.Unmarshal(e.Raw, &v); err != nil {
			return nil, false, fmt.Errorf("decode %s: %w", e.Path, err)
		}
		tree = SetAt(tree, Rel(e.Path, root), v)
	}
	if tree == nil {
		return nil, false, nil
	}
	out, err := json.Marshal(tree)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// SetAt returns tree with the value at rel replaced by v. Non-object
// intermediate values are replaced by objects.
func SetAt(tree any, rel []string, v any) any {
	if len(rel) == 0 {
		return v
	}
	obj, ok := tree.(map[string]any)
	if !ok {
		obj = map[string]any{}
	}
	obj[rel[0]] = SetAt(obj[rel[0]], rel[1:], v)
	return obj
}

// DeleteAt returns tree with the value at rel removed. Objects left empty are
// pruned; the result is nil when nothing remains.
func DeleteAt(tree any, rel []string) any {
	if len(rel) == 0 {
		return nil
	}
	obj, ok := tree.(map[string]any)
	if !ok {
		return tree
	}
	child := DeleteAt(obj[rel[0]], rel[1:])
	if child == nil {
		delete(obj, rel[0])
	} else {
		obj[rel[0]] = child
	}
	if len(obj) == 0 {
		return nil
	}
	return obj
}

// Prune drops empty objects and arrays and nulls, matching how the
// realtime store treats them as absent. It returns nil for an empty value.
func Prune(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		for k, c := range t {
			if p := Prune(c); p == nil {
				delete(t, k)
			} else {
				t[k] = p
			}
		}
		if len(t) == 0 {
			return nil
		}
		return t
	case []any:
		if len(t) == 0 {
			return nil
		}
		for i, c := range t {
			t[i] = Prune(c)
		}
		return t
	default:
		return v
	}
}
