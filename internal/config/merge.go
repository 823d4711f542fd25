package config

import (
	"strings"
)

// Merge returns a new tree holding base overlaid with over. When both sides
// hold a mapping for a key the mappings are merged recursively, otherwise the
// value from over replaces the one from base. Neither input is modified.
func Merge(base, over map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		out[k] = clone(v)
	}
	for k, v := range over {
		if src, ok := v.(map[string]any); ok {
			if dst, ok := out[k].(map[string]any); ok {
				out[k] = Merge(dst, src)
				continue
			}
		}
		out[k] = clone(v)
	}
	return out
}

func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Merge(map[string]any{}, t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = clone(item)
		}
		return out
	default:
		return v
	}
}

// FromEnviron builds a tree from KEY=VALUE pairs carrying prefix.
// PREFIX_A_B=v becomes {"a": {"b": "v"}}.
func FromEnviron(environ []string, prefix string) map[string]any {
	out := map[string]any{}
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		name := key[len(prefix):]
		if name == "" {
			continue
		}
		setPath(out, strings.ReplaceAll(strings.ToLower(name), "_", "."), value)
	}
	return out
}

func lookupEnv(environ []string, key string) string {
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			return v
		}
	}
	return ""
}

// setPath assigns value at a dotted path, replacing any non-mapping on the way
func setPath(tree map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := tree
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}
