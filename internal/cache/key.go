package cache

import "strings"

// Key identifies a query. The first part is the resource name; further parts
// narrow the query, e.g. Key{"tasks", "project", "p1"}.
type Key []string

func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether k starts with every part of prefix. An empty
// prefix matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, p := range prefix {
		if k[i] != p {
			return false
		}
	}
	return true
}

func (k Key) clone() Key {
	out := make(Key, len(k))
	copy(out, k)
	return out
}
