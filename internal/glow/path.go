package glow

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePath converts a dotted path into numbers. The empty string is the root.
func ParsePath(s string) ([]int32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []int32{}, nil
	}
	parts := strings.Split(s, ".")
	out := make([]int32, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 32)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, s)
		}
		out[i] = int32(n)
	}
	return out, nil
}

// FormatPath renders a path as dotted numbers.
func FormatPath(path []int32) string {
	var b strings.Builder
	for i, n := range path {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.FormatInt(int64(n), 10))
	}
	return b.String()
}

func hasPathPrefix(path, prefix []int32) bool {
	if len(prefix) > len(path) {
		return false
	}
	for i := range prefix {
		if path[i] != prefix[i] {
			return false
		}
	}
	return true
}

func pathEqual(a, b []int32) bool {
	return len(a) == len(b) && hasPathPrefix(a, b)
}

func clonePath(p []int32) []int32 {
	if p == nil {
		return nil
	}
	out := make([]int32, len(p))
	copy(out, p)
	return out
}
