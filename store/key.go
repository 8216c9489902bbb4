package store

import (
	"fmt"
	"strings"
)

// Flat keys qualify a preference key with its node path: every segment and
// the key itself are escaped, then joined with '/'. Escaping keeps the
// mapping bijective, so splitting on unescaped separators recovers the
// original path whatever characters the segments contain.
const separator = '/'

// JoinKey returns the flat key for key on the node at path. The root's
// entries are the escaped key alone.
func JoinKey(path []string, key string) string {
	var b strings.Builder
	for _, seg := range path {
		b.WriteString(escapeSegment(seg))
		b.WriteByte(separator)
	}
	b.WriteString(escapeSegment(key))
	return b.String()
}

// SplitKey recovers the node path and preference key from a flat key. It
// fails with ErrMalformedKey on empty path segments or broken escapes;
// callers skip such entries and keep the rest of the snapshot.
func SplitKey(flat string) (path []string, key string, err error) {
	parts := splitUnescaped(flat, separator)

	last := len(parts) - 1
	for i, part := range parts[:last] {
		if part == "" {
			return nil, "", fmt.Errorf("%w: %q: empty segment", ErrMalformedKey, flat)
		}
		seg, err := unescapeSegment(part)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %q: %v", ErrMalformedKey, flat, err)
		}
		parts[i] = seg
	}
	key, err = unescapeSegment(parts[last])
	if err != nil {
		return nil, "", fmt.Errorf("%w: %q: %v", ErrMalformedKey, flat, err)
	}
	return parts[:last], key, nil
}

// pathPrefix returns the flat-key prefix shared by every entry at or below
// path. The root's prefix is empty and matches everything.
func pathPrefix(path []string) string {
	var b strings.Builder
	for _, seg := range path {
		b.WriteString(escapeSegment(seg))
		b.WriteByte(separator)
	}
	return b.String()
}

func splitUnescaped(s string, c byte) []string {
	var parts []string
	start := 0
	escaped := false
	for i := 0; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case s[i] == c:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func escapeSegment(s string) string {
	if !strings.ContainsAny(s, `\/`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 1)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case separator:
			b.WriteString(`\/`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func unescapeSegment(s string) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i == len(s) {
			return "", fmt.Errorf("truncated escape in %q", s)
		}
		switch s[i] {
		case '\\', separator:
			b.WriteByte(s[i])
		default:
			return "", fmt.Errorf("unknown escape %q", `\`+string(s[i]))
		}
	}
	return b.String(), nil
}
