// Package propfile implements the flat text format preference stores
// persist to: one key=value entry per line, #-prefixed comment lines and
// blank lines ignored, with a backslash escape scheme so any printable
// key or value is representable on a single line.
package propfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Parse reads entries from r. Malformed lines (no unescaped '=' separator,
// or an unknown or truncated escape sequence) are skipped and parsing
// continues with the next line. An error is returned only when reading from
// r itself fails.
func Parse(r io.Reader) (map[string]string, error) {
	entries := make(map[string]string)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		line = trimLeadingBlank(line)

		if line == "" || line[0] == '#' {
			continue
		}

		sep := indexUnescaped(line, '=')
		if sep < 0 {
			continue
		}

		key, err := unescape(trimTrailingBlank(line[:sep]))
		if err != nil {
			continue
		}
		value, err := unescape(trimLeadingBlank(line[sep+1:]))
		if err != nil {
			continue
		}

		entries[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}

	return entries, nil
}

// Write emits entries to w, one per line, keys in lexicographic order so
// repeated writes of the same snapshot are byte-identical.
func Write(w io.Writer, entries map[string]string) error {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	bw := bufio.NewWriter(w)
	for _, key := range keys {
		bw.WriteString(escapeKey(key))
		bw.WriteByte('=')
		bw.WriteString(escapeValue(entries[key]))
		bw.WriteByte('\n')
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write entries: %w", err)
	}
	return nil
}

// indexUnescaped returns the index of the first c in s not preceded by an
// escaping backslash, or -1.
func indexUnescaped(s string, c byte) int {
	escaped := false
	for i := 0; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case s[i] == c:
			return i
		}
	}
	return -1
}

func trimLeadingBlank(s string) string {
	return strings.TrimLeft(s, " \t")
}

// trimTrailingBlank strips trailing spaces and tabs that are not themselves
// escaped by a backslash.
func trimTrailingBlank(s string) string {
	for len(s) > 0 {
		last := s[len(s)-1]
		if last != ' ' && last != '\t' {
			break
		}
		backslashes := 0
		for i := len(s) - 2; i >= 0 && s[i] == '\\'; i-- {
			backslashes++
		}
		if backslashes%2 == 1 {
			break
		}
		s = s[:len(s)-1]
	}
	return s
}

// escapeKey escapes everything that would disturb line or separator parsing.
// Spaces are escaped throughout so surrounding blanks remain trimmable.
func escapeKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '=':
			b.WriteString(`\=`)
		case '#':
			b.WriteString(`\#`)
		case ' ':
			b.WriteString(`\ `)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// escapeValue escapes line breaks and backslashes; leading spaces are
// escaped so they survive the parser's trim, interior and trailing ones
// need no treatment. '=' and '#' are harmless past the separator.
func escapeValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	leading := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		if leading && c == ' ' {
			b.WriteString(`\ `)
			continue
		}
		leading = false
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// unescape reverses escapeKey/escapeValue. Unknown or truncated escape
// sequences are errors; callers treat the surrounding line as malformed.
func unescape(s string) (string, error) {
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
			return "", errors.New("truncated escape sequence")
		}
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case '=':
			b.WriteByte('=')
		case '#':
			b.WriteByte('#')
		case ' ':
			b.WriteByte(' ')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			return "", fmt.Errorf("unknown escape sequence %q", `\`+string(s[i]))
		}
	}
	return b.String(), nil
}
