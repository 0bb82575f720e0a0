// Package nesta knows how Nesta lays out and reads its content files.
package nesta

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is how dates are written into metadata blocks.
const DateLayout = "2006-01-02 15:04:05 -0700"

// Metadata is the "Key: value" header at the top of a Nesta page.
type Metadata map[string]string

// String renders one line per key, sorted by key. Values are written as is.
func (m Metadata) String() string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+": "+m[k])
	}
	return strings.Join(lines, "\n")
}

// FormatDate renders t the way metadata dates are stored.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Categories sorts tag names and joins them with ", ".
func Categories(tags []string) string {
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	return strings.Join(sorted, ", ")
}

// Summary trims an excerpt and replaces line breaks with a literal \n so the
// value stays on one metadata line.
func Summary(excerpt string) string {
	s := strings.TrimSpace(excerpt)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", `\n`)
}

// AtomID builds a tag URI (RFC 4151) for a feed entry.
func AtomID(domain string, created time.Time, id uint) string {
	return fmt.Sprintf("tag:%s,%s:%d", domain, created.Format("2006-01-02"), id)
}
