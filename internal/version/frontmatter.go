package version

import (
	"fmt"
	"regexp"
	"strings"
)

var frontmatterRe = regexp.MustCompile(`(?s)^---\n(.*?)\n---`)

// ParseFrontmatter extracts the key/value pairs of a leading `---` block.
// Values keep everything after the first colon, with surrounding quotes
// stripped. A document without frontmatter yields nil.
func ParseFrontmatter(content string) map[string]string {
	m := frontmatterRe.FindStringSubmatch(content)
	if m == nil {
		return nil
	}

	out := make(map[string]string)
	for _, line := range strings.Split(m[1], "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		out[key] = value
	}
	return out
}

// frontmatterKeyOrder preserves a stable field order when rewriting the
// block, so diffs stay readable. Unknown keys follow in first-seen order.
var frontmatterKeyOrder = []string{"title", "version", "lastUpdated", "changeNotes"}

// UpdateFrontmatter merges updates into the document's frontmatter block
// and returns the rewritten content. Documents without frontmatter are
// rejected.
func UpdateFrontmatter(content string, updates map[string]string) (string, error) {
	m := frontmatterRe.FindStringSubmatch(content)
	if m == nil {
		return "", fmt.Errorf("no frontmatter block found")
	}

	merged := ParseFrontmatter(content)
	extraKeys := keysInOrder(m[1], merged)
	for k, v := range updates {
		if _, known := merged[k]; !known && !contains(extraKeys, k) && !contains(frontmatterKeyOrder, k) {
			extraKeys = append(extraKeys, k)
		}
		merged[k] = v
	}

	var b strings.Builder
	b.WriteString("---\n")
	written := make(map[string]bool)
	for _, k := range frontmatterKeyOrder {
		if v, ok := merged[k]; ok {
			fmt.Fprintf(&b, "%s: %q\n", k, v)
			written[k] = true
		}
	}
	for _, k := range extraKeys {
		if written[k] {
			continue
		}
		if v, ok := merged[k]; ok {
			fmt.Fprintf(&b, "%s: %q\n", k, v)
			written[k] = true
		}
	}
	b.WriteString("---")

	return frontmatterRe.ReplaceAllLiteralString(content, b.String()), nil
}

// keysInOrder lists the block's keys in their original order, skipping the
// canonical ones.
func keysInOrder(block string, parsed map[string]string) []string {
	var out []string
	for _, line := range strings.Split(block, "\n") {
		key, _, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" || contains(frontmatterKeyOrder, key) || contains(out, key) {
			continue
		}
		if _, known := parsed[key]; known {
			out = append(out, key)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
