// Package frontmatter extracts YAML frontmatter metadata from markdown
// note content.
package frontmatter

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Result holds the metadata extracted from a markdown document.
type Result struct {
	Meta  map[string]any
	Body  string
	Title string
	Tags  []string
}

// Parse splits YAML frontmatter (between leading --- delimiters) from the
// markdown body and derives title and tags. Parse is total: malformed YAML
// degrades to a body-only result rather than failing.
func Parse(content string) *Result {
	meta, body := split(content)
	return &Result{
		Meta:  meta,
		Body:  body,
		Title: deriveTitle(meta, body),
		Tags:  extractTags(meta),
	}
}

func split(content string) (map[string]any, string) {
	const delim = "---"
	trimmed := strings.TrimLeft(content, "\n\r")
	if !strings.HasPrefix(trimmed, delim) {
		return nil, content
	}

	rest := trimmed[len(delim):]
	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		// No closing delimiter; treat everything as body.
		return nil, content
	}

	yamlBlock := rest[:idx]
	body := strings.TrimLeft(rest[idx+1+len(delim):], "\n\r")

	var meta map[string]any
	if err := yaml.Unmarshal([]byte(yamlBlock), &meta); err != nil {
		return nil, content
	}
	return meta, body
}

// deriveTitle returns the frontmatter "title" if present, otherwise the
// first H1 heading, otherwise empty string.
func deriveTitle(meta map[string]any, body string) string {
	if meta != nil {
		if t, ok := meta["title"].(string); ok && t != "" {
			return t
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// extractTags collects string entries of the frontmatter "tags" list,
// deduplicated in order of appearance.
func extractTags(meta map[string]any) []string {
	if meta == nil {
		return nil
	}
	raw, ok := meta["tags"].([]any)
	if !ok {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
