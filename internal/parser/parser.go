// Package parser extracts the title and tags of a wiki page from its Markdown source.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// frontmatter is the subset of page frontmatter wikimeta understands.
type frontmatter struct {
	Title string  `yaml:"title"`
	Tags  tagList `yaml:"tags"`
}

// tagList accepts either a YAML sequence or a comma/space separated string.
type tagList []string

func (l *tagList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := n.Decode(&items); err != nil {
			return err
		}
		*l = items
	case yaml.ScalarNode:
		*l = strings.FieldsFunc(n.Value, func(r rune) bool { return r == ',' || r == ' ' })
	}
	return nil
}

// Result holds the output of parsing a page.
type Result struct {
	Title string
	Tags  []string
	Body  string
}

// Parse extracts title, tags, and body from raw Markdown bytes. Broken
// frontmatter is treated as part of the body.
func Parse(data []byte) (*Result, error) {
	fm, body := splitFrontmatter(data)

	var tags []string
	if fm != nil {
		tags = fm.Tags
	}
	res := &Result{
		Body:  body,
		Tags:  mergeTags(tags, body),
		Title: deriveTitle(fm, body),
	}
	return res, nil
}

func splitFrontmatter(data []byte) (*frontmatter, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	var fm frontmatter
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return nil, string(data)
	}
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	return &fm, body
}

// mergeTags combines frontmatter tags with inline #tags, first occurrence wins.
func mergeTags(declared []string, body string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, t := range declared {
		add(t)
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle prefers the frontmatter title, then the first H1 heading.
func deriveTitle(fm *frontmatter, body string) string {
	if fm != nil && fm.Title != "" {
		return fm.Title
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// Compose renders a new page source with frontmatter carrying the given tags.
func Compose(title string, tags []string, body string) []byte {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	out, _ := yaml.Marshal(struct {
		Title string   `yaml:"title,omitempty"`
		Tags  []string `yaml:"tags,omitempty"`
	}{title, tags})
	buf.Write(out)
	buf.WriteString("---\n\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
