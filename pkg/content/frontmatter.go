package content

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Document is a source file split into its front matter and body.
type Document struct {
	Meta     map[string]any
	Body     string
	BodyLine int // line of the file the body starts on
}

// Split separates a leading front matter block from the body. The block is
// YAML between `---` lines or TOML between `+++` lines. A block with no
// closing delimiter is treated as part of the body.
func Split(src string) (*Document, error) {
	doc := &Document{Meta: map[string]any{}, Body: src, BodyLine: 1}

	first, rest, ok := cutLine(src)
	if !ok {
		return doc, nil
	}
	delim := strings.TrimRight(first, "\r")
	if delim != "---" && delim != "+++" {
		return doc, nil
	}

	var block strings.Builder
	line := 2
	for {
		l, next, more := cutLine(rest)
		if strings.TrimRight(l, "\r") == delim {
			rest = next
			break
		}
		if !more {
			return doc, nil
		}
		block.WriteString(l)
		block.WriteByte('\n')
		rest = next
		line++
	}

	var err error
	if delim == "---" {
		err = yaml.Unmarshal([]byte(block.String()), &doc.Meta)
	} else {
		err = toml.Unmarshal([]byte(block.String()), &doc.Meta)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid front matter: %w", err)
	}
	if doc.Meta == nil {
		doc.Meta = map[string]any{}
	}

	doc.Body = rest
	doc.BodyLine = line + 1
	return doc, nil
}

// cutLine splits s after its first newline. more is false when s has no newline.
func cutLine(s string) (line, rest string, more bool) {
	i := strings.IndexByte(s, '\n')
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+1:], true
}
