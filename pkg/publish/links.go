package publish

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// linkAttrs names the attribute holding the link of each rewritten element.
var linkAttrs = map[string]string{
	"a":      "href",
	"link":   "href",
	"script": "src",
	"img":    "src",
	"source": "src",
	"video":  "src",
	"audio":  "src",
}

// RewriteLinks prefixes the root-relative links of doc with base. Tags
// without such a link are copied byte for byte.
func RewriteLinks(doc []byte, base string) ([]byte, error) {
	base = strings.TrimSuffix(base, "/")
	if base == "" {
		return doc, nil
	}

	z := html.NewTokenizer(bytes.NewReader(doc))
	var out bytes.Buffer
	out.Grow(len(doc) + len(doc)/16)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				out.Write(z.Raw())
				return out.Bytes(), nil
			}
			return nil, z.Err()

		case html.StartTagToken, html.SelfClosingTagToken:
			raw := slices.Clone(z.Raw())
			tok := z.Token()
			if rewriteLink(&tok, base) {
				out.WriteString(tok.String())
			} else {
				out.Write(raw)
			}

		default:
			out.Write(z.Raw())
		}
	}
}

func rewriteLink(tok *html.Token, base string) bool {
	key, ok := linkAttrs[tok.Data]
	if !ok {
		return false
	}
	changed := false
	for i, attr := range tok.Attr {
		if attr.Namespace != "" || attr.Key != key {
			continue
		}
		// protocol-relative urls name another host
		if strings.HasPrefix(attr.Val, "/") && !strings.HasPrefix(attr.Val, "//") {
			tok.Attr[i].Val = base + attr.Val
			changed = true
		}
	}
	return changed
}
