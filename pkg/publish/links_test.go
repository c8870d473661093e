package publish

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRewriteLinks(t *testing.T) {
	const base = "https://example.com/blog/"

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"anchor", `<a href="/posts/a.html">A</a>`, `<a href="https://example.com/blog/posts/a.html">A</a>`},
		{"image", `<img src="/img/p.png" alt="p">`, `<img src="https://example.com/blog/img/p.png" alt="p">`},
		{"self closing", `<link rel="stylesheet" href="/style.css"/>`, `<link rel="stylesheet" href="https://example.com/blog/style.css"/>`},
		{"script", `<script src="/app.js"></script>`, `<script src="https://example.com/blog/app.js"></script>`},
		{"media", `<video src="/v.mp4"><source src="/v.webm"></video><audio src="/a.ogg"></audio>`,
			`<video src="https://example.com/blog/v.mp4"><source src="https://example.com/blog/v.webm"></video><audio src="https://example.com/blog/a.ogg"></audio>`},
		{"absolute", `<a href="https://other.org/x">X</a>`, `<a href="https://other.org/x">X</a>`},
		{"relative", `<a href="b.html">B</a>`, `<a href="b.html">B</a>`},
		{"protocol relative", `<script src="//cdn.example/x.js"></script>`, `<script src="//cdn.example/x.js"></script>`},
		{"other attribute", `<a data-x="/no" HREF='#top'>/text</a>`, `<a data-x="/no" HREF='#top'>/text</a>`},
		{"other element", `<p title="/no">x</p><form action="/f"></form>`, `<p title="/no">x</p><form action="/f"></form>`},
		{"script body", `<script>var s = "<a href='/x'>";</script>`, `<script>var s = "<a href='/x'>";</script>`},
		{"untouched text", "<!DOCTYPE html>\n<p>a &amp; b<br></p><!-- /c -->", "<!DOCTYPE html>\n<p>a &amp; b<br></p><!-- /c -->"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RewriteLinks([]byte(tt.input), base)
			require.NoError(t, err)
			require.Equal(t, tt.expected, string(got))
		})
	}
}

func TestRewriteLinksEmptyBase(t *testing.T) {
	doc := []byte(`<a href="/a.html">A</a>`)
	got, err := RewriteLinks(doc, "")
	require.NoError(t, err)
	require.Equal(t, string(doc), string(got))
}
