package repl

import (
	"bytes"
	"context"
	"strings"
	"testing"

	perrors "github.com/sambeau/thyme/pkg/thyme/errors"
	"github.com/sambeau/thyme/pkg/thyme/evaluator"
)

func newSession() *Session {
	global := evaluator.FromGo(map[string]any{
		"CONFIG": map[string]any{"title": "Site"},
		"PAGES": []any{
			map[string]any{"url": "/a.html", "title": "A"},
			map[string]any{"url": "/b.html", "title": "B"},
		},
	})
	return NewSession(&evaluator.Engine{Global: global}, nil)
}

func TestEval(t *testing.T) {
	s := newSession()
	ctx := context.Background()

	tests := []struct {
		input, want string
	}{
		{`1 + 2 * 3`, "7"},
		{`"a" + 1`, `"a1"`},
		{`GLOBAL.CONFIG`, `{title: "Site"}`},
		{`GLOBAL.PAGES.1.title`, `"B"`},
		{`GLOBAL.CONFIG.missing`, "null"},
		{`{- for $p : GLOBAL.PAGES -}{: $p.title :};{- end -}`, "A;B;"},
		{`<{: GLOBAL.CONFIG.title :}>`, "<Site>"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := s.Eval(ctx, tt.input)
			if err != nil {
				t.Fatalf("Eval: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	s := newSession()
	ctx := context.Background()

	if _, err := s.Eval(ctx, `1 +`); !perrors.IsSyntax(err) {
		t.Errorf("expected syntax error, got %v", err)
	}
	if _, err := s.Eval(ctx, `$nope`); !perrors.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
	if _, err := s.Eval(ctx, `{: GLOBAL.PAGES :}`); !perrors.IsType(err) {
		t.Errorf("expected type error, got %v", err)
	}
}

func TestPageCommand(t *testing.T) {
	s := newSession()
	var out bytes.Buffer

	if !s.Command(":page /b.html", &out) {
		t.Fatal(":page not handled")
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected output: %s", out.String())
	}
	got, err := s.Eval(context.Background(), ".title")
	if err != nil || got != `"B"` {
		t.Errorf("got %q, %v", got, err)
	}

	s.Command(":page /zzz.html", &out)
	if !strings.Contains(out.String(), "no page at /zzz.html") {
		t.Errorf("got %q", out.String())
	}

	out.Reset()
	s.Command(":this", &out)
	if !strings.Contains(out.String(), `title: "B"`) {
		t.Errorf("got %q", out.String())
	}

	if s.Command(":bogus", &out) {
		t.Error(":bogus should not be handled")
	}
}

func TestFilterCompletions(t *testing.T) {
	got := filterCompletions("{- inc")
	if len(got) != 1 || got[0] != "{- include" {
		t.Errorf("got %v", got)
	}
	got = filterCompletions("GLOBAL.P")
	if len(got) != 1 || got[0] != "GLOBAL.PAGES" {
		t.Errorf("got %v", got)
	}
	if got := filterCompletions("x "); got != nil {
		t.Errorf("got %v", got)
	}
}
