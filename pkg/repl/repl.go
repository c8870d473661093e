// Package repl evaluates template snippets interactively against a site.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/sambeau/thyme/pkg/thyme/ast"
	perrors "github.com/sambeau/thyme/pkg/thyme/errors"
	"github.com/sambeau/thyme/pkg/thyme/evaluator"
	"github.com/sambeau/thyme/pkg/thyme/parser"
)

const prompt = ">> "

// Words offered for tab completion.
var completionWords = []string{
	"set", "for", "with", "if", "else", "end", "param", "include", "get",
	"this", "true", "false", "GLOBAL", "GLOBAL.CONFIG", "GLOBAL.PAGES",
	":help", ":page", ":this",
}

// Session holds what one REPL evaluates against.
type Session struct {
	engine *evaluator.Engine
	this   evaluator.Object
}

// NewSession returns a session whose current object is this.
func NewSession(engine *evaluator.Engine, this evaluator.Object) *Session {
	if this == nil {
		this = evaluator.NULL
	}
	return &Session{engine: engine, this: this}
}

// Eval evaluates one line. Input containing template markup is rendered;
// anything else is read as an expression and its value printed.
func (s *Session) Eval(ctx context.Context, input string) (string, error) {
	if isTemplate(input) {
		tmpl, err := parser.ParseFile("<repl>", input)
		if err != nil {
			return "", err
		}
		return s.engine.Render(ctx, tmpl, "", s.this, nil)
	}

	tmpl, err := parser.ParseFile("<repl>", "{: "+input+" :}")
	if err != nil {
		return "", err
	}
	sub, ok := single(tmpl)
	if !ok {
		return "", fmt.Errorf("not an expression: %s", input)
	}
	val, err := s.engine.Eval(ctx, sub.Expr, s.this)
	if err != nil {
		return "", err
	}
	if str, ok := val.(*evaluator.String); ok {
		return ast.Quote(str.Value), nil
	}
	return val.Inspect(), nil
}

func isTemplate(input string) bool {
	for _, open := range []string{"{:", "{-", "{<"} {
		if strings.Contains(input, open) {
			return true
		}
	}
	return false
}

func single(tmpl *ast.Template) (*ast.Substitution, bool) {
	if len(tmpl.Controls) != 1 {
		return nil, false
	}
	sub, ok := tmpl.Controls[0].(*ast.Substitution)
	return sub, ok && sub.Kind == ast.SubstExpr
}

// Page makes the page published at url the current object.
func (s *Session) Page(url string) error {
	global, ok := s.engine.Global.(*evaluator.Map)
	if !ok {
		return errors.New("no site loaded")
	}
	pages, _ := global.Get("PAGES").(*evaluator.Array)
	if pages != nil {
		for _, p := range pages.Elements {
			m, ok := p.(*evaluator.Map)
			if !ok {
				continue
			}
			if u, ok := m.Get("url").(*evaluator.String); ok && u.Value == url {
				s.this = m
				return nil
			}
		}
	}
	return fmt.Errorf("no page at %s", url)
}

// Command runs a ':' command. It reports false for unknown commands.
func (s *Session) Command(line string, out io.Writer) bool {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "REPL Commands:")
		fmt.Fprintln(out, "  :help, :h, :?   Show this help")
		fmt.Fprintln(out, "  :page <url>     Use the page at <url> as the current object")
		fmt.Fprintln(out, "  :this           Show the current object")
		fmt.Fprintln(out, "  exit, quit      Exit the REPL")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Expressions print their value: GLOBAL.CONFIG.title")
		fmt.Fprintln(out, "Templates print their output: {- for $p : GLOBAL.PAGES -}{: $p.url :} {- end -}")
	case ":page":
		if err := s.Page(arg); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	case ":this":
		fmt.Fprintln(out, s.this.Inspect())
	default:
		return false
	}
	return true
}

// Start runs the REPL on the terminal until exit or Ctrl+D.
func Start(ctx context.Context, s *Session, out io.Writer, version string) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(filterCompletions)

	historyFile := filepath.Join(os.TempDir(), ".thyme_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintln(out, "thyme", version)
	fmt.Fprintln(out, "Type ':help' for commands, 'exit' or Ctrl+D to quit")

	for ctx.Err() == nil {
		input, err := line.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(out, "^C")
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		trimmed := strings.TrimSpace(input)
		switch {
		case trimmed == "":
			continue
		case trimmed == "exit" || trimmed == "quit":
			return
		}
		line.AppendHistory(input)

		if strings.HasPrefix(trimmed, ":") {
			if !s.Command(trimmed, out) {
				fmt.Fprintf(out, "Unknown command: %s (try :help)\n", trimmed)
			}
			continue
		}

		result, err := s.Eval(ctx, input)
		if err != nil {
			printError(out, err)
			continue
		}
		fmt.Fprintln(out, result)
	}
}

func printError(out io.Writer, err error) {
	var te *perrors.ThymeError
	if errors.As(err, &te) {
		fmt.Fprintln(out, te.PrettyString())
		return
	}
	fmt.Fprintf(out, "Error: %v\n", err)
}

// filterCompletions returns completion candidates for the word being typed.
func filterCompletions(line string) []string {
	start := strings.LastIndexAny(line, " \t{(") + 1
	prefix, word := line[:start], line[start:]
	if word == "" {
		return nil
	}
	var out []string
	for _, w := range completionWords {
		if strings.HasPrefix(w, word) {
			out = append(out, prefix+w)
		}
	}
	return out
}
