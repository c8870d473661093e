// Package errors provides structured error types for the Thyme template language.
//
// ThymeError covers both syntax errors raised by the parser and the runtime
// failures raised while rendering (type mismatches, missing variables and
// include cycles). Every error carries its class, a stable code from the
// catalog and, when known, the template file and position it came from.
package errors

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and reporting.
type ErrorClass string

const (
	ClassSyntax   ErrorClass = "syntax"    // Malformed template text
	ClassType     ErrorClass = "type"      // Operator or substitution on the wrong kind of value
	ClassNotFound ErrorClass = "not-found" // Missing variable, field or template
	ClassCycle    ErrorClass = "cycle"     // Include loop
	ClassIO       ErrorClass = "io"        // Template or content loading
)

// ThymeError represents any error from parsing or rendering a template.
type ThymeError struct {
	Class    ErrorClass     `json:"class"`
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Hints    []string       `json:"hints,omitempty"`
	Expected string         `json:"expected,omitempty"` // syntax errors: what the parser wanted
	Line     int            `json:"line"`               // 1-based, 0 if unknown
	Column   int            `json:"column"`             // 1-based, 0 if unknown
	File     string         `json:"file,omitempty"`
	Chain    []string       `json:"chain,omitempty"` // cycle errors: the active include chain
	Data     map[string]any `json:"data,omitempty"`
	Err      error          `json:"-"` // wrapped cause, if any
}

// Error implements the error interface.
func (e *ThymeError) Error() string {
	return e.String()
}

// Unwrap returns the wrapped cause.
func (e *ThymeError) Unwrap() error {
	return e.Err
}

// String returns a one-line representation prefixed with the location.
func (e *ThymeError) String() string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", e.Line, e.Column))
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line string for terminal output.
func (e *ThymeError) PrettyString() string {
	var sb strings.Builder

	switch e.Class {
	case ClassSyntax:
		sb.WriteString("Syntax error")
	case ClassCycle:
		sb.WriteString("Include cycle")
	default:
		sb.WriteString("Render error")
	}

	if e.File != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(e.File)
		if e.Line > 0 {
			sb.WriteString(fmt.Sprintf("\n  at: line %d, column %d", e.Line, e.Column))
		}
		sb.WriteString("\n  ")
	} else if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(": line %d, column %d\n  ", e.Line, e.Column))
	} else {
		sb.WriteString(":\n  ")
	}

	sb.WriteString(e.Message)

	if len(e.Chain) > 0 {
		sb.WriteString("\n  chain: ")
		sb.WriteString(strings.Join(e.Chain, " -> "))
	}
	for _, hint := range e.Hints {
		sb.WriteString("\n  hint: ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// WithFile returns a copy of the error with the file path set.
// A file that is already set is kept: the innermost template wins.
func (e *ThymeError) WithFile(file string) *ThymeError {
	if e.File != "" {
		return e
	}
	c := *e
	c.File = file
	return &c
}

// WithPosition returns a copy of the error with line and column set.
func (e *ThymeError) WithPosition(line, column int) *ThymeError {
	c := *e
	c.Line = line
	c.Column = column
	return &c
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass
	Template string
	Hints    []string
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// Syntax errors
	"SYNTAX-0001": {
		Class:    ClassSyntax,
		Template: "expected {{.Expected}}, got {{.Got}}",
	},
	"SYNTAX-0002": {
		Class:    ClassSyntax,
		Template: "unexpected {{.Got}}",
	},
	"SYNTAX-0003": {
		Class:    ClassSyntax,
		Template: "unterminated string",
	},
	"SYNTAX-0004": {
		Class:    ClassSyntax,
		Template: "unterminated {{.Form}}",
		Hints:    []string{"close it with `{{.Close}}`"},
	},
	"SYNTAX-0005": {
		Class:    ClassSyntax,
		Template: "unknown command `{{.Name}}`",
		Hints:    []string{"commands are set, for, with, if, else, end and include"},
	},
	"SYNTAX-0006": {
		Class:    ClassSyntax,
		Template: "`{{.Keyword}}` without a matching opener",
	},
	"SYNTAX-0007": {
		Class:    ClassSyntax,
		Template: "missing `end` for `{{.Keyword}}` opened at line {{.Line}}",
	},
	"SYNTAX-0008": {
		Class:    ClassSyntax,
		Template: "comparison operators cannot be chained",
		Hints:    []string{"split the test with && or ||"},
	},
	"SYNTAX-0009": {
		Class:    ClassSyntax,
		Template: "shortcode `{{.Open}}` closed by `{{.Close}}`",
	},
	"SYNTAX-0010": {
		Class:    ClassSyntax,
		Template: "bare `else` must be the last branch of `if`",
	},
	"SYNTAX-0011": {
		Class:    ClassSyntax,
		Template: "invalid integer literal {{.Literal}}",
	},
	"SYNTAX-0012": {
		Class:    ClassSyntax,
		Template: "illegal character {{.Got}}",
	},
	"SYNTAX-0013": {
		Class:    ClassSyntax,
		Template: "unknown name `{{.Name}}`",
		Hints:    []string{"variables start with `$`, fields with `.`"},
	},

	// Type errors
	"TYPE-0001": {
		Class:    ClassType,
		Template: "cannot substitute {{.Got}}, expected a string, integer or boolean",
	},
	"TYPE-0002": {
		Class:    ClassType,
		Template: "operator {{.Operator}} not supported between {{.Left}} and {{.Right}}",
	},
	"TYPE-0003": {
		Class:    ClassType,
		Template: "operator {{.Operator}} not supported for {{.Got}}",
	},
	"TYPE-0004": {
		Class:    ClassType,
		Template: "cannot iterate over {{.Got}}",
		Hints:    []string{"for works with arrays"},
	},
	"TYPE-0005": {
		Class:    ClassType,
		Template: "division by zero",
	},
	"TYPE-0006": {
		Class:    ClassType,
		Template: "include path must be a string, got {{.Got}}",
	},
	"TYPE-0007": {
		Class:    ClassType,
		Template: "cannot access field {{.Field}} on {{.Got}}",
	},

	// Not-found errors
	"NOTFOUND-0001": {
		Class:    ClassNotFound,
		Template: "variable ${{.Name}} is not defined",
	},
	"NOTFOUND-0002": {
		Class:    ClassNotFound,
		Template: "{{.What}} does not exist",
	},
	"NOTFOUND-0003": {
		Class:    ClassNotFound,
		Template: "template {{.Path}} not found",
		Hints:    []string{"looked in {{.Candidates}}"},
	},

	// Cycle errors
	"CYCLE-0001": {
		Class:    ClassCycle,
		Template: "template {{.Path}} includes itself",
	},

	// IO errors
	"IO-0001": {
		Class:    ClassIO,
		Template: "failed to read {{.Path}}: {{.Error}}",
	},
}

// New creates a ThymeError from the catalog.
func New(code string, data map[string]any) *ThymeError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if m, ok := data["message"].(string); ok {
			msg = m
		}
		return &ThymeError{Class: ClassType, Code: code, Message: msg, Data: data}
	}

	var hints []string
	for _, h := range def.Hints {
		if rendered := renderTemplate(h, data); rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &ThymeError{
		Class:   def.Class,
		Code:    code,
		Message: renderTemplate(def.Template, data),
		Hints:   hints,
		Data:    data,
	}
}

// NewSyntax creates a syntax error at a position, recording what was expected.
func NewSyntax(code string, line, column int, data map[string]any) *ThymeError {
	err := New(code, data)
	err.Line = line
	err.Column = column
	if exp, ok := data["Expected"].(string); ok {
		err.Expected = exp
	}
	return err
}

// NewCycle creates a cyclic include error carrying the active chain.
func NewCycle(path string, chain []string) *ThymeError {
	err := New("CYCLE-0001", map[string]any{"Path": path})
	err.Chain = append(append([]string(nil), chain...), path)
	return err
}

// NewIO wraps an I/O failure while loading path.
func NewIO(path string, cause error) *ThymeError {
	err := New("IO-0001", map[string]any{"Path": path, "Error": cause.Error()})
	err.Err = cause
	return err
}

func renderTemplate(tmpl string, data map[string]any) string {
	t, err := template.New("").Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return tmpl
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return tmpl
	}
	return strings.ReplaceAll(buf.String(), "<no value>", "")
}

// ClassOf reports the class of err if it is (or wraps) a ThymeError.
func ClassOf(err error) (ErrorClass, bool) {
	var te *ThymeError
	if errors.As(err, &te) {
		return te.Class, true
	}
	return "", false
}

func IsSyntax(err error) bool   { return isClass(err, ClassSyntax) }
func IsType(err error) bool     { return isClass(err, ClassType) }
func IsNotFound(err error) bool { return isClass(err, ClassNotFound) }
func IsCycle(err error) bool    { return isClass(err, ClassCycle) }

func isClass(err error, class ErrorClass) bool {
	c, ok := ClassOf(err)
	return ok && c == class
}
