// Package ast defines the syntax tree produced by the Thyme parser.
//
// Every node prints back to template source with String(); reparsing that
// output yields an equal tree. Infix and prefix expressions are printed fully
// parenthesised so precedence survives the round trip.
package ast

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/sambeau/thyme/pkg/thyme/lexer"
)

// The base Node interface
type Node interface {
	TokenLiteral() string
	String() string
	Position() (line, column int)
}

// Control is an element of a Template: text, shortcode, command or substitution.
type Control interface {
	Node
	controlNode()
}

// Expression is any node that evaluates to a value.
type Expression interface {
	Node
	expressionNode()
}

// Base carries the token a node was parsed from.
type Base struct {
	Token lexer.Token
}

func (b *Base) TokenLiteral() string      { return b.Token.Literal }
func (b *Base) Position() (line, col int) { return b.Token.Line, b.Token.Column }

// At returns the Base for a node starting at tok.
func At(tok lexer.Token) Base {
	return Base{Token: tok}
}

// Template is an ordered sequence of controls. It is the root of every parsed file
// and the body of every block.
type Template struct {
	Controls []Control
}

func (t *Template) TokenLiteral() string {
	if len(t.Controls) > 0 {
		return t.Controls[0].TokenLiteral()
	}
	return ""
}

func (t *Template) Position() (int, int) {
	if len(t.Controls) > 0 {
		return t.Controls[0].Position()
	}
	return 1, 1
}

func (t *Template) String() string {
	var out bytes.Buffer
	for _, c := range t.Controls {
		out.WriteString(c.String())
	}
	return out.String()
}

// Text is literal template text.
type Text struct {
	Base
	Value string
}

func (t *Text) controlNode()   {}
func (t *Text) String() string { return t.Value }

// SubstitutionKind distinguishes the three substitution forms.
type SubstitutionKind int

const (
	SubstExpr  SubstitutionKind = iota // {: expr :}
	SubstGet                           // {: get $var :}
	SubstParam                         // {: param N :}
)

// Substitution emits the text of a scalar value.
type Substitution struct {
	Base
	Kind  SubstitutionKind
	Expr  Expression // nil for SubstParam
	Param int        // SubstParam only
}

func (s *Substitution) controlNode() {}
func (s *Substitution) String() string {
	switch s.Kind {
	case SubstGet:
		return "{: get " + s.Expr.String() + " :}"
	case SubstParam:
		return "{: param " + strconv.Itoa(s.Param) + " :}"
	}
	return "{: " + s.Expr.String() + " :}"
}

// ShortCode is an invocation of a template from the shortcode directory.
// Single shortcodes have no Body.
type ShortCode struct {
	Base
	Name   string
	Args   []Expression
	Body   *Template
	Single bool
}

func (s *ShortCode) controlNode() {}
func (s *ShortCode) String() string {
	var out bytes.Buffer
	out.WriteString("{< ")
	out.WriteString(s.Name)
	writeArgs(&out, s.Args)
	if s.Single {
		out.WriteString(" />}")
		return out.String()
	}
	out.WriteString(" >}")
	if s.Body != nil {
		out.WriteString(s.Body.String())
	}
	out.WriteString("{</ ")
	out.WriteString(s.Name)
	out.WriteString(" >}")
	return out.String()
}

// SetCommand binds a variable in the current scope.
type SetCommand struct {
	Base
	Name  string
	Value Expression
}

func (s *SetCommand) controlNode() {}
func (s *SetCommand) String() string {
	return "{- set $" + s.Name + " = " + s.Value.String() + " -}"
}

// ForCommand renders its body once per array element.
type ForCommand struct {
	Base
	Item     string
	Index    string // empty when no index variable was declared
	Iterable Expression
	Body     *Template
}

func (f *ForCommand) controlNode() {}
func (f *ForCommand) String() string {
	var out bytes.Buffer
	out.WriteString("{- for $")
	out.WriteString(f.Item)
	if f.Index != "" {
		out.WriteString(", $")
		out.WriteString(f.Index)
	}
	out.WriteString(" : ")
	out.WriteString(f.Iterable.String())
	out.WriteString(" -}")
	out.WriteString(f.Body.String())
	out.WriteString("{- end -}")
	return out.String()
}

// WithCommand renders its body with a new current object.
type WithCommand struct {
	Base
	Object Expression
	Body   *Template
}

func (w *WithCommand) controlNode() {}
func (w *WithCommand) String() string {
	return "{- with " + w.Object.String() + " -}" + w.Body.String() + "{- end -}"
}

// IfBranch is one condition and the body rendered when it holds.
type IfBranch struct {
	Condition Expression
	Body      *Template
}

// IfCommand renders the first branch whose condition is truthy, or Else.
type IfCommand struct {
	Base
	Branches []IfBranch
	Else     *Template
}

func (i *IfCommand) controlNode() {}
func (i *IfCommand) String() string {
	var out bytes.Buffer
	for n, b := range i.Branches {
		if n == 0 {
			out.WriteString("{- if ")
		} else {
			out.WriteString("{- else ")
		}
		out.WriteString(b.Condition.String())
		out.WriteString(" -}")
		out.WriteString(b.Body.String())
	}
	if i.Else != nil {
		out.WriteString("{- else -}")
		out.WriteString(i.Else.String())
	}
	out.WriteString("{- end -}")
	return out.String()
}

// IncludeCommand renders another template in place.
type IncludeCommand struct {
	Base
	Path  Expression
	Scope Expression // nil: keep the caller's current object
	Args  []Expression
}

func (i *IncludeCommand) controlNode() {}
func (i *IncludeCommand) String() string {
	var out bytes.Buffer
	out.WriteString("{- include ")
	out.WriteString(i.Path.String())
	if i.Scope != nil {
		out.WriteString(" ")
		out.WriteString(i.Scope.String())
	}
	writeArgs(&out, i.Args)
	out.WriteString(" -}")
	return out.String()
}

func writeArgs(out *bytes.Buffer, args []Expression) {
	for _, a := range args {
		out.WriteString(" ")
		out.WriteString(a.String())
	}
}

// Expressions

// IntegerLiteral is a non-negative integer; negatives are PrefixExpressions.
type IntegerLiteral struct {
	Base
	Value int64
}

func (il *IntegerLiteral) expressionNode() {}
func (il *IntegerLiteral) String() string  { return strconv.FormatInt(il.Value, 10) }

type StringLiteral struct {
	Base
	Value string
}

func (sl *StringLiteral) expressionNode() {}
func (sl *StringLiteral) String() string  { return Quote(sl.Value) }

type BooleanLiteral struct {
	Base
	Value bool
}

func (b *BooleanLiteral) expressionNode() {}
func (b *BooleanLiteral) String() string  { return strconv.FormatBool(b.Value) }

// Variable is a `$name` reference.
type Variable struct {
	Base
	Name string
}

func (v *Variable) expressionNode() {}
func (v *Variable) String() string  { return "$" + v.Name }

// This is the current object, written `this` or as a bare leading `.`.
type This struct {
	Base
	Implicit bool
}

func (t *This) expressionNode() {}
func (t *This) String() string {
	if t.Implicit {
		return "."
	}
	return "this"
}

// Global is the site object holding CONFIG and PAGES.
type Global struct {
	Base
}

func (g *Global) expressionNode() {}
func (g *Global) String() string  { return "GLOBAL" }

// Param is the positional parameter array of the current invocation.
type Param struct {
	Base
}

func (p *Param) expressionNode() {}
func (p *Param) String() string  { return "param" }

// FieldAccess reads a map key, or an array element when the field is numeric.
type FieldAccess struct {
	Base
	Object  Expression
	Field   string
	Index   int
	IsIndex bool
}

func (fa *FieldAccess) expressionNode() {}
func (fa *FieldAccess) String() string {
	if t, ok := fa.Object.(*This); ok && t.Implicit {
		return "." + fa.Field
	}
	return fa.Object.String() + "." + fa.Field
}

type PrefixExpression struct {
	Base
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode() {}
func (pe *PrefixExpression) String() string {
	return "(" + pe.Operator + pe.Right.String() + ")"
}

type InfixExpression struct {
	Base
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode() {}
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}

// Quote returns s as a template string literal.
func Quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
