// Package parser builds a Thyme syntax tree from lexer tokens.
//
// Templates are parsed by recursive descent; expressions inside the bracketed
// forms use a Pratt parser. Parsing stops at the first error.
package parser

import (
	"strconv"

	"github.com/sambeau/thyme/pkg/thyme/ast"
	perrors "github.com/sambeau/thyme/pkg/thyme/errors"
	"github.com/sambeau/thyme/pkg/thyme/lexer"
)

// Precedence levels for operators
const (
	_ int = iota
	LOWEST
	LOGIC_OR  // ||
	LOGIC_AND // &&
	COMPARE   // == != < <= > >=
	SUM       // + -
	PRODUCT   // * / %
	PREFIX    // -X, +X, !X
	FIELD     // x.field
)

// precedences maps tokens to their precedence
var precedences = map[lexer.TokenType]int{
	lexer.OR:       LOGIC_OR,
	lexer.AND:      LOGIC_AND,
	lexer.EQ:       COMPARE,
	lexer.NOT_EQ:   COMPARE,
	lexer.LT:       COMPARE,
	lexer.LT_EQ:    COMPARE,
	lexer.GT:       COMPARE,
	lexer.GT_EQ:    COMPARE,
	lexer.PLUS:     SUM,
	lexer.MINUS:    SUM,
	lexer.ASTERISK: PRODUCT,
	lexer.SLASH:    PRODUCT,
	lexer.PERCENT:  PRODUCT,
	lexer.DOT:      FIELD,
}

// Parser represents the parser
type Parser struct {
	l *lexer.Lexer

	errors []*perrors.ThymeError

	curToken  lexer.Token
	peekToken lexer.Token
	open      lexer.Token // delimiter that opened the current code section

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// New creates a new parser instance
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixParseFns = make(map[lexer.TokenType]prefixParseFn)
	p.registerPrefix(lexer.INT, p.parseIntegerLiteral)
	p.registerPrefix(lexer.STRING, p.parseStringLiteral)
	p.registerPrefix(lexer.BAD_STRING, p.parseBadString)
	p.registerPrefix(lexer.TRUE, p.parseBoolean)
	p.registerPrefix(lexer.FALSE, p.parseBoolean)
	p.registerPrefix(lexer.VARIABLE, p.parseVariable)
	p.registerPrefix(lexer.THIS, p.parseThis)
	p.registerPrefix(lexer.DOT, p.parseImplicitThis)
	p.registerPrefix(lexer.IDENT, p.parseIdentifier)
	p.registerPrefix(lexer.PARAM, p.parseParam)
	p.registerPrefix(lexer.BANG, p.parsePrefixExpression)
	p.registerPrefix(lexer.MINUS, p.parsePrefixExpression)
	p.registerPrefix(lexer.PLUS, p.parsePrefixExpression)
	p.registerPrefix(lexer.LPAREN, p.parseGroupedExpression)

	p.infixParseFns = make(map[lexer.TokenType]infixParseFn)
	for tt, prec := range precedences {
		if prec == FIELD {
			continue
		}
		p.registerInfix(tt, p.parseInfixExpression)
	}
	p.registerInfix(lexer.DOT, p.parseFieldAccess)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

// Parse parses template source.
func Parse(source string) (*ast.Template, error) {
	return ParseFile("", source)
}

// ParseFile parses template source, attributing errors to filename.
func ParseFile(filename, source string) (*ast.Template, error) {
	return ParseFileAt(filename, source, 1)
}

// ParseFileAt parses source whose first line is line of filename.
func ParseFileAt(filename, source string, line int) (*ast.Template, error) {
	p := New(lexer.NewWithFilename(source, filename).StartAt(line))
	tmpl := p.ParseTemplate()
	if err := p.Err(); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// Err returns the first syntax error, or nil.
func (p *Parser) Err() error {
	if len(p.errors) == 0 {
		return nil
	}
	err := p.errors[0]
	if p.l.Filename != "" {
		err = err.WithFile(p.l.Filename)
	}
	return err
}

// addError records a syntax error from the catalog at tok.
// Only the first error is recorded - subsequent errors are usually cascading noise.
func (p *Parser) addError(code string, tok lexer.Token, data map[string]any) {
	if len(p.errors) > 0 {
		return
	}
	p.errors = append(p.errors, perrors.NewSyntax(code, tok.Line, tok.Column, data))
}

func (p *Parser) failed() bool {
	return len(p.errors) > 0
}

func (p *Parser) registerPrefix(tokenType lexer.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType lexer.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
	if lexer.Closer(p.curToken.Type) != lexer.ILLEGAL {
		p.open = p.curToken
	}
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

// expectPeek advances if the next token has type t, and records an error otherwise.
func (p *Parser) expectPeek(t lexer.TokenType, expected string) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(expected)
	return false
}

func (p *Parser) peekError(expected string) {
	if p.peekTokenIs(lexer.EOF) {
		p.unterminated()
		return
	}
	p.addError("SYNTAX-0001", p.peekToken, map[string]any{
		"Expected": expected,
		"Got":      p.peekToken.Describe(),
	})
}

var formNames = map[lexer.TokenType]string{
	lexer.SHORTCODE_OPEN:  "shortcode",
	lexer.SHORTCODE_CLOSE: "shortcode close",
	lexer.COMMAND_OPEN:    "command",
	lexer.SUBST_OPEN:      "substitution",
}

// unterminated reports input ending inside the current code section.
func (p *Parser) unterminated() {
	closer := lexer.Closer(p.open.Type).String()
	err := perrors.NewSyntax("SYNTAX-0004", p.open.Line, p.open.Column, map[string]any{
		"Form":     formNames[p.open.Type],
		"Close":    closer,
		"Expected": "`" + closer + "`",
	})
	if len(p.errors) == 0 {
		p.errors = append(p.errors, err)
	}
}

// ParseTemplate parses the whole input as a top-level template.
func (p *Parser) ParseTemplate() *ast.Template {
	tmpl := p.parseBody()
	if p.failed() {
		return nil
	}
	switch p.curToken.Type {
	case lexer.EOF:
		return tmpl
	case lexer.COMMAND_OPEN:
		p.addError("SYNTAX-0006", p.peekToken, map[string]any{"Keyword": p.peekToken.Literal})
	case lexer.SHORTCODE_CLOSE:
		p.addError("SYNTAX-0006", p.curToken, map[string]any{"Keyword": "{</"})
	}
	return nil
}

// parseBody parses controls until end of input or a token that ends a block:
// `{- else`, `{- end` or `{</`. curToken is left on that token.
func (p *Parser) parseBody() *ast.Template {
	tmpl := &ast.Template{}
	for !p.failed() {
		switch p.curToken.Type {
		case lexer.EOF, lexer.SHORTCODE_CLOSE:
			return tmpl
		case lexer.COMMAND_OPEN:
			if p.peekTokenIs(lexer.ELSE) || p.peekTokenIs(lexer.END) {
				return tmpl
			}
		}
		if c := p.parseControl(); c != nil {
			tmpl.Controls = append(tmpl.Controls, c)
		}
		p.nextToken()
	}
	return tmpl
}

func (p *Parser) parseControl() ast.Control {
	switch p.curToken.Type {
	case lexer.TEXT:
		return &ast.Text{Base: ast.At(p.curToken), Value: p.curToken.Literal}
	case lexer.SUBST_OPEN:
		return p.parseSubstitution()
	case lexer.SHORTCODE_OPEN:
		return p.parseShortCode()
	case lexer.COMMAND_OPEN:
		return p.parseCommand()
	}
	p.addError("SYNTAX-0002", p.curToken, map[string]any{"Got": p.curToken.Describe()})
	return nil
}

func (p *Parser) parseSubstitution() ast.Control {
	sub := &ast.Substitution{Base: ast.At(p.curToken)}

	switch p.peekToken.Type {
	case lexer.GET:
		p.nextToken()
		p.nextToken()
		sub.Kind = ast.SubstGet
		sub.Expr = p.parseExpression(LOWEST)
		if sub.Expr == nil {
			return nil
		}
		if _, ok := rootOf(sub.Expr).(*ast.Variable); !ok {
			line, col := sub.Expr.Position()
			p.addError("SYNTAX-0001", lexer.Token{Line: line, Column: col}, map[string]any{
				"Expected": "variable after `get`",
				"Got":      "`" + sub.Expr.String() + "`",
			})
			return nil
		}

	case lexer.PARAM:
		p.nextToken()
		if p.peekTokenIs(lexer.INT) && p.peekToken.SpaceBefore {
			p.nextToken()
			n, ok := p.parseIndex(p.curToken)
			if !ok {
				return nil
			}
			sub.Kind = ast.SubstParam
			sub.Param = n
			break
		}
		sub.Expr = p.parseExpression(LOWEST)
		if sub.Expr == nil {
			return nil
		}
		if fa, ok := sub.Expr.(*ast.FieldAccess); ok && fa.IsIndex {
			if _, ok := fa.Object.(*ast.Param); ok {
				sub.Kind = ast.SubstParam
				sub.Param = fa.Index
				sub.Expr = nil
			}
		}

	default:
		p.nextToken()
		sub.Expr = p.parseExpression(LOWEST)
		if sub.Expr == nil {
			return nil
		}
	}

	if !p.expectPeek(lexer.SUBST_END, "`:}`") {
		return nil
	}
	return sub
}

// rootOf returns the expression a field chain starts from.
func rootOf(e ast.Expression) ast.Expression {
	for {
		fa, ok := e.(*ast.FieldAccess)
		if !ok {
			return e
		}
		e = fa.Object
	}
}

func (p *Parser) parseShortCode() ast.Control {
	sc := &ast.ShortCode{Base: ast.At(p.curToken)}

	if !p.expectPeek(lexer.IDENT, "shortcode name") {
		return nil
	}
	sc.Name = p.curToken.Literal

	args, ok := p.parseArgs(lexer.SHORTCODE_END, lexer.SHORTCODE_SELF)
	if !ok {
		return nil
	}
	sc.Args = args

	if p.curTokenIs(lexer.SHORTCODE_SELF) {
		sc.Single = true
		return sc
	}

	p.nextToken()
	sc.Body = p.parseBody()
	if p.failed() {
		return nil
	}

	switch p.curToken.Type {
	case lexer.SHORTCODE_CLOSE:
	case lexer.EOF:
		p.addError("SYNTAX-0004", sc.Token, map[string]any{
			"Form":     "shortcode `" + sc.Name + "`",
			"Close":    "{</ " + sc.Name + " >}",
			"Expected": "`{</ " + sc.Name + " >}`",
		})
		return nil
	default:
		p.addError("SYNTAX-0006", p.peekToken, map[string]any{"Keyword": p.peekToken.Literal})
		return nil
	}

	if !p.expectPeek(lexer.IDENT, "shortcode name") {
		return nil
	}
	if p.curToken.Literal != sc.Name {
		p.addError("SYNTAX-0009", p.curToken, map[string]any{
			"Open":     sc.Name,
			"Close":    p.curToken.Literal,
			"Expected": "`" + sc.Name + "`",
		})
		return nil
	}
	if !p.expectPeek(lexer.SHORTCODE_END, "`>}`") {
		return nil
	}
	return sc
}

// parseArgs parses a whitespace- or comma-separated expression list starting
// after curToken and ending at one of closers, which becomes curToken.
func (p *Parser) parseArgs(closers ...lexer.TokenType) ([]ast.Expression, bool) {
	var args []ast.Expression
	p.nextToken()
	for !p.curTokenIsAny(closers...) {
		if p.curTokenIs(lexer.EOF) {
			p.unterminated()
			return nil, false
		}
		expr := p.parseExpression(LOWEST)
		if expr == nil {
			return nil, false
		}
		args = append(args, expr)
		p.nextToken()
		if p.curTokenIs(lexer.COMMA) {
			p.nextToken()
		}
	}
	return args, true
}

func (p *Parser) curTokenIsAny(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.curToken.Type == t {
			return true
		}
	}
	return false
}

func (p *Parser) parseCommand() ast.Control {
	p.nextToken()

	switch p.curToken.Type {
	case lexer.SET:
		return p.parseSet()
	case lexer.FOR:
		return p.parseFor()
	case lexer.WITH:
		return p.parseWith()
	case lexer.IF:
		return p.parseIf()
	case lexer.INCLUDE:
		return p.parseInclude()
	case lexer.EOF:
		p.unterminated()
	case lexer.IDENT, lexer.PARAM, lexer.GET, lexer.THIS:
		p.addError("SYNTAX-0005", p.curToken, map[string]any{
			"Name":     p.curToken.Literal,
			"Expected": "command",
		})
	default:
		p.addError("SYNTAX-0001", p.curToken, map[string]any{
			"Expected": "command",
			"Got":      p.curToken.Describe(),
		})
	}
	return nil
}

func (p *Parser) parseSet() ast.Control {
	cmd := &ast.SetCommand{Base: ast.At(p.curToken)}

	if !p.expectPeek(lexer.VARIABLE, "variable") {
		return nil
	}
	cmd.Name = p.curToken.Literal

	if p.peekTokenIs(lexer.ASSIGN) {
		p.nextToken()
	}
	p.nextToken()

	cmd.Value = p.parseExpression(LOWEST)
	if cmd.Value == nil || !p.expectPeek(lexer.COMMAND_END, "`-}`") {
		return nil
	}
	return cmd
}

func (p *Parser) parseFor() ast.Control {
	cmd := &ast.ForCommand{Base: ast.At(p.curToken)}

	if !p.expectPeek(lexer.VARIABLE, "loop variable") {
		return nil
	}
	cmd.Item = p.curToken.Literal

	if p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		if !p.expectPeek(lexer.VARIABLE, "index variable") {
			return nil
		}
		cmd.Index = p.curToken.Literal
	}

	if !p.expectPeek(lexer.COLON, "`:`") {
		return nil
	}
	p.nextToken()

	cmd.Iterable = p.parseExpression(LOWEST)
	if cmd.Iterable == nil || !p.expectPeek(lexer.COMMAND_END, "`-}`") {
		return nil
	}

	cmd.Body = p.parseBlock(cmd.Token)
	if cmd.Body == nil {
		return nil
	}
	return cmd
}

func (p *Parser) parseWith() ast.Control {
	cmd := &ast.WithCommand{Base: ast.At(p.curToken)}
	p.nextToken()

	cmd.Object = p.parseExpression(LOWEST)
	if cmd.Object == nil || !p.expectPeek(lexer.COMMAND_END, "`-}`") {
		return nil
	}

	cmd.Body = p.parseBlock(cmd.Token)
	if cmd.Body == nil {
		return nil
	}
	return cmd
}

// parseBlock parses a body that must be closed by `{- end -}`.
func (p *Parser) parseBlock(opener lexer.Token) *ast.Template {
	p.nextToken()
	body := p.parseBody()
	if p.failed() {
		return nil
	}
	if !p.atKeyword(lexer.END) {
		p.blockError(opener)
		return nil
	}
	if !p.parseEnd() {
		return nil
	}
	return body
}

// atKeyword reports whether curToken opens the command `{- kw`.
func (p *Parser) atKeyword(kw lexer.TokenType) bool {
	return p.curTokenIs(lexer.COMMAND_OPEN) && p.peekTokenIs(kw)
}

// parseEnd consumes `{- end -}` with curToken on `{-`.
func (p *Parser) parseEnd() bool {
	p.nextToken()
	return p.expectPeek(lexer.COMMAND_END, "`-}`")
}

// blockError reports why a block body stopped somewhere other than its `end`.
func (p *Parser) blockError(opener lexer.Token) {
	switch {
	case p.curTokenIs(lexer.EOF):
		p.addError("SYNTAX-0007", opener, map[string]any{
			"Keyword":  opener.Literal,
			"Line":     opener.Line,
			"Expected": "`{- end -}`",
		})
	case p.curTokenIs(lexer.COMMAND_OPEN):
		p.addError("SYNTAX-0002", p.peekToken, map[string]any{"Got": p.peekToken.Describe()})
	default:
		p.addError("SYNTAX-0002", p.curToken, map[string]any{"Got": p.curToken.Describe()})
	}
}

func (p *Parser) parseIf() ast.Control {
	cmd := &ast.IfCommand{Base: ast.At(p.curToken)}

	branch, ok := p.parseIfBranch()
	if !ok {
		return nil
	}
	cmd.Branches = append(cmd.Branches, branch)

	for {
		if p.atKeyword(lexer.END) {
			if !p.parseEnd() {
				return nil
			}
			return cmd
		}
		if !p.atKeyword(lexer.ELSE) {
			p.blockError(cmd.Token)
			return nil
		}

		p.nextToken()
		elseTok := p.curToken
		if cmd.Else != nil {
			p.addError("SYNTAX-0010", elseTok, nil)
			return nil
		}

		if p.peekTokenIs(lexer.COMMAND_END) {
			p.nextToken()
			p.nextToken()
			cmd.Else = p.parseBody()
			if p.failed() {
				return nil
			}
			continue
		}

		if p.peekTokenIs(lexer.IF) {
			p.nextToken()
		}
		branch, ok := p.parseIfBranch()
		if !ok {
			return nil
		}
		cmd.Branches = append(cmd.Branches, branch)
	}
}

// parseIfBranch parses `cond -} body` with curToken on the keyword before cond.
func (p *Parser) parseIfBranch() (ast.IfBranch, bool) {
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if cond == nil || !p.expectPeek(lexer.COMMAND_END, "`-}`") {
		return ast.IfBranch{}, false
	}
	p.nextToken()
	body := p.parseBody()
	if p.failed() {
		return ast.IfBranch{}, false
	}
	return ast.IfBranch{Condition: cond, Body: body}, true
}

func (p *Parser) parseInclude() ast.Control {
	cmd := &ast.IncludeCommand{Base: ast.At(p.curToken)}

	exprs, ok := p.parseArgs(lexer.COMMAND_END)
	if !ok {
		return nil
	}
	if len(exprs) == 0 {
		p.addError("SYNTAX-0001", p.curToken, map[string]any{
			"Expected": "template path",
			"Got":      p.curToken.Describe(),
		})
		return nil
	}

	cmd.Path = exprs[0]
	if len(exprs) > 1 {
		cmd.Scope = exprs[1]
	}
	if len(exprs) > 2 {
		cmd.Args = exprs[2:]
	}
	return cmd
}

// Expressions

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError()
		return nil
	}
	left := prefix()

	compared := false
	for left != nil && precedence < p.peekPrecedence() {
		if precedences[p.peekToken.Type] == COMPARE {
			if compared {
				p.addError("SYNTAX-0008", p.peekToken, nil)
				return nil
			}
			compared = true
		}
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

// peekPrecedence returns the precedence of the next token. A field access
// binds only when the dot touches the expression before it.
func (p *Parser) peekPrecedence() int {
	if p.peekTokenIs(lexer.DOT) && p.peekToken.SpaceBefore {
		return LOWEST
	}
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) noPrefixParseFnError() {
	switch p.curToken.Type {
	case lexer.EOF:
		p.unterminated()
	case lexer.ILLEGAL:
		p.addError("SYNTAX-0012", p.curToken, map[string]any{"Got": p.curToken.Describe()})
	default:
		p.addError("SYNTAX-0001", p.curToken, map[string]any{
			"Expected": "expression",
			"Got":      p.curToken.Describe(),
		})
	}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	value, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
	if err != nil {
		p.addError("SYNTAX-0011", p.curToken, map[string]any{"Literal": p.curToken.Literal})
		return nil
	}
	return &ast.IntegerLiteral{Base: ast.At(p.curToken), Value: value}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Base: ast.At(p.curToken), Value: p.curToken.Literal}
}

func (p *Parser) parseBadString() ast.Expression {
	p.addError("SYNTAX-0003", p.curToken, map[string]any{"Expected": "`\"`"})
	return nil
}

func (p *Parser) parseBoolean() ast.Expression {
	return &ast.BooleanLiteral{Base: ast.At(p.curToken), Value: p.curTokenIs(lexer.TRUE)}
}

func (p *Parser) parseVariable() ast.Expression {
	return &ast.Variable{Base: ast.At(p.curToken), Name: p.curToken.Literal}
}

func (p *Parser) parseThis() ast.Expression {
	return &ast.This{Base: ast.At(p.curToken)}
}

// parseImplicitThis handles a leading `.`: alone it is the current object,
// followed directly by a name it starts a field chain.
func (p *Parser) parseImplicitThis() ast.Expression {
	this := &ast.This{Base: ast.At(p.curToken), Implicit: true}
	if p.peekToken.SpaceBefore || !isFieldName(p.peekToken.Type) {
		return this
	}
	return p.parseFieldAccess(this)
}

func (p *Parser) parseIdentifier() ast.Expression {
	if p.curToken.Literal == "GLOBAL" {
		return &ast.Global{Base: ast.At(p.curToken)}
	}
	p.addError("SYNTAX-0013", p.curToken, map[string]any{
		"Name":     p.curToken.Literal,
		"Expected": "expression",
	})
	return nil
}

func (p *Parser) parseParam() ast.Expression {
	return &ast.Param{Base: ast.At(p.curToken)}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expr := &ast.PrefixExpression{Base: ast.At(p.curToken), Operator: p.curToken.Literal}
	p.nextToken()
	expr.Right = p.parseExpression(PREFIX)
	if expr.Right == nil {
		return nil
	}
	return expr
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	expr := p.parseExpression(LOWEST)
	if expr == nil || !p.expectPeek(lexer.RPAREN, "`)`") {
		return nil
	}
	return expr
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expr := &ast.InfixExpression{
		Base:     ast.At(p.curToken),
		Operator: p.curToken.Literal,
		Left:     left,
	}
	precedence := p.curPrecedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	if expr.Right == nil {
		return nil
	}
	return expr
}

// parseFieldAccess parses `.name` or `.N` after object, with curToken on the dot.
func (p *Parser) parseFieldAccess(object ast.Expression) ast.Expression {
	dot := p.curToken
	if p.peekToken.SpaceBefore || !isFieldName(p.peekToken.Type) {
		p.addError("SYNTAX-0001", p.peekToken, map[string]any{
			"Expected": "field name after `.`",
			"Got":      p.peekToken.Describe(),
		})
		return nil
	}
	p.nextToken()

	fa := &ast.FieldAccess{Base: ast.At(dot), Object: object, Field: p.curToken.Literal}
	if p.curTokenIs(lexer.INT) {
		n, ok := p.parseIndex(p.curToken)
		if !ok {
			return nil
		}
		fa.Index = n
		fa.IsIndex = true
	}
	return fa
}

func (p *Parser) parseIndex(tok lexer.Token) (int, bool) {
	n, err := strconv.Atoi(tok.Literal)
	if err != nil {
		p.addError("SYNTAX-0011", tok, map[string]any{"Literal": tok.Literal})
		return 0, false
	}
	return n, true
}

func isFieldName(tt lexer.TokenType) bool {
	return tt == lexer.IDENT || tt == lexer.INT || tt.IsKeyword()
}
