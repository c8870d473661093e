// Package lexer splits Thyme template source into tokens.
//
// A template is literal text interleaved with four bracketed forms:
//
//	{< name args >} ... {</ name >}   block shortcode
//	{< name args />}                  single shortcode
//	{- command -}                     command
//	{: expression :}                  substitution
//
// The lexer runs in text mode until it sees an opening delimiter and in code
// mode until the matching closing delimiter.
package lexer

import (
	"fmt"
	"strings"
)

// TokenType represents different types of tokens
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	BAD_STRING
	EOF

	// Literal text outside any bracket
	TEXT

	// Identifiers and literals
	IDENT    // GLOBAL, field names
	VARIABLE // $name (literal holds the name without the sigil)
	INT      // 42
	STRING   // "hello"

	// Operators
	PLUS     // +
	MINUS    // -
	ASTERISK // *
	SLASH    // /
	PERCENT  // %
	BANG     // !
	ASSIGN   // =
	EQ       // ==
	NOT_EQ   // !=
	LT       // <
	LT_EQ    // <=
	GT       // >
	GT_EQ    // >=
	AND      // &&
	OR       // ||

	// Punctuation
	DOT    // .
	COMMA  // ,
	COLON  // :
	LPAREN // (
	RPAREN // )

	// Delimiters
	SHORTCODE_OPEN  // {<
	SHORTCODE_CLOSE // {</
	SHORTCODE_END   // >}
	SHORTCODE_SELF  // />}
	COMMAND_OPEN    // {-
	COMMAND_END     // -}
	SUBST_OPEN      // {:
	SUBST_END       // :}

	// Keywords
	SET
	FOR
	WITH
	IF
	ELSE
	END
	PARAM
	INCLUDE
	GET
	THIS
	TRUE
	FALSE
)

// Token represents a single token
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
	// SpaceBefore is set when whitespace separates this token from the previous one.
	// Field access chains require adjacency, so `.a.b` is one chain and `.a .b` is two.
	SpaceBefore bool
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("%s(%q) at %d:%d", t.Type, t.Literal, t.Line, t.Column)
}

// Describe returns the token the way error messages quote it.
func (t Token) Describe() string {
	switch t.Type {
	case EOF:
		return "end of input"
	case TEXT:
		return "text"
	case BAD_STRING:
		return "unterminated string"
	case VARIABLE:
		return "`$" + t.Literal + "`"
	case STRING:
		return fmt.Sprintf("%q", t.Literal)
	}
	return "`" + t.Literal + "`"
}

var tokenNames = map[TokenType]string{
	ILLEGAL:         "ILLEGAL",
	BAD_STRING:      "BAD_STRING",
	EOF:             "EOF",
	TEXT:            "TEXT",
	IDENT:           "IDENT",
	VARIABLE:        "VARIABLE",
	INT:             "INT",
	STRING:          "STRING",
	PLUS:            "+",
	MINUS:           "-",
	ASTERISK:        "*",
	SLASH:           "/",
	PERCENT:         "%",
	BANG:            "!",
	ASSIGN:          "=",
	EQ:              "==",
	NOT_EQ:          "!=",
	LT:              "<",
	LT_EQ:           "<=",
	GT:              ">",
	GT_EQ:           ">=",
	AND:             "&&",
	OR:              "||",
	DOT:             ".",
	COMMA:           ",",
	COLON:           ":",
	LPAREN:          "(",
	RPAREN:          ")",
	SHORTCODE_OPEN:  "{<",
	SHORTCODE_CLOSE: "{</",
	SHORTCODE_END:   ">}",
	SHORTCODE_SELF:  "/>}",
	COMMAND_OPEN:    "{-",
	COMMAND_END:     "-}",
	SUBST_OPEN:      "{:",
	SUBST_END:       ":}",
	SET:             "set",
	FOR:             "for",
	WITH:            "with",
	IF:              "if",
	ELSE:            "else",
	END:             "end",
	PARAM:           "param",
	INCLUDE:         "include",
	GET:             "get",
	THIS:            "this",
	TRUE:            "true",
	FALSE:           "false",
}

// String returns the name of the token type
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

var keywords = map[string]TokenType{
	"set":     SET,
	"for":     FOR,
	"with":    WITH,
	"if":      IF,
	"else":    ELSE,
	"end":     END,
	"param":   PARAM,
	"include": INCLUDE,
	"get":     GET,
	"this":    THIS,
	"true":    TRUE,
	"false":   FALSE,
}

// LookupIdent checks if an identifier is a keyword
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword reports whether the token type is a reserved word.
func (tt TokenType) IsKeyword() bool {
	return tt >= SET && tt <= FALSE
}

// closers maps each opening delimiter to the delimiter that ends its code section.
var closers = map[TokenType]TokenType{
	SHORTCODE_OPEN:  SHORTCODE_END,
	SHORTCODE_CLOSE: SHORTCODE_END,
	COMMAND_OPEN:    COMMAND_END,
	SUBST_OPEN:      SUBST_END,
}

// Lexer represents the lexical analyzer
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int
	column       int
	inCode       bool
	Filename     string
}

// New creates a new lexer instance
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

// NewWithFilename creates a new lexer that reports errors against filename
func NewWithFilename(input, filename string) *Lexer {
	l := New(input)
	l.Filename = filename
	return l
}

// StartAt numbers the input from line n, for sources that follow a header
// stripped off by the caller.
func (l *Lexer) StartAt(n int) *Lexer {
	if n > 0 {
		l.line = n
	}
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	l.ch = l.input[l.readPosition]
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekChar() byte {
	return l.peekCharN(1)
}

func (l *Lexer) peekCharN(n int) byte {
	pos := l.position + n
	if pos >= len(l.input) {
		return 0
	}
	return l.input[pos]
}

func (l *Lexer) atEOF() bool {
	return l.position >= len(l.input)
}

// NextToken returns the next token in the input
func (l *Lexer) NextToken() Token {
	if l.inCode {
		return l.nextCodeToken()
	}
	return l.nextTextToken()
}

// Tokens lexes the entire input, including the trailing EOF token.
func (l *Lexer) Tokens() []Token {
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks
		}
	}
}

func (l *Lexer) nextTextToken() Token {
	line, col := l.line, l.column
	if l.atEOF() {
		return Token{Type: EOF, Line: line, Column: col}
	}

	if tok, ok := l.readOpener(); ok {
		return tok
	}

	start := l.position
	for !l.atEOF() && !l.atOpener() {
		l.readChar()
	}
	return Token{Type: TEXT, Literal: l.input[start:l.position], Line: line, Column: col}
}

func (l *Lexer) atOpener() bool {
	if l.ch != '{' {
		return false
	}
	switch l.peekChar() {
	case '<', '-', ':':
		return true
	}
	return false
}

func (l *Lexer) readOpener() (Token, bool) {
	if !l.atOpener() {
		return Token{}, false
	}
	line, col := l.line, l.column
	var tok Token
	switch l.peekChar() {
	case '<':
		if l.peekCharN(2) == '/' {
			tok = Token{Type: SHORTCODE_CLOSE, Literal: "{</"}
			l.readChar()
		} else {
			tok = Token{Type: SHORTCODE_OPEN, Literal: "{<"}
		}
	case '-':
		tok = Token{Type: COMMAND_OPEN, Literal: "{-"}
	case ':':
		tok = Token{Type: SUBST_OPEN, Literal: "{:"}
	}
	l.readChar()
	l.readChar()
	l.inCode = true
	tok.Line, tok.Column = line, col
	return tok, true
}

func (l *Lexer) nextCodeToken() Token {
	space := l.skipWhitespace()
	line, col := l.line, l.column

	tok := Token{Line: line, Column: col, SpaceBefore: space}
	two := func(tt TokenType, lit string) Token {
		l.readChar()
		l.readChar()
		tok.Type, tok.Literal = tt, lit
		return tok
	}
	one := func(tt TokenType) Token {
		tok.Type, tok.Literal = tt, string(l.ch)
		l.readChar()
		return tok
	}
	closeWith := func(tt TokenType, lit string) Token {
		for range lit {
			l.readChar()
		}
		l.inCode = false
		tok.Type, tok.Literal = tt, lit
		return tok
	}

	switch l.ch {
	case 0:
		if l.atEOF() {
			tok.Type = EOF
			return tok
		}
		return one(ILLEGAL)
	case '>':
		if l.peekChar() == '}' {
			return closeWith(SHORTCODE_END, ">}")
		}
		if l.peekChar() == '=' {
			return two(GT_EQ, ">=")
		}
		return one(GT)
	case '/':
		if l.peekChar() == '>' && l.peekCharN(2) == '}' {
			return closeWith(SHORTCODE_SELF, "/>}")
		}
		return one(SLASH)
	case '-':
		if l.peekChar() == '}' {
			return closeWith(COMMAND_END, "-}")
		}
		return one(MINUS)
	case ':':
		if l.peekChar() == '}' {
			return closeWith(SUBST_END, ":}")
		}
		return one(COLON)
	case '<':
		if l.peekChar() == '=' {
			return two(LT_EQ, "<=")
		}
		return one(LT)
	case '=':
		if l.peekChar() == '=' {
			return two(EQ, "==")
		}
		return one(ASSIGN)
	case '!':
		if l.peekChar() == '=' {
			return two(NOT_EQ, "!=")
		}
		return one(BANG)
	case '&':
		if l.peekChar() == '&' {
			return two(AND, "&&")
		}
		return one(ILLEGAL)
	case '|':
		if l.peekChar() == '|' {
			return two(OR, "||")
		}
		return one(ILLEGAL)
	case '+':
		return one(PLUS)
	case '*':
		return one(ASTERISK)
	case '%':
		return one(PERCENT)
	case '.':
		return one(DOT)
	case ',':
		return one(COMMA)
	case '(':
		return one(LPAREN)
	case ')':
		return one(RPAREN)
	case '"':
		str, ok := l.readString()
		tok.Literal = str
		tok.Type = STRING
		if !ok {
			tok.Type = BAD_STRING
		}
		return tok
	case '$':
		l.readChar()
		if !isLetter(l.ch) {
			tok.Type, tok.Literal = ILLEGAL, "$"
			return tok
		}
		tok.Type = VARIABLE
		tok.Literal = l.readIdentifier()
		return tok
	}

	if isLetter(l.ch) {
		tok.Literal = l.readIdentifier()
		tok.Type = LookupIdent(tok.Literal)
		return tok
	}
	if isDigit(l.ch) {
		tok.Type = INT
		tok.Literal = l.readNumber()
		return tok
	}
	return one(ILLEGAL)
}

func (l *Lexer) skipWhitespace() bool {
	skipped := false
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		skipped = true
		l.readChar()
	}
	return skipped
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readNumber() string {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readString reads a double-quoted string starting at the current quote.
// It returns false if the input ends, or the code section closes, before the closing quote.
func (l *Lexer) readString() (string, bool) {
	var sb strings.Builder
	for {
		l.readChar()
		if l.atEOF() {
			return sb.String(), false
		}
		switch l.ch {
		case '"':
			l.readChar()
			return sb.String(), true
		case '\n':
			return sb.String(), false
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case 0:
				return sb.String(), false
			default:
				sb.WriteByte(l.ch)
			}
		default:
			sb.WriteByte(l.ch)
		}
	}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// Closer returns the delimiter that closes the code section opened by tt.
func Closer(tt TokenType) TokenType {
	return closers[tt]
}
