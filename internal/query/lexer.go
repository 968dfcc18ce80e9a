package query

import (
	"unicode"
)

// TokenType represents the type of a lexer token.
type TokenType int

const (
	TokenEOF    TokenType = iota
	TokenWord             // fields, operators, keywords and bare values: "parent.name", "is", "root"
	TokenString           // quoted value, quotes removed
	TokenLParen           // (
	TokenRParen           // )
	TokenComma            // ,
	TokenError            // error token
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "end of query"
	case TokenWord:
		return "word"
	case TokenString:
		return "quoted string"
	case TokenLParen:
		return "'('"
	case TokenRParen:
		return "')'"
	case TokenComma:
		return "','"
	default:
		return "invalid token"
	}
}

// Token represents a lexer token.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
	Quote byte // quote character for TokenString
}

// Lexer tokenizes a query string.
type Lexer struct {
	input string
	pos   int
	start int
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}
	}

	l.start = l.pos
	ch := l.input[l.pos]

	switch ch {
	case '(':
		l.pos++
		return Token{Type: TokenLParen, Value: "(", Pos: l.start}
	case ')':
		l.pos++
		return Token{Type: TokenRParen, Value: ")", Pos: l.start}
	case ',':
		l.pos++
		return Token{Type: TokenComma, Value: ",", Pos: l.start}
	case '"', '\'':
		return l.scanString(ch)
	default:
		if isWordChar(ch) {
			return l.scanWord()
		}
		l.pos++
		return Token{Type: TokenError, Value: string(ch), Pos: l.start}
	}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

func (l *Lexer) scanWord() Token {
	start := l.pos
	for l.pos < len(l.input) && isWordChar(l.input[l.pos]) {
		l.pos++
	}
	return Token{Type: TokenWord, Value: l.input[start:l.pos], Pos: start}
}

// scanString reads a quoted value. A backslash keeps the following character
// from closing the string; the backslash itself is preserved so regular
// expression escapes reach the matcher untouched.
func (l *Lexer) scanString(quote byte) Token {
	start := l.pos
	l.pos++ // opening quote
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\\' && l.pos+1 < len(l.input) {
			l.pos += 2
			continue
		}
		if ch == quote {
			value := l.input[start+1 : l.pos]
			l.pos++
			return Token{Type: TokenString, Value: value, Pos: start, Quote: quote}
		}
		l.pos++
	}
	return Token{Type: TokenError, Value: "unterminated string", Pos: start}
}

// isBareValue reports whether s is letters and digits only. Words in value
// position are narrower than field paths.
func isBareValue(s string) bool {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if !(ch >= 'a' && ch <= 'z') && !(ch >= 'A' && ch <= 'Z') && !(ch >= '0' && ch <= '9') {
			return false
		}
	}
	return s != ""
}

func isWordChar(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '_' ||
		ch == '.' ||
		ch == ':'
}
