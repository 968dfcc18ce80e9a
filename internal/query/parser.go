package query

import (
	"fmt"
	"regexp"
	"strings"
)

// SyntaxError reports query text that does not conform to the grammar.
type SyntaxError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
}

// Parser parses query strings into expression trees. A Parser is created per
// parse by Grammar.Parse.
type Parser struct {
	grammar *Grammar
	input   string
	lexer   *Lexer
	curr    Token
	peek    Token
}

// Parse parses a query string with the default grammar.
func Parse(input string) (Expr, error) {
	return DefaultGrammar().Parse(input)
}

func (p *Parser) advance() {
	p.curr = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) errorf(pos int, format string, args ...interface{}) error {
	return &SyntaxError{Input: p.input, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) unexpected(what string) error {
	switch p.curr.Type {
	case TokenEOF:
		return p.errorf(p.curr.Pos, "expected %s, got end of query", what)
	case TokenError:
		return p.errorf(p.curr.Pos, "expected %s, got invalid input %q", what, p.curr.Value)
	default:
		return p.errorf(p.curr.Pos, "expected %s, got %q", what, p.curr.Value)
	}
}

func (p *Parser) expect(t TokenType) error {
	if p.curr.Type != t {
		return p.unexpected(t.String())
	}
	p.advance()
	return nil
}

func (p *Parser) isKeyword(tok Token, kw string) bool {
	return tok.Type == TokenWord && tok.Value == kw
}

// parseQuery parses a complete query and requires all input to be consumed.
func (p *Parser) parseQuery() (Expr, error) {
	if p.curr.Type == TokenEOF {
		return nil, p.errorf(0, "empty query")
	}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.curr.Type != TokenEOF {
		return nil, p.unexpected("'and', 'or' or end of query")
	}
	return expr, nil
}

// parseOr parses OR expressions (lowest precedence).
func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword(p.curr, KeywordOr) {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Or{Left: left, Right: right}
	}
	return left, nil
}

// parseAnd parses AND expressions (middle precedence).
func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isKeyword(p.curr, KeywordAnd) {
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &And{Left: left, Right: right}
	}
	return left, nil
}

// parseUnary parses NOT and grouped expressions (highest precedence).
func (p *Parser) parseUnary() (Expr, error) {
	// "not is x" addresses a field called not.
	if p.isKeyword(p.curr, KeywordNot) && !p.isOperator(p.peek) {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{X: x}, nil
	}

	if p.curr.Type == TokenLParen {
		open := p.curr.Pos
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.curr.Type != TokenRParen {
			if p.curr.Type == TokenEOF {
				return nil, p.errorf(open, "unclosed parenthesis")
			}
			return nil, p.unexpected("')'")
		}
		p.advance()
		return expr, nil
	}

	return p.parseCondition()
}

func (p *Parser) isOperator(tok Token) bool {
	if tok.Type != TokenWord {
		return false
	}
	_, ok := p.grammar.Operator(tok.Value)
	return ok
}

// parseCondition parses field operator operand.
func (p *Parser) parseCondition() (Expr, error) {
	if p.curr.Type != TokenWord {
		return nil, p.unexpected("condition")
	}
	fieldTok := p.curr
	path, err := p.splitField(fieldTok)
	if err != nil {
		return nil, err
	}
	p.advance()

	if p.curr.Type != TokenWord {
		return nil, p.unexpected("operator")
	}
	op, ok := p.grammar.Operator(p.curr.Value)
	if !ok {
		return nil, p.errorf(p.curr.Pos, "unknown operator %q", p.curr.Value)
	}
	p.advance()

	clause := &Clause{Field: fieldTok.Value, Path: path, Op: op, Pos: fieldTok.Pos}
	switch op.Kind {
	case OpComparison:
		valuePos := p.curr.Pos
		lit, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		if op.Match == MatchPattern {
			if _, err := compilePattern(lit.Text); err != nil {
				return nil, p.errorf(valuePos, "invalid pattern %q: %v", lit.Text, err)
			}
		}
		clause.Values = []Literal{lit}
	case OpContainer:
		values, err := p.parseValueList()
		if err != nil {
			return nil, err
		}
		clause.Values = values
	case OpRelation:
		if err := p.expect(TokenLParen); err != nil {
			return nil, err
		}
		sub, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		clause.Sub = sub
	}
	return clause, nil
}

// splitField validates a dotted field path.
func (p *Parser) splitField(tok Token) ([]string, error) {
	segments := strings.Split(tok.Value, ".")
	for _, s := range segments {
		if s == "" {
			return nil, p.errorf(tok.Pos, "invalid field path %q", tok.Value)
		}
	}
	return segments, nil
}

func (p *Parser) parseValue() (Literal, error) {
	switch p.curr.Type {
	case TokenWord:
		if !isBareValue(p.curr.Value) {
			return Literal{}, p.errorf(p.curr.Pos, "bare value %q may only contain letters and digits, quote it", p.curr.Value)
		}
		lit := Literal{Text: p.curr.Value}
		p.advance()
		return lit, nil
	case TokenString:
		lit := Literal{Text: p.curr.Value, Quoted: true, Quote: p.curr.Quote}
		p.advance()
		return lit, nil
	}
	return Literal{}, p.unexpected("value")
}

// parseValueList parses ( value {, value} ).
func (p *Parser) parseValueList() ([]Literal, error) {
	if err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	var values []Literal
	for {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if p.curr.Type != TokenComma {
			break
		}
		p.advance()
	}
	if err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return values, nil
}

// compilePattern anchors pattern at the start of the string.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("^(?:" + pattern + ")")
}
