package query

import (
	"fmt"
	"sort"
)

// OpKind classifies operators by the shape of their operand.
type OpKind int

const (
	OpComparison OpKind = iota // field op value
	OpContainer                // field op (value, value, ...)
	OpRelation                 // field op (expression)
)

func (k OpKind) String() string {
	switch k {
	case OpContainer:
		return "container"
	case OpRelation:
		return "relation"
	default:
		return "comparison"
	}
}

// Match selects how an operator compares reachable values with its operand.
type Match int

const (
	MatchEqual   Match = iota // reachable set intersects the literal set
	MatchPattern              // some reachable value matches a regular expression
	MatchSub                  // reachable set intersects a sub-query result
)

// Operator is one word of the query language placed between a field path and
// its operand.
type Operator struct {
	Name    string
	Kind    OpKind
	Match   Match
	Negated bool // result is inverted against the active universe
}

// DefaultOperators returns the operator set of the query language.
func DefaultOperators() []Operator {
	return []Operator{
		{Name: "is", Kind: OpComparison, Match: MatchEqual},
		{Name: "is_not", Kind: OpComparison, Match: MatchEqual, Negated: true},
		{Name: "match", Kind: OpComparison, Match: MatchPattern},
		{Name: "in", Kind: OpContainer, Match: MatchEqual},
		{Name: "not_in", Kind: OpContainer, Match: MatchEqual, Negated: true},
		{Name: "has", Kind: OpRelation, Match: MatchSub},
	}
}

// Keywords of the boolean layer.
const (
	KeywordNot = "not"
	KeywordAnd = "and"
	KeywordOr  = "or"
)

// Grammar is an immutable operator table used to parse queries. It holds no
// parse state and may be shared.
type Grammar struct {
	ops map[string]Operator
}

// NewGrammar builds a grammar from ops. With no arguments the default operator
// set is used.
func NewGrammar(ops ...Operator) (*Grammar, error) {
	if len(ops) == 0 {
		ops = DefaultOperators()
	}
	g := &Grammar{ops: make(map[string]Operator, len(ops))}
	for _, op := range ops {
		if op.Name == "" {
			return nil, fmt.Errorf("operator name is required")
		}
		switch op.Name {
		case KeywordNot, KeywordAnd, KeywordOr:
			return nil, fmt.Errorf("operator %q collides with a boolean keyword", op.Name)
		}
		for i := 0; i < len(op.Name); i++ {
			if !isWordChar(op.Name[i]) {
				return nil, fmt.Errorf("operator %q must be a single word", op.Name)
			}
		}
		if _, dup := g.ops[op.Name]; dup {
			return nil, fmt.Errorf("duplicate operator %q", op.Name)
		}
		if op.Match == MatchSub && op.Kind != OpRelation {
			return nil, fmt.Errorf("operator %q: sub-query matching requires a relation operator", op.Name)
		}
		g.ops[op.Name] = op
	}
	return g, nil
}

// DefaultGrammar returns a grammar with the default operator set.
func DefaultGrammar() *Grammar {
	g, err := NewGrammar()
	if err != nil {
		panic(err)
	}
	return g
}

// Operator looks up an operator by name.
func (g *Grammar) Operator(name string) (Operator, bool) {
	op, ok := g.ops[name]
	return op, ok
}

// Operators returns the operator table sorted by name.
func (g *Grammar) Operators() []Operator {
	out := make([]Operator, 0, len(g.ops))
	for _, op := range g.ops {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Parse parses input into an expression tree.
func (g *Grammar) Parse(input string) (Expr, error) {
	p := &Parser{grammar: g, input: input, lexer: NewLexer(input)}
	p.advance()
	p.advance()
	return p.parseQuery()
}
