// Package query implements the scene query language: lexer, parser, AST,
// evaluator and the Engine facade tying them to a field cache.
package query

import (
	"strings"

	"github.com/aidanlsb/sceneql/internal/scene"
)

// Expr is a node of a parsed boolean expression.
type Expr interface {
	exprNode()
	String() string
}

// Literal is a value written in a query.
type Literal struct {
	Text   string
	Quoted bool
	Quote  byte
}

// Value normalizes the literal. none, true and false (any case, quoted or
// not) denote the absent value and booleans.
func (l Literal) Value() scene.Value {
	switch strings.ToLower(l.Text) {
	case "none":
		return scene.Absent()
	case "true":
		return scene.Bool(true)
	case "false":
		return scene.Bool(false)
	}
	return scene.Text(l.Text)
}

func (l Literal) String() string {
	if !l.Quoted {
		return l.Text
	}
	q := l.Quote
	if q == 0 {
		q = '"'
	}
	return string(q) + l.Text + string(q)
}

// Clause is a leaf condition: field path, operator and value(s).
type Clause struct {
	Field  string   // dotted field path as written
	Path   []string // Field split on '.'
	Op     Operator
	Values []Literal // one value for comparison operators, a list for container operators
	Sub    Expr      // nested expression for relationship operators
	Pos    int
}

func (*Clause) exprNode() {}

func (c *Clause) String() string {
	var sb strings.Builder
	sb.WriteString(c.Field)
	sb.WriteByte(' ')
	sb.WriteString(c.Op.Name)
	sb.WriteByte(' ')
	switch c.Op.Kind {
	case OpRelation:
		switch c.Sub.(type) {
		case *And, *Or:
			sb.WriteString(c.Sub.String())
		case nil:
			sb.WriteString("()")
		default:
			sb.WriteString("(" + c.Sub.String() + ")")
		}
	case OpContainer:
		sb.WriteByte('(')
		for i, v := range c.Values {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(v.String())
		}
		sb.WriteByte(')')
	default:
		if len(c.Values) > 0 {
			sb.WriteString(c.Values[0].String())
		}
	}
	return sb.String()
}

// Not inverts its operand relative to the active universe.
type Not struct {
	X Expr
}

func (*Not) exprNode() {}

func (n *Not) String() string { return "not " + n.X.String() }

// And intersects its operands.
type And struct {
	Left, Right Expr
}

func (*And) exprNode() {}

func (a *And) String() string {
	return "(" + a.Left.String() + " and " + a.Right.String() + ")"
}

// Or unions its operands.
type Or struct {
	Left, Right Expr
}

func (*Or) exprNode() {}

func (o *Or) String() string {
	return "(" + o.Left.String() + " or " + o.Right.String() + ")"
}

// Walk calls fn for every clause in expr, including clauses nested in
// relationship sub-expressions, in left-to-right order.
func Walk(expr Expr, fn func(*Clause)) {
	switch e := expr.(type) {
	case *Clause:
		fn(e)
		if e.Sub != nil {
			Walk(e.Sub, fn)
		}
	case *Not:
		Walk(e.X, fn)
	case *And:
		Walk(e.Left, fn)
		Walk(e.Right, fn)
	case *Or:
		Walk(e.Left, fn)
		Walk(e.Right, fn)
	}
}

// FieldNames returns the distinct field names referenced by expr in the order
// they first appear.
func FieldNames(expr Expr) []string {
	seen := make(map[string]bool)
	var out []string
	Walk(expr, func(c *Clause) {
		for _, f := range c.Path {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	})
	return out
}
