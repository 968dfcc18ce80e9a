package query

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/aidanlsb/sceneql/internal/fieldcache"
	"github.com/aidanlsb/sceneql/internal/scene"
)

// relationship maps an origin node to the values reached from it by following
// a field path so far.
type relationship map[scene.NodeID]scene.ValueSet

// Evaluator walks expression trees against a field cache.
type Evaluator struct {
	cache *fieldcache.Cache
	log   *zap.Logger
}

// NewEvaluator creates an evaluator reading from cache.
func NewEvaluator(cache *fieldcache.Cache, log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{cache: cache, log: log}
}

// Evaluate returns the nodes of universe satisfying expr. A nil universe means
// every node in the scene.
func (e *Evaluator) Evaluate(expr Expr, universe scene.NodeSet) (scene.NodeSet, error) {
	if err := e.cache.Bootstrap(); err != nil {
		return nil, err
	}
	if universe == nil {
		universe = e.cache.Nodes()
	}
	return e.eval(expr, universe)
}

func (e *Evaluator) eval(expr Expr, universe scene.NodeSet) (scene.NodeSet, error) {
	switch x := expr.(type) {
	case *Clause:
		return e.evalClause(x, universe)
	case *Not:
		sample, err := e.eval(x.X, universe)
		if err != nil {
			return nil, err
		}
		return universe.Difference(sample), nil
	case *And:
		left, err := e.eval(x.Left, universe)
		if err != nil {
			return nil, err
		}
		right, err := e.eval(x.Right, universe)
		if err != nil {
			return nil, err
		}
		return left.Intersect(right), nil
	case *Or:
		left, err := e.eval(x.Left, universe)
		if err != nil {
			return nil, err
		}
		right, err := e.eval(x.Right, universe)
		if err != nil {
			return nil, err
		}
		return left.Union(right), nil
	default:
		return nil, fmt.Errorf("unsupported expression %T", expr)
	}
}

func (e *Evaluator) evalClause(c *Clause, universe scene.NodeSet) (scene.NodeSet, error) {
	rel, err := e.traverse(c.Path, universe)
	if err != nil {
		return nil, err
	}

	var sample scene.NodeSet
	switch c.Op.Match {
	case MatchEqual:
		sample = matchValues(rel, literalSet(c.Values))
	case MatchPattern:
		re, err := compilePattern(c.Values[0].Text)
		if err != nil {
			return nil, &SyntaxError{Pos: c.Pos, Msg: fmt.Sprintf("invalid pattern %q: %v", c.Values[0].Text, err)}
		}
		sample = make(scene.NodeSet)
		for origin, values := range rel {
			for v := range values {
				if v.IsAbsent() {
					continue
				}
				if re.MatchString(v.String()) {
					sample.Add(origin)
					break
				}
			}
		}
	case MatchSub:
		targets := e.reachableNodes(rel)
		e.log.Debug("evaluating nested expression",
			zap.String("field", c.Field),
			zap.Int("universe", len(targets)))
		sub, err := e.eval(c.Sub, targets)
		if err != nil {
			return nil, err
		}
		values := make(scene.ValueSet, len(sub))
		for id := range sub {
			values.Add(id.Value())
		}
		sample = matchValues(rel, values)
	default:
		return nil, fmt.Errorf("operator %q: unsupported match mode", c.Op.Name)
	}

	if c.Op.Negated {
		sample = universe.Difference(sample)
	}
	e.log.Debug("evaluated clause",
		zap.String("field", c.Field),
		zap.String("operator", c.Op.Name),
		zap.Int("universe", len(universe)),
		zap.Int("matches", len(sample)))
	return sample, nil
}

// traverse follows path one segment at a time from every node of universe.
// Only values naming a known node are followed; origins with nothing
// reachable are pruned after each step.
func (e *Evaluator) traverse(path []string, universe scene.NodeSet) (relationship, error) {
	rel := make(relationship, len(universe))
	for id := range universe {
		rel[id] = scene.NewValueSet(id.Value())
	}

	for _, field := range path {
		if err := e.cache.Populate(field, e.reachableNodes(rel)); err != nil {
			return nil, err
		}
		next := make(relationship, len(rel))
		for origin, values := range rel {
			reached := make(scene.ValueSet)
			for v := range values {
				id, ok := v.AsNode()
				if !ok || !e.cache.Has(id) {
					continue
				}
				f, ok := e.cache.Get(id, field)
				if !ok {
					continue
				}
				for _, t := range f.Values() {
					reached.Add(t)
				}
			}
			if len(reached) > 0 {
				next[origin] = reached
			}
		}
		rel = next
	}
	return rel, nil
}

// reachableNodes returns the known nodes among all values of rel.
func (e *Evaluator) reachableNodes(rel relationship) scene.NodeSet {
	out := make(scene.NodeSet)
	for _, values := range rel {
		for v := range values {
			if id, ok := v.AsNode(); ok && e.cache.Has(id) {
				out.Add(id)
			}
		}
	}
	return out
}

func matchValues(rel relationship, values scene.ValueSet) scene.NodeSet {
	out := make(scene.NodeSet)
	for origin, reached := range rel {
		if reached.Intersects(values) {
			out.Add(origin)
		}
	}
	return out
}

func literalSet(lits []Literal) scene.ValueSet {
	out := make(scene.ValueSet, len(lits))
	for _, l := range lits {
		out.Add(l.Value())
	}
	return out
}
