package query

import (
	"go.uber.org/zap"

	"github.com/aidanlsb/sceneql/internal/fieldcache"
	"github.com/aidanlsb/sceneql/internal/scene"
)

// Engine parses and evaluates queries against a scene source.
type Engine struct {
	grammar *Grammar
	source  scene.Source
	log     *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithGrammar replaces the default grammar.
func WithGrammar(g *Grammar) Option {
	return func(e *Engine) {
		if g != nil {
			e.grammar = g
		}
	}
}

// WithLogger sets the logger passed to evaluators and new caches.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine creates an engine reading from src.
func NewEngine(src scene.Source, opts ...Option) *Engine {
	e := &Engine{source: src, log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.grammar == nil {
		e.grammar = DefaultGrammar()
	}
	return e
}

// Grammar returns the grammar used by the engine.
func (e *Engine) Grammar() *Grammar { return e.grammar }

// NewCache returns an empty field cache over the engine's source. Reusing one
// cache across sequential queries avoids repeating data source calls.
func (e *Engine) NewCache() *fieldcache.Cache {
	return fieldcache.New(e.source, fieldcache.WithLogger(e.log))
}

// Parse parses text with the engine's grammar and checks that every field it
// references has a resolution rule.
func (e *Engine) Parse(text string) (Expr, error) {
	expr, err := e.grammar.Parse(text)
	if err != nil {
		return nil, err
	}
	for _, f := range FieldNames(expr) {
		if _, err := fieldcache.Lookup(f); err != nil {
			return nil, err
		}
	}
	return expr, nil
}

// Query evaluates text against cache, creating a fresh cache when cache is nil.
func (e *Engine) Query(text string, cache *fieldcache.Cache) (scene.NodeSet, error) {
	expr, err := e.Parse(text)
	if err != nil {
		return nil, err
	}
	return e.Evaluate(expr, cache)
}

// Evaluate runs a parsed expression over every node of the scene.
func (e *Engine) Evaluate(expr Expr, cache *fieldcache.Cache) (scene.NodeSet, error) {
	if cache == nil {
		cache = e.NewCache()
	}
	return NewEvaluator(cache, e.log).Evaluate(expr, nil)
}
