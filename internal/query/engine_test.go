package query

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aidanlsb/sceneql/internal/fieldcache"
	"github.com/aidanlsb/sceneql/internal/scene"
	"github.com/aidanlsb/sceneql/internal/testutil"
)

type brokenParentSource struct {
	*scene.Graph
}

func (s brokenParentSource) Parent(scene.NodeID) (scene.NodeID, bool, error) {
	return "", false, errors.New("connection lost")
}

func TestEngineErrors(t *testing.T) {
	eng := NewEngine(testutil.BasicScene(t))

	t.Run("syntax error", func(t *testing.T) {
		_, err := eng.Query("name is", nil)
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Fatalf("error = %v, want *SyntaxError", err)
		}
	})

	t.Run("unsupported field", func(t *testing.T) {
		_, err := eng.Query("type is mesh or colour is red", nil)
		var ue *fieldcache.UnsupportedFieldError
		if !errors.As(err, &ue) {
			t.Fatalf("error = %v, want *UnsupportedFieldError", err)
		}
		if ue.Field != "colour" {
			t.Errorf("Field = %q, want colour", ue.Field)
		}
	})

	t.Run("unsupported nested field", func(t *testing.T) {
		_, err := eng.Query("parent has (bogus is x)", nil)
		var ue *fieldcache.UnsupportedFieldError
		if !errors.As(err, &ue) || ue.Field != "bogus" {
			t.Fatalf("error = %v, want unsupported field bogus", err)
		}
	})

	t.Run("source failure", func(t *testing.T) {
		broken := NewEngine(brokenParentSource{testutil.BasicScene(t)})
		_, err := broken.Query("parent is none", nil)
		var se *scene.SourceError
		if !errors.As(err, &se) {
			t.Fatalf("error = %v, want *scene.SourceError", err)
		}
	})
}

func TestEngineCacheReuse(t *testing.T) {
	eng := NewEngine(testutil.BasicScene(t))
	cache := eng.NewCache()

	first, err := eng.Query("allsets.name is rootSet and parent.parent has (name is root)", cache)
	if err != nil {
		t.Fatal(err)
	}
	calls := cache.Stats().SourceCalls

	second, err := eng.Query("allsets.name is rootSet and parent.parent has (name is root)", cache)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Equal(second) {
		t.Errorf("results differ: %v vs %v", first.Sorted(), second.Sorted())
	}
	if got := cache.Stats().SourceCalls; got != calls {
		t.Errorf("SourceCalls = %d after repeat, want %d", got, calls)
	}

	fresh, err := eng.Query("allsets.name is rootSet and parent.parent has (name is root)", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !fresh.Equal(first) {
		t.Errorf("fresh cache result %v, want %v", fresh.Sorted(), first.Sorted())
	}
}

func TestEngineCustomGrammar(t *testing.T) {
	g, err := NewGrammar(
		Operator{Name: "equals", Kind: OpComparison, Match: MatchEqual},
		Operator{Name: "differs", Kind: OpComparison, Match: MatchEqual, Negated: true},
		Operator{Name: "under", Kind: OpRelation, Match: MatchSub},
	)
	if err != nil {
		t.Fatal(err)
	}
	eng := NewEngine(testutil.BasicScene(t), WithGrammar(g))
	if eng.Grammar() != g {
		t.Fatal("engine did not keep custom grammar")
	}

	got, err := eng.Query("parent under (name equals mesh)", nil)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertNodes(t, got, "|root|mesh|meshShape")

	got, err = eng.Query("type differs transform and type differs objectSet", nil)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertNodes(t, got, "|root|mesh|meshShape")

	if _, err := eng.Query("type is mesh", nil); err == nil {
		t.Error("expected syntax error for operator outside grammar")
	}
}

func TestEngineLogsClauses(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	eng := NewEngine(testutil.BasicScene(t), WithLogger(zap.New(core)))

	if _, err := eng.Query("type is mesh", nil); err != nil {
		t.Fatal(err)
	}
	entries := logs.FilterMessage("evaluated clause").All()
	if len(entries) != 1 {
		t.Fatalf("got %d clause log entries, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["matches"]; got != int64(1) {
		t.Errorf("matches = %v, want 1", got)
	}
}
