package testutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aidanlsb/sceneql/internal/scene"
)

// AssertNodes fails the test if got does not hold exactly want.
func AssertNodes(t *testing.T, got scene.NodeSet, want ...scene.NodeID) {
	t.Helper()
	wantSorted := scene.NewNodeSet(want...).Sorted()
	if diff := cmp.Diff(wantSorted, got.Sorted()); diff != "" {
		t.Errorf("node set mismatch (-want +got):\n%s", diff)
	}
}
