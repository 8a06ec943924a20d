package store

import (
	"testing"
	"time"
)

func rec(id int64, parent int64, sec int) *Transcript {
	t := &Transcript{ID: id, CreatedAt: time.Unix(int64(sec), 0)}
	if parent != 0 {
		p := parent
		t.VariantOfID = &p
	}
	return t
}

func TestBuildLineage_Branching(t *testing.T) {
	// 1 -> 2 -> 4
	//   -> 3
	records := []*Transcript{rec(4, 2, 4), rec(1, 0, 1), rec(3, 1, 3), rec(2, 1, 2)}

	roots := BuildLineage(records)
	if len(roots) != 1 || roots[0].Transcript.ID != 1 {
		t.Fatalf("roots = %v", roots)
	}
	kids := roots[0].Children
	if len(kids) != 2 || kids[0].Transcript.ID != 2 || kids[1].Transcript.ID != 3 {
		t.Errorf("children of 1 = %v", kids)
	}
	if len(kids[0].Children) != 1 || kids[0].Children[0].Transcript.ID != 4 {
		t.Errorf("children of 2 = %v", kids[0].Children)
	}

	var order []int64
	var depths []int
	Walk(roots, func(n *LineageNode, depth int) {
		order = append(order, n.Transcript.ID)
		depths = append(depths, depth)
	})
	wantOrder := []int64{1, 2, 4, 3}
	wantDepth := []int{0, 1, 2, 1}
	for i := range wantOrder {
		if order[i] != wantOrder[i] || depths[i] != wantDepth[i] {
			t.Errorf("walk[%d] = %d@%d, want %d@%d", i, order[i], depths[i], wantOrder[i], wantDepth[i])
		}
	}
}

func TestBuildLineage_DanglingParent(t *testing.T) {
	records := []*Transcript{rec(2, 1, 2), rec(3, 2, 3)}

	roots := BuildLineage(records)
	if len(roots) != 1 {
		t.Fatalf("roots = %d, want 1", len(roots))
	}
	if !roots[0].Dangling || roots[0].Transcript.ID != 2 {
		t.Errorf("root = %+v, want dangling 2", roots[0])
	}
	if len(roots[0].Children) != 1 {
		t.Error("child of dangling node should stay attached")
	}
}

func TestBuildLineage_Empty(t *testing.T) {
	if roots := BuildLineage(nil); len(roots) != 0 {
		t.Errorf("BuildLineage(nil) = %v", roots)
	}
}
