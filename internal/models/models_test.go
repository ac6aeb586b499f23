package models

import "testing"

func TestResolution(t *testing.T) {
	r := &ImageRecord{Width: 4000, Height: 3000}
	if got := r.Resolution(); got != 12_000_000 {
		t.Errorf("Resolution = %d, want 12000000", got)
	}
}

func TestDuplicateGroup_BestAndDuplicates(t *testing.T) {
	a := &ImageRecord{Path: "a.jpg"}
	b := &ImageRecord{Path: "b.jpg"}
	c := &ImageRecord{Path: "c.jpg"}
	g := &DuplicateGroup{ID: 1, Members: []*ImageRecord{a, b, c}, BestIndex: 1}

	if g.Best() != b {
		t.Errorf("Best = %s, want b.jpg", g.Best().Path)
	}

	dups := g.Duplicates()
	if len(dups) != 2 {
		t.Fatalf("got %d duplicates, want 2", len(dups))
	}
	if dups[0] != a || dups[1] != c {
		t.Errorf("duplicates = %s, %s; want a.jpg, c.jpg", dups[0].Path, dups[1].Path)
	}
}

func TestResult_DuplicateCount(t *testing.T) {
	r := &Result{Groups: []*DuplicateGroup{
		{Members: []*ImageRecord{{}, {}}},
		{Members: []*ImageRecord{{}, {}, {}}},
	}}
	if got := r.DuplicateCount(); got != 3 {
		t.Errorf("DuplicateCount = %d, want 3", got)
	}
}
