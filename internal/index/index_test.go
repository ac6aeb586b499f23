package index

import (
	"errors"
	"fmt"
	"testing"

	"github.com/timfernix/duplicate-finder/internal/group"
	"github.com/timfernix/duplicate-finder/internal/hash"
	"github.com/timfernix/duplicate-finder/internal/models"
)

func record(t testing.TB, path string, words ...uint64) *models.ImageRecord {
	t.Helper()
	return &models.ImageRecord{Path: path, Fingerprint: fp(t, words...)}
}

func TestSimilarityIndex_TransitiveChaining(t *testing.T) {
	// a~b at distance 2 and b~c at distance 2; a and c sit at distance 4,
	// beyond the threshold, yet single-linkage joins all three.
	a := record(t, "a.jpg", 0x0)
	b := record(t, "b.jpg", 0x3)
	c := record(t, "c.jpg", 0xF)

	idx := NewSimilarityIndex(3)
	for _, rec := range []*models.ImageRecord{a, b, c} {
		if err := idx.Add(rec); err != nil {
			t.Fatalf("Add(%s) failed: %v", rec.Path, err)
		}
	}

	components := idx.Components()
	if len(components) != 1 {
		t.Fatalf("got %d components, want 1", len(components))
	}
	if len(components[0]) != 3 {
		t.Fatalf("component has %d members, want 3", len(components[0]))
	}
	for i, want := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		if components[0][i].Path != want {
			t.Errorf("member %d = %s, want %s (ingestion order)", i, components[0][i].Path, want)
		}
	}
}

func TestSimilarityIndex_ChainedGroupPicksHighestResolution(t *testing.T) {
	a := record(t, "a.jpg", 0x0)
	a.Width, a.Height = 800, 600
	b := record(t, "b.jpg", 0x3)
	b.Width, b.Height = 800, 600
	c := record(t, "c.jpg", 0xF)
	c.Width, c.Height = 1920, 1080

	idx := NewSimilarityIndex(3)
	for _, rec := range []*models.ImageRecord{a, b, c} {
		if err := idx.Add(rec); err != nil {
			t.Fatalf("Add(%s) failed: %v", rec.Path, err)
		}
	}

	groups := group.Resolve(idx.Components())
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	if got := groups[0].Best(); got.Path != "c.jpg" {
		t.Errorf("best = %s, want c.jpg (highest resolution)", got.Path)
	}
}

func TestSimilarityIndex_SeparateComponents(t *testing.T) {
	idx := NewSimilarityIndex(2)
	for _, rec := range []*models.ImageRecord{
		record(t, "a.jpg", 0x0),
		record(t, "b.jpg", 0x1),
		record(t, "far.jpg", 0xFFFF0000),
		record(t, "lone.jpg", 0xFF00FF00FF00FF00),
	} {
		if err := idx.Add(rec); err != nil {
			t.Fatalf("Add(%s) failed: %v", rec.Path, err)
		}
	}

	components := idx.Components()
	if len(components) != 3 {
		t.Fatalf("got %d components, want 3", len(components))
	}
	if len(components[0]) != 2 {
		t.Errorf("first component has %d members, want 2", len(components[0]))
	}
	if components[1][0].Path != "far.jpg" || components[2][0].Path != "lone.jpg" {
		t.Errorf("singleton order wrong: %s, %s", components[1][0].Path, components[2][0].Path)
	}
}

func TestSimilarityIndex_ZeroThresholdExactOnly(t *testing.T) {
	idx := NewSimilarityIndex(0)
	for _, rec := range []*models.ImageRecord{
		record(t, "a.jpg", 0x10),
		record(t, "copy.jpg", 0x10),
		record(t, "near.jpg", 0x11),
	} {
		if err := idx.Add(rec); err != nil {
			t.Fatalf("Add(%s) failed: %v", rec.Path, err)
		}
	}

	components := idx.Components()
	if len(components) != 2 {
		t.Fatalf("got %d components, want 2", len(components))
	}
	if len(components[0]) != 2 {
		t.Errorf("exact pair component has %d members, want 2", len(components[0]))
	}
}

// Raising the threshold may merge components but never split them.
func TestSimilarityIndex_ThresholdMonotonicity(t *testing.T) {
	words := []uint64{0x0, 0x3, 0xF, 0xFF, 0xFFF0, 0xF0F0F0F0}

	build := func(threshold int) [][]*models.ImageRecord {
		idx := NewSimilarityIndex(threshold)
		for i, w := range words {
			if err := idx.Add(record(t, fmt.Sprintf("%d.jpg", i), w)); err != nil {
				t.Fatalf("Add failed: %v", err)
			}
		}
		return idx.Components()
	}

	low := build(2)
	high := build(8)

	componentOf := func(components [][]*models.ImageRecord) map[string]int {
		m := make(map[string]int)
		for ci, comp := range components {
			for _, rec := range comp {
				m[rec.Path] = ci
			}
		}
		return m
	}

	lowOf, highOf := componentOf(low), componentOf(high)
	for i := range words {
		for j := i + 1; j < len(words); j++ {
			pi := fmt.Sprintf("%d.jpg", i)
			pj := fmt.Sprintf("%d.jpg", j)
			if lowOf[pi] == lowOf[pj] && highOf[pi] != highOf[pj] {
				t.Errorf("%s and %s grouped at threshold 2 but split at threshold 8", pi, pj)
			}
		}
	}
}

func TestSimilarityIndex_RejectsIncompatible(t *testing.T) {
	idx := NewSimilarityIndex(5)
	if err := idx.Add(record(t, "a.jpg", 0, 0, 0, 0)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	short, err := hash.NewFingerprint(hash.PHash, []uint64{0}, 64)
	if err != nil {
		t.Fatalf("NewFingerprint failed: %v", err)
	}
	addErr := idx.Add(&models.ImageRecord{Path: "short.jpg", Fingerprint: short})
	if !errors.Is(addErr, hash.ErrIncompatibleFingerprints) {
		t.Errorf("err = %v, want ErrIncompatibleFingerprints", addErr)
	}

	other, err := hash.NewFingerprint(hash.DHash, []uint64{0, 0, 0, 0}, 256)
	if err != nil {
		t.Fatalf("NewFingerprint failed: %v", err)
	}
	addErr = idx.Add(&models.ImageRecord{Path: "other.jpg", Fingerprint: other})
	if !errors.Is(addErr, hash.ErrIncompatibleFingerprints) {
		t.Errorf("err = %v, want ErrIncompatibleFingerprints", addErr)
	}

	if idx.Len() != 1 {
		t.Errorf("rejected records were ingested: Len = %d, want 1", idx.Len())
	}
}

func TestSimilarityIndex_RejectsMissingFingerprint(t *testing.T) {
	idx := NewSimilarityIndex(5)
	if err := idx.Add(&models.ImageRecord{Path: "no-fp.jpg"}); err == nil {
		t.Error("expected error for record without fingerprint")
	}
}

func TestUnionFind(t *testing.T) {
	uf := &unionFind{}
	uf.grow(6)

	uf.union(0, 1)
	uf.union(2, 3)
	uf.union(1, 2)

	if uf.find(0) != uf.find(3) {
		t.Error("0 and 3 should share a root after chained unions")
	}
	if uf.find(4) == uf.find(0) {
		t.Error("4 should stay in its own set")
	}
	if uf.find(4) == uf.find(5) {
		t.Error("4 and 5 should be separate sets")
	}

	// Union is idempotent.
	uf.union(0, 3)
	if uf.find(0) != uf.find(3) {
		t.Error("repeated union broke connectivity")
	}
}
