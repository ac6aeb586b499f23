// Package index accumulates image fingerprints as they stream in from a
// scan and resolves them into connected components of similar images.
package index

import (
	"fmt"

	"github.com/timfernix/duplicate-finder/internal/hash"
	"github.com/timfernix/duplicate-finder/internal/models"
)

// SimilarityIndex ingests ImageRecords one at a time and groups them under
// the relation "Hamming distance <= threshold". Grouping is transitive:
// if A~B and B~C, then A, B and C land in one component even when the
// distance between A and C exceeds the threshold. This single-linkage
// policy is deliberate; strict mutual similarity would split chains of
// progressively edited copies.
//
// The index is not safe for concurrent mutation. One scan owns one index;
// the orchestrator serializes ingestion.
type SimilarityIndex struct {
	threshold int
	records   []*models.ImageRecord
	tree      bkTree
	uf        *unionFind
}

// NewSimilarityIndex creates an empty index. Threshold is the maximum
// Hamming distance at which two fingerprints count as similar.
func NewSimilarityIndex(threshold int) *SimilarityIndex {
	if threshold < 0 {
		threshold = 0
	}
	return &SimilarityIndex{
		threshold: threshold,
		uf:        &unionFind{},
	}
}

// Threshold returns the configured similarity threshold.
func (x *SimilarityIndex) Threshold() int { return x.threshold }

// Len returns the number of ingested records.
func (x *SimilarityIndex) Len() int { return len(x.records) }

// Add ingests a record, linking it to every already-ingested record within
// the threshold. Records with fingerprints from a different algorithm or
// hash size than the first record are rejected with
// hash.ErrIncompatibleFingerprints.
func (x *SimilarityIndex) Add(rec *models.ImageRecord) error {
	if rec.Fingerprint == nil {
		return fmt.Errorf("record %s has no fingerprint", rec.Path)
	}
	if len(x.records) > 0 {
		first := x.records[0].Fingerprint
		if rec.Fingerprint.Algorithm() != first.Algorithm() || rec.Fingerprint.Bits() != first.Bits() {
			return fmt.Errorf("record %s: %w: %s/%d bits vs %s/%d bits", rec.Path,
				hash.ErrIncompatibleFingerprints,
				rec.Fingerprint.Algorithm(), rec.Fingerprint.Bits(),
				first.Algorithm(), first.Bits())
		}
	}

	i := len(x.records)
	x.records = append(x.records, rec)
	x.uf.grow(i + 1)

	for _, j := range x.tree.findWithinDistance(rec.Fingerprint, x.threshold) {
		x.uf.union(i, j)
	}
	x.tree.insert(rec.Fingerprint, i)
	return nil
}

// Components returns the connected components of the similarity relation.
// Members within a component keep ingestion order, and components are
// ordered by their earliest member, so output is deterministic for a given
// ingestion sequence. Singleton components are included; the group resolver
// drops them.
func (x *SimilarityIndex) Components() [][]*models.ImageRecord {
	byRoot := make(map[int]int)
	var components [][]*models.ImageRecord
	for i, rec := range x.records {
		root := x.uf.find(i)
		ci, seen := byRoot[root]
		if !seen {
			ci = len(components)
			byRoot[root] = ci
			components = append(components, nil)
		}
		components[ci] = append(components[ci], rec)
	}
	return components
}

// unionFind tracks record connectivity with path compression and union by
// rank. It grows as records are ingested.
type unionFind struct {
	parent []int
	rank   []int
}

func (uf *unionFind) grow(n int) {
	for len(uf.parent) < n {
		uf.parent = append(uf.parent, len(uf.parent))
		uf.rank = append(uf.rank, 0)
	}
}

func (uf *unionFind) find(x int) int {
	if uf.parent[x] != x {
		uf.parent[x] = uf.find(uf.parent[x]) // Path compression
	}
	return uf.parent[x]
}

func (uf *unionFind) union(x, y int) {
	px, py := uf.find(x), uf.find(y)
	if px == py {
		return
	}
	// Union by rank
	if uf.rank[px] < uf.rank[py] {
		px, py = py, px
	}
	uf.parent[py] = px
	if uf.rank[px] == uf.rank[py] {
		uf.rank[px]++
	}
}
