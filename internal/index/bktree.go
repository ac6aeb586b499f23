package index

import "github.com/timfernix/duplicate-finder/internal/hash"

// bkTree indexes fingerprints in a Burkhard-Keller tree so that all entries
// within a Hamming distance threshold can be found without comparing
// against every stored fingerprint. Hamming distance is a metric, so the
// triangle inequality prunes whole subtrees during search.
type bkTree struct {
	root *bkNode
}

type bkNode struct {
	fp       *hash.Fingerprint
	index    int
	children map[int]*bkNode // distance -> child node
}

// insert adds a fingerprint with its record index to the tree. All
// fingerprints in one tree are mutually comparable; the index enforces that
// before inserting.
func (t *bkTree) insert(fp *hash.Fingerprint, index int) {
	node := &bkNode{
		fp:       fp,
		index:    index,
		children: make(map[int]*bkNode),
	}

	if t.root == nil {
		t.root = node
		return
	}

	current := t.root
	for {
		dist := mustDistance(fp, current.fp)
		if child, exists := current.children[dist]; exists {
			current = child
		} else {
			current.children[dist] = node
			return
		}
	}
}

// findWithinDistance returns the indices of all entries within the given
// distance of the query fingerprint.
func (t *bkTree) findWithinDistance(fp *hash.Fingerprint, threshold int) []int {
	if t.root == nil {
		return nil
	}

	var results []int
	t.searchNode(t.root, fp, threshold, &results)
	return results
}

func (t *bkTree) searchNode(node *bkNode, fp *hash.Fingerprint, threshold int, results *[]int) {
	dist := mustDistance(fp, node.fp)

	if dist <= threshold {
		*results = append(*results, node.index)
	}

	// Triangle inequality: only children with edge distance in
	// [dist - threshold, dist + threshold] can hold matches.
	minDist := dist - threshold
	if minDist < 0 {
		minDist = 0
	}
	maxDist := dist + threshold

	for childDist, child := range node.children {
		if childDist >= minDist && childDist <= maxDist {
			t.searchNode(child, fp, threshold, results)
		}
	}
}

func (t *bkTree) size() int {
	if t.root == nil {
		return 0
	}
	return countNodes(t.root)
}

func countNodes(node *bkNode) int {
	count := 1
	for _, child := range node.children {
		count += countNodes(child)
	}
	return count
}

// mustDistance compares two fingerprints already admitted to the index,
// where compatibility has been checked.
func mustDistance(a, b *hash.Fingerprint) int {
	d, err := a.Distance(b)
	if err != nil {
		panic(err)
	}
	return d
}
