// Package group turns similarity components into duplicate groups and
// picks the best member of each.
package group

import "github.com/timfernix/duplicate-finder/internal/models"

// Resolve converts connected components into duplicate groups. Components
// with fewer than two members are not duplicates and are dropped. Group IDs
// are assigned in component order starting at 1, and members keep the
// discovery order they arrived in.
func Resolve(components [][]*models.ImageRecord) []*models.DuplicateGroup {
	var groups []*models.DuplicateGroup
	for _, members := range components {
		if len(members) < 2 {
			continue
		}
		groups = append(groups, &models.DuplicateGroup{
			ID:        len(groups) + 1,
			Members:   members,
			BestIndex: bestIndex(members),
		})
	}
	return groups
}

// bestIndex picks the member recommended to keep. The ordering is total and
// reproducible: highest resolution wins, then largest file, then the
// lexicographically smallest path.
func bestIndex(members []*models.ImageRecord) int {
	best := 0
	for i := 1; i < len(members); i++ {
		if better(members[i], members[best]) {
			best = i
		}
	}
	return best
}

func better(a, b *models.ImageRecord) bool {
	if a.Resolution() != b.Resolution() {
		return a.Resolution() > b.Resolution()
	}
	if a.FileSize != b.FileSize {
		return a.FileSize > b.FileSize
	}
	return a.Path < b.Path
}
