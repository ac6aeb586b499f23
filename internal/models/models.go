// Package models holds the data types shared by the scan engine, the
// storage layer, and the CLI commands.
package models

import (
	"time"

	"github.com/timfernix/duplicate-finder/internal/hash"
)

// ImageRecord describes one successfully decoded and hashed image. Records
// are immutable once created and belong to a single scan.
type ImageRecord struct {
	ID          int64             `json:"id,omitempty"`
	Path        string            `json:"path"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	FileSize    int64             `json:"file_size"`
	ModTime     time.Time         `json:"mod_time"`
	Format      string            `json:"format"`
	HasExif     bool              `json:"has_exif"`
	Fingerprint *hash.Fingerprint `json:"-"`
}

// Resolution returns the pixel count, the primary quality signal.
func (r *ImageRecord) Resolution() int64 {
	return int64(r.Width) * int64(r.Height)
}

// DuplicateGroup is a maximal set of records chained together by pairwise
// similarity. Members keep their discovery order; BestIndex points at the
// member recommended to keep.
type DuplicateGroup struct {
	ID        int            `json:"id"`
	Members   []*ImageRecord `json:"members"`
	BestIndex int            `json:"best_index"`
}

// Best returns the recommended keeper.
func (g *DuplicateGroup) Best() *ImageRecord {
	return g.Members[g.BestIndex]
}

// Duplicates returns every member except the recommended keeper, in
// discovery order.
func (g *DuplicateGroup) Duplicates() []*ImageRecord {
	dups := make([]*ImageRecord, 0, len(g.Members)-1)
	for i, m := range g.Members {
		if i != g.BestIndex {
			dups = append(dups, m)
		}
	}
	return dups
}

// FailureReason classifies why a file could not be hashed.
type FailureReason string

const (
	FailureUnreadable        FailureReason = "unreadable"         // I/O or permission error
	FailureCorrupt           FailureReason = "corrupt"            // decode failure, empty or truncated file
	FailureUnsupportedFormat FailureReason = "unsupported_format" // no decoder for this file
)

// FileFailure records a file that was skipped during a scan. Failures never
// abort a scan; they are collected and reported alongside the groups.
type FileFailure struct {
	Path   string        `json:"path"`
	Reason FailureReason `json:"reason"`
	Detail string        `json:"detail,omitempty"`
}

// Progress is a snapshot of scan progress delivered to the caller.
// Processed counts both hashed and failed files and is monotonic.
type Progress struct {
	Processed int
	Total     int
	Path      string
}

// Status is the terminal state of a scan.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Result is the terminal outcome of one scan: every hashed record, the
// duplicate groups resolved from them, and the per-file failures. A
// cancelled scan carries the groups computable from the records hashed
// before cancellation.
type Result struct {
	Status   Status            `json:"status"`
	Root     string            `json:"root"`
	Records  []*ImageRecord    `json:"records"`
	Groups   []*DuplicateGroup `json:"groups"`
	Failures []FileFailure     `json:"failures"`
	Elapsed  time.Duration     `json:"elapsed"`
}

// DuplicateCount returns the number of files that would be removed if every
// group kept only its best member.
func (r *Result) DuplicateCount() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Members) - 1
	}
	return n
}

// DeleteOutcome classifies the result of removing a single file. Outcomes
// are independent per path; one failure never aborts a batch.
type DeleteOutcome string

const (
	Deleted          DeleteOutcome = "deleted"
	InUse            DeleteOutcome = "in_use"
	PermissionDenied DeleteOutcome = "permission_denied"
	NotFound         DeleteOutcome = "not_found"
)
