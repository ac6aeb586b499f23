package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timfernix/duplicate-finder/internal/models"
	"github.com/timfernix/duplicate-finder/internal/storage"
)

var (
	listVerbose  bool
	listSummary  bool
	listFailures bool
	listLimit    int
	listOffset   int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all duplicate groups",
	Long: `Display the duplicate groups found by the last scan.

Each group shows its images with resolution and size. The image recommended
to keep (highest resolution, then largest file) is marked with ✓, the
redundant copies with ✗.

Example:
  duplicate-finder list              # Show first 10 groups (default)
  duplicate-finder list -n 0         # Show all groups
  duplicate-finder list -s           # Summary view (compact)
  duplicate-finder list --offset 10  # Groups 11-20
  duplicate-finder list --failures   # Include skipped files`,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVarP(&listVerbose, "verbose", "v", false, "Show detailed image info")
	listCmd.Flags().BoolVarP(&listSummary, "summary", "s", false, "Show summary only (group counts and sizes)")
	listCmd.Flags().BoolVar(&listFailures, "failures", false, "Also list files skipped by the scan")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 10, "Limit number of groups to display (0 = all)")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "Skip first N groups (for pagination)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	groups, err := store.GetDuplicateGroups()
	if err != nil {
		return fmt.Errorf("failed to get groups: %w", err)
	}

	if len(groups) == 0 {
		fmt.Println("No duplicate groups found.")
		fmt.Println("Run 'duplicate-finder scan <folder>' to scan for duplicates.")
		return nil
	}

	totalDuplicates := 0
	var totalSavings int64
	for _, group := range groups {
		for _, img := range group.Duplicates() {
			totalDuplicates++
			totalSavings += img.FileSize
		}
	}

	fmt.Printf("Found %d duplicate groups (%d duplicates, %s reclaimable)\n\n",
		len(groups), totalDuplicates, formatSize(totalSavings))

	// Apply pagination
	totalGroups := len(groups)
	startIdx := listOffset
	if startIdx > len(groups) {
		startIdx = len(groups)
	}
	groups = groups[startIdx:]

	if listLimit > 0 && listLimit < len(groups) {
		groups = groups[:listLimit]
	}

	if len(groups) == 0 {
		fmt.Printf("No groups in range (offset %d exceeds total %d)\n", listOffset, totalGroups)
	} else if listSummary {
		printSummaryTable(groups)
	} else {
		for _, group := range groups {
			printGroup(group, listVerbose)
		}
	}

	endIdx := startIdx + len(groups)
	if len(groups) > 0 {
		fmt.Printf("Showing groups %d-%d of %d\n", startIdx+1, endIdx, totalGroups)
		if endIdx < totalGroups {
			limitArg := ""
			if listLimit > 0 {
				limitArg = fmt.Sprintf(" -n %d", listLimit)
			}
			fmt.Printf("Next page: duplicate-finder list%s --offset %d\n", limitArg, endIdx)
		}
	}

	if listFailures {
		failures, err := store.GetFailures()
		if err != nil {
			return fmt.Errorf("failed to get failures: %w", err)
		}
		printFailures(failures)
	}

	fmt.Println()
	fmt.Println("Run 'duplicate-finder clean --dry-run' to preview deletions")

	return nil
}

func printSummaryTable(groups []*models.DuplicateGroup) {
	fmt.Printf("%-8s  %-8s  %-12s  %s\n", "Group", "Images", "Reclaimable", "Keep (best quality)")
	fmt.Println(strings.Repeat("-", 70))

	for _, group := range groups {
		var reclaimable int64
		for _, img := range group.Duplicates() {
			reclaimable += img.FileSize
		}

		keepName := filepath.Base(group.Best().Path)
		if len(keepName) > 35 {
			keepName = keepName[:32] + "..."
		}

		fmt.Printf("#%-7d  %-8d  %-12s  %s\n",
			group.ID, len(group.Members), formatSize(reclaimable), keepName)
	}
	fmt.Println()
}

func printGroup(group *models.DuplicateGroup, verbose bool) {
	fmt.Printf("Group #%d (%d images)\n", group.ID, len(group.Members))
	fmt.Println(strings.Repeat("-", 60))

	for i, img := range group.Members {
		marker := "✗"
		if i == group.BestIndex {
			marker = "✓"
		}

		if verbose {
			fmt.Printf("  %s %s\n", marker, img.Path)
			fmt.Printf("      Resolution: %dx%d  Format: %s  Size: %s  Hash: %s\n",
				img.Width, img.Height, strings.ToUpper(img.Format),
				formatSize(img.FileSize), img.Fingerprint)
		} else {
			fmt.Printf("  %s %-40s  %dx%d  %-4s  %8s\n",
				marker, shortenPath(img.Path, 40), img.Width, img.Height,
				strings.ToUpper(img.Format), formatSize(img.FileSize))
		}
	}
	fmt.Println()
}

func printFailures(failures []models.FileFailure) {
	if len(failures) == 0 {
		fmt.Println("No files were skipped.")
		return
	}
	fmt.Printf("\nSkipped files (%d):\n", len(failures))
	fmt.Println(strings.Repeat("-", 60))
	for _, f := range failures {
		fmt.Printf("  %-18s  %s\n", f.Reason, f.Path)
	}
}

func shortenPath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}

	// Try to show filename and as much of the path as possible
	dir, file := filepath.Split(path)
	if len(file) >= maxLen-3 {
		return "..." + file[len(file)-(maxLen-3):]
	}

	remaining := maxLen - len(file) - 4 // 4 for ".../"
	if remaining > 0 && len(dir) > remaining {
		dir = dir[len(dir)-remaining:]
	}
	return "..." + dir + file
}

func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
