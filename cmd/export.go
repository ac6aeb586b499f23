package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/timfernix/duplicate-finder/internal/storage"
)

var exportCmd = &cobra.Command{
	Use:   "export <file.csv>",
	Short: "Export duplicate groups as a CSV report",
	Long: `Write the duplicate groups of the last scan to a CSV file.

Columns: Group, Best, Filename, Resolution, Size_MB, Path. Best is 1 for
the image recommended to keep in each group.

Example:
  duplicate-finder export report.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
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
		return fmt.Errorf("nothing to export; run 'duplicate-finder scan' first")
	}

	out, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", args[0], err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write([]string{"Group", "Best", "Filename", "Resolution", "Size_MB", "Path"}); err != nil {
		return err
	}
	rows := 0
	for _, group := range groups {
		for i, img := range group.Members {
			best := "0"
			if i == group.BestIndex {
				best = "1"
			}
			err := w.Write([]string{
				strconv.Itoa(group.ID),
				best,
				filepath.Base(img.Path),
				fmt.Sprintf("%dx%d", img.Width, img.Height),
				fmt.Sprintf("%.2f", float64(img.FileSize)/(1024*1024)),
				img.Path,
			})
			if err != nil {
				return err
			}
			rows++
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}

	fmt.Printf("Exported %d rows (%d groups) to %s\n", rows, len(groups), args[0])
	return nil
}
