package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/timfernix/duplicate-finder/internal/logger"
)

var (
	dbPath    string
	logLevel  string
	threshold int
	workers   int
)

var rootCmd = &cobra.Command{
	Use:   "duplicate-finder",
	Short: "Find and manage visually duplicate images",
	Long: `duplicate-finder locates visually duplicate or near-duplicate images
in a directory tree and helps remove the redundant copies safely.

It compares images by perceptual hash (phash by default), so duplicates are
found even after resizing, recompression or format conversion. Similar images
are grouped together and the best copy of each group (highest resolution,
then largest file) is recommended to keep.

Example usage:
  duplicate-finder scan ./photos        # Scan a folder for duplicates
  duplicate-finder list                 # List all duplicate groups
  duplicate-finder export report.csv    # Export groups as CSV
  duplicate-finder clean --dry-run      # Preview what would be deleted
  duplicate-finder clean                # Move lower quality duplicates to trash`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logLevel)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	homeDir, _ := os.UserHomeDir()
	defaultDB := filepath.Join(homeDir, ".duplicate-finder", "images.db")

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "Path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().IntVar(&threshold, "threshold", 5, "Hamming distance threshold (lower = stricter)")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "Number of parallel workers (0 = number of CPUs)")
}
