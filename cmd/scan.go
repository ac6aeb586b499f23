package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/timfernix/duplicate-finder/internal/hash"
	"github.com/timfernix/duplicate-finder/internal/models"
	"github.com/timfernix/duplicate-finder/internal/scan"
	"github.com/timfernix/duplicate-finder/internal/storage"
)

var (
	scanAlgorithm  string
	scanHashSize   int
	scanRecursive  bool
	scanExtensions []string
)

var scanCmd = &cobra.Command{
	Use:   "scan <folder>",
	Short: "Scan a folder for duplicate images",
	Long: `Scan a folder for images and detect visual duplicates.

The scan will:
1. Find all supported images (jpg, png, gif, webp, etc.)
2. Compute a perceptual hash for each image across parallel workers
3. Group similar images by hash distance (transitive: chains of similar
   images form one group)
4. Store results in the database for list/export/clean

Press Ctrl+C to cancel; groups found so far are kept.

Example:
  duplicate-finder scan ./photos
  duplicate-finder scan ./photos --algorithm dhash --threshold 3
  duplicate-finder scan ./photos --no-recursive --ext jpg,png`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanAlgorithm, "algorithm", "a", string(hash.PHash),
		fmt.Sprintf("Hash algorithm %v", hash.Algorithms))
	scanCmd.Flags().IntVar(&scanHashSize, "hash-size", hash.DefaultHashSize,
		"Hash resolution (larger = more discriminating, slower)")
	scanCmd.Flags().BoolVar(&scanRecursive, "recursive", true, "Descend into subfolders")
	scanCmd.Flags().StringSliceVar(&scanExtensions, "ext", nil,
		"File extensions to scan (default: common raster formats)")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var bar *progressbar.ProgressBar
	session, err := scan.NewSession(scan.Config{
		Root:       args[0],
		Recursive:  scanRecursive,
		Algorithm:  hash.Algorithm(scanAlgorithm),
		HashSize:   scanHashSize,
		Threshold:  threshold,
		Extensions: scanExtensions,
		Workers:    workers,
		Progress: func(p models.Progress) {
			if bar == nil {
				bar = progressbar.NewOptions(p.Total,
					progressbar.OptionSetDescription("Hashing images"),
					progressbar.OptionShowCount(),
					progressbar.OptionSetPredictTime(true),
					progressbar.OptionFullWidth(),
				)
			}
			bar.Set(p.Processed)
		},
	})
	if err != nil {
		return err
	}

	fmt.Printf("Scanning: %s\n", args[0])
	fmt.Printf("Algorithm: %s/%d  Threshold: %d\n\n", scanAlgorithm, scanHashSize, threshold)

	result, err := session.Run(ctx)
	if err != nil {
		if errors.Is(err, scan.ErrInvalidRoot) {
			return fmt.Errorf("cannot scan: %w", err)
		}
		return fmt.Errorf("scan failed: %w", err)
	}
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}

	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	if err := store.SaveResult(result); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	printScanSummary(result)

	if len(result.Groups) > 0 {
		fmt.Println()
		fmt.Println("Run 'duplicate-finder list' to see duplicate groups")
		fmt.Println("Run 'duplicate-finder clean --dry-run' to preview deletions")
	}

	return nil
}

func printScanSummary(result *models.Result) {
	fmt.Println()
	if result.Status == models.StatusCancelled {
		fmt.Println("=== Scan Cancelled (partial results) ===")
	} else {
		fmt.Println("=== Scan Complete ===")
	}
	fmt.Printf("Images hashed:    %d\n", len(result.Records))
	fmt.Printf("Duplicate groups: %d\n", len(result.Groups))
	fmt.Printf("Duplicates found: %d\n", result.DuplicateCount())
	fmt.Printf("Elapsed:          %s\n", result.Elapsed.Round(10*time.Millisecond))

	if len(result.Failures) > 0 {
		counts := make(map[models.FailureReason]int)
		for _, f := range result.Failures {
			counts[f.Reason]++
		}
		fmt.Printf("Skipped files:    %d (%d unreadable, %d corrupt, %d unsupported)\n",
			len(result.Failures),
			counts[models.FailureUnreadable],
			counts[models.FailureCorrupt],
			counts[models.FailureUnsupportedFormat])
		fmt.Println("Run with --log-level debug for per-file details")
	}
}
