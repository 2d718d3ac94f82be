package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"semsearch/config"
	"semsearch/internal/adapter/catalog"
	"semsearch/internal/adapter/fs"
	"semsearch/internal/adapter/store"
	"semsearch/internal/domain"
	"semsearch/internal/usecase"
)

var (
	indexResume    bool
	indexBatchSize int
	indexStartID   uint64
	indexIncludes  []string
	indexExcludes  []string
	indexNoBar     bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Import CSV catalogs into the collection",
	Long: `Import product catalogs into the configured Qdrant collection.

path may be a single .csv file or a directory, which is searched for CSV
files (see --include). Documents are numbered consecutively across files
starting at --start-id. Progress is journaled per file so a failed import
can be continued with --resume.

Examples:
  semsearch index products.csv
  semsearch index ./catalog --batch-size 100
  semsearch index ./catalog --resume`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexResume, "resume", false, "skip documents already committed by a previous run")
	indexCmd.Flags().IntVar(&indexBatchSize, "batch-size", 0, "documents per upsert (default from config)")
	indexCmd.Flags().Uint64Var(&indexStartID, "start-id", 1, "id of the first document")
	indexCmd.Flags().StringSliceVar(&indexIncludes, "include", nil, "glob patterns to include (default **/*.csv)")
	indexCmd.Flags().StringSliceVar(&indexExcludes, "exclude", nil, "glob patterns to exclude")
	indexCmd.Flags().BoolVar(&indexNoBar, "no-progress", false, "disable the progress bar")
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	files, err := catalogFiles(path)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Printf("No CSV files found under %s\n", path)
		return nil
	}

	cfg := GetConfig()
	orch, err := newOrchestrator(cfg, nil)
	if err != nil {
		return err
	}

	cpPath := cfg.CheckpointPath(GetRootDir())
	if err := config.EnsureDir(cpPath); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	journal, err := store.NewCheckpointStore(cpPath)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint journal: %w", err)
	}
	defer journal.Close()

	ctx := cmd.Context()
	nextID := indexStartID
	var total, skipped int

	for _, file := range files {
		docs, err := readCatalog(file, nextID)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Printf("%s: no products\n", file)
			continue
		}
		nextID = docs[len(docs)-1].ID + 1

		cp := store.Checkpoint{Collection: orch.Collection(), Source: file}
		if indexResume {
			prev, found, err := journal.Get(orch.Collection(), file)
			if err != nil {
				return fmt.Errorf("failed to read checkpoint: %w", err)
			}
			if found {
				cp = prev
				if prev.Complete {
					fmt.Printf("%s: already indexed, skipping\n", file)
					skipped += len(docs)
					continue
				}
				pending := pendingDocuments(docs, prev.LastID)
				skipped += len(docs) - len(pending)
				docs = pending
			}
		}

		committed, err := indexFile(ctx, orch, journal, cp, docs)
		total += committed
		if err != nil {
			var be *usecase.BatchError
			if errors.As(err, &be) {
				fmt.Fprintf(os.Stderr, "\n%s: batch %d (ids %d-%d) failed after %d documents committed\n",
					file, be.Batch, be.FirstID, be.LastID, be.Committed)
				fmt.Fprintln(os.Stderr, "Re-run with --resume to continue from the last committed batch.")
			}
			return fmt.Errorf("indexing %s failed: %w", file, err)
		}
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Files:      %d\n", len(files))
	fmt.Printf("  Documents:  %d\n", total)
	if skipped > 0 {
		fmt.Printf("  Skipped:    %d (already committed)\n", skipped)
	}
	fmt.Printf("  Collection: %s\n", orch.Collection())
	return nil
}

// catalogFiles resolves path to the absolute paths of the CSV files to
// import. Checkpoints are keyed by these paths.
func catalogFiles(path string) ([]string, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		if !fs.IsCSV(path) {
			return nil, fmt.Errorf("not a CSV file: %s", path)
		}
		return []string{path}, nil
	}

	found, err := fs.NewWalker(indexIncludes, indexExcludes).Walk(path)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}
	files := make([]string, len(found))
	for i, f := range found {
		files[i] = f.Path
	}
	return files, nil
}

func readCatalog(path string, firstID uint64) ([]domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	docs, err := catalog.Parse(f, firstID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return docs, nil
}

// pendingDocuments drops documents at or below lastID. Ids are assigned in
// file order, so the result is a suffix of docs.
func pendingDocuments(docs []domain.Document, lastID uint64) []domain.Document {
	for i, d := range docs {
		if d.ID > lastID {
			return docs[i:]
		}
	}
	return nil
}

type batchIndexer interface {
	BatchIndexDocumentsFunc(ctx context.Context, docs []domain.Document, batchSize int, progress usecase.ProgressFunc) error
}

type checkpointRecorder interface {
	Record(cp store.Checkpoint) error
}

// indexFile imports docs and journals every committed batch into cp.
func indexFile(ctx context.Context, idx batchIndexer, journal checkpointRecorder, cp store.Checkpoint, docs []domain.Document) (int, error) {
	var bar *progressbar.ProgressBar
	if !indexNoBar && len(docs) > 0 {
		bar = newProgressBar(len(docs), filepath.Base(cp.Source))
	}

	start := time.Now()
	base := cp.Documents
	committed := 0
	var journalErr error
	progress := func(p usecase.BatchProgress) {
		committed = p.Committed
		cp.LastID = p.LastID
		cp.Batches++
		cp.Documents = base + p.Committed
		cp.UpdatedAt = time.Time{}
		if err := journal.Record(cp); err != nil && journalErr == nil {
			journalErr = err
		}
		if bar != nil {
			bar.Set(p.Committed)
			if rate := float64(p.Committed) / time.Since(start).Seconds(); rate > 0 {
				eta := time.Duration(float64(p.Total-p.Committed)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]%s[reset] ETA: %s", filepath.Base(cp.Source), formatDuration(eta)))
			}
		}
	}

	err := idx.BatchIndexDocumentsFunc(ctx, docs, indexBatchSize, progress)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return committed, err
	}

	cp.Complete = true
	cp.UpdatedAt = time.Time{}
	if err := journal.Record(cp); err != nil {
		return committed, fmt.Errorf("failed to record checkpoint: %w", err)
	}
	if journalErr != nil {
		log.Error(journalErr, "checkpoint journal write failed", "source", cp.Source)
	}
	return committed, nil
}

func newProgressBar(total int, label string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s[reset]", label)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
