package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"semsearch/internal/adapter/store"
)

var checkpointAll bool

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect or reset the import journal",
}

var checkpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show recorded import progress",
	Args:  cobra.NoArgs,
	RunE:  runCheckpointList,
}

var checkpointResetCmd = &cobra.Command{
	Use:   "reset [file]",
	Short: "Forget import progress for a file, or --all for the collection",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheckpointReset,
}

func init() {
	rootCmd.AddCommand(checkpointCmd)
	checkpointCmd.AddCommand(checkpointListCmd, checkpointResetCmd)
	checkpointResetCmd.Flags().BoolVar(&checkpointAll, "all", false, "reset every checkpoint of the configured collection")
}

func openJournal() (*store.CheckpointStore, error) {
	path := GetConfig().CheckpointPath(GetRootDir())
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no checkpoint journal at %s. Run 'semsearch index' first", path)
	}
	return store.NewCheckpointStore(path)
}

func runCheckpointList(cmd *cobra.Command, args []string) error {
	journal, err := openJournal()
	if err != nil {
		return err
	}
	defer journal.Close()

	cps, err := journal.List()
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}
	if len(cps) == 0 {
		fmt.Println("No checkpoints.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COLLECTION\tSOURCE\tLAST ID\tDOCUMENTS\tBATCHES\tSTATUS\tUPDATED")
	for _, cp := range cps {
		status := "partial"
		if cp.Complete {
			status = "complete"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			cp.Collection, cp.Source, cp.LastID, cp.Documents, cp.Batches, status,
			cp.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func runCheckpointReset(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !checkpointAll {
		return fmt.Errorf("specify a file or --all")
	}

	journal, err := openJournal()
	if err != nil {
		return err
	}
	defer journal.Close()

	source := ""
	if len(args) > 0 {
		source, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	n, err := journal.Reset(GetConfig().Qdrant.Collection, source)
	if err != nil {
		return fmt.Errorf("failed to reset checkpoints: %w", err)
	}
	fmt.Printf("Removed %d checkpoint(s)\n", n)
	return nil
}
