package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List vector store collections",
	Args:  cobra.NoArgs,
	RunE:  runCollectionsList,
}

var collectionsEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the configured collection if it does not exist",
	Args:  cobra.NoArgs,
	RunE:  runCollectionsEnsure,
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
	collectionsCmd.AddCommand(collectionsEnsureCmd)
}

func runCollectionsList(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	vs, err := newVectorStore(cfg)
	if err != nil {
		return err
	}

	names, err := vs.ListCollections(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	if len(names) == 0 {
		fmt.Println("No collections.")
		return nil
	}
	for _, name := range names {
		marker := " "
		if name == cfg.Qdrant.Collection {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, name)
	}
	return nil
}

func runCollectionsEnsure(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	orch, err := newOrchestrator(cfg, nil)
	if err != nil {
		return err
	}
	if err := orch.EnsureCollection(cmd.Context()); err != nil {
		return err
	}
	fmt.Printf("Collection %q ready (dimension %d, cosine)\n", orch.Collection(), orch.Dimension())
	return nil
}
