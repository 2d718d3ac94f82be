package cli

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchText  string
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a semantic query against the collection",
	Long: `Embed a query and print the closest products with percentage match scores.

Examples:
  semsearch search -q "lightweight running shoes"
  semsearch search -q "gift for a gardener" -k 5 --json`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchText, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	orch, err := newOrchestrator(cfg, nil)
	if err != nil {
		return err
	}

	limit := cfg.Search.DefaultLimit
	if cmd.Flags().Changed("limit") {
		limit = searchLimit
	}

	results, err := orch.SearchDocuments(cmd.Context(), searchText, limit)
	if err != nil {
		return err
	}

	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results for: %q\n\n", len(results), searchText)
	for i, r := range results {
		fmt.Printf("%d. [%d] %3d%%  %s\n", i+1, r.ID, int(math.Round(r.Score*100)), truncate(r.Text, 100))
		if len(r.Metadata) > 0 {
			fmt.Printf("   %s\n", formatMetadata(r.Metadata))
		}
	}
	return nil
}

func formatMetadata(md map[string]any) string {
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, md[k])
	}
	return strings.Join(parts, " ")
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
