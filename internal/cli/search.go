package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/bostadsdata/internal/core"
	"github.com/markdave123-py/bostadsdata/internal/services"
)

func newSearchCmd(e *env) *cobra.Command {
	var (
		req    services.SearchRequest
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search stored records by semantic similarity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, _, err := req.Normalize(); err != nil {
				return err
			}
			if err := e.cfg.Validate(); err != nil {
				return &core.ValidationError{Msg: err.Error()}
			}

			rt, err := e.factory(cmd.Context(), e.cfg)
			if err != nil {
				return failed(err)
			}
			defer rt.Close()

			hits, err := rt.Search(cmd.Context(), req)
			if err != nil {
				return failed(fmt.Errorf("search failed: %w", err))
			}
			if asJSON {
				data, err := json.MarshalIndent(hits, "", "  ")
				if err != nil {
					return failed(err)
				}
				cmd.Println(string(data))
				return nil
			}
			printHits(cmd, hits)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Dataset, "dataset", "", "dataset to search")
	cmd.Flags().StringVar(&req.Query, "query", "", "query text")
	cmd.Flags().IntVarP(&req.Limit, "limit", "n", services.DefaultSearchLimit, "maximum number of results")
	cmd.Flags().Float64Var(&req.Threshold, "threshold", 0, "minimum cosine similarity")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	return cmd
}

func printHits(cmd *cobra.Command, hits []core.SearchHit) {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return
	}
	for i, h := range hits {
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, strings.Join(h.NaturalKey, "/"), h.Similarity)
		cmd.Printf("      %s\n", snippet(h.Text, 160))
	}
}

func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
