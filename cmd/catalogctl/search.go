package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"catalog-assistant/internal/service"
)

func newSearchCmd() *cobra.Command {
	var (
		limit   int
		asJSON  bool
		explain bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a customer query against the catalog",
		Long:  "Classifies the query and prints the response the API would return.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			resp, err := a.Queries.Search(ctx, service.SearchRequest{
				Query: strings.Join(args, " "),
				Limit: limit,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}

			fmt.Fprintln(out, resp.Message)
			if explain {
				fmt.Fprintf(out, "\ntier=%s intent=%s total=%d generation=%d\n",
					resp.Meta.Tier, resp.Meta.Intent, resp.Meta.TotalFound, resp.Meta.Generation)
				for i, item := range resp.Items {
					fmt.Fprintf(out, "%2d. %-8s %6.3f %s %s\n", i+1, item.Source, item.Score, item.Key(), strings.Join(item.MatchReasons, "; "))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of products (0 uses SEARCH_LIMIT)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full response as JSON")
	cmd.Flags().BoolVar(&explain, "explain", false, "print tier, scores and match reasons")
	return cmd
}
