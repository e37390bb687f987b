package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <message>",
		Short: "Print the intent of a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			in, err := a.Queries.Classify(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "intent: %s\nconfidence: %.2f\n", in.Label, in.Confidence)
			if in.Entity != "" {
				fmt.Fprintf(out, "entity: %s\n", in.Entity)
			}
			if in.Reasoning != "" {
				fmt.Fprintf(out, "reasoning: %s\n", in.Reasoning)
			}
			return nil
		},
	}
}
