package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusTopN int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored snapshot counts and top GDP estimates",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		count, err := st.Count(ctx)
		if err != nil {
			return err
		}
		last, err := st.LastRefreshedAt(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Countries stored: %d\n", count)
		if last != nil {
			fmt.Printf("Last refreshed:   %s\n", last.Format("2006-01-02 15:04:05 MST"))
		} else {
			fmt.Println("Last refreshed:   never")
		}

		top, err := st.TopByGDP(ctx, statusTopN)
		if err != nil {
			return err
		}
		if len(top) == 0 {
			return nil
		}

		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "RANK\tCOUNTRY\tESTIMATED GDP")
		for i, entry := range top {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%.2f\n", i+1, entry.Name, entry.EstimatedGDP)
		}
		_ = w.Flush()

		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusTopN, "top", 5, "number of top GDP entries to show")
	rootCmd.AddCommand(statusCmd)
}
