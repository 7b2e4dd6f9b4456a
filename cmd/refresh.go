package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/country-pulse/internal/source"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch upstream data and rebuild country snapshots",
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

		result, err := initPipeline(st).Run(ctx)
		if err != nil {
			if source.IsUnavailable(err) {
				return fmt.Errorf("external data source unavailable: %w", err)
			}
			return err
		}

		fmt.Printf("Refreshed %d countries\n", result.Total)
		if result.LastRefreshedAt != nil {
			fmt.Printf("Last refreshed: %s\n", result.LastRefreshedAt.Format("2006-01-02 15:04:05 MST"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
