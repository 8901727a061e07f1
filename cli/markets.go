package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"price-scout/config"
	"price-scout/errs"
	"price-scout/utils"
)

func NewMarketsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "markets",
		Short: "List the selected comparison markets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := rootOpts.engine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			markets, err := eng.Preferences.Markets(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return json.NewEncoder(out).Encode(markets)
			}
			if len(markets) == 0 {
				fmt.Fprintln(out, "no markets selected")
				return nil
			}
			for _, m := range markets {
				fmt.Fprintf(out, "%-4s %-20s %s  %s\n", m.ID, m.Name, m.CurrencyCode, m.ProductURL("{productId}"))
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Copy the markets file into the Postgres preference store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := rootOpts.engine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()
			if eng.Store == nil {
				return errs.NewConfig("markets sync needs "+config.EnvPrefix+"_PREFERENCES=postgres", nil)
			}

			selected, err := config.LoadMarkets(eng.Config.MarketsFile)
			if err != nil {
				return err
			}
			if err := eng.Store.SavePreferences(ctx, selected); err != nil {
				return err
			}
			utils.Success("Saved %d market preferences to PostgreSQL", len(selected))
			return nil
		},
	})

	return cmd
}
