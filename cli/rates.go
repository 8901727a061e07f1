package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func NewRatesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rates",
		Short: "Resolve exchange rates and show which tier served them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := rootOpts.engine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			snap, err := eng.Chain.Resolve(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}

			codes := make([]string, 0, len(snap.Rates))
			for code := range snap.Rates {
				codes = append(codes, code)
			}
			sort.Strings(codes)

			fmt.Fprintf(out, "tier: %s  fetched: %s\n", snap.Tier, snap.FetchedAt.Format("2006-01-02 15:04"))
			for _, code := range codes {
				fmt.Fprintf(out, "  1 %s = %s %s\n", code, snap.Rates[code].String(), eng.Config.HomeCurrency)
			}
			return nil
		},
	}
}
