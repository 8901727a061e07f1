package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"price-scout/config"
	"price-scout/utils"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile string
	Verbose bool
	Format  string // "text" | "json"

	// EngineFactory overrides how commands build the engine (for testing).
	EngineFactory func(ctx context.Context, cfg *config.Config) (*Engine, error)

	cfg *config.Config
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price-scout",
		Short: "Cross-border IKEA price comparison",
		Long:  "Compares a product or a whole cart against the same items in other IKEA countries, in the home currency.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			cfg, err := config.Load(opts.EnvFile)
			if err != nil {
				return err
			}
			opts.cfg = cfg

			utils.InitLogger(cfg.Environment)
			if !opts.Verbose {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before the environment")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewCompareCommand(opts))
	cmd.AddCommand(NewCartCommand(opts))
	cmd.AddCommand(NewRatesCommand(opts))
	cmd.AddCommand(NewMarketsCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

func (o *RootOptions) engine(ctx context.Context) (*Engine, error) {
	if o.EngineFactory != nil {
		return o.EngineFactory(ctx, o.cfg)
	}
	return NewEngine(ctx, o.cfg)
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
