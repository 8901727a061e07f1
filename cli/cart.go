package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"price-scout/errs"
	"price-scout/session"
	"price-scout/storage"
	"price-scout/storefront"
	"price-scout/utils"
)

type CartOptions struct {
	*RootOptions
	Timeout time.Duration
	HTML    bool
	CSV     bool
}

func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CartOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cart <cart.yaml>",
		Short: "Compare a whole cart and print the basket summary",
		Long: `Load a cart from a YAML file, run it through a sync session and print the
basket views once the comparison settles.

The file lists items under "items", each with product_id, name, price and
quantity.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCart(cmd, opts, args[0])
		},
	}

	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 2*time.Minute, "how long to wait for the comparison")
	cmd.Flags().BoolVar(&opts.HTML, "html", false, "print the rendered fragments instead of tables")
	cmd.Flags().BoolVar(&opts.CSV, "csv", false, "also export the comparison to the configured CSV path")

	return cmd
}

type cartFile struct {
	Items []storefront.DocItem `yaml:"items"`
}

func loadCartFile(path string) ([]storefront.DocItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cart file: %w", err)
	}
	var f cartFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errs.NewConfig("decode cart file "+path, err)
	}
	return f.Items, nil
}

func runCart(cmd *cobra.Command, opts *CartOptions, path string) error {
	items, err := loadCartFile(path)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	eng, err := opts.engine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	doc := storefront.NewDocument(items)
	sess, err := session.NewSession(ctx, session.Deps{
		Extractor:   doc,
		Sink:        doc,
		Observer:    doc,
		Preferences: eng.Preferences,
		Rates:       eng.Rates,
		Comparer:    eng.Comparer,
		Renderer:    eng.Renderer,
	}, session.WithConfig(eng.Config))
	if err != nil {
		return err
	}
	defer sess.Dispose()

	go func() {
		if err := sess.Run(ctx); err != nil && ctx.Err() == nil {
			utils.Log().Error().Err(err).Msg("cart session stopped")
		}
	}()

	waitCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	st, err := sess.WaitFor(waitCtx, session.Settled)
	if err != nil {
		return fmt.Errorf("cart comparison did not settle: %w", err)
	}
	if st.Inert {
		utils.Warn("No foreign markets selected, nothing to compare")
		return nil
	}
	if st.State == session.StateFailed.String() {
		return fmt.Errorf("cart comparison failed: %s", st.LastError)
	}

	out := cmd.OutOrStdout()
	if opts.HTML {
		for _, n := range doc.Nodes() {
			fmt.Fprintf(out, "<!-- %s after %s -->\n%s\n", n.Key, n.Anchor, n.HTML)
		}
		return nil
	}

	lineItems, summary := sess.Items()
	markets, err := eng.Preferences.Markets(ctx)
	if err != nil {
		return err
	}
	for _, msg := range doc.Errors() {
		utils.Warn("%s", msg)
	}
	if err := writeComparison(out, opts.Format, lineItems, summary, markets, eng.Config.HomeCurrency); err != nil {
		return err
	}
	if opts.CSV {
		return storage.NewCSVWriter(eng.Config.CSVPath).Write(lineItems, summary)
	}
	return nil
}
