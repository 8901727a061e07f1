package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"price-scout/errs"
	"price-scout/models"
	"price-scout/scraper/market"
	"price-scout/services"
	"price-scout/storage"
	"price-scout/utils"
)

type CompareOptions struct {
	*RootOptions
	Name     string
	Price    string
	Quantity int
	CSV      bool
}

var errNoQuotes = errors.New("no market returned a price")

func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompareOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compare <product-id>",
		Short: "Compare one product across the selected markets",
		Long: `Fetch one product from every selected market, convert the prices to the
home currency and print the comparison.

Example:
  price-scout compare 40477340 --price "1 299" --name "KALLAX" --qty 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "product display name")
	cmd.Flags().StringVar(&opts.Price, "price", "", "home unit price as shown in the storefront (required)")
	cmd.Flags().IntVar(&opts.Quantity, "qty", 1, "quantity")
	cmd.Flags().BoolVar(&opts.CSV, "csv", false, "also export the comparison to the configured CSV path")
	_ = cmd.MarkFlagRequired("price")

	return cmd
}

func runCompare(cmd *cobra.Command, opts *CompareOptions, productID string) error {
	ctx := cmd.Context()
	if opts.Quantity < 0 {
		return errs.NewConfig("quantity must not be negative", nil)
	}
	price, err := market.ParsePrice(opts.Price)
	if err != nil {
		return errs.NewConfig("invalid --price", err)
	}

	eng, err := opts.engine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()
	cfg := eng.Config

	markets, err := eng.Preferences.Markets(ctx)
	if err != nil {
		return err
	}
	if len(markets) == 0 {
		utils.Warn("No foreign markets selected in %s, nothing to compare", cfg.MarketsFile)
		return nil
	}

	r, err := eng.Rates.Rates(ctx)
	if err != nil {
		return err
	}
	norm := services.NewNormalizer(r)
	fields := models.ItemFields{ProductID: productID, DisplayName: opts.Name, HomeUnitPrice: price, Quantity: opts.Quantity}

	var item models.LineItem
	err = utils.Retry(ctx, cfg.MaxRetries, utils.Fixed(cfg.RetryWait), func() error {
		item = eng.Comparer.BuildItem(ctx, fields, markets, norm)
		if !anyAvailable(item) {
			return errs.NewFetch("", productID, errNoQuotes)
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		utils.Warn("Product %s is not available in any selected market", productID)
	}

	items := []models.LineItem{item}
	summary := services.Aggregate(items)
	if err := writeComparison(cmd.OutOrStdout(), opts.Format, items, summary, markets, cfg.HomeCurrency); err != nil {
		return err
	}

	if opts.CSV {
		return storage.NewCSVWriter(cfg.CSVPath).Write(items, summary)
	}
	return nil
}

func anyAvailable(item models.LineItem) bool {
	for _, q := range item.Quotes {
		if q.Available {
			return true
		}
	}
	return false
}
