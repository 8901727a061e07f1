package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"price-scout/config"
	"price-scout/utils"
)

// BrowserSource renders product pages in headless Chrome, for storefronts
// that fill in prices client-side. Each call opens its own tab.
type BrowserSource struct {
	cfg         *config.Config
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

func NewBrowserSource(cfg *config.Config) *BrowserSource {
	utils.Info("Launching Chrome browser...")
	allocCtx, allocCancel := chromedp.NewExecAllocator(
		context.Background(),
		utils.StealthOpts(cfg.Headless)...,
	)
	utils.Success("Browser ready")
	return &BrowserSource{
		cfg:         cfg,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
	}
}

func (b *BrowserSource) Close() {
	utils.Info("Closing browser...")
	b.allocCancel()
}

func (b *BrowserSource) PriceText(ctx context.Context, url string) (string, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.allocCtx)
	defer tabCancel()
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	timeout := b.cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()

	var price string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		utils.HideWebDriver(),
		chromedp.WaitVisible(b.cfg.PriceSelector, chromedp.ByQuery),
		chromedp.Text(b.cfg.PriceSelector, &price, chromedp.ByQuery, chromedp.NodeVisible),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("chromedp failed: %w", err)
	}

	price = strings.TrimSpace(price)
	if price == "" {
		return "", fmt.Errorf("price element %q is empty", b.cfg.PriceSelector)
	}
	return price, nil
}
