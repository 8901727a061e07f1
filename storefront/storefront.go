// Package storefront defines the collaborators the engine consumes from the
// live storefront page, plus an in-memory Document implementing them.
package storefront

import (
	"context"

	"price-scout/config"
	"price-scout/models"
)

// SummaryAnchor is where the basket summary is inserted.
const SummaryAnchor = "cart-summary"

// Entry is one line item element as currently rendered, in render order.
type Entry struct {
	ID       string
	Quantity int
	Handle   any
}

// Extractor reads values out of the rendered collection.
type Extractor interface {
	ListEntries() []Entry
	// ExtractFields fails with an extraction error when a required field
	// is missing from the element.
	ExtractFields(e Entry) (models.ItemFields, error)
}

// Sink receives rendered fragments. Fragments whose anchor is missing are
// appended at the document root.
type Sink interface {
	InsertAfter(anchor, key, html string)
	ReplaceContent(key, html string)
	Present(key string) bool
	Remove(key string)
	ShowError(msg string)
}

// Listener is notified of external changes once attached.
type Listener interface {
	OnMutation()
	OnResize(width float64)
}

// Observer attaches change notifications to the collection container.
// Attach reports false while the container does not exist yet.
type Observer interface {
	Attach(l Listener) (width float64, ok bool)
	Detach()
}

// Preferences returns the ordered markets the user opted into.
type Preferences interface {
	Markets(ctx context.Context) ([]models.Market, error)
}

// StaticPreferences is a fixed market list.
type StaticPreferences []models.Market

func (p StaticPreferences) Markets(context.Context) ([]models.Market, error) {
	return p, nil
}

// FilePreferences reads the selection from a markets YAML file.
type FilePreferences struct {
	Path string
}

func (p FilePreferences) Markets(context.Context) ([]models.Market, error) {
	selected, err := config.LoadMarkets(p.Path)
	if err != nil {
		return nil, err
	}
	return config.ToMarkets(selected), nil
}
