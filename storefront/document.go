package storefront

import (
	"sort"
	"strings"
	"sync"

	"price-scout/errs"
	"price-scout/models"
	"price-scout/scraper/market"
)

// DocItem is a line item element as the storefront renders it. PriceText
// is the raw price string shown on the page.
type DocItem struct {
	ProductID string `json:"product_id" yaml:"product_id"`
	Name      string `json:"name" yaml:"name"`
	PriceText string `json:"price" yaml:"price"`
	Quantity  int    `json:"quantity" yaml:"quantity"`
}

// Node is an injected fragment.
type Node struct {
	Key    string `json:"key"`
	Anchor string `json:"anchor"`
	HTML   string `json:"html"`
}

// Document is a thread-safe in-memory storefront. Mutations made through
// its methods notify the attached listener, the way a DOM observer would.
type Document struct {
	mu         sync.Mutex
	mounted    bool
	items      []DocItem
	nodes      []Node
	errors     []string
	width      float64
	listener   Listener
	attachHits int
}

func NewDocument(items []DocItem) *Document {
	return &Document{mounted: true, items: append([]DocItem(nil), items...), width: 1280}
}

// Mount controls whether the collection container exists.
func (d *Document) Mount(mounted bool) {
	d.mu.Lock()
	d.mounted = mounted
	d.mu.Unlock()
}

func (d *Document) Attach(l Listener) (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attachHits++
	if !d.mounted {
		return 0, false
	}
	d.listener = l
	return d.width, true
}

func (d *Document) Detach() {
	d.mu.Lock()
	d.listener = nil
	d.mu.Unlock()
}

// AttachAttempts counts Attach calls, successful or not.
func (d *Document) AttachAttempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attachHits
}

func (d *Document) ListEntries() []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Entry, 0, len(d.items))
	for _, it := range d.items {
		out = append(out, Entry{ID: it.ProductID, Quantity: it.Quantity, Handle: it})
	}
	return out
}

func (d *Document) ExtractFields(e Entry) (models.ItemFields, error) {
	it, ok := e.Handle.(DocItem)
	if !ok {
		return models.ItemFields{}, errs.NewExtraction(e.ID, "element")
	}
	if strings.TrimSpace(it.ProductID) == "" {
		return models.ItemFields{}, errs.NewExtraction(e.ID, "productId")
	}
	if strings.TrimSpace(it.PriceText) == "" {
		return models.ItemFields{}, errs.NewExtraction(it.ProductID, "price")
	}
	price, err := market.ParsePrice(it.PriceText)
	if err != nil {
		return models.ItemFields{}, &errs.Error{Kind: errs.KindExtraction, Message: "unreadable price", Item: it.ProductID, Err: err}
	}
	return models.ItemFields{
		ProductID:     it.ProductID,
		DisplayName:   strings.TrimSpace(it.Name),
		HomeUnitPrice: price,
		Quantity:      it.Quantity,
	}, nil
}

func (d *Document) InsertAfter(anchor, key, html string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.hasAnchor(anchor) {
		anchor = "root"
	}
	for i, n := range d.nodes {
		if n.Key == key {
			d.nodes[i] = Node{Key: key, Anchor: anchor, HTML: html}
			return
		}
	}
	d.nodes = append(d.nodes, Node{Key: key, Anchor: anchor, HTML: html})
}

func (d *Document) ReplaceContent(key, html string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, n := range d.nodes {
		if n.Key == key {
			d.nodes[i].HTML = html
			return
		}
	}
	d.nodes = append(d.nodes, Node{Key: key, Anchor: "root", HTML: html})
}

func (d *Document) Present(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range d.nodes {
		if n.Key == key {
			return true
		}
	}
	return false
}

// Remove drops an injected fragment. Unknown keys are ignored.
func (d *Document) Remove(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, n := range d.nodes {
		if n.Key == key {
			d.nodes = append(d.nodes[:i], d.nodes[i+1:]...)
			return
		}
	}
}

func (d *Document) ShowError(msg string) {
	d.mu.Lock()
	d.errors = append(d.errors, msg)
	d.mu.Unlock()
}

// hasAnchor must be called with d.mu held.
func (d *Document) hasAnchor(anchor string) bool {
	if anchor == SummaryAnchor {
		return d.mounted
	}
	for _, it := range d.items {
		if it.ProductID == anchor {
			return true
		}
	}
	return false
}

// Nodes returns the injected fragments ordered by key.
func (d *Document) Nodes() []Node {
	d.mu.Lock()
	out := append([]Node(nil), d.nodes...)
	d.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (d *Document) Node(key string) (Node, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range d.nodes {
		if n.Key == key {
			return n, true
		}
	}
	return Node{}, false
}

func (d *Document) Errors() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.errors...)
}

func (d *Document) Items() []DocItem {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DocItem(nil), d.items...)
}

// SetItems replaces the collection and notifies the listener.
func (d *Document) SetItems(items []DocItem) {
	d.mu.Lock()
	d.items = append([]DocItem(nil), items...)
	d.mu.Unlock()
	d.notifyMutation()
}

// SetQuantity changes one item's quantity and notifies the listener.
func (d *Document) SetQuantity(productID string, qty int) bool {
	d.mu.Lock()
	found := false
	for i := range d.items {
		if d.items[i].ProductID == productID {
			d.items[i].Quantity = qty
			found = true
		}
	}
	d.mu.Unlock()
	if found {
		d.notifyMutation()
	}
	return found
}

// RemoveItem drops an item together with its injected fragment.
func (d *Document) RemoveItem(productID string) bool {
	d.mu.Lock()
	found := false
	kept := d.items[:0]
	for _, it := range d.items {
		if it.ProductID == productID {
			found = true
			continue
		}
		kept = append(kept, it)
	}
	d.items = kept
	nodes := d.nodes[:0]
	for _, n := range d.nodes {
		if n.Anchor != productID {
			nodes = append(nodes, n)
		}
	}
	d.nodes = nodes
	d.mu.Unlock()
	if found {
		d.notifyMutation()
	}
	return found
}

// Rerender simulates the storefront re-rendering its own markup, which
// wipes every injected fragment without changing the items.
func (d *Document) Rerender() {
	d.mu.Lock()
	d.nodes = nil
	d.mu.Unlock()
	d.notifyMutation()
}

// Resize changes the container width and notifies the listener.
func (d *Document) Resize(width float64) {
	d.mu.Lock()
	d.width = width
	l := d.listener
	d.mu.Unlock()
	if l != nil {
		l.OnResize(width)
	}
}

func (d *Document) notifyMutation() {
	d.mu.Lock()
	l := d.listener
	d.mu.Unlock()
	if l != nil {
		l.OnMutation()
	}
}
