package storefront

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-scout/errs"
)

type recordingListener struct {
	mu        sync.Mutex
	mutations int
	widths    []float64
}

func (r *recordingListener) OnMutation() {
	r.mu.Lock()
	r.mutations++
	r.mu.Unlock()
}

func (r *recordingListener) OnResize(w float64) {
	r.mu.Lock()
	r.widths = append(r.widths, w)
	r.mu.Unlock()
}

func sampleItems() []DocItem {
	return []DocItem{
		{ProductID: "1", Name: "LACK table", PriceText: "1 299,-", Quantity: 1},
		{ProductID: "2", Name: "Mug", PriceText: "49", Quantity: 4},
	}
}

func TestDocument_ExtractFields(t *testing.T) {
	doc := NewDocument(sampleItems())
	entries := doc.ListEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "1", entries[0].ID)
	assert.Equal(t, 4, entries[1].Quantity)

	f, err := doc.ExtractFields(entries[0])
	require.NoError(t, err)
	assert.Equal(t, "1299", f.HomeUnitPrice.String())
	assert.Equal(t, "LACK table", f.DisplayName)
}

func TestDocument_ExtractFieldsMissingPrice(t *testing.T) {
	doc := NewDocument([]DocItem{{ProductID: "1", Quantity: 1}})
	_, err := doc.ExtractFields(doc.ListEntries()[0])
	assert.True(t, errs.IsExtraction(err))
}

func TestDocument_InsertFallsBackToRoot(t *testing.T) {
	doc := NewDocument(sampleItems())
	doc.InsertAfter("1", "ps-item-1", "<div>1</div>")
	doc.InsertAfter("missing", "ps-item-9", "<div>9</div>")

	n, ok := doc.Node("ps-item-1")
	require.True(t, ok)
	assert.Equal(t, "1", n.Anchor)

	n, ok = doc.Node("ps-item-9")
	require.True(t, ok)
	assert.Equal(t, "root", n.Anchor)
}

func TestDocument_Remove(t *testing.T) {
	doc := NewDocument(sampleItems())
	doc.InsertAfter("1", "ps-item-1", "<div>1</div>")
	doc.InsertAfter(SummaryAnchor, "ps-summary", "<div>s</div>")

	doc.Remove("ps-summary")
	doc.Remove("ps-unknown")

	assert.False(t, doc.Present("ps-summary"))
	assert.True(t, doc.Present("ps-item-1"))
	assert.Len(t, doc.Nodes(), 1)
}

func TestDocument_ListenerAndRerender(t *testing.T) {
	doc := NewDocument(sampleItems())
	l := &recordingListener{}
	width, ok := doc.Attach(l)
	require.True(t, ok)
	assert.Equal(t, 1280.0, width)

	doc.InsertAfter("1", "ps-item-1", "x")
	doc.SetQuantity("1", 3)
	doc.Rerender()
	doc.Resize(900)

	assert.False(t, doc.Present("ps-item-1"))
	assert.Equal(t, 2, l.mutations)
	assert.Equal(t, []float64{900}, l.widths)

	doc.Detach()
	doc.SetQuantity("1", 5)
	assert.Equal(t, 2, l.mutations)
}

func TestDocument_UnmountedRefusesAttach(t *testing.T) {
	doc := NewDocument(nil)
	doc.Mount(false)
	_, ok := doc.Attach(&recordingListener{})
	assert.False(t, ok)
	assert.Equal(t, 1, doc.AttachAttempts())
}

func TestDocument_RemoveItemDropsFragment(t *testing.T) {
	doc := NewDocument(sampleItems())
	doc.InsertAfter("2", "ps-item-2", "x")
	require.True(t, doc.RemoveItem("2"))

	assert.False(t, doc.Present("ps-item-2"))
	assert.Len(t, doc.Items(), 1)
}

func TestFilePreferences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
selectedCountries:
  - country: Germany
    language: de
    url: https://www.ikea.com/de/de/
`), 0o644))

	markets, err := FilePreferences{Path: path}.Markets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, "EUR", markets[0].CurrencyCode)
}
