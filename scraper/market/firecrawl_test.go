package market

import (
	"context"
	"errors"
	"testing"

	"github.com/mendableai/firecrawl-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFirecrawl struct {
	doc *firecrawl.FirecrawlDocument
	err error
	url string
}

func (f *fakeFirecrawl) ScrapeURL(url string, params *firecrawl.ScrapeParams) (*firecrawl.FirecrawlDocument, error) {
	f.url = url
	return f.doc, f.err
}

func TestFirecrawlSource_ReadsSelectorFromHTML(t *testing.T) {
	fake := &fakeFirecrawl{doc: &firecrawl.FirecrawlDocument{HTML: productPage("2.499")}}
	s := &FirecrawlSource{app: fake, selector: ".pip-temp-price__integer"}

	text, err := s.PriceText(context.Background(), "https://www.ikea.com/de/de/p/-1/")
	require.NoError(t, err)
	assert.Equal(t, "2.499", text)
	assert.Equal(t, "https://www.ikea.com/de/de/p/-1/", fake.url)
}

func TestFirecrawlSource_Errors(t *testing.T) {
	s := &FirecrawlSource{app: &fakeFirecrawl{err: errors.New("402 payment required")}, selector: ".x"}
	_, err := s.PriceText(context.Background(), "u")
	assert.Error(t, err)

	s = &FirecrawlSource{app: &fakeFirecrawl{doc: &firecrawl.FirecrawlDocument{}}, selector: ".x"}
	_, err = s.PriceText(context.Background(), "u")
	assert.Error(t, err)
}
