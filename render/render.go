package render

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"

	"price-scout/models"
)

const (
	toneGood = "good"
	toneBad  = "bad"
)

var templates = template.Must(template.New("render").Parse(`
{{- define "diff" -}}
<span class="ps-diff"{{if eq .Tone "bad"}} style="color:red"{{else if eq .Tone "good"}} style="color:green"{{end}}>{{.Text}}</span>
{{- end -}}

{{- define "item" -}}
<div class="ps-comparison" data-item="{{.ID}}">
{{- if gt .Quantity 1}}
  <p class="ps-header">Price for {{.Quantity}} pcs in other countries</p>
{{- end}}
  <ul>
{{- range .Rows}}
{{- if .Available}}
    <li class="ps-market"><a href="{{.URL}}">{{.Name}}</a>: <span class="ps-price">{{.Total}}</span> {{template "diff" .Diff}}</li>
{{- else}}
    <li class="ps-market ps-unavailable"><a href="{{.URL}}">{{.Name}}</a>: <span class="ps-na" style="color:gray">not available</span></li>
{{- end}}
{{- end}}
  </ul>
</div>
{{end -}}

{{- define "degraded" -}}
<div class="ps-comparison ps-degraded" data-item="{{.ID}}">
  <span class="ps-na" style="color:gray">comparison not available</span>
</div>
{{end -}}

{{- define "summary" -}}
<div class="ps-summary">
  <h3>Savings on items cheaper abroad</h3>
  <ul>
{{- range .Cheaper}}
    <li>{{.Name}}: <span class="ps-price">{{.Amount}}</span></li>
{{- end}}
  </ul>
  <h3>Whole basket per country</h3>
  <ul>
{{- range .Basket}}
    <li>{{.Name}}: {{template "diff" .Diff}}
{{- if .Unavailable}}
      <details><summary>{{len .Unavailable}} not available</summary>
        <ul>
{{- range .Unavailable}}
          <li>{{.}}</li>
{{- end}}
        </ul>
      </details>
{{- end}}
    </li>
{{- end}}
  </ul>
  <h3>Best purchase strategy</h3>
{{- range $g := .Groups}}
  <div class="ps-group" data-market="{{$g.MarketID}}">
    <h4>{{$g.Name}}: {{$g.Total}}</h4>
    <ul>
{{- range $g.Items}}
      <li>{{.Name}} ({{.Quantity}} pcs): {{.Total}}{{if $g.Foreign}} <span class="ps-saving" style="color:green">saves {{.Saving}}</span>{{end}}</li>
{{- end}}
    </ul>
  </div>
{{- end}}
</div>
{{end -}}
`))

type diffView struct {
	Text template.HTML
	Tone string
}

type rowView struct {
	Name      string
	URL       string
	Available bool
	Total     string
	Diff      diffView
}

type itemView struct {
	ID       string
	Quantity int
	Rows     []rowView
}

type amountView struct {
	Name   string
	Amount string
}

type basketView struct {
	Name        string
	Diff        diffView
	Unavailable []string
}

type groupItemView struct {
	Name     string
	Quantity int
	Total    string
	Saving   string
}

type groupView struct {
	MarketID string
	Name     string
	Total    string
	Foreign  bool
	Items    []groupItemView
}

type summaryView struct {
	Cheaper []amountView
	Basket  []basketView
	Groups  []groupView
}

// Renderer produces the HTML fragments injected into the storefront.
type Renderer struct {
	money *MoneyFormatter
}

func New(money *MoneyFormatter) *Renderer {
	return &Renderer{money: money}
}

// Item renders one line item's comparison block. Totals are scaled by the
// item's quantity; percentages compare unit prices.
func (r *Renderer) Item(item models.LineItem) (string, error) {
	if item.Degraded {
		return r.execute("degraded", item)
	}

	view := itemView{ID: item.ID, Quantity: item.Quantity}
	for i, q := range item.Quotes {
		row := rowView{Name: q.DisplayName, URL: q.ReferenceURL}
		if total, ok := item.QuoteTotal(i); ok && q.PercentDiff != nil {
			row.Available = true
			row.Total = r.money.Format(total)
			row.Diff = percentDiff(*q.PercentDiff)
		}
		view.Rows = append(view.Rows, row)
	}
	return r.execute("item", view)
}

// Summary renders the basket-level views.
func (r *Renderer) Summary(items []models.LineItem, summary models.SavingsSummary) (string, error) {
	names, order := marketNames(items)
	itemNames := make(map[string]string, len(items))
	quantities := make(map[string]int, len(items))
	for _, it := range items {
		itemNames[it.ID] = displayName(it)
		quantities[it.ID] = it.Quantity
	}

	var view summaryView
	for _, id := range summary.MarketsBySaving() {
		view.Cheaper = append(view.Cheaper, amountView{
			Name:   names[id],
			Amount: r.money.Format(summary.CheaperOnlyDifference[id]),
		})
	}

	for _, id := range order {
		diff := summary.TotalDifference[id]
		row := basketView{Name: names[id], Diff: r.basketDiff(diff)}
		for _, itemID := range summary.UnavailableItems[id] {
			row.Unavailable = append(row.Unavailable, itemNames[itemID])
		}
		view.Basket = append(view.Basket, row)
	}

	groups := make(map[string]*groupView)
	totals := make(map[string]decimal.Decimal)
	for _, st := range summary.PerItemBestStrategy {
		g, ok := groups[st.BestMarket]
		if !ok {
			g = &groupView{MarketID: st.BestMarket, Foreign: st.BestMarket != models.HomeMarket}
			if g.Foreign {
				g.Name = names[st.BestMarket]
			} else {
				g.Name = "Home"
			}
			groups[st.BestMarket] = g
		}
		totals[st.BestMarket] = totals[st.BestMarket].Add(st.BestTotalPrice)
		g.Items = append(g.Items, groupItemView{
			Name:     itemNames[st.ItemID],
			Quantity: quantities[st.ItemID],
			Total:    r.money.Format(st.BestTotalPrice),
			Saving:   r.money.Format(st.Saving),
		})
	}
	for _, id := range append(order, models.HomeMarket) {
		if g, ok := groups[id]; ok {
			g.Total = r.money.Format(totals[id])
			view.Groups = append(view.Groups, *g)
		}
	}

	return r.execute("summary", view)
}

func (r *Renderer) basketDiff(d decimal.Decimal) diffView {
	v := diffView{Text: template.HTML(template.HTMLEscapeString(r.money.Signed(d)))}
	switch c := d.Ceil(); {
	case c.IsPositive():
		v.Tone = toneGood
	case c.IsNegative():
		v.Tone = toneBad
	}
	return v
}

func (r *Renderer) execute(name string, data any) (string, error) {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return b.String(), nil
}

// percentDiff colours pricier markets red and cheaper ones green; exactly
// 0% carries no colour.
func percentDiff(p int64) diffView {
	v := diffView{Text: template.HTML(FormatPercent(p))}
	switch {
	case p > 0:
		v.Tone = toneBad
	case p < 0:
		v.Tone = toneGood
	}
	return v
}

// marketNames collects display names and first-seen market order.
func marketNames(items []models.LineItem) (map[string]string, []string) {
	names := make(map[string]string)
	var order []string
	for _, it := range items {
		for _, q := range it.Quotes {
			if _, ok := names[q.MarketID]; ok {
				continue
			}
			name := q.DisplayName
			if name == "" {
				name = q.MarketID
			}
			names[q.MarketID] = name
			order = append(order, q.MarketID)
		}
	}
	return names, order
}

func displayName(it models.LineItem) string {
	if it.DisplayName != "" {
		return it.DisplayName
	}
	return it.ID
}
