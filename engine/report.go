/*
report.go - Aggregation passes over valued sales

PURPOSE:
  Produces the reporting views: a trailing-window daily time series, a
  top-N revenue ranking by product, and a caller-labelled category
  breakdown. All passes are pure functions of their input snapshot -
  restartable, finite, no hidden state.

DAILY SERIES:
  Sales group by the sale's UTC calendar date (the engine's single zone
  policy, see date.go). The series covers exactly windowDays consecutive
  days ending at the reference day INCLUSIVE, zero-filled where no sales
  occurred, strictly ascending. Chart consumers never see a gap.

TOP BY REVENUE:
  Valued lines across all sales group by product; extended amounts sum
  exactly; output sorts descending by total with ties broken by product
  identifier ascending for determinism. Zero and negative totals are kept
  unless the caller asks for the positive-only filter explicitly.

CATEGORIES:
  The category breakdown is a re-labelling of per-product revenue through a
  caller-supplied mapping. The engine does not invent category semantics;
  unmapped products land in UncategorizedLabel.

SEE ALSO:
  - valuation.go: Produces the ValuedSale input
  - factory/categories.go: Loads CategoryMap from configuration
*/
package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DAILY SERIES - Trailing window, zero-filled
// =============================================================================

// DaySummary is one calendar day of the trailing-window series.
type DaySummary struct {
	Day          Date
	Total        decimal.Decimal
	Transactions int
}

// DailySeries returns exactly windowDays entries ending at endDay inclusive,
// ascending by date, zero-filled for days without sales. windowDays <= 0
// yields an empty series. Sales outside the window are ignored.
func DailySeries(sales []ValuedSale, windowDays int, endDay Date) []DaySummary {
	if windowDays <= 0 {
		return []DaySummary{}
	}

	start := endDay.AddDays(-(windowDays - 1))

	type bucket struct {
		total decimal.Decimal
		count int
	}
	byDay := make(map[Date]bucket)
	for _, vs := range sales {
		day := vs.Sale.Date
		if day.Before(start) || day.After(endDay) {
			continue
		}
		b := byDay[day]
		if b.count == 0 {
			b.total = decimal.Zero
		}
		b.total = b.total.Add(vs.Total)
		b.count++
		byDay[day] = b
	}

	series := make([]DaySummary, 0, windowDays)
	for day := start; day.BeforeOrEqual(endDay); day = day.AddDays(1) {
		b := byDay[day]
		total := b.total
		if b.count == 0 {
			total = decimal.Zero
		}
		series = append(series, DaySummary{Day: day, Total: total, Transactions: b.count})
	}
	return series
}

// LatestSaleDate returns the greatest sale date in the snapshot, for callers
// that anchor the trailing window at the latest available sale rather than
// at "today". False when the snapshot is empty.
func LatestSaleDate(sales []ValuedSale) (Date, bool) {
	if len(sales) == 0 {
		return Date{}, false
	}
	latest := sales[0].Sale.Date
	for _, vs := range sales[1:] {
		if vs.Sale.Date.After(latest) {
			latest = vs.Sale.Date
		}
	}
	return latest, true
}

// =============================================================================
// TOP BY REVENUE - Product ranking
// =============================================================================

// ProductRevenue is one entry of the revenue ranking.
type ProductRevenue struct {
	ProductID ProductID
	Name      string
	Total     decimal.Decimal
}

// TopByRevenue ranks products by summed extended amounts, descending, ties
// broken by product identifier ascending. k=0 returns an empty sequence;
// k greater than the number of distinct products returns all of them.
// Zero and negative totals are included.
func TopByRevenue(sales []ValuedSale, k int) []ProductRevenue {
	if k <= 0 {
		return []ProductRevenue{}
	}
	return truncate(RevenueByProduct(sales), k)
}

// TopByRevenuePositive is TopByRevenue with the explicit positive-only
// filter: products whose total is zero or negative are dropped.
func TopByRevenuePositive(sales []ValuedSale, k int) []ProductRevenue {
	if k <= 0 {
		return []ProductRevenue{}
	}
	ranked := RevenueByProduct(sales)
	kept := ranked[:0]
	for _, pr := range ranked {
		if pr.Total.IsPositive() {
			kept = append(kept, pr)
		}
	}
	return truncate(kept, k)
}

func truncate(ranked []ProductRevenue, k int) []ProductRevenue {
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// RevenueByProduct is the full, untruncated ranking. The category pass runs
// over this so category totals never depend on a product-level cutoff.
func RevenueByProduct(sales []ValuedSale) []ProductRevenue {
	totals := make(map[ProductID]*ProductRevenue)
	for _, vs := range sales {
		for _, line := range vs.Lines {
			pr, ok := totals[line.Line.ProductID]
			if !ok {
				pr = &ProductRevenue{
					ProductID: line.Line.ProductID,
					Name:      line.ProductName,
					Total:     decimal.Zero,
				}
				totals[line.Line.ProductID] = pr
			}
			if pr.Name == "" {
				pr.Name = line.ProductName
			}
			pr.Total = pr.Total.Add(line.Amount)
		}
	}

	ranked := make([]ProductRevenue, 0, len(totals))
	for _, pr := range totals {
		ranked = append(ranked, *pr)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if !ranked[i].Total.Equal(ranked[j].Total) {
			return ranked[i].Total.GreaterThan(ranked[j].Total)
		}
		return ranked[i].ProductID < ranked[j].ProductID
	})
	return ranked
}

// =============================================================================
// CATEGORY BREAKDOWN - Caller-supplied re-labelling
// =============================================================================

// CategoryMap maps products to caller-defined category labels.
type CategoryMap map[ProductID]string

// UncategorizedLabel groups products absent from the CategoryMap.
const UncategorizedLabel = "uncategorized"

// CategoryRevenue is one entry of the category breakdown.
type CategoryRevenue struct {
	Category string
	Total    decimal.Decimal
	Products int
}

// ByCategory re-labels per-product revenue into categories and ranks them
// descending by total, ties broken by category name ascending. k=0 returns
// an empty sequence.
func ByCategory(products []ProductRevenue, categories CategoryMap, k int) []CategoryRevenue {
	if k <= 0 {
		return []CategoryRevenue{}
	}

	totals := make(map[string]*CategoryRevenue)
	for _, pr := range products {
		label, ok := categories[pr.ProductID]
		if !ok {
			label = UncategorizedLabel
		}
		cr, ok := totals[label]
		if !ok {
			cr = &CategoryRevenue{Category: label, Total: decimal.Zero}
			totals[label] = cr
		}
		cr.Total = cr.Total.Add(pr.Total)
		cr.Products++
	}

	ranked := make([]CategoryRevenue, 0, len(totals))
	for _, cr := range totals {
		ranked = append(ranked, *cr)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if !ranked[i].Total.Equal(ranked[j].Total) {
			return ranked[i].Total.GreaterThan(ranked[j].Total)
		}
		return ranked[i].Category < ranked[j].Category
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}
