/*
engine.go - Reporting facade over the external sources

PURPOSE:
  Orchestrates one reporting pass: batch-fetch every input collection
  exactly once, build the in-memory indexes, run the pure passes. This is
  the replacement for per-line backend round trips - no price lookup or
  audit query ever happens inside a loop.

SNAPSHOT:
  A Snapshot is the materialized, valued view of the sales data for one
  pass. It is assembled from separate reads; when the underlying source is
  not transactionally consistent the snapshot may be torn (see sources.go).
  Aggregations over a snapshot are read-only and repeatable.

SEE ALSO:
  - sources.go: The collaborator interfaces
  - report.go: The aggregation passes run over a snapshot
*/
package engine

import (
	"context"

	"go.uber.org/zap"
)

// Engine wires the external sources to the pure valuation passes.
type Engine struct {
	Products ProductSource
	Prices   PriceSource
	Sales    SalesSource
	Events   EventSource

	Logger *zap.Logger
}

// New creates an Engine. A nil logger is replaced with a no-op logger.
func New(products ProductSource, prices PriceSource, sales SalesSource, events EventSource, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		Products: products,
		Prices:   prices,
		Sales:    sales,
		Events:   events,
		Logger:   logger,
	}
}

// Snapshot is the valued view of one reporting pass.
type Snapshot struct {
	Sales    []ValuedSale
	Products map[ProductID]Product
}

// Snapshot batch-fetches products, price history, sales and lines once,
// then values everything locally. Zero dates mean an unbounded range.
func (e *Engine) Snapshot(ctx context.Context, from, to Date) (*Snapshot, error) {
	products, err := e.Products.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	prices, err := e.Prices.ListPrices(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := e.Sales.ListSales(ctx, from, to)
	if err != nil {
		return nil, err
	}

	saleIDs := make([]SaleID, 0, len(sales))
	for _, s := range sales {
		saleIDs = append(saleIDs, s.ID)
	}
	lines, err := e.Sales.ListLines(ctx, saleIDs...)
	if err != nil {
		return nil, err
	}

	valued, err := ValuateSales(sales, lines, prices, products)
	if err != nil {
		return nil, err
	}

	e.Logger.Debug("reporting snapshot assembled",
		zap.Int("sales", len(sales)),
		zap.Int("lines", len(lines)),
		zap.Int("price_records", len(prices)),
		zap.Int("products", len(products)),
	)

	return &Snapshot{Sales: valued, Products: ProductIndex(products)}, nil
}

// DailyReport assembles a snapshot and produces the trailing-window series.
// A zero endDay anchors the window at the latest available sale date, or at
// today when the snapshot is empty.
func (e *Engine) DailyReport(ctx context.Context, windowDays int, endDay Date) ([]DaySummary, error) {
	snap, err := e.Snapshot(ctx, Date{}, Date{})
	if err != nil {
		return nil, err
	}
	if endDay.IsZero() {
		latest, ok := LatestSaleDate(snap.Sales)
		if !ok {
			latest = Today()
		}
		endDay = latest
	}
	return DailySeries(snap.Sales, windowDays, endDay), nil
}

// TopProducts assembles a snapshot and ranks products by revenue.
func (e *Engine) TopProducts(ctx context.Context, k int) ([]ProductRevenue, error) {
	snap, err := e.Snapshot(ctx, Date{}, Date{})
	if err != nil {
		return nil, err
	}
	return TopByRevenue(snap.Sales, k), nil
}

// TopCategories ranks caller-labelled categories by revenue. The ranking is
// computed over ALL products (k applied after re-labelling) so a category's
// total never depends on a product-level truncation.
func (e *Engine) TopCategories(ctx context.Context, categories CategoryMap, k int) ([]CategoryRevenue, error) {
	snap, err := e.Snapshot(ctx, Date{}, Date{})
	if err != nil {
		return nil, err
	}
	return ByCategory(RevenueByProduct(snap.Sales), categories, k), nil
}

// Attribution fetches the table's relevant event slice once and folds it.
func (e *Engine) Attribution(ctx context.Context, table string, recordIDs ...RecordID) (map[RecordID]AttributionRecord, error) {
	events, err := e.Events.ListEvents(ctx, table, recordIDs...)
	if err != nil {
		return nil, err
	}
	return AttributionFor(events)
}
