/*
sources.go - External collaborator interfaces

PURPOSE:
  Defines the boundary between the pure valuation passes and the systems
  that materialize their inputs. The engine only ever operates on
  already-fetched in-memory collections; I/O failure modes belong to the
  implementations, not to the engine.

IMPLEMENTATIONS:
  - store/sqlite: Production persistence
  - engine/store: In-memory, for tests and development

SNAPSHOT CONSISTENCY:
  A reporting snapshot assembled from several separate reads may be torn
  (a sale visible, its lines not yet, or vice versa) when the reads are not
  transactionally consistent. That risk lives with the source
  implementation and is flagged here rather than papered over.
*/
package engine

import "context"

// ProductSource lists the product reference data.
type ProductSource interface {
	ListProducts(ctx context.Context) ([]Product, error)
}

// PriceSource lists effective-dated price history. With no productIDs the
// full history is returned. Implementations are expected to serve a whole
// reporting pass in ONE call; per-line fetching is disallowed by design.
type PriceSource interface {
	ListPrices(ctx context.Context, productIDs ...ProductID) ([]PriceRecord, error)
}

// SalesSource lists sale headers and their lines.
type SalesSource interface {
	// ListSales returns sales with dates in [from, to]. Zero dates mean
	// an unbounded side.
	ListSales(ctx context.Context, from, to Date) ([]Sale, error)

	// ListLines returns the lines for the given sales; with no saleIDs,
	// all lines.
	ListLines(ctx context.Context, saleIDs ...SaleID) ([]SaleLine, error)
}

// EventSource lists audit events for one table, guaranteed ordered by
// insertion timestamp. With no recordIDs the whole table's log is returned.
type EventSource interface {
	ListEvents(ctx context.Context, table string, recordIDs ...RecordID) ([]AuditEvent, error)
}

// Authorizer decides whether an actor may view attribution data at all.
// Non-privileged callers receive output with attribution omitted entirely,
// not null-filled. The policy itself is external to the engine.
type Authorizer interface {
	CanViewAttribution(ctx context.Context, actor string) bool
}
