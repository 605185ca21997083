/*
Package engine provides the sales valuation and reporting core.

PURPOSE:
  This package contains the types and algorithms that turn normalized,
  temporally-versioned sales records (sale headers, line items, an
  effective-dated price history) into monetary values, time-series
  aggregates, revenue rankings, and per-record audit attribution.

KEY CONCEPTS IN THIS FILE (types.go):
  - Product/PriceRecord: Immutable reference data and its price history
  - Sale/SaleLine: The persisted transaction records
  - ValuedLine/ValuedSale: Derived monetary values (never persisted)
  - AuditEvent/AttributionRecord: Append-only log and its folded view

DESIGN PRINCIPLES:
  1. Purity: Every pass is a pure function over an explicit snapshot.
     Nothing in this package performs I/O or owns canonical state.
  2. Precision: Uses decimal.Decimal for quantities and money to avoid
     floating-point drift across aggregation.
  3. Type Safety: Strong typing for IDs prevents mixing product/sale IDs.
  4. Explicit absence: Missing reference data (no price, no product) is
     represented in the output, never raised as an error.

USAGE:
  book := engine.NewPriceBook(prices)
  v := engine.Valuator{Prices: book, Products: engine.ProductIndex(products)}
  valued, err := v.ValuateSales(sales, lines)

SEE ALSO:
  - pricebook.go: Effective-price resolution
  - valuation.go: Line and sale valuation
  - report.go: Daily series and revenue rankings
  - audit.go: Attribution from the audit log
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// ProductID identifies a product in the reference catalog.
type ProductID string

// SaleID is the external transaction identifier (e.g. "T00042").
// One SaleID maps to exactly one Sale.
type SaleID string

// RecordID identifies a logical record in the audit log. For sales this is
// the external transaction identifier; for products the product identifier.
type RecordID string

// Unit is a display-time unit-of-measure label ("unit", "kg", "l", ...).
type Unit string

// =============================================================================
// REFERENCE DATA - Products and price history
// =============================================================================

// Product is immutable reference data. The unit label may be corrected
// post-hoc by an external editor; valuation tolerates that by resolving
// display units through an optional caller-supplied lookup.
type Product struct {
	ID   ProductID
	Name string
	Unit Unit
}

// PriceRecord is one entry of a product's effective-dated price history.
// History is append-only; records are never deleted in normal operation.
//
// Invariant: for any product, records are totally ordered by effective
// date. Two records sharing an effective date are resolved deterministically
// (latest-inserted wins, see PriceBook.Resolve).
type PriceRecord struct {
	ProductID     ProductID
	EffectiveDate Date
	UnitPrice     decimal.Decimal
}

// =============================================================================
// SALES - Persisted transaction records
// =============================================================================

// Sale is a transaction header. Mutation happens outside the engine; the
// engine only ever re-reads already-materialized snapshots.
type Sale struct {
	ID         SaleID
	Date       Date
	CustomerID string
	EmployeeID string
}

// SaleLine belongs to exactly one Sale. Quantity is a non-negative rational
// number; fractional quantities (weight-based units) are allowed.
type SaleLine struct {
	SaleID    SaleID
	ProductID ProductID
	Quantity  decimal.Decimal
}

// =============================================================================
// VALUED RECORDS - Derived, never persisted
// =============================================================================

// ValuedLine is a SaleLine with its resolved monetary value.
//
// When no price record covers the sale date, PriceKnown is false, UnitPrice
// is zero and Amount is zero. Absence is data, not an error.
type ValuedLine struct {
	Line        SaleLine
	ProductName string
	Unit        Unit
	UnitPrice   decimal.Decimal
	PriceKnown  bool
	Amount      decimal.Decimal
}

// ValuedSale is a Sale with its valued lines and exact decimal total.
type ValuedSale struct {
	Sale  Sale
	Lines []ValuedLine
	Total decimal.Decimal
}

// =============================================================================
// AUDIT LOG - Append-only event stream and its folded view
// =============================================================================

type AuditAction string

const (
	ActionCreated AuditAction = "created"
	ActionUpdated AuditAction = "updated"
	ActionDeleted AuditAction = "deleted"
)

// AuditEvent is one entry of the append-only audit log, ordered by
// insertion timestamp. Multiple events may reference the same record
// over its lifetime.
type AuditEvent struct {
	ID       string // log row identity (uuid), assigned by the store
	Table    string
	RecordID RecordID
	Action   AuditAction
	Actor    string
	At       time.Time
}

// Attribution is one actor+timestamp pair of an AttributionRecord.
type Attribution struct {
	By string
	At time.Time
}

// AttributionRecord is the folded point-in-time attribution for one logical
// record: who created it, who last updated it, who deleted it. Each part is
// optional; nil means the action never occurred.
type AttributionRecord struct {
	RecordID RecordID
	Created  *Attribution
	Updated  *Attribution
	Deleted  *Attribution
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

// MustDecimal parses a decimal literal, returning zero on malformed input.
// Intended for constants and tests, not for validating user input.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ProductIndex builds a lookup map from a product listing.
func ProductIndex(products []Product) map[ProductID]Product {
	idx := make(map[ProductID]Product, len(products))
	for _, p := range products {
		idx[p.ID] = p
	}
	return idx
}
