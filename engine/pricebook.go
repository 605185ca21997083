/*
pricebook.go - Effective-price resolution

PURPOSE:
  Answers "what price applied to product P on date D?" against an immutable
  in-memory price-history snapshot. The price in effect on a date is the
  record with the greatest effective date <= that date; a later-dated record
  supersedes earlier ones from its effective date onward.

BATCH-FETCH CONTRACT:
  A PriceBook is built ONCE per reporting pass from a single price-history
  fetch, then queried repeatedly in memory. One backend round trip per line
  is explicitly disallowed; the Engine facade loads all relevant records
  up front and resolves locally.

COMPLEXITY:
  Build: O(n log n) (stable sort per product)
  Resolve: O(log n) (binary search over the per-product slice)

TIE-BREAK:
  The data model does not forbid two records for the same product sharing an
  effective date. Resolution must still be deterministic: the LATEST-INSERTED
  record wins. The build sorts stably, so records with equal dates keep their
  input order and the search lands on the last of them.

SEE ALSO:
  - valuation.go: Resolves at the sale's date, not the current date
*/
package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PRICE BOOK - Immutable per-product price history index
// =============================================================================

// PriceBook indexes a price-history snapshot for repeated resolution.
// It is immutable after construction and safe for concurrent readers.
type PriceBook struct {
	byProduct map[ProductID][]PriceRecord
}

// NewPriceBook builds an index over the given records. The input slice is
// not retained or mutated.
func NewPriceBook(records []PriceRecord) *PriceBook {
	byProduct := make(map[ProductID][]PriceRecord)
	for _, r := range records {
		byProduct[r.ProductID] = append(byProduct[r.ProductID], r)
	}
	for id, history := range byProduct {
		// Stable: equal effective dates keep insertion order, so the
		// latest-inserted record is the one Resolve picks.
		sort.SliceStable(history, func(i, j int) bool {
			return history[i].EffectiveDate.Before(history[j].EffectiveDate)
		})
		byProduct[id] = history
	}
	return &PriceBook{byProduct: byProduct}
}

// Resolve returns the unit price in effect for the product on the given
// date. The second return is false when no record's effective date is on or
// before the date - absence, never an error. Downstream valuation treats an
// absent price as a zero amount.
func (pb *PriceBook) Resolve(productID ProductID, on Date) (decimal.Decimal, bool) {
	history := pb.byProduct[productID]
	if len(history) == 0 {
		return decimal.Zero, false
	}

	// First record strictly after 'on'; the one before it is the answer.
	i := sort.Search(len(history), func(i int) bool {
		return history[i].EffectiveDate.After(on)
	})
	if i == 0 {
		return decimal.Zero, false
	}
	return history[i-1].UnitPrice, true
}

// History returns the product's records ordered by effective date.
// The returned slice is shared; callers must not mutate it.
func (pb *PriceBook) History(productID ProductID) []PriceRecord {
	return pb.byProduct[productID]
}

// Products returns the set of product identifiers with at least one record.
func (pb *PriceBook) Products() []ProductID {
	ids := make([]ProductID, 0, len(pb.byProduct))
	for id := range pb.byProduct {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
