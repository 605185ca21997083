/*
valuation.go - Line and sale valuation

PURPOSE:
  Combines sale lines with the effective-price resolver to produce valued
  lines (unit price, extended amount) and valued sales (per-line breakdown,
  exact decimal total). This is the structure both the reporting surface and
  the CRUD surface read; neither writes through it.

KEY RULES:
  - Prices resolve at the SALE's date, never the current date. Historical
    sales are retroactively stable under later price changes.
  - Sums use exact decimal arithmetic. Floating point appears only at a
    presentation boundary, never for summation.
  - A missing product or missing price yields a valued line with
    PriceKnown=false and a zero amount. Not fatal.
  - A negative quantity is a validation error raised to the caller.
  - A product whose unit was edited after the sale still reports its
    original product identifier; only the display unit label may be
    overridden via the Units lookup. Which label is "correct" is the
    caller's policy, not the engine's.

SEE ALSO:
  - pricebook.go: Price resolution
  - report.go: Aggregation over valued sales
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// VALUATOR - Values lines and sales against a price snapshot
// =============================================================================

// UnitLookup optionally supplies the current display unit for a product,
// overriding the unit captured in the product snapshot. Return false to
// keep the snapshot label.
type UnitLookup func(ProductID) (Unit, bool)

// Valuator values sale lines against an immutable snapshot. Zero side
// effects; the same snapshot always produces the same output.
type Valuator struct {
	Prices   *PriceBook
	Products map[ProductID]Product

	// Units overrides display unit labels. Nil keeps snapshot labels.
	Units UnitLookup
}

// ValuateLine values one line at the given sale date.
func (v *Valuator) ValuateLine(line SaleLine, saleDate Date) (ValuedLine, error) {
	if line.Quantity.IsNegative() {
		return ValuedLine{}, &InvalidQuantityError{
			SaleID:    line.SaleID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		}
	}

	valued := ValuedLine{Line: line, UnitPrice: decimal.Zero, Amount: decimal.Zero}

	if product, ok := v.Products[line.ProductID]; ok {
		valued.ProductName = product.Name
		valued.Unit = product.Unit
	}
	if v.Units != nil {
		if unit, ok := v.Units(line.ProductID); ok {
			valued.Unit = unit
		}
	}

	price, ok := v.Prices.Resolve(line.ProductID, saleDate)
	if !ok {
		// Absent price: zero-valued line, never an error.
		return valued, nil
	}

	valued.PriceKnown = true
	valued.UnitPrice = price
	valued.Amount = line.Quantity.Mul(price)
	return valued, nil
}

// ValuateSale values every line belonging to the sale and sums extended
// amounts exactly.
func (v *Valuator) ValuateSale(sale Sale, lines []SaleLine) (ValuedSale, error) {
	valued := ValuedSale{Sale: sale, Total: decimal.Zero}
	for _, line := range lines {
		vl, err := v.ValuateLine(line, sale.Date)
		if err != nil {
			return ValuedSale{}, err
		}
		valued.Lines = append(valued.Lines, vl)
		valued.Total = valued.Total.Add(vl.Amount)
	}
	return valued, nil
}

// ValuateSales values a batch of sales, demultiplexing the line slice by
// sale identifier internally. Line order within a sale is preserved.
func (v *Valuator) ValuateSales(sales []Sale, lines []SaleLine) ([]ValuedSale, error) {
	bySale := make(map[SaleID][]SaleLine, len(sales))
	for _, line := range lines {
		bySale[line.SaleID] = append(bySale[line.SaleID], line)
	}

	valued := make([]ValuedSale, 0, len(sales))
	for _, sale := range sales {
		vs, err := v.ValuateSale(sale, bySale[sale.ID])
		if err != nil {
			return nil, err
		}
		valued = append(valued, vs)
	}
	return valued, nil
}

// ValuateSales is the package-level convenience pass: it builds the price
// index and values the whole batch in one call. Prices and products are
// expected to have been batch-fetched once for the pass.
func ValuateSales(sales []Sale, lines []SaleLine, prices []PriceRecord, products []Product) ([]ValuedSale, error) {
	v := &Valuator{
		Prices:   NewPriceBook(prices),
		Products: ProductIndex(products),
	}
	return v.ValuateSales(sales, lines)
}
