package engine_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sachifps/sell-smart-start-sub000/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) engine.Date {
	return engine.NewDate(year, month, day)
}

func dec(s string) decimal.Decimal {
	return engine.MustDecimal(s)
}

func price(productID string, d engine.Date, unitPrice string) engine.PriceRecord {
	return engine.PriceRecord{
		ProductID:     engine.ProductID(productID),
		EffectiveDate: d,
		UnitPrice:     dec(unitPrice),
	}
}

// =============================================================================
// EFFECTIVE-PRICE RESOLUTION
// =============================================================================

func TestResolve_PicksGreatestEffectiveDateNotAfterReference(t *testing.T) {
	// GIVEN: Two price records for P1 (Jan 1 and Mar 1)
	// WHEN: Resolving on a date between them
	// THEN: The January price applies

	book := engine.NewPriceBook([]engine.PriceRecord{
		price("P1", date(2024, time.January, 1), "10.00"),
		price("P1", date(2024, time.March, 1), "12.00"),
	})

	got, ok := book.Resolve("P1", date(2024, time.February, 15))
	if !ok {
		t.Fatal("expected a price, got absent")
	}
	if !got.Equal(dec("10.00")) {
		t.Errorf("expected 10.00, got %s", got)
	}
}

func TestResolve_LaterRecordSupersedesFromItsEffectiveDate(t *testing.T) {
	book := engine.NewPriceBook([]engine.PriceRecord{
		price("P1", date(2024, time.January, 1), "10.00"),
		price("P1", date(2024, time.March, 1), "12.00"),
	})

	// On the effective date itself the new price already applies.
	got, ok := book.Resolve("P1", date(2024, time.March, 1))
	if !ok || !got.Equal(dec("12.00")) {
		t.Errorf("expected 12.00 on the effective date, got %s (ok=%v)", got, ok)
	}

	got, ok = book.Resolve("P1", date(2024, time.March, 15))
	if !ok || !got.Equal(dec("12.00")) {
		t.Errorf("expected 12.00 after the effective date, got %s (ok=%v)", got, ok)
	}
}

func TestResolve_NoRecordOnOrBeforeDate_IsAbsentNotError(t *testing.T) {
	// GIVEN: P1's history starts in March
	// WHEN: Resolving in February
	// THEN: Absent - downstream treats this as a zero-valued line

	book := engine.NewPriceBook([]engine.PriceRecord{
		price("P1", date(2024, time.March, 1), "12.00"),
	})

	if _, ok := book.Resolve("P1", date(2024, time.February, 1)); ok {
		t.Error("expected absent price before history starts")
	}
	if _, ok := book.Resolve("unknown", date(2024, time.June, 1)); ok {
		t.Error("expected absent price for unknown product")
	}
}

func TestResolve_EqualEffectiveDates_LatestInsertedWins(t *testing.T) {
	// GIVEN: Two records for P1 sharing an effective date
	// WHEN: Resolving on or after that date
	// THEN: The latest-inserted record wins, deterministically

	book := engine.NewPriceBook([]engine.PriceRecord{
		price("P1", date(2024, time.January, 1), "10.00"),
		price("P1", date(2024, time.January, 1), "11.00"),
	})

	got, ok := book.Resolve("P1", date(2024, time.January, 1))
	if !ok {
		t.Fatal("expected a price")
	}
	if !got.Equal(dec("11.00")) {
		t.Errorf("expected latest-inserted 11.00, got %s", got)
	}
}

func TestResolve_UnsortedInputIsIndexedCorrectly(t *testing.T) {
	// The build sorts; input order by date must not matter (except for
	// the documented equal-date tie-break).
	book := engine.NewPriceBook([]engine.PriceRecord{
		price("P1", date(2024, time.March, 1), "12.00"),
		price("P1", date(2024, time.January, 1), "10.00"),
		price("P1", date(2024, time.February, 1), "11.00"),
	})

	got, ok := book.Resolve("P1", date(2024, time.February, 20))
	if !ok || !got.Equal(dec("11.00")) {
		t.Errorf("expected 11.00, got %s (ok=%v)", got, ok)
	}
}

func TestHistory_OrderedByEffectiveDate(t *testing.T) {
	book := engine.NewPriceBook([]engine.PriceRecord{
		price("P1", date(2024, time.March, 1), "12.00"),
		price("P1", date(2024, time.January, 1), "10.00"),
	})

	history := book.History("P1")
	if len(history) != 2 {
		t.Fatalf("expected 2 records, got %d", len(history))
	}
	if !history[0].EffectiveDate.Before(history[1].EffectiveDate) {
		t.Error("history not ordered by effective date")
	}
}
