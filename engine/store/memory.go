// Package store provides in-memory source implementations for tests and
// development.
package store

import (
	"context"
	"sync"

	"github.com/sachifps/sell-smart-start-sub000/engine"
)

// =============================================================================
// MEMORY - In-memory implementation of every engine source
// =============================================================================

// Memory holds all collections in process memory. Safe for concurrent use.
// Audit events are kept in insertion order, which is also timestamp order
// as long as callers append with non-decreasing timestamps (the same
// contract the production store gets from its append-only table).
type Memory struct {
	mu       sync.RWMutex
	products map[engine.ProductID]engine.Product
	prices   []engine.PriceRecord
	sales    map[engine.SaleID]engine.Sale
	lines    map[engine.SaleID][]engine.SaleLine
	events   map[string][]engine.AuditEvent // keyed by table name
}

func NewMemory() *Memory {
	return &Memory{
		products: make(map[engine.ProductID]engine.Product),
		sales:    make(map[engine.SaleID]engine.Sale),
		lines:    make(map[engine.SaleID][]engine.SaleLine),
		events:   make(map[string][]engine.AuditEvent),
	}
}

// Compile-time checks that Memory implements the source interfaces.
var (
	_ engine.ProductSource = (*Memory)(nil)
	_ engine.PriceSource   = (*Memory)(nil)
	_ engine.SalesSource   = (*Memory)(nil)
	_ engine.EventSource   = (*Memory)(nil)
)

// =============================================================================
// WRITE HELPERS - The "surrounding application" side of the boundary
// =============================================================================

func (m *Memory) AddProduct(p engine.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

// AddPriceRecord appends to the price history. Append-only.
func (m *Memory) AddPriceRecord(r engine.PriceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices = append(m.prices, r)
}

// AddSale stores a sale and its lines. Returns ErrDuplicateIdentifier when
// the external identifier already exists, mirroring the production store's
// uniqueness constraint.
func (m *Memory) AddSale(s engine.Sale, lines []engine.SaleLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sales[s.ID]; exists {
		return engine.ErrDuplicateIdentifier
	}
	m.sales[s.ID] = s
	m.lines[s.ID] = append([]engine.SaleLine(nil), lines...)
	return nil
}

// AppendEvent appends to a table's audit log. Append-only.
func (m *Memory) AppendEvent(e engine.AuditEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.Table] = append(m.events[e.Table], e)
}

// =============================================================================
// SOURCE IMPLEMENTATIONS
// =============================================================================

func (m *Memory) ListProducts(_ context.Context) ([]engine.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]engine.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *Memory) ListPrices(_ context.Context, productIDs ...engine.ProductID) ([]engine.PriceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(productIDs) == 0 {
		return append([]engine.PriceRecord(nil), m.prices...), nil
	}
	want := make(map[engine.ProductID]bool, len(productIDs))
	for _, id := range productIDs {
		want[id] = true
	}
	var out []engine.PriceRecord
	for _, r := range m.prices {
		if want[r.ProductID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) ListSales(_ context.Context, from, to engine.Date) ([]engine.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.Sale
	for _, s := range m.sales {
		if !from.IsZero() && s.Date.Before(from) {
			continue
		}
		if !to.IsZero() && s.Date.After(to) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *Memory) ListLines(_ context.Context, saleIDs ...engine.SaleID) ([]engine.SaleLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.SaleLine
	if len(saleIDs) == 0 {
		for _, lines := range m.lines {
			out = append(out, lines...)
		}
		return out, nil
	}
	for _, id := range saleIDs {
		out = append(out, m.lines[id]...)
	}
	return out, nil
}

func (m *Memory) ListEvents(_ context.Context, table string, recordIDs ...engine.RecordID) ([]engine.AuditEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	log := m.events[table]
	if len(recordIDs) == 0 {
		return append([]engine.AuditEvent(nil), log...), nil
	}
	want := make(map[engine.RecordID]bool, len(recordIDs))
	for _, id := range recordIDs {
		want[id] = true
	}
	var out []engine.AuditEvent
	for _, e := range log {
		if want[e.RecordID] {
			out = append(out, e)
		}
	}
	return out, nil
}
