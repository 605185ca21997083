/*
handlers.go - HTTP handlers for the sales valuation and reporting API

PURPOSE:
  Exposes the engine via REST. Handles HTTP request/response, JSON
  serialization, and delegates all computation to the engine package.
  All mutation goes through the store; the engine only re-reads.

ENDPOINTS:
  Products:
    GET    /api/products                    List the catalog
    POST   /api/products                    Create/correct a product
    GET    /api/products/{id}/prices        Price history
    POST   /api/products/{id}/prices        Append a price record

  Sales:
    GET    /api/sales                       List valued sales (?from&to)
    POST   /api/sales                       Create (identifier generated)
    GET    /api/sales/next-identifier       Preview the next identifier
    GET    /api/sales/{id}                  Valued sale (+attribution)
    PUT    /api/sales/{id}                  Update header/lines
    DELETE /api/sales/{id}                  Delete (lines first)

  Reports:
    GET    /api/reports/daily-series        ?window=30&end=2024-03-15
    GET    /api/reports/top-products        ?k=5&positive=true
    GET    /api/reports/top-categories      ?k=5

IDENTIFIER RETRIES:
  Sale creation generates the identifier from the store's last one and
  relies on the UNIQUE constraint for collision safety. On a conflict the
  handler re-reads the last identifier and retries a few times before
  giving up with 409.

ACTOR AND AUTHORIZATION:
  The acting user comes from the X-Actor header (the real application
  resolves it from the session). Attribution appears in responses only
  when the authorizer privileges that actor; otherwise the field is
  omitted, never null-filled.

ERROR HANDLING:
  400 validation, 404 not found, 409 identifier conflict, 500 internal.
  Aggregation failures return a readable JSON error, not a crash.

SEE ALSO:
  - dto.go: Request/response types
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sachifps/sell-smart-start-sub000/engine"
	"github.com/sachifps/sell-smart-start-sub000/store/sqlite"
)

const (
	defaultWindowDays = 30
	defaultTopK       = 5
	identifierRetries = 5
	anonymousActor    = "anonymous"
)

// =============================================================================
// HANDLER
// =============================================================================

// Handler holds all dependencies for the HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Engine     *engine.Engine
	Categories engine.CategoryMap
	Auth       engine.Authorizer
	Logger     *zap.Logger
}

// NewHandler wires the store into an engine and returns the handler.
func NewHandler(store *sqlite.Store, categories engine.CategoryMap, auth engine.Authorizer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if auth == nil {
		auth = AllowAll{}
	}
	return &Handler{
		Store:      store,
		Engine:     engine.New(store, store, store, store, logger),
		Categories: categories,
		Auth:       auth,
		Logger:     logger,
	}
}

func actorFrom(r *http.Request) string {
	if a := r.Header.Get("X-Actor"); a != "" {
		return a
	}
	return anonymousActor
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.ListProducts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, ProductDTO{ID: string(p.ID), Name: p.Name, Unit: string(p.Unit)})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SaveProduct(w http.ResponseWriter, r *http.Request) {
	var req SaveProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}
	if req.ID == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "id and name are required"})
		return
	}
	p := engine.Product{ID: engine.ProductID(req.ID), Name: req.Name, Unit: engine.Unit(req.Unit)}
	if err := h.Store.SaveProduct(r.Context(), p, actorFrom(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProductDTO{ID: req.ID, Name: req.Name, Unit: req.Unit})
}

func (h *Handler) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	productID := engine.ProductID(chi.URLParam(r, "id"))
	records, err := h.Store.ListPrices(r.Context(), productID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]PriceRecordDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, PriceRecordDTO{
			ProductID:     string(rec.ProductID),
			EffectiveDate: rec.EffectiveDate.String(),
			UnitPrice:     rec.UnitPrice.String(),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) AddPrice(w http.ResponseWriter, r *http.Request) {
	productID := engine.ProductID(chi.URLParam(r, "id"))
	var req AddPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}
	date, err := engine.ParseDate(req.EffectiveDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	price, err := decimal.NewFromString(req.UnitPrice)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid unit_price"})
		return
	}
	record := engine.PriceRecord{ProductID: productID, EffectiveDate: date, UnitPrice: price}
	if err := h.Store.AddPriceRecord(r.Context(), record); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, PriceRecordDTO{
		ProductID:     string(productID),
		EffectiveDate: date.String(),
		UnitPrice:     price.String(),
	})
}

// =============================================================================
// SALE HANDLERS
// =============================================================================

func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.parseDateRange(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	sales, err := h.Store.ListSales(ctx, from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	valued, err := h.valuate(ctx, sales)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	attribution := h.attributionFor(ctx, r, sales)
	dtos := make([]SaleDTO, 0, len(valued))
	for _, vs := range valued {
		dtos = append(dtos, saleDTO(vs, attribution))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}
	date, err := engine.ParseDate(req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	lines, err := parseLines(req.Lines)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ctx := r.Context()
	actor := actorFrom(r)
	sale := engine.Sale{Date: date, CustomerID: req.CustomerID, EmployeeID: req.EmployeeID}

	// Generation is pure; the store's UNIQUE constraint arbitrates races.
	// Re-read the last identifier and retry on conflict.
	for attempt := 0; attempt < identifierRetries; attempt++ {
		last, err := h.Store.LastIdentifier(ctx)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		sale.ID = engine.SaleID(engine.NextIdentifier(last))
		for i := range lines {
			lines[i].SaleID = sale.ID
		}

		err = h.Store.CreateSale(ctx, sale, lines, actor)
		if err == nil {
			h.Logger.Info("sale created",
				zap.String("sale_id", string(sale.ID)),
				zap.String("actor", actor),
				zap.Int("lines", len(lines)),
			)
			h.respondWithSale(w, r, sale.ID, http.StatusCreated)
			return
		}
		if !engine.IsConflict(err) {
			h.writeError(w, r, err)
			return
		}
		h.Logger.Warn("identifier conflict, retrying",
			zap.String("sale_id", string(sale.ID)),
			zap.Int("attempt", attempt+1),
		)
	}
	writeJSON(w, http.StatusConflict, ErrorResponse{Error: "could not allocate a transaction identifier"})
}

func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	h.respondWithSale(w, r, engine.SaleID(chi.URLParam(r, "id")), http.StatusOK)
}

func (h *Handler) UpdateSale(w http.ResponseWriter, r *http.Request) {
	id := engine.SaleID(chi.URLParam(r, "id"))
	var req UpdateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}
	date, err := engine.ParseDate(req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	var lines []engine.SaleLine
	if req.Lines != nil {
		lines, err = parseLines(*req.Lines)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		for i := range lines {
			lines[i].SaleID = id
		}
	}

	sale := engine.Sale{ID: id, Date: date, CustomerID: req.CustomerID, EmployeeID: req.EmployeeID}
	if err := h.Store.UpdateSale(r.Context(), sale, lines, actorFrom(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondWithSale(w, r, id, http.StatusOK)
}

func (h *Handler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	id := engine.SaleID(chi.URLParam(r, "id"))
	if err := h.Store.DeleteSale(r.Context(), id, actorFrom(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) NextIdentifier(w http.ResponseWriter, r *http.Request) {
	last, err := h.Store.LastIdentifier(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NextIdentifierDTO{Next: engine.NextIdentifier(last)})
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

func (h *Handler) DailySeries(w http.ResponseWriter, r *http.Request) {
	window := queryInt(r, "window", defaultWindowDays)
	var end engine.Date
	if s := r.URL.Query().Get("end"); s != "" {
		var err error
		if end, err = engine.ParseDate(s); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
	}

	series, err := h.Engine.DailyReport(r.Context(), window, end)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]DaySummaryDTO, 0, len(series))
	for _, day := range series {
		dtos = append(dtos, DaySummaryDTO{
			Date:         day.Day.String(),
			Total:        day.Total.String(),
			Transactions: day.Transactions,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) TopProducts(w http.ResponseWriter, r *http.Request) {
	k := queryInt(r, "k", defaultTopK)
	positiveOnly := r.URL.Query().Get("positive") == "true"

	snap, err := h.Engine.Snapshot(r.Context(), engine.Date{}, engine.Date{})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var ranking []engine.ProductRevenue
	if positiveOnly {
		ranking = engine.TopByRevenuePositive(snap.Sales, k)
	} else {
		ranking = engine.TopByRevenue(snap.Sales, k)
	}

	dtos := make([]ProductRevenueDTO, 0, len(ranking))
	for _, pr := range ranking {
		dtos = append(dtos, ProductRevenueDTO{
			ProductID: string(pr.ProductID),
			Name:      pr.Name,
			Total:     pr.Total.String(),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) TopCategories(w http.ResponseWriter, r *http.Request) {
	k := queryInt(r, "k", defaultTopK)
	breakdown, err := h.Engine.TopCategories(r.Context(), h.Categories, k)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]CategoryRevenueDTO, 0, len(breakdown))
	for _, cr := range breakdown {
		dtos = append(dtos, CategoryRevenueDTO{
			Category: cr.Category,
			Total:    cr.Total.String(),
			Products: cr.Products,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

// valuate batch-fetches products, prices and lines once and values the
// given sales locally.
func (h *Handler) valuate(ctx context.Context, sales []engine.Sale) ([]engine.ValuedSale, error) {
	products, err := h.Store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	prices, err := h.Store.ListPrices(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]engine.SaleID, 0, len(sales))
	for _, s := range sales {
		ids = append(ids, s.ID)
	}
	lines, err := h.Store.ListLines(ctx, ids...)
	if err != nil {
		return nil, err
	}
	return engine.ValuateSales(sales, lines, prices, products)
}

// attributionFor folds the sales audit log for the given records, or
// returns nil when the actor may not view attribution at all.
func (h *Handler) attributionFor(ctx context.Context, r *http.Request, sales []engine.Sale) map[engine.RecordID]engine.AttributionRecord {
	if !h.Auth.CanViewAttribution(ctx, actorFrom(r)) {
		return nil
	}
	ids := make([]engine.RecordID, 0, len(sales))
	for _, s := range sales {
		ids = append(ids, engine.RecordID(s.ID))
	}
	attribution, err := h.Engine.Attribution(ctx, sqlite.TableSales, ids...)
	if err != nil {
		// Attribution is an overlay; its failure degrades the response
		// rather than failing the whole read.
		h.Logger.Error("attribution fold failed", zap.Error(err))
		return nil
	}
	return attribution
}

func (h *Handler) respondWithSale(w http.ResponseWriter, r *http.Request, id engine.SaleID, status int) {
	ctx := r.Context()
	sale, _, err := h.Store.GetSale(ctx, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	valued, err := h.valuate(ctx, []engine.Sale{sale})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	attribution := h.attributionFor(ctx, r, []engine.Sale{sale})
	writeJSON(w, status, saleDTO(valued[0], attribution))
}

func saleDTO(vs engine.ValuedSale, attribution map[engine.RecordID]engine.AttributionRecord) SaleDTO {
	dto := SaleDTO{
		ID:         string(vs.Sale.ID),
		Date:       vs.Sale.Date.String(),
		CustomerID: vs.Sale.CustomerID,
		EmployeeID: vs.Sale.EmployeeID,
		Total:      vs.Total.String(),
		Lines:      make([]LineDTO, 0, len(vs.Lines)),
	}
	for _, line := range vs.Lines {
		dto.Lines = append(dto.Lines, LineDTO{
			ProductID:   string(line.Line.ProductID),
			ProductName: line.ProductName,
			Unit:        string(line.Unit),
			Quantity:    line.Line.Quantity.String(),
			UnitPrice:   line.UnitPrice.String(),
			PriceKnown:  line.PriceKnown,
			Amount:      line.Amount.String(),
		})
	}
	if attribution != nil {
		if rec, ok := attribution[engine.RecordID(vs.Sale.ID)]; ok {
			dto.Attribution = attributionDTO(rec)
		}
	}
	return dto
}

func attributionDTO(rec engine.AttributionRecord) *AttributionDTO {
	dto := &AttributionDTO{}
	if rec.Created != nil {
		dto.CreatedBy = rec.Created.By
		dto.CreatedAt = rec.Created.At.Format("2006-01-02T15:04:05Z07:00")
	}
	if rec.Updated != nil {
		dto.UpdatedBy = rec.Updated.By
		dto.UpdatedAt = rec.Updated.At.Format("2006-01-02T15:04:05Z07:00")
	}
	if rec.Deleted != nil {
		dto.DeletedBy = rec.Deleted.By
		dto.DeletedAt = rec.Deleted.At.Format("2006-01-02T15:04:05Z07:00")
	}
	return dto
}

func parseLines(inputs []SaleLineInput) ([]engine.SaleLine, error) {
	lines := make([]engine.SaleLine, 0, len(inputs))
	for _, in := range inputs {
		qty, err := decimal.NewFromString(in.Quantity)
		if err != nil {
			return nil, &engine.InvalidQuantityError{
				ProductID: engine.ProductID(in.ProductID),
				Quantity:  decimal.Zero,
			}
		}
		if qty.IsNegative() {
			return nil, &engine.InvalidQuantityError{
				ProductID: engine.ProductID(in.ProductID),
				Quantity:  qty,
			}
		}
		lines = append(lines, engine.SaleLine{
			ProductID: engine.ProductID(in.ProductID),
			Quantity:  qty,
		})
	}
	return lines, nil
}

func (h *Handler) parseDateRange(w http.ResponseWriter, r *http.Request) (from, to engine.Date, ok bool) {
	q := r.URL.Query()
	var err error
	if s := q.Get("from"); s != "" {
		if from, err = engine.ParseDate(s); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return from, to, false
		}
	}
	if s := q.Get("to"); s != "" {
		if to, err = engine.ParseDate(s); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return from, to, false
		}
	}
	return from, to, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case engine.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case engine.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case engine.IsConflict(err):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		h.Logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func queryInt(r *http.Request, key string, fallback int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
