package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sachifps/sell-smart-start-sub000/api"
	"github.com/sachifps/sell-smart-start-sub000/engine"
	"github.com/sachifps/sell-smart-start-sub000/store/sqlite"
)

func newTestServer(t *testing.T, categories engine.CategoryMap, auth engine.Authorizer) *httptest.Server {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	handler := api.NewHandler(st, categories, auth, nil)
	server := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url, actor string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set("X-Actor", actor)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func seedCatalog(t *testing.T, base string) {
	t.Helper()
	var product api.ProductDTO
	resp := doJSON(t, http.MethodPost, base+"/api/products", "alice",
		api.SaveProductRequest{ID: "P1", Name: "Widget", Unit: "unit"}, &product)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var record api.PriceRecordDTO
	resp = doJSON(t, http.MethodPost, base+"/api/products/P1/prices", "alice",
		api.AddPriceRequest{EffectiveDate: "2024-01-01", UnitPrice: "10.00"}, &record)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

// =============================================================================
// SALES LIFECYCLE
// =============================================================================

func TestCreateSale_GeneratesSequentialIdentifiers(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: Creating two sales
	// THEN: Identifiers are server-generated in sequence from the seed

	server := newTestServer(t, nil, nil)
	seedCatalog(t, server.URL)

	body := api.CreateSaleRequest{
		Date:       "2024-06-01",
		CustomerID: "C1",
		EmployeeID: "E1",
		Lines:      []api.SaleLineInput{{ProductID: "P1", Quantity: "3"}},
	}

	var first, second api.SaleDTO
	resp := doJSON(t, http.MethodPost, server.URL+"/api/sales", "alice", body, &first)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "T00001", first.ID)
	require.Equal(t, "30", first.Total)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/sales", "alice", body, &second)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "T00002", second.ID)

	var preview api.NextIdentifierDTO
	resp = doJSON(t, http.MethodGet, server.URL+"/api/sales/next-identifier", "", nil, &preview)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "T00003", preview.Next)
}

func TestGetSale_ValuedAtSaleDate(t *testing.T) {
	server := newTestServer(t, nil, nil)
	seedCatalog(t, server.URL)

	// Price rises to 12.00 on March 1; a February sale keeps 10.00.
	resp := doJSON(t, http.MethodPost, server.URL+"/api/products/P1/prices", "alice",
		api.AddPriceRequest{EffectiveDate: "2024-03-01", UnitPrice: "12.00"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var sale api.SaleDTO
	resp = doJSON(t, http.MethodPost, server.URL+"/api/sales", "alice", api.CreateSaleRequest{
		Date: "2024-02-15", CustomerID: "C1", EmployeeID: "E1",
		Lines: []api.SaleLineInput{{ProductID: "P1", Quantity: "3"}},
	}, &sale)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var got api.SaleDTO
	resp = doJSON(t, http.MethodGet, server.URL+"/api/sales/"+sale.ID, "", nil, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "30", got.Total)
	require.Len(t, got.Lines, 1)
	require.Equal(t, "10", got.Lines[0].UnitPrice)
	require.True(t, got.Lines[0].PriceKnown)
	require.Equal(t, "Widget", got.Lines[0].ProductName)
}

func TestCreateSale_ValidationErrors(t *testing.T) {
	server := newTestServer(t, nil, nil)
	seedCatalog(t, server.URL)

	var apiErr api.ErrorResponse
	resp := doJSON(t, http.MethodPost, server.URL+"/api/sales", "alice", api.CreateSaleRequest{
		Date: "2024-06-01", CustomerID: "C1", EmployeeID: "E1",
		Lines: []api.SaleLineInput{{ProductID: "P1", Quantity: "-2"}},
	}, &apiErr)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotEmpty(t, apiErr.Error)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/sales", "alice", api.CreateSaleRequest{
		Date: "June 1st", CustomerID: "C1", EmployeeID: "E1",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateAndDeleteSale(t *testing.T) {
	server := newTestServer(t, nil, nil)
	seedCatalog(t, server.URL)

	var sale api.SaleDTO
	doJSON(t, http.MethodPost, server.URL+"/api/sales", "alice", api.CreateSaleRequest{
		Date: "2024-06-01", CustomerID: "C1", EmployeeID: "E1",
		Lines: []api.SaleLineInput{{ProductID: "P1", Quantity: "1"}},
	}, &sale)

	// Header-only update: omitted lines keep the existing set.
	var updated api.SaleDTO
	resp := doJSON(t, http.MethodPut, server.URL+"/api/sales/"+sale.ID, "bob", api.UpdateSaleRequest{
		Date: "2024-06-02", CustomerID: "C2", EmployeeID: "E1",
	}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "C2", updated.CustomerID)
	require.Len(t, updated.Lines, 1)

	resp = doJSON(t, http.MethodDelete, server.URL+"/api/sales/"+sale.ID, "bob", nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/sales/"+sale.ID, "", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateSale_NotFound(t *testing.T) {
	server := newTestServer(t, nil, nil)
	resp := doJSON(t, http.MethodPut, server.URL+"/api/sales/T99999", "alice", api.UpdateSaleRequest{
		Date: "2024-06-01", CustomerID: "C1", EmployeeID: "E1",
	}, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// ATTRIBUTION GATING
// =============================================================================

func TestAttribution_OnlyForPrivilegedActors(t *testing.T) {
	// GIVEN: An authorizer privileging only "admin"
	// WHEN: Reading a sale as admin and as a regular actor
	// THEN: Attribution appears for admin and is absent otherwise

	auth := &api.StaticAuthorizer{Privileged: map[string]bool{"admin": true}}
	server := newTestServer(t, nil, auth)
	seedCatalog(t, server.URL)

	var sale api.SaleDTO
	doJSON(t, http.MethodPost, server.URL+"/api/sales", "alice", api.CreateSaleRequest{
		Date: "2024-06-01", CustomerID: "C1", EmployeeID: "E1",
	}, &sale)
	doJSON(t, http.MethodPut, server.URL+"/api/sales/"+sale.ID, "bob", api.UpdateSaleRequest{
		Date: "2024-06-02", CustomerID: "C1", EmployeeID: "E1",
	}, nil)

	var privileged api.SaleDTO
	resp := doJSON(t, http.MethodGet, server.URL+"/api/sales/"+sale.ID, "admin", nil, &privileged)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, privileged.Attribution)
	require.Equal(t, "alice", privileged.Attribution.CreatedBy)
	require.Equal(t, "bob", privileged.Attribution.UpdatedBy)

	// The field must be omitted from the raw JSON, not null-filled.
	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/sales/"+sale.ID, nil)
	require.NoError(t, err)
	req.Header.Set("X-Actor", "alice")
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()

	var body map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(raw.Body).Decode(&body))
	_, present := body["attribution"]
	require.False(t, present, "attribution must be omitted for unprivileged actors")
}

// =============================================================================
// REPORTS
// =============================================================================

func seedReportData(t *testing.T, base string) {
	t.Helper()
	seedCatalog(t, base)

	var product api.ProductDTO
	doJSON(t, http.MethodPost, base+"/api/products", "alice",
		api.SaveProductRequest{ID: "P2", Name: "Gadget", Unit: "unit"}, &product)
	doJSON(t, http.MethodPost, base+"/api/products/P2/prices", "alice",
		api.AddPriceRequest{EffectiveDate: "2024-01-01", UnitPrice: "2.50"}, nil)

	sales := []api.CreateSaleRequest{
		{Date: "2024-06-01", CustomerID: "C1", EmployeeID: "E1",
			Lines: []api.SaleLineInput{{ProductID: "P1", Quantity: "2"}}},
		{Date: "2024-06-03", CustomerID: "C2", EmployeeID: "E1",
			Lines: []api.SaleLineInput{{ProductID: "P2", Quantity: "4"}}},
	}
	for _, s := range sales {
		resp := doJSON(t, http.MethodPost, base+"/api/sales", "alice", s, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
}

func TestDailySeries_EndToEnd(t *testing.T) {
	server := newTestServer(t, nil, nil)
	seedReportData(t, server.URL)

	var series []api.DaySummaryDTO
	resp := doJSON(t, http.MethodGet,
		server.URL+"/api/reports/daily-series?window=3&end=2024-06-03", "", nil, &series)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, series, 3)
	require.Equal(t, "2024-06-01", series[0].Date)
	require.Equal(t, "20", series[0].Total)
	require.Equal(t, "0", series[1].Total)
	require.Equal(t, 0, series[1].Transactions)
	require.Equal(t, "10", series[2].Total)
}

func TestTopProducts_EndToEnd(t *testing.T) {
	server := newTestServer(t, nil, nil)
	seedReportData(t, server.URL)

	var ranking []api.ProductRevenueDTO
	resp := doJSON(t, http.MethodGet, server.URL+"/api/reports/top-products?k=1", "", nil, &ranking)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, ranking, 1)
	require.Equal(t, "P1", ranking[0].ProductID)
	require.Equal(t, "20", ranking[0].Total)
}

func TestTopCategories_EndToEnd(t *testing.T) {
	categories := engine.CategoryMap{"P1": "hardware"}
	server := newTestServer(t, categories, nil)
	seedReportData(t, server.URL)

	var breakdown []api.CategoryRevenueDTO
	resp := doJSON(t, http.MethodGet, server.URL+"/api/reports/top-categories?k=5", "", nil, &breakdown)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, breakdown, 2)
	require.Equal(t, "hardware", breakdown[0].Category)
	require.Equal(t, "20", breakdown[0].Total)
	require.Equal(t, engine.UncategorizedLabel, breakdown[1].Category)
	require.Equal(t, "10", breakdown[1].Total)
}

// =============================================================================
// PRODUCTS
// =============================================================================

func TestProducts_SaveListAndPriceHistory(t *testing.T) {
	server := newTestServer(t, nil, nil)
	seedCatalog(t, server.URL)

	var products []api.ProductDTO
	resp := doJSON(t, http.MethodGet, server.URL+"/api/products", "", nil, &products)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, products, 1)

	// Unit correction is an upsert on the same identifier.
	resp = doJSON(t, http.MethodPost, server.URL+"/api/products", "alice",
		api.SaveProductRequest{ID: "P1", Name: "Widget", Unit: "kg"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doJSON(t, http.MethodGet, server.URL+"/api/products", "", nil, &products)
	require.Len(t, products, 1)
	require.Equal(t, "kg", products[0].Unit)

	var history []api.PriceRecordDTO
	resp = doJSON(t, http.MethodGet, server.URL+"/api/products/P1/prices", "", nil, &history)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, history, 1)
	require.Equal(t, "10", history[0].UnitPrice)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/products", "alice",
		api.SaveProductRequest{ID: "", Name: ""}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
