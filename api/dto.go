/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's domain model from the external API contract.

MONEY REPRESENTATION:
  Monetary values and quantities travel as decimal STRINGS ("36.00"), never
  as JSON numbers. Exact decimal arithmetic ends at this boundary; whether
  to render floats is the consumer's choice.

ATTRIBUTION:
  SaleDTO.Attribution is omitted entirely (not null-filled) for callers the
  authorizer does not privilege. `omitempty` on the pointer field does the
  omission.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

// =============================================================================
// REFERENCE DATA
// =============================================================================

// ProductDTO represents a product in API responses.
type ProductDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Unit string `json:"unit"`
}

// SaveProductRequest creates or corrects a product (unit edits included).
type SaveProductRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Unit string `json:"unit"`
}

// PriceRecordDTO is one entry of a product's price history.
type PriceRecordDTO struct {
	ProductID     string `json:"product_id"`
	EffectiveDate string `json:"effective_date"`
	UnitPrice     string `json:"unit_price"`
}

// AddPriceRequest appends a price record.
type AddPriceRequest struct {
	EffectiveDate string `json:"effective_date"`
	UnitPrice     string `json:"unit_price"`
}

// =============================================================================
// SALES
// =============================================================================

// LineDTO is a valued sale line.
type LineDTO struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	Unit        string `json:"unit,omitempty"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	PriceKnown  bool   `json:"price_known"`
	Amount      string `json:"amount"`
}

// AttributionDTO carries who created/updated/deleted a record.
type AttributionDTO struct {
	CreatedBy string `json:"created_by,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedBy string `json:"updated_by,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	DeletedBy string `json:"deleted_by,omitempty"`
	DeletedAt string `json:"deleted_at,omitempty"`
}

// SaleDTO is a valued sale, with attribution for privileged callers only.
type SaleDTO struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	CustomerID  string          `json:"customer_id"`
	EmployeeID  string          `json:"employee_id"`
	Total       string          `json:"total"`
	Lines       []LineDTO       `json:"lines"`
	Attribution *AttributionDTO `json:"attribution,omitempty"`
}

// SaleLineInput is one line of a create/update request.
type SaleLineInput struct {
	ProductID string `json:"product_id"`
	Quantity  string `json:"quantity"`
}

// CreateSaleRequest creates a sale; the external identifier is generated
// server-side.
type CreateSaleRequest struct {
	Date       string          `json:"date"`
	CustomerID string          `json:"customer_id"`
	EmployeeID string          `json:"employee_id"`
	Lines      []SaleLineInput `json:"lines"`
}

// UpdateSaleRequest edits a sale's header and optionally its lines.
type UpdateSaleRequest struct {
	Date       string           `json:"date"`
	CustomerID string           `json:"customer_id"`
	EmployeeID string           `json:"employee_id"`
	Lines      *[]SaleLineInput `json:"lines,omitempty"`
}

// =============================================================================
// REPORTS
// =============================================================================

// DaySummaryDTO is one day of the trailing-window series.
type DaySummaryDTO struct {
	Date         string `json:"date"`
	Total        string `json:"total"`
	Transactions int    `json:"transactions"`
}

// ProductRevenueDTO is one entry of the revenue ranking.
type ProductRevenueDTO struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Total     string `json:"total"`
}

// CategoryRevenueDTO is one entry of the category breakdown.
type CategoryRevenueDTO struct {
	Category string `json:"category"`
	Total    string `json:"total"`
	Products int    `json:"products"`
}

// NextIdentifierDTO is the generated external identifier preview.
type NextIdentifierDTO struct {
	Next string `json:"next"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
