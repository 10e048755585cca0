package domain

import "time"

// Table is a billiard table as reported by the POS backend. PricePerHour is a
// pointer because older table records omit the field entirely; consumers fall
// back to a default rate when it is nil.
type Table struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Capacity     int      `json:"capacity"`
	Description  string   `json:"description,omitempty"`
	Status       string   `json:"status,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	PricePerHour *float64 `json:"pricePerHour,omitempty"`
}

// TableSession is the backend-owned record of a table's occupancy window.
// Timestamps are unqualified local date-time text (YYYY-MM-DDTHH:MM:SS).
// EndTime and Total are nil while the session is still running.
type TableSession struct {
	ID        int64    `json:"id"`
	StartTime string   `json:"startTime"`
	EndTime   *string  `json:"endTime,omitempty"`
	Total     *float64 `json:"total,omitempty"`
}

// Closed reports whether the session has both an end time and a billed total.
func (s *TableSession) Closed() bool {
	return s != nil && s.EndTime != nil && s.Total != nil
}

type TableDetail struct {
	Table
	CurrentSession *TableSession `json:"currentSession,omitempty"`
}

type Product struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"imageUrl,omitempty"`
}

const (
	LineItemProduct  = "PRODUCT"
	LineItemTableFee = "TABLE_FEE"
)

// LineItem is one row of a draft invoice. Immutable once created except for
// removal; there is no in-place quantity edit.
type LineItem struct {
	ID          string  `json:"id"`
	ProductID   *int64  `json:"productId"`
	ProductName string  `json:"productName"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	LineTotal   float64 `json:"lineTotal"`
	Kind        string  `json:"kind"`
}

// DraftInvoice holds the line items plus derived totals. The derived fields
// are always rebuilt from Items and the two percent rates, never patched.
type DraftInvoice struct {
	Items           []LineItem `json:"items"`
	DiscountPercent float64    `json:"discountPercent"`
	TaxPercent      float64    `json:"taxPercent"`
	Subtotal        float64    `json:"subtotal"`
	DiscountAmount  float64    `json:"discountAmount"`
	TaxAmount       float64    `json:"taxAmount"`
	Total           float64    `json:"total"`
}

// DraftEntry is what the draft store persists per table.
type DraftEntry struct {
	Invoice      DraftInvoice `json:"invoice"`
	CustomerName string       `json:"customerName"`
	SavedAt      time.Time    `json:"savedAt,omitempty"`
}

const (
	WarnNone   = "none"
	WarnWarn   = "warn"
	WarnDanger = "danger"
)

// LiveSessionProjection is the per-tick view of one table for the TV board.
// Never persisted; recomputed from the cached snapshot on every tick.
type LiveSessionProjection struct {
	TableID        int64     `json:"tableId"`
	TableName      string    `json:"tableName"`
	SessionID      int64     `json:"sessionId,omitempty"`
	Playing        bool      `json:"playing"`
	StartedAt      time.Time `json:"startedAt,omitempty"`
	ElapsedMs      int64     `json:"elapsedMs"`
	ElapsedMinutes int64     `json:"elapsedMinutes"`
	HourlyRate     float64   `json:"hourlyRate"`
	ProjectedCost  float64   `json:"projectedCost"`
	WarnLevel      string    `json:"warnLevel"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type InvoiceItemRequest struct {
	ProductID   *int64  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

type CreateInvoiceRequest struct {
	TableID         int64                `json:"tableId"`
	CustomerName    *string              `json:"customerName"`
	Items           []InvoiceItemRequest `json:"items"`
	DiscountPercent float64              `json:"discountPercent"`
	TaxPercent      float64              `json:"taxPercent"`
}

type Invoice struct {
	ID              int64   `json:"id"`
	TableID         int64   `json:"tableId,omitempty"`
	CustomerName    string  `json:"customerName,omitempty"`
	Subtotal        float64 `json:"subtotal,omitempty"`
	DiscountPercent float64 `json:"discountPercent,omitempty"`
	TaxPercent      float64 `json:"taxPercent,omitempty"`
	Total           float64 `json:"total,omitempty"`
	CreatedAt       string  `json:"createdAt,omitempty"`
}

type TopItem struct {
	Name     string  `json:"name"`
	Quantity int64   `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

type DashboardStats struct {
	TableCount        int64     `json:"tableCount"`
	ProductCount      int64     `json:"productCount"`
	EmployeeCount     int64     `json:"employeeCount"`
	TodayInvoiceCount int64     `json:"todayInvoiceCount"`
	TodayRevenue      float64   `json:"todayRevenue"`
	TodaySubtotal     float64   `json:"todaySubtotal"`
	TodayDiscount     float64   `json:"todayDiscount"`
	TodayTax          float64   `json:"todayTax"`
	TopItemsToday     []TopItem `json:"topItemsToday"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}
