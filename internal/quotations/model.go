package quotations

import "time"

// Status is the lifecycle state of a quotation.
type Status string

const (
	StatusNew        Status = "New"
	StatusInProgress Status = "InProgress"
	StatusClosed     Status = "Closed"
)

// AllStatuses lists every status in list-view order.
var AllStatuses = []Status{StatusNew, StatusInProgress, StatusClosed}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// ProductLine is one priced row of a quotation. The derived fields
// (UnitPrice, Total, Revenue, Commission) are recomputed from the input
// fields on every change and are never written directly.
type ProductLine struct {
	ID             int64   `json:"id,omitempty" db:"id"`
	QuotationID    int64   `json:"quotation_id,omitempty" db:"quotation_id"`
	Code           string  `json:"code" db:"code"`
	VendorCode     string  `json:"vendor_code" db:"vendor_code"`
	Description    string  `json:"description" db:"description"`
	Specifications string  `json:"specifications" db:"specifications"`
	PrintDetails   string  `json:"print_details" db:"print_details"`
	DeliveryTime   string  `json:"delivery_time" db:"delivery_time"`
	Quantity       int     `json:"quantity" db:"quantity"`
	VendorCost     float64 `json:"vendor_cost" db:"vendor_cost"`
	PrintCost      float64 `json:"print_cost" db:"print_cost"`
	ProfitMargin   float64 `json:"profit_margin" db:"profit_margin"`
	ExtraProfit    bool    `json:"extra_profit" db:"extra_profit"`
	LineOrder      int     `json:"line_order" db:"line_order"`

	// Derived.
	UnitPrice  float64 `json:"unit_price" db:"unit_price"`
	Total      float64 `json:"total" db:"total"`
	Revenue    float64 `json:"revenue" db:"revenue"`
	Commission float64 `json:"commission" db:"commission"`
}

// PaymentTerms captures the commercial terms cloned across versions.
type PaymentTerms struct {
	AdvancePercent     float64 `json:"advance_percent" db:"advance_percent"`
	LiquidationPercent float64 `json:"liquidation_percent" db:"liquidation_percent"`
	CreditTimeDays     int     `json:"credit_time_days" db:"credit_time_days"`
	ValidityDays       int     `json:"validity_days" db:"validity_days"`
}

// Quotation is the aggregate root. Subtotal, Tax and Total are always
// recomputed from Lines before being treated as authoritative. Version and
// BaseQuotationID form an append-only lineage; at most one member of a
// lineage carries IsLatestVersion=true at rest.
type Quotation struct {
	ID              int64         `json:"id" db:"id"`
	Number          string        `json:"number" db:"number"`
	CustomerID      int64         `json:"customer_id" db:"customer_id"`
	AdvisorID       int64         `json:"advisor_id" db:"advisor_id"`
	AddressID       *int64        `json:"address_id,omitempty" db:"address_id"`
	CompanyID       int64         `json:"company_id" db:"company_id"`
	Terms           PaymentTerms  `json:"terms"`
	SubTotal        float64       `json:"subtotal" db:"subtotal"`
	Tax             float64       `json:"tax" db:"tax"`
	Total           float64       `json:"total" db:"total"`
	Status          Status        `json:"status" db:"status"`
	Version         int           `json:"version" db:"version"`
	BaseQuotationID *int64        `json:"base_quotation_id,omitempty" db:"base_quotation_id"`
	IsLatestVersion bool          `json:"is_latest_version" db:"is_latest_version"`
	VersionNotes    *string       `json:"version_notes,omitempty" db:"version_notes"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
	Lines           []ProductLine `json:"lines,omitempty" db:"-"`
}

// LineageRootID resolves the id of the first version in this quotation's
// lineage. A version-1 quotation is its own root.
func (q *Quotation) LineageRootID() int64 {
	if q.BaseQuotationID != nil {
		return *q.BaseQuotationID
	}
	return q.ID
}

// VersionSummary is the compact projection used when listing or comparing
// versions of a lineage.
type VersionSummary struct {
	ID            int64     `json:"id"`
	Number        string    `json:"number"`
	Version       int       `json:"version"`
	IsLatest      bool      `json:"is_latest"`
	SubTotal      float64   `json:"subtotal"`
	Tax           float64   `json:"tax"`
	Total         float64   `json:"total"`
	ProductsCount int       `json:"products_count"`
	VersionNotes  *string   `json:"version_notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// VersionDiff holds per-field deltas between two versions, computed as
// the second value minus the first.
type VersionDiff struct {
	TotalDiff         float64 `json:"total_diff"`
	SubTotalDiff      float64 `json:"subtotal_diff"`
	TaxDiff           float64 `json:"tax_diff"`
	ProductsCountDiff int     `json:"products_count_diff"`
}

// VersionComparison pairs both version summaries with their diff.
type VersionComparison struct {
	A    VersionSummary `json:"a"`
	B    VersionSummary `json:"b"`
	Diff VersionDiff    `json:"diff"`
}

// CopyPayload seeds a brand-new quotation from an existing version. Line
// identities are stripped and customer/address left blank so the caller
// must re-select them.
type CopyPayload struct {
	Terms PaymentTerms  `json:"terms"`
	Lines []ProductLine `json:"lines"`
}
