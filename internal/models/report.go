package models

import (
	"time"
)

// SaleLine is one recent-sale entry rendered on the report
type SaleLine struct {
	OrderDate     time.Time     `json:"order_date"`
	Condition     SaleCondition `json:"condition"`
	PurchasePrice float64       `json:"purchase_price"`
}

// CardValuation is the per-card valuation row of a collection report.
// TopThreeAverage is nil when the card has no recorded sales.
type CardValuation struct {
	CardCode        string     `json:"card_code"`
	CardName        string     `json:"card_name"`
	CardSrc         string     `json:"card_src"` // image URL, shared across variant codes
	Quantity        int        `json:"quantity"`
	LastSales       []SaleLine `json:"last_sales"`
	TopThreeAverage *float64   `json:"top3_average"`
	Subtotal        float64    `json:"subtotal"`
	Error           string     `json:"error,omitempty"`
}

// CollectionReportData is the full valuation payload for a list.
// Invariant: TotalValue is the sum of all card subtotals, and the negotiation
// values are TotalValue discounted to 80%/70% rounded to cents.
type CollectionReportData struct {
	ListName          string          `json:"list_name"`
	GeneratedAt       time.Time       `json:"generated_at"`
	TotalCards        int             `json:"total_cards"`    // unique cards
	TotalQuantity     int             `json:"total_quantity"` // sum of quantities
	SuccessfulLookups int             `json:"successful_lookups"`
	FailedLookups     int             `json:"failed_lookups"`
	TotalValue        float64         `json:"total_value"`
	Value80Percent    float64         `json:"value_80_percent"`
	Value70Percent    float64         `json:"value_70_percent"`
	Cards             []CardValuation `json:"cards"`
}

// ReportPhase is the generation state of a report job. Transitions run
// idle -> fetching -> generating_images -> generating_pdf -> ready, with
// error reachable from any in-progress phase.
type ReportPhase string

const (
	ReportPhaseIdle             ReportPhase = "idle"
	ReportPhaseFetching         ReportPhase = "fetching"
	ReportPhaseGeneratingImages ReportPhase = "generating_images"
	ReportPhaseGeneratingPDF    ReportPhase = "generating_pdf"
	ReportPhaseReady            ReportPhase = "ready"
	ReportPhaseError            ReportPhase = "error"
)

// InProgress reports whether the phase is a non-terminal working state
func (p ReportPhase) InProgress() bool {
	return p == ReportPhaseFetching || p == ReportPhaseGeneratingImages || p == ReportPhaseGeneratingPDF
}

// Terminal reports whether the phase can accept a new generation
func (p ReportPhase) Terminal() bool {
	return p == ReportPhaseIdle || p == ReportPhaseReady || p == ReportPhaseError
}

// ReportProgress tracks per-unique-image materialization progress
type ReportProgress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// ReportStatus is the API view of a report job
type ReportStatus struct {
	ID        string          `json:"id"`
	ListID    uint            `json:"list_id"`
	Phase     ReportPhase     `json:"phase"`
	Progress  *ReportProgress `json:"progress,omitempty"`
	Error     string          `json:"error,omitempty"`
	Filename  string          `json:"filename,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
