package models

import (
	"time"
)

// ListValueSnapshot stores the daily valuation of a list for historical tracking
type ListValueSnapshot struct {
	ID            uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	ListID        uint      `json:"list_id" gorm:"not null;uniqueIndex:idx_list_snapshot_date"`
	SnapshotDate  time.Time `json:"snapshot_date" gorm:"not null;uniqueIndex:idx_list_snapshot_date"`
	TotalCards    int       `json:"total_cards"`
	TotalQuantity int       `json:"total_quantity"`
	TotalValue    float64   `json:"total_value"`
	CreatedAt     time.Time `json:"created_at"`
}

// ValueHistoryResponse is the API response for list value history
type ValueHistoryResponse struct {
	ListID    uint                `json:"list_id"`
	Snapshots []ListValueSnapshot `json:"snapshots"`
	Period    string              `json:"period"` // "week", "month", "3month", "year", "all"
}
