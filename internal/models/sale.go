package models

import (
	"strings"
	"time"
)

// SaleCondition represents the graded condition attached to a marketplace sale
type SaleCondition string

const (
	SaleConditionNM  SaleCondition = "NM"  // Near Mint
	SaleConditionLP  SaleCondition = "LP"  // Lightly Played
	SaleConditionMP  SaleCondition = "MP"  // Moderately Played
	SaleConditionHP  SaleCondition = "HP"  // Heavily Played
	SaleConditionDMG SaleCondition = "DMG" // Damaged
)

// AllSaleConditions returns all valid sale conditions
func AllSaleConditions() []SaleCondition {
	return []SaleCondition{
		SaleConditionNM,
		SaleConditionLP,
		SaleConditionMP,
		SaleConditionHP,
		SaleConditionDMG,
	}
}

// NormalizeSaleCondition maps marketplace condition strings to our
// SaleCondition type. TCGPlayer spells conditions out in full; other sources
// abbreviate. Unknown values default to Near Mint.
func NormalizeSaleCondition(condition string) SaleCondition {
	switch strings.ToLower(strings.TrimSpace(condition)) {
	case "near mint", "nm", "mint", "m":
		return SaleConditionNM
	case "lightly played", "lp", "excellent", "ex":
		return SaleConditionLP
	case "moderately played", "mp", "good", "gd":
		return SaleConditionMP
	case "heavily played", "hp", "played", "pl":
		return SaleConditionHP
	case "damaged", "dmg", "poor", "pr":
		return SaleConditionDMG
	default:
		return SaleConditionNM
	}
}

// CardSale stores a single external marketplace sale for a card
type CardSale struct {
	ID            uint          `json:"id" gorm:"primaryKey;autoIncrement"`
	CardCode      string        `json:"card_code" gorm:"not null;index:idx_sale_card_date"`
	OrderDate     time.Time     `json:"order_date" gorm:"not null;index:idx_sale_card_date"`
	Condition     SaleCondition `json:"condition" gorm:"default:'NM'"`
	PurchasePrice float64       `json:"purchase_price"`
	Source        string        `json:"source"` // "tcgplayer" (sole sales source)
	FetchedAt     *time.Time    `json:"fetched_at"`
	CreatedAt     time.Time     `json:"created_at"`
}
