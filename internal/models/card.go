package models

import (
	"time"
)

type Card struct {
	Code           string     `json:"code" gorm:"primaryKey"`
	Name           string     `json:"name" gorm:"not null;index"`
	SetCode        string     `json:"set_code" gorm:"index"`
	SetName        string     `json:"set_name"`
	Rarity         string     `json:"rarity"`
	Color          string     `json:"color"`
	ImageURL       string     `json:"image_url"`
	TCGPlayerID    string     `json:"tcgplayer_id"`
	LastSalesCheck *time.Time `json:"last_sales_check"` // When sales were last fetched for this card
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// HasTCGPlayerData reports whether the card can be valued against
// marketplace sales at all.
func (c *Card) HasTCGPlayerData() bool {
	return c.TCGPlayerID != ""
}

type CardSearchResult struct {
	Cards      []Card `json:"cards"`
	TotalCount int    `json:"total_count"`
	HasMore    bool   `json:"has_more"`
}
