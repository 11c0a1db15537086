package models

import (
	"time"
)

// List is a user-named collection of cards with quantities.
type List struct {
	ID          uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string     `json:"name" gorm:"not null;index"`
	Slug        string     `json:"slug" gorm:"uniqueIndex"`
	Description string     `json:"description"`
	Cards       []ListCard `json:"cards,omitempty" gorm:"foreignKey:ListID"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type ListCard struct {
	ID       uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	ListID   uint      `json:"list_id" gorm:"not null;index:idx_list_card"`
	CardCode string    `json:"card_code" gorm:"not null;index:idx_list_card"`
	Card     Card      `json:"card" gorm:"foreignKey:CardCode"`
	Quantity int       `json:"quantity" gorm:"default:1"`
	AddedAt  time.Time `json:"added_at"`
}

type ListSummary struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	UniqueCards int       `json:"unique_cards"`
	TotalCards  int       `json:"total_cards"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateListRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateListRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type AddListCardRequest struct {
	CardCode string `json:"card_code" binding:"required"`
	Quantity int    `json:"quantity"`
}

type UpdateListCardRequest struct {
	Quantity *int `json:"quantity"`
}

// ListCardResponse includes the card entry plus operation info
type ListCardResponse struct {
	Entry     ListCard `json:"entry"`
	Operation string   `json:"operation"` // "added" or "merged"
	Message   string   `json:"message,omitempty"`
}
