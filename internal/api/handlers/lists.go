package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Luigii1506/ohara-backend/internal/database"
	"github.com/Luigii1506/ohara-backend/internal/models"
)

// Maximum quantity allowed per list entry
const maxQuantity = 9999

type ListHandler struct{}

func NewListHandler() *ListHandler {
	return &ListHandler{}
}

func (h *ListHandler) GetLists(c *gin.Context) {
	db := database.GetDB()

	var lists []models.List
	if err := db.Order("updated_at DESC").Find(&lists).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	summaries := make([]models.ListSummary, 0, len(lists))
	for _, list := range lists {
		var uniqueCount int64
		var totalCount int64
		db.Model(&models.ListCard{}).Where("list_id = ?", list.ID).Count(&uniqueCount)
		db.Model(&models.ListCard{}).Where("list_id = ?", list.ID).
			Select("COALESCE(SUM(quantity), 0)").Scan(&totalCount)

		summaries = append(summaries, models.ListSummary{
			ID:          list.ID,
			Name:        list.Name,
			Slug:        list.Slug,
			Description: list.Description,
			UniqueCards: int(uniqueCount),
			TotalCards:  int(totalCount),
			UpdatedAt:   list.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, summaries)
}

func (h *ListHandler) CreateList(c *gin.Context) {
	var req models.CreateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db := database.GetDB()

	// Disambiguate slug collisions with a numeric suffix
	base := database.Slugify(req.Name)
	if base == "" {
		base = "list"
	}
	slug := base
	for i := 2; ; i++ {
		var count int64
		db.Model(&models.List{}).Where("slug = ?", slug).Count(&count)
		if count == 0 {
			break
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}

	list := models.List{
		Name:        req.Name,
		Description: req.Description,
		Slug:        slug,
	}
	if err := db.Create(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, list)
}

func (h *ListHandler) GetList(c *gin.Context) {
	id, err := parseListID(c)
	if err != nil {
		return
	}

	db := database.GetDB()

	var list models.List
	if err := db.Preload("Cards").Preload("Cards.Card").First(&list, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "list not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *ListHandler) UpdateList(c *gin.Context) {
	id, err := parseListID(c)
	if err != nil {
		return
	}

	var req models.UpdateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db := database.GetDB()

	var list models.List
	if err := db.First(&list, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "list not found"})
		return
	}

	if req.Name != nil && *req.Name != "" {
		list.Name = *req.Name
	}
	if req.Description != nil {
		list.Description = *req.Description
	}

	if err := db.Save(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *ListHandler) DeleteList(c *gin.Context) {
	id, err := parseListID(c)
	if err != nil {
		return
	}

	db := database.GetDB()

	result := db.Delete(&models.List{}, id)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "list not found"})
		return
	}

	// Cascade the entries
	db.Where("list_id = ?", id).Delete(&models.ListCard{})

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *ListHandler) AddCard(c *gin.Context) {
	id, err := parseListID(c)
	if err != nil {
		return
	}

	var req models.AddListCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db := database.GetDB()

	var list models.List
	if err := db.First(&list, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "list not found"})
		return
	}

	// Verify the card exists in the catalog
	var card models.Card
	if err := db.First(&card, "code = ?", req.CardCode).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "card not found"})
		return
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
		return
	}
	if quantity > maxQuantity {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity exceeds maximum allowed (9999)"})
		return
	}

	// Merge into an existing entry for the same card
	var existing models.ListCard
	err = db.Where("list_id = ? AND card_code = ?", id, req.CardCode).First(&existing).Error
	if err == nil {
		existing.Quantity += quantity
		if existing.Quantity > maxQuantity {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity exceeds maximum allowed (9999)"})
			return
		}
		if err := db.Save(&existing).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		db.Preload("Card").First(&existing, existing.ID)
		c.JSON(http.StatusOK, models.ListCardResponse{
			Entry:     existing,
			Operation: "merged",
			Message:   "Merged into existing entry",
		})
		return
	}

	entry := models.ListCard{
		ListID:   uint(id),
		CardCode: req.CardCode,
		Quantity: quantity,
		AddedAt:  time.Now(),
	}
	if err := db.Create(&entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	db.Preload("Card").First(&entry, entry.ID)
	c.JSON(http.StatusCreated, models.ListCardResponse{
		Entry:     entry,
		Operation: "added",
	})
}

func (h *ListHandler) UpdateCard(c *gin.Context) {
	id, err := parseListID(c)
	if err != nil {
		return
	}

	entryID, err := strconv.ParseUint(c.Param("cardId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry id"})
		return
	}

	var req models.UpdateListCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db := database.GetDB()

	var entry models.ListCard
	if err := db.Where("list_id = ?", id).First(&entry, entryID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}

	if req.Quantity != nil {
		if *req.Quantity < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
			return
		}
		if *req.Quantity > maxQuantity {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity exceeds maximum allowed (9999)"})
			return
		}
		entry.Quantity = *req.Quantity
	}

	if err := db.Save(&entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	db.Preload("Card").First(&entry, entry.ID)
	c.JSON(http.StatusOK, entry)
}

func (h *ListHandler) RemoveCard(c *gin.Context) {
	id, err := parseListID(c)
	if err != nil {
		return
	}

	entryID, err := strconv.ParseUint(c.Param("cardId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry id"})
		return
	}

	db := database.GetDB()

	result := db.Where("list_id = ?", id).Delete(&models.ListCard{}, entryID)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// parseListID reads the :id path param, writing the error response itself
func parseListID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, err
	}
	return uint(id), nil
}
