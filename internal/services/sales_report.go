package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Luigii1506/ohara-backend/internal/models"
)

const (
	// topSalesCount is how many recent sales feed the per-card average
	topSalesCount = 3

	// SalesStalenessThreshold is how old fetched sales can be before a card
	// is queued for a background refresh
	SalesStalenessThreshold = 24 * time.Hour
)

var (
	// ErrListNotFound means the requested list does not exist
	ErrListNotFound = errors.New("list not found")

	// ErrNoData means the list has no cards that can be valued
	ErrNoData = errors.New("No cards with TCGPlayer data found")
)

// SalesReportService assembles the valuation payload for a list: per-card
// recent sales, top-3 averages, subtotals and the negotiation totals.
type SalesReportService struct {
	db *gorm.DB
}

// NewSalesReportService creates a new sales report service
func NewSalesReportService(db *gorm.DB) *SalesReportService {
	return &SalesReportService{db: db}
}

// BuildReport loads a list and values every card in it.
// Returns ErrListNotFound for a missing list and ErrNoData when no card in
// the list carries TCGPlayer data.
func (s *SalesReportService) BuildReport(listID uint) (*models.CollectionReportData, error) {
	var list models.List
	if err := s.db.First(&list, listID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListNotFound
		}
		return nil, fmt.Errorf("failed to load list: %w", err)
	}

	var entries []models.ListCard
	if err := s.db.Preload("Card").
		Where("list_id = ?", listID).
		Order("card_code ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load list cards: %w", err)
	}

	valuable := 0
	for _, e := range entries {
		if e.Card.HasTCGPlayerData() {
			valuable++
		}
	}
	if valuable == 0 {
		return nil, ErrNoData
	}

	report := &models.CollectionReportData{
		ListName:    list.Name,
		GeneratedAt: time.Now(),
		TotalCards:  len(entries),
		Cards:       make([]models.CardValuation, 0, len(entries)),
	}

	for _, e := range entries {
		report.TotalQuantity += e.Quantity
		valuation := s.valueCard(e)
		if valuation.TopThreeAverage != nil {
			report.SuccessfulLookups++
		} else {
			report.FailedLookups++
		}
		report.TotalValue += valuation.Subtotal
		report.Cards = append(report.Cards, valuation)
	}

	report.TotalValue = RoundCents(report.TotalValue)
	report.Value80Percent = RoundCents(report.TotalValue * 0.80)
	report.Value70Percent = RoundCents(report.TotalValue * 0.70)

	return report, nil
}

// valueCard computes one CardValuation from the card's most recent sales.
// Cards without a TCGPlayer ID are reported as lookup failures; cards with
// an ID but no recorded sales get a nil average and a zero subtotal.
func (s *SalesReportService) valueCard(entry models.ListCard) models.CardValuation {
	valuation := models.CardValuation{
		CardCode: entry.CardCode,
		CardName: entry.Card.Name,
		CardSrc:  entry.Card.ImageURL,
		Quantity: entry.Quantity,
	}

	if !entry.Card.HasTCGPlayerData() {
		valuation.Error = "No TCGPlayer ID"
		return valuation
	}

	var sales []models.CardSale
	if err := s.db.Where("card_code = ?", entry.CardCode).
		Order("order_date DESC").
		Limit(topSalesCount).
		Find(&sales).Error; err != nil {
		valuation.Error = fmt.Sprintf("Sales lookup failed: %v", err)
		return valuation
	}

	if len(sales) == 0 {
		return valuation
	}

	sum := 0.0
	for _, sale := range sales {
		valuation.LastSales = append(valuation.LastSales, models.SaleLine{
			OrderDate:     sale.OrderDate,
			Condition:     sale.Condition,
			PurchasePrice: sale.PurchasePrice,
		})
		sum += sale.PurchasePrice
	}

	avg := RoundCents(sum / float64(len(sales)))
	valuation.TopThreeAverage = &avg
	valuation.Subtotal = RoundCents(avg * float64(entry.Quantity))

	return valuation
}

// ComputeListValue returns the unique card count, total quantity and total
// top-3-average value of a list. Used by the daily snapshot worker; shares
// the valuation rules of BuildReport but tolerates unvaluable lists.
func (s *SalesReportService) ComputeListValue(listID uint) (totalCards, totalQuantity int, totalValue float64, err error) {
	var entries []models.ListCard
	if err = s.db.Preload("Card").Where("list_id = ?", listID).Find(&entries).Error; err != nil {
		return 0, 0, 0, fmt.Errorf("failed to load list cards: %w", err)
	}

	for _, e := range entries {
		totalQuantity += e.Quantity
		v := s.valueCard(e)
		totalValue += v.Subtotal
	}

	return len(entries), totalQuantity, RoundCents(totalValue), nil
}

// NeedsSalesRefresh returns true if the card's sales are stale or missing
func (s *SalesReportService) NeedsSalesRefresh(card *models.Card) bool {
	if !card.HasTCGPlayerData() {
		return false // Nothing to refresh against
	}
	if card.LastSalesCheck == nil {
		return true
	}
	return time.Since(*card.LastSalesCheck) >= SalesStalenessThreshold
}

// SaveCardSales replaces the stored sales for a card with a freshly fetched
// set and stamps the card's LastSalesCheck.
func (s *SalesReportService) SaveCardSales(cardCode string, sales []models.CardSale) error {
	for i := range sales {
		sales[i].CardCode = cardCode
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("card_code = ?", cardCode).Delete(&models.CardSale{}).Error; err != nil {
			return err
		}
		if len(sales) > 0 {
			if err := tx.Create(&sales).Error; err != nil {
				return err
			}
		}
		now := time.Now()
		return tx.Model(&models.Card{}).
			Where("code = ?", cardCode).
			Update("last_sales_check", &now).Error
	})
}
