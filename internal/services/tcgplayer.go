package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Luigii1506/ohara-backend/internal/models"
)

const (
	tcgPlayerBaseURL        = "https://mpapi.tcgplayer.com/v2"
	tcgPlayerDefaultTimeout = 10 * time.Second
)

// TCGPlayerService fetches recent sales data from the TCGPlayer
// marketplace API
type TCGPlayerService struct {
	client     *http.Client
	apiKey     string
	baseURL    string
	dailyLimit int

	// Rate limiting
	mu             sync.Mutex
	requestsToday  int
	lastRequestDay time.Time
}

// tcgPlayerSalesResponse represents the API response for latest-sales queries
type tcgPlayerSalesResponse struct {
	Success bool                `json:"success"`
	Data    []tcgPlayerSaleData `json:"data"`
	Error   string              `json:"error,omitempty"`
}

// tcgPlayerSaleData is a single completed sale
type tcgPlayerSaleData struct {
	OrderDate     string  `json:"orderDate"` // RFC 3339
	Condition     string  `json:"condition"` // "Near Mint", "Lightly Played", ...
	PurchasePrice float64 `json:"purchasePrice"`
	Quantity      int     `json:"quantity"`
}

// NewTCGPlayerService creates a new TCGPlayer sales service
func NewTCGPlayerService(apiKey string, dailyLimit int) *TCGPlayerService {
	if dailyLimit <= 0 {
		dailyLimit = 200 // Default conservative limit
	}

	return &TCGPlayerService{
		client: &http.Client{
			Timeout: tcgPlayerDefaultTimeout,
		},
		apiKey:     apiKey,
		baseURL:    tcgPlayerBaseURL,
		dailyLimit: dailyLimit,
	}
}

// checkRateLimit checks if we can make another request today
// Returns true if request can proceed, false if rate limited
func (s *TCGPlayerService) checkRateLimit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	// Reset counter if new day
	if s.lastRequestDay.Before(today) {
		s.requestsToday = 0
		s.lastRequestDay = today
	}

	if s.requestsToday >= s.dailyLimit {
		return false
	}

	s.requestsToday++
	return true
}

// GetRequestsRemaining returns the number of requests remaining today
func (s *TCGPlayerService) GetRequestsRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	// Counter would reset on the next request
	if s.lastRequestDay.Before(today) {
		return s.dailyLimit
	}

	remaining := s.dailyLimit - s.requestsToday
	if remaining < 0 {
		return 0
	}
	return remaining
}

// GetDailyLimit returns the configured daily limit
func (s *TCGPlayerService) GetDailyLimit() int {
	return s.dailyLimit
}

// GetResetTime returns the next daily reset time (midnight)
func (s *TCGPlayerService) GetResetTime() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).Add(24 * time.Hour)
}

// GetLatestSales fetches the most recent completed sales for a TCGPlayer
// product. Results are ordered newest first by the API.
func (s *TCGPlayerService) GetLatestSales(ctx context.Context, tcgPlayerID string, limit int) ([]models.CardSale, error) {
	if tcgPlayerID == "" {
		return nil, fmt.Errorf("tcgplayer id is required")
	}
	if !s.checkRateLimit() {
		return nil, fmt.Errorf("TCGPlayer daily rate limit exceeded")
	}
	if limit <= 0 {
		limit = 25
	}

	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("mpfev", "3279")

	reqURL := fmt.Sprintf("%s/product/%s/latestsales?%s", s.baseURL, url.PathEscape(tcgPlayerID), params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sales: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TCGPlayer API error: status %d", resp.StatusCode)
	}

	var salesResp tcgPlayerSalesResponse
	if err := json.NewDecoder(resp.Body).Decode(&salesResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !salesResp.Success {
		if salesResp.Error != "" {
			return nil, fmt.Errorf("TCGPlayer API error: %s", salesResp.Error)
		}
		return nil, fmt.Errorf("TCGPlayer API returned unsuccessful response")
	}

	now := time.Now()
	var sales []models.CardSale
	for _, d := range salesResp.Data {
		orderDate, err := time.Parse(time.RFC3339, d.OrderDate)
		if err != nil {
			// Some sales come back with a date-only form
			orderDate, err = time.Parse("2006-01-02", d.OrderDate)
			if err != nil {
				continue
			}
		}

		sales = append(sales, models.CardSale{
			OrderDate:     orderDate,
			Condition:     models.NormalizeSaleCondition(d.Condition),
			PurchasePrice: d.PurchasePrice,
			Source:        "tcgplayer",
			FetchedAt:     &now,
		})
	}

	return sales, nil
}
