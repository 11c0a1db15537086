package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Luigii1506/ohara-backend/internal/database"
	"github.com/Luigii1506/ohara-backend/internal/metrics"
	"github.com/Luigii1506/ohara-backend/internal/models"
)

const (
	// defaultSalesBatchSize is the number of cards refreshed per batch.
	// Each card costs one TCGPlayer request, so this stays well under the
	// daily quota.
	defaultSalesBatchSize = 20

	// salesFetchLimit is how many recent sales to request per card; only
	// the top 3 feed the valuation but extra history smooths the next run
	salesFetchLimit = 25
)

// SalesWorker refreshes stored marketplace sales in the background so
// report generation never calls out to TCGPlayer inline.
type SalesWorker struct {
	reportService *SalesReportService
	tcgPlayer     *TCGPlayerService
	batchSize     int
	interval      time.Duration
	mu            sync.RWMutex

	// Priority queue for user-requested refreshes
	urgentQueue []string
	urgentMu    sync.Mutex

	// Stats (reset at midnight)
	cardsRefreshedToday int
	lastRefreshTime     time.Time
	lastStatsDay        time.Time
}

// SalesWorkerStatus is the API view of the worker
type SalesWorkerStatus struct {
	LastRefreshTime     time.Time `json:"last_refresh_time"`
	NextRefreshTime     time.Time `json:"next_refresh_time"`
	CardsRefreshedToday int       `json:"cards_refreshed_today"`
	BatchSize           int       `json:"batch_size"`
	QueueSize           int       `json:"queue_size"`

	// TCGPlayer quota info
	DailyLimit int       `json:"daily_limit"`
	Remaining  int       `json:"remaining"`
	ResetsAt   time.Time `json:"resets_at,omitempty"`
}

// NewSalesWorker creates a new sales refresh worker
func NewSalesWorker(reportService *SalesReportService, tcgPlayer *TCGPlayerService) *SalesWorker {
	return &SalesWorker{
		reportService: reportService,
		tcgPlayer:     tcgPlayer,
		batchSize:     defaultSalesBatchSize,
		interval:      15 * time.Minute,
	}
}

// QueueRefresh adds a card to the high-priority refresh queue and returns
// its queue position (1-indexed)
func (w *SalesWorker) QueueRefresh(cardCode string) int {
	w.urgentMu.Lock()
	defer w.urgentMu.Unlock()

	for i, code := range w.urgentQueue {
		if code == cardCode {
			return i + 1
		}
	}
	w.urgentQueue = append(w.urgentQueue, cardCode)
	log.Printf("Sales worker: queued refresh for card %s (queue size: %d)", cardCode, len(w.urgentQueue))
	return len(w.urgentQueue)
}

// GetQueueSize returns current urgent queue size
func (w *SalesWorker) GetQueueSize() int {
	w.urgentMu.Lock()
	defer w.urgentMu.Unlock()
	return len(w.urgentQueue)
}

// resetDailyStatsIfNeeded resets cardsRefreshedToday at midnight
func (w *SalesWorker) resetDailyStatsIfNeeded() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if w.lastStatsDay.Before(today) {
		if !w.lastStatsDay.IsZero() {
			log.Printf("Sales worker: daily stats reset (previous day: %d cards refreshed)", w.cardsRefreshedToday)
		}
		w.cardsRefreshedToday = 0
		w.lastStatsDay = today
	}
}

// Start begins the background sales refresh worker
func (w *SalesWorker) Start(ctx context.Context) {
	log.Printf("Sales worker started: will refresh up to %d cards every %v", w.batchSize, w.interval)

	// Run immediately on startup
	if refreshed, err := w.RefreshBatch(ctx); err != nil {
		log.Printf("Sales worker: initial batch failed: %v", err)
	} else {
		log.Printf("Sales worker: initial batch refreshed %d cards", refreshed)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Sales worker stopping...")
			return
		case <-ticker.C:
			if refreshed, err := w.RefreshBatch(ctx); err != nil {
				log.Printf("Sales worker: batch failed: %v", err)
			} else if refreshed > 0 {
				log.Printf("Sales worker: batch refreshed %d cards", refreshed)
			}
		}
	}
}

// RefreshBatch refreshes a batch of cards with priority ordering:
// 1. User-requested refreshes
// 2. Listed cards never checked
// 3. Listed cards with the oldest sales data
func (w *SalesWorker) RefreshBatch(ctx context.Context) (refreshed int, err error) {
	w.resetDailyStatsIfNeeded()

	// Skip batch if quota is exhausted
	if w.tcgPlayer.GetRequestsRemaining() == 0 {
		resetTime := w.tcgPlayer.GetResetTime()
		log.Printf("Sales worker: TCGPlayer quota exhausted, skipping until %s", resetTime.Format("15:04"))
		return 0, nil
	}

	db := database.GetDB()
	var cardsToRefresh []models.Card
	var cardCodes []string

	// Priority 1: User-requested refreshes
	w.urgentMu.Lock()
	urgentCodes := w.urgentQueue
	if len(urgentCodes) > w.batchSize {
		urgentCodes = urgentCodes[:w.batchSize]
		w.urgentQueue = w.urgentQueue[w.batchSize:]
	} else {
		w.urgentQueue = nil
	}
	w.urgentMu.Unlock()

	if len(urgentCodes) > 0 {
		var urgentCards []models.Card
		db.Where("code IN ? AND tcg_player_id != ''", urgentCodes).Find(&urgentCards)
		cardsToRefresh = append(cardsToRefresh, urgentCards...)
		for _, c := range urgentCards {
			cardCodes = append(cardCodes, c.Code)
		}
		log.Printf("Sales worker: processing %d urgent refresh requests", len(urgentCards))
	}

	remaining := w.batchSize - len(cardsToRefresh)

	// Priority 2: Listed cards never checked
	if remaining > 0 {
		var uncheckedCards []models.Card
		query := `
			SELECT DISTINCT c.* FROM cards c
			INNER JOIN list_cards lc ON lc.card_code = c.code
			WHERE c.tcg_player_id != '' AND c.last_sales_check IS NULL
		`
		if len(cardCodes) > 0 {
			db.Raw(query+" AND c.code NOT IN (?) LIMIT ?", cardCodes, remaining).Scan(&uncheckedCards)
		} else {
			db.Raw(query+" LIMIT ?", remaining).Scan(&uncheckedCards)
		}
		cardsToRefresh = append(cardsToRefresh, uncheckedCards...)
		for _, c := range uncheckedCards {
			cardCodes = append(cardCodes, c.Code)
		}
		remaining -= len(uncheckedCards)
	}

	// Priority 3: Listed cards with the oldest sales data
	if remaining > 0 {
		var oldestCards []models.Card
		staleBefore := time.Now().Add(-SalesStalenessThreshold)
		query := `
			SELECT DISTINCT c.* FROM cards c
			INNER JOIN list_cards lc ON lc.card_code = c.code
			WHERE c.tcg_player_id != '' AND c.last_sales_check < ?
		`
		if len(cardCodes) > 0 {
			db.Raw(query+" AND c.code NOT IN (?) ORDER BY c.last_sales_check ASC LIMIT ?",
				staleBefore, cardCodes, remaining).Scan(&oldestCards)
		} else {
			db.Raw(query+" ORDER BY c.last_sales_check ASC LIMIT ?",
				staleBefore, remaining).Scan(&oldestCards)
		}
		cardsToRefresh = append(cardsToRefresh, oldestCards...)
	}

	if len(cardsToRefresh) == 0 {
		return 0, nil
	}

	log.Printf("Sales worker: refreshing sales for %d cards", len(cardsToRefresh))

	start := time.Now()
	for _, card := range cardsToRefresh {
		select {
		case <-ctx.Done():
			return refreshed, ctx.Err()
		default:
		}

		if _, err := w.RefreshCard(ctx, &card); err != nil {
			log.Printf("Sales worker: refresh failed for %s: %v", card.Code, err)
			continue
		}
		refreshed++
	}

	w.mu.Lock()
	w.cardsRefreshedToday += refreshed
	w.lastRefreshTime = time.Now()
	w.mu.Unlock()

	metrics.SalesRefreshesTotal.Add(float64(refreshed))
	metrics.SalesBatchDuration.Observe(time.Since(start).Seconds())
	metrics.TCGPlayerQuotaRemaining.Set(float64(w.tcgPlayer.GetRequestsRemaining()))
	metrics.TCGPlayerQuotaLimit.Set(float64(w.tcgPlayer.GetDailyLimit()))

	return refreshed, nil
}

// RefreshCard fetches and stores fresh sales for a single card
func (w *SalesWorker) RefreshCard(ctx context.Context, card *models.Card) (int, error) {
	sales, err := w.tcgPlayer.GetLatestSales(ctx, card.TCGPlayerID, salesFetchLimit)
	if err != nil {
		metrics.SalesRefreshErrorsTotal.Inc()
		return 0, err
	}

	if err := w.reportService.SaveCardSales(card.Code, sales); err != nil {
		return 0, err
	}

	return len(sales), nil
}

// GetStatus returns current worker and quota state
func (w *SalesWorker) GetStatus() SalesWorkerStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return SalesWorkerStatus{
		LastRefreshTime:     w.lastRefreshTime,
		NextRefreshTime:     w.lastRefreshTime.Add(w.interval),
		CardsRefreshedToday: w.cardsRefreshedToday,
		BatchSize:           w.batchSize,
		QueueSize:           w.GetQueueSize(),
		DailyLimit:          w.tcgPlayer.GetDailyLimit(),
		Remaining:           w.tcgPlayer.GetRequestsRemaining(),
		ResetsAt:            w.tcgPlayer.GetResetTime(),
	}
}
