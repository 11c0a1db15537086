package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Luigii1506/ohara-backend/internal/database"
	"github.com/Luigii1506/ohara-backend/internal/models"
)

// SnapshotService records daily per-list value snapshots for charting
type SnapshotService struct {
	reportService *SalesReportService
	mu            sync.Mutex
	lastSnapshot  time.Time
	snapshotHour  int // Hour of day to take snapshots (0-23)
	checkInterval time.Duration
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(reportService *SalesReportService) *SnapshotService {
	return &SnapshotService{
		reportService: reportService,
		snapshotHour:  23, // Default: 11 PM
		checkInterval: 15 * time.Minute,
	}
}

// Start begins the background snapshot worker
func (s *SnapshotService) Start(ctx context.Context) {
	log.Println("Snapshot service started: will record daily list values")

	// Check if we need snapshots for today on startup
	s.checkAndSnapshot()

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Snapshot service stopping...")
			return
		case <-ticker.C:
			s.checkAndSnapshot()
		}
	}
}

// checkAndSnapshot takes today's snapshots once the configured hour passes
func (s *SnapshotService) checkAndSnapshot() {
	now := time.Now()
	if now.Hour() < s.snapshotHour {
		return
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if s.hasSnapshotsForDate(today) {
		return
	}

	if err := s.TakeSnapshots(); err != nil {
		log.Printf("Snapshot service: failed to take snapshots: %v", err)
	}
}

// hasSnapshotsForDate checks if any snapshot exists for the given date
func (s *SnapshotService) hasSnapshotsForDate(date time.Time) bool {
	db := database.GetDB()

	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	var count int64
	db.Model(&models.ListValueSnapshot{}).
		Where("snapshot_date >= ? AND snapshot_date < ?", startOfDay, endOfDay).
		Count(&count)

	return count > 0
}

// TakeSnapshots records the current value of every list
func (s *SnapshotService) TakeSnapshots() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db := database.GetDB()
	now := time.Now()
	snapshotDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var lists []models.List
	if err := db.Find(&lists).Error; err != nil {
		return err
	}

	for _, list := range lists {
		totalCards, totalQuantity, totalValue, err := s.reportService.ComputeListValue(list.ID)
		if err != nil {
			log.Printf("Snapshot service: failed to value list %d: %v", list.ID, err)
			continue
		}

		snapshot := models.ListValueSnapshot{
			ListID:        list.ID,
			SnapshotDate:  snapshotDate,
			TotalCards:    totalCards,
			TotalQuantity: totalQuantity,
			TotalValue:    totalValue,
			CreatedAt:     now,
		}

		// Upsert per list+date
		result := db.Where("list_id = ? AND DATE(snapshot_date) = DATE(?)", list.ID, snapshotDate).
			Assign(models.ListValueSnapshot{
				TotalCards:    snapshot.TotalCards,
				TotalQuantity: snapshot.TotalQuantity,
				TotalValue:    snapshot.TotalValue,
			}).
			FirstOrCreate(&snapshot)
		if result.Error != nil {
			log.Printf("Snapshot service: failed to save snapshot for list %d: %v", list.ID, result.Error)
			continue
		}

		log.Printf("Snapshot service: recorded %s for list %q (total: %s, cards: %d)",
			snapshotDate.Format("2006-01-02"), list.Name, FormatPDFCurrency(totalValue), totalCards)
	}

	s.lastSnapshot = now
	return nil
}

// GetHistory retrieves value snapshots for a list over a given period
func (s *SnapshotService) GetHistory(listID uint, period string) ([]models.ListValueSnapshot, error) {
	db := database.GetDB()
	var snapshots []models.ListValueSnapshot

	now := time.Now()
	var startDate time.Time

	switch period {
	case "week":
		startDate = now.AddDate(0, 0, -7)
	case "month":
		startDate = now.AddDate(0, -1, 0)
	case "3month":
		startDate = now.AddDate(0, -3, 0)
	case "year":
		startDate = now.AddDate(-1, 0, 0)
	case "all":
		startDate = time.Time{} // No filter
	default:
		startDate = now.AddDate(0, -1, 0) // Default to 1 month
	}

	query := db.Where("list_id = ?", listID).Order("snapshot_date ASC")
	if !startDate.IsZero() {
		query = query.Where("snapshot_date >= ?", startDate)
	}

	if err := query.Find(&snapshots).Error; err != nil {
		return nil, err
	}

	return snapshots, nil
}
