package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Luigii1506/ohara-backend/internal/database"
	"github.com/Luigii1506/ohara-backend/internal/models"
	"github.com/Luigii1506/ohara-backend/internal/services"
)

type ReportHandler struct {
	salesReportService *services.SalesReportService
	reportService      *services.ReportService
	salesWorker        *services.SalesWorker
	snapshotService    *services.SnapshotService
}

func NewReportHandler(salesReport *services.SalesReportService, report *services.ReportService, salesWorker *services.SalesWorker, snapshot *services.SnapshotService) *ReportHandler {
	return &ReportHandler{
		salesReportService: salesReport,
		reportService:      report,
		salesWorker:        salesWorker,
		snapshotService:    snapshot,
	}
}

// GetSalesReport returns the raw valuation payload for a list
func (h *ReportHandler) GetSalesReport(c *gin.Context) {
	id, err := parseListID(c)
	if err != nil {
		return
	}

	report, err := h.salesReportService.BuildReport(id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrListNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "list not found"})
		case errors.Is(err, services.ErrNoData):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, report)
}

// GenerateReport starts async PDF generation for a list
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	id, err := parseListID(c)
	if err != nil {
		return
	}

	// Reject unknown lists up front; valuation errors surface through the
	// job's error phase instead
	var list models.List
	if err := database.GetDB().First(&list, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "list not found"})
		return
	}

	job, err := h.reportService.Generate(id)
	if errors.Is(err, services.ErrGenerationInFlight) {
		c.JSON(http.StatusConflict, gin.H{
			"error":  err.Error(),
			"report": job.Status(),
		})
		return
	}

	c.JSON(http.StatusAccepted, job.Status())
}

// GetReportStatus returns the generation state of a report job
func (h *ReportHandler) GetReportStatus(c *gin.Context) {
	status, err := h.reportService.Status(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	c.JSON(http.StatusOK, status)
}

// DownloadReport streams the finished PDF as an attachment
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	data, filename, err := h.reportService.Artifact(c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrReportNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		case errors.Is(err, services.ErrReportNotReady):
			c.JSON(http.StatusConflict, gin.H{"error": "report not ready"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

// DiscardReport drops a finished report and its artifact
func (h *ReportHandler) DiscardReport(c *gin.Context) {
	err := h.reportService.Discard(c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrReportNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		case errors.Is(err, services.ErrReportInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "discarded"})
}

// RefreshCardSales queues a card for an urgent sales refresh
func (h *ReportHandler) RefreshCardSales(c *gin.Context) {
	cardCode := c.Param("code")
	if cardCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "card code is required"})
		return
	}

	var card models.Card
	if err := database.GetDB().First(&card, "code = ?", cardCode).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		return
	}
	if !card.HasTCGPlayerData() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "card has no TCGPlayer data"})
		return
	}

	position := h.salesWorker.QueueRefresh(cardCode)
	c.JSON(http.StatusOK, gin.H{"queued": true, "position": position})
}

// GetSalesStatus returns sales worker and quota status
func (h *ReportHandler) GetSalesStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.salesWorker.GetStatus())
}

// GetValueHistory returns list value snapshots for charting
func (h *ReportHandler) GetValueHistory(c *gin.Context) {
	id, err := parseListID(c)
	if err != nil {
		return
	}

	period := c.DefaultQuery("period", "month")

	snapshots, err := h.snapshotService.GetHistory(id, period)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.ValueHistoryResponse{
		ListID:    id,
		Snapshots: snapshots,
		Period:    period,
	})
}
