package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Luigii1506/ohara-backend/internal/api/handlers"
	"github.com/Luigii1506/ohara-backend/internal/metrics"
	"github.com/Luigii1506/ohara-backend/internal/services"
)

func SetupRouter(salesReportService *services.SalesReportService, reportService *services.ReportService, salesWorker *services.SalesWorker, snapshotService *services.SnapshotService, proxyService *services.ImageProxyService) *gin.Engine {
	router := gin.Default()

	// Get frontend dist path from env
	frontendPath := os.Getenv("FRONTEND_DIST_PATH")
	serveFrontend := frontendPath != "" && dirExists(frontendPath)

	// CORS configuration - allow origins from environment or use defaults
	config := cors.DefaultConfig()
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		config.AllowOrigins = strings.Split(corsOrigins, ",")
	} else {
		config.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	config.AllowCredentials = false // Explicitly set
	router.Use(cors.New(config))

	// Request counter, labeled by route template rather than raw path
	router.Use(func(c *gin.Context) {
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
	})

	// Initialize handlers
	listHandler := handlers.NewListHandler()
	reportHandler := handlers.NewReportHandler(salesReportService, reportService, salesWorker, snapshotService)
	proxyHandler := handlers.NewProxyHandler(proxyService)

	// API routes
	api := router.Group("/api")
	{
		// List routes
		lists := api.Group("/lists")
		{
			lists.GET("", listHandler.GetLists)
			lists.POST("", listHandler.CreateList)
			lists.GET("/:id", listHandler.GetList)
			lists.PUT("/:id", listHandler.UpdateList)
			lists.DELETE("/:id", listHandler.DeleteList)
			lists.POST("/:id/cards", listHandler.AddCard)
			lists.PUT("/:id/cards/:cardId", listHandler.UpdateCard)
			lists.DELETE("/:id/cards/:cardId", listHandler.RemoveCard)

			lists.GET("/:id/sales-report", reportHandler.GetSalesReport)
			lists.POST("/:id/report", reportHandler.GenerateReport)
			lists.GET("/:id/value-history", reportHandler.GetValueHistory)
		}

		// Report job routes
		reports := api.Group("/reports")
		{
			reports.GET("/:id", reportHandler.GetReportStatus)
			reports.GET("/:id/download", reportHandler.DownloadReport)
			reports.DELETE("/:id", reportHandler.DiscardReport)
		}

		// Sales routes
		api.POST("/cards/:code/refresh-sales", reportHandler.RefreshCardSales)
		api.GET("/sales/status", reportHandler.GetSalesStatus)

		// Image proxy for CDNs that block cross-origin pixel reads
		api.GET("/proxy-image", proxyHandler.ProxyImage)
	}

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Serve frontend static files
	if serveFrontend {
		indexPath := filepath.Join(frontendPath, "index.html")

		// Serve static assets
		router.Static("/assets", filepath.Join(frontendPath, "assets"))

		// Serve root index.html
		router.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})

		// SPA fallback - serve index.html for all non-API routes
		router.NoRoute(func(c *gin.Context) {
			path := c.Request.URL.Path

			// Don't serve index.html for API routes
			if strings.HasPrefix(path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}

			// Serve index.html for SPA routing
			c.File(indexPath)
		})
	}

	return router
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
