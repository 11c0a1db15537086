package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Luigii1506/ohara-backend/internal/api"
	"github.com/Luigii1506/ohara-backend/internal/database"
	"github.com/Luigii1506/ohara-backend/internal/services"
)

func main() {
	// Database path
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./ohara.db"
	}

	// Initialize database
	if err := database.Initialize(dbPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize TCGPlayer sales service
	tcgPlayerAPIKey := os.Getenv("TCGPLAYER_API_KEY")
	tcgPlayerDailyLimit := 200
	if limitStr := os.Getenv("TCGPLAYER_DAILY_LIMIT"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			tcgPlayerDailyLimit = limit
		}
	}
	tcgPlayerService := services.NewTCGPlayerService(tcgPlayerAPIKey, tcgPlayerDailyLimit)

	// Initialize sales report service (valuation arithmetic over stored sales)
	salesReportService := services.NewSalesReportService(database.GetDB())

	// Initialize sales worker to keep stored sales fresh in the background
	salesWorker := services.NewSalesWorker(salesReportService, tcgPlayerService)

	// Initialize image proxy and materializer for report generation
	proxyService := services.NewImageProxyService()
	materializer := services.NewImageMaterializer(proxyService)

	// Initialize report pipeline: composer, artifact storage, orchestration
	composer := services.NewReportComposer()
	reportStorage := services.NewReportStorageService()
	reportService := services.NewReportService(salesReportService, materializer, composer, reportStorage)

	// Initialize snapshot service for daily list value tracking
	snapshotService := services.NewSnapshotService(salesReportService)

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start sales worker in background with panic recovery
	go func() {
		for {
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Printf("PANIC in sales worker: %v - restarting in 30 seconds", r)
					}
				}()
				salesWorker.Start(ctx)
			}()

			select {
			case <-ctx.Done():
				return // Graceful shutdown
			case <-time.After(30 * time.Second):
				log.Println("Sales worker restarting after panic recovery...")
			}
		}
	}()

	// Start snapshot service in background
	go snapshotService.Start(ctx)

	// Setup router
	router := api.SetupRouter(salesReportService, reportService, salesWorker, snapshotService, proxyService)

	// Get port from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Create HTTP server for graceful shutdown
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Cancel the context to stop the background workers
	cancel()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
