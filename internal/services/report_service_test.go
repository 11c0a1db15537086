package services

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/Luigii1506/ohara-backend/internal/models"
)

func newTestReportService(t *testing.T, fetcher *fakeFetcher) (*ReportService, *SalesReportService) {
	t.Helper()
	t.Setenv("REPORTS_DIR", t.TempDir())

	db := newTestDB(t)
	sales := NewSalesReportService(db)
	materializer := NewImageMaterializer(fetcher)
	service := NewReportService(sales, materializer, NewReportComposer(), NewReportStorageService())
	return service, sales
}

func waitForTerminal(t *testing.T, job *ReportJob) models.ReportStatus {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		status := job.Status()
		if status.Phase.Terminal() && status.Phase != models.ReportPhaseIdle {
			return status
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Report job did not finish, stuck in phase %s", job.Status().Phase)
	return models.ReportStatus{}
}

func TestReportJobPhaseTransitions(t *testing.T) {
	job := &ReportJob{id: "test", phase: models.ReportPhaseIdle}

	// Skipping ahead is dropped
	job.setPhase(models.ReportPhaseGeneratingPDF)
	if job.Status().Phase != models.ReportPhaseIdle {
		t.Errorf("Illegal jump accepted, phase = %s", job.Status().Phase)
	}

	// The legal chain advances
	chain := []models.ReportPhase{
		models.ReportPhaseFetching,
		models.ReportPhaseGeneratingImages,
		models.ReportPhaseGeneratingPDF,
		models.ReportPhaseReady,
	}
	for _, next := range chain {
		job.setPhase(next)
		if job.Status().Phase != next {
			t.Fatalf("Legal transition to %s rejected, phase = %s", next, job.Status().Phase)
		}
	}

	// Terminal phases never regress
	job.setPhase(models.ReportPhaseFetching)
	if job.Status().Phase != models.ReportPhaseReady {
		t.Errorf("Ready job regressed to %s", job.Status().Phase)
	}
	job.setPhase(models.ReportPhaseIdle)
	if job.Status().Phase != models.ReportPhaseReady {
		t.Errorf("Ready job reset to %s", job.Status().Phase)
	}
}

func TestReportJobFail(t *testing.T) {
	job := &ReportJob{id: "test", phase: models.ReportPhaseIdle}

	// fail is only legal from an in-progress phase
	job.fail("boom")
	if job.Status().Phase != models.ReportPhaseIdle {
		t.Errorf("fail from idle accepted, phase = %s", job.Status().Phase)
	}

	job.setPhase(models.ReportPhaseFetching)
	job.fail("list not found")
	status := job.Status()
	if status.Phase != models.ReportPhaseError {
		t.Fatalf("Expected error phase, got %s", status.Phase)
	}
	if status.Error != "list not found" {
		t.Errorf("Error = %q, expected %q", status.Error, "list not found")
	}

	// A failed job stays failed
	job.fail("second failure")
	if job.Status().Error != "list not found" {
		t.Errorf("Second fail overwrote the first: %q", job.Status().Error)
	}
}

func TestReportStatusProgressVisibility(t *testing.T) {
	job := &ReportJob{id: "test", phase: models.ReportPhaseIdle}
	job.setPhase(models.ReportPhaseFetching)
	job.setProgress(3, 10)

	if job.Status().Progress != nil {
		t.Error("Progress should not be exposed outside generating_images")
	}

	job.setPhase(models.ReportPhaseGeneratingImages)
	status := job.Status()
	if status.Progress == nil {
		t.Fatal("Progress missing during generating_images")
	}
	if status.Progress.Current != 3 || status.Progress.Total != 10 {
		t.Errorf("Progress = %d/%d, expected 3/10", status.Progress.Current, status.Progress.Total)
	}

	job.setPhase(models.ReportPhaseGeneratingPDF)
	if job.Status().Progress != nil {
		t.Error("Progress should clear once image loading finishes")
	}
}

func TestGenerateEndToEnd(t *testing.T) {
	fetcher := newFakeFetcher(t)
	service, sales := newTestReportService(t, fetcher)
	db := sales.db

	// Two cards sharing one image URL (alt-art variants)
	sharedURL := "https://en.onepiece-cardgame.com/images/luffy.png"
	seedCard(t, db, "ST01-001", "Monkey.D.Luffy", "450001")
	seedSales(t, db, "ST01-001", 15.0, 15.0, 15.0)
	seedCard(t, db, "ST01-013", "Guard Point", "450013")
	seedSales(t, db, "ST01-013", 8.5)
	db.Model(&models.Card{}).Where("code IN ?", []string{"ST01-001", "ST01-013"}).Update("image_url", sharedURL)
	listID := seedList(t, db, "My Binder", map[string]int{"ST01-001": 2, "ST01-013": 1})

	job, err := service.Generate(listID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	status := waitForTerminal(t, job)
	if status.Phase != models.ReportPhaseReady {
		t.Fatalf("Expected ready, got %s (error: %s)", status.Phase, status.Error)
	}
	if status.Filename != "collection-report-my-binder.pdf" {
		t.Errorf("Filename = %q, expected collection-report-my-binder.pdf", status.Filename)
	}

	// qty 2 at avg 15.00 plus qty 1 at avg 8.50
	report, err := sales.BuildReport(listID)
	if err != nil {
		t.Fatalf("BuildReport failed: %v", err)
	}
	if report.TotalValue != 38.50 || report.Value80Percent != 30.80 || report.Value70Percent != 26.95 {
		t.Errorf("Totals = %v/%v/%v, expected 38.50/30.80/26.95",
			report.TotalValue, report.Value80Percent, report.Value70Percent)
	}

	// The shared image URL is fetched exactly once
	if got := fetcher.hitCount(sharedURL); got != 1 {
		t.Errorf("Shared image fetched %d times, expected 1", got)
	}

	pdfData, filename, err := service.Artifact(status.ID)
	if err != nil {
		t.Fatalf("Artifact failed: %v", err)
	}
	if !bytes.HasPrefix(pdfData, []byte("%PDF")) {
		t.Error("Artifact is not a PDF")
	}
	if filename != status.Filename {
		t.Errorf("Artifact filename %q does not match status %q", filename, status.Filename)
	}

	if err := service.Discard(status.ID); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if _, err := service.Status(status.ID); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("Expected ErrReportNotFound after discard, got %v", err)
	}
}

func TestGenerateNoValuableCards(t *testing.T) {
	fetcher := newFakeFetcher(t)
	service, sales := newTestReportService(t, fetcher)
	db := sales.db

	seedCard(t, db, "OP01-121", "Uta", "")
	listID := seedList(t, db, "no-data", map[string]int{"OP01-121": 1})

	job, err := service.Generate(listID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	status := waitForTerminal(t, job)
	if status.Phase != models.ReportPhaseError {
		t.Fatalf("Expected error phase, got %s", status.Phase)
	}
	if status.Error != "No cards with TCGPlayer data found" {
		t.Errorf("Error = %q, expected the no-data message", status.Error)
	}

	if _, _, err := service.Artifact(status.ID); !errors.Is(err, ErrReportNotReady) {
		t.Errorf("Expected ErrReportNotReady for a failed job, got %v", err)
	}
}

func TestGenerateMutualExclusionPerList(t *testing.T) {
	fetcher := newFakeFetcher(t)
	slowURL := "https://example.dotgg.gg/images/slow.png"
	fetcher.blockOn[slowURL] = true

	service, sales := newTestReportService(t, fetcher)
	service.materializer.timeout = 300 * time.Millisecond
	db := sales.db

	seedCard(t, db, "ST01-001", "Monkey.D.Luffy", "450001")
	seedSales(t, db, "ST01-001", 10.0)
	db.Model(&models.Card{}).Where("code = ?", "ST01-001").Update("image_url", slowURL)
	listID := seedList(t, db, "busy", map[string]int{"ST01-001": 1})

	first, err := service.Generate(listID)
	if err != nil {
		t.Fatalf("First Generate failed: %v", err)
	}

	// Wait until the job is demonstrably in flight
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && !first.Status().Phase.InProgress() {
		time.Sleep(5 * time.Millisecond)
	}
	if !first.Status().Phase.InProgress() {
		t.Fatal("First job never entered an in-progress phase")
	}

	second, err := service.Generate(listID)
	if !errors.Is(err, ErrGenerationInFlight) {
		t.Fatalf("Expected ErrGenerationInFlight, got %v", err)
	}
	if second != first {
		t.Error("Conflicting Generate should return the in-flight job")
	}
	if err := service.Discard(first.Status().ID); !errors.Is(err, ErrReportInProgress) {
		t.Errorf("Expected ErrReportInProgress discarding an in-flight job, got %v", err)
	}

	// The blocked image times out into a placeholder and the job completes
	status := waitForTerminal(t, first)
	if status.Phase != models.ReportPhaseReady {
		t.Fatalf("Expected ready after image timeout, got %s (error: %s)", status.Phase, status.Error)
	}

	// A finished job no longer blocks a new generation
	third, err := service.Generate(listID)
	if err != nil {
		t.Fatalf("Generate after completion failed: %v", err)
	}
	if third == first {
		t.Error("Finished job was reused instead of replaced")
	}
	waitForTerminal(t, third)
}

func TestReportFilename(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"My Binder", "collection-report-my-binder.pdf"},
		{"OP-05 Box (Sealed!)", "collection-report-op-05-box--sealed--.pdf"},
		{"straw hats", "collection-report-straw-hats.pdf"},
	}

	for _, test := range tests {
		if got := ReportFilename(test.name); got != test.expected {
			t.Errorf("ReportFilename(%q) = %q, expected %q", test.name, got, test.expected)
		}
	}
}
