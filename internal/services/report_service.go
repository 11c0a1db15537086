package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Luigii1506/ohara-backend/internal/metrics"
	"github.com/Luigii1506/ohara-backend/internal/models"
)

var (
	// ErrReportNotFound means the job ID is unknown
	ErrReportNotFound = errors.New("report not found")

	// ErrReportNotReady means the artifact was requested before generation finished
	ErrReportNotReady = errors.New("report not ready")

	// ErrGenerationInFlight means the list already has a report generating.
	// The phase field is the mutual-exclusion flag: only a terminal phase
	// admits a new generation.
	ErrGenerationInFlight = errors.New("report generation already in progress for this list")

	// ErrReportInProgress guards against discarding a job mid-generation
	ErrReportInProgress = errors.New("report generation in progress")
)

// ReportJob tracks one report generation from idle to ready/error
type ReportJob struct {
	mu sync.Mutex

	id         string
	listID     uint
	phase      models.ReportPhase
	progress   *models.ReportProgress
	errMsg     string
	artifact   []byte
	filename   string // download filename built from the list name
	storedFile string // on-disk archive filename
	createdAt  time.Time
	updatedAt  time.Time
}

// setPhase is the single transition function. Illegal transitions are
// dropped and logged; error is reachable only from in-progress phases.
func (j *ReportJob) setPhase(next models.ReportPhase) {
	j.mu.Lock()
	defer j.mu.Unlock()

	legal := false
	switch next {
	case models.ReportPhaseFetching:
		legal = j.phase == models.ReportPhaseIdle
	case models.ReportPhaseGeneratingImages:
		legal = j.phase == models.ReportPhaseFetching
	case models.ReportPhaseGeneratingPDF:
		legal = j.phase == models.ReportPhaseGeneratingImages
	case models.ReportPhaseReady:
		legal = j.phase == models.ReportPhaseGeneratingPDF
	case models.ReportPhaseError:
		legal = j.phase.InProgress()
	case models.ReportPhaseIdle:
		legal = false // idle is only ever the initial state
	}

	if !legal {
		log.Printf("Report %s: dropped illegal phase transition %s -> %s", j.id, j.phase, next)
		return
	}

	j.phase = next
	j.updatedAt = time.Now()
}

func (j *ReportJob) setProgress(current, total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress = &models.ReportProgress{Current: current, Total: total}
	j.updatedAt = time.Now()
}

func (j *ReportJob) fail(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.phase.InProgress() {
		log.Printf("Report %s: dropped illegal phase transition %s -> %s", j.id, j.phase, models.ReportPhaseError)
		return
	}
	j.phase = models.ReportPhaseError
	j.errMsg = msg
	j.updatedAt = time.Now()
}

// Status returns a snapshot of the job for the API
func (j *ReportJob) Status() models.ReportStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	status := models.ReportStatus{
		ID:        j.id,
		ListID:    j.listID,
		Phase:     j.phase,
		Error:     j.errMsg,
		CreatedAt: j.createdAt,
		UpdatedAt: j.updatedAt,
	}
	if j.progress != nil && j.phase == models.ReportPhaseGeneratingImages {
		p := *j.progress
		status.Progress = &p
	}
	if j.phase == models.ReportPhaseReady {
		status.Filename = j.filename
	}
	return status
}

// ReportService orchestrates report generation: one job per list at a time,
// phases advancing fetch -> images -> pdf -> ready with error reachable from
// any in-progress phase.
type ReportService struct {
	sales        *SalesReportService
	materializer *ImageMaterializer
	composer     *ReportComposer
	storage      *ReportStorageService

	mu     sync.Mutex
	jobs   map[string]*ReportJob
	byList map[uint]*ReportJob
}

// NewReportService creates a new report service
func NewReportService(sales *SalesReportService, materializer *ImageMaterializer, composer *ReportComposer, storage *ReportStorageService) *ReportService {
	return &ReportService{
		sales:        sales,
		materializer: materializer,
		composer:     composer,
		storage:      storage,
		jobs:         make(map[string]*ReportJob),
		byList:       make(map[uint]*ReportJob),
	}
}

// Generate starts report generation for a list. If the list already has a
// job in flight the existing job is returned with ErrGenerationInFlight; a
// finished (ready/error) job is replaced.
func (s *ReportService) Generate(listID uint) (*ReportJob, error) {
	s.mu.Lock()
	if existing, ok := s.byList[listID]; ok {
		if existing.Status().Phase.InProgress() {
			s.mu.Unlock()
			return existing, ErrGenerationInFlight
		}
		delete(s.jobs, existing.id)
	}

	job := &ReportJob{
		id:        uuid.New().String(),
		listID:    listID,
		phase:     models.ReportPhaseIdle,
		createdAt: time.Now(),
		updatedAt: time.Now(),
	}
	s.jobs[job.id] = job
	s.byList[listID] = job
	s.mu.Unlock()

	go s.run(context.Background(), job)

	return job, nil
}

// run drives one generation end to end. Image failures degrade to
// placeholders inside the materializer; everything else aborts the job.
func (s *ReportService) run(ctx context.Context, job *ReportJob) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in report generation for list %d: %v", job.listID, r)
			job.fail(fmt.Sprintf("unexpected error: %v", r))
			metrics.ReportsFailedTotal.Inc()
		}
	}()

	job.setPhase(models.ReportPhaseFetching)
	data, err := s.sales.BuildReport(job.listID)
	if err != nil {
		job.fail(err.Error())
		metrics.ReportsFailedTotal.Inc()
		return
	}

	job.setPhase(models.ReportPhaseGeneratingImages)
	images := s.materializer.MaterializeAll(ctx, data.Cards, job.setProgress)

	job.setPhase(models.ReportPhaseGeneratingPDF)
	pdfData, err := s.composer.Compose(data, images)
	if err != nil {
		job.fail(err.Error())
		metrics.ReportsFailedTotal.Inc()
		return
	}

	// Archive to disk; the in-memory artifact still serves downloads if
	// the write fails
	storedFile, err := s.storage.SaveReport(pdfData)
	if err != nil {
		log.Printf("Report %s: failed to archive PDF: %v", job.id, err)
	}

	job.mu.Lock()
	job.artifact = pdfData
	job.filename = ReportFilename(data.ListName)
	job.storedFile = storedFile
	job.mu.Unlock()
	job.setPhase(models.ReportPhaseReady)

	metrics.ReportsGeneratedTotal.Inc()
	metrics.ReportDuration.Observe(time.Since(start).Seconds())
	log.Printf("Report %s: generated for list %d (%d cards, %s) in %s",
		job.id, job.listID, data.TotalCards, FormatPDFCurrency(data.TotalValue), time.Since(start).Round(time.Millisecond))
}

// Status returns the job status by ID
func (s *ReportService) Status(jobID string) (models.ReportStatus, error) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	s.mu.Unlock()
	if !ok {
		return models.ReportStatus{}, ErrReportNotFound
	}
	return job.Status(), nil
}

// Artifact returns the finished PDF bytes and download filename
func (s *ReportService) Artifact(jobID string) ([]byte, string, error) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	s.mu.Unlock()
	if !ok {
		return nil, "", ErrReportNotFound
	}

	job.mu.Lock()
	defer job.mu.Unlock()
	if job.phase != models.ReportPhaseReady {
		return nil, "", ErrReportNotReady
	}
	return job.artifact, job.filename, nil
}

// Discard drops a finished job and its archived file. Jobs still generating
// are protected, mirroring the UI guard against closing the panel mid-run.
func (s *ReportService) Discard(jobID string) error {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	s.mu.Unlock()
	if !ok {
		return ErrReportNotFound
	}

	if job.Status().Phase.InProgress() {
		return ErrReportInProgress
	}

	s.mu.Lock()
	delete(s.jobs, jobID)
	if s.byList[job.listID] == job {
		delete(s.byList, job.listID)
	}
	s.mu.Unlock()

	job.mu.Lock()
	stored := job.storedFile
	job.artifact = nil
	job.mu.Unlock()

	if err := s.storage.DeleteReport(stored); err != nil {
		log.Printf("Report %s: failed to delete archived PDF: %v", jobID, err)
	}
	return nil
}

// ReportFilename builds the download filename from a list name: lowercased,
// every character outside [a-z0-9] replaced with a dash.
func ReportFilename(listName string) string {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, strings.ToLower(listName))
	return "collection-report-" + sanitized + ".pdf"
}
