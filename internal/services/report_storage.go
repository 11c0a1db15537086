package services

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ReportStorageService persists finished report PDFs to disk
type ReportStorageService struct {
	storageDir string
}

// NewReportStorageService creates a new report storage service
func NewReportStorageService() *ReportStorageService {
	storageDir := os.Getenv("REPORTS_DIR")
	if storageDir == "" {
		storageDir = "./data/reports"
	}

	// Ensure the storage directory exists
	if err := os.MkdirAll(storageDir, 0755); err != nil {
		// Log error but don't fail - will fail on actual writes
		fmt.Printf("Warning: could not create reports directory: %v\n", err)
	}

	return &ReportStorageService{
		storageDir: storageDir,
	}
}

// SaveReport writes PDF bytes to disk under a unique filename and returns it
func (s *ReportStorageService) SaveReport(pdfData []byte) (string, error) {
	if len(pdfData) == 0 {
		return "", fmt.Errorf("empty report data")
	}

	filename := uuid.New().String() + ".pdf"
	filePath := filepath.Join(s.storageDir, filename)

	if err := os.WriteFile(filePath, pdfData, 0644); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	return filename, nil
}

// DeleteReport removes a stored report file. Missing files are not an error.
func (s *ReportStorageService) DeleteReport(filename string) error {
	if filename == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.storageDir, filename))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// GetStorageDir returns the storage directory path
func (s *ReportStorageService) GetStorageDir() string {
	return s.storageDir
}
