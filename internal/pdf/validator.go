package pdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical/pdf-compressor/internal/domain"
	"github.com/spherical/pdf-compressor/internal/observability"
)

// AdvisoryMaxSize is the input size above which processing is expected to be
// slow. It is never enforced here.
const AdvisoryMaxSize = 100 * 1024 * 1024

// headerWindow is how far into the input the %PDF- marker may appear.
const headerWindow = 1024

var pdfMagic = []byte("%PDF-")

// Validator provides input validation for PDF files
type Validator struct {
	logger *observability.Logger
}

// NewValidator creates a new validator instance
func NewValidator(logger *observability.Logger) *Validator {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Validator{logger: logger}
}

// ValidatePDFPath validates that a file path is valid and points to a PDF
func (v *Validator) ValidatePDFPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.ValidationError("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ValidationError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return domain.ValidationError(fmt.Sprintf("cannot access file: %s", path), err)
	}

	if info.IsDir() {
		return domain.ValidationError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".pdf" {
		return domain.ValidationError(fmt.Sprintf("file is not a PDF (has extension %s)", ext), nil)
	}

	v.CheckSize(info.Size())
	return nil
}

// ValidateBytes checks that data looks like a PDF document.
func (v *Validator) ValidateBytes(data []byte) error {
	if len(data) == 0 {
		return domain.ValidationError("input is empty", nil)
	}

	window := data
	if len(window) > headerWindow {
		window = window[:headerWindow]
	}
	if !bytes.Contains(window, pdfMagic) {
		return domain.ValidationError("input has no %PDF- header", nil)
	}

	v.CheckSize(int64(len(data)))
	return nil
}

// CheckSize warns when size exceeds AdvisoryMaxSize and reports whether it does.
func (v *Validator) CheckSize(size int64) bool {
	if size <= AdvisoryMaxSize {
		return false
	}
	v.logger.Warn().
		Int64("size_mb", size/(1024*1024)).
		Msg("PDF file is very large, processing may take a while")
	return true
}
