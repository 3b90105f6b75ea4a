// Package source extracts plain text from the supported document sources.
package source

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"go.uber.org/zap"
)

var licenseOnce sync.Once

// PDFExtractor pulls the text layer out of PDF documents.
type PDFExtractor struct {
	logger *zap.Logger
}

// NewPDFExtractor applies the unidoc metered licence found in licenseKeyEnv,
// if any. The licence is process-wide and only set once.
func NewPDFExtractor(licenseKeyEnv string, logger *zap.Logger) *PDFExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	licenseOnce.Do(func() {
		if licenseKeyEnv == "" {
			return
		}
		key := strings.TrimSpace(os.Getenv(licenseKeyEnv))
		if key == "" {
			return
		}
		if err := license.SetMeteredKey(key); err != nil {
			logger.Warn("unidoc licence rejected", zap.Error(err))
		}
	})
	return &PDFExtractor{logger: logger}
}

// Extract concatenates the text of every page. Pages that fail to extract
// are skipped.
func (p *PDFExtractor) Extract(r io.ReadSeeker) (string, error) {
	reader, err := model.NewPdfReader(r)
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}
	numPages, err := reader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("count pdf pages: %w", err)
	}
	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			p.logger.Debug("skipping page", zap.Int("page", i), zap.Error(err))
			continue
		}
		ex, err := extractor.New(page)
		if err != nil {
			p.logger.Debug("skipping page", zap.Int("page", i), zap.Error(err))
			continue
		}
		text, err := ex.ExtractText()
		if err != nil {
			p.logger.Debug("skipping page", zap.Int("page", i), zap.Error(err))
			continue
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

// ExtractFile opens path and extracts its text.
func (p *PDFExtractor) ExtractFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return p.Extract(f)
}
