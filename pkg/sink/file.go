package sink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/product-scraper/pkg/models"
	"github.com/Sriram-PR/product-scraper/pkg/utils"
)

// FileHeader is the first row of the CSV file
const FileHeader = "Product URL"

// FileSink appends product URLs to a one-column CSV file
type FileSink struct {
	path string
	mu   sync.Mutex // Serialises appends and resets
	log  *logrus.Entry
}

// NewFileSink opens path, creating it with a header row when missing.
// Existing content is kept; call Reset to start a fresh run.
func NewFileSink(path string, logger *logrus.Entry) (*FileSink, error) {
	s := &FileSink{path: path, log: logger}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: creating directory for %s: %w", utils.ErrFilesystem, path, err)
		}
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.writeHeader(); err != nil {
			return nil, err
		}
		logger.Infof("Created product URL file: %s", path)
	} else if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", utils.ErrFilesystem, path, err)
	}
	return s, nil
}

// Path returns the CSV file location
func (s *FileSink) Path() string { return s.path }

// Append writes one row. Records are not deduplicated.
func (s *FileSink) Append(_ context.Context, rec models.ProductRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("%w: %w: opening %s: %w", utils.ErrSink, utils.ErrFilesystem, s.path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{rec.URL}); err != nil {
		f.Close()
		return fmt.Errorf("%w: %w: writing %s: %w", utils.ErrSink, utils.ErrFilesystem, s.path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("%w: %w: flushing %s: %w", utils.ErrSink, utils.ErrFilesystem, s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w: closing %s: %w", utils.ErrSink, utils.ErrFilesystem, s.path, err)
	}
	return nil
}

// Reset truncates the file back to just the header row
func (s *FileSink) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeHeader(); err != nil {
		return err
	}
	s.log.Infof("Reset product URL file: %s", s.path)
	return nil
}

func (s *FileSink) writeHeader() error {
	if err := os.WriteFile(s.path, []byte(FileHeader+"\n"), 0644); err != nil {
		return fmt.Errorf("%w: writing header to %s: %w", utils.ErrFilesystem, s.path, err)
	}
	return nil
}

// Entries reads back every URL in file order, skipping the header and blank rows
func (s *FileSink) Entries() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: opening %s: %w", utils.ErrFilesystem, s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	entries := []string{}
	for first := true; ; first = false {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %w", utils.ErrFilesystem, s.path, err)
		}
		if first && len(row) > 0 && row[0] == FileHeader {
			continue
		}
		if len(row) == 0 || row[0] == "" {
			continue
		}
		entries = append(entries, row[0])
	}
	return entries, nil
}

// Close is a no-op; the file is opened per append
func (s *FileSink) Close() error { return nil }
