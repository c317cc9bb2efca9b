// Package report reads and writes the aggregate documents under .sift.
package report

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	siftfs "go.trai.ch/sift/internal/adapters/fs"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Reporter = (*Writer)(nil)

// Writer implements ports.Reporter with indented JSON files replaced atomically.
type Writer struct{}

// NewWriter creates a new Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// WriteResults replaces results.json. The encoding is stable for equal reports.
func (w *Writer) WriteResults(root string, report domain.AuditReport) error {
	return writeJSON(domain.ResultsPath(root), report)
}

// WriteRun replaces run.json.
func (w *Writer) WriteRun(root string, info domain.RunInfo) error {
	return writeJSON(domain.RunPath(root), info)
}

// ReadResults returns nil, nil when results.json does not exist.
func (w *Writer) ReadResults(root string) (*domain.AuditReport, error) {
	var report domain.AuditReport
	ok, err := readJSON(domain.ResultsPath(root), &report)
	if !ok {
		return nil, err
	}
	return &report, nil
}

// ReadRun returns nil, nil when run.json does not exist.
func (w *Writer) ReadRun(root string) (*domain.RunInfo, error) {
	var info domain.RunInfo
	ok, err := readJSON(domain.RunPath(root), &info)
	if !ok {
		return nil, err
	}
	return &info, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrReportWriteFailed.Error())
	}
	data = append(data, '\n')
	if err := siftfs.WriteFileAtomic(path, data, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrReportWriteFailed.Error()), "path", path)
	}
	return nil
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is below .sift
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, domain.ErrReportReadFailed.Error()), "path", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, zerr.With(zerr.Wrap(err, domain.ErrReportReadFailed.Error()), "path", path)
	}
	return true, nil
}
