// Package ledger appends analyzed campaign results to a CSV file that
// accumulates across runs.
package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"qparity/internal/campaign"
)

var header = []string{
	"backend",
	"run_label",
	"job_id",
	"global_stability (%)",
	"local_A (%)",
	"local_B (%)",
	"asymmetry (%)",
	"shots",
}

// CSV writes one row per analyzed job to a file, creating it with a
// header row on first use. Rows from successive campaigns accumulate in
// the same file.
type CSV struct {
	path string
}

// NewCSV prepares the ledger file at path, creating parent directories
// and writing the header if the file does not exist yet.
func NewCSV(path string) (*CSV, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create ledger: %w", err)
		}
		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write ledger header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("write ledger header: %w", err)
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return &CSV{path: path}, nil
}

// Path returns the ledger file location.
func (l *CSV) Path() string { return l.path }

// Append writes one analyzed job. The file is opened per call so a
// crash between jobs never loses earlier rows.
func (l *CSV) Append(row campaign.LedgerRow) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(record(row)); err != nil {
		f.Close()
		return fmt.Errorf("write ledger row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write ledger row: %w", err)
	}
	return f.Close()
}

func record(row campaign.LedgerRow) []string {
	return []string{
		row.Backend,
		row.RunLabel,
		row.JobID,
		pct(row.Global),
		pct(row.LocalA),
		pct(row.LocalB),
		pct(row.Asymmetry),
		fmt.Sprintf("%d", row.Shots),
	}
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f", v*100)
}
