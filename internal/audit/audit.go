// Package audit appends every triage decision to a CSV log so each shift's
// decisions can be reviewed and the model monitored without database access.
package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/linnemanlabs/edtriage/internal/triage"
)

// Logger writes one CSV row per decision. The file is opened in append mode;
// the header is written only when the file is empty, so restarts keep
// extending the same log.
type Logger struct {
	mu       sync.Mutex
	file     *os.File
	w        *csv.Writer
	outcomes []string
}

// New opens (or creates) the audit log at path. The outcome set fixes the
// pred_<outcome> column order for the lifetime of the file.
func New(path string, outcomes []string) (*Logger, error) {
	// #nosec G304 -- path comes from operator-configured audit-log flag.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	cols := append([]string(nil), outcomes...)
	sort.Strings(cols)

	l := &Logger{file: f, w: csv.NewWriter(f), outcomes: cols}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat audit log: %w", err)
	}
	if info.Size() == 0 {
		if err := l.writeHeader(); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return l, nil
}

func (l *Logger) writeHeader() error {
	header := []string{
		"timestamp", "decision_id", "session_id",
		"age", "sex", "arrival", "case",
		"sbp", "dbp", "temp", "pr", "rr", "o2sat", "gcs_e", "gcs_v", "gcs_m",
		"chief_complaint",
	}
	for _, o := range l.outcomes {
		header = append(header, "pred_"+o)
	}
	header = append(header, "red_flags", "level", "level_name", "zone", "rationale", "warnings")
	if err := l.w.Write(header); err != nil {
		return fmt.Errorf("write audit header: %w", err)
	}
	l.w.Flush()
	return l.w.Error()
}

// Append writes one decision row and flushes it to disk.
func (l *Logger) Append(_ context.Context, d *triage.Decision) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	v := d.Record.Vitals
	row := []string{
		d.CreatedAt.UTC().Format(time.RFC3339),
		d.ID,
		d.SessionID,
		strconv.Itoa(d.Record.Age),
		string(d.Record.Sex),
		string(d.Record.Arrival),
		string(d.Record.CaseType),
		strconv.Itoa(v.SBP),
		strconv.Itoa(v.DBP),
		strconv.FormatFloat(v.Temp, 'f', 1, 64),
		strconv.Itoa(v.Pulse),
		strconv.Itoa(v.RespRate),
		strconv.Itoa(v.SpO2),
		strconv.Itoa(v.GCSEye),
		strconv.Itoa(v.GCSVerb),
		strconv.Itoa(v.GCSMotor),
		d.Record.ChiefComplaint,
	}
	for _, o := range l.outcomes {
		p, ok := d.Probabilities[o]
		if !ok {
			row = append(row, "")
			continue
		}
		row = append(row, strconv.FormatFloat(p, 'f', 4, 64))
	}
	row = append(row,
		strings.Join(d.RedFlags, "; "),
		strconv.Itoa(d.Level),
		d.LevelName,
		d.Zone,
		strings.Join(d.Rationale, "; "),
		strings.Join(d.Warnings, "; "),
	)

	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("write audit row: %w", err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return fmt.Errorf("flush audit row: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		_ = l.file.Close()
		return err
	}
	return l.file.Close()
}
