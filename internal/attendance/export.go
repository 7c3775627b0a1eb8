package attendance

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// WriteCSV writes the report as RegNo,Name[,Branch,Session],Status,Timestamp.
// Branch and Session columns are written only for grouped cohorts.
func (r *Report) WriteCSV(w io.Writer) error {
	grouped := r.Cohort.Grouped()

	cw := csv.NewWriter(w)
	header := []string{"RegNo", "Name"}
	if grouped {
		header = append(header, "Branch", "Session")
	}
	header = append(header, "Status", "Timestamp")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range r.Rows {
		record := []string{row.RegNo, row.Name}
		if grouped {
			record = append(record, row.Branch, row.Session)
		}
		record = append(record, row.Status.String(), row.Timestamp.Format(constants.TimestampLayout))
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// FileName returns the export file name derived from the cohort.
func (r *Report) FileName() string {
	return r.Cohort.FileName()
}

// Export writes the CSV into dir, replacing any previous export for the same
// cohort, and returns the written path.
func (r *Report) Export(dir string) (string, error) {
	var buf bytes.Buffer
	if err := r.WriteCSV(&buf); err != nil {
		return "", fmt.Errorf("failed to render attendance: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, r.FileName())
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write attendance file: %w", err)
	}
	return path, nil
}
