// Package importer ingests the vendor's offline CSV export into the same
// canonical Activity shape the live path produces. It is the bulk-backfill
// entry point for accounts without live credentials.
package importer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dylannguyen2/annas-app-sub001/pkg/domain"
	"github.com/dylannguyen2/annas-app-sub001/pkg/reconcile"
)

// Export cells are local timestamps in the vendor's fixed layout.
const dateLayout = "2006-01-02 15:04:05"

// RowError records one failed row; the batch continues past it.
type RowError struct {
	Row int    `json:"row"`
	Err string `json:"error"`
}

// Summary reports the outcome of one batch import.
type Summary struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"` // pre-existing records
	Total    int        `json:"total"`
	Errors   []RowError `json:"errors,omitempty"`
}

type Importer struct {
	reconciler *reconcile.Reconciler
	logger     *slog.Logger
}

func New(reconciler *reconcile.Reconciler, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{reconciler: reconciler, logger: logger}
}

// Import parses the delimited export and reconciles each row. One malformed
// field degrades to nil; one failed row is recorded and the batch continues
// to the final row regardless.
func (imp *Importer) Import(ctx context.Context, ownerID string, r io.Reader) (*Summary, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // tolerate ragged rows; missing cells read as absent

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header row: %w", err)
	}
	cols := indexColumns(header)

	summary := &Summary{}
	for rowNum := 1; ; rowNum++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// csv-level damage on one line must not abort the batch
			summary.Total++
			summary.Errors = append(summary.Errors, RowError{Row: rowNum, Err: err.Error()})
			continue
		}

		summary.Total++
		row := rowReader{cols: cols, record: record}

		act, err := imp.normalizeRow(ownerID, row)
		if err != nil {
			imp.logger.Warn("Skipping unusable import row", "row", rowNum, "error", err)
			summary.Errors = append(summary.Errors, RowError{Row: rowNum, Err: err.Error()})
			continue
		}

		created, err := imp.reconciler.UpsertActivity(ctx, act)
		if err != nil {
			imp.logger.Warn("Failed to persist import row", "row", rowNum, "error", err)
			summary.Errors = append(summary.Errors, RowError{Row: rowNum, Err: err.Error()})
			continue
		}
		if created {
			summary.Imported++
		} else {
			summary.Skipped++
		}
	}

	imp.logger.Info("Batch import finished",
		"owner_id", ownerID,
		"imported", summary.Imported,
		"skipped", summary.Skipped,
		"total", summary.Total,
		"errors", len(summary.Errors),
	)
	return summary, nil
}

// normalizeRow maps one CSV row to a canonical Activity. Only an unusable
// start timestamp fails the row: without it there is no reconciliation
// identity for a file format that carries no vendor id.
func (imp *Importer) normalizeRow(ownerID string, row rowReader) (*domain.Activity, error) {
	start, err := time.Parse(dateLayout, strings.TrimSpace(row.get("Date")))
	if err != nil {
		return nil, fmt.Errorf("unparsable start timestamp %q", row.get("Date"))
	}
	start = start.UTC()

	title := strings.TrimSpace(row.get("Title"))
	act := &domain.Activity{
		OwnerID: ownerID,
		// The export carries no vendor-assigned id; identity is derived from
		// the start timestamp so re-imports of the same file stay idempotent.
		ExternalActivityID: domain.DeriveActivityID(start),
		Name:               title,
		Type:               NormalizeType(row.get("Activity Type")),
		StartTime:          start,
		Favorite:           strings.EqualFold(strings.TrimSpace(row.get("Favorite")), "true"),
		LocationName:       ExtractLocation(title),
	}

	act.TotalDurationSeconds = ParseDuration(row.get("Time"))
	act.MovingDurationSeconds = ParseDuration(row.get("Moving Time"))
	act.ElapsedDurationSeconds = ParseDuration(row.get("Elapsed Time"))

	if miles := ParseFloatField(row.get("Distance")); miles != nil {
		meters := MilesToMeters(*miles)
		act.DistanceMeters = &meters
	}
	act.Calories = ParseFloatField(row.get("Calories"))

	act.AvgHeartRate = ParseIntField(row.get("Avg HR"))
	act.MaxHeartRate = ParseIntField(row.get("Max HR"))

	act.AvgSpeedMetersPerSecond = ParseSpeedField(row.get("Avg Speed"))
	act.MaxSpeedMetersPerSecond = ParseSpeedField(row.get("Max Speed"))

	if feet := ParseFloatField(row.get("Total Ascent")); feet != nil {
		meters := FeetToMeters(*feet)
		act.ElevationGainMeters = &meters
	}
	if feet := ParseFloatField(row.get("Total Descent")); feet != nil {
		meters := FeetToMeters(*feet)
		act.ElevationLossMeters = &meters
	}

	act.Steps = ParseIntField(row.get("Steps"))
	act.AvgCadence = ParseFloatField(row.get("Avg Bike Cadence"))
	act.MaxCadence = ParseFloatField(row.get("Max Bike Cadence"))
	act.AvgPower = ParseFloatField(row.get("Avg Power"))
	act.MaxPower = ParseFloatField(row.get("Max Power"))
	act.TotalSets = ParseIntField(row.get("Total Sets"))
	act.TotalReps = ParseIntField(row.get("Total Reps"))

	act.SourceRaw = row.sourceJSON()
	return act, nil
}

// rowReader resolves cells by header name so column order doesn't matter.
type rowReader struct {
	cols   map[string]int
	record []string
}

func (r rowReader) get(name string) string {
	idx, ok := r.cols[normalizeHeader(name)]
	if !ok || idx >= len(r.record) {
		return ""
	}
	return r.record[idx]
}

// sourceJSON retains the raw row keyed by header for debugging and forward
// compatibility, mirroring SourceRaw on the live path.
func (r rowReader) sourceJSON() string {
	m := make(map[string]string, len(r.cols))
	for name, idx := range r.cols {
		if idx < len(r.record) {
			m[name] = r.record[idx]
		}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[normalizeHeader(name)] = i
	}
	return cols
}

func normalizeHeader(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
