package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"carpivot/internal"
	"carpivot/internal/config"
	"carpivot/internal/logger"
	"carpivot/internal/source"
	"carpivot/internal/storage"
)

type Service struct {
	cfg config.Config
	log *logger.Logger
	db  *storage.DB
}

// NewService builds the conversion service. db may be nil, in which case
// runs are not recorded.
func NewService(cfg config.Config, log *logger.Logger, db *storage.DB) *Service {
	return &Service{cfg: cfg, log: log, db: db}
}

type RunResult struct {
	TraceID           string
	RawRows           int
	Listings          int
	MissingCount      int
	MissingIDs        []int
	UnknownAttributes []string
	Defaults          []FieldDefaultCount
	TimingsMs         map[string]float64
	Workbook          Workbook
}

// FieldDefaultCount is how many listings had field fall back for reason.
type FieldDefaultCount struct {
	Field  string
	Reason internal.NullReason
	Count  int
}

// Run reads input, runs pivot, normalize and project, and writes the
// three-sheet workbook to output.
func (s *Service) Run(ctx context.Context, input, output string) (RunResult, error) {
	res := RunResult{TraceID: uuid.NewString(), TimingsMs: map[string]float64{}}
	log := s.log.With("trace", res.TraceID)
	start := time.Now()
	log.Info("conversion started", "input", input, "output", output)

	stage := time.Now()
	rows, err := source.ReadFile(input)
	if err != nil {
		return res, err
	}
	res.RawRows = len(rows)
	res.TimingsMs["readMs"] = sinceMs(stage)

	if err := ctx.Err(); err != nil {
		return res, err
	}
	wb, pivot, err := s.Convert(rows, res.TimingsMs)
	if err != nil {
		return res, err
	}
	res.Workbook = wb
	res.Listings = len(wb.Output)
	res.MissingCount = pivot.MissingCount
	res.MissingIDs = pivot.MissingIDs
	res.UnknownAttributes = pivot.UnknownAttributes
	res.Defaults = countDefaults(wb.Normalized)

	for _, name := range pivot.UnknownAttributes {
		log.Warn("unknown attribute name pivoted as column", "name", name)
	}
	if pivot.MissingCount > 0 {
		log.Warn("listing identifiers without source rows",
			"count", pivot.MissingCount, "policy", s.cfg.MissingListings, "first", pivot.MissingIDs[0])
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	stage = time.Now()
	if err := ExportXLSX(wb, output); err != nil {
		return res, fmt.Errorf("export %q: %w", output, err)
	}
	res.TimingsMs["exportMs"] = sinceMs(stage)
	res.TimingsMs["totalMs"] = sinceMs(start)

	if s.db != nil {
		if err := s.record(res, input, output); err != nil {
			return res, fmt.Errorf("record run: %w", err)
		}
	}

	log.Info("conversion finished", "rows", res.RawRows, "listings", res.Listings, "ms", res.TimingsMs["totalMs"])
	return res, nil
}

// Convert runs the three stages over already decoded rows. Stage timings are
// added to timings when it is not nil.
func (s *Service) Convert(rows []internal.RawAttributeRow, timings map[string]float64) (Workbook, PivotResult, error) {
	stage := time.Now()
	pivot, err := Pivot(rows, PivotOptions{
		MissingListings: s.cfg.MissingListings,
		Strict:          s.cfg.StrictAttributes,
	})
	if err != nil {
		return Workbook{}, PivotResult{}, err
	}
	mark(timings, "pivotMs", stage)

	stage = time.Now()
	normalized := Normalize(pivot.Table)
	mark(timings, "normalizeMs", stage)

	stage = time.Now()
	output := Project(normalized, ProjectOptionsFromConfig(s.cfg))
	mark(timings, "projectMs", stage)

	if s.log.Enabled(context.Background(), slog.LevelDebug) {
		for _, l := range normalized.Listings {
			for field, reason := range l.Defaults {
				s.log.Debug("field defaulted", "listing", l.ID, "field", field, "reason", string(reason))
			}
		}
	}

	return Workbook{Preprocessed: pivot.Table, Normalized: normalized, Output: output}, pivot, nil
}

func (s *Service) record(res RunResult, input, output string) error {
	counts := map[string]int{
		"rawRows":           res.RawRows,
		"listings":          res.Listings,
		"missingListings":   res.MissingCount,
		"unknownAttributes": len(res.UnknownAttributes),
	}
	for _, d := range res.Defaults {
		counts[fmt.Sprintf("default:%s:%s", d.Field, d.Reason)] = d.Count
	}

	runID, err := s.db.InsertRun(res.TraceID, input, output, res.TimingsMs, counts)
	if err != nil {
		return err
	}
	return s.db.InsertDiagnostics(runID, Diagnostics(res.Workbook.Normalized))
}

// Diagnostics flattens the per-listing default reasons, ordered by listing
// then field.
func Diagnostics(normalized internal.Table) []internal.FieldDiagnostic {
	var out []internal.FieldDiagnostic
	for _, l := range normalized.Listings {
		fields := make([]string, 0, len(l.Defaults))
		for field := range l.Defaults {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			out = append(out, internal.FieldDiagnostic{ListingID: l.ID, Field: field, Reason: l.Defaults[field]})
		}
	}
	return out
}

func countDefaults(normalized internal.Table) []FieldDefaultCount {
	type key struct {
		field  string
		reason internal.NullReason
	}
	counts := map[key]int{}
	for _, l := range normalized.Listings {
		for field, reason := range l.Defaults {
			counts[key{field, reason}]++
		}
	}

	out := make([]FieldDefaultCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, FieldDefaultCount{Field: k.field, Reason: k.reason, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Field != out[j].Field {
			return out[i].Field < out[j].Field
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

func mark(timings map[string]float64, key string, start time.Time) {
	if timings != nil {
		timings[key] = sinceMs(start)
	}
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
