package batch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raceinsight/backend/internal/metrics"
	"github.com/raceinsight/backend/internal/storage/models"
	"github.com/raceinsight/backend/pkg/errs"
	"github.com/raceinsight/backend/pkg/logger"
	"github.com/raceinsight/backend/pkg/retry"
)

const dateLayout = "2006-01-02"

// RowCrawler produces one date's race rows.
type RowCrawler interface {
	CrawlDate(ctx context.Context, date string) ([]models.RaceRow, error)
}

// Store is the persistence surface the orchestrator needs.
type Store interface {
	HasDate(ctx context.Context, date string) (bool, error)
	SaveRaceRows(ctx context.Context, rows []models.RaceRow) error
	QueryRaceRows(ctx context.Context, startDate, endDate string) ([]models.RaceRow, error)
	SaveJockeyStats(ctx context.Context, stats []models.JockeyStat) error
}

// Analyzer computes per-jockey stats for a window's stored rows.
type Analyzer interface {
	AnalyzePeriod(rows []models.RaceRow) []models.JockeyStat
}

type Config struct {
	MaxConcurrent int
	MaxRetries    int
	RetryDelay    time.Duration
	PoliteDelay   time.Duration
	WindowDays    int
}

// RangeReport summarizes one ProcessRange run. Skipped dates are
// no-op successes (already ingested) and count toward SuccessDates.
type RangeReport struct {
	RunID        string  `json:"run_id"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	TotalDates   int     `json:"total_dates"`
	SuccessDates int     `json:"success_dates"`
	FailedDates  int     `json:"failed_dates"`
	SkippedDates int     `json:"skipped_dates"`
	NewRecords   int     `json:"new_records"`
	SuccessRate  float64 `json:"success_rate"`
}

// SpanReport aggregates the quarter windows of one ProcessSpan run.
type SpanReport struct {
	RunID      string        `json:"run_id"`
	StartDate  string        `json:"start_date"`
	EndDate    string        `json:"end_date"`
	Windows    []RangeReport `json:"windows"`
	NewRecords int           `json:"new_records"`
}

// Orchestrator coordinates the per-date pipelines: existence check,
// crawl with retry, transactional save. Failures are isolated per
// date and per window; only context cancellation stops a run early.
type Orchestrator struct {
	crawler  RowCrawler
	store    Store
	analyzer Analyzer
	cfg      Config
}

func NewOrchestrator(crawler RowCrawler, store Store, analyzer Analyzer, cfg Config) *Orchestrator {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 5
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.WindowDays <= 0 || cfg.WindowDays > 90 {
		cfg.WindowDays = 90
	}
	return &Orchestrator{crawler: crawler, store: store, analyzer: analyzer, cfg: cfg}
}

// ProcessRange runs the per-date pipeline for every date in the
// inclusive range, at most cfg.MaxConcurrent in flight. Per-date
// errors are logged and counted, never propagated to siblings. The
// report is assembled only after every scheduled date has finished.
func (o *Orchestrator) ProcessRange(ctx context.Context, startDate, endDate string) (RangeReport, error) {
	dates, err := DatesBetween(startDate, endDate)
	if err != nil {
		return RangeReport{}, err
	}

	report := RangeReport{
		RunID:      uuid.New().String(),
		StartDate:  startDate,
		EndDate:    endDate,
		TotalDates: len(dates),
	}

	logger.Info("Processing date range",
		zap.String("run_id", report.RunID),
		zap.String("start", startDate),
		zap.String("end", endDate),
		zap.Int("dates", len(dates)),
		zap.Int("max_concurrent", o.cfg.MaxConcurrent),
	)

	sem := make(chan struct{}, o.cfg.MaxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, date := range dates {
		if ctx.Err() != nil {
			logger.Warn("Range processing cancelled", zap.String("run_id", report.RunID))
			wg.Wait()
			return report, ctx.Err()
		}

		select {
		case <-ctx.Done():
			logger.Warn("Range processing cancelled", zap.String("run_id", report.RunID))
			wg.Wait()
			return report, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(date string) {
			defer wg.Done()
			defer func() { <-sem }()

			newRecords, skipped, err := o.processDate(ctx, date)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.FailedDates++
				metrics.DatesProcessed.WithLabelValues("failed").Inc()
				logger.Error("Date failed", zap.String("date", date), zap.Error(err))
			case skipped:
				report.SuccessDates++
				report.SkippedDates++
				metrics.DatesProcessed.WithLabelValues("skipped").Inc()
			default:
				report.SuccessDates++
				report.NewRecords += newRecords
				metrics.DatesProcessed.WithLabelValues("success").Inc()
			}
		}(date)
	}

	wg.Wait()

	if report.TotalDates > 0 {
		report.SuccessRate = float64(report.SuccessDates) / float64(report.TotalDates) * 100
	}

	logger.Info("Date range processed",
		zap.String("run_id", report.RunID),
		zap.Int("total", report.TotalDates),
		zap.Int("success", report.SuccessDates),
		zap.Int("failed", report.FailedDates),
		zap.Int("skipped", report.SkippedDates),
		zap.Int("new_records", report.NewRecords),
		zap.Float64("success_rate", report.SuccessRate),
	)
	return report, nil
}

// processDate is the per-date pipeline: existence check, crawl with
// network-only retry, transactional save.
func (o *Orchestrator) processDate(ctx context.Context, date string) (newRecords int, skipped bool, err error) {
	exists, err := o.store.HasDate(ctx, date)
	if err != nil {
		return 0, false, err
	}
	if exists {
		logger.Debug("Date already ingested, skipping crawl", zap.String("date", date))
		return 0, true, nil
	}

	crawlStart := time.Now()
	rows, err := retry.DoWithResult(ctx, retry.NetworkConfig(o.cfg.MaxRetries, o.cfg.RetryDelay, logger.Log),
		func() ([]models.RaceRow, error) {
			return o.crawler.CrawlDate(ctx, date)
		})
	metrics.CrawlDuration.Observe(time.Since(crawlStart).Seconds())
	if err != nil {
		return 0, false, err
	}

	if len(rows) == 0 {
		return 0, false, nil
	}

	if err := o.store.SaveRaceRows(ctx, rows); err != nil {
		return 0, false, err
	}
	return len(rows), false, nil
}

// ProcessSpan splits a long span into quarter windows, ingests each,
// then analyzes and persists that window's jockey stats before a
// politeness pause. A window failure is logged and the loop moves on.
func (o *Orchestrator) ProcessSpan(ctx context.Context, startDate, endDate string) (SpanReport, error) {
	windows, err := QuarterWindows(startDate, endDate, o.cfg.WindowDays)
	if err != nil {
		return SpanReport{}, err
	}

	span := SpanReport{
		RunID:     uuid.New().String(),
		StartDate: startDate,
		EndDate:   endDate,
	}

	for i, window := range windows {
		if err := ctx.Err(); err != nil {
			return span, err
		}

		logger.Info("Processing quarter window",
			zap.String("run_id", span.RunID),
			zap.String("start", window.Start),
			zap.String("end", window.End),
		)

		report, err := o.ProcessRange(ctx, window.Start, window.End)
		if err != nil {
			if ctx.Err() != nil {
				return span, err
			}
			logger.Error("Quarter window failed, continuing",
				zap.String("start", window.Start),
				zap.String("end", window.End),
				zap.Error(err),
			)
			continue
		}

		span.Windows = append(span.Windows, report)
		span.NewRecords += report.NewRecords

		o.analyzeWindow(ctx, window)

		if o.cfg.PoliteDelay > 0 && i < len(windows)-1 {
			select {
			case <-ctx.Done():
				return span, ctx.Err()
			case <-time.After(o.cfg.PoliteDelay):
			}
		}
	}

	logger.Info("Span processed",
		zap.String("run_id", span.RunID),
		zap.Int("windows", len(span.Windows)),
		zap.Int("new_records", span.NewRecords),
	)
	return span, nil
}

// analyzeWindow persists the window's jockey stats. Analysis failures
// never fail the ingestion run; stats are a recomputable cache.
func (o *Orchestrator) analyzeWindow(ctx context.Context, window Window) {
	rows, err := o.store.QueryRaceRows(ctx, window.Start, window.End)
	if err != nil {
		logger.Error("Failed to load window rows for analysis",
			zap.String("start", window.Start),
			zap.String("end", window.End),
			zap.Error(err),
		)
		return
	}
	if len(rows) == 0 {
		return
	}

	stats := o.analyzer.AnalyzePeriod(rows)
	if err := o.store.SaveJockeyStats(ctx, stats); err != nil {
		logger.Error("Failed to save window stats",
			zap.String("start", window.Start),
			zap.String("end", window.End),
			zap.Error(err),
		)
	}
}

// Window is one inclusive sub-range of a span.
type Window struct {
	Start string
	End   string
}

// QuarterWindows cuts [startDate, endDate] into contiguous inclusive
// windows of at most windowDays calendar days, the last truncated to
// end exactly at endDate.
func QuarterWindows(startDate, endDate string, windowDays int) ([]Window, error) {
	start, end, err := parseRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	var windows []Window
	for current := start; !current.After(end); {
		windowEnd := current.AddDate(0, 0, windowDays-1)
		if windowEnd.After(end) {
			windowEnd = end
		}
		windows = append(windows, Window{
			Start: current.Format(dateLayout),
			End:   windowEnd.Format(dateLayout),
		})
		current = windowEnd.AddDate(0, 0, 1)
	}
	return windows, nil
}

// DatesBetween enumerates every calendar date in the inclusive range.
func DatesBetween(startDate, endDate string) ([]string, error) {
	start, end, err := parseRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	var dates []string
	for current := start; !current.After(end); current = current.AddDate(0, 0, 1) {
		dates = append(dates, current.Format(dateLayout))
	}
	return dates, nil
}

func parseRange(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return time.Time{}, time.Time{}, errs.Config("invalid start date %q: %v", startDate, err)
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return time.Time{}, time.Time{}, errs.Config("invalid end date %q: %v", endDate, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errs.Config("end date %s before start date %s", endDate, startDate)
	}
	return start, end, nil
}
