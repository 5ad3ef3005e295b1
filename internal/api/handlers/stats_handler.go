package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/raceinsight/backend/internal/analytics"
	"github.com/raceinsight/backend/internal/storage/models"
	"github.com/raceinsight/backend/pkg/logger"
)

// RowSource is the read side of storage the stats handlers need.
type RowSource interface {
	QueryRaceRows(ctx context.Context, startDate, endDate string) ([]models.RaceRow, error)
}

// StatsCache is an optional summary cache; a nil cache means every
// request recomputes.
type StatsCache interface {
	GetYearly(ctx context.Context, startDate, endDate string) (*models.YearlySummary, bool)
	SetYearly(ctx context.Context, startDate, endDate string, summary models.YearlySummary)
}

type StatsHandler struct {
	store  RowSource
	engine *analytics.Engine
	cache  StatsCache
}

func NewStatsHandler(store RowSource, engine *analytics.Engine, cache StatsCache) *StatsHandler {
	return &StatsHandler{
		store:  store,
		engine: engine,
		cache:  cache,
	}
}

func (h *StatsHandler) GetJockeyStats(c *fiber.Ctx) error {
	startDate, endDate, badReq := periodParams(c)
	if badReq != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": badReq})
	}

	rows, err := h.store.QueryRaceRows(c.Context(), startDate, endDate)
	if err != nil {
		logger.Error("Failed to load race rows", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load race results",
		})
	}

	stats := h.engine.AnalyzePeriod(rows)
	return c.JSON(fiber.Map{
		"start_date": startDate,
		"end_date":   endDate,
		"rows":       len(rows),
		"stats":      stats,
	})
}

func (h *StatsHandler) GetYearlyStats(c *fiber.Ctx) error {
	startDate, endDate, badReq := periodParams(c)
	if badReq != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": badReq})
	}

	if h.cache != nil {
		if summary, ok := h.cache.GetYearly(c.Context(), startDate, endDate); ok {
			return c.JSON(summary)
		}
	}

	rows, err := h.store.QueryRaceRows(c.Context(), startDate, endDate)
	if err != nil {
		logger.Error("Failed to load race rows", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load race results",
		})
	}

	summary := h.engine.AnalyzeYearly(rows)
	if h.cache != nil {
		h.cache.SetYearly(c.Context(), startDate, endDate, summary)
	}

	return c.JSON(summary)
}

// periodParams validates the start/end query parameters and returns
// a non-empty message when the request is malformed.
func periodParams(c *fiber.Ctx) (startDate, endDate, badReq string) {
	startDate = c.Query("start")
	endDate = c.Query("end")
	if startDate == "" || endDate == "" {
		return "", "", "start and end query parameters are required (YYYY-MM-DD)"
	}

	for _, date := range []string{startDate, endDate} {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return "", "", "invalid date: " + date + " (want YYYY-MM-DD)"
		}
	}

	return startDate, endDate, ""
}
