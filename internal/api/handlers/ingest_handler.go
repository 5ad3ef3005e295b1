package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/raceinsight/backend/internal/batch"
	"github.com/raceinsight/backend/pkg/logger"
)

type IngestHandler struct {
	orchestrator *batch.Orchestrator
	runCtx       context.Context
}

// NewIngestHandler takes the process-lifetime context so background
// ingestion runs stop with the process, not with the HTTP request.
func NewIngestHandler(orchestrator *batch.Orchestrator, runCtx context.Context) *IngestHandler {
	return &IngestHandler{
		orchestrator: orchestrator,
		runCtx:       runCtx,
	}
}

func (h *IngestHandler) StartIngest(c *fiber.Ctx) error {
	var req struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse ingest request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	for _, date := range []string{req.StartDate, req.EndDate} {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid date: " + date + " (want YYYY-MM-DD)",
			})
		}
	}

	go func() {
		span, err := h.orchestrator.ProcessSpan(h.runCtx, req.StartDate, req.EndDate)
		if err != nil {
			logger.Error("Background ingestion run failed",
				zap.String("start", req.StartDate),
				zap.String("end", req.EndDate),
				zap.Error(err),
			)
			return
		}
		logger.Info("Background ingestion run finished",
			zap.String("run_id", span.RunID),
			zap.Int("new_records", span.NewRecords),
		)
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":     "started",
		"start_date": req.StartDate,
		"end_date":   req.EndDate,
	})
}
