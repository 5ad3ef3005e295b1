package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raceinsight/backend/internal/analytics"
	"github.com/raceinsight/backend/internal/storage/models"
)

type stubSource struct {
	rows []models.RaceRow
	err  error
}

func (s *stubSource) QueryRaceRows(ctx context.Context, startDate, endDate string) ([]models.RaceRow, error) {
	return s.rows, s.err
}

func newStatsApp(source RowSource) *fiber.App {
	app := fiber.New()
	handler := NewStatsHandler(source, analytics.NewEngine(), nil)
	app.Get("/stats/jockeys", handler.GetJockeyStats)
	app.Get("/stats/yearly", handler.GetYearlyStats)
	return app
}

func TestGetJockeyStats(t *testing.T) {
	source := &stubSource{rows: []models.RaceRow{
		{RaceDate: "2024-03-17", Jockey: "jockeyA", FinishPosition: 1, Odds: 3.5},
		{RaceDate: "2024-03-17", Jockey: "jockeyA", FinishPosition: 4, Odds: 6.0},
	}}
	app := newStatsApp(source)

	req := httptest.NewRequest("GET", "/stats/jockeys?start=2024-03-01&end=2024-03-31", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload struct {
		Rows  int                 `json:"rows"`
		Stats []models.JockeyStat `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, 2, payload.Rows)
	require.Len(t, payload.Stats, 1)
	assert.Equal(t, 50.0, payload.Stats[0].WinRate)
}

func TestGetJockeyStatsRejectsBadDates(t *testing.T) {
	app := newStatsApp(&stubSource{})

	req := httptest.NewRequest("GET", "/stats/jockeys?start=17-03-2024&end=2024-03-31", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req = httptest.NewRequest("GET", "/stats/jockeys", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetYearlyStats(t *testing.T) {
	source := &stubSource{rows: []models.RaceRow{
		{RaceDate: "2024-03-17", Jockey: "jockeyA", FinishPosition: 1, Odds: 12.0},
	}}
	app := newStatsApp(source)

	req := httptest.NewRequest("GET", "/stats/yearly?start=2024-01-01&end=2024-12-31", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var summary models.YearlySummary
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, 1, summary.Summary.TotalRaces)
	assert.Equal(t, 12.0, summary.Overall.Max)
}
