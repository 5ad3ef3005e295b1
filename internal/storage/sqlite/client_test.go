package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raceinsight/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.InitSchema())
	return client
}

func sampleRows(date string) []models.RaceRow {
	return []models.RaceRow{
		{
			RaceDate:       date,
			RaceID:         "823",
			RaceNumber:     1,
			HorseNo:        "A1",
			HorseName:      "FAST HORSE",
			Draw:           5,
			FinishPosition: 1,
			Jockey:         "jockeyA",
			Trainer:        "trainerA",
			FinishTime:     "1:09.50",
			Odds:           2.5,
			Distance:       1200,
			RaceInfo:       "第一場 (823) - 1200米",
		},
		{
			RaceDate:       date,
			RaceID:         "823",
			RaceNumber:     1,
			HorseNo:        "B2",
			HorseName:      "SLOW HORSE",
			Draw:           3,
			FinishPosition: 2,
			Jockey:         "jockeyB",
			Trainer:        "trainerB",
			FinishTime:     "1:09.80",
			Odds:           10.0,
			Distance:       1200,
			RaceInfo:       "第一場 (823) - 1200米",
		},
	}
}

func TestSaveAndQueryRaceRows(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.SaveRaceRows(ctx, sampleRows("2024-03-17")))

	rows, err := client.QueryRaceRows(ctx, "2024-03-17", "2024-03-17")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "FAST HORSE", rows[0].HorseName)
	assert.Equal(t, 2.5, rows[0].Odds)
}

func TestSaveRaceRowsIdempotent(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.SaveRaceRows(ctx, sampleRows("2024-03-17")))

	// Re-ingesting the same date refreshes mutable fields without
	// creating duplicate logical rows.
	updated := sampleRows("2024-03-17")
	updated[0].FinishPosition = 3
	updated[0].Odds = 4.0
	updated[0].FinishTime = "1:10.00"
	updated[0].HorseName = "RENAMED" // identity fields are not refreshed
	require.NoError(t, client.SaveRaceRows(ctx, updated))

	rows, err := client.QueryRaceRows(ctx, "2024-03-17", "2024-03-17")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	var first models.RaceRow
	for _, r := range rows {
		if r.HorseNo == "A1" {
			first = r
		}
	}
	assert.Equal(t, 3, first.FinishPosition)
	assert.Equal(t, 4.0, first.Odds)
	assert.Equal(t, "1:10.00", first.FinishTime)
	assert.Equal(t, "FAST HORSE", first.HorseName)
}

func TestQueryRaceRowsRange(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.SaveRaceRows(ctx, sampleRows("2024-03-17")))
	require.NoError(t, client.SaveRaceRows(ctx, sampleRows("2024-03-24")))
	require.NoError(t, client.SaveRaceRows(ctx, sampleRows("2024-04-01")))

	rows, err := client.QueryRaceRows(ctx, "2024-03-17", "2024-03-24")
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	rows, err = client.QueryRaceRows(ctx, "2024-05-01", "2024-05-31")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestHasDate(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	ok, err := client.HasDate(ctx, "2024-03-17")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.SaveRaceRows(ctx, sampleRows("2024-03-17")))

	ok, err = client.HasDate(ctx, "2024-03-17")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSaveJockeyStatsUpsert(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	stats := []models.JockeyStat{
		{Date: "2024-03-17", Jockey: "jockeyA", TotalRaces: 2, Wins: 1, WinRate: 50, AvgPosition: 1.5},
	}
	require.NoError(t, client.SaveJockeyStats(ctx, stats))

	stats[0].TotalRaces = 4
	stats[0].Wins = 2
	require.NoError(t, client.SaveJockeyStats(ctx, stats))

	var count, totalRaces int
	err := client.db.QueryRow(
		"SELECT COUNT(1), MAX(total_races) FROM jockey_stats WHERE date = ? AND jockey = ?",
		"2024-03-17", "jockeyA").Scan(&count, &totalRaces)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 4, totalRaces)
}

func TestSaveRaceRowsEmpty(t *testing.T) {
	client := newTestClient(t)
	assert.NoError(t, client.SaveRaceRows(context.Background(), nil))
}
