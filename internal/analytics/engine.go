package analytics

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/raceinsight/backend/internal/metrics"
	"github.com/raceinsight/backend/internal/storage/models"
	"github.com/raceinsight/backend/pkg/logger"
)

// Engine turns stored race rows into jockey and odds statistics. All
// computation is in-memory and side-effect free; results are derived
// and recomputable at any time.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// AnalyzePeriod groups rows by jockey and computes per-jockey totals.
// AvgPosition deliberately includes sentinel-99 non-finishes, matching
// the stored data; the skew is documented on the model.
func (e *Engine) AnalyzePeriod(rows []models.RaceRow) []models.JockeyStat {
	if len(rows) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		metrics.AnalyzeDuration.Observe(time.Since(start).Seconds())
	}()

	type acc struct {
		total       int
		wins        int
		positionSum int
	}
	byJockey := make(map[string]*acc)
	for _, row := range rows {
		a := byJockey[row.Jockey]
		if a == nil {
			a = &acc{}
			byJockey[row.Jockey] = a
		}
		a.total++
		a.positionSum += row.FinishPosition
		if row.FinishPosition == 1 {
			a.wins++
		}
	}

	periodDate := rows[0].RaceDate
	stats := make([]models.JockeyStat, 0, len(byJockey))
	for jockey, a := range byJockey {
		stats = append(stats, models.JockeyStat{
			Date:        periodDate,
			Jockey:      jockey,
			TotalRaces:  a.total,
			Wins:        a.wins,
			WinRate:     round2(float64(a.wins) / float64(a.total) * 100),
			AvgPosition: round2(float64(a.positionSum) / float64(a.total)),
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Jockey < stats[j].Jockey
	})

	logger.Info("Period analyzed",
		zap.Int("rows", len(rows)),
		zap.Int("jockeys", len(stats)),
	)
	return stats
}

// AnalyzeYearly extends the per-jockey stats with odds distributions,
// upset-win detection and leaderboards. A period with no rows returns
// a neutral summary.
func (e *Engine) AnalyzeYearly(rows []models.RaceRow) models.YearlySummary {
	if len(rows) == 0 {
		return models.YearlySummary{}
	}

	start := time.Now()
	defer func() {
		metrics.AnalyzeDuration.Observe(time.Since(start).Seconds())
	}()

	jockeyStats := e.AnalyzePeriod(rows)

	allOdds := make([]float64, 0, len(rows))
	var winners []models.RaceRow
	days := make(map[string]bool)
	for _, row := range rows {
		allOdds = append(allOdds, row.Odds)
		days[row.RaceDate] = true
		if row.FinishPosition == 1 {
			winners = append(winners, row)
		}
	}

	winningOdds := make([]float64, 0, len(winners))
	for _, w := range winners {
		winningOdds = append(winningOdds, w.Odds)
	}

	summary := models.YearlySummary{
		Summary: models.PeriodSummary{
			TotalRaces:     len(rows),
			TotalRaceDays:  len(days),
			ActiveJockeys:  len(jockeyStats),
			AvgRacesPerDay: round1(float64(len(rows)) / float64(len(days))),
		},
		Overall:     oddsRange(allOdds),
		Winners:     oddsRange(winningOdds),
		UpsetWins:   upsetWins(winners, winningOdds),
		JockeyOdds:  jockeyOddsStats(rows),
		JockeyStats: jockeyStats,
		TopJockeys:  topByWinRate(jockeyStats, 5),
		MostActive:  topByTotalRaces(jockeyStats, 5),
	}

	return summary
}

// upsetWins returns the winning rows whose odds exceed the 75th
// percentile of all winning odds, highest odds first, capped at 5.
func upsetWins(winners []models.RaceRow, winningOdds []float64) []models.RaceRow {
	if len(winners) == 0 {
		return nil
	}

	threshold := Percentile(winningOdds, 0.75)

	var upsets []models.RaceRow
	for _, w := range winners {
		if w.Odds > threshold {
			upsets = append(upsets, w)
		}
	}

	sort.Slice(upsets, func(i, j int) bool {
		return upsets[i].Odds > upsets[j].Odds
	})

	if len(upsets) > 5 {
		upsets = upsets[:5]
	}
	return upsets
}

// Percentile computes the q-th percentile with linear interpolation
// between the two nearest ranks.
func Percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

func oddsRange(odds []float64) models.OddsRange {
	if len(odds) == 0 {
		return models.OddsRange{}
	}

	min, max, sum := odds[0], odds[0], 0.0
	for _, o := range odds {
		if o < min {
			min = o
		}
		if o > max {
			max = o
		}
		sum += o
	}
	return models.OddsRange{
		Avg: round2(sum / float64(len(odds))),
		Min: min,
		Max: max,
	}
}

func jockeyOddsStats(rows []models.RaceRow) []models.JockeyOdds {
	type acc struct {
		sum      float64
		min, max float64
		total    int
		wins     int
	}
	byJockey := make(map[string]*acc)
	for _, row := range rows {
		a := byJockey[row.Jockey]
		if a == nil {
			a = &acc{min: row.Odds, max: row.Odds}
			byJockey[row.Jockey] = a
		}
		a.sum += row.Odds
		a.total++
		if row.Odds < a.min {
			a.min = row.Odds
		}
		if row.Odds > a.max {
			a.max = row.Odds
		}
		if row.FinishPosition == 1 {
			a.wins++
		}
	}

	stats := make([]models.JockeyOdds, 0, len(byJockey))
	for jockey, a := range byJockey {
		stats = append(stats, models.JockeyOdds{
			Jockey:  jockey,
			Mean:    round2(a.sum / float64(a.total)),
			Min:     a.min,
			Max:     a.max,
			WinRate: round2(float64(a.wins) / float64(a.total) * 100),
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].WinRate > stats[j].WinRate
	})
	return stats
}

// topByWinRate ranks by win rate descending; ties go to the jockey
// with the lower (better) average position.
func topByWinRate(stats []models.JockeyStat, n int) []models.JockeyStat {
	ranked := make([]models.JockeyStat, len(stats))
	copy(ranked, stats)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].WinRate != ranked[j].WinRate {
			return ranked[i].WinRate > ranked[j].WinRate
		}
		return ranked[i].AvgPosition < ranked[j].AvgPosition
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func topByTotalRaces(stats []models.JockeyStat, n int) []models.JockeyStat {
	ranked := make([]models.JockeyStat, len(stats))
	copy(ranked, stats)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TotalRaces != ranked[j].TotalRaces {
			return ranked[i].TotalRaces > ranked[j].TotalRaces
		}
		return ranked[i].Jockey < ranked[j].Jockey
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
