package models

// SentinelPosition marks any non-finishing or unreadable result
// (withdrawn, disqualified, did not finish, unparseable rank).
const SentinelPosition = 99

// SentinelOdds marks absent or unreadable odds ("---" on the page).
const SentinelOdds = 0.0

// RaceRow is one horse's result in one race on one date. Rows are
// logically identified by (RaceDate, RaceID, HorseNo); re-ingesting a
// date refreshes FinishPosition, Odds and FinishTime but never creates
// a duplicate.
type RaceRow struct {
	RaceDate       string  `json:"race_date"` // YYYY-MM-DD
	RaceID         string  `json:"race_id"`   // digits only, "0" if unparseable
	RaceNumber     int     `json:"race_number"`
	HorseNo        string  `json:"horse_no"`
	HorseName      string  `json:"horse_name"`
	Draw           int     `json:"draw"`
	FinishPosition int     `json:"finish_position"`
	Jockey         string  `json:"jockey"`
	Trainer        string  `json:"trainer"`
	FinishTime     string  `json:"finish_time"`
	Odds           float64 `json:"odds"`
	Distance       int     `json:"distance"`
	RaceInfo       string  `json:"race_info"`
}

// JockeyStat aggregates one jockey's results over a period. AvgPosition
// includes sentinel-99 positions for non-finishers, which inflates the
// mean; consumers must account for that.
type JockeyStat struct {
	Date        string  `json:"date"`
	Jockey      string  `json:"jockey"`
	TotalRaces  int     `json:"total_races"`
	Wins        int     `json:"wins"`
	WinRate     float64 `json:"win_rate"` // percentage 0-100, 2 decimals
	AvgPosition float64 `json:"avg_position"`
}

type OddsRange struct {
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type JockeyOdds struct {
	Jockey  string  `json:"jockey"`
	Mean    float64 `json:"mean"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	WinRate float64 `json:"win_rate"`
}

type PeriodSummary struct {
	TotalRaces     int     `json:"total_races"`
	TotalRaceDays  int     `json:"total_race_days"`
	ActiveJockeys  int     `json:"active_jockeys"`
	AvgRacesPerDay float64 `json:"avg_races_per_day"` // 1 decimal
}

// YearlySummary is the full analytics output for a period. Derived,
// recomputed per query, never a source of truth.
type YearlySummary struct {
	Summary     PeriodSummary `json:"summary"`
	Overall     OddsRange     `json:"overall_odds"`
	Winners     OddsRange     `json:"winning_odds"`
	UpsetWins   []RaceRow     `json:"upset_wins"`
	JockeyOdds  []JockeyOdds  `json:"jockey_odds"`
	JockeyStats []JockeyStat  `json:"jockey_stats"`
	TopJockeys  []JockeyStat  `json:"top_jockeys"`
	MostActive  []JockeyStat  `json:"most_active"`
}
