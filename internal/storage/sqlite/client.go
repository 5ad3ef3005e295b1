package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/raceinsight/backend/internal/metrics"
	"github.com/raceinsight/backend/internal/storage/models"
	"github.com/raceinsight/backend/pkg/errs"
	"github.com/raceinsight/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS race_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		race_date TEXT NOT NULL,
		race_id TEXT NOT NULL,
		race_number INTEGER NOT NULL,
		horse_no TEXT NOT NULL,
		horse_name TEXT,
		draw INTEGER DEFAULT 0,
		finish_position INTEGER NOT NULL,
		jockey TEXT,
		trainer TEXT,
		finish_time TEXT,
		odds REAL DEFAULT 0,
		distance INTEGER DEFAULT 0,
		race_info TEXT,
		UNIQUE(race_date, race_id, horse_no)
	);
	CREATE INDEX IF NOT EXISTS idx_race_results_date ON race_results(race_date);
	CREATE INDEX IF NOT EXISTS idx_race_results_jockey ON race_results(jockey);

	CREATE TABLE IF NOT EXISTS jockey_stats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		jockey TEXT NOT NULL,
		total_races INTEGER NOT NULL,
		wins INTEGER NOT NULL,
		win_rate REAL NOT NULL,
		avg_position REAL NOT NULL,
		UNIQUE(date, jockey)
	);
	CREATE INDEX IF NOT EXISTS idx_jockey_stats_date ON jockey_stats(date);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return errs.WrapStorage(err, "failed to initialize schema")
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// SaveRaceRows upserts rows in one transaction. Identity is
// (race_date, race_id, horse_no); a conflict refreshes only the
// mutable result fields. A failure rolls back the whole batch so a
// date is never partially applied.
func (c *Client) SaveRaceRows(ctx context.Context, rows []models.RaceRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.WrapStorage(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO race_results (race_date, race_id, race_number, horse_no, horse_name,
			draw, finish_position, jockey, trainer, finish_time, odds, distance, race_info)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(race_date, race_id, horse_no) DO UPDATE SET
			finish_position = excluded.finish_position,
			odds = excluded.odds,
			finish_time = excluded.finish_time
	`)
	if err != nil {
		return errs.WrapStorage(err, "failed to prepare upsert")
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.ExecContext(ctx,
			row.RaceDate,
			row.RaceID,
			row.RaceNumber,
			row.HorseNo,
			row.HorseName,
			row.Draw,
			row.FinishPosition,
			row.Jockey,
			row.Trainer,
			row.FinishTime,
			row.Odds,
			row.Distance,
			row.RaceInfo,
		)
		if err != nil {
			return errs.WrapStorage(err, fmt.Sprintf("failed to upsert row %s/%s/%s",
				row.RaceDate, row.RaceID, row.HorseNo))
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.WrapStorage(err, "failed to commit race rows")
	}

	metrics.RowsSaved.Add(float64(len(rows)))
	logger.Info("Race rows saved", zap.Int("rows", len(rows)), zap.String("date", rows[0].RaceDate))
	return nil
}

// QueryRaceRows returns rows in the inclusive date range, ordered by
// race date.
func (c *Client) QueryRaceRows(ctx context.Context, startDate, endDate string) ([]models.RaceRow, error) {
	query := `
		SELECT race_date, race_id, race_number, horse_no, horse_name, draw,
			finish_position, jockey, trainer, finish_time, odds, distance, race_info
		FROM race_results
		WHERE race_date BETWEEN ? AND ?
		ORDER BY race_date
	`

	dbRows, err := c.db.QueryContext(ctx, query, startDate, endDate)
	if err != nil {
		return nil, errs.WrapStorage(err, "failed to query race rows")
	}
	defer dbRows.Close()

	var rows []models.RaceRow
	for dbRows.Next() {
		var r models.RaceRow
		err := dbRows.Scan(
			&r.RaceDate,
			&r.RaceID,
			&r.RaceNumber,
			&r.HorseNo,
			&r.HorseName,
			&r.Draw,
			&r.FinishPosition,
			&r.Jockey,
			&r.Trainer,
			&r.FinishTime,
			&r.Odds,
			&r.Distance,
			&r.RaceInfo,
		)
		if err != nil {
			return nil, errs.WrapStorage(err, "failed to scan race row")
		}
		rows = append(rows, r)
	}
	if err := dbRows.Err(); err != nil {
		return nil, errs.WrapStorage(err, "failed to iterate race rows")
	}

	return rows, nil
}

// HasDate reports whether any rows exist for a date. The orchestrator
// uses this as its de-duplication check before crawling.
func (c *Client) HasDate(ctx context.Context, date string) (bool, error) {
	var count int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM race_results WHERE race_date = ?", date).Scan(&count)
	if err != nil {
		return false, errs.WrapStorage(err, "failed to check date existence")
	}
	return count > 0, nil
}

// SaveJockeyStats upserts derived stats keyed by (date, jockey). The
// table is a recomputable cache, never a source of truth.
func (c *Client) SaveJockeyStats(ctx context.Context, stats []models.JockeyStat) error {
	if len(stats) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.WrapStorage(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO jockey_stats (date, jockey, total_races, wins, win_rate, avg_position)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, jockey) DO UPDATE SET
			total_races = excluded.total_races,
			wins = excluded.wins,
			win_rate = excluded.win_rate,
			avg_position = excluded.avg_position
	`)
	if err != nil {
		return errs.WrapStorage(err, "failed to prepare stats upsert")
	}
	defer stmt.Close()

	for _, s := range stats {
		_, err := stmt.ExecContext(ctx, s.Date, s.Jockey, s.TotalRaces, s.Wins, s.WinRate, s.AvgPosition)
		if err != nil {
			return errs.WrapStorage(err, fmt.Sprintf("failed to upsert stats for %s/%s", s.Date, s.Jockey))
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.WrapStorage(err, "failed to commit jockey stats")
	}

	logger.Info("Jockey stats saved", zap.Int("stats", len(stats)))
	return nil
}
