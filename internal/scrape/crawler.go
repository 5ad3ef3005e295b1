package scrape

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/raceinsight/backend/internal/metrics"
	"github.com/raceinsight/backend/internal/scrape/normalize"
	"github.com/raceinsight/backend/internal/storage/models"
	"github.com/raceinsight/backend/pkg/errs"
	"github.com/raceinsight/backend/pkg/logger"
)

const (
	resultsTableSelector = "table.table_bd.draggable"
	resultRowSelector    = "table.table_bd.draggable tr:not(.bg_blue):not(.bg_gold)"
	raceHeaderSelector   = ".race_tab .f_title"
	raceDistanceSelector = ".race_tab td"

	// A result row carries 12 positional columns; anything shorter is a
	// header or spacer row and is skipped.
	minColumns = 12

	colDraw       = 0
	colRank       = 1
	colHorse      = 2
	colJockey     = 3
	colTrainer    = 4
	colFinishTime = 10
	colOdds       = 11
)

type CrawlerConfig struct {
	BaseURL        string
	Racecourse     string
	NavTimeout     time.Duration
	MaxRacesPerDay int
}

// Crawler walks one date's race pages: an index check first, then race
// pages 1..MaxRacesPerDay until a page without a results table marks
// the end of the day. Per-race failures are isolated; only the initial
// day check can fail the whole date.
type Crawler struct {
	renderer Renderer
	cfg      CrawlerConfig
}

func NewCrawler(renderer Renderer, cfg CrawlerConfig) *Crawler {
	if cfg.NavTimeout == 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if cfg.MaxRacesPerDay == 0 {
		cfg.MaxRacesPerDay = 12
	}
	return &Crawler{renderer: renderer, cfg: cfg}
}

// CrawlDate returns every extractable row for a date (YYYY-MM-DD). An
// empty slice with a nil error means no races ran that day.
func (c *Crawler) CrawlDate(ctx context.Context, date string) ([]models.RaceRow, error) {
	urlDate := strings.ReplaceAll(date, "-", "/")

	page, err := c.renderer.Navigate(ctx, c.raceURL(urlDate, 1), c.cfg.NavTimeout)
	if err != nil {
		return nil, fmt.Errorf("day check for %s: %w", date, err)
	}

	if !page.IsVisible(resultsTableSelector) {
		logger.Info("No races on date", zap.String("date", date))
		return nil, nil
	}

	var rows []models.RaceRow
	for raceNo := 1; raceNo <= c.cfg.MaxRacesPerDay; raceNo++ {
		if err := ctx.Err(); err != nil {
			return rows, err
		}

		racePage := page
		if raceNo > 1 {
			racePage, err = c.renderer.Navigate(ctx, c.raceURL(urlDate, raceNo), c.cfg.NavTimeout)
			if err != nil {
				logger.Warn("Failed to fetch race page, skipping race",
					zap.String("date", date),
					zap.Int("race", raceNo),
					zap.Error(err),
				)
				metrics.RaceExtractFailures.Inc()
				continue
			}
		}

		if !racePage.IsVisible(resultsTableSelector) {
			// End of the day's card, not an error.
			break
		}

		raceRows, err := c.extractRace(racePage, date, raceNo)
		if err != nil {
			logger.Warn("Failed to extract race, skipping",
				zap.String("date", date),
				zap.Int("race", raceNo),
				zap.Error(err),
			)
			metrics.RaceExtractFailures.Inc()
			continue
		}

		rows = append(rows, raceRows...)
		metrics.RacesCrawled.Inc()
	}

	logger.Info("Date crawled",
		zap.String("date", date),
		zap.Int("rows", len(rows)),
	)
	metrics.RowsExtracted.Add(float64(len(rows)))
	return rows, nil
}

func (c *Crawler) raceURL(urlDate string, raceNo int) string {
	return fmt.Sprintf("%s?RaceDate=%s&Racecourse=%s&RaceNo=%d",
		c.cfg.BaseURL, urlDate, c.cfg.Racecourse, raceNo)
}

func (c *Crawler) extractRace(page Page, date string, raceNo int) ([]models.RaceRow, error) {
	raceInfo := c.raceHeader(page)
	raceID, distance := normalize.ParseRaceHeader(raceInfo)

	rowElements := page.QueryAll(resultRowSelector)
	if len(rowElements) == 0 {
		return nil, errs.DataProcess("no result rows on race %d page", raceNo)
	}

	var rows []models.RaceRow
	for i, rowEl := range rowElements {
		cols := rowEl.QueryAll("td")
		if len(cols) < minColumns {
			// Header or spacer row.
			continue
		}

		logger.Debug("Extracting row",
			zap.String("date", date),
			zap.Int("race", raceNo),
			zap.Int("row", i),
		)
		rows = append(rows, c.extractRow(cols, date, raceNo, raceID, distance, raceInfo))
	}

	return rows, nil
}

// raceHeader joins the race title with the distance cell so one string
// carries both the race id and the distance for normalization.
func (c *Crawler) raceHeader(page Page) string {
	var title string
	if headers := page.QueryAll(raceHeaderSelector); len(headers) > 0 {
		title = strings.TrimSpace(headers[0].Text())
	}

	var distanceText string
	for _, cell := range page.QueryAll(raceDistanceSelector) {
		text := strings.TrimSpace(cell.Text())
		if strings.Contains(text, "米") {
			distanceText = text
			break
		}
	}

	if distanceText == "" {
		return title
	}
	return title + " - " + distanceText
}

func (c *Crawler) extractRow(cols []Element, date string, raceNo int, raceID string, distance int, raceInfo string) models.RaceRow {
	horseName, horseNo := normalize.SplitHorseName(cols[colHorse].Text())

	draw, err := strconv.Atoi(strings.TrimSpace(cols[colDraw].Text()))
	if err != nil {
		draw = 0
	}

	return models.RaceRow{
		RaceDate:       date,
		RaceID:         raceID,
		RaceNumber:     raceNo,
		HorseNo:        horseNo,
		HorseName:      horseName,
		Draw:           draw,
		FinishPosition: normalize.ParseFinishPosition(cols[colRank].Text()),
		Jockey:         strings.TrimSpace(cols[colJockey].Text()),
		Trainer:        strings.TrimSpace(cols[colTrainer].Text()),
		FinishTime:     strings.TrimSpace(cols[colFinishTime].Text()),
		Odds:           normalize.ParseOdds(cols[colOdds].Text()),
		Distance:       distance,
		RaceInfo:       raceInfo,
	}
}
