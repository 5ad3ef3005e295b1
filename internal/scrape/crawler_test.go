package scrape

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raceinsight/backend/pkg/errs"
)

type fakeElement struct {
	text     string
	children []Element
}

func (e *fakeElement) Text() string { return e.text }

func (e *fakeElement) QueryAll(selector string) []Element { return e.children }

// fakePage holds one race page: a header, a distance cell and result
// rows of raw column texts.
type fakePage struct {
	hasTable bool
	header   string
	distance string
	rows     [][]string
}

func (p *fakePage) IsVisible(selector string) bool {
	return selector == resultsTableSelector && p.hasTable
}

func (p *fakePage) QueryAll(selector string) []Element {
	switch selector {
	case raceHeaderSelector:
		return []Element{&fakeElement{text: p.header}}
	case raceDistanceSelector:
		return []Element{&fakeElement{text: p.distance}}
	case resultRowSelector:
		elements := make([]Element, 0, len(p.rows))
		for _, cols := range p.rows {
			row := &fakeElement{}
			for _, col := range cols {
				row.children = append(row.children, &fakeElement{text: col})
			}
			elements = append(elements, row)
		}
		return elements
	}
	return nil
}

type fakeRenderer struct {
	pages  map[int]*fakePage
	errors map[int]error
	visits []int
}

var raceNoPattern = regexp.MustCompile(`RaceNo=(\d+)`)

func (r *fakeRenderer) Navigate(ctx context.Context, url string, timeout time.Duration) (Page, error) {
	m := raceNoPattern.FindStringSubmatch(url)
	raceNo, _ := strconv.Atoi(m[1])
	r.visits = append(r.visits, raceNo)

	if err, ok := r.errors[raceNo]; ok {
		return nil, err
	}
	if page, ok := r.pages[raceNo]; ok {
		return page, nil
	}
	return &fakePage{hasTable: false}, nil
}

func (r *fakeRenderer) Close() error { return nil }

func resultRow(rank, horse, odds string) []string {
	return []string{"5", rank, horse, "some jockey", "some trainer",
		"", "", "", "", "", "1:09.50", odds}
}

func racePage(rows ...[]string) *fakePage {
	return &fakePage{
		hasTable: true,
		header:   "第一場 賽事 (823) 第3班",
		distance: "1200米",
		rows:     rows,
	}
}

func newTestCrawler(renderer Renderer) *Crawler {
	return NewCrawler(renderer, CrawlerConfig{
		BaseURL:        "https://example.test/results",
		Racecourse:     "ST",
		MaxRacesPerDay: 12,
	})
}

func TestCrawlDateNoRaces(t *testing.T) {
	renderer := &fakeRenderer{pages: map[int]*fakePage{
		1: {hasTable: false},
	}}

	rows, err := newTestCrawler(renderer).CrawlDate(context.Background(), "2024-03-17")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, []int{1}, renderer.visits, "day check only, no race pages")
}

func TestCrawlDateStopsAtEndOfDay(t *testing.T) {
	renderer := &fakeRenderer{pages: map[int]*fakePage{
		1: racePage(resultRow("1", "FAST HORSE (A1)", "2.5")),
		2: racePage(resultRow("2", "SLOW HORSE (B2)", "10.0")),
		// Race 3 page has no results table: end of the day's card.
	}}

	rows, err := newTestCrawler(renderer).CrawlDate(context.Background(), "2024-03-17")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "2024-03-17", first.RaceDate)
	assert.Equal(t, "823", first.RaceID)
	assert.Equal(t, 1, first.RaceNumber)
	assert.Equal(t, "FAST HORSE", first.HorseName)
	assert.Equal(t, "A1", first.HorseNo)
	assert.Equal(t, 5, first.Draw)
	assert.Equal(t, 1, first.FinishPosition)
	assert.Equal(t, "some jockey", first.Jockey)
	assert.Equal(t, "some trainer", first.Trainer)
	assert.Equal(t, "1:09.50", first.FinishTime)
	assert.Equal(t, 2.5, first.Odds)
	assert.Equal(t, 1200, first.Distance)

	assert.Equal(t, 2, rows[1].RaceNumber)
	assert.Equal(t, []int{1, 2, 3}, renderer.visits)
}

func TestCrawlDateIsolatesRaceFailures(t *testing.T) {
	pages := make(map[int]*fakePage)
	for n := 1; n <= 12; n++ {
		pages[n] = racePage(resultRow("1", fmt.Sprintf("HORSE %d (C%d)", n, n), "4.0"))
	}
	renderer := &fakeRenderer{
		pages:  pages,
		errors: map[int]error{7: errs.Network("timeout on race 7")},
	}

	rows, err := newTestCrawler(renderer).CrawlDate(context.Background(), "2024-03-17")
	require.NoError(t, err)

	// Race 7 is skipped; every other race still contributes.
	require.Len(t, rows, 11)
	for _, row := range rows {
		assert.NotEqual(t, 7, row.RaceNumber)
	}
}

func TestCrawlDateSkipsShortRows(t *testing.T) {
	renderer := &fakeRenderer{pages: map[int]*fakePage{
		1: racePage(
			resultRow("1", "GOOD ROW (A1)", "3.0"),
			[]string{"too", "few", "columns"},
		),
	}}

	rows, err := newTestCrawler(renderer).CrawlDate(context.Background(), "2024-03-17")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "GOOD ROW", rows[0].HorseName)
}

func TestCrawlDateDayCheckFailurePropagates(t *testing.T) {
	renderer := &fakeRenderer{
		errors: map[int]error{1: errs.Network("connection reset")},
	}

	_, err := newTestCrawler(renderer).CrawlDate(context.Background(), "2024-03-17")
	assert.ErrorIs(t, err, errs.ErrNetwork)
}

func TestCrawlDateSentinelFields(t *testing.T) {
	renderer := &fakeRenderer{pages: map[int]*fakePage{
		1: racePage(resultRow("WV", "WITHDRAWN (D4)", "---")),
	}}

	rows, err := newTestCrawler(renderer).CrawlDate(context.Background(), "2024-03-17")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 99, rows[0].FinishPosition)
	assert.Equal(t, 0.0, rows[0].Odds)
}
