package normalize

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/raceinsight/backend/internal/storage/models"
	"github.com/raceinsight/backend/pkg/logger"
)

// nonFinishTokens are the result-page markers for a horse that never
// produced a rankable finish.
var nonFinishTokens = map[string]bool{
	"WV":   true,
	"---":  true,
	"DISQ": true,
	"DNF":  true,
	"PU":   true,
	"WX":   true,
}

// ParseFinishPosition maps a rank cell to a finish position. Empty
// text, known non-finish tokens and anything unparseable all collapse
// to the sentinel 99, so extraction never stops on a bad cell.
func ParseFinishPosition(text string) int {
	text = strings.TrimSpace(text)
	if text == "" || nonFinishTokens[text] {
		return models.SentinelPosition
	}
	pos, err := strconv.Atoi(text)
	if err != nil {
		logger.Warn("Unparseable finish position, using sentinel",
			zap.String("text", text),
			zap.Int("sentinel", models.SentinelPosition),
		)
		return models.SentinelPosition
	}
	return pos
}

// ParseOdds maps an odds cell to a decimal. "---" and unparseable text
// become the 0.0 sentinel.
func ParseOdds(text string) float64 {
	text = strings.TrimSpace(text)
	if text == "" || text == "---" {
		return models.SentinelOdds
	}
	odds, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return models.SentinelOdds
	}
	return odds
}

// ParseDistance strips everything but digits ("1200米" -> 1200).
func ParseDistance(text string) int {
	digits := keepDigits(text)
	if digits == "" {
		return 0
	}
	dist, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return dist
}

// SplitHorseName separates a trailing parenthesized code from the
// display name: "GOLDEN SIXTY (A123)" -> ("GOLDEN SIXTY", "A123").
func SplitHorseName(text string) (name, code string) {
	text = strings.TrimSpace(text)
	open := strings.Index(text, "(")
	close := strings.Index(text, ")")
	if open >= 0 && close > open {
		return strings.TrimSpace(text[:open]), text[open+1 : close]
	}
	return text, ""
}

// NormalizeDate converts YYYY/MM/DD to YYYY-MM-DD. Unparseable input
// comes back unchanged; callers must treat it as invalid.
func NormalizeDate(text string) string {
	t, err := time.Parse("2006/01/02", strings.TrimSpace(text))
	if err != nil {
		return text
	}
	return t.Format("2006-01-02")
}

// ParseRaceHeader extracts the race id and distance from the combined
// race header text, e.g. "第一場 賽事 (823) ... - 1200米". The id is the
// digits of the third whitespace token; the distance is the digits
// after the last dash. Falls back to ("0", 0) on any mismatch.
func ParseRaceHeader(text string) (raceID string, distance int) {
	raceID = "0"
	fields := strings.Fields(text)
	if len(fields) >= 3 {
		if digits := keepDigits(fields[2]); digits != "" {
			raceID = digits
		}
	}
	if idx := strings.LastIndex(text, "-"); idx >= 0 {
		distance = ParseDistance(text[idx+1:])
	}
	return raceID, distance
}

func keepDigits(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
