package normalize

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFinishPosition(t *testing.T) {
	for _, token := range []string{"WV", "---", "DISQ", "DNF", "PU", "WX", ""} {
		assert.Equal(t, 99, ParseFinishPosition(token), "token %q", token)
	}

	for i := 1; i <= 20; i++ {
		assert.Equal(t, i, ParseFinishPosition(fmt.Sprintf("%d", i)))
	}

	assert.Equal(t, 99, ParseFinishPosition("abc"))
	assert.Equal(t, 99, ParseFinishPosition("1st"))
	assert.Equal(t, 3, ParseFinishPosition("  3  "))
}

func TestParseOdds(t *testing.T) {
	assert.Equal(t, 4.5, ParseOdds("4.5"))
	assert.Equal(t, 102.0, ParseOdds(" 102 "))
	assert.Equal(t, 0.0, ParseOdds("---"))
	assert.Equal(t, 0.0, ParseOdds(""))
	assert.Equal(t, 0.0, ParseOdds("n/a"))
}

func TestParseDistance(t *testing.T) {
	assert.Equal(t, 1200, ParseDistance("1200米"))
	assert.Equal(t, 1650, ParseDistance(" 1650 m "))
	assert.Equal(t, 0, ParseDistance("no digits"))
	assert.Equal(t, 0, ParseDistance(""))
}

func TestSplitHorseName(t *testing.T) {
	name, code := SplitHorseName("GOLDEN SIXTY (A123)")
	assert.Equal(t, "GOLDEN SIXTY", name)
	assert.Equal(t, "A123", code)

	name, code = SplitHorseName("ROMANTIC WARRIOR")
	assert.Equal(t, "ROMANTIC WARRIOR", name)
	assert.Equal(t, "", code)

	name, code = SplitHorseName("  BEAUTY JOY (B77)  ")
	assert.Equal(t, "BEAUTY JOY", name)
	assert.Equal(t, "B77", code)
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "2024-03-17", NormalizeDate("2024/03/17"))
	assert.Equal(t, "2024-01-01", NormalizeDate(" 2024/01/01 "))

	// Unparseable input comes back unchanged for the caller to reject.
	assert.Equal(t, "17/03/2024", NormalizeDate("17/03/2024"))
	assert.Equal(t, "not a date", NormalizeDate("not a date"))
}

func TestParseRaceHeader(t *testing.T) {
	raceID, distance := ParseRaceHeader("第一場 賽事 (823) 第3班 - 1200米")
	assert.Equal(t, "823", raceID)
	assert.Equal(t, 1200, distance)

	raceID, distance = ParseRaceHeader("")
	assert.Equal(t, "0", raceID)
	assert.Equal(t, 0, distance)

	raceID, distance = ParseRaceHeader("short header")
	assert.Equal(t, "0", raceID)
	assert.Equal(t, 0, distance)
}
