package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonogibbs/d52sg/internal/config"
)

func weekdayGame(home, away string, d time.Time) Game {
	return Game{Home: home, Away: away, Block: config.BlockWeekday, Date: d}
}

func TestTrimKeepsBalancedSchedule(t *testing.T) {
	cfg := mustConfig(t, balanceYAML)
	games := []Game{
		weekdayGame("BRS1", "BRS2", date(2026, time.April, 7)),
		weekdayGame("BRS2", "BRS1", date(2026, time.April, 14)),
		weekdayGame("HAV1", "DAN1", date(2026, time.April, 7)),
		weekdayGame("DAN1", "HAV1", date(2026, time.April, 14)),
		{Home: "BRS1", Away: "HAV1", Block: config.BlockWeekend, Date: date(2026, time.April, 11)},
	}
	kept, removed := trimExcess(cfg, games, TrimLatestDate)
	assert.Empty(t, removed)
	assert.Equal(t, games, kept)
}

func TestTrimHomeAwayExcess(t *testing.T) {
	// BRS1 is home three times and away once on weekdays, and two of its
	// home games repeat the same pairing. The repeat goes first; which of
	// the two depends on the policy.
	games := []Game{
		weekdayGame("BRS1", "BRS2", date(2026, time.April, 14)),
		weekdayGame("BRS1", "BRS2", date(2026, time.April, 7)),
		weekdayGame("BRS1", "HAV1", date(2026, time.April, 21)),
		weekdayGame("DAN1", "BRS1", date(2026, time.April, 8)),
	}

	t.Run("latest date", func(t *testing.T) {
		cfg := mustConfig(t, balanceYAML)
		kept, removed := trimExcess(cfg, games, TrimLatestDate)
		require.Len(t, removed, 1)
		assert.Equal(t, date(2026, time.April, 14), removed[0].Date)
		assert.Len(t, kept, 3)
	})

	t.Run("newest added", func(t *testing.T) {
		cfg := mustConfig(t, balanceYAML)
		kept, removed := trimExcess(cfg, games, TrimNewestAdded)
		require.Len(t, removed, 1)
		assert.Equal(t, date(2026, time.April, 7), removed[0].Date)
		assert.Len(t, kept, 3)
	})
}

func TestTrimGameCountSpread(t *testing.T) {
	cfg := mustConfig(t, balanceYAML)
	// The BRS pair has four games to everyone else's two. Home/away is
	// perfectly split, so only the spread rule can fire, and it may only
	// take games from teams that stay above the floor.
	games := []Game{
		weekdayGame("BRS1", "BRS2", date(2026, time.April, 7)),
		weekdayGame("BRS2", "BRS1", date(2026, time.April, 14)),
		weekdayGame("BRS1", "BRS2", date(2026, time.April, 21)),
		weekdayGame("BRS2", "BRS1", date(2026, time.April, 28)),
		weekdayGame("HAV1", "DAN1", date(2026, time.April, 7)),
		weekdayGame("DAN1", "HAV1", date(2026, time.April, 14)),
	}
	kept, removed := trimExcess(cfg, games, TrimLatestDate)

	// MID1 has zero games but is weekday-only, so it does not drag the
	// floor down: one removal settles the spread at 3 versus 2.
	require.Len(t, removed, 1)
	assert.Equal(t, date(2026, time.April, 28), removed[0].Date)
	assert.Len(t, kept, 5)
}

func TestSpreadBoundsSkipWeekdayOnlyTeams(t *testing.T) {
	cfg := mustConfig(t, balanceYAML)
	totals := map[string]int{"BRS1": 2, "BRS2": 2, "HAV1": 2, "DAN1": 2, "MID1": 0}
	lo, hi := spreadBounds(cfg, totals)
	assert.Equal(t, 2, lo)
	assert.Equal(t, 2, hi)
}

func TestParseTrimPolicy(t *testing.T) {
	p, err := ParseTrimPolicy("latest-date")
	require.NoError(t, err)
	assert.Equal(t, TrimLatestDate, p)

	p, err = ParseTrimPolicy("newest-added")
	require.NoError(t, err)
	assert.Equal(t, TrimNewestAdded, p)

	_, err = ParseTrimPolicy("oldest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown trim policy")
}
