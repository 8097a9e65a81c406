package schedule

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonogibbs/d52sg/internal/config"
	"github.com/jonogibbs/d52sg/internal/pairing"
)

// genYAML is a full two-pool season: eight one-team leagues, each with a
// weekday and a weekend field, eight clean weeks. Tests derive variants
// with edited().
const genYAML = `
season:
  name: Juniors 54/80
  start_date: 2026-04-06
  end_date: 2026-05-31
pools:
  north: [LYN1, PEA1, SAU1, BOX1]
  south: [DAN1, MID1, TOP1, WEN1]
leagues:
  LYN:
    full_name: Lynn
    teams: 1
    weekday_fields:
      - field: Fraser Field
        day: tue
    weekend_fields:
      - field: Fraser Field
        day: sat
        time: 10am
    blackout_dates: []
  PEA:
    teams: 1
    weekday_fields:
      - field: Cy Tenney Park
        day: wed
        time: 5:30pm
    weekend_fields:
      - field: Cy Tenney Park
        day: sun
        time: 1pm
  SAU:
    teams: 1
    weekday_fields:
      - field: World Series Park
        day: thu
        time: 6pm
    weekend_fields:
      - field: World Series Park
        day: sat
        time: 11am
  BOX:
    teams: 1
    weekday_fields:
      - field: Emerson Park
        day: mon
        time: 5:45pm
    weekend_fields:
      - field: Emerson Park
        day: sun
        time: 10am
  DAN:
    teams: 1
    weekday_fields:
      - field: Tapley Park
        day: tue
        time: 5:30pm
    weekend_fields:
      - field: Tapley Park
        day: sun
        time: 10am
  MID:
    teams: 1
    weekday_fields:
      - field: Howe-Manning Field
        day: wed
        time: 5:45pm
    weekend_fields:
      - field: Howe-Manning Field
        day: sat
        time: 11am
  TOP:
    teams: 1
    weekday_fields:
      - field: Klock Park
        day: thu
        time: 5:30pm
    weekend_fields:
      - field: Klock Park
        day: sat
        time: 9am
  WEN:
    teams: 1
    weekday_fields:
      - field: Pingree Field
        day: mon
        time: 6pm
    weekend_fields:
      - field: Pingree Field
        day: sun
        time: 1pm
team_overrides: {}
`

func edited(old, new string) string {
	return strings.ReplaceAll(genYAML, old, new)
}

func mustConfig(t *testing.T, yamlText string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromBytes([]byte(yamlText))
	require.NoError(t, err)
	return cfg
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// allGames joins kept and trimmed games: trimming changes what ships, not
// what was scheduled.
func allGames(r *Result) []Game {
	return append(append([]Game(nil), r.Games...), r.Trimmed...)
}

func pairCounts(games []Game) map[pairing.Matchup]int {
	counts := make(map[pairing.Matchup]int)
	for _, g := range games {
		counts[pairing.Matchup{A: g.Home, B: g.Away}.Canonical()]++
	}
	return counts
}

func ownsField(cfg *config.Config, team, field string) bool {
	league := cfg.LeagueOf(team)
	for _, block := range []config.Block{config.BlockWeekday, config.BlockWeekend} {
		for _, fs := range league.FieldSlots(block) {
			if fs.Field == field {
				return true
			}
		}
	}
	return false
}

func TestGenerateFullSeason(t *testing.T) {
	cfg := mustConfig(t, genYAML)
	result, err := Generate(cfg, Options{Seed: 42})
	require.NoError(t, err)

	scheduled := allGames(result)

	t.Run("every matchup scheduled", func(t *testing.T) {
		assert.Empty(t, result.Unscheduled)
		// 6 intra per pool plus the 16 crossover pairs.
		require.Len(t, scheduled, 28)

		counts := pairCounts(scheduled)
		teams := cfg.AllTeams()
		for i := 0; i < len(teams); i++ {
			for j := i + 1; j < len(teams); j++ {
				pair := pairing.Matchup{A: teams[i], B: teams[j]}.Canonical()
				assert.Equal(t, 1, counts[pair], "pair %s", pair)
			}
		}
	})

	t.Run("blocks match game kinds", func(t *testing.T) {
		for _, g := range scheduled {
			if g.Block == config.BlockWeekend {
				assert.Equal(t, pairing.KindCrossover, g.Kind, "game %s vs %s", g.Home, g.Away)
				wd := g.Date.Weekday()
				assert.True(t, wd == time.Saturday || wd == time.Sunday)
			} else {
				assert.Equal(t, pairing.KindIntra, g.Kind, "game %s vs %s", g.Home, g.Away)
			}
		}
	})

	t.Run("one game per team per week block", func(t *testing.T) {
		type key struct {
			team  string
			week  int
			block config.Block
		}
		seen := make(map[key]int)
		for _, g := range result.Games {
			seen[key{g.Home, g.Week, g.Block}]++
			seen[key{g.Away, g.Week, g.Block}]++
		}
		for k, n := range seen {
			assert.LessOrEqual(t, n, 1, "%s week %d %s", k.team, k.week, k.block)
		}
	})

	t.Run("home and away balanced per block", func(t *testing.T) {
		diff := make(map[blockTeam]int)
		for _, g := range result.Games {
			diff[blockTeam{g.Block, g.Home}]++
			diff[blockTeam{g.Block, g.Away}]--
		}
		for k, d := range diff {
			assert.LessOrEqual(t, abs(d), 1, "%s %s home/away diff", k.Team, k.Block)
		}
	})

	t.Run("hosts supply their own fields", func(t *testing.T) {
		for _, g := range result.Games {
			require.NotEmpty(t, g.Field)
			assert.True(t, g.Host == g.Home || g.Host == g.Away)
			assert.True(t, ownsField(cfg, g.Host, g.Field),
				"host %s does not own %s", g.Host, g.Field)
			assert.Equal(t, g.Start.Add(cfg.Season.GameLengthMinutes), g.End)
		}
	})

	t.Run("games sorted and coded", func(t *testing.T) {
		prefix := cfg.Season.GameCodePrefix
		for i, g := range result.Games {
			assert.Equal(t, prefix+strconv.Itoa(i+1), g.Code)
			assert.False(t, g.Date.Before(cfg.Season.StartDate.Time))
			assert.False(t, g.Date.After(cfg.Season.EndDate.Time))
			if i > 0 {
				prev := result.Games[i-1]
				assert.False(t, g.Date.Before(prev.Date), "games out of date order at %d", i)
			}
		}
	})

	t.Run("even pools rest nobody", func(t *testing.T) {
		assert.Empty(t, result.Byes)
	})

	t.Run("run metadata", func(t *testing.T) {
		assert.NotEmpty(t, result.RunID)
		assert.Equal(t, int64(42), result.Seed)
	})
}

func TestGenerateDeterministic(t *testing.T) {
	cfg := mustConfig(t, genYAML)

	first, err := Generate(cfg, Options{Seed: 7})
	require.NoError(t, err)
	second, err := Generate(cfg, Options{Seed: 7})
	require.NoError(t, err)

	assert.Equal(t, first.Games, second.Games, "same seed must reproduce the schedule")
	assert.Equal(t, first.Unscheduled, second.Unscheduled)
	assert.Equal(t, first.Trimmed, second.Trimmed)
	assert.NotEqual(t, first.RunID, second.RunID, "every run gets its own id")
}

func TestGenerateBlackoutMakeups(t *testing.T) {
	// Lynn sits out weeks 3 and 4; its games must land elsewhere.
	cfg := mustConfig(t, edited("blackout_dates: []", `blackout_dates: ["2026-04-20:2026-05-03"]`))
	result, err := Generate(cfg, Options{Seed: 11})
	require.NoError(t, err)

	scheduled := allGames(result)
	assert.Empty(t, result.Unscheduled)
	require.Len(t, scheduled, 28)

	var lynGames, makeups int
	for _, g := range scheduled {
		if g.Origin == OriginMakeup {
			makeups++
		}
		if !g.Involves("LYN1") {
			continue
		}
		lynGames++
		assert.False(t, g.Date.After(date(2026, time.April, 19)) && g.Date.Before(date(2026, time.May, 4)),
			"LYN1 plays on blacked-out %s", g.Date.Format("01/02"))
	}
	assert.Equal(t, 7, lynGames, "the full slate still gets played")
	assert.Equal(t, 4, makeups, "two weekday and two weekend games move")
}

func TestGenerateFieldlessLeague(t *testing.T) {
	cfg := mustConfig(t, edited(`    weekday_fields:
      - field: Pingree Field
        day: mon
        time: 6pm
    weekend_fields:
      - field: Pingree Field
        day: sun
        time: 1pm
`, ""))
	require.False(t, cfg.LeagueOf("WEN1").HasFields())

	result, err := Generate(cfg, Options{Seed: 3})
	require.NoError(t, err)
	assert.Empty(t, result.Unscheduled)
	require.Len(t, allGames(result), 28)

	var wenHome bool
	for _, g := range allGames(result) {
		if !g.Involves("WEN1") {
			continue
		}
		opponent := g.Opponent("WEN1")
		assert.Equal(t, opponent, g.Host, "the fielded side hosts")
		assert.True(t, ownsField(cfg, opponent, g.Field))
		if g.Home == "WEN1" {
			wenHome = true
		}
	}
	assert.True(t, wenHome, "a fieldless team still takes home designations")
}

func TestGenerateWeekdayOnlyTeam(t *testing.T) {
	cfg := mustConfig(t, edited("team_overrides: {}", `team_overrides:
  SAU1:
    weekday_only: true
`))
	result, err := Generate(cfg, Options{Seed: 5})
	require.NoError(t, err)

	scheduled := allGames(result)
	assert.Empty(t, result.Unscheduled)
	// 12 intra games plus 3x4 crossover pairs.
	require.Len(t, scheduled, 24)

	counts := pairCounts(scheduled)
	south := cfg.PoolTeams(config.PoolSouth)
	for _, s := range south {
		pair := pairing.Matchup{A: "SAU1", B: s}.Canonical()
		assert.Zero(t, counts[pair], "SAU1 must not cross over")
	}
	for _, n := range []string{"LYN1", "PEA1", "BOX1"} {
		for _, s := range south {
			pair := pairing.Matchup{A: n, B: s}.Canonical()
			assert.Equal(t, 1, counts[pair], "pair %s", pair)
		}
	}

	var sauGames int
	for _, g := range scheduled {
		if g.Involves("SAU1") {
			sauGames++
			assert.Equal(t, config.BlockWeekday, g.Block)
		}
	}
	assert.Equal(t, 3, sauGames)

	t.Run("larger pool rotates crossover byes", func(t *testing.T) {
		require.Len(t, result.Byes, 4)
		for _, s := range south {
			assert.Equal(t, 1, result.Byes[s])
		}
	})
}

func TestGenerateCrossoverPoolTooSmall(t *testing.T) {
	// Two of four north teams never play weekends, leaving one team to
	// cross over: that is a configuration problem, not a scheduling one.
	cfg := mustConfig(t, edited("team_overrides: {}", `team_overrides:
  SAU1:
    weekday_only: true
  LYN1:
    weekday_only: true
  PEA1:
    weekday_only: true
`))
	_, err := Generate(cfg, Options{Seed: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crossover")
}

func TestSortGames(t *testing.T) {
	games := []Game{
		{Home: "B", Date: date(2026, time.April, 8), Start: config.ClockTime{Hour: 17, Minute: 30}},
		{Home: "A", Date: date(2026, time.April, 7), Start: config.ClockTime{Hour: 18}},
		{Home: "C", Date: date(2026, time.April, 7), Start: config.ClockTime{Hour: 9}},
		{Home: "A", Date: date(2026, time.April, 7), Start: config.ClockTime{Hour: 9}},
	}
	sortGames(games)

	assert.Equal(t, "A", games[0].Home)
	assert.Equal(t, "C", games[1].Home)
	assert.Equal(t, "A", games[2].Home)
	assert.Equal(t, "B", games[3].Home)
}
