package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonogibbs/d52sg/internal/config"
	"github.com/jonogibbs/d52sg/internal/pairing"
)

func round(n int, kind pairing.Kind, pairs ...[2]string) pairing.Round {
	r := pairing.Round{Number: n, Kind: kind}
	for _, p := range pairs {
		r.Matchups = append(r.Matchups, pairing.Matchup{A: p[0], B: p[1]})
	}
	return r
}

func planFor(t *testing.T, a *assignment, week int, block config.Block) *slotPlan {
	t.Helper()
	for i := range a.Plans {
		if a.Plans[i].Slot.Week == week && a.Plans[i].Slot.Block == block {
			return &a.Plans[i]
		}
	}
	t.Fatalf("no plan for week %d %s", week, block)
	return nil
}

func TestAssignRoundsOneRoundPerSlot(t *testing.T) {
	cfg := mustConfig(t, genYAML)
	slots, err := BuildCalendar(cfg)
	require.NoError(t, err)

	north := []pairing.Round{
		round(1, pairing.KindIntra, [2]string{"LYN1", "PEA1"}, [2]string{"SAU1", "BOX1"}),
		round(2, pairing.KindIntra, [2]string{"LYN1", "SAU1"}, [2]string{"PEA1", "BOX1"}),
		round(3, pairing.KindIntra, [2]string{"LYN1", "BOX1"}, [2]string{"PEA1", "SAU1"}),
	}
	south := []pairing.Round{
		round(1, pairing.KindIntra, [2]string{"DAN1", "MID1"}, [2]string{"TOP1", "WEN1"}),
		round(2, pairing.KindIntra, [2]string{"DAN1", "TOP1"}, [2]string{"MID1", "WEN1"}),
		round(3, pairing.KindIntra, [2]string{"DAN1", "WEN1"}, [2]string{"MID1", "TOP1"}),
	}
	cross := []pairing.Round{
		round(1, pairing.KindCrossover,
			[2]string{"LYN1", "DAN1"}, [2]string{"PEA1", "MID1"},
			[2]string{"SAU1", "TOP1"}, [2]string{"BOX1", "WEN1"}),
		round(2, pairing.KindCrossover,
			[2]string{"LYN1", "MID1"}, [2]string{"PEA1", "DAN1"},
			[2]string{"SAU1", "WEN1"}, [2]string{"BOX1", "TOP1"}),
	}

	a := assignRounds(cfg, slots, north, south, cross, zap.NewNop())
	assert.Empty(t, a.Unscheduled)
	assert.Empty(t, a.Byes)

	// With every slot equally open, rounds land in calendar order: one
	// round per pool per weekday slot, one crossover round per weekend.
	for week := 1; week <= 3; week++ {
		plan := planFor(t, a, week, config.BlockWeekday)
		require.Len(t, plan.Placements, 4, "week %d", week)
		for _, p := range plan.Placements {
			assert.Equal(t, week, p.Round)
			assert.Equal(t, OriginRound, p.Origin)
			assert.Equal(t, pairing.KindIntra, p.Kind)
		}
	}
	for week := 4; week <= 8; week++ {
		assert.Empty(t, planFor(t, a, week, config.BlockWeekday).Placements)
	}

	for week := 1; week <= 2; week++ {
		plan := planFor(t, a, week, config.BlockWeekend)
		require.Len(t, plan.Placements, 4, "week %d weekend", week)
		for _, p := range plan.Placements {
			assert.Equal(t, pairing.KindCrossover, p.Kind)
		}
	}
	assert.Empty(t, planFor(t, a, 3, config.BlockWeekend).Placements)
}

func TestVisitOrderMostConstrainedFirst(t *testing.T) {
	// Lynn is dark in week 2, so week 2 has the fewest available teams and
	// must be offered rounds before the wide-open weeks.
	cfg := mustConfig(t, edited("blackout_dates: []", `blackout_dates: ["2026-04-13:2026-04-19"]`))
	slots, err := BuildCalendar(cfg)
	require.NoError(t, err)

	a := assignRounds(cfg, slots, nil, nil, nil, zap.NewNop())
	assert.Equal(t, []int{2, 0, 4, 6, 8, 10, 12, 14}, a.visitOrder(config.BlockWeekday))
	assert.Equal(t, []int{3, 1, 5, 7, 9, 11, 13, 15}, a.visitOrder(config.BlockWeekend))
}

func TestConsumeBestPrefersLowestRoundOnTies(t *testing.T) {
	cfg := mustConfig(t, genYAML)
	slots, err := BuildCalendar(cfg)
	require.NoError(t, err)

	north := []pairing.Round{
		round(1, pairing.KindIntra, [2]string{"LYN1", "PEA1"}),
		round(2, pairing.KindIntra, [2]string{"SAU1", "BOX1"}),
	}
	a := assignRounds(cfg, slots, north, nil, nil, zap.NewNop())

	first := planFor(t, a, 1, config.BlockWeekday)
	require.Len(t, first.Placements, 1)
	assert.Equal(t, 1, first.Placements[0].Round)

	second := planFor(t, a, 2, config.BlockWeekday)
	require.Len(t, second.Placements, 1)
	assert.Equal(t, 2, second.Placements[0].Round)
}

func TestAssignRoundsDefersAndRetries(t *testing.T) {
	// Week 1 is dark for Lynn. The tightest slot still takes the round,
	// playing what it can and pushing the Lynn matchup to a later week.
	cfg := mustConfig(t, edited("blackout_dates: []", `blackout_dates: ["2026-04-06:2026-04-12"]`))
	slots, err := BuildCalendar(cfg)
	require.NoError(t, err)

	north := []pairing.Round{
		round(1, pairing.KindIntra, [2]string{"LYN1", "PEA1"}, [2]string{"SAU1", "BOX1"}),
		round(2, pairing.KindIntra, [2]string{"LYN1", "SAU1"}, [2]string{"PEA1", "BOX1"}),
	}
	a := assignRounds(cfg, slots, north, nil, nil, zap.NewNop())
	assert.Empty(t, a.Unscheduled)

	week1 := planFor(t, a, 1, config.BlockWeekday)
	require.Len(t, week1.Placements, 1)
	assert.Equal(t, pairing.Matchup{A: "SAU1", B: "BOX1"}, week1.Placements[0].Matchup)
	assert.Equal(t, OriginRound, week1.Placements[0].Origin)

	week2 := planFor(t, a, 2, config.BlockWeekday)
	assert.Len(t, week2.Placements, 2, "round 2 fits whole")

	// The deferred matchup takes the earliest open slot: week 3, since
	// Lynn already plays in week 2's round.
	week3 := planFor(t, a, 3, config.BlockWeekday)
	require.Len(t, week3.Placements, 1)
	p := week3.Placements[0]
	assert.Equal(t, pairing.Matchup{A: "LYN1", B: "PEA1"}, p.Matchup)
	assert.Equal(t, 1, p.Round)
	assert.Equal(t, OriginMakeup, p.Origin)
}

func TestAssignRoundsLeftoversBecomeUnscheduled(t *testing.T) {
	// Two weeks cannot hold three rounds of a four-team pool: the third
	// round's matchups find every slot occupied by their own teams.
	cfg := mustConfig(t, edited("end_date: 2026-05-31", "end_date: 2026-04-19"))
	slots, err := BuildCalendar(cfg)
	require.NoError(t, err)

	north := []pairing.Round{
		round(1, pairing.KindIntra, [2]string{"LYN1", "PEA1"}, [2]string{"SAU1", "BOX1"}),
		round(2, pairing.KindIntra, [2]string{"LYN1", "SAU1"}, [2]string{"PEA1", "BOX1"}),
		round(3, pairing.KindIntra, [2]string{"LYN1", "BOX1"}, [2]string{"PEA1", "SAU1"}),
	}
	a := assignRounds(cfg, slots, north, nil, nil, zap.NewNop())

	require.Len(t, a.Unscheduled, 2)
	for _, u := range a.Unscheduled {
		assert.Equal(t, 3, u.Round)
		assert.Equal(t, pairing.KindIntra, u.Kind)
		assert.Equal(t, "no weekday slot has both teams free", u.Reason)
	}
}

func TestAssignRoundsTalliesByes(t *testing.T) {
	cfg := mustConfig(t, genYAML)
	slots, err := BuildCalendar(cfg)
	require.NoError(t, err)

	north := []pairing.Round{{
		Number:   1,
		Kind:     pairing.KindIntra,
		Matchups: []pairing.Matchup{{A: "LYN1", B: "PEA1"}},
		Byes:     []string{"SAU1", "BOX1"},
	}}
	cross := []pairing.Round{{
		Number:   1,
		Kind:     pairing.KindCrossover,
		Matchups: []pairing.Matchup{{A: "LYN1", B: "DAN1"}},
		Byes:     []string{"WEN1"},
	}}
	a := assignRounds(cfg, slots, north, nil, cross, zap.NewNop())

	assert.Equal(t, map[string]int{"SAU1": 1, "BOX1": 1, "WEN1": 1}, a.Byes)
}
