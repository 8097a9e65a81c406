package pairing

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teamList(prefix string, n int) []string {
	teams := make([]string, n)
	for i := range teams {
		teams[i] = fmt.Sprintf("%s%d", prefix, i+1)
	}
	return teams
}

func newRng(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func TestRoundRobinEvenCount(t *testing.T) {
	rounds, err := RoundRobin(teamList("T", 4), newRng(42))
	require.NoError(t, err)

	require.Len(t, rounds, 3)
	for i, r := range rounds {
		assert.Equal(t, i+1, r.Number)
		assert.Equal(t, KindIntra, r.Kind)
		assert.Len(t, r.Matchups, 2)
		assert.Empty(t, r.Byes)
	}
}

func TestRoundRobinOddCount(t *testing.T) {
	rounds, err := RoundRobin(teamList("T", 5), newRng(42))
	require.NoError(t, err)

	require.Len(t, rounds, 5)
	byes := make(map[string]int)
	for _, r := range rounds {
		assert.Len(t, r.Matchups, 2)
		require.Len(t, r.Byes, 1)
		byes[r.Byes[0]]++
	}
	for _, team := range teamList("T", 5) {
		assert.Equal(t, 1, byes[team], "every team should rest exactly once")
	}
}

func TestRoundRobinEveryPairOnce(t *testing.T) {
	for _, n := range []int{2, 4, 5, 12, 13} {
		t.Run(fmt.Sprintf("%d teams", n), func(t *testing.T) {
			rounds, err := RoundRobin(teamList("T", n), newRng(7))
			require.NoError(t, err)

			seen := make(map[Matchup]int)
			for _, r := range rounds {
				for _, m := range r.Matchups {
					seen[m.Canonical()]++
				}
			}
			assert.Len(t, seen, n*(n-1)/2, "all pairs should appear")
			for m, count := range seen {
				assert.Equal(t, 1, count, "%s should appear once", m)
			}
		})
	}
}

func TestRoundRobinNoTeamTwicePerRound(t *testing.T) {
	rounds, err := RoundRobin(teamList("T", 13), newRng(3))
	require.NoError(t, err)

	for _, r := range rounds {
		seen := make(map[string]bool)
		for _, m := range r.Matchups {
			assert.False(t, seen[m.A], "round %d repeats %s", r.Number, m.A)
			assert.False(t, seen[m.B], "round %d repeats %s", r.Number, m.B)
			seen[m.A], seen[m.B] = true, true
		}
		for _, b := range r.Byes {
			assert.False(t, seen[b], "round %d plays and rests %s", r.Number, b)
		}
	}
}

func TestRoundRobinDeterministic(t *testing.T) {
	a, err := RoundRobin(teamList("T", 8), newRng(99))
	require.NoError(t, err)
	b, err := RoundRobin(teamList("T", 8), newRng(99))
	require.NoError(t, err)
	assert.Equal(t, a, b, "same seed should reproduce the same rounds")

	fingerprints := make(map[string]bool)
	for seed := int64(1); seed <= 5; seed++ {
		rounds, err := RoundRobin(teamList("T", 8), newRng(seed))
		require.NoError(t, err)
		fingerprints[fmt.Sprint(rounds[0].Matchups)] = true
	}
	assert.Greater(t, len(fingerprints), 1, "different seeds should shuffle differently")
}

func TestRoundRobinTwoTeams(t *testing.T) {
	rounds, err := RoundRobin([]string{"A", "B"}, newRng(1))
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	require.Len(t, rounds[0].Matchups, 1)
	assert.Equal(t, Matchup{A: "A", B: "B"}, rounds[0].Matchups[0].Canonical())
}

func TestRoundRobinTooFewTeams(t *testing.T) {
	_, err := RoundRobin([]string{"A"}, newRng(1))
	assert.ErrorIs(t, err, ErrInvalidPoolSize)

	_, err = RoundRobin(nil, newRng(1))
	assert.ErrorIs(t, err, ErrInvalidPoolSize)
}

func TestRoundRobinDoesNotMutateInput(t *testing.T) {
	teams := teamList("T", 6)
	_, err := RoundRobin(teams, newRng(5))
	require.NoError(t, err)
	assert.Equal(t, teamList("T", 6), teams)
}

func TestCrossoverEqualPools(t *testing.T) {
	north, south := teamList("N", 3), teamList("S", 3)
	rounds, err := Crossover(north, south, newRng(42))
	require.NoError(t, err)

	require.Len(t, rounds, 3)
	seen := make(map[Matchup]int)
	for _, r := range rounds {
		assert.Equal(t, KindCrossover, r.Kind)
		assert.Len(t, r.Matchups, 3)
		assert.Empty(t, r.Byes)
		for _, m := range r.Matchups {
			seen[m.Canonical()]++
		}
	}
	assert.Len(t, seen, 9, "every north-south pair should appear")
	for m, count := range seen {
		assert.Equal(t, 1, count, "%s should appear once", m)
	}
}

func TestCrossoverUnequalPools(t *testing.T) {
	north, south := teamList("N", 4), teamList("S", 2)
	rounds, err := Crossover(north, south, newRng(42))
	require.NoError(t, err)

	require.Len(t, rounds, 4, "round count should match the larger pool")
	seen := make(map[Matchup]int)
	for _, r := range rounds {
		assert.Len(t, r.Matchups, 2)
		assert.Len(t, r.Byes, 2, "larger pool should rest its unmatched teams")
		for _, m := range r.Matchups {
			seen[m.Canonical()]++
		}
	}
	assert.Len(t, seen, 8)
	for m, count := range seen {
		assert.Equal(t, 1, count, "%s should appear once", m)
	}
}

func TestCrossoverLargerSouth(t *testing.T) {
	rounds, err := Crossover(teamList("N", 2), teamList("S", 4), newRng(8))
	require.NoError(t, err)

	require.Len(t, rounds, 4)
	seen := make(map[Matchup]int)
	for _, r := range rounds {
		assert.Len(t, r.Matchups, 2)
		assert.Len(t, r.Byes, 2)
		for _, m := range r.Matchups {
			seen[m.Canonical()]++
		}
	}
	assert.Len(t, seen, 8)
}

func TestCrossoverNoTeamTwicePerRound(t *testing.T) {
	rounds, err := Crossover(teamList("N", 13), teamList("S", 12), newRng(11))
	require.NoError(t, err)

	require.Len(t, rounds, 13)
	for _, r := range rounds {
		seen := make(map[string]bool)
		for _, m := range r.Matchups {
			assert.False(t, seen[m.A], "round %d repeats %s", r.Number, m.A)
			assert.False(t, seen[m.B], "round %d repeats %s", r.Number, m.B)
			seen[m.A], seen[m.B] = true, true
		}
		assert.Len(t, r.Byes, 1)
	}
}

func TestCrossoverDeterministic(t *testing.T) {
	a, err := Crossover(teamList("N", 5), teamList("S", 4), newRng(77))
	require.NoError(t, err)
	b, err := Crossover(teamList("N", 5), teamList("S", 4), newRng(77))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCrossoverTooFewTeams(t *testing.T) {
	_, err := Crossover([]string{"N1"}, teamList("S", 4), newRng(1))
	assert.ErrorIs(t, err, ErrInvalidPoolSize)

	_, err = Crossover(teamList("N", 4), nil, newRng(1))
	assert.ErrorIs(t, err, ErrInvalidPoolSize)
}

func TestMatchupHelpers(t *testing.T) {
	m := Matchup{A: "LYN1", B: "BRS2"}
	assert.True(t, m.Involves("LYN1"))
	assert.True(t, m.Involves("BRS2"))
	assert.False(t, m.Involves("BRS1"))
	assert.Equal(t, Matchup{A: "BRS2", B: "LYN1"}, m.Canonical())
	assert.Equal(t, m.Canonical(), Matchup{A: "BRS2", B: "LYN1"}.Canonical())
	assert.Equal(t, "LYN1 vs BRS2", m.String())
}
