// Package pairing generates round-robin matchup sequences. It knows nothing
// about calendars or fields; it only turns team lists into ordered rounds.
package pairing

import (
	"errors"
	"fmt"
	"math/rand"
)

// Kind distinguishes intra-pool rounds from cross-pool rounds.
type Kind string

const (
	KindIntra     Kind = "intra"
	KindCrossover Kind = "crossover"
)

// ErrInvalidPoolSize reports a pool too small to pair.
var ErrInvalidPoolSize = errors.New("pool needs at least 2 teams")

const byeMarker = "__BYE__"

// Matchup is an unordered pair of team codes.
type Matchup struct {
	A string
	B string
}

// Involves reports whether the team plays in this matchup.
func (m Matchup) Involves(team string) bool {
	return m.A == team || m.B == team
}

// Canonical returns the matchup with its teams in lexical order, the
// identity used for pair bookkeeping.
func (m Matchup) Canonical() Matchup {
	if m.B < m.A {
		return Matchup{A: m.B, B: m.A}
	}
	return m
}

func (m Matchup) String() string {
	return m.A + " vs " + m.B
}

// Round is one numbered set of team-disjoint matchups plus the teams
// resting that round.
type Round struct {
	Number   int
	Kind     Kind
	Matchups []Matchup
	Byes     []string
}

// RoundRobin pairs every team against every other exactly once using the
// circle method: position 0 stays fixed while the rest rotate. An odd team
// count gets a rotating bye. Team positions, round order and matchup
// orientation are drawn from rng, so the full season shape is a function
// of the seed.
func RoundRobin(teams []string, rng *rand.Rand) ([]Round, error) {
	if len(teams) < 2 {
		return nil, fmt.Errorf("cannot pair %d teams: %w", len(teams), ErrInvalidPoolSize)
	}
	arr := make([]string, len(teams))
	copy(arr, teams)
	rng.Shuffle(len(arr), func(i, j int) { arr[i], arr[j] = arr[j], arr[i] })
	if len(arr)%2 == 1 {
		arr = append(arr, byeMarker)
	}
	n := len(arr)

	rounds := make([]Round, 0, n-1)
	for r := 0; r < n-1; r++ {
		round := Round{Kind: KindIntra}
		for i := 0; i < n/2; i++ {
			a, b := arr[i], arr[n-1-i]
			if a == byeMarker || b == byeMarker {
				rested := a
				if a == byeMarker {
					rested = b
				}
				round.Byes = append(round.Byes, rested)
				continue
			}
			if rng.Intn(2) == 1 {
				a, b = b, a
			}
			round.Matchups = append(round.Matchups, Matchup{A: a, B: b})
		}
		rounds = append(rounds, round)

		last := arr[n-1]
		copy(arr[2:], arr[1:n-1])
		arr[1] = last
	}

	rng.Shuffle(len(rounds), func(i, j int) { rounds[i], rounds[j] = rounds[j], rounds[i] })
	for i := range rounds {
		rounds[i].Number = i + 1
	}
	return rounds, nil
}

// Crossover pairs every north team against every south team exactly once.
// Round r meets north[i] with south[j] where i+j = r modulo the round
// count, so each team plays at most once per round; with unequal pools the
// larger pool rests its unmatched teams.
func Crossover(north, south []string, rng *rand.Rand) ([]Round, error) {
	if len(north) < 2 || len(south) < 2 {
		return nil, fmt.Errorf("cannot cross %d north and %d south teams: %w",
			len(north), len(south), ErrInvalidPoolSize)
	}
	ns := make([]string, len(north))
	copy(ns, north)
	ss := make([]string, len(south))
	copy(ss, south)
	rng.Shuffle(len(ns), func(i, j int) { ns[i], ns[j] = ns[j], ns[i] })
	rng.Shuffle(len(ss), func(i, j int) { ss[i], ss[j] = ss[j], ss[i] })

	total := len(ns)
	if len(ss) > total {
		total = len(ss)
	}
	rounds := make([]Round, 0, total)
	for r := 0; r < total; r++ {
		round := Round{Number: r + 1, Kind: KindCrossover}
		southPlaying := make(map[int]bool, len(ns))
		for i := range ns {
			j := ((r-i)%total + total) % total
			if j >= len(ss) {
				round.Byes = append(round.Byes, ns[i])
				continue
			}
			southPlaying[j] = true
			a, b := ns[i], ss[j]
			if rng.Intn(2) == 1 {
				a, b = b, a
			}
			round.Matchups = append(round.Matchups, Matchup{A: a, B: b})
		}
		for j := range ss {
			if !southPlaying[j] {
				round.Byes = append(round.Byes, ss[j])
			}
		}
		rounds = append(rounds, round)
	}
	return rounds, nil
}
