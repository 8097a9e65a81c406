package schedule

import (
	"fmt"

	"github.com/jonogibbs/d52sg/internal/config"
	"github.com/jonogibbs/d52sg/internal/pairing"
)

// TrimPolicy picks which of several removable games goes first.
type TrimPolicy string

const (
	// TrimLatestDate removes the offending game furthest into the season.
	TrimLatestDate TrimPolicy = "latest-date"
	// TrimNewestAdded removes the offending game placed last by the
	// engine, which tends to be a makeup or extra game.
	TrimNewestAdded TrimPolicy = "newest-added"
)

// ParseTrimPolicy validates a policy name from a flag or config value.
func ParseTrimPolicy(s string) (TrimPolicy, error) {
	switch TrimPolicy(s) {
	case TrimLatestDate, TrimNewestAdded:
		return TrimPolicy(s), nil
	}
	return "", fmt.Errorf("unknown trim policy %q: want %s or %s", s, TrimLatestDate, TrimNewestAdded)
}

// trimExcess removes games one at a time until no team's home/away split
// exceeds one per block kind and the total game count spread across teams
// is at most one. Games that duplicate an already-played pairing go first.
// Weekday-only teams sit out the spread comparison: they structurally play
// fewer games than weekend-eligible teams.
func trimExcess(cfg *config.Config, games []Game, policy TrimPolicy) (kept, removed []Game) {
	kept = append([]Game(nil), games...)
	for len(kept) > 0 {
		idx := pickTrim(cfg, kept, policy)
		if idx < 0 {
			break
		}
		removed = append(removed, kept[idx])
		kept = append(kept[:idx], kept[idx+1:]...)
	}
	return kept, removed
}

func pickTrim(cfg *config.Config, games []Game, policy TrimPolicy) int {
	home := make(map[blockTeam]int)
	away := make(map[blockTeam]int)
	total := make(map[string]int)
	for _, g := range games {
		home[blockTeam{g.Block, g.Home}]++
		away[blockTeam{g.Block, g.Away}]++
		total[g.Home]++
		total[g.Away]++
	}

	for _, team := range cfg.AllTeams() {
		for _, block := range []config.Block{config.BlockWeekday, config.BlockWeekend} {
			d := home[blockTeam{block, team}] - away[blockTeam{block, team}]
			if abs(d) <= 1 {
				continue
			}
			var cands []int
			for i, g := range games {
				if g.Block != block {
					continue
				}
				if d > 1 && g.Home == team || d < -1 && g.Away == team {
					cands = append(cands, i)
				}
			}
			if len(cands) > 0 {
				return choose(games, cands, policy)
			}
		}
	}

	lo, hi := spreadBounds(cfg, total)
	if hi-lo <= 1 {
		return -1
	}
	for _, team := range cfg.AllTeams() {
		if total[team] != hi {
			continue
		}
		var cands []int
		for i, g := range games {
			if !g.Involves(team) {
				continue
			}
			if total[g.Opponent(team)] > lo {
				cands = append(cands, i)
			}
		}
		if len(cands) > 0 {
			return choose(games, cands, policy)
		}
	}
	return -1
}

// spreadBounds returns the min and max total game count over teams that
// compete for the full season.
func spreadBounds(cfg *config.Config, total map[string]int) (int, int) {
	lo, hi := -1, 0
	for _, code := range cfg.AllTeams() {
		if t, ok := cfg.Team(code); ok && t.WeekdayOnly {
			continue
		}
		n := total[code]
		if lo < 0 || n < lo {
			lo = n
		}
		if n > hi {
			hi = n
		}
	}
	if lo < 0 {
		lo = 0
	}
	return lo, hi
}

// choose picks from candidate indexes: repeats of an already-played
// pairing first, then the policy's ordering.
func choose(games []Game, cands []int, policy TrimPolicy) int {
	pairs := make(map[pairing.Matchup]int)
	for _, g := range games {
		pairs[pairing.Matchup{A: g.Home, B: g.Away}.Canonical()]++
	}
	var dups []int
	for _, i := range cands {
		g := games[i]
		if pairs[pairing.Matchup{A: g.Home, B: g.Away}.Canonical()] > 1 {
			dups = append(dups, i)
		}
	}
	if len(dups) > 0 {
		cands = dups
	}

	if policy == TrimNewestAdded {
		return cands[len(cands)-1]
	}
	best := cands[0]
	for _, i := range cands[1:] {
		if later(games[i], games[best]) {
			best = i
		}
	}
	return best
}

func later(a, b Game) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	return a.Start.MinuteOfDay() >= b.Start.MinuteOfDay()
}
