package schedule

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/jonogibbs/d52sg/internal/config"
	"github.com/jonogibbs/d52sg/internal/pairing"
)

// blockTeam keys per-team counters separately for weekday and weekend
// play, which balance independently.
type blockTeam struct {
	Block config.Block
	Team  string
}

// fieldUse identifies one concrete field occurrence so no two games share
// a field, date and start time.
type fieldUse struct {
	Field  string
	Day    int
	Year   int
	Minute int
}

func useKey(fd FieldDate) fieldUse {
	return fieldUse{
		Field:  fd.Field,
		Day:    fd.Date.YearDay(),
		Year:   fd.Date.Year(),
		Minute: fd.Start.MinuteOfDay(),
	}
}

// startKey identifies a date and start time across all fields, for
// avoid-same-time bookkeeping.
type startKey struct {
	Day    int
	Year   int
	Minute int
}

type startEntry struct {
	Team  string
	Field string
}

type clash int

const (
	clashNone clash = iota
	clashSoft
	clashHard
)

type balancer struct {
	cfg *config.Config
	rng *rand.Rand
	log *zap.Logger

	games       []Game
	unscheduled []Unscheduled
	home        map[blockTeam]int
	away        map[blockTeam]int
}

// balanceGames turns slot placements into concrete games: it designates
// home and away from cumulative counts, picks the hosting side and a field
// occurrence, and finally flips designations on finished games until every
// team's home/away split is within one per block kind. Placements with no
// usable field occurrence are returned as unscheduled.
func balanceGames(cfg *config.Config, plans []slotPlan, rng *rand.Rand, log *zap.Logger) ([]Game, []Unscheduled) {
	b := &balancer{
		cfg:  cfg,
		rng:  rng,
		log:  log,
		home: make(map[blockTeam]int),
		away: make(map[blockTeam]int),
	}
	for i := range plans {
		b.fillSlot(&plans[i])
	}
	b.rebalance()
	return b.games, b.unscheduled
}

func (b *balancer) fillSlot(plan *slotPlan) {
	block := plan.Slot.Block
	used := make(map[fieldUse]bool)
	starts := make(map[startKey][]startEntry)
	hosted := make(map[string]int)

	for _, p := range plan.Placements {
		home, away := b.orient(p.Matchup, block)
		if b.atHostingCap(home, block, hosted) && !b.atHostingCap(away, block, hosted) {
			home, away = away, home
		}

		host := home
		fd, ok := b.pickOccurrence(home, away, plan.Slot, used, starts)
		if !ok {
			host = away
			fd, ok = b.pickOccurrence(away, home, plan.Slot, used, starts)
		}
		if !ok {
			b.unscheduled = append(b.unscheduled, Unscheduled{
				Matchup: p.Matchup,
				Round:   p.Round,
				Kind:    p.Kind,
				Week:    plan.Slot.Week,
				Reason:  fmt.Sprintf("no open field date in week %d both teams can play", plan.Slot.Week),
			})
			continue
		}

		used[useKey(fd)] = true
		key := startKey{Day: fd.Date.YearDay(), Year: fd.Date.Year(), Minute: fd.Start.MinuteOfDay()}
		starts[key] = append(starts[key],
			startEntry{Team: home, Field: fd.Field},
			startEntry{Team: away, Field: fd.Field})
		hosted[b.cfg.LeagueOf(host).Code()]++
		b.home[blockTeam{block, home}]++
		b.away[blockTeam{block, away}]++

		b.games = append(b.games, Game{
			Home:   home,
			Away:   away,
			Host:   host,
			Date:   fd.Date,
			Start:  fd.Start,
			End:    fd.Start.Add(b.cfg.Season.GameLengthMinutes),
			Field:  fd.Field,
			Week:   plan.Slot.Week,
			Block:  block,
			Round:  p.Round,
			Kind:   p.Kind,
			Origin: p.Origin,
		})
	}
}

// orient designates the tentative home side: strictly fewer cumulative
// home games for the block kind wins, an exact tie is a coin flip.
func (b *balancer) orient(m pairing.Matchup, block config.Block) (string, string) {
	ha := b.home[blockTeam{block, m.A}]
	hb := b.home[blockTeam{block, m.B}]
	switch {
	case ha < hb:
		return m.A, m.B
	case hb < ha:
		return m.B, m.A
	}
	if b.rng.Intn(2) == 1 {
		return m.B, m.A
	}
	return m.A, m.B
}

// atHostingCap reports whether the team's league has already filled its
// per-round hosting capacity in this slot. Fieldless leagues never host,
// so the cap never binds them.
func (b *balancer) atHostingCap(team string, block config.Block, hosted map[string]int) bool {
	league := b.cfg.LeagueOf(team)
	limit := league.HomeCap(block)
	return limit > 0 && hosted[league.Code()] >= limit
}

// pickOccurrence finds the first unused field occurrence of the host's
// league that both teams can actually play, honoring definition order then
// date order. Occurrences that would start alongside a same-group team on
// another field are skipped outright when the pair shares a two-team
// league, and kept only as a fallback otherwise.
func (b *balancer) pickOccurrence(host, other string, slot *Slot, used map[fieldUse]bool, starts map[startKey][]startEntry) (FieldDate, bool) {
	league := b.cfg.LeagueOf(host)
	var fallback FieldDate
	haveFallback := false
	for _, fd := range slot.FieldDates[league.Code()] {
		if used[useKey(fd)] {
			continue
		}
		if !b.playable(host, fd, slot.Block) || !b.playable(other, fd, slot.Block) {
			continue
		}
		switch b.startClash(host, other, fd, starts) {
		case clashNone:
			return fd, true
		case clashSoft:
			if !haveFallback {
				fallback, haveFallback = fd, true
			}
		case clashHard:
		}
	}
	return fallback, haveFallback
}

// playable reports whether the team can take a game on this exact date.
func (b *balancer) playable(team string, fd FieldDate, block config.Block) bool {
	t, ok := b.cfg.Team(team)
	if !ok {
		return false
	}
	if t.NoPlay(fd.Date.Weekday()) {
		return false
	}
	if block == config.BlockWeekend && !t.WeekendAllowed(fd.Date) {
		return false
	}
	return !b.cfg.LeagueOf(team).IsBlackedOut(fd.Date)
}

// startClash classifies a candidate occurrence against games already
// placed at the same date and start time on other fields. A clash is hard
// when the grouped teams share a two-team league: there is nobody else to
// cover the overlap.
func (b *balancer) startClash(a, c string, fd FieldDate, starts map[startKey][]startEntry) clash {
	key := startKey{Day: fd.Date.YearDay(), Year: fd.Date.Year(), Minute: fd.Start.MinuteOfDay()}
	worst := clashNone
	for _, e := range starts[key] {
		if e.Field == fd.Field {
			continue
		}
		for _, team := range []string{a, c} {
			if !b.cfg.SameTimeGroup(e.Team, team) {
				continue
			}
			if b.hardPair(e.Team, team) {
				return clashHard
			}
			worst = clashSoft
		}
	}
	return worst
}

func (b *balancer) hardPair(x, y string) bool {
	lx := b.cfg.LeagueOf(x)
	ly := b.cfg.LeagueOf(y)
	return lx.Code() == ly.Code() && len(lx.TeamCodes()) == 2
}

// rebalance flips home/away designations on placed games until every
// team's split is within one per block kind. The host and field never
// change, so a flipped game simply has the away side hosting. A flip is
// taken only if it leaves the counterparty within tolerance; when no
// single flip works, a paired flip routes the surplus through a middle
// team to a third one that can absorb it.
func (b *balancer) rebalance() {
	for _, block := range []config.Block{config.BlockWeekday, config.BlockWeekend} {
		stuck := make(map[string]bool)
		for {
			team, d := b.worstImbalance(block, stuck)
			if team == "" {
				break
			}
			if b.flipSingle(team, d, block) || b.flipPaired(team, d, block) {
				continue
			}
			b.log.Debug("imbalance not flippable",
				zap.String("team", team),
				zap.String("block", string(block)),
				zap.Int("diff", d))
			stuck[team] = true
		}
	}
}

func (b *balancer) diff(team string, block config.Block) int {
	return b.home[blockTeam{block, team}] - b.away[blockTeam{block, team}]
}

// worstImbalance returns the non-stuck team with the largest home/away
// gap beyond tolerance, or "" when every team is within one.
func (b *balancer) worstImbalance(block config.Block, stuck map[string]bool) (string, int) {
	worst, worstDiff := "", 0
	for _, team := range b.cfg.AllTeams() {
		if stuck[team] {
			continue
		}
		d := b.diff(team, block)
		if abs(d) > 1 && abs(d) > abs(worstDiff) {
			worst, worstDiff = team, d
		}
	}
	return worst, worstDiff
}

func (b *balancer) flipSingle(team string, d int, block config.Block) bool {
	for i := range b.games {
		g := &b.games[i]
		if g.Block != block {
			continue
		}
		if d > 1 && g.Home == team && abs(b.diff(g.Away, block)+2) <= 1 {
			b.flip(i)
			return true
		}
		if d < -1 && g.Away == team && abs(b.diff(g.Home, block)-2) <= 1 {
			b.flip(i)
			return true
		}
	}
	return false
}

// flipPaired fixes an imbalance no direct opponent can absorb: flip a
// middle team's game against a third team first, then the middle team's
// game against the imbalanced one. The middle team nets zero.
func (b *balancer) flipPaired(team string, d int, block config.Block) bool {
	for i := range b.games {
		g1 := &b.games[i]
		if g1.Block != block || !g1.Involves(team) {
			continue
		}
		if d > 1 && g1.Home != team {
			continue
		}
		if d < -1 && g1.Away != team {
			continue
		}
		mid := g1.Opponent(team)
		for j := range b.games {
			if j == i || b.games[j].Block != block {
				continue
			}
			g2 := &b.games[j]
			third := g2.Opponent(mid)
			if third == "" || third == team {
				continue
			}
			if d > 1 && g2.Home == mid && abs(b.diff(third, block)+2) <= 1 {
				b.flip(j)
				b.flip(i)
				return true
			}
			if d < -1 && g2.Away == mid && abs(b.diff(third, block)-2) <= 1 {
				b.flip(j)
				b.flip(i)
				return true
			}
		}
	}
	return false
}

// flip swaps a game's home/away designation and the cumulative counters.
func (b *balancer) flip(i int) {
	g := &b.games[i]
	b.home[blockTeam{g.Block, g.Home}]--
	b.away[blockTeam{g.Block, g.Home}]++
	b.home[blockTeam{g.Block, g.Away}]++
	b.away[blockTeam{g.Block, g.Away}]--
	g.Home, g.Away = g.Away, g.Home
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
