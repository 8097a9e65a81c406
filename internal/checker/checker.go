// Package checker verifies a finished schedule against the season rules.
// It is pure: it never mutates games and never tries to repair anything,
// so it can audit freshly generated schedules and re-imported ones alike.
package checker

import (
	"fmt"
	"time"

	"github.com/jonogibbs/d52sg/internal/config"
	"github.com/jonogibbs/d52sg/internal/pairing"
	"github.com/jonogibbs/d52sg/internal/schedule"
)

// Severity separates violations that invalidate a schedule from warnings
// worth a human look.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Kind names the rule a violation breaks.
type Kind string

const (
	KindDoubleBooked      Kind = "double-booked"
	KindBlackout          Kind = "blackout"
	KindNoPlayDay         Kind = "no-play-day"
	KindWeekendIneligible Kind = "weekend-ineligible"
	KindHomeAwayImbalance Kind = "home-away-imbalance"
	KindGameCountSpread   Kind = "game-count-spread"
	KindHostingCap        Kind = "hosting-cap"
	KindMissingMatchup    Kind = "missing-matchup"
	KindFieldlessHost     Kind = "fieldless-host"
	KindForeignField      Kind = "foreign-field"
	KindSameTimeOverlap   Kind = "same-time-overlap"
	KindDuplicateMatchup  Kind = "duplicate-matchup"
	KindBlockCountSpread  Kind = "block-count-spread"
)

// Violation is one broken rule.
type Violation struct {
	Kind     Kind
	Severity Severity
	Message  string
}

// Report collects everything the checker found.
type Report struct {
	Violations []Violation
}

// Valid reports whether the schedule has no error-severity violations.
func (r *Report) Valid() bool {
	return len(r.Errors()) == 0
}

// Errors returns the hard violations.
func (r *Report) Errors() []Violation {
	return r.bySeverity(SeverityError)
}

// Warnings returns the soft violations.
func (r *Report) Warnings() []Violation {
	return r.bySeverity(SeverityWarning)
}

func (r *Report) bySeverity(s Severity) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == s {
			out = append(out, v)
		}
	}
	return out
}

// Check audits the games against the config. Rule violations land in the
// report; the returned error is reserved for games the config cannot even
// describe, such as an unknown team code.
func Check(cfg *config.Config, games []schedule.Game) (*Report, error) {
	for _, g := range games {
		for _, team := range []string{g.Home, g.Away, g.Host} {
			if _, ok := cfg.Team(team); !ok {
				return nil, fmt.Errorf("unknown team %q in game %s vs %s on %s",
					team, g.Away, g.Home, g.Date.Format("01/02/2006"))
			}
		}
	}

	r := &Report{}
	r.Violations = append(r.Violations, checkDoubleBooked(cfg, games)...)
	r.Violations = append(r.Violations, checkBlackouts(cfg, games)...)
	r.Violations = append(r.Violations, checkNoPlayDays(cfg, games)...)
	r.Violations = append(r.Violations, checkWeekendEligibility(cfg, games)...)
	r.Violations = append(r.Violations, checkHomeAwayBalance(cfg, games)...)
	r.Violations = append(r.Violations, checkGameCountSpread(cfg, games)...)
	r.Violations = append(r.Violations, checkHostingCap(cfg, games)...)
	r.Violations = append(r.Violations, checkCompleteness(cfg, games)...)
	r.Violations = append(r.Violations, checkFieldlessHost(cfg, games)...)
	r.Violations = append(r.Violations, checkFieldOwnership(cfg, games)...)
	r.Violations = append(r.Violations, checkSameTimeOverlap(cfg, games)...)
	r.Violations = append(r.Violations, checkDuplicateMatchups(cfg, games)...)
	r.Violations = append(r.Violations, checkBlockCountSpread(cfg, games)...)
	return r, nil
}

// checkDoubleBooked flags a team with more than one game in the same week
// and block kind.
func checkDoubleBooked(cfg *config.Config, games []schedule.Game) []Violation {
	type key struct {
		team  string
		week  int
		block config.Block
	}
	counts := make(map[key]int)
	var violations []Violation
	for _, g := range games {
		week := schedule.WeekOf(cfg, g.Date)
		block := config.BlockOf(g.Date)
		for _, team := range []string{g.Home, g.Away} {
			counts[key{team, week, block}]++
			if n := counts[key{team, week, block}]; n > 1 {
				violations = append(violations, Violation{
					Kind:     KindDoubleBooked,
					Severity: SeverityError,
					Message: fmt.Sprintf("%s plays %d %s games in week %d",
						team, n, block, week),
				})
			}
		}
	}
	return violations
}

func checkBlackouts(cfg *config.Config, games []schedule.Game) []Violation {
	var violations []Violation
	for _, g := range games {
		for _, team := range []string{g.Home, g.Away} {
			if cfg.LeagueOf(team).IsBlackedOut(g.Date) {
				violations = append(violations, Violation{
					Kind:     KindBlackout,
					Severity: SeverityError,
					Message: fmt.Sprintf("%s plays on %s during a league blackout",
						team, g.Date.Format("01/02")),
				})
			}
		}
	}
	return violations
}

func checkNoPlayDays(cfg *config.Config, games []schedule.Game) []Violation {
	var violations []Violation
	for _, g := range games {
		for _, team := range []string{g.Home, g.Away} {
			t, _ := cfg.Team(team)
			if t.NoPlay(g.Date.Weekday()) {
				violations = append(violations, Violation{
					Kind:     KindNoPlayDay,
					Severity: SeverityError,
					Message: fmt.Sprintf("%s plays on %s, one of its no-play days",
						team, g.Date.Weekday()),
				})
			}
		}
	}
	return violations
}

func checkWeekendEligibility(cfg *config.Config, games []schedule.Game) []Violation {
	var violations []Violation
	for _, g := range games {
		if config.BlockOf(g.Date) != config.BlockWeekend {
			continue
		}
		for _, team := range []string{g.Home, g.Away} {
			t, _ := cfg.Team(team)
			if !t.WeekendAllowed(g.Date) {
				violations = append(violations, Violation{
					Kind:     KindWeekendIneligible,
					Severity: SeverityError,
					Message: fmt.Sprintf("weekday-only team %s plays on %s",
						team, g.Date.Format("01/02")),
				})
			}
		}
	}
	return violations
}

func checkHomeAwayBalance(cfg *config.Config, games []schedule.Game) []Violation {
	type key struct {
		team  string
		block config.Block
	}
	home := make(map[key]int)
	away := make(map[key]int)
	for _, g := range games {
		block := config.BlockOf(g.Date)
		home[key{g.Home, block}]++
		away[key{g.Away, block}]++
	}
	var violations []Violation
	for _, team := range cfg.AllTeams() {
		for _, block := range []config.Block{config.BlockWeekday, config.BlockWeekend} {
			h, a := home[key{team, block}], away[key{team, block}]
			if d := h - a; d > 1 || d < -1 {
				violations = append(violations, Violation{
					Kind:     KindHomeAwayImbalance,
					Severity: SeverityError,
					Message: fmt.Sprintf("%s has %d home and %d away %s games",
						team, h, a, block),
				})
			}
		}
	}
	return violations
}

// checkGameCountSpread compares total games across weekend-eligible teams.
// Weekday-only teams skip every crossover game, so their totals are not
// comparable.
func checkGameCountSpread(cfg *config.Config, games []schedule.Game) []Violation {
	totals := totalsByTeam(games)
	loTeam, hiTeam := "", ""
	lo, hi := -1, -1
	for _, team := range cfg.AllTeams() {
		if t, _ := cfg.Team(team); t.WeekdayOnly {
			continue
		}
		n := totals[team]
		if lo < 0 || n < lo {
			loTeam, lo = team, n
		}
		if n > hi {
			hiTeam, hi = team, n
		}
	}
	if hi-lo > 1 {
		return []Violation{{
			Kind:     KindGameCountSpread,
			Severity: SeverityError,
			Message: fmt.Sprintf("game counts spread from %d (%s) to %d (%s)",
				lo, loTeam, hi, hiTeam),
		}}
	}
	return nil
}

// checkHostingCap flags a league hosting more games in one week-block than
// it has field-slot definitions for.
func checkHostingCap(cfg *config.Config, games []schedule.Game) []Violation {
	type key struct {
		league string
		week   int
		block  config.Block
	}
	counts := make(map[key]int)
	var violations []Violation
	for _, g := range games {
		week := schedule.WeekOf(cfg, g.Date)
		block := config.BlockOf(g.Date)
		league := cfg.LeagueOf(g.Host)
		limit := league.HomeCap(block)
		if limit == 0 {
			continue // reported as a fieldless host instead
		}
		counts[key{league.Code(), week, block}]++
		if n := counts[key{league.Code(), week, block}]; n > limit {
			violations = append(violations, Violation{
				Kind:     KindHostingCap,
				Severity: SeverityError,
				Message: fmt.Sprintf("league %s hosts %d %s games in week %d (cap %d)",
					league.Code(), n, block, week, limit),
			})
		}
	}
	return violations
}

// checkCompleteness verifies every required pairing was scheduled: each
// intra-pool pair once and each crossover pair of weekend-eligible teams.
func checkCompleteness(cfg *config.Config, games []schedule.Game) []Violation {
	played := pairCounts(games)
	var violations []Violation
	report := func(a, b string) {
		if played[canonical(a, b)] == 0 {
			violations = append(violations, Violation{
				Kind:     KindMissingMatchup,
				Severity: SeverityError,
				Message:  fmt.Sprintf("required matchup %s vs %s was never scheduled", a, b),
			})
		}
	}
	for _, pool := range []config.Pool{config.PoolNorth, config.PoolSouth} {
		teams := cfg.PoolTeams(pool)
		for i := 0; i < len(teams); i++ {
			for j := i + 1; j < len(teams); j++ {
				report(teams[i], teams[j])
			}
		}
	}
	for _, n := range weekendEligible(cfg, cfg.PoolTeams(config.PoolNorth)) {
		for _, s := range weekendEligible(cfg, cfg.PoolTeams(config.PoolSouth)) {
			report(n, s)
		}
	}
	return violations
}

func checkFieldlessHost(cfg *config.Config, games []schedule.Game) []Violation {
	var violations []Violation
	for _, g := range games {
		league := cfg.LeagueOf(g.Host)
		if league.HomeCap(config.BlockOf(g.Date)) == 0 {
			violations = append(violations, Violation{
				Kind:     KindFieldlessHost,
				Severity: SeverityError,
				Message: fmt.Sprintf("%s hosts on %s but league %s has no %s fields",
					g.Host, g.Date.Format("01/02"), league.Code(), config.BlockOf(g.Date)),
			})
		}
	}
	return violations
}

func checkFieldOwnership(cfg *config.Config, games []schedule.Game) []Violation {
	var violations []Violation
	for _, g := range games {
		if g.Field == "" {
			continue // re-imported CSVs carry no field
		}
		if !leagueOwnsField(cfg.LeagueOf(g.Home), g.Field) && !leagueOwnsField(cfg.LeagueOf(g.Away), g.Field) {
			violations = append(violations, Violation{
				Kind:     KindForeignField,
				Severity: SeverityError,
				Message: fmt.Sprintf("%s vs %s on %s plays at %s, a field of neither league",
					g.Away, g.Home, g.Date.Format("01/02"), g.Field),
			})
		}
	}
	return violations
}

func leagueOwnsField(l *config.League, field string) bool {
	for _, block := range []config.Block{config.BlockWeekday, config.BlockWeekend} {
		for _, fs := range l.FieldSlots(block) {
			if fs.Field == field {
				return true
			}
		}
	}
	return false
}

// checkSameTimeOverlap warns when grouped teams play at the same date and
// start time on different fields.
func checkSameTimeOverlap(cfg *config.Config, games []schedule.Game) []Violation {
	var violations []Violation
	for i := 0; i < len(games); i++ {
		for j := i + 1; j < len(games); j++ {
			a, b := games[i], games[j]
			if !sameDate(a.Date, b.Date) || a.Start.MinuteOfDay() != b.Start.MinuteOfDay() {
				continue
			}
			if a.Field == b.Field && a.Field != "" {
				continue
			}
			for _, x := range []string{a.Home, a.Away} {
				for _, y := range []string{b.Home, b.Away} {
					if cfg.SameTimeGroup(x, y) {
						violations = append(violations, Violation{
							Kind:     KindSameTimeOverlap,
							Severity: SeverityWarning,
							Message: fmt.Sprintf("%s and %s both start at %s on %s",
								x, y, a.Start, a.Date.Format("01/02")),
						})
					}
				}
			}
		}
	}
	return violations
}

func checkDuplicateMatchups(cfg *config.Config, games []schedule.Game) []Violation {
	counts := pairCounts(games)
	seen := make(map[pairing.Matchup]bool)
	var violations []Violation
	for _, g := range games {
		pair := canonical(g.Home, g.Away)
		if counts[pair] > 1 && !seen[pair] {
			seen[pair] = true
			violations = append(violations, Violation{
				Kind:     KindDuplicateMatchup,
				Severity: SeverityWarning,
				Message: fmt.Sprintf("%s vs %s scheduled %d times",
					pair.A, pair.B, counts[pair]),
			})
		}
	}
	return violations
}

// checkBlockCountSpread warns when per-block game counts drift apart.
// Weekday-only teams are left out of the weekend comparison.
func checkBlockCountSpread(cfg *config.Config, games []schedule.Game) []Violation {
	type key struct {
		team  string
		block config.Block
	}
	counts := make(map[key]int)
	for _, g := range games {
		block := config.BlockOf(g.Date)
		counts[key{g.Home, block}]++
		counts[key{g.Away, block}]++
	}
	var violations []Violation
	for _, block := range []config.Block{config.BlockWeekday, config.BlockWeekend} {
		lo, hi := -1, -1
		for _, team := range cfg.AllTeams() {
			if block == config.BlockWeekend {
				if t, _ := cfg.Team(team); t.WeekdayOnly {
					continue
				}
			}
			n := counts[key{team, block}]
			if lo < 0 || n < lo {
				lo = n
			}
			if n > hi {
				hi = n
			}
		}
		if hi-lo > 1 {
			violations = append(violations, Violation{
				Kind:     KindBlockCountSpread,
				Severity: SeverityWarning,
				Message: fmt.Sprintf("%s game counts spread from %d to %d across teams",
					block, lo, hi),
			})
		}
	}
	return violations
}

func totalsByTeam(games []schedule.Game) map[string]int {
	totals := make(map[string]int)
	for _, g := range games {
		totals[g.Home]++
		totals[g.Away]++
	}
	return totals
}

func pairCounts(games []schedule.Game) map[pairing.Matchup]int {
	counts := make(map[pairing.Matchup]int)
	for _, g := range games {
		counts[canonical(g.Home, g.Away)]++
	}
	return counts
}

func canonical(a, b string) pairing.Matchup {
	return pairing.Matchup{A: a, B: b}.Canonical()
}

func weekendEligible(cfg *config.Config, codes []string) []string {
	var out []string
	for _, code := range codes {
		if t, ok := cfg.Team(code); ok && !t.WeekdayOnly {
			out = append(out, code)
		}
	}
	return out
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
