// Package stats summarizes a schedule: per-team balance counts, the
// matchup matrix and play distribution across days and weeks.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jonogibbs/d52sg/internal/config"
	"github.com/jonogibbs/d52sg/internal/pairing"
	"github.com/jonogibbs/d52sg/internal/schedule"
)

// Stats holds every per-team counter the balance report prints. All maps
// are keyed by team code; absent keys mean zero.
type Stats struct {
	Teams []string // alphabetical

	Home           map[string]int
	Away           map[string]int
	Hosted         map[string]int
	HomeNotHosting map[string]int
	WeekdayHome    map[string]int
	WeekdayAway    map[string]int
	WeekendHome    map[string]int
	WeekendAway    map[string]int
	Total          map[string]int

	DayCounts    map[string]map[time.Weekday]int
	Matchups     map[string]map[string]int
	GamesPerWeek map[string]map[int]int
	MaxWeek      int

	Blackouts     map[string]int
	Byes          map[string]int
	UnscheduledBy map[string]int
	Unscheduled   int
}

type weekBlock struct {
	Week  int
	Block config.Block
}

// Compute tallies the schedule. The unscheduled list may be nil when
// auditing a re-imported schedule.
func Compute(cfg *config.Config, games []schedule.Game, unscheduled []schedule.Unscheduled) *Stats {
	s := &Stats{
		Teams:          append([]string(nil), cfg.AllTeams()...),
		Home:           make(map[string]int),
		Away:           make(map[string]int),
		Hosted:         make(map[string]int),
		HomeNotHosting: make(map[string]int),
		WeekdayHome:    make(map[string]int),
		WeekdayAway:    make(map[string]int),
		WeekendHome:    make(map[string]int),
		WeekendAway:    make(map[string]int),
		Total:          make(map[string]int),
		DayCounts:      make(map[string]map[time.Weekday]int),
		Matchups:       make(map[string]map[string]int),
		GamesPerWeek:   make(map[string]map[int]int),
		Blackouts:      make(map[string]int),
		Byes:           make(map[string]int),
		UnscheduledBy:  make(map[string]int),
		Unscheduled:    len(unscheduled),
	}
	sort.Strings(s.Teams)

	slotDates := make(map[weekBlock][]time.Time)
	played := make(map[string]map[weekBlock]bool)
	for _, g := range games {
		week := schedule.WeekOf(cfg, g.Date)
		block := config.BlockOf(g.Date)

		s.Home[g.Home]++
		s.Away[g.Away]++
		s.Hosted[g.Host]++
		if g.Host != g.Home {
			s.HomeNotHosting[g.Home]++
		}
		s.Total[g.Home]++
		s.Total[g.Away]++
		if block == config.BlockWeekend {
			s.WeekendHome[g.Home]++
			s.WeekendAway[g.Away]++
		} else {
			s.WeekdayHome[g.Home]++
			s.WeekdayAway[g.Away]++
		}
		bump(s.Matchups, g.Home, g.Away)
		bump(s.Matchups, g.Away, g.Home)
		for _, team := range []string{g.Home, g.Away} {
			if s.DayCounts[team] == nil {
				s.DayCounts[team] = make(map[time.Weekday]int)
			}
			s.DayCounts[team][g.Date.Weekday()]++
			if s.GamesPerWeek[team] == nil {
				s.GamesPerWeek[team] = make(map[int]int)
			}
			s.GamesPerWeek[team][week]++
			if played[team] == nil {
				played[team] = make(map[weekBlock]bool)
			}
			played[team][weekBlock{week, block}] = true
		}
		if week > s.MaxWeek {
			s.MaxWeek = week
		}
		ws := weekBlock{week, block}
		if !containsDate(slotDates[ws], g.Date) {
			slotDates[ws] = append(slotDates[ws], g.Date)
		}
	}

	unschedSlots := make(map[string]map[weekBlock]bool)
	for _, u := range unscheduled {
		for _, team := range []string{u.Matchup.A, u.Matchup.B} {
			s.UnscheduledBy[team]++
			if u.Week == 0 {
				continue
			}
			block := config.BlockWeekday
			if u.Kind == pairing.KindCrossover {
				block = config.BlockWeekend
			}
			if unschedSlots[team] == nil {
				unschedSlots[team] = make(map[weekBlock]bool)
			}
			unschedSlots[team][weekBlock{u.Week, block}] = true
		}
	}

	s.countIdleSlots(cfg, slotDates, played, unschedSlots)
	return s
}

// countIdleSlots classifies each (week, block) a team sat out: a blackout
// if no date of the slot was playable for it, otherwise a bye, unless an
// unscheduled matchup already accounts for the gap.
func (s *Stats) countIdleSlots(cfg *config.Config, slotDates map[weekBlock][]time.Time, played, unschedSlots map[string]map[weekBlock]bool) {
	var slots []weekBlock
	for ws := range slotDates {
		slots = append(slots, ws)
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Week != slots[j].Week {
			return slots[i].Week < slots[j].Week
		}
		return slots[i].Block < slots[j].Block
	})

	for _, team := range s.Teams {
		t, ok := cfg.Team(team)
		if !ok {
			continue
		}
		league := cfg.LeagueOf(team)
		for _, ws := range slots {
			dates := slotDates[ws]
			if ws.Block == config.BlockWeekend && t.WeekdayOnly {
				open := false
				for _, d := range dates {
					if t.WeekendAllowed(d) {
						open = true
						break
					}
				}
				if !open {
					s.Blackouts[team]++
					continue
				}
			}
			allBlack := true
			for _, d := range dates {
				if !league.IsBlackedOut(d) {
					allBlack = false
					break
				}
			}
			switch {
			case allBlack:
				s.Blackouts[team]++
			case !played[team][ws] && !unschedSlots[team][ws]:
				s.Byes[team]++
			}
		}
	}
}

// Render formats the monospace statistics report.
func (s *Stats) Render() string {
	var lines []string
	lines = append(lines, strings.Repeat("=", 70))
	lines = append(lines, "SCHEDULE STATISTICS")
	lines = append(lines, strings.Repeat("=", 70))

	lines = append(lines, "\n--- SEASON BALANCE ---")
	lines = append(lines, fmt.Sprintf("%-8s %5s %5s %5s %5s %5s %5s  %5s %5s %5s %5s  %3s %3s %3s",
		"Team", "Home", "Vis", "Host", "H-Aw", "Total", "Diff",
		"WD-H", "WD-V", "WE-H", "WE-V", "BO", "BYE", "UNS"))
	lines = append(lines, strings.Repeat("-", 92))
	for _, t := range s.Teams {
		diff := s.Home[t] - s.Away[t]
		flag := ""
		if diff > 1 || diff < -1 {
			flag = " ***"
		}
		lines = append(lines, fmt.Sprintf("%-8s %s %s %s %s %s %s  %s %s %s %s  %s %s %s%s",
			t,
			blank(s.Home[t], 5), blank(s.Away[t], 5), blank(s.Hosted[t], 5),
			blank(s.HomeNotHosting[t], 5), blank(s.Total[t], 5), blankSigned(diff, 5),
			blank(s.WeekdayHome[t], 5), blank(s.WeekdayAway[t], 5),
			blank(s.WeekendHome[t], 5), blank(s.WeekendAway[t], 5),
			blank(s.Blackouts[t], 3), blank(s.Byes[t], 3), blank(s.UnscheduledBy[t], 3),
			flag))
	}

	lines = append(lines, "\n--- MATCHUP MATRIX ---")
	header := fmt.Sprintf("%8s", "")
	for _, t := range s.Teams {
		header += fmt.Sprintf(" %5s", t)
	}
	lines = append(lines, header)
	lines = append(lines, strings.Repeat("-", 8+6*len(s.Teams)))
	for _, t1 := range s.Teams {
		row := fmt.Sprintf("%8s", t1)
		for _, t2 := range s.Teams {
			if t1 == t2 {
				row += fmt.Sprintf(" %5s", "-")
			} else {
				row += fmt.Sprintf(" %5d", s.Matchups[t1][t2])
			}
		}
		lines = append(lines, row)
	}

	lines = append(lines, "\n--- GAMES PER DAY OF WEEK ---")
	days := []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		time.Friday, time.Saturday, time.Sunday,
	}
	header = fmt.Sprintf("%-8s", "Team")
	for _, d := range days {
		header += fmt.Sprintf(" %4s", d.String()[:3])
	}
	lines = append(lines, header)
	lines = append(lines, strings.Repeat("-", 8+5*len(days)))
	for _, t := range s.Teams {
		row := fmt.Sprintf("%-8s", t)
		for _, d := range days {
			row += fmt.Sprintf(" %4d", s.DayCounts[t][d])
		}
		lines = append(lines, row)
	}

	if s.MaxWeek > 0 {
		lines = append(lines, "\n--- GAMES PER WEEK ---")
		header = fmt.Sprintf("%-8s", "Team")
		for w := 1; w <= s.MaxWeek; w++ {
			header += fmt.Sprintf(" W%2d", w)
		}
		lines = append(lines, header)
		for _, t := range s.Teams {
			row := fmt.Sprintf("%-8s", t)
			for w := 1; w <= s.MaxWeek; w++ {
				row += fmt.Sprintf(" %3d", s.GamesPerWeek[t][w])
			}
			lines = append(lines, row)
		}
	}

	return strings.Join(lines, "\n")
}

func bump(m map[string]map[string]int, a, b string) {
	if m[a] == nil {
		m[a] = make(map[string]int)
	}
	m[a][b]++
}

func blank(v, width int) string {
	if v == 0 {
		return strings.Repeat(" ", width)
	}
	return fmt.Sprintf("%*d", width, v)
}

func blankSigned(v, width int) string {
	if v == 0 {
		return strings.Repeat(" ", width)
	}
	return fmt.Sprintf("%+*d", width, v)
}

func containsDate(dates []time.Time, d time.Time) bool {
	for _, x := range dates {
		if x.Equal(d) {
			return true
		}
	}
	return false
}
