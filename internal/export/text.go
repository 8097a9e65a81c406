// Package export renders a schedule to the distribution formats: the
// plain-text week/team listing and the GameChanger upload CSV.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jonogibbs/d52sg/internal/config"
	"github.com/jonogibbs/d52sg/internal/pairing"
	"github.com/jonogibbs/d52sg/internal/schedule"
)

// WriteText writes the human-readable schedule: every week's games in
// date order, then each team's season at a glance.
func WriteText(w io.Writer, cfg *config.Config, games []schedule.Game) error {
	title := strings.ToUpper(cfg.Season.Name)
	if title == "" {
		title = "SEASON"
	}
	var lines []string
	lines = append(lines, strings.Repeat("=", 80))
	lines = append(lines, title+" SCHEDULE")
	lines = append(lines, strings.Repeat("=", 80))

	byWeek := make(map[int][]schedule.Game)
	var weeks []int
	for _, g := range games {
		week := schedule.WeekOf(cfg, g.Date)
		if _, ok := byWeek[week]; !ok {
			weeks = append(weeks, week)
		}
		byWeek[week] = append(byWeek[week], g)
	}
	sort.Ints(weeks)

	for _, week := range weeks {
		lines = append(lines, fmt.Sprintf("\n--- WEEK %d ---", week))
		weekGames := sortedByTime(byWeek[week])
		var lastDate time.Time
		for _, g := range weekGames {
			if !g.Date.Equal(lastDate) {
				lastDate = g.Date
				lines = append(lines, fmt.Sprintf("\n  %s %s",
					g.Date.Weekday(), g.Date.Format("01/02/2006")))
			}
			hostNote := ""
			if g.Host != g.Home {
				hostNote = fmt.Sprintf(" (at %s)", g.Host)
			}
			lines = append(lines, fmt.Sprintf("    [%s] %7s  %-6s vs %-6s  @ %s%s",
				kindMark(g.Kind), g.Start, g.Home, g.Away, g.Field, hostNote))
		}
	}

	lines = append(lines, "\n"+strings.Repeat("=", 80))
	lines = append(lines, "PER-TEAM SCHEDULES")
	lines = append(lines, strings.Repeat("=", 80))

	byTeam := make(map[string][]schedule.Game)
	var teams []string
	for _, g := range games {
		for _, team := range []string{g.Home, g.Away} {
			if _, ok := byTeam[team]; !ok {
				teams = append(teams, team)
			}
			byTeam[team] = append(byTeam[team], g)
		}
	}
	sort.Strings(teams)

	for _, team := range teams {
		lines = append(lines, fmt.Sprintf("\n%s:", team))
		for i, g := range sortedByTime(byTeam[team]) {
			homeAway := "H"
			opponent := g.Away
			if g.Away == team {
				homeAway = "V"
				opponent = g.Home
			}
			lines = append(lines, fmt.Sprintf("  %2d. %s %s %7s %s vs %-6s @ %s [%s]",
				i+1, g.Date.Weekday().String()[:3], g.Date.Format("01/02"),
				g.Start, homeAway, opponent, g.Field, kindMark(g.Kind)))
		}
	}

	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

func kindMark(k pairing.Kind) string {
	if k == pairing.KindCrossover {
		return "X"
	}
	return " "
}

func sortedByTime(games []schedule.Game) []schedule.Game {
	out := append([]schedule.Game(nil), games...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Start.MinuteOfDay() < out[j].Start.MinuteOfDay()
	})
	return out
}
