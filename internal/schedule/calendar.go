package schedule

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/jonogibbs/d52sg/internal/config"
)

// FieldDate is one concrete occurrence of a league field-slot definition
// that the league could host on: exclude_dates and the league's own
// blackouts are already filtered out.
type FieldDate struct {
	Date  time.Time
	Start config.ClockTime
	Field string
}

// Slot is one week-block of the season calendar: the dates it spans, the
// teams able to play at least one of them, and each league's usable field
// occurrences.
type Slot struct {
	Week       int
	Block      config.Block
	Dates      []time.Time
	Available  map[string]bool
	FieldDates map[string][]FieldDate
}

// First returns the slot's earliest date.
func (s *Slot) First() time.Time {
	return s.Dates[0]
}

// Last returns the slot's latest date.
func (s *Slot) Last() time.Time {
	return s.Dates[len(s.Dates)-1]
}

// BuildCalendar enumerates one weekday slot and one weekend slot per week
// of the season, chronological, weeks numbered from 1. Weeks are aligned
// to Monday; the first and last may span fewer dates.
func BuildCalendar(cfg *config.Config) ([]Slot, error) {
	start := cfg.Season.StartDate.Time
	end := cfg.Season.EndDate.Time
	monday := mondayOf(start)

	var slots []Slot
	week := 0
	for ws := monday; !ws.After(end); ws = ws.AddDate(0, 0, 7) {
		week++
		for _, block := range []config.Block{config.BlockWeekday, config.BlockWeekend} {
			dates := blockDates(ws, block, start, end)
			if len(dates) == 0 {
				continue
			}
			slot, err := buildSlot(cfg, week, block, dates)
			if err != nil {
				return nil, err
			}
			slots = append(slots, slot)
		}
	}
	return slots, nil
}

// WeekOf returns the 1-based season week containing the date, counted
// from the Monday of the season's first week.
func WeekOf(cfg *config.Config, d time.Time) int {
	monday := mondayOf(cfg.Season.StartDate.Time)
	return int(d.Sub(monday).Hours()/(24*7)) + 1
}

func mondayOf(d time.Time) time.Time {
	return d.AddDate(0, 0, -((int(d.Weekday()) + 6) % 7))
}

// blockDates lists the dates of one block of the week starting at ws,
// clamped to the season.
func blockDates(ws time.Time, block config.Block, start, end time.Time) []time.Time {
	from, to := 0, 5
	if block == config.BlockWeekend {
		from, to = 5, 7
	}
	var dates []time.Time
	for i := from; i < to; i++ {
		d := ws.AddDate(0, 0, i)
		if d.Before(start) || d.After(end) {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}

func buildSlot(cfg *config.Config, week int, block config.Block, dates []time.Time) (Slot, error) {
	slot := Slot{
		Week:       week,
		Block:      block,
		Dates:      dates,
		Available:  make(map[string]bool),
		FieldDates: make(map[string][]FieldDate),
	}
	for _, code := range cfg.AllTeams() {
		team, _ := cfg.Team(code)
		for _, d := range dates {
			if eligibleOn(cfg, team, d, block) {
				slot.Available[code] = true
				break
			}
		}
	}
	for _, league := range cfg.Leagues {
		fds, err := leagueFieldDates(league, block, dates)
		if err != nil {
			return Slot{}, err
		}
		if len(fds) > 0 {
			slot.FieldDates[league.Code()] = fds
		}
	}
	return slot, nil
}

// eligibleOn reports whether a team can play on a specific date: its
// league is not blacked out, the weekday is not forbidden, and weekend
// dates pass the weekday-only override rules.
func eligibleOn(cfg *config.Config, team *config.Team, d time.Time, block config.Block) bool {
	if cfg.LeagueOf(team.Code).IsBlackedOut(d) {
		return false
	}
	if team.NoPlay(d.Weekday()) {
		return false
	}
	if block == config.BlockWeekend && !team.WeekendAllowed(d) {
		return false
	}
	return true
}

func leagueFieldDates(l *config.League, block config.Block, dates []time.Time) ([]FieldDate, error) {
	var out []FieldDate
	for _, fs := range l.FieldSlots(block) {
		occ, err := FieldOccurrences(fs, dates[0], dates[len(dates)-1])
		if err != nil {
			return nil, fmt.Errorf("league %s: %w", l.Code(), err)
		}
		for _, d := range occ {
			if l.IsBlackedOut(d) {
				continue
			}
			out = append(out, FieldDate{Date: d, Start: fs.Start, Field: fs.Field})
		}
	}
	return out, nil
}

var rruleDays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// FieldOccurrences expands a field-slot definition into its concrete dates
// within [from, to], inclusive, dropping exclude_dates.
func FieldOccurrences(fs config.FieldSlot, from, to time.Time) ([]time.Time, error) {
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rruleDays[fs.Day.Day]},
		Dtstart:   from,
	})
	if err != nil {
		return nil, fmt.Errorf("expanding field slot %s/%s: %w", fs.Field, fs.Day.Day, err)
	}
	var dates []time.Time
	for _, d := range r.Between(from, to, true) {
		if !fs.Excludes(d) {
			dates = append(dates, d)
		}
	}
	return dates, nil
}
