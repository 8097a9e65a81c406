package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jonogibbs/d52sg/internal/config"
	"github.com/jonogibbs/d52sg/internal/pairing"
	"github.com/jonogibbs/d52sg/internal/schedule"
)

// ReadGames parses the master sheet of a schedule workbook back into
// games. Blackout annotations and open slots are skipped; the host is
// inferred from field ownership.
func ReadGames(path string, cfg *config.Config) ([]schedule.Game, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(masterSheet)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", masterSheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s is empty", masterSheet)
	}

	// Header columns carry shortened field names; map them back.
	names := fieldNames(cfg)
	fullName := make(map[string]string, len(names))
	for _, name := range names {
		fullName[fieldColumnName(name, names)] = name
	}

	type fieldCol struct {
		index int
		name  string
	}
	var fieldCols []fieldCol
	header := rows[0]
	for i := 3; i < len(header); i++ {
		name := header[i]
		if full, ok := fullName[name]; ok {
			name = full
		}
		fieldCols = append(fieldCols, fieldCol{i, name})
	}

	var games []schedule.Game
	for i, row := range rows {
		if i == 0 || len(row) < 3 || row[0] == "" {
			continue
		}
		date, err := parseSheetDate(row[0])
		if err != nil {
			continue
		}
		start, err := config.ParseClockTime(row[2])
		if err != nil {
			continue
		}

		for _, fc := range fieldCols {
			if fc.index >= len(row) || row[fc.index] == "" {
				continue
			}
			away, home, ok := parseGameCell(row[fc.index])
			if !ok {
				continue // blackout annotation, not a game
			}
			games = append(games, schedule.Game{
				Home:  home,
				Away:  away,
				Host:  hostByField(cfg, home, away, fc.name),
				Date:  date,
				Start: start,
				End:   start.Add(cfg.Season.GameLengthMinutes),
				Field: fc.name,
				Week:  schedule.WeekOf(cfg, date),
				Block: config.BlockOf(date),
				Kind:  kindOf(cfg, home, away),
			})
		}
	}
	return games, nil
}

// parseGameCell parses "Away @ Home" and returns (away, home, true), or
// ("", "", false) if the cell does not match the game format.
func parseGameCell(cell string) (away, home string, ok bool) {
	for i := 0; i < len(cell)-2; i++ {
		if cell[i] == ' ' && cell[i+1] == '@' && cell[i+2] == ' ' {
			return cell[:i], cell[i+3:], true
		}
	}
	return "", "", false
}

// hostByField picks the side whose league owns the field, defaulting to
// the home team.
func hostByField(cfg *config.Config, home, away, field string) string {
	if l := cfg.LeagueOf(away); l != nil && leagueOwns(l, field) {
		if lh := cfg.LeagueOf(home); lh == nil || !leagueOwns(lh, field) {
			return away
		}
	}
	return home
}

func leagueOwns(l *config.League, field string) bool {
	for _, block := range []config.Block{config.BlockWeekday, config.BlockWeekend} {
		for _, fs := range l.FieldSlots(block) {
			if fs.Field == field {
				return true
			}
		}
	}
	return false
}

func kindOf(cfg *config.Config, home, away string) pairing.Kind {
	h, hok := cfg.Team(home)
	a, aok := cfg.Team(away)
	if hok && aok && h.Pool != a.Pool {
		return pairing.KindCrossover
	}
	return pairing.KindIntra
}

func parseSheetDate(s string) (time.Time, error) {
	return time.Parse("01/02/2006", s)
}
