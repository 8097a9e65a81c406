package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/jonogibbs/d52sg/internal/config"
	"github.com/jonogibbs/d52sg/internal/pairing"
	"github.com/jonogibbs/d52sg/internal/schedule"
)

// gameChangerHeader is the upload format GameChanger expects. Only the
// date/time columns and the two team IDs are populated; the rest exist to
// satisfy the importer.
var gameChangerHeader = []string{
	"Start_Date", "Start_Time", "End_Date", "End_Time",
	"Title", "Description", "Location", "Location_URL",
	"Location_Details", "All_Day_Event", "Event_Type", "Tags",
	"Team1_ID", "Team1_Division_ID", "Team1_Is_Home",
	"Team2_ID", "Team2_Division_ID", "Team2_Name",
	"Custom_Opponent", "Event_ID", "Game_ID",
	"Affects_Standings", "Points_Win", "Points_Loss",
	"Points_Tie", "Points_OT_Win", "Points_OT_Loss",
	"Division_Override",
}

const (
	colStartDate = 0
	colStartTime = 1
	colEndDate   = 2
	colEndTime   = 3
	colTeam1     = 12
	colTeam2     = 15
	colGameID    = 20
)

// WriteGameChanger writes the schedule as a GameChanger upload CSV. Teams
// appear under their GameChanger display names when the config maps them.
func WriteGameChanger(w io.Writer, cfg *config.Config, games []schedule.Game) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(gameChangerHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, g := range sortedByTime(games) {
		row := make([]string, len(gameChangerHeader))
		row[colStartDate] = g.Date.Format("1/2/06")
		row[colStartTime] = clock24(g.Start)
		row[colEndDate] = row[colStartDate]
		row[colEndTime] = clock24(g.End)
		row[colTeam1] = displayName(cfg, g.Home)
		row[colTeam2] = displayName(cfg, g.Away)
		row[colGameID] = g.Code
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing game %s: %w", g.Code, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadGameChanger parses a GameChanger CSV back into games for auditing.
// The CSV carries no field or host information, so the host is inferred:
// the home team when its league has fields for the block, the away team
// otherwise.
func ReadGameChanger(r io.Reader, cfg *config.Config) ([]schedule.Game, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range []string{"Start_Date", "Start_Time", "Team1_ID", "Team2_ID"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	names := displayIndex(cfg)
	var games []schedule.Game
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		line++
		date, err := parseCSVDate(row[col["Start_Date"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		start, err := config.ParseClockTime(row[col["Start_Time"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		end := start.Add(cfg.Season.GameLengthMinutes)
		if i, ok := col["End_Time"]; ok && row[i] != "" {
			if parsed, err := config.ParseClockTime(row[i]); err == nil {
				end = parsed
			}
		}

		home := teamCode(cfg, names, row[col["Team1_ID"]])
		away := teamCode(cfg, names, row[col["Team2_ID"]])
		g := schedule.Game{
			Home:  home,
			Away:  away,
			Host:  inferHost(cfg, home, away, date),
			Date:  date,
			Start: start,
			End:   end,
			Week:  schedule.WeekOf(cfg, date),
			Block: config.BlockOf(date),
			Kind:  inferKind(cfg, home, away),
		}
		if i, ok := col["Game_ID"]; ok && i < len(row) {
			g.Code = row[i]
		}
		games = append(games, g)
	}
	return games, nil
}

func clock24(t config.ClockTime) string {
	return fmt.Sprintf("%d:%02d", t.Hour, t.Minute)
}

func displayName(cfg *config.Config, code string) string {
	if t, ok := cfg.Team(code); ok && t.DisplayName != "" {
		return t.DisplayName
	}
	return code
}

func displayIndex(cfg *config.Config) map[string]string {
	names := make(map[string]string)
	for _, code := range cfg.AllTeams() {
		t, _ := cfg.Team(code)
		names[t.DisplayName] = code
	}
	return names
}

// teamCode resolves a CSV team cell: an exact code first, then a
// GameChanger display name. Unknown names pass through untouched so the
// checker can report them.
func teamCode(cfg *config.Config, names map[string]string, cell string) string {
	if _, ok := cfg.Team(cell); ok {
		return cell
	}
	if code, ok := names[cell]; ok {
		return code
	}
	return cell
}

func inferHost(cfg *config.Config, home, away string, date time.Time) string {
	block := config.BlockOf(date)
	if l := cfg.LeagueOf(home); l != nil && l.HomeCap(block) > 0 {
		return home
	}
	if l := cfg.LeagueOf(away); l != nil && l.HomeCap(block) > 0 {
		return away
	}
	return home
}

func inferKind(cfg *config.Config, home, away string) pairing.Kind {
	h, hok := cfg.Team(home)
	a, aok := cfg.Team(away)
	if hok && aok && h.Pool != a.Pool {
		return pairing.KindCrossover
	}
	return pairing.KindIntra
}

func parseCSVDate(s string) (time.Time, error) {
	for _, layout := range []string{"1/2/06", "1/2/2006"} {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: expected M/D/YY", s)
}
