// Package excel renders the schedule workbook: a master grid of every
// field occurrence in the season with games and blackouts filled in, one
// sheet per team, and the unscheduled list. It also reads the master grid
// back for auditing.
package excel

import (
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jonogibbs/d52sg/internal/config"
	"github.com/jonogibbs/d52sg/internal/schedule"
)

const masterSheet = "Master Schedule"

// Generate creates the schedule workbook.
func Generate(cfg *config.Config, result *schedule.Result) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetDefaultFont("Arial")

	if err := writeMasterSheet(f, cfg, result); err != nil {
		return nil, fmt.Errorf("writing master sheet: %w", err)
	}
	if err := writeTeamSheets(f, cfg, result); err != nil {
		return nil, fmt.Errorf("writing team sheets: %w", err)
	}
	if len(result.Unscheduled) > 0 {
		if err := writeUnscheduledSheet(f, result.Unscheduled); err != nil {
			return nil, fmt.Errorf("writing unscheduled sheet: %w", err)
		}
	}

	f.DeleteSheet("Sheet1")
	return f, nil
}

// fieldNames collects every field under league control, leagues in code
// order, definitions in declaration order.
func fieldNames(cfg *config.Config) []string {
	var leagueCodes []string
	for code := range cfg.Leagues {
		leagueCodes = append(leagueCodes, code)
	}
	sort.Strings(leagueCodes)

	seen := make(map[string]bool)
	var names []string
	for _, lc := range leagueCodes {
		league := cfg.Leagues[lc]
		for _, block := range []config.Block{config.BlockWeekday, config.BlockWeekend} {
			for _, fs := range league.FieldSlots(block) {
				if !seen[fs.Field] {
					seen[fs.Field] = true
					names = append(names, fs.Field)
				}
			}
		}
	}
	return names
}

// fieldColumnName shortens a field name to its first word when that word
// is unique among all fields.
func fieldColumnName(name string, allNames []string) string {
	first := firstWord(name)
	count := 0
	for _, n := range allNames {
		if firstWord(n) == first {
			count++
		}
	}
	if count > 1 {
		return name
	}
	return first
}

func firstWord(name string) string {
	for i, c := range name {
		if c == ' ' {
			return name[:i]
		}
	}
	return name
}

func writeMasterSheet(f *excelize.File, cfg *config.Config, result *schedule.Result) error {
	f.NewSheet(masterSheet)

	names := fieldNames(cfg)
	headers := []string{"Date", "Day", "Time"}
	for _, name := range names {
		headers = append(headers, fieldColumnName(name, names))
	}
	for i, h := range headers {
		f.SetCellValue(masterSheet, cellRef(i+1, 1), h)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 16, Family: "Arial"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if headerStyle != 0 {
		for i := range headers {
			f.SetCellStyle(masterSheet, cellRef(i+1, 1), cellRef(i+1, 1), headerStyle)
		}
	}
	for i, name := range names {
		if info, ok := cfg.Fields[name]; ok && info.MapURL != "" {
			f.SetCellHyperLink(masterSheet, cellRef(i+4, 1), info.MapURL, "External")
		}
	}

	type slotKey struct {
		date   time.Time
		minute int
		field  string
	}
	type timeSlot struct {
		date   time.Time
		minute int
		clock  config.ClockTime
	}

	// Every field occurrence of the season becomes a row, blacked out or
	// not: the grid shows open capacity alongside the games.
	occLeague := make(map[slotKey]string)
	seen := make(map[slotKey]bool)
	var timeSlots []timeSlot
	seenTime := make(map[slotKey]bool)
	addTime := func(date time.Time, clock config.ClockTime) {
		k := slotKey{date, clock.MinuteOfDay(), ""}
		if !seenTime[k] {
			seenTime[k] = true
			timeSlots = append(timeSlots, timeSlot{date, clock.MinuteOfDay(), clock})
		}
	}

	start := cfg.Season.StartDate.Time
	end := cfg.Season.EndDate.Time
	for _, name := range fieldLeagues(cfg) {
		league := cfg.Leagues[name]
		for _, block := range []config.Block{config.BlockWeekday, config.BlockWeekend} {
			for _, fs := range league.FieldSlots(block) {
				dates, err := schedule.FieldOccurrences(fs, start, end)
				if err != nil {
					return err
				}
				for _, d := range dates {
					k := slotKey{d, fs.Start.MinuteOfDay(), fs.Field}
					if !seen[k] {
						seen[k] = true
						occLeague[k] = league.Code()
					}
					addTime(d, fs.Start)
				}
			}
		}
	}

	gameAt := make(map[slotKey]schedule.Game)
	for _, g := range result.Games {
		k := slotKey{g.Date, g.Start.MinuteOfDay(), g.Field}
		gameAt[k] = g
		addTime(g.Date, g.Start)
	}

	sort.Slice(timeSlots, func(i, j int) bool {
		if !timeSlots[i].date.Equal(timeSlots[j].date) {
			return timeSlots[i].date.Before(timeSlots[j].date)
		}
		return timeSlots[i].minute < timeSlots[j].minute
	})

	cellStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 16, Family: "Arial"},
	})
	fieldCellStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 16, Family: "Arial"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for i, ts := range timeSlots {
		row := i + 2
		f.SetCellValue(masterSheet, cellRef(1, row), ts.date.Format("01/02/2006"))
		f.SetCellValue(masterSheet, cellRef(2, row), ts.date.Format("Mon"))
		f.SetCellValue(masterSheet, cellRef(3, row), ts.clock.String())

		for fi, fname := range names {
			col := fi + 4
			k := slotKey{ts.date, ts.minute, fname}
			if g, ok := gameAt[k]; ok {
				f.SetCellValue(masterSheet, cellRef(col, row), fmt.Sprintf("%s @ %s", g.Away, g.Home))
				continue
			}
			if league, ok := occLeague[k]; ok {
				if l, found := cfg.League(league); found && l.IsBlackedOut(ts.date) {
					f.SetCellValue(masterSheet, cellRef(col, row), fmt.Sprintf("%s blackout", league))
				}
			}
		}

		if cellStyle != 0 {
			for col := 1; col <= 3; col++ {
				f.SetCellStyle(masterSheet, cellRef(col, row), cellRef(col, row), cellStyle)
			}
			for col := 4; col <= len(headers); col++ {
				f.SetCellStyle(masterSheet, cellRef(col, row), cellRef(col, row), fieldCellStyle)
			}
		}
	}

	f.SetColWidth(masterSheet, "A", "A", 18)
	f.SetColWidth(masterSheet, "B", "B", 8)
	f.SetColWidth(masterSheet, "C", "C", 10)
	for i := range names {
		col := colLetter(i + 4)
		f.SetColWidth(masterSheet, col, col, 30)
	}

	// Non-game text in field columns (blackouts) gets a light red fill.
	lastRow := len(timeSlots) + 1
	redFill, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFC7CE"}},
		Font: &excelize.Font{Size: 16, Family: "Arial"},
	})
	for i := range names {
		col := colLetter(i + 4)
		cellRange := fmt.Sprintf("%s2:%s%d", col, col, lastRow)
		topCell := fmt.Sprintf("%s2", col)
		formula := fmt.Sprintf(`AND(%s<>"",ISERROR(FIND(" @ ",%s)))`, topCell, topCell)
		f.SetConditionalFormat(masterSheet, cellRange, []excelize.ConditionalFormatOptions{
			{
				Type:     "formula",
				Criteria: formula,
				Format:   &redFill,
			},
		})
	}

	return nil
}

func fieldLeagues(cfg *config.Config) []string {
	var codes []string
	for code := range cfg.Leagues {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func writeTeamSheets(f *excelize.File, cfg *config.Config, result *schedule.Result) error {
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 16, Family: "Arial"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	cellStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 16, Family: "Arial"},
	})

	for _, team := range cfg.AllTeams() {
		sheet := team
		f.NewSheet(sheet)

		headers := []string{"Date", "Day", "Time", "Field", "Opponent", "Home/Away", "Game"}
		for i, h := range headers {
			f.SetCellValue(sheet, cellRef(i+1, 1), h)
			if headerStyle != 0 {
				f.SetCellStyle(sheet, cellRef(i+1, 1), cellRef(i+1, 1), headerStyle)
			}
		}

		row := 2
		for _, g := range result.Games {
			if !g.Involves(team) {
				continue
			}
			homeAway := "Home"
			if g.Away == team {
				homeAway = "Away"
			}
			f.SetCellValue(sheet, cellRef(1, row), g.Date.Format("01/02/2006"))
			f.SetCellValue(sheet, cellRef(2, row), g.Date.Format("Mon"))
			f.SetCellValue(sheet, cellRef(3, row), g.Start.String())
			f.SetCellValue(sheet, cellRef(4, row), g.Field)
			f.SetCellValue(sheet, cellRef(5, row), g.Opponent(team))
			f.SetCellValue(sheet, cellRef(6, row), homeAway)
			f.SetCellValue(sheet, cellRef(7, row), g.Code)
			if cellStyle != 0 {
				for col := 1; col <= len(headers); col++ {
					f.SetCellStyle(sheet, cellRef(col, row), cellRef(col, row), cellStyle)
				}
			}
			row++
		}

		widths := map[string]float64{"A": 18, "B": 8, "C": 10, "D": 28, "E": 16, "F": 14, "G": 14}
		for col, w := range widths {
			f.SetColWidth(sheet, col, col, w)
		}
	}

	return nil
}

func writeUnscheduledSheet(f *excelize.File, unscheduled []schedule.Unscheduled) error {
	sheet := "Unscheduled"
	f.NewSheet(sheet)

	headers := []string{"Matchup", "Type", "Round", "Week", "Reason"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 16, Family: "Arial"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#C00000"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range headers {
		f.SetCellValue(sheet, cellRef(i+1, 1), h)
		if headerStyle != 0 {
			f.SetCellStyle(sheet, cellRef(i+1, 1), cellRef(i+1, 1), headerStyle)
		}
	}
	for i, u := range unscheduled {
		row := i + 2
		f.SetCellValue(sheet, cellRef(1, row), u.Matchup.String())
		f.SetCellValue(sheet, cellRef(2, row), string(u.Kind))
		f.SetCellValue(sheet, cellRef(3, row), u.Round)
		if u.Week > 0 {
			f.SetCellValue(sheet, cellRef(4, row), u.Week)
		}
		f.SetCellValue(sheet, cellRef(5, row), u.Reason)
	}
	f.SetColWidth(sheet, "A", "A", 22)
	f.SetColWidth(sheet, "B", "D", 10)
	f.SetColWidth(sheet, "E", "E", 60)
	return nil
}

func cellRef(col, row int) string {
	return fmt.Sprintf("%s%d", colLetter(col), row)
}

func colLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}
