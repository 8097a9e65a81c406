package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Pool identifies one of the two scheduling pools.
type Pool string

const (
	PoolNorth Pool = "north"
	PoolSouth Pool = "south"
)

// Block identifies the kind of a calendar slot.
type Block string

const (
	BlockWeekday Block = "weekday"
	BlockWeekend Block = "weekend"
)

// BlockOf returns the block kind a date falls in.
func BlockOf(d time.Time) Block {
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return BlockWeekend
	}
	return BlockWeekday
}

// Date wraps time.Time to support YAML unmarshaling from YYYY-MM-DD format.
type Date struct {
	Time time.Time
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD format", s)
	}
	d.Time = t
	return nil
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.Time.IsZero()
}

// DateRange is an inclusive span of dates. YAML accepts a single date
// "2026-04-06" or a range "2026-04-06:2026-04-12".
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r *DateRange) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parts := strings.SplitN(s, ":", 2)
	start, err := time.Parse("2006-01-02", strings.TrimSpace(parts[0]))
	if err != nil {
		return fmt.Errorf("invalid date range %q: expected YYYY-MM-DD or YYYY-MM-DD:YYYY-MM-DD", s)
	}
	end := start
	if len(parts) == 2 {
		end, err = time.Parse("2006-01-02", strings.TrimSpace(parts[1]))
		if err != nil {
			return fmt.Errorf("invalid date range %q: expected YYYY-MM-DD or YYYY-MM-DD:YYYY-MM-DD", s)
		}
	}
	if end.Before(start) {
		return fmt.Errorf("invalid date range %q: end is before start", s)
	}
	r.Start, r.End = start, end
	return nil
}

// Contains reports whether d falls inside the range, inclusive.
func (r DateRange) Contains(d time.Time) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// ClockTime is a time of day parsed from forms like "5:30pm", "10am" or "17:00".
type ClockTime struct {
	Hour   int
	Minute int
}

func (t *ClockTime) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	ct, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*t = ct
	return nil
}

// ParseClockTime parses "5:30pm", "10am", "9:15 PM" or 24-hour "17:00".
func ParseClockTime(s string) (ClockTime, error) {
	orig := s
	s = strings.ToLower(strings.TrimSpace(s))
	meridiem := ""
	for _, suffix := range []string{"am", "pm"} {
		if strings.HasSuffix(s, suffix) {
			meridiem = suffix
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}
	hourPart, minutePart, hasMinute := strings.Cut(s, ":")
	hour, err := strconv.Atoi(hourPart)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid time %q: expected forms like 5:30pm, 10am or 17:00", orig)
	}
	minute := 0
	if hasMinute {
		minute, err = strconv.Atoi(minutePart)
		if err != nil || len(minutePart) != 2 {
			return ClockTime{}, fmt.Errorf("invalid time %q: expected forms like 5:30pm, 10am or 17:00", orig)
		}
	}
	if minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("invalid time %q: minute out of range", orig)
	}
	switch meridiem {
	case "am":
		if hour < 1 || hour > 12 {
			return ClockTime{}, fmt.Errorf("invalid time %q: hour out of range", orig)
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return ClockTime{}, fmt.Errorf("invalid time %q: hour out of range", orig)
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour < 0 || hour > 23 {
			return ClockTime{}, fmt.Errorf("invalid time %q: hour out of range", orig)
		}
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

// Add returns the clock time the given number of minutes later, wrapping at midnight.
func (t ClockTime) Add(minutes int) ClockTime {
	total := (t.Hour*60 + t.Minute + minutes) % (24 * 60)
	if total < 0 {
		total += 24 * 60
	}
	return ClockTime{Hour: total / 60, Minute: total % 60}
}

// MinuteOfDay returns minutes since midnight, for ordering.
func (t ClockTime) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

// Before reports whether t is earlier in the day than o.
func (t ClockTime) Before(o ClockTime) bool {
	return t.MinuteOfDay() < o.MinuteOfDay()
}

// IsZero reports whether the time is unset. Midnight counts as unset.
func (t ClockTime) IsZero() bool {
	return t.Hour == 0 && t.Minute == 0
}

// On anchors the clock time to a calendar date.
func (t ClockTime) On(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, d.Location())
}

// String renders the time in the 12-hour form used throughout the outputs,
// e.g. "5:30pm".
func (t ClockTime) String() string {
	h := t.Hour % 12
	if h == 0 {
		h = 12
	}
	meridiem := "am"
	if t.Hour >= 12 {
		meridiem = "pm"
	}
	return fmt.Sprintf("%d:%02d%s", h, t.Minute, meridiem)
}

// Format24 renders the time as 24-hour "HH:MM".
func (t ClockTime) Format24() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Weekday wraps time.Weekday to support YAML values like "mon" or "Saturday".
type Weekday struct {
	Day time.Weekday

	set bool
}

var weekdayNames = map[string]time.Weekday{
	"mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
	"sun": time.Sunday,
}

func (w *Weekday) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	key := strings.ToLower(strings.TrimSpace(s))
	if len(key) > 3 {
		key = key[:3]
	}
	d, ok := weekdayNames[key]
	if !ok {
		return fmt.Errorf("invalid weekday %q: expected mon..sun", s)
	}
	w.Day, w.set = d, true
	return nil
}

// IsZero reports whether the weekday is unset.
func (w Weekday) IsZero() bool {
	return !w.set
}

// FieldSlot is one recurring weekly field/time a league controls, e.g.
// "Riverside #2 every Tuesday at 5:30pm".
type FieldSlot struct {
	Field        string    `yaml:"field" validate:"required"`
	Day          Weekday   `yaml:"day"`
	Start        ClockTime `yaml:"time"`
	ExcludeDates []Date    `yaml:"exclude_dates"`
}

// Excludes reports whether the slot definition skips the given date.
func (fs FieldSlot) Excludes(d time.Time) bool {
	for _, ex := range fs.ExcludeDates {
		if sameDate(ex.Time, d) {
			return true
		}
	}
	return false
}

// TeamSpec is a league's teams entry: either an explicit list of codes or a
// count to generate codes from the league code (e.g. 2 under BRS gives
// BRS1, BRS2).
type TeamSpec struct {
	Names []string
	Count int
}

func (s *TeamSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var n int
		if err := value.Decode(&n); err != nil {
			return fmt.Errorf("invalid teams value %q: expected a count or a list of codes", value.Value)
		}
		if n < 1 {
			return fmt.Errorf("invalid teams count %d: must be at least 1", n)
		}
		s.Count = n
		return nil
	case yaml.SequenceNode:
		return value.Decode(&s.Names)
	default:
		return fmt.Errorf("invalid teams value: expected a count or a list of codes")
	}
}

// League is a member organization with its own teams, fields and blackouts.
type League struct {
	FullName      string      `yaml:"full_name"`
	Teams         TeamSpec    `yaml:"teams"`
	WeekdayFields []FieldSlot `yaml:"weekday_fields" validate:"omitempty,dive"`
	WeekendFields []FieldSlot `yaml:"weekend_fields" validate:"omitempty,dive"`
	BlackoutDates []DateRange `yaml:"blackout_dates"`

	code      string
	teamCodes []string
}

// Code returns the league's short code, the key it was declared under.
func (l *League) Code() string {
	return l.code
}

// TeamCodes returns the league's team codes in declaration order.
func (l *League) TeamCodes() []string {
	return l.teamCodes
}

// FieldSlots returns the league's field-slot definitions for a block kind,
// in declaration order.
func (l *League) FieldSlots(b Block) []FieldSlot {
	if b == BlockWeekend {
		return l.WeekendFields
	}
	return l.WeekdayFields
}

// HomeCap is the number of games the league can host per round of a block
// kind: one per field-slot definition.
func (l *League) HomeCap(b Block) int {
	return len(l.FieldSlots(b))
}

// HasFields reports whether the league controls any field at all.
func (l *League) HasFields() bool {
	return len(l.WeekdayFields) > 0 || len(l.WeekendFields) > 0
}

// IsBlackedOut reports whether the league cannot play on the given date.
func (l *League) IsBlackedOut(d time.Time) bool {
	for _, r := range l.BlackoutDates {
		if r.Contains(d) {
			return true
		}
	}
	return false
}

// TeamOverride holds per-team exceptions applied on top of league defaults.
type TeamOverride struct {
	WeekdayOnly       bool      `yaml:"weekday_only"`
	AvailableWeekends []Date    `yaml:"available_weekends"`
	NoPlayDays        []Weekday `yaml:"no_play_days"`
	GameChangerName   string    `yaml:"gamechanger_name"`
}

// Team is a fully resolved playing team.
type Team struct {
	Code              string
	LeagueCode        string
	Pool              Pool
	WeekdayOnly       bool
	AvailableWeekends []time.Time
	NoPlayDays        []time.Weekday
	DisplayName       string
}

// NoPlay reports whether the team refuses games on the given weekday.
func (t *Team) NoPlay(w time.Weekday) bool {
	for _, d := range t.NoPlayDays {
		if d == w {
			return true
		}
	}
	return false
}

// WeekendAllowed reports whether the team may play a weekend game on the
// given date. Weekday-only teams are allowed only on dates they listed
// explicitly.
func (t *Team) WeekendAllowed(d time.Time) bool {
	if !t.WeekdayOnly {
		return true
	}
	for _, w := range t.AvailableWeekends {
		if sameDate(w, d) {
			return true
		}
	}
	return false
}

// Season bounds the schedule and sets game-wide defaults.
type Season struct {
	Name              string `yaml:"name"`
	StartDate         Date   `yaml:"start_date" validate:"required"`
	EndDate           Date   `yaml:"end_date" validate:"required"`
	GameLengthMinutes int    `yaml:"game_length_minutes" validate:"omitempty,min=1"`
	GameCodePrefix    string `yaml:"game_code_prefix"`
}

// Pools lists the team codes of the two scheduling pools.
type Pools struct {
	North []string `yaml:"north" validate:"required,min=2,dive,required"`
	South []string `yaml:"south" validate:"required,min=2,dive,required"`
}

// FieldInfo is auxiliary display data about a field.
type FieldInfo struct {
	MapURL string `yaml:"map_url"`
}

// Config is the fully validated season configuration.
type Config struct {
	Season              Season                  `yaml:"season"`
	Pools               Pools                   `yaml:"pools"`
	Leagues             map[string]*League      `yaml:"leagues" validate:"required,min=1,dive,required"`
	TeamOverrides       map[string]TeamOverride `yaml:"team_overrides"`
	AvoidSameTimeGroups [][]string              `yaml:"avoid_same_time_groups" validate:"omitempty,dive,min=2,dive,required"`
	Fields              map[string]FieldInfo    `yaml:"fields"`

	teams map[string]*Team
	order []string
}

// LoadFromFile reads and validates a config from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses and validates config YAML.
func LoadFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.finalize()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// finalize fills defaults and resolves derived structures after unmarshaling.
func (c *Config) finalize() {
	if c.Season.GameLengthMinutes == 0 {
		c.Season.GameLengthMinutes = 150
	}
	if c.Season.GameCodePrefix == "" {
		c.Season.GameCodePrefix = "G"
	}
	for code, l := range c.Leagues {
		l.code = code
		if l.FullName == "" {
			l.FullName = code
		}
		l.teamCodes = l.Teams.Names
		if l.Teams.Count > 0 {
			l.teamCodes = make([]string, l.Teams.Count)
			for i := range l.teamCodes {
				l.teamCodes[i] = code + strconv.Itoa(i+1)
			}
		}
		defaultFieldTimes(l.WeekdayFields, ClockTime{Hour: 17, Minute: 30})
		defaultFieldTimes(l.WeekendFields, ClockTime{Hour: 10})
	}

	c.teams = make(map[string]*Team)
	c.order = nil
	for _, pool := range []Pool{PoolNorth, PoolSouth} {
		for _, code := range c.poolCodes(pool) {
			t := &Team{Code: code, Pool: pool, DisplayName: code}
			for _, l := range c.Leagues {
				for _, tc := range l.teamCodes {
					if tc == code {
						t.LeagueCode = l.code
					}
				}
			}
			if ov, ok := c.TeamOverrides[code]; ok {
				t.WeekdayOnly = ov.WeekdayOnly
				for _, d := range ov.AvailableWeekends {
					t.AvailableWeekends = append(t.AvailableWeekends, d.Time)
				}
				for _, w := range ov.NoPlayDays {
					t.NoPlayDays = append(t.NoPlayDays, w.Day)
				}
				if ov.GameChangerName != "" {
					t.DisplayName = ov.GameChangerName
				}
			}
			c.teams[code] = t
			c.order = append(c.order, code)
		}
	}
}

func defaultFieldTimes(slots []FieldSlot, def ClockTime) {
	for i := range slots {
		if slots[i].Start.IsZero() {
			slots[i].Start = def
		}
	}
}

// validate applies the cross-field rules struct tags cannot express.
func (c *Config) validate() error {
	if !c.Season.EndDate.Time.After(c.Season.StartDate.Time) {
		return fmt.Errorf("season end_date must be after start_date")
	}

	leagueOf := make(map[string]string)
	for code, l := range c.Leagues {
		if len(l.teamCodes) == 0 {
			return fmt.Errorf("league %q has no teams", code)
		}
		for _, tc := range l.teamCodes {
			if prev, ok := leagueOf[tc]; ok {
				return fmt.Errorf("duplicate team %q in leagues %q and %q", tc, prev, code)
			}
			leagueOf[tc] = code
		}
		for _, fs := range l.WeekdayFields {
			if fs.Day.IsZero() {
				return fmt.Errorf("league %q: weekday field %q is missing a day", code, fs.Field)
			}
			if fs.Day.Day == time.Saturday || fs.Day.Day == time.Sunday {
				return fmt.Errorf("league %q: weekday field %q cannot be on %s", code, fs.Field, fs.Day.Day)
			}
		}
		for _, fs := range l.WeekendFields {
			if fs.Day.IsZero() {
				return fmt.Errorf("league %q: weekend field %q is missing a day", code, fs.Field)
			}
			if fs.Day.Day != time.Saturday && fs.Day.Day != time.Sunday {
				return fmt.Errorf("league %q: weekend field %q must be on sat or sun, not %s", code, fs.Field, fs.Day.Day)
			}
		}
	}

	seen := make(map[string]Pool)
	for _, pool := range []Pool{PoolNorth, PoolSouth} {
		for _, code := range c.poolCodes(pool) {
			if prev, ok := seen[code]; ok {
				if prev == pool {
					return fmt.Errorf("duplicate team %q in pool %q", code, pool)
				}
				return fmt.Errorf("team %q appears in both pools", code)
			}
			seen[code] = pool
			if _, ok := leagueOf[code]; !ok {
				return fmt.Errorf("team %q in pool %q belongs to no league", code, pool)
			}
		}
	}
	for tc, lc := range leagueOf {
		if _, ok := seen[tc]; !ok {
			return fmt.Errorf("team %q in league %q appears in no pool", tc, lc)
		}
	}

	for code := range c.TeamOverrides {
		if _, ok := seen[code]; !ok {
			return fmt.Errorf("team_overrides references unknown team %q", code)
		}
	}
	for _, group := range c.AvoidSameTimeGroups {
		for _, code := range group {
			if _, ok := seen[code]; !ok {
				return fmt.Errorf("avoid_same_time_groups references unknown team %q", code)
			}
		}
	}
	return nil
}

func (c *Config) poolCodes(p Pool) []string {
	if p == PoolSouth {
		return c.Pools.South
	}
	return c.Pools.North
}

// AllTeams returns every team code, north pool first, in declaration order.
func (c *Config) AllTeams() []string {
	return c.order
}

// PoolTeams returns the team codes of one pool in declaration order.
func (c *Config) PoolTeams(p Pool) []string {
	return c.poolCodes(p)
}

// Team looks up a resolved team by code.
func (c *Config) Team(code string) (*Team, bool) {
	t, ok := c.teams[code]
	return t, ok
}

// League looks up a league by code.
func (c *Config) League(code string) (*League, bool) {
	l, ok := c.Leagues[code]
	return l, ok
}

// LeagueOf returns the league a team belongs to, or nil for an unknown team.
func (c *Config) LeagueOf(teamCode string) *League {
	t, ok := c.teams[teamCode]
	if !ok {
		return nil
	}
	return c.Leagues[t.LeagueCode]
}

// SameTimeGroup reports whether two teams share an avoid-same-time group.
func (c *Config) SameTimeGroup(a, b string) bool {
	for _, group := range c.AvoidSameTimeGroups {
		var hasA, hasB bool
		for _, code := range group {
			hasA = hasA || code == a
			hasB = hasB || code == b
		}
		if hasA && hasB {
			return true
		}
	}
	return false
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
