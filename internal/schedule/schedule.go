// Package schedule turns a season configuration into a concrete game
// schedule: it builds the calendar, pins round-robin rounds to week slots,
// balances home/away and field assignments, and trims residual imbalance.
package schedule

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonogibbs/d52sg/internal/config"
	"github.com/jonogibbs/d52sg/internal/pairing"
)

// Origin records how a game earned its calendar position.
type Origin string

const (
	// OriginRound games were placed with the rest of their round.
	OriginRound Origin = "round"
	// OriginMakeup games were deferred out of their round's slot and
	// rescheduled later.
	OriginMakeup Origin = "makeup"
	// OriginExtra games come from rounds that never won a slot of their
	// own and were squeezed in matchup by matchup.
	OriginExtra Origin = "extra"
)

// Game is one scheduled matchup. Home is the designated home side for
// standings; Host is the team whose league supplies the field, which is
// usually but not always the home team.
type Game struct {
	Code  string
	Home  string
	Away  string
	Host  string
	Date  time.Time
	Start config.ClockTime
	End   config.ClockTime
	Field string

	Week   int
	Block  config.Block
	Round  int
	Kind   pairing.Kind
	Origin Origin
}

// Involves reports whether the team plays in this game.
func (g *Game) Involves(team string) bool {
	return g.Home == team || g.Away == team
}

// Opponent returns the other side of the game, or "" if the team does not
// play in it.
func (g *Game) Opponent(team string) string {
	switch team {
	case g.Home:
		return g.Away
	case g.Away:
		return g.Home
	}
	return ""
}

// Unscheduled is a required matchup the engine could not place anywhere.
// It is reported, never fatal.
type Unscheduled struct {
	Matchup pairing.Matchup
	Round   int
	Kind    pairing.Kind
	Week    int
	Reason  string
}

// Result is the full outcome of one generation run.
type Result struct {
	RunID       string
	Seed        int64
	Games       []Game
	Unscheduled []Unscheduled
	Trimmed     []Game
	Byes        map[string]int
}

// Options tunes a generation run. A zero TrimPolicy means TrimLatestDate
// and a nil Logger disables engine logging.
type Options struct {
	Seed       int64
	TrimPolicy TrimPolicy
	Logger     *zap.Logger
}

// Generate builds the season schedule. The run is fully determined by the
// config and seed: pairing, slot assignment and every balancing tie-break
// draw from generators derived from opts.Seed. Coverage shortfalls surface
// in Result.Unscheduled; an error means the configuration cannot be
// scheduled at all.
func Generate(cfg *config.Config, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	policy := opts.TrimPolicy
	if policy == "" {
		policy = TrimLatestDate
	}
	runID := uuid.NewString()
	log.Info("generating schedule",
		zap.String("run_id", runID),
		zap.Int64("seed", opts.Seed),
		zap.String("season", cfg.Season.Name))

	north, err := pairing.RoundRobin(cfg.PoolTeams(config.PoolNorth), rand.New(rand.NewSource(opts.Seed)))
	if err != nil {
		return nil, fmt.Errorf("pairing north pool: %w", err)
	}
	south, err := pairing.RoundRobin(cfg.PoolTeams(config.PoolSouth), rand.New(rand.NewSource(opts.Seed+1)))
	if err != nil {
		return nil, fmt.Errorf("pairing south pool: %w", err)
	}
	cross, err := crossoverRounds(cfg, opts.Seed+2)
	if err != nil {
		return nil, err
	}
	log.Debug("rounds generated",
		zap.Int("north", len(north)),
		zap.Int("south", len(south)),
		zap.Int("crossover", len(cross)))

	slots, err := BuildCalendar(cfg)
	if err != nil {
		return nil, fmt.Errorf("building calendar: %w", err)
	}
	log.Debug("calendar built", zap.Int("slots", len(slots)))

	asn := assignRounds(cfg, slots, north, south, cross, log)

	games, unplaceable := balanceGames(cfg, asn.Plans, rand.New(rand.NewSource(opts.Seed+3)), log)
	unscheduled := append(asn.Unscheduled, unplaceable...)

	kept, trimmed := trimExcess(cfg, games, policy)
	if len(trimmed) > 0 {
		log.Info("trimmed games for balance",
			zap.Int("removed", len(trimmed)),
			zap.String("policy", string(policy)))
	}

	sortGames(kept)
	prefix := cfg.Season.GameCodePrefix
	for i := range kept {
		kept[i].Code = prefix + strconv.Itoa(i+1)
	}

	log.Info("schedule complete",
		zap.String("run_id", runID),
		zap.Int("games", len(kept)),
		zap.Int("unscheduled", len(unscheduled)),
		zap.Int("trimmed", len(trimmed)))
	return &Result{
		RunID:       runID,
		Seed:        opts.Seed,
		Games:       kept,
		Unscheduled: unscheduled,
		Trimmed:     trimmed,
		Byes:        asn.Byes,
	}, nil
}

// crossoverRounds pairs the pools against each other, leaving weekday-only
// teams out: crossover games land on weekends they cannot attend.
func crossoverRounds(cfg *config.Config, seed int64) ([]pairing.Round, error) {
	north := weekendEligible(cfg, cfg.PoolTeams(config.PoolNorth))
	south := weekendEligible(cfg, cfg.PoolTeams(config.PoolSouth))
	rounds, err := pairing.Crossover(north, south, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, fmt.Errorf("pairing crossover rounds: %w", err)
	}
	return rounds, nil
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

// sortGames orders games chronologically, then by start time and home team
// so equal-seed runs emit byte-identical schedules.
func sortGames(games []Game) {
	sort.SliceStable(games, func(i, j int) bool {
		if !games[i].Date.Equal(games[j].Date) {
			return games[i].Date.Before(games[j].Date)
		}
		if games[i].Start.MinuteOfDay() != games[j].Start.MinuteOfDay() {
			return games[i].Start.MinuteOfDay() < games[j].Start.MinuteOfDay()
		}
		return games[i].Home < games[j].Home
	})
}
