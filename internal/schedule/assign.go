package schedule

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/jonogibbs/d52sg/internal/config"
	"github.com/jonogibbs/d52sg/internal/pairing"
)

// placement is a matchup pinned to a calendar slot, not yet balanced.
type placement struct {
	Matchup pairing.Matchup
	Round   int
	Kind    pairing.Kind
	Origin  Origin
}

// slotPlan accumulates the matchups placed into one calendar slot.
type slotPlan struct {
	Slot       *Slot
	Placements []placement

	playing map[string]bool
}

// fits reports whether both teams can take the slot: available on at least
// one of its dates and not already playing in it.
func (p *slotPlan) fits(m pairing.Matchup) bool {
	return p.Slot.Available[m.A] && p.Slot.Available[m.B] &&
		!p.playing[m.A] && !p.playing[m.B]
}

func (p *slotPlan) place(m pairing.Matchup, round int, kind pairing.Kind, origin Origin) {
	p.Placements = append(p.Placements, placement{
		Matchup: m,
		Round:   round,
		Kind:    kind,
		Origin:  origin,
	})
	p.playing[m.A] = true
	p.playing[m.B] = true
}

// assignment is the output of the round assignor: per-slot placements in
// calendar order plus everything that could not be placed.
type assignment struct {
	Plans       []slotPlan
	Unscheduled []Unscheduled
	Byes        map[string]int
}

// assignRounds pins rounds to calendar slots. Slots are visited most
// constrained first (fewest available teams, ties earliest); each weekday
// slot takes the best-fitting pending round from each pool and each
// weekend slot takes one crossover round. A round is consumed only if at
// least one of its matchups fits. Matchups the consuming slot cannot take
// are deferred and retried, FIFO, across every slot of the same block
// kind, followed by the matchups of rounds that never won a slot.
func assignRounds(cfg *config.Config, slots []Slot, north, south, cross []pairing.Round, log *zap.Logger) *assignment {
	a := &assignment{
		Plans: make([]slotPlan, len(slots)),
		Byes:  make(map[string]int),
	}
	for i := range slots {
		a.Plans[i] = slotPlan{Slot: &slots[i], playing: make(map[string]bool)}
	}
	for _, rounds := range [][]pairing.Round{north, south, cross} {
		for _, r := range rounds {
			for _, team := range r.Byes {
				a.Byes[team]++
			}
		}
	}

	var deferred []placement
	pendingNorth := clone(north)
	pendingSouth := clone(south)
	pendingCross := clone(cross)

	for _, pi := range a.visitOrder(config.BlockWeekday) {
		consumeBest(&a.Plans[pi], &pendingNorth, &deferred)
		consumeBest(&a.Plans[pi], &pendingSouth, &deferred)
	}
	for _, pi := range a.visitOrder(config.BlockWeekend) {
		consumeBest(&a.Plans[pi], &pendingCross, &deferred)
	}

	var leftovers []placement
	for _, rounds := range [][]pairing.Round{pendingNorth, pendingSouth, pendingCross} {
		for _, r := range rounds {
			for _, m := range r.Matchups {
				leftovers = append(leftovers, placement{
					Matchup: m,
					Round:   r.Number,
					Kind:    r.Kind,
					Origin:  OriginExtra,
				})
			}
		}
	}
	log.Debug("round assignment pass done",
		zap.Int("deferred", len(deferred)),
		zap.Int("leftover_matchups", len(leftovers)))

	a.retry(deferred)
	a.retry(leftovers)
	for _, u := range a.Unscheduled {
		log.Warn("matchup could not be scheduled",
			zap.String("matchup", u.Matchup.String()),
			zap.Int("round", u.Round),
			zap.String("kind", string(u.Kind)),
			zap.String("reason", u.Reason))
	}
	return a
}

// visitOrder returns the plan indexes of one block kind, fewest available
// teams first so the tightest slots get first pick of the rounds. Ties
// keep calendar order.
func (a *assignment) visitOrder(block config.Block) []int {
	var idx []int
	for i := range a.Plans {
		if a.Plans[i].Slot.Block == block {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(x, y int) bool {
		return len(a.Plans[idx[x]].Slot.Available) < len(a.Plans[idx[y]].Slot.Available)
	})
	return idx
}

// consumeBest pops the pending round with the most fittable matchups and
// places it into the plan, deferring the matchups that do not fit. Ties go
// to the lowest round number. If no round fits at all the slot is left
// alone and every round stays pending.
func consumeBest(plan *slotPlan, pending *[]pairing.Round, deferred *[]placement) {
	best, bestCount := -1, 0
	for i, r := range *pending {
		count := 0
		for _, m := range r.Matchups {
			if plan.fits(m) {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = i, count
		}
	}
	if best < 0 {
		return
	}
	round := (*pending)[best]
	*pending = append((*pending)[:best], (*pending)[best+1:]...)
	for _, m := range round.Matchups {
		if plan.fits(m) {
			plan.place(m, round.Number, round.Kind, OriginRound)
			continue
		}
		*deferred = append(*deferred, placement{
			Matchup: m,
			Round:   round.Number,
			Kind:    round.Kind,
			Origin:  OriginMakeup,
		})
	}
}

// retry walks pending placements in order, giving each the earliest slot
// of its block kind that can take it. Placements with no home anywhere
// become unscheduled.
func (a *assignment) retry(items []placement) {
	for _, p := range items {
		block := config.BlockWeekday
		if p.Kind == pairing.KindCrossover {
			block = config.BlockWeekend
		}
		placed := false
		for i := range a.Plans {
			plan := &a.Plans[i]
			if plan.Slot.Block != block {
				continue
			}
			if plan.fits(p.Matchup) {
				plan.place(p.Matchup, p.Round, p.Kind, p.Origin)
				placed = true
				break
			}
		}
		if !placed {
			a.Unscheduled = append(a.Unscheduled, Unscheduled{
				Matchup: p.Matchup,
				Round:   p.Round,
				Kind:    p.Kind,
				Reason:  fmt.Sprintf("no %s slot has both teams free", block),
			})
		}
	}
}

func clone(rounds []pairing.Round) []pairing.Round {
	out := make([]pairing.Round, len(rounds))
	copy(out, rounds)
	return out
}
