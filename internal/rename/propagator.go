package rename

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tickerplot/nsepulse/internal/domain/models"
	"github.com/tickerplot/nsepulse/internal/logger"
)

// ErrNoEvents is returned when propagation was requested but the rename feed
// yielded nothing. Callers need to tell "nothing to propagate" apart from
// "propagation failed".
var ErrNoEvents = errors.New("rename: no events to propagate")

// SymbolRenamer is the slice of the historical store the propagator needs.
type SymbolRenamer interface {
	RenameSymbol(oldSymbol, newSymbol string, before time.Time) error
}

// Chain is one resolved rename sequence s0 → s1 → … → sN. Hops are ordered;
// the last hop's NewSymbol is the canonical identity.
type Chain []models.RenameEvent

// Final returns the canonical (most current) symbol of the chain.
func (c Chain) Final() string { return c[len(c)-1].NewSymbol }

// CollapseChains links rename events into maximal chains: if (A,B) exists and
// a later (B,C) exists, A's chain continues through C. Chains are returned
// head-first in hop order (which is effective-date order for a consistent
// feed); the result is sorted by head symbol so collapsing is deterministic.
func CollapseChains(events []models.RenameEvent) ([]Chain, error) {
	if len(events) == 0 {
		return nil, ErrNoEvents
	}

	next := make(map[string]models.RenameEvent, len(events))
	for _, e := range events {
		if prev, dup := next[e.OldSymbol]; dup {
			// The feed occasionally republishes a hop; keep the later one.
			logger.L().Warn().
				Str("old", e.OldSymbol).
				Str("kept", e.NewSymbol).
				Str("dropped", prev.NewSymbol).
				Msg("duplicate rename source symbol")
			if e.EffectiveDate.Before(prev.EffectiveDate) {
				continue
			}
		}
		next[e.OldSymbol] = e
	}

	// Targets are derived after deduplication: a symbol pointed at only by a
	// dropped hop is a regular chain head, not an interior node.
	isTarget := make(map[string]bool, len(next))
	for _, e := range next {
		isTarget[e.NewSymbol] = true
	}

	var heads []string
	for old := range next {
		if !isTarget[old] {
			heads = append(heads, old)
		}
	}
	sort.Strings(heads)

	chains := make([]Chain, 0, len(heads))
	for _, head := range heads {
		var chain Chain
		seen := map[string]bool{head: true}
		for cur := head; ; {
			e, ok := next[cur]
			if !ok {
				break
			}
			chain = append(chain, e)
			cur = e.NewSymbol
			if seen[cur] {
				return nil, fmt.Errorf("rename: cycle detected at %q", cur)
			}
			seen[cur] = true
		}
		chains = append(chains, chain)
	}

	// Events forming pure cycles have no head and would vanish silently.
	total := 0
	for _, c := range chains {
		total += len(c)
	}
	if total != len(next) {
		return nil, fmt.Errorf("rename: %d event(s) unreachable from any chain head", len(next)-total)
	}

	return chains, nil
}

// Propagator rewrites historical symbol identity from a per-run event list.
type Propagator struct {
	store SymbolRenamer
}

func NewPropagator(store SymbolRenamer) *Propagator {
	return &Propagator{store: store}
}

// Apply collapses events into chains and applies every hop in order, so that
// intermediate names are never left stranded: by the time (B,C) runs, A's
// history already sits under B and moves on to C. Records dated on or after
// a hop's effective date keep their then-current name.
//
// Returns the number of hops applied; ErrNoEvents when events is empty.
func (p *Propagator) Apply(events []models.RenameEvent) (int, error) {
	chains, err := CollapseChains(events)
	if err != nil {
		return 0, err
	}

	hops := 0
	for _, chain := range chains {
		for _, hop := range chain {
			if err := p.store.RenameSymbol(hop.OldSymbol, hop.NewSymbol, hop.EffectiveDate); err != nil {
				return hops, fmt.Errorf("rename %s -> %s: %w", hop.OldSymbol, hop.NewSymbol, err)
			}
			hops++
			logger.L().Info().
				Str("old", hop.OldSymbol).
				Str("new", hop.NewSymbol).
				Str("before", hop.EffectiveDate.Format("2006-01-02")).
				Msg("symbol renamed")
		}
	}
	return hops, nil
}
