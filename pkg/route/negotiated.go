package route

import (
	"fmt"
	"slices"
)

// presentGrowth multiplies the present-congestion factor after every round.
const presentGrowth = 1.5

// negotiate starts from a global pattern solution and repeatedly rips up and
// reroutes every net that crosses an overused node. Reroutes price each node
// by its accumulated history and its present overuse, so nets gradually
// negotiate who gets contested resources. The round with the lowest
// overflow, then the lowest wirelength, is kept.
func (rt *router) negotiate() {
	rt.global()
	rt.iterations = 1 // the pattern pass is round zero
	best := rt.snapshot()
	bestOver, bestLen := rt.overflow(), best.length()
	rt.present = 0.5

	for round := 1; round <= rt.opts.Rounds && bestOver > 0; round++ {
		if rt.cancelled() {
			break
		}
		rt.g.addHistory(rt.opts.HistoryIncrement)
		for _, n := range rt.order {
			if !rt.congested(n) {
				continue
			}
			if rt.cancelled() {
				break
			}
			rt.g.occupy(rt.routes[n].nodes, -1)
			rt.routes[n] = rt.routeNet(n, modeNegotiated)
			rt.g.occupy(rt.routes[n].nodes, 1)
		}
		rt.iterations++

		snap := rt.snapshot()
		over, length := rt.overflow(), snap.length()
		rt.convergence = append(rt.convergence, float64(over))
		rt.log.Debug("negotiation round", "round", round, "overflow", over, "present", rt.present)
		if over < bestOver || (over == bestOver && length < bestLen) {
			best, bestOver, bestLen = snap, over, length
		}
		rt.present *= presentGrowth
	}

	rt.restore(best)
	if bestOver > 0 && !rt.stopped {
		rt.diags = append(rt.diags, fmt.Sprintf("negotiation did not converge after %d rounds", rt.opts.Rounds))
	}
}

// congested reports whether net n's route crosses an overused node.
func (rt *router) congested(n int) bool {
	for _, v := range rt.routes[n].nodes {
		if rt.g.usage[rt.g.id(v)] > rt.g.Capacity {
			return true
		}
	}
	return rt.routes[n].failed > 0
}

type routing []netRoute

func (rt *router) snapshot() routing { return slices.Clone(rt.routes) }

// overflow is the congestion measure of the current routes: overused grid
// nodes plus connections that could not be routed. Every convergence entry
// and Result.Overflow use it.
func (rt *router) overflow() int {
	return rt.g.Overflow() + routing(rt.routes).failed()
}

func (s routing) failed() int {
	total := 0
	for _, nr := range s {
		total += nr.failed
	}
	return total
}

// length counts grid steps; it ranks rounds with equal overflow.
func (s routing) length() int {
	total := 0
	for _, nr := range s {
		for _, p := range nr.paths {
			total += len(p) - 1
		}
	}
	return total
}

// restore installs a snapshot and rebuilds grid usage from it.
func (rt *router) restore(s routing) {
	clear(rt.g.usage)
	rt.routes = s
	for _, nr := range s {
		rt.g.occupy(nr.nodes, 1)
	}
}
