// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package prune coordinates a consensus engine's own growth limit: once
// a ParsecPrune event accumulates, any votes that engine instance never
// finished agreeing on are re-submitted to a freshly constructed engine
// so they aren't silently lost.
package prune

import (
	"github.com/luxfi/corenet/consensus"
)

// EngineFactory builds a fresh consensus engine instance, used after a
// prune to replace one that has grown too large to gossip cheaply.
type EngineFactory func() consensus.Engine

// Prune replaces old with a freshly built engine from factory, carrying
// forward every event in pending (votes old had accumulated locally
// but had not yet reported via Poll, or that the caller otherwise knows
// must survive the prune) by re-voting them on the new engine.
//
// old is not otherwise touched: callers are expected to stop routing
// gossip to it and drop it once Prune returns.
func Prune(factory EngineFactory, pending []consensus.AccumulatingEvent) (consensus.Engine, error) {
	fresh := factory()
	for _, ev := range pending {
		if err := fresh.VoteFor(ev); err != nil {
			return fresh, err
		}
	}
	return fresh, nil
}

// DrainUnpolled polls every currently-accumulated block out of old and
// returns their events, so a ParsecPrune handler can decide which of
// them still need to be applied (via accumulate.Apply) before old is
// discarded.
func DrainUnpolled(old consensus.Engine) []consensus.AccumulatingEvent {
	var out []consensus.AccumulatingEvent
	for old.HasUnpolledObservations() {
		block, ok := old.Poll()
		if !ok {
			break
		}
		out = append(out, block.Event)
	}
	return out
}
