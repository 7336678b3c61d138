// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package unresponsive tracks, per elder, how many of the most recent
// votes it failed to co-sign, flagging it once it falls behind enough
// that the section should vote it offline.
package unresponsive

import (
	"github.com/luxfi/corenet/name"
)

// Window is the number of most recent votes considered.
const Window = 64

// Threshold is the number of missed votes within Window that marks an
// elder unresponsive.
const Threshold = 48

// Tracker keeps a sliding window of vote participation per elder.
type Tracker struct {
	window  map[name.Name][]bool // true = participated
	missing map[name.Name]int
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		window:  make(map[name.Name][]bool),
		missing: make(map[name.Name]int),
	}
}

// Record notes whether elder participated in the most recent vote.
func (t *Tracker) Record(elder name.Name, participated bool) {
	w := t.window[elder]
	w = append(w, participated)
	if len(w) > Window {
		dropped := w[0]
		w = w[1:]
		if !dropped {
			t.missing[elder]--
		}
	}
	t.window[elder] = w
	if !participated {
		t.missing[elder]++
	}
}

// IsUnresponsive reports whether elder has missed at least Threshold
// of its last Window votes.
func (t *Tracker) IsUnresponsive(elder name.Name) bool {
	return t.missing[elder] >= Threshold
}

// Reset clears elder's tracked history — used once it is voted
// offline and later rejoins under a fresh identity.
func (t *Tracker) Reset(elder name.Name) {
	delete(t.window, elder)
	delete(t.missing, elder)
}

// Forget drops tracking for elder without any particular reason
// (section split moved it to a different prefix, etc).
func (t *Tracker) Forget(elder name.Name) {
	t.Reset(elder)
}
