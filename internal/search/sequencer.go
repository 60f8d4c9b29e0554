// Package search coordinates interactive, debounced ticket searches.
package search

import (
	"sync/atomic"
	"time"
)

// DefaultDebounce is the quiet period after the last keystroke before a search runs.
const DefaultDebounce = 300 * time.Millisecond

// Sequencer issues increasing tokens. Only the most recently issued token is current, so work
// started under an older token can recognise that it has been superseded.
type Sequencer struct {
	latest atomic.Uint64
}

// Next issues a new token, superseding every earlier one.
func (s *Sequencer) Next() uint64 {
	return s.latest.Add(1)
}

// IsLatest reports whether token is the most recently issued one.
func (s *Sequencer) IsLatest(token uint64) bool {
	return token != 0 && s.latest.Load() == token
}

