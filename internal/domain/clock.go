package domain

import "github.com/jonboulle/clockwork"

// clock is the package time source used to stamp decisions. Tests freeze it
// via SetClock so decision timestamps and audit records are reproducible.
var clock clockwork.Clock = clockwork.NewRealClock()

// SetClock swaps the package time source. Pass nil to restore real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
