package domain

import "github.com/jonboulle/clockwork"

// clock is the package time source, used to stamp sensor readings and
// dissemination payloads. Tests freeze it via SetClock for deterministic
// timestamps.
var clock = clockwork.NewRealClock()

// SetClock swaps the package time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Clock returns the package time source for callers outside the package
// that need timestamps consistent with domain stamping.
func Clock() clockwork.Clock {
	return clock
}
