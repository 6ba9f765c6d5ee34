package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts wall time so price resolution can be tested at fixed dates.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// NewSystemClock returns the production clock.
func NewSystemClock() Clock { return systemClock{} }

// FakeClock is a manually driven Clock for tests. It only moves when told to.
type FakeClock struct {
	current time.Time
}

func NewFakeClock(at time.Time) *FakeClock {
	return &FakeClock{current: at.UTC()}
}

func (f *FakeClock) Now() time.Time { return f.current }

// Set jumps the clock to an absolute instant.
func (f *FakeClock) Set(at time.Time) { f.current = at.UTC() }

// Advance moves the clock forward (or backward, with a negative duration).
func (f *FakeClock) Advance(d time.Duration) { f.current = f.current.Add(d) }

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
