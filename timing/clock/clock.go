// Package clock provides the cycle counter shared by the components of one
// simulation.
//
// A Clock is created once per simulation and handed to every component that
// needs timestamps. The driver advances it between accesses; components only
// read it. Separate simulations use separate clocks and never interfere.
package clock

// Clock counts simulated cycles.
type Clock struct {
	cycle uint64
}

// New creates a clock starting at cycle 0.
func New() *Clock {
	return &Clock{}
}

// Now returns the current cycle.
func (c *Clock) Now() uint64 {
	return c.cycle
}

// Advance moves the clock forward by n cycles.
func (c *Clock) Advance(n uint64) {
	c.cycle += n
}

// Set moves the clock to the given cycle. It never moves the clock backwards.
func (c *Clock) Set(cycle uint64) {
	if cycle > c.cycle {
		c.cycle = cycle
	}
}

// Reset puts the clock back to cycle 0.
func (c *Clock) Reset() {
	c.cycle = 0
}
