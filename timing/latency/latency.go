// Package latency provides the timing constants of the memory hierarchy and
// the composite DRAM delays derived from them.
//
// The values default to the reference lab configuration and can be
// overridden with a Config file.
package latency

// Table provides latency lookups.
type Table struct {
	config *Config
}

// NewTable creates a new latency table with the default values.
func NewTable() *Table {
	return &Table{
		config: DefaultConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom values.
func NewTableWithConfig(config *Config) *Table {
	return &Table{
		config: config,
	}
}

// Config returns the underlying configuration.
func (t *Table) Config() *Config {
	return t.config
}

// DCacheHit returns the L1 data cache hit time.
func (t *Table) DCacheHit() uint64 {
	return t.config.DCacheHitLatency
}

// ICacheHit returns the L1 instruction cache hit time.
func (t *Table) ICacheHit() uint64 {
	return t.config.ICacheHitLatency
}

// L2Hit returns the L2 hit time.
func (t *Table) L2Hit() uint64 {
	return t.config.L2HitLatency
}

// Fixed returns the flat DRAM latency.
func (t *Table) Fixed() uint64 {
	return t.config.DRAMFixedLatency
}

// RowHit is the delay of an access to the open row: CAS + BUS.
func (t *Table) RowHit() uint64 {
	return t.config.DRAMCasLatency + t.config.DRAMBusLatency
}

// RowEmpty is the delay of an access to a bank with no open row:
// ACT + CAS + BUS.
func (t *Table) RowEmpty() uint64 {
	return t.config.DRAMActLatency + t.RowHit()
}

// RowConflict is the delay of an access to a bank with a different row open:
// PRE + ACT + CAS + BUS.
func (t *Table) RowConflict() uint64 {
	return t.config.DRAMPreLatency + t.RowEmpty()
}

// ClosedPage is the delay of every access under the close-page policy.
// The bank is always precharged after the previous access, so only
// ACT + CAS + BUS remain on the critical path.
func (t *Table) ClosedPage() uint64 {
	return t.RowEmpty()
}
