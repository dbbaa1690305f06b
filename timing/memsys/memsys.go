// Package memsys composes caches, DRAM and address translation into a
// memory hierarchy and resolves one memory reference at a time.
//
// The hierarchy shape depends on the Mode. Every reference is resolved
// completely, writebacks included, before Access returns its delay.
package memsys

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/sarchlab/memsim/timing/cache"
	"github.com/sarchlab/memsim/timing/clock"
	"github.com/sarchlab/memsim/timing/dram"
	"github.com/sarchlab/memsim/timing/latency"
	"github.com/sarchlab/memsim/timing/vm"
)

// AccessType is the kind of a memory reference.
type AccessType int

const (
	// IFetch is an instruction fetch.
	IFetch AccessType = iota
	// Load is a data read.
	Load
	// Store is a data write.
	Store
)

// String returns the trace letter of the access type.
func (t AccessType) String() string {
	switch t {
	case IFetch:
		return "I"
	case Load:
		return "L"
	case Store:
		return "S"
	default:
		return fmt.Sprintf("AccessType(%d)", int(t))
	}
}

// Option configures a MemorySystem.
type Option func(*MemorySystem)

// WithLogger sets the logger passed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(m *MemorySystem) {
		m.logger = logger
	}
}

// WithClock shares an existing clock with the memory system.
func WithClock(clk *clock.Clock) Option {
	return func(m *MemorySystem) {
		m.clock = clk
	}
}

// NamedCache pairs a cache with its report label.
type NamedCache struct {
	Name  string
	Cache *cache.Cache
}

// MemorySystem is the cache hierarchy of one simulation run.
type MemorySystem struct {
	config *Config
	table  *latency.Table

	clock  *clock.Clock
	logger *slog.Logger

	// L1s, indexed by core id in multi-core modes and of length 1 otherwise.
	icaches []*cache.Cache
	dcaches []*cache.Cache

	l2         *cache.Cache
	dram       *dram.DRAM
	translator *vm.Translator

	linesPerPage uint64

	stats Statistics
}

// New builds a memory system. The configuration is normalized on a copy and
// validated before any component is created.
func New(config *Config, opts ...Option) (*MemorySystem, error) {
	config = config.Clone()
	config.Normalize()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	m := &MemorySystem{
		config:       config,
		table:        latency.NewTableWithConfig(config.Latency),
		linesPerPage: config.Latency.PageSize / uint64(config.LineSize),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.clock == nil {
		m.clock = clock.New()
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}

	if err := m.build(); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *MemorySystem) build() error {
	cacheOpts := []cache.Option{
		cache.WithClock(m.clock),
		cache.WithLogger(m.logger),
	}

	l1Count := 1
	if m.config.Mode.MultiCore() {
		l1Count = m.config.NumCores
	}

	for i := 0; i < l1Count; i++ {
		dc, err := cache.New(m.config.DCacheConfig(), cacheOpts...)
		if err != nil {
			return fmt.Errorf("dcache %d: %w", i, err)
		}
		m.dcaches = append(m.dcaches, dc)
	}

	if !m.config.Mode.HasHierarchy() {
		return nil
	}

	for i := 0; i < l1Count; i++ {
		ic, err := cache.New(m.config.ICacheConfig(), cacheOpts...)
		if err != nil {
			return fmt.Errorf("icache %d: %w", i, err)
		}
		m.icaches = append(m.icaches, ic)
	}

	l2, err := cache.New(m.config.L2Config(), cacheOpts...)
	if err != nil {
		return fmt.Errorf("l2 cache: %w", err)
	}
	m.l2 = l2

	d, err := dram.New(m.config.DRAMConfig(), dram.WithLogger(m.logger))
	if err != nil {
		return fmt.Errorf("dram: %w", err)
	}
	m.dram = d

	if m.config.Mode.MultiCore() {
		t, err := vm.NewTranslator(m.config.NumCores)
		if err != nil {
			return fmt.Errorf("translator: %w", err)
		}
		m.translator = t
	}

	return nil
}

// Config returns the normalized configuration.
func (m *MemorySystem) Config() *Config {
	return m.config
}

// Clock returns the clock that timestamps cache accesses. The caller
// advances it between references.
func (m *MemorySystem) Clock() *clock.Clock {
	return m.clock
}

// Stats returns the per-type access statistics.
func (m *MemorySystem) Stats() Statistics {
	return m.stats
}

// DCache returns the L1 data cache of a core.
func (m *MemorySystem) DCache(coreID int) *cache.Cache {
	return m.dcaches[m.l1Index(coreID)]
}

// ICache returns the L1 instruction cache of a core, or nil in mode A.
func (m *MemorySystem) ICache(coreID int) *cache.Cache {
	if m.icaches == nil {
		return nil
	}
	return m.icaches[m.l1Index(coreID)]
}

// L2 returns the shared L2, or nil in mode A.
func (m *MemorySystem) L2() *cache.Cache {
	return m.l2
}

// DRAM returns the DRAM, or nil in mode A.
func (m *MemorySystem) DRAM() *dram.DRAM {
	return m.dram
}

// Caches returns the caches of the active mode in report order.
func (m *MemorySystem) Caches() []NamedCache {
	switch {
	case !m.config.Mode.HasHierarchy():
		return []NamedCache{{"DCACHE", m.dcaches[0]}}
	case !m.config.Mode.MultiCore():
		return []NamedCache{
			{"ICACHE", m.icaches[0]},
			{"DCACHE", m.dcaches[0]},
			{"L2CACHE", m.l2},
		}
	}

	caches := make([]NamedCache, 0, 2*len(m.dcaches)+1)
	for i := range m.dcaches {
		caches = append(caches,
			NamedCache{fmt.Sprintf("ICACHE_%d", i), m.icaches[i]},
			NamedCache{fmt.Sprintf("DCACHE_%d", i), m.dcaches[i]},
		)
	}
	return append(caches, NamedCache{"L2CACHE", m.l2})
}

func (m *MemorySystem) l1Index(coreID int) int {
	if coreID < 0 || coreID >= m.config.NumCores {
		panic(fmt.Sprintf("memsys: core id %d out of range [0, %d)", coreID, m.config.NumCores))
	}
	if m.config.Mode.MultiCore() {
		return coreID
	}
	return 0
}

// Access resolves one reference to a byte address and returns its delay in
// cycles. It panics if coreID is not a core of this system.
func (m *MemorySystem) Access(addr uint64, typ AccessType, coreID int) uint64 {
	l1 := m.l1Index(coreID)
	line := addr / uint64(m.config.LineSize)

	var delay uint64
	switch {
	case !m.config.Mode.HasHierarchy():
		m.accessFunctional(line, typ, coreID)
	case m.config.Mode.MultiCore():
		pLine := m.translator.TranslateLine(line, coreID, m.linesPerPage)
		delay = m.accessL1(pLine, typ, coreID, l1)
	default:
		delay = m.accessL1(line, typ, coreID, l1)
	}

	m.stats.record(typ, delay)

	m.logger.Debug("memsys access",
		"addr", addr, "type", typ.String(), "core", coreID, "delay", delay)

	return delay
}

// accessFunctional runs a data reference through the data cache without
// timing. Instruction fetches have no cache to visit.
func (m *MemorySystem) accessFunctional(line uint64, typ AccessType, coreID int) {
	if typ == IFetch {
		return
	}

	dc := m.dcaches[0]
	isWrite := typ == Store
	if dc.Access(line, isWrite, coreID) == cache.Miss {
		dc.Install(line, isWrite, coreID)
	}
}

func (m *MemorySystem) accessL1(line uint64, typ AccessType, coreID, l1 int) uint64 {
	if typ == IFetch {
		ic := m.icaches[l1]
		delay := m.table.ICacheHit()
		if ic.Access(line, false, coreID) == cache.Miss {
			delay += m.l2Access(line, false, coreID)
			ic.Install(line, false, coreID)
		}
		return delay
	}

	dc := m.dcaches[l1]
	isWrite := typ == Store
	delay := m.table.DCacheHit()
	if dc.Access(line, isWrite, coreID) == cache.Hit {
		return delay
	}

	delay += m.l2Access(line, false, coreID)

	installed := dc.Install(line, isWrite, coreID)
	if installed.NeedsWriteback() {
		victim := cache.Reassemble(installed.Evicted.Tag, installed.SetIndex, dc.IndexBits())
		m.logger.Debug("l1 writeback", "line", victim, "core", coreID)
		m.l2Access(victim, true, coreID)
	}

	return delay
}

// l2Access resolves a line in the shared L2. A miss is filled from DRAM. A
// dirty L2 victim is written to DRAM off the critical path, so only the fill
// is charged.
func (m *MemorySystem) l2Access(line uint64, isWriteback bool, coreID int) uint64 {
	delay := m.table.L2Hit()

	if m.l2.Access(line, isWriteback, coreID) == cache.Hit {
		return delay
	}

	delay += m.dram.Access(line, false)

	installed := m.l2.Install(line, isWriteback, coreID)
	if installed.NeedsWriteback() {
		victim := cache.Reassemble(installed.Evicted.Tag, installed.SetIndex, m.l2.IndexBits())
		m.logger.Debug("l2 writeback", "line", victim, "core", coreID)
		m.dram.Access(victim, true)
	}

	return delay
}

// ResetStats clears the statistics of the memory system and of every
// component while keeping cache and row buffer contents.
func (m *MemorySystem) ResetStats() {
	m.stats = Statistics{}
	for _, c := range m.Caches() {
		c.Cache.ResetStats()
	}
	if m.dram != nil {
		m.dram.ResetStats()
	}
}

// PrintStats writes the memory system block followed by the block of each
// cache and of the DRAM of the active mode.
func (m *MemorySystem) PrintStats(w io.Writer) {
	m.stats.Print(w)

	for _, c := range m.Caches() {
		c.Cache.PrintStats(w, c.Name)
	}

	if m.dram != nil {
		m.dram.PrintStats(w)
	}
}
