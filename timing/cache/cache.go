// Package cache provides a set-associative cache model with pluggable
// replacement and way-partitioning policies.
//
// Residency (tag, valid, dirty) is tracked by an Akita cache directory
// addressed in line units. The owning core and the access timestamp of each
// way are kept alongside it and drive victim selection.
package cache

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/memsim/timing/clock"
)

// ErrInvalidConfig is wrapped by every configuration error of this package.
var ErrInvalidConfig = errors.New("invalid cache configuration")

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int `json:"size" yaml:"size"`
	// Associativity (number of ways)
	Associativity int `json:"associativity" yaml:"associativity"`
	// LineSize in bytes
	LineSize int `json:"line_size" yaml:"line_size"`
	// Policy is the replacement policy.
	Policy Policy `json:"policy" yaml:"policy"`
	// Core0Ways is the number of ways per set reserved for core 0 by the
	// partitioning policies. Core 1 gets the rest.
	Core0Ways int `json:"core0_ways" yaml:"core0_ways"`
	// Seed feeds the random replacement policy.
	Seed uint64 `json:"seed" yaml:"seed"`
}

// DefaultL1DConfig returns the default L1 data cache configuration:
// 32KB, 8-way, 64B lines, LRU.
func DefaultL1DConfig() Config {
	return Config{
		Size:          32 * 1024,
		Associativity: 8,
		LineSize:      64,
		Policy:        LRU,
		Seed:          1,
	}
}

// DefaultL1IConfig returns the default L1 instruction cache configuration.
func DefaultL1IConfig() Config {
	return DefaultL1DConfig()
}

// DefaultL2Config returns the default shared L2 configuration:
// 1MB, 16-way, 64B lines, LRU, 4 ways reserved for core 0 when partitioned.
func DefaultL2Config() Config {
	return Config{
		Size:          1024 * 1024,
		Associativity: 16,
		LineSize:      64,
		Policy:        LRU,
		Core0Ways:     4,
		Seed:          1,
	}
}

// NumSets returns the number of sets implied by the configuration.
func (c Config) NumSets() int {
	if c.LineSize <= 0 || c.Associativity <= 0 {
		return 0
	}
	return c.Size / (c.LineSize * c.Associativity)
}

// Validate checks that the configuration describes a buildable cache.
func (c Config) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("%w: size must be > 0", ErrInvalidConfig)
	}
	if c.LineSize <= 0 {
		return fmt.Errorf("%w: line size must be > 0", ErrInvalidConfig)
	}
	if c.Associativity <= 0 {
		return fmt.Errorf("%w: associativity must be > 0", ErrInvalidConfig)
	}
	if c.Size%(c.LineSize*c.Associativity) != 0 {
		return fmt.Errorf("%w: size %d is not a multiple of line size %d x associativity %d",
			ErrInvalidConfig, c.Size, c.LineSize, c.Associativity)
	}
	if _, ok := IndexBits(c.NumSets()); !ok {
		return fmt.Errorf("%w: set count %d is not a power of two", ErrInvalidConfig, c.NumSets())
	}
	if !c.Policy.Valid() {
		return fmt.Errorf("%w: unknown replacement policy %d", ErrInvalidConfig, int(c.Policy))
	}
	if c.Policy.IsPartition() && (c.Core0Ways < 0 || c.Core0Ways > c.Associativity) {
		return fmt.Errorf("%w: core 0 quota %d outside [0, %d]",
			ErrInvalidConfig, c.Core0Ways, c.Associativity)
	}
	return nil
}

// Result is the outcome of a cache access.
type Result int

const (
	// Miss means the line was not resident.
	Miss Result = iota
	// Hit means the line was resident.
	Hit
)

// String returns "HIT" or "MISS".
func (r Result) String() string {
	if r == Hit {
		return "HIT"
	}
	return "MISS"
}

// Line is a snapshot of one way of a set.
type Line struct {
	Valid      bool
	Dirty      bool
	Tag        uint64
	CoreID     int
	LastAccess uint64
}

// InstallResult describes what an install replaced.
type InstallResult struct {
	// Way is the way that now holds the installed line.
	Way int
	// SetIndex is the set the line was installed into.
	SetIndex uint64
	// Evicted is the content of the way before the install.
	Evicted Line
	// HasEvicted is true if the way held a valid line.
	HasEvicted bool
}

// NeedsWriteback reports whether the replaced line was valid and dirty.
func (r InstallResult) NeedsWriteback() bool {
	return r.HasEvicted && r.Evicted.Dirty
}

type lineMeta struct {
	coreID     int
	lastAccess uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock makes the cache read timestamps from the given clock.
func WithClock(clk *clock.Clock) Option {
	return func(c *Cache) {
		c.clock = clk
	}
}

// WithLogger sets the logger used for debug records.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithSelector replaces the victim selector derived from the policy.
func WithSelector(selector VictimSelector) Option {
	return func(c *Cache) {
		c.selector = selector
	}
}

// Cache is a set-associative cache.
type Cache struct {
	config    Config
	numSets   int
	indexBits uint

	// Akita directory for tag/state management, addressed in line units.
	// Its victim finder is never consulted; recency lives in meta.
	directory *akitacache.DirectoryImpl

	// Owner and recency - indexed by (setID * associativity + wayID)
	meta []lineMeta

	selector VictimSelector
	quota    QuotaTracker

	clock  *clock.Clock
	logger *slog.Logger

	stats       Statistics
	lastEvicted Line
	scratch     []Line
}

// New creates a cache. It fails if the configuration is invalid.
func New(config Config, opts ...Option) (*Cache, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	numSets := config.NumSets()
	indexBits, _ := IndexBits(numSets)

	c := &Cache{
		config:    config,
		numSets:   numSets,
		indexBits: indexBits,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			1,
			akitacache.NewLRUVictimFinder(),
		),
		meta:    make([]lineMeta, numSets*config.Associativity),
		quota:   NewQuotaTracker(config.Policy, config.Associativity, config.Core0Ways),
		scratch: make([]Line, config.Associativity),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.clock == nil {
		c.clock = clock.New()
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.selector == nil {
		selector, err := NewSelector(config.Policy, config.Seed)
		if err != nil {
			return nil, err
		}
		c.selector = selector
	}

	return c, nil
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Sets returns the number of sets.
func (c *Cache) Sets() int {
	return c.numSets
}

// Ways returns the associativity.
func (c *Cache) Ways() int {
	return c.config.Associativity
}

// IndexBits returns the width of the set index field.
func (c *Cache) IndexBits() uint {
	return c.indexBits
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

// LastEvicted returns the line replaced by the most recent install.
func (c *Cache) LastEvicted() Line {
	return c.lastEvicted
}

// Access looks up a line. A hit marks the line dirty on writes and refreshes
// its timestamp. A miss only updates statistics; the caller installs the
// line separately.
func (c *Cache) Access(lineAddr uint64, isWrite bool, coreID int) Result {
	if isWrite {
		c.stats.WriteAccess++
	} else {
		c.stats.ReadAccess++
	}

	block := c.directory.Lookup(0, lineAddr)
	if block != nil {
		if isWrite {
			block.IsDirty = true
		}
		c.meta[c.blockIndex(block)].lastAccess = c.clock.Now()
		return Hit
	}

	if isWrite {
		c.stats.WriteMiss++
	} else {
		c.stats.ReadMiss++
	}
	return Miss
}

// Probe reports whether a line is resident without touching any state.
func (c *Cache) Probe(lineAddr uint64) bool {
	return c.directory.Lookup(0, lineAddr) != nil
}

// Install places a line into its set, evicting the way chosen by the policy.
// The replaced content is returned so the caller can write it back.
//
// Installing a line that is already resident refreshes it in place and
// evicts nothing.
func (c *Cache) Install(lineAddr uint64, isWrite bool, coreID int) InstallResult {
	setIndex := ExtractIndex(lineAddr, c.indexBits)
	now := c.clock.Now()

	if block := c.directory.Lookup(0, lineAddr); block != nil {
		block.IsDirty = block.IsDirty || isWrite
		c.meta[c.blockIndex(block)] = lineMeta{coreID: coreID, lastAccess: now}
		return InstallResult{Way: block.WayID, SetIndex: setIndex}
	}

	way := c.findVictim(setIndex, coreID)
	block := c.directory.GetSets()[setIndex].Blocks[way]
	victim := c.lineOf(block)

	if victim.Valid && victim.Dirty {
		c.stats.DirtyEvicts++
	}
	c.lastEvicted = victim

	c.logger.Debug("cache install",
		"line", lineAddr, "set", setIndex, "way", way, "core", coreID,
		"evicted_valid", victim.Valid, "evicted_dirty", victim.Dirty)

	block.Tag = lineAddr
	block.IsValid = true
	block.IsDirty = isWrite
	c.meta[c.blockIndex(block)] = lineMeta{coreID: coreID, lastAccess: now}

	return InstallResult{
		Way:        way,
		SetIndex:   setIndex,
		Evicted:    victim,
		HasEvicted: victim.Valid,
	}
}

// findVictim returns the way to fill in the given set. Free ways are used
// first; otherwise the selector decides.
func (c *Cache) findVictim(setIndex uint64, coreID int) int {
	quota := c.quota.Next(c.stats, coreID)

	ways := c.snapshot(setIndex, c.scratch)
	for way, line := range ways {
		if !line.Valid {
			return way
		}
	}

	return c.selector.SelectVictim(ways, coreID, quota)
}

// Lines returns a copy of the ways of a set.
func (c *Cache) Lines(setIndex uint64) []Line {
	return c.snapshot(setIndex, make([]Line, c.config.Associativity))
}

func (c *Cache) snapshot(setIndex uint64, out []Line) []Line {
	set := c.directory.GetSets()[setIndex]
	for _, block := range set.Blocks {
		out[block.WayID] = c.lineOf(block)
	}
	return out
}

func (c *Cache) lineOf(block *akitacache.Block) Line {
	if !block.IsValid {
		return Line{}
	}
	meta := c.meta[c.blockIndex(block)]
	return Line{
		Valid:      true,
		Dirty:      block.IsDirty,
		Tag:        ExtractTag(block.Tag, c.indexBits),
		CoreID:     meta.coreID,
		LastAccess: meta.lastAccess,
	}
}

// blockIndex computes the index into meta for a block.
func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

// Reset invalidates all lines and clears statistics and policy state.
func (c *Cache) Reset() {
	c.directory.Reset()
	for i := range c.meta {
		c.meta[i] = lineMeta{}
	}
	c.quota = NewQuotaTracker(c.config.Policy, c.config.Associativity, c.config.Core0Ways)
	c.stats = Statistics{}
	c.lastEvicted = Line{}
}

// PrintStats writes the statistics block of this cache.
func (c *Cache) PrintStats(w io.Writer, label string) {
	c.stats.Print(w, label)
}
