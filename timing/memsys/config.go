package memsys

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/memsim/timing/cache"
	"github.com/sarchlab/memsim/timing/dram"
	"github.com/sarchlab/memsim/timing/latency"
)

// ErrInvalidConfig is wrapped by every configuration error of this package.
var ErrInvalidConfig = errors.New("invalid memory system configuration")

// Mode selects the fidelity of the simulated hierarchy.
type Mode int

const (
	// ModeA simulates a data cache only, without timing.
	ModeA Mode = iota
	// ModeB adds I-cache, L2 and a fixed-latency DRAM.
	ModeB
	// ModeC times the DRAM by row-buffer state.
	ModeC
	// ModeD simulates two cores with private L1s behind address translation.
	ModeD
	// ModeE is ModeD with a statically partitioned L2.
	ModeE
	// ModeF is ModeD with a dynamically partitioned L2.
	ModeF
)

// String returns the mode letter.
func (m Mode) String() string {
	if m.Valid() {
		return string(rune('A' + int(m)))
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m >= ModeA && m <= ModeF
}

// MultiCore reports whether the mode has per-core L1s and translation.
func (m Mode) MultiCore() bool {
	return m >= ModeD && m <= ModeF
}

// HasHierarchy reports whether the mode has an L2 and a DRAM.
func (m Mode) HasHierarchy() bool {
	return m >= ModeB && m <= ModeF
}

// ParseMode converts "A" to "F" into a Mode. "DEF" is read as ModeD.
func ParseMode(s string) (Mode, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "DEF" {
		return ModeD, nil
	}
	if len(name) == 1 && name[0] >= 'A' && name[0] <= 'F' {
		return Mode(name[0] - 'A'), nil
	}
	return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %d", ErrInvalidConfig, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Config holds everything needed to build a MemorySystem.
type Config struct {
	Mode Mode `json:"mode" yaml:"mode"`

	// NumCores is derived from the mode when zero: 1 for modes A to C and
	// 2 for modes D to F.
	NumCores int `json:"num_cores" yaml:"num_cores"`

	// LineSize in bytes, shared by every cache and the DRAM mapping.
	LineSize int `json:"line_size" yaml:"line_size"`

	DCacheSize  int `json:"dcache_size" yaml:"dcache_size"`
	DCacheAssoc int `json:"dcache_assoc" yaml:"dcache_assoc"`
	ICacheSize  int `json:"icache_size" yaml:"icache_size"`
	ICacheAssoc int `json:"icache_assoc" yaml:"icache_assoc"`
	L2Size      int `json:"l2_size" yaml:"l2_size"`
	L2Assoc     int `json:"l2_assoc" yaml:"l2_assoc"`

	// ReplPolicy is the L1 policy. Modes A to C use it for the L2 as well.
	ReplPolicy cache.Policy `json:"repl_policy" yaml:"repl_policy"`

	// L2ReplPolicy is the L2 policy of modes D to F. When unset, mode E uses
	// static and mode F dynamic partitioning; mode D uses ReplPolicy.
	L2ReplPolicy *cache.Policy `json:"l2_repl_policy,omitempty" yaml:"l2_repl_policy,omitempty"`

	DRAMPagePolicy dram.PagePolicy `json:"dram_page_policy" yaml:"dram_page_policy"`

	// SWPCore0Ways is the number of L2 ways per set reserved for core 0.
	SWPCore0Ways int `json:"swp_core0_ways" yaml:"swp_core0_ways"`

	// RandomSeed seeds the random replacement policy of every cache.
	RandomSeed uint64 `json:"random_seed" yaml:"random_seed"`

	Latency *latency.Config `json:"latency" yaml:"latency"`
}

// DefaultConfig returns a mode A configuration with 32KB 8-way L1s, a 1MB
// 16-way L2, 64B lines, LRU and an open-page DRAM. The core count is left
// to the mode.
func DefaultConfig() *Config {
	return &Config{
		Mode:           ModeA,
		LineSize:       64,
		DCacheSize:     32 * 1024,
		DCacheAssoc:    8,
		ICacheSize:     32 * 1024,
		ICacheAssoc:    8,
		L2Size:         1024 * 1024,
		L2Assoc:        16,
		ReplPolicy:     cache.LRU,
		DRAMPagePolicy: dram.OpenPage,
		SWPCore0Ways:   4,
		RandomSeed:     1,
		Latency:        latency.DefaultConfig(),
	}
}

// LoadConfig reads a YAML or JSON file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the configuration as indented JSON.
func (c *Config) SaveConfig(path string) error {
	data, err := c.JSON()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// JSON returns the configuration as indented JSON.
func (c *Config) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize config: %w", err)
	}
	return data, nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.L2ReplPolicy != nil {
		p := *c.L2ReplPolicy
		clone.L2ReplPolicy = &p
	}
	if c.Latency != nil {
		clone.Latency = c.Latency.Clone()
	}
	return &clone
}

// Normalize fills in the values implied by the mode.
func (c *Config) Normalize() {
	if c.Latency == nil {
		c.Latency = latency.DefaultConfig()
	}

	if c.Mode.MultiCore() && c.NumCores == 0 {
		c.NumCores = 2
	}
	if c.NumCores == 0 {
		c.NumCores = 1
	}

	if c.L2ReplPolicy == nil {
		p := c.ReplPolicy
		switch c.Mode {
		case ModeE:
			p = cache.StaticPartition
		case ModeF:
			p = cache.DynamicPartition
		}
		c.L2ReplPolicy = &p
	}
}

// L2Policy returns the policy the L2 is built with.
func (c *Config) L2Policy() cache.Policy {
	if !c.Mode.MultiCore() || c.L2ReplPolicy == nil {
		return c.ReplPolicy
	}
	return *c.L2ReplPolicy
}

// DCacheConfig returns the configuration of one L1 data cache.
func (c *Config) DCacheConfig() cache.Config {
	return cache.Config{
		Size:          c.DCacheSize,
		Associativity: c.DCacheAssoc,
		LineSize:      c.LineSize,
		Policy:        c.ReplPolicy,
		Core0Ways:     c.SWPCore0Ways,
		Seed:          c.RandomSeed,
	}
}

// ICacheConfig returns the configuration of one L1 instruction cache.
func (c *Config) ICacheConfig() cache.Config {
	return cache.Config{
		Size:          c.ICacheSize,
		Associativity: c.ICacheAssoc,
		LineSize:      c.LineSize,
		Policy:        c.ReplPolicy,
		Core0Ways:     c.SWPCore0Ways,
		Seed:          c.RandomSeed + 1,
	}
}

// L2Config returns the configuration of the shared L2.
func (c *Config) L2Config() cache.Config {
	return cache.Config{
		Size:          c.L2Size,
		Associativity: c.L2Assoc,
		LineSize:      c.LineSize,
		Policy:        c.L2Policy(),
		Core0Ways:     c.SWPCore0Ways,
		Seed:          c.RandomSeed + 2,
	}
}

// DRAMConfig returns the configuration of the DRAM.
func (c *Config) DRAMConfig() dram.Config {
	return dram.Config{
		LineSize:     c.LineSize,
		PagePolicy:   c.DRAMPagePolicy,
		FixedLatency: c.Mode == ModeB,
		Latency:      c.Latency,
	}
}

// Validate checks the configuration. It assumes Normalize has been applied.
func (c *Config) Validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidConfig, int(c.Mode))
	}
	if c.Latency == nil {
		return fmt.Errorf("%w: missing latency config", ErrInvalidConfig)
	}
	if err := c.Latency.Validate(); err != nil {
		return fmt.Errorf("%w: latency: %w", ErrInvalidConfig, err)
	}
	if c.NumCores <= 0 {
		return fmt.Errorf("%w: num_cores must be > 0", ErrInvalidConfig)
	}
	if c.Mode.MultiCore() && c.NumCores != 2 {
		return fmt.Errorf("%w: mode %s requires 2 cores, got %d", ErrInvalidConfig, c.Mode, c.NumCores)
	}
	if c.LineSize <= 0 || c.LineSize&(c.LineSize-1) != 0 {
		return fmt.Errorf("%w: line_size %d is not a power of two", ErrInvalidConfig, c.LineSize)
	}
	if c.Mode.MultiCore() && uint64(c.LineSize) > c.Latency.PageSize {
		return fmt.Errorf("%w: line_size %d exceeds page size %d",
			ErrInvalidConfig, c.LineSize, c.Latency.PageSize)
	}

	if err := c.DCacheConfig().Validate(); err != nil {
		return fmt.Errorf("%w: dcache: %w", ErrInvalidConfig, err)
	}
	if !c.Mode.HasHierarchy() {
		return nil
	}

	if err := c.ICacheConfig().Validate(); err != nil {
		return fmt.Errorf("%w: icache: %w", ErrInvalidConfig, err)
	}
	if err := c.L2Config().Validate(); err != nil {
		return fmt.Errorf("%w: l2 cache: %w", ErrInvalidConfig, err)
	}
	if err := c.DRAMConfig().Validate(); err != nil {
		return fmt.Errorf("%w: dram: %w", ErrInvalidConfig, err)
	}

	return nil
}
