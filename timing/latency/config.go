package latency

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the latency and geometry constants of the memory hierarchy.
// Defaults follow the reference memory system lab.
type Config struct {
	// DCacheHitLatency is the L1 data cache hit time. Default: 1 cycle.
	DCacheHitLatency uint64 `json:"dcache_hit_latency" yaml:"dcache_hit_latency"`

	// ICacheHitLatency is the L1 instruction cache hit time. Default: 1 cycle.
	ICacheHitLatency uint64 `json:"icache_hit_latency" yaml:"icache_hit_latency"`

	// L2HitLatency is the shared L2 hit time. Default: 10 cycles.
	L2HitLatency uint64 `json:"l2_hit_latency" yaml:"l2_hit_latency"`

	// DRAMFixedLatency is the flat DRAM latency used when row-buffer timing
	// is off. Default: 100 cycles.
	DRAMFixedLatency uint64 `json:"dram_fixed_latency" yaml:"dram_fixed_latency"`

	// DRAMActLatency is the row activation time (RAS). Default: 45 cycles.
	DRAMActLatency uint64 `json:"dram_act_latency" yaml:"dram_act_latency"`

	// DRAMCasLatency is the column selection time (CAS). Default: 45 cycles.
	DRAMCasLatency uint64 `json:"dram_cas_latency" yaml:"dram_cas_latency"`

	// DRAMPreLatency is the precharge time. Default: 45 cycles.
	DRAMPreLatency uint64 `json:"dram_pre_latency" yaml:"dram_pre_latency"`

	// DRAMBusLatency is the data transfer time paid on every DRAM access.
	// Default: 10 cycles.
	DRAMBusLatency uint64 `json:"dram_bus_latency" yaml:"dram_bus_latency"`

	// PageSize is the virtual memory page size in bytes. Default: 4096.
	PageSize uint64 `json:"page_size" yaml:"page_size"`

	// RowBufferSize is the DRAM row size in bytes. Default: 1024.
	RowBufferSize uint64 `json:"row_buffer_size" yaml:"row_buffer_size"`

	// NumBanks is the number of DRAM banks. Default: 16.
	NumBanks uint64 `json:"num_banks" yaml:"num_banks"`
}

// DefaultConfig returns a Config with the reference values.
func DefaultConfig() *Config {
	return &Config{
		DCacheHitLatency: 1,
		ICacheHitLatency: 1,
		L2HitLatency:     10,
		DRAMFixedLatency: 100,
		DRAMActLatency:   45,
		DRAMCasLatency:   45,
		DRAMPreLatency:   45,
		DRAMBusLatency:   10,
		PageSize:         4096,
		RowBufferSize:    1024,
		NumBanks:         16,
	}
}

// LoadConfig loads a Config from a YAML or JSON file. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read latency config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse latency config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize latency config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write latency config file: %w", err)
	}

	return nil
}

// Validate checks that the constants describe a usable memory system.
func (c *Config) Validate() error {
	if c.PageSize == 0 || c.PageSize&(c.PageSize-1) != 0 {
		return fmt.Errorf("page_size must be a power of two, got %d", c.PageSize)
	}
	if c.RowBufferSize == 0 || c.RowBufferSize&(c.RowBufferSize-1) != 0 {
		return fmt.Errorf("row_buffer_size must be a power of two, got %d", c.RowBufferSize)
	}
	if c.NumBanks == 0 {
		return fmt.Errorf("num_banks must be > 0")
	}
	if c.DRAMBusLatency == 0 {
		return fmt.Errorf("dram_bus_latency must be > 0")
	}
	return nil
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
