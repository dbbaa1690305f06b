// Package dram models a banked DRAM module with one row buffer per bank.
//
// Line addresses are mapped so that consecutive lines share a row and
// consecutive rows fall in consecutive banks. The delay of an access depends
// on the state of the target bank's row buffer and on the page policy.
package dram

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/bits"

	"github.com/sarchlab/memsim/timing/latency"
)

// ErrInvalidConfig is wrapped by every configuration error of this package.
var ErrInvalidConfig = errors.New("invalid dram configuration")

// RowBuffer is the open-row latch of one bank.
type RowBuffer struct {
	Valid bool
	RowID uint64
}

// Outcome classifies an access by the row buffer state it found.
type Outcome int

const (
	// RowEmpty means the bank had no open row.
	RowEmpty Outcome = iota
	// RowHit means the requested row was already open.
	RowHit
	// RowConflict means a different row was open.
	RowConflict
)

// String returns a short name of the outcome.
func (o Outcome) String() string {
	switch o {
	case RowHit:
		return "hit"
	case RowConflict:
		return "conflict"
	default:
		return "empty"
	}
}

// Config holds DRAM parameters.
type Config struct {
	// LineSize is the cache line size in bytes. It fixes how many lines
	// share one row.
	LineSize int
	// PagePolicy is used in timing mode.
	PagePolicy PagePolicy
	// FixedLatency disables row-buffer timing. Every access then costs the
	// flat DRAM latency.
	FixedLatency bool
	// Latency holds the timing constants and the bank geometry.
	Latency *latency.Config
}

// DefaultConfig returns an open-page timing DRAM for 64B lines.
func DefaultConfig() Config {
	return Config{
		LineSize:   64,
		PagePolicy: OpenPage,
		Latency:    latency.DefaultConfig(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Latency == nil {
		return fmt.Errorf("%w: missing latency config", ErrInvalidConfig)
	}
	if err := c.Latency.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.LineSize <= 0 || c.LineSize&(c.LineSize-1) != 0 {
		return fmt.Errorf("%w: line size %d is not a power of two", ErrInvalidConfig, c.LineSize)
	}
	if uint64(c.LineSize) > c.Latency.RowBufferSize {
		return fmt.Errorf("%w: line size %d exceeds row buffer size %d",
			ErrInvalidConfig, c.LineSize, c.Latency.RowBufferSize)
	}
	if !c.PagePolicy.Valid() {
		return fmt.Errorf("%w: unknown page policy %d", ErrInvalidConfig, int(c.PagePolicy))
	}
	return nil
}

// Option configures a DRAM.
type Option func(*DRAM)

// WithLogger sets the logger used for debug records.
func WithLogger(logger *slog.Logger) Option {
	return func(d *DRAM) {
		d.logger = logger
	}
}

// DRAM is a banked memory with per-bank row buffers.
type DRAM struct {
	config     Config
	table      *latency.Table
	banks      []RowBuffer
	offsetBits uint

	logger *slog.Logger
	stats  Statistics
}

// New creates a DRAM with all row buffers closed.
func New(config Config, opts ...Option) (*DRAM, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	linesPerRow := config.Latency.RowBufferSize / uint64(config.LineSize)

	d := &DRAM{
		config:     config,
		table:      latency.NewTableWithConfig(config.Latency),
		banks:      make([]RowBuffer, config.Latency.NumBanks),
		offsetBits: uint(bits.TrailingZeros64(linesPerRow)),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}

	return d, nil
}

// Config returns the DRAM configuration.
func (d *DRAM) Config() Config {
	return d.config
}

// NumBanks returns the number of banks.
func (d *DRAM) NumBanks() int {
	return len(d.banks)
}

// Bank returns the row buffer of bank i.
func (d *DRAM) Bank(i int) RowBuffer {
	return d.banks[i]
}

// Stats returns DRAM statistics.
func (d *DRAM) Stats() Statistics {
	return d.stats
}

// ResetStats clears DRAM statistics.
func (d *DRAM) ResetStats() {
	d.stats = Statistics{}
}

// Reset closes every row buffer and clears statistics.
func (d *DRAM) Reset() {
	for i := range d.banks {
		d.banks[i] = RowBuffer{}
	}
	d.stats = Statistics{}
}

// Map returns the bank and row a line address falls into.
func (d *DRAM) Map(lineAddr uint64) (bank int, row uint64) {
	group := lineAddr
	if !d.config.FixedLatency {
		group = lineAddr >> d.offsetBits
	}
	numBanks := uint64(len(d.banks))
	return int(group % numBanks), group / numBanks
}

// Access performs one DRAM transaction on a line address and returns its
// delay in cycles.
func (d *DRAM) Access(lineAddr uint64, isWrite bool) uint64 {
	bank, row := d.Map(lineAddr)
	rb := &d.banks[bank]

	var (
		delay   uint64
		outcome Outcome
	)

	switch {
	case !rb.Valid:
		outcome = RowEmpty
	case rb.RowID == row:
		outcome = RowHit
	default:
		outcome = RowConflict
	}

	switch {
	case d.config.FixedLatency:
		delay = d.table.Fixed()
		rb.Valid = true
		rb.RowID = row
	case d.config.PagePolicy == ClosePage:
		delay = d.table.ClosedPage()
		rb.Valid = false
		rb.RowID = row
	default:
		switch outcome {
		case RowHit:
			delay = d.table.RowHit()
		case RowConflict:
			delay = d.table.RowConflict()
		default:
			delay = d.table.RowEmpty()
		}
		rb.Valid = true
		rb.RowID = row
	}

	d.stats.record(isWrite, delay, outcome)

	d.logger.Debug("dram access",
		"line", lineAddr, "bank", bank, "row", row,
		"write", isWrite, "outcome", outcome.String(), "delay", delay)

	return delay
}

// PrintStats writes the DRAM statistics block.
func (d *DRAM) PrintStats(w io.Writer) {
	d.stats.Print(w)
}
