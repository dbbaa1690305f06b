// Package loader reads memory reference traces.
//
// A trace is a text file with one reference per line:
//
//	[core] <I|L|S> <hex address>
//
// The core column is optional and defaults to 0. Text after '#' is a
// comment. Files compressed with gzip are detected and decompressed.
package loader

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/memsim/timing/memsys"
)

// Record is one memory reference.
type Record struct {
	// Core is the id of the issuing core.
	Core int
	// Type is the kind of reference.
	Type memsys.AccessType
	// Addr is the byte address.
	Addr uint64
}

// Trace is a parsed reference stream in file order.
type Trace struct {
	// Name identifies the source of the trace.
	Name string
	// Records holds every reference.
	Records []Record
}

// Load opens and parses a trace file.
func Load(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer func() { _ = f.Close() }()

	trace, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	trace.Name = path

	return trace, nil
}

// Parse reads a trace from r, decompressing it first if it is gzipped.
func Parse(r io.Reader) (*Trace, error) {
	br := bufio.NewReader(r)

	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer func() { _ = zr.Close() }()
		return parseText(zr)
	}

	return parseText(br)
}

func parseText(r io.Reader) (*Trace, error) {
	trace := &Trace{}
	scanner := bufio.NewScanner(r)

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}

		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		rec, err := parseRecord(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		trace.Records = append(trace.Records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}

	return trace, nil
}

func parseRecord(fields []string) (Record, error) {
	var rec Record

	switch len(fields) {
	case 2:
	case 3:
		core, err := strconv.Atoi(fields[0])
		if err != nil || core < 0 {
			return rec, fmt.Errorf("invalid core id %q", fields[0])
		}
		rec.Core = core
		fields = fields[1:]
	default:
		return rec, fmt.Errorf("expected 2 or 3 fields, got %d", len(fields))
	}

	typ, err := ParseAccessType(fields[0])
	if err != nil {
		return rec, err
	}
	rec.Type = typ

	hex := strings.TrimPrefix(strings.TrimPrefix(fields[1], "0x"), "0X")
	addr, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return rec, fmt.Errorf("invalid address %q", fields[1])
	}
	rec.Addr = addr

	return rec, nil
}

// ParseAccessType converts a trace letter into an access type.
func ParseAccessType(s string) (memsys.AccessType, error) {
	switch strings.ToUpper(s) {
	case "I":
		return memsys.IFetch, nil
	case "L", "R":
		return memsys.Load, nil
	case "S", "W":
		return memsys.Store, nil
	default:
		return 0, fmt.Errorf("invalid access type %q", s)
	}
}

// NumCores returns one more than the largest core id in the trace.
func (t *Trace) NumCores() int {
	n := 0
	for _, rec := range t.Records {
		if rec.Core >= n {
			n = rec.Core + 1
		}
	}
	return n
}

// Split returns the references of each core in trace order. Records of
// cores at or above numCores are dropped.
func (t *Trace) Split(numCores int) [][]Record {
	streams := make([][]Record, numCores)
	for _, rec := range t.Records {
		if rec.Core < numCores {
			streams[rec.Core] = append(streams[rec.Core], rec)
		}
	}
	return streams
}

// Write prints records in the trace format, one per line with the core
// column.
func Write(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		if _, err := fmt.Fprintf(bw, "%d %s %x\n", rec.Core, rec.Type, rec.Addr); err != nil {
			return err
		}
	}
	return bw.Flush()
}
