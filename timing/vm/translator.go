// Package vm maps per-core virtual pages onto physical frames.
//
// The mapping is pure arithmetic: no page table, no faults. Bit 21 of the
// frame number carries the core id, so the first 2^20 pages of the two cores
// never share a frame. Higher pages are folded in above the core bit.
package vm

import "fmt"

// NumCores is the only core count the mapping supports.
const NumCores = 2

const (
	lowMask    = 0xFFFFF
	highShift  = 20
	frameShift = 21
)

// Translator converts virtual page numbers to physical frame numbers.
type Translator struct {
	numCores int
}

// NewTranslator creates a translator for numCores cores.
func NewTranslator(numCores int) (*Translator, error) {
	if numCores != NumCores {
		return nil, fmt.Errorf("translator supports exactly %d cores, got %d", NumCores, numCores)
	}
	return &Translator{numCores: numCores}, nil
}

// Translate returns the frame backing vpn for the given core. It panics if
// coreID is out of range.
func (t *Translator) Translate(vpn uint64, coreID int) uint64 {
	if coreID < 0 || coreID >= t.numCores {
		panic(fmt.Sprintf("vm: core id %d out of range [0, %d)", coreID, t.numCores))
	}

	tail := vpn & lowMask
	head := vpn >> highShift
	return tail + uint64(coreID)<<frameShift + head<<frameShift
}

// TranslateLine converts a virtual line address to a physical one. The
// offset of the line within its page is preserved.
func (t *Translator) TranslateLine(vLine uint64, coreID int, linesPerPage uint64) uint64 {
	vpn := vLine / linesPerPage
	pfn := t.Translate(vpn, coreID)
	return pfn*linesPerPage + vLine%linesPerPage
}
