package memsys

import (
	"fmt"
	"io"
)

// Statistics holds the per-type access counts and cumulative delays.
type Statistics struct {
	IFetchAccess uint64
	LoadAccess   uint64
	StoreAccess  uint64
	IFetchDelay  uint64
	LoadDelay    uint64
	StoreDelay   uint64
}

func (s *Statistics) record(typ AccessType, delay uint64) {
	switch typ {
	case IFetch:
		s.IFetchAccess++
		s.IFetchDelay += delay
	case Load:
		s.LoadAccess++
		s.LoadDelay += delay
	case Store:
		s.StoreAccess++
		s.StoreDelay += delay
	}
}

// Accesses returns the number of references of every type.
func (s Statistics) Accesses() uint64 {
	return s.IFetchAccess + s.LoadAccess + s.StoreAccess
}

func average(total, count uint64) float64 {
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}

// IFetchAvgDelay returns the mean instruction fetch delay.
func (s Statistics) IFetchAvgDelay() float64 {
	return average(s.IFetchDelay, s.IFetchAccess)
}

// LoadAvgDelay returns the mean load delay.
func (s Statistics) LoadAvgDelay() float64 {
	return average(s.LoadDelay, s.LoadAccess)
}

// StoreAvgDelay returns the mean store delay.
func (s Statistics) StoreAvgDelay() float64 {
	return average(s.StoreDelay, s.StoreAccess)
}

// Print writes the memory system block in the fixed report layout.
func (s Statistics) Print(w io.Writer) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "MEMSYS_IFETCH_ACCESS   \t\t : %10d\n", s.IFetchAccess)
	fmt.Fprintf(w, "MEMSYS_LOAD_ACCESS     \t\t : %10d\n", s.LoadAccess)
	fmt.Fprintf(w, "MEMSYS_STORE_ACCESS    \t\t : %10d\n", s.StoreAccess)
	fmt.Fprintf(w, "MEMSYS_IFETCH_AVGDELAY \t\t : %10.3f\n", s.IFetchAvgDelay())
	fmt.Fprintf(w, "MEMSYS_LOAD_AVGDELAY   \t\t : %10.3f\n", s.LoadAvgDelay())
	fmt.Fprintf(w, "MEMSYS_STORE_AVGDELAY  \t\t : %10.3f\n", s.StoreAvgDelay())
}
