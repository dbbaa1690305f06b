package dram

import (
	"fmt"
	"io"
)

// Statistics holds DRAM counters.
type Statistics struct {
	ReadAccess  uint64
	WriteAccess uint64
	ReadDelay   uint64
	WriteDelay  uint64

	// Row buffer outcomes over all accesses. Under the close-page policy
	// every bank is found closed, so all accesses count as RowEmpty.
	RowHits      uint64
	RowEmpty     uint64
	RowConflicts uint64
}

func (s *Statistics) record(isWrite bool, delay uint64, outcome Outcome) {
	if isWrite {
		s.WriteAccess++
		s.WriteDelay += delay
	} else {
		s.ReadAccess++
		s.ReadDelay += delay
	}

	switch outcome {
	case RowHit:
		s.RowHits++
	case RowConflict:
		s.RowConflicts++
	default:
		s.RowEmpty++
	}
}

// Accesses returns the total number of DRAM transactions.
func (s Statistics) Accesses() uint64 {
	return s.ReadAccess + s.WriteAccess
}

// AvgReadDelay returns the mean read delay, or 0 without reads.
func (s Statistics) AvgReadDelay() float64 {
	if s.ReadAccess == 0 {
		return 0
	}
	return float64(s.ReadDelay) / float64(s.ReadAccess)
}

// AvgWriteDelay returns the mean write delay, or 0 without writes.
func (s Statistics) AvgWriteDelay() float64 {
	if s.WriteAccess == 0 {
		return 0
	}
	return float64(s.WriteDelay) / float64(s.WriteAccess)
}

// RowHitRate returns the fraction of accesses that hit an open row.
func (s Statistics) RowHitRate() float64 {
	total := s.Accesses()
	if total == 0 {
		return 0
	}
	return float64(s.RowHits) / float64(total)
}

// Print writes the statistics block in the fixed report layout.
func (s Statistics) Print(w io.Writer) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "DRAM_READ_ACCESS     \t\t : %10d\n", s.ReadAccess)
	fmt.Fprintf(w, "DRAM_WRITE_ACCESS    \t\t : %10d\n", s.WriteAccess)
	fmt.Fprintf(w, "DRAM_READ_DELAY_AVG  \t\t : %10.3f\n", s.AvgReadDelay())
	fmt.Fprintf(w, "DRAM_WRITE_DELAY_AVG \t\t : %10.3f\n", s.AvgWriteDelay())
}
