package memsys

import (
	"slices"

	"github.com/sarchlab/akita/v4/datarecording"
)

// Table names used by Report.
const (
	MemsysTable = "memsys_stats"
	CacheTable  = "cache_stats"
	DRAMTable   = "dram_stats"
)

// MemsysRow is one memory system statistics record.
type MemsysRow struct {
	RunID          string `akita_data:"index"`
	Mode           string
	IFetchAccess   uint64
	LoadAccess     uint64
	StoreAccess    uint64
	IFetchAvgDelay float64
	LoadAvgDelay   float64
	StoreAvgDelay  float64
}

// CacheRow is one cache statistics record.
type CacheRow struct {
	RunID         string `akita_data:"index"`
	Name          string
	ReadAccess    uint64
	WriteAccess   uint64
	ReadMiss      uint64
	WriteMiss     uint64
	ReadMissPerc  float64
	WriteMissPerc float64
	DirtyEvicts   uint64
}

// DRAMRow is one DRAM statistics record.
type DRAMRow struct {
	RunID         string `akita_data:"index"`
	ReadAccess    uint64
	WriteAccess   uint64
	ReadDelayAvg  float64
	WriteDelayAvg float64
	RowHits       uint64
	RowEmpty      uint64
	RowConflicts  uint64
}

// Report stores the statistics of the run in a recorder, one row per block
// of PrintStats, and flushes it. Tables are created on first use.
func (m *MemorySystem) Report(recorder datarecording.DataRecorder, runID string) {
	tables := recorder.ListTables()
	ensure := func(name string, sample any) {
		if !slices.Contains(tables, name) {
			recorder.CreateTable(name, sample)
		}
	}

	ensure(MemsysTable, MemsysRow{})
	recorder.InsertData(MemsysTable, MemsysRow{
		RunID:          runID,
		Mode:           m.config.Mode.String(),
		IFetchAccess:   m.stats.IFetchAccess,
		LoadAccess:     m.stats.LoadAccess,
		StoreAccess:    m.stats.StoreAccess,
		IFetchAvgDelay: m.stats.IFetchAvgDelay(),
		LoadAvgDelay:   m.stats.LoadAvgDelay(),
		StoreAvgDelay:  m.stats.StoreAvgDelay(),
	})

	ensure(CacheTable, CacheRow{})
	for _, c := range m.Caches() {
		s := c.Cache.Stats()
		recorder.InsertData(CacheTable, CacheRow{
			RunID:         runID,
			Name:          c.Name,
			ReadAccess:    s.ReadAccess,
			WriteAccess:   s.WriteAccess,
			ReadMiss:      s.ReadMiss,
			WriteMiss:     s.WriteMiss,
			ReadMissPerc:  s.ReadMissPercent(),
			WriteMissPerc: s.WriteMissPercent(),
			DirtyEvicts:   s.DirtyEvicts,
		})
	}

	if m.dram != nil {
		s := m.dram.Stats()
		ensure(DRAMTable, DRAMRow{})
		recorder.InsertData(DRAMTable, DRAMRow{
			RunID:         runID,
			ReadAccess:    s.ReadAccess,
			WriteAccess:   s.WriteAccess,
			ReadDelayAvg:  s.AvgReadDelay(),
			WriteDelayAvg: s.AvgWriteDelay(),
			RowHits:       s.RowHits,
			RowEmpty:      s.RowEmpty,
			RowConflicts:  s.RowConflicts,
		})
	}

	recorder.Flush()
}
