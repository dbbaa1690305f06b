package memsys

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Report", func() {
	var (
		mockCtrl *gomock.Controller
		recorder *MockDataRecorder
		sys      *MemorySystem
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		recorder = NewMockDataRecorder(mockCtrl)

		config := DefaultConfig()
		config.Mode = ModeC

		var err error
		sys, err = New(config)
		Expect(err).NotTo(HaveOccurred())

		sys.Clock().Advance(1)
		sys.Access(0, Load, 0)
		sys.Clock().Advance(1)
		sys.Access(64, Load, 0)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should create the tables and write one row per block", func() {
		recorder.EXPECT().ListTables().Return(nil)
		recorder.EXPECT().CreateTable(MemsysTable, MemsysRow{})
		recorder.EXPECT().CreateTable(CacheTable, CacheRow{})
		recorder.EXPECT().CreateTable(DRAMTable, DRAMRow{})

		recorder.EXPECT().InsertData(MemsysTable, MemsysRow{
			RunID:        "run-1",
			Mode:         "C",
			LoadAccess:   2,
			LoadAvgDelay: 88.5,
		})

		var names []string
		recorder.EXPECT().
			InsertData(CacheTable, gomock.Any()).
			Do(func(_ string, entry any) {
				names = append(names, entry.(CacheRow).Name)
			}).
			Times(3)

		recorder.EXPECT().InsertData(DRAMTable, DRAMRow{
			RunID:        "run-1",
			ReadAccess:   2,
			ReadDelayAvg: 77.5,
			RowHits:      1,
			RowEmpty:     1,
		})
		recorder.EXPECT().Flush()

		sys.Report(recorder, "run-1")

		Expect(names).To(Equal([]string{"ICACHE", "DCACHE", "L2CACHE"}))
	})

	It("should reuse existing tables", func() {
		recorder.EXPECT().ListTables().Return([]string{MemsysTable, CacheTable, DRAMTable})
		recorder.EXPECT().CreateTable(gomock.Any(), gomock.Any()).Times(0)
		recorder.EXPECT().InsertData(gomock.Any(), gomock.Any()).Times(5)
		recorder.EXPECT().Flush()

		sys.Report(recorder, "run-2")
	})
})
