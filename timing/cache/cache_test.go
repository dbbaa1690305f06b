package cache_test

import (
	"bytes"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/memsim/timing/cache"
	"github.com/sarchlab/memsim/timing/clock"
)

var _ = Describe("Cache", func() {
	var (
		c   *cache.Cache
		clk *clock.Clock
	)

	// access performs a lookup and installs on a miss, one cycle per call.
	access := func(line uint64, isWrite bool, core int) (cache.Result, cache.InstallResult) {
		clk.Advance(1)
		result := c.Access(line, isWrite, core)
		if result == cache.Miss {
			return result, c.Install(line, isWrite, core)
		}
		return result, cache.InstallResult{}
	}

	BeforeEach(func() {
		clk = clock.New()
		// Small cache for testing: 4KB, 4-way, 64B lines = 16 sets
		var err error
		c, err = cache.New(cache.Config{
			Size:          4 * 1024,
			Associativity: 4,
			LineSize:      64,
			Policy:        cache.LRU,
		}, cache.WithClock(clk))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Geometry", func() {
		It("should derive sets and index bits", func() {
			Expect(c.Sets()).To(Equal(16))
			Expect(c.Ways()).To(Equal(4))
			Expect(c.IndexBits()).To(Equal(uint(4)))
		})
	})

	Describe("Cold start", func() {
		It("should miss on the first access and hit on the second", func() {
			first, _ := access(0x123, false, 0)
			second, _ := access(0x123, false, 0)

			Expect(first).To(Equal(cache.Miss))
			Expect(second).To(Equal(cache.Hit))

			stats := c.Stats()
			Expect(stats.ReadAccess).To(Equal(uint64(2)))
			Expect(stats.ReadMiss).To(Equal(uint64(1)))
		})

		It("should not install on a miss", func() {
			Expect(c.Access(0x40, false, 0)).To(Equal(cache.Miss))
			Expect(c.Probe(0x40)).To(BeFalse())
			Expect(c.Access(0x40, false, 0)).To(Equal(cache.Miss))
		})

		It("should count write accesses and misses separately", func() {
			access(0x10, true, 0)
			access(0x10, true, 0)
			access(0x11, false, 0)

			stats := c.Stats()
			Expect(stats.WriteAccess).To(Equal(uint64(2)))
			Expect(stats.WriteMiss).To(Equal(uint64(1)))
			Expect(stats.ReadAccess).To(Equal(uint64(1)))
			Expect(stats.ReadMiss).To(Equal(uint64(1)))
		})
	})

	Describe("LRU replacement", func() {
		It("should evict exactly the least recently used line", func() {
			// Lines 0, 16, 32, 48, 64 all map to set 0.
			for _, line := range []uint64{0, 16, 32, 48} {
				access(line, false, 0)
			}

			_, installed := access(64, false, 0)

			Expect(installed.HasEvicted).To(BeTrue())
			Expect(installed.Evicted.Tag).To(Equal(uint64(0)))
			Expect(c.Probe(0)).To(BeFalse())
			for _, line := range []uint64{16, 32, 48, 64} {
				Expect(c.Probe(line)).To(BeTrue())
			}
		})

		It("should protect recently hit lines", func() {
			for _, line := range []uint64{0, 16, 32, 48} {
				access(line, false, 0)
			}
			access(0, false, 0)

			_, installed := access(64, false, 0)

			Expect(installed.Evicted.Tag).To(Equal(uint64(1)))
			Expect(c.Probe(0)).To(BeTrue())
			Expect(c.Probe(16)).To(BeFalse())
		})

		It("should fill free ways before evicting", func() {
			_, first := access(0, false, 0)
			_, second := access(16, false, 0)

			Expect(first.HasEvicted).To(BeFalse())
			Expect(second.HasEvicted).To(BeFalse())
			Expect(first.Way).To(Equal(0))
			Expect(second.Way).To(Equal(1))
		})
	})

	Describe("Dirty propagation", func() {
		It("should mark a line dirty on a write hit", func() {
			access(0, false, 0)
			access(0, true, 0)

			lines := c.Lines(0)
			Expect(lines[0].Valid).To(BeTrue())
			Expect(lines[0].Dirty).To(BeTrue())
		})

		It("should count one dirty eviction and request one writeback", func() {
			access(0, true, 0)
			for _, line := range []uint64{16, 32, 48} {
				access(line, false, 0)
			}

			_, installed := access(64, false, 0)

			Expect(installed.NeedsWriteback()).To(BeTrue())
			Expect(cache.Reassemble(installed.Evicted.Tag, installed.SetIndex, c.IndexBits())).
				To(Equal(uint64(0)))
			Expect(c.Stats().DirtyEvicts).To(Equal(uint64(1)))
			Expect(c.LastEvicted().Dirty).To(BeTrue())
		})

		It("should not count clean evictions", func() {
			for _, line := range []uint64{0, 16, 32, 48, 64} {
				access(line, false, 0)
			}
			Expect(c.Stats().DirtyEvicts).To(BeZero())
		})

		It("should install a write miss as dirty", func() {
			access(5, true, 0)
			Expect(c.Lines(5)[0].Dirty).To(BeTrue())
		})
	})

	Describe("Install of a resident line", func() {
		It("should refresh in place without evicting", func() {
			access(0, false, 0)
			result := c.Install(0, true, 0)

			Expect(result.HasEvicted).To(BeFalse())
			valid := 0
			for _, line := range c.Lines(0) {
				if line.Valid {
					valid++
				}
			}
			Expect(valid).To(Equal(1))
			Expect(c.Lines(0)[0].Dirty).To(BeTrue())
		})
	})

	Describe("Line metadata", func() {
		It("should record owner core and install time", func() {
			clk.Set(41)
			c.Access(3, false, 1)
			c.Install(3, false, 1)

			line := c.Lines(3)[0]
			Expect(line.CoreID).To(Equal(1))
			Expect(line.LastAccess).To(Equal(uint64(41)))
			Expect(line.Tag).To(Equal(uint64(0)))
		})
	})

	Describe("Reset", func() {
		It("should invalidate lines and clear statistics", func() {
			access(0, true, 0)
			c.Reset()

			Expect(c.Probe(0)).To(BeFalse())
			Expect(c.Stats()).To(Equal(cache.Statistics{}))
		})

		It("should clear only statistics on ResetStats", func() {
			access(0, false, 0)
			c.ResetStats()

			Expect(c.Probe(0)).To(BeTrue())
			Expect(c.Stats().ReadAccess).To(BeZero())
		})
	})

	Describe("End-to-end sequential scan", func() {
		It("should miss once per line with no conflicts", func() {
			var err error
			c, err = cache.New(cache.Config{
				Size:          32 * 1024,
				Associativity: 4,
				LineSize:      64,
				Policy:        cache.LRU,
			}, cache.WithClock(clk))
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Sets()).To(Equal(128))

			for addr := uint64(0); addr < 128*64; addr += 64 {
				access(addr/64, false, 0)
			}

			stats := c.Stats()
			Expect(stats.ReadMiss).To(Equal(uint64(128)))
			Expect(stats.ReadAccess - stats.ReadMiss).To(BeZero())
			Expect(stats.DirtyEvicts).To(BeZero())
		})
	})

	Describe("Statistics output", func() {
		It("should print the fixed layout", func() {
			access(1, false, 0)
			access(1, false, 0)
			access(2, true, 0)

			var buf bytes.Buffer
			c.PrintStats(&buf, "DCACHE")

			Expect(buf.String()).To(Equal("\n" +
				"DCACHE_READ_ACCESS     \t\t :          2\n" +
				"DCACHE_WRITE_ACCESS    \t\t :          1\n" +
				"DCACHE_READ_MISS       \t\t :          1\n" +
				"DCACHE_WRITE_MISS      \t\t :          1\n" +
				"DCACHE_READ_MISS_PERC  \t\t :     50.000\n" +
				"DCACHE_WRITE_MISS_PERC \t\t :    100.000\n" +
				"DCACHE_DIRTY_EVICTS    \t\t :          0\n"))
		})

		It("should report zero percentages without accesses", func() {
			stats := cache.Statistics{}
			Expect(stats.ReadMissPercent()).To(BeZero())
			Expect(stats.WriteMissPercent()).To(BeZero())
		})
	})

	Describe("Configuration", func() {
		DescribeTable("invalid configurations",
			func(config cache.Config) {
				_, err := cache.New(config)
				Expect(err).To(HaveOccurred())
				Expect(errors.Is(err, cache.ErrInvalidConfig)).To(BeTrue())
			},
			Entry("zero ways", cache.Config{Size: 4096, Associativity: 0, LineSize: 64}),
			Entry("zero line size", cache.Config{Size: 4096, Associativity: 4, LineSize: 0}),
			Entry("zero size", cache.Config{Size: 0, Associativity: 4, LineSize: 64}),
			Entry("indivisible size", cache.Config{Size: 4000, Associativity: 4, LineSize: 64}),
			Entry("non power of two sets", cache.Config{Size: 3 * 4 * 64, Associativity: 4, LineSize: 64}),
			Entry("unknown policy", cache.Config{Size: 4096, Associativity: 4, LineSize: 64, Policy: cache.Policy(9)}),
			Entry("quota above ways", cache.Config{
				Size: 4096, Associativity: 4, LineSize: 64,
				Policy: cache.StaticPartition, Core0Ways: 5,
			}),
		)

		It("should accept the defaults", func() {
			for _, config := range []cache.Config{
				cache.DefaultL1DConfig(),
				cache.DefaultL1IConfig(),
				cache.DefaultL2Config(),
			} {
				Expect(config.Validate()).To(Succeed())
			}
		})
	})
})
