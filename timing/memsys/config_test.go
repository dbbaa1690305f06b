package memsys

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/memsim/timing/cache"
	"github.com/sarchlab/memsim/timing/dram"
)

var _ = Describe("Config", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "memsys-config")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	write := func(name, content string) string {
		path := filepath.Join(tempDir, name)
		Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
		return path
	}

	It("should load YAML on top of the defaults", func() {
		path := write("memsim.yaml", `
mode: E
repl_policy: random
dram_page_policy: close
swp_core0_ways: 10
latency:
  l2_hit_latency: 12
`)

		config, err := LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(config.Mode).To(Equal(ModeE))
		Expect(config.ReplPolicy).To(Equal(cache.Random))
		Expect(config.DRAMPagePolicy).To(Equal(dram.ClosePage))
		Expect(config.SWPCore0Ways).To(Equal(10))
		Expect(config.L2ReplPolicy).To(BeNil())
		Expect(config.Latency.L2HitLatency).To(Equal(uint64(12)))
		Expect(config.Latency.DRAMActLatency).To(Equal(uint64(45)))
		Expect(config.DCacheSize).To(Equal(32 * 1024))
	})

	It("should accept numeric policy selectors", func() {
		path := write("memsim.yaml", "mode: DEF\nl2_repl_policy: 3\n")

		config, err := LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(config.Mode).To(Equal(ModeD))
		Expect(*config.L2ReplPolicy).To(Equal(cache.DynamicPartition))
	})

	It("should round-trip through JSON", func() {
		original := DefaultConfig()
		original.Mode = ModeF
		original.Normalize()

		path := filepath.Join(tempDir, "memsim.json")
		Expect(original.SaveConfig(path)).To(Succeed())

		loaded, err := LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(original))
	})

	It("should reject unknown names", func() {
		path := write("bad.yaml", "mode: Z\n")
		_, err := LoadConfig(path)
		Expect(err).To(HaveOccurred())
	})

	It("should return error for non-existent file", func() {
		_, err := LoadConfig("/nonexistent/path/memsim.yaml")
		Expect(err).To(HaveOccurred())
	})

	It("should deep copy on Clone", func() {
		original := DefaultConfig()
		original.Normalize()

		clone := original.Clone()
		clone.Latency.L2HitLatency = 99
		*clone.L2ReplPolicy = cache.Random

		Expect(original.Latency.L2HitLatency).To(Equal(uint64(10)))
		Expect(*original.L2ReplPolicy).To(Equal(cache.LRU))
	})
})
