package loader_test

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/memsim/loader"
	"github.com/sarchlab/memsim/timing/memsys"
)

const sampleTrace = `# two-core sample
I 400000
L 0x7fff1000
0 S 7fff1040   # store from core 0
1 L 1000

1 I 400004
`

var _ = Describe("Trace Loader", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "trace-loader-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	Describe("Parse", func() {
		It("should read every record in order", func() {
			trace, err := loader.Parse(strings.NewReader(sampleTrace))
			Expect(err).NotTo(HaveOccurred())

			Expect(trace.Records).To(Equal([]loader.Record{
				{Core: 0, Type: memsys.IFetch, Addr: 0x400000},
				{Core: 0, Type: memsys.Load, Addr: 0x7fff1000},
				{Core: 0, Type: memsys.Store, Addr: 0x7fff1040},
				{Core: 1, Type: memsys.Load, Addr: 0x1000},
				{Core: 1, Type: memsys.IFetch, Addr: 0x400004},
			}))
		})

		It("should accept an empty trace", func() {
			trace, err := loader.Parse(strings.NewReader(""))
			Expect(err).NotTo(HaveOccurred())
			Expect(trace.Records).To(BeEmpty())
		})

		DescribeTable("malformed lines",
			func(line, message string) {
				_, err := loader.Parse(strings.NewReader("L 10\n" + line + "\n"))
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("line 2"))
				Expect(err.Error()).To(ContainSubstring(message))
			},
			Entry("unknown type", "X 10", "invalid access type"),
			Entry("bad address", "L zz", "invalid address"),
			Entry("negative core", "-1 L 10", "invalid core id"),
			Entry("too many fields", "0 L 10 extra", "expected 2 or 3 fields"),
			Entry("missing address", "L", "expected 2 or 3 fields"),
		)

		It("should decompress gzip input", func() {
			var buf bytes.Buffer
			zw := gzip.NewWriter(&buf)
			_, err := zw.Write([]byte(sampleTrace))
			Expect(err).NotTo(HaveOccurred())
			Expect(zw.Close()).To(Succeed())

			trace, err := loader.Parse(&buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(trace.Records).To(HaveLen(5))
		})
	})

	Describe("Load", func() {
		It("should load a trace file and name it", func() {
			path := filepath.Join(tempDir, "sample.trace")
			Expect(os.WriteFile(path, []byte(sampleTrace), 0644)).To(Succeed())

			trace, err := loader.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(trace.Name).To(Equal(path))
			Expect(trace.NumCores()).To(Equal(2))
		})

		It("should report the path on a parse error", func() {
			path := filepath.Join(tempDir, "bad.trace")
			Expect(os.WriteFile(path, []byte("Q 1\n"), 0644)).To(Succeed())

			_, err := loader.Load(path)
			Expect(err).To(MatchError(ContainSubstring(path)))
		})

		It("should return error for non-existent file", func() {
			_, err := loader.Load("/nonexistent/path/sample.trace")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Split", func() {
		It("should separate cores and drop unknown ones", func() {
			trace, err := loader.Parse(strings.NewReader(sampleTrace + "3 L 20\n"))
			Expect(err).NotTo(HaveOccurred())

			streams := trace.Split(2)
			Expect(streams).To(HaveLen(2))
			Expect(streams[0]).To(HaveLen(3))
			Expect(streams[1]).To(HaveLen(2))
			Expect(streams[1][0].Addr).To(Equal(uint64(0x1000)))
		})
	})

	Describe("Write", func() {
		It("should produce text that parses back", func() {
			records := []loader.Record{
				{Core: 1, Type: memsys.Store, Addr: 0xdead40},
				{Core: 0, Type: memsys.IFetch, Addr: 0x10},
			}

			var buf bytes.Buffer
			Expect(loader.Write(&buf, records)).To(Succeed())
			Expect(buf.String()).To(Equal("1 S dead40\n0 I 10\n"))

			trace, err := loader.Parse(&buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(trace.Records).To(Equal(records))
		})
	})
})
