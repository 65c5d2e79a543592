package loader_test

import (
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/aranetrace/loader"
	"github.com/sarchlab/aranetrace/mmu"
)

// segSpec describes one program header for buildELF. A nil Data with a
// nonzero MemSize produces a pure-BSS segment.
type segSpec struct {
	Type    uint32 // 1 = PT_LOAD
	Flags   uint32 // PF_X=1 PF_W=2 PF_R=4
	Vaddr   uint64
	Data    []byte
	MemSize uint64 // defaults to len(Data) when zero
}

// buildELF writes a minimal little-endian ELF64 image: header, one program
// header per segment, then the segment bytes back to back.
func buildELF(path string, machine uint16, class byte, entry uint64, segs []segSpec) {
	const ehSize, phSize = 64, 56

	header := make([]byte, ehSize)
	copy(header[0:4], []byte{0x7f, 'E', 'L', 'F'})
	header[4] = class // 2 = ELFCLASS64
	header[5] = 1     // little endian
	header[6] = 1     // version
	binary.LittleEndian.PutUint16(header[16:18], 2) // ET_EXEC
	binary.LittleEndian.PutUint16(header[18:20], machine)
	binary.LittleEndian.PutUint32(header[20:24], 1)
	binary.LittleEndian.PutUint64(header[24:32], entry)
	binary.LittleEndian.PutUint64(header[32:40], ehSize)
	binary.LittleEndian.PutUint16(header[52:54], ehSize)
	binary.LittleEndian.PutUint16(header[54:56], phSize)
	binary.LittleEndian.PutUint16(header[56:58], uint16(len(segs)))

	offset := uint64(ehSize + phSize*len(segs))
	var phdrs, blob []byte
	for _, seg := range segs {
		memSize := seg.MemSize
		if memSize == 0 {
			memSize = uint64(len(seg.Data))
		}
		ph := make([]byte, phSize)
		binary.LittleEndian.PutUint32(ph[0:4], seg.Type)
		binary.LittleEndian.PutUint32(ph[4:8], seg.Flags)
		binary.LittleEndian.PutUint64(ph[8:16], offset)
		binary.LittleEndian.PutUint64(ph[16:24], seg.Vaddr)
		binary.LittleEndian.PutUint64(ph[24:32], seg.Vaddr)
		binary.LittleEndian.PutUint64(ph[32:40], uint64(len(seg.Data)))
		binary.LittleEndian.PutUint64(ph[40:48], memSize)
		binary.LittleEndian.PutUint64(ph[48:56], 0x1000)
		phdrs = append(phdrs, ph...)
		blob = append(blob, seg.Data...)
		offset += uint64(len(seg.Data))
	}

	file, err := os.Create(path)
	Expect(err).NotTo(HaveOccurred())
	defer func() { _ = file.Close() }()
	_, _ = file.Write(header)
	_, _ = file.Write(phdrs)
	_, _ = file.Write(blob)
}

const machineAArch64 = 183

var _ = Describe("ELF Loader", func() {
	var (
		tempDir string
		memory  *mmu.Memory
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "elf-loader-test")
		Expect(err).NotTo(HaveOccurred())
		memory = mmu.NewMemory()
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	elfPath := func(name string) string { return filepath.Join(tempDir, name) }

	code := []byte{
		0x40, 0x05, 0x80, 0xd2, // mov x0, #42
		0xc0, 0x03, 0x5f, 0xd6, // ret
	}

	Context("with a valid ARM64 ELF binary", func() {
		var path string

		BeforeEach(func() {
			path = elfPath("test.elf")
			buildELF(path, machineAArch64, 2, 0x400000, []segSpec{
				{Type: 1, Flags: 0x5, Vaddr: 0x400000, Data: code},
			})
		})

		It("places the code in guest memory", func() {
			prog, err := loader.Load(path, memory)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.EntryPoint).To(Equal(uint64(0x400000)))

			word, err := memory.Read32(0x400000)
			Expect(err).NotTo(HaveOccurred())
			Expect(word).To(Equal(uint32(0xD2800540))) // mov x0, #42
		})

		It("maps the code pages executable but not writable", func() {
			_, err := loader.Load(path, memory)
			Expect(err).NotTo(HaveOccurred())

			page, err := memory.Query(0x400000)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Flags & mmu.PageExec).NotTo(BeZero())
			Expect(page.Flags & mmu.PageWrite).To(BeZero())
		})

		It("records the mapping summary", func() {
			prog, err := loader.Load(path, memory)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments).To(HaveLen(1))
			Expect(prog.Segments[0].VirtAddr).To(Equal(uint64(0x400000)))
			Expect(prog.Segments[0].FileSize).To(Equal(uint64(len(code))))
			Expect(prog.Segments[0].Flags & mmu.PageExec).NotTo(BeZero())
		})

		It("maps a writable stack region below InitialSP", func() {
			prog, err := loader.Load(path, memory)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.InitialSP).To(Equal(uint64(loader.DefaultStackTop)))

			Expect(memory.Write64(prog.InitialSP-8, 0xDEADBEEF)).To(Succeed())
			got, err := memory.Read64(prog.InitialSP - 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(uint64(0xDEADBEEF)))
		})
	})

	Context("with multiple PT_LOAD segments", func() {
		It("maps code and data with their own protections", func() {
			path := elfPath("multi.elf")
			data := []byte{0x01, 0x02, 0x03, 0x04}
			buildELF(path, machineAArch64, 2, 0x400000, []segSpec{
				{Type: 1, Flags: 0x5, Vaddr: 0x400000, Data: code},
				{Type: 1, Flags: 0x6, Vaddr: 0x600000, Data: data},
			})

			prog, err := loader.Load(path, memory)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments).To(HaveLen(2))

			page, err := memory.Query(0x600000)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Flags & mmu.PageWrite).NotTo(BeZero())

			var buf [4]byte
			Expect(memory.ReadBytes(0x600000, buf[:])).To(Succeed())
			Expect(buf[:]).To(Equal(data))
		})
	})

	Context("with a BSS segment (Memsz > Filesz)", func() {
		It("zero-fills the region beyond the file bytes", func() {
			path := elfPath("bss.elf")
			initial := []byte{0x01, 0x02, 0x03, 0x04}
			buildELF(path, machineAArch64, 2, 0x400000, []segSpec{
				{Type: 1, Flags: 0x6, Vaddr: 0x600000, Data: initial, MemSize: 1024},
			})

			prog, err := loader.Load(path, memory)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments[0].MemSize).To(Equal(uint64(1024)))

			tail, err := memory.Read64(0x600000 + uint64(len(initial)))
			Expect(err).NotTo(HaveOccurred())
			Expect(tail).To(Equal(uint64(0)))
		})

		It("maps pure-BSS segments with zero file size", func() {
			path := elfPath("zero-filesz.elf")
			buildELF(path, machineAArch64, 2, 0x400000, []segSpec{
				{Type: 1, Flags: 0x6, Vaddr: 0x700000, MemSize: 4096},
			})

			prog, err := loader.Load(path, memory)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments[0].FileSize).To(Equal(uint64(0)))

			_, err = memory.Query(0x700000)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Context("with no loadable segments", func() {
		It("returns an empty mapping summary", func() {
			path := elfPath("no-load.elf")
			// A PT_NOTE segment only (type 4).
			buildELF(path, machineAArch64, 2, 0x400000, []segSpec{
				{Type: 4, Flags: 0x4, Vaddr: 0},
			})

			prog, err := loader.Load(path, memory)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments).To(BeEmpty())
			Expect(prog.EntryPoint).To(Equal(uint64(0x400000)))
		})
	})

	Context("with invalid inputs", func() {
		It("rejects a non-existent file", func() {
			_, err := loader.Load("/nonexistent/path/to/file.elf", memory)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("failed to open"))
		})

		It("rejects a non-ELF file", func() {
			path := elfPath("not-elf.bin")
			Expect(os.WriteFile(path, []byte("not an elf file"), 0644)).To(Succeed())

			_, err := loader.Load(path, memory)
			Expect(err).To(HaveOccurred())
		})

		It("rejects an x86-64 ELF", func() {
			path := elfPath("x86.elf")
			buildELF(path, 62, 2, 0, nil)

			_, err := loader.Load(path, memory)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("not an ARM64"))
		})
	})
})
