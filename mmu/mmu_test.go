package mmu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/aranetrace/guestfault"
	"github.com/sarchlab/aranetrace/mmu"
)

var _ = Describe("Memory", func() {
	var m *mmu.Memory

	BeforeEach(func() {
		m = mmu.NewMemory()
	})

	Describe("Query", func() {
		It("faults on unmapped addresses", func() {
			_, err := m.Query(0x1000)
			Expect(err).To(HaveOccurred())
			Expect(guestfault.Is(err, guestfault.PageFault)).To(BeTrue())
		})

		It("translates mapped pages and reports flags", func() {
			m.Map(0x1000, mmu.PageSize, mmu.PageRead|mmu.PageExec)

			page, err := m.Query(0x1234)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Base).To(Equal(uint64(0x1000)))
			Expect(page.Flags).To(Equal(mmu.PageRead | mmu.PageExec))
			Expect(page.Frame).To(HaveLen(mmu.PageSize))
		})

		It("hits the TLB on repeated translations", func() {
			m.Map(0x1000, mmu.PageSize, mmu.PageRead)

			_, err := m.Query(0x1000)
			Expect(err).NotTo(HaveOccurred())
			_, err = m.Query(0x1FFF)
			Expect(err).NotTo(HaveOccurred())

			stats := m.Stats()
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(1)))
		})

		It("carries the faulting address in the error", func() {
			_, err := m.Query(0xDEAD0000)
			gf, ok := err.(*guestfault.Error)
			Expect(ok).To(BeTrue())
			Expect(gf.Addr).To(Equal(uint64(0xDEAD0000)))
		})
	})

	Describe("byte access", func() {
		BeforeEach(func() {
			m.Map(0x1000, 2*mmu.PageSize, mmu.PageRead|mmu.PageWrite)
		})

		It("round-trips little-endian 64-bit values", func() {
			Expect(m.Write64(0x1100, 0x1122334455667788)).To(Succeed())

			got, err := m.Read64(0x1100)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(uint64(0x1122334455667788)))

			var low [1]byte
			Expect(m.ReadBytes(0x1100, low[:])).To(Succeed())
			Expect(low[0]).To(Equal(byte(0x88)))
		})

		It("services accesses that straddle a page boundary", func() {
			boundary := uint64(0x1000 + mmu.PageSize - 4)
			Expect(m.Write64(boundary, 0xAABBCCDD00112233)).To(Succeed())

			got, err := m.Read64(boundary)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(uint64(0xAABBCCDD00112233)))
		})

		It("faults when a straddling access crosses into unmapped space", func() {
			last := uint64(0x1000 + 2*mmu.PageSize - 2)
			var buf [4]byte
			err := m.ReadBytes(last, buf[:])
			Expect(guestfault.Is(err, guestfault.PageFault)).To(BeTrue())
		})
	})
})
