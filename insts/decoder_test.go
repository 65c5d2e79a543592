package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/aranetrace/guestfault"
	"github.com/sarchlab/aranetrace/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	decode := func(word uint32) insts.Instr {
		inst, err := decoder.Decode(word)
		Expect(err).NotTo(HaveOccurred())
		return inst
	}

	Describe("add/subtract (immediate)", func() {
		// ADD X0, X1, #1 -> 0x91000420
		It("decodes ADD X0, X1, #1", func() {
			inst := decode(0x91000420)
			Expect(inst.Op).To(Equal(insts.OpAddImm64))
			Expect(inst.Operand).To(Equal(insts.ShImm12RnRd{Sh: 0, Imm12: 1, Rn: 1, Rd: 0}))
		})

		// ADD X0, X1, #1, LSL #12 -> 0x91400420
		It("decodes the LSL #12 shifted form", func() {
			inst := decode(0x91400420)
			Expect(inst.Op).To(Equal(insts.OpAddImm64))
			Expect(inst.Operand).To(Equal(insts.ShImm12RnRd{Sh: 1, Imm12: 1, Rn: 1, Rd: 0}))
		})

		// CMP X1, #0 is SUBS XZR, X1, #0 -> 0xF100003F
		It("decodes CMP as SUBS with Rd=31", func() {
			inst := decode(0xF100003F)
			Expect(inst.Op).To(Equal(insts.OpSubsImm64))
			Expect(inst.Operand).To(Equal(insts.ShImm12RnRd{Sh: 0, Imm12: 0, Rn: 1, Rd: 31}))
		})

		// ADD W0, W1, #100 -> 0x11019020
		It("decodes the 32-bit form", func() {
			inst := decode(0x11019020)
			Expect(inst.Op).To(Equal(insts.OpAddImm32))
			Expect(inst.Operand).To(Equal(insts.ShImm12RnRd{Sh: 0, Imm12: 100, Rn: 1, Rd: 0}))
		})
	})

	Describe("logical (immediate)", func() {
		// AND X0, X1, #0xFF -> 0x92401C20
		It("decodes AND X0, X1, #0xFF", func() {
			inst := decode(0x92401C20)
			Expect(inst.Op).To(Equal(insts.OpAndImm64))
			Expect(inst.Operand).To(Equal(insts.LogicalImm{N: 1, Immr: 0, Imms: 7, Rn: 1, Rd: 0}))
		})

		// sf=1 opc=00 N=0 immr=0 imms=0b111111: reserved for the immediate
		// forms.
		It("rejects the reserved all-ones imms field", func() {
			_, err := decoder.Decode(0x9200FC20)
			Expect(err).To(HaveOccurred())
			Expect(guestfault.Is(err, guestfault.UndefinedEncoding)).To(BeTrue())
		})
	})

	Describe("bitfield", func() {
		// LSR X0, X1, #4 is UBFM X0, X1, #4, #63 -> 0xD344FC20
		It("decodes UBFM", func() {
			inst := decode(0xD344FC20)
			Expect(inst.Op).To(Equal(insts.OpUbfm64))
			Expect(inst.Operand).To(Equal(insts.Bitfield{N: 1, Immr: 4, Imms: 63, Rn: 1, Rd: 0}))
		})
	})

	Describe("move wide", func() {
		// MOVZ X0, #0x1234 -> 0xD2824680
		It("decodes MOVZ X0, #0x1234", func() {
			inst := decode(0xD2824680)
			Expect(inst.Op).To(Equal(insts.OpMovz64))
			Expect(inst.Operand).To(Equal(insts.HwImm16Rd{Hw: 0, Imm16: 0x1234, Rd: 0}))
		})

		// MOVK X5, #0xBEEF, LSL #16 -> 0xF2B7DDE5
		It("decodes a shifted MOVK", func() {
			inst := decode(0xF2B7DDE5)
			Expect(inst.Op).To(Equal(insts.OpMovk64))
			Expect(inst.Operand).To(Equal(insts.HwImm16Rd{Hw: 1, Imm16: 0xBEEF, Rd: 5}))
		})
	})

	Describe("PC-relative addressing", func() {
		// ADR X1, #0 -> 0x10000001
		It("decodes ADR", func() {
			inst := decode(0x10000001)
			Expect(inst.Op).To(Equal(insts.OpAdr))
			Expect(inst.Operand).To(Equal(insts.PcRelAddressing{Immhi: 0, Immlo: 0, Rd: 1}))
		})

		// ADRP X0, #0 -> 0x90000000
		It("decodes ADRP", func() {
			inst := decode(0x90000000)
			Expect(inst.Op).To(Equal(insts.OpAdrp))
			Expect(inst.Operand).To(Equal(insts.PcRelAddressing{Immhi: 0, Immlo: 0, Rd: 0}))
		})
	})

	Describe("branches", func() {
		// B #+8 -> 0x14000002
		It("decodes B", func() {
			inst := decode(0x14000002)
			Expect(inst.Op).To(Equal(insts.OpBImm))
			Expect(inst.Operand).To(Equal(insts.Imm26{Imm26: 2}))
		})

		// BL #+4 -> 0x94000001
		It("decodes BL", func() {
			inst := decode(0x94000001)
			Expect(inst.Op).To(Equal(insts.OpBlImm))
			Expect(inst.Operand).To(Equal(insts.Imm26{Imm26: 1}))
		})

		// B.EQ #+4 -> 0x54000020
		It("decodes B.cond", func() {
			inst := decode(0x54000020)
			Expect(inst.Op).To(Equal(insts.OpBCond))
			Expect(inst.Operand).To(Equal(insts.Imm19Cond{Imm19: 1, Cond: 0}))
		})

		// CBZ X0, #+8 -> 0xB4000040
		It("decodes CBZ", func() {
			inst := decode(0xB4000040)
			Expect(inst.Op).To(Equal(insts.OpCbz64))
			Expect(inst.Operand).To(Equal(insts.Imm19Rt{Imm19: 2, Rt: 0}))
		})

		// TBZ X0, #0, #+8 -> 0x36000040
		It("decodes TBZ", func() {
			inst := decode(0x36000040)
			Expect(inst.Op).To(Equal(insts.OpTbz))
			Expect(inst.Operand).To(Equal(insts.B5B40Imm14Rt{B5: 0, B40: 0, Imm14: 2, Rt: 0}))
		})

		// BR X3 -> 0xD61F0060, BLR X3 -> 0xD63F0060, RET -> 0xD65F03C0
		It("decodes the register branches", func() {
			Expect(decode(0xD61F0060).Op).To(Equal(insts.OpBr))
			Expect(decode(0xD63F0060).Op).To(Equal(insts.OpBlr))

			ret := decode(0xD65F03C0)
			Expect(ret.Op).To(Equal(insts.OpRet))
			Expect(ret.Operand).To(Equal(insts.UncondBranchReg{Rn: 30}))
		})
	})

	Describe("conditional select and compare", func() {
		// CSEL X0, X1, X2, EQ -> 0x9A820020
		It("decodes CSEL", func() {
			inst := decode(0x9A820020)
			Expect(inst.Op).To(Equal(insts.OpCsel64))
			Expect(inst.Operand).To(Equal(insts.RmCondRnRd{Rm: 2, Cond: 0, Rn: 1, Rd: 0}))
		})

		// CCMP X1, #2, #0, EQ -> 0xFA420820
		It("decodes CCMP (immediate)", func() {
			inst := decode(0xFA420820)
			Expect(inst.Op).To(Equal(insts.OpCcmpImm64))
			Expect(inst.Operand).To(Equal(insts.CondCmpImm{Imm5: 2, Cond: 0, Rn: 1, Nzcv: 0}))
		})
	})

	Describe("exception generation and hints", func() {
		// SVC #0 -> 0xD4000001
		It("decodes SVC", func() {
			inst := decode(0xD4000001)
			Expect(inst.Op).To(Equal(insts.OpSvc))
			Expect(inst.Operand).To(Equal(insts.ExceptionGen{Imm16: 0}))
		})

		// BRK #1 -> 0xD4200020
		It("decodes BRK", func() {
			inst := decode(0xD4200020)
			Expect(inst.Op).To(Equal(insts.OpBrk))
			Expect(inst.Operand).To(Equal(insts.ExceptionGen{Imm16: 1}))
		})

		// NOP -> 0xD503201F
		It("decodes NOP with no operand", func() {
			inst := decode(0xD503201F)
			Expect(inst.Op).To(Equal(insts.OpNop))
			Expect(inst.Operand).To(BeNil())
		})
	})

	Describe("load/store", func() {
		// LDR X0, [X1, #16] -> 0xF9400820
		It("decodes the unsigned-offset form", func() {
			inst := decode(0xF9400820)
			Expect(inst.Op).To(Equal(insts.OpLdrImm64))
			Expect(inst.Operand).To(Equal(insts.SizeImm12RnRt{Imm12: 2, Rn: 1, Rt: 0}))
		})

		// LDR X0, [SP, #16]! -> 0xF8410FE0
		It("decodes the pre-indexed form", func() {
			inst := decode(0xF8410FE0)
			Expect(inst.Op).To(Equal(insts.OpLdrImm64Pre))
			Expect(inst.Operand).To(Equal(insts.LoadStoreRegUnscaledImm{
				Imm9: 16, Mode: insts.IndexPre, Rn: 31, Rt: 0,
			}))
		})

		// STR X0, [X1], #-8 -> 0xF81F8420
		It("sign-extends the post-index offset", func() {
			inst := decode(0xF81F8420)
			Expect(inst.Op).To(Equal(insts.OpStrImm64Post))
			Expect(inst.Operand).To(Equal(insts.LoadStoreRegUnscaledImm{
				Imm9: -8, Mode: insts.IndexPost, Rn: 1, Rt: 0,
			}))
		})

		// LDR X0, #+8 (literal) -> 0x58000040
		It("decodes the literal form", func() {
			inst := decode(0x58000040)
			Expect(inst.Op).To(Equal(insts.OpLdrLit64))
			Expect(inst.Operand).To(Equal(insts.Imm19Rt{Imm19: 2, Rt: 0}))
		})

		// LDP X0, X1, [SP], #16 -> 0xA8C107E0
		It("decodes the post-indexed pair form", func() {
			inst := decode(0xA8C107E0)
			Expect(inst.Op).To(Equal(insts.OpLdp64))
			Expect(inst.Operand).To(Equal(insts.LoadStoreRegPairOffset{
				Imm7: 2, Mode: insts.PairPostIndex, Rt2: 1, Rn: 31, Rt: 0,
			}))
		})

		// LDR X0, [X1, X2] -> 0xF8626820
		It("decodes the register-offset form", func() {
			inst := decode(0xF8626820)
			Expect(inst.Op).To(Equal(insts.OpLdrReg64))
			Expect(inst.Operand).To(Equal(insts.LoadStoreRegRegOffset{
				Rm: 2, Option: 0b011, S: 0, Rn: 1, Rt: 0,
			}))
		})
	})

	Describe("undefined encodings", func() {
		It("reports the raw word", func() {
			_, err := decoder.Decode(0x00000000)
			Expect(err).To(HaveOccurred())
			Expect(guestfault.Is(err, guestfault.UndefinedEncoding)).To(BeTrue())

			var gf *guestfault.Error
			ok := false
			if e, isGf := err.(*guestfault.Error); isGf {
				gf, ok = e, true
			}
			Expect(ok).To(BeTrue())
			Expect(gf.Word).To(Equal(uint32(0)))
		})
	})
})
