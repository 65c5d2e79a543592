package lower_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/aranetrace/guestfault"
	"github.com/sarchlab/aranetrace/insts"
	"github.com/sarchlab/aranetrace/ir"
	"github.com/sarchlab/aranetrace/lower"
)

var _ = Describe("Lowerer", func() {
	var (
		decoder *insts.Decoder
		lowerer *lower.Lowerer
	)

	BeforeEach(func() {
		decoder = insts.NewDecoder()
		lowerer = lower.New()
	})

	compile := func(word uint32) *ir.IrBlock {
		inst, err := decoder.Decode(word)
		Expect(err).NotTo(HaveOccurred())
		block, err := lowerer.Compile(inst)
		Expect(err).NotTo(HaveOccurred())
		Expect(block.Length).To(Equal(4))
		return block
	}

	Describe("move wide", func() {
		// MOVZ X0, #0x1234 -> 0xD2824680
		It("lowers MOVZ to a single immediate write", func() {
			block := compile(0xD2824680)
			Expect(block.Entries).To(HaveLen(1))

			entry := block.Entries[0]
			Expect(entry.Node.Op).To(Equal(ir.OpValue))
			Expect(entry.Node.Lhs).To(Equal(ir.Imm(ir.U64, 0x1234)))
			Expect(entry.Dest).To(Equal(ir.Gpr(lowerer.GprId(0))))
		})

		// MOVZ WZR, #1 -> 0x5280003F
		It("discards a write to the zero register", func() {
			block := compile(0x5280003F)
			Expect(block.Entries).To(HaveLen(1))
			Expect(block.Entries[0].Dest).To(Equal(ir.DestinationNone()))
		})
	})

	Describe("add/subtract (immediate)", func() {
		// ADD X0, X1, #1 -> 0x91000420
		It("lowers ADD to one Add node", func() {
			block := compile(0x91000420)
			Expect(block.Entries).To(HaveLen(1))

			entry := block.Entries[0]
			Expect(entry.Node.Op).To(Equal(ir.OpAdd))
			Expect(entry.Node.Typ).To(Equal(ir.U64))
			Expect(entry.Node.Lhs).To(Equal(ir.Reg(ir.U64, lowerer.GprId(1))))
			Expect(entry.Node.Rhs).To(Equal(ir.Imm(ir.U64, 1)))
			Expect(entry.Dest).To(Equal(ir.Gpr(lowerer.GprId(0))))
		})

		// ADD SP, SP, #16 -> 0x910043FF
		It("resolves register 31 to the stack register on both sides", func() {
			block := compile(0x910043FF)
			entry := block.Entries[0]
			Expect(entry.Node.Lhs).To(Equal(ir.Reg(ir.U64, lowerer.StackId())))
			Expect(entry.Dest).To(Equal(ir.Gpr(lowerer.StackId())))
		})

		// CMP X1, #0 is SUBS XZR, X1, #0 -> 0xF100003F
		It("lowers CMP to a flag-only Subc", func() {
			block := compile(0xF100003F)
			Expect(block.Entries).To(HaveLen(1))

			entry := block.Entries[0]
			Expect(entry.Node.Op).To(Equal(ir.OpSubc))
			Expect(entry.Node.Lhs).To(Equal(ir.Reg(ir.U64, lowerer.GprId(1))))
			Expect(entry.Dest).To(Equal(ir.DestinationNone()))
		})
	})

	Describe("branches", func() {
		// B #+8 -> 0x14000002
		It("lowers B to an IP-relative add committed to Ip", func() {
			block := compile(0x14000002)
			Expect(block.Entries).To(HaveLen(1))

			entry := block.Entries[0]
			Expect(entry.Node.Op).To(Equal(ir.OpAdd))
			Expect(entry.Node.Lhs).To(Equal(ir.IpOperand()))
			Expect(entry.Node.Rhs).To(Equal(ir.Imm(ir.I64, 8)))
			Expect(entry.Dest).To(Equal(ir.IpDestination()))
		})

		// BL #+4 -> 0x94000001
		It("lowers BL to a link write followed by the Ip write", func() {
			block := compile(0x94000001)
			Expect(block.Entries).To(HaveLen(2))
			Expect(block.Entries[0].Dest).To(Equal(ir.Gpr(lowerer.GprId(30))))
			Expect(block.Entries[0].Node.Op).To(Equal(ir.OpAdd))
			Expect(block.Entries[1].Dest).To(Equal(ir.IpDestination()))
		})

		// B.EQ #+4 -> 0x54000020
		It("lowers B.cond to a single If terminating in Ip", func() {
			block := compile(0x54000020)
			Expect(block.Entries).To(HaveLen(1))

			entry := block.Entries[0]
			Expect(entry.Node.Op).To(Equal(ir.OpIf))
			Expect(entry.Node.Typ).To(Equal(ir.U64))
			Expect(entry.Dest).To(Equal(ir.IpDestination()))
		})

		// CBZ X0, #+8 -> 0xB4000040
		It("lowers CBZ like B.cond with an equality predicate", func() {
			block := compile(0xB4000040)
			Expect(block.Entries).To(HaveLen(1))
			Expect(block.Entries[0].Node.Op).To(Equal(ir.OpIf))
			Expect(block.Entries[0].Dest).To(Equal(ir.IpDestination()))
		})

		// RET -> 0xD65F03C0
		It("lowers RET to a register read committed to Ip", func() {
			block := compile(0xD65F03C0)
			Expect(block.Entries).To(HaveLen(1))
			Expect(block.Entries[0].Node.Lhs).To(Equal(ir.Reg(ir.U64, lowerer.GprId(30))))
			Expect(block.Entries[0].Dest).To(Equal(ir.IpDestination()))
		})

		It("writes Ip from exactly the terminal entry of every branch", func() {
			branches := []uint32{
				0x14000002, // B
				0x94000001, // BL
				0x54000020, // B.EQ
				0xB4000040, // CBZ
				0x36000040, // TBZ
				0xD61F0060, // BR
				0xD63F0060, // BLR
				0xD65F03C0, // RET
			}
			for _, word := range branches {
				block := compile(word)
				for i, entry := range block.Entries {
					if i == len(block.Entries)-1 {
						Expect(entry.Dest).To(Equal(ir.IpDestination()),
							"word 0x%08X must terminate in Ip", word)
					} else {
						Expect(entry.Dest).NotTo(Equal(ir.IpDestination()),
							"word 0x%08X may only write Ip terminally", word)
					}
				}
			}
		})

		It("never writes Ip from non-branch blocks", func() {
			others := []uint32{
				0xD2824680, // MOVZ
				0x91000420, // ADD
				0xF100003F, // CMP
				0xF9400820, // LDR
				0xD503201F, // NOP
			}
			for _, word := range others {
				block := compile(word)
				for _, entry := range block.Entries {
					Expect(entry.Dest).NotTo(Equal(ir.IpDestination()),
						"word 0x%08X must not write Ip", word)
				}
			}
		})
	})

	Describe("exception generation", func() {
		// SVC #0 -> 0xD4000001
		It("lowers SVC to a SystemCall destination", func() {
			block := compile(0xD4000001)
			Expect(block.Entries).To(HaveLen(1))

			entry := block.Entries[0]
			Expect(entry.Node.Op).To(Equal(ir.OpValue))
			Expect(entry.Node.Lhs).To(Equal(ir.Imm(ir.U16, 0)))
			Expect(entry.Dest).To(Equal(ir.SystemCallDestination()))
		})

		// BRK #1 -> 0xD4200020
		It("lowers BRK to an Exit destination", func() {
			block := compile(0xD4200020)
			Expect(block.Entries[0].Dest).To(Equal(ir.ExitDestination()))
			Expect(block.Entries[0].Node.Lhs).To(Equal(ir.Imm(ir.U16, 1)))
		})
	})

	Describe("load/store", func() {
		// LDR X0, [SP, #16]! -> 0xF8410FE0
		It("lowers pre-indexed LDR to a load then a base writeback", func() {
			block := compile(0xF8410FE0)
			Expect(block.Entries).To(HaveLen(2))

			load := block.Entries[0]
			Expect(load.Node.Op).To(Equal(ir.OpLoad))
			Expect(load.Node.Typ).To(Equal(ir.U64))
			Expect(load.Node.Lhs.Kind).To(Equal(ir.OperandIr))
			addr := load.Node.Lhs.Node
			Expect(addr.Op).To(Equal(ir.OpAdd))
			Expect(addr.Lhs).To(Equal(ir.Reg(ir.U64, lowerer.StackId())))
			Expect(addr.Rhs).To(Equal(ir.Imm(ir.U64, 16)))
			Expect(load.Dest).To(Equal(ir.Gpr(lowerer.GprId(0))))

			wb := block.Entries[1]
			Expect(wb.Node.Op).To(Equal(ir.OpAdd))
			Expect(wb.Node.Lhs).To(Equal(ir.Reg(ir.U64, lowerer.StackId())))
			Expect(wb.Node.Rhs).To(Equal(ir.Imm(ir.I64, 16)))
			Expect(wb.Dest).To(Equal(ir.Gpr(lowerer.StackId())))
		})

		// LDR X1, [X1, #8]! -> 0xF8408C21: writeback with Rn == Rt.
		It("suppresses writeback when the base is also the destination", func() {
			block := compile(0xF8408C21)
			Expect(block.Entries).To(HaveLen(1))
			Expect(block.Entries[0].Node.Op).To(Equal(ir.OpLoad))
		})

		// STR X0, [X1], #-8 -> 0xF81F8420
		It("lowers post-indexed STR to a store at the base then writeback", func() {
			block := compile(0xF81F8420)
			Expect(block.Entries).To(HaveLen(2))

			store := block.Entries[0]
			Expect(store.Node.Op).To(Equal(ir.OpValue))
			Expect(store.Dest).To(Equal(ir.MemoryRel(lowerer.GprId(1), 0)))

			wb := block.Entries[1]
			negEight := int64(-8)
			Expect(wb.Node.Rhs).To(Equal(ir.Imm(ir.I64, uint64(negEight))))
			Expect(wb.Dest).To(Equal(ir.Gpr(lowerer.GprId(1))))
		})

		// LDRSB X0, [X1] -> sign-extending byte load, 0x39800020
		It("sign-extends signed loads", func() {
			block := compile(0x39800020)
			entry := block.Entries[0]
			Expect(entry.Node.Op).To(Equal(ir.OpSextCast))
			Expect(entry.Node.Typ).To(Equal(ir.I64))
			Expect(entry.Node.Lhs.Node.Op).To(Equal(ir.OpLoad))
			Expect(entry.Node.Lhs.Node.Typ).To(Equal(ir.I8))
		})

		// LDP X0, X1, [SP], #16 -> 0xA8C107E0
		It("lowers post-indexed LDP to two loads plus writeback", func() {
			block := compile(0xA8C107E0)
			Expect(block.Entries).To(HaveLen(3))

			Expect(block.Entries[0].Node.Op).To(Equal(ir.OpLoad))
			Expect(block.Entries[0].Node.Lhs).To(Equal(ir.Reg(ir.U64, lowerer.StackId())))
			Expect(block.Entries[0].Dest).To(Equal(ir.Gpr(lowerer.GprId(0))))

			second := block.Entries[1]
			Expect(second.Node.Op).To(Equal(ir.OpLoad))
			Expect(second.Node.Lhs.Node.Rhs).To(Equal(ir.Imm(ir.U64, 8)))
			Expect(second.Dest).To(Equal(ir.Gpr(lowerer.GprId(1))))

			Expect(block.Entries[2].Node.Rhs).To(Equal(ir.Imm(ir.I64, 16)))
			Expect(block.Entries[2].Dest).To(Equal(ir.Gpr(lowerer.StackId())))
		})

		// STP X0, X1, [SP, #-16]! -> 0xA9BF07E0
		It("lowers pre-indexed STP to two stores plus writeback", func() {
			block := compile(0xA9BF07E0)
			Expect(block.Entries).To(HaveLen(3))
			Expect(block.Entries[0].Dest).To(Equal(ir.MemoryRel(lowerer.StackId(), -16)))
			Expect(block.Entries[1].Dest).To(Equal(ir.MemoryRel(lowerer.StackId(), -8)))
			Expect(block.Entries[2].Dest).To(Equal(ir.Gpr(lowerer.StackId())))
		})

		// STR X0, [X1, X2] -> 0xF8226820: no MemoryRel shape exists.
		It("refuses register-offset stores as not implemented", func() {
			inst, err := decoder.Decode(0xF8226820)
			Expect(err).NotTo(HaveOccurred())

			_, err = lowerer.Compile(inst)
			Expect(err).To(HaveOccurred())
			Expect(guestfault.Is(err, guestfault.NotImplemented)).To(BeTrue())
		})
	})

	Describe("conditional compare", func() {
		// CCMP X1, #2, #0, EQ -> 0xFA420820
		It("lowers CCMP to an If over Subc and an NZCV fold, committed to Flags", func() {
			block := compile(0xFA420820)
			Expect(block.Entries).To(HaveLen(1))

			entry := block.Entries[0]
			Expect(entry.Node.Op).To(Equal(ir.OpIf))
			Expect(entry.Node.Typ).To(Equal(ir.Void))
			Expect(entry.Node.Then.Node.Op).To(Equal(ir.OpSubc))
			Expect(entry.Node.Else.Node.Op).To(Equal(ir.OpOr))
			Expect(entry.Dest).To(Equal(ir.FlagsDestination()))
		})
	})

	Describe("destination inventory", func() {
		It("only emits destinations from the block algebra", func() {
			words := []uint32{
				0xD2824680, 0x91000420, 0xF100003F, 0x14000002, 0x94000001,
				0x54000020, 0xB4000040, 0xD4000001, 0xD4200020, 0xF8410FE0,
				0xA8C107E0, 0xA9BF07E0, 0xD503201F, 0xD65F03C0, 0xFA420820,
			}
			valid := map[ir.DestKind]bool{
				ir.DestNone: true, ir.DestGpr: true, ir.DestFpr: true,
				ir.DestIp: true, ir.DestFlags: true, ir.DestMemoryRel: true,
				ir.DestSystemCall: true, ir.DestExit: true,
			}
			for _, word := range words {
				for _, entry := range compile(word).Entries {
					Expect(valid[entry.Dest.Kind]).To(BeTrue())
				}
			}
		})
	})
})
