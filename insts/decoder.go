package insts

import (
	"fmt"

	"github.com/sarchlab/aranetrace/bitmatch"
	"github.com/sarchlab/aranetrace/guestfault"
	"github.com/sarchlab/aranetrace/ir"
)

// Decoder maps 32-bit AArch64 instruction words to Instr values using a
// declaratively populated bitmatch.Matcher. Decoding is deterministic and
// side-effect free; a Decoder can be shared across goroutines.
type Decoder struct {
	matcher *bitmatch.Matcher[Instr]
}

// Decode decodes one little-endian instruction word. A word no pattern
// claims, or a matched pattern whose fields carry a reserved value, returns
// a guestfault error of kind UndefinedEncoding.
func (d *Decoder) Decode(word uint32) (Instr, error) {
	out, matched, err := d.matcher.Handle(word)
	if !matched {
		return Instr{}, guestfault.UndefinedEncodingError(word)
	}
	if err != nil {
		return Instr{}, guestfault.UndefinedEncodingCause(word, err)
	}
	return out, nil
}

func reg(lo int) bitmatch.FieldSpec[uint8] { return bitmatch.Bits[uint8](lo, lo+5) }

// NewDecoder builds the decoder table. Patterns follow the ARM ARM field
// layouts left to right (bit 31 down to bit 0) with spaces at field
// boundaries; each row binds the fields its operand record needs.
func NewDecoder() *Decoder {
	m := bitmatch.New[Instr]()

	// Add/subtract (immediate): sf op S 100010 sh imm12 Rn Rd.
	bindAddSubImm(m, "0 0 0 100010 x xxxxxxxxxxxx xxxxx xxxxx", OpAddImm32)
	bindAddSubImm(m, "0 0 1 100010 x xxxxxxxxxxxx xxxxx xxxxx", OpAddsImm32)
	bindAddSubImm(m, "0 1 0 100010 x xxxxxxxxxxxx xxxxx xxxxx", OpSubImm32)
	bindAddSubImm(m, "0 1 1 100010 x xxxxxxxxxxxx xxxxx xxxxx", OpSubsImm32)
	bindAddSubImm(m, "1 0 0 100010 x xxxxxxxxxxxx xxxxx xxxxx", OpAddImm64)
	bindAddSubImm(m, "1 0 1 100010 x xxxxxxxxxxxx xxxxx xxxxx", OpAddsImm64)
	bindAddSubImm(m, "1 1 0 100010 x xxxxxxxxxxxx xxxxx xxxxx", OpSubImm64)
	bindAddSubImm(m, "1 1 1 100010 x xxxxxxxxxxxx xxxxx xxxxx", OpSubsImm64)

	// Logical (immediate): sf opc 100100 N immr imms Rn Rd. The 32-bit
	// forms require N == 0; N == 1 there is a reserved encoding.
	bindLogicalImm(m, "0 00 100100 0 xxxxxx xxxxxx xxxxx xxxxx", OpAndImm32)
	bindLogicalImm(m, "0 01 100100 0 xxxxxx xxxxxx xxxxx xxxxx", OpOrrImm32)
	bindLogicalImm(m, "0 10 100100 0 xxxxxx xxxxxx xxxxx xxxxx", OpEorImm32)
	bindLogicalImm(m, "0 11 100100 0 xxxxxx xxxxxx xxxxx xxxxx", OpAndsImm32)
	bindLogicalImm(m, "1 00 100100 x xxxxxx xxxxxx xxxxx xxxxx", OpAndImm64)
	bindLogicalImm(m, "1 01 100100 x xxxxxx xxxxxx xxxxx xxxxx", OpOrrImm64)
	bindLogicalImm(m, "1 10 100100 x xxxxxx xxxxxx xxxxx xxxxx", OpEorImm64)
	bindLogicalImm(m, "1 11 100100 x xxxxxx xxxxxx xxxxx xxxxx", OpAndsImm64)

	// Bitfield: sf opc 100110 N immr imms Rn Rd, with N fixed to sf.
	bindBitfield(m, "0 00 100110 0 xxxxxx xxxxxx xxxxx xxxxx", OpSbfm32)
	bindBitfield(m, "0 01 100110 0 xxxxxx xxxxxx xxxxx xxxxx", OpBfm32)
	bindBitfield(m, "0 10 100110 0 xxxxxx xxxxxx xxxxx xxxxx", OpUbfm32)
	bindBitfield(m, "1 00 100110 1 xxxxxx xxxxxx xxxxx xxxxx", OpSbfm64)
	bindBitfield(m, "1 01 100110 1 xxxxxx xxxxxx xxxxx xxxxx", OpBfm64)
	bindBitfield(m, "1 10 100110 1 xxxxxx xxxxxx xxxxx xxxxx", OpUbfm64)

	// Logical (shifted register): sf opc 01010 shift 0 Rm imm6 Rn Rd. The
	// 32-bit forms keep bit 15 clear (shift amounts are 0..31).
	bindShiftedReg(m, "0 00 01010 xx 0 xxxxx 0xxxxx xxxxx xxxxx", OpAndShiftedReg32)
	bindShiftedReg(m, "0 01 01010 xx 0 xxxxx 0xxxxx xxxxx xxxxx", OpOrrShiftedReg32)
	bindShiftedReg(m, "0 10 01010 xx 0 xxxxx 0xxxxx xxxxx xxxxx", OpEorShiftedReg32)
	bindShiftedReg(m, "0 11 01010 xx 0 xxxxx 0xxxxx xxxxx xxxxx", OpAndsShiftedReg32)
	bindShiftedReg(m, "1 00 01010 xx 0 xxxxx xxxxxx xxxxx xxxxx", OpAndShiftedReg64)
	bindShiftedReg(m, "1 01 01010 xx 0 xxxxx xxxxxx xxxxx xxxxx", OpOrrShiftedReg64)
	bindShiftedReg(m, "1 10 01010 xx 0 xxxxx xxxxxx xxxxx xxxxx", OpEorShiftedReg64)
	bindShiftedReg(m, "1 11 01010 xx 0 xxxxx xxxxxx xxxxx xxxxx", OpAndsShiftedReg64)

	// Add/subtract (shifted register): sf op S 01011 shift 0 Rm imm6 Rn Rd.
	// shift == 0b11 (ROR) is reserved for add/sub, rejected by the shift
	// field converter.
	bindAddSubShiftedReg(m, "0 0 0 01011 xx 0 xxxxx 0xxxxx xxxxx xxxxx", OpAddShiftedReg32)
	bindAddSubShiftedReg(m, "0 0 1 01011 xx 0 xxxxx 0xxxxx xxxxx xxxxx", OpAddsShiftedReg32)
	bindAddSubShiftedReg(m, "0 1 0 01011 xx 0 xxxxx 0xxxxx xxxxx xxxxx", OpSubShiftedReg32)
	bindAddSubShiftedReg(m, "0 1 1 01011 xx 0 xxxxx 0xxxxx xxxxx xxxxx", OpSubsShiftedReg32)
	bindAddSubShiftedReg(m, "1 0 0 01011 xx 0 xxxxx xxxxxx xxxxx xxxxx", OpAddShiftedReg64)
	bindAddSubShiftedReg(m, "1 0 1 01011 xx 0 xxxxx xxxxxx xxxxx xxxxx", OpAddsShiftedReg64)
	bindAddSubShiftedReg(m, "1 1 0 01011 xx 0 xxxxx xxxxxx xxxxx xxxxx", OpSubShiftedReg64)
	bindAddSubShiftedReg(m, "1 1 1 01011 xx 0 xxxxx xxxxxx xxxxx xxxxx", OpSubsShiftedReg64)

	// Add/subtract (extended register), 64-bit: sf op S 01011 00 1 Rm
	// option imm3 Rn Rd. imm3 > 4 is reserved.
	bindAddSubExtReg(m, "1 0 0 01011 00 1 xxxxx xxx xxx xxxxx xxxxx", OpAddExtReg64)
	bindAddSubExtReg(m, "1 0 1 01011 00 1 xxxxx xxx xxx xxxxx xxxxx", OpAddsExtReg64)
	bindAddSubExtReg(m, "1 1 0 01011 00 1 xxxxx xxx xxx xxxxx xxxxx", OpSubExtReg64)
	bindAddSubExtReg(m, "1 1 1 01011 00 1 xxxxx xxx xxx xxxxx xxxxx", OpSubsExtReg64)

	// Move wide (immediate): sf opc 100101 hw imm16 Rd. 32-bit forms only
	// allow hw values 0 and 1.
	bindMoveWide(m, "0 00 100101 0x xxxxxxxxxxxxxxxx xxxxx", OpMovn32)
	bindMoveWide(m, "0 10 100101 0x xxxxxxxxxxxxxxxx xxxxx", OpMovz32)
	bindMoveWide(m, "0 11 100101 0x xxxxxxxxxxxxxxxx xxxxx", OpMovk32)
	bindMoveWide(m, "1 00 100101 xx xxxxxxxxxxxxxxxx xxxxx", OpMovn64)
	bindMoveWide(m, "1 10 100101 xx xxxxxxxxxxxxxxxx xxxxx", OpMovz64)
	bindMoveWide(m, "1 11 100101 xx xxxxxxxxxxxxxxxx xxxxx", OpMovk64)

	// PC-relative addressing: op immlo 10000 immhi Rd.
	bindPcRel(m, "0 xx 10000 xxxxxxxxxxxxxxxxxxx xxxxx", OpAdr)
	bindPcRel(m, "1 xx 10000 xxxxxxxxxxxxxxxxxxx xxxxx", OpAdrp)

	// Unconditional branch (immediate): op 00101 imm26.
	bindBranchImm(m, "0 00101 xxxxxxxxxxxxxxxxxxxxxxxxxx", OpBImm)
	bindBranchImm(m, "1 00101 xxxxxxxxxxxxxxxxxxxxxxxxxx", OpBlImm)

	// Conditional branch: 0101010 0 imm19 0 cond.
	bitmatch.Bind2(m, "01010100 xxxxxxxxxxxxxxxxxxx 0 xxxx",
		bitmatch.Bits[uint32](5, 24), bitmatch.Bits[uint8](0, 4),
		func(_ uint32, imm19 uint32, cond uint8) (Instr, error) {
			return Instr{Op: OpBCond, Operand: Imm19Cond{Imm19: imm19, Cond: cond}}, nil
		})

	// Compare & branch: sf 011010 op imm19 Rt.
	bindCmpBranch(m, "0 011010 0 xxxxxxxxxxxxxxxxxxx xxxxx", OpCbz32)
	bindCmpBranch(m, "0 011010 1 xxxxxxxxxxxxxxxxxxx xxxxx", OpCbnz32)
	bindCmpBranch(m, "1 011010 0 xxxxxxxxxxxxxxxxxxx xxxxx", OpCbz64)
	bindCmpBranch(m, "1 011010 1 xxxxxxxxxxxxxxxxxxx xxxxx", OpCbnz64)

	// Test & branch: b5 011011 op b40 imm14 Rt.
	bindTestBranch(m, "x 011011 0 xxxxx xxxxxxxxxxxxxx xxxxx", OpTbz)
	bindTestBranch(m, "x 011011 1 xxxxx xxxxxxxxxxxxxx xxxxx", OpTbnz)

	// Unconditional branch (register): 1101011 opc 11111 000000 Rn 00000.
	bindBranchReg(m, "1101011 0000 11111 000000 xxxxx 00000", OpBr)
	bindBranchReg(m, "1101011 0001 11111 000000 xxxxx 00000", OpBlr)
	bindBranchReg(m, "1101011 0010 11111 000000 xxxxx 00000", OpRet)

	// Conditional select: sf op 0 11010100 Rm cond op2 Rn Rd.
	bindCondSelect(m, "0 0 0 11010100 xxxxx xxxx 00 xxxxx xxxxx", OpCsel32)
	bindCondSelect(m, "0 0 0 11010100 xxxxx xxxx 01 xxxxx xxxxx", OpCsinc32)
	bindCondSelect(m, "0 1 0 11010100 xxxxx xxxx 00 xxxxx xxxxx", OpCsinv32)
	bindCondSelect(m, "0 1 0 11010100 xxxxx xxxx 01 xxxxx xxxxx", OpCsneg32)
	bindCondSelect(m, "1 0 0 11010100 xxxxx xxxx 00 xxxxx xxxxx", OpCsel64)
	bindCondSelect(m, "1 0 0 11010100 xxxxx xxxx 01 xxxxx xxxxx", OpCsinc64)
	bindCondSelect(m, "1 1 0 11010100 xxxxx xxxx 00 xxxxx xxxxx", OpCsinv64)
	bindCondSelect(m, "1 1 0 11010100 xxxxx xxxx 01 xxxxx xxxxx", OpCsneg64)

	// Conditional compare (immediate): sf op 1 11010010 imm5 cond 1 0 Rn 0
	// nzcv.
	bindCondCmpImm(m, "0 0 1 11010010 xxxxx xxxx 1 0 xxxxx 0 xxxx", OpCcmnImm32)
	bindCondCmpImm(m, "0 1 1 11010010 xxxxx xxxx 1 0 xxxxx 0 xxxx", OpCcmpImm32)
	bindCondCmpImm(m, "1 0 1 11010010 xxxxx xxxx 1 0 xxxxx 0 xxxx", OpCcmnImm64)
	bindCondCmpImm(m, "1 1 1 11010010 xxxxx xxxx 1 0 xxxxx 0 xxxx", OpCcmpImm64)

	// Exception generation: 11010100 opc imm16 op2 LL.
	bindException(m, "11010100 000 xxxxxxxxxxxxxxxx 000 01", OpSvc)
	bindException(m, "11010100 001 xxxxxxxxxxxxxxxx 000 00", OpBrk)
	bindException(m, "11010100 010 xxxxxxxxxxxxxxxx 000 00", OpHlt)

	// System register move (MRS): 1101010100 1 1 o0 op1 CRn CRm op2 Rt.
	bitmatch.Bind6(m, "1101010100 1 1 x xxx xxxx xxxx xxx xxxxx",
		bitmatch.Bits[uint8](19, 20), bitmatch.Bits[uint8](16, 19),
		bitmatch.Bits[uint8](12, 16), bitmatch.Bits[uint8](8, 12),
		bitmatch.Bits[uint8](5, 8), reg(0),
		func(_ uint32, o0, op1, crn, crm, op2, rt uint8) (Instr, error) {
			return Instr{Op: OpMrs, Operand: SysRegMov{
				Op0: 2 + o0, Op1: op1, Crn: crn, Crm: crm, Op2: op2, Rt: rt,
			}}, nil
		})

	// Hints. Fully fixed encodings, bound nullary.
	bindHint(m, "11010101 00000011 0010 0000 000 11111", OpNop)
	bindHint(m, "11010101 00000011 0010 0000 001 11111", OpYield)
	bindHint(m, "11010101 00000011 0010 0000 010 11111", OpWfe)
	bindHint(m, "11010101 00000011 0010 0000 011 11111", OpWfi)
	bindHint(m, "11010101 00000011 0010 0000 100 11111", OpSev)
	bindHint(m, "11010101 00000011 0010 0000 101 11111", OpSevl)

	// Load/store register (unsigned immediate): size 111 V 01 opc imm12 Rn
	// Rt.
	bindLdStUnsignedImm(m, "00 111 0 01 00 xxxxxxxxxxxx xxxxx xxxxx", OpStrbImm)
	bindLdStUnsignedImm(m, "00 111 0 01 01 xxxxxxxxxxxx xxxxx xxxxx", OpLdrbImm)
	bindLdStUnsignedImm(m, "00 111 0 01 10 xxxxxxxxxxxx xxxxx xxxxx", OpLdrsbImm64)
	bindLdStUnsignedImm(m, "00 111 0 01 11 xxxxxxxxxxxx xxxxx xxxxx", OpLdrsbImm32)
	bindLdStUnsignedImm(m, "01 111 0 01 00 xxxxxxxxxxxx xxxxx xxxxx", OpStrhImm)
	bindLdStUnsignedImm(m, "01 111 0 01 01 xxxxxxxxxxxx xxxxx xxxxx", OpLdrhImm)
	bindLdStUnsignedImm(m, "01 111 0 01 10 xxxxxxxxxxxx xxxxx xxxxx", OpLdrshImm64)
	bindLdStUnsignedImm(m, "01 111 0 01 11 xxxxxxxxxxxx xxxxx xxxxx", OpLdrshImm32)
	bindLdStUnsignedImm(m, "10 111 0 01 00 xxxxxxxxxxxx xxxxx xxxxx", OpStrImm32)
	bindLdStUnsignedImm(m, "10 111 0 01 01 xxxxxxxxxxxx xxxxx xxxxx", OpLdrImm32)
	bindLdStUnsignedImm(m, "11 111 0 01 00 xxxxxxxxxxxx xxxxx xxxxx", OpStrImm64)
	bindLdStUnsignedImm(m, "11 111 0 01 01 xxxxxxxxxxxx xxxxx xxxxx", OpLdrImm64)

	// Load/store register (pre/post-indexed): size 111 V 00 opc 0 imm9
	// mode Rn Rt, with mode 01 = post-index and 11 = pre-index.
	bindLdStIndexed(m, "00 111 0 00 00 0 xxxxxxxxx 01 xxxxx xxxxx", OpStrbImmPost, IndexPost)
	bindLdStIndexed(m, "00 111 0 00 00 0 xxxxxxxxx 11 xxxxx xxxxx", OpStrbImmPre, IndexPre)
	bindLdStIndexed(m, "00 111 0 00 01 0 xxxxxxxxx 01 xxxxx xxxxx", OpLdrbImmPost, IndexPost)
	bindLdStIndexed(m, "00 111 0 00 01 0 xxxxxxxxx 11 xxxxx xxxxx", OpLdrbImmPre, IndexPre)
	bindLdStIndexed(m, "10 111 0 00 00 0 xxxxxxxxx 01 xxxxx xxxxx", OpStrImm32Post, IndexPost)
	bindLdStIndexed(m, "10 111 0 00 00 0 xxxxxxxxx 11 xxxxx xxxxx", OpStrImm32Pre, IndexPre)
	bindLdStIndexed(m, "10 111 0 00 01 0 xxxxxxxxx 01 xxxxx xxxxx", OpLdrImm32Post, IndexPost)
	bindLdStIndexed(m, "10 111 0 00 01 0 xxxxxxxxx 11 xxxxx xxxxx", OpLdrImm32Pre, IndexPre)
	bindLdStIndexed(m, "11 111 0 00 00 0 xxxxxxxxx 01 xxxxx xxxxx", OpStrImm64Post, IndexPost)
	bindLdStIndexed(m, "11 111 0 00 00 0 xxxxxxxxx 11 xxxxx xxxxx", OpStrImm64Pre, IndexPre)
	bindLdStIndexed(m, "11 111 0 00 01 0 xxxxxxxxx 01 xxxxx xxxxx", OpLdrImm64Post, IndexPost)
	bindLdStIndexed(m, "11 111 0 00 01 0 xxxxxxxxx 11 xxxxx xxxxx", OpLdrImm64Pre, IndexPre)

	// Load register (literal): opc 011 V 00 imm19 Rt.
	bindLdrLiteral(m, "00 011 0 00 xxxxxxxxxxxxxxxxxxx xxxxx", OpLdrLit32)
	bindLdrLiteral(m, "01 011 0 00 xxxxxxxxxxxxxxxxxxx xxxxx", OpLdrLit64)

	// Load/store pair: opc 101 V mode L imm7 Rt2 Rn Rt. mode 000 (the
	// no-allocate STNP/LDNP forms) is rejected by the mode converter.
	bindLdStPair(m, "00 101 0 0xx 0 xxxxxxx xxxxx xxxxx xxxxx", OpStp32)
	bindLdStPair(m, "00 101 0 0xx 1 xxxxxxx xxxxx xxxxx xxxxx", OpLdp32)
	bindLdStPair(m, "10 101 0 0xx 0 xxxxxxx xxxxx xxxxx xxxxx", OpStp64)
	bindLdStPair(m, "10 101 0 0xx 1 xxxxxxx xxxxx xxxxx xxxxx", OpLdp64)

	// Load/store register (register offset): size 111 V 00 opc 1 Rm option
	// S 10 Rn Rt. option values without bit 1 set are reserved.
	bindLdStRegOffset(m, "10 111 0 00 00 1 xxxxx xxx x 10 xxxxx xxxxx", OpStrReg32)
	bindLdStRegOffset(m, "10 111 0 00 01 1 xxxxx xxx x 10 xxxxx xxxxx", OpLdrReg32)
	bindLdStRegOffset(m, "11 111 0 00 00 1 xxxxx xxx x 10 xxxxx xxxxx", OpStrReg64)
	bindLdStRegOffset(m, "11 111 0 00 01 1 xxxxx xxx x 10 xxxxx xxxxx", OpLdrReg64)

	return &Decoder{matcher: m}
}

func bindAddSubImm(m *bitmatch.Matcher[Instr], pattern string, op Op) {
	bitmatch.Bind4(m, pattern,
		bitmatch.Bits[uint8](22, 23), bitmatch.Bits[uint16](10, 22), reg(5), reg(0),
		func(_ uint32, sh uint8, imm12 uint16, rn, rd uint8) (Instr, error) {
			return Instr{Op: op, Operand: ShImm12RnRd{Sh: sh, Imm12: imm12, Rn: rn, Rd: rd}}, nil
		})
}

func bindLogicalImm(m *bitmatch.Matcher[Instr], pattern string, op Op) {
	bitmatch.Bind5(m, pattern,
		bitmatch.Bits[uint8](22, 23), bitmatch.Bits[uint8](16, 22),
		bitmatch.Bits[uint8](10, 16), reg(5), reg(0),
		func(word uint32, n, immr, imms, rn, rd uint8) (Instr, error) {
			// Reserved N:imms combinations are undefined encodings, not
			// lowering-time failures.
			if _, _, err := ir.DecodeBitMasks(n, imms, immr, true, word>>31 == 1); err != nil {
				return Instr{}, err
			}
			return Instr{Op: op, Operand: LogicalImm{N: n, Immr: immr, Imms: imms, Rn: rn, Rd: rd}}, nil
		})
}

func bindBitfield(m *bitmatch.Matcher[Instr], pattern string, op Op) {
	bitmatch.Bind5(m, pattern,
		bitmatch.Bits[uint8](22, 23), bitmatch.Bits[uint8](16, 22),
		bitmatch.Bits[uint8](10, 16), reg(5), reg(0),
		func(word uint32, n, immr, imms, rn, rd uint8) (Instr, error) {
			if _, _, err := ir.DecodeBitMasks(n, imms, immr, false, word>>31 == 1); err != nil {
				return Instr{}, err
			}
			return Instr{Op: op, Operand: Bitfield{N: n, Immr: immr, Imms: imms, Rn: rn, Rd: rd}}, nil
		})
}

func bindShiftedReg(m *bitmatch.Matcher[Instr], pattern string, op Op) {
	bitmatch.Bind5(m, pattern,
		bitmatch.Bits[uint8](22, 24), reg(16), bitmatch.Bits[uint8](10, 16), reg(5), reg(0),
		func(_ uint32, shift, rm, imm6, rn, rd uint8) (Instr, error) {
			return Instr{Op: op, Operand: ShiftRmImm6RnRd{Shift: shift, Rm: rm, Imm6: imm6, Rn: rn, Rd: rd}}, nil
		})
}

func bindAddSubShiftedReg(m *bitmatch.Matcher[Instr], pattern string, op Op) {
	shift := bitmatch.EnumBits[uint8](22, 24, func(raw uint64) bool { return raw != 0b11 })
	bitmatch.Bind5(m, pattern,
		shift, reg(16), bitmatch.Bits[uint8](10, 16), reg(5), reg(0),
		func(_ uint32, shift, rm, imm6, rn, rd uint8) (Instr, error) {
			return Instr{Op: op, Operand: ShiftRmImm6RnRd{Shift: shift, Rm: rm, Imm6: imm6, Rn: rn, Rd: rd}}, nil
		})
}

func bindAddSubExtReg(m *bitmatch.Matcher[Instr], pattern string, op Op) {
	imm3 := bitmatch.EnumBits[uint8](10, 13, func(raw uint64) bool { return raw <= 4 })
	bitmatch.Bind5(m, pattern,
		reg(16), bitmatch.Bits[uint8](13, 16), imm3, reg(5), reg(0),
		func(_ uint32, rm, option, imm3, rn, rd uint8) (Instr, error) {
			return Instr{Op: op, Operand: AddSubtractExtReg{Rm: rm, Option: option, Imm3: imm3, Rn: rn, Rd: rd}}, nil
		})
}

func bindMoveWide(m *bitmatch.Matcher[Instr], pattern string, op Op) {
	bitmatch.Bind3(m, pattern,
		bitmatch.Bits[uint8](21, 23), bitmatch.Bits[uint16](5, 21), reg(0),
		func(_ uint32, hw uint8, imm16 uint16, rd uint8) (Instr, error) {
			return Instr{Op: op, Operand: HwImm16Rd{Hw: hw, Imm16: imm16, Rd: rd}}, nil
		})
}

func bindPcRel(m *bitmatch.Matcher[Instr], pattern string, op Op) {
	bitmatch.Bind3(m, pattern,
		bitmatch.Bits[uint8](29, 31), bitmatch.Bits[uint32](5, 24), reg(0),
		func(_ uint32, immlo uint8, immhi uint32, rd uint8) (Instr, error) {
			return Instr{Op: op, Operand: PcRelAddressing{Immhi: immhi, Immlo: immlo, Rd: rd}}, nil
		})
}

func bindBranchImm(m *bitmatch.Matcher[Instr], pattern string, op Op) {
	bitmatch.Bind1(m, pattern, bitmatch.Bits[uint32](0, 26),
		func(_ uint32, imm26 uint32) (Instr, error) {
			return Instr{Op: op, Operand: Imm26{Imm26: imm26}}, nil
		})
}

func bindCmpBranch(m *bitmatch.Matcher[Instr], pattern string, op Op) {
	bitmatch.Bind2(m, pattern, bitmatch.Bits[uint32](5, 24), reg(0),
		func(_ uint32, imm19 uint32, rt uint8) (Instr, error) {
			return Instr{Op: op, Operand: Imm19Rt{Imm19: imm19, Rt: rt}}, nil
		})
}

func bindTestBranch(m *bitmatch.Matcher[Instr], pattern string, op Op) {
	bitmatch.Bind4(m, pattern,
		bitmatch.Bits[uint8](31, 32), bitmatch.Bits[uint8](19, 24),
		bitmatch.Bits[uint32](5, 19), reg(0),
		func(_ uint32, b5, b40 uint8, imm14 uint32, rt uint8) (Instr, error) {
			return Instr{Op: op, Operand: B5B40Imm14Rt{B5: b5, B40: b40, Imm14: imm14, Rt: rt}}, nil
		})
}

func bindBranchReg(m *bitmatch.Matcher[Instr], pattern string, op Op) {
	bitmatch.Bind1(m, pattern, reg(5),
		func(_ uint32, rn uint8) (Instr, error) {
			return Instr{Op: op, Operand: UncondBranchReg{Rn: rn}}, nil
		})
}

func bindCondSelect(m *bitmatch.Matcher[Instr], pattern string, op Op) {
	bitmatch.Bind4(m, pattern,
		reg(16), bitmatch.Bits[uint8](12, 16), reg(5), reg(0),
		func(_ uint32, rm, cond, rn, rd uint8) (Instr, error) {
			return Instr{Op: op, Operand: RmCondRnRd{Rm: rm, Cond: cond, Rn: rn, Rd: rd}}, nil
		})
}

func bindCondCmpImm(m *bitmatch.Matcher[Instr], pattern string, op Op) {
	bitmatch.Bind4(m, pattern,
		bitmatch.Bits[uint8](16, 21), bitmatch.Bits[uint8](12, 16),
		reg(5), bitmatch.Bits[uint8](0, 4),
		func(_ uint32, imm5, cond, rn, nzcv uint8) (Instr, error) {
			return Instr{Op: op, Operand: CondCmpImm{Imm5: imm5, Cond: cond, Rn: rn, Nzcv: nzcv}}, nil
		})
}

func bindException(m *bitmatch.Matcher[Instr], pattern string, op Op) {
	bitmatch.Bind1(m, pattern, bitmatch.Bits[uint16](5, 21),
		func(_ uint32, imm16 uint16) (Instr, error) {
			return Instr{Op: op, Operand: ExceptionGen{Imm16: imm16}}, nil
		})
}

func bindHint(m *bitmatch.Matcher[Instr], pattern string, op Op) {
	bitmatch.Bind0(m, pattern, func(uint32) (Instr, error) {
		return Instr{Op: op}, nil
	})
}

func bindLdStUnsignedImm(m *bitmatch.Matcher[Instr], pattern string, op Op) {
	bitmatch.Bind3(m, pattern,
		bitmatch.Bits[uint16](10, 22), reg(5), reg(0),
		func(_ uint32, imm12 uint16, rn, rt uint8) (Instr, error) {
			return Instr{Op: op, Operand: SizeImm12RnRt{Imm12: imm12, Rn: rn, Rt: rt}}, nil
		})
}

func bindLdStIndexed(m *bitmatch.Matcher[Instr], pattern string, op Op, mode IndexMode) {
	bitmatch.Bind3(m, pattern,
		bitmatch.Bits[uint16](12, 21), reg(5), reg(0),
		func(_ uint32, imm9 uint16, rn, rt uint8) (Instr, error) {
			return Instr{Op: op, Operand: LoadStoreRegUnscaledImm{
				Imm9: int16(bitmatch.SignExtend(int64(imm9), 9)),
				Mode: mode, Rn: rn, Rt: rt,
			}}, nil
		})
}

func bindLdrLiteral(m *bitmatch.Matcher[Instr], pattern string, op Op) {
	bitmatch.Bind2(m, pattern, bitmatch.Bits[uint32](5, 24), reg(0),
		func(_ uint32, imm19 uint32, rt uint8) (Instr, error) {
			return Instr{Op: op, Operand: Imm19Rt{Imm19: imm19, Rt: rt}}, nil
		})
}

func pairMode() bitmatch.FieldSpec[PairIndexMode] {
	return bitmatch.FieldSpec[PairIndexMode]{Lo: 23, Hi: 26, Convert: func(raw uint64) (PairIndexMode, error) {
		switch raw {
		case 0b001:
			return PairPostIndex, nil
		case 0b010:
			return PairOffset, nil
		case 0b011:
			return PairPreIndex, nil
		default:
			return 0, fmt.Errorf("insts: load/store pair mode %03b is reserved", raw)
		}
	}}
}

func bindLdStPair(m *bitmatch.Matcher[Instr], pattern string, op Op) {
	bitmatch.Bind5(m, pattern,
		pairMode(), bitmatch.Bits[uint8](15, 22), reg(10), reg(5), reg(0),
		func(_ uint32, mode PairIndexMode, imm7, rt2, rn, rt uint8) (Instr, error) {
			return Instr{Op: op, Operand: LoadStoreRegPairOffset{
				Imm7: int16(bitmatch.SignExtend(int64(imm7), 7)),
				Mode: mode, Rt2: rt2, Rn: rn, Rt: rt,
			}}, nil
		})
}

func bindLdStRegOffset(m *bitmatch.Matcher[Instr], pattern string, op Op) {
	option := bitmatch.EnumBits[uint8](13, 16, func(raw uint64) bool { return raw&0b010 != 0 })
	bitmatch.Bind5(m, pattern,
		reg(16), option, bitmatch.Bits[uint8](12, 13), reg(5), reg(0),
		func(_ uint32, rm, option, s, rn, rt uint8) (Instr, error) {
			return Instr{Op: op, Operand: LoadStoreRegRegOffset{Rm: rm, Option: option, S: s, Rn: rn, Rt: rt}}, nil
		})
}
