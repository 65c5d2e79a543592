// Package insts decodes 32-bit AArch64 instruction words into a typed Instr
// value using a declarative bitmatch.Matcher, mirroring the encoding
// classes laid out in the ARM Architecture Reference Manual.
package insts

// ShImm12RnRd is the add/sub (immediate) operand class: an optionally
// shifted 12-bit immediate plus a source and destination register.
type ShImm12RnRd struct {
	Sh    uint8 // 0 = no shift, 1 = LSL #12
	Imm12 uint16
	Rn    uint8
	Rd    uint8
}

// LogicalImm is the logical (immediate) operand class: AND/ORR/EOR/ANDS
// with an immediate built from the N:immr:imms bitmask fields.
type LogicalImm struct {
	N     uint8
	Immr  uint8
	Imms  uint8
	Rn    uint8
	Rd    uint8
}

// Bitfield is the bitfield operand class: SBFM/BFM/UBFM.
type Bitfield struct {
	N    uint8
	Immr uint8
	Imms uint8
	Rn   uint8
	Rd   uint8
}

// ShiftRmImm6RnRd is the data-processing (shifted register) operand class:
// AND/ORR/EOR/ANDS/ADD/ADDS/SUB/SUBS with an optionally shifted register
// second operand.
type ShiftRmImm6RnRd struct {
	Shift uint8 // 0=LSL 1=LSR 2=ASR 3=ROR
	Rm    uint8
	Imm6  uint8
	Rn    uint8
	Rd    uint8
}

// AddSubtractExtReg is the add/sub (extended register) operand class.
type AddSubtractExtReg struct {
	Rm     uint8
	Option uint8
	Imm3   uint8
	Rn     uint8
	Rd     uint8
}

// HwImm16Rd is the move-wide operand class: MOVZ/MOVN/MOVK.
type HwImm16Rd struct {
	Hw    uint8 // shift amount / 16
	Imm16 uint16
	Rd    uint8
}

// PcRelAddressing is ADR/ADRP's operand class.
type PcRelAddressing struct {
	Immhi uint32
	Immlo uint8
	Rd    uint8
}

// Imm26 is B/BL's operand class.
type Imm26 struct {
	Imm26 uint32
}

// Imm19Cond is B.cond's operand class.
type Imm19Cond struct {
	Imm19 uint32
	Cond  uint8
}

// Imm19Rt is CBZ/CBNZ and LDR-literal's operand class.
type Imm19Rt struct {
	Imm19 uint32
	Rt    uint8
}

// B5B40Imm14Rt is TBZ/TBNZ's operand class: a split bit-position field
// (bit 5 plus bits [4:0]) over a 14-bit branch offset.
type B5B40Imm14Rt struct {
	B5    uint8
	B40   uint8
	Imm14 uint32
	Rt    uint8
}

// UncondBranchReg is BR/BLR/RET's operand class.
type UncondBranchReg struct {
	Rn uint8
}

// RmCondRnRd is the conditional-select operand class: CSEL/CSINC/CSINV/
// CSNEG.
type RmCondRnRd struct {
	Rm   uint8
	Cond uint8
	Rn   uint8
	Rd   uint8
}

// CondCmpImm is CCMP/CCMN (immediate)'s operand class.
type CondCmpImm struct {
	Imm5 uint8
	Cond uint8
	Rn   uint8
	Nzcv uint8
}

// ExceptionGen is SVC/BRK/HLT's operand class.
type ExceptionGen struct {
	Imm16 uint16
}

// SysRegMov is MRS's operand class, naming a system register by its
// op0:op1:CRn:CRm:op2 encoding.
type SysRegMov struct {
	Op0 uint8
	Op1 uint8
	Crn uint8
	Crm uint8
	Op2 uint8
	Rt  uint8
}

// SizeImm12RnRt is the load/store (unsigned immediate offset) operand
// class, covering the byte/halfword/word/doubleword LDR/STR family plus
// their signed-load variants.
type SizeImm12RnRt struct {
	Imm12 uint16
	Rn    uint8
	Rt    uint8
}

// IndexMode selects pre- or post-indexed addressing for writeback forms.
type IndexMode uint8

const (
	IndexPost IndexMode = iota
	IndexPre
)

// LoadStoreRegUnscaledImm is the pre/post-indexed load/store operand class.
type LoadStoreRegUnscaledImm struct {
	Imm9  int16
	Mode  IndexMode
	Rn    uint8
	Rt    uint8
}

// PairIndexMode selects the addressing mode of a load/store pair.
type PairIndexMode uint8

const (
	PairOffset PairIndexMode = iota
	PairPostIndex
	PairPreIndex
)

// LoadStoreRegPairOffset is LDP/STP's operand class.
type LoadStoreRegPairOffset struct {
	Imm7 int16
	Mode PairIndexMode
	Rt2  uint8
	Rn   uint8
	Rt   uint8
}

// LoadStoreRegRegOffset is the register-offset load/store operand class
// (e.g. LDR Xt, [Xn, Xm{, extend {amount}}]). S selects whether the
// extended index is scaled by the access size.
type LoadStoreRegRegOffset struct {
	Rm     uint8
	Option uint8
	S      uint8
	Rn     uint8
	Rt     uint8
}
