// Package lower compiles decoded AArch64 instructions into IR blocks. Each
// supported opcode has one small gen function emitting the straight-line
// (node, destination) recipe an external executor evaluates in order.
package lower

import (
	"github.com/sarchlab/aranetrace/guestfault"
	"github.com/sarchlab/aranetrace/insts"
	"github.com/sarchlab/aranetrace/ir"
)

// Lowerer holds the fixed guest-register-to-RegId mapping: 31 general-
// purpose registers, 31 FP registers, and the stack register, each bound to
// a distinct RegId at construction. The table is read-only afterwards, so a
// Lowerer can be shared across goroutines.
type Lowerer struct {
	gpr   [31]ir.RegId
	fpr   [31]ir.RegId
	stack ir.RegId
}

// New builds a Lowerer with a densely packed RegId table.
func New() *Lowerer {
	l := &Lowerer{}
	next := ir.RegId(0)
	for i := range l.gpr {
		l.gpr[i] = next
		next++
	}
	for i := range l.fpr {
		l.fpr[i] = next
		next++
	}
	l.stack = next
	return l
}

// GprId returns the RegId bound to general-purpose guest register n. n must
// be below 31; index 31 is never mapped to a GPR RegId.
func (l *Lowerer) GprId(n uint8) ir.RegId { return l.gpr[n] }

// FprId returns the RegId bound to FP guest register n.
func (l *Lowerer) FprId(n uint8) ir.RegId { return l.fpr[n] }

// StackId returns the RegId bound to the stack register.
func (l *Lowerer) StackId() ir.RegId { return l.stack }

// readGpr reads guest register r with index 31 resolving to the zero
// register, the data-operand convention of the arithmetic and logical
// register forms.
func (l *Lowerer) readGpr(ty ir.Type, r uint8) ir.Operand {
	if r == 31 {
		return ir.Imm(ty, 0)
	}
	return ir.Reg(ty, l.gpr[r])
}

// readGprOrSp reads guest register r with index 31 resolving to the stack
// register, the convention for addressing bases and for the first source
// operand of the add/sub immediate and extended-register forms, flag-setting
// or not.
func (l *Lowerer) readGprOrSp(ty ir.Type, r uint8) ir.Operand {
	if r == 31 {
		return ir.Reg(ty, l.stack)
	}
	return ir.Reg(ty, l.gpr[r])
}

// writeGpr names the destination for guest register r with index 31
// resolving to the zero register: the result is discarded, which is how
// CMP (SUBS with Rd=31) keeps only its flag side effect.
func (l *Lowerer) writeGpr(r uint8) ir.BlockDestination {
	if r == 31 {
		return ir.DestinationNone()
	}
	return ir.Gpr(l.gpr[r])
}

// writeGprOrSp names the destination for guest register r with index 31
// resolving to the stack register.
func (l *Lowerer) writeGprOrSp(r uint8) ir.BlockDestination {
	if r == 31 {
		return ir.Gpr(l.stack)
	}
	return ir.Gpr(l.gpr[r])
}

// baseReg resolves a load/store base register number to its RegId, with
// index 31 as the stack register.
func (l *Lowerer) baseReg(r uint8) ir.RegId {
	if r == 31 {
		return l.stack
	}
	return l.gpr[r]
}

func tyMask(ty ir.Type) uint64 {
	bits := uint(ty.Size()) * 8
	if bits >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<bits - 1
}

// Compile lowers one decoded instruction into an IrBlock. Opcodes the
// lowerer has no gen function for return a NotImplemented guestfault; the
// caller decides whether to abort or fall back to interpretation.
func (l *Lowerer) Compile(inst insts.Instr) (*ir.IrBlock, error) {
	switch inst.Op {
	case insts.OpAddImm32:
		return l.genAddSubImm(inst.Operand.(insts.ShImm12RnRd), ir.U32, false, false)
	case insts.OpAddsImm32:
		return l.genAddSubImm(inst.Operand.(insts.ShImm12RnRd), ir.U32, false, true)
	case insts.OpSubImm32:
		return l.genAddSubImm(inst.Operand.(insts.ShImm12RnRd), ir.U32, true, false)
	case insts.OpSubsImm32:
		return l.genAddSubImm(inst.Operand.(insts.ShImm12RnRd), ir.U32, true, true)
	case insts.OpAddImm64:
		return l.genAddSubImm(inst.Operand.(insts.ShImm12RnRd), ir.U64, false, false)
	case insts.OpAddsImm64:
		return l.genAddSubImm(inst.Operand.(insts.ShImm12RnRd), ir.U64, false, true)
	case insts.OpSubImm64:
		return l.genAddSubImm(inst.Operand.(insts.ShImm12RnRd), ir.U64, true, false)
	case insts.OpSubsImm64:
		return l.genAddSubImm(inst.Operand.(insts.ShImm12RnRd), ir.U64, true, true)

	case insts.OpAndImm32:
		return l.genLogicalImm(inst.Operand.(insts.LogicalImm), ir.U32, logicalAnd, false)
	case insts.OpOrrImm32:
		return l.genLogicalImm(inst.Operand.(insts.LogicalImm), ir.U32, logicalOrr, false)
	case insts.OpEorImm32:
		return l.genLogicalImm(inst.Operand.(insts.LogicalImm), ir.U32, logicalEor, false)
	case insts.OpAndsImm32:
		return l.genLogicalImm(inst.Operand.(insts.LogicalImm), ir.U32, logicalAnd, true)
	case insts.OpAndImm64:
		return l.genLogicalImm(inst.Operand.(insts.LogicalImm), ir.U64, logicalAnd, false)
	case insts.OpOrrImm64:
		return l.genLogicalImm(inst.Operand.(insts.LogicalImm), ir.U64, logicalOrr, false)
	case insts.OpEorImm64:
		return l.genLogicalImm(inst.Operand.(insts.LogicalImm), ir.U64, logicalEor, false)
	case insts.OpAndsImm64:
		return l.genLogicalImm(inst.Operand.(insts.LogicalImm), ir.U64, logicalAnd, true)

	case insts.OpSbfm32:
		return l.genBitfield(inst.Operand.(insts.Bitfield), ir.U32, bfSigned)
	case insts.OpBfm32:
		return l.genBitfield(inst.Operand.(insts.Bitfield), ir.U32, bfInsert)
	case insts.OpUbfm32:
		return l.genBitfield(inst.Operand.(insts.Bitfield), ir.U32, bfUnsigned)
	case insts.OpSbfm64:
		return l.genBitfield(inst.Operand.(insts.Bitfield), ir.U64, bfSigned)
	case insts.OpBfm64:
		return l.genBitfield(inst.Operand.(insts.Bitfield), ir.U64, bfInsert)
	case insts.OpUbfm64:
		return l.genBitfield(inst.Operand.(insts.Bitfield), ir.U64, bfUnsigned)

	case insts.OpAndShiftedReg32:
		return l.genLogicalShiftedReg(inst.Operand.(insts.ShiftRmImm6RnRd), ir.U32, logicalAnd, false)
	case insts.OpOrrShiftedReg32:
		return l.genLogicalShiftedReg(inst.Operand.(insts.ShiftRmImm6RnRd), ir.U32, logicalOrr, false)
	case insts.OpEorShiftedReg32:
		return l.genLogicalShiftedReg(inst.Operand.(insts.ShiftRmImm6RnRd), ir.U32, logicalEor, false)
	case insts.OpAndsShiftedReg32:
		return l.genLogicalShiftedReg(inst.Operand.(insts.ShiftRmImm6RnRd), ir.U32, logicalAnd, true)
	case insts.OpAndShiftedReg64:
		return l.genLogicalShiftedReg(inst.Operand.(insts.ShiftRmImm6RnRd), ir.U64, logicalAnd, false)
	case insts.OpOrrShiftedReg64:
		return l.genLogicalShiftedReg(inst.Operand.(insts.ShiftRmImm6RnRd), ir.U64, logicalOrr, false)
	case insts.OpEorShiftedReg64:
		return l.genLogicalShiftedReg(inst.Operand.(insts.ShiftRmImm6RnRd), ir.U64, logicalEor, false)
	case insts.OpAndsShiftedReg64:
		return l.genLogicalShiftedReg(inst.Operand.(insts.ShiftRmImm6RnRd), ir.U64, logicalAnd, true)

	case insts.OpAddShiftedReg32:
		return l.genAddSubShiftedReg(inst.Operand.(insts.ShiftRmImm6RnRd), ir.U32, false, false)
	case insts.OpAddsShiftedReg32:
		return l.genAddSubShiftedReg(inst.Operand.(insts.ShiftRmImm6RnRd), ir.U32, false, true)
	case insts.OpSubShiftedReg32:
		return l.genAddSubShiftedReg(inst.Operand.(insts.ShiftRmImm6RnRd), ir.U32, true, false)
	case insts.OpSubsShiftedReg32:
		return l.genAddSubShiftedReg(inst.Operand.(insts.ShiftRmImm6RnRd), ir.U32, true, true)
	case insts.OpAddShiftedReg64:
		return l.genAddSubShiftedReg(inst.Operand.(insts.ShiftRmImm6RnRd), ir.U64, false, false)
	case insts.OpAddsShiftedReg64:
		return l.genAddSubShiftedReg(inst.Operand.(insts.ShiftRmImm6RnRd), ir.U64, false, true)
	case insts.OpSubShiftedReg64:
		return l.genAddSubShiftedReg(inst.Operand.(insts.ShiftRmImm6RnRd), ir.U64, true, false)
	case insts.OpSubsShiftedReg64:
		return l.genAddSubShiftedReg(inst.Operand.(insts.ShiftRmImm6RnRd), ir.U64, true, true)

	case insts.OpAddExtReg64:
		return l.genAddSubExtReg(inst.Operand.(insts.AddSubtractExtReg), false, false)
	case insts.OpAddsExtReg64:
		return l.genAddSubExtReg(inst.Operand.(insts.AddSubtractExtReg), false, true)
	case insts.OpSubExtReg64:
		return l.genAddSubExtReg(inst.Operand.(insts.AddSubtractExtReg), true, false)
	case insts.OpSubsExtReg64:
		return l.genAddSubExtReg(inst.Operand.(insts.AddSubtractExtReg), true, true)

	case insts.OpMovn32:
		return l.genMoveWide(inst.Operand.(insts.HwImm16Rd), ir.U32, mwNot)
	case insts.OpMovz32:
		return l.genMoveWide(inst.Operand.(insts.HwImm16Rd), ir.U32, mwZero)
	case insts.OpMovk32:
		return l.genMoveWide(inst.Operand.(insts.HwImm16Rd), ir.U32, mwKeep)
	case insts.OpMovn64:
		return l.genMoveWide(inst.Operand.(insts.HwImm16Rd), ir.U64, mwNot)
	case insts.OpMovz64:
		return l.genMoveWide(inst.Operand.(insts.HwImm16Rd), ir.U64, mwZero)
	case insts.OpMovk64:
		return l.genMoveWide(inst.Operand.(insts.HwImm16Rd), ir.U64, mwKeep)

	case insts.OpAdr:
		return l.genAdr(inst.Operand.(insts.PcRelAddressing), false)
	case insts.OpAdrp:
		return l.genAdr(inst.Operand.(insts.PcRelAddressing), true)

	case insts.OpBImm:
		return l.genBImm(inst.Operand.(insts.Imm26), false)
	case insts.OpBlImm:
		return l.genBImm(inst.Operand.(insts.Imm26), true)
	case insts.OpBCond:
		return l.genBCond(inst.Operand.(insts.Imm19Cond))
	case insts.OpCbz32:
		return l.genCmpBranch(inst.Operand.(insts.Imm19Rt), ir.U32, false)
	case insts.OpCbnz32:
		return l.genCmpBranch(inst.Operand.(insts.Imm19Rt), ir.U32, true)
	case insts.OpCbz64:
		return l.genCmpBranch(inst.Operand.(insts.Imm19Rt), ir.U64, false)
	case insts.OpCbnz64:
		return l.genCmpBranch(inst.Operand.(insts.Imm19Rt), ir.U64, true)
	case insts.OpTbz:
		return l.genTestBranch(inst.Operand.(insts.B5B40Imm14Rt), false)
	case insts.OpTbnz:
		return l.genTestBranch(inst.Operand.(insts.B5B40Imm14Rt), true)
	case insts.OpBr:
		return l.genBranchReg(inst.Operand.(insts.UncondBranchReg), false)
	case insts.OpBlr:
		return l.genBranchReg(inst.Operand.(insts.UncondBranchReg), true)
	case insts.OpRet:
		return l.genBranchReg(inst.Operand.(insts.UncondBranchReg), false)

	case insts.OpCsel32:
		return l.genCondSelect(inst.Operand.(insts.RmCondRnRd), ir.U32, csPlain)
	case insts.OpCsinc32:
		return l.genCondSelect(inst.Operand.(insts.RmCondRnRd), ir.U32, csIncrement)
	case insts.OpCsinv32:
		return l.genCondSelect(inst.Operand.(insts.RmCondRnRd), ir.U32, csInvert)
	case insts.OpCsneg32:
		return l.genCondSelect(inst.Operand.(insts.RmCondRnRd), ir.U32, csNegate)
	case insts.OpCsel64:
		return l.genCondSelect(inst.Operand.(insts.RmCondRnRd), ir.U64, csPlain)
	case insts.OpCsinc64:
		return l.genCondSelect(inst.Operand.(insts.RmCondRnRd), ir.U64, csIncrement)
	case insts.OpCsinv64:
		return l.genCondSelect(inst.Operand.(insts.RmCondRnRd), ir.U64, csInvert)
	case insts.OpCsneg64:
		return l.genCondSelect(inst.Operand.(insts.RmCondRnRd), ir.U64, csNegate)

	case insts.OpCcmpImm32:
		return l.genCondCmpImm(inst.Operand.(insts.CondCmpImm), ir.U32, true)
	case insts.OpCcmnImm32:
		return l.genCondCmpImm(inst.Operand.(insts.CondCmpImm), ir.U32, false)
	case insts.OpCcmpImm64:
		return l.genCondCmpImm(inst.Operand.(insts.CondCmpImm), ir.U64, true)
	case insts.OpCcmnImm64:
		return l.genCondCmpImm(inst.Operand.(insts.CondCmpImm), ir.U64, false)

	case insts.OpSvc:
		return genException(inst.Operand.(insts.ExceptionGen), ir.SystemCallDestination())
	case insts.OpBrk, insts.OpHlt:
		return genException(inst.Operand.(insts.ExceptionGen), ir.ExitDestination())
	case insts.OpMrs:
		return l.genMrs(inst.Operand.(insts.SysRegMov))

	case insts.OpNop, insts.OpYield, insts.OpWfe, insts.OpWfi, insts.OpSev, insts.OpSevl:
		return ir.NewBlock().Emit(ir.Nop(), ir.DestinationNone()), nil

	case insts.OpStrbImm:
		return l.genStoreImm(inst.Operand.(insts.SizeImm12RnRt), ir.U8, 0)
	case insts.OpLdrbImm:
		return l.genLoadImm(inst.Operand.(insts.SizeImm12RnRt), ir.U8, 0, ir.Void)
	case insts.OpLdrsbImm64:
		return l.genLoadImm(inst.Operand.(insts.SizeImm12RnRt), ir.I8, 0, ir.I64)
	case insts.OpLdrsbImm32:
		return l.genLoadImm(inst.Operand.(insts.SizeImm12RnRt), ir.I8, 0, ir.I32)
	case insts.OpStrhImm:
		return l.genStoreImm(inst.Operand.(insts.SizeImm12RnRt), ir.U16, 1)
	case insts.OpLdrhImm:
		return l.genLoadImm(inst.Operand.(insts.SizeImm12RnRt), ir.U16, 1, ir.Void)
	case insts.OpLdrshImm64:
		return l.genLoadImm(inst.Operand.(insts.SizeImm12RnRt), ir.I16, 1, ir.I64)
	case insts.OpLdrshImm32:
		return l.genLoadImm(inst.Operand.(insts.SizeImm12RnRt), ir.I16, 1, ir.I32)
	case insts.OpStrImm32:
		return l.genStoreImm(inst.Operand.(insts.SizeImm12RnRt), ir.U32, 2)
	case insts.OpLdrImm32:
		return l.genLoadImm(inst.Operand.(insts.SizeImm12RnRt), ir.U32, 2, ir.Void)
	case insts.OpStrImm64:
		return l.genStoreImm(inst.Operand.(insts.SizeImm12RnRt), ir.U64, 3)
	case insts.OpLdrImm64:
		return l.genLoadImm(inst.Operand.(insts.SizeImm12RnRt), ir.U64, 3, ir.Void)

	case insts.OpStrbImmPost, insts.OpStrbImmPre:
		return l.genStoreIndexed(inst.Operand.(insts.LoadStoreRegUnscaledImm), ir.U8)
	case insts.OpLdrbImmPost, insts.OpLdrbImmPre:
		return l.genLoadIndexed(inst.Operand.(insts.LoadStoreRegUnscaledImm), ir.U8)
	case insts.OpStrImm32Post, insts.OpStrImm32Pre:
		return l.genStoreIndexed(inst.Operand.(insts.LoadStoreRegUnscaledImm), ir.U32)
	case insts.OpLdrImm32Post, insts.OpLdrImm32Pre:
		return l.genLoadIndexed(inst.Operand.(insts.LoadStoreRegUnscaledImm), ir.U32)
	case insts.OpStrImm64Post, insts.OpStrImm64Pre:
		return l.genStoreIndexed(inst.Operand.(insts.LoadStoreRegUnscaledImm), ir.U64)
	case insts.OpLdrImm64Post, insts.OpLdrImm64Pre:
		return l.genLoadIndexed(inst.Operand.(insts.LoadStoreRegUnscaledImm), ir.U64)

	case insts.OpLdrLit32:
		return l.genLdrLiteral(inst.Operand.(insts.Imm19Rt), ir.U32)
	case insts.OpLdrLit64:
		return l.genLdrLiteral(inst.Operand.(insts.Imm19Rt), ir.U64)

	case insts.OpStp32:
		return l.genStorePair(inst.Operand.(insts.LoadStoreRegPairOffset), ir.U32)
	case insts.OpLdp32:
		return l.genLoadPair(inst.Operand.(insts.LoadStoreRegPairOffset), ir.U32)
	case insts.OpStp64:
		return l.genStorePair(inst.Operand.(insts.LoadStoreRegPairOffset), ir.U64)
	case insts.OpLdp64:
		return l.genLoadPair(inst.Operand.(insts.LoadStoreRegPairOffset), ir.U64)

	case insts.OpLdrReg32:
		return l.genLoadRegOffset(inst.Operand.(insts.LoadStoreRegRegOffset), ir.U32, 2)
	case insts.OpLdrReg64:
		return l.genLoadRegOffset(inst.Operand.(insts.LoadStoreRegRegOffset), ir.U64, 3)
	case insts.OpStrReg32, insts.OpStrReg64:
		// MemoryRel destinations carry a base register plus a static
		// offset; a register-indexed store has no representable target.
		return nil, guestfault.NotImplementedError(inst.Op.String())

	default:
		return nil, guestfault.NotImplementedError(inst.Op.String())
	}
}
