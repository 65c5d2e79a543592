package lower

import (
	"github.com/sarchlab/aranetrace/bitmatch"
	"github.com/sarchlab/aranetrace/insts"
	"github.com/sarchlab/aranetrace/ir"
)

type logicalKind uint8

const (
	logicalAnd logicalKind = iota
	logicalOrr
	logicalEor
)

func logicalNode(kind logicalKind, ty ir.Type, lhs, rhs ir.Operand) *ir.Ir {
	switch kind {
	case logicalOrr:
		return ir.Or(ty, lhs, rhs)
	case logicalEor:
		return ir.Xor(ty, lhs, rhs)
	default:
		return ir.And(ty, lhs, rhs)
	}
}

func (l *Lowerer) genAddSubImm(o insts.ShImm12RnRd, ty ir.Type, sub, setFlags bool) (*ir.IrBlock, error) {
	imm := uint64(o.Imm12)
	if o.Sh == 1 {
		imm <<= 12
	}
	b := ir.NewBlock()
	if setFlags {
		// Register 31 is the stack register as a source here but the
		// zero register as a destination, which is how CMP and CMN fall
		// out of SUBS/ADDS with Rd=31.
		rn := l.readGprOrSp(ty, o.Rn)
		var node *ir.Ir
		if sub {
			node = ir.Subc(ty, rn, ir.Imm(ty, imm), ir.Imm(ir.Bool, 1))
		} else {
			node = ir.Addc(ty, rn, ir.Imm(ty, imm), ir.Imm(ir.Bool, 0))
		}
		return b.Emit(node, l.writeGpr(o.Rd)), nil
	}
	rn := l.readGprOrSp(ty, o.Rn)
	var node *ir.Ir
	if sub {
		node = ir.Sub(ty, rn, ir.Imm(ty, imm))
	} else {
		node = ir.Add(ty, rn, ir.Imm(ty, imm))
	}
	return b.Emit(node, l.writeGprOrSp(o.Rd)), nil
}

func (l *Lowerer) genLogicalImm(o insts.LogicalImm, ty ir.Type, kind logicalKind, setFlags bool) (*ir.IrBlock, error) {
	wmask, _, err := ir.DecodeBitMasks(o.N, o.Imms, o.Immr, true, ty == ir.U64)
	if err != nil {
		return nil, err
	}
	rn := l.readGpr(ty, o.Rn)
	node := logicalNode(kind, ty, rn, ir.Imm(ty, wmask))
	b := ir.NewBlock()
	if setFlags {
		// Flags commit first so the NZ computation reads the original
		// source registers even when Rd aliases Rn.
		b.Emit(ir.NZFlags(ty, ir.FromNode(node)), ir.FlagsDestination())
		return b.Emit(node, l.writeGpr(o.Rd)), nil
	}
	return b.Emit(node, l.writeGprOrSp(o.Rd)), nil
}

type bfKind uint8

const (
	bfUnsigned bfKind = iota
	bfSigned
	bfInsert
)

func (l *Lowerer) genBitfield(o insts.Bitfield, ty ir.Type, kind bfKind) (*ir.IrBlock, error) {
	wmask, tmask, err := ir.DecodeBitMasks(o.N, o.Imms, o.Immr, false, ty == ir.U64)
	if err != nil {
		return nil, err
	}
	datasize := uint(ty.Size()) * 8
	src := l.readGpr(ty, o.Rn)
	rotated := ir.FromNode(ir.Rotr(ty, src, ir.Imm(ty, uint64(o.Immr))))
	bot := ir.FromNode(ir.And(ty, rotated, ir.Imm(ty, wmask)))

	var node *ir.Ir
	switch kind {
	case bfUnsigned:
		node = ir.And(ty, rotated, ir.Imm(ty, wmask&tmask))
	case bfSigned:
		top := ir.FromNode(ir.ReplicateSignBit(ty, src, uint(o.Imms), datasize))
		node = ir.Or(ty,
			ir.FromNode(ir.And(ty, top, ir.Imm(ty, ^tmask&tyMask(ty)))),
			ir.FromNode(ir.And(ty, bot, ir.Imm(ty, tmask))))
	default: // bfInsert
		dst := l.readGpr(ty, o.Rd)
		merged := ir.FromNode(ir.Or(ty,
			ir.FromNode(ir.And(ty, dst, ir.Imm(ty, ^wmask&tyMask(ty)))),
			bot))
		node = ir.Or(ty,
			ir.FromNode(ir.And(ty, dst, ir.Imm(ty, ^tmask&tyMask(ty)))),
			ir.FromNode(ir.And(ty, merged, ir.Imm(ty, tmask))))
	}
	return ir.NewBlock().Emit(node, l.writeGpr(o.Rd)), nil
}

func (l *Lowerer) genLogicalShiftedReg(o insts.ShiftRmImm6RnRd, ty ir.Type, kind logicalKind, setFlags bool) (*ir.IrBlock, error) {
	rm := l.readGpr(ty, o.Rm)
	op2 := ir.ShiftReg(ty, rm, ir.ShiftType(o.Shift), o.Imm6)
	node := logicalNode(kind, ty, l.readGpr(ty, o.Rn), op2)
	b := ir.NewBlock()
	if setFlags {
		b.Emit(ir.NZFlags(ty, ir.FromNode(node)), ir.FlagsDestination())
	}
	return b.Emit(node, l.writeGpr(o.Rd)), nil
}

func (l *Lowerer) genAddSubShiftedReg(o insts.ShiftRmImm6RnRd, ty ir.Type, sub, setFlags bool) (*ir.IrBlock, error) {
	rn := l.readGpr(ty, o.Rn)
	op2 := ir.ShiftReg(ty, l.readGpr(ty, o.Rm), ir.ShiftType(o.Shift), o.Imm6)
	b := ir.NewBlock()
	var node *ir.Ir
	switch {
	case setFlags && sub:
		node = ir.Subc(ty, rn, op2, ir.Imm(ir.Bool, 1))
	case setFlags:
		node = ir.Addc(ty, rn, op2, ir.Imm(ir.Bool, 0))
	case sub:
		node = ir.Sub(ty, rn, op2)
	default:
		node = ir.Add(ty, rn, op2)
	}
	return b.Emit(node, l.writeGpr(o.Rd)), nil
}

func (l *Lowerer) genAddSubExtReg(o insts.AddSubtractExtReg, sub, setFlags bool) (*ir.IrBlock, error) {
	rn := l.readGprOrSp(ir.U64, o.Rn)
	ext := ir.DecodeRegExtend(o.Option)
	op2 := ir.ExtendReg(l.readGpr(ir.U64, o.Rm), ext, o.Imm3)
	b := ir.NewBlock()
	if setFlags {
		var node *ir.Ir
		if sub {
			node = ir.Subc(ir.U64, rn, op2, ir.Imm(ir.Bool, 1))
		} else {
			node = ir.Addc(ir.U64, rn, op2, ir.Imm(ir.Bool, 0))
		}
		return b.Emit(node, l.writeGpr(o.Rd)), nil
	}
	var node *ir.Ir
	if sub {
		node = ir.Sub(ir.U64, rn, op2)
	} else {
		node = ir.Add(ir.U64, rn, op2)
	}
	return b.Emit(node, l.writeGprOrSp(o.Rd)), nil
}

type mwKind uint8

const (
	mwZero mwKind = iota
	mwNot
	mwKeep
)

func (l *Lowerer) genMoveWide(o insts.HwImm16Rd, ty ir.Type, kind mwKind) (*ir.IrBlock, error) {
	shift := uint(o.Hw) * 16
	imm := uint64(o.Imm16) << shift
	var node *ir.Ir
	switch kind {
	case mwZero:
		node = ir.Value(ty, ir.Imm(ty, imm))
	case mwNot:
		node = ir.Value(ty, ir.Imm(ty, ^imm&tyMask(ty)))
	default: // mwKeep
		keep := ^(uint64(0xFFFF) << shift) & tyMask(ty)
		node = ir.Or(ty,
			ir.FromNode(ir.And(ty, l.readGpr(ty, o.Rd), ir.Imm(ty, keep))),
			ir.Imm(ty, imm))
	}
	return ir.NewBlock().Emit(node, l.writeGpr(o.Rd)), nil
}

func (l *Lowerer) genAdr(o insts.PcRelAddressing, page bool) (*ir.IrBlock, error) {
	imm21 := (int64(o.Immhi) << 2) | int64(o.Immlo)
	var node *ir.Ir
	if page {
		offset := bitmatch.SignExtend(imm21<<12, 33)
		base := ir.FromNode(ir.And(ir.U64, ir.IpOperand(), ir.Imm(ir.U64, ^uint64(0xFFF))))
		node = ir.Add(ir.U64, base, ir.Imm(ir.U64, uint64(offset)))
	} else {
		node = ir.GenIPRelative(imm21, 21)
	}
	return ir.NewBlock().Emit(node, l.writeGpr(o.Rd)), nil
}

type csKind uint8

const (
	csPlain csKind = iota
	csIncrement
	csInvert
	csNegate
)

func (l *Lowerer) genCondSelect(o insts.RmCondRnRd, ty ir.Type, kind csKind) (*ir.IrBlock, error) {
	cond := ir.ConditionHoldsIr(ir.Cond(o.Cond))
	rn := l.readGpr(ty, o.Rn)
	rm := l.readGpr(ty, o.Rm)
	var els ir.Operand
	switch kind {
	case csIncrement:
		els = ir.FromNode(ir.Add(ty, rm, ir.Imm(ty, 1)))
	case csInvert:
		els = ir.FromNode(ir.Xor(ty, rm, ir.Imm(ty, tyMask(ty))))
	case csNegate:
		els = ir.FromNode(ir.Sub(ty, ir.Imm(ty, 0), rm))
	default:
		els = rm
	}
	node := ir.If(ty, cond, rn, els)
	return ir.NewBlock().Emit(node, l.writeGpr(o.Rd)), nil
}

func (l *Lowerer) genCondCmpImm(o insts.CondCmpImm, ty ir.Type, sub bool) (*ir.IrBlock, error) {
	cond := ir.ConditionHoldsIr(ir.Cond(o.Cond))
	rn := l.readGpr(ty, o.Rn)
	var cmp *ir.Ir
	if sub {
		cmp = ir.Subc(ty, rn, ir.Imm(ty, uint64(o.Imm5)), ir.Imm(ir.Bool, 1))
	} else {
		cmp = ir.Addc(ty, rn, ir.Imm(ty, uint64(o.Imm5)), ir.Imm(ir.Bool, 0))
	}
	// When the condition fails, the encoded nzcv field is folded into the
	// flags word in place of the compare's flags. The If is Void-typed:
	// its branches differ in width (the compare is ty-sized, the fold is
	// a full flags word) and only the flags side effect is committed.
	folded := ir.ReplaceBitsIr(ir.FlagOperand(), ir.Imm(ir.U64, uint64(o.Nzcv)), 60, 64)
	node := ir.If(ir.Void, cond, ir.FromNode(cmp), ir.FromNode(folded))
	return ir.NewBlock().Emit(node, ir.FlagsDestination()), nil
}
