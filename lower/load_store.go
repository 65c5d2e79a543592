package lower

import (
	"github.com/sarchlab/aranetrace/insts"
	"github.com/sarchlab/aranetrace/ir"
)

// address builds base + offset, folding a zero offset away.
func address(base ir.Operand, offset uint64) ir.Operand {
	if offset == 0 {
		return base
	}
	return ir.FromNode(ir.Add(ir.U64, base, ir.Imm(ir.U64, offset)))
}

// extendLoad wraps a memory load in the sign extension its opcode calls
// for. extTy Void means the load commits as-is; the register file zeroes
// the bits above the loaded width.
func extendLoad(load *ir.Ir, extTy ir.Type) *ir.Ir {
	if extTy == ir.Void {
		return load
	}
	return ir.SextCast(extTy, ir.FromNode(load))
}

func (l *Lowerer) genLoadImm(o insts.SizeImm12RnRt, memTy ir.Type, scale uint, extTy ir.Type) (*ir.IrBlock, error) {
	offset, _, _ := ir.DecodeOperandForLdStRegImm(true, o.Imm12, scale, 0, false)
	addr := address(l.readGprOrSp(ir.U64, o.Rn), uint64(offset))
	node := extendLoad(ir.Load(memTy, addr), extTy)
	return ir.NewBlock().Emit(node, l.writeGpr(o.Rt)), nil
}

func (l *Lowerer) genStoreImm(o insts.SizeImm12RnRt, ty ir.Type, scale uint) (*ir.IrBlock, error) {
	offset, _, _ := ir.DecodeOperandForLdStRegImm(true, o.Imm12, scale, 0, false)
	node := ir.Value(ty, l.readGpr(ty, o.Rt))
	return ir.NewBlock().Emit(node, ir.MemoryRel(l.baseReg(o.Rn), offset)), nil
}

// suppressWriteback reports whether a writeback form must skip its base
// update. The architecture leaves rn == rt with writeback CONSTRAINED
// UNPREDICTABLE; this lowerer resolves it by keeping the loaded/stored
// value and dropping the base update.
func suppressWriteback(rn, rt uint8) bool {
	return rn == rt && rn != 31
}

// writebackEntry appends the base-register update of a pre/post-indexed
// access.
func (l *Lowerer) writebackEntry(b *ir.IrBlock, rn uint8, offset int64) {
	node := ir.Add(ir.U64, l.readGprOrSp(ir.U64, rn), ir.Imm(ir.I64, uint64(offset)))
	b.Emit(node, l.writeGprOrSp(rn))
}

func (l *Lowerer) genLoadIndexed(o insts.LoadStoreRegUnscaledImm, memTy ir.Type) (*ir.IrBlock, error) {
	offset, wback, postIndex := ir.DecodeOperandForLdStRegImm(false, 0, 0, o.Imm9, o.Mode == insts.IndexPre)
	base := l.readGprOrSp(ir.U64, o.Rn)
	addr := base
	if !postIndex {
		addr = address(base, uint64(offset))
	}
	b := ir.NewBlock().Emit(ir.Load(memTy, addr), l.writeGpr(o.Rt))
	if wback && !suppressWriteback(o.Rn, o.Rt) {
		l.writebackEntry(b, o.Rn, offset)
	}
	return b, nil
}

func (l *Lowerer) genStoreIndexed(o insts.LoadStoreRegUnscaledImm, ty ir.Type) (*ir.IrBlock, error) {
	offset, wback, postIndex := ir.DecodeOperandForLdStRegImm(false, 0, 0, o.Imm9, o.Mode == insts.IndexPre)
	var storeOffset int64
	if !postIndex {
		storeOffset = offset
	}
	node := ir.Value(ty, l.readGpr(ty, o.Rt))
	b := ir.NewBlock().Emit(node, ir.MemoryRel(l.baseReg(o.Rn), storeOffset))
	if wback && !suppressWriteback(o.Rn, o.Rt) {
		l.writebackEntry(b, o.Rn, offset)
	}
	return b, nil
}

func (l *Lowerer) genLdrLiteral(o insts.Imm19Rt, ty ir.Type) (*ir.IrBlock, error) {
	addr := ir.FromNode(ir.GenIPRelative(int64(o.Imm19)<<2, 21))
	return ir.NewBlock().Emit(ir.Load(ty, addr), l.writeGpr(o.Rt)), nil
}

func pairOffsets(o insts.LoadStoreRegPairOffset, size int64) (first, second, writeback int64, wback bool) {
	offset := int64(o.Imm7) * size
	switch o.Mode {
	case insts.PairPostIndex:
		return 0, size, offset, true
	case insts.PairPreIndex:
		return offset, offset + size, offset, true
	default:
		return offset, offset + size, 0, false
	}
}

func (l *Lowerer) genStorePair(o insts.LoadStoreRegPairOffset, ty ir.Type) (*ir.IrBlock, error) {
	size := int64(ty.Size())
	first, second, wbOffset, wback := pairOffsets(o, size)
	base := l.baseReg(o.Rn)
	b := ir.NewBlock().
		Emit(ir.Value(ty, l.readGpr(ty, o.Rt)), ir.MemoryRel(base, first)).
		Emit(ir.Value(ty, l.readGpr(ty, o.Rt2)), ir.MemoryRel(base, second))
	if wback && !suppressWriteback(o.Rn, o.Rt) && !suppressWriteback(o.Rn, o.Rt2) {
		l.writebackEntry(b, o.Rn, wbOffset)
	}
	return b, nil
}

func (l *Lowerer) genLoadPair(o insts.LoadStoreRegPairOffset, ty ir.Type) (*ir.IrBlock, error) {
	size := int64(ty.Size())
	first, second, wbOffset, wback := pairOffsets(o, size)
	base := l.readGprOrSp(ir.U64, o.Rn)
	b := ir.NewBlock().
		Emit(ir.Load(ty, address(base, uint64(first))), l.writeGpr(o.Rt)).
		Emit(ir.Load(ty, address(base, uint64(second))), l.writeGpr(o.Rt2))
	if wback && !suppressWriteback(o.Rn, o.Rt) && !suppressWriteback(o.Rn, o.Rt2) {
		l.writebackEntry(b, o.Rn, wbOffset)
	}
	return b, nil
}

func (l *Lowerer) genLoadRegOffset(o insts.LoadStoreRegRegOffset, ty ir.Type, scale uint8) (*ir.IrBlock, error) {
	var amount uint8
	if o.S == 1 {
		amount = scale
	}
	ext := ir.DecodeRegExtend(o.Option)
	offset := ir.ExtendReg(l.readGpr(ir.U64, o.Rm), ext, amount)
	addr := ir.FromNode(ir.Add(ir.U64, l.readGprOrSp(ir.U64, o.Rn), offset))
	return ir.NewBlock().Emit(ir.Load(ty, addr), l.writeGpr(o.Rt)), nil
}
