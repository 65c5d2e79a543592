package lower

import (
	"github.com/sarchlab/aranetrace/insts"
	"github.com/sarchlab/aranetrace/ir"
)

// Branch lowerings all share one invariant: the block's terminal entry is
// the only one whose destination is Ip.

func nextIp() ir.Operand {
	return ir.FromNode(ir.Add(ir.U64, ir.IpOperand(), ir.Imm(ir.U64, 4)))
}

func (l *Lowerer) genBImm(o insts.Imm26, link bool) (*ir.IrBlock, error) {
	b := ir.NewBlock()
	if link {
		b.Emit(ir.Add(ir.U64, ir.IpOperand(), ir.Imm(ir.U64, 4)), ir.Gpr(l.gpr[30]))
	}
	target := ir.GenIPRelative(int64(o.Imm26)<<2, 28)
	return b.Emit(target, ir.IpDestination()), nil
}

func (l *Lowerer) genBCond(o insts.Imm19Cond) (*ir.IrBlock, error) {
	cond := ir.ConditionHoldsIr(ir.Cond(o.Cond))
	target := ir.FromNode(ir.GenIPRelative(int64(o.Imm19)<<2, 21))
	node := ir.If(ir.U64, cond, target, nextIp())
	return ir.NewBlock().Emit(node, ir.IpDestination()), nil
}

func (l *Lowerer) genCmpBranch(o insts.Imm19Rt, ty ir.Type, nonzero bool) (*ir.IrBlock, error) {
	rt := l.readGpr(ty, o.Rt)
	var cond ir.Operand
	switch {
	case ty == ir.U32 && nonzero:
		cond = ir.CmpNeOpImm32(rt, 0)
	case ty == ir.U32:
		cond = ir.CmpEqOpImm32(rt, 0)
	case nonzero:
		cond = ir.CmpNeOpImm64(rt, 0)
	default:
		cond = ir.CmpEqOpImm64(rt, 0)
	}
	target := ir.FromNode(ir.GenIPRelative(int64(o.Imm19)<<2, 21))
	node := ir.If(ir.U64, cond, target, nextIp())
	return ir.NewBlock().Emit(node, ir.IpDestination()), nil
}

func (l *Lowerer) genTestBranch(o insts.B5B40Imm14Rt, nonzero bool) (*ir.IrBlock, error) {
	bitPos := uint64(o.B5)<<5 | uint64(o.B40)
	rt := l.readGpr(ir.U64, o.Rt)
	bit := ir.FromNode(ir.And(ir.U64,
		ir.FromNode(ir.LShr(ir.U64, rt, ir.Imm(ir.U64, bitPos))),
		ir.Imm(ir.U64, 1)))
	var cond ir.Operand
	if nonzero {
		cond = ir.CmpNeOpImm64(bit, 0)
	} else {
		cond = ir.CmpEqOpImm64(bit, 0)
	}
	target := ir.FromNode(ir.GenIPRelative(int64(o.Imm14)<<2, 16))
	node := ir.If(ir.U64, cond, target, nextIp())
	return ir.NewBlock().Emit(node, ir.IpDestination()), nil
}

func (l *Lowerer) genBranchReg(o insts.UncondBranchReg, link bool) (*ir.IrBlock, error) {
	b := ir.NewBlock()
	if link {
		b.Emit(ir.Add(ir.U64, ir.IpOperand(), ir.Imm(ir.U64, 4)), ir.Gpr(l.gpr[30]))
	}
	target := ir.Value(ir.U64, l.readGpr(ir.U64, o.Rn))
	return b.Emit(target, ir.IpDestination()), nil
}
