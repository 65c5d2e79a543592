package lower

import (
	"github.com/sarchlab/aranetrace/guestfault"
	"github.com/sarchlab/aranetrace/insts"
	"github.com/sarchlab/aranetrace/ir"
)

// genException lowers SVC/BRK/HLT: the 16-bit immediate is the payload the
// executor raises as a syscall or exit interrupt.
func genException(o insts.ExceptionGen, dest ir.BlockDestination) (*ir.IrBlock, error) {
	node := ir.Value(ir.U16, ir.Imm(ir.U16, uint64(o.Imm16)))
	return ir.NewBlock().Emit(node, dest), nil
}

func (l *Lowerer) genMrs(o insts.SysRegMov) (*ir.IrBlock, error) {
	// TPIDR_EL0 (S3_3_C13_C0_2), the user-mode thread pointer. TODO:
	// back this with a system-register file instead of reading as zero.
	if o.Op0 == 3 && o.Op1 == 3 && o.Crn == 13 && o.Crm == 0 && o.Op2 == 2 {
		node := ir.Value(ir.U64, ir.Imm(ir.U64, 0))
		return ir.NewBlock().Emit(node, l.writeGpr(o.Rt)), nil
	}
	return nil, guestfault.NotImplementedError("Mrs")
}
