package insts

// Instr is one decoded instruction: an opcode plus the operand record for
// its encoding class. Operand holds the record type documented on each Op
// family (ShImm12RnRd, LogicalImm, ...) and is nil for the nullary hint
// instructions.
type Instr struct {
	Op      Op
	Operand any
}
