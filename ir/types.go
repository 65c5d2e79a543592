// Package ir defines the language-neutral intermediate representation that
// the AArch64 lowerer emits: a small statically-typed node algebra plus the
// destinations those nodes can be written to.
package ir

// Type is the value type carried by an IR node or operand.
type Type uint8

const (
	I8 Type = iota
	U8
	I16
	U16
	I32
	U32
	I64
	U64
	Bool
	Void
)

// Size returns the byte size of a value of this type. Void and Bool report 0
// and 1 respectively; Bool is not memory-addressable.
func (t Type) Size() int {
	switch t {
	case I8, U8:
		return 1
	case I16, U16:
		return 2
	case I32, U32:
		return 4
	case I64, U64:
		return 8
	case Bool:
		return 1
	default:
		return 0
	}
}

func (t Type) String() string {
	switch t {
	case I8:
		return "i8"
	case U8:
		return "u8"
	case I16:
		return "i16"
	case U16:
		return "u16"
	case I32:
		return "i32"
	case U32:
		return "u32"
	case I64:
		return "i64"
	case U64:
		return "u64"
	case Bool:
		return "bool"
	case Void:
		return "void"
	default:
		return "?"
	}
}

// RegId is an opaque virtual-register identifier. The lowerer binds a fixed
// table of RegIds to guest GPRs/FPRs/SP at construction; nothing else
// constructs or compares RegIds structurally beyond equality.
type RegId uint8

// Operand is a tagged value read by an Ir node: an immediate, a virtual
// register, the result of a previously-computed node, the program counter,
// or the flags register. Exactly one of the accessors below is meaningful
// for a given Operand, selected by Kind.
type OperandKind uint8

const (
	OperandImmediate OperandKind = iota
	OperandRegister
	OperandIr
	OperandIp
	OperandFlag
)

type Operand struct {
	Kind  OperandKind
	Typ   Type
	Imm   uint64
	Reg   RegId
	Node  *Ir
}

// Imm builds an immediate operand of the given type.
func Imm(t Type, value uint64) Operand { return Operand{Kind: OperandImmediate, Typ: t, Imm: value} }

// Reg builds a register-read operand of the given type.
func Reg(t Type, id RegId) Operand { return Operand{Kind: OperandRegister, Typ: t, Reg: id} }

// FromNode builds an operand that reads the result of a previously-emitted
// node within the same block.
func FromNode(n *Ir) Operand { return Operand{Kind: OperandIr, Typ: n.Typ, Node: n} }

// IpOperand reads the current program counter. Only valid as a read; Ip may
// only ever be written via a BlockDestination on the block's terminal node.
func IpOperand() Operand { return Operand{Kind: OperandIp, Typ: U64} }

// FlagOperand reads the packed NZCV flags word. Like Ip, Flag is read-only
// as an operand; it is written only through BlockDestination.
func FlagOperand() Operand { return Operand{Kind: OperandFlag, Typ: U64} }

// Op identifies the IR node's operation.
type Op uint8

const (
	OpValue Op = iota
	OpNop
	OpAdd
	OpSub
	OpAddc
	OpSubc
	OpAnd
	OpOr
	OpXor
	OpRotr
	OpShl
	OpLShr
	OpAShr
	OpBitCast
	OpZextCast
	OpSextCast
	OpIf
	OpLoad
)

// Ir is one instruction of the intermediate representation. Each node has a
// fixed, statically-determined result Type. Binary arithmetic/logical nodes
// read Lhs/Rhs; Addc/Subc additionally read a third operand carrying the
// incoming carry bit, stored in Extra; If reads a boolean Cond plus
// Then/Else operands; BitCast/ZextCast/SextCast/Load read a single operand
// held in Lhs.
type Ir struct {
	Op    Op
	Typ   Type
	Lhs   Operand
	Rhs   Operand
	Extra Operand
	Cond  Operand
	Then  Operand
	Else  Operand
}

// Value wraps a plain operand read with no computation, giving it a node
// identity so it can be referenced by later nodes or named as a
// BlockDestination target.
func Value(typ Type, v Operand) *Ir { return &Ir{Op: OpValue, Typ: typ, Lhs: v} }

// Nop produces no value; the hint instructions (NOP, YIELD, WFE, ...) lower
// to a single Nop with no destination.
func Nop() *Ir { return &Ir{Op: OpNop, Typ: Void} }

func binary(op Op, typ Type, lhs, rhs Operand) *Ir {
	return &Ir{Op: op, Typ: typ, Lhs: lhs, Rhs: rhs}
}

func Add(typ Type, lhs, rhs Operand) *Ir  { return binary(OpAdd, typ, lhs, rhs) }
func Sub(typ Type, lhs, rhs Operand) *Ir  { return binary(OpSub, typ, lhs, rhs) }
func And(typ Type, lhs, rhs Operand) *Ir  { return binary(OpAnd, typ, lhs, rhs) }
func Or(typ Type, lhs, rhs Operand) *Ir   { return binary(OpOr, typ, lhs, rhs) }
func Xor(typ Type, lhs, rhs Operand) *Ir  { return binary(OpXor, typ, lhs, rhs) }
func Rotr(typ Type, lhs, rhs Operand) *Ir { return binary(OpRotr, typ, lhs, rhs) }
func Shl(typ Type, lhs, rhs Operand) *Ir  { return binary(OpShl, typ, lhs, rhs) }
func LShr(typ Type, lhs, rhs Operand) *Ir { return binary(OpLShr, typ, lhs, rhs) }
func AShr(typ Type, lhs, rhs Operand) *Ir { return binary(OpAShr, typ, lhs, rhs) }

// Addc is add-with-carry: Lhs + Rhs + Extra, where Extra is a 1-bit carry-in
// operand. Evaluating an Addc or Subc node records the NZCV word produced
// by the operation in addition to yielding the arithmetic result: a
// destination of Gpr or None receives the result and the recorded NZCV is
// written back to the flags register, while a destination of Flags commits
// the recorded NZCV itself (the shape CCMP's If-wrapped compare relies on).
func Addc(typ Type, lhs, rhs, carryIn Operand) *Ir {
	return &Ir{Op: OpAddc, Typ: typ, Lhs: lhs, Rhs: rhs, Extra: carryIn}
}

// Subc is subtract-with-borrow: Lhs - Rhs - (1 - Extra), matching the ARM
// ARM's SBC semantics, where Extra is the incoming carry flag.
func Subc(typ Type, lhs, rhs, carryIn Operand) *Ir {
	return &Ir{Op: OpSubc, Typ: typ, Lhs: lhs, Rhs: rhs, Extra: carryIn}
}

func BitCast(typ Type, v Operand) *Ir  { return &Ir{Op: OpBitCast, Typ: typ, Lhs: v} }
func ZextCast(typ Type, v Operand) *Ir { return &Ir{Op: OpZextCast, Typ: typ, Lhs: v} }
func SextCast(typ Type, v Operand) *Ir { return &Ir{Op: OpSextCast, Typ: typ, Lhs: v} }

// If evaluates cond (a Bool operand) and yields then or els. For a
// non-Void typ both branches must share the result type (data selection,
// CSEL and friends, and branch targets). A Void If is evaluated only for
// the chosen branch's committed side effect, which lets CCMP predicate a
// Subc against a flags-word fold of a different width.
func If(typ Type, cond, then, els Operand) *Ir {
	return &Ir{Op: OpIf, Typ: typ, Cond: cond, Then: then, Else: els}
}

// Load reads typ-sized data from the guest address held by addr.
func Load(typ Type, addr Operand) *Ir { return &Ir{Op: OpLoad, Typ: typ, Lhs: addr} }

// DestKind identifies the shape of a BlockDestination.
type DestKind uint8

const (
	DestNone DestKind = iota
	DestGpr
	DestFpr
	DestIp
	DestFlags
	DestMemoryRel
	DestSystemCall
	DestExit
)

// BlockDestination names where a node's result is written. MemoryRel writes
// to a guest address computed as Base + Offset, the shape produced by
// load/store-with-writeback and paired-load/store lowering.
type BlockDestination struct {
	Kind   DestKind
	Reg    RegId
	Base   RegId
	Offset int64
}

func DestinationNone() BlockDestination          { return BlockDestination{Kind: DestNone} }
func Gpr(id RegId) BlockDestination              { return BlockDestination{Kind: DestGpr, Reg: id} }
func Fpr(id RegId) BlockDestination              { return BlockDestination{Kind: DestFpr, Reg: id} }
func IpDestination() BlockDestination            { return BlockDestination{Kind: DestIp} }
func FlagsDestination() BlockDestination         { return BlockDestination{Kind: DestFlags} }
func SystemCallDestination() BlockDestination    { return BlockDestination{Kind: DestSystemCall} }
func ExitDestination() BlockDestination          { return BlockDestination{Kind: DestExit} }
func MemoryRel(base RegId, offset int64) BlockDestination {
	return BlockDestination{Kind: DestMemoryRel, Base: base, Offset: offset}
}

// Entry pairs one node with where its result is written.
type Entry struct {
	Node Ir
	Dest BlockDestination
}

// IrBlock is the straight-line lowering of exactly one guest instruction: an
// ordered list of (node, destination) pairs plus the instruction's byte
// length in the guest stream (always 4 for AArch64's fixed-width encoding).
type IrBlock struct {
	Entries []Entry
	Length  int
}

// Emit appends a node/destination pair and returns the block for chaining.
func (b *IrBlock) Emit(node *Ir, dest BlockDestination) *IrBlock {
	b.Entries = append(b.Entries, Entry{Node: *node, Dest: dest})
	return b
}

// NewBlock starts an IrBlock for a 4-byte-encoded AArch64 instruction.
func NewBlock() *IrBlock {
	return &IrBlock{Length: 4}
}
