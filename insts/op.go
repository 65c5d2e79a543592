package insts

// Op identifies a decoded opcode. Each Op has exactly one associated
// operand record type (see Instr), matching the one-operand-struct-per-
// variant shape of the instruction set this decoder covers; the nullary
// hint opcodes carry no operand record.
type Op uint16

const (
	OpUnknown Op = iota

	// Data-processing (immediate): add/sub.
	OpAddImm32
	OpAddsImm32
	OpSubImm32
	OpSubsImm32
	OpAddImm64
	OpAddsImm64
	OpSubImm64
	OpSubsImm64

	// Logical (immediate).
	OpAndImm32
	OpOrrImm32
	OpEorImm32
	OpAndsImm32
	OpAndImm64
	OpOrrImm64
	OpEorImm64
	OpAndsImm64

	// Bitfield.
	OpSbfm32
	OpBfm32
	OpUbfm32
	OpSbfm64
	OpBfm64
	OpUbfm64

	// Data-processing (shifted register).
	OpAndShiftedReg32
	OpOrrShiftedReg32
	OpEorShiftedReg32
	OpAndsShiftedReg32
	OpAndShiftedReg64
	OpOrrShiftedReg64
	OpEorShiftedReg64
	OpAndsShiftedReg64
	OpAddShiftedReg32
	OpAddsShiftedReg32
	OpSubShiftedReg32
	OpSubsShiftedReg32
	OpAddShiftedReg64
	OpAddsShiftedReg64
	OpSubShiftedReg64
	OpSubsShiftedReg64

	// Add/sub (extended register), 64-bit form.
	OpAddExtReg64
	OpAddsExtReg64
	OpSubExtReg64
	OpSubsExtReg64

	// Move wide.
	OpMovn32
	OpMovz32
	OpMovk32
	OpMovn64
	OpMovz64
	OpMovk64

	// PC-relative addressing.
	OpAdr
	OpAdrp

	// Unconditional branch (immediate).
	OpBImm
	OpBlImm

	// Conditional branch.
	OpBCond

	// Compare & branch.
	OpCbz32
	OpCbnz32
	OpCbz64
	OpCbnz64

	// Test & branch.
	OpTbz
	OpTbnz

	// Unconditional branch (register).
	OpBr
	OpBlr
	OpRet

	// Conditional select.
	OpCsel32
	OpCsinc32
	OpCsinv32
	OpCsneg32
	OpCsel64
	OpCsinc64
	OpCsinv64
	OpCsneg64

	// Conditional compare (immediate).
	OpCcmpImm32
	OpCcmnImm32
	OpCcmpImm64
	OpCcmnImm64

	// Exception generation.
	OpSvc
	OpBrk
	OpHlt

	// System.
	OpMrs

	// Hints (nullary).
	OpNop
	OpYield
	OpWfe
	OpWfi
	OpSev
	OpSevl

	// Load/store (unsigned immediate offset).
	OpStrbImm
	OpLdrbImm
	OpLdrsbImm32
	OpLdrsbImm64
	OpStrhImm
	OpLdrhImm
	OpLdrshImm32
	OpLdrshImm64
	OpStrImm32
	OpLdrImm32
	OpStrImm64
	OpLdrImm64

	// Load/store (pre/post-indexed immediate).
	OpStrbImmPost
	OpStrbImmPre
	OpLdrbImmPost
	OpLdrbImmPre
	OpStrImm32Post
	OpStrImm32Pre
	OpLdrImm32Post
	OpLdrImm32Pre
	OpStrImm64Post
	OpStrImm64Pre
	OpLdrImm64Post
	OpLdrImm64Pre

	// Load register (literal).
	OpLdrLit32
	OpLdrLit64

	// Load/store pair.
	OpStp32
	OpLdp32
	OpStp64
	OpLdp64

	// Load/store (register offset).
	OpLdrReg32
	OpLdrReg64
	OpStrReg32
	OpStrReg64
)

var opNames = map[Op]string{
	OpAddImm32: "AddImm32", OpAddsImm32: "AddsImm32", OpSubImm32: "SubImm32", OpSubsImm32: "SubsImm32",
	OpAddImm64: "AddImm64", OpAddsImm64: "AddsImm64", OpSubImm64: "SubImm64", OpSubsImm64: "SubsImm64",
	OpAndImm32: "AndImm32", OpOrrImm32: "OrrImm32", OpEorImm32: "EorImm32", OpAndsImm32: "AndsImm32",
	OpAndImm64: "AndImm64", OpOrrImm64: "OrrImm64", OpEorImm64: "EorImm64", OpAndsImm64: "AndsImm64",
	OpSbfm32: "Sbfm32", OpBfm32: "Bfm32", OpUbfm32: "Ubfm32",
	OpSbfm64: "Sbfm64", OpBfm64: "Bfm64", OpUbfm64: "Ubfm64",
	OpAndShiftedReg32: "AndShiftedReg32", OpOrrShiftedReg32: "OrrShiftedReg32",
	OpEorShiftedReg32: "EorShiftedReg32", OpAndsShiftedReg32: "AndsShiftedReg32",
	OpAndShiftedReg64: "AndShiftedReg64", OpOrrShiftedReg64: "OrrShiftedReg64",
	OpEorShiftedReg64: "EorShiftedReg64", OpAndsShiftedReg64: "AndsShiftedReg64",
	OpAddShiftedReg32: "AddShiftedReg32", OpAddsShiftedReg32: "AddsShiftedReg32",
	OpSubShiftedReg32: "SubShiftedReg32", OpSubsShiftedReg32: "SubsShiftedReg32",
	OpAddShiftedReg64: "AddShiftedReg64", OpAddsShiftedReg64: "AddsShiftedReg64",
	OpSubShiftedReg64: "SubShiftedReg64", OpSubsShiftedReg64: "SubsShiftedReg64",
	OpAddExtReg64: "AddExtReg64", OpAddsExtReg64: "AddsExtReg64",
	OpSubExtReg64: "SubExtReg64", OpSubsExtReg64: "SubsExtReg64",
	OpMovn32: "Movn32", OpMovz32: "Movz32", OpMovk32: "Movk32",
	OpMovn64: "Movn64", OpMovz64: "Movz64", OpMovk64: "Movk64",
	OpAdr: "Adr", OpAdrp: "Adrp",
	OpBImm: "BImm", OpBlImm: "BlImm", OpBCond: "BCond",
	OpCbz32: "Cbz32", OpCbnz32: "Cbnz32", OpCbz64: "Cbz64", OpCbnz64: "Cbnz64",
	OpTbz: "Tbz", OpTbnz: "Tbnz",
	OpBr: "Br", OpBlr: "Blr", OpRet: "Ret",
	OpCsel32: "Csel32", OpCsinc32: "Csinc32", OpCsinv32: "Csinv32", OpCsneg32: "Csneg32",
	OpCsel64: "Csel64", OpCsinc64: "Csinc64", OpCsinv64: "Csinv64", OpCsneg64: "Csneg64",
	OpCcmpImm32: "CcmpImm32", OpCcmnImm32: "CcmnImm32",
	OpCcmpImm64: "CcmpImm64", OpCcmnImm64: "CcmnImm64",
	OpSvc: "Svc", OpBrk: "Brk", OpHlt: "Hlt", OpMrs: "Mrs",
	OpNop: "Nop", OpYield: "Yield", OpWfe: "Wfe", OpWfi: "Wfi", OpSev: "Sev", OpSevl: "Sevl",
	OpStrbImm: "StrbImm", OpLdrbImm: "LdrbImm", OpLdrsbImm32: "LdrsbImm32", OpLdrsbImm64: "LdrsbImm64",
	OpStrhImm: "StrhImm", OpLdrhImm: "LdrhImm", OpLdrshImm32: "LdrshImm32", OpLdrshImm64: "LdrshImm64",
	OpStrImm32: "StrImm32", OpLdrImm32: "LdrImm32", OpStrImm64: "StrImm64", OpLdrImm64: "LdrImm64",
	OpStrbImmPost: "StrbImmPost", OpStrbImmPre: "StrbImmPre",
	OpLdrbImmPost: "LdrbImmPost", OpLdrbImmPre: "LdrbImmPre",
	OpStrImm32Post: "StrImm32Post", OpStrImm32Pre: "StrImm32Pre",
	OpLdrImm32Post: "LdrImm32Post", OpLdrImm32Pre: "LdrImm32Pre",
	OpStrImm64Post: "StrImm64Post", OpStrImm64Pre: "StrImm64Pre",
	OpLdrImm64Post: "LdrImm64Post", OpLdrImm64Pre: "LdrImm64Pre",
	OpLdrLit32: "LdrLit32", OpLdrLit64: "LdrLit64",
	OpStp32: "Stp32", OpLdp32: "Ldp32", OpStp64: "Stp64", OpLdp64: "Ldp64",
	OpLdrReg32: "LdrReg32", OpLdrReg64: "LdrReg64", OpStrReg32: "StrReg32", OpStrReg64: "StrReg64",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return "Unknown"
}
