package ir

import "github.com/sarchlab/aranetrace/bitmatch"

// ShiftType is the register-shift kind carried by data-processing (register)
// encodings.
type ShiftType uint8

const (
	ShiftLSL ShiftType = iota
	ShiftLSR
	ShiftASR
	ShiftROR
)

// DecodeShift builds the IR for applying a register shift of the given type
// and amount to a value already read into an operand.
func DecodeShift(typ Type, shift ShiftType, value Operand, amount uint8) *Ir {
	amt := Imm(typ, uint64(amount))
	switch shift {
	case ShiftLSL:
		return Shl(typ, value, amt)
	case ShiftLSR:
		return LShr(typ, value, amt)
	case ShiftASR:
		return AShr(typ, value, amt)
	case ShiftROR:
		return Rotr(typ, value, amt)
	default:
		return Shl(typ, value, amt)
	}
}

// ShiftReg reads rm and applies a DecodeShift of amount, returning an
// operand usable as the second operand of an arithmetic/logical node. This
// mirrors the data-processing (register) family's "shifted register" second
// operand.
func ShiftReg(typ Type, rm Operand, shift ShiftType, amount uint8) Operand {
	if amount == 0 && shift == ShiftLSL {
		return rm
	}
	return FromNode(DecodeShift(typ, shift, rm, amount))
}

// ExtendType is the register-extend kind used by add/sub (extended
// register) encodings.
type ExtendType uint8

const (
	ExtendUXTB ExtendType = iota
	ExtendUXTH
	ExtendUXTW
	ExtendUXTX
	ExtendSXTB
	ExtendSXTH
	ExtendSXTW
	ExtendSXTX
)

// DecodeRegExtend maps a 3-bit "option" field to an ExtendType, per the ARM
// ARM add/sub-extended-register encoding table.
func DecodeRegExtend(option uint8) ExtendType {
	return ExtendType(option & 0x7)
}

// ExtendReg builds the IR for reading rm, extending it per ext, and then
// shifting left by shiftAmount (the imm3 field), producing the second
// operand of an add/sub (extended register) node.
func ExtendReg(rm Operand, ext ExtendType, shiftAmount uint8) Operand {
	var narrow Type
	var signed bool
	switch ext {
	case ExtendUXTB:
		narrow, signed = U8, false
	case ExtendUXTH:
		narrow, signed = U16, false
	case ExtendUXTW:
		narrow, signed = U32, false
	case ExtendUXTX:
		narrow, signed = U64, false
	case ExtendSXTB:
		narrow, signed = I8, true
	case ExtendSXTH:
		narrow, signed = I16, true
	case ExtendSXTW:
		narrow, signed = I32, true
	default: // ExtendSXTX
		narrow, signed = I64, true
	}

	narrowed := FromNode(BitCast(narrow, rm))
	var extended Operand
	if signed {
		extended = FromNode(SextCast(I64, narrowed))
	} else {
		extended = FromNode(ZextCast(U64, narrowed))
	}
	if shiftAmount == 0 {
		return extended
	}
	return FromNode(Shl(U64, extended, Imm(U64, uint64(shiftAmount))))
}

// DecodeBitMasks implements the ARM ARM DecodeBitMasks pseudocode shared
// by the logical-immediate and bitfield families. n, imms, and immr are
// the raw encoding fields; immediate is true for the logical-immediate
// forms, where an all-ones element (imms == levels) is additionally
// reserved; sixtyFourBit selects a 64-bit rather than 32-bit datasize (the
// element size follows from N:imms). It returns
// (wmask, tmask) and an error for reserved field combinations.
func DecodeBitMasks(n uint8, imms, immr uint8, immediate, sixtyFourBit bool) (wmask, tmask uint64, err error) {
	// len = highest set bit position of the concatenation N:NOT(imms).
	immsNot := ^uint64(imms) & 0x3F
	concat := (uint64(n) << 6) | immsNot
	length := -1
	for bit := 6; bit >= 0; bit-- {
		if concat&(1<<uint(bit)) != 0 {
			length = bit
			break
		}
	}
	if length < 0 {
		return 0, 0, errReservedBitmask()
	}

	elemBits := uint(1) << uint(length)
	if !sixtyFourBit && elemBits > 32 {
		return 0, 0, errReservedBitmask()
	}

	levels := uint64(elemBits - 1)
	s := uint64(imms) & levels
	r := uint64(immr) & levels
	if immediate && s == levels {
		return 0, 0, errReservedBitmask()
	}

	d := (s - r) & levels

	// welem carries S+1 ones rotated right by R; telem carries d+1 ones.
	welem := bitmatch.Replicate(1, 1, uint(s+1))
	telem := bitmatch.Replicate(1, 1, uint(d+1))
	rotated := rotr(welem, uint(r), elemBits)

	totalBits := uint(32)
	if sixtyFourBit {
		totalBits = 64
	}
	wmask = bitmatch.Replicate(rotated, elemBits, totalBits)
	tmask = bitmatch.Replicate(telem, elemBits, totalBits)
	return wmask, tmask, nil
}

func rotr(value uint64, amount, width uint) uint64 {
	if width == 0 {
		return value
	}
	amount %= width
	mask := uint64(1)<<width - 1
	if width == 64 {
		mask = ^uint64(0)
	}
	value &= mask
	if amount == 0 {
		return value
	}
	return ((value >> amount) | (value << (width - amount))) & mask
}

// ReplicateReg64 tiles the low fromWidth bits of value to fill 64 bits.
// The lowerer's SBFM top-bit fill is built with ReplicateSignBit instead.
func ReplicateReg64(value uint64, fromWidth uint) uint64 {
	return bitmatch.Replicate(value, fromWidth, 64)
}

// ReplaceBits returns original with the [lo, hi) bit range overwritten by
// the low (hi-lo) bits of replacement. It is the constant-value counterpart
// of ReplaceBitsIr, which the CCMP/CCMN lowering emits.
func ReplaceBits(original uint64, replacement uint64, lo, hi uint) uint64 {
	width := hi - lo
	mask := uint64(1)<<width - 1
	return (original &^ (mask << lo)) | ((replacement & mask) << lo)
}

// Cond is an AArch64 condition code, per the ARM ARM condition field
// encoding (EQ=0000 .. AL/NV=1110/1111).
type Cond uint8

const (
	CondEQ Cond = iota
	CondNE
	CondCS
	CondCC
	CondMI
	CondPL
	CondVS
	CondVC
	CondHI
	CondLS
	CondGE
	CondLT
	CondGT
	CondLE
	CondAL
	CondNV
)

// Flags unpacks the packed NZCV word (bits 60..64, matching the register
// file layout used by FlagOperand) into its four components.
type Flags struct {
	N, Z, C, V bool
}

// UnpackFlags extracts N/Z/C/V from a packed flags word using the register
// file's bit positions.
func UnpackFlags(packed uint64) Flags {
	return Flags{
		N: packed&(1<<63) != 0,
		Z: packed&(1<<62) != 0,
		C: packed&(1<<61) != 0,
		V: packed&(1<<60) != 0,
	}
}

// PackFlags reassembles a packed NZCV word from its components.
func PackFlags(f Flags) uint64 {
	var packed uint64
	if f.N {
		packed |= 1 << 63
	}
	if f.Z {
		packed |= 1 << 62
	}
	if f.C {
		packed |= 1 << 61
	}
	if f.V {
		packed |= 1 << 60
	}
	return packed
}

// ConditionHolds evaluates an AArch64 condition code against a flags word,
// per the ARM ARM's ConditionHolds pseudocode.
func ConditionHolds(cond Cond, packed uint64) bool {
	f := UnpackFlags(packed)
	var result bool
	switch cond &^ 1 {
	case CondEQ:
		result = f.Z
	case CondCS:
		result = f.C
	case CondMI:
		result = f.N
	case CondVS:
		result = f.V
	case CondHI:
		result = f.C && !f.Z
	case CondGE:
		result = f.N == f.V
	case CondGT:
		result = !f.Z && f.N == f.V
	case CondAL:
		result = true
	}
	if cond&1 == 1 && cond != CondAL && cond != CondNV {
		result = !result
	}
	return result
}

// GenIPRelative builds the IR for Ip + sign_extend(imm, width), the shared
// shape behind the B/BL, B.cond, CBZ/CBNZ and TBZ/TBNZ targets, LDR
// (literal) addresses and ADR's PC-relative address.
func GenIPRelative(imm int64, width uint) *Ir {
	offset := bitmatch.SignExtend(imm, width)
	return Add(U64, IpOperand(), Imm(I64, uint64(offset)))
}

// CmpNeOpImm32 builds the inequality predicate rn != imm as a Bool operand.
// ZextCast to Bool follows the truthiness convention: the result is true
// exactly when the source value is nonzero, so Xor-then-Bool yields "the
// operands differ".
func CmpNeOpImm32(rn Operand, imm uint64) Operand {
	return FromNode(ZextCast(Bool, FromNode(Xor(U32, rn, Imm(U32, imm)))))
}

// CmpNeOpImm64 is the X-register form of CmpNeOpImm32.
func CmpNeOpImm64(rn Operand, imm uint64) Operand {
	return FromNode(ZextCast(Bool, FromNode(Xor(U64, rn, Imm(U64, imm)))))
}

// CmpEqOpImm32 builds the equality predicate rn == imm as a Bool operand,
// the negation of CmpNeOpImm32.
func CmpEqOpImm32(rn Operand, imm uint64) Operand {
	return NotBool(CmpNeOpImm32(rn, imm))
}

// CmpEqOpImm64 is the X-register form of CmpEqOpImm32.
func CmpEqOpImm64(rn Operand, imm uint64) Operand {
	return NotBool(CmpNeOpImm64(rn, imm))
}

// NotBool negates a Bool operand.
func NotBool(b Operand) Operand {
	return FromNode(Xor(Bool, b, Imm(Bool, 1)))
}

// flagBit reads one bit of the packed NZCV word as a Bool operand.
func flagBit(pos uint) Operand {
	bit := FromNode(LShr(U64, FlagOperand(), Imm(U64, uint64(pos))))
	return FromNode(ZextCast(Bool, FromNode(And(U64, bit, Imm(U64, 1)))))
}

// ConditionHoldsIr builds the Bool IR for an AArch64 condition code
// evaluated against the flags register at block execution time. It is the
// IR-emitting counterpart of ConditionHolds, following the same ARM ARM
// structure: a base predicate selected by cond<3:1>, inverted when cond<0>
// is set unless the code is AL or NV.
func ConditionHoldsIr(cond Cond) Operand {
	n, z, c, v := flagBit(63), flagBit(62), flagBit(61), flagBit(60)

	var base Operand
	switch cond &^ 1 {
	case CondEQ:
		base = z
	case CondCS:
		base = c
	case CondMI:
		base = n
	case CondVS:
		base = v
	case CondHI:
		base = FromNode(And(Bool, c, NotBool(z)))
	case CondGE:
		base = NotBool(FromNode(Xor(Bool, n, v)))
	case CondGT:
		base = FromNode(And(Bool, NotBool(z), NotBool(FromNode(Xor(Bool, n, v)))))
	default: // CondAL, CondNV
		base = Imm(Bool, 1)
	}
	if cond&1 == 1 && cond != CondAL && cond != CondNV {
		return NotBool(base)
	}
	return base
}

// ReplaceBitsIr builds the IR that overwrites the [lo, hi) bit range of op
// with value, the runtime counterpart of ReplaceBits. CCMP's condition-
// failed path uses it to fold the encoded nzcv field into the flags word.
func ReplaceBitsIr(op Operand, value Operand, lo, hi uint) *Ir {
	width := hi - lo
	mask := uint64(1)<<width - 1
	cleared := FromNode(And(U64, op, Imm(U64, ^(mask<<lo))))
	placed := FromNode(And(U64, FromNode(Shl(U64, value, Imm(U64, uint64(lo)))), Imm(U64, mask<<lo)))
	return Or(U64, cleared, placed)
}

// NZFlags builds the IR computing a packed flags word with N and Z derived
// from value and C and V clear, the flag result of the logical flag-setting
// instructions (ANDS and its TST alias).
func NZFlags(ty Type, value Operand) *Ir {
	signBit := uint64(ty.Size()*8 - 1)
	n := FromNode(And(U64, FromNode(LShr(U64, FromNode(ZextCast(U64, value)), Imm(U64, signBit))), Imm(U64, 1)))
	var z Operand
	switch ty {
	case U32, I32:
		z = FromNode(ZextCast(U64, CmpEqOpImm32(value, 0)))
	default:
		z = FromNode(ZextCast(U64, CmpEqOpImm64(value, 0)))
	}
	return Or(U64,
		FromNode(Shl(U64, n, Imm(U64, 63))),
		FromNode(Shl(U64, z, Imm(U64, 62))))
}

// ReplicateSignBit builds the IR tiling bit bitPos of src across the full
// datasize-bit value: shift the bit to the top, then arithmetic-shift it
// back down. SBFM uses it to fill the destination above the copied field.
func ReplicateSignBit(ty Type, src Operand, bitPos, datasize uint) *Ir {
	top := FromNode(Shl(ty, src, Imm(ty, uint64(datasize-1-bitPos))))
	return AShr(ty, top, Imm(ty, uint64(datasize-1)))
}

// DecodeOperandForLdStRegImm resolves the three addressing-mode bits shared
// by every load/store-register-immediate encoding class (unsigned offset,
// pre-index, post-index) into an explicit offset plus writeback behavior.
//
// unsignedOffset selects the scaled, no-writeback form (bit 24 of the
// encoding group); when false, imm9 carries a signed 9-bit byte offset and
// the index bit selects pre- vs post-indexing.
func DecodeOperandForLdStRegImm(unsignedOffset bool, imm12 uint16, scale uint, imm9 int16, preIndex bool) (offset int64, wback bool, postIndex bool) {
	if unsignedOffset {
		return int64(imm12) << scale, false, false
	}
	return int64(imm9), true, !preIndex
}

func errReservedBitmask() error {
	return bitmaskReservedErr
}

var bitmaskReservedErr = &reservedEncodingError{}

type reservedEncodingError struct{}

func (*reservedEncodingError) Error() string { return "ir: reserved bitmask encoding (N:imms is all-ones or illegal)" }
