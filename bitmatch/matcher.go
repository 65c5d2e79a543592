package bitmatch

import "fmt"

// FieldSpec names a bit range and how to convert its raw value into a typed
// field. Convert returning an error means the raw bits do not correspond to
// any valid value of T (e.g. a reserved enum encoding); the matcher treats
// that as an undefined encoding for the pattern that matched, not as a
// reason to try the next pattern.
type FieldSpec[T any] struct {
	Lo, Hi  int
	Convert func(raw uint64) (T, error)
}

// Bits builds a FieldSpec that reinterprets the extracted bits as T with no
// validation, for fields where every bit pattern is meaningful (plain
// immediates, register numbers).
func Bits[T ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~int8 | ~int16 | ~int32 | ~int64](lo, hi int) FieldSpec[T] {
	return FieldSpec[T]{Lo: lo, Hi: hi, Convert: func(raw uint64) (T, error) { return T(raw), nil }}
}

// EnumBits builds a FieldSpec that rejects raw values for which valid
// returns false, surfacing an UndefinedEncoding-shaped error from the
// handler rather than silently defaulting.
func EnumBits[T ~uint8 | ~uint16 | ~uint32](lo, hi int, valid func(raw uint64) bool) FieldSpec[T] {
	return FieldSpec[T]{Lo: lo, Hi: hi, Convert: func(raw uint64) (T, error) {
		if valid != nil && !valid(raw) {
			var zero T
			return zero, fmt.Errorf("bitmatch: field [%d:%d) = 0x%x has no valid mapping", lo, hi, raw)
		}
		return T(raw), nil
	}}
}

func extractField[T any](word uint32, f FieldSpec[T]) (T, error) {
	raw := uint64(ExtractBits32(word, f.Lo, f.Hi))
	return f.Convert(raw)
}

type entry[O any] struct {
	pattern, mask uint32
	handler       func(word uint32) (O, error)
}

// Matcher dispatches a 32-bit word to the first registered handler whose
// pattern matches, in registration order. Patterns must be registered
// most-specific first: if two patterns both match a word, the first one
// bound wins even if a later one is a tighter fit.
type Matcher[O any] struct {
	entries []entry[O]
}

// New creates an empty matcher.
func New[O any]() *Matcher[O] {
	return &Matcher[O]{}
}

func (m *Matcher[O]) bind(pattern string, handler func(uint32) (O, error)) {
	p, mask, err := ParsePattern(pattern)
	if err != nil {
		panic(fmt.Sprintf("bitmatch: bad pattern %q: %v", pattern, err))
	}
	m.entries = append(m.entries, entry[O]{pattern: p, mask: mask, handler: handler})
}

// Handle returns the output of the first matching handler. matched is false
// if no pattern matched the word at all. If a pattern matched but its
// handler's field extraction failed, err is non-nil and matched is true.
func (m *Matcher[O]) Handle(word uint32) (out O, matched bool, err error) {
	for _, e := range m.entries {
		if word&e.mask == e.pattern&e.mask {
			out, err = e.handler(word)
			return out, true, err
		}
	}
	return out, false, nil
}

// ParsePattern parses a pattern string of '0', '1', 'x' (don't-care) and
// '_'/' ' (ignored separators) into a (pattern, mask) pair such that a word
// matches when (word & mask) == (pattern & mask).
func ParsePattern(pattern string) (value, mask uint32, err error) {
	for _, c := range pattern {
		switch c {
		case '_', ' ':
			continue
		case 'x', 'X':
			value <<= 1
			mask <<= 1
		case '0':
			value = value<<1 | 0
			mask = mask<<1 | 1
		case '1':
			value = value<<1 | 1
			mask = mask<<1 | 1
		default:
			return 0, 0, fmt.Errorf("bitmatch: bad pattern character %q", c)
		}
	}
	return value, mask, nil
}

// Bind0 registers a nullary handler: the word matched pattern but carries no
// extracted fields (hint instructions such as NOP).
func Bind0[O any](m *Matcher[O], pattern string, handler func(word uint32) (O, error)) {
	m.bind(pattern, handler)
}

// Bind1 registers a handler extracting one typed field.
func Bind1[O, T1 any](m *Matcher[O], pattern string, f1 FieldSpec[T1], handler func(word uint32, v1 T1) (O, error)) {
	m.bind(pattern, func(word uint32) (O, error) {
		var zero O
		v1, err := extractField(word, f1)
		if err != nil {
			return zero, err
		}
		return handler(word, v1)
	})
}

// Bind2 registers a handler extracting two typed fields.
func Bind2[O, T1, T2 any](m *Matcher[O], pattern string, f1 FieldSpec[T1], f2 FieldSpec[T2], handler func(word uint32, v1 T1, v2 T2) (O, error)) {
	m.bind(pattern, func(word uint32) (O, error) {
		var zero O
		v1, err := extractField(word, f1)
		if err != nil {
			return zero, err
		}
		v2, err := extractField(word, f2)
		if err != nil {
			return zero, err
		}
		return handler(word, v1, v2)
	})
}

// Bind3 registers a handler extracting three typed fields.
func Bind3[O, T1, T2, T3 any](m *Matcher[O], pattern string, f1 FieldSpec[T1], f2 FieldSpec[T2], f3 FieldSpec[T3], handler func(word uint32, v1 T1, v2 T2, v3 T3) (O, error)) {
	m.bind(pattern, func(word uint32) (O, error) {
		var zero O
		v1, err := extractField(word, f1)
		if err != nil {
			return zero, err
		}
		v2, err := extractField(word, f2)
		if err != nil {
			return zero, err
		}
		v3, err := extractField(word, f3)
		if err != nil {
			return zero, err
		}
		return handler(word, v1, v2, v3)
	})
}

// Bind4 registers a handler extracting four typed fields.
func Bind4[O, T1, T2, T3, T4 any](m *Matcher[O], pattern string, f1 FieldSpec[T1], f2 FieldSpec[T2], f3 FieldSpec[T3], f4 FieldSpec[T4], handler func(word uint32, v1 T1, v2 T2, v3 T3, v4 T4) (O, error)) {
	m.bind(pattern, func(word uint32) (O, error) {
		var zero O
		v1, err := extractField(word, f1)
		if err != nil {
			return zero, err
		}
		v2, err := extractField(word, f2)
		if err != nil {
			return zero, err
		}
		v3, err := extractField(word, f3)
		if err != nil {
			return zero, err
		}
		v4, err := extractField(word, f4)
		if err != nil {
			return zero, err
		}
		return handler(word, v1, v2, v3, v4)
	})
}

// Bind5 registers a handler extracting five typed fields.
func Bind5[O, T1, T2, T3, T4, T5 any](m *Matcher[O], pattern string, f1 FieldSpec[T1], f2 FieldSpec[T2], f3 FieldSpec[T3], f4 FieldSpec[T4], f5 FieldSpec[T5], handler func(word uint32, v1 T1, v2 T2, v3 T3, v4 T4, v5 T5) (O, error)) {
	m.bind(pattern, func(word uint32) (O, error) {
		var zero O
		v1, err := extractField(word, f1)
		if err != nil {
			return zero, err
		}
		v2, err := extractField(word, f2)
		if err != nil {
			return zero, err
		}
		v3, err := extractField(word, f3)
		if err != nil {
			return zero, err
		}
		v4, err := extractField(word, f4)
		if err != nil {
			return zero, err
		}
		v5, err := extractField(word, f5)
		if err != nil {
			return zero, err
		}
		return handler(word, v1, v2, v3, v4, v5)
	})
}

// Bind6 registers a handler extracting six typed fields.
func Bind6[O, T1, T2, T3, T4, T5, T6 any](m *Matcher[O], pattern string, f1 FieldSpec[T1], f2 FieldSpec[T2], f3 FieldSpec[T3], f4 FieldSpec[T4], f5 FieldSpec[T5], f6 FieldSpec[T6], handler func(word uint32, v1 T1, v2 T2, v3 T3, v4 T4, v5 T5, v6 T6) (O, error)) {
	m.bind(pattern, func(word uint32) (O, error) {
		var zero O
		v1, err := extractField(word, f1)
		if err != nil {
			return zero, err
		}
		v2, err := extractField(word, f2)
		if err != nil {
			return zero, err
		}
		v3, err := extractField(word, f3)
		if err != nil {
			return zero, err
		}
		v4, err := extractField(word, f4)
		if err != nil {
			return zero, err
		}
		v5, err := extractField(word, f5)
		if err != nil {
			return zero, err
		}
		v6, err := extractField(word, f6)
		if err != nil {
			return zero, err
		}
		return handler(word, v1, v2, v3, v4, v5, v6)
	})
}

// Bind7 registers a handler extracting seven typed fields.
func Bind7[O, T1, T2, T3, T4, T5, T6, T7 any](m *Matcher[O], pattern string, f1 FieldSpec[T1], f2 FieldSpec[T2], f3 FieldSpec[T3], f4 FieldSpec[T4], f5 FieldSpec[T5], f6 FieldSpec[T6], f7 FieldSpec[T7], handler func(word uint32, v1 T1, v2 T2, v3 T3, v4 T4, v5 T5, v6 T6, v7 T7) (O, error)) {
	m.bind(pattern, func(word uint32) (O, error) {
		var zero O
		v1, err := extractField(word, f1)
		if err != nil {
			return zero, err
		}
		v2, err := extractField(word, f2)
		if err != nil {
			return zero, err
		}
		v3, err := extractField(word, f3)
		if err != nil {
			return zero, err
		}
		v4, err := extractField(word, f4)
		if err != nil {
			return zero, err
		}
		v5, err := extractField(word, f5)
		if err != nil {
			return zero, err
		}
		v6, err := extractField(word, f6)
		if err != nil {
			return zero, err
		}
		v7, err := extractField(word, f7)
		if err != nil {
			return zero, err
		}
		return handler(word, v1, v2, v3, v4, v5, v6, v7)
	})
}

// Bind8 registers a handler extracting eight typed fields.
func Bind8[O, T1, T2, T3, T4, T5, T6, T7, T8 any](m *Matcher[O], pattern string, f1 FieldSpec[T1], f2 FieldSpec[T2], f3 FieldSpec[T3], f4 FieldSpec[T4], f5 FieldSpec[T5], f6 FieldSpec[T6], f7 FieldSpec[T7], f8 FieldSpec[T8], handler func(word uint32, v1 T1, v2 T2, v3 T3, v4 T4, v5 T5, v6 T6, v7 T7, v8 T8) (O, error)) {
	m.bind(pattern, func(word uint32) (O, error) {
		var zero O
		v1, err := extractField(word, f1)
		if err != nil {
			return zero, err
		}
		v2, err := extractField(word, f2)
		if err != nil {
			return zero, err
		}
		v3, err := extractField(word, f3)
		if err != nil {
			return zero, err
		}
		v4, err := extractField(word, f4)
		if err != nil {
			return zero, err
		}
		v5, err := extractField(word, f5)
		if err != nil {
			return zero, err
		}
		v6, err := extractField(word, f6)
		if err != nil {
			return zero, err
		}
		v7, err := extractField(word, f7)
		if err != nil {
			return zero, err
		}
		v8, err := extractField(word, f8)
		if err != nil {
			return zero, err
		}
		return handler(word, v1, v2, v3, v4, v5, v6, v7, v8)
	})
}

// Bind9 registers a handler extracting nine typed fields.
func Bind9[O, T1, T2, T3, T4, T5, T6, T7, T8, T9 any](m *Matcher[O], pattern string, f1 FieldSpec[T1], f2 FieldSpec[T2], f3 FieldSpec[T3], f4 FieldSpec[T4], f5 FieldSpec[T5], f6 FieldSpec[T6], f7 FieldSpec[T7], f8 FieldSpec[T8], f9 FieldSpec[T9], handler func(word uint32, v1 T1, v2 T2, v3 T3, v4 T4, v5 T5, v6 T6, v7 T7, v8 T8, v9 T9) (O, error)) {
	m.bind(pattern, func(word uint32) (O, error) {
		var zero O
		v1, err := extractField(word, f1)
		if err != nil {
			return zero, err
		}
		v2, err := extractField(word, f2)
		if err != nil {
			return zero, err
		}
		v3, err := extractField(word, f3)
		if err != nil {
			return zero, err
		}
		v4, err := extractField(word, f4)
		if err != nil {
			return zero, err
		}
		v5, err := extractField(word, f5)
		if err != nil {
			return zero, err
		}
		v6, err := extractField(word, f6)
		if err != nil {
			return zero, err
		}
		v7, err := extractField(word, f7)
		if err != nil {
			return zero, err
		}
		v8, err := extractField(word, f8)
		if err != nil {
			return zero, err
		}
		v9, err := extractField(word, f9)
		if err != nil {
			return zero, err
		}
		return handler(word, v1, v2, v3, v4, v5, v6, v7, v8, v9)
	})
}
