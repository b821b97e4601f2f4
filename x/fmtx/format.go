package fmtx

import (
	"errors"
	"reflect"
	"strconv"
	"unicode/utf8"
)

// The MCU formatter. It matches fmt for the verbs %v %s %q %d %x %X %t
// %e %f %g %% (and %w in Errorf), the flags - + 0, width and precision.
// Arguments may be basic kinds, named basic kinds, slices and arrays of
// those, errors and Stringers. Anything else prints as %!verb(type).
// It carries no build tag so host tests can compare it against fmt.

type verbSpec struct {
	minus, plus, zero bool
	width, prec       int
	hasPrec           bool
}

type stringer interface{ String() string }

const hexDigits = "0123456789abcdef"

// appendf appends the formatted text to b. With wrapped non-nil, %w is
// accepted for error operands and each one is recorded.
func appendf(b []byte, format string, args []any, wrapped *[]error) []byte {
	ai := 0
	for i := 0; i < len(format); {
		if format[i] != '%' {
			b = append(b, format[i])
			i++
			continue
		}
		i++

		var vs verbSpec
	flags:
		for ; i < len(format); i++ {
			switch format[i] {
			case '-':
				vs.minus = true
			case '+':
				vs.plus = true
			case '0':
				vs.zero = true
			default:
				break flags
			}
		}
		i, vs.width = parseNum(format, i)
		if i < len(format) && format[i] == '.' {
			vs.hasPrec = true
			i, vs.prec = parseNum(format, i+1)
		}
		if i >= len(format) {
			b = append(b, "%!(NOVERB)"...)
			break
		}

		verb, size := utf8.DecodeRuneInString(format[i:])
		i += size
		switch {
		case verb == '%':
			b = append(b, '%')
			continue
		case ai >= len(args):
			b = append(b, '%', '!')
			b = utf8.AppendRune(b, verb)
			b = append(b, "(MISSING)"...)
			continue
		}
		arg := args[ai]
		ai++

		if verb == 'w' {
			err, ok := arg.(error)
			if wrapped == nil || !ok {
				b = appendBadVerb(b, verb, arg)
				continue
			}
			*wrapped = append(*wrapped, err)
			verb = 'v'
		}
		b = appendArg(b, arg, verb, vs)
	}

	if ai < len(args) {
		b = append(b, "%!(EXTRA "...)
		for j, a := range args[ai:] {
			if j > 0 {
				b = append(b, ", "...)
			}
			if a == nil {
				b = append(b, "<nil>"...)
				continue
			}
			b = append(b, reflect.TypeOf(a).String()...)
			b = append(b, '=')
			b = appendArg(b, a, 'v', verbSpec{})
		}
		b = append(b, ')')
	}
	return b
}

func parseNum(s string, i int) (int, int) {
	n := 0
	for ; i < len(s) && '0' <= s[i] && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
	}
	return i, n
}

func appendArg(b []byte, arg any, verb rune, vs verbSpec) []byte {
	if arg == nil {
		if verb == 'v' {
			return appendPadded(b, 0, []byte("<nil>"), vs, false)
		}
		return appendBadVerb(b, verb, arg)
	}
	switch verb {
	case 'v', 's', 'q', 'x', 'X':
		switch x := arg.(type) {
		case error:
			return appendString(b, x.Error(), verb, vs)
		case stringer:
			return appendString(b, x.String(), verb, vs)
		}
	}
	return appendValue(b, reflect.ValueOf(arg), arg, verb, vs)
}

func appendValue(b []byte, v reflect.Value, arg any, verb rune, vs verbSpec) []byte {
	switch v.Kind() {
	case reflect.Bool:
		if verb != 'v' && verb != 't' {
			return appendBadVerb(b, verb, arg)
		}
		return appendPadded(b, 0, strconv.AppendBool(nil, v.Bool()), vs, false)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := v.Int()
		u := uint64(i)
		if i < 0 {
			u = -u
		}
		return appendInteger(b, u, i < 0, arg, verb, vs)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return appendInteger(b, v.Uint(), false, arg, verb, vs)

	case reflect.Float32, reflect.Float64:
		bits := 64
		if v.Kind() == reflect.Float32 {
			bits = 32
		}
		return appendFloat(b, v.Float(), bits, arg, verb, vs)

	case reflect.String:
		switch verb {
		case 'v', 's', 'q', 'x', 'X':
			return appendString(b, v.String(), verb, vs)
		}
		return appendBadVerb(b, verb, arg)

	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			switch verb {
			case 's', 'q', 'x', 'X':
				p := make([]byte, v.Len())
				for i := range p {
					p[i] = byte(v.Index(i).Uint())
				}
				return appendString(b, string(p), verb, vs)
			}
		}
		b = append(b, '[')
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				b = append(b, ' ')
			}
			b = appendArg(b, v.Index(i).Interface(), verb, vs)
		}
		return append(b, ']')
	}

	b = append(b, '%', '!')
	b = utf8.AppendRune(b, verb)
	b = append(b, '(')
	b = append(b, v.Type().String()...)
	return append(b, ')')
}

func appendInteger(b []byte, u uint64, neg bool, arg any, verb rune, vs verbSpec) []byte {
	base := 10
	switch verb {
	case 'v', 'd':
	case 'x', 'X':
		base = 16
	default:
		return appendBadVerb(b, verb, arg)
	}
	digits := strconv.AppendUint(nil, u, base)
	if verb == 'X' {
		upper(digits)
	}
	if vs.hasPrec {
		if vs.prec == 0 && u == 0 {
			digits = digits[:0]
		}
		for len(digits) < vs.prec {
			digits = append([]byte{'0'}, digits...)
		}
	}
	return appendPadded(b, sign(neg, vs), digits, vs, !vs.hasPrec)
}

func appendFloat(b []byte, f float64, bits int, arg any, verb rune, vs verbSpec) []byte {
	prec := -1
	fv := byte('g')
	switch verb {
	case 'v', 'g':
	case 'e', 'f':
		fv, prec = byte(verb), 6
	default:
		return appendBadVerb(b, verb, arg)
	}
	if vs.hasPrec {
		prec = vs.prec
	}
	digits := strconv.AppendFloat(nil, f, fv, prec, bits)
	neg := digits[0] == '-'
	if neg || digits[0] == '+' {
		digits = digits[1:]
	}
	return appendPadded(b, sign(neg, vs), digits, vs, true)
}

func appendString(b []byte, s string, verb rune, vs verbSpec) []byte {
	var body []byte
	switch verb {
	case 'x', 'X':
		if vs.hasPrec && vs.prec < len(s) {
			s = s[:vs.prec]
		}
		body = make([]byte, 0, 2*len(s))
		for i := 0; i < len(s); i++ {
			body = append(body, hexDigits[s[i]>>4], hexDigits[s[i]&0x0F])
		}
		if verb == 'X' {
			upper(body)
		}
	case 'q':
		body = strconv.AppendQuote(nil, truncate(s, vs))
	default:
		body = []byte(truncate(s, vs))
	}
	return appendPadded(b, 0, body, vs, false)
}

// appendPadded writes sgn and body padded to vs.width runes. Zero padding
// goes between sign and body and applies to numbers only.
func appendPadded(b []byte, sgn byte, body []byte, vs verbSpec, numeric bool) []byte {
	n := utf8.RuneCount(body)
	if sgn != 0 {
		n++
	}
	pad := vs.width - n
	if pad <= 0 {
		if sgn != 0 {
			b = append(b, sgn)
		}
		return append(b, body...)
	}
	switch {
	case vs.minus:
		if sgn != 0 {
			b = append(b, sgn)
		}
		b = append(b, body...)
		return repeat(b, ' ', pad)
	case vs.zero && numeric:
		if sgn != 0 {
			b = append(b, sgn)
		}
		b = repeat(b, '0', pad)
		return append(b, body...)
	default:
		b = repeat(b, ' ', pad)
		if sgn != 0 {
			b = append(b, sgn)
		}
		return append(b, body...)
	}
}

func appendBadVerb(b []byte, verb rune, arg any) []byte {
	b = append(b, '%', '!')
	b = utf8.AppendRune(b, verb)
	b = append(b, '(')
	if arg == nil {
		b = append(b, "<nil>"...)
	} else {
		b = append(b, reflect.TypeOf(arg).String()...)
		b = append(b, '=')
		b = appendArg(b, arg, 'v', verbSpec{})
	}
	return append(b, ')')
}

func sign(neg bool, vs verbSpec) byte {
	switch {
	case neg:
		return '-'
	case vs.plus:
		return '+'
	}
	return 0
}

func truncate(s string, vs verbSpec) string {
	if !vs.hasPrec {
		return s
	}
	n := 0
	for i := range s {
		if n == vs.prec {
			return s[:i]
		}
		n++
	}
	return s
}

func upper(p []byte) {
	for i, c := range p {
		if 'a' <= c && c <= 'f' {
			p[i] = c - ('a' - 'A')
		}
	}
}

func repeat(b []byte, c byte, n int) []byte {
	for ; n > 0; n-- {
		b = append(b, c)
	}
	return b
}

type wrapError struct {
	msg string
	err error
}

func (e *wrapError) Error() string { return e.msg }
func (e *wrapError) Unwrap() error { return e.err }

type wrapErrors struct {
	msg  string
	errs []error
}

func (e *wrapErrors) Error() string   { return e.msg }
func (e *wrapErrors) Unwrap() []error { return e.errs }

func errorf(format string, args ...any) error {
	var wrapped []error
	msg := string(appendf(nil, format, args, &wrapped))
	switch len(wrapped) {
	case 0:
		return errors.New(msg)
	case 1:
		return &wrapError{msg, wrapped[0]}
	}
	return &wrapErrors{msg, wrapped}
}
