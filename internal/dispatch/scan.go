package dispatch

import (
	"bytes"
	"unicode/utf16"
	"unicode/utf8"
)

// The scanner below extracts single top-level fields from a JSON object as
// raw sub-slices without allocating. It is deliberately not a general JSON
// parser: it trusts the exchange to send syntactically valid frames and
// reports ok == false on anything it cannot walk, which the dispatcher turns
// into a silent drop.

var nullLiteral = []byte("null")

// findField scans the top level of the object in buf for key and returns the
// raw value slice (string values keep their quotes).
func findField(buf []byte, key string) ([]byte, bool) {
	i := skipWS(buf, 0)
	if i >= len(buf) || buf[i] != '{' {
		return nil, false
	}
	i = skipWS(buf, i+1)

	for i < len(buf) && buf[i] != '}' {
		if buf[i] != '"' {
			return nil, false
		}
		keyStart := i + 1
		keyEnd, ok := scanString(buf, i)
		if !ok {
			return nil, false
		}
		i = skipWS(buf, keyEnd)
		if i >= len(buf) || buf[i] != ':' {
			return nil, false
		}
		i = skipWS(buf, i+1)
		valEnd, ok := scanValue(buf, i)
		if !ok {
			return nil, false
		}
		// Keys with escape sequences never match; none of the protocol's
		// field names contain one.
		if string(buf[keyStart:keyEnd-1]) == key {
			return buf[i:valEnd], true
		}
		i = skipWS(buf, valEnd)
		if i < len(buf) && buf[i] == ',' {
			i = skipWS(buf, i+1)
		}
	}
	return nil, false
}

// skipWS advances past JSON whitespace.
func skipWS(buf []byte, i int) int {
	for i < len(buf) {
		switch buf[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

// scanString expects buf[i] == '"' and returns the index just past the
// closing quote.
func scanString(buf []byte, i int) (int, bool) {
	for i++; i < len(buf); i++ {
		switch buf[i] {
		case '\\':
			i++ // skip the escaped byte
		case '"':
			return i + 1, true
		}
	}
	return 0, false
}

// scanValue returns the exclusive end index of the value starting at buf[i].
func scanValue(buf []byte, i int) (int, bool) {
	if i >= len(buf) {
		return 0, false
	}
	switch buf[i] {
	case '"':
		return scanString(buf, i)
	case '{', '[':
		depth := 0
		for ; i < len(buf); i++ {
			switch buf[i] {
			case '"':
				end, ok := scanString(buf, i)
				if !ok {
					return 0, false
				}
				i = end - 1
			case '{', '[':
				depth++
			case '}', ']':
				depth--
				if depth == 0 {
					return i + 1, true
				}
			}
		}
		return 0, false
	case 't', 'f', 'n':
		for end := i + 1; end < len(buf); end++ {
			c := buf[end]
			if c < 'a' || c > 'z' {
				return end, true
			}
		}
		return len(buf), true
	default: // number
		end := i
		if buf[end] == '-' {
			end++
		}
		start := end
		for end < len(buf) {
			switch c := buf[end]; {
			case c >= '0' && c <= '9', c == '.', c == 'e', c == 'E', c == '+', c == '-':
				end++
			default:
				if end == start {
					return 0, false
				}
				return end, true
			}
		}
		if end == start {
			return 0, false
		}
		return end, true
	}
}

// parseUint converts a raw digit run. Rejects anything that is not a plain
// non-negative integer, so string ids and floats do not classify as RPC.
func parseUint(b []byte) (uint64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	var n uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + uint64(c-'0')
	}
	return n, true
}

// parseInt is parseUint with an optional leading minus, for error codes.
func parseInt(b []byte) (int64, bool) {
	neg := false
	if len(b) > 0 && b[0] == '-' {
		neg = true
		b = b[1:]
	}
	n, ok := parseUint(b)
	if !ok {
		return 0, false
	}
	if neg {
		return -int64(n), true
	}
	return int64(n), true
}

// unquote strips the quotes from a raw string value. When the value has no
// escape sequences the returned slice borrows the input; otherwise a decoded
// copy is allocated.
func unquote(raw []byte) ([]byte, bool) {
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return nil, false
	}
	inner := raw[1 : len(raw)-1]
	if !bytes.ContainsRune(inner, '\\') {
		return inner, true
	}
	return unescape(inner)
}

// unescape decodes JSON escape sequences into a fresh buffer.
func unescape(b []byte) ([]byte, bool) {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' {
			out = append(out, b[i])
			continue
		}
		i++
		if i >= len(b) {
			return nil, false
		}
		switch b[i] {
		case '"', '\\', '/':
			out = append(out, b[i])
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'u':
			r, next, ok := decodeHexRune(b, i)
			if !ok {
				return nil, false
			}
			i = next
			out = utf8.AppendRune(out, r)
		default:
			return nil, false
		}
	}
	return out, true
}

// decodeHexRune decodes \uXXXX at b[i] (i pointing at 'u'), combining
// surrogate pairs, and returns the rune plus the index of the last consumed
// byte.
func decodeHexRune(b []byte, i int) (rune, int, bool) {
	if i+4 >= len(b) {
		return 0, 0, false
	}
	v, ok := hex4(b[i+1 : i+5])
	if !ok {
		return 0, 0, false
	}
	i += 4
	r := rune(v)
	if utf16.IsSurrogate(r) {
		if i+6 < len(b) && b[i+1] == '\\' && b[i+2] == 'u' {
			v2, ok := hex4(b[i+3 : i+7])
			if ok {
				if dec := utf16.DecodeRune(r, rune(v2)); dec != utf8.RuneError {
					return dec, i + 6, true
				}
			}
		}
		return utf8.RuneError, i, true
	}
	return r, i, true
}

func hex4(b []byte) (uint32, bool) {
	var v uint32
	for _, c := range b {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v |= uint32(c - '0')
		case c >= 'a' && c <= 'f':
			v |= uint32(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v |= uint32(c-'A') + 10
		default:
			return 0, false
		}
	}
	return v, true
}
