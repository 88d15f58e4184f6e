package database

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// The hash input of the reference network renders the payload and the
// timestamp with Python's str(). These functions reproduce that rendering
// from the JSON form so both networks agree byte for byte on the input.

// stringify renders the JSON payload. A top level string is rendered as is,
// nested strings are quoted, arrays and objects keep their element order.
func stringify(data json.RawMessage) string {
	if len(data) == 0 {
		return "None"
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var sb strings.Builder
	if err := render(dec, &sb, true); err != nil {
		return string(data)
	}

	return sb.String()
}

func render(dec *json.Decoder, sb *strings.Builder, top bool) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '[':
			sb.WriteByte('[')
			for i := 0; dec.More(); i++ {
				if i > 0 {
					sb.WriteString(", ")
				}
				if err := render(dec, sb, false); err != nil {
					return err
				}
			}
			if _, err := dec.Token(); err != nil {
				return err
			}
			sb.WriteByte(']')

		case '{':
			sb.WriteByte('{')
			for i := 0; dec.More(); i++ {
				if i > 0 {
					sb.WriteString(", ")
				}

				key, err := dec.Token()
				if err != nil {
					return err
				}
				s, ok := key.(string)
				if !ok {
					return fmt.Errorf("object key %v is not a string", key)
				}
				sb.WriteString(quote(s))
				sb.WriteString(": ")

				if err := render(dec, sb, false); err != nil {
					return err
				}
			}
			if _, err := dec.Token(); err != nil {
				return err
			}
			sb.WriteByte('}')

		default:
			return fmt.Errorf("unexpected delimiter %v", v)
		}

	case string:
		if top {
			sb.WriteString(v)
			break
		}
		sb.WriteString(quote(v))

	case json.Number:
		sb.WriteString(number(v))

	case bool:
		if v {
			sb.WriteString("True")
			break
		}
		sb.WriteString("False")

	case nil:
		sb.WriteString("None")
	}

	return nil
}

// number renders integers as written and floats in the reference form.
func number(n json.Number) string {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		return s
	}

	f, err := n.Float64()
	if err != nil {
		return s
	}

	return formatFloat(f)
}

// formatFloat renders the shortest representation that round trips, always
// with a fractional part, switching to exponent form outside [1e-4, 1e16).
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}

	if abs := math.Abs(f); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}

	return s
}

// quote renders a nested string. Single quotes are used unless the string
// holds a single quote and no double quote.
func quote(s string) string {
	q := byte('\'')
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		q = '"'
	}

	var sb strings.Builder
	sb.WriteByte(q)

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size

		switch {
		case r == '\\':
			sb.WriteString(`\\`)
		case r == rune(q):
			sb.WriteByte('\\')
			sb.WriteByte(q)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case unicode.IsPrint(r):
			sb.WriteRune(r)
		case r < 0x100:
			fmt.Fprintf(&sb, `\x%02x`, r)
		case r < 0x10000:
			fmt.Fprintf(&sb, `\u%04x`, r)
		default:
			fmt.Fprintf(&sb, `\U%08x`, r)
		}
	}

	sb.WriteByte(q)
	return sb.String()
}
