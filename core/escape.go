package core

import "bytes"

// escapeArgument converts a raw argument byte string to its wire form.
// Only the seven bytes in the KATCP escape alphabet are ever rewritten;
// every other byte, including arbitrary high bytes from UTF-8 text or
// opaque binary data, passes through untouched.  An empty argument is
// rendered as the stand-alone two-byte token \@.
func escapeArgument(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte(`\@`)
	}
	var buf bytes.Buffer
	buf.Grow(len(raw))
	for _, b := range raw {
		switch b {
		case '\\':
			buf.WriteString(`\\`)
		case ' ':
			buf.WriteString(`\_`)
		case 0:
			buf.WriteString(`\0`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case 0x1b:
			buf.WriteString(`\e`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteByte(b)
		}
	}
	return buf.Bytes()
}

// unescapeArgument reverses escapeArgument.  tok is one already-delimited
// argument token (the bytes between unescaped spaces).  A bare \@ decodes
// to an empty argument; \@ combined with any other byte is not a
// recognized escape sequence and is rejected, matching \@'s definition as
// a stand-alone token.
func unescapeArgument(tok []byte) ([]byte, error) {
	if len(tok) == 2 && tok[0] == '\\' && tok[1] == '@' {
		return []byte{}, nil
	}
	var buf bytes.Buffer
	buf.Grow(len(tok))
	for i := 0; i < len(tok); i++ {
		b := tok[i]
		switch b {
		case '\\':
			i++
			if i >= len(tok) {
				return nil, syntaxErrorf("dangling escape at end of argument")
			}
			switch tok[i] {
			case '\\':
				buf.WriteByte('\\')
			case '_':
				buf.WriteByte(' ')
			case '0':
				buf.WriteByte(0)
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 'e':
				buf.WriteByte(0x1b)
			case 't':
				buf.WriteByte('\t')
			default:
				return nil, syntaxErrorf("invalid escape sequence \\%c", tok[i])
			}
		case 0, '\t', '\r', 0x1b:
			return nil, syntaxErrorf("bare control byte 0x%02x inside argument", b)
		default:
			buf.WriteByte(b)
		}
	}
	return buf.Bytes(), nil
}

// splitArguments tokenizes the argument portion of a line (everything
// after the name and optional mid) on unescaped spaces.  A backslash
// always consumes the following byte as part of its token, even if that
// byte turns out to be an invalid escape once unescapeArgument inspects
// it -- this keeps tokenization itself independent of escape validity, so
// "q\ other" is one malformed token and not two.
func splitArguments(rest []byte) ([][]byte, error) {
	var args [][]byte
	pos := 0
	for pos < len(rest) {
		for pos < len(rest) && rest[pos] == ' ' {
			pos++
		}
		if pos >= len(rest) {
			break
		}
		start := pos
		for pos < len(rest) && rest[pos] != ' ' {
			if rest[pos] == '\\' {
				pos++
				if pos >= len(rest) {
					return nil, syntaxErrorf("dangling escape at end of line")
				}
			}
			pos++
		}
		tok := rest[start:pos]
		decoded, err := unescapeArgument(tok)
		if err != nil {
			return nil, err
		}
		args = append(args, decoded)
	}
	return args, nil
}
