package core

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"strconv"
)

// Type is the three-way message kind a KATCP line can carry.
type Type int

const (
	// Request is a '?'-prefixed message sent from client to server.
	Request Type = iota
	// Reply is a '!'-prefixed message sent in response to a Request.
	Reply
	// Inform is a '#'-prefixed message, either solicited (carries the
	// mid of the request that triggered it) or asynchronous.
	Inform
)

func (t Type) prefix() byte {
	switch t {
	case Request:
		return '?'
	case Reply:
		return '!'
	case Inform:
		return '#'
	default:
		panic(fmt.Sprintf("katcp: invalid message type %d", int(t)))
	}
}

func (t Type) String() string {
	switch t {
	case Request:
		return "REQUEST"
	case Reply:
		return "REPLY"
	case Inform:
		return "INFORM"
	default:
		return "INVALID"
	}
}

// maxMid is the exclusive upper bound on message ids; mids >= maxMid are
// rejected at parse time (spec section 3).
const maxMid = 1 << 36

// Message is the parsed form of one KATCP protocol line: a type, a name,
// an optional message id, and an ordered list of raw (unescaped) argument
// byte strings.
type Message struct {
	Type      Type
	Name      string
	Mid       int // 0 means absent; 0 is never a valid explicit mid.
	Arguments [][]byte
}

func isNameStart(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isNameCont(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9') || c == '-'
}

func validateName(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("katcp: message name must not be empty")
	}
	if !isNameStart(name[0]) {
		return fmt.Errorf("katcp: message name %q must start with a letter", name)
	}
	for i := 1; i < len(name); i++ {
		if !isNameCont(name[i]) {
			return fmt.Errorf("katcp: message name %q contains invalid character %q", name, name[i])
		}
	}
	return nil
}

func validateMid(mid int) error {
	if mid == 0 {
		return nil // absent
	}
	if mid < 0 || mid >= maxMid {
		return fmt.Errorf("katcp: message id %d out of range [1, %d)", mid, maxMid)
	}
	return nil
}

// NewMessage builds a Message, encoding each argument with the type
// registry. mid of 0 means no message id.
func NewMessage(t Type, name string, mid int, args ...interface{}) (*Message, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateMid(mid); err != nil {
		return nil, err
	}
	encoded := make([][]byte, len(args))
	for i, a := range args {
		b, err := Encode(a)
		if err != nil {
			return nil, err
		}
		encoded[i] = b
	}
	return &Message{Type: t, Name: name, Mid: mid, Arguments: encoded}, nil
}

// NewRequest builds a REQUEST message.
func NewRequest(name string, mid int, args ...interface{}) (*Message, error) {
	return NewMessage(Request, name, mid, args...)
}

// NewReply builds a REPLY message.
func NewReply(name string, mid int, args ...interface{}) (*Message, error) {
	return NewMessage(Reply, name, mid, args...)
}

// NewInform builds an INFORM message.
func NewInform(name string, mid int, args ...interface{}) (*Message, error) {
	return NewMessage(Inform, name, mid, args...)
}

// ReplyToRequest builds the REPLY that answers req, inheriting its name
// and mid.
func ReplyToRequest(req *Message, args ...interface{}) (*Message, error) {
	return NewReply(req.Name, req.Mid, args...)
}

// InformReply builds a solicited INFORM associated with req, inheriting
// its name and mid.
func InformReply(req *Message, args ...interface{}) (*Message, error) {
	return NewInform(req.Name, req.Mid, args...)
}

// ReplyOk reports whether a REPLY message's first argument is exactly
// "ok" (spec section 4.7).
func (m *Message) ReplyOk() bool {
	return m.Type == Reply && len(m.Arguments) > 0 && string(m.Arguments[0]) == "ok"
}

// Equal reports whether two messages are equal: same type, name, mid, and
// arguments (spec section 8, property 4).
func (m *Message) Equal(other *Message) bool {
	if other == nil {
		return false
	}
	if m.Type != other.Type || m.Name != other.Name || m.Mid != other.Mid {
		return false
	}
	if len(m.Arguments) != len(other.Arguments) {
		return false
	}
	for i := range m.Arguments {
		if !bytes.Equal(m.Arguments[i], other.Arguments[i]) {
			return false
		}
	}
	return true
}

// Hash returns a hash consistent with Equal: equal messages always
// produce equal hashes (spec section 8, property 4).
func (m *Message) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte{byte(m.Type)})
	h.Write([]byte(m.Name))
	var midBuf [8]byte
	for i := range midBuf {
		midBuf[i] = byte(m.Mid >> (8 * uint(i)))
	}
	h.Write(midBuf[:])
	for _, a := range m.Arguments {
		h.Write(a)
		h.Write([]byte{0}) // separator, so ("ab","c") != ("a","bc")
	}
	return h.Sum64()
}

// Bytes serializes the message to its wire form: type prefix, name,
// optional [mid], space-separated escaped arguments, and a trailing
// newline.
func (m *Message) Bytes() []byte {
	var buf bytes.Buffer
	buf.WriteByte(m.Type.prefix())
	buf.WriteString(m.Name)
	if m.Mid != 0 {
		buf.WriteByte('[')
		buf.WriteString(strconv.Itoa(m.Mid))
		buf.WriteByte(']')
	}
	for _, arg := range m.Arguments {
		buf.WriteByte(' ')
		buf.Write(escapeArgument(arg))
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

func (m *Message) String() string {
	return string(m.Bytes())
}

// ParseMessage decodes one KATCP protocol line, including its trailing
// newline, into a Message. It fails with a *SyntaxError for every
// malformed input described in spec section 4.1.
func ParseMessage(line []byte) (*Message, error) {
	if len(line) == 0 {
		return nil, syntaxErrorf("empty line")
	}
	if line[len(line)-1] != '\n' {
		return nil, syntaxErrorf("line is missing its newline terminator")
	}
	body := line[:len(line)-1]
	if len(body) > 0 && body[len(body)-1] == '\r' {
		body = body[:len(body)-1]
	}
	if len(body) == 0 {
		return nil, syntaxErrorf("empty message")
	}

	var mtype Type
	switch body[0] {
	case '?':
		mtype = Request
	case '!':
		mtype = Reply
	case '#':
		mtype = Inform
	default:
		return nil, syntaxErrorf("line does not start with a message type byte: %q", body[0])
	}
	rest := body[1:]

	nameEnd := 0
	for nameEnd < len(rest) {
		c := rest[nameEnd]
		if nameEnd == 0 {
			if !isNameStart(c) {
				break
			}
		} else if !isNameCont(c) {
			break
		}
		nameEnd++
	}
	if nameEnd == 0 {
		return nil, syntaxErrorf("missing or invalid message name")
	}
	name := string(rest[:nameEnd])
	pos := nameEnd

	mid := 0
	if pos < len(rest) && rest[pos] == '[' {
		closeRel := bytes.IndexByte(rest[pos:], ']')
		if closeRel < 0 {
			return nil, syntaxErrorf("unterminated message id")
		}
		midStr := rest[pos+1 : pos+closeRel]
		if len(midStr) == 0 {
			return nil, syntaxErrorf("empty message id")
		}
		for _, c := range midStr {
			if c < '0' || c > '9' {
				return nil, syntaxErrorf("message id %q is not a positive decimal integer", midStr)
			}
		}
		val, err := strconv.ParseUint(string(midStr), 10, 64)
		if err != nil {
			return nil, syntaxErrorf("message id %q: %s", midStr, err)
		}
		if val == 0 {
			return nil, syntaxErrorf("message id 0 is not allowed")
		}
		if val >= maxMid {
			return nil, syntaxErrorf("message id %d is out of range", val)
		}
		mid = int(val)
		pos += closeRel + 1
	}

	if pos < len(rest) && rest[pos] != ' ' {
		return nil, syntaxErrorf("unexpected character %q after name/id", rest[pos])
	}

	args, err := splitArguments(rest[pos:])
	if err != nil {
		return nil, err
	}

	return &Message{Type: mtype, Name: name, Mid: mid, Arguments: args}, nil
}
