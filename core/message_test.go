package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMessageSimpleRequest(t *testing.T) {
	m, err := ParseMessage([]byte("?halt\n"))
	require.NoError(t, err)
	require.Equal(t, Request, m.Type)
	require.Equal(t, "halt", m.Name)
	require.Equal(t, 0, m.Mid)
	require.Empty(t, m.Arguments)
}

func TestParseMessageWithMidAndArguments(t *testing.T) {
	m, err := ParseMessage([]byte("?sensor-sampling[5] voltage event\n"))
	require.NoError(t, err)
	require.Equal(t, Request, m.Type)
	require.Equal(t, "sensor-sampling", m.Name)
	require.Equal(t, 5, m.Mid)
	require.Equal(t, [][]byte{[]byte("voltage"), []byte("event")}, m.Arguments)
}

func TestParseMessageEscapedArgument(t *testing.T) {
	m, err := ParseMessage([]byte("?test message \\0\\n\\r\\t\\e\\_binary\n"))
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("message"), []byte("\x00\n\r\t\x1b binary")}, m.Arguments)
}

func TestParseMessageEmptyArgument(t *testing.T) {
	m, err := ParseMessage([]byte("?req \\@\n"))
	require.NoError(t, err)
	require.Equal(t, [][]byte{{}}, m.Arguments)
}

func TestParseMessageRejectsMissingNewline(t *testing.T) {
	_, err := ParseMessage([]byte("!ok"))
	require.Error(t, err)
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
}

func TestParseMessageRejectsEmptyLine(t *testing.T) {
	_, err := ParseMessage([]byte(""))
	require.Error(t, err)
}

func TestParseMessageRejectsBadType(t *testing.T) {
	_, err := ParseMessage([]byte("%ok\n"))
	require.Error(t, err)
}

func TestParseMessageRejectsLeadingWhitespace(t *testing.T) {
	_, err := ParseMessage([]byte(" !ok\n"))
	require.Error(t, err)
}

func TestParseMessageRejectsBadName(t *testing.T) {
	_, err := ParseMessage([]byte("? emptyname\n"))
	require.Error(t, err)

	_, err = ParseMessage([]byte("?bad_name message\n"))
	require.Error(t, err)
}

func TestParseMessageRejectsBadMid(t *testing.T) {
	cases := []string{
		"!ok[10\n",
		"!ok[0]\n",
		"!ok[a]\n",
	}
	for _, c := range cases {
		_, err := ParseMessage([]byte(c))
		require.Error(t, err, c)
	}
}

func TestParseMessageRejectsOutOfRangeMid(t *testing.T) {
	_, err := ParseMessage([]byte("!ok[1000000000000]\n"))
	require.Error(t, err)
}

func TestParseMessageRejectsBareControlByte(t *testing.T) {
	_, err := ParseMessage([]byte("!ok \x1b\n"))
	require.Error(t, err)
}

func TestMessageBytesRoundTrip(t *testing.T) {
	m, err := NewRequest("sensor-value", 3, "voltage")
	require.NoError(t, err)
	wire := m.Bytes()
	require.Equal(t, "?sensor-value[3] voltage\n", string(wire))

	back, err := ParseMessage(wire)
	require.NoError(t, err)
	require.True(t, m.Equal(back))
}

func TestMessageBytesEscapesArguments(t *testing.T) {
	m, err := NewInform("log", 0, []byte("a b\nc"))
	require.NoError(t, err)
	require.Equal(t, "#log a\\_b\\nc\n", m.String())
}

func TestNewMessageRejectsBadName(t *testing.T) {
	_, err := NewRequest("_bad", 0)
	require.Error(t, err)
}

func TestNewMessageRejectsBadMid(t *testing.T) {
	_, err := NewRequest("ok", 1<<36)
	require.Error(t, err)
}

func TestReplyOk(t *testing.T) {
	ok, err := NewReply("halt", 1, "ok")
	require.NoError(t, err)
	require.True(t, ok.ReplyOk())

	fail, err := NewReply("halt", 1, "fail", "reason")
	require.NoError(t, err)
	require.False(t, fail.ReplyOk())
}

func TestReplyToRequestInheritsNameAndMid(t *testing.T) {
	req, err := NewRequest("watchdog", 42)
	require.NoError(t, err)
	reply, err := ReplyToRequest(req, "ok")
	require.NoError(t, err)
	require.Equal(t, req.Name, reply.Name)
	require.Equal(t, req.Mid, reply.Mid)
	require.Equal(t, Reply, reply.Type)
}

func TestMessageEqualAndHash(t *testing.T) {
	a, err := NewRequest("foo", 1, "bar")
	require.NoError(t, err)
	b, err := NewRequest("foo", 1, "bar")
	require.NoError(t, err)
	require.True(t, a.Equal(b))
	require.Equal(t, a.Hash(), b.Hash())

	c, err := NewRequest("foo", 1, "baz")
	require.NoError(t, err)
	require.False(t, a.Equal(c))
}
