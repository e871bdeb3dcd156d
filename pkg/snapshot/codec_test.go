package snapshot

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeRoundTrip(t *testing.T) {
	msg := New("msg")
	msg.Set("type", "clusterupdate")
	msg.Set("node", "a")
	cluster := testTree()
	cluster.Set(NameAttr, "alpha")
	require.NoError(t, msg.AddChild(cluster))

	data, err := msg.Serialize()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(msg))
}

func TestSerializeEscapesNewlines(t *testing.T) {
	n := New("node")
	n.Set("name", "a\n\nb")
	n.Set("note", `<"&'>`)

	data, err := n.Serialize()
	require.NoError(t, err)
	assert.False(t, bytes.Contains(data, []byte("\n")))

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "a\n\nb", parsed.Name())
	assert.Equal(t, `<"&'>`, parsed.Attr("note"))
}

func TestSerializeStable(t *testing.T) {
	a, err := testTree().Serialize()
	require.NoError(t, err)
	b, err := testTree().Serialize()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParseUnknownRoot(t *testing.T) {
	_, err := Parse([]byte(`<script name="x"/>`))
	assert.True(t, errors.Is(err, ErrTagNotAllowed))
}

func TestParseSkipsUnknownChildren(t *testing.T) {
	data := `<?xml version="1.0"?>
<msg type="clusterupdate" node="a">
  <cluster name="alpha" version="3">
    <evil name="x"><node name="hidden"/></evil>
    <objects name="nodes">
      <node name="a" votes="1"/>
      <node votes="1"/>
    </objects>
  </cluster>
</msg>
`
	parsed, err := Parse([]byte(data))
	require.NoError(t, err)
	cluster := parsed.Child("alpha")
	require.NotNil(t, cluster)
	assert.Nil(t, cluster.Child("x"))
	assert.Equal(t, 1, cluster.Child("nodes").Len())
}

func TestParseMalformed(t *testing.T) {
	inputs := []string{
		"",
		"   \n ",
		"garbage",
		`<msg type="x">`,
		`<msg><cluster></msg>`,
		`<msg name=unquoted/>`,
	}
	for _, in := range inputs {
		_, err := Parse([]byte(in))
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseTooDeep(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < MaxDepth+1; i++ {
		buf.WriteString(`<node name="n">`)
	}
	for i := 0; i < MaxDepth+1; i++ {
		buf.WriteString(`</node>`)
	}
	_, err := Parse(buf.Bytes())
	assert.True(t, errors.Is(err, ErrTooDeep))
}
