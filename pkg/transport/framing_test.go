package transport

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame(t *testing.T) {
	assert.Equal(t, []byte("abc\n\n"), frame([]byte("abc")))
}

func TestDeframerSplitReads(t *testing.T) {
	stream := append(frame([]byte("<msg name=\"a\"/>")), frame([]byte("second"))...)
	stream = append(stream, frame([]byte("x"))...)

	// every split point, including one between the two delimiter bytes
	for split := 0; split <= len(stream); split++ {
		d := newDeframer(1024)
		first, err := d.Write(stream[:split])
		require.NoError(t, err)
		rest, err := d.Write(stream[split:])
		require.NoError(t, err)

		frames := append(first, rest...)
		require.Len(t, frames, 3, "split at %d", split)
		assert.Equal(t, "<msg name=\"a\"/>", string(frames[0]))
		assert.Equal(t, "second", string(frames[1]))
		assert.Equal(t, "x", string(frames[2]))
		assert.Equal(t, 0, d.Buffered())
	}
}

func TestDeframerByteByByte(t *testing.T) {
	stream := bytes.Repeat(frame([]byte("hello world")), 5)
	d := newDeframer(1024)
	var frames [][]byte
	for i := range stream {
		f, err := d.Write(stream[i : i+1])
		require.NoError(t, err)
		frames = append(frames, f...)
	}
	assert.Len(t, frames, 5)
	for _, f := range frames {
		assert.Equal(t, "hello world", string(f))
	}
}

func TestDeframerPartialKept(t *testing.T) {
	d := newDeframer(1024)
	frames, err := d.Write([]byte("abc\n"))
	require.NoError(t, err)
	assert.Empty(t, frames)
	assert.Equal(t, 4, d.Buffered())

	frames, err = d.Write([]byte("\ndef"))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, "abc", string(frames[0]))
	assert.Equal(t, 3, d.Buffered())
}

func TestDeframerSingleNewlineIsPayload(t *testing.T) {
	d := newDeframer(1024)
	frames, err := d.Write([]byte("a\nb\n\n"))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, "a\nb", string(frames[0]))
}

func TestDeframerSkipsEmptyFrames(t *testing.T) {
	d := newDeframer(1024)
	frames, err := d.Write([]byte("\n\n\n\nabc\n\n"))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, "abc", string(frames[0]))
}

func TestDeframerTooLarge(t *testing.T) {
	d := newDeframer(8)
	frames, err := d.Write([]byte("ok\n\n"))
	require.NoError(t, err)
	assert.Len(t, frames, 1)

	_, err = d.Write(bytes.Repeat([]byte("a"), 9))
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}
