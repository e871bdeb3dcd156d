package transport

import (
	"bytes"
	"errors"
)

// Delimiter terminates every message on the wire
var Delimiter = []byte("\n\n")

// ErrFrameTooLarge is returned when a peer sends more than MaxFrameSize bytes without a delimiter
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// frame returns msg with the delimiter appended
func frame(msg []byte) []byte {
	out := make([]byte, 0, len(msg)+len(Delimiter))
	out = append(out, msg...)
	return append(out, Delimiter...)
}

// deframer splits a byte stream into messages. Partial frames are kept
// between writes and the scan resumes where the previous one stopped.
type deframer struct {
	buf     []byte
	scanned int
	max     int
}

func newDeframer(max int) *deframer {
	return &deframer{max: max}
}

// Write appends p and returns every frame it completes, without delimiter.
// Empty frames are skipped.
func (d *deframer) Write(p []byte) ([][]byte, error) {
	d.buf = append(d.buf, p...)
	var frames [][]byte
	for {
		i := bytes.Index(d.buf[d.scanned:], Delimiter)
		if i < 0 {
			// the last byte may be the first half of a delimiter
			d.scanned = 0
			if len(d.buf) > 0 {
				d.scanned = len(d.buf) - 1
			}
			break
		}

		end := d.scanned + i
		if end > 0 {
			f := make([]byte, end)
			copy(f, d.buf[:end])
			frames = append(frames, f)
		}
		n := copy(d.buf, d.buf[end+len(Delimiter):])
		d.buf = d.buf[:n]
		d.scanned = 0
	}

	if d.max > 0 && len(d.buf) > d.max {
		return frames, ErrFrameTooLarge
	}
	return frames, nil
}

// Buffered returns the number of bytes waiting for a delimiter
func (d *deframer) Buffered() int {
	return len(d.buf)
}
