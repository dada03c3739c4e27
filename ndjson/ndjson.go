// Package ndjson reassembles complete newline-delimited records from an
// arbitrarily chunked byte stream. The transport is free to split the body
// anywhere, including mid-record and mid-rune; the decoder's contract is
// that the yielded record sequence is identical for every chunk partition of
// the same bytes.
package ndjson

import (
	"bytes"
	"strings"
)

// Decoder buffers the trailing incomplete fragment between chunks. The zero
// value is ready to use.
type Decoder struct {
	buf []byte
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends a chunk and returns every record completed by it, trimmed of
// surrounding whitespace. Blank records are dropped. The final fragment with
// no terminating newline stays buffered for the next Feed or Flush.
func (d *Decoder) Feed(chunk []byte) []string {
	d.buf = append(d.buf, chunk...)

	var records []string
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			return records
		}
		line := strings.TrimSpace(string(d.buf[:i]))
		d.buf = d.buf[i+1:]
		if line != "" {
			records = append(records, line)
		}
	}
}

// Flush returns the buffered remainder as a final record, if any. Called at
// end of stream: a last record without a trailing newline still counts.
func (d *Decoder) Flush() (string, bool) {
	line := strings.TrimSpace(string(d.buf))
	d.buf = nil
	if line == "" {
		return "", false
	}
	return line, true
}

// Buffered reports how many bytes are held as an incomplete fragment.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}
