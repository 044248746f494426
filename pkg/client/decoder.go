package client

import "unicode/utf8"

// streamDecoder turns an arbitrary byte stream into text fragments without
// splitting multi-byte characters: bytes of a rune cut at a read boundary
// are carried into the next push.
type streamDecoder struct {
	carry []byte
}

// push appends p and returns the longest prefix ending on a complete rune.
func (d *streamDecoder) push(p []byte) string {
	data := p
	if len(d.carry) > 0 {
		data = append(d.carry, p...)
		d.carry = nil
	}

	cut := len(data)
	if cut > 0 && data[cut-1] >= utf8.RuneSelf {
		start := cut - 1
		for start > 0 && !utf8.RuneStart(data[start]) && cut-start < utf8.UTFMax {
			start--
		}
		if !utf8.FullRune(data[start:cut]) {
			cut = start
		}
	}

	if cut < len(data) {
		d.carry = append([]byte(nil), data[cut:]...)
	}
	return string(data[:cut])
}

// flush drains whatever is still buffered, complete or not. Called at end
// of stream so truncated input is not silently dropped.
func (d *streamDecoder) flush() string {
	out := string(d.carry)
	d.carry = nil
	return out
}
