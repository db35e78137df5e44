// Package mimemsg converts between wire-format MIME messages and the
// internal document model. The decomposer flattens a parsed message into
// body and attachment fields; the composer rebuilds a sendable message
// from a document.
package mimemsg

import (
	"bytes"

	"github.com/jhillyerd/enmime"
)

// Parse reads a raw RFC 5322 message into a MIME envelope. Header decoding
// (RFC 2047) and part charset handling happen here, once, so both the field
// mapper and the decomposer work from the same parse.
func Parse(raw []byte) (*enmime.Envelope, error) {
	return enmime.ReadEnvelope(bytes.NewReader(raw))
}

func has8bit(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return true
		}
	}
	return false
}

func stripAngle(id string) string {
	if len(id) >= 2 && id[0] == '<' && id[len(id)-1] == '>' {
		return id[1 : len(id)-1]
	}
	return id
}
