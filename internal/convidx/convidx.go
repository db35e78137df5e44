// Package convidx encodes and decodes the conversation-index token used to
// reconstruct reply chains. The token is base64 over a 22-byte header (one
// reserved byte folded into a 6-byte FILETIME prefix plus a 16-byte thread
// GUID) followed by one 5-byte block per reply. Layout compatibility with
// legacy reading clients is byte-exact.
package convidx

import (
	"encoding/base64"
	"encoding/binary"

	"github.com/google/uuid"
)

// FiletimeEpoch is the offset between the FILETIME epoch (1601-01-01) and
// the Unix epoch, in 100-nanosecond ticks.
const FiletimeEpoch = 116444736000000000

const (
	headerLen = 22
	childLen  = 5
)

// Child is one reply block: a time difference relative to the header
// timestamp plus a 4-bit random nibble and a 4-bit sequence nibble.
type Child struct {
	Offset uint64 // 100ns ticks, truncated per the strategy rule
	Random uint8
	Seq    uint8
}

// Index is a decoded conversation index.
type Index struct {
	Timestamp uint64 // FILETIME ticks, low 16 bits not stored
	GUID      uuid.UUID
	Children  []Child
}

// IsZero reports whether the index carries no conversation metadata.
func (x Index) IsZero() bool {
	return x.Timestamp == 0 && x.GUID == uuid.Nil && len(x.Children) == 0
}

// FromUnix converts Unix seconds to FILETIME ticks.
func FromUnix(sec int64) uint64 {
	return uint64(sec)*1e7 + FiletimeEpoch
}

// ToUnix converts FILETIME ticks to Unix seconds.
func ToUnix(ft uint64) int64 {
	return int64((ft - FiletimeEpoch) / 1e7)
}

// Decode parses a base64 conversation-index token. Malformed input yields a
// zero Index, never an error: callers treat that as "no thread metadata".
func Decode(token string) Index {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil || len(raw) < headerLen {
		return Index{}
	}

	var x Index

	// The first six bytes are the high bytes of the 64-bit FILETIME; the
	// leading byte is the documented reserved 0x01 for any contemporary
	// timestamp. Padding two zero bytes restores tick units.
	var ts [8]byte
	copy(ts[:6], raw[:6])
	x.Timestamp = binary.BigEndian.Uint64(ts[:])

	copy(x.GUID[:], raw[6:headerLen])

	for blk := raw[headerLen:]; len(blk) >= childLen; blk = blk[childLen:] {
		v := uint64(blk[0])<<32 | uint64(blk[1])<<24 | uint64(blk[2])<<16 |
			uint64(blk[3])<<8 | uint64(blk[4])

		// bit 0 selects the truncation strategy used for the 31-bit time
		// difference: 0 = high 15 / low 18 bits discarded, 1 = high 10 /
		// low 23 (longer spans, coarser precision).
		diff := (v >> 8) & 0x7fffffff
		if v>>39&1 == 1 {
			diff <<= 23
		} else {
			diff <<= 18
		}

		x.Children = append(x.Children, Child{
			Offset: diff,
			Random: uint8(v >> 4 & 0xf),
			Seq:    uint8(v & 0xf),
		})
	}

	return x
}

// Encode serializes an index back into its base64 token. The inverse of
// Decode for values Decode produced; time differences lose their low 18
// bits (the encoder always emits strategy 0, which is what legacy client
// samples show even for spans a prior decode read with strategy 1).
func Encode(x Index) string {
	if x.IsZero() {
		return ""
	}

	buf := make([]byte, 0, headerLen+childLen*len(x.Children))

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], x.Timestamp)
	buf = append(buf, ts[:6]...)
	buf = append(buf, x.GUID[:]...)

	for _, c := range x.Children {
		diff := (c.Offset >> 18) & 0x7fffffff
		v := diff<<8 | uint64(c.Random&0xf)<<4 | uint64(c.Seq&0xf)
		buf = append(buf,
			byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}

	return base64.StdEncoding.EncodeToString(buf)
}
