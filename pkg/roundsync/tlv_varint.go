/*
 Varint and TL framing helpers for the Codecs component (4.D). Adapted
 from the teacher's util/tlv_helpers.go, which implements the same
 NDN-TLV non-negative-integer encoding (1/3/5/9-byte, 0xfd/0xfe/0xff
 prefixed) that the teacher uses to encode StateVector entries. spec.md
 treats this framing as an external primitive ("length-prefixing,
 non-negative integer encoding"); Codecs only needs to call it in the
 right order with the right type tags.
*/

package roundsync

import (
	"encoding/binary"
	"fmt"

	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
)

func varintSize(val uint64) int {
	switch {
	case val <= 0xfc:
		return 1
	case val <= 0xffff:
		return 3
	case val <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

func appendVarint(buf []byte, val uint64) []byte {
	switch {
	case val <= 0xfc:
		return append(buf, byte(val))
	case val <= 0xffff:
		var tmp [2]byte
		binary.BigEndian.PutUint16(tmp[:], uint16(val))
		return append(append(buf, 0xfd), tmp[:]...)
	case val <= 0xffffffff:
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], uint32(val))
		return append(append(buf, 0xfe), tmp[:]...)
	default:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], val)
		return append(append(buf, 0xff), tmp[:]...)
	}
}

func readVarint(buf []byte, pos int) (val uint64, consumed int, err error) {
	if pos >= len(buf) {
		return 0, 0, fmt.Errorf("roundsync: truncated varint")
	}
	switch b := buf[pos]; {
	case b <= 0xfc:
		return uint64(b), 1, nil
	case b == 0xfd:
		if pos+3 > len(buf) {
			return 0, 0, fmt.Errorf("roundsync: truncated varint")
		}
		return uint64(binary.BigEndian.Uint16(buf[pos+1 : pos+3])), 3, nil
	case b == 0xfe:
		if pos+5 > len(buf) {
			return 0, 0, fmt.Errorf("roundsync: truncated varint")
		}
		return uint64(binary.BigEndian.Uint32(buf[pos+1 : pos+5])), 5, nil
	default:
		if pos+9 > len(buf) {
			return 0, 0, fmt.Errorf("roundsync: truncated varint")
		}
		return binary.BigEndian.Uint64(buf[pos+1 : pos+9]), 9, nil
	}
}

// decodeNonNegativeInteger reads an NDN nonNegativeInteger (a bare 1-,
// 2-, 4-, or 8-byte big-endian value with no length prefix of its own),
// the encoding enc.NewSequenceNumComponent uses for a name component's
// value — distinct from the prefixed VarNumber framing readVarint
// decodes, which only coincides with it for values up to 252.
func decodeNonNegativeInteger(buf []byte) (uint64, error) {
	switch len(buf) {
	case 1:
		return uint64(buf[0]), nil
	case 2:
		return uint64(binary.BigEndian.Uint16(buf)), nil
	case 4:
		return uint64(binary.BigEndian.Uint32(buf)), nil
	case 8:
		return binary.BigEndian.Uint64(buf), nil
	default:
		return 0, fmt.Errorf("roundsync: malformed nonNegativeInteger (%d bytes)", len(buf))
	}
}

// appendTLV writes TL(typ){value} onto buf.
func appendTLV(buf []byte, typ uint64, value []byte) []byte {
	buf = appendVarint(buf, typ)
	buf = appendVarint(buf, uint64(len(value)))
	return append(buf, value...)
}

func tlvSize(typ uint64, valueLen int) int {
	return varintSize(typ) + varintSize(uint64(valueLen)) + valueLen
}

// tlvElement is one decoded (type, value-bytes) pair.
type tlvElement struct {
	typ   uint64
	value []byte
}

// readTLVElements splits buf into a flat sequence of top-level TLV
// elements, leaving nested parsing to the caller.
func readTLVElements(buf []byte) ([]tlvElement, error) {
	var out []tlvElement
	pos := 0
	for pos < len(buf) {
		typ, n, err := readVarint(buf, pos)
		if err != nil {
			return nil, err
		}
		pos += n
		length, n, err := readVarint(buf, pos)
		if err != nil {
			return nil, err
		}
		pos += n
		if pos+int(length) > len(buf) {
			return nil, fmt.Errorf("roundsync: TLV length exceeds buffer")
		}
		out = append(out, tlvElement{typ: typ, value: buf[pos : pos+int(length)]})
		pos += int(length)
	}
	return out, nil
}

// nameFromBytesPrefix decodes a Name TLV from the start of buf and
// returns the remaining bytes that follow it. enc.NameFromBytes only
// accepts a buffer containing exactly one Name TLV, so the TL header is
// read here to find the boundary before delegating to it.
func nameFromBytesPrefix(buf []byte) (enc.Name, []byte, error) {
	typ, n, err := readVarint(buf, 0)
	if err != nil {
		return nil, nil, err
	}
	pos := n
	length, n, err := readVarint(buf, pos)
	if err != nil {
		return nil, nil, err
	}
	pos += n
	if enc.TLNum(typ) != enc.TypeName {
		return nil, nil, fmt.Errorf("roundsync: expected a Name TLV, got tag %d", typ)
	}
	if pos+int(length) > len(buf) {
		return nil, nil, fmt.Errorf("roundsync: Name TLV length exceeds buffer")
	}
	end := pos + int(length)
	name, err := enc.NameFromBytes(buf[:end])
	if err != nil {
		return nil, nil, err
	}
	return name, buf[end:], nil
}
