package roundsync

import (
	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
)

// Wire TLV type tags, per spec.md §6. Codecs (pkg doc: 4.D) encode and
// decode exactly these tags in exactly this nesting; the length-prefix
// and non-negative-integer encoding underneath is the NDN-TLV varint
// format implemented in tlv_varint.go, grounded on the teacher's
// tlv_helpers.go.
const (
	TypeDataOnly          enc.TLNum = 128
	TypeCumulativeOnly    enc.TLNum = 129
	TypeDataAndCumulative enc.TLNum = 130
	TypeStateLeaf         enc.TLNum = 131
	TypeSeqNo             enc.TLNum = 132
	TypeRoundNo           enc.TLNum = 133
	TypeState             enc.TLNum = 134
	TypeCumulativeInfo    enc.TLNum = 135
	TypeRecoveryData      enc.TLNum = 136
)

// DataKind identifies which of the three DataContent variants a decoded
// payload is.
type DataKind int

const (
	KindDataOnly DataKind = iota
	KindCumulativeOnly
	KindDataAndCumulative
)
