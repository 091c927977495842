package roundsync

import (
	"fmt"

	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
)

// DataContent is the payload of a Data reply to a DataInterest: one of
// three disjoint variants (4.D), distinguished by which of State and
// CumulativeDigest are present.
//
//   DataOnly:           State != nil,  CumulativeDigest == nil
//   CumulativeOnly:     State == nil,  CumulativeDigest != nil
//   DataAndCumulative:  State != nil,  CumulativeDigest != nil
//
// UserPrefix and CumulativeRound are only meaningful alongside a
// CumulativeDigest; CumulativeRound defaults to 0 ("no cumulative round
// set") which is also the well-formed sentinel for a bare DataOnly.
type DataContent struct {
	UserPrefix       enc.Name
	CumulativeRound  uint64
	CumulativeDigest *[32]byte
	State            *State
}

// WellFormed reports the invariant of spec.md §4.D / Testable Property 4.
func (d *DataContent) WellFormed() bool {
	hasCumulative := d.CumulativeDigest != nil
	hasUserPrefix := len(d.UserPrefix) > 0
	if hasUserPrefix && hasCumulative {
		return true
	}
	return d.CumulativeRound == 0 && !hasCumulative && d.State != nil
}

// Kind reports which of the three variants this content represents. Only
// meaningful when WellFormed.
func (d *DataContent) Kind() DataKind {
	switch {
	case d.State != nil && d.CumulativeDigest != nil:
		return KindDataAndCumulative
	case d.State == nil:
		return KindCumulativeOnly
	default:
		return KindDataOnly
	}
}

// EncodeDataContent serializes a well-formed DataContent to its TLV wire
// form. Passing an ill-formed value is a programmer error and panics,
// per spec.md §7 ("Ill-formed DataContent construction ... fatal").
func EncodeDataContent(d *DataContent) []byte {
	if !d.WellFormed() {
		panic("roundsync: attempted to encode an ill-formed DataContent")
	}
	var body []byte
	if d.CumulativeDigest != nil {
		body = append(body, encodeCumulativeInfo(d.UserPrefix, d.CumulativeRound, *d.CumulativeDigest)...)
	}
	if d.State != nil {
		body = append(body, encodeStateSub(d.State)...)
	}
	var top enc.TLNum
	switch d.Kind() {
	case KindDataOnly:
		top = TypeDataOnly
	case KindCumulativeOnly:
		top = TypeCumulativeOnly
	default:
		top = TypeDataAndCumulative
	}
	return appendTLV(nil, uint64(top), body)
}

// DecodeDataContent parses a DataContent from the wire, rejecting
// unknown top-level type tags (spec.md §7 "Decode errors").
func DecodeDataContent(wire []byte) (*DataContent, error) {
	els, err := readTLVElements(wire)
	if err != nil {
		return nil, err
	}
	if len(els) != 1 {
		return nil, fmt.Errorf("roundsync: expected exactly one top-level DataContent element")
	}
	top := els[0]
	switch enc.TLNum(top.typ) {
	case TypeDataOnly, TypeCumulativeOnly, TypeDataAndCumulative:
	default:
		return nil, fmt.Errorf("roundsync: unknown DataContent type tag %d", top.typ)
	}
	inner, err := readTLVElements(top.value)
	if err != nil {
		return nil, err
	}
	out := &DataContent{}
	idx := 0
	if idx < len(inner) && enc.TLNum(inner[idx].typ) == TypeCumulativeInfo {
		prefix, round, digest, err := decodeCumulativeInfo(inner[idx].value)
		if err != nil {
			return nil, err
		}
		out.UserPrefix = prefix
		out.CumulativeRound = round
		out.CumulativeDigest = &digest
		idx++
	}
	if idx < len(inner) && enc.TLNum(inner[idx].typ) == TypeState {
		st, err := decodeStateSub(inner[idx].value)
		if err != nil {
			return nil, err
		}
		out.State = st
		idx++
	}
	if !out.WellFormed() {
		return nil, fmt.Errorf("roundsync: decoded DataContent is not well-formed")
	}
	return out, nil
}

func encodeCumulativeInfo(userPrefix enc.Name, round uint64, digest [32]byte) []byte {
	var value []byte
	value = append(value, userPrefix.Bytes()...)
	roundBytes := appendVarint(nil, round)
	value = appendTLV(value, uint64(TypeRoundNo), roundBytes)
	value = appendTLV(value, uint64(enc.TypeGenericNameComponent), digest[:])
	return appendTLV(nil, uint64(TypeCumulativeInfo), value)
}

func decodeCumulativeInfo(buf []byte) (enc.Name, uint64, [32]byte, error) {
	var digest [32]byte
	name, rest, err := nameFromBytesPrefix(buf)
	if err != nil {
		return nil, 0, digest, fmt.Errorf("roundsync: malformed user_prefix in CumulativeInfo: %w", err)
	}
	els, err := readTLVElements(rest)
	if err != nil {
		return nil, 0, digest, err
	}
	if len(els) != 2 || enc.TLNum(els[0].typ) != TypeRoundNo {
		return nil, 0, digest, fmt.Errorf("roundsync: malformed CumulativeInfo body")
	}
	round, _, err := readVarint(els[0].value, 0)
	if err != nil {
		return nil, 0, digest, err
	}
	if len(els[1].value) != 32 {
		return nil, 0, digest, fmt.Errorf("roundsync: cumulative digest must be 32 bytes")
	}
	copy(digest[:], els[1].value)
	return name, round, digest, nil
}

func encodeStateSub(st *State) []byte {
	var value []byte
	st.Leaves(func(l *Leaf) bool {
		value = append(value, encodeStateLeaf(l)...)
		return true
	})
	return appendTLV(nil, uint64(TypeState), value)
}

func decodeStateSub(buf []byte) (*State, error) {
	els, err := readTLVElements(buf)
	if err != nil {
		return nil, err
	}
	st := newState()
	for _, e := range els {
		if enc.TLNum(e.typ) != TypeStateLeaf {
			return nil, fmt.Errorf("roundsync: unexpected tag %d inside State", e.typ)
		}
		name, seq, err := decodeStateLeaf(e.value)
		if err != nil {
			return nil, err
		}
		st.Update(name, seq)
	}
	return st, nil
}

func encodeStateLeaf(l *Leaf) []byte {
	var value []byte
	value = append(value, l.Name().Bytes()...)
	seqBytes := appendVarint(nil, l.SeqNo())
	value = appendTLV(value, uint64(TypeSeqNo), seqBytes)
	return appendTLV(nil, uint64(TypeStateLeaf), value)
}

func decodeStateLeaf(buf []byte) (enc.Name, uint64, error) {
	name, rest, err := nameFromBytesPrefix(buf)
	if err != nil {
		return nil, 0, fmt.Errorf("roundsync: malformed name in StateLeaf: %w", err)
	}
	els, err := readTLVElements(rest)
	if err != nil {
		return nil, 0, err
	}
	if len(els) != 1 || enc.TLNum(els[0].typ) != TypeSeqNo {
		return nil, 0, fmt.Errorf("roundsync: malformed StateLeaf body")
	}
	seq, _, err := readVarint(els[0].value, 0)
	if err != nil {
		return nil, 0, err
	}
	return name, seq, nil
}

// RecoData is the full-state snapshot served in reply to a RecoInterest.
type RecoData struct {
	Round uint64
	State *State
}

// EncodeRecoData serializes a RecoData to its TLV wire form.
func EncodeRecoData(r *RecoData) []byte {
	var body []byte
	roundBytes := appendVarint(nil, r.Round)
	body = appendTLV(body, uint64(TypeRoundNo), roundBytes)
	body = append(body, encodeStateSub(r.State)...)
	return appendTLV(nil, uint64(TypeRecoveryData), body)
}

// DecodeRecoData parses a RecoData from the wire.
func DecodeRecoData(wire []byte) (*RecoData, error) {
	els, err := readTLVElements(wire)
	if err != nil {
		return nil, err
	}
	if len(els) != 1 || enc.TLNum(els[0].typ) != TypeRecoveryData {
		return nil, fmt.Errorf("roundsync: unknown or missing RecoveryData tag")
	}
	inner, err := readTLVElements(els[0].value)
	if err != nil {
		return nil, err
	}
	if len(inner) != 2 || enc.TLNum(inner[0].typ) != TypeRoundNo || enc.TLNum(inner[1].typ) != TypeState {
		return nil, fmt.Errorf("roundsync: malformed RecoveryData body")
	}
	round, _, err := readVarint(inner[0].value, 0)
	if err != nil {
		return nil, err
	}
	st, err := decodeStateSub(inner[1].value)
	if err != nil {
		return nil, err
	}
	return &RecoData{Round: round, State: st}, nil
}
