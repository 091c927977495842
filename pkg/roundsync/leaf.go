package roundsync

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
)

// Leaf is one {session-name -> latest seq-no} entry of a State.
// Its digest is the SHA-256 over the encoded (session_name, seq_no) pair,
// recomputed whenever the seq_no changes.
type Leaf struct {
	name   enc.Name
	nameStr string
	seq    uint64
	digest [32]byte
	fresh  bool
}

func newLeaf(name enc.Name, seq uint64) *Leaf {
	l := &Leaf{name: name, nameStr: name.String(), seq: seq}
	l.computeDigest()
	return l
}

// Update sets the leaf's seq_no if seq is strictly greater than the
// current one. Returns whether the value advanced and the previous seq_no.
func (l *Leaf) Update(seq uint64) (updated bool, old uint64) {
	if seq <= l.seq {
		return false, 0
	}
	old = l.seq
	l.seq = seq
	l.computeDigest()
	return true, old
}

func (l *Leaf) computeDigest() {
	h := sha256.New()
	h.Write(l.name.Bytes())
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], l.seq)
	h.Write(b[:])
	sum := h.Sum(nil)
	copy(l.digest[:], sum)
	l.fresh = true
}

// Name is the leaf's session name.
func (l *Leaf) Name() enc.Name { return l.name }

// NameStr is the cached string form of Name, used as the canonical map key.
func (l *Leaf) NameStr() string { return l.nameStr }

// SeqNo is the leaf's current sequence number.
func (l *Leaf) SeqNo() uint64 { return l.seq }

// Digest is the SHA-256 over the encoded (name, seq_no) pair.
func (l *Leaf) Digest() [32]byte {
	if !l.fresh {
		l.computeDigest()
	}
	return l.digest
}

func (l *Leaf) String() string {
	return l.nameStr + ":" + hex.EncodeToString(l.digest[:4])
}

func (l *Leaf) copy() *Leaf {
	cp := *l
	return &cp
}
