package roundsync

import (
	"crypto/sha256"

	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
	omap "github.com/ndn-tools/roundsync/util/orderedmap"
)

// EmptyDigest is the well-known SHA-256 of the empty byte string, used as
// the canonical digest of a State holding no leaves.
var EmptyDigest = sha256.Sum256(nil)

// State is a set of Leaves keyed by session name, unique, iterable in
// canonical (ascending, lexicographic) session-name order. Its digest is
// the SHA-256 over the concatenation of each leaf's digest in that order.
//
// State is observable only through the methods below: Update, SeqNo,
// Len, Digest, Add, Reset, Copy and Leaves; nothing outside this package
// reaches into the underlying ordered map directly.
type State struct {
	leaves *omap.OrderedMap[string, *Leaf]
	digest [32]byte
	dirty  bool
}

func newState() *State {
	return &State{leaves: omap.New[string, *Leaf](), dirty: true}
}

// NewState returns an empty State.
func NewState() *State { return newState() }

func leafLess(a, b string) bool { return a < b }

// Update mimics the classic three-way result of a map "upsert": whether a
// new leaf was inserted, whether an existing one advanced, and if so its
// previous seq_no. A seq_no that does not strictly increase is a no-op.
func (s *State) Update(name enc.Name, seq uint64) (inserted, updated bool, old uint64) {
	key := name.String()
	if e := s.leaves.GetElement(key); e != nil {
		upd, oldSeq := e.Value.Update(seq)
		if !upd {
			return false, false, 0
		}
		s.dirty = true
		return false, true, oldSeq
	}
	s.leaves.SetSorted(key, newLeaf(name, seq), leafLess)
	s.dirty = true
	return true, false, 0
}

// SeqNo returns the seq_no on file for name, or 0 if absent.
func (s *State) SeqNo(name enc.Name) uint64 {
	l, ok := s.leaves.Get(name.String())
	if !ok {
		return 0
	}
	return l.SeqNo()
}

// Len is the number of leaves held.
func (s *State) Len() int { return s.leaves.Len() }

// Digest returns the SHA-256 over leaves in canonical order, recomputing
// and caching it if the State has mutated since the last call.
func (s *State) Digest() [32]byte {
	if !s.dirty {
		return s.digest
	}
	h := sha256.New()
	for e := s.leaves.Front(); e != nil; e = e.Next() {
		d := e.Value.Digest()
		h.Write(d[:])
	}
	sum := h.Sum(nil)
	copy(s.digest[:], sum)
	s.dirty = false
	return s.digest
}

// Add merges other's leaves into s (s += other), applying Update per leaf.
func (s *State) Add(other *State) {
	if other == nil {
		return
	}
	for e := other.leaves.Front(); e != nil; e = e.Next() {
		s.Update(e.Value.Name(), e.Value.SeqNo())
	}
}

// Reset discards all leaves, returning the State to its empty-digest state.
func (s *State) Reset() {
	s.leaves = omap.New[string, *Leaf]()
	s.dirty = true
}

// Copy returns a deep-enough copy: leaves are duplicated, each leaf's
// fields are value-copied, safe to mutate independently of the source.
func (s *State) Copy() *State {
	cp := newState()
	for e := s.leaves.Front(); e != nil; e = e.Next() {
		cp.leaves.SetSorted(e.Key, e.Value.copy(), leafLess)
	}
	cp.digest = s.digest
	cp.dirty = s.dirty
	return cp
}

// Leaves iterates leaves in canonical order, calling fn for each. Stops
// early if fn returns false.
func (s *State) Leaves(fn func(*Leaf) bool) {
	for e := s.leaves.Front(); e != nil; e = e.Next() {
		if !fn(e.Value) {
			return
		}
	}
}

func (s *State) leafAt(key string) (*Leaf, bool) {
	return s.leaves.Get(key)
}
