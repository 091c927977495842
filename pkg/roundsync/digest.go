package roundsync

import "crypto/sha256"

// CumulativeOnlySeqNo is the reserved seq_no value (0) that marks a
// DiffLog leaf as a producer's cumulative-only announcement rather than
// an application update.
const CumulativeOnlySeqNo = uint64(0)

func sha256Concat(parts ...[]byte) [32]byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
