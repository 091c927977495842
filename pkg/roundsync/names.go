/*
 Name construction for the three interest/data families spec.md §6
 defines: DataInterest/Data under <sync_prefix>/DATA/<round>,
 SyncInterest under <sync_prefix>/SYNC/<round>/<round_digest>, and
 RecoInterest/RecoveryData under <user_prefix>/RECO. Grounded on the
 teacher's getDataName in pkg/svs/shared_sync.go, which builds names by
 appending a fixed string component onto a prefix followed by a
 sequence-number component.
*/

package roundsync

import (
	"fmt"

	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
)

var (
	dataComp, _ = enc.ComponentFromStr("DATA")
	syncComp, _ = enc.ComponentFromStr("SYNC")
	recoComp, _ = enc.ComponentFromStr("RECO")
)

func roundDigestComponent(digest [32]byte) enc.Component {
	return enc.Component{Typ: enc.TypeGenericNameComponent, Val: digest[:]}
}

// DataName builds <sync_prefix>/DATA/<round>.
func DataName(syncPrefix enc.Name, round uint64) enc.Name {
	name := make(enc.Name, 0, len(syncPrefix)+2)
	name = append(name, syncPrefix...)
	name = append(name, dataComp)
	name = append(name, enc.NewSequenceNumComponent(round))
	return name
}

// SyncName builds <sync_prefix>/SYNC/<round>/<round_digest>.
func SyncName(syncPrefix enc.Name, round uint64, roundDigest [32]byte) enc.Name {
	name := make(enc.Name, 0, len(syncPrefix)+3)
	name = append(name, syncPrefix...)
	name = append(name, syncComp)
	name = append(name, enc.NewSequenceNumComponent(round))
	name = append(name, roundDigestComponent(roundDigest))
	return name
}

// RecoName builds <user_prefix>/RECO.
func RecoName(userPrefix enc.Name) enc.Name {
	name := make(enc.Name, 0, len(userPrefix)+1)
	name = append(name, userPrefix...)
	name = append(name, recoComp)
	return name
}

// ParseDataName extracts the round number from a name produced by
// DataName, given the sync_prefix it was built from.
func ParseDataName(syncPrefix enc.Name, name enc.Name) (round uint64, err error) {
	if len(name) != len(syncPrefix)+2 {
		return 0, fmt.Errorf("roundsync: name is not a DATA name")
	}
	if !name[:len(syncPrefix)].Equal(syncPrefix) || !name[len(syncPrefix)].Equal(dataComp) {
		return 0, fmt.Errorf("roundsync: name is not a DATA name")
	}
	return decodeSequenceNum(name[len(syncPrefix)+1])
}

// ParseSyncName extracts the round number and round_digest from a name
// produced by SyncName, given the sync_prefix it was built from.
func ParseSyncName(syncPrefix enc.Name, name enc.Name) (round uint64, roundDigest [32]byte, err error) {
	if len(name) != len(syncPrefix)+3 {
		return 0, roundDigest, fmt.Errorf("roundsync: name is not a SYNC name")
	}
	if !name[:len(syncPrefix)].Equal(syncPrefix) || !name[len(syncPrefix)].Equal(syncComp) {
		return 0, roundDigest, fmt.Errorf("roundsync: name is not a SYNC name")
	}
	round, err = decodeSequenceNum(name[len(syncPrefix)+1])
	if err != nil {
		return 0, roundDigest, err
	}
	digestComp := name[len(syncPrefix)+2]
	if len(digestComp.Val) != 32 {
		return 0, roundDigest, fmt.Errorf("roundsync: malformed round_digest component")
	}
	copy(roundDigest[:], digestComp.Val)
	return round, roundDigest, nil
}

// ParseSequenceComponent decodes a sequence-number name component, the
// same encoding DataName/SyncName use for their round components —
// exported so callers building their own name families on top of
// Transport (e.g. a per-session content channel) can reuse it.
func ParseSequenceComponent(comp enc.Component) (uint64, error) {
	return decodeSequenceNum(comp)
}

func decodeSequenceNum(comp enc.Component) (uint64, error) {
	val, err := decodeNonNegativeInteger(comp.Val)
	if err != nil {
		return 0, fmt.Errorf("roundsync: malformed sequence-number component: %w", err)
	}
	return val, nil
}
