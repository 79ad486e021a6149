package event

import (
	"github.com/cespare/xxhash/v2"
)

// GroupKey is a stable hash identifying the tuple of values found at a set
// of paths within a Value. The aggregating transform uses it to bucket
// events by event_id_fields; the reduce transform uses the analogous
// group_by discriminant.
type GroupKey uint64

// HashPaths extracts the value at each path (missing paths hash as a
// distinguished "absent" marker, distinct from a present null, so an
// absent key is a stable part of the group identity) and folds them into one
// GroupKey. Field order matters: HashPaths([a,b]) and HashPaths([b,a])
// produce different keys, mirroring event_id_fields being an ordered list.
func HashPaths(root Value, paths []Path) GroupKey {
	d := xxhash.New()
	for _, p := range paths {
		val, ok := Get(root, p)
		if !ok {
			_, _ = d.WriteString("\x00absent\x00")
			continue
		}
		_, _ = d.WriteString(CanonicalKey(val))
		_, _ = d.WriteString("\x1f")
	}
	return GroupKey(d.Sum64())
}
