// Package reconcile keeps the local ledger convergent with the polled store:
// last-writer-wins merging of entity collections and debounced write-back.
package reconcile

import (
	"reflect"
	"time"
)

// Versioned is an entity carrying its own key and logical timestamp (ms)
type Versioned interface {
	Key() string
	Version() int64
}

// Merge folds the remote collection into the local one.
//
// A remote entity replaces its local copy when its version is equal or newer.
// Remote entities unknown locally are appended. A local entity missing from remote
// survives only if it was written within grace of now, since the poll may have
// raced that write. The second result reports whether the merged slice differs
// from local; when it does not, local itself is returned.
func Merge[T Versioned](local, remote []T, now time.Time, grace time.Duration) ([]T, bool) {
	remoteByKey := make(map[string]T, len(remote))
	for _, r := range remote {
		remoteByKey[r.Key()] = r
	}

	cutoff := now.Add(-grace).UnixMilli()
	merged := make([]T, 0, max(len(local), len(remote)))
	seen := make(map[string]bool, len(local))
	for _, l := range local {
		seen[l.Key()] = true
		r, ok := remoteByKey[l.Key()]
		switch {
		case ok && r.Version() >= l.Version():
			merged = append(merged, r)
		case ok:
			merged = append(merged, l)
		case l.Version() > cutoff:
			merged = append(merged, l)
		}
	}
	for _, r := range remote {
		if !seen[r.Key()] {
			seen[r.Key()] = true
			merged = append(merged, r)
		}
	}

	if len(merged) == len(local) && (len(local) == 0 || reflect.DeepEqual(merged, local)) {
		return local, false
	}
	return merged, true
}
