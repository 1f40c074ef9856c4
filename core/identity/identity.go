// Package identity maps raw commit authors to canonical developer names.
package identity

import "github.com/huangsam/repopulse/internal/ruleset"

// Normalize returns the canonical name for raw, or raw unchanged when no mapping applies.
// It is pure and idempotent for a given snapshot.
func Normalize(raw string, snap *ruleset.Snapshot) string {
	if snap == nil {
		return raw
	}
	if name, ok := snap.Canonical(snap.Key(raw)); ok {
		return name
	}
	return raw
}
