package vector

import "github.com/twmb/murmur3"

// KeyFromString derives a stable non-negative int64 primary key from an
// external identifier, for sources whose ids are not integers. Distinct
// inputs may collide; Insert reports a collision inside one batch as a
// duplicate key.
func KeyFromString(s string) int64 {
	return int64(murmur3.Sum64([]byte(s)) >> 1)
}
