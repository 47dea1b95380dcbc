package prolly

import (
	"github.com/dialog-db/dialog/hash"
	"github.com/dialog-db/dialog/key"
)

// rank returns the number of leading all-zero nibbles of BLAKE3(k),
// read from the most significant nibble of the first digest byte
// onward (spec.md §9 Open Question 2, resolved in DESIGN.md and
// SPEC_FULL.md §4.3). A nibble is a base-16 digit, so P(rank >= 1) is
// exactly 1/16, matching the spec's stated expected fan-out of 16.
func rank(k key.Key) int {
	digest := hash.Sum(k[:])
	count := 0
	for _, b := range digest {
		if b == 0 {
			count += 2
			continue
		}
		if b>>4 == 0 {
			count++
		}
		break
	}
	return count
}
