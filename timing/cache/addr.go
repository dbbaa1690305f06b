package cache

import "math/bits"

// IndexBits returns log2(numSets). The second return value is false when
// numSets is not a positive power of two.
func IndexBits(numSets int) (uint, bool) {
	if numSets <= 0 || numSets&(numSets-1) != 0 {
		return 0, false
	}
	return uint(bits.TrailingZeros64(uint64(numSets))), true
}

// ExtractIndex returns the set index field of a line address.
func ExtractIndex(lineAddr uint64, indexBits uint) uint64 {
	return lineAddr & (1<<indexBits - 1)
}

// ExtractTag returns the tag field of a line address.
func ExtractTag(lineAddr uint64, indexBits uint) uint64 {
	return lineAddr >> indexBits
}

// Reassemble rebuilds a line address from its tag and set index.
func Reassemble(tag, index uint64, indexBits uint) uint64 {
	return tag<<indexBits | index
}
