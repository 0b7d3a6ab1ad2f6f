package bolt11

// Helpers for the 5-bit groups ("words") bech32 data is made of.

// readUint interprets groups as a big-endian base-32 integer.
func readUint(groups []byte) uint64 {
	var v uint64
	for _, g := range groups {
		v = v<<5 | uint64(g&31)
	}
	return v
}

// writeUint encodes v as big-endian base-32 using exactly n groups.
func writeUint(v uint64, n int) []byte {
	out := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = byte(v & 31)
		v >>= 5
	}
	return out
}

// minimalUint encodes v using the fewest groups; zero encodes as no groups.
func minimalUint(v uint64) []byte {
	n := 0
	for t := v; t > 0; t >>= 5 {
		n++
	}
	return writeUint(v, n)
}
