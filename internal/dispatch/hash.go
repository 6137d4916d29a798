package dispatch

// fnv1a32 hashes a channel name with 32-bit FNV-1a. Small, deterministic and
// inlineable, which is all the subscription table needs.
func fnv1a32(b []byte) uint32 {
	h := uint32(2166136261)
	for _, c := range b {
		h ^= uint32(c)
		h *= 16777619
	}
	return h
}
