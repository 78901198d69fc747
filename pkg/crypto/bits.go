package crypto

// Bits is a bit sequence in hashing order, one bit per element. The
// Pedersen and Sinsemilla hashes consume their input this way.
type Bits []uint8

// AppendBytes appends the first n bits of b, least significant bit of each
// byte first.
func (s Bits) AppendBytes(b []byte, n int) Bits {
	for i := 0; i < n; i++ {
		s = append(s, (b[i/8]>>(uint(i)%8))&1)
	}
	return s
}

// AppendUint appends I2LEBSP_n(v).
func (s Bits) AppendUint(v uint64, n int) Bits {
	for i := 0; i < n; i++ {
		s = append(s, uint8(v>>uint(i))&1)
	}
	return s
}

// At returns bit i, or 0 past the end.
func (s Bits) At(i int) uint64 {
	if i >= len(s) {
		return 0
	}
	return uint64(s[i])
}
