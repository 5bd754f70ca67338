package util

// Wipe zeroes b in place. Used for key material once it is no longer needed.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
