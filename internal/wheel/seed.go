package wheel

import (
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// The draw seed is committed when a round opens and revealed with the
// outcome, so anyone can re-derive the winning random value after the fact.

func newSeed() ([]byte, string, error) {
	seed := make([]byte, 32)
	if _, err := crand.Read(seed); err != nil {
		return nil, "", err
	}
	return seed, seedCommitment(seed), nil
}

func seedCommitment(seed []byte) string {
	h := sha256.Sum256(seed)
	return hex.EncodeToString(h[:])
}

// randUnitFromSeed maps the committed seed to the round's single random
// value in [0, 1). Domain-separated from the commitment hash.
func randUnitFromSeed(seed []byte) float64 {
	h := sha256.Sum256(append(append([]byte{}, seed...), []byte("draw")...))
	u := binary.BigEndian.Uint64(h[:8]) >> 11
	return float64(u) / (1 << 53)
}

// cryptoRandUnit is the fallback for adopted rounds whose seed did not
// survive a restart; the outcome is then unverifiable but still uniform.
func cryptoRandUnit() float64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return 0
	}
	u := binary.BigEndian.Uint64(buf[:]) >> 11
	return float64(u) / (1 << 53)
}
