package crypto

import (
	"encoding/hex"
	"io"

	"golang.org/x/crypto/blake2b"
)

// DigestSize is the length in bytes of a content digest.
const DigestSize = blake2b.Size256

// Sum returns the lowercase hex BLAKE2b-256 digest of data, as printed by
// b2sum -l 256.
func Sum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Digest hashes everything read from r.
func Digest(r io.Reader) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
