package project

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
)

// Digest is a fixed 256-bit hash, compatible with source.File.Hash.
type Digest [32]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) IsZero() bool {
	var z Digest
	return d == z
}

// HashBytes digests raw content.
func HashBytes(content []byte) Digest {
	return sha256.Sum256(content)
}

// HashFile digests a file's content on disk.
func HashFile(path string) (Digest, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return Digest{}, err
	}
	return HashBytes(content), nil
}

// Combine builds an aggregate hash H(content || dep1 || dep2 ...). The
// dependency order must be deterministic.
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
