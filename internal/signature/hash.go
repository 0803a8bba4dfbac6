package signature

import (
	"crypto"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Digest algorithms accepted for the signed document digest.
const (
	HashSHA256   = "sha256"
	HashSHA512   = "sha512"
	HashSHA3_256 = "sha3-256"
)

// DefaultHash matches the table fingerprint algorithm.
const DefaultHash = HashSHA512

func digestFor(hashAlg string, message []byte) ([]byte, crypto.Hash, error) {
	switch hashAlg {
	case HashSHA256:
		s := sha256.Sum256(message)
		return s[:], crypto.SHA256, nil
	case HashSHA512:
		s := sha512.Sum512(message)
		return s[:], crypto.SHA512, nil
	case HashSHA3_256:
		s := sha3.Sum256(message)
		return s[:], crypto.SHA3_256, nil
	default:
		return nil, 0, fmt.Errorf("unsupported hash algorithm: %q", hashAlg)
	}
}
