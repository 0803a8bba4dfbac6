// Package signature produces and checks detached signatures over serialized
// workbooks.
//
// A Signer signs a digest of the document bytes. The signature, public key,
// optional certificate and the verified table fingerprint travel together in
// an Envelope that can be stored next to the document and checked later
// without access to the private key.
package signature

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

// Signature algorithms.
const (
	AlgEd25519    = "ed25519"
	AlgECDSA      = "ecdsa"
	AlgRSA        = "rsa-pkcs1v15"
	AlgDilithium3 = "dilithium3"
)

// ErrUnsupportedKey is returned for private keys no signer handles.
var ErrUnsupportedKey = errors.New("unsupported signing key")

// Signer signs a document digest.
type Signer interface {
	// Algorithm names the signature scheme.
	Algorithm() string

	// Sign signs digest, which was computed with hash.
	Sign(digest []byte, hash crypto.Hash) ([]byte, error)

	// PublicKey returns the encoded verification key: PKIX DER for the
	// classical schemes, the packed key for dilithium3.
	PublicKey() []byte

	// Certificate returns the DER certificate bound to the key, or nil.
	Certificate() []byte
}

// CryptoSigner adapts a crypto.Signer holding an RSA, ECDSA or Ed25519 key.
type CryptoSigner struct {
	key       crypto.Signer
	algorithm string
	public    []byte
	cert      []byte
}

// NewCryptoSigner wraps key. cert may be nil.
func NewCryptoSigner(key crypto.Signer, cert *x509.Certificate) (*CryptoSigner, error) {
	var alg string
	switch key.Public().(type) {
	case *rsa.PublicKey:
		alg = AlgRSA
	case *ecdsa.PublicKey:
		alg = AlgECDSA
	case ed25519.PublicKey:
		alg = AlgEd25519
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, key.Public())
	}

	public, err := x509.MarshalPKIXPublicKey(key.Public())
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}

	s := &CryptoSigner{key: key, algorithm: alg, public: public}
	if cert != nil {
		s.cert = cert.Raw
	}
	return s, nil
}

func (s *CryptoSigner) Algorithm() string   { return s.algorithm }
func (s *CryptoSigner) PublicKey() []byte   { return s.public }
func (s *CryptoSigner) Certificate() []byte { return s.cert }

// Sign implements Signer. Ed25519 signs the digest bytes as its message.
func (s *CryptoSigner) Sign(digest []byte, hash crypto.Hash) ([]byte, error) {
	var opts crypto.SignerOpts = hash
	if s.algorithm == AlgEd25519 {
		opts = crypto.Hash(0)
	}
	sig, err := s.key.Sign(rand.Reader, digest, opts)
	if err != nil {
		return nil, fmt.Errorf("%s sign: %w", s.algorithm, err)
	}
	return sig, nil
}

// Dilithium3Signer signs with the post-quantum Dilithium mode 3 scheme.
type Dilithium3Signer struct {
	public  *mode3.PublicKey
	private *mode3.PrivateKey
}

// NewDilithium3 derives a key pair from a 32-byte seed.
func NewDilithium3(seed []byte) (*Dilithium3Signer, error) {
	if len(seed) != mode3.SeedSize {
		return nil, fmt.Errorf("dilithium3 seed: got %d bytes, want %d", len(seed), mode3.SeedSize)
	}
	var s [mode3.SeedSize]byte
	copy(s[:], seed)
	pk, sk := mode3.NewKeyFromSeed(&s)
	return &Dilithium3Signer{public: pk, private: sk}, nil
}

// GenerateDilithium3 creates a fresh key pair.
func GenerateDilithium3() (*Dilithium3Signer, error) {
	pk, sk, err := mode3.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate dilithium3 key: %w", err)
	}
	return &Dilithium3Signer{public: pk, private: sk}, nil
}

func (s *Dilithium3Signer) Algorithm() string   { return AlgDilithium3 }
func (s *Dilithium3Signer) PublicKey() []byte   { return s.public.Bytes() }
func (s *Dilithium3Signer) Certificate() []byte { return nil }

// Sign implements Signer. hash is recorded in the envelope only.
func (s *Dilithium3Signer) Sign(digest []byte, _ crypto.Hash) ([]byte, error) {
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(s.private, digest, sig)
	return sig, nil
}
