package signature

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/subtle"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"github.com/JonMunkholm/sheetseal/internal/checksum"
)

var (
	// ErrDigestMismatch means the document bytes changed after signing.
	ErrDigestMismatch = errors.New("document digest does not match signature envelope")

	// ErrInvalidSignature means the signature does not verify under the key.
	ErrInvalidSignature = errors.New("signature invalid")

	// ErrCertificateMismatch means the certificate carries a different key.
	ErrCertificateMismatch = errors.New("certificate does not match public key")

	// ErrMalformedEnvelope is returned for envelopes with missing or
	// undecodable fields.
	ErrMalformedEnvelope = errors.New("malformed signature envelope")
)

// Envelope is a detached signature over a serialized document.
type Envelope struct {
	Algorithm   string    `json:"algorithm"`
	HashAlg     string    `json:"hash_alg"`
	Digest      string    `json:"digest"`
	Fingerprint string    `json:"fingerprint"`
	Signature   string    `json:"signature"`
	PublicKey   string    `json:"public_key"`
	Certificate string    `json:"certificate,omitempty"`
	SignedAt    time.Time `json:"signed_at"`
}

// Options control Sign.
type Options struct {
	HashAlg     string // default DefaultHash
	Fingerprint checksum.Fingerprint
	Now         func() time.Time
}

// Sign digests document and signs the digest with s.
func Sign(s Signer, document []byte, opts Options) (*Envelope, error) {
	if s == nil {
		return nil, errors.New("sign: nil signer")
	}
	hashAlg := opts.HashAlg
	if hashAlg == "" {
		hashAlg = DefaultHash
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	digest, hash, err := digestFor(hashAlg, document)
	if err != nil {
		return nil, err
	}
	sig, err := s.Sign(digest, hash)
	if err != nil {
		return nil, err
	}

	env := &Envelope{
		Algorithm:   s.Algorithm(),
		HashAlg:     hashAlg,
		Digest:      hex.EncodeToString(digest),
		Fingerprint: opts.Fingerprint.String(),
		Signature:   base64.StdEncoding.EncodeToString(sig),
		PublicKey:   base64.StdEncoding.EncodeToString(s.PublicKey()),
		SignedAt:    now().UTC(),
	}
	if cert := s.Certificate(); len(cert) > 0 {
		env.Certificate = base64.StdEncoding.EncodeToString(cert)
	}
	return env, nil
}

// Verify checks env against document. It needs no private key material.
func Verify(env *Envelope, document []byte) error {
	if env == nil {
		return fmt.Errorf("%w: nil envelope", ErrMalformedEnvelope)
	}

	digest, hash, err := digestFor(env.HashAlg, document)
	if err != nil {
		return err
	}
	want, err := hex.DecodeString(env.Digest)
	if err != nil {
		return fmt.Errorf("%w: digest: %v", ErrMalformedEnvelope, err)
	}
	if subtle.ConstantTimeCompare(digest, want) != 1 {
		return ErrDigestMismatch
	}

	sig, err := decodeBase64(env.Signature)
	if err != nil || len(sig) == 0 {
		return fmt.Errorf("%w: signature", ErrMalformedEnvelope)
	}
	pub, err := decodeBase64(env.PublicKey)
	if err != nil || len(pub) == 0 {
		return fmt.Errorf("%w: public key", ErrMalformedEnvelope)
	}

	if err := verifySignature(env.Algorithm, pub, digest, sig, hash); err != nil {
		return err
	}

	if env.Certificate == "" {
		return nil
	}
	der, err := decodeBase64(env.Certificate)
	if err != nil {
		return fmt.Errorf("%w: certificate", ErrMalformedEnvelope)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return fmt.Errorf("%w: certificate: %v", ErrMalformedEnvelope, err)
	}
	certPub, err := x509.MarshalPKIXPublicKey(cert.PublicKey)
	if err != nil || !bytes.Equal(certPub, pub) {
		return ErrCertificateMismatch
	}
	return nil
}

func verifySignature(alg string, pub, digest, sig []byte, hash crypto.Hash) error {
	if alg == AlgDilithium3 {
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return fmt.Errorf("%w: dilithium3 public key: %v", ErrMalformedEnvelope, err)
		}
		if len(sig) != mode3.SignatureSize || !mode3.Verify(&pk, digest, sig) {
			return ErrInvalidSignature
		}
		return nil
	}

	key, err := x509.ParsePKIXPublicKey(pub)
	if err != nil {
		return fmt.Errorf("%w: public key: %v", ErrMalformedEnvelope, err)
	}

	var ok bool
	switch k := key.(type) {
	case *rsa.PublicKey:
		ok = alg == AlgRSA && rsa.VerifyPKCS1v15(k, hash, digest, sig) == nil
	case *ecdsa.PublicKey:
		ok = alg == AlgECDSA && ecdsa.VerifyASN1(k, digest, sig)
	case ed25519.PublicKey:
		ok = alg == AlgEd25519 && len(sig) == ed25519.SignatureSize && ed25519.Verify(k, digest, sig)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedKey, key)
	}
	if !ok {
		return ErrInvalidSignature
	}
	return nil
}

// Encode renders env as indented JSON.
func Encode(env *Envelope) ([]byte, error) {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses an envelope produced by Encode.
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Algorithm == "" || env.Signature == "" || env.PublicKey == "" {
		return nil, fmt.Errorf("%w: missing fields", ErrMalformedEnvelope)
	}
	return &env, nil
}

func decodeBase64(s string) ([]byte, error) {
	// Prefer padded encoding, accept raw.
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
