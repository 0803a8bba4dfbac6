package signature

import (
	"crypto"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/pkcs12"
)

// Key types accepted by Load.
const (
	KeyTypeNone       = ""
	KeyTypePKCS12     = "pkcs12"
	KeyTypeDilithium3 = "dilithium3"
)

// PEM block types for dilithium3 key files.
const (
	pemDilithium3Seed    = "DILITHIUM3 SEED"
	pemDilithium3Private = "DILITHIUM3 PRIVATE KEY"
)

// ErrKeyPassword is returned when a keystore password is wrong.
var ErrKeyPassword = errors.New("signing key password incorrect")

// Load returns the signer configured by keyType. KeyTypeNone yields a nil
// Signer and no error.
func Load(keyType, path, password string) (Signer, error) {
	switch strings.ToLower(keyType) {
	case KeyTypeNone:
		return nil, nil
	case KeyTypePKCS12:
		s, err := LoadPKCS12(path, password)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KeyTypeDilithium3:
		s, err := LoadDilithium3(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown signing key type %q", keyType)
	}
}

// LoadPKCS12 reads a PKCS#12 keystore holding one private key and its
// certificate.
func LoadPKCS12(path, password string) (*CryptoSigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	return ParsePKCS12(data, password)
}

// ParsePKCS12 decodes a PKCS#12 keystore.
func ParsePKCS12(data []byte, password string) (*CryptoSigner, error) {
	key, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return nil, ErrKeyPassword
		}
		return nil, fmt.Errorf("decode keystore: %w", err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, key)
	}
	return NewCryptoSigner(signer, cert)
}

// LoadDilithium3 reads a PEM file holding either a seed or a packed
// private key.
func LoadDilithium3(path string) (*Dilithium3Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dilithium3 key: %w", err)
	}
	return ParseDilithium3PEM(data)
}

// ParseDilithium3PEM decodes a key written by MarshalPEM or a seed block.
func ParseDilithium3PEM(data []byte) (*Dilithium3Signer, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("dilithium3 key: no PEM block")
	}

	switch block.Type {
	case pemDilithium3Seed:
		return NewDilithium3(block.Bytes)
	case pemDilithium3Private:
		var sk mode3.PrivateKey
		if err := sk.UnmarshalBinary(block.Bytes); err != nil {
			return nil, fmt.Errorf("dilithium3 private key: %w", err)
		}
		pk, ok := sk.Public().(*mode3.PublicKey)
		if !ok {
			return nil, fmt.Errorf("dilithium3 private key: unexpected public key %T", sk.Public())
		}
		return &Dilithium3Signer{public: pk, private: &sk}, nil
	default:
		return nil, fmt.Errorf("dilithium3 key: unexpected PEM type %q", block.Type)
	}
}

// MarshalPEM encodes the private key for LoadDilithium3.
func (s *Dilithium3Signer) MarshalPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: pemDilithium3Private, Bytes: s.private.Bytes()})
}
