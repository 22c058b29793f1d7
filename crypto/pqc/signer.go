// Package pqc wraps the post-quantum primitives used across the SDK:
// ML-DSA-65 (Dilithium3, NIST level 3) for signatures, ML-KEM-768 for key
// encapsulation, and a CSPRNG-backed randomness beacon.
package pqc

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/mldsa/mldsa65"

	"github.com/CreoDAMO/quantumfuse-sdk/model/hash"
)

var (
	// ErrInvalidSignature is returned when signature verification fails.
	ErrInvalidSignature = errors.New("invalid ML-DSA signature")
)

// scheme is the process-wide ML-DSA signature scheme.
var scheme = mldsa65.Scheme()

// KeyPair holds an ML-DSA signing key pair.
type KeyPair struct {
	public  sign.PublicKey
	private sign.PrivateKey
}

// GenerateKeyPair generates a fresh ML-DSA-65 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	public, private, err := scheme.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("could not generate ML-DSA key pair: %w", err)
	}
	return &KeyPair{public: public, private: private}, nil
}

// Sign signs the message with the private key.
func (kp *KeyPair) Sign(message []byte) []byte {
	return scheme.Sign(kp.private, message, nil)
}

// PublicKey returns the binary encoding of the public key.
func (kp *KeyPair) PublicKey() []byte {
	encoded, err := kp.public.MarshalBinary()
	if err != nil {
		panic(fmt.Sprintf("pqc: could not encode public key: %s", err))
	}
	return encoded
}

// Verify checks an ML-DSA signature over the message against the binary
// encoded public key. It returns ErrInvalidSignature on a failed check and a
// descriptive error on a malformed key.
func Verify(publicKey, message, signature []byte) error {
	public, err := scheme.UnmarshalBinaryPublicKey(publicKey)
	if err != nil {
		return fmt.Errorf("could not decode ML-DSA public key: %w", err)
	}
	if !scheme.Verify(public, message, signature, nil) {
		return ErrInvalidSignature
	}
	return nil
}

// SignatureSize returns the byte length of an ML-DSA-65 signature.
func SignatureSize() int {
	return scheme.SignatureSize()
}

// AddressFromPublicKey derives the wallet address for a binary encoded
// public key: the first 40 hex characters of its SHA3-256 digest.
func AddressFromPublicKey(publicKey []byte) string {
	digest := hash.DefaultHasher.ComputeHash(publicKey)
	return hex.EncodeToString(digest)[:40]
}
