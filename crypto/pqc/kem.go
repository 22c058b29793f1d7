package pqc

import (
	"fmt"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
)

// kemScheme is the process-wide ML-KEM scheme.
var kemScheme = mlkem768.Scheme()

// KEMKeyPair holds an ML-KEM-768 key pair.
type KEMKeyPair struct {
	public  kem.PublicKey
	private kem.PrivateKey
}

// GenerateKEMKeyPair generates a fresh ML-KEM-768 key pair.
func GenerateKEMKeyPair() (*KEMKeyPair, error) {
	public, private, err := kemScheme.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("could not generate ML-KEM key pair: %w", err)
	}
	return &KEMKeyPair{public: public, private: private}, nil
}

// PublicKey returns the binary encoding of the public key.
func (kp *KEMKeyPair) PublicKey() []byte {
	encoded, err := kp.public.MarshalBinary()
	if err != nil {
		panic(fmt.Sprintf("pqc: could not encode KEM public key: %s", err))
	}
	return encoded
}

// Decapsulate recovers the shared secret from a ciphertext.
func (kp *KEMKeyPair) Decapsulate(ciphertext []byte) ([]byte, error) {
	secret, err := kemScheme.Decapsulate(kp.private, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("ML-KEM decapsulation failed: %w", err)
	}
	return secret, nil
}

// Encapsulate generates a shared secret and its encapsulation against the
// binary encoded recipient public key.
func Encapsulate(publicKey []byte) (ciphertext, secret []byte, err error) {
	public, err := kemScheme.UnmarshalBinaryPublicKey(publicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("could not decode ML-KEM public key: %w", err)
	}
	ciphertext, secret, err = kemScheme.Encapsulate(public)
	if err != nil {
		return nil, nil, fmt.Errorf("ML-KEM encapsulation failed: %w", err)
	}
	return ciphertext, secret, nil
}
