// Package httpcrypt implements the HTTPCrypt envelope spoken by the Rspamd
// controller. It predates RFC 8439: keys are exchanged with x25519, the
// shared secret is the hchacha20 of the point with a zero nonce, and payloads
// are sealed with XChaCha20 and Poly1305. Keys travel in zbase32.
package httpcrypt

import (
	"fmt"

	"github.com/vstakhov/go-base32"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/curve25519"
)

const (
	// ShortKeyIDSize must match the daemon, currently 5
	ShortKeyIDSize = 5
	NonceSize      = 24
	TagSize        = 16
	KeySize        = 32
)

// SharedKey is the symmetric key both peers derive from the exchange.
type SharedKey [KeySize]byte

// Encode encodes data using the zbase32 alphabet of Rspamd.
func Encode(data []byte) string {
	return base32.Encode(data)
}

// Decode decodes a zbase32 string.
func Decode(s string) ([]byte, error) {
	return base32.DecodeString(s)
}

// DecodePublicKey decodes and length-checks a zbase32 public key.
func DecodePublicKey(s string) ([KeySize]byte, error) {
	var pk [KeySize]byte
	raw, err := Decode(s)
	if err != nil {
		return pk, fmt.Errorf("base32 decode failed: %w", err)
	}
	if len(raw) != KeySize {
		return pk, fmt.Errorf("invalid public key length %d", len(raw))
	}
	copy(pk[:], raw)
	return pk, nil
}

// KeyID returns the short identifier of a public key: the zbase32 of the
// first ShortKeyIDSize bytes of its blake2b-512 digest.
func KeyID(pk []byte) string {
	sum := blake2b.Sum512(pk)
	return Encode(sum[:ShortKeyIDSize])
}

// ScalarMult multiplies the remote point by the clamped local scalar.
func ScalarMult(localSK, remotePK [KeySize]byte) ([KeySize]byte, error) {
	var out [KeySize]byte

	sk := localSK
	sk[0] &= 248
	sk[31] &= 127
	sk[31] |= 64

	point, err := curve25519.X25519(sk[:], remotePK[:])
	if err != nil {
		return out, fmt.Errorf("X25519 failed: %w", err)
	}
	copy(out[:], point)
	return out, nil
}

// DeriveShared turns an x25519 point into the shared key the way the daemon
// does: one hchacha20 pass with a zero nonce.
func DeriveShared(point [KeySize]byte) (SharedKey, error) {
	var nm SharedKey
	var nonce [16]byte
	key, err := chacha20.HChaCha20(point[:], nonce[:])
	if err != nil {
		return nm, err
	}
	copy(nm[:], key)
	return nm, nil
}

// PublicKey computes the x25519 public key of sk.
func PublicKey(sk [KeySize]byte) ([KeySize]byte, error) {
	var pk [KeySize]byte
	raw, err := curve25519.X25519(sk[:], curve25519.Basepoint)
	if err != nil {
		return pk, err
	}
	copy(pk[:], raw)
	return pk, nil
}
