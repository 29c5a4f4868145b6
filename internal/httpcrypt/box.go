package httpcrypt

import (
	"errors"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/poly1305"
)

// ErrAuth is returned when a sealed payload fails tag verification.
var ErrAuth = errors.New("authentication failed")

// box is the daemon's secretbox: block 0 of the XChaCha20 keystream keys
// Poly1305, the payload is XORed starting at block 1.
type box struct {
	key    SharedKey
	nonce  [NonceSize]byte
	macKey [32]byte
}

func newBox(key SharedKey, nonce [NonceSize]byte) (*box, error) {
	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		return nil, err
	}
	block := make([]byte, 64)
	c.XORKeyStream(block, block)

	b := &box{key: key, nonce: nonce}
	copy(b.macKey[:], block[:32])
	clear(block)
	return b, nil
}

func (b *box) xor(data []byte) error {
	c, err := chacha20.NewUnauthenticatedCipher(b.key[:], b.nonce[:])
	if err != nil {
		return err
	}
	c.SetCounter(1)
	c.XORKeyStream(data, data)
	return nil
}

// seal encrypts data in place and returns its tag.
func (b *box) seal(data []byte) ([TagSize]byte, error) {
	var tag [TagSize]byte
	if err := b.xor(data); err != nil {
		return tag, err
	}
	poly1305.Sum(&tag, data, &b.macKey)
	return tag, nil
}

// open verifies tag and decrypts data in place.
func (b *box) open(data []byte, tag [TagSize]byte) error {
	if !poly1305.Verify(&tag, data, &b.macKey) {
		return ErrAuth
	}
	return b.xor(data)
}
