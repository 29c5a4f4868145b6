package httpcrypt

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// Encrypted is a sealed inner request plus what the caller needs to send it
// and to open the reply.
type Encrypted struct {
	// Body is nonce || tag || ciphertext
	Body []byte
	// LocalKey is the ephemeral public key, zbase32 encoded
	LocalKey string
	// Shared opens the daemon's reply
	Shared SharedKey
}

// Encrypt wraps an inner HTTP request for path into an HTTPCrypt envelope
// addressed to serverKey (zbase32). The Key header belongs on the outer
// request only; see KeyHeader.
func Encrypt(path string, body []byte, headers map[string][]string, serverKey string) (*Encrypted, error) {
	remote, err := DecodePublicKey(serverKey)
	if err != nil {
		return nil, err
	}

	var sk [KeySize]byte
	if _, err := rand.Read(sk[:]); err != nil {
		return nil, fmt.Errorf("failed to generate local secret key: %w", err)
	}
	pk, err := PublicKey(sk)
	if err != nil {
		return nil, fmt.Errorf("failed to compute public key: %w", err)
	}

	point, err := ScalarMult(sk, remote)
	if err != nil {
		return nil, err
	}
	shared, err := DeriveShared(point)
	if err != nil {
		return nil, err
	}

	out, err := Seal(shared, innerRequest(path, body, headers))
	if err != nil {
		return nil, err
	}
	return &Encrypted{Body: out, LocalKey: Encode(pk[:]), Shared: shared}, nil
}

// innerRequest renders the plaintext request. Header order is sorted so the
// output is deterministic.
func innerRequest(path string, body []byte, headers map[string][]string) []byte {
	var buf bytes.Buffer
	buf.WriteString("POST " + path + " HTTP/1.1\n")

	names := make([]string, 0, len(headers))
	for k := range headers {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		for _, v := range headers[k] {
			buf.WriteString(k + ": " + v + "\n")
		}
	}

	fmt.Fprintf(&buf, "Content-Length: %d\n\n", len(body))
	buf.Write(body)
	return buf.Bytes()
}

// Seal encrypts plaintext under shared with a random nonce.
func Seal(shared SharedKey, plaintext []byte) ([]byte, error) {
	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	b, err := newBox(shared, nonce)
	if err != nil {
		return nil, err
	}

	out := make([]byte, NonceSize+TagSize+len(plaintext))
	copy(out, nonce[:])
	copy(out[NonceSize+TagSize:], plaintext)
	tag, err := b.seal(out[NonceSize+TagSize:])
	if err != nil {
		return nil, err
	}
	copy(out[NonceSize:], tag[:])
	return out, nil
}

// Open authenticates and decrypts a sealed payload. body is not modified.
func Open(shared SharedKey, body []byte) ([]byte, error) {
	if len(body) < NonceSize+TagSize {
		return nil, errors.New("invalid body size")
	}
	var nonce [NonceSize]byte
	var tag [TagSize]byte
	copy(nonce[:], body[:NonceSize])
	copy(tag[:], body[NonceSize:NonceSize+TagSize])

	b, err := newBox(shared, nonce)
	if err != nil {
		return nil, err
	}
	plain := bytes.Clone(body[NonceSize+TagSize:])
	if err := b.open(plain, tag); err != nil {
		return nil, err
	}
	return plain, nil
}

// KeyHeader builds the value of the outer Key header: "<server key id>=<local key>".
func KeyHeader(serverKey, localKey string) (string, error) {
	pk, err := DecodePublicKey(serverKey)
	if err != nil {
		return "", err
	}
	return KeyID(pk[:]) + "=" + localKey, nil
}

// ParseResponse splits a decrypted inner reply into status, headers and body.
// Lines may end in "\n" or "\r\n".
func ParseResponse(plain []byte) (int, http.Header, []byte, error) {
	r := bufio.NewReader(bytes.NewReader(plain))

	line, err := r.ReadString('\n')
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to read status line: %w", err)
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, nil, nil, fmt.Errorf("malformed status line %q", strings.TrimSpace(line))
	}
	status, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, nil, nil, fmt.Errorf("malformed status code %q", fields[1])
	}

	headers := make(http.Header)
	for {
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return 0, nil, nil, fmt.Errorf("failed to read header: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if k, v, ok := strings.Cut(line, ":"); ok {
			headers.Add(strings.TrimSpace(k), strings.TrimSpace(v))
		}
		if err == io.EOF {
			break
		}
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to read decrypted body: %w", err)
	}
	return status, headers, body, nil
}
