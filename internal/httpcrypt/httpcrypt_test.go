package httpcrypt

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	stderrors "errors"
	"strings"
	"testing"

	"golang.org/x/crypto/blake2b"
)

// Daemon public key with precomputed exchange vectors.
const testServerKey = "k4nz984k36xmcynm1hr9kdbn6jhcxf4ggbrb1quay7f88rpm9kay"

const (
	expectedPoint  = "5f4ce1bc001a925e46f95abd2333012a09255efecc37c65bb45a2ed98ce2d35a"
	expectedShared = "3d6ddcc364ae7fed947a9a3da5535d697fa6997067e002c888f3493308a39607"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func TestScalarMult(t *testing.T) {
	remote, err := DecodePublicKey(testServerKey)
	if err != nil {
		t.Fatalf("DecodePublicKey failed: %v", err)
	}

	var sk [KeySize]byte
	point, err := ScalarMult(sk, remote)
	if err != nil {
		t.Fatalf("ScalarMult failed: %v", err)
	}
	if want := mustHex(t, expectedPoint); !bytes.Equal(point[:], want) {
		t.Errorf("point mismatch\nwant %x\ngot  %x", want, point)
	}
}

func TestDeriveShared(t *testing.T) {
	var point [KeySize]byte
	copy(point[:], mustHex(t, expectedPoint))

	nm, err := DeriveShared(point)
	if err != nil {
		t.Fatalf("DeriveShared failed: %v", err)
	}
	if want := mustHex(t, expectedShared); !bytes.Equal(nm[:], want) {
		t.Errorf("shared key mismatch\nwant %x\ngot  %x", want, nm)
	}
}

func TestBoxVectors(t *testing.T) {
	tests := []struct {
		name       string
		plainLen   int
		wantCipher string
		wantTag    string
	}{
		{
			name:     "all_zeros_64_bytes",
			plainLen: 64,
			wantCipher: "789e9689e5208d7fd9e1f3c5b5341f48ef18a13e418998adda" +
				"dd97a3693a987f8e82ecd5c1433bfed1af49750c0f1ff29c4174a05b119aa3a9e8333812e0c0fe",
			wantTag: "9c22bd8b7d6800ca3f9df1c03e313e68",
		},
		{
			name:     "all_zeros_128_bytes",
			plainLen: 128,
			wantCipher: "789e9689e5208d7fd9e1f3c5b5341f48ef18a13e418998adda" +
				"dd97a3693a987f8e82ecd5c1433bfed1af49750c0f1ff29c4174a05b119aa3a9e8333812e0c0fe" +
				"a49e1ee0134a70a9d49c24e0cbd8fc3ba27e97c3322ad487f778f8dc6a122fa5" +
				"9cbe33e778ea2e50bb5909c9971c4fec2f93523f77892d17caa58167dec4d6c7",
			wantTag: "cfe14ac33935d3631a06bf5588f412fa",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var key SharedKey
			var nonce [NonceSize]byte

			b, err := newBox(key, nonce)
			if err != nil {
				t.Fatalf("newBox failed: %v", err)
			}
			data := make([]byte, tc.plainLen)
			tag, err := b.seal(data)
			if err != nil {
				t.Fatalf("seal failed: %v", err)
			}

			if want := mustHex(t, tc.wantCipher); !bytes.Equal(data, want) {
				t.Errorf("ciphertext mismatch\nwant %x\ngot  %x", want, data)
			}
			if want := mustHex(t, tc.wantTag); !bytes.Equal(tag[:], want) {
				t.Errorf("tag mismatch\nwant %x\ngot  %x", want, tag)
			}

			if err := b.open(data, tag); err != nil {
				t.Fatalf("open failed: %v", err)
			}
			if !bytes.Equal(data, make([]byte, tc.plainLen)) {
				t.Error("open did not restore the plaintext")
			}
		})
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	var key SharedKey
	copy(key[:], "0123456789abcdef0123456789abcdef")

	sealed, err := Seal(key, []byte("HTTP/1.1 200 OK\n\npong"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xff

	if _, err := Open(key, sealed); !stderrors.Is(err, ErrAuth) {
		t.Errorf("expected ErrAuth, got %v", err)
	}
	if _, err := Open(key, sealed[:10]); err == nil {
		t.Error("expected error for short body")
	}
}

func TestEncryptRoundTrip(t *testing.T) {
	var serverSK [KeySize]byte
	if _, err := rand.Read(serverSK[:]); err != nil {
		t.Fatal(err)
	}
	serverPK, err := PublicKey(serverSK)
	if err != nil {
		t.Fatal(err)
	}

	body := []byte("test message")
	headers := map[string][]string{
		"User-Agent": {"rspamd-api-go"},
		"Rcpt":       {"a@example.com", "b@example.com"},
	}
	enc, err := Encrypt("/checkv2", body, headers, Encode(serverPK[:]))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	// The daemon derives the same key from its secret and our ephemeral key.
	clientPK, err := DecodePublicKey(enc.LocalKey)
	if err != nil {
		t.Fatalf("bad local key: %v", err)
	}
	point, err := ScalarMult(serverSK, clientPK)
	if err != nil {
		t.Fatal(err)
	}
	shared, err := DeriveShared(point)
	if err != nil {
		t.Fatal(err)
	}
	if shared != enc.Shared {
		t.Fatal("server and client derived different keys")
	}

	plain, err := Open(shared, enc.Body)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	text := string(plain)
	for _, want := range []string{
		"POST /checkv2 HTTP/1.1\n",
		"Rcpt: a@example.com\n",
		"Rcpt: b@example.com\n",
		"Content-Length: 12\n\ntest message",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("inner request missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Key: ") {
		t.Error("inner request must not carry the Key header")
	}
}

func TestKeyHeader(t *testing.T) {
	header, err := KeyHeader(testServerKey, "localkey")
	if err != nil {
		t.Fatalf("KeyHeader failed: %v", err)
	}

	raw, err := Decode(testServerKey)
	if err != nil {
		t.Fatal(err)
	}
	sum := blake2b.Sum512(raw)
	want := Encode(sum[:ShortKeyIDSize]) + "=localkey"
	if header != want {
		t.Errorf("KeyHeader = %q, want %q", header, want)
	}

	if _, err := KeyHeader("not-a-key!", "x"); err == nil {
		t.Error("expected error for an invalid server key")
	}
}

func TestParseResponse(t *testing.T) {
	plain := []byte("HTTP/1.1 403 Forbidden\r\nContent-Type: application/json\r\nCompression: zstd\r\n\r\n{\"error\":\"denied\"}")

	status, headers, body, err := ParseResponse(plain)
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	if status != 403 {
		t.Errorf("status = %d", status)
	}
	if headers.Get("Compression") != "zstd" {
		t.Errorf("headers = %v", headers)
	}
	if string(body) != `{"error":"denied"}` {
		t.Errorf("body = %q", body)
	}

	if _, _, _, err := ParseResponse([]byte("garbage\n")); err == nil {
		t.Error("expected error for malformed status line")
	}
}
