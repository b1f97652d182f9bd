package cipher

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func mustKey(t *testing.T) []byte {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() failed: %v", err)
	}
	return key
}

// TestEncryptDecrypt_RoundTrip tests that decrypt(encrypt(p, k), k) == p.
func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := mustKey(t)

	plaintexts := [][]byte{
		[]byte(""),
		[]byte("a"),
		[]byte("My SSN is 123-45-6789"),
		bytes.Repeat([]byte{0x00, 0xff, 0x7f}, 1000),
	}

	for _, p := range plaintexts {
		blob, err := Encrypt(p, key)
		if err != nil {
			t.Fatalf("Encrypt() failed: %v", err)
		}
		if got := strings.Count(blob, ":"); got != 2 {
			t.Fatalf("blob should have 3 segments, got %d separators", got)
		}

		out, err := Decrypt(blob, key)
		if err != nil {
			t.Fatalf("Decrypt() failed: %v", err)
		}
		if !bytes.Equal(out, p) {
			t.Errorf("round trip mismatch for %d-byte plaintext", len(p))
		}
	}
}

// TestEncrypt_FreshNonce tests that the same plaintext never yields the same blob.
func TestEncrypt_FreshNonce(t *testing.T) {
	key := mustKey(t)
	a, err := Encrypt([]byte("same"), key)
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}
	b, err := Encrypt([]byte("same"), key)
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}
	if a == b {
		t.Error("two encryptions produced identical blobs")
	}
}

// TestDecrypt_TamperDetection tests that flipping any byte of the blob fails decryption.
func TestDecrypt_TamperDetection(t *testing.T) {
	key := mustKey(t)
	blob, err := Encrypt([]byte("classified payload"), key)
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}

	for i := 0; i < len(blob); i++ {
		tampered := []byte(blob)
		tampered[i] ^= 0x01
		_, err := Decrypt(string(tampered), key)
		if !errors.Is(err, ErrDecryptionFailed) {
			t.Fatalf("byte %d flipped: error = %v, want ErrDecryptionFailed", i, err)
		}
	}
}

// TestDecrypt_WrongKey tests that a different key cannot open the blob.
func TestDecrypt_WrongKey(t *testing.T) {
	blob, err := Encrypt([]byte("tenant a data"), mustKey(t))
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}
	if _, err := Decrypt(blob, mustKey(t)); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Decrypt() with wrong key error = %v, want ErrDecryptionFailed", err)
	}
}

// TestDecrypt_MalformedBlob tests malformed inputs.
func TestDecrypt_MalformedBlob(t *testing.T) {
	key := mustKey(t)
	blobs := []string{
		"",
		"only-one-segment",
		"a:b",
		"a:b:c:d",
		"!!!:AAAAAAAAAAAAAAAAAAAAAA:AAAA",
		"AAAAAAAAAAAAAAAA:short:AAAA",
	}
	for _, blob := range blobs {
		if _, err := Decrypt(blob, key); !errors.Is(err, ErrDecryptionFailed) {
			t.Errorf("Decrypt(%q) error = %v, want ErrDecryptionFailed", blob, err)
		}
	}
}

// TestInvalidKeySize tests that keys other than 32 bytes are rejected.
func TestInvalidKeySize(t *testing.T) {
	for _, size := range []int{0, 16, 24, 31, 33} {
		if _, err := Encrypt([]byte("x"), make([]byte, size)); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Encrypt() with %d-byte key error = %v, want ErrInvalidKey", size, err)
		}
		if _, err := Decrypt("a:b:c", make([]byte, size)); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Decrypt() with %d-byte key error = %v, want ErrInvalidKey", size, err)
		}
	}
}

// TestZeroBytes tests that key material is wiped.
func TestZeroBytes(t *testing.T) {
	key := mustKey(t)
	ZeroBytes(key)
	if !bytes.Equal(key, make([]byte, KeySize)) {
		t.Error("ZeroBytes() left non-zero bytes")
	}
}
