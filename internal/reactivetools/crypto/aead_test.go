package crypto_test

import (
	"bytes"
	"testing"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/crypto"
)

func makeKey() []byte {
	key := make([]byte, crypto.KeySize)
	for i := range key {
		key[i] = byte(i * 7)
	}
	return key
}

func TestAESGCM128_Roundtrip(t *testing.T) {
	suite, err := crypto.ForEncryption(crypto.EncryptionAESGCM128)
	if err != nil {
		t.Fatalf("ForEncryption: %v", err)
	}
	key := makeKey()
	ad := []byte{0x00, 0x01}
	plaintext := []byte("connection-key-material")

	sealed, err := suite.Seal(key, ad, plaintext)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Equal(sealed, plaintext) {
		t.Fatal("sealed output should not equal plaintext")
	}

	recovered, err := suite.Open(key, ad, sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(recovered, plaintext) {
		t.Errorf("recovered = %q, want %q", recovered, plaintext)
	}
}

func TestAESGCM128_TamperedADFails(t *testing.T) {
	suite, _ := crypto.ForEncryption(crypto.EncryptionAESGCM128)
	key := makeKey()
	sealed, err := suite.Seal(key, []byte{0x00, 0x01}, []byte("payload"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := suite.Open(key, []byte{0x00, 0x02}, sealed); err == nil {
		t.Fatal("expected tag failure on tampered AD")
	}
}

func TestSpongent128_Roundtrip(t *testing.T) {
	suite, err := crypto.ForEncryption(crypto.EncryptionSpongent128)
	if err != nil {
		t.Fatalf("ForEncryption: %v", err)
	}
	key := makeKey()
	ad := []byte{0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04}
	plaintext := []byte("sancus-conn-key!")

	sealed, err := suite.Seal(key, ad, plaintext)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	recovered, err := suite.Open(key, ad, sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(recovered, plaintext) {
		t.Errorf("recovered = %q, want %q", recovered, plaintext)
	}
}

func TestSpongent128_TamperedTagFails(t *testing.T) {
	suite, _ := crypto.ForEncryption(crypto.EncryptionSpongent128)
	key := makeKey()
	sealed, err := suite.Seal(key, []byte{0x00}, []byte("abc"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xFF
	if _, err := suite.Open(key, []byte{0x00}, sealed); err == nil {
		t.Fatal("expected tag failure on tampered tag")
	}
}

func TestMAC_EmptyPlaintext(t *testing.T) {
	suite, _ := crypto.ForEncryption(crypto.EncryptionAESGCM128)
	key := makeKey()
	tag, err := crypto.MAC(suite, key, []byte{0x00, 0x05})
	if err != nil {
		t.Fatalf("MAC: %v", err)
	}
	if len(tag) != crypto.TagSize {
		t.Fatalf("tag length = %d, want %d", len(tag), crypto.TagSize)
	}
	if !crypto.VerifyMAC(suite, key, []byte{0x00, 0x05}, tag) {
		t.Error("VerifyMAC should accept the tag it produced")
	}
	if crypto.VerifyMAC(suite, key, []byte{0x00, 0x06}, tag) {
		t.Error("VerifyMAC should reject a tag for different content")
	}
}

func TestAESCMAC_Roundtrip(t *testing.T) {
	key := makeKey()
	challenge := bytes.Repeat([]byte{0x42}, 16)
	tag, err := crypto.AESCMAC(key, challenge)
	if err != nil {
		t.Fatalf("AESCMAC: %v", err)
	}
	if !crypto.VerifyAESCMAC(key, challenge, tag) {
		t.Error("VerifyAESCMAC should accept its own tag")
	}
	tag[0] ^= 0xFF
	if crypto.VerifyAESCMAC(key, challenge, tag) {
		t.Error("VerifyAESCMAC should reject a tampered tag")
	}
}

func TestTrustZoneModuleKey_Length(t *testing.T) {
	key := crypto.TrustZoneModuleKey([]byte("node-key"), []byte("module-hash-bytes"))
	if len(key) != crypto.KeySize {
		t.Fatalf("len(key) = %d, want %d", len(key), crypto.KeySize)
	}
}
