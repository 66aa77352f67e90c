package crypto

import (
	"crypto/aes"
	"crypto/subtle"
	"fmt"

	"github.com/aead/cmac"
)

// MAC computes a keyed MAC over msg using the module's negotiated AEAD suite
// in tag-only mode (empty plaintext, msg as AD), e.g. MAC(module_key,
// nonce ‖ code) for a Sancus SetKey response. The SetKey path does not call
// it: SetKey responses are not checked against such a tag.
func MAC(suite AEAD, key, msg []byte) ([]byte, error) {
	sealed, err := suite.Seal(key, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: mac: %w", err)
	}
	return sealed, nil
}

// VerifyMAC recomputes MAC(suite, key, msg) and compares it to tag in
// constant time.
func VerifyMAC(suite AEAD, key, msg, tag []byte) bool {
	want, err := MAC(suite, key, msg)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(want, tag) == 1
}

// AESCMAC computes an AES-CMAC over msg, used for the TrustZone attestation
// challenge/response: the EM replies with AES-MAC(module_key, challenge).
func AESCMAC(key, msg []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: aes-cmac: new cipher: %w", err)
	}
	mac, err := cmac.New(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: aes-cmac: new cmac: %w", err)
	}
	if _, err := mac.Write(msg); err != nil {
		return nil, fmt.Errorf("crypto: aes-cmac: write: %w", err)
	}
	return mac.Sum(nil), nil
}

// VerifyAESCMAC recomputes AESCMAC(key, msg) and compares it to tag in
// constant time.
func VerifyAESCMAC(key, msg, tag []byte) bool {
	want, err := AESCMAC(key, msg)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(want, tag) == 1
}
