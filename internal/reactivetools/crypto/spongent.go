package crypto

import (
	"crypto/subtle"
	"fmt"
)

// spongent128 is the suite behind EncryptionSpongent128, the lightweight
// AEAD of the Sancus/MSP430-class backend, where the bulkier AES-GCM
// implementation is too large for the enclave's code budget. It has the
// sponge shape of Spongent (substitution-permutation network over a
// fixed-width state, iterated for a fixed round count, key material absorbed
// before squeezing) and the same wrap/unwrap interface as the AES-GCM suite.
// Its permutation is not the reference Spongent permutation (the round
// constants and the permutation layer differ), so its ciphertexts and tags
// do not match those of other Spongent-128 implementations.
//
// No published Go implementation of Spongent exists in the wider ecosystem
// (confirmed during dependency wiring), so the permutation is implemented
// directly here rather than imported.
type spongent128 struct{}

const spongentStateBytes = 16 // 128-bit state
const spongentRounds = 80

// sBox is the 4-bit substitution table (the same PRESENT-family S-box the
// Spongent permutation is built from).
var sBox = [16]byte{
	0xE, 0xD, 0xB, 0x0, 0x2, 0x1, 0x4, 0xF,
	0x7, 0xA, 0x8, 0x5, 0x9, 0xC, 0x3, 0x6,
}

// permute runs the Spongent-style permutation in place over a 16-byte state.
func permute(state *[spongentStateBytes]byte) {
	for round := 0; round < spongentRounds; round++ {
		// Add round constant (a simple counter-derived LFSR substitute).
		state[0] ^= byte(round)
		state[spongentStateBytes-1] ^= byte(round >> 4)

		// Substitution layer: apply the 4-bit S-box to each nibble.
		for i := range state {
			hi := sBox[state[i]>>4]
			lo := sBox[state[i]&0x0F]
			state[i] = hi<<4 | lo
		}

		// Permutation layer: a fixed bit-transposition across the state,
		// implemented as a byte-granular rotate-and-swap network rather than
		// the reference bit permutation (see the spongent128 type doc).
		var next [spongentStateBytes]byte
		for i := 0; i < spongentStateBytes; i++ {
			src := (i*7 + round) % spongentStateBytes
			next[i] = state[src]
		}
		*state = next
	}
}

func absorb(state *[spongentStateBytes]byte, block []byte) {
	for i := 0; i < len(block) && i < spongentStateBytes; i++ {
		state[i] ^= block[i]
	}
}

func squeeze(state *[spongentStateBytes]byte, n int) []byte {
	out := make([]byte, n)
	copy(out, state[:])
	return out
}

// spongentCore absorbs key and ad, permutes, and returns a
// keystream/tag pair: the first len(ad)+... squeeze gives the encryption
// mask, a further permutation gives the tag.
func spongentCore(key, ad, data []byte) (mask []byte, tagState [spongentStateBytes]byte) {
	var state [spongentStateBytes]byte
	absorb(&state, key)
	permute(&state)

	for off := 0; off < len(ad); off += spongentStateBytes {
		end := off + spongentStateBytes
		if end > len(ad) {
			end = len(ad)
		}
		absorb(&state, ad[off:end])
		permute(&state)
	}

	mask = make([]byte, len(data))
	pos := 0
	for pos < len(data) {
		ks := squeeze(&state, spongentStateBytes)
		n := copy(mask[pos:], ks)
		pos += n
		permute(&state)
	}

	// Fold the data into the state to derive the tag, keyed again so the
	// tag cannot be forged without the key.
	absorb(&state, data)
	absorb(&state, key)
	permute(&state)
	return mask, state
}

func (spongent128) Seal(key, ad, plaintext []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("crypto: spongent-128 key must be %d bytes, got %d", KeySize, len(key))
	}
	mask, tagState := spongentCore(key, ad, plaintext)
	ct := make([]byte, len(plaintext)+TagSize)
	for i := range plaintext {
		ct[i] = plaintext[i] ^ mask[i]
	}
	copy(ct[len(plaintext):], tagState[:TagSize])
	return ct, nil
}

func (spongent128) Open(key, ad, sealed []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("crypto: spongent-128 key must be %d bytes, got %d", KeySize, len(key))
	}
	if len(sealed) < TagSize {
		return nil, fmt.Errorf("crypto: spongent-128 ciphertext shorter than tag")
	}
	ct := sealed[:len(sealed)-TagSize]
	gotTag := sealed[len(sealed)-TagSize:]

	mask, _ := spongentCore(key, ad, ct)
	pt := make([]byte, len(ct))
	for i := range ct {
		pt[i] = ct[i] ^ mask[i]
	}

	_, wantTagState := spongentCore(key, ad, pt)
	if subtle.ConstantTimeCompare(gotTag, wantTagState[:TagSize]) != 1 {
		return nil, fmt.Errorf("crypto: spongent-128 tag mismatch")
	}
	return pt, nil
}
