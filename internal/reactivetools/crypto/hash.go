package crypto

import "crypto/sha256"

// TrustZoneModuleKey derives a module's TrustZone session key as
// SHA-256(node_key ‖ module_hash)[:16].
func TrustZoneModuleKey(nodeKey, moduleHash []byte) []byte {
	h := sha256.New()
	h.Write(nodeKey)
	h.Write(moduleHash)
	sum := h.Sum(nil)
	return sum[:KeySize]
}
