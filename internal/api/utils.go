package api

import (
	"crypto/rand"
	"encoding/hex"
)

// generateWalletAddress produces a demo wallet address for agents that
// register without one. The 20-byte hex shape matches what the chain
// side expects; no key material is kept server-side.
func generateWalletAddress() string {
	b := make([]byte, 20)
	rand.Read(b)
	return "0x" + hex.EncodeToString(b)
}
