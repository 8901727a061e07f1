package session

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"price-scout/storefront"
)

const fingerprintDomain = "price-scout/cart/v1"

// CartState lists id:qty pairs in render order, joined by commas.
func CartState(entries []storefront.Entry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.ID + ":" + strconv.Itoa(e.Quantity)
	}
	return strings.Join(parts, ",")
}

// Fingerprint is a SHA-256 digest of CartState, domain separated:
// SHA256(domain + 0x00 + state).
func Fingerprint(entries []storefront.Entry) string {
	h := sha256.New()
	h.Write([]byte(fingerprintDomain))
	h.Write([]byte{0x00})
	h.Write([]byte(CartState(entries)))
	return hex.EncodeToString(h.Sum(nil))
}
