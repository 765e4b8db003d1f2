package canonicalize

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// LedgerReceiptDomain is the literal domain-separation prefix required by
// spec §6 for every ledger receipt hash.
const LedgerReceiptDomain = "worldline-ledger-receipt-v1:"

// EnvelopeIntegrityDomain separates envelope integrity hashes from receipt
// hashes so the same bytes never hash identically across the two uses.
const EnvelopeIntegrityDomain = "worldline-envelope-integrity-v1:"

// BLAKE3Hash returns the 32-byte BLAKE3 digest of data, hex-encoded.
func BLAKE3Hash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DomainHash computes JCS(v), prepends domain, and returns the hex BLAKE3
// digest. This is the shape both envelope integrity (Invariant E1) and
// ledger receipt hashing (Invariant L3) use, differing only in domain and
// input shape.
func DomainHash(domain string, v interface{}) (string, error) {
	body, err := JCS(v)
	if err != nil {
		return "", err
	}
	buf := make([]byte, 0, len(domain)+len(body))
	buf = append(buf, domain...)
	buf = append(buf, body...)
	return BLAKE3Hash(buf), nil
}
