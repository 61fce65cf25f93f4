package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Keyset is the client-side view of a mint keyset: the public key
// the mint signs with for each power-of-two amount.
type Keyset struct {
	Id          string
	MintURL     string
	Unit        string
	Active      bool
	InputFeePpk uint
	PublicKeys  map[uint64]*secp256k1.PublicKey
}

// DeriveKeysetId computes the keyset id from its public keys:
// sha256 over the compressed keys concatenated in ascending amount
// order, prefixed with the version byte "00" and truncated to 14 hex chars.
func DeriveKeysetId(keys map[uint64]*secp256k1.PublicKey) string {
	amounts := make([]uint64, 0, len(keys))
	for amount := range keys {
		amounts = append(amounts, amount)
	}
	slices.Sort(amounts)

	pubkeys := make([]byte, 0, len(keys)*33)
	for _, amount := range amounts {
		pubkeys = append(pubkeys, keys[amount].SerializeCompressed()...)
	}
	hash := sha256.Sum256(pubkeys)

	return "00" + hex.EncodeToString(hash[:])[:14]
}

// ParseKeys converts the amount -> hex public key map advertised by
// a mint into parsed points, rejecting any malformed or off-curve key.
func ParseKeys(keys map[uint64]string) (map[uint64]*secp256k1.PublicKey, error) {
	parsed := make(map[uint64]*secp256k1.PublicKey, len(keys))
	for amount, keyHex := range keys {
		keyBytes, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("invalid public key for amount %v: %v", amount, err)
		}
		pubkey, err := ParsePoint(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("invalid public key for amount %v: %w", amount, err)
		}
		parsed[amount] = pubkey
	}
	return parsed, nil
}
