package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

func testKeys(seed string, max int) map[uint64]*secp256k1.PublicKey {
	keys := make(map[uint64]*secp256k1.PublicKey)
	for i := 0; i < max; i++ {
		amount := uint64(1) << i
		hash := sha256.Sum256([]byte(seed + strconv.FormatUint(amount, 10)))
		keys[amount] = secp256k1.PrivKeyFromBytes(hash[:]).PubKey()
	}
	return keys
}

func TestDeriveKeysetId(t *testing.T) {
	keys := testKeys("keyset_test_seed", 16)

	id := DeriveKeysetId(keys)
	if len(id) != 16 {
		t.Fatalf("expected keyset id of length 16 but got %v", len(id))
	}
	if id[:2] != "00" {
		t.Errorf("expected version prefix '00' but got '%v'", id[:2])
	}

	// deriving again from the same keys must give the same id
	if id2 := DeriveKeysetId(keys); id2 != id {
		t.Errorf("expected '%v' but got '%v' instead", id, id2)
	}

	otherKeys := testKeys("another_seed", 16)
	if otherId := DeriveKeysetId(otherKeys); otherId == id {
		t.Error("different keys derived the same keyset id")
	}
}

func TestParseKeys(t *testing.T) {
	keys := testKeys("parse_keys_seed", 4)
	keysHex := make(map[uint64]string, len(keys))
	for amount, key := range keys {
		keysHex[amount] = hex.EncodeToString(key.SerializeCompressed())
	}

	parsed, err := ParseKeys(keysHex)
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	for amount, key := range keys {
		if !parsed[amount].IsEqual(key) {
			t.Errorf("parsed key for amount %v does not match", amount)
		}
	}

	keysHex[16] = "not_hex"
	if _, err := ParseKeys(keysHex); err == nil {
		t.Error("expected error for invalid key hex")
	}
}
