package crypto

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

func TestHashToCurve(t *testing.T) {
	tests := []struct {
		message  string
		expected string
	}{
		{message: "0000000000000000000000000000000000000000000000000000000000000000",
			expected: "0266687aadf862bd776c8fc18b8e9f8e20089714856ee233b3902a591d0d5f2925"},
		{message: "0000000000000000000000000000000000000000000000000000000000000001",
			expected: "02ec4916dd28fc4c10d78e287ca5d9cc51ee1ae73cbfde08c6b37324cbfaac8bc5"},
		{message: "0000000000000000000000000000000000000000000000000000000000000002",
			expected: "02076c988b353fcbb748178ecb286bc9d0b4acf474d4ba31ba62334e46c97c416a"},
	}

	for _, test := range tests {
		msgBytes, err := hex.DecodeString(test.message)
		if err != nil {
			t.Errorf("error decoding msg: %v", err)
		}

		pk, err := HashToCurve(msgBytes)
		if err != nil {
			t.Fatalf("got unexpected error: %v", err)
		}
		hexStr := hex.EncodeToString(pk.SerializeCompressed())
		if hexStr != test.expected {
			t.Errorf("expected '%v' but got '%v' instead\n", test.expected, hexStr)
		}

		if !pk.IsOnCurve() {
			t.Errorf("point derived from message '%v' is not on curve", test.message)
		}
	}
}

func TestParseScalar(t *testing.T) {
	// group order N, and zero, are not valid scalars
	orderBytes, _ := hex.DecodeString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141")
	if _, err := ParseScalar(orderBytes); !errors.Is(err, ErrInvalidScalar) {
		t.Errorf("expected ErrInvalidScalar for group order but got '%v'", err)
	}

	zeroBytes := make([]byte, 32)
	if _, err := ParseScalar(zeroBytes); !errors.Is(err, ErrInvalidScalar) {
		t.Errorf("expected ErrInvalidScalar for zero but got '%v'", err)
	}

	oneBytes, _ := hex.DecodeString("0000000000000000000000000000000000000000000000000000000000000001")
	if _, err := ParseScalar(oneBytes); err != nil {
		t.Errorf("got unexpected error for valid scalar: %v", err)
	}
}

func TestParsePoint(t *testing.T) {
	// invalid format byte
	invalid, _ := hex.DecodeString("050000000000000000000000000000000000000000000000000000000000000007")
	if _, err := ParsePoint(invalid); !errors.Is(err, ErrInvalidPoint) {
		t.Errorf("expected ErrInvalidPoint but got '%v'", err)
	}

	valid, _ := hex.DecodeString("0266687aadf862bd776c8fc18b8e9f8e20089714856ee233b3902a591d0d5f2925")
	if _, err := ParsePoint(valid); err != nil {
		t.Errorf("got unexpected error for valid point: %v", err)
	}
}

func TestBlindMessage(t *testing.T) {
	tests := []struct {
		secret         []byte
		blindingFactor string
		expected       string
	}{
		{secret: []byte("test_message"),
			blindingFactor: "0000000000000000000000000000000000000000000000000000000000000001",
			expected:       "02a9acc1e48c25eeeb9289b5031cc57da9fe72f3fe2861d264bdc074209b107ba2",
		},
		{secret: []byte("hello"),
			blindingFactor: "6d7e0abffc83267de28ed8ecc8760f17697e51252e13333ba69b4ddad1f95d05",
			expected:       "0249eb5dbb4fac2750991cf18083388c6ef76cde9537a6ac6f3e6679d35cdf4b0c",
		},
	}

	for _, test := range tests {
		rbytes, err := hex.DecodeString(test.blindingFactor)
		if err != nil {
			t.Errorf("error decoding blinding factor: %v", err)
		}
		r := secp256k1.PrivKeyFromBytes(rbytes)

		B_, err := BlindMessage(test.secret, r)
		if err != nil {
			t.Fatalf("got unexpected error: %v", err)
		}
		B_Hex := hex.EncodeToString(B_.SerializeCompressed())
		if B_Hex != test.expected {
			t.Errorf("expected '%v' but got '%v' instead\n", test.expected, B_Hex)
		}
	}
}

func TestSignBlindedMessage(t *testing.T) {
	tests := []struct {
		secret         []byte
		blindingFactor string
		mintPrivKey    string
		expected       string
	}{
		{secret: []byte("test_message"),
			blindingFactor: "0000000000000000000000000000000000000000000000000000000000000001",
			mintPrivKey:    "0000000000000000000000000000000000000000000000000000000000000001",
			expected:       "02a9acc1e48c25eeeb9289b5031cc57da9fe72f3fe2861d264bdc074209b107ba2",
		},
		{secret: []byte("test_message"),
			blindingFactor: "0000000000000000000000000000000000000000000000000000000000000001",
			mintPrivKey:    "7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f",
			expected:       "0398bc70ce8184d27ba89834d19f5199c84443c31131e48d3c1214db24247d005d",
		},
	}

	for _, test := range tests {
		rbytes, err := hex.DecodeString(test.blindingFactor)
		if err != nil {
			t.Errorf("error decoding blinding factor: %v", err)
		}
		r := secp256k1.PrivKeyFromBytes(rbytes)

		B_, err := BlindMessage(test.secret, r)
		if err != nil {
			t.Fatalf("got unexpected error: %v", err)
		}

		mintKeyBytes, err := hex.DecodeString(test.mintPrivKey)
		if err != nil {
			t.Errorf("error decoding mint private key: %v", err)
		}

		k, _ := btcec.PrivKeyFromBytes(mintKeyBytes)

		blindedSignature := SignBlindedMessage(B_, k)
		blindedHex := hex.EncodeToString(blindedSignature.SerializeCompressed())
		if blindedHex != test.expected {
			t.Errorf("expected '%v' but got '%v' instead\n", test.expected, blindedHex)
		}
	}
}

func TestUnblindSignature(t *testing.T) {
	dst, _ := hex.DecodeString("02a9acc1e48c25eeeb9289b5031cc57da9fe72f3fe2861d264bdc074209b107ba2")
	C_, err := secp256k1.ParsePubKey(dst)
	if err != nil {
		t.Error(err)
	}

	kdst, _ := hex.DecodeString("020000000000000000000000000000000000000000000000000000000000000001")
	K, err := secp256k1.ParsePubKey(kdst)
	if err != nil {
		t.Error(err)
	}

	rhex, _ := hex.DecodeString("0000000000000000000000000000000000000000000000000000000000000001")
	r := secp256k1.PrivKeyFromBytes(rhex)

	C, err := UnblindSignature(C_, r, K)
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	CHex := hex.EncodeToString(C.SerializeCompressed())
	expected := "03c724d7e6a5443b39ac8acf11f40420adc4f99a02e7cc1b57703d9391f6d129cd"
	if CHex != expected {
		t.Errorf("expected '%v' but got '%v' instead\n", expected, CHex)
	}

	if _, err := UnblindSignature(nil, r, K); !errors.Is(err, ErrUnblinding) {
		t.Errorf("expected ErrUnblinding but got '%v'", err)
	}

	// C_ == rK unblinds to the point at infinity
	r2, _ := hex.DecodeString("6d7e0abffc83267de28ed8ecc8760f17697e51252e13333ba69b4ddad1f95d05")
	rPriv := secp256k1.PrivKeyFromBytes(r2)
	rK := ScalarMult(K, &rPriv.Key)
	if _, err := UnblindSignature(rK, rPriv, K); !errors.Is(err, ErrUnblinding) {
		t.Errorf("expected ErrUnblinding for identity result but got '%v'", err)
	}
}

func TestVerify(t *testing.T) {
	secret := []byte("test_message")
	rhex, _ := hex.DecodeString("0000000000000000000000000000000000000000000000000000000000000002")
	r := secp256k1.PrivKeyFromBytes(rhex)

	B_, err := BlindMessage(secret, r)
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}

	khex, _ := hex.DecodeString("0000000000000000000000000000000000000000000000000000000000000001")
	k, _ := btcec.PrivKeyFromBytes(khex)
	K := k.PubKey()

	C_ := SignBlindedMessage(B_, k)
	C, err := UnblindSignature(C_, r, K)
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}

	if !Verify(secret, k, C) {
		t.Error("failed verification")
	}

	if Verify([]byte("another_message"), k, C) {
		t.Error("verification passed for wrong secret")
	}
}

func TestPointNegate(t *testing.T) {
	point, err := HashToCurve([]byte("negate"))
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}

	negated := PointNegate(point)
	sum := PointAdd(point, negated)

	// P + (-P) is the point at infinity, which has no valid
	// compressed encoding
	if sum.IsOnCurve() {
		t.Error("expected point plus its negation to be the identity")
	}
}
