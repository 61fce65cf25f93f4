package ecash

import (
	"encoding/hex"
	"reflect"
	"testing"
)

func TestAmountSplit(t *testing.T) {
	tests := []struct {
		amount   uint64
		expected []uint64
	}{
		{amount: 13, expected: []uint64{1, 4, 8}},
		{amount: 64, expected: []uint64{64}},
		{amount: 255, expected: []uint64{1, 2, 4, 8, 16, 32, 64, 128}},
		{amount: 0, expected: []uint64{}},
	}

	for _, test := range tests {
		result := AmountSplit(test.amount)
		if !reflect.DeepEqual(result, test.expected) {
			t.Errorf("expected '%v' but got '%v' instead", test.expected, result)
		}

		var sum uint64
		for _, amount := range result {
			sum += amount
		}
		if sum != test.amount {
			t.Errorf("split of %v sums to %v", test.amount, sum)
		}
	}
}

func TestCheckDuplicateProofs(t *testing.T) {
	proofs := Proofs{
		{Amount: 1, Id: "id", Secret: "secret1", C: "c1"},
		{Amount: 2, Id: "id", Secret: "secret2", C: "c2"},
	}
	if CheckDuplicateProofs(proofs) {
		t.Error("reported duplicates for distinct proofs")
	}

	proofs = append(proofs, proofs[0])
	if !CheckDuplicateProofs(proofs) {
		t.Error("did not detect duplicate proof")
	}
}

func TestDecodeToken(t *testing.T) {
	keysetIdBytes, _ := hex.DecodeString("00ad268c4d1f5826")
	Cbytes, _ := hex.DecodeString("038618543ffb6b8695df4ad4babcde92a34a96bdcd97dcee0d7ccf98d472126792")

	tokenString := "cashuBpGF0gaJhaUgArSaMTR9YJmFwgaNhYQFhc3hAOWE2ZGJiODQ3YmQyMzJiYTc2ZGIwZGYxOTcyMTZiMjlkM2I4Y2MxNDU1M2NkMjc4MjdmYzFjYzk0MmZlZGI0ZWFjWCEDhhhUP_trhpXfStS6vN6So0qWvc2X3O4NfM-Y1HISZ5JhZGlUaGFuayB5b3VhbXVodHRwOi8vbG9jYWxob3N0OjMzMzhhdWNzYXQ="
	expected := Token{
		MintURL: "http://localhost:3338",
		TokenProofs: []TokenProofs{
			{
				Id: keysetIdBytes,
				Proofs: []TokenProof{
					{
						Amount: 1,
						Secret: "9a6dbb847bd232ba76db0df197216b29d3b8cc14553cd27827fc1cc942fedb4e",
						C:      Cbytes,
					},
				},
			},
		},
		Unit: "sat",
		Memo: "Thank you",
	}

	token, err := DecodeToken(tokenString)
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if !reflect.DeepEqual(*token, expected) {
		t.Fatalf("expected token:\n%+v\n\n but got:\n%+v", expected, *token)
	}

	if _, err := DecodeToken("cashuAabc"); err == nil {
		t.Error("expected error for token with unknown version prefix")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	proofs := Proofs{
		{Amount: 2, Id: "00ad268c4d1f5826", Secret: "secret_one", C: "038618543ffb6b8695df4ad4babcde92a34a96bdcd97dcee0d7ccf98d472126792"},
		{Amount: 8, Id: "00ad268c4d1f5826", Secret: "secret_two", C: "0244538319de485d55bed3b29a642bee5879375ab9e7a620e11e48ba482421f3cf"},
	}

	token, err := NewToken(proofs, "http://localhost:3338", Sat)
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if token.Amount() != 10 {
		t.Errorf("expected amount 10 but got %v", token.Amount())
	}

	serialized, err := token.Serialize()
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if serialized[:6] != "cashuB" {
		t.Errorf("expected 'cashuB' prefix but got '%v'", serialized[:6])
	}

	decoded, err := DecodeToken(serialized)
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if !reflect.DeepEqual(decoded.Proofs(), proofs) {
		t.Fatalf("expected proofs:\n%+v\n\n but got:\n%+v", proofs, decoded.Proofs())
	}
}
