package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/cypherline/gocash/ecash"
)

// HashE hashes the concatenated uncompressed hex encodings of the
// given points. Used as the challenge in DLEQ proofs.
func HashE(pubkeys []*secp256k1.PublicKey) [32]byte {
	hashStr := ""
	for _, pubkey := range pubkeys {
		hashStr += hex.EncodeToString(pubkey.SerializeUncompressed())
	}
	return sha256.Sum256([]byte(hashStr))
}

// GenerateDLEQ produces a proof that the same scalar k was used for
// the public key A = kG and the blind signature C_ = kB_:
//
//	r = random nonce
//	R1 = rG, R2 = rB_
//	e = hash(R1, R2, A, C_)
//	s = r + ek
func GenerateDLEQ(k *secp256k1.PrivateKey, B_ *secp256k1.PublicKey) (
	e *secp256k1.PrivateKey, s *secp256k1.PrivateKey, err error) {

	r, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, nil, err
	}

	R1 := r.PubKey()
	R2 := ScalarMult(B_, &r.Key)
	A := k.PubKey()
	C_ := ScalarMult(B_, &k.Key)

	eHash := HashE([]*secp256k1.PublicKey{R1, R2, A, C_})
	e = secp256k1.PrivKeyFromBytes(eHash[:])

	// s = r + ek
	var sScalar secp256k1.ModNScalar
	sScalar.Mul2(&e.Key, &k.Key).Add(&r.Key)
	s = secp256k1.NewPrivateKey(&sScalar)

	return e, s, nil
}

// VerifyDLEQ checks e == hash(R1, R2, A, C_) for
// R1 = sG - eA and R2 = sB_ - eC_.
func VerifyDLEQ(e, s *secp256k1.PrivateKey, A, B_, C_ *secp256k1.PublicKey) bool {
	var eNeg secp256k1.ModNScalar
	eNeg.NegateVal(&e.Key)

	R1 := PointAdd(s.PubKey(), ScalarMult(A, &eNeg))
	R2 := PointAdd(ScalarMult(B_, &s.Key), ScalarMult(C_, &eNeg))

	hash := HashE([]*secp256k1.PublicKey{R1, R2, A, C_})
	return bytes.Equal(hash[:], e.Serialize())
}

// VerifyProofDLEQ verifies the DLEQ proof carried by an unblinded proof
// against the mint public key A for the proof's amount. The blinding
// factor r included in the proof's DLEQ lets anyone re-blind and check
// the original signing relation.
func VerifyProofDLEQ(proof ecash.Proof, A *secp256k1.PublicKey) bool {
	if proof.DLEQ == nil {
		return false
	}
	e, s, r, err := ParseDLEQ(*proof.DLEQ)
	if err != nil || r == nil {
		return false
	}

	B_, err := BlindMessage([]byte(proof.Secret), r)
	if err != nil {
		return false
	}

	CBytes, err := hex.DecodeString(proof.C)
	if err != nil {
		return false
	}
	C, err := ParsePoint(CBytes)
	if err != nil {
		return false
	}

	// C_ = C + rA
	C_ := PointAdd(C, ScalarMult(A, &r.Key))

	return VerifyDLEQ(e, s, A, B_, C_)
}

// VerifyBlindSignatureDLEQ verifies the DLEQ proof on a blind signature
// before unblinding, when the blinded point B_ is still known.
func VerifyBlindSignatureDLEQ(dleq ecash.DLEQProof, A *secp256k1.PublicKey,
	B_str, C_str string) bool {

	e, s, _, err := ParseDLEQ(dleq)
	if err != nil {
		return false
	}

	B_bytes, err := hex.DecodeString(B_str)
	if err != nil {
		return false
	}
	B_, err := ParsePoint(B_bytes)
	if err != nil {
		return false
	}

	C_bytes, err := hex.DecodeString(C_str)
	if err != nil {
		return false
	}
	C_, err := ParsePoint(C_bytes)
	if err != nil {
		return false
	}

	return VerifyDLEQ(e, s, A, B_, C_)
}

func ParseDLEQ(dleq ecash.DLEQProof) (
	*secp256k1.PrivateKey,
	*secp256k1.PrivateKey,
	*secp256k1.PrivateKey,
	error,
) {
	ebytes, err := hex.DecodeString(dleq.E)
	if err != nil {
		return nil, nil, nil, err
	}
	e := secp256k1.PrivKeyFromBytes(ebytes)

	sbytes, err := hex.DecodeString(dleq.S)
	if err != nil {
		return nil, nil, nil, err
	}
	s := secp256k1.PrivKeyFromBytes(sbytes)

	if dleq.R == "" {
		return e, s, nil, nil
	}

	rbytes, err := hex.DecodeString(dleq.R)
	if err != nil {
		return nil, nil, nil, err
	}
	r := secp256k1.PrivKeyFromBytes(rbytes)

	return e, s, r, nil
}
