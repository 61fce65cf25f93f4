// Package crypto implements the blind Diffie-Hellman key exchange
// used to blind, sign and unblind ecash.
package crypto

import (
	"crypto/sha256"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Bound on the hash-and-decode loop in HashToCurve. Roughly half of all
// x-coordinates decode to a curve point, so reaching this is a 2^-64 event.
const maxHashToCurveIterations = 64

var (
	ErrInvalidScalar   = errors.New("invalid scalar")
	ErrInvalidPoint    = errors.New("invalid point")
	ErrPointDerivation = errors.New("could not map message to a curve point")
	ErrUnblinding      = errors.New("could not unblind signature")
)

// HashToCurve deterministically maps a message to a point on the curve.
// The sha256 of the message is interpreted as the x-coordinate of a
// compressed point with even parity. If that does not decode to a valid
// point, the digest itself is hashed again and the decode retried.
func HashToCurve(message []byte) (*secp256k1.PublicKey, error) {
	for i := 0; i < maxHashToCurveIterations; i++ {
		hash := sha256.Sum256(message)
		pkhash := append([]byte{0x02}, hash[:]...)
		point, err := secp256k1.ParsePubKey(pkhash)
		if err == nil && point.IsOnCurve() {
			return point, nil
		}
		message = hash[:]
	}
	return nil, ErrPointDerivation
}

// RandomScalar returns a cryptographically secure scalar
// uniform in [1, N-1].
func RandomScalar() (*secp256k1.PrivateKey, error) {
	return secp256k1.GeneratePrivateKey()
}

// ParseScalar reads a 32-byte big-endian scalar, rejecting zero
// and values >= the group order.
func ParseScalar(b []byte) (*secp256k1.ModNScalar, error) {
	if len(b) != 32 {
		return nil, ErrInvalidScalar
	}
	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(b); overflow || s.IsZero() {
		return nil, ErrInvalidScalar
	}
	return &s, nil
}

// ParsePoint reads a point in compressed affine form and
// validates it is on the curve.
func ParsePoint(b []byte) (*secp256k1.PublicKey, error) {
	point, err := secp256k1.ParsePubKey(b)
	if err != nil || !point.IsOnCurve() {
		return nil, ErrInvalidPoint
	}
	return point, nil
}

func PointAdd(p1, p2 *secp256k1.PublicKey) *secp256k1.PublicKey {
	var point1, point2, sum secp256k1.JacobianPoint
	p1.AsJacobian(&point1)
	p2.AsJacobian(&point2)

	secp256k1.AddNonConst(&point1, &point2, &sum)
	sum.ToAffine()
	return secp256k1.NewPublicKey(&sum.X, &sum.Y)
}

func ScalarMult(p *secp256k1.PublicKey, k *secp256k1.ModNScalar) *secp256k1.PublicKey {
	var point, result secp256k1.JacobianPoint
	p.AsJacobian(&point)

	secp256k1.ScalarMultNonConst(k, &point, &result)
	result.ToAffine()
	return secp256k1.NewPublicKey(&result.X, &result.Y)
}

func PointNegate(p *secp256k1.PublicKey) *secp256k1.PublicKey {
	var point secp256k1.JacobianPoint
	p.AsJacobian(&point)

	point.Y.Negate(1)
	point.Y.Normalize()
	return secp256k1.NewPublicKey(&point.X, &point.Y)
}

// B_ = Y + rG
func BlindMessage(secret []byte, r *secp256k1.PrivateKey) (*secp256k1.PublicKey, error) {
	Y, err := HashToCurve(secret)
	if err != nil {
		return nil, err
	}
	return PointAdd(Y, r.PubKey()), nil
}

// C_ = kB_
func SignBlindedMessage(B_ *secp256k1.PublicKey, k *secp256k1.PrivateKey) *secp256k1.PublicKey {
	return ScalarMult(B_, &k.Key)
}

// C = C_ - rK
func UnblindSignature(C_ *secp256k1.PublicKey, r *secp256k1.PrivateKey,
	K *secp256k1.PublicKey) (*secp256k1.PublicKey, error) {

	if C_ == nil || K == nil || !C_.IsOnCurve() || !K.IsOnCurve() {
		return nil, ErrUnblinding
	}

	var rNeg secp256k1.ModNScalar
	rNeg.NegateVal(&r.Key)

	rK := ScalarMult(K, &rNeg)
	C := PointAdd(C_, rK)
	// C_ == rK sums to the point at infinity, which is not a valid
	// signature point
	if !C.IsOnCurve() {
		return nil, ErrUnblinding
	}
	return C, nil
}

// k * HashToCurve(secret) == C
func Verify(secret []byte, k *secp256k1.PrivateKey, C *secp256k1.PublicKey) bool {
	Y, err := HashToCurve(secret)
	if err != nil {
		return false
	}
	return ScalarMult(Y, &k.Key).IsEqual(C)
}
