// Package ecash contains the core types of the blinded ecash protocol:
// blinded messages sent to a mint for signing, the blind signatures it
// returns, and the unblinded proofs that are redeemable for value.
package ecash

import (
	"encoding/hex"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

type Unit int

const (
	Sat Unit = iota
)

func (unit Unit) String() string {
	switch unit {
	case Sat:
		return "sat"
	default:
		return "unknown"
	}
}

var ErrInvalidUnit = errors.New("invalid unit")

// BlindedMessage is an output sent to the mint for signing. B_ is the
// blinded point in compressed hex form.
type BlindedMessage struct {
	Amount  uint64 `json:"amount"`
	B_      string `json:"B_"`
	Id      string `json:"id"`
	Witness string `json:"witness,omitempty"`
}

func NewBlindedMessage(id string, amount uint64, B_ *secp256k1.PublicKey) BlindedMessage {
	B_str := hex.EncodeToString(B_.SerializeCompressed())
	return BlindedMessage{Amount: amount, B_: B_str, Id: id}
}

type BlindedMessages []BlindedMessage

func (bm BlindedMessages) Amount() uint64 {
	var totalAmount uint64 = 0
	for _, msg := range bm {
		totalAmount += msg.Amount
	}
	return totalAmount
}

// BlindSignature is the mint's signature C_ = kB_ over a blinded message.
type BlindSignature struct {
	Amount uint64 `json:"amount"`
	C_     string `json:"C_"`
	Id     string `json:"id"`
	// pointer so that omitempty works. an empty struct
	// would still get marshalled
	DLEQ *DLEQProof `json:"dleq,omitempty"`
}

type BlindSignatures []BlindSignature

func (bs BlindSignatures) Amount() uint64 {
	var totalAmount uint64 = 0
	for _, sig := range bs {
		totalAmount += sig.Amount
	}
	return totalAmount
}

// Proof is a spendable token unit: the secret together with the
// unblinded mint signature C over it. Witness, when present, carries
// the signatures satisfying the secret's spend condition.
type Proof struct {
	Amount  uint64     `json:"amount"`
	Id      string     `json:"id"`
	Secret  string     `json:"secret"`
	C       string     `json:"C"`
	Witness string     `json:"witness,omitempty"`
	DLEQ    *DLEQProof `json:"dleq,omitempty"`
}

type Proofs []Proof

// Amount returns the total amount from the array of Proof
func (proofs Proofs) Amount() uint64 {
	var totalAmount uint64 = 0
	for _, proof := range proofs {
		totalAmount += proof.Amount
	}
	return totalAmount
}

// DLEQProof proves the mint signed with the private key matching the
// public key it advertises for the amount. R is the blinding factor,
// included client-side so receivers can verify unblinded proofs.
type DLEQProof struct {
	E string `json:"e"`
	S string `json:"s"`
	R string `json:"r,omitempty"`
}

type ErrCode int

// Error represents an error returned by the mint
type Error struct {
	Detail string  `json:"detail"`
	Code   ErrCode `json:"code"`
}

func BuildError(detail string, code ErrCode) *Error {
	return &Error{Detail: detail, Code: code}
}

func (e Error) Error() string {
	return e.Detail
}

// Common error codes
const (
	StandardErrCode ErrCode = 10000

	InvalidProofErrCode            ErrCode = 10003
	ProofAlreadyUsedErrCode        ErrCode = 11001
	InsufficientProofAmountErrCode ErrCode = 11002
	UnitErrCode                    ErrCode = 11005

	UnknownKeysetErrCode  ErrCode = 12001
	InactiveKeysetErrCode ErrCode = 12002

	MintQuoteRequestNotPaidErrCode ErrCode = 20001
	MintQuoteAlreadyIssuedErrCode  ErrCode = 20002
)

// AmountSplit returns the power-of-two split of an amount,
// e.g. 13 -> [1, 4, 8], used to build blinded messages.
func AmountSplit(amount uint64) []uint64 {
	rv := make([]uint64, 0)
	for pos := 0; amount > 0; pos++ {
		if amount&1 == 1 {
			rv = append(rv, 1<<pos)
		}
		amount >>= 1
	}
	return rv
}

func CheckDuplicateProofs(proofs Proofs) bool {
	proofsMap := make(map[Proof]bool)

	for _, proof := range proofs {
		if proofsMap[proof] {
			return true
		} else {
			proofsMap[proof] = true
		}
	}

	return false
}
