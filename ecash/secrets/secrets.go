// Package secrets implements the well-known secret format for
// spend-condition locked ecash: a proof secret of the form
// ["KIND", {"nonce": ..., "data": ..., "tags": [...]}].
// The serialized byte form is the hash preimage for witness
// signatures, so serialization must be canonical.
package secrets

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

type Kind int

const (
	AnyoneCanSpend Kind = iota
	P2PK
	HTLC
)

func (kind Kind) String() string {
	switch kind {
	case P2PK:
		return "P2PK"
	case HTLC:
		return "HTLC"
	default:
		return "anyonecanspend"
	}
}

var (
	ErrMalformedSecret = errors.New("malformed spending condition secret")
	ErrUnsupportedKind = errors.New("unsupported spending condition kind")
)

// WellKnownSecret is the locking data of a spend-condition secret.
// Tags are ordered [name, value...] lists; a tag absent from the
// condition is omitted entirely so that equal conditions serialize
// to identical bytes.
type WellKnownSecret struct {
	Nonce string     `json:"nonce"`
	Data  string     `json:"data"`
	Tags  [][]string `json:"tags,omitempty"`
}

// Condition describes a spend condition from which a fresh
// secret can be generated.
type Condition struct {
	Kind Kind
	Data string
	Tags [][]string
}

// Serialize returns the canonical json string to be put in the
// secret field of a proof.
func Serialize(kind Kind, secret WellKnownSecret) (string, error) {
	jsonSecret, err := json.Marshal(secret)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("[\"%s\", %v]", kind, string(jsonSecret)), nil
}

// Deserialize parses a proof secret into its kind and locking data.
// It returns ErrMalformedSecret if the secret does not have the
// two-element well-known shape or lacks a locking key, and
// ErrUnsupportedKind if the kind is not recognized.
func Deserialize(secret string) (Kind, WellKnownSecret, error) {
	var rawJsonSecret []json.RawMessage
	if err := json.Unmarshal([]byte(secret), &rawJsonSecret); err != nil {
		return AnyoneCanSpend, WellKnownSecret{}, fmt.Errorf("%w: %v", ErrMalformedSecret, err)
	}

	if len(rawJsonSecret) != 2 {
		return AnyoneCanSpend, WellKnownSecret{}, fmt.Errorf("%w: length != 2", ErrMalformedSecret)
	}

	var kindStr string
	if err := json.Unmarshal(rawJsonSecret[0], &kindStr); err != nil {
		return AnyoneCanSpend, WellKnownSecret{}, fmt.Errorf("%w: invalid kind", ErrMalformedSecret)
	}

	var kind Kind
	switch kindStr {
	case "P2PK":
		kind = P2PK
	case "HTLC":
		kind = HTLC
	default:
		return AnyoneCanSpend, WellKnownSecret{}, fmt.Errorf("%w: %v", ErrUnsupportedKind, kindStr)
	}

	var secretData WellKnownSecret
	if err := json.Unmarshal(rawJsonSecret[1], &secretData); err != nil {
		return AnyoneCanSpend, WellKnownSecret{}, fmt.Errorf("%w: %v", ErrMalformedSecret, err)
	}
	if secretData.Data == "" {
		return AnyoneCanSpend, WellKnownSecret{}, fmt.Errorf("%w: missing locking data", ErrMalformedSecret)
	}

	return kind, secretData, nil
}

// KindOf detects the spend condition of a proof secret. Anything that
// is not a recognized well-known secret, including random 32-byte
// secrets and unknown kinds, detects as AnyoneCanSpend.
func KindOf(secret string) Kind {
	kind, _, err := Deserialize(secret)
	if err != nil {
		return AnyoneCanSpend
	}
	return kind
}

// New generates a fresh secret for the given condition. The nonce is
// drawn per call and must never be reused across secrets sharing the
// same lock.
func New(condition Condition) (string, error) {
	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", err
	}

	if condition.Kind != P2PK && condition.Kind != HTLC {
		return "", fmt.Errorf("%w: cannot create secret of kind '%s'", ErrUnsupportedKind, condition.Kind)
	}

	secretData := WellKnownSecret{
		Nonce: hex.EncodeToString(nonceBytes),
		Data:  condition.Data,
		Tags:  condition.Tags,
	}

	return Serialize(condition.Kind, secretData)
}
