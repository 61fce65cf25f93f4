// Package htlc implements hash time-locked spend conditions: ecash
// locked to the preimage of a sha256 hash, with the same tag semantics
// as P2PK for signatures, locktime and refund keys.
package htlc

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/cypherline/gocash/ecash"
	"github.com/cypherline/gocash/ecash/p2pk"
	"github.com/cypherline/gocash/ecash/secrets"
)

var (
	InvalidPreimageErr = ecash.Error{Detail: "invalid preimage for HTLC", Code: p2pk.P2PKErrCode}
	NotHTLCSecretErr   = ecash.Error{Detail: "not an HTLC locked secret", Code: p2pk.P2PKErrCode}
)

// Witness carries the hash preimage along with any spend-condition
// signatures required by the secret's tags.
type Witness struct {
	Preimage   string   `json:"preimage"`
	Signatures []string `json:"signatures,omitempty"`
}

// LockSecret returns a fresh secret locking ecash to the sha256
// preimage of hash, with optional P2PK-style tag parameters.
func LockSecret(hash string, opts p2pk.LockOptions) (string, error) {
	var tags [][]string
	if len(opts.Pubkeys) > 0 {
		tags = append(tags, append([]string{p2pk.PUBKEYS}, opts.Pubkeys...))
	}
	if opts.NSigs > 0 {
		tags = append(tags, []string{p2pk.NSIGS, strconv.Itoa(opts.NSigs)})
	}
	if opts.Locktime > 0 {
		tags = append(tags, []string{p2pk.LOCKTIME, strconv.FormatInt(opts.Locktime, 10)})
	}
	if len(opts.RefundKeys) > 0 {
		tags = append(tags, append([]string{p2pk.REFUND}, opts.RefundKeys...))
	}

	return secrets.New(secrets.Condition{Kind: secrets.HTLC, Data: hash, Tags: tags})
}

// AddWitness attaches an HTLC witness with the preimage and a
// signature from the signing key to each proof.
func AddWitness(proofs ecash.Proofs, preimage string, signingKey *btcec.PrivateKey) (ecash.Proofs, error) {
	for i, proof := range proofs {
		signature, err := p2pk.SignSecret(proof.Secret, signingKey)
		if err != nil {
			return nil, err
		}

		htlcWitness := Witness{
			Preimage:   preimage,
			Signatures: []string{signature},
		}

		witness, err := json.Marshal(htlcWitness)
		if err != nil {
			return nil, err
		}
		proof.Witness = string(witness)
		proofs[i] = proof
	}

	return proofs, nil
}

// VerifyPreimage checks that the witness preimage hashes to the
// secret's locking data.
func VerifyPreimage(proof ecash.Proof) error {
	kind, secret, err := secrets.Deserialize(proof.Secret)
	if err != nil {
		return err
	}
	if kind != secrets.HTLC {
		return NotHTLCSecretErr
	}

	var witness Witness
	if err := json.Unmarshal([]byte(proof.Witness), &witness); err != nil {
		return InvalidPreimageErr
	}

	preimageBytes, err := hex.DecodeString(witness.Preimage)
	if err != nil {
		return InvalidPreimageErr
	}
	hash := sha256.Sum256(preimageBytes)
	if hex.EncodeToString(hash[:]) != secret.Data {
		return InvalidPreimageErr
	}
	return nil
}
