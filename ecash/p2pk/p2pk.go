// Package p2pk implements pay-to-public-key spend conditions: locking
// secrets to one or more public keys, signing them, and verifying the
// witness signatures against the n_sigs threshold with locktime and
// refund fallback.
package p2pk

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/cypherline/gocash/ecash"
	"github.com/cypherline/gocash/ecash/secrets"
)

const (
	// supported tags
	SIGFLAG  = "sigflag"
	NSIGS    = "n_sigs"
	PUBKEYS  = "pubkeys"
	LOCKTIME = "locktime"
	REFUND   = "refund"

	// SIGFLAG types
	SIGINPUTS = "SIG_INPUTS"
	SIGALL    = "SIG_ALL"

	// Error code
	P2PKErrCode ecash.ErrCode = 30001
)

// errors
var (
	InvalidTagErr          = ecash.Error{Detail: "invalid tag", Code: P2PKErrCode}
	TooManyTagsErr         = ecash.Error{Detail: "too many tags", Code: P2PKErrCode}
	NSigsMustBePositiveErr = ecash.Error{Detail: "n_sigs must be a positive integer", Code: P2PKErrCode}
	EmptyWitnessErr        = ecash.Error{Detail: "witness cannot be empty", Code: P2PKErrCode}
	NotEnoughSignaturesErr = ecash.Error{Detail: "not enough valid signatures provided", Code: P2PKErrCode}
	NotP2PKSecretErr       = ecash.Error{Detail: "not a P2PK locked secret", Code: P2PKErrCode}
)

// Witness carries the spend-condition signatures of a proof, ordered by
// attachment. Signers append until the n_sigs threshold is reached.
type Witness struct {
	Signatures []string `json:"signatures"`
}

type Tags struct {
	Sigflag  string
	NSigs    int
	Pubkeys  []*btcec.PublicKey
	Locktime int64
	Refund   []*btcec.PublicKey
}

// LockOptions are the optional P2PK locking parameters. A zero-value
// option emits no tag, so two locks with the same parameters always
// serialize to identical tag lists.
type LockOptions struct {
	NSigs      int
	Locktime   int64
	RefundKeys []string
	// additional pubkeys that can sign besides the locking key
	Pubkeys []string
	SigAll  bool
}

// LockSecret returns a fresh secret locking ecash to the given public key.
func LockSecret(pubkey string, opts LockOptions) (string, error) {
	var tags [][]string
	if len(opts.Pubkeys) > 0 {
		tags = append(tags, append([]string{PUBKEYS}, opts.Pubkeys...))
	}
	if opts.NSigs > 0 {
		tags = append(tags, []string{NSIGS, strconv.Itoa(opts.NSigs)})
	}
	if opts.Locktime > 0 {
		tags = append(tags, []string{LOCKTIME, strconv.FormatInt(opts.Locktime, 10)})
	}
	if len(opts.RefundKeys) > 0 {
		tags = append(tags, append([]string{REFUND}, opts.RefundKeys...))
	}
	if opts.SigAll {
		tags = append(tags, []string{SIGFLAG, SIGALL})
	}

	return secrets.New(secrets.Condition{Kind: secrets.P2PK, Data: pubkey, Tags: tags})
}

func ParseTags(tags [][]string) (*Tags, error) {
	if len(tags) > 5 {
		return nil, TooManyTagsErr
	}

	p2pkTags := Tags{}

	for _, tag := range tags {
		if len(tag) < 2 {
			return nil, InvalidTagErr
		}
		tagType := tag[0]
		switch tagType {
		case SIGFLAG:
			sigflagType := tag[1]
			if sigflagType == SIGINPUTS || sigflagType == SIGALL {
				p2pkTags.Sigflag = sigflagType
			} else {
				errmsg := fmt.Sprintf("invalid sigflag: %v", sigflagType)
				return nil, *ecash.BuildError(errmsg, P2PKErrCode)
			}
		case NSIGS:
			nsig, err := strconv.ParseInt(tag[1], 10, 8)
			if err != nil {
				errmsg := fmt.Sprintf("invalid n_sigs value: %v", err)
				return nil, *ecash.BuildError(errmsg, P2PKErrCode)
			}
			if nsig < 0 {
				return nil, NSigsMustBePositiveErr
			}
			p2pkTags.NSigs = int(nsig)
		case PUBKEYS:
			pubkeys := make([]*btcec.PublicKey, len(tag)-1)
			for i := 1; i < len(tag); i++ {
				pubkey, err := ParsePublicKey(tag[i])
				if err != nil {
					return nil, err
				}
				pubkeys[i-1] = pubkey
			}
			p2pkTags.Pubkeys = pubkeys
		case LOCKTIME:
			locktime, err := strconv.ParseInt(tag[1], 10, 64)
			if err != nil {
				errmsg := fmt.Sprintf("invalid locktime: %v", err)
				return nil, *ecash.BuildError(errmsg, P2PKErrCode)
			}
			p2pkTags.Locktime = locktime
		case REFUND:
			refundKeys := make([]*btcec.PublicKey, len(tag)-1)
			for i := 1; i < len(tag); i++ {
				pubkey, err := ParsePublicKey(tag[i])
				if err != nil {
					return nil, err
				}
				refundKeys[i-1] = pubkey
			}
			p2pkTags.Refund = refundKeys
		}
	}

	return &p2pkTags, nil
}

// SignSecret produces a Schnorr signature over the sha256 hash of the
// secret's canonical byte form.
func SignSecret(secret string, signingKey *btcec.PrivateKey) (string, error) {
	hash := sha256.Sum256([]byte(secret))
	signature, err := schnorr.Sign(signingKey, hash[:])
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(signature.Serialize()), nil
}

// SignBlindedOutput signs the compressed point encoding of a blinded
// output. Required when the spend condition carries a SIG_ALL flag so
// authorization extends into newly minted change.
func SignBlindedOutput(B_ string, signingKey *btcec.PrivateKey) (string, error) {
	msgToSign, err := hex.DecodeString(B_)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(msgToSign)
	signature, err := schnorr.Sign(signingKey, hash[:])
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(signature.Serialize()), nil
}

// AddWitnessSignature attaches a signature to a proof, creating the
// witness if absent and appending otherwise. Prior signatures are
// preserved so multiple parties can co-sign up to the threshold.
// Deduplicating signatures from the same signer is the caller's
// responsibility; the verifier will not count a key twice.
func AddWitnessSignature(proof ecash.Proof, signature string) (ecash.Proof, error) {
	var witness Witness
	if len(proof.Witness) > 0 {
		if err := json.Unmarshal([]byte(proof.Witness), &witness); err != nil {
			return proof, fmt.Errorf("invalid witness: %v", err)
		}
	}
	witness.Signatures = append(witness.Signatures, signature)

	witnessBytes, err := json.Marshal(witness)
	if err != nil {
		return proof, err
	}
	proof.Witness = string(witnessBytes)
	return proof, nil
}

// AddSignatureToInputs signs each proof's secret with the key and
// appends the signature to the proof's witness.
func AddSignatureToInputs(inputs ecash.Proofs, signingKey *btcec.PrivateKey) (ecash.Proofs, error) {
	for i, proof := range inputs {
		signature, err := SignSecret(proof.Secret, signingKey)
		if err != nil {
			return nil, err
		}
		proof, err = AddWitnessSignature(proof, signature)
		if err != nil {
			return nil, err
		}
		inputs[i] = proof
	}

	return inputs, nil
}

// AddSignatureToOutputs signs each blinded output with the key and
// appends the signature to the output's witness.
func AddSignatureToOutputs(
	outputs ecash.BlindedMessages,
	signingKey *btcec.PrivateKey,
) (ecash.BlindedMessages, error) {
	for i, output := range outputs {
		signature, err := SignBlindedOutput(output.B_, signingKey)
		if err != nil {
			return nil, err
		}

		var witness Witness
		if len(output.Witness) > 0 {
			if err := json.Unmarshal([]byte(output.Witness), &witness); err != nil {
				return nil, fmt.Errorf("invalid witness: %v", err)
			}
		}
		witness.Signatures = append(witness.Signatures, signature)

		witnessBytes, err := json.Marshal(witness)
		if err != nil {
			return nil, err
		}
		output.Witness = string(witnessBytes)
		outputs[i] = output
	}

	return outputs, nil
}

// VerifyProof checks the proof's witness against its P2PK spend
// condition. Before locktime the signatures must reach the n_sigs
// threshold over the locking key and any pubkeys tag. Once locktime
// has passed, a single signature from a refund key satisfies the
// condition regardless of n_sigs; with no refund keys the proof
// becomes spendable by anyone.
func VerifyProof(proof ecash.Proof) error {
	kind, secret, err := secrets.Deserialize(proof.Secret)
	if err != nil {
		return err
	}
	if kind != secrets.P2PK {
		return NotP2PKSecretErr
	}

	tags, err := ParseTags(secret.Tags)
	if err != nil {
		return err
	}

	hash := sha256.Sum256([]byte(proof.Secret))

	if tags.Locktime > 0 && time.Now().Unix() >= tags.Locktime {
		if len(tags.Refund) == 0 {
			return nil
		}

		witness, err := parseWitness(proof.Witness)
		if err != nil {
			return err
		}
		if !HasValidSignatures(hash[:], witness, 1, tags.Refund) {
			return NotEnoughSignaturesErr
		}
		return nil
	}

	witness, err := parseWitness(proof.Witness)
	if err != nil {
		return err
	}

	nSigs := tags.NSigs
	if nSigs < 1 {
		nSigs = 1
	}

	lockingKey, err := ParsePublicKey(secret.Data)
	if err != nil {
		return err
	}
	pubkeys := append([]*btcec.PublicKey{lockingKey}, tags.Pubkeys...)

	if !HasValidSignatures(hash[:], witness, nSigs, pubkeys) {
		return NotEnoughSignaturesErr
	}
	return nil
}

func parseWitness(witnessStr string) (Witness, error) {
	if len(witnessStr) == 0 {
		return Witness{}, EmptyWitnessErr
	}
	var witness Witness
	if err := json.Unmarshal([]byte(witnessStr), &witness); err != nil {
		return Witness{}, fmt.Errorf("invalid witness: %v", err)
	}
	if len(witness.Signatures) == 0 {
		return Witness{}, EmptyWitnessErr
	}
	return witness, nil
}

// HasValidSignatures reports whether the witness carries at least nSigs
// signatures from distinct keys in the candidate set. A key is removed
// from the set once matched, so a replayed signature cannot count twice.
func HasValidSignatures(hash []byte, witness Witness, nSigs int, pubkeys []*btcec.PublicKey) bool {
	pubkeysCopy := make([]*btcec.PublicKey, len(pubkeys))
	copy(pubkeysCopy, pubkeys)

	validSignatures := 0
	for _, signature := range witness.Signatures {
		sig, err := ParseSignature(signature)
		if err != nil {
			continue
		}

		for i, pubkey := range pubkeysCopy {
			if sig.Verify(hash, pubkey) {
				validSignatures++
				pubkeysCopy = slices.Delete(pubkeysCopy, i, i+1)
				break
			}
		}
	}

	return validSignatures >= nSigs
}

// PublicKeys returns the keys that can sign a P2PK locked secret
// before its locktime: the locking key plus any pubkeys tag.
func PublicKeys(secret secrets.WellKnownSecret) ([]*btcec.PublicKey, error) {
	tags, err := ParseTags(secret.Tags)
	if err != nil {
		return nil, err
	}

	pubkey, err := ParsePublicKey(secret.Data)
	if err != nil {
		return nil, err
	}
	return append([]*btcec.PublicKey{pubkey}, tags.Pubkeys...), nil
}

func IsSecretP2PK(proof ecash.Proof) bool {
	return secrets.KindOf(proof.Secret) == secrets.P2PK
}

// ProofsSigAll returns true if at least one of the proofs
// in the list has a SIG_ALL flag
func ProofsSigAll(proofs ecash.Proofs) bool {
	for _, proof := range proofs {
		_, secret, err := secrets.Deserialize(proof.Secret)
		if err != nil {
			return false
		}

		if IsSigAll(secret) {
			return true
		}
	}
	return false
}

func IsSigAll(secret secrets.WellKnownSecret) bool {
	for _, tag := range secret.Tags {
		if len(tag) == 2 && tag[0] == SIGFLAG && tag[1] == SIGALL {
			return true
		}
	}

	return false
}

// CanSign reports whether the key matches the secret's locking key.
func CanSign(secret secrets.WellKnownSecret, key *btcec.PrivateKey) bool {
	publicKey, err := ParsePublicKey(secret.Data)
	if err != nil {
		return false
	}

	return publicKey.IsEqual(key.PubKey())
}

func ParsePublicKey(key string) (*btcec.PublicKey, error) {
	hexPubkey, err := hex.DecodeString(key)
	if err != nil {
		errmsg := fmt.Sprintf("invalid public key: %v", err)
		return nil, *ecash.BuildError(errmsg, P2PKErrCode)
	}
	pubkey, err := btcec.ParsePubKey(hexPubkey)
	if err != nil {
		errmsg := fmt.Sprintf("invalid public key: %v", err)
		return nil, *ecash.BuildError(errmsg, P2PKErrCode)
	}
	return pubkey, nil
}

func ParseSignature(signature string) (*schnorr.Signature, error) {
	hexSig, err := hex.DecodeString(signature)
	if err != nil {
		errmsg := fmt.Sprintf("invalid signature: %v", err)
		return nil, *ecash.BuildError(errmsg, P2PKErrCode)
	}
	sig, err := schnorr.ParseSignature(hexSig)
	if err != nil {
		errmsg := fmt.Sprintf("invalid signature: %v", err)
		return nil, *ecash.BuildError(errmsg, P2PKErrCode)
	}

	return sig, nil
}
