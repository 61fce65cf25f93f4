// Package wallet assembles blinded outputs for minting and swapping,
// unblinds the returned signatures into proofs, and talks to the mint
// through its HTTP API.
package wallet

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/cypherline/gocash/crypto"
	"github.com/cypherline/gocash/ecash"
	"github.com/cypherline/gocash/ecash/secrets"
)

var (
	ErrAssemblyMismatch   = errors.New("signature count does not match output count")
	ErrDLEQVerification   = errors.New("mint returned signature with invalid DLEQ proof")
	ErrInsufficientAmount = errors.New("insufficient proofs amount")
)

// Output associates a blinded message with the secret and blinding
// factor it was built from. The three travel together: the blinding
// factor must survive, at this index, until the matching blind
// signature returns.
type Output struct {
	BlindedMessage ecash.BlindedMessage
	Secret         string
	BlindingFactor *secp256k1.PrivateKey
}

type Outputs []Output

func (outputs Outputs) BlindedMessages() ecash.BlindedMessages {
	blindedMessages := make(ecash.BlindedMessages, len(outputs))
	for i, output := range outputs {
		blindedMessages[i] = output.BlindedMessage
	}
	return blindedMessages
}

func (outputs Outputs) Amount() uint64 {
	return outputs.BlindedMessages().Amount()
}

// CreateOutputs builds one blinded message per amount. Secrets are
// random 32-byte values, or generated from the spend condition when
// one is given.
func CreateOutputs(amounts []uint64, keysetId string, condition *secrets.Condition) (Outputs, error) {
	outputs := make(Outputs, len(amounts))

	for i, amount := range amounts {
		var secret string
		var err error
		if condition != nil {
			secret, err = secrets.New(*condition)
			if err != nil {
				return nil, err
			}
		} else {
			secretBytes := make([]byte, 32)
			if _, err := rand.Read(secretBytes); err != nil {
				return nil, err
			}
			secret = hex.EncodeToString(secretBytes)
		}

		r, err := crypto.RandomScalar()
		if err != nil {
			return nil, err
		}

		B_, err := crypto.BlindMessage([]byte(secret), r)
		if err != nil {
			return nil, err
		}

		outputs[i] = Output{
			BlindedMessage: ecash.NewBlindedMessage(keysetId, amount, B_),
			Secret:         secret,
			BlindingFactor: r,
		}
	}

	return outputs, nil
}

// ConstructProofs unblinds a batch of blind signatures into proofs
// using the outputs they were issued for. The signature count must
// match the output count exactly; a mismatch means an output would be
// paired with the wrong blinding factor, so it fails instead.
func ConstructProofs(signatures ecash.BlindSignatures, outputs Outputs,
	keyset *crypto.Keyset) (ecash.Proofs, error) {

	if len(signatures) != len(outputs) {
		return nil, fmt.Errorf("%w: %d signatures for %d outputs",
			ErrAssemblyMismatch, len(signatures), len(outputs))
	}

	proofs := make(ecash.Proofs, len(signatures))
	for i, signature := range signatures {
		C_bytes, err := hex.DecodeString(signature.C_)
		if err != nil {
			return nil, err
		}
		C_, err := crypto.ParsePoint(C_bytes)
		if err != nil {
			return nil, err
		}

		K, ok := keyset.PublicKeys[signature.Amount]
		if !ok {
			return nil, fmt.Errorf("keyset has no key for amount %v", signature.Amount)
		}

		r := outputs[i].BlindingFactor
		if signature.DLEQ != nil {
			if !crypto.VerifyBlindSignatureDLEQ(*signature.DLEQ, K,
				outputs[i].BlindedMessage.B_, signature.C_) {
				return nil, ErrDLEQVerification
			}
		}

		C, err := crypto.UnblindSignature(C_, r, K)
		if err != nil {
			return nil, err
		}

		proof := ecash.Proof{
			Amount: signature.Amount,
			Id:     signature.Id,
			Secret: outputs[i].Secret,
			C:      hex.EncodeToString(C.SerializeCompressed()),
		}
		if signature.DLEQ != nil {
			proof.DLEQ = &ecash.DLEQProof{
				E: signature.DLEQ.E,
				S: signature.DLEQ.S,
				R: hex.EncodeToString(r.Serialize()),
			}
		}

		proofs[i] = proof
	}

	return proofs, nil
}

type Wallet struct {
	mintURL string
	unit    ecash.Unit

	activeKeyset crypto.Keyset
	// all keysets of the mint, by id
	keysets map[string]crypto.Keyset
}

// LoadWallet fetches the mint's keysets and returns a wallet using the
// active sat keyset for new outputs.
func LoadWallet(mintURL string) (*Wallet, error) {
	keysRes, err := GetActiveKeysets(mintURL)
	if err != nil {
		return nil, fmt.Errorf("error getting keys from mint: %v", err)
	}

	keysetsRes, err := GetAllKeysets(mintURL)
	if err != nil {
		return nil, fmt.Errorf("error getting keysets from mint: %v", err)
	}

	keysetInfo := make(map[string]KeysetInfo)
	for _, info := range keysetsRes.Keysets {
		keysetInfo[info.Id] = info
	}

	wallet := &Wallet{
		mintURL: mintURL,
		unit:    ecash.Sat,
		keysets: make(map[string]crypto.Keyset),
	}

	for _, keysetKeys := range keysRes.Keysets {
		if keysetKeys.Unit != ecash.Sat.String() {
			continue
		}

		publicKeys, err := crypto.ParseKeys(keysetKeys.Keys)
		if err != nil {
			return nil, fmt.Errorf("mint returned invalid keys: %v", err)
		}

		keyset := crypto.Keyset{
			Id:         keysetKeys.Id,
			MintURL:    mintURL,
			Unit:       keysetKeys.Unit,
			PublicKeys: publicKeys,
		}
		if info, ok := keysetInfo[keysetKeys.Id]; ok {
			keyset.Active = info.Active
			keyset.InputFeePpk = info.InputFeePpk
		}

		wallet.keysets[keyset.Id] = keyset
		if keyset.Active {
			wallet.activeKeyset = keyset
		}
	}

	if wallet.activeKeyset.Id == "" {
		return nil, errors.New("mint has no active sat keyset")
	}

	return wallet, nil
}

func (w *Wallet) MintURL() string {
	return w.mintURL
}

func (w *Wallet) ActiveKeyset() crypto.Keyset {
	return w.activeKeyset
}

// Fees returns the mint fee for spending the proofs as swap inputs:
// the sum of each input's fee (parts per thousand), rounded up.
func (w *Wallet) Fees(proofs ecash.Proofs) uint64 {
	var feePpk uint
	for _, proof := range proofs {
		feePpk += w.keysets[proof.Id].InputFeePpk
	}
	return uint64((feePpk + 999) / 1000)
}

// RequestMintQuote asks the mint for a quote to mint the given amount.
func (w *Wallet) RequestMintQuote(amount uint64) (*PostMintQuoteResponse, error) {
	quoteRequest := PostMintQuoteRequest{Amount: amount, Unit: w.unit.String()}
	return PostMintQuote(w.mintURL, quoteRequest)
}

// MintProofs redeems a paid mint quote for proofs. If quoteKey is not
// nil the request is signed to prove ownership of a locked quote.
func (w *Wallet) MintProofs(quoteId string, amount uint64, quoteKey *secp256k1.PrivateKey) (ecash.Proofs, error) {
	outputs, err := CreateOutputs(ecash.AmountSplit(amount), w.activeKeyset.Id, nil)
	if err != nil {
		return nil, err
	}

	mintRequest := PostMintRequest{Quote: quoteId, Outputs: outputs.BlindedMessages()}
	if quoteKey != nil {
		signature, err := SignMintQuote(quoteKey, quoteId, mintRequest.Outputs)
		if err != nil {
			return nil, err
		}
		mintRequest.Signature = signature
	}

	mintResponse, err := PostMint(w.mintURL, mintRequest)
	if err != nil {
		return nil, err
	}

	return ConstructProofs(mintResponse.Signatures, outputs, &w.activeKeyset)
}

// Swap exchanges proofs for fresh ones of equal value minus the input
// fee. When a spend condition is given, every new proof is locked
// under it.
func (w *Wallet) Swap(proofs ecash.Proofs, condition *secrets.Condition) (ecash.Proofs, error) {
	fees := w.Fees(proofs)
	if proofs.Amount() <= fees {
		return nil, ErrInsufficientAmount
	}

	outputAmount := proofs.Amount() - fees
	outputs, err := CreateOutputs(ecash.AmountSplit(outputAmount), w.activeKeyset.Id, condition)
	if err != nil {
		return nil, err
	}

	return w.swap(proofs, outputs)
}

// SendLocked splits proofs into a batch to keep and a batch locked
// under the spend condition for a receiver. With includeFees the sent
// amount additionally covers the fee the receiver will pay to redeem.
func (w *Wallet) SendLocked(amount uint64, proofs ecash.Proofs, condition secrets.Condition,
	includeFees bool) (keep ecash.Proofs, send ecash.Proofs, err error) {

	sendAmount := amount
	if includeFees {
		outputCount := len(ecash.AmountSplit(amount))
		receiveFeePpk := uint(outputCount) * w.activeKeyset.InputFeePpk
		sendAmount += uint64((receiveFeePpk + 999) / 1000)
	}

	swapFee := w.Fees(proofs)
	if proofs.Amount() < sendAmount+swapFee {
		return nil, nil, ErrInsufficientAmount
	}
	keepAmount := proofs.Amount() - sendAmount - swapFee

	keepOutputs, err := CreateOutputs(ecash.AmountSplit(keepAmount), w.activeKeyset.Id, nil)
	if err != nil {
		return nil, nil, err
	}
	sendOutputs, err := CreateOutputs(ecash.AmountSplit(sendAmount), w.activeKeyset.Id, &condition)
	if err != nil {
		return nil, nil, err
	}

	outputs := append(keepOutputs, sendOutputs...)
	newProofs, err := w.swap(proofs, outputs)
	if err != nil {
		return nil, nil, err
	}

	keep = newProofs[:len(keepOutputs)]
	send = newProofs[len(keepOutputs):]
	return keep, send, nil
}

func (w *Wallet) swap(inputs ecash.Proofs, outputs Outputs) (ecash.Proofs, error) {
	swapRequest := PostSwapRequest{Inputs: inputs, Outputs: outputs.BlindedMessages()}
	swapResponse, err := PostSwap(w.mintURL, swapRequest)
	if err != nil {
		return nil, err
	}

	return ConstructProofs(swapResponse.Signatures, outputs, &w.activeKeyset)
}
