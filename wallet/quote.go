package wallet

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/cypherline/gocash/ecash"
)

// SignMintQuote proves ownership of a mint quote locked to a public
// key: a Schnorr signature over the quote id concatenated with the
// B_ values of the outputs being minted.
func SignMintQuote(
	privateKey *secp256k1.PrivateKey,
	quoteId string,
	blindedMessages ecash.BlindedMessages,
) (string, error) {
	msg := quoteId
	for _, bm := range blindedMessages {
		msg += bm.B_
	}

	hash := sha256.Sum256([]byte(msg))
	sig, err := schnorr.Sign(privateKey, hash[:])
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(sig.Serialize()), nil
}

func VerifyMintQuoteSignature(
	signature string,
	quoteId string,
	blindedMessages ecash.BlindedMessages,
	publicKey *secp256k1.PublicKey,
) bool {
	sigBytes, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return false
	}

	msg := quoteId
	for _, bm := range blindedMessages {
		msg += bm.B_
	}
	hash := sha256.Sum256([]byte(msg))

	return sig.Verify(hash[:], publicKey)
}
