package wallet

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/cypherline/gocash/crypto"
	"github.com/cypherline/gocash/ecash"
)

// Deterministic output derivation: secrets and blinding factors are
// derived from the wallet master key and a per-keyset counter, so a
// wallet restored from its mnemonic can re-derive what it blinded.

// DeriveKeysetPath derives m/129372'/0'/keyset_int' where keyset_int
// is the keyset id bytes as a big-endian integer mod 2^31-1.
func DeriveKeysetPath(master *hdkeychain.ExtendedKey, keysetId string) (*hdkeychain.ExtendedKey, error) {
	keysetBytes, err := hex.DecodeString(keysetId)
	if err != nil {
		return nil, fmt.Errorf("invalid keyset id: %v", err)
	}
	if len(keysetBytes) != 8 {
		return nil, fmt.Errorf("invalid keyset id length: %v", len(keysetBytes))
	}
	bigEndianBytes := binary.BigEndian.Uint64(keysetBytes)
	keysetIdInt := bigEndianBytes % (1<<31 - 1)

	// m/129372'
	purpose, err := master.Derive(hdkeychain.HardenedKeyStart + 129372)
	if err != nil {
		return nil, err
	}

	// m/129372'/0'
	coinType, err := purpose.Derive(hdkeychain.HardenedKeyStart + 0)
	if err != nil {
		return nil, err
	}

	// m/129372'/0'/keyset_int'
	return coinType.Derive(hdkeychain.HardenedKeyStart + uint32(keysetIdInt))
}

// DeriveSecret derives the counter-addressed output secret at
// m/129372'/0'/keyset_int'/counter'/0.
func DeriveSecret(keysetPath *hdkeychain.ExtendedKey, counter uint32) (string, error) {
	counterPath, err := keysetPath.Derive(hdkeychain.HardenedKeyStart + counter)
	if err != nil {
		return "", err
	}

	secretDerivationPath, err := counterPath.Derive(0)
	if err != nil {
		return "", err
	}

	secretKey, err := secretDerivationPath.ECPrivKey()
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(secretKey.Serialize()), nil
}

// DeriveBlindingFactor derives the counter-addressed blinding factor at
// m/129372'/0'/keyset_int'/counter'/1.
func DeriveBlindingFactor(keysetPath *hdkeychain.ExtendedKey, counter uint32) (*secp256k1.PrivateKey, error) {
	counterPath, err := keysetPath.Derive(hdkeychain.HardenedKeyStart + counter)
	if err != nil {
		return nil, err
	}

	rDerivationPath, err := counterPath.Derive(1)
	if err != nil {
		return nil, err
	}

	return rDerivationPath.ECPrivKey()
}

// CreateOutputsDeterministic builds outputs whose secrets and blinding
// factors come from the keyset derivation path, advancing the counter
// once per output.
func CreateOutputsDeterministic(amounts []uint64, keysetId string,
	keysetPath *hdkeychain.ExtendedKey, counter uint32) (Outputs, error) {

	outputs := make(Outputs, len(amounts))

	for i, amount := range amounts {
		secret, err := DeriveSecret(keysetPath, counter)
		if err != nil {
			return nil, err
		}

		r, err := DeriveBlindingFactor(keysetPath, counter)
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
		counter++
	}

	return outputs, nil
}
