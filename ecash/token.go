package ecash

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Token is the transit encoding through which proofs leave the wallet:
// CBOR-serialized, base64url-encoded, with a "cashuB" version prefix.
type Token struct {
	TokenProofs []TokenProofs `json:"t"`
	Memo        string        `json:"d,omitempty"`
	MintURL     string        `json:"m"`
	Unit        string        `json:"u"`
}

// TokenProofs groups the proofs of a token belonging to one keyset.
type TokenProofs struct {
	Id     []byte       `json:"i"`
	Proofs []TokenProof `json:"p"`
}

type TokenProof struct {
	Amount  uint64 `json:"a"`
	Secret  string `json:"s"`
	C       []byte `json:"c"`
	Witness string `json:"w,omitempty"`
}

var ErrInvalidToken = errors.New("invalid token")

func NewToken(proofs Proofs, mint string, unit Unit) (Token, error) {
	if unit != Sat {
		return Token{}, ErrInvalidUnit
	}

	proofsMap := make(map[string][]TokenProof)
	for _, proof := range proofs {
		C, err := hex.DecodeString(proof.C)
		if err != nil {
			return Token{}, fmt.Errorf("invalid C: %v", err)
		}
		proofsMap[proof.Id] = append(proofsMap[proof.Id], TokenProof{
			Amount:  proof.Amount,
			Secret:  proof.Secret,
			C:       C,
			Witness: proof.Witness,
		})
	}

	tokenProofs := make([]TokenProofs, 0, len(proofsMap))
	for id, keysetProofs := range proofsMap {
		keysetIdBytes, err := hex.DecodeString(id)
		if err != nil {
			return Token{}, fmt.Errorf("invalid keyset id: %v", err)
		}
		tokenProofs = append(tokenProofs, TokenProofs{Id: keysetIdBytes, Proofs: keysetProofs})
	}

	return Token{MintURL: mint, Unit: unit.String(), TokenProofs: tokenProofs}, nil
}

func DecodeToken(tokenstr string) (*Token, error) {
	if len(tokenstr) < 6 || tokenstr[:6] != "cashuB" {
		return nil, ErrInvalidToken
	}
	base64Token := tokenstr[6:]

	tokenBytes, err := base64.URLEncoding.DecodeString(base64Token)
	if err != nil {
		tokenBytes, err = base64.RawURLEncoding.DecodeString(base64Token)
		if err != nil {
			return nil, fmt.Errorf("error decoding token: %v", err)
		}
	}

	var token Token
	if err := cbor.Unmarshal(tokenBytes, &token); err != nil {
		return nil, fmt.Errorf("cbor.Unmarshal: %v", err)
	}

	return &token, nil
}

func (t Token) Proofs() Proofs {
	proofs := make(Proofs, 0)
	for _, tokenProofs := range t.TokenProofs {
		keysetId := hex.EncodeToString(tokenProofs.Id)
		for _, tokenProof := range tokenProofs.Proofs {
			proofs = append(proofs, Proof{
				Amount:  tokenProof.Amount,
				Id:      keysetId,
				Secret:  tokenProof.Secret,
				C:       hex.EncodeToString(tokenProof.C),
				Witness: tokenProof.Witness,
			})
		}
	}
	return proofs
}

func (t Token) Mint() string {
	return t.MintURL
}

func (t Token) Amount() uint64 {
	return t.Proofs().Amount()
}

func (t Token) Serialize() (string, error) {
	cborData, err := cbor.Marshal(t)
	if err != nil {
		return "", err
	}

	return "cashuB" + base64.RawURLEncoding.EncodeToString(cborData), nil
}
