package chain

import (
	"crypto/ecdsa"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/DeBrosOfficial/fsdeploy/pkg/config"
	"github.com/DeBrosOfficial/fsdeploy/pkg/errors"
)

// Signer holds the deploying account's private key.
type Signer struct {
	key     *ecdsa.PrivateKey
	Address common.Address
}

// NewSigner wraps a private key.
func NewSigner(key *ecdsa.PrivateKey) *Signer {
	return &Signer{key: key, Address: crypto.PubkeyToAddress(key.PublicKey)}
}

// SignerFromHex parses a hex private key, with or without 0x.
func SignerFromHex(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, errors.WrapCode(err, errors.CodeCryptoError, "parse private key")
	}
	return NewSigner(key), nil
}

// SignerFromKeystore decrypts a V3 keystore file.
func SignerFromKeystore(path, password string) (*Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("keystore", path)
		}
		return nil, errors.WrapCode(err, errors.CodeCryptoError, "read keystore")
	}
	key, err := keystore.DecryptKey(data, password)
	if err != nil {
		return nil, errors.WrapCode(err, errors.CodeCryptoError, "decrypt keystore "+path)
	}
	return NewSigner(key.PrivateKey), nil
}

// LoadSigner picks the key source configured for the deployer.
func LoadSigner(cfg config.DeployerConfig) (*Signer, error) {
	switch {
	case cfg.PrivateKey != "":
		return SignerFromHex(cfg.PrivateKey)
	case cfg.Keystore != "":
		return SignerFromKeystore(cfg.Keystore, cfg.Password)
	default:
		return nil, errors.NewValidationError("deployer", "no signing key configured", nil)
	}
}

// SignTx signs tx with EIP-155 replay protection for chainID.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, errors.WrapCode(err, errors.CodeCryptoError, "sign transaction")
	}
	return signed, nil
}
