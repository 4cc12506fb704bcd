package chain

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeBrosOfficial/fsdeploy/pkg/chain/chaintest"
	"github.com/DeBrosOfficial/fsdeploy/pkg/config"
	"github.com/DeBrosOfficial/fsdeploy/pkg/errors"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestAttachWildcard(t *testing.T) {
	backend := chaintest.New(1337, 5777)
	conn, err := Attach(context.Background(), "development", "http://localhost:8545", config.AnyNetworkID, backend, nil)
	require.NoError(t, err)

	assert.Equal(t, "5777", conn.NetworkID)
	assert.Equal(t, int64(1337), conn.ChainID.Int64())
	assert.Equal(t, "development", conn.Name)
}

func TestAttachExactID(t *testing.T) {
	backend := chaintest.New(1337, 5777)
	_, err := Attach(context.Background(), "development", "http://localhost:8545", "5777", backend, nil)
	require.NoError(t, err)
}

func TestAttachMismatch(t *testing.T) {
	backend := chaintest.New(1, 1)
	_, err := Attach(context.Background(), "staging", "http://rpc:8545", "42", backend, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNetworkMismatch))
	assert.Equal(t, errors.CodeFailedPrecondition, errors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "expects id 42 but node reports 1")
}

func TestAttachWithoutChainID(t *testing.T) {
	backend := chaintest.New(1337, 5777)
	backend.ChainIDErr = fmt.Errorf("the method eth_chainId does not exist/is not available")

	conn, err := Attach(context.Background(), "development", "http://localhost:8545", "*", backend, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5777), conn.ChainID.Int64())
}

func TestAttachChainIDFailure(t *testing.T) {
	backend := chaintest.New(1337, 5777)
	backend.ChainIDErr = fmt.Errorf("connection reset")

	_, err := Attach(context.Background(), "development", "http://localhost:8545", "*", backend, nil)
	require.Error(t, err)
	assert.True(t, errors.IsServiceUnavailable(err))
}

func TestSignerFromHex(t *testing.T) {
	a, err := SignerFromHex(testKey)
	require.NoError(t, err)
	b, err := SignerFromHex("0x" + testKey)
	require.NoError(t, err)
	assert.Equal(t, a.Address, b.Address)

	_, err = SignerFromHex("zz")
	assert.Equal(t, errors.CodeCryptoError, errors.GetErrorCode(err))
}

func TestSignerFromKeystore(t *testing.T) {
	priv, err := crypto.HexToECDSA(testKey)
	require.NoError(t, err)

	key := &keystore.Key{
		Id:         uuid.New(),
		Address:    crypto.PubkeyToAddress(priv.PublicKey),
		PrivateKey: priv,
	}
	data, err := keystore.EncryptKey(key, "hunter2", keystore.LightScryptN, keystore.LightScryptP)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "deployer.json")
	require.NoError(t, os.WriteFile(path, data, 0600))

	signer, err := LoadSigner(config.DeployerConfig{Keystore: path, Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, key.Address, signer.Address)

	_, err = SignerFromKeystore(path, "wrong")
	assert.Equal(t, errors.CodeCryptoError, errors.GetErrorCode(err))

	_, err = SignerFromKeystore(filepath.Join(t.TempDir(), "missing.json"), "")
	assert.True(t, errors.IsNotFound(err))
}

func TestLoadSignerWithoutKey(t *testing.T) {
	_, err := LoadSigner(config.DeployerConfig{})
	assert.True(t, errors.IsValidation(err))
}

func TestSignTx(t *testing.T) {
	signer, err := SignerFromHex(testKey)
	require.NoError(t, err)

	chainID := big.NewInt(1337)
	tx := types.NewTx(&types.LegacyTx{Nonce: 3, GasPrice: big.NewInt(1), Gas: 21000, Data: []byte{0x60}})
	signed, err := signer.SignTx(tx, chainID)
	require.NoError(t, err)

	from, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	require.NoError(t, err)
	assert.Equal(t, signer.Address, from)
}
