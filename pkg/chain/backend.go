// Package chain connects to an Ethereum JSON-RPC node and holds the deploying key.
package chain

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/fsdeploy/pkg/config"
	"github.com/DeBrosOfficial/fsdeploy/pkg/errors"
)

// Backend is the subset of node RPC used to deploy contracts.
// *ethclient.Client satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	NetworkID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	Close()
}

var _ Backend = (*ethclient.Client)(nil)

// Connection is a backend whose network id has been checked against the
// configured network.
type Connection struct {
	Backend
	Name      string
	URL       string
	NetworkID string // as reported by net_version
	ChainID   *big.Int
}

// Dial connects to the configured network and verifies its network id.
func Dial(ctx context.Context, name string, network config.NetworkConfig, logger *zap.Logger) (*Connection, error) {
	url := network.URL()
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, errors.NewServiceError("node", url, "dial "+name, err)
	}
	conn, err := Attach(ctx, name, url, network.NetworkID, client, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	return conn, nil
}

// Attach verifies an existing backend against the expected network id.
func Attach(ctx context.Context, name, url string, expected config.NetworkID, backend Backend, logger *zap.Logger) (*Connection, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	netID, err := backend.NetworkID(ctx)
	if err != nil {
		return nil, errors.NewServiceError("node", url, "query network id", err)
	}
	actual := netID.String()
	if !expected.Matches(actual) {
		return nil, errors.WrapCode(errors.ErrNetworkMismatch, errors.CodeFailedPrecondition,
			"network "+name+" expects id "+string(expected)+" but node reports "+actual)
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		// pre EIP-155 development nodes do not implement eth_chainId
		if !isMethodNotFound(err) {
			return nil, errors.NewServiceError("node", url, "query chain id", err)
		}
		chainID = new(big.Int).Set(netID)
		logger.Warn("Node does not report a chain id; using network id", zap.String("network", name))
	}

	logger.Info("Connected to network",
		zap.String("network", name),
		zap.String("url", url),
		zap.String("network_id", actual),
		zap.String("chain_id", chainID.String()),
	)

	return &Connection{
		Backend:   backend,
		Name:      name,
		URL:       url,
		NetworkID: actual,
		ChainID:   chainID,
	}, nil
}

func isMethodNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "method not found") || strings.Contains(msg, "does not exist")
}
