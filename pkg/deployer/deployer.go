// Package deployer sends contract creation transactions and waits for them
// to be mined.
package deployer

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/fsdeploy/pkg/artifacts"
	"github.com/DeBrosOfficial/fsdeploy/pkg/chain"
	"github.com/DeBrosOfficial/fsdeploy/pkg/config"
	"github.com/DeBrosOfficial/fsdeploy/pkg/errors"
)

// gasMarginPercent is added on top of the node's gas estimate.
const gasMarginPercent = 20

// Options control gas and receipt polling.
type Options struct {
	GasLimit            uint64   // 0 estimates
	GasPrice            *big.Int // nil asks the node
	ConfirmationTimeout time.Duration
	PollInterval        time.Duration
}

// OptionsFromConfig converts deployer settings. The config is assumed valid.
func OptionsFromConfig(cfg config.DeployerConfig) Options {
	opts := Options{
		GasLimit:            cfg.GasLimit,
		ConfirmationTimeout: cfg.ConfirmationTimeout,
		PollInterval:        cfg.PollInterval,
	}
	if cfg.GasPriceWei != "" {
		if price, ok := new(big.Int).SetString(cfg.GasPriceWei, 10); ok {
			opts.GasPrice = price
		}
	}
	return opts
}

// Deployment is the outcome of one contract creation.
type Deployment struct {
	Contract    string
	Address     common.Address
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	DeployedAt  time.Time
	DryRun      bool
}

// Deployer deploys artifacts from a single account. Nonces are tracked
// locally after the first lookup so consecutive deployments never reuse one.
type Deployer struct {
	backend chain.Backend
	signer  *chain.Signer
	chainID *big.Int
	opts    Options
	logger  *zap.Logger

	mu        sync.Mutex
	nonce     uint64
	nonceInit bool
}

// New creates a deployer.
func New(backend chain.Backend, signer *chain.Signer, chainID *big.Int, opts Options, logger *zap.Logger) *Deployer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ConfirmationTimeout <= 0 {
		opts.ConfirmationTimeout = 2 * time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	return &Deployer{
		backend: backend,
		signer:  signer,
		chainID: chainID,
		opts:    opts,
		logger:  logger,
	}
}

// From returns the deploying account.
func (d *Deployer) From() common.Address {
	return d.signer.Address
}

// Deploy creates the contract and blocks until it is mined and has code.
func (d *Deployer) Deploy(ctx context.Context, a *artifacts.Artifact, args ...interface{}) (*Deployment, error) {
	data, err := CreationData(a, args...)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	nonce, err := d.nextNonce(ctx)
	if err != nil {
		return nil, err
	}
	gasPrice, err := d.gasPrice(ctx)
	if err != nil {
		return nil, err
	}
	gasLimit, err := d.gasLimit(ctx, gasPrice, data)
	if err != nil {
		return nil, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		Data:     data,
	})
	signed, err := d.signer.SignTx(tx, d.chainID)
	if err != nil {
		return nil, err
	}

	d.logger.Info("Deploying contract",
		zap.String("contract", a.ContractName),
		zap.String("tx", signed.Hash().Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas_limit", gasLimit),
		zap.String("gas_price", gasPrice.String()),
	)

	if err := d.backend.SendTransaction(ctx, signed); err != nil {
		// the node may or may not have seen the nonce; look it up again next time
		d.nonceInit = false
		return nil, nodeError(err, "", "send deployment of "+a.ContractName)
	}
	d.nonce++

	receipt, err := d.waitMined(ctx, signed.Hash())
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, errors.NewChainError(signed.Hash().Hex(),
			fmt.Sprintf("transaction %s reverted (gas used %d of %d)", signed.Hash().Hex(), receipt.GasUsed, gasLimit), nil)
	}
	if receipt.ContractAddress == (common.Address{}) {
		return nil, errors.NewChainError(signed.Hash().Hex(), "receipt of "+signed.Hash().Hex()+" has no contract address", nil)
	}

	code, err := d.backend.CodeAt(ctx, receipt.ContractAddress, nil)
	if err != nil {
		return nil, errors.NewServiceError("node", "", "read code at "+receipt.ContractAddress.Hex(), err)
	}
	if len(code) == 0 {
		return nil, errors.NewChainError(signed.Hash().Hex(),
			fmt.Sprintf("no code at %s after deploying %s", receipt.ContractAddress.Hex(), a.ContractName), nil)
	}

	dep := &Deployment{
		Contract:   a.ContractName,
		Address:    receipt.ContractAddress,
		TxHash:     signed.Hash(),
		GasUsed:    receipt.GasUsed,
		DeployedAt: time.Now().UTC(),
	}
	if receipt.BlockNumber != nil {
		dep.BlockNumber = receipt.BlockNumber.Uint64()
	}

	d.logger.Info("Contract deployed",
		zap.String("contract", a.ContractName),
		zap.String("address", dep.Address.Hex()),
		zap.Uint64("block", dep.BlockNumber),
		zap.Uint64("gas_used", dep.GasUsed),
	)
	return dep, nil
}

// Predict returns the address Deploy would produce without sending anything.
// The local nonce still advances so a sequence of predictions matches a
// sequence of deployments.
func (d *Deployer) Predict(ctx context.Context, a *artifacts.Artifact, args ...interface{}) (*Deployment, error) {
	if _, err := CreationData(a, args...); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	nonce, err := d.nextNonce(ctx)
	if err != nil {
		return nil, err
	}
	d.nonce++

	addr := crypto.CreateAddress(d.signer.Address, nonce)
	d.logger.Info("Dry run: contract would deploy",
		zap.String("contract", a.ContractName),
		zap.String("address", addr.Hex()),
		zap.Uint64("nonce", nonce),
	)
	return &Deployment{
		Contract:   a.ContractName,
		Address:    addr,
		DeployedAt: time.Now().UTC(),
		DryRun:     true,
	}, nil
}

func (d *Deployer) nextNonce(ctx context.Context) (uint64, error) {
	if !d.nonceInit {
		n, err := d.backend.PendingNonceAt(ctx, d.signer.Address)
		if err != nil {
			return 0, errors.NewServiceError("node", "", "query nonce", err)
		}
		d.nonce = n
		d.nonceInit = true
	}
	return d.nonce, nil
}

func (d *Deployer) gasPrice(ctx context.Context) (*big.Int, error) {
	if d.opts.GasPrice != nil {
		return new(big.Int).Set(d.opts.GasPrice), nil
	}
	price, err := d.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.NewServiceError("node", "", "query gas price", err)
	}
	return price, nil
}

func (d *Deployer) gasLimit(ctx context.Context, gasPrice *big.Int, data []byte) (uint64, error) {
	if d.opts.GasLimit > 0 {
		return d.opts.GasLimit, nil
	}
	estimate, err := d.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:     d.signer.Address,
		GasPrice: gasPrice,
		Data:     data,
	})
	if err != nil {
		// estimation runs the constructor, so a revert surfaces here first
		return 0, nodeError(err, "", "estimate gas")
	}
	return estimate + estimate*gasMarginPercent/100, nil
}

// waitMined polls for the receipt until it appears or the confirmation
// timeout elapses.
func (d *Deployer) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.ConfirmationTimeout)
	defer cancel()

	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := d.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			if ctx.Err() == nil {
				d.logger.Debug("Receipt lookup failed; retrying", zap.String("tx", hash.Hex()), zap.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, errors.NewTimeoutError("receipt of "+hash.Hex(), d.opts.ConfirmationTimeout.String())
			}
			return nil, errors.WrapCode(ctx.Err(), errors.CodeCancelled, "wait for "+hash.Hex())
		case <-ticker.C:
		}
	}
}

// nodeError classifies a failed request. A JSON-RPC error response means the
// node evaluated the transaction and refused it; anything else means the
// node could not be asked.
func nodeError(err error, txHash, op string) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return errors.NewChainError(txHash, op, err)
	}
	return errors.NewServiceError("node", "", op, err)
}
