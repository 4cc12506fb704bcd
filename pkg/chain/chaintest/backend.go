// Package chaintest provides an in-memory chain for deployment tests.
package chaintest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Event kinds recorded in the journal.
const (
	EventSend    = "send"
	EventReceipt = "receipt"
)

// Event is one observable interaction with the fake chain.
type Event struct {
	Kind    string
	TxHash  common.Hash
	Address common.Address // contract address the tx creates
}

type pendingTx struct {
	tx       *types.Transaction
	receipt  *types.Receipt
	polls    int
	observed bool
}

// RPCError is a JSON-RPC error response, as the node returns for transactions
// it evaluates and refuses.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string  { return e.Message }
func (e *RPCError) ErrorCode() int { return e.Code }

// Backend mines every valid transaction immediately into its own block.
// Receipts can be held back for a number of polls to exercise waiting.
type Backend struct {
	mu sync.Mutex

	chainID   *big.Int
	networkID *big.Int

	// Hooks and knobs, set before use.
	ChainIDErr   error
	GasPrice     *big.Int
	GasEstimate  uint64
	EstimateErr  error
	PendingPolls int
	FailSend     func(tx *types.Transaction) error
	Revert       func(tx *types.Transaction) bool

	nonces  map[common.Address]uint64
	code    map[common.Address][]byte
	txs     map[common.Hash]*pendingTx
	sent    []*types.Transaction
	journal []Event
	block   uint64
	closed  bool
}

// New returns a chain reporting the given chain and network ids.
func New(chainID, networkID int64) *Backend {
	return &Backend{
		chainID:     big.NewInt(chainID),
		networkID:   big.NewInt(networkID),
		GasPrice:    big.NewInt(20_000_000_000),
		GasEstimate: 1_500_000,
		nonces:      make(map[common.Address]uint64),
		code:        make(map[common.Address][]byte),
		txs:         make(map[common.Hash]*pendingTx),
	}
}

func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	if b.ChainIDErr != nil {
		return nil, b.ChainIDErr
	}
	return new(big.Int).Set(b.chainID), nil
}

func (b *Backend) NetworkID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.networkID), nil
}

func (b *Backend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonces[account], nil
}

// SetNonce sets the next nonce of account, as if it had sent earlier transactions.
func (b *Backend) SetNonce(account common.Address, nonce uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nonces[account] = nonce
}

func (b *Backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.GasPrice), nil
}

func (b *Backend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if len(msg.Data) == 0 {
		return 0, fmt.Errorf("empty creation code")
	}
	if b.EstimateErr != nil {
		return 0, b.EstimateErr
	}
	return b.GasEstimate, nil
}

func (b *Backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("backend closed")
	}
	from, err := types.Sender(types.LatestSignerForChainID(b.chainID), tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if want := b.nonces[from]; tx.Nonce() != want {
		return fmt.Errorf("invalid nonce: have %d, want %d", tx.Nonce(), want)
	}
	if b.FailSend != nil {
		if err := b.FailSend(tx); err != nil {
			return err
		}
	}

	b.nonces[from]++
	b.block++
	b.sent = append(b.sent, tx)

	receipt := &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		GasUsed:     tx.Gas() / 2,
		BlockNumber: new(big.Int).SetUint64(b.block),
	}
	if tx.To() == nil {
		receipt.ContractAddress = crypto.CreateAddress(from, tx.Nonce())
	}
	if b.Revert != nil && b.Revert(tx) {
		receipt.Status = types.ReceiptStatusFailed
	} else if tx.To() == nil {
		b.code[receipt.ContractAddress] = tx.Data()
	}

	b.txs[tx.Hash()] = &pendingTx{tx: tx, receipt: receipt, polls: b.PendingPolls}
	b.journal = append(b.journal, Event{Kind: EventSend, TxHash: tx.Hash(), Address: receipt.ContractAddress})
	return nil
}

func (b *Backend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.txs[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	if p.polls > 0 {
		p.polls--
		return nil, ethereum.NotFound
	}
	if !p.observed {
		p.observed = true
		b.journal = append(b.journal, Event{Kind: EventReceipt, TxHash: txHash, Address: p.receipt.ContractAddress})
	}
	return p.receipt, nil
}

func (b *Backend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.code[account], nil
}

func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// Sent returns the transactions accepted so far, in order.
func (b *Backend) Sent() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*types.Transaction(nil), b.sent...)
}

// Journal returns the send and receipt events in the order they happened.
func (b *Backend) Journal() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.journal...)
}

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
