// Package web3test provides a scripted in-memory chain backend so session
// and gateway behaviour can be exercised deterministically, without a node.
// It stands in for *ethclient.Client: calls against the registered counter
// contract are interpreted at the Go level and writes mine instantly.
package web3test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
)

// Backend implements the session.Backend surface over in-memory state.
type Backend struct {
	mu       sync.Mutex
	chainID  *big.Int
	codes    map[common.Address][]byte
	nonces   map[common.Address]uint64
	receipts map[common.Hash]*coretypes.Receipt
	blockNum uint64

	contract common.Address
	abi      abi.ABI
	counter  *big.Int
	owner    common.Address

	calls int

	// Error injection knobs. When set, the corresponding operation fails.
	CallErr    error
	SendErr    error
	ChainIDErr error
}

// NewBackend creates an empty chain with the given chain id.
func NewBackend(chainID int64) *Backend {
	return &Backend{
		chainID:  big.NewInt(chainID),
		codes:    make(map[common.Address][]byte),
		nonces:   make(map[common.Address]uint64),
		receipts: make(map[common.Hash]*coretypes.Receipt),
		counter:  new(big.Int),
	}
}

// DeployCounter registers a counter contract at a fixed address and returns
// it. The stored bytecode is an arbitrary non-empty stub; call semantics are
// interpreted in Go, not by an EVM.
func (b *Backend) DeployCounter(contractABI abi.ABI, owner common.Address) common.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	addr := common.HexToAddress("0x00000000000000000000000000000000c0ffee12")
	b.contract = addr
	b.abi = contractABI
	b.owner = owner
	b.codes[addr] = []byte{0x60, 0x80, 0x60, 0x40, 0x52}
	return addr
}

// SetCounter overrides the stored counter value.
func (b *Backend) SetCounter(v int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counter = big.NewInt(v)
}

// Counter returns a copy of the stored counter value.
func (b *Backend) Counter() *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.counter)
}

// RemoveCode drops the bytecode at an address, simulating a redeployment or
// a network whose chain lacks the contract.
func (b *Backend) RemoveCode(addr common.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.codes, addr)
}

// Calls reports how many backend methods have been invoked, letting tests
// assert that fast-fail paths never touch the network.
func (b *Backend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func (b *Backend) touch() {
	b.calls++
}

// ChainID implements the live network query.
func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touch()
	if b.ChainIDErr != nil {
		return nil, b.ChainIDErr
	}
	return new(big.Int).Set(b.chainID), nil
}

// CodeAt returns the registered bytecode.
func (b *Backend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touch()
	return b.codes[contract], nil
}

// PendingCodeAt mirrors CodeAt; the fake has no pending state.
func (b *Backend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return b.CodeAt(ctx, account, nil)
}

// CallContract interprets read calls against the counter contract. A call to
// an address without code returns empty data, exactly as a node would.
func (b *Backend) CallContract(ctx context.Context, call gethcore.CallMsg, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touch()
	if b.CallErr != nil {
		return nil, b.CallErr
	}
	if call.To == nil || len(b.codes[*call.To]) == 0 || *call.To != b.contract {
		return nil, nil
	}
	if len(call.Data) < 4 {
		return nil, nil
	}
	selector := [4]byte(call.Data[:4])
	switch {
	case selector == [4]byte(b.abi.Methods["getCounter"].ID[:4]):
		return b.abi.Methods["getCounter"].Outputs.Pack(new(big.Int).Set(b.counter))
	case selector == [4]byte(b.abi.Methods["owner"].ID[:4]):
		return b.abi.Methods["owner"].Outputs.Pack(b.owner)
	default:
		return nil, nil
	}
}

// HeaderByNumber returns a minimal head with a base fee so the bind layer
// builds dynamic-fee transactions.
func (b *Backend) HeaderByNumber(ctx context.Context, number *big.Int) (*coretypes.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touch()
	return &coretypes.Header{
		Number:  new(big.Int).SetUint64(b.blockNum),
		BaseFee: big.NewInt(1_000_000_000),
	}, nil
}

// PendingNonceAt hands out sequential nonces per account.
func (b *Backend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touch()
	return b.nonces[account], nil
}

// SuggestGasPrice returns a flat gas price.
func (b *Backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touch()
	return big.NewInt(1_000_000_000), nil
}

// SuggestGasTipCap returns a flat tip.
func (b *Backend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touch()
	return big.NewInt(1_000_000_000), nil
}

// EstimateGas returns a flat estimate.
func (b *Backend) EstimateGas(ctx context.Context, call gethcore.CallMsg) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touch()
	return 100_000, nil
}

// SendTransaction applies the mutating call and mines it immediately. A
// decrement below zero reverts, mirroring the deployed contract's guard.
func (b *Backend) SendTransaction(ctx context.Context, tx *coretypes.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touch()
	if b.SendErr != nil {
		return b.SendErr
	}
	if tx.To() == nil || *tx.To() != b.contract {
		return fmt.Errorf("unexpected transaction target %v", tx.To())
	}
	data := tx.Data()
	if len(data) < 4 {
		return errors.New("transaction carries no method selector")
	}

	status := coretypes.ReceiptStatusSuccessful
	selector := [4]byte(data[:4])
	switch {
	case selector == [4]byte(b.abi.Methods["incrementCounter"].ID[:4]):
		b.counter = new(big.Int).Add(b.counter, big.NewInt(1))
	case selector == [4]byte(b.abi.Methods["decrementCounter"].ID[:4]):
		if b.counter.Sign() == 0 {
			status = coretypes.ReceiptStatusFailed
		} else {
			b.counter = new(big.Int).Sub(b.counter, big.NewInt(1))
		}
	case selector == [4]byte(b.abi.Methods["resetCounter"].ID[:4]):
		b.counter = new(big.Int)
	default:
		status = coretypes.ReceiptStatusFailed
	}

	b.blockNum++
	from, err := coretypes.Sender(coretypes.LatestSignerForChainID(b.chainID), tx)
	if err == nil {
		b.nonces[from] = tx.Nonce() + 1
	}
	b.receipts[tx.Hash()] = &coretypes.Receipt{
		Status:      status,
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(b.blockNum),
		GasUsed:     42_000,
	}
	return nil
}

// TransactionReceipt returns the mined receipt, or ethereum.NotFound while
// the transaction is unknown (which keeps bind.WaitMined polling).
func (b *Backend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*coretypes.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touch()
	receipt, ok := b.receipts[txHash]
	if !ok {
		return nil, gethcore.NotFound
	}
	return receipt, nil
}

// FilterLogs returns no logs; the counter client subscribes to none.
func (b *Backend) FilterLogs(ctx context.Context, query gethcore.FilterQuery) ([]coretypes.Log, error) {
	return nil, nil
}

// SubscribeFilterLogs is unsupported in the scripted backend.
func (b *Backend) SubscribeFilterLogs(ctx context.Context, query gethcore.FilterQuery, ch chan<- coretypes.Log) (gethcore.Subscription, error) {
	return nil, errors.New("log subscriptions are not supported by the scripted backend")
}
