package counter

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"Counter-Chain/internal/errors"
	"Counter-Chain/internal/web3"
	"Counter-Chain/internal/web3/session"
	"Counter-Chain/internal/web3/wallet"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	coretypes "github.com/ethereum/go-ethereum/core/types"
)

// Outcome is the confirmed result of a mutating call. It is only produced
// after the transaction is mined; submission alone never yields an Outcome.
type Outcome struct {
	TxHash      common.Hash
	BlockNumber *big.Int
	GasUsed     uint64
}

// NetworkInfo is the live provider view of the connected network.
type NetworkInfo struct {
	ChainID *big.Int
	Name    string
}

// DebugInfo aggregates a diagnostic snapshot for a human operator. It is
// populated best-effort: a missing deployment is data here, not an error.
type DebugInfo struct {
	ContractAddress string
	Network         NetworkInfo
	BytecodeHex     string
	Deployed        bool
	SessionID       string
}

// Gateway is the sole path for reads and writes against the validated
// contract handle. Mutating calls are serialized internally so two writes
// from the same session never race for a nonce; reads run concurrently.
type Gateway struct {
	mgr     *session.Manager
	table   web3.NetworkTable
	log     *slog.Logger
	journal *slog.Logger
	writeMu sync.Mutex
}

// NewGateway constructs a gateway over an explicitly owned session manager.
func NewGateway(mgr *session.Manager, table web3.NetworkTable, log, journal *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	if journal == nil {
		journal = log
	}
	return &Gateway{mgr: mgr, table: table, log: log, journal: journal}
}

// ReadCounter returns the current on-chain counter value.
//
// A read that comes back with no usable data is surfaced as STALE_DEPLOYMENT
// rather than READ_FAILED: the two look identical at the call site but the
// first means the chain/address relationship went inconsistent after connect
// (wrong network, redeployed contract), which no retry will fix.
func (g *Gateway) ReadCounter(ctx context.Context) (*big.Int, error) {
	sess, err := g.mgr.Session()
	if err != nil {
		return nil, err
	}

	var out []interface{}
	if err := sess.Contract.Call(&bind.CallOpts{Context: ctx}, &out, "getCounter"); err != nil {
		return nil, classifyRead(err, "读取计数器失败")
	}
	if len(out) == 0 {
		return nil, errors.New(errors.CodeStaleDeployment, "读取计数器返回空数据，合约可能已不在当前链上")
	}
	value := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	return value, nil
}

// IncrementCounter submits the increment transaction and waits for it to be
// mined before returning.
func (g *Gateway) IncrementCounter(ctx context.Context) (*Outcome, error) {
	return g.transact(ctx, "incrementCounter")
}

// DecrementCounter submits the decrement transaction and waits for it to be
// mined before returning.
func (g *Gateway) DecrementCounter(ctx context.Context) (*Outcome, error) {
	return g.transact(ctx, "decrementCounter")
}

// ResetCounter submits the reset transaction and waits for it to be mined
// before returning.
func (g *Gateway) ResetCounter(ctx context.Context) (*Outcome, error) {
	return g.transact(ctx, "resetCounter")
}

// Owner returns the contract owner's address.
func (g *Gateway) Owner(ctx context.Context) (common.Address, error) {
	sess, err := g.mgr.Session()
	if err != nil {
		return common.Address{}, err
	}

	var out []interface{}
	if err := sess.Contract.Call(&bind.CallOpts{Context: ctx}, &out, "owner"); err != nil {
		return common.Address{}, classifyRead(err, "读取合约所有者失败")
	}
	if len(out) == 0 {
		return common.Address{}, errors.New(errors.CodeStaleDeployment, "读取合约所有者返回空数据")
	}
	owner := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	return owner, nil
}

// WalletAddress returns the signer's account for the live session.
func (g *Gateway) WalletAddress() (common.Address, error) {
	sess, err := g.mgr.Session()
	if err != nil {
		return common.Address{}, err
	}
	return sess.Wallet, nil
}

// NetworkInfo queries the live provider for the active chain and resolves
// its display name from the network table.
func (g *Gateway) NetworkInfo(ctx context.Context) (NetworkInfo, error) {
	backend := g.mgr.Backend()
	if backend == nil {
		return NetworkInfo{}, errors.New(errors.CodeNotConnected, "没有可用的网络提供方")
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return NetworkInfo{}, errors.Wrap(errors.CodeReadFailed, err, "查询链 ID 失败")
	}
	return NetworkInfo{ChainID: chainID, Name: g.networkName(chainID)}, nil
}

// DebugInfo gathers the diagnostic snapshot. It only fails when no provider
// is present at all; "not deployed" is reported in the snapshot itself.
func (g *Gateway) DebugInfo(ctx context.Context) (*DebugInfo, error) {
	backend := g.mgr.Backend()
	if backend == nil {
		return nil, errors.New(errors.CodeNotConnected, "没有可用的网络提供方")
	}

	info := &DebugInfo{ContractAddress: g.mgr.RawAddress()}

	if chainID, err := backend.ChainID(ctx); err == nil {
		info.Network = NetworkInfo{ChainID: chainID, Name: g.networkName(chainID)}
	} else {
		g.log.Warn("debug snapshot: chain id query failed", "error", err)
	}

	if addr, err := g.mgr.TargetAddress(); err == nil {
		code, codeErr := backend.CodeAt(ctx, addr, nil)
		if codeErr != nil {
			g.log.Warn("debug snapshot: bytecode query failed", "error", codeErr)
		} else {
			info.BytecodeHex = hexutil.Encode(code)
			info.Deployed = len(code) > 0
		}
	}

	if sess, err := g.mgr.Session(); err == nil {
		info.SessionID = sess.ID
	}
	return info, nil
}

// transact is the shared two-phase write path: submit, then block until the
// transaction is mined. The write mutex keeps nonce assignment ordered.
func (g *Gateway) transact(ctx context.Context, method string) (*Outcome, error) {
	sess, err := g.mgr.Session()
	if err != nil {
		return nil, err
	}

	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	chainID := sess.ChainID
	if chainID == nil {
		chainID, err = sess.Backend.ChainID(ctx)
		if err != nil {
			return nil, errors.Wrap(errors.CodeTransactionFailed, err, "查询链 ID 失败，无法构造交易")
		}
	}

	opts, err := sess.Signer.TransactOpts(ctx, chainID)
	if err != nil {
		return nil, err
	}

	tx, err := sess.Contract.Transact(opts, method)
	if err != nil {
		return nil, errors.Wrap(errors.CodeTransactionFailed, err,
			fmt.Sprintf("提交 %s 交易失败", method),
			errors.WithMetadata("method", method),
			errors.WithMetadata("reason", submitReason(err)))
	}

	g.journal.Info("transaction submitted",
		"session_id", sess.ID,
		"method", method,
		"tx", tx.Hash().Hex(),
		"nonce", tx.Nonce())

	receipt, err := bind.WaitMined(ctx, sess.Backend, tx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeTransactionFailed, err,
			fmt.Sprintf("等待 %s 交易确认失败", method),
			errors.WithMetadata("method", method),
			errors.WithMetadata("reason", "confirmation"))
	}
	if receipt.Status != coretypes.ReceiptStatusSuccessful {
		g.journal.Warn("transaction reverted",
			"session_id", sess.ID,
			"method", method,
			"tx", tx.Hash().Hex(),
			"block", receipt.BlockNumber)
		return nil, errors.New(errors.CodeTransactionFailed,
			fmt.Sprintf("%s 交易在链上回滚", method),
			errors.WithMetadata("method", method),
			errors.WithMetadata("reason", "reverted"),
			errors.WithMetadata("tx", tx.Hash().Hex()))
	}

	g.journal.Info("transaction confirmed",
		"session_id", sess.ID,
		"method", method,
		"tx", tx.Hash().Hex(),
		"block", receipt.BlockNumber,
		"gas_used", receipt.GasUsed)

	return &Outcome{
		TxHash:      tx.Hash(),
		BlockNumber: receipt.BlockNumber,
		GasUsed:     receipt.GasUsed,
	}, nil
}

func (g *Gateway) networkName(chainID *big.Int) string {
	if name := g.table.NameByChainID(chainID); name != "" {
		if desc, ok := g.table.Descriptor(name); ok && desc.Name != "" {
			return desc.Name
		}
		return name
	}
	return "unknown"
}

// classifyRead splits read failures into the stale-deployment class (the
// node answered, but with the shape it produces when no matching code lives
// at the call target) and plain transport/execution failures.
func classifyRead(err error, message string) error {
	if isStaleSignal(err) {
		return errors.Wrap(errors.CodeStaleDeployment, err, message+"：目标地址上没有匹配的合约代码")
	}
	return errors.Wrap(errors.CodeReadFailed, err, message)
}

func isStaleSignal(err error) bool {
	if stdErrors.Is(err, bind.ErrNoCode) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "BAD_DATA") ||
		strings.Contains(msg, "attempting to unmarshal an empty string")
}

func submitReason(err error) string {
	if code, ok := wallet.ErrorCode(err); ok && code == wallet.CodeUserRejected {
		return "user_rejected"
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "denied") || strings.Contains(msg, "rejected") {
		return "user_rejected"
	}
	return "submission"
}
