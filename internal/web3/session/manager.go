package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"Counter-Chain/internal/errors"
	"Counter-Chain/internal/web3/wallet"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Backend is the node surface the session depends on. *ethclient.Client
// satisfies it; tests use a scripted in-memory implementation.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// Session is the validated provider/signer/contract triple. A Session value
// only ever exists fully populated; "partially connected" is unrepresentable
// because the manager holds either a complete Session or nothing.
type Session struct {
	ID       string
	Backend  Backend
	Signer   wallet.Signer
	Wallet   common.Address
	Contract *bind.BoundContract
	Address  common.Address
	ChainID  *big.Int
}

// Manager owns the connection lifecycle: signer acquisition, contract
// validation and session construction. Construct one per client and pass it
// explicitly; there is no ambient shared instance.
//
// Connect is not safe for concurrent use with itself; callers must serialize
// connection attempts. The wallet serializes its own user prompts, so no
// further locking is required here.
type Manager struct {
	backend     Backend
	signer      wallet.Signer
	rawAddress  string
	contractABI abi.ABI
	log         *slog.Logger
	state       *Session
}

// NewManager wires the manager's collaborators. The contract address stays a
// raw string until Connect validates it.
func NewManager(backend Backend, signer wallet.Signer, contractAddress string, contractABI abi.ABI, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		backend:     backend,
		signer:      signer,
		rawAddress:  contractAddress,
		contractABI: contractABI,
		log:         log,
	}
}

// Connect establishes the session: it resolves the signer account, checks
// the configured address is well-formed, confirms bytecode is deployed there
// on the current chain and binds the contract handle. On any failure no
// session state survives; a retry starts over from the beginning.
func (m *Manager) Connect(ctx context.Context) error {
	m.state = nil

	if m.backend == nil {
		return errors.New(errors.CodeEnvironment, "当前环境没有可用的钱包提供方")
	}

	// Well-formedness is checked before the first network round trip so a
	// misconfigured address never reaches the wire.
	if !common.IsHexAddress(m.rawAddress) {
		return errors.New(errors.CodeInvalidAddress,
			fmt.Sprintf("合约地址 %q 不是合法的 20 字节十六进制地址", m.rawAddress))
	}
	addr := common.HexToAddress(m.rawAddress)

	if m.signer == nil {
		return errors.New(errors.CodeSignerUnavailable, "未配置交易签名器")
	}
	walletAddr, err := m.signer.Resolve(ctx)
	if err != nil {
		return err
	}

	// Informational only: a failed chain-id query does not gate the connect.
	chainID, err := m.backend.ChainID(ctx)
	if err != nil {
		m.log.Warn("chain id query failed during connect", "error", err)
		chainID = nil
	}

	code, err := m.backend.CodeAt(ctx, addr, nil)
	if err != nil {
		return errors.Wrap(errors.CodeReadFailed, err, "查询合约字节码失败")
	}
	if len(code) == 0 {
		return errors.New(errors.CodeContractNotDeployed,
			fmt.Sprintf("地址 %s 在当前链上没有合约字节码，请检查网络或合约配置", addr.Hex()),
			errors.WithMetadata("address", addr.Hex()))
	}

	m.state = &Session{
		ID:       uuid.NewString(),
		Backend:  m.backend,
		Signer:   m.signer,
		Wallet:   walletAddr,
		Contract: bind.NewBoundContract(addr, m.contractABI, m.backend, m.backend, m.backend),
		Address:  addr,
		ChainID:  chainID,
	}
	m.log.Info("session established",
		"session_id", m.state.ID,
		"wallet", walletAddr.Hex(),
		"contract", addr.Hex(),
		"chain_id", chainID)
	return nil
}

// IsConnected reports whether a validated contract handle is present. Pure
// query, no side effects.
func (m *Manager) IsConnected() bool {
	return m != nil && m.state != nil
}

// Disconnect tears the session down to the disconnected state.
func (m *Manager) Disconnect() {
	if m == nil || m.state == nil {
		return
	}
	m.log.Info("session closed", "session_id", m.state.ID)
	m.state = nil
}

// Session returns the live session, or a NOT_CONNECTED error when absent.
func (m *Manager) Session() (*Session, error) {
	if !m.IsConnected() {
		return nil, errors.New(errors.CodeNotConnected, "会话未建立，请先调用 Connect")
	}
	return m.state, nil
}

// Backend exposes the provider handle for diagnostic reads that are allowed
// to run without an established session.
func (m *Manager) Backend() Backend {
	if m == nil {
		return nil
	}
	return m.backend
}

// RawAddress returns the configured contract address string as-is, for
// diagnostics that must surface even a malformed value.
func (m *Manager) RawAddress() string {
	if m == nil {
		return ""
	}
	return m.rawAddress
}

// TargetAddress returns the configured contract address when well-formed.
func (m *Manager) TargetAddress() (common.Address, error) {
	if m == nil || !common.IsHexAddress(m.rawAddress) {
		return common.Address{}, errors.New(errors.CodeInvalidAddress, "")
	}
	return common.HexToAddress(m.rawAddress), nil
}
