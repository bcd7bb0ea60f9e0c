package wallet

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"Counter-Chain/internal/errors"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/external"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer authorizes transactions on behalf of one account. The clef driver
// defers to an external signer process that prompts the user and may refuse;
// the key driver signs locally and exists for development and tests.
type Signer interface {
	// Resolve returns the active account, failing when the wallet has no
	// unlocked account to offer.
	Resolve(ctx context.Context) (common.Address, error)
	// TransactOpts builds bind options whose Signer func authorizes through
	// this signer. The returned opts carry ctx for the submission phase.
	TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error)
}

// ClefSigner wraps a clef-style external signer endpoint.
type ClefSigner struct {
	signer *external.ExternalSigner
}

// NewClefSigner dials the external signer endpoint.
func NewClefSigner(endpoint string) (*ClefSigner, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New(errors.CodeEnvironment, "未配置外部签名器端点")
	}
	signer, err := external.NewExternalSigner(endpoint)
	if err != nil {
		return nil, errors.Wrap(errors.CodeEnvironment, err, "连接外部签名器失败")
	}
	return &ClefSigner{signer: signer}, nil
}

// Resolve returns the first account the external signer exposes.
func (s *ClefSigner) Resolve(ctx context.Context) (common.Address, error) {
	if s == nil || s.signer == nil {
		return common.Address{}, errors.New(errors.CodeSignerUnavailable, "外部签名器未初始化")
	}
	accts := s.signer.Accounts()
	if len(accts) == 0 {
		return common.Address{}, errors.New(errors.CodeSignerUnavailable, "钱包中没有已解锁的账户")
	}
	return accts[0].Address, nil
}

// TransactOpts routes signing through the external signer. The signer side
// may prompt the user; a refusal surfaces as the signing error.
func (s *ClefSigner) TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	from, err := s.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	id := new(big.Int).Set(chainID)
	return &bind.TransactOpts{
		From:    from,
		Context: ctx,
		Signer: func(addr common.Address, tx *coretypes.Transaction) (*coretypes.Transaction, error) {
			return s.signer.SignTx(accounts.Account{Address: addr}, tx, id)
		},
	}, nil
}

// KeySigner signs with an in-process private key.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewKeySigner parses a hex-encoded private key.
func NewKeySigner(keyHex string) (*KeySigner, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(keyHex), "0x")
	if trimmed == "" {
		return nil, errors.New(errors.CodeSignerUnavailable, "未配置本地签名私钥")
	}
	key, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, errors.Wrap(errors.CodeSignerUnavailable, err, "解析本地签名私钥失败")
	}
	return &KeySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Resolve returns the key's account address.
func (s *KeySigner) Resolve(ctx context.Context) (common.Address, error) {
	if s == nil || s.key == nil {
		return common.Address{}, errors.New(errors.CodeSignerUnavailable, "本地签名器未初始化")
	}
	return s.address, nil
}

// TransactOpts builds keyed bind options for the given chain.
func (s *KeySigner) TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	if _, err := s.Resolve(ctx); err != nil {
		return nil, err
	}
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, chainID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeSignerUnavailable, err, "构造本地签名器失败")
	}
	opts.Context = ctx
	return opts, nil
}
