package wallet

import (
	"context"
	"fmt"
	"log/slog"

	"Counter-Chain/internal/errors"
	"Counter-Chain/internal/web3"
)

// Reconciler aligns the wallet's active chain with the network the contract
// is deployed on. The wallet is an external actor: either request may block
// on a user prompt until the wallet UI resolves it, and only the wallet can
// cancel that wait.
type Reconciler struct {
	bridge Bridge
	log    *slog.Logger
}

// NewReconciler constructs a reconciler over the wallet bridge.
func NewReconciler(bridge Bridge, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{bridge: bridge, log: log}
}

// Reconcile requests the wallet switch its active chain to the required
// network. When the wallet reports the chain as unrecognized (code 4902) the
// chain is registered via wallet_addEthereumChain, which switches as part of
// registration. Any other refusal is fatal to the attempt.
func (r *Reconciler) Reconcile(ctx context.Context, desc web3.NetworkDescriptor) error {
	if r == nil || r.bridge == nil {
		return errors.New(errors.CodeEnvironment, "钱包桥接未初始化")
	}

	switchErr := r.bridge.CallContext(ctx, nil, "wallet_switchEthereumChain", SwitchChainParam{ChainID: desc.ChainIDHex()})
	if switchErr == nil {
		r.log.Info("wallet switched chain", "network", desc.Name, "chain_id", desc.ChainIDHex())
		return nil
	}

	code, ok := ErrorCode(switchErr)
	if !ok || code != CodeUnrecognizedChain {
		return errors.Wrap(errors.CodeNetworkSwitch, switchErr,
			fmt.Sprintf("切换到网络 %s 失败", desc.Name),
			errors.WithMetadata("network", desc.Name))
	}

	r.log.Info("chain unknown to wallet, requesting registration", "network", desc.Name)
	if addErr := r.bridge.CallContext(ctx, nil, "wallet_addEthereumChain", AddChainParamFor(desc)); addErr != nil {
		return errors.Wrap(errors.CodeNetworkSwitch, addErr,
			fmt.Sprintf("向钱包注册网络 %s 失败", desc.Name),
			errors.WithMetadata("network", desc.Name))
	}
	r.log.Info("wallet registered chain", "network", desc.Name, "chain_id", desc.ChainIDHex())
	return nil
}
