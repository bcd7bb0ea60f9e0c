package wallet

import (
	"context"
	"errors"
	"testing"

	apperrors "Counter-Chain/internal/errors"
	"Counter-Chain/internal/web3"
)

var sepolia = web3.NetworkDescriptor{
	ChainID:          11155111,
	Name:             "Sepolia Test Network",
	RPCURL:           "https://rpc.sepolia.org",
	BlockExplorerURL: "https://sepolia.etherscan.io",
}

type bridgeCall struct {
	method string
	args   []any
}

type fakeBridge struct {
	calls     []bridgeCall
	switchErr error
	addErr    error
}

func (f *fakeBridge) CallContext(ctx context.Context, result any, method string, args ...any) error {
	f.calls = append(f.calls, bridgeCall{method: method, args: args})
	switch method {
	case "wallet_switchEthereumChain":
		return f.switchErr
	case "wallet_addEthereumChain":
		return f.addErr
	default:
		return errors.New("unexpected method " + method)
	}
}

// providerError mimics the coded errors a wallet returns over JSON-RPC.
type providerError struct {
	code int
	msg  string
}

func (e *providerError) Error() string  { return e.msg }
func (e *providerError) ErrorCode() int { return e.code }

func TestReconcileSwitchesKnownChain(t *testing.T) {
	t.Parallel()

	bridge := &fakeBridge{}
	if err := NewReconciler(bridge, nil).Reconcile(context.Background(), sepolia); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if len(bridge.calls) != 1 {
		t.Fatalf("expected 1 wallet call, got %d", len(bridge.calls))
	}
	if bridge.calls[0].method != "wallet_switchEthereumChain" {
		t.Fatalf("unexpected method %s", bridge.calls[0].method)
	}
	param, ok := bridge.calls[0].args[0].(SwitchChainParam)
	if !ok {
		t.Fatalf("unexpected param type %T", bridge.calls[0].args[0])
	}
	if param.ChainID != "0xaa36a7" {
		t.Fatalf("unexpected chain id param %s", param.ChainID)
	}
}

func TestReconcileRegistersUnrecognizedChain(t *testing.T) {
	t.Parallel()

	bridge := &fakeBridge{switchErr: &providerError{code: 4902, msg: "Unrecognized chain ID"}}
	if err := NewReconciler(bridge, nil).Reconcile(context.Background(), sepolia); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if len(bridge.calls) != 2 {
		t.Fatalf("expected switch then add, got %d calls", len(bridge.calls))
	}
	if bridge.calls[1].method != "wallet_addEthereumChain" {
		t.Fatalf("unexpected fallback method %s", bridge.calls[1].method)
	}
	param, ok := bridge.calls[1].args[0].(AddChainParam)
	if !ok {
		t.Fatalf("unexpected param type %T", bridge.calls[1].args[0])
	}
	if param.ChainID != "0xaa36a7" || param.ChainName != "Sepolia Test Network" {
		t.Fatalf("unexpected add-chain params %+v", param)
	}
	if len(param.RPCURLs) != 1 || param.RPCURLs[0] != sepolia.RPCURL {
		t.Fatalf("unexpected rpc urls %v", param.RPCURLs)
	}
	if len(param.BlockExplorerURLs) != 1 || param.BlockExplorerURLs[0] != sepolia.BlockExplorerURL {
		t.Fatalf("unexpected explorer urls %v", param.BlockExplorerURLs)
	}
	if param.NativeCurrency != web3.DefaultNativeCurrency {
		t.Fatalf("unexpected native currency %+v", param.NativeCurrency)
	}
}

func TestReconcileSurfacesOtherRefusals(t *testing.T) {
	t.Parallel()

	bridge := &fakeBridge{switchErr: &providerError{code: 4001, msg: "User rejected the request"}}
	err := NewReconciler(bridge, nil).Reconcile(context.Background(), sepolia)
	if apperrors.CodeOf(err) != apperrors.CodeNetworkSwitch {
		t.Fatalf("expected NETWORK_SWITCH, got %v", err)
	}
	if len(bridge.calls) != 1 {
		t.Fatalf("refusal must not trigger registration, got %d calls", len(bridge.calls))
	}
	appErr, _ := apperrors.From(err)
	if appErr.Metadata()["network"] != "Sepolia Test Network" {
		t.Fatalf("error should name the required network, got %v", appErr.Metadata())
	}
}

func TestReconcileSurfacesRegistrationFailure(t *testing.T) {
	t.Parallel()

	bridge := &fakeBridge{
		switchErr: &providerError{code: 4902, msg: "Unrecognized chain ID"},
		addErr:    errors.New("wallet exploded"),
	}
	err := NewReconciler(bridge, nil).Reconcile(context.Background(), sepolia)
	if apperrors.CodeOf(err) != apperrors.CodeNetworkSwitch {
		t.Fatalf("expected NETWORK_SWITCH, got %v", err)
	}
}

func TestErrorCodeExtraction(t *testing.T) {
	t.Parallel()

	if _, ok := ErrorCode(errors.New("plain")); ok {
		t.Fatal("plain errors carry no provider code")
	}
	code, ok := ErrorCode(&providerError{code: 4902, msg: "x"})
	if !ok || code != CodeUnrecognizedChain {
		t.Fatalf("unexpected code %d ok=%v", code, ok)
	}
	if _, ok := ErrorCode(nil); ok {
		t.Fatal("nil error carries no provider code")
	}
}
