package wallet

import (
	"context"
	stdErrors "errors"
	"strings"

	"Counter-Chain/internal/errors"
	"Counter-Chain/internal/web3"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// Bridge is the raw request surface of the user's wallet provider. It is the
// subset of *rpc.Client the session layer depends on, kept narrow so tests
// can script wallet behaviour without a live endpoint.
type Bridge interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
}

// ProviderErrorCode is the closed set of EIP-1193/EIP-3326 error codes this
// client branches on. Anything outside the set is treated as opaque.
type ProviderErrorCode int

const (
	CodeUserRejected      ProviderErrorCode = 4001
	CodeUnauthorized      ProviderErrorCode = 4100
	CodeUnsupportedMethod ProviderErrorCode = 4200
	CodeDisconnected      ProviderErrorCode = 4900
	CodeChainDisconnected ProviderErrorCode = 4901
	// CodeUnrecognizedChain signals the wallet does not know the requested
	// chain and wallet_addEthereumChain must be issued first.
	CodeUnrecognizedChain ProviderErrorCode = 4902
)

// ErrorCode extracts the provider error code from a wallet response error.
func ErrorCode(err error) (ProviderErrorCode, bool) {
	if err == nil {
		return 0, false
	}
	var rpcErr gethrpc.Error
	if stdErrors.As(err, &rpcErr) {
		return ProviderErrorCode(rpcErr.ErrorCode()), true
	}
	return 0, false
}

// SwitchChainParam is the single parameter of wallet_switchEthereumChain.
type SwitchChainParam struct {
	ChainID string `json:"chainId"`
}

// AddChainParam is the single parameter of wallet_addEthereumChain.
type AddChainParam struct {
	ChainID           string              `json:"chainId"`
	ChainName         string              `json:"chainName"`
	RPCURLs           []string            `json:"rpcUrls"`
	BlockExplorerURLs []string            `json:"blockExplorerUrls"`
	NativeCurrency    web3.NativeCurrency `json:"nativeCurrency"`
}

// AddChainParamFor builds the registration payload for a network descriptor.
func AddChainParamFor(desc web3.NetworkDescriptor) AddChainParam {
	param := AddChainParam{
		ChainID:        desc.ChainIDHex(),
		ChainName:      desc.Name,
		RPCURLs:        []string{desc.RPCURL},
		NativeCurrency: web3.DefaultNativeCurrency,
	}
	if strings.TrimSpace(desc.BlockExplorerURL) != "" {
		param.BlockExplorerURLs = []string{desc.BlockExplorerURL}
	}
	return param
}

// Dial connects to the wallet-capable RPC endpoint. A missing or unreachable
// endpoint is the Go rendering of "no injected provider in this environment".
func Dial(ctx context.Context, url string) (*gethrpc.Client, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New(errors.CodeEnvironment, "未配置钱包 RPC 端点")
	}
	client, err := gethrpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrap(errors.CodeEnvironment, err, "连接钱包端点失败")
	}
	return client, nil
}
