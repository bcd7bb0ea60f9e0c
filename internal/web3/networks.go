package web3

import (
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// NetworkDescriptor describes one supported network. Descriptors are
// immutable once loaded; the table is static configuration, not state.
type NetworkDescriptor struct {
	ChainID          uint64 `yaml:"chain_id"`
	Name             string `yaml:"name"`
	RPCURL           string `yaml:"rpc_url"`
	BlockExplorerURL string `yaml:"block_explorer_url"`
}

// ChainIDBig returns the chain id as a big integer for RPC comparisons.
func (d NetworkDescriptor) ChainIDBig() *big.Int {
	return new(big.Int).SetUint64(d.ChainID)
}

// ChainIDHex returns the 0x-prefixed hex chain id used by wallet_* methods.
func (d NetworkDescriptor) ChainIDHex() string {
	return fmt.Sprintf("0x%x", d.ChainID)
}

// NativeCurrency describes the chain's native token for wallet registration.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// DefaultNativeCurrency is supplied with every wallet_addEthereumChain
// request. All supported networks here are EVM testnets settling in ether.
var DefaultNativeCurrency = NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18}

// NetworkTable models the structure of configs/networks.yaml: a set of named
// network descriptors and the designated current entry.
type NetworkTable struct {
	Current  string                       `yaml:"current"`
	Networks map[string]NetworkDescriptor `yaml:"networks"`
}

// LoadNetworkTable parses the YAML file containing the network descriptors.
func LoadNetworkTable(path string) (NetworkTable, error) {
	if strings.TrimSpace(path) == "" {
		return NetworkTable{}, fmt.Errorf("未配置网络描述表路径")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return NetworkTable{}, fmt.Errorf("读取网络描述表失败: %w", err)
	}

	var table NetworkTable
	if err := yaml.Unmarshal(content, &table); err != nil {
		return NetworkTable{}, fmt.Errorf("解析网络描述表失败: %w", err)
	}
	if len(table.Networks) == 0 {
		return NetworkTable{}, fmt.Errorf("网络描述表为空")
	}
	for name, desc := range table.Networks {
		if desc.ChainID == 0 {
			return NetworkTable{}, fmt.Errorf("网络 %s 缺少 chain_id", name)
		}
		if strings.TrimSpace(desc.RPCURL) == "" {
			return NetworkTable{}, fmt.Errorf("网络 %s 缺少 rpc_url", name)
		}
		if strings.TrimSpace(desc.Name) == "" {
			desc.Name = name
			table.Networks[name] = desc
		}
	}
	return table, nil
}

// Descriptor returns the named network descriptor.
func (t NetworkTable) Descriptor(name string) (NetworkDescriptor, bool) {
	desc, ok := t.Networks[name]
	return desc, ok
}

// CurrentDescriptor resolves the designated current network. An explicit
// override takes precedence over the table's own designation.
func (t NetworkTable) CurrentDescriptor(override string) (NetworkDescriptor, error) {
	name := strings.TrimSpace(override)
	if name == "" {
		name = strings.TrimSpace(t.Current)
	}
	if name == "" {
		return NetworkDescriptor{}, fmt.Errorf("未指定当前网络")
	}
	desc, ok := t.Networks[name]
	if !ok {
		return NetworkDescriptor{}, fmt.Errorf("当前网络 %s 未在描述表中定义", name)
	}
	return desc, nil
}

// NameByChainID maps a live chain id back to a table entry name, or the
// empty string when the chain is not part of the table.
func (t NetworkTable) NameByChainID(chainID *big.Int) string {
	if chainID == nil {
		return ""
	}
	for name, desc := range t.Networks {
		if chainID.IsUint64() && desc.ChainID == chainID.Uint64() {
			return name
		}
	}
	return ""
}

// Names returns the sorted list of configured network names.
func (t NetworkTable) Names() []string {
	names := make([]string, 0, len(t.Networks))
	for name := range t.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
