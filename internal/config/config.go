package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Config 描述了客户端在启动阶段需要加载的核心配置。
type Config struct {
	Wallet   WalletConfig   `json:"wallet"`
	Contract ContractConfig `json:"contract"`
	Networks NetworksConfig `json:"networks"`
	Logging  LoggingConfig  `json:"logging"`
}

// WalletConfig 描述钱包桥接端点以及签名方式。
type WalletConfig struct {
	RPCURL string       `json:"rpc_url"`
	Signer SignerConfig `json:"signer"`
}

// SignerConfig 选择交易授权方式。driver 支持 clef（外部签名器，
// 由钱包侧提示用户确认）和 key（本地私钥，仅用于开发调试）。
type SignerConfig struct {
	Driver   string `json:"driver"`
	Endpoint string `json:"endpoint"`
	KeyHex   string `json:"key_hex"`
}

// ContractConfig 指定目标合约的部署地址。
type ContractConfig struct {
	Address string `json:"address"`
}

// NetworksConfig 指定网络描述表文件以及当前指定的网络名。
type NetworksConfig struct {
	Table   string `json:"table"`
	Current string `json:"current"`
}

// LoggingConfig 控制结构化日志与交易流水的输出方式。
type LoggingConfig struct {
	Level       string        `json:"level"`
	Format      string        `json:"format"`
	OutputPaths []string      `json:"output_paths"`
	Journal     JournalConfig `json:"journal"`
}

// JournalConfig 控制交易流水日志的落盘与滚动策略。
type JournalConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))

	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Wallet.Signer.Driver == "" {
		c.Wallet.Signer.Driver = "clef"
	}

	if c.Wallet.Signer.Endpoint == "" {
		c.Wallet.Signer.Endpoint = "http://127.0.0.1:8550"
	}

	if c.Networks.Table == "" {
		c.Networks.Table = filepath.Join(baseDir, "networks.yaml")
	} else if !filepath.IsAbs(c.Networks.Table) {
		c.Networks.Table = filepath.Join(baseDir, c.Networks.Table)
	}

	if c.Networks.Current == "" {
		c.Networks.Current = "sepolia"
	}

	if c.Logging.Journal.Enabled && c.Logging.Journal.Path == "" {
		c.Logging.Journal.Path = filepath.Join(baseDir, "logs", "journal.log")
	}
}
