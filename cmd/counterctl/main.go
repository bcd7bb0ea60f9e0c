package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"Counter-Chain/internal/config"
	"Counter-Chain/internal/web3"
	"Counter-Chain/internal/web3/counter"
	"Counter-Chain/internal/web3/session"
	"Counter-Chain/internal/web3/wallet"
	"Counter-Chain/pkg/logger"

	"github.com/ethereum/go-ethereum/ethclient"
)

// main 是 counterctl 命令行工具的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		log.Fatalf("counterctl 运行失败: %v", err)
	}
}

func run(ctx context.Context, args []string) error {
	command := "read"
	if len(args) > 0 {
		command = args[0]
	}

	configPath := os.Getenv("COUNTER_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "counter.json")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.OutputPaths,
		Journal: logger.JournalConfig{
			Enabled:    cfg.Logging.Journal.Enabled,
			Path:       cfg.Logging.Journal.Path,
			MaxSizeMB:  cfg.Logging.Journal.MaxSizeMB,
			MaxBackups: cfg.Logging.Journal.MaxBackups,
			MaxAgeDays: cfg.Logging.Journal.MaxAgeDays,
		},
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	table, err := web3.LoadNetworkTable(cfg.Networks.Table)
	if err != nil {
		return err
	}
	current, err := table.CurrentDescriptor(cfg.Networks.Current)
	if err != nil {
		return err
	}

	// 钱包桥接同时承载节点方法与 wallet_* 方法。
	bridge, err := wallet.Dial(ctx, cfg.Wallet.RPCURL)
	if err != nil {
		return err
	}
	defer bridge.Close()
	backend := ethclient.NewClient(bridge)

	signer, err := createSigner(cfg)
	if err != nil {
		return err
	}

	contractABI, err := counter.ABI()
	if err != nil {
		return err
	}

	mgr := session.NewManager(backend, signer, cfg.Contract.Address, contractABI, logger.Named("session"))
	gateway := counter.NewGateway(mgr, table, logger.Named("gateway"), logger.Journal())
	reconciler := wallet.NewReconciler(bridge, logger.Named("wallet"))

	switch command {
	case "reconcile":
		if err := reconciler.Reconcile(ctx, current); err != nil {
			return err
		}
		fmt.Printf("钱包已对齐到网络 %s (chain id %s)\n", current.Name, current.ChainIDHex())
		return nil
	case "debug":
		// 诊断快照无需建立会话。
		info, err := gateway.DebugInfo(ctx)
		if err != nil {
			return err
		}
		encoded, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	if err := mgr.Connect(ctx); err != nil {
		return err
	}
	defer mgr.Disconnect()

	switch command {
	case "read":
		value, err := gateway.ReadCounter(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("counter = %s\n", value)
	case "increment", "decrement", "reset":
		outcome, err := mutate(ctx, gateway, command)
		if err != nil {
			return err
		}
		fmt.Printf("交易已确认: tx=%s block=%s gas=%d\n",
			outcome.TxHash.Hex(), outcome.BlockNumber, outcome.GasUsed)
	case "owner":
		owner, err := gateway.Owner(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("owner = %s\n", owner.Hex())
	case "wallet":
		addr, err := gateway.WalletAddress()
		if err != nil {
			return err
		}
		fmt.Printf("wallet = %s\n", addr.Hex())
	case "network":
		info, err := gateway.NetworkInfo(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("network = %s (chain id %s)\n", info.Name, info.ChainID)
	default:
		return fmt.Errorf("未知命令 %s，支持: read increment decrement reset owner wallet network debug reconcile", command)
	}
	return nil
}

func mutate(ctx context.Context, gateway *counter.Gateway, command string) (*counter.Outcome, error) {
	switch command {
	case "increment":
		return gateway.IncrementCounter(ctx)
	case "decrement":
		return gateway.DecrementCounter(ctx)
	default:
		return gateway.ResetCounter(ctx)
	}
}

// createSigner 根据配置选择签名方式。
func createSigner(cfg *config.Config) (wallet.Signer, error) {
	switch cfg.Wallet.Signer.Driver {
	case "", "clef":
		return wallet.NewClefSigner(cfg.Wallet.Signer.Endpoint)
	case "key":
		return wallet.NewKeySigner(cfg.Wallet.Signer.KeyHex)
	default:
		return nil, fmt.Errorf("不支持的签名驱动 %s", cfg.Wallet.Signer.Driver)
	}
}
