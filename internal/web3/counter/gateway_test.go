package counter

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	apperrors "Counter-Chain/internal/errors"
	"Counter-Chain/internal/web3"
	"Counter-Chain/internal/web3/session"
	"Counter-Chain/internal/web3/wallet"
	"Counter-Chain/internal/web3/web3test"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var testOwner = common.HexToAddress("0x2222222222222222222222222222222222222222")

var testTable = web3.NetworkTable{
	Current: "localhost",
	Networks: map[string]web3.NetworkDescriptor{
		"localhost": {ChainID: 31337, Name: "Localhost 8545", RPCURL: "http://127.0.0.1:8545"},
	},
}

type fixture struct {
	backend *web3test.Backend
	mgr     *session.Manager
	gateway *Gateway
	signer  *wallet.KeySigner
	addr    common.Address
}

func newFixture(t *testing.T, connect bool) *fixture {
	t.Helper()

	parsed, err := ABI()
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer, err := wallet.NewKeySigner(hex.EncodeToString(crypto.FromECDSA(key)))
	if err != nil {
		t.Fatalf("new key signer: %v", err)
	}

	backend := web3test.NewBackend(31337)
	addr := backend.DeployCounter(parsed, testOwner)
	mgr := session.NewManager(backend, signer, addr.Hex(), parsed, nil)
	if connect {
		if err := mgr.Connect(context.Background()); err != nil {
			t.Fatalf("connect: %v", err)
		}
	}
	return &fixture{
		backend: backend,
		mgr:     mgr,
		gateway: NewGateway(mgr, testTable, nil, nil),
		signer:  signer,
		addr:    addr,
	}
}

func TestReadCounterRequiresSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	before := f.backend.Calls()

	if _, err := f.gateway.ReadCounter(context.Background()); apperrors.CodeOf(err) != apperrors.CodeNotConnected {
		t.Fatalf("expected NOT_CONNECTED, got %v", err)
	}
	if f.backend.Calls() != before {
		t.Fatal("pre-session read must not touch the network")
	}

	if _, err := f.gateway.Owner(context.Background()); apperrors.CodeOf(err) != apperrors.CodeNotConnected {
		t.Fatalf("expected NOT_CONNECTED from Owner, got %v", err)
	}
	if _, err := f.gateway.WalletAddress(); apperrors.CodeOf(err) != apperrors.CodeNotConnected {
		t.Fatalf("expected NOT_CONNECTED from WalletAddress, got %v", err)
	}
	if _, err := f.gateway.IncrementCounter(context.Background()); apperrors.CodeOf(err) != apperrors.CodeNotConnected {
		t.Fatalf("expected NOT_CONNECTED from IncrementCounter, got %v", err)
	}
}

func TestReadCounterIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	f.backend.SetCounter(7)

	first, err := f.gateway.ReadCounter(context.Background())
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	second, err := f.gateway.ReadCounter(context.Background())
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if first.Cmp(second) != 0 {
		t.Fatalf("reads diverged: %v vs %v", first, second)
	}
	if first.Int64() != 7 {
		t.Fatalf("unexpected counter %v", first)
	}
}

func TestMutationRoundTrip(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	f.backend.SetCounter(5)
	ctx := context.Background()

	outcome, err := f.gateway.IncrementCounter(ctx)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if outcome.TxHash == (common.Hash{}) {
		t.Fatal("outcome must carry the transaction hash")
	}
	if outcome.BlockNumber == nil || outcome.BlockNumber.Sign() <= 0 {
		t.Fatalf("outcome must carry the inclusion block, got %v", outcome.BlockNumber)
	}
	if v, _ := f.gateway.ReadCounter(ctx); v.Int64() != 6 {
		t.Fatalf("expected 6 after increment, got %v", v)
	}

	if _, err := f.gateway.DecrementCounter(ctx); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if v, _ := f.gateway.ReadCounter(ctx); v.Int64() != 5 {
		t.Fatalf("expected 5 after decrement, got %v", v)
	}

	if _, err := f.gateway.ResetCounter(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if v, _ := f.gateway.ReadCounter(ctx); v.Sign() != 0 {
		t.Fatalf("expected 0 after reset, got %v", v)
	}
}

func TestDecrementRevertSurfacesAsFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	f.backend.SetCounter(0)

	_, err := f.gateway.DecrementCounter(context.Background())
	if apperrors.CodeOf(err) != apperrors.CodeTransactionFailed {
		t.Fatalf("expected TRANSACTION_FAILED, got %v", err)
	}
	appErr, _ := apperrors.From(err)
	if appErr.Metadata()["reason"] != "reverted" {
		t.Fatalf("expected reverted reason, got %v", appErr.Metadata())
	}
	if f.backend.Counter().Sign() != 0 {
		t.Fatal("reverted decrement must not change state")
	}
}

func TestReadClassifiesBadDataAsStale(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	f.backend.CallErr = errors.New(`could not decode result data (value="0x") code=BAD_DATA`)

	_, err := f.gateway.ReadCounter(context.Background())
	if apperrors.CodeOf(err) != apperrors.CodeStaleDeployment {
		t.Fatalf("expected STALE_DEPLOYMENT for BAD_DATA, got %v", err)
	}

	f.backend.CallErr = errors.New("connection refused")
	_, err = f.gateway.ReadCounter(context.Background())
	if apperrors.CodeOf(err) != apperrors.CodeReadFailed {
		t.Fatalf("expected READ_FAILED for transport error, got %v", err)
	}
}

func TestReadClassifiesVanishedCodeAsStale(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	f.backend.RemoveCode(f.addr)

	_, err := f.gateway.ReadCounter(context.Background())
	if apperrors.CodeOf(err) != apperrors.CodeStaleDeployment {
		t.Fatalf("expected STALE_DEPLOYMENT after code vanished, got %v", err)
	}
}

// rejectionError mimics a wallet-coded signing refusal.
type rejectionError struct{}

func (rejectionError) Error() string  { return "User rejected the request" }
func (rejectionError) ErrorCode() int { return 4001 }

func TestSubmitFailureDistinguishesUserRejection(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	f.backend.SendErr = rejectionError{}

	_, err := f.gateway.IncrementCounter(context.Background())
	if apperrors.CodeOf(err) != apperrors.CodeTransactionFailed {
		t.Fatalf("expected TRANSACTION_FAILED, got %v", err)
	}
	appErr, _ := apperrors.From(err)
	if appErr.Metadata()["reason"] != "user_rejected" {
		t.Fatalf("expected user_rejected reason, got %v", appErr.Metadata())
	}
}

func TestOwnerAndWalletAddress(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)

	owner, err := f.gateway.Owner(context.Background())
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if owner != testOwner {
		t.Fatalf("unexpected owner %s", owner.Hex())
	}

	walletAddr, err := f.gateway.WalletAddress()
	if err != nil {
		t.Fatalf("wallet address: %v", err)
	}
	resolved, _ := f.signer.Resolve(context.Background())
	if walletAddr != resolved {
		t.Fatalf("unexpected wallet address %s", walletAddr.Hex())
	}
}

func TestNetworkInfoResolvesTableName(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)

	info, err := f.gateway.NetworkInfo(context.Background())
	if err != nil {
		t.Fatalf("network info: %v", err)
	}
	if info.ChainID.Int64() != 31337 {
		t.Fatalf("unexpected chain id %v", info.ChainID)
	}
	if info.Name != "Localhost 8545" {
		t.Fatalf("unexpected network name %q", info.Name)
	}
}

func TestDebugInfoNeverFailsForMissingDeployment(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)

	info, err := f.gateway.DebugInfo(context.Background())
	if err != nil {
		t.Fatalf("debug info: %v", err)
	}
	if !info.Deployed {
		t.Fatal("expected deployed contract in snapshot")
	}
	if !strings.HasPrefix(info.BytecodeHex, "0x") || info.BytecodeHex == "0x" {
		t.Fatalf("unexpected bytecode %q", info.BytecodeHex)
	}
	if info.SessionID == "" {
		t.Fatal("snapshot should carry the session id")
	}

	f.backend.RemoveCode(f.addr)
	info, err = f.gateway.DebugInfo(context.Background())
	if err != nil {
		t.Fatalf("debug info after removal: %v", err)
	}
	if info.Deployed {
		t.Fatal("snapshot must report the missing deployment, not fail")
	}
}

func TestDebugInfoWorksBeforeConnect(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)

	info, err := f.gateway.DebugInfo(context.Background())
	if err != nil {
		t.Fatalf("debug info: %v", err)
	}
	if info.SessionID != "" {
		t.Fatal("no session id expected before connect")
	}
	if info.ContractAddress != f.addr.Hex() {
		t.Fatalf("unexpected address %q", info.ContractAddress)
	}
}
