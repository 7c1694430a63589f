package rpcclient

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Klingon-tech/cisp-wallet/config"
	klog "github.com/Klingon-tech/cisp-wallet/internal/log"
	"github.com/Klingon-tech/cisp-wallet/internal/rpc"
	"github.com/Klingon-tech/cisp-wallet/internal/storage"
	"github.com/Klingon-tech/cisp-wallet/internal/wallet"
)

const testPassword = "Correct-Horse9"

type testEnv struct {
	client  *Client
	service *wallet.Service
}

func setupTestEnv(t *testing.T, rpcCfg ...config.RPCConfig) *testEnv {
	t.Helper()
	klog.Init("error", false, "")

	store := wallet.NewStore(storage.NewMemory())
	t.Cleanup(store.Close)

	svc, err := wallet.NewService(wallet.ServiceConfig{
		Store:  store,
		Scheme: wallet.Scheme{KDF: wallet.KDFPBKDF2, Iterations: 1000, Cipher: wallet.CipherAESGCM},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	// Create and start RPC server on random port.
	srv := rpc.New("127.0.0.1:0", svc, rpcCfg...)
	if err := srv.Start(); err != nil {
		t.Fatalf("start rpc: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	return &testEnv{
		client:  New("http://" + srv.Addr() + "/"),
		service: svc,
	}
}

func TestClient_WalletLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	created, err := env.client.CreateWallet(ctx, "Alice", testPassword)
	if err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}
	addr := created.Wallet.Address
	if got := len(wallet.Mnemonic(created.Mnemonic).Words()); got != 24 {
		t.Errorf("mnemonic has %d words, want 24", got)
	}

	ok, err := env.client.VerifyWallet(ctx, addr, testPassword)
	if err != nil || !ok {
		t.Fatalf("VerifyWallet = %v, %v; want true", ok, err)
	}

	exp, err := env.client.ExportWallet(ctx, addr, testPassword)
	if err != nil {
		t.Fatalf("ExportWallet: %v", err)
	}
	if exp.Mnemonic != created.Mnemonic {
		t.Error("exported mnemonic differs from created one")
	}

	cur, err := env.client.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur == nil || cur.Address != addr {
		t.Fatalf("current = %+v, want %s", cur, addr)
	}

	if err := env.client.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	cur, err = env.client.Current(ctx)
	if err != nil || cur != nil {
		t.Fatalf("Current after disconnect = %+v, %v; want nil", cur, err)
	}

	if _, err := env.client.Connect(ctx, addr); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	const newPassword = "Battery-Staple7"
	if _, err := env.client.ChangePassword(ctx, addr, testPassword, newPassword); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if ok, _ := env.client.VerifyWallet(ctx, addr, testPassword); ok {
		t.Error("old password still verifies after change")
	}

	list, err := env.client.ListWallets(ctx)
	if err != nil {
		t.Fatalf("ListWallets: %v", err)
	}
	if len(list) != 1 || list[0].Address != addr {
		t.Fatalf("ListWallets = %+v", list)
	}

	if err := env.client.DeleteWallet(ctx, addr, newPassword); err != nil {
		t.Fatalf("DeleteWallet: %v", err)
	}
	_, err = env.client.GetWallet(ctx, addr)
	if !IsCode(err, rpc.CodeNotFound) {
		t.Fatalf("GetWallet after delete: %v, want code %d", err, rpc.CodeNotFound)
	}
}

func TestClient_RestoreAndDuplicate(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	const mnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

	restored, err := env.client.RestoreWallet(ctx, mnemonic, testPassword, "Restored")
	if err != nil {
		t.Fatalf("RestoreWallet: %v", err)
	}
	want, _ := wallet.AddressFromMnemonic(mnemonic)
	if restored.Address != want.String() {
		t.Errorf("address = %s, want %s", restored.Address, want)
	}

	_, err = env.client.RestoreWallet(ctx, mnemonic, testPassword, "Again")
	if !IsCode(err, rpc.CodeDuplicate) {
		t.Fatalf("second restore: %v, want code %d", err, rpc.CodeDuplicate)
	}
}

func TestClient_AuthFailure(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	created, err := env.client.CreateWallet(ctx, "Alice", testPassword)
	if err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}

	_, err = env.client.ExportWallet(ctx, created.Wallet.Address, "Wrong-Horse9")
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %T: %v", err, err)
	}
	if rpcErr.Code != rpc.CodeAuthFailed {
		t.Errorf("error code = %d, want %d", rpcErr.Code, rpc.CodeAuthFailed)
	}
}

func TestClient_PolicyViolationData(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.client.CreateWallet(context.Background(), "Alice", "weak")
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %T: %v", err, err)
	}
	if rpcErr.Code != rpc.CodeInvalidParams {
		t.Errorf("error code = %d, want %d", rpcErr.Code, rpc.CodeInvalidParams)
	}

	var violations []wallet.Violation
	if err := json.Unmarshal(rpcErr.Data, &violations); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(violations) == 0 {
		t.Error("expected violations in error data")
	}
}

func TestClient_StatelessHelpers(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	check, err := env.client.CheckPassword(ctx, "weak")
	if err != nil {
		t.Fatalf("CheckPassword: %v", err)
	}
	if check.Valid {
		t.Error("weak password reported valid")
	}

	res, err := env.client.ValidateMnemonic(ctx, "abandon abandon abandon")
	if err != nil {
		t.Fatalf("ValidateMnemonic: %v", err)
	}
	if res.Valid || res.WordCount != 3 {
		t.Errorf("ValidateMnemonic = %+v", res)
	}

	created, err := env.client.CreateWallet(ctx, "Alice", testPassword)
	if err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}
	png, err := env.client.AddressQR(ctx, created.Wallet.Address, 64)
	if err != nil {
		t.Fatalf("AddressQR: %v", err)
	}
	if png == "" {
		t.Error("empty QR image")
	}
}

func TestClient_Call_InvalidEndpoint(t *testing.T) {
	client := New("http://127.0.0.1:1/") // port 1, should refuse

	err := client.Call("wallet_list", nil, nil)
	if err == nil {
		t.Fatal("expected connection error")
	}
}

func TestClient_Call_MethodNotFound(t *testing.T) {
	env := setupTestEnv(t)

	var raw json.RawMessage
	err := env.client.Call("nonexistent_method", nil, &raw)
	if err == nil {
		t.Fatal("expected error for unknown method")
	}

	rpcErr, ok := err.(*RPCError)
	if !ok {
		t.Fatalf("expected RPCError, got %T: %v", err, err)
	}
	if rpcErr.Code != rpc.CodeMethodNotFound {
		t.Errorf("error code = %d, want %d", rpcErr.Code, rpc.CodeMethodNotFound)
	}
}

func TestClient_Call_Forbidden(t *testing.T) {
	env := setupTestEnv(t, config.RPCConfig{AllowedIPs: []string{"10.0.0.0/8"}})

	err := env.client.Call("wallet_list", nil, nil)
	if err == nil {
		t.Fatal("expected forbidden error")
	}
	if IsCode(err, rpc.CodeInternalError) {
		t.Errorf("forbidden should not be an RPCError: %v", err)
	}
}

func TestClient_CallContext_Cancelled(t *testing.T) {
	env := setupTestEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	err := env.client.CallContext(ctx, "wallet_list", nil, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}
