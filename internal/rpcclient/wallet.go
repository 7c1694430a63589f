package rpcclient

import (
	"context"

	"github.com/Klingon-tech/cisp-wallet/internal/rpc"
)

// CreateWallet calls wallet_create.
func (c *Client) CreateWallet(ctx context.Context, name, password string) (*rpc.WalletCreateResult, error) {
	var result rpc.WalletCreateResult
	err := c.CallContext(ctx, "wallet_create", rpc.WalletCreateParam{Name: name, Password: password}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RestoreWallet calls wallet_restore.
func (c *Client) RestoreWallet(ctx context.Context, mnemonic, password, name string) (*rpc.WalletResult, error) {
	var result rpc.WalletResult
	params := rpc.WalletRestoreParam{Mnemonic: mnemonic, Password: password, Name: name}
	if err := c.CallContext(ctx, "wallet_restore", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// VerifyWallet calls wallet_verify.
func (c *Client) VerifyWallet(ctx context.Context, address, password string) (bool, error) {
	var result rpc.WalletVerifyResult
	params := rpc.WalletUnlockParam{Address: address, Password: password}
	if err := c.CallContext(ctx, "wallet_verify", params, &result); err != nil {
		return false, err
	}
	return result.Valid, nil
}

// ExportWallet calls wallet_export.
func (c *Client) ExportWallet(ctx context.Context, address, password string) (*rpc.WalletExportResult, error) {
	var result rpc.WalletExportResult
	params := rpc.WalletUnlockParam{Address: address, Password: password}
	if err := c.CallContext(ctx, "wallet_export", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ChangePassword calls wallet_changePassword.
func (c *Client) ChangePassword(ctx context.Context, address, oldPassword, newPassword string) (*rpc.WalletResult, error) {
	var result rpc.WalletResult
	params := rpc.WalletChangePasswordParam{Address: address, OldPassword: oldPassword, NewPassword: newPassword}
	if err := c.CallContext(ctx, "wallet_changePassword", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteWallet calls wallet_delete.
func (c *Client) DeleteWallet(ctx context.Context, address, password string) error {
	params := rpc.WalletUnlockParam{Address: address, Password: password}
	return c.CallContext(ctx, "wallet_delete", params, nil)
}

// Connect calls wallet_connect.
func (c *Client) Connect(ctx context.Context, address string) (*rpc.WalletResult, error) {
	var result rpc.WalletResult
	if err := c.CallContext(ctx, "wallet_connect", rpc.AddressParam{Address: address}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Disconnect calls wallet_disconnect.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.CallContext(ctx, "wallet_disconnect", nil, nil)
}

// Current calls wallet_current. A nil result with a nil error means no
// wallet is connected.
func (c *Client) Current(ctx context.Context) (*rpc.WalletResult, error) {
	var result rpc.WalletCurrentResult
	if err := c.CallContext(ctx, "wallet_current", nil, &result); err != nil {
		return nil, err
	}
	if !result.Connected {
		return nil, nil
	}
	return result.Wallet, nil
}

// GetWallet calls wallet_get.
func (c *Client) GetWallet(ctx context.Context, address string) (*rpc.WalletResult, error) {
	var result rpc.WalletResult
	if err := c.CallContext(ctx, "wallet_get", rpc.AddressParam{Address: address}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListWallets calls wallet_list.
func (c *Client) ListWallets(ctx context.Context) ([]*rpc.WalletResult, error) {
	var result rpc.WalletListResult
	if err := c.CallContext(ctx, "wallet_list", nil, &result); err != nil {
		return nil, err
	}
	return result.Wallets, nil
}

// AddressQR calls wallet_addressQR and returns the base64 PNG.
func (c *Client) AddressQR(ctx context.Context, address string, size int) (string, error) {
	var result rpc.AddressQRResult
	if err := c.CallContext(ctx, "wallet_addressQR", rpc.AddressQRParam{Address: address, Size: size}, &result); err != nil {
		return "", err
	}
	return result.PNG, nil
}

// CheckPassword calls wallet_checkPassword.
func (c *Client) CheckPassword(ctx context.Context, password string) (*rpc.PasswordCheckResult, error) {
	var result rpc.PasswordCheckResult
	if err := c.CallContext(ctx, "wallet_checkPassword", rpc.PasswordParam{Password: password}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ValidateMnemonic calls wallet_validateMnemonic.
func (c *Client) ValidateMnemonic(ctx context.Context, mnemonic string) (*rpc.MnemonicCheckResult, error) {
	var result rpc.MnemonicCheckResult
	if err := c.CallContext(ctx, "wallet_validateMnemonic", rpc.MnemonicParam{Mnemonic: mnemonic}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
