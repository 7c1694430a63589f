package rpc

import (
	"github.com/Klingon-tech/cisp-wallet/internal/wallet"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
	CodeAuthFailed     = -32001
	CodeDuplicate      = -32002
	CodeStorage        = -32003
	CodeConflict       = -32004
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// WalletCreateParam is used by wallet_create.
type WalletCreateParam struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// WalletRestoreParam is used by wallet_restore.
type WalletRestoreParam struct {
	Mnemonic string `json:"mnemonic"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// AddressParam is used by endpoints that take a single wallet address.
type AddressParam struct {
	Address string `json:"address"`
}

// WalletUnlockParam is used by endpoints that need address + password.
type WalletUnlockParam struct {
	Address  string `json:"address"`
	Password string `json:"password"`
}

// WalletChangePasswordParam is used by wallet_changePassword.
type WalletChangePasswordParam struct {
	Address     string `json:"address"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// AddressQRParam is used by wallet_addressQR.
type AddressQRParam struct {
	Address string `json:"address"`
	Size    int    `json:"size,omitempty"` // Pixels per side (default: 256).
}

// PasswordParam is used by wallet_checkPassword.
type PasswordParam struct {
	Password string `json:"password"`
}

// MnemonicParam is used by wallet_validateMnemonic.
type MnemonicParam struct {
	Mnemonic string `json:"mnemonic"`
}

// ── Result types ────────────────────────────────────────────────────────

// WalletResult is the public view of a stored wallet. Sealed seed material
// never leaves the server.
type WalletResult struct {
	Address      string          `json:"address"`
	Name         string          `json:"name"`
	CreatedAt    int64           `json:"created_at"`    // unix ms
	LastAccessed int64           `json:"last_accessed"` // unix ms
	Balances     wallet.Balances `json:"balances"`
	Revision     uint64          `json:"revision"`
	KDF          string          `json:"kdf"`
	Cipher       string          `json:"cipher"`
}

// NewWalletResult builds the public view of rec.
func NewWalletResult(rec *wallet.Record) *WalletResult {
	scheme := wallet.DefaultScheme()
	if rec.Scheme != nil {
		scheme = *rec.Scheme
	}
	return &WalletResult{
		Address:      rec.Address.String(),
		Name:         rec.Name,
		CreatedAt:    rec.CreatedAt,
		LastAccessed: rec.LastAccessed,
		Balances:     rec.Balances,
		Revision:     rec.Revision,
		KDF:          scheme.KDF,
		Cipher:       scheme.Cipher,
	}
}

// WalletCreateResult is returned by wallet_create. The mnemonic is shown
// once and must be backed up by the caller.
type WalletCreateResult struct {
	Mnemonic string        `json:"mnemonic"`
	Wallet   *WalletResult `json:"wallet"`
}

// WalletVerifyResult is returned by wallet_verify.
type WalletVerifyResult struct {
	Valid bool `json:"valid"`
}

// WalletExportResult is returned by wallet_export.
type WalletExportResult struct {
	Mnemonic  string `json:"mnemonic"`
	Address   string `json:"address"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"` // unix ms
}

// WalletCurrentResult is returned by wallet_current.
type WalletCurrentResult struct {
	Connected bool          `json:"connected"`
	Wallet    *WalletResult `json:"wallet,omitempty"`
}

// WalletListResult is returned by wallet_list.
type WalletListResult struct {
	Count   int             `json:"count"`
	Wallets []*WalletResult `json:"wallets"`
}

// WalletDeleteResult is returned by wallet_delete.
type WalletDeleteResult struct {
	Deleted bool   `json:"deleted"`
	Address string `json:"address"`
}

// WalletDisconnectResult is returned by wallet_disconnect.
type WalletDisconnectResult struct {
	Connected bool `json:"connected"`
}

// AddressQRResult is returned by wallet_addressQR.
type AddressQRResult struct {
	Address string `json:"address"`
	PNG     string `json:"png"` // base64
}

// PasswordCheckResult is returned by wallet_checkPassword.
type PasswordCheckResult struct {
	Valid      bool               `json:"valid"`
	Violations []wallet.Violation `json:"violations"`
}

// MnemonicCheckResult is returned by wallet_validateMnemonic.
type MnemonicCheckResult struct {
	Valid     bool   `json:"valid"`
	WordCount int    `json:"word_count"`
	Address   string `json:"address,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Word      string `json:"word,omitempty"`     // Unknown word, if any.
	Position  int    `json:"position,omitempty"` // 1-based position of Word.
}

// UnknownWordData is attached to CodeInvalidParams errors caused by an
// unrecognised mnemonic word.
type UnknownWordData struct {
	Word     string `json:"word"`
	Position int    `json:"position"`
}

// ValidationData is attached to CodeInvalidParams errors caused by a
// rejected field.
type ValidationData struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}
