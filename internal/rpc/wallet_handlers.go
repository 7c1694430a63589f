package rpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/Klingon-tech/cisp-wallet/internal/wallet"
	"github.com/Klingon-tech/cisp-wallet/pkg/types"
)

// requireWallet returns an error if no wallet service is attached.
func (s *Server) requireWallet() *Error {
	if s.wallets == nil {
		return &Error{Code: CodeInternalError, Message: "wallet service not enabled"}
	}
	return nil
}

// parseAddress converts a request address into a types.Address.
func parseAddress(raw string) (types.Address, *Error) {
	addr, err := types.ParseAddress(raw)
	if err != nil {
		return types.Address{}, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid address: %v", err)}
	}
	return addr, nil
}

// walletError maps a wallet service error onto a JSON-RPC error. Storage
// failures are logged in full and reported without detail.
func (s *Server) walletError(method string, err error) *Error {
	var (
		policyErr *wallet.PasswordPolicyError
		wordErr   *wallet.UnknownWordError
		fieldErr  *wallet.ValidationError
	)
	switch {
	case errors.As(err, &policyErr):
		return &Error{Code: CodeInvalidParams, Message: err.Error(), Data: policyErr.Violations}
	case errors.As(err, &wordErr):
		return &Error{Code: CodeInvalidParams, Message: err.Error(),
			Data: UnknownWordData{Word: wordErr.Word, Position: wordErr.Position}}
	case errors.As(err, &fieldErr):
		return &Error{Code: CodeInvalidParams, Message: err.Error(),
			Data: ValidationData{Field: fieldErr.Field, Reason: fieldErr.Reason}}
	case errors.Is(err, wallet.ErrInvalidMnemonic):
		return &Error{Code: CodeInvalidParams, Message: err.Error()}
	case errors.Is(err, wallet.ErrAuthentication):
		return &Error{Code: CodeAuthFailed, Message: "authentication failed"}
	case errors.Is(err, wallet.ErrNotFound):
		return &Error{Code: CodeNotFound, Message: "wallet not found"}
	case errors.Is(err, wallet.ErrDuplicateWallet):
		return &Error{Code: CodeDuplicate, Message: "wallet already exists"}
	case errors.Is(err, wallet.ErrStaleRecord):
		return &Error{Code: CodeConflict, Message: "wallet was modified concurrently, retry"}
	case errors.Is(err, wallet.ErrStorage):
		s.logger.Error().Err(err).Str("method", method).Msg("Wallet storage failure")
		return &Error{Code: CodeStorage, Message: "storage failure"}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: CodeInternalError, Message: "request cancelled"}
	default:
		s.logger.Error().Err(err).Str("method", method).Msg("Wallet request failed")
		return &Error{Code: CodeInternalError, Message: err.Error()}
	}
}

func (s *Server) handleWalletCreate(ctx context.Context, req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}

	var params WalletCreateParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	rec, mnemonic, err := s.wallets.Create(ctx, params.Name, params.Password)
	if err != nil {
		return nil, s.walletError(req.Method, err)
	}

	return &WalletCreateResult{
		Mnemonic: mnemonic.String(),
		Wallet:   NewWalletResult(rec),
	}, nil
}

func (s *Server) handleWalletRestore(ctx context.Context, req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}

	var params WalletRestoreParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Mnemonic == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "mnemonic is required"}
	}

	rec, err := s.wallets.Restore(ctx, params.Mnemonic, params.Password, params.Name)
	if err != nil {
		return nil, s.walletError(req.Method, err)
	}
	return NewWalletResult(rec), nil
}

func (s *Server) handleWalletVerify(ctx context.Context, req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}

	var params WalletUnlockParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := parseAddress(params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}

	ok, err := s.wallets.Verify(ctx, addr, params.Password)
	if err != nil {
		return nil, s.walletError(req.Method, err)
	}
	return &WalletVerifyResult{Valid: ok}, nil
}

func (s *Server) handleWalletExport(ctx context.Context, req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}

	var params WalletUnlockParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := parseAddress(params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}

	exp, err := s.wallets.Export(ctx, addr, params.Password)
	if err != nil {
		return nil, s.walletError(req.Method, err)
	}
	return &WalletExportResult{
		Mnemonic:  exp.Mnemonic.String(),
		Address:   exp.Address.String(),
		Name:      exp.Name,
		CreatedAt: exp.CreatedAt.UnixMilli(),
	}, nil
}

func (s *Server) handleWalletChangePassword(ctx context.Context, req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}

	var params WalletChangePasswordParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := parseAddress(params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}

	rec, err := s.wallets.ChangePassword(ctx, addr, params.OldPassword, params.NewPassword)
	if err != nil {
		return nil, s.walletError(req.Method, err)
	}
	return NewWalletResult(rec), nil
}

func (s *Server) handleWalletDelete(ctx context.Context, req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}

	var params WalletUnlockParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := parseAddress(params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}

	if err := s.wallets.Delete(ctx, addr, params.Password); err != nil {
		return nil, s.walletError(req.Method, err)
	}
	return &WalletDeleteResult{Deleted: true, Address: addr.String()}, nil
}

func (s *Server) handleWalletConnect(_ context.Context, req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}

	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := parseAddress(params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}

	rec, err := s.wallets.Connect(addr)
	if err != nil {
		return nil, s.walletError(req.Method, err)
	}
	return NewWalletResult(rec), nil
}

func (s *Server) handleWalletDisconnect(_ context.Context, req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}
	s.wallets.Disconnect()
	return &WalletDisconnectResult{Connected: false}, nil
}

func (s *Server) handleWalletCurrent(_ context.Context, req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}
	rec, ok := s.wallets.Current()
	if !ok {
		return &WalletCurrentResult{Connected: false}, nil
	}
	return &WalletCurrentResult{Connected: true, Wallet: NewWalletResult(rec)}, nil
}

func (s *Server) handleWalletGet(_ context.Context, req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}

	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := parseAddress(params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}

	rec, err := s.wallets.Wallet(addr)
	if err != nil {
		return nil, s.walletError(req.Method, err)
	}
	return NewWalletResult(rec), nil
}

func (s *Server) handleWalletList(_ context.Context, req *Request) (interface{}, *Error) {
	if err := s.requireWallet(); err != nil {
		return nil, err
	}

	recs, err := s.wallets.Wallets()
	if err != nil {
		return nil, s.walletError(req.Method, err)
	}

	result := &WalletListResult{
		Count:   len(recs),
		Wallets: make([]*WalletResult, 0, len(recs)),
	}
	for _, rec := range recs {
		result.Wallets = append(result.Wallets, NewWalletResult(rec))
	}
	return result, nil
}

func (s *Server) handleWalletAddressQR(_ context.Context, req *Request) (interface{}, *Error) {
	var params AddressQRParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := parseAddress(params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if params.Size < 0 || params.Size > 2048 {
		return nil, &Error{Code: CodeInvalidParams, Message: "size must be between 0 and 2048"}
	}

	png, err := wallet.AddressQR(addr, params.Size)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("render qr: %v", err)}
	}
	return &AddressQRResult{Address: addr.String(), PNG: png}, nil
}

// handleWalletCheckPassword reports policy violations without touching any
// wallet. An attached service's policy is used when present.
func (s *Server) handleWalletCheckPassword(_ context.Context, req *Request) (interface{}, *Error) {
	var params PasswordParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	policy := wallet.DefaultPasswordPolicy()
	if s.wallets != nil {
		policy = s.wallets.Policy()
	}
	res := policy.Validate(params.Password)

	violations := res.Violations
	if violations == nil {
		violations = []wallet.Violation{}
	}
	return &PasswordCheckResult{Valid: res.OK(), Violations: violations}, nil
}

func (s *Server) handleWalletValidateMnemonic(_ context.Context, req *Request) (interface{}, *Error) {
	var params MnemonicParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	normalized := wallet.NormalizeMnemonic(params.Mnemonic)
	result := &MnemonicCheckResult{WordCount: len(normalized.Words())}

	addr, err := wallet.AddressFromMnemonic(params.Mnemonic)
	if err != nil {
		var wordErr *wallet.UnknownWordError
		if errors.As(err, &wordErr) {
			result.Word = wordErr.Word
			result.Position = wordErr.Position
		}
		result.Reason = err.Error()
		return result, nil
	}

	result.Valid = true
	result.Address = addr.String()
	return result, nil
}
