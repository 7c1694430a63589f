package wallet

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	klog "github.com/Klingon-tech/cisp-wallet/internal/log"
	"github.com/Klingon-tech/cisp-wallet/pkg/types"
)

// Wallet name limits, in runes after trimming.
const (
	MinNameLength = 2
	MaxNameLength = 64
)

// ServiceConfig holds the dependencies of a Service. Zero fields take
// defaults: crypto/rand, DefaultScheme, DefaultPasswordPolicy,
// DefaultEntropyBits and time.Now.
type ServiceConfig struct {
	Store       *Store
	Rand        io.Reader
	Scheme      Scheme
	Policy      PasswordPolicy
	EntropyBits int
	Now         func() time.Time
}

// Export is the result of a successful export. Mnemonic is secret.
type Export struct {
	Mnemonic  Mnemonic      `json:"mnemonic"`
	Address   types.Address `json:"address"`
	Name      string        `json:"name"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Service runs the wallet lifecycle: create, restore, verify, export and the
// connected-wallet session.
type Service struct {
	store       *Store
	rand        io.Reader
	scheme      Scheme
	policy      PasswordPolicy
	entropyBits int
	now         func() time.Time
	locks       *addressMutex

	mu        sync.RWMutex
	current   types.Address
	connected bool
}

// NewService validates cfg and returns a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("wallet service requires a store")
	}
	s := &Service{
		store:       cfg.Store,
		rand:        cfg.Rand,
		scheme:      cfg.Scheme,
		policy:      cfg.Policy,
		entropyBits: cfg.EntropyBits,
		now:         cfg.Now,
		locks:       newAddressMutex(),
	}
	if s.rand == nil {
		s.rand = rand.Reader
	}
	if s.scheme == (Scheme{}) {
		s.scheme = DefaultScheme()
	}
	if err := s.scheme.Validate(); err != nil {
		return nil, fmt.Errorf("wallet scheme: %w", err)
	}
	if s.policy.MinLength <= 0 {
		s.policy = DefaultPasswordPolicy()
	}
	if s.entropyBits == 0 {
		s.entropyBits = DefaultEntropyBits
	}
	if err := checkEntropyBits(s.entropyBits); err != nil {
		return nil, err
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Store returns the record store the service writes to.
func (s *Service) Store() *Store {
	return s.store
}

// Policy returns the password policy in force.
func (s *Service) Policy() PasswordPolicy {
	return s.policy
}

// Create generates a new wallet, persists it sealed under password and
// connects it. The returned mnemonic is the only copy ever handed out
// without a password.
func (s *Service) Create(ctx context.Context, name, password string) (*Record, Mnemonic, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, "", err
	}
	if err := s.policy.Validate(password).Err(); err != nil {
		return nil, "", err
	}

	mnemonic, entropy, err := GenerateMnemonic(s.rand, s.entropyBits)
	if err != nil {
		return nil, "", err
	}
	addr := DeriveAddress(entropy)
	clear(entropy)

	s.locks.Lock(addr)
	defer s.locks.Unlock(addr)

	rec, err := s.seal(ctx, addr, name, mnemonic, password)
	if err != nil {
		return nil, "", err
	}
	if err := s.store.Insert(rec); err != nil {
		return nil, "", err
	}
	s.setCurrent(addr)

	klog.Wallet.Info().Str("address", addr.String()).Str("name", name).Msg("Wallet created")
	return rec.Clone(), mnemonic, nil
}

// Restore re-creates a wallet from its mnemonic. The name, password and
// mnemonic are validated, and the duplicate check runs, before any key
// derivation. Restore does not connect the wallet.
func (s *Service) Restore(ctx context.Context, mnemonic, password, name string) (*Record, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Validate(password).Err(); err != nil {
		return nil, err
	}
	entropy, err := MnemonicToEntropy(mnemonic)
	if err != nil {
		return nil, err
	}
	addr := DeriveAddress(entropy)
	clear(entropy)

	s.locks.Lock(addr)
	defer s.locks.Unlock(addr)

	exists, err := s.store.Has(addr)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateWallet, addr)
	}

	rec, err := s.seal(ctx, addr, name, NormalizeMnemonic(mnemonic), password)
	if err != nil {
		return nil, err
	}
	if err := s.store.Insert(rec); err != nil {
		return nil, err
	}

	klog.Wallet.Info().Str("address", addr.String()).Str("name", name).Msg("Wallet restored")
	return rec.Clone(), nil
}

// Verify reports whether password opens the wallet at addr. A wrong password
// is (false, nil); an unknown address is ErrNotFound.
func (s *Service) Verify(ctx context.Context, addr types.Address, password string) (bool, error) {
	s.locks.Lock(addr)
	defer s.locks.Unlock(addr)

	rec, err := s.lookup(addr, password)
	if err != nil {
		return false, err
	}
	_, err = s.open(ctx, rec, password)
	if errors.Is(err, ErrAuthentication) {
		klog.Wallet.Debug().Str("address", addr.String()).Msg("Password verification failed")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Export decrypts and returns the wallet's mnemonic. A wrong password is
// ErrAuthentication.
func (s *Service) Export(ctx context.Context, addr types.Address, password string) (*Export, error) {
	s.locks.Lock(addr)
	defer s.locks.Unlock(addr)

	rec, err := s.lookup(addr, password)
	if err != nil {
		return nil, err
	}
	m, err := s.open(ctx, rec, password)
	if err != nil {
		return nil, err
	}

	klog.Wallet.Info().Str("address", addr.String()).Msg("Wallet exported")
	return &Export{
		Mnemonic:  m,
		Address:   rec.Address,
		Name:      rec.Name,
		CreatedAt: rec.Created(),
	}, nil
}

// ChangePassword re-seals the wallet under newPassword with a fresh salt and
// IV and the service's current scheme.
func (s *Service) ChangePassword(ctx context.Context, addr types.Address, oldPassword, newPassword string) (*Record, error) {
	if err := s.policy.Validate(newPassword).Err(); err != nil {
		return nil, err
	}

	s.locks.Lock(addr)
	defer s.locks.Unlock(addr)

	rec, err := s.lookup(addr, oldPassword)
	if err != nil {
		return nil, err
	}
	m, err := s.open(ctx, rec, oldPassword)
	if err != nil {
		return nil, err
	}
	resealed, err := s.seal(ctx, addr, rec.Name, m, newPassword)
	if err != nil {
		return nil, err
	}

	next := rec.Clone()
	next.EncryptedSeed = resealed.EncryptedSeed
	next.Salt = resealed.Salt
	next.IV = resealed.IV
	next.Scheme = resealed.Scheme
	next.LastAccessed = resealed.LastAccessed
	if err := s.store.Update(next); err != nil {
		return nil, err
	}

	klog.Wallet.Info().Str("address", addr.String()).Msg("Wallet password changed")
	return next, nil
}

// Delete removes the wallet after checking password. A connected wallet is
// disconnected.
func (s *Service) Delete(ctx context.Context, addr types.Address, password string) error {
	s.locks.Lock(addr)
	defer s.locks.Unlock(addr)

	rec, err := s.lookup(addr, password)
	if err != nil {
		return err
	}
	if _, err := s.open(ctx, rec, password); err != nil {
		return err
	}
	if err := s.store.Delete(addr, rec.Revision); err != nil {
		return err
	}

	s.mu.Lock()
	if s.connected && s.current == addr {
		s.connected = false
		s.current = types.Address{}
	}
	s.mu.Unlock()

	klog.Wallet.Info().Str("address", addr.String()).Msg("Wallet deleted")
	return nil
}

// Connect makes addr the session wallet and stamps its last access time.
func (s *Service) Connect(addr types.Address) (*Record, error) {
	now := s.now().UnixMilli()
	rec, err := s.store.Modify(addr, func(r *Record) error {
		r.LastAccessed = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.setCurrent(addr)

	klog.Wallet.Info().Str("address", addr.String()).Msg("Wallet connected")
	return rec, nil
}

// Disconnect clears the session wallet.
func (s *Service) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		klog.Wallet.Info().Str("address", s.current.String()).Msg("Wallet disconnected")
	}
	s.connected = false
	s.current = types.Address{}
}

// Current returns the session wallet's record. It reports false when no
// wallet is connected or the connected wallet no longer exists.
func (s *Service) Current() (*Record, bool) {
	s.mu.RLock()
	addr, ok := s.current, s.connected
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	rec, err := s.store.Get(addr)
	if err != nil {
		return nil, false
	}
	return rec, true
}

// Wallet returns the record for addr.
func (s *Service) Wallet(addr types.Address) (*Record, error) {
	return s.store.Get(addr)
}

// Wallets returns every stored record.
func (s *Service) Wallets() ([]*Record, error) {
	return s.store.List()
}

func (s *Service) setCurrent(addr types.Address) {
	s.mu.Lock()
	s.current = addr
	s.connected = true
	s.mu.Unlock()
}

// lookup fetches the record for addr. For an unknown address it runs a
// throwaway derivation so the failure takes as long as a wrong password.
func (s *Service) lookup(addr types.Address, password string) (*Record, error) {
	rec, err := s.store.Get(addr)
	if errors.Is(err, ErrNotFound) {
		s.decoy(password)
	}
	return rec, err
}

func (s *Service) decoy(password string) {
	kdf, err := s.scheme.NewKDF()
	if err != nil {
		return
	}
	pw := passwordBytes(password)
	defer clear(pw)
	if key, err := kdf.Key(pw, make([]byte, SaltSize)); err == nil {
		clear(key)
	}
}

// seal encrypts m under password and builds a fresh record for addr.
// Nothing is persisted.
func (s *Service) seal(ctx context.Context, addr types.Address, name string, m Mnemonic, password string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kdf, err := s.scheme.NewKDF()
	if err != nil {
		return nil, err
	}
	vault, err := NewVault(s.scheme.Cipher)
	if err != nil {
		return nil, err
	}

	pw := passwordBytes(password)
	defer clear(pw)

	done := klog.Timer(klog.Wallet, "key derivation")
	dk, err := NewDeriver(kdf, s.rand).Derive(pw, nil)
	done()
	if err != nil {
		return nil, err
	}
	defer dk.Wipe()

	ct, err := vault.Encrypt(m, dk.Key, dk.IV)
	if err != nil {
		return nil, fmt.Errorf("seal mnemonic: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.now().UnixMilli()
	scheme := s.scheme
	return &Record{
		Address:       addr,
		Name:          name,
		EncryptedSeed: hex.EncodeToString(ct),
		Salt:          hex.EncodeToString(dk.Salt),
		IV:            hex.EncodeToString(dk.IV),
		CreatedAt:     now,
		LastAccessed:  now,
		Version:       RecordVersion,
		Scheme:        &scheme,
	}, nil
}

// open decrypts rec's mnemonic with password. Any failure to authenticate,
// including a mnemonic that does not hash to the record's address, is
// ErrAuthentication.
func (s *Service) open(ctx context.Context, rec *Record, password string) (Mnemonic, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sealed, err := rec.sealed()
	if err != nil {
		return "", storageErr("read wallet", err)
	}
	scheme := rec.scheme()
	kdf, err := scheme.NewKDF()
	if err != nil {
		return "", storageErr("read wallet", err)
	}
	vault, err := NewVault(scheme.Cipher)
	if err != nil {
		return "", storageErr("read wallet", err)
	}

	pw := passwordBytes(password)
	defer clear(pw)

	done := klog.Timer(klog.Wallet, "key derivation")
	dk, err := NewDeriver(kdf, s.rand).Derive(pw, sealed.salt)
	done()
	if err != nil {
		return "", err
	}
	defer dk.Wipe()

	m, err := vault.Decrypt(sealed.ciphertext, dk.Key, sealed.iv)
	if err != nil {
		return "", ErrAuthentication
	}
	got, err := AddressFromMnemonic(string(m))
	if err != nil || subtle.ConstantTimeCompare(got[:], rec.Address[:]) != 1 {
		return "", ErrAuthentication
	}
	return m, nil
}

// passwordBytes returns the NFKD form of password, so the same password
// typed with composed or decomposed characters derives the same key.
func passwordBytes(password string) []byte {
	return norm.NFKD.Bytes([]byte(password))
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	switch {
	case n == 0:
		return "", &ValidationError{Field: "name", Reason: "must not be empty"}
	case n < MinNameLength:
		return "", &ValidationError{Field: "name", Reason: fmt.Sprintf("must be at least %d characters", MinNameLength)}
	case n > MaxNameLength:
		return "", &ValidationError{Field: "name", Reason: fmt.Sprintf("must be at most %d characters", MaxNameLength)}
	}
	return name, nil
}
