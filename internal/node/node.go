// Package node provides a reusable wallet node that can be embedded
// in any binary (daemon, tests, etc.).
package node

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Klingon-tech/cisp-wallet/config"
	klog "github.com/Klingon-tech/cisp-wallet/internal/log"
	"github.com/Klingon-tech/cisp-wallet/internal/rpc"
	"github.com/Klingon-tech/cisp-wallet/internal/storage"
	"github.com/Klingon-tech/cisp-wallet/internal/wallet"
	"github.com/rs/zerolog"
)

// Node is a fully-initialized wallet node.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	// Core
	db      storage.DB
	store   *wallet.Store
	service *wallet.Service

	// RPC
	rpcServer *rpc.Server

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// New creates and initializes a new Node. It performs all setup steps
// (logger, storage, legacy migration, wallet service, RPC) but does NOT
// start background goroutines. Call Start() for that.
func New(cfg *config.Config) (*Node, error) {
	// ── 1. Init logger ──────────────────────────────────────────────
	logFile := expandHome(cfg.Log.File)
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0700); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "cispd.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.WithComponent("node")

	scheme := cfg.Crypto.Scheme()
	logger.Info().
		Str("datadir", cfg.DataDir).
		Str("store", cfg.Store.Backend).
		Str("kdf", scheme.KDF).
		Str("cipher", scheme.Cipher).
		Msg("Starting CISP wallet node")

	// ── 2. Open storage ─────────────────────────────────────────────
	db, err := storage.Open(cfg.Store.Backend, cfg.StoreDir())
	if err != nil {
		return nil, fmt.Errorf("open %s store at %s: %w", cfg.Store.Backend, cfg.StoreDir(), err)
	}
	logger.Info().Str("path", cfg.StoreDir()).Msg("Database opened")

	store := wallet.NewStore(db)

	// ── 3. Legacy record migration ──────────────────────────────────
	migrated, err := store.MigrateLegacy()
	if err != nil {
		store.Close()
		db.Close()
		return nil, fmt.Errorf("migrate wallet records: %w", err)
	}
	if migrated > 0 {
		logger.Info().Int("records", migrated).Msg("Legacy wallet records migrated")
	}

	// ── 4. Wallet service ───────────────────────────────────────────
	svc, err := wallet.NewService(wallet.ServiceConfig{
		Store:       store,
		Scheme:      scheme,
		Policy:      cfg.Policy.PasswordPolicy(),
		EntropyBits: cfg.Crypto.EntropyBits,
	})
	if err != nil {
		store.Close()
		db.Close()
		return nil, fmt.Errorf("create wallet service: %w", err)
	}

	// ── 5. RPC server ───────────────────────────────────────────────
	var rpcServer *rpc.Server
	if cfg.RPC.Enabled {
		rpcAddr := fmt.Sprintf("%s:%d", cfg.RPC.Addr, cfg.RPC.Port)
		rpcServer = rpc.New(rpcAddr, svc, cfg.RPC)
		if err := rpcServer.Start(); err != nil {
			store.Close()
			db.Close()
			return nil, fmt.Errorf("start RPC at %s: %w", rpcAddr, err)
		}
		logger.Info().Str("addr", rpcServer.Addr()).Msg("RPC server started")
	} else {
		logger.Warn().Msg("RPC disabled by config")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Node{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		store:     store,
		service:   svc,
		rpcServer: rpcServer,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start launches background goroutines: the store event logger.
func (n *Node) Start() error {
	sub, err := n.store.Events().Subscribe()
	if err != nil {
		return fmt.Errorf("subscribe to wallet events: %w", err)
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.runEventLog(sub)
	}()

	count, err := n.store.Count()
	if err != nil {
		return fmt.Errorf("count wallets: %w", err)
	}
	n.logger.Info().
		Int("wallets", count).
		Str("rpc", n.RPCAddr()).
		Msg("Node started successfully")

	return nil
}

// runEventLog records every committed store change until the node stops.
func (n *Node) runEventLog(sub *wallet.Subscription) {
	defer sub.Cancel()
	for {
		select {
		case <-n.ctx.Done():
			return
		case <-sub.Quit():
			return
		case ev := <-sub.Updates():
			n.logger.Debug().
				Str("event", ev.Kind.String()).
				Str("address", ev.Address.String()).
				Uint64("revision", ev.Revision).
				Msg("Wallet store changed")
		}
	}
}

// Stop performs graceful shutdown in reverse order. It is safe to call
// more than once.
func (n *Node) Stop() {
	n.once.Do(func() {
		if n.rpcServer != nil {
			n.rpcServer.Stop()
		}

		n.cancel()
		n.wg.Wait()

		n.service.Disconnect()
		n.store.Close()
		if n.db != nil {
			n.db.Close()
		}

		n.logger.Info().Msg("Goodbye!")
	})
}

// Service returns the wallet service.
func (n *Node) Service() *wallet.Service {
	return n.service
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}
