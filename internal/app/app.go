package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"recall/internal/command"
	"recall/internal/config"
	"recall/internal/database"
	"recall/internal/database/migrations"
	"recall/internal/encryption"
	"recall/internal/metrics"
	"recall/internal/recall"
	"recall/internal/seed"
	"recall/internal/server"
	"recall/internal/snapshot"
	"recall/internal/vault"
)

// Options tunes a RecallApp beyond what the config file says.
type Options struct {
	// Verbose enables debug logging.
	Verbose bool

	// Console receives a copy of every log line. Defaults to os.Stderr.
	Console io.Writer

	// Dialog answers download_resource_file. Defaults to a DirectoryDialog
	// over <base_dir>/exports.
	Dialog recall.SaveDialog
}

// RecallApp is the application layer between the CLI and the recall service.
// It constructs all dependencies from config, exposes the operations the
// commands need and closes the database on Close.
type RecallApp struct {
	cfg        *config.Config
	db         *database.SQLiteDatabase
	service    *recall.Service
	dispatcher *command.Dispatcher
	metrics    *metrics.Metrics
	op         *Operation
	logger     *recallLogger
	snapshots  map[string]*snapshot.Manager
}

// NewRecallApp creates a fully wired RecallApp from cfg. operation names the
// CLI command being run and tags every log line. The caller must call Close.
func NewRecallApp(cfg *config.Config, operation string, opts Options) (*RecallApp, error) {
	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	op := NewOperation(operation, recall.RealClock{}.Now())
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	logger, err := newLogger(cfg.LogDir, op.ID, console, opts.Verbose)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	svc := recall.NewService(recall.Options{
		DB:         db,
		Hasher:     recall.BcryptHasher{Cost: cfg.Auth.BcryptCost},
		Logger:     &slogAdapter{l: logger.Logger},
		SessionTTL: cfg.Auth.SessionTTL(),
	})

	dialog := opts.Dialog
	if dialog == nil {
		dialog = command.DirectoryDialog{Dir: filepath.Join(cfg.BaseDir, "exports")}
	}
	m := metrics.New()

	logger.Debug("operation started", "operation", operation)
	return &RecallApp{
		cfg:        cfg,
		db:         db,
		service:    svc,
		dispatcher: command.New(svc, dialog, logger.Logger, m),
		metrics:    m,
		op:         op,
		logger:     logger,
		snapshots:  make(map[string]*snapshot.Manager),
	}, nil
}

// Service exposes the stores for callers that bypass the command layer.
func (a *RecallApp) Service() *recall.Service {
	return a.service
}

// Invoke runs one raw command request, as a client would send it.
func (a *RecallApp) Invoke(ctx context.Context, raw []byte) command.Response {
	return a.dispatcher.Handle(ctx, raw)
}

// Serve answers commands over WebSocket at addr until ctx is cancelled.
// An empty addr uses the configured one.
func (a *RecallApp) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	srv := server.New(a.dispatcher, a.metrics, a.logger.Logger)
	a.logger.Info("serving commands", "addr", addr, "commands", len(a.dispatcher.Commands()))
	return a.op.Track(srv.ListenAndServe(ctx, addr))
}

// Seed fills userID's account with the sample data in fx.
func (a *RecallApp) Seed(ctx context.Context, userID string, fx *seed.Fixture) (seed.Summary, error) {
	sum, err := seed.Run(ctx, a.service, userID, fx, recall.RealClock{}.Now())
	if err == nil {
		a.logger.Info("seeded account", "user_id", userID, "areas", sum.Areas, "projects", sum.Projects)
	}
	return sum, a.op.Track(err)
}

// ExportResourceFile writes a resource's file to the path dialog picks, on
// behalf of the session holder.
func (a *RecallApp) ExportResourceFile(ctx context.Context, token, resourceID string, dialog recall.SaveDialog) (string, error) {
	userID, err := a.service.Identity.ResolveSession(ctx, token)
	if err != nil {
		return "", a.op.Track(err)
	}
	path, err := a.service.Resources.ExportFile(ctx, userID, resourceID, dialog)
	return path, a.op.Track(err)
}

// snapshotManager returns the manager for the named vault, or the first
// vault when name is empty.
func (a *RecallApp) snapshotManager(ctx context.Context, vaultName string) (*snapshot.Manager, error) {
	vc, err := a.cfg.Vault(vaultName)
	if err != nil {
		return nil, err
	}
	if m, ok := a.snapshots[vc.Name]; ok {
		return m, nil
	}
	m, err := newSnapshotManager(ctx, a.cfg, vc, a.db, &slogAdapter{l: a.logger.Logger})
	if err != nil {
		return nil, err
	}
	a.snapshots[vc.Name] = m
	return m, nil
}

// CreateSnapshot uploads an encrypted copy of the database and returns its name.
func (a *RecallApp) CreateSnapshot(ctx context.Context, vaultName string) (string, error) {
	m, err := a.snapshotManager(ctx, vaultName)
	if err != nil {
		return "", a.op.Track(err)
	}
	name, err := m.Create(ctx)
	return name, a.op.Track(err)
}

// ListSnapshots returns the snapshot names in a vault, newest first.
func (a *RecallApp) ListSnapshots(ctx context.Context, vaultName string) ([]string, error) {
	m, err := a.snapshotManager(ctx, vaultName)
	if err != nil {
		return nil, a.op.Track(err)
	}
	names, err := m.List(ctx)
	return names, a.op.Track(err)
}

// Close logs the outcome of the operation and closes all resources.
func (a *RecallApp) Close() error {
	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	a.logger.Debug("operation finished", "status", a.op.Status, "elapsed", a.op.Elapsed(recall.RealClock{}.Now()))
	if err := a.logger.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func newSnapshotManager(ctx context.Context, cfg *config.Config, vc config.VaultConfig, source snapshot.Source, logger recall.Logger) (*snapshot.Manager, error) {
	v, err := vault.NewVaultFromConfig(ctx, vc)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	return snapshot.NewManager(source, v, enc, cfg.InstanceID, recall.RealClock{}, logger), nil
}

// RestoreSnapshot downloads and decrypts a snapshot into dest. It does not
// open the live database, so it works on a fresh machine.
func RestoreSnapshot(ctx context.Context, cfg *config.Config, vaultName, name, passphrase, dest string) error {
	vc, err := cfg.Vault(vaultName)
	if err != nil {
		return err
	}
	m, err := newSnapshotManager(ctx, cfg, vc, nil, nil)
	if err != nil {
		return err
	}
	return m.Restore(ctx, name, passphrase, dest)
}

// InitKeys generates the snapshot key pair, protecting the private key with passphrase.
func InitKeys(cfg *config.Config, passphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	if err := enc.Setup(passphrase); err != nil {
		return fmt.Errorf("generating keys: %w", err)
	}
	return nil
}

// Migrate brings the configured database to the latest schema and returns
// the resulting status.
func Migrate(cfg *config.Config) (migrations.Status, error) {
	if cfg.Database.Type != "sqlite" {
		return migrations.Status{}, fmt.Errorf("database type %q has no schema to migrate", cfg.Database.Type)
	}
	if err := os.MkdirAll(cfg.Database.DataDir, 0o700); err != nil {
		return migrations.Status{}, fmt.Errorf("creating data dir: %w", err)
	}
	db, err := database.OpenMigrated(cfg.Database.Path(), 1)
	if err != nil {
		return migrations.Status{}, fmt.Errorf("migrating %s: %w", cfg.Database.Path(), err)
	}
	defer db.Close()

	return migrations.ReadStatus(db.DB())
}
