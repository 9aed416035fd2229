package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"recall/internal/recall"
)

// Extension is appended to every stored snapshot name.
const Extension = ".db.age"

// ErrNotFound is returned by vaults for a key that was never stored.
var ErrNotFound = errors.New("snapshot not found")

// Vault stores encrypted snapshot blobs by key. Keys use forward slashes.
type Vault interface {
	// Put stores size bytes read from r under key, replacing any previous blob.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Get writes the blob stored under key to w.
	Get(ctx context.Context, key string, w io.Writer) error

	// List returns the keys that start with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// ValidateSetup verifies that the vault is reachable.
	ValidateSetup(ctx context.Context) error
}

// Encryptor encrypts snapshots with a public key. Decryption needs the
// passphrase-protected private key, unlocked once per restore.
type Encryptor interface {
	// Setup generates the key pair. It refuses to replace existing keys.
	Setup(passphrase string) error

	Encrypt(r io.Reader, w io.Writer) error

	// Unlock returns an error when the passphrase is wrong.
	Unlock(passphrase string) (DecryptionContext, error)

	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}

// Source produces a consistent copy of the live database at dest.
type Source interface {
	Snapshot(ctx context.Context, dest string) error
}

// Manager creates, lists and restores encrypted database snapshots.
// Snapshots live under snapshots/<instance>/<timestamp>.db.age in the vault.
type Manager struct {
	source     Source
	vault      Vault
	encryptor  Encryptor
	instanceID string
	clock      recall.Clock
	logger     recall.Logger
}

func NewManager(source Source, vault Vault, encryptor Encryptor, instanceID string, clock recall.Clock, logger recall.Logger) *Manager {
	if logger == nil {
		logger = recall.NewNopLogger()
	}
	return &Manager{
		source:     source,
		vault:      vault,
		encryptor:  encryptor,
		instanceID: instanceID,
		clock:      clock,
		logger:     logger,
	}
}

func (m *Manager) prefix() string {
	return "snapshots/" + m.instanceID + "/"
}

// Create copies the database, encrypts the copy and uploads it.
// It returns the snapshot name.
func (m *Manager) Create(ctx context.Context) (string, error) {
	if !m.encryptor.IsConfigured() {
		return "", fmt.Errorf("encryption keys not found: run `recall keys init` first")
	}

	tmpDir, err := os.MkdirTemp("", "recall-snapshot-*")
	if err != nil {
		return "", fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	plainPath := filepath.Join(tmpDir, "recall.db")
	if err := m.source.Snapshot(ctx, plainPath); err != nil {
		return "", fmt.Errorf("copying database: %w", err)
	}

	sealedPath := plainPath + ".age"
	if err := m.seal(plainPath, sealedPath); err != nil {
		return "", err
	}

	sealed, err := os.Open(sealedPath)
	if err != nil {
		return "", fmt.Errorf("opening encrypted snapshot: %w", err)
	}
	defer sealed.Close()

	info, err := sealed.Stat()
	if err != nil {
		return "", fmt.Errorf("stat encrypted snapshot: %w", err)
	}

	name := m.clock.Now().UTC().Format("20060102T150405Z") + Extension
	if err := m.vault.Put(ctx, m.prefix()+name, sealed, info.Size()); err != nil {
		return "", fmt.Errorf("uploading snapshot: %w", err)
	}

	m.logger.Info("snapshot created", "name", name, "size", info.Size())
	return name, nil
}

func (m *Manager) seal(plainPath, sealedPath string) error {
	in, err := os.Open(plainPath)
	if err != nil {
		return fmt.Errorf("opening database copy: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(sealedPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("creating encrypted snapshot: %w", err)
	}
	if err := m.encryptor.Encrypt(in, out); err != nil {
		out.Close()
		return fmt.Errorf("encrypting snapshot: %w", err)
	}
	return out.Close()
}

// List returns this instance's snapshot names, newest first.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	keys, err := m.vault.List(ctx, m.prefix())
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	var names []string
	for _, key := range keys {
		name := strings.TrimPrefix(key, m.prefix())
		if strings.Contains(name, "/") || !strings.HasSuffix(name, Extension) {
			continue
		}
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Restore downloads the named snapshot, decrypts it and writes the database
// to dest. dest must not exist yet.
func (m *Manager) Restore(ctx context.Context, name, passphrase, dest string) error {
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("invalid snapshot name: %q", name)
	}
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("restore target already exists: %s", dest)
	}

	decryptCtx, err := m.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking private key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0700); err != nil {
		return fmt.Errorf("creating restore directory: %w", err)
	}

	sealed, err := os.CreateTemp(filepath.Dir(dest), ".recall-sealed-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(sealed.Name())
	defer sealed.Close()

	if err := m.vault.Get(ctx, m.prefix()+name, sealed); err != nil {
		return fmt.Errorf("downloading snapshot %s: %w", name, err)
	}
	if _, err := sealed.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding snapshot: %w", err)
	}

	plain, err := os.CreateTemp(filepath.Dir(dest), ".recall-restore-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	plainPath := plain.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(plainPath)
		}
	}()

	if err := decryptCtx.Decrypt(sealed, plain); err != nil {
		plain.Close()
		return fmt.Errorf("decrypting snapshot: %w", err)
	}
	if err := plain.Close(); err != nil {
		return fmt.Errorf("closing restored database: %w", err)
	}
	if err := os.Rename(plainPath, dest); err != nil {
		return fmt.Errorf("moving restored database into place: %w", err)
	}
	committed = true

	m.logger.Info("snapshot restored", "name", name, "dest", dest)
	return nil
}
