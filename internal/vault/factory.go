package vault

import (
	"context"
	"fmt"

	"recall/internal/config"
	"recall/internal/snapshot"
)

// NewVaultFromConfig creates the snapshot vault described by cfg.
func NewVaultFromConfig(ctx context.Context, cfg config.VaultConfig) (snapshot.Vault, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryVault(cfg.Name), nil
	case "filesystem":
		if cfg.FSVaultRoot == "" {
			return nil, fmt.Errorf("filesystem vault requires fs_vault_root to be set")
		}
		return NewFileSystemVault(cfg.Name, cfg.FSVaultRoot)
	case "s3":
		return NewS3Vault(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown vault type: %q", cfg.Type)
	}
}
