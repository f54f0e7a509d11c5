package vault

import (
	"context"
	"fmt"

	"github.com/mixoploidy8031/suprsafe/internal/config"
	"github.com/mixoploidy8031/suprsafe/internal/suprsafe"
)

// NewVaultFromConfig creates an EscrowVault implementation based on the
// vault config type.
func NewVaultFromConfig(cfg config.VaultConfig) (suprsafe.EscrowVault, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryVault(cfg.Name), nil
	case "s3":
		return NewS3Vault(context.Background(), cfg.Name, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	case "filesystem":
		if cfg.FSVaultRoot == "" {
			return nil, fmt.Errorf("filesystem vault requires fs_vault_root to be set")
		}
		return NewFileSystemVault(cfg.Name, cfg.FSVaultRoot)
	default:
		return nil, fmt.Errorf("unknown vault type: %s", cfg.Type)
	}
}
