package snapshot_test

import (
	"path/filepath"

	"recall/internal/config"
)

func configFor(dir string) config.EncryptionConfig {
	return config.EncryptionConfig{
		Type:           "age",
		PublicKeyPath:  filepath.Join(dir, "keys", "recall.pub"),
		PrivateKeyPath: filepath.Join(dir, "keys", "recall.key"),
	}
}
