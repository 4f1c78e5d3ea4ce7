package persist

import "github.com/comigor/chatstore/internal/config"

func configFor(driver, path string) config.StorageConfig {
	return config.StorageConfig{Driver: driver, Path: path}
}
