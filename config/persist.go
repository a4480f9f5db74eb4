package config

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/teranos/stagegen/errors"
	"github.com/teranos/stagegen/logger"
)

// Encode renders cfg as TOML.
func Encode(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to encode config")
	}
	return buf.Bytes(), nil
}

// Write stores cfg at path. An existing file is kept as a rotated backup
// when force is set, and is an error otherwise.
func Write(path string, cfg *Config, force bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		if !force {
			return errors.WithHint(errors.Newf("%s already exists", path), "pass --force to overwrite it")
		}
		if err := createBackup(path); err != nil {
			return err
		}
	}

	data, err := Encode(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), DefaultDirPermissions); err != nil {
		return errors.Wrapf(err, "failed to create %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, data, DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string, force bool) error {
	cfg, err := Default()
	if err != nil {
		return err
	}
	return Write(path, cfg, force)
}

// createBackup rotates backups (.back1, .back2, .back3) before a config file
// is replaced.
func createBackup(configPath string) error {
	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		logger.Warnw("Failed to delete old backup", logger.FieldFile, back3, logger.FieldError, err)
	}
	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}
	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}
	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}
	return nil
}

// isBackupFile reports whether path is a rotated config backup.
func isBackupFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".back1" || ext == ".back2" || ext == ".back3"
}
