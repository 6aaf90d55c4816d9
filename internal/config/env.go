package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from a .env file into the process environment.
// Variables already set are left untouched. A missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	path = ExpandPath(path)

	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	slog.Debug("Loaded env file", "path", path)
	return nil
}
