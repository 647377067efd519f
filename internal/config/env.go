package config

import (
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
)

// envFiles are read in order; later files override earlier ones.
var envFiles = []string{".env", ".env.local"}

// loadEnvFiles exports variables from the env files found in dir. Variables
// already set in the process environment are never overwritten. It returns
// the files that were read.
func loadEnvFiles(dir string) ([]string, error) {
	merged := make(map[string]string)
	var loaded []string
	for _, name := range envFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		values, err := godotenv.Read(path)
		if err != nil {
			return loaded, errors.WrapError(err, errors.CategoryConfig, "failed to parse env file").
				WithContext("path", path).
				Build()
		}
		maps.Copy(merged, values)
		loaded = append(loaded, path)
	}

	for _, key := range slices.Sorted(maps.Keys(merged)) {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, merged[key]); err != nil {
			return loaded, errors.WrapError(err, errors.CategoryConfig, "failed to export env variable").
				WithContext("variable", key).
				Build()
		}
	}
	for _, path := range loaded {
		slog.Debug("Loaded environment file", logfields.Path(path))
	}
	return loaded, nil
}
