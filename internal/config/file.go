package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

const configFileEnvVar = "CONFIG_FILE"

var (
	fileValuesMu sync.RWMutex
	fileValues   map[string]string
)

// Load reads the given .env files (missing files are ignored) and then the YAML
// file named by CONFIG_FILE, if any. Process environment always wins.
func Load(dotEnvFiles ...string) (Config, error) {
	for _, f := range dotEnvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("[config Load] failed to load %s: %w", f, err)
		}
	}

	if path := os.Getenv(configFileEnvVar); path != "" {
		if err := LoadFile(path); err != nil {
			return nil, err
		}
	}
	return New(), nil
}

// LoadFile replaces the config file overlay with the flat key/value YAML document at path.
// Keys are the environment variable names, e.g. "BACKEND_URL: https://api.example.com".
func LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("[config LoadFile] failed to read config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("[config LoadFile] failed to parse config file: %w", err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch tv := v.(type) {
		case nil:
			continue
		case []any:
			parts := make([]string, 0, len(tv))
			for _, p := range tv {
				parts = append(parts, fmt.Sprint(p))
			}
			values[strings.ToUpper(k)] = strings.Join(parts, ",")
		default:
			values[strings.ToUpper(k)] = fmt.Sprint(tv)
		}
	}

	fileValuesMu.Lock()
	fileValues = values
	fileValuesMu.Unlock()
	return nil
}

// ResetFile clears the config file overlay.
func ResetFile() {
	fileValuesMu.Lock()
	fileValues = nil
	fileValuesMu.Unlock()
}

func fileValue(key string) (string, bool) {
	fileValuesMu.RLock()
	defer fileValuesMu.RUnlock()
	v, ok := fileValues[key]
	return v, ok
}
