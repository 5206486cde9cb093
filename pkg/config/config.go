// Package config loads typed configuration structs from the environment.
// An env file can seed the process environment first: AGENT_ENV_FILE names
// an explicit file, otherwise ./.env is used when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

var (
	loadOnce sync.Once
	loadErr  error
)

func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

func New[T any](prefix string) (*T, error) {
	if err := seedEnvironment(); err != nil {
		return nil, err
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

// seedEnvironment exports the env file into the process environment once;
// every later New call sees the same seeded state.
func seedEnvironment() error {
	loadOnce.Do(func() {
		if path := strings.TrimSpace(os.Getenv("AGENT_ENV_FILE")); path != "" {
			if err := exportEnvironment(path); err != nil {
				loadErr = fmt.Errorf("load env file %s: %w", path, err)
			}
			return
		}

		info, err := os.Stat(".env")
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				loadErr = err
			}
			return
		}
		if info.IsDir() {
			return
		}
		if err := exportEnvironment(".env"); err != nil {
			loadErr = fmt.Errorf("load default env file: %w", err)
		}
	})
	return loadErr
}

func exportEnvironment(filepath string) error {
	viper.SetConfigFile(filepath)
	if err := viper.ReadInConfig(); err != nil {
		return err
	}

	for k, v := range viper.AllSettings() {
		if err := os.Setenv(strings.ToUpper(k), fmt.Sprint(v)); err != nil {
			return err
		}
	}
	return nil
}
