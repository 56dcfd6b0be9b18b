// Package config builds the shared pieces of the airtouch3 subcommands from
// the viper configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"github.com/tbyrne/airtouch3-controller/internal/smartcontrol"
	"github.com/tbyrne/airtouch3-controller/pkg/airtouch"
)

func Logger(v *viper.Viper) *slog.Logger {
	var opts slog.HandlerOptions
	if v.GetBool("debug") {
		opts.Level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &opts))
}

func Device(v *viper.Viper, options ...airtouch.Option) (*airtouch.Client, error) {
	host := v.GetString("airtouch.host")
	if host == "" {
		return nil, errors.New("no airtouch host configured")
	}
	return airtouch.New(host, v.GetInt("airtouch.port"), options...), nil
}

// SmartControl loads the smart control configuration from smartcontrol.yaml,
// located next to the main configuration file. A missing file is not an
// error: the second return value reports whether the file was found.
func SmartControl(v *viper.Viper, logger *slog.Logger) (smartcontrol.Configuration, bool, error) {
	path := filepath.Join(filepath.Dir(v.ConfigFileUsed()), "smartcontrol.yaml")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return smartcontrol.Configuration{}, false, nil
		}
		return smartcontrol.Configuration{}, false, err
	}
	defer func() { _ = f.Close() }()

	cfg, err := smartcontrol.Load(f, logger)
	if err != nil {
		return smartcontrol.Configuration{}, true, fmt.Errorf("smart control configuration: %w", err)
	}
	return cfg, true, nil
}
