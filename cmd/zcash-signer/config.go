package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/suffix-labs/zcash-signer/pkg/apdu"
	"github.com/suffix-labs/zcash-signer/pkg/keys"
	"github.com/suffix-labs/zcash-signer/pkg/tx"
)

// config is the YAML configuration file. Flags override it.
type config struct {
	Mnemonic          string `yaml:"mnemonic"`
	Passphrase        string `yaml:"passphrase"`
	CoinType          uint32 `yaml:"coin_type"`
	Account           uint8  `yaml:"account"`
	ConsensusBranchID uint32 `yaml:"consensus_branch_id"`
	LogLevel          string `yaml:"log_level"`
	AutoApprove       bool   `yaml:"auto_approve"`
	AppName           string `yaml:"app_name"`
	Version           string `yaml:"version"` // major.minor.patch
}

func defaultConfig() *config {
	return &config{
		CoinType:          keys.CoinTypeMainnet,
		ConsensusBranchID: tx.BranchIDNU6,
		LogLevel:          "info",
		AppName:           apdu.DefaultAppInfo.Name,
		Version:           "1.0.0",
	}
}

func loadConfig(ctx *cli.Context) (*config, error) {
	c := defaultConfig()
	if path := ctx.String(configFlag.Name); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if ctx.IsSet(logLevelFlag.Name) {
		c.LogLevel = ctx.String(logLevelFlag.Name)
	}
	if ctx.IsSet(mnemonicFlag.Name) {
		c.Mnemonic = ctx.String(mnemonicFlag.Name)
	}
	if ctx.IsSet(accountFlag.Name) {
		a := ctx.Uint(accountFlag.Name)
		if a > 0xFF {
			return nil, fmt.Errorf("account %d out of range", a)
		}
		c.Account = uint8(a)
	}
	if ctx.IsSet(autoApproveFlag.Name) {
		c.AutoApprove = ctx.Bool(autoApproveFlag.Name)
	}
	return c, nil
}

func (c *config) appInfo() (apdu.AppInfo, error) {
	info := apdu.AppInfo{Name: c.AppName}
	if _, err := fmt.Sscanf(c.Version, "%d.%d.%d", &info.Major, &info.Minor, &info.Patch); err != nil {
		return info, fmt.Errorf("version %q: %w", c.Version, err)
	}
	return info, nil
}

func (c *config) provider() (keys.Provider, error) {
	if c.Mnemonic == "" {
		return nil, errors.New("no mnemonic configured (set mnemonic in the config file or --mnemonic)")
	}
	return keys.NewMnemonicProvider(c.Mnemonic, c.Passphrase, c.CoinType)
}

var logLevels = map[string]slog.Level{
	"trace": log.LevelTrace,
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
	"crit":  log.LevelCrit,
}

func setupLogging(level string) error {
	lvl, ok := logLevels[strings.ToLower(level)]
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true)))
	return nil
}
