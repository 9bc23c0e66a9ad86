package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"openshelf/native/market"
)

// Config is the daemon configuration loaded from TOML.
type Config struct {
	ListenAddress   string      `toml:"ListenAddress"`
	DataDir         string      `toml:"DataDir"`
	PlatformAddress string      `toml:"PlatformAddress"`
	EnableFaucet    bool        `toml:"EnableFaucet"`
	Marketplace     Marketplace `toml:"marketplace"`
}

// Marketplace mirrors market.Params in TOML form. Zero values fall back to the
// module defaults.
type Marketplace struct {
	AuthorShareBps  uint64 `toml:"AuthorShareBps"`
	StakerShareBps  uint64 `toml:"StakerShareBps"`
	MaxChapterPrice uint64 `toml:"MaxChapterPrice"`
	MaxStakeAmount  uint64 `toml:"MaxStakeAmount"`
	MaxStakers      int    `toml:"MaxStakers"`
	MaxChapters     int    `toml:"MaxChapters"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress: "127.0.0.1:8645",
		DataDir:       "./openshelf-data",
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	if trimmed := strings.TrimSpace(c.PlatformAddress); trimmed != "" && !common.IsHexAddress(trimmed) {
		return fmt.Errorf("config: PlatformAddress must be a 0x-prefixed address")
	}
	if err := c.Marketplace.Params().Validate(); err != nil {
		return err
	}
	return nil
}

// Platform returns the configured platform treasury address, or false when
// none was supplied.
func (c *Config) Platform() ([20]byte, bool) {
	var addr [20]byte
	trimmed := strings.TrimSpace(c.PlatformAddress)
	if !common.IsHexAddress(trimmed) {
		return addr, false
	}
	copy(addr[:], common.HexToAddress(trimmed).Bytes())
	return addr, true
}

// Params converts the TOML table into engine parameters with defaults applied.
func (m Marketplace) Params() market.Params {
	return market.Params{
		AuthorShareBps:  m.AuthorShareBps,
		StakerShareBps:  m.StakerShareBps,
		MaxChapterPrice: m.MaxChapterPrice,
		MaxStakeAmount:  m.MaxStakeAmount,
		MaxStakers:      m.MaxStakers,
		MaxChapters:     m.MaxChapters,
	}.ApplyDefaults()
}
