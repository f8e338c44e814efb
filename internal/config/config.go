// Package config loads node configuration from TOML, the external
// collaborator spec.md §1 excludes from the core but SPEC_FULL.md's
// ambient stack still carries in the teacher's idiom (gxp/config.go's
// DefaultConfig pattern, toml-tagged struct, go:generate-free here since
// every field is already a plain Go type).
package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/alecthomas/units"
	"github.com/naoina/toml"

	"github.com/poenetwork/node/internal/params"
)

// StorageConfig locates the blob store and inventory store directories and
// sizes their in-memory accelerators.
type StorageConfig struct {
	BlobStoreDir      string
	InventoryStoreDir string
	UTXOCacheSize     units.Base2Bytes
	ReportIndexDSN    string `toml:",omitempty"`
	ColdBackupBucket  string `toml:",omitempty"`
}

// NetworkConfig configures the peer layer address the external
// collaborator binds to; the chain manager core never touches this
// directly but the CLI wires it through to that collaborator at startup.
type NetworkConfig struct {
	ListenAddr  string
	BootPeers   []string `toml:",omitempty"`
	MaxPeers    int
}

// Config is the root configuration value the CLI loads from a TOML file.
type Config struct {
	Environment params.Environment `toml:"-"`
	EnvironmentName string `toml:"environment"`

	Consensus params.ConsensusConstants `toml:"-"`

	Storage StorageConfig
	Network NetworkConfig

	LogDevMode bool `toml:",omitempty"`
}

// DefaultConfig mirrors the teacher's DefaultConfig var: a ready-to-run
// value for the common case, overridden field-by-field by a loaded file.
var DefaultConfig = Config{
	EnvironmentName: "testnet1",
	Storage: StorageConfig{
		BlobStoreDir:      "./data/blobs",
		InventoryStoreDir: "./data/inventory",
		UTXOCacheSize:     64 * units.MiB,
	},
	Network: NetworkConfig{
		ListenAddr: ":21337",
		MaxPeers:   32,
	},
}

// Load reads and parses a TOML config file at path, falling back to
// DefaultConfig's values for anything the file omits.
func Load(path string) (Config, error) {
	cfg := DefaultConfig
	data, err := ioutil.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
		}
	case !os.IsNotExist(err):
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}

	switch cfg.EnvironmentName {
	case "mainnet":
		cfg.Environment = params.Mainnet
	case "development":
		cfg.Environment = params.Development
	default:
		cfg.Environment = params.Testnet1
	}

	cfg.Consensus = params.DefaultTestnetConstants()
	cfg.Consensus.Environment = cfg.Environment
	return cfg, nil
}

// EpochDuration is a convenience accessor used by the CLI banner to print
// a human-readable checkpoint period.
func (c Config) EpochDuration() time.Duration {
	return c.Consensus.CheckpointsPeriod
}
