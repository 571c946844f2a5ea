package volfs

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tailscale/hujson"
)

// Config is the configuration for a volfsd instance: the volume's
// parameters plus the line-protocol front end's bounds (§6.3, §10).
type Config struct {
	// Volume parameters (§3.1).
	Path       string `json:"path"`
	TotalBytes uint32 `json:"total_bytes"`
	BlockSize  uint32 `json:"block_size"`
	MaxFiles   uint32 `json:"max_files"`
	MaxBlocks  uint32 `json:"max_blocks"`

	// Front-end bounds (§6.3).
	ListenAddr         string        `json:"listen_addr"`
	Workers            int           `json:"workers"`
	MaxLineBytes       int           `json:"max_line_bytes"`
	MaxCommandsPerConn int           `json:"max_commands_per_conn"`
	ReadTimeout        time.Duration `json:"read_timeout"`
}

// DefaultConfig returns sane defaults for a small volume with generous
// front-end bounds.
func DefaultConfig() Config {
	return Config{
		Path:               "volfs.img",
		TotalBytes:         17 << 20,
		BlockSize:          4096,
		MaxFiles:           256,
		MaxBlocks:          4096,
		ListenAddr:         "127.0.0.1:9090",
		Workers:            32,
		MaxLineBytes:       1 << 20,
		MaxCommandsPerConn: 10_000,
		ReadTimeout:        30 * time.Second,
	}
}

// LoadConfig reads a JSONC (JSON-with-comments) config file, layering it
// over DefaultConfig(). A missing file is not an error: the defaults are
// returned unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC in %s: %w", path, err)
	}
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
