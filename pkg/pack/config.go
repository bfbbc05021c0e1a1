package pack

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds the builder's tunable knobs. All fields map to the
// recognized key set; LoadConfig keeps the DefaultConfig value for every
// key the file does not set.
type Config struct {
	Workers int `toml:"workers"`

	// DeltaCacheSize is the global budget (bytes) for cached delta
	// buffers across the whole preparation phase (pack.deltaCacheSize).
	DeltaCacheSize int64 `toml:"deltaCacheSize"`

	// DeltaCacheLimit is the small-delta threshold below which a
	// delta is always cached regardless of the size-ratio heuristic
	// (pack.deltaCacheLimit).
	DeltaCacheLimit int64 `toml:"deltaCacheLimit"`

	// WindowMemory bounds the sliding window's resident payload bytes;
	// 0 means unlimited (pack.windowMemory).
	WindowMemory int64 `toml:"windowMemory"`

	// BigFileThreshold is the size above which an object is never
	// considered for delta search (pack.bigFileThreshold). Kept as its
	// own key rather than reusing DeltaCacheSize — see DESIGN.md for
	// why the reference implementation's double read of the same
	// config key is not reproduced here.
	BigFileThreshold int64 `toml:"bigFileThreshold"`

	// Window and MaxDepth are the compile-time-constant-in-the-spec W
	// and D values, exposed here as config so tests can shrink them.
	Window   int `toml:"window"`
	MaxDepth int `toml:"maxDepth"`
}

// DefaultConfig returns the documented default values.
func DefaultConfig() Config {
	return Config{
		Workers:          0,
		DeltaCacheSize:   256 << 20,
		DeltaCacheLimit:  1000,
		WindowMemory:     0,
		BigFileThreshold: 512 << 20,
		Window:           10,
		MaxDepth:         50,
	}
}

// LoadConfig reads a packforge.toml file under the [pack] table and
// overlays it on DefaultConfig. A missing file is not an error. Malformed
// or negative values are ErrConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	type fileShape struct {
		Pack Config `toml:"pack"`
	}
	var parsed fileShape
	parsed.Pack = cfg

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("%w: stat %s: %v", ErrConfig, path, err)
	}

	if _, err := toml.DecodeFile(path, &parsed); err != nil {
		return Config{}, fmt.Errorf("%w: decode %s: %v", ErrConfig, path, err)
	}
	if err := parsed.Pack.validate(); err != nil {
		return Config{}, err
	}
	return parsed.Pack, nil
}

func (c Config) validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrConfig, c.Workers)
	}
	if c.DeltaCacheSize < 0 {
		return fmt.Errorf("%w: deltaCacheSize must be >= 0, got %d", ErrConfig, c.DeltaCacheSize)
	}
	if c.DeltaCacheLimit < 0 {
		return fmt.Errorf("%w: deltaCacheLimit must be >= 0, got %d", ErrConfig, c.DeltaCacheLimit)
	}
	if c.WindowMemory < 0 {
		return fmt.Errorf("%w: windowMemory must be >= 0, got %d", ErrConfig, c.WindowMemory)
	}
	if c.BigFileThreshold < 0 {
		return fmt.Errorf("%w: bigFileThreshold must be >= 0, got %d", ErrConfig, c.BigFileThreshold)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be > 0, got %d", ErrConfig, c.Window)
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("%w: maxDepth must be > 0, got %d", ErrConfig, c.MaxDepth)
	}
	return nil
}
