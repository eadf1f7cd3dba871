package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/veschin/d2-web-extension-sub000/internal/grammar"
)

// FileName is the project configuration file looked up from the workspace
// root upwards.
const FileName = "d2frag.toml"

// MemoryCache as cache_path keeps the fragment cache in memory.
const MemoryCache = ":memory:"

type Config struct {
	Extensions      []string          `json:"extensions" toml:"extensions"`
	Backend         string            `json:"backend" toml:"backend"`
	CachePath       string            `json:"cache_path" toml:"cache_path"` // empty: per-workspace state file
	CacheSize       int               `json:"cache_size" toml:"cache_size"`
	FeedAddr        string            `json:"feed_addr" toml:"feed_addr"`
	Watch           bool              `json:"watch" toml:"watch"`
	ReindexInterval string            `json:"reindex_interval" toml:"reindex_interval"`
	SitterKinds     map[string]string `json:"sitter_kinds" toml:"sitter_kinds"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Extensions:      []string{".d2"},
		Backend:         grammar.NameD2,
		CacheSize:       1024,
		ReindexInterval: "5m",
	}
}

// Load overlays v, typically LSP initialization options, onto cfg. Only
// fields present in v overwrite.
func Load(cfg Config, v any) (Config, error) {
	if v == nil {
		return cfg, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Config{}, fmt.Errorf("failed to marshal source: %w", err)
	}
	if string(data) == "null" {
		return cfg, nil
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal into Config: %w", err)
	}
	return cfg, nil
}

// LoadFromJSON reads JSON from r over the defaults.
func LoadFromJSON(r io.Reader) (Config, error) {
	cfg := Default()
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the TOML file at path onto cfg.
func LoadFile(cfg Config, path string) (Config, error) {
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Find looks for FileName in dir and its parents.
func Find(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		path := filepath.Join(dir, FileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// ApplyEnv overlays D2FRAG_* environment variables onto cfg. A .env file in
// dir, when present, is loaded first without overriding the environment.
func ApplyEnv(cfg Config, dir string) (Config, error) {
	if dir != "" {
		if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: .env: %w", err)
		}
	}

	if v, ok := os.LookupEnv("D2FRAG_BACKEND"); ok {
		cfg.Backend = v
	}
	if v, ok := os.LookupEnv("D2FRAG_CACHE_PATH"); ok {
		cfg.CachePath = v
	}
	if v, ok := os.LookupEnv("D2FRAG_FEED_ADDR"); ok {
		cfg.FeedAddr = v
	}
	if v, ok := os.LookupEnv("D2FRAG_EXTENSIONS"); ok {
		cfg.Extensions = nil
		for _, ext := range strings.Split(v, ",") {
			if ext = strings.TrimSpace(ext); ext != "" {
				cfg.Extensions = append(cfg.Extensions, ext)
			}
		}
	}
	if v, ok := os.LookupEnv("D2FRAG_WATCH"); ok {
		watch, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: D2FRAG_WATCH: %w", err)
		}
		cfg.Watch = watch
	}
	return cfg, nil
}

// Resolve builds the configuration of a workspace: defaults, then the
// nearest d2frag.toml, then options, then the environment.
func Resolve(root string, options any) (Config, error) {
	cfg := Default()
	var err error
	if path, ok := Find(root); ok {
		if cfg, err = LoadFile(cfg, path); err != nil {
			return Config{}, err
		}
	}
	if cfg, err = Load(cfg, options); err != nil {
		return Config{}, err
	}
	if cfg, err = ApplyEnv(cfg, root); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate reports invalid settings.
func (c Config) Validate() error {
	switch c.Backend {
	case "", grammar.NameText, grammar.NameD2, grammar.NameTreeSitter:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if _, err := c.Interval(); err != nil {
		return err
	}
	if len(c.Extensions) == 0 {
		return errors.New("config: no file extensions")
	}
	return nil
}

// Interval parses ReindexInterval. Zero disables periodic reindexing.
func (c Config) Interval() (time.Duration, error) {
	if c.ReindexInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.ReindexInterval)
	if err != nil {
		return 0, fmt.Errorf("config: reindex_interval: %w", err)
	}
	return d, nil
}

// StatePath returns the cache file for a workspace root under
// $XDG_STATE_HOME/d2frag, creating its directory.
func StatePath(root string) (string, error) {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		base = filepath.Join(home, ".local", "state")
	}
	dir := filepath.Join(base, "d2frag", rootKey(root))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}
	return filepath.Join(dir, "fragments.db"), nil
}

// CacheFile resolves CachePath for root: "" is the per-workspace state
// file and MemoryCache stays in memory (returned as "").
func (c Config) CacheFile(root string) (string, error) {
	switch c.CachePath {
	case MemoryCache:
		return "", nil
	case "":
		return StatePath(root)
	default:
		return c.CachePath, nil
	}
}

func rootKey(root string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(root)))
	return hex.EncodeToString(sum[:8])
}
