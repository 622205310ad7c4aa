package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Paintersrp/weave/internal/constants"
)

type ServerConfig struct {
	Addr         string        `yaml:"addr"          json:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"  json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

type StoreConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn"    json:"dsn"`
}

type AuthConfig struct {
	Secret   string        `yaml:"secret"    json:"-"`
	Issuer   string        `yaml:"issuer"    json:"issuer"`
	TokenTTL time.Duration `yaml:"token_ttl" json:"token_ttl"`
}

type LayoutConfig struct {
	CenterX float64 `yaml:"center_x" json:"center_x"`
	CenterY float64 `yaml:"center_y" json:"center_y"`
	Radius  float64 `yaml:"radius"   json:"radius"`
}

type GraphConfig struct {
	HubThreshold       int               `yaml:"hub_threshold"       json:"hub_threshold"`
	ConnectedThreshold int               `yaml:"connected_threshold" json:"connected_threshold"`
	Layout             LayoutConfig      `yaml:"layout"              json:"layout"`
	FolderColors       map[string]string `yaml:"folder_colors"       json:"folder_colors"`
	DefaultColor       string            `yaml:"default_color"       json:"default_color"`
}

type BacklinksConfig struct {
	Concurrency int `yaml:"concurrency" json:"concurrency"`
}

type BackupConfig struct {
	Bucket    string `yaml:"bucket"     json:"bucket"`
	Prefix    string `yaml:"prefix"     json:"prefix"`
	Region    string `yaml:"region"     json:"region"`
	Endpoint  string `yaml:"endpoint"   json:"endpoint"`
	PathStyle bool   `yaml:"path_style" json:"path_style"`
	AccessKey string `yaml:"access_key" json:"-"`
	SecretKey string `yaml:"secret_key" json:"-"`
}

type LogConfig struct {
	Level  string `yaml:"level"  json:"level"`
	Format string `yaml:"format" json:"format"`
}

type Config struct {
	Owner     string          `yaml:"owner"     json:"owner"`
	Editor    string          `yaml:"editor"    json:"editor"`
	Server    ServerConfig    `yaml:"server"    json:"server"`
	Store     StoreConfig     `yaml:"store"     json:"store"`
	Auth      AuthConfig      `yaml:"auth"      json:"auth"`
	Graph     GraphConfig     `yaml:"graph"     json:"graph"`
	Backlinks BacklinksConfig `yaml:"backlinks" json:"backlinks"`
	Backup    BackupConfig    `yaml:"backup"    json:"backup"`
	Log       LogConfig       `yaml:"log"       json:"log"`

	path string `yaml:"-"`
}

var ValidDrivers = map[string]bool{
	"memory":   true,
	"sqlite":   true,
	"postgres": true,
}

var ValidLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var ValidLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

// Default returns the configuration used when the file leaves a value unset.
func Default(home string) *Config {
	return &Config{
		Owner: "local",
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(home, constants.ConfigDir, "weave.db"),
		},
		Auth: AuthConfig{
			Issuer:   constants.AppName,
			TokenTTL: 24 * time.Hour,
		},
		Graph: GraphConfig{
			HubThreshold:       5,
			ConnectedThreshold: 2,
			Layout:             LayoutConfig{CenterX: 400, CenterY: 300, Radius: 200},
			FolderColors: map[string]string{
				"work":     "#3b82f6",
				"personal": "#10b981",
				"projects": "#8b5cf6",
				"research": "#f59e0b",
				"ideas":    "#ec4899",
				"notes":    "#6b7280",
			},
			DefaultColor: "#6b7280",
		},
		Backlinks: BacklinksConfig{Concurrency: 4},
		Backup:    BackupConfig{Prefix: "weave/"},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the config file under home and overlays environment variables
// and bound flags from v. A .env file in the working directory is loaded into
// the environment first; variables already set win.
func Load(home string, v *viper.Viper) (*Config, error) {
	if err := godotenv.Load(constants.DotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", constants.DotEnvFile, err)
	}

	path := GetConfigPath(home)
	if v != nil {
		if override := strings.TrimSpace(v.GetString("config")); override != "" {
			path = override
		}
	}

	cfg := Default(home)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	case len(strings.TrimSpace(string(data))) > 0:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	cfg.path = path

	if v != nil {
		cfg.applyOverrides(v)
	}
	cfg.normalize()
	return cfg, nil
}

// NewViper returns a viper instance that resolves keys such as "store.dsn"
// from WEAVE_STORE_DSN.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func (cfg *Config) applyOverrides(v *viper.Viper) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	num := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v.IsSet(key) {
			*dst = v.GetDuration(key)
		}
	}

	str("owner", &cfg.Owner)
	str("editor", &cfg.Editor)
	str("server.addr", &cfg.Server.Addr)
	dur("server.read_timeout", &cfg.Server.ReadTimeout)
	dur("server.write_timeout", &cfg.Server.WriteTimeout)
	str("store.driver", &cfg.Store.Driver)
	str("store.dsn", &cfg.Store.DSN)
	str("auth.secret", &cfg.Auth.Secret)
	str("auth.issuer", &cfg.Auth.Issuer)
	dur("auth.token_ttl", &cfg.Auth.TokenTTL)
	num("graph.hub_threshold", &cfg.Graph.HubThreshold)
	num("graph.connected_threshold", &cfg.Graph.ConnectedThreshold)
	num("backlinks.concurrency", &cfg.Backlinks.Concurrency)
	str("backup.bucket", &cfg.Backup.Bucket)
	str("backup.prefix", &cfg.Backup.Prefix)
	str("backup.region", &cfg.Backup.Region)
	str("backup.endpoint", &cfg.Backup.Endpoint)
	str("backup.access_key", &cfg.Backup.AccessKey)
	str("backup.secret_key", &cfg.Backup.SecretKey)
	if v.IsSet("backup.path_style") {
		cfg.Backup.PathStyle = v.GetBool("backup.path_style")
	}
	str("log.level", &cfg.Log.Level)
	str("log.format", &cfg.Log.Format)
}

func (cfg *Config) normalize() {
	cfg.Owner = strings.TrimSpace(cfg.Owner)
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	if cfg.Graph.FolderColors == nil {
		cfg.Graph.FolderColors = make(map[string]string)
	}
	lowered := make(map[string]string, len(cfg.Graph.FolderColors))
	for folder, color := range cfg.Graph.FolderColors {
		lowered[strings.ToLower(strings.TrimSpace(folder))] = color
	}
	cfg.Graph.FolderColors = lowered
}

// Validate checks the values every command relies on. requireSecret is set
// by commands that sign or verify tokens.
func (cfg *Config) Validate(requireSecret bool) error {
	if !ValidDrivers[cfg.Store.Driver] {
		return &ConfigInitError{
			msg: fmt.Sprintf("invalid store driver %q: choose memory, sqlite or postgres", cfg.Store.Driver),
		}
	}
	if cfg.Store.Driver == "postgres" && strings.TrimSpace(cfg.Store.DSN) == "" {
		return &ConfigInitError{msg: "store.dsn is required for the postgres driver"}
	}
	if cfg.Owner == "" {
		return &ConfigInitError{msg: "required config variable \"owner\" is not set"}
	}
	if requireSecret && strings.TrimSpace(cfg.Auth.Secret) == "" {
		return &ConfigInitError{
			msg: fmt.Sprintf("auth.secret is required; set it in the config file or %s_AUTH_SECRET", constants.EnvPrefix),
		}
	}
	if cfg.Graph.HubThreshold <= 0 || cfg.Graph.ConnectedThreshold <= 0 {
		return &ConfigInitError{msg: "graph thresholds must be positive"}
	}
	if cfg.Graph.ConnectedThreshold > cfg.Graph.HubThreshold {
		return &ConfigInitError{msg: "graph.connected_threshold cannot exceed graph.hub_threshold"}
	}
	if cfg.Graph.Layout.Radius <= 0 {
		return &ConfigInitError{msg: "graph.layout.radius must be positive"}
	}
	if cfg.Backlinks.Concurrency <= 0 {
		return &ConfigInitError{msg: "backlinks.concurrency must be positive"}
	}
	if !ValidLogLevels[cfg.Log.Level] {
		return &ConfigInitError{msg: fmt.Sprintf("invalid log level %q", cfg.Log.Level)}
	}
	if !ValidLogFormats[cfg.Log.Format] {
		return &ConfigInitError{msg: fmt.Sprintf("invalid log format %q", cfg.Log.Format)}
	}
	return nil
}

// EditorCommand returns the editor used by "notes edit": the configured one,
// then $EDITOR, then vi.
func (cfg *Config) EditorCommand() string {
	if e := strings.TrimSpace(cfg.Editor); e != "" {
		return e
	}
	if e := strings.TrimSpace(os.Getenv("EDITOR")); e != "" {
		return e
	}
	return "vi"
}

// Path is the file the config was loaded from.
func (cfg *Config) Path() string {
	return cfg.path
}

// Save writes the config back to the file it was loaded from.
func (cfg *Config) Save() error {
	if cfg.path == "" {
		return fmt.Errorf("config path is not set")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(cfg.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
