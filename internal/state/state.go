// Package state assembles the long-lived dependencies a command needs from
// the loaded configuration.
package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Paintersrp/weave/internal/auth"
	"github.com/Paintersrp/weave/internal/backlinks"
	"github.com/Paintersrp/weave/internal/backup"
	"github.com/Paintersrp/weave/internal/config"
	"github.com/Paintersrp/weave/internal/graph"
	"github.com/Paintersrp/weave/internal/services/notes"
	"github.com/Paintersrp/weave/internal/store"
)

type State struct {
	Config     *config.Config
	Home       string
	Logger     *slog.Logger
	Store      store.Store
	Maintainer *backlinks.Maintainer
	Notes      *notes.Service
}

// NewState loads the config (file, environment and the flags bound on v),
// opens the configured store and wires the note service over it. logOut
// receives log output; nil means stderr.
func NewState(ctx context.Context, v *viper.Viper, logOut io.Writer) (*State, error) {
	s := &State{}
	if err := s.Load(ctx, v, logOut); err != nil {
		return nil, err
	}
	return s, nil
}

// Load fills an empty State in place. Commands are built around one State
// before flags are parsed and load it once parsing is done.
func (s *State) Load(ctx context.Context, v *viper.Viper, logOut io.Writer) error {
	home, err := GetHomeDir()
	if err != nil {
		return err
	}

	cfg, err := LoadConfig(home, v)
	if err != nil {
		return err
	}
	if err := cfg.Validate(false); err != nil {
		return err
	}

	if logOut == nil {
		logOut = os.Stderr
	}
	logger := NewLogger(cfg.Log, logOut)

	if cfg.Store.Driver == store.DriverSQLite {
		if err := ensureParentDir(cfg.Store.DSN); err != nil {
			return err
		}
	}
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}
	logger.Debug("store opened", "driver", cfg.Store.Driver)

	m := backlinks.New(st, logger, backlinks.WithConcurrency(cfg.Backlinks.Concurrency))

	s.Config = cfg
	s.Home = home
	s.Logger = logger
	s.Store = st
	s.Maintainer = m
	s.Notes = notes.NewService(st, m, GraphOptions(cfg.Graph), logger)
	return nil
}

// Loaded reports whether the note service is ready.
func (s *State) Loaded() bool {
	return s != nil && s.Notes != nil
}

func GetHomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory. err: %s", err)
	}

	return home, nil
}

// LoadConfig makes sure a config file exists under home and loads it with
// the overrides bound on v.
func LoadConfig(home string, v *viper.Viper) (*config.Config, error) {
	if v == nil || strings.TrimSpace(v.GetString("config")) == "" {
		if err := config.EnsureConfigExists(home); err != nil {
			return nil, err
		}
	}
	return config.Load(home, v)
}

// NewLogger builds the slog logger described by cfg.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// GraphOptions converts the graph config section into builder options.
func GraphOptions(cfg config.GraphConfig) graph.Options {
	return graph.Options{
		HubThreshold:       cfg.HubThreshold,
		ConnectedThreshold: cfg.ConnectedThreshold,
		Palette: graph.Palette{
			Folders: cfg.FolderColors,
			Default: cfg.DefaultColor,
		},
		Canvas: graph.Canvas{
			CenterX: cfg.Layout.CenterX,
			CenterY: cfg.Layout.CenterY,
			Radius:  cfg.Layout.Radius,
		},
	}
}

// Tokens returns the token signer for the configured secret. It fails when
// no secret is set.
func (s *State) Tokens() (*auth.Tokens, error) {
	if err := s.Config.Validate(true); err != nil {
		return nil, err
	}
	return auth.NewTokens(s.Config.Auth.Secret, s.Config.Auth.Issuer, s.Config.Auth.TokenTTL), nil
}

// Backup returns a backup manager over the configured S3 bucket.
func (s *State) Backup(ctx context.Context) (*backup.Manager, error) {
	b := s.Config.Backup
	objects, err := backup.NewS3(ctx, backup.S3Options{
		Bucket:    b.Bucket,
		Region:    b.Region,
		Endpoint:  b.Endpoint,
		PathStyle: b.PathStyle,
		AccessKey: b.AccessKey,
		SecretKey: b.SecretKey,
	})
	if err != nil {
		return nil, err
	}
	return backup.NewManager(objects, s.Notes, b.Prefix, s.Logger), nil
}

func ensureParentDir(dsn string) error {
	if dsn == "" || dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	return nil
}

// Close releases the store.
func (s *State) Close() error {
	if s == nil {
		return nil
	}

	var errs []error
	if s.Store != nil {
		if err := s.Store.Close(); err != nil && !errors.Is(err, store.ErrClosed) {
			errs = append(errs, err)
		}
		s.Store = nil
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
